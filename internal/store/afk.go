package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AFKStatus is a user's away state.
type AFKStatus struct {
	UserID int64
	Reason string
	Since  time.Time
}

// SetAFK marks userID as away.
func (s *Store) SetAFK(ctx context.Context, userID int64, reason string) error {
	_, err := s.exec(ctx, `
		INSERT INTO afk_users (user_id, reason, afk_since) VALUES (?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET reason = excluded.reason, afk_since = excluded.afk_since
	`, userID, reason, now())
	if err != nil {
		return fmt.Errorf("failed to set afk: %w", err)
	}
	return nil
}

// AFK returns the away state of userID, or nil.
func (s *Store) AFK(ctx context.Context, userID int64) (*AFKStatus, error) {
	st := AFKStatus{UserID: userID}
	var since int64
	err := s.queryRow(ctx, `SELECT reason, afk_since FROM afk_users WHERE user_id = ?`, userID).Scan(&st.Reason, &since)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query afk: %w", err)
	}
	st.Since = time.Unix(since, 0)
	return &st, nil
}

// ClearAFK removes the away state. Returns false if userID was not away.
func (s *Store) ClearAFK(ctx context.Context, userID int64) (bool, error) {
	res, err := s.exec(ctx, `DELETE FROM afk_users WHERE user_id = ?`, userID)
	if err != nil {
		return false, fmt.Errorf("failed to clear afk: %w", err)
	}
	return affected(res), nil
}
