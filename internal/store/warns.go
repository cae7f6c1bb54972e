package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// DefaultWarnLimit applies to chats that never set one.
const DefaultWarnLimit = 3

// Warning is one warning issued to a user in a chat.
type Warning struct {
	Reason   string
	WarnedBy int64
	WarnedAt time.Time
}

// AddWarning records a warning and returns the user's warning count in chatID.
func (s *Store) AddWarning(ctx context.Context, chatID, userID int64, reason string, by int64) (int, error) {
	_, err := s.exec(ctx, `
		INSERT INTO warnings (chat_id, user_id, reason, warned_by, warned_at) VALUES (?, ?, ?, ?, ?)
	`, chatID, userID, reason, by, now())
	if err != nil {
		return 0, fmt.Errorf("failed to add warning: %w", err)
	}
	return s.CountWarnings(ctx, chatID, userID)
}

// CountWarnings counts userID's warnings in chatID.
func (s *Store) CountWarnings(ctx context.Context, chatID, userID int64) (int, error) {
	var n int
	err := s.queryRow(ctx, `SELECT COUNT(*) FROM warnings WHERE chat_id = ? AND user_id = ?`, chatID, userID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count warnings: %w", err)
	}
	return n, nil
}

// Warnings lists userID's warnings in chatID, oldest first.
func (s *Store) Warnings(ctx context.Context, chatID, userID int64) ([]Warning, error) {
	rows, err := s.query(ctx, `
		SELECT reason, warned_by, warned_at FROM warnings
		WHERE chat_id = ? AND user_id = ? ORDER BY warned_at
	`, chatID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list warnings: %w", err)
	}
	defer rows.Close()

	var out []Warning
	for rows.Next() {
		var w Warning
		var at int64
		if err := rows.Scan(&w.Reason, &w.WarnedBy, &at); err != nil {
			return nil, err
		}
		w.WarnedAt = time.Unix(at, 0)
		out = append(out, w)
	}
	return out, rows.Err()
}

// ResetWarnings deletes userID's warnings in chatID and returns how many there were.
func (s *Store) ResetWarnings(ctx context.Context, chatID, userID int64) (int, error) {
	res, err := s.exec(ctx, `DELETE FROM warnings WHERE chat_id = ? AND user_id = ?`, chatID, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to reset warnings: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// WarnLimit returns the number of warnings that triggers a ban in chatID.
func (s *Store) WarnLimit(ctx context.Context, chatID int64) (int, error) {
	var limit int
	err := s.queryRow(ctx, `SELECT warn_limit FROM warn_limits WHERE chat_id = ?`, chatID).Scan(&limit)
	if err == sql.ErrNoRows || (err == nil && limit < 1) {
		return DefaultWarnLimit, nil
	}
	if err != nil {
		return DefaultWarnLimit, fmt.Errorf("failed to query warn limit: %w", err)
	}
	return limit, nil
}

// SetWarnLimit sets chatID's warn limit. limit must be at least 1.
func (s *Store) SetWarnLimit(ctx context.Context, chatID int64, limit int) error {
	if limit < 1 {
		return fmt.Errorf("warn limit must be at least 1, got %d", limit)
	}
	_, err := s.exec(ctx, `
		INSERT INTO warn_limits (chat_id, warn_limit) VALUES (?, ?)
		ON CONFLICT (chat_id) DO UPDATE SET warn_limit = excluded.warn_limit
	`, chatID, limit)
	if err != nil {
		return fmt.Errorf("failed to set warn limit: %w", err)
	}
	return nil
}
