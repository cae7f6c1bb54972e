package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// BanRecord is a blacklist or global-ban entry.
type BanRecord struct {
	UserID    int64
	Reason    string
	BannedBy  int64
	CreatedAt time.Time
}

// --- staff roles ---

// StaffRole returns the persisted role for userID, or "" if none.
func (s *Store) StaffRole(ctx context.Context, userID int64) (string, error) {
	var role string
	err := s.queryRow(ctx, `SELECT role FROM staff_users WHERE user_id = ?`, userID).Scan(&role)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to query staff role: %w", err)
	}
	return role, nil
}

// SetStaffRole assigns role to userID, replacing any previous role.
func (s *Store) SetStaffRole(ctx context.Context, userID int64, role string, addedBy int64) error {
	_, err := s.exec(ctx, `
		INSERT INTO staff_users (user_id, role, added_by, added_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET role = excluded.role, added_by = excluded.added_by, added_at = excluded.added_at
	`, userID, role, addedBy, now())
	if err != nil {
		return fmt.Errorf("failed to set staff role: %w", err)
	}
	return nil
}

// RemoveStaffRole removes any role held by userID.
func (s *Store) RemoveStaffRole(ctx context.Context, userID int64) (bool, error) {
	res, err := s.exec(ctx, `DELETE FROM staff_users WHERE user_id = ?`, userID)
	if err != nil {
		return false, fmt.Errorf("failed to remove staff role: %w", err)
	}
	return affected(res), nil
}

// StaffByRole lists the users holding role, by user ID.
func (s *Store) StaffByRole(ctx context.Context, role string) ([]int64, error) {
	rows, err := s.query(ctx, `SELECT user_id FROM staff_users WHERE role = ? ORDER BY user_id`, role)
	if err != nil {
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}
	return scanInt64s(rows)
}

// --- bot blacklist ---

// Blacklisted returns the blacklist record for userID, or nil.
func (s *Store) Blacklisted(ctx context.Context, userID int64) (*BanRecord, error) {
	return s.getBan(ctx, "blacklist", userID)
}

// AddBlacklist blacklists userID. Returns false if already present.
func (s *Store) AddBlacklist(ctx context.Context, userID int64, reason string, by int64) (bool, error) {
	return s.addBan(ctx, "blacklist", userID, reason, by)
}

// RemoveBlacklist removes userID from the blacklist.
func (s *Store) RemoveBlacklist(ctx context.Context, userID int64) (bool, error) {
	return s.removeBan(ctx, "blacklist", userID)
}

// --- global bans ---

// GlobalBan returns the gban record for userID, or nil.
func (s *Store) GlobalBan(ctx context.Context, userID int64) (*BanRecord, error) {
	return s.getBan(ctx, "global_bans", userID)
}

// AddGlobalBan gbans userID. Returns false if already present.
func (s *Store) AddGlobalBan(ctx context.Context, userID int64, reason string, by int64) (bool, error) {
	return s.addBan(ctx, "global_bans", userID, reason, by)
}

// RemoveGlobalBan lifts a gban.
func (s *Store) RemoveGlobalBan(ctx context.Context, userID int64) (bool, error) {
	return s.removeBan(ctx, "global_bans", userID)
}

// table is always one of the constant names above, never user input.
func (s *Store) getBan(ctx context.Context, table string, userID int64) (*BanRecord, error) {
	var rec BanRecord
	var created int64
	err := s.queryRow(ctx, `SELECT user_id, reason, banned_by, created_at FROM `+table+` WHERE user_id = ?`, userID).
		Scan(&rec.UserID, &rec.Reason, &rec.BannedBy, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	rec.CreatedAt = time.Unix(created, 0)
	return &rec, nil
}

func (s *Store) addBan(ctx context.Context, table string, userID int64, reason string, by int64) (bool, error) {
	res, err := s.exec(ctx, `
		INSERT INTO `+table+` (user_id, reason, banned_by, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, reason, by, now())
	if err != nil {
		return false, fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return affected(res), nil
}

func (s *Store) removeBan(ctx context.Context, table string, userID int64) (bool, error) {
	res, err := s.exec(ctx, `DELETE FROM `+table+` WHERE user_id = ?`, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete from %s: %w", table, err)
	}
	return affected(res), nil
}

// --- chat blacklist ---

// IsChatBlacklisted reports whether the bot refuses to stay in chatID.
func (s *Store) IsChatBlacklisted(ctx context.Context, chatID int64) (bool, error) {
	var one int
	err := s.queryRow(ctx, `SELECT 1 FROM chat_blacklist WHERE chat_id = ?`, chatID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query chat blacklist: %w", err)
	}
	return true, nil
}

// BlacklistChat adds chatID to the chat blacklist.
func (s *Store) BlacklistChat(ctx context.Context, chatID int64, reason string, by int64) (bool, error) {
	res, err := s.exec(ctx, `
		INSERT INTO chat_blacklist (chat_id, reason, added_by, created_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (chat_id) DO NOTHING
	`, chatID, reason, by, now())
	if err != nil {
		return false, fmt.Errorf("failed to blacklist chat: %w", err)
	}
	return affected(res), nil
}

// UnblacklistChat removes chatID from the chat blacklist.
func (s *Store) UnblacklistChat(ctx context.Context, chatID int64) (bool, error) {
	res, err := s.exec(ctx, `DELETE FROM chat_blacklist WHERE chat_id = ?`, chatID)
	if err != nil {
		return false, fmt.Errorf("failed to unblacklist chat: %w", err)
	}
	return affected(res), nil
}
