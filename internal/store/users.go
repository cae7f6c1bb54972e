package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dayuer/guardbot-go/internal/bus"
)

const userColumns = `user_id, kind, username, first_name, last_name, title, language_code, is_bot, last_seen`

// UpsertUser writes an identity. A handle belongs to at most one row: the
// most recent writer claims it and older holders lose it.
func (s *Store) UpsertUser(ctx context.Context, ident bus.Identity) error {
	if ident.ID == 0 {
		return fmt.Errorf("upsert user: zero id")
	}
	kind := ident.Kind
	if kind == "" {
		kind = bus.IdentityUser
	}
	handle := strings.TrimPrefix(strings.TrimSpace(ident.Handle), "@")
	seen := ident.LastSeen
	if seen.IsZero() {
		seen = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if handle != "" {
		_, err = tx.ExecContext(ctx, s.rebind(`
			UPDATE users SET username = NULL
			WHERE lower(username) = ? AND user_id <> ?
		`), strings.ToLower(handle), ident.ID)
		if err != nil {
			return fmt.Errorf("failed to release handle: %w", err)
		}
	}

	_, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			kind = excluded.kind,
			username = excluded.username,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			title = excluded.title,
			language_code = excluded.language_code,
			is_bot = excluded.is_bot,
			last_seen = excluded.last_seen
	`),
		ident.ID,
		string(kind),
		sql.NullString{String: handle, Valid: handle != ""},
		ident.FirstName,
		ident.LastName,
		ident.Title,
		ident.LanguageCode,
		boolInt(ident.IsBot),
		seen.Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert user: %w", err)
	}
	return tx.Commit()
}

// GetUser returns the identity stored for id, or nil if absent.
func (s *Store) GetUser(ctx context.Context, id int64) (*bus.Identity, error) {
	row := s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE user_id = ?`, id)
	return scanIdentity(row)
}

// GetUserByHandle returns the identity currently holding handle, or nil.
// The handle is matched case-insensitively with or without a leading '@'.
func (s *Store) GetUserByHandle(ctx context.Context, handle string) (*bus.Identity, error) {
	h := bus.NormalizeHandle(handle)
	if h == "" {
		return nil, nil
	}
	row := s.queryRow(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE lower(username) = ?
		ORDER BY last_seen DESC
		LIMIT 1
	`, h)
	return scanIdentity(row)
}

// CountUsers returns the number of known identities.
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var n int
	if err := s.queryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

func scanIdentity(row *sql.Row) (*bus.Identity, error) {
	var (
		ident    bus.Identity
		kind     string
		username sql.NullString
		isBot    int
		lastSeen int64
	)
	err := row.Scan(&ident.ID, &kind, &username, &ident.FirstName, &ident.LastName,
		&ident.Title, &ident.LanguageCode, &isBot, &lastSeen)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	ident.Kind = bus.IdentityKind(kind)
	ident.Handle = username.String
	ident.IsBot = isBot != 0
	ident.LastSeen = time.Unix(lastSeen, 0)
	return &ident, nil
}
