package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Filter types.
const (
	FilterKeyword  = "keyword"
	FilterWildcard = "wildcard"
	FilterRegex    = "regex"
)

// Filter is an automatic reply triggered by matching text.
type Filter struct {
	ChatID    int64
	Keyword   string
	ReplyText string
	Type      string
	CreatedBy int64
}

// --- notes ---

// SaveNote stores or replaces a note. Names are case-insensitive.
func (s *Store) SaveNote(ctx context.Context, chatID int64, name, content string, by int64) error {
	_, err := s.exec(ctx, `
		INSERT INTO notes (chat_id, name, content, created_by, created_at) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (chat_id, name) DO UPDATE SET content = excluded.content,
			created_by = excluded.created_by, created_at = excluded.created_at
	`, chatID, strings.ToLower(name), content, by, now())
	if err != nil {
		return fmt.Errorf("failed to save note: %w", err)
	}
	return nil
}

// GetNote returns a note's content.
func (s *Store) GetNote(ctx context.Context, chatID int64, name string) (string, bool, error) {
	var content string
	err := s.queryRow(ctx, `SELECT content FROM notes WHERE chat_id = ? AND name = ?`,
		chatID, strings.ToLower(name)).Scan(&content)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query note: %w", err)
	}
	return content, true, nil
}

// ListNotes lists note names in chatID, sorted.
func (s *Store) ListNotes(ctx context.Context, chatID int64) ([]string, error) {
	rows, err := s.query(ctx, `SELECT name FROM notes WHERE chat_id = ? ORDER BY name`, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	return scanStrings(rows)
}

// DeleteNote removes a note.
func (s *Store) DeleteNote(ctx context.Context, chatID int64, name string) (bool, error) {
	res, err := s.exec(ctx, `DELETE FROM notes WHERE chat_id = ? AND name = ?`, chatID, strings.ToLower(name))
	if err != nil {
		return false, fmt.Errorf("failed to delete note: %w", err)
	}
	return affected(res), nil
}

// --- filters ---

// AddFilter stores or replaces a filter. Keyword and wildcard patterns are
// lower-cased; regex patterns are kept verbatim.
func (s *Store) AddFilter(ctx context.Context, f Filter) error {
	if f.Type == "" {
		f.Type = FilterKeyword
	}
	if f.Type != FilterRegex {
		f.Keyword = strings.ToLower(f.Keyword)
	}
	_, err := s.exec(ctx, `
		INSERT INTO chat_filters (chat_id, keyword, reply_text, filter_type, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (chat_id, keyword) DO UPDATE SET reply_text = excluded.reply_text,
			filter_type = excluded.filter_type, created_by = excluded.created_by, created_at = excluded.created_at
	`, f.ChatID, f.Keyword, f.ReplyText, f.Type, f.CreatedBy, now())
	if err != nil {
		return fmt.Errorf("failed to add filter: %w", err)
	}
	return nil
}

// RemoveFilter deletes the filter for keyword.
func (s *Store) RemoveFilter(ctx context.Context, chatID int64, keyword string) (bool, error) {
	res, err := s.exec(ctx, `DELETE FROM chat_filters WHERE chat_id = ? AND lower(keyword) = ?`,
		chatID, strings.ToLower(keyword))
	if err != nil {
		return false, fmt.Errorf("failed to remove filter: %w", err)
	}
	return affected(res), nil
}

// Filters lists the filters of chatID ordered by keyword.
func (s *Store) Filters(ctx context.Context, chatID int64) ([]Filter, error) {
	rows, err := s.query(ctx, `
		SELECT chat_id, keyword, reply_text, filter_type, created_by
		FROM chat_filters WHERE chat_id = ? ORDER BY keyword
	`, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list filters: %w", err)
	}
	defer rows.Close()

	var out []Filter
	for rows.Next() {
		var f Filter
		if err := rows.Scan(&f.ChatID, &f.Keyword, &f.ReplyText, &f.Type, &f.CreatedBy); err != nil {
			return nil, fmt.Errorf("failed to scan filter: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}
