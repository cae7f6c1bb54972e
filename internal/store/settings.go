package store

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
)

// SettingPublicAI is the process setting that opens AI commands to everyone.
const SettingPublicAI = "ai.public"

// Setting returns a process-wide setting value.
func (s *Store) Setting(ctx context.Context, name string) (string, bool, error) {
	var v string
	err := s.queryRow(ctx, `SELECT value FROM settings WHERE name = ?`, name).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query setting %s: %w", name, err)
	}
	return v, true, nil
}

// SetSetting writes a process-wide setting value.
func (s *Store) SetSetting(ctx context.Context, name, value string) error {
	_, err := s.exec(ctx, `
		INSERT INTO settings (name, value) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET value = excluded.value
	`, name, value)
	if err != nil {
		return fmt.Errorf("failed to set setting %s: %w", name, err)
	}
	return nil
}

// PublicAI reports whether AI commands are open to non-staff users. Defaults to false.
func (s *Store) PublicAI(ctx context.Context) (bool, error) {
	v, ok, err := s.Setting(ctx, SettingPublicAI)
	if err != nil || !ok {
		return false, err
	}
	on, _ := strconv.ParseBool(v)
	return on, nil
}

// SetPublicAI stores the public-AI flag.
func (s *Store) SetPublicAI(ctx context.Context, on bool) error {
	return s.SetSetting(ctx, SettingPublicAI, strconv.FormatBool(on))
}
