package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dayuer/guardbot-go/internal/bus"
)

// ChatPolicy holds per-chat settings. A chat without a row gets DefaultPolicy.
type ChatPolicy struct {
	ChatID         int64
	Known          bool
	EnforceGban    bool
	WelcomeEnabled bool
	WelcomeText    string
	GoodbyeEnabled bool
	GoodbyeText    string
	CleanService   bool
	RulesText      string
}

// DefaultPolicy is the policy of a chat that has never been configured.
func DefaultPolicy(chatID int64) ChatPolicy {
	return ChatPolicy{
		ChatID:         chatID,
		EnforceGban:    true,
		WelcomeEnabled: true,
		GoodbyeEnabled: true,
	}
}

// AddChat records that the bot is a member of chat. Existing settings are kept.
func (s *Store) AddChat(ctx context.Context, chat bus.Chat) error {
	_, err := s.exec(ctx, `
		INSERT INTO bot_chats (chat_id, chat_type, title, added_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (chat_id) DO UPDATE SET chat_type = excluded.chat_type, title = excluded.title
	`, chat.ID, string(chat.Type), chat.Title, now())
	if err != nil {
		return fmt.Errorf("failed to add chat: %w", err)
	}
	return nil
}

// RemoveChat forgets chatID and its settings.
func (s *Store) RemoveChat(ctx context.Context, chatID int64) (bool, error) {
	res, err := s.exec(ctx, `DELETE FROM bot_chats WHERE chat_id = ?`, chatID)
	if err != nil {
		return false, fmt.Errorf("failed to remove chat: %w", err)
	}
	return affected(res), nil
}

// ChatIDs lists every chat the bot has recorded.
func (s *Store) ChatIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.query(ctx, `SELECT chat_id FROM bot_chats`)
	if err != nil {
		return nil, fmt.Errorf("failed to list chats: %w", err)
	}
	return scanInt64s(rows)
}

// Policy returns the chat's settings, or DefaultPolicy when the chat has no row.
func (s *Store) Policy(ctx context.Context, chatID int64) (ChatPolicy, error) {
	p := ChatPolicy{ChatID: chatID}
	var gban, welcome, goodbye, clean int
	err := s.queryRow(ctx, `
		SELECT enforce_gban, welcome_enabled, welcome_text, goodbye_enabled, goodbye_text, clean_service, rules_text
		FROM bot_chats WHERE chat_id = ?
	`, chatID).Scan(&gban, &welcome, &p.WelcomeText, &goodbye, &p.GoodbyeText, &clean, &p.RulesText)
	if err == sql.ErrNoRows {
		return DefaultPolicy(chatID), nil
	}
	if err != nil {
		return DefaultPolicy(chatID), fmt.Errorf("failed to query chat policy: %w", err)
	}
	p.Known = true
	p.EnforceGban = gban != 0
	p.WelcomeEnabled = welcome != 0
	p.GoodbyeEnabled = goodbye != 0
	p.CleanService = clean != 0
	return p, nil
}

// setPolicyColumn creates the chat row on first write. column is a constant.
func (s *Store) setPolicyColumn(ctx context.Context, chatID int64, column string, value any) error {
	_, err := s.exec(ctx, `
		INSERT INTO bot_chats (chat_id, added_at, `+column+`) VALUES (?, ?, ?)
		ON CONFLICT (chat_id) DO UPDATE SET `+column+` = excluded.`+column,
		chatID, now(), value)
	if err != nil {
		return fmt.Errorf("failed to set %s: %w", column, err)
	}
	return nil
}

// SetEnforceGban toggles gban enforcement for chatID.
func (s *Store) SetEnforceGban(ctx context.Context, chatID int64, on bool) error {
	return s.setPolicyColumn(ctx, chatID, "enforce_gban", boolInt(on))
}

// SetWelcome toggles the welcome greeting. An empty text keeps the current one.
func (s *Store) SetWelcome(ctx context.Context, chatID int64, on bool, text string) error {
	if err := s.setPolicyColumn(ctx, chatID, "welcome_enabled", boolInt(on)); err != nil {
		return err
	}
	if text != "" {
		return s.setPolicyColumn(ctx, chatID, "welcome_text", text)
	}
	return nil
}

// SetGoodbye toggles the goodbye message. An empty text keeps the current one.
func (s *Store) SetGoodbye(ctx context.Context, chatID int64, on bool, text string) error {
	if err := s.setPolicyColumn(ctx, chatID, "goodbye_enabled", boolInt(on)); err != nil {
		return err
	}
	if text != "" {
		return s.setPolicyColumn(ctx, chatID, "goodbye_text", text)
	}
	return nil
}

// SetCleanService toggles deletion of join/leave service messages.
func (s *Store) SetCleanService(ctx context.Context, chatID int64, on bool) error {
	return s.setPolicyColumn(ctx, chatID, "clean_service", boolInt(on))
}

// SetRules stores the chat rules text.
func (s *Store) SetRules(ctx context.Context, chatID int64, text string) error {
	return s.setPolicyColumn(ctx, chatID, "rules_text", text)
}

// --- per-chat disabled commands ---

// DisabledCommands lists the commands disabled in chatID.
func (s *Store) DisabledCommands(ctx context.Context, chatID int64) ([]string, error) {
	rows, err := s.query(ctx, `SELECT command FROM disabled_commands WHERE chat_id = ? ORDER BY command`, chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to list disabled commands: %w", err)
	}
	return scanStrings(rows)
}

// IsCommandDisabled reports whether command is disabled in chatID.
func (s *Store) IsCommandDisabled(ctx context.Context, chatID int64, command string) (bool, error) {
	var one int
	err := s.queryRow(ctx, `SELECT 1 FROM disabled_commands WHERE chat_id = ? AND command = ?`,
		chatID, strings.ToLower(command)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query disabled command: %w", err)
	}
	return true, nil
}

// DisableCommand disables command in chatID. Returns false if already disabled.
func (s *Store) DisableCommand(ctx context.Context, chatID int64, command string) (bool, error) {
	res, err := s.exec(ctx, `
		INSERT INTO disabled_commands (chat_id, command) VALUES (?, ?)
		ON CONFLICT (chat_id, command) DO NOTHING
	`, chatID, strings.ToLower(command))
	if err != nil {
		return false, fmt.Errorf("failed to disable command: %w", err)
	}
	return affected(res), nil
}

// EnableCommand re-enables command in chatID. Returns false if it was not disabled.
func (s *Store) EnableCommand(ctx context.Context, chatID int64, command string) (bool, error) {
	res, err := s.exec(ctx, `DELETE FROM disabled_commands WHERE chat_id = ? AND command = ?`,
		chatID, strings.ToLower(command))
	if err != nil {
		return false, fmt.Errorf("failed to enable command: %w", err)
	}
	return affected(res), nil
}

// --- global disabled modules ---

// DisabledModules lists globally disabled modules.
func (s *Store) DisabledModules(ctx context.Context) ([]string, error) {
	rows, err := s.query(ctx, `SELECT module FROM disabled_modules ORDER BY module`)
	if err != nil {
		return nil, fmt.Errorf("failed to list disabled modules: %w", err)
	}
	return scanStrings(rows)
}

// IsModuleDisabled reports whether module is globally disabled.
func (s *Store) IsModuleDisabled(ctx context.Context, module string) (bool, error) {
	var one int
	err := s.queryRow(ctx, `SELECT 1 FROM disabled_modules WHERE module = ?`, strings.ToLower(module)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query disabled module: %w", err)
	}
	return true, nil
}

// DisableModule globally disables module.
func (s *Store) DisableModule(ctx context.Context, module string) (bool, error) {
	res, err := s.exec(ctx, `INSERT INTO disabled_modules (module) VALUES (?) ON CONFLICT (module) DO NOTHING`,
		strings.ToLower(module))
	if err != nil {
		return false, fmt.Errorf("failed to disable module: %w", err)
	}
	return affected(res), nil
}

// EnableModule globally re-enables module.
func (s *Store) EnableModule(ctx context.Context, module string) (bool, error) {
	res, err := s.exec(ctx, `DELETE FROM disabled_modules WHERE module = ?`, strings.ToLower(module))
	if err != nil {
		return false, fmt.Errorf("failed to enable module: %w", err)
	}
	return affected(res), nil
}
