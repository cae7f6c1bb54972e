package store

// schema is applied statement by statement on every Open.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		user_id BIGINT PRIMARY KEY,
		kind TEXT NOT NULL DEFAULT 'user',
		username TEXT,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		language_code TEXT NOT NULL DEFAULT '',
		is_bot INTEGER NOT NULL DEFAULT 0,
		last_seen BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_users_username ON users (username)`,

	`CREATE TABLE IF NOT EXISTS staff_users (
		user_id BIGINT PRIMARY KEY,
		role TEXT NOT NULL,
		added_by BIGINT NOT NULL DEFAULT 0,
		added_at BIGINT NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS blacklist (
		user_id BIGINT PRIMARY KEY,
		reason TEXT NOT NULL DEFAULT '',
		banned_by BIGINT NOT NULL DEFAULT 0,
		created_at BIGINT NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS global_bans (
		user_id BIGINT PRIMARY KEY,
		reason TEXT NOT NULL DEFAULT '',
		banned_by BIGINT NOT NULL DEFAULT 0,
		created_at BIGINT NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS bot_chats (
		chat_id BIGINT PRIMARY KEY,
		chat_type TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL DEFAULT '',
		added_at BIGINT NOT NULL DEFAULT 0,
		enforce_gban INTEGER NOT NULL DEFAULT 1,
		welcome_enabled INTEGER NOT NULL DEFAULT 1,
		welcome_text TEXT NOT NULL DEFAULT '',
		goodbye_enabled INTEGER NOT NULL DEFAULT 1,
		goodbye_text TEXT NOT NULL DEFAULT '',
		clean_service INTEGER NOT NULL DEFAULT 0,
		rules_text TEXT NOT NULL DEFAULT ''
	)`,

	`CREATE TABLE IF NOT EXISTS disabled_commands (
		chat_id BIGINT NOT NULL,
		command TEXT NOT NULL,
		PRIMARY KEY (chat_id, command)
	)`,

	`CREATE TABLE IF NOT EXISTS disabled_modules (
		module TEXT PRIMARY KEY
	)`,

	`CREATE TABLE IF NOT EXISTS notes (
		chat_id BIGINT NOT NULL,
		name TEXT NOT NULL,
		content TEXT NOT NULL,
		created_by BIGINT NOT NULL DEFAULT 0,
		created_at BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (chat_id, name)
	)`,

	`CREATE TABLE IF NOT EXISTS chat_filters (
		chat_id BIGINT NOT NULL,
		keyword TEXT NOT NULL,
		reply_text TEXT NOT NULL,
		filter_type TEXT NOT NULL DEFAULT 'keyword',
		created_by BIGINT NOT NULL DEFAULT 0,
		created_at BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (chat_id, keyword)
	)`,

	`CREATE TABLE IF NOT EXISTS afk_users (
		user_id BIGINT PRIMARY KEY,
		reason TEXT NOT NULL DEFAULT '',
		afk_since BIGINT NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS chat_blacklist (
		chat_id BIGINT PRIMARY KEY,
		reason TEXT NOT NULL DEFAULT '',
		added_by BIGINT NOT NULL DEFAULT 0,
		created_at BIGINT NOT NULL DEFAULT 0
	)`,

	`CREATE TABLE IF NOT EXISTS warnings (
		chat_id BIGINT NOT NULL,
		user_id BIGINT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		warned_by BIGINT NOT NULL DEFAULT 0,
		warned_at BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS idx_warnings_chat_user ON warnings (chat_id, user_id)`,

	`CREATE TABLE IF NOT EXISTS warn_limits (
		chat_id BIGINT PRIMARY KEY,
		warn_limit INTEGER NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS settings (
		name TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
}
