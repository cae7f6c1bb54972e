// Package config handles configuration loading, saving, and schema definition.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config is the top-level guardbot configuration.
// Field names are camelCase in both YAML and JSON files.
type Config struct {
	Telegram    TelegramConfig    `json:"telegram" yaml:"telegram"`
	Privilege   PrivilegeConfig   `json:"privilege" yaml:"privilege"`
	Database    DatabaseConfig    `json:"database" yaml:"database"`
	Redis       RedisConfig       `json:"redis" yaml:"redis"`
	UserSession UserSessionConfig `json:"userSession" yaml:"userSession"`
	Resolver    ResolverConfig    `json:"resolver" yaml:"resolver"`
	Pipeline    PipelineConfig    `json:"pipeline" yaml:"pipeline"`
	Commands    CommandsConfig    `json:"commands" yaml:"commands"`
	Moderation  ModerationConfig  `json:"moderation" yaml:"moderation"`
	Server      ServerConfig      `json:"server" yaml:"server"`
	Logging     LoggingConfig     `json:"logging" yaml:"logging"`
}

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	Token   string `json:"token" yaml:"token"`
	BaseURL string `json:"baseUrl,omitempty" yaml:"baseUrl,omitempty"`
	// AllowChats limits the bot to these group chats. Empty allows all.
	AllowChats []int64 `json:"allowChats,omitempty" yaml:"allowChats,omitempty"`
}

// PrivilegeConfig seeds bot staff. Roles granted at runtime live in the store.
type PrivilegeConfig struct {
	OwnerID    int64   `json:"ownerId" yaml:"ownerId"`
	Developers []int64 `json:"developers,omitempty" yaml:"developers,omitempty"`
	Sudo       []int64 `json:"sudo,omitempty" yaml:"sudo,omitempty"`
	Support    []int64 `json:"support,omitempty" yaml:"support,omitempty"`
}

// DatabaseConfig selects the relational store.
type DatabaseConfig struct {
	Driver string `json:"driver" yaml:"driver"` // sqlite | pgx
	DSN    string `json:"dsn" yaml:"dsn"`
}

// RedisConfig holds the identity cache hot layer settings. Empty URL disables Redis.
type RedisConfig struct {
	URL            string `json:"url,omitempty" yaml:"url,omitempty"`
	Password       string `json:"password,omitempty" yaml:"password,omitempty"`
	DB             int    `json:"db,omitempty" yaml:"db,omitempty"`
	IdentityTTLSec int    `json:"identityTtlSec,omitempty" yaml:"identityTtlSec,omitempty"`
}

// UserSessionConfig points at the user-mode session bridge. Empty URL leaves
// the secondary directory unconfigured.
type UserSessionConfig struct {
	URL   string `json:"url,omitempty" yaml:"url,omitempty"`
	Token string `json:"token,omitempty" yaml:"token,omitempty"`
}

// ResolverConfig bounds directory lookups.
type ResolverConfig struct {
	PrimaryTimeoutSec   int `json:"primaryTimeoutSec,omitempty" yaml:"primaryTimeoutSec,omitempty"`
	SecondaryTimeoutSec int `json:"secondaryTimeoutSec,omitempty" yaml:"secondaryTimeoutSec,omitempty"`
}

// PrimaryTimeout returns the primary directory timeout.
func (r ResolverConfig) PrimaryTimeout() time.Duration {
	return time.Duration(r.PrimaryTimeoutSec) * time.Second
}

// SecondaryTimeout returns the secondary directory timeout.
func (r ResolverConfig) SecondaryTimeout() time.Duration {
	return time.Duration(r.SecondaryTimeoutSec) * time.Second
}

// PipelineConfig tunes event processing.
type PipelineConfig struct {
	MaxInFlight int `json:"maxInFlight,omitempty" yaml:"maxInFlight,omitempty"`
	// GbanStops makes gban enforcement end the traversal.
	GbanStops        bool `json:"gbanStops,omitempty" yaml:"gbanStops,omitempty"`
	ShutdownGraceSec int  `json:"shutdownGraceSec,omitempty" yaml:"shutdownGraceSec,omitempty"`
	FilterCacheSec   int  `json:"filterCacheSec,omitempty" yaml:"filterCacheSec,omitempty"`
}

// ShutdownGrace returns how long shutdown waits for in-flight events.
func (p PipelineConfig) ShutdownGrace() time.Duration {
	return time.Duration(p.ShutdownGraceSec) * time.Second
}

// CommandsConfig customizes command parsing.
type CommandsConfig struct {
	Prefixes []string `json:"prefixes,omitempty" yaml:"prefixes,omitempty"`
	// Aliases maps an extra name to an existing command.
	Aliases map[string]string `json:"aliases,omitempty" yaml:"aliases,omitempty"`
}

// ModerationConfig holds operator-facing moderation settings.
type ModerationConfig struct {
	AppealChat string `json:"appealChat,omitempty" yaml:"appealChat,omitempty"`
	// LogChatID receives fault reports and notices. Zero falls back to the owner.
	LogChatID        int64    `json:"logChatId,omitempty" yaml:"logChatId,omitempty"`
	BlacklistAllowed []string `json:"blacklistAllowed,omitempty" yaml:"blacklistAllowed,omitempty"`
	ReportWindowSec  int      `json:"reportWindowSec,omitempty" yaml:"reportWindowSec,omitempty"`
}

// ServerConfig holds the admin HTTP server settings.
type ServerConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Host    string `json:"host,omitempty" yaml:"host,omitempty"`
	Port    int    `json:"port,omitempty" yaml:"port,omitempty"`
	APIKey  string `json:"apiKey,omitempty" yaml:"apiKey,omitempty"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `json:"level,omitempty" yaml:"level,omitempty"` // info | debug
}

// Debug reports whether verbose pipeline tracing is on.
func (c Config) Debug() bool { return c.Logging.Level == "debug" }

// LogChat returns the chat that receives operator notices.
func (c Config) LogChat() int64 {
	if c.Moderation.LogChatID != 0 {
		return c.Moderation.LogChatID
	}
	return c.Privilege.OwnerID
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    filepath.Join(configDir(), "guardbot.db"),
		},
		Redis: RedisConfig{
			IdentityTTLSec: 86400,
		},
		Resolver: ResolverConfig{
			PrimaryTimeoutSec:   5,
			SecondaryTimeoutSec: 15,
		},
		Pipeline: PipelineConfig{
			MaxInFlight:      64,
			ShutdownGraceSec: 10,
			FilterCacheSec:   60,
		},
		Commands: CommandsConfig{
			Prefixes: []string{"!", "?"},
		},
		Moderation: ModerationConfig{
			BlacklistAllowed: []string{"help", "info", "rules"},
			ReportWindowSec:  60,
		},
		Server: ServerConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    18790,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

func configDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".guardbot")
}
