package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigError reports an invalid configuration value.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s %s", e.Field, e.Reason)
}

// GetConfigPath returns the default config file path (~/.guardbot/config.yaml).
func GetConfigPath() string {
	return filepath.Join(configDir(), "config.yaml")
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}

// Load reads configuration from a YAML file, or JSON when path ends in .json.
// If path is empty, uses the default config path.
// If the file doesn't exist, returns DefaultConfig().
func Load(path string) (Config, error) {
	if path == "" {
		path = GetConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return Config{}, err
	}

	cfg := DefaultConfig() // start with defaults so zero-value fields get filled
	if isJSON(path) {
		err = json.Unmarshal(data, &cfg)
	} else {
		err = yaml.Unmarshal(data, &cfg)
	}
	if err != nil {
		return DefaultConfig(), fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes configuration to path in the format its extension selects.
// If path is empty, uses the default config path.
func Save(cfg Config, path string) error {
	if path == "" {
		path = GetConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	if isJSON(path) {
		data, err = json.MarshalIndent(cfg, "", "  ")
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	// the file carries the bot token
	return os.WriteFile(path, data, 0600)
}

// ApplyEnv overrides file values with GUARDBOT_* environment variables.
func ApplyEnv(cfg *Config) error {
	str := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*dst = v
		}
	}
	num := func(name string, dst *int64) error {
		v, ok := os.LookupEnv(name)
		if !ok || v == "" {
			return nil
		}
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return &ConfigError{Field: name, Reason: "must be an integer"}
		}
		*dst = n
		return nil
	}

	str("GUARDBOT_BOT_TOKEN", &cfg.Telegram.Token)
	str("GUARDBOT_API_BASE_URL", &cfg.Telegram.BaseURL)
	str("GUARDBOT_DB_DRIVER", &cfg.Database.Driver)
	str("GUARDBOT_DB_DSN", &cfg.Database.DSN)
	str("GUARDBOT_REDIS_URL", &cfg.Redis.URL)
	str("GUARDBOT_REDIS_PASSWORD", &cfg.Redis.Password)
	str("GUARDBOT_USERSESSION_URL", &cfg.UserSession.URL)
	str("GUARDBOT_USERSESSION_TOKEN", &cfg.UserSession.Token)
	str("GUARDBOT_API_KEY", &cfg.Server.APIKey)
	str("GUARDBOT_APPEAL_CHAT", &cfg.Moderation.AppealChat)
	str("GUARDBOT_LOG_LEVEL", &cfg.Logging.Level)
	if err := num("GUARDBOT_OWNER_ID", &cfg.Privilege.OwnerID); err != nil {
		return err
	}
	return num("GUARDBOT_LOG_CHAT", &cfg.Moderation.LogChatID)
}

// Validate checks the settings the bot cannot start without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Telegram.Token) == "" {
		return &ConfigError{Field: "telegram.token", Reason: "is required"}
	}
	if c.Privilege.OwnerID == 0 {
		return &ConfigError{Field: "privilege.ownerId", Reason: "is required"}
	}
	switch c.Database.Driver {
	case "sqlite", "pgx":
	default:
		return &ConfigError{Field: "database.driver", Reason: fmt.Sprintf("must be sqlite or pgx, got %q", c.Database.Driver)}
	}
	if c.Database.DSN == "" {
		return &ConfigError{Field: "database.dsn", Reason: "is required"}
	}
	if c.Pipeline.MaxInFlight <= 0 {
		return &ConfigError{Field: "pipeline.maxInFlight", Reason: "must be positive"}
	}
	for _, p := range c.Commands.Prefixes {
		if p == "" || p == "/" {
			return &ConfigError{Field: "commands.prefixes", Reason: fmt.Sprintf("cannot contain %q", p)}
		}
	}
	if c.Server.Enabled && (c.Server.Port <= 0 || c.Server.Port > 65535) {
		return &ConfigError{Field: "server.port", Reason: "must be between 1 and 65535"}
	}
	switch c.Logging.Level {
	case "", "info", "debug":
	default:
		return &ConfigError{Field: "logging.level", Reason: fmt.Sprintf("must be info or debug, got %q", c.Logging.Level)}
	}
	return nil
}
