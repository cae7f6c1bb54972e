package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Schema Tests ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "guardbot.db", filepath.Base(cfg.Database.DSN))
	assert.Equal(t, []string{"!", "?"}, cfg.Commands.Prefixes)
	assert.Equal(t, 64, cfg.Pipeline.MaxInFlight)
	assert.False(t, cfg.Pipeline.GbanStops)
	assert.Equal(t, 18790, cfg.Server.Port)
	assert.Equal(t, []string{"help", "info", "rules"}, cfg.Moderation.BlacklistAllowed)
	assert.Equal(t, 5, cfg.Resolver.PrimaryTimeoutSec)
	assert.False(t, cfg.Debug())
}

func TestConfig_LogChatFallsBackToOwner(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Privilege.OwnerID = 42
	assert.Equal(t, int64(42), cfg.LogChat())
	cfg.Moderation.LogChatID = -100
	assert.Equal(t, int64(-100), cfg.LogChat())
}

// --- Loader Tests ---

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_YAMLKeepsDefaultsForMissingFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
telegram:
  token: abc
  allowChats: [-100, -200]
privilege:
  ownerId: 7
  sudo: [8, 9]
pipeline:
  gbanStops: true
commands:
  aliases:
    boot: kick
`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "abc", cfg.Telegram.Token)
	assert.Equal(t, []int64{-100, -200}, cfg.Telegram.AllowChats)
	assert.Equal(t, int64(7), cfg.Privilege.OwnerID)
	assert.Equal(t, []int64{8, 9}, cfg.Privilege.Sudo)
	assert.True(t, cfg.Pipeline.GbanStops)
	assert.Equal(t, 64, cfg.Pipeline.MaxInFlight)
	assert.Equal(t, map[string]string{"boot": "kick"}, cfg.Commands.Aliases)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestLoad_JSONByExtension(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"telegram": {"token": "abc"},
		"database": {"driver": "pgx", "dsn": "postgres://localhost/guardbot"},
		"server": {"port": 9090}
	}`), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "pgx", cfg.Database.Driver)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("telegram: [unclosed"), 0600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestSaveAndLoad(t *testing.T) {
	for _, name := range []string{"config.yaml", "config.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "sub", name)
			cfg := DefaultConfig()
			cfg.Telegram.Token = "saved"
			cfg.Privilege.Developers = []int64{3}

			require.NoError(t, Save(cfg, path))
			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

			loaded, err := Load(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, loaded)
		})
	}
}

// --- Env and validation ---

func TestApplyEnv(t *testing.T) {
	t.Setenv("GUARDBOT_BOT_TOKEN", "env-token")
	t.Setenv("GUARDBOT_OWNER_ID", "77")
	t.Setenv("GUARDBOT_REDIS_URL", "redis://localhost:6379")
	t.Setenv("GUARDBOT_DB_DSN", "")

	cfg := DefaultConfig()
	dsn := cfg.Database.DSN
	require.NoError(t, ApplyEnv(&cfg))
	assert.Equal(t, "env-token", cfg.Telegram.Token)
	assert.Equal(t, int64(77), cfg.Privilege.OwnerID)
	assert.Equal(t, "redis://localhost:6379", cfg.Redis.URL)
	assert.Equal(t, dsn, cfg.Database.DSN, "empty values do not override")
}

func TestApplyEnv_BadOwnerID(t *testing.T) {
	t.Setenv("GUARDBOT_OWNER_ID", "owner")
	cfg := DefaultConfig()
	err := ApplyEnv(&cfg)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, "GUARDBOT_OWNER_ID", cfgErr.Field)
}

func TestValidate(t *testing.T) {
	valid := DefaultConfig()
	valid.Telegram.Token = "t"
	valid.Privilege.OwnerID = 1
	require.NoError(t, valid.Validate())

	cases := map[string]func(c *Config){
		"telegram.token":       func(c *Config) { c.Telegram.Token = " " },
		"privilege.ownerId":    func(c *Config) { c.Privilege.OwnerID = 0 },
		"database.driver":      func(c *Config) { c.Database.Driver = "mysql" },
		"database.dsn":         func(c *Config) { c.Database.DSN = "" },
		"pipeline.maxInFlight": func(c *Config) { c.Pipeline.MaxInFlight = 0 },
		"commands.prefixes":    func(c *Config) { c.Commands.Prefixes = []string{"/"} },
		"server.port":          func(c *Config) { c.Server.Port = 70000 },
		"logging.level":        func(c *Config) { c.Logging.Level = "trace" },
	}
	for field, mutate := range cases {
		t.Run(field, func(t *testing.T) {
			c := valid
			mutate(&c)
			var cfgErr *ConfigError
			require.True(t, errors.As(c.Validate(), &cfgErr))
			assert.Equal(t, field, cfgErr.Field)
		})
	}
}

func TestValidate_DisabledServerIgnoresPort(t *testing.T) {
	c := DefaultConfig()
	c.Telegram.Token = "t"
	c.Privilege.OwnerID = 1
	c.Server.Enabled = false
	c.Server.Port = 0
	assert.NoError(t, c.Validate())
}
