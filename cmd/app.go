package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/dayuer/guardbot-go/internal/bus"
	"github.com/dayuer/guardbot-go/internal/commands"
	"github.com/dayuer/guardbot-go/internal/config"
	"github.com/dayuer/guardbot-go/internal/identcache"
	"github.com/dayuer/guardbot-go/internal/pipeline"
	"github.com/dayuer/guardbot-go/internal/privilege"
	"github.com/dayuer/guardbot-go/internal/redis"
	"github.com/dayuer/guardbot-go/internal/reporting"
	"github.com/dayuer/guardbot-go/internal/resolver"
	"github.com/dayuer/guardbot-go/internal/rules"
	"github.com/dayuer/guardbot-go/internal/store"
	"github.com/dayuer/guardbot-go/internal/telegram"
	"github.com/dayuer/guardbot-go/internal/usersession"
)

// app holds the assembled bot.
type app struct {
	cfg        config.Config
	bus        *bus.MessageBus
	store      *store.Store
	tg         *telegram.Client
	session    *usersession.Client
	checker    *privilege.Checker
	resolver   *resolver.Resolver
	reporter   *reporting.Reporter
	registry   *commands.Registry
	dispatcher *pipeline.Dispatcher
	rules      *rules.Rules
}

// loadConfig reads the config file and applies environment overrides.
func loadConfig() (config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return cfg, fmt.Errorf("loading config: %w", err)
	}
	if err := config.ApplyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// newApp opens storage and wires the pipeline. It does not contact Telegram.
func newApp(ctx context.Context, cfg config.Config) (*app, error) {
	if cfg.Database.Driver == store.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(cfg.Database.DSN), 0755); err != nil {
			return nil, fmt.Errorf("creating data dir: %w", err)
		}
	}
	st, err := store.Open(cfg.Database.Driver, cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, bus: bus.NewMessageBus(), store: st}

	if err := seedStaff(ctx, st, cfg.Privilege); err != nil {
		st.Close()
		return nil, err
	}

	redis.Init(redis.Config{URL: cfg.Redis.URL, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	cache := identcache.New(st, time.Duration(cfg.Redis.IdentityTTLSec)*time.Second)

	a.tg = telegram.NewClient(cfg.Telegram.Token, cfg.Telegram.BaseURL)
	a.session = usersession.NewClient(usersession.Config{URL: cfg.UserSession.URL, Token: cfg.UserSession.Token})
	a.checker = privilege.NewChecker(cfg.Privilege.OwnerID, st)

	resolverCfg := resolver.Config{
		Cache:            cache,
		Primary:          a.tg,
		PrimaryTimeout:   cfg.Resolver.PrimaryTimeout(),
		SecondaryTimeout: cfg.Resolver.SecondaryTimeout(),
	}
	if a.session.Configured() {
		resolverCfg.Secondary = a.session
	} else {
		log.Println("[App] user-session bridge not configured, secondary lookups disabled")
	}
	a.resolver = resolver.New(resolverCfg)

	a.reporter = reporting.New(a.bus, "telegram", cfg.LogChat(),
		time.Duration(cfg.Moderation.ReportWindowSec)*time.Second)
	a.dispatcher = pipeline.NewDispatcher(a.reporter)
	a.dispatcher.SetDebug(cfg.Debug())

	filters := rules.NewFilterCache(st, time.Duration(cfg.Pipeline.FilterCacheSec)*time.Second)
	a.registry, err = commands.BuildDefault(commands.Deps{
		Bus:       a.bus,
		Store:     st,
		Resolver:  a.resolver,
		Privilege: a.checker,
		Platform:  a.tg,
		Filters:   filters,
	}, cfg.Commands.Aliases)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("building commands: %w", err)
	}
	router := commands.NewRouter(a.registry,
		[]commands.Guard{
			commands.LevelGate(),
			commands.ModuleGate(st),
			commands.ChatCommandGate(st, a.tg),
		},
		commands.RouterConfig{
			Prefixes:    cfg.Commands.Prefixes,
			BotUsername: a.tg.BotUsername,
			Privilege:   a.checker,
			Bus:         a.bus,
			Reporter:    a.reporter,
		})

	a.rules = rules.New(rules.Deps{
		Bus:       a.bus,
		Store:     st,
		Cache:     cache,
		Privilege: a.checker,
		Platform:  a.tg,
		Router:    router,
		Filters:   filters,
		Notifier:  a.reporter,
	}, rules.Options{
		GbanStops:        cfg.Pipeline.GbanStops,
		AppealChat:       cfg.Moderation.AppealChat,
		BlacklistAllowed: cfg.Moderation.BlacklistAllowed,
	})
	a.rules.Register(a.dispatcher)
	return a, nil
}

func (a *app) close() {
	if err := a.session.Close(); err != nil {
		log.Printf("[App] ⚠️ closing user-session bridge: %v", err)
	}
	redis.Close()
	if err := a.store.Close(); err != nil {
		log.Printf("[App] ⚠️ closing store: %v", err)
	}
}

// seedStaff writes the configured staff roles. Roles granted at runtime are kept.
func seedStaff(ctx context.Context, st *store.Store, cfg config.PrivilegeConfig) error {
	seed := []struct {
		role string
		ids  []int64
	}{
		{privilege.RoleSupport, cfg.Support},
		{privilege.RoleSudo, cfg.Sudo},
		{privilege.RoleDeveloper, cfg.Developers},
	}
	for _, s := range seed {
		for _, id := range s.ids {
			if id == cfg.OwnerID {
				continue
			}
			if err := st.SetStaffRole(ctx, id, s.role, cfg.OwnerID); err != nil {
				return fmt.Errorf("seeding %s %d: %w", s.role, id, err)
			}
		}
	}
	return nil
}
