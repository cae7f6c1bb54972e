package cmd

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/dayuer/guardbot-go/internal/channels"
	"github.com/dayuer/guardbot-go/internal/pipeline"
	"github.com/dayuer/guardbot-go/internal/server"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the bot and the admin API",
	RunE:  runBot,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runBot(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.close()

	me, err := a.tg.GetMe(ctx)
	if err != nil {
		return fmt.Errorf("telegram getMe: %w", err)
	}

	log.Printf("[App] %d known chats", a.rules.Known.Load(ctx))

	runner := pipeline.NewRunner(a.dispatcher, cfg.Pipeline.MaxInFlight)
	chMgr := channels.NewManager(a.bus)
	chMgr.Register(channels.NewTelegramChannel(a.tg, cfg.Telegram.AllowChats, a.bus))

	if cfg.Server.Enabled {
		srv := server.NewServer(server.ServerConfig{
			Host:       cfg.Server.Host,
			Port:       cfg.Server.Port,
			APIKey:     cfg.Server.APIKey,
			InstanceID: me.Username,
			Dispatcher: a.dispatcher,
			Runner:     runner,
			Resolver:   a.resolver,
			Known:      a.rules.Known,
			Channels:   chMgr,
			Store:      a.store,
			Faults:     a.reporter,
		})
		go func() {
			if err := srv.Start(ctx); err != nil {
				log.Printf("[Server] ❌ %v", err)
			}
		}()
	}

	go runner.Run(ctx, a.bus.Inbound)

	fmt.Printf("🛡️ guardbot @%s started with %d stages and %d commands\n",
		me.Username, len(a.dispatcher.Stages()), a.registry.Len())
	a.reporter.Notify(fmt.Sprintf("✅ @%s started (%s), %d stages, %d commands",
		me.Username, Version, len(a.dispatcher.Stages()), a.registry.Len()))

	err = chMgr.StartAll(ctx)

	fmt.Println("\nShutting down...")
	chMgr.StopAll()
	grace := cfg.Pipeline.ShutdownGrace()
	if grace <= 0 {
		grace = 10 * time.Second
	}
	if !runner.Wait(grace) {
		log.Printf("[App] ⚠️ abandoned %d in-flight events", runner.InFlight())
	}
	log.Printf("[App] processed %d events", runner.Processed())
	if ctx.Err() != nil {
		return nil
	}
	return err
}
