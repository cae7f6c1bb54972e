package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dayuer/guardbot-go/internal/config"
	"github.com/dayuer/guardbot-go/internal/redis"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show configuration and the moderation chain",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func check(ok bool) string {
	if ok {
		return "✓"
	}
	return "✗"
}

func runStatus(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.GetConfigPath()
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	fmt.Println("🛡️ guardbot Status")
	fmt.Println()
	fmt.Printf("Config: %s\n", path)
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Invalid: %v\n", err)
	}
	fmt.Printf("Database: %s (%s)\n", cfg.Database.Driver, cfg.Database.DSN)
	fmt.Printf("Owner: %d\n", cfg.Privilege.OwnerID)

	fmt.Println("\nChannels:")
	fmt.Printf("  Telegram: %s\n", check(cfg.Telegram.Token != ""))

	a, err := newApp(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer a.close()

	fmt.Println("\nDirectories:")
	fmt.Printf("  Redis cache: %s\n", check(redis.IsAvailable()))
	fmt.Printf("  User session: %s\n", check(a.session.Configured()))

	fmt.Println("\nPipeline:")
	for _, s := range a.dispatcher.Stages() {
		fmt.Printf("  %5d  %s\n", s.Priority, s.Name)
	}
	fmt.Printf("\nCommands: %d in modules %s\n", a.registry.Len(), strings.Join(a.registry.Modules(), ", "))
	fmt.Printf("Known chats: %d\n", a.rules.Known.Load(context.Background()))
	return nil
}
