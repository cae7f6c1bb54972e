package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dayuer/guardbot-go/internal/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	RunE:  runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "overwrite an existing config")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	path := configPath
	if path == "" {
		path = config.GetConfigPath()
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		fmt.Printf("Config already exists at %s\n", path)
		return nil
	}
	if err := config.Save(config.DefaultConfig(), path); err != nil {
		return fmt.Errorf("creating config: %w", err)
	}
	fmt.Printf("✓ Created config at %s\n", path)
	fmt.Println("  Set telegram.token and privilege.ownerId, or GUARDBOT_BOT_TOKEN and GUARDBOT_OWNER_ID.")
	return nil
}
