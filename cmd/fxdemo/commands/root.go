package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zeusync/fxdemo/internal/config"
)

// Global flags
var configPath string

// Execute runs the root command
func Execute(ctx context.Context, version, commit string) error {
	return newRootCommand(version, commit).ExecuteContext(ctx)
}

func newRootCommand(version, commit string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fxdemo",
		Short: "Event-driven gameplay systems demo",
		Long: `fxdemo hosts a set of gameplay systems (player, farming, economy) that
talk to each other only through a typed in-process event bus, and drives
their lifecycle from a fixed-rate frame loop.

Configuration is read from an optional YAML file and FXDEMO_* environment
variables, in that order.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")

	rootCmd.AddCommand(newRunCommand())
	rootCmd.AddCommand(newChannelsCommand())
	rootCmd.AddCommand(newConfigCommand())

	return rootCmd
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}
