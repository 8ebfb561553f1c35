// Package cmd defines the CLI commands for the schwordcloud executable.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/maxwelfreitas/schwordcloud/internal/config"
	"github.com/maxwelfreitas/schwordcloud/internal/logging"
)

var (
	cfgFile string
	verbose bool
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schwordcloud",
		Short: "Search queue scheduler and annotation consolidator for certified products",
		Long: `schwordcloud maintains a word-cloud annotation table for certified
products. The run command builds a search queue from the certification
catalog, searches each pending number on the web and stores the extracted
terms. The consolidate command merges the local table with the snapshots
other participants publish in a shared folder.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newConsolidateCmd())

	return cmd
}

// setup loads configuration and builds the logger shared by every
// subcommand.
func setup() (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}
	logger, err := logging.New(verbose || cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("init logger: %w", err)
	}
	return cfg, logger, nil
}

// Execute runs the root command. A non-nil command error becomes a
// non-zero exit status.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
