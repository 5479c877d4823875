// Package cmd defines the CLI commands for the locationscout executable.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fleetops/locationscout/internal/config"
	"github.com/fleetops/locationscout/internal/logging"
)

var (
	cfgFile string
	cfg     config.Config
	logger  *zap.Logger
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "locationscout",
		Short: "Crawls freight carrier websites and scores pages for location data",
		Long: `locationscout renders carrier websites with a headless browser, saves the
pages worth keeping, and scores each one for physical location content such as
terminal addresses, embedded maps, and branch locator tools. The output is a
per-carrier report naming the best pages and the extraction approach to use.`,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			cfg, err = config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err = logging.New(cfg.Logging.Development, cfg.Logging.Level)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			return nil
		},

		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./locationscout.yaml)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newClassifyCmd())
	cmd.AddCommand(newReportCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
