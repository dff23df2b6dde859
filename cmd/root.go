// Package cmd defines and implements the CLI commands for the
// chartscrawler executable.
package cmd

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/playerstats/steamcharts-crawler/internal/config"
	"github.com/playerstats/steamcharts-crawler/internal/logging"
)

var cfgFile string

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chartscrawler",
		Short: "A resumable batch crawler for steamcharts player statistics.",
		Long: `chartscrawler harvests per-application monthly player counts from
steamcharts.com. A large appid list is split into fixed batches; each
batch is crawled sequentially with rate-limited fetches and per-batch
checkpointing, so a killed run resumes exactly where it stopped.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml via CHARTS_* env)")

	cmd.AddCommand(newPartitionCmd())
	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newStatusCmd())
	return cmd
}

// loadConfig reads configuration and rebuilds the process logger to
// match its logging settings.
func loadConfig(cmd *cobra.Command) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	applyFlagOverrides(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return config.Config{}, nil, err
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

// applyFlagOverrides copies set flags over the loaded config. Flags are
// the highest-precedence configuration source.
func applyFlagOverrides(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.Input.Path, _ = flags.GetString("input")
	}
	if flags.Changed("out") {
		cfg.Output.Dir, _ = flags.GetString("out")
	}
	if flags.Changed("batch") {
		cfg.Batch.Index, _ = flags.GetInt("batch")
	}
	if flags.Changed("batch-size") {
		cfg.Batch.Size, _ = flags.GetInt("batch-size")
	}
	if flags.Changed("max-apps") {
		cfg.Crawler.MaxApps, _ = flags.GetInt("max-apps")
	}
}

// Execute is the main entry point.
func Execute() {
	logging.InitLogger()

	if err := newRootCmd().Execute(); err != nil {
		logging.L.Fatal("Command execution failed", zap.Error(err))
	}
}
