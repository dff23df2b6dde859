package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/playerstats/steamcharts-crawler/internal/batch"
)

// newPartitionCmd creates the 'partition' subcommand: split the input
// list into batch files that independent crawl processes can own.
func newPartitionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "partition",
		Short: "Splits the appid list into fixed-size batch files",
		Long: `Reads the appid metadata CSV and writes one batch_<n>_apps.csv per
batch plus a batch_summary.txt into the output directory. Partitioning
is deterministic: the same input and batch size always produce the same
membership, which the per-batch checkpoints depend on.`,
		RunE: runPartitionCommand,
	}
	cmd.Flags().String("input", "", "appid metadata CSV (appid,name)")
	cmd.Flags().String("out", "", "directory for batch files")
	cmd.Flags().Int("batch-size", 0, "apps per batch")
	return cmd
}

func runPartitionCommand(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	apps, err := batch.LoadApps(cfg.Input.Path, logger)
	if err != nil {
		return fmt.Errorf("load input: %w", err)
	}

	batches, err := batch.Partition(apps, cfg.Batch.Size)
	if err != nil {
		return err
	}
	if err := batch.WriteBatchFiles(cfg.Output.Dir, batches); err != nil {
		return err
	}

	logger.Info("Partition command finished.",
		zap.Int("apps", len(apps)),
		zap.Int("batches", len(batches)),
		zap.Int("batch_size", cfg.Batch.Size),
		zap.String("out", cfg.Output.Dir))
	return nil
}
