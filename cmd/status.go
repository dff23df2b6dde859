package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/playerstats/steamcharts-crawler/internal/charts"
	"github.com/playerstats/steamcharts-crawler/internal/checkpoint"
)

// newStatusCmd creates the 'status' subcommand: inspect a batch's
// checkpoint without touching the network.
func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Prints a batch's checkpoint progress",
		RunE:  runStatusCommand,
	}
	cmd.Flags().String("input", "", "appid metadata CSV the batches were partitioned from")
	cmd.Flags().String("out", "", "directory holding checkpoints")
	cmd.Flags().Int("batch", 0, "1-based batch index to inspect")
	cmd.Flags().Int("batch-size", 0, "apps per batch")
	return cmd
}

func runStatusCommand(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	store := checkpoint.NewStore(cfg.Output.Dir, cfg.Input.Path, cfg.Batch.Size)
	state, err := store.Load(cmd.Context(), cfg.Batch.Index)
	if err != nil {
		if errors.Is(err, charts.ErrCorruptCheckpoint) {
			return fmt.Errorf("checkpoint for batch %d is unreadable: %w", cfg.Batch.Index, err)
		}
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Batch %d (%s)\n", state.BatchIndex, store.Path(state.BatchIndex))
	fmt.Fprintf(out, "  completed: %d\n", state.CompletedCount())
	fmt.Fprintf(out, "  success:   %d\n", state.Stats.Success)
	fmt.Fprintf(out, "  failed:    %d\n", state.Stats.Failed)
	fmt.Fprintf(out, "  no-data:   %d\n", state.Stats.NoData)
	fmt.Fprintf(out, "  rows:      %d\n", state.Stats.Rows)
	if !state.UpdatedAt.IsZero() {
		fmt.Fprintf(out, "  updated:   %s\n", state.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"))
	}
	return nil
}
