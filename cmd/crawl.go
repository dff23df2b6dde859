package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/playerstats/steamcharts-crawler/internal/api"
	"github.com/playerstats/steamcharts-crawler/internal/batch"
	"github.com/playerstats/steamcharts-crawler/internal/checkpoint"
	"github.com/playerstats/steamcharts-crawler/internal/config"
	"github.com/playerstats/steamcharts-crawler/internal/crawl"
	"github.com/playerstats/steamcharts-crawler/internal/fetcher"
	"github.com/playerstats/steamcharts-crawler/internal/parser"
	"github.com/playerstats/steamcharts-crawler/internal/progress"
	"github.com/playerstats/steamcharts-crawler/internal/sink"
)

// newCrawlCmd creates the 'crawl' subcommand: run one batch to
// completion, resuming from its checkpoint if one exists.
func newCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Crawls one batch of appids, resuming from its checkpoint",
		Long: `Fetches the steamcharts history page for every appid in the selected
batch, writing monthly rows to the result sink as each identifier
completes. Identifiers already recorded in the batch's checkpoint are
skipped, so re-running after an interruption continues where the
previous process stopped.`,
		RunE: runCrawlCommand,
	}
	cmd.Flags().String("input", "", "appid metadata CSV (appid,name)")
	cmd.Flags().String("out", "", "directory for results and checkpoints")
	cmd.Flags().Int("batch", 0, "1-based batch index to crawl")
	cmd.Flags().Int("batch-size", 0, "apps per batch")
	cmd.Flags().Int("max-apps", 0, "cap processed identifiers this run (testing)")
	return cmd
}

func runCrawlCommand(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck // best-effort flush

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	apps, err := batch.LoadApps(cfg.Input.Path, logger)
	if err != nil {
		return fmt.Errorf("load input: %w", err)
	}
	b, err := batch.BatchFor(apps, cfg.Batch.Size, cfg.Batch.Index)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Output.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	resultSink, err := buildSink(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := resultSink.Close(); cerr != nil {
			logger.Warn("Failed to close result sink", zap.Error(cerr))
		}
	}()

	registry := prometheus.NewRegistry()
	promSink, err := progress.NewPrometheusSink(registry)
	if err != nil {
		return fmt.Errorf("init metrics: %w", err)
	}
	hub := progress.NewHub(logger, progress.NewLogSink(logger), promSink)

	store := checkpoint.NewStore(cfg.Output.Dir, cfg.Input.Path, cfg.Batch.Size)
	engine := crawl.NewEngine(
		crawl.Config{AppURL: cfg.Crawler.AppURL, MaxApps: cfg.Crawler.MaxApps},
		fetcher.New(fetcher.Config{
			UserAgent:   cfg.Crawler.UserAgent,
			Timeout:     cfg.HTTP.Timeout,
			MinDelay:    cfg.Crawler.MinDelay,
			MaxDelay:    cfg.Crawler.MaxDelay,
			RetryBudget: cfg.Crawler.RetryBudget,
			RetryOn429:  cfg.Crawler.RetryOn429,
		}, logger),
		parser.New(),
		resultSink,
		store,
		hub,
		logger,
	)

	if cfg.Server.Enabled {
		statusServer := api.NewServer(engine, registry, logger)
		statusServer.Start(cfg.Server.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if serr := statusServer.Shutdown(shutdownCtx); serr != nil {
				logger.Warn("Failed to stop status server", zap.Error(serr))
			}
		}()
	}

	summary, err := engine.Run(ctx, b)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run crawl: %w", err)
	}

	logger.Info("Crawl command finished.",
		zap.Int("batch", summary.BatchIndex),
		zap.Int("processed", summary.Processed),
		zap.Int("succeeded", summary.Succeeded),
		zap.Int("failed", summary.Failed),
		zap.Int("no_data", summary.NoData),
		zap.Int("rows", summary.Rows))
	return nil
}

// buildSink selects the result sink backend from config.
func buildSink(ctx context.Context, cfg config.Config, logger *zap.Logger) (sink.Sink, error) {
	switch cfg.Sink.Driver {
	case "postgres":
		return sink.NewPostgresSink(ctx, cfg.Sink.PostgresDSN, logger)
	default:
		name := fmt.Sprintf("steamcharts_results_batch_%d.csv", cfg.Batch.Index)
		return sink.NewCSVSink(filepath.Join(cfg.Output.Dir, name))
	}
}
