// Package crawl implements the batch crawl loop: resume from checkpoint,
// fetch and parse each remaining identifier, persist its rows, and only
// then advance the checkpoint.
package crawl

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/playerstats/steamcharts-crawler/internal/charts"
	"github.com/playerstats/steamcharts-crawler/internal/checkpoint"
	"github.com/playerstats/steamcharts-crawler/internal/fetcher"
	"github.com/playerstats/steamcharts-crawler/internal/progress"
)

// Fetcher retrieves one page, applying the delay and retry policy.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (fetcher.Response, error)
}

// Parser converts a page body into monthly records.
type Parser interface {
	Parse(body []byte, app charts.AppRef) ([]charts.MonthlyRecord, charts.Status, error)
}

// Sink persists one identifier's rows durably per Append call.
type Sink interface {
	Append(ctx context.Context, records []charts.MonthlyRecord) error
}

// CheckpointStore tracks terminal identifiers per batch.
type CheckpointStore interface {
	Load(ctx context.Context, batchIndex int) (*checkpoint.State, error)
	Fresh(batchIndex int) *checkpoint.State
	MarkComplete(ctx context.Context, state *checkpoint.State, appID int, outcome charts.Status, rows int) error
}

// Config controls engine behavior.
type Config struct {
	// AppURL renders the page URL for an appid.
	AppURL func(appID int) string
	// MaxApps caps how many identifiers one run processes, applied
	// after checkpoint filtering. Zero means no cap.
	MaxApps int
}

// Summary reports one run's outcome counts.
type Summary struct {
	BatchIndex int           `json:"batch_index"`
	RunID      string        `json:"run_id"`
	Total      int           `json:"total"`
	Skipped    int           `json:"skipped"`
	Processed  int           `json:"processed"`
	Succeeded  int           `json:"succeeded"`
	Failed     int           `json:"failed"`
	NoData     int           `json:"no_data"`
	Rows       int           `json:"rows"`
	Elapsed    time.Duration `json:"elapsed"`
}

// Engine drives one batch through the per-identifier state machine.
// Identifiers move Pending -> Fetching -> Parsing -> terminal; all three
// terminal outcomes (success, failed, no-data) mark the identifier
// complete. Only storage failures abort the run.
type Engine struct {
	cfg     Config
	fetcher Fetcher
	parser  Parser
	sink    Sink
	store   CheckpointStore
	hub     *progress.Hub
	logger  *zap.Logger
	clock   func() time.Time

	mu       sync.Mutex
	snapshot Summary
}

// NewEngine constructs an Engine.
func NewEngine(
	cfg Config,
	f Fetcher,
	p Parser,
	s Sink,
	store CheckpointStore,
	hub *progress.Hub,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:     cfg,
		fetcher: f,
		parser:  p,
		sink:    s,
		store:   store,
		hub:     hub,
		logger:  logger,
		clock:   time.Now,
	}
}

// Snapshot returns the summary-so-far for the status server.
func (e *Engine) Snapshot() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshot
}

func (e *Engine) updateSnapshot(s Summary) {
	e.mu.Lock()
	e.snapshot = s
	e.mu.Unlock()
}

// Run processes batch until every identifier is terminal or a fatal
// storage error occurs. Per-identifier failures are recorded outcomes,
// not errors; a run that completes with failed identifiers returns nil.
func (e *Engine) Run(ctx context.Context, batch charts.Batch) (Summary, error) {
	runID := uuid.New()
	start := e.clock()

	state, err := e.store.Load(ctx, batch.Index)
	if err != nil {
		if !errors.Is(err, charts.ErrCorruptCheckpoint) {
			return Summary{}, fmt.Errorf("load checkpoint for batch %d: %w", batch.Index, err)
		}
		e.logger.Warn("corrupt checkpoint, restarting batch from empty state",
			zap.Int("batch", batch.Index), zap.Error(err))
		state = e.store.Fresh(batch.Index)
	}

	remaining := make([]charts.AppRef, 0, len(batch.Apps))
	for _, app := range batch.Apps {
		if !state.IsComplete(app.ID) {
			remaining = append(remaining, app)
		}
	}
	skipped := len(batch.Apps) - len(remaining)
	if e.cfg.MaxApps > 0 && len(remaining) > e.cfg.MaxApps {
		remaining = remaining[:e.cfg.MaxApps]
	}

	summary := Summary{
		BatchIndex: batch.Index,
		RunID:      runID.String(),
		Total:      len(batch.Apps),
		Skipped:    skipped,
	}
	e.updateSnapshot(summary)

	e.hub.Emit(progress.Event{
		RunID:      runID,
		TS:         e.clock().UTC(),
		Stage:      progress.StageRunStart,
		BatchIndex: batch.Index,
		Note:       fmt.Sprintf("%d remaining of %d", len(remaining), len(batch.Apps)),
	})

	for _, app := range remaining {
		if err := ctx.Err(); err != nil {
			return summary, fmt.Errorf("run interrupted: %w", err)
		}

		outcome, rows, err := e.processApp(ctx, runID, batch.Index, state, app)
		if err != nil {
			e.hub.Emit(progress.Event{
				RunID:      runID,
				TS:         e.clock().UTC(),
				Stage:      progress.StageRunError,
				BatchIndex: batch.Index,
				Note:       err.Error(),
			})
			return summary, err
		}

		summary.Processed++
		summary.Rows += rows
		switch outcome {
		case charts.StatusSuccess:
			summary.Succeeded++
		case charts.StatusFailed:
			summary.Failed++
		case charts.StatusNoData:
			summary.NoData++
		}
		e.updateSnapshot(summary)
	}

	summary.Elapsed = e.clock().Sub(start)
	e.updateSnapshot(summary)
	e.hub.Emit(progress.Event{
		RunID:      runID,
		TS:         e.clock().UTC(),
		Stage:      progress.StageRunDone,
		BatchIndex: batch.Index,
		Dur:        summary.Elapsed,
		Note: fmt.Sprintf("processed=%d success=%d failed=%d no-data=%d rows=%d",
			summary.Processed, summary.Succeeded, summary.Failed, summary.NoData, summary.Rows),
	})
	return summary, nil
}

// processApp runs one identifier to a terminal state. The returned error
// is non-nil only for fatal storage failures; fetch and parse problems
// become failed rows. The sink append always precedes the checkpoint
// advance: a crash between the two re-processes the identifier on the
// next run, which the sink tolerates, whereas the opposite order would
// lose its output forever.
func (e *Engine) processApp(
	ctx context.Context,
	runID uuid.UUID,
	batchIndex int,
	state *checkpoint.State,
	app charts.AppRef,
) (charts.Status, int, error) {
	start := e.clock()
	now := start.UTC()

	records, outcome, statusCode := e.crawlApp(ctx, app, now)
	if err := ctx.Err(); err != nil {
		return "", 0, fmt.Errorf("run interrupted: %w", err)
	}

	if err := e.sink.Append(ctx, records); err != nil {
		return "", 0, fmt.Errorf("append rows for app %d: %w", app.ID, err)
	}
	if err := e.store.MarkComplete(ctx, state, app.ID, outcome, len(records)); err != nil {
		return "", 0, fmt.Errorf("mark app %d complete: %w", app.ID, err)
	}

	e.hub.Emit(progress.Event{
		RunID:       runID,
		TS:          e.clock().UTC(),
		Stage:       progress.StageAppDone,
		BatchIndex:  batchIndex,
		AppID:       app.ID,
		Outcome:     outcome,
		Rows:        len(records),
		StatusClass: progress.ClassifyStatus(statusCode),
		Dur:         e.clock().Sub(start),
	})
	return outcome, len(records), nil
}

// crawlApp fetches and parses one identifier, converting every
// per-identifier failure into a terminal record set.
func (e *Engine) crawlApp(ctx context.Context, app charts.AppRef, now time.Time) ([]charts.MonthlyRecord, charts.Status, int) {
	url := e.cfg.AppURL(app.ID)

	resp, err := e.fetcher.Fetch(ctx, url)
	if err != nil {
		statusCode := 0
		if fe, ok := charts.IsFetchError(err); ok {
			statusCode = fe.StatusCode
		}
		e.logger.Info("fetch failed",
			zap.Int("appid", app.ID), zap.String("name", app.Name), zap.Error(err))
		return []charts.MonthlyRecord{charts.FailureRecord(app, charts.StatusFailed, now)},
			charts.StatusFailed, statusCode
	}

	records, status, err := e.parser.Parse(resp.Body, app)
	if err != nil {
		e.logger.Info("parse failed",
			zap.Int("appid", app.ID), zap.String("name", app.Name), zap.Error(err))
		return []charts.MonthlyRecord{charts.FailureRecord(app, charts.StatusFailed, now)},
			charts.StatusFailed, resp.StatusCode
	}
	if status == charts.StatusNoData || len(records) == 0 {
		return []charts.MonthlyRecord{charts.FailureRecord(app, charts.StatusNoData, now)},
			charts.StatusNoData, resp.StatusCode
	}

	for i := range records {
		records[i].CrawledAt = now
		records[i].Status = charts.StatusSuccess
	}
	return records, charts.StatusSuccess, resp.StatusCode
}
