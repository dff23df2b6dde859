package sink

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/playerstats/steamcharts-crawler/internal/charts"
)

// PgxIface is the subset of pgxpool.Pool the sink needs; pgxmock
// implements it for tests.
type PgxIface interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS steamcharts_monthly (
	appid          BIGINT NOT NULL,
	name           TEXT NOT NULL DEFAULT '',
	month          TEXT NOT NULL DEFAULT '',
	avg_players    DOUBLE PRECISION NOT NULL DEFAULT 0,
	peak_players   BIGINT NOT NULL DEFAULT 0,
	change_percent DOUBLE PRECISION NOT NULL DEFAULT 0,
	crawl_timestamp TIMESTAMPTZ NOT NULL,
	crawl_status   TEXT NOT NULL,
	PRIMARY KEY (appid, month, crawl_status)
)`

const insertSQL = `
INSERT INTO steamcharts_monthly
	(appid, name, month, avg_players, peak_players, change_percent, crawl_timestamp, crawl_status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (appid, month, crawl_status) DO NOTHING`

// PostgresSink writes result rows into a single table, one transaction
// per identifier. The conflict clause makes overlapping re-runs
// harmless: rows already written by an earlier run are skipped.
type PostgresSink struct {
	db     PgxIface
	logger *zap.Logger
}

// NewPostgresSink connects to dsn, verifies the connection, and ensures
// the result table exists. Connection failures are ErrSinkUnavailable.
func NewPostgresSink(ctx context.Context, dsn string, logger *zap.Logger) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: connect postgres: %v", charts.ErrSinkUnavailable, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping postgres: %v", charts.ErrSinkUnavailable, err)
	}

	s := NewPostgresSinkFromDB(pool, logger)
	if _, err := s.db.Exec(ctx, createTableSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ensure result table: %v", charts.ErrSinkUnavailable, err)
	}
	return s, nil
}

// NewPostgresSinkFromDB wraps an existing connection; used by tests.
func NewPostgresSinkFromDB(db PgxIface, logger *zap.Logger) *PostgresSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresSink{db: db, logger: logger}
}

// Append inserts all records for one identifier inside a transaction.
// The commit makes the unit durable before Append returns.
func (s *PostgresSink) Append(ctx context.Context, records []charts.MonthlyRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: begin: %v", charts.ErrSinkUnavailable, err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	for _, rec := range records {
		_, err := tx.Exec(ctx, insertSQL,
			rec.AppID,
			rec.Name,
			rec.Month,
			rec.AvgPlayers,
			rec.PeakPlayers,
			rec.ChangePercent,
			rec.CrawledAt.UTC(),
			string(rec.Status),
		)
		if err != nil {
			return fmt.Errorf("%w: insert row for app %d: %v", charts.ErrSinkUnavailable, rec.AppID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: commit: %v", charts.ErrSinkUnavailable, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *PostgresSink) Close() error {
	s.db.Close()
	return nil
}
