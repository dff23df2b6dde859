// Package fetcher performs the rate-limited page fetches for the crawl.
// It issues exactly one HTTP GET at a time, sleeps a uniformly random
// jitter between consecutive requests, and retries transient failures
// within a fixed budget.
package fetcher

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/playerstats/steamcharts-crawler/internal/charts"
)

// Config controls fetch behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// MinDelay and MaxDelay bound the random sleep before each request.
	// The jitter is a politeness measure against upstream throttling,
	// not a correctness requirement.
	MinDelay time.Duration
	MaxDelay time.Duration
	// RetryBudget is the number of retries after the first attempt.
	RetryBudget int
	RetryOn429  bool
}

// Response is the raw result of a successful fetch.
type Response struct {
	URL        string
	StatusCode int
	Body       []byte
	Duration   time.Duration
	Attempts   int
}

// Fetcher issues sequential, jitter-delayed HTTP GETs via Colly.
// It is not safe for concurrent use; the crawl loop is single-threaded
// by design.
type Fetcher struct {
	cfg           Config
	logger        *zap.Logger
	baseCollector *colly.Collector

	// requested flips after the first request of the process lifetime;
	// no delay is applied before it.
	requested bool

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	c := colly.NewCollector(colly.Async(false))
	c.IgnoreRobotsTxt = true
	c.AllowURLRevisit = true
	return &Fetcher{
		cfg:           cfg,
		logger:        logger,
		baseCollector: c,
		sleep:         sleepCtx,
	}
}

// Fetch retrieves url, applying the delay policy before every attempt
// and retrying transient failures up to the configured budget. Permanent
// failures (404 and friends) return after a single attempt. Both
// exhaustion and permanent failure surface as *charts.FetchError; the
// caller decides whether that becomes a failed row or aborts the run.
func (f *Fetcher) Fetch(ctx context.Context, url string) (Response, error) {
	maxAttempts := 1 + f.cfg.RetryBudget

	var lastStatus int
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := f.applyDelay(ctx); err != nil {
			return Response{}, err
		}

		resp, err := f.fetchOnce(ctx, url)
		resp.Attempts = attempt
		if ctx.Err() != nil {
			return Response{}, fmt.Errorf("fetch %s: %w", url, ctx.Err())
		}

		status := resp.StatusCode
		if err != nil && status == 0 {
			lastStatus, lastErr = 0, err
			f.logger.Debug("transport error, will retry if budget remains",
				zap.String("url", url), zap.Int("attempt", attempt), zap.Error(err))
			continue
		}

		switch Classify(status, f.cfg.RetryOn429) {
		case ClassSuccess:
			return resp, nil
		case ClassPermanent:
			return Response{}, &charts.FetchError{
				URL:        url,
				StatusCode: status,
				Attempts:   attempt,
				Transient:  false,
				Err:        err,
			}
		default:
			lastStatus, lastErr = status, err
			f.logger.Debug("transient response, will retry if budget remains",
				zap.String("url", url), zap.Int("attempt", attempt), zap.Int("status", status))
		}
	}

	return Response{}, &charts.FetchError{
		URL:        url,
		StatusCode: lastStatus,
		Attempts:   maxAttempts,
		Transient:  true,
		Err:        lastErr,
	}
}

// applyDelay sleeps a uniform random duration from the configured range.
// Skipped before the first request of the process lifetime.
func (f *Fetcher) applyDelay(ctx context.Context) error {
	if !f.requested {
		f.requested = true
		return nil
	}
	d := f.cfg.MinDelay
	if span := f.cfg.MaxDelay - f.cfg.MinDelay; span > 0 {
		d += time.Duration(rand.Int64N(int64(span) + 1))
	}
	if d <= 0 {
		return nil
	}
	return f.sleep(ctx, d)
}

// fetchOnce executes a single GET on a cloned collector. The returned
// status code is non-zero whenever an HTTP response was received, even
// for error statuses.
func (f *Fetcher) fetchOnce(ctx context.Context, url string) (Response, error) {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.SetRequestTimeout(f.cfg.Timeout)

	var result Response
	var fetchErr error
	start := time.Now()

	collector.OnRequest(func(r *colly.Request) {
		r.Headers.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
		r.Headers.Set("Accept-Language", "en-US,en;q=0.5")
	})
	collector.OnResponse(func(r *colly.Response) {
		result = Response{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})
	collector.OnError(func(r *colly.Response, err error) {
		if r != nil {
			result.URL = url
			result.StatusCode = r.StatusCode
			result.Duration = time.Since(start)
		}
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case visitErr := <-done:
		if fetchErr != nil {
			return result, fetchErr
		}
		if visitErr != nil {
			return result, fmt.Errorf("visit %s: %w", url, visitErr)
		}
		return result, nil
	case <-ctx.Done():
		return Response{}, ctx.Err()
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
