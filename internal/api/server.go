// Package api exposes a read-only HTTP surface for a running batch
// crawl: liveness, the run's progress snapshot, and Prometheus metrics.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/playerstats/steamcharts-crawler/internal/crawl"
)

// SummarySource provides the crawl run's progress-so-far.
type SummarySource interface {
	Snapshot() crawl.Summary
}

// Server wires the status routes to an engine snapshot source.
type Server struct {
	router chi.Router
	source SummarySource
	logger *zap.Logger
	http   *http.Server
}

// NewServer constructs a Server. gatherer backs /metrics; pass the
// registry the progress sink registered against.
func NewServer(source SummarySource, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	s := &Server{source: source, logger: logger}
	r := chi.NewRouter()
	r.Get("/healthz", s.healthz)
	r.Get("/progress", s.progress)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	s.router = r
	return s
}

// Handler returns the underlying router, used directly in tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins serving on port in a background goroutine. Listen errors
// other than graceful shutdown are logged, not fatal: the status surface
// is an observability convenience, never a reason to kill a crawl.
func (s *Server) Start(port int) {
	s.http = &http.Server{
		Addr:              net.JoinHostPort("", strconv.Itoa(port)),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Warn("status server stopped", zap.Error(err))
		}
	}()
	s.logger.Info("status server listening", zap.Int("port", port))
}

// Shutdown stops the server, waiting for in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	if err := s.http.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown status server: %w", err)
	}
	return nil
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok")) //nolint:errcheck // best-effort response body
}

func (s *Server) progress(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.source.Snapshot()); err != nil {
		s.logger.Warn("encode progress snapshot", zap.Error(err))
	}
}
