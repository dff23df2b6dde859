package progress

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusSink exports crawl progress metrics. It owns the collectors
// for per-app outcomes, rows written, and fetch durations.
type PrometheusSink struct {
	appsCrawled *prometheus.CounterVec
	rowsWritten prometheus.Counter
	fetchStatus *prometheus.CounterVec
	appDuration *prometheus.HistogramVec
	runsStarted prometheus.Counter
}

// NewPrometheusSink registers the collectors against the provided
// registry (the default registerer when nil).
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		appsCrawled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "steamcharts_apps_crawled_total",
			Help: "Identifiers reaching a terminal state, partitioned by outcome.",
		}, []string{"outcome"}),
		rowsWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "steamcharts_rows_written_total",
			Help: "Result rows appended to the sink.",
		}),
		fetchStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "steamcharts_fetch_status_total",
			Help: "Final HTTP status class per identifier.",
		}, []string{"status_class"}),
		appDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "steamcharts_app_duration_seconds",
			Help:    "Wall time per identifier, partitioned by outcome.",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 15, 60},
		}, []string{"outcome"}),
		runsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "steamcharts_runs_started_total",
			Help: "Crawl runs started.",
		}),
	}
	for _, collector := range []prometheus.Collector{
		s.appsCrawled,
		s.rowsWritten,
		s.fetchStatus,
		s.appDuration,
		s.runsStarted,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from one event.
func (s *PrometheusSink) Consume(evt Event) {
	switch evt.Stage {
	case StageRunStart:
		s.runsStarted.Inc()
	case StageAppDone:
		outcome := string(evt.Outcome)
		s.appsCrawled.WithLabelValues(outcome).Inc()
		s.rowsWritten.Add(float64(evt.Rows))
		s.appDuration.WithLabelValues(outcome).Observe(evt.Dur.Seconds())
		if evt.StatusClass != "" {
			s.fetchStatus.WithLabelValues(string(evt.StatusClass)).Inc()
		}
	}
}
