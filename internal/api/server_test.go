package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/playerstats/steamcharts-crawler/internal/crawl"
)

type staticSource struct {
	summary crawl.Summary
}

func (s staticSource) Snapshot() crawl.Summary {
	return s.summary
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv := NewServer(staticSource{}, prometheus.NewRegistry(), zap.NewNop())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestProgressSnapshot(t *testing.T) {
	t.Parallel()

	source := staticSource{summary: crawl.Summary{
		BatchIndex: 3,
		Total:      100,
		Processed:  42,
		Succeeded:  40,
		Failed:     2,
		Rows:       960,
	}}
	srv := NewServer(source, prometheus.NewRegistry(), zap.NewNop())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/progress", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got crawl.Summary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, source.summary, got)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "test_counter_total", Help: "test"})
	require.NoError(t, reg.Register(counter))
	counter.Inc()

	srv := NewServer(staticSource{}, reg, zap.NewNop())
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_counter_total 1")
}
