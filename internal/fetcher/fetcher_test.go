package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/playerstats/steamcharts-crawler/internal/charts"
)

func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchSuccess(t *testing.T) {
	t.Parallel()

	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html>ok</html>")) //nolint:errcheck // test handler
	})

	f := New(Config{RetryBudget: 2}, zap.NewNop())
	resp, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []byte("<html>ok</html>"), resp.Body)
	assert.Equal(t, 1, resp.Attempts)
}

func TestFetchRetryExhaustion(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	f := New(Config{RetryBudget: 2}, zap.NewNop())
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)

	fe, ok := charts.IsFetchError(err)
	require.True(t, ok)
	assert.True(t, fe.Transient)
	assert.Equal(t, 3, fe.Attempts)
	assert.Equal(t, http.StatusInternalServerError, fe.StatusCode)
	assert.Equal(t, int32(3), attempts.Load())
}

func TestFetchPermanentFailureSingleAttempt(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	})

	f := New(Config{RetryBudget: 5}, zap.NewNop())
	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)

	fe, ok := charts.IsFetchError(err)
	require.True(t, ok)
	assert.False(t, fe.Transient)
	assert.Equal(t, 1, fe.Attempts)
	assert.Equal(t, http.StatusNotFound, fe.StatusCode)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestFetch429RespectsToggle(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	retrying := New(Config{RetryBudget: 1, RetryOn429: true}, zap.NewNop())
	_, err := retrying.Fetch(context.Background(), srv.URL)
	fe, ok := charts.IsFetchError(err)
	require.True(t, ok)
	assert.True(t, fe.Transient)
	assert.Equal(t, int32(2), attempts.Load())

	attempts.Store(0)
	strict := New(Config{RetryBudget: 1, RetryOn429: false}, zap.NewNop())
	_, err = strict.Fetch(context.Background(), srv.URL)
	fe, ok = charts.IsFetchError(err)
	require.True(t, ok)
	assert.False(t, fe.Transient)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestFetchSkipsDelayOnFirstRequest(t *testing.T) {
	t.Parallel()

	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	f := New(Config{MinDelay: 10 * time.Millisecond, MaxDelay: 20 * time.Millisecond}, zap.NewNop())
	var slept []time.Duration
	f.sleep = func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}

	_, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Empty(t, slept, "first request of the process must not be delayed")

	_, err = f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Len(t, slept, 1)
	assert.GreaterOrEqual(t, slept[0], 10*time.Millisecond)
	assert.LessOrEqual(t, slept[0], 20*time.Millisecond)
}

func TestFetchDelaysBetweenRetries(t *testing.T) {
	t.Parallel()

	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	f := New(Config{MinDelay: time.Millisecond, MaxDelay: time.Millisecond, RetryBudget: 2}, zap.NewNop())
	var sleeps int
	f.sleep = func(context.Context, time.Duration) error {
		sleeps++
		return nil
	}

	_, err := f.Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	// First attempt is free; the two retries each pay the delay.
	assert.Equal(t, 2, sleeps)
}

func TestFetchContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	srv := newServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	f := New(Config{}, zap.NewNop())
	_, err := f.Fetch(ctx, srv.URL)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestClassify(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ClassSuccess, Classify(200, true))
	assert.Equal(t, ClassTransient, Classify(0, true))
	assert.Equal(t, ClassTransient, Classify(500, true))
	assert.Equal(t, ClassTransient, Classify(503, false))
	assert.Equal(t, ClassTransient, Classify(429, true))
	assert.Equal(t, ClassPermanent, Classify(429, false))
	assert.Equal(t, ClassPermanent, Classify(404, true))
	assert.Equal(t, ClassPermanent, Classify(403, true))
}
