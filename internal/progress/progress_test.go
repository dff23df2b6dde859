package progress

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/playerstats/steamcharts-crawler/internal/charts"
)

type captureSink struct {
	events []Event
}

func (c *captureSink) Consume(evt Event) {
	c.events = append(c.events, evt)
}

func validEvent(stage Stage) Event {
	evt := Event{
		RunID:      uuid.New(),
		TS:         time.Now().UTC(),
		Stage:      stage,
		BatchIndex: 1,
	}
	if stage == StageAppDone {
		evt.AppID = 730
		evt.Outcome = charts.StatusSuccess
	}
	return evt
}

func TestHubFansOutToAllSinks(t *testing.T) {
	t.Parallel()

	first := &captureSink{}
	second := &captureSink{}
	hub := NewHub(zap.NewNop(), first, second)

	hub.Emit(validEvent(StageRunStart))
	hub.Emit(validEvent(StageAppDone))

	require.Len(t, first.events, 2)
	require.Len(t, second.events, 2)
	assert.Equal(t, StageAppDone, first.events[1].Stage)
}

func TestHubDiscardsInvalidEvents(t *testing.T) {
	t.Parallel()

	sink := &captureSink{}
	hub := NewHub(zap.NewNop(), sink)

	hub.Emit(Event{Stage: StageRunStart}) // missing run id and timestamp
	evt := validEvent(StageAppDone)
	evt.AppID = 0
	hub.Emit(evt)

	assert.Empty(t, sink.events)
}

func TestEventValidate(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validEvent(StageRunStart).Validate())
	assert.NoError(t, validEvent(StageAppDone).Validate())

	evt := validEvent(StageAppDone)
	evt.Outcome = ""
	assert.Error(t, evt.Validate())

	evt = validEvent(StageRunDone)
	evt.Stage = "BOGUS"
	assert.Error(t, evt.Validate())

	evt = validEvent(StageRunDone)
	evt.Dur = -time.Second
	assert.Error(t, evt.Validate())
}

func TestPrometheusSinkCounts(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink, err := NewPrometheusSink(reg)
	require.NoError(t, err)

	sink.Consume(validEvent(StageRunStart))

	done := validEvent(StageAppDone)
	done.Rows = 24
	done.StatusClass = Status2xx
	done.Dur = 400 * time.Millisecond
	sink.Consume(done)

	failed := validEvent(StageAppDone)
	failed.Outcome = charts.StatusFailed
	failed.Rows = 1
	failed.StatusClass = Status4xx
	sink.Consume(failed)

	assert.InDelta(t, 1, testutil.ToFloat64(sink.runsStarted), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(sink.appsCrawled.WithLabelValues("success")), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(sink.appsCrawled.WithLabelValues("failed")), 0.001)
	assert.InDelta(t, 25, testutil.ToFloat64(sink.rowsWritten), 0.001)
	assert.InDelta(t, 1, testutil.ToFloat64(sink.fetchStatus.WithLabelValues("2xx")), 0.001)
}

func TestClassifyStatus(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Status2xx, ClassifyStatus(200))
	assert.Equal(t, Status4xx, ClassifyStatus(404))
	assert.Equal(t, Status5xx, ClassifyStatus(503))
	assert.Equal(t, StatusOther, ClassifyStatus(0))
}
