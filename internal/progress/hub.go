package progress

import (
	"sync"

	"go.uber.org/zap"
)

// Sink consumes progress events. Implementations must tolerate events
// arriving from a single goroutine in emit order.
type Sink interface {
	Consume(evt Event)
}

// Hub fans events out to registered sinks synchronously. The crawl loop
// is single-threaded and paced by network delays, so there is nothing to
// gain from buffering, and per-identifier reporting must not be dropped
// under backpressure the way an async hub would drop it.
type Hub struct {
	mu     sync.Mutex
	sinks  []Sink
	logger *zap.Logger
}

// NewHub builds a Hub over the given sinks.
func NewHub(logger *zap.Logger, sinks ...Sink) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{sinks: append([]Sink(nil), sinks...), logger: logger}
}

// Emit validates evt and delivers it to every sink. Invalid events are
// discarded with a debug log; they indicate an emitter bug, not an
// operational fault.
func (h *Hub) Emit(evt Event) {
	if h == nil {
		return
	}
	if err := evt.Validate(); err != nil {
		h.logger.Debug("discarding invalid progress event", zap.Error(err))
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, s := range h.sinks {
		s.Consume(evt)
	}
}
