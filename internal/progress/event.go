// Package progress defines the per-identifier milestone events emitted
// by the crawl loop and the sinks that consume them (structured logs,
// Prometheus collectors). Reporting happens as each identifier reaches a
// terminal state, not at the end of the run.
package progress

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/playerstats/steamcharts-crawler/internal/charts"
)

// Stage denotes the type of milestone represented by an Event.
type Stage string

// Supported progress stages.
const (
	StageRunStart Stage = "RUN_START"
	StageAppDone  Stage = "APP_DONE"
	StageRunDone  Stage = "RUN_DONE"
	StageRunError Stage = "RUN_ERROR"
)

// StatusClass is a coarse HTTP response grouping for fetch outcomes.
type StatusClass string

// Supported HTTP status classes.
const (
	Status2xx   StatusClass = "2xx"
	Status4xx   StatusClass = "4xx"
	Status5xx   StatusClass = "5xx"
	StatusOther StatusClass = "other"
)

// Event captures a single milestone of batch crawl progress.
type Event struct {
	// RunID identifies one crawl process invocation.
	RunID uuid.UUID
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time
	// Stage denotes which milestone occurred.
	Stage Stage
	// BatchIndex scopes the event to a batch.
	BatchIndex int
	// AppID is set for APP_DONE events.
	AppID int
	// Outcome is the identifier's terminal status for APP_DONE events.
	Outcome charts.Status
	// Rows is the number of records written for the identifier.
	Rows int
	// StatusClass groups the final HTTP status for the identifier.
	StatusClass StatusClass
	// Dur captures wall time for the identifier or the whole run.
	Dur time.Duration
	// Note carries low-volume debug context (error text, batch stats).
	Note string
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.RunID == uuid.Nil {
		return errors.New("run id is required")
	}
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Stage {
	case StageRunStart, StageRunDone, StageRunError:
	case StageAppDone:
		if e.AppID == 0 {
			return errors.New("app done requires appid")
		}
		if e.Outcome == "" {
			return errors.New("app done requires outcome")
		}
	default:
		return fmt.Errorf("unknown stage %q", e.Stage)
	}
	if e.Dur < 0 {
		return errors.New("duration must be >= 0")
	}
	return nil
}

// ClassifyStatus groups HTTP status codes for APP_DONE events.
func ClassifyStatus(code int) StatusClass {
	switch {
	case code >= 200 && code < 300:
		return Status2xx
	case code >= 400 && code < 500:
		return Status4xx
	case code >= 500 && code < 600:
		return Status5xx
	default:
		return StatusOther
	}
}
