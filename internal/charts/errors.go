package charts

import (
	"errors"
	"fmt"
)

// Sentinel errors separating fatal storage failures from per-identifier
// outcomes. The orchestrator absorbs everything except the storage
// sentinels, which abort the run.
var (
	// ErrConfiguration marks invalid partition or crawl parameters,
	// caught before any crawling starts.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrParse marks a response that failed the parser's structural
	// sanity check. Recorded as a failed row, never fatal.
	ErrParse = errors.New("page parse failed")

	// ErrCorruptCheckpoint marks unreadable persisted checkpoint state.
	// The batch restarts from empty state for the run.
	ErrCorruptCheckpoint = errors.New("corrupt checkpoint")

	// ErrCheckpointUnavailable marks a checkpoint write failure. Fatal:
	// no further progress can be durably recorded.
	ErrCheckpointUnavailable = errors.New("checkpoint unavailable")

	// ErrSinkUnavailable marks a result sink open/write failure. Fatal.
	ErrSinkUnavailable = errors.New("result sink unavailable")
)

// FetchError reports a failed fetch for one identifier after the retry
// budget was applied (transient) or after a single attempt (permanent).
type FetchError struct {
	URL        string
	StatusCode int
	Attempts   int
	Transient  bool
	Err        error
}

func (e *FetchError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	if e.Err != nil {
		return fmt.Sprintf("fetch %s: %s failure after %d attempt(s): %v", e.URL, kind, e.Attempts, e.Err)
	}
	return fmt.Sprintf("fetch %s: %s failure after %d attempt(s): status %d", e.URL, kind, e.Attempts, e.StatusCode)
}

func (e *FetchError) Unwrap() error { return e.Err }

// IsFetchError reports whether err is a FetchError, returning it when so.
func IsFetchError(err error) (*FetchError, bool) {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe, true
	}
	return nil, false
}
