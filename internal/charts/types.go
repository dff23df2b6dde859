// Package charts defines the shared data model for the steamcharts crawl
// pipeline: application references, monthly player records, terminal
// statuses, and the error taxonomy used across the fetch/parse/persist
// boundary.
package charts

import "time"

// AppRef names one Steam application to be crawled. The ID is the
// globally unique appid from the input list; Name is optional display
// metadata carried through to the output rows.
type AppRef struct {
	ID   int
	Name string
}

// Status is the terminal outcome recorded for an identifier (or one of
// its monthly rows). Any of the three ends processing for the run.
type Status string

// Terminal statuses written to the crawl_status column.
const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusNoData  Status = "no-data"
)

// MonthlyRecord is one output row: player statistics for one application
// in one month. The upstream table's trailing window row keeps its label
// ("Last 30 Days") as the Month value. Failed and no-data outcomes are
// represented as a single record with an empty Month and zero numerics.
type MonthlyRecord struct {
	AppID         int
	Name          string
	Month         string
	AvgPlayers    float64
	PeakPlayers   int
	ChangePercent float64
	CrawledAt     time.Time
	Status        Status
}

// FailureRecord builds the single terminal row written for an identifier
// that produced no monthly data (fetch failure, parse failure, or an
// empty history page).
func FailureRecord(app AppRef, status Status, at time.Time) MonthlyRecord {
	return MonthlyRecord{
		AppID:     app.ID,
		Name:      app.Name,
		CrawledAt: at,
		Status:    status,
	}
}

// Batch is a fixed, contiguous slice of an input list with a stable
// 1-based index. Membership never changes after partitioning; checkpoint
// files are keyed by the index.
type Batch struct {
	Index int
	Apps  []AppRef
}
