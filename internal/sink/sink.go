// Package sink persists crawl output rows. A Sink receives one
// identifier's full result set per Append call and must make it durable
// before returning; the crawl loop only advances its checkpoint after a
// successful Append.
package sink

import (
	"context"

	"github.com/playerstats/steamcharts-crawler/internal/charts"
)

// Columns is the fixed output schema, in order.
var Columns = []string{
	"appid", "name", "month", "avg_players", "peak_players",
	"change_percent", "crawl_timestamp", "crawl_status",
}

// Sink appends result rows to a persistent tabular store.
type Sink interface {
	// Append writes all records for one identifier as a unit. The data
	// is durable when Append returns nil.
	Append(ctx context.Context, records []charts.MonthlyRecord) error
	// Close releases the underlying resources.
	Close() error
}
