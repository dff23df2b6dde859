package batch

import (
	"fmt"

	"github.com/playerstats/steamcharts-crawler/internal/charts"
)

// Partition splits apps into ceil(N/size) contiguous batches indexed
// from 1. The split is deterministic: the same input list and size
// always yield identical membership, which the checkpoint keying relies
// on. The returned batches alias the input slice; callers must not
// mutate it afterwards.
func Partition(apps []charts.AppRef, size int) ([]charts.Batch, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: batch size must be > 0, got %d", charts.ErrConfiguration, size)
	}
	if len(apps) == 0 {
		return nil, fmt.Errorf("%w: app list is empty", charts.ErrConfiguration)
	}

	count := (len(apps) + size - 1) / size
	batches := make([]charts.Batch, 0, count)
	for i := 0; i < count; i++ {
		start := i * size
		end := start + size
		if end > len(apps) {
			end = len(apps)
		}
		batches = append(batches, charts.Batch{
			Index: i + 1,
			Apps:  apps[start:end],
		})
	}
	return batches, nil
}

// BatchFor returns the single batch a crawl run operates on. Index is
// 1-based; an out-of-range index is a configuration error.
func BatchFor(apps []charts.AppRef, size, index int) (charts.Batch, error) {
	batches, err := Partition(apps, size)
	if err != nil {
		return charts.Batch{}, err
	}
	if index < 1 || index > len(batches) {
		return charts.Batch{}, fmt.Errorf("%w: batch index %d out of range [1, %d]",
			charts.ErrConfiguration, index, len(batches))
	}
	return batches[index-1], nil
}
