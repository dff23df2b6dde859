package sink

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playerstats/steamcharts-crawler/internal/charts"
)

func sampleRecords(ts time.Time) []charts.MonthlyRecord {
	return []charts.MonthlyRecord{
		{
			AppID:         730,
			Name:          "Counter-Strike 2",
			Month:         "Last 30 Days",
			AvgPlayers:    1180941.6,
			PeakPlayers:   1818773,
			ChangePercent: 2.4,
			CrawledAt:     ts,
			Status:        charts.StatusSuccess,
		},
		{
			AppID:         730,
			Name:          "Counter-Strike 2",
			Month:         "July 2025",
			AvgPlayers:    1153280.7,
			PeakPlayers:   1732861,
			ChangePercent: -1.91,
			CrawledAt:     ts,
			Status:        charts.StatusSuccess,
		},
	}
}

func readAll(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck // read-only file
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVSinkWritesHeaderOnce(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "results.csv")
	ts := time.Date(2025, 8, 20, 12, 0, 0, 0, time.UTC)

	s, err := NewCSVSink(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(context.Background(), sampleRecords(ts)))
	require.NoError(t, s.Close())

	rows := readAll(t, path)
	require.Len(t, rows, 3)
	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, "730", rows[1][0])
	assert.Equal(t, "Last 30 Days", rows[1][2])
	assert.Equal(t, "1180941.6", rows[1][3])
	assert.Equal(t, "1818773", rows[1][4])
	assert.Equal(t, "2025-08-20T12:00:00Z", rows[1][6])
	assert.Equal(t, "success", rows[1][7])
}

func TestCSVSinkAppendsWithoutRewritingHeader(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "results.csv")
	ts := time.Date(2025, 8, 20, 12, 0, 0, 0, time.UTC)

	first, err := NewCSVSink(path)
	require.NoError(t, err)
	require.NoError(t, first.Append(context.Background(), sampleRecords(ts)))
	require.NoError(t, first.Close())

	// Reopening the same file simulates a resumed run.
	second, err := NewCSVSink(path)
	require.NoError(t, err)
	failed := []charts.MonthlyRecord{charts.FailureRecord(charts.AppRef{ID: 570, Name: "Dota 2"}, charts.StatusFailed, ts)}
	require.NoError(t, second.Append(context.Background(), failed))
	require.NoError(t, second.Close())

	rows := readAll(t, path)
	require.Len(t, rows, 4)
	assert.Equal(t, Columns, rows[0])
	for _, row := range rows[1:] {
		assert.NotEqual(t, Columns[0], row[0], "header must appear only once")
	}
	assert.Equal(t, "570", rows[3][0])
	assert.Equal(t, "", rows[3][2])
	assert.Equal(t, "0", rows[3][3])
	assert.Equal(t, "failed", rows[3][7])
}

func TestCSVSinkOpenFailure(t *testing.T) {
	t.Parallel()

	_, err := NewCSVSink(filepath.Join(t.TempDir(), "missing-dir", "results.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, charts.ErrSinkUnavailable)
}
