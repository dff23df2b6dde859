package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/playerstats/steamcharts-crawler/internal/charts"
)

// CSVSink appends rows to a CSV file. A new file gets the header row; an
// existing file is opened in append mode so a resumed run continues
// where the previous one stopped without rewriting anything.
type CSVSink struct {
	file   *os.File
	writer *csv.Writer
}

// NewCSVSink opens (or creates) the sink file at path. Open and header
// failures are wrapped as ErrSinkUnavailable: the run cannot proceed
// without a writable sink.
func NewCSVSink(path string) (*CSVSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", charts.ErrSinkUnavailable, path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close() //nolint:errcheck // stat error takes precedence
		return nil, fmt.Errorf("%w: stat %s: %v", charts.ErrSinkUnavailable, path, err)
	}

	s := &CSVSink{file: f, writer: csv.NewWriter(f)}
	if info.Size() == 0 {
		if err := s.writer.Write(Columns); err != nil {
			f.Close() //nolint:errcheck // header error takes precedence
			return nil, fmt.Errorf("%w: write header: %v", charts.ErrSinkUnavailable, err)
		}
		if err := s.flush(); err != nil {
			f.Close() //nolint:errcheck // flush error takes precedence
			return nil, err
		}
	}
	return s, nil
}

// Append writes records and flushes them to disk before returning, so a
// reader never observes a partially-written identifier after a crash.
func (s *CSVSink) Append(ctx context.Context, records []charts.MonthlyRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, rec := range records {
		if err := s.writer.Write(encodeRecord(rec)); err != nil {
			return fmt.Errorf("%w: write row for app %d: %v", charts.ErrSinkUnavailable, rec.AppID, err)
		}
	}
	return s.flush()
}

// Close flushes and closes the file.
func (s *CSVSink) Close() error {
	flushErr := s.flush()
	if err := s.file.Close(); err != nil {
		return fmt.Errorf("close sink: %w", err)
	}
	return flushErr
}

func (s *CSVSink) flush() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return fmt.Errorf("%w: flush: %v", charts.ErrSinkUnavailable, err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("%w: fsync: %v", charts.ErrSinkUnavailable, err)
	}
	return nil
}

func encodeRecord(rec charts.MonthlyRecord) []string {
	return []string{
		strconv.Itoa(rec.AppID),
		rec.Name,
		rec.Month,
		strconv.FormatFloat(rec.AvgPlayers, 'f', -1, 64),
		strconv.Itoa(rec.PeakPlayers),
		strconv.FormatFloat(rec.ChangePercent, 'f', -1, 64),
		rec.CrawledAt.UTC().Format(time.RFC3339),
		string(rec.Status),
	}
}
