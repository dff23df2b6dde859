// Package batch loads the appid metadata list and splits it into fixed,
// contiguous batches that independent crawl runs can own.
package batch

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/playerstats/steamcharts-crawler/internal/charts"
)

// LoadApps reads the metadata CSV (header appid,name). Rows with a
// missing or non-integer appid are skipped with a warning; input order
// is preserved because checkpoints depend on stable batch membership.
func LoadApps(path string, logger *zap.Logger) ([]charts.AppRef, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open app list: %w", err)
	}
	defer f.Close() //nolint:errcheck // read-only file

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read app list header: %w", err)
	}
	idCol, nameCol := columnIndexes(header)
	if idCol < 0 {
		return nil, fmt.Errorf("app list %s has no appid column", path)
	}

	var apps []charts.AppRef
	for line := 2; ; line++ {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read app list row: %w", err)
		}
		if idCol >= len(row) {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(row[idCol]))
		if err != nil {
			logger.Warn("skipping app list row with invalid appid",
				zap.Int("line", line),
				zap.String("value", row[idCol]))
			continue
		}
		name := ""
		if nameCol >= 0 && nameCol < len(row) {
			name = strings.TrimSpace(row[nameCol])
		}
		apps = append(apps, charts.AppRef{ID: id, Name: name})
	}

	logger.Info("loaded app list", zap.String("path", path), zap.Int("apps", len(apps)))
	return apps, nil
}

func columnIndexes(header []string) (idCol, nameCol int) {
	idCol, nameCol = -1, -1
	for i, col := range header {
		switch strings.ToLower(strings.TrimSpace(col)) {
		case "appid":
			idCol = i
		case "name":
			nameCol = i
		}
	}
	return idCol, nameCol
}
