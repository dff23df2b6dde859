package batch

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/playerstats/steamcharts-crawler/internal/charts"
)

// WriteBatchFiles materializes one batch_<n>_apps.csv per batch plus a
// batch_summary.txt, so operators can hand individual batch files to
// separate crawl processes and see id ranges at a glance.
func WriteBatchFiles(dir string, batches []charts.Batch) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create batch dir: %w", err)
	}

	for _, b := range batches {
		if err := writeBatchFile(dir, b); err != nil {
			return err
		}
	}
	return writeSummary(dir, batches)
}

func writeBatchFile(dir string, b charts.Batch) error {
	path := filepath.Join(dir, fmt.Sprintf("batch_%d_apps.csv", b.Index))
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create batch file: %w", err)
	}
	defer f.Close() //nolint:errcheck // close error surfaced via writer flush

	w := csv.NewWriter(f)
	if err := w.Write([]string{"appid", "name"}); err != nil {
		return fmt.Errorf("write batch header: %w", err)
	}
	for _, app := range b.Apps {
		if err := w.Write([]string{strconv.Itoa(app.ID), app.Name}); err != nil {
			return fmt.Errorf("write batch row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush batch file: %w", err)
	}
	return nil
}

func writeSummary(dir string, batches []charts.Batch) error {
	total := 0
	for _, b := range batches {
		total += len(b.Apps)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Total batches: %d\n", len(batches))
	fmt.Fprintf(&sb, "Total apps: %d\n\n", total)
	for _, b := range batches {
		fmt.Fprintf(&sb, "Batch %d: %d apps\n", b.Index, len(b.Apps))
		if len(b.Apps) > 0 {
			fmt.Fprintf(&sb, "  App IDs: %d - %d\n", b.Apps[0].ID, b.Apps[len(b.Apps)-1].ID)
		}
	}

	path := filepath.Join(dir, "batch_summary.txt")
	if err := os.WriteFile(path, []byte(sb.String()), 0o644); err != nil {
		return fmt.Errorf("write batch summary: %w", err)
	}
	return nil
}
