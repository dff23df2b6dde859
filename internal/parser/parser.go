// Package parser extracts monthly player statistics from a steamcharts
// application page.
package parser

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/playerstats/steamcharts-crawler/internal/charts"
)

// Column positions in the upstream history table. Column 2 is the gain
// delta, which the output schema does not carry.
const (
	colMonth  = 0
	colAvg    = 1
	colChange = 3
	colPeak   = 4
)

// Parser turns a fetched page body into monthly records.
type Parser struct{}

// New builds a Parser.
func New() *Parser {
	return &Parser{}
}

// Parse extracts the monthly history rows for app. It returns no-data
// (with no error) for well-formed pages without a usable history table;
// ErrParse is reserved for bodies that fail the structural sanity check.
// Records carry no timestamp or status; the crawl loop stamps both.
func (p *Parser) Parse(body []byte, app charts.AppRef) ([]charts.MonthlyRecord, charts.Status, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, charts.StatusFailed, fmt.Errorf("%w: empty response body for app %d", charts.ErrParse, app.ID)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, charts.StatusFailed, fmt.Errorf("%w: app %d: %v", charts.ErrParse, app.ID, err)
	}

	table := doc.Find("table.common-table").First()
	if table.Length() == 0 {
		return nil, charts.StatusNoData, nil
	}

	var records []charts.MonthlyRecord
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		cols := row.Find("td")
		if cols.Length() <= colPeak {
			// Header row (th cells) and malformed rows land here.
			return
		}
		rec, ok := parseRow(cols, app)
		if !ok {
			return
		}
		records = append(records, rec)
	})

	if len(records) == 0 {
		return nil, charts.StatusNoData, nil
	}
	return records, charts.StatusSuccess, nil
}

// parseRow converts one table row. A row without a parseable average is
// dropped; peak and change fall back to zero, matching how sparse rows
// appear upstream.
func parseRow(cols *goquery.Selection, app charts.AppRef) (charts.MonthlyRecord, bool) {
	month := strings.TrimSpace(cols.Eq(colMonth).Text())
	if month == "" {
		return charts.MonthlyRecord{}, false
	}

	avg, err := parseFloat(cols.Eq(colAvg).Text())
	if err != nil {
		return charts.MonthlyRecord{}, false
	}

	peak := 0
	if v, err := parseFloat(cols.Eq(colPeak).Text()); err == nil {
		peak = int(v)
	}

	change := 0.0
	if v, err := parseFloat(strings.ReplaceAll(cols.Eq(colChange).Text(), "%", "")); err == nil {
		change = v
	}

	return charts.MonthlyRecord{
		AppID:         app.ID,
		Name:          app.Name,
		Month:         month,
		AvgPlayers:    avg,
		PeakPlayers:   peak,
		ChangePercent: change,
	}, true
}

func parseFloat(raw string) (float64, error) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	return strconv.ParseFloat(cleaned, 64)
}
