package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/playerstats/steamcharts-crawler/internal/charts"
)

const samplePage = `<html><body>
<table class="common-table">
<thead>
<tr><th>Month</th><th>Avg. Players</th><th>Gain</th><th>% Gain</th><th>Peak Players</th></tr>
</thead>
<tbody>
<tr>
  <td class="month-cell left">Last 30 Days</td>
  <td class="right num-f italic">1,180,941.6</td>
  <td class="right num-p gainorloss italic">+27,660.9</td>
  <td class="right gainorloss italic">+2.40%</td>
  <td class="right num italic">1,818,773</td>
</tr>
<tr>
  <td class="month-cell left">July 2025</td>
  <td class="right num-f">1,153,280.7</td>
  <td class="right num-p gainorloss">-22,425.8</td>
  <td class="right gainorloss">-1.91%</td>
  <td class="right num">1,732,861</td>
</tr>
</tbody>
</table>
</body></html>`

func TestParseFullTable(t *testing.T) {
	t.Parallel()

	app := charts.AppRef{ID: 730, Name: "Counter-Strike 2"}
	records, status, err := New().Parse([]byte(samplePage), app)
	require.NoError(t, err)
	require.Equal(t, charts.StatusSuccess, status)
	require.Len(t, records, 2)

	trailing := records[0]
	assert.Equal(t, 730, trailing.AppID)
	assert.Equal(t, "Counter-Strike 2", trailing.Name)
	assert.Equal(t, "Last 30 Days", trailing.Month)
	assert.InDelta(t, 1180941.6, trailing.AvgPlayers, 0.01)
	assert.Equal(t, 1818773, trailing.PeakPlayers)
	assert.InDelta(t, 2.40, trailing.ChangePercent, 0.001)

	july := records[1]
	assert.Equal(t, "July 2025", july.Month)
	assert.InDelta(t, -1.91, july.ChangePercent, 0.001)
	assert.Equal(t, 1732861, july.PeakPlayers)
}

func TestParseMissingTableIsNoData(t *testing.T) {
	t.Parallel()

	body := []byte(`<html><body><h1>No stats for this app</h1></body></html>`)
	records, status, err := New().Parse(body, charts.AppRef{ID: 570})
	require.NoError(t, err)
	assert.Equal(t, charts.StatusNoData, status)
	assert.Empty(t, records)
}

func TestParseSkipsJunkRows(t *testing.T) {
	t.Parallel()

	body := []byte(`<html><body><table class="common-table">
<tr><td>August 2025</td><td>not-a-number</td><td>-</td><td>-</td><td>10</td></tr>
<tr><td>July 2025</td><td>55.5</td><td>-</td><td>junk</td><td>junk</td></tr>
</table></body></html>`)

	records, status, err := New().Parse(body, charts.AppRef{ID: 10})
	require.NoError(t, err)
	require.Equal(t, charts.StatusSuccess, status)
	require.Len(t, records, 1)

	// Unparseable peak/change fall back to zero; unparseable avg drops
	// the whole row.
	assert.Equal(t, "July 2025", records[0].Month)
	assert.InDelta(t, 55.5, records[0].AvgPlayers, 0.001)
	assert.Zero(t, records[0].PeakPlayers)
	assert.Zero(t, records[0].ChangePercent)
}

func TestParseEmptyTableIsNoData(t *testing.T) {
	t.Parallel()

	body := []byte(`<html><body><table class="common-table"><tr><th>Month</th></tr></table></body></html>`)
	records, status, err := New().Parse(body, charts.AppRef{ID: 10})
	require.NoError(t, err)
	assert.Equal(t, charts.StatusNoData, status)
	assert.Empty(t, records)
}

func TestParseEmptyBodyFails(t *testing.T) {
	t.Parallel()

	_, status, err := New().Parse([]byte("  \n "), charts.AppRef{ID: 10})
	require.Error(t, err)
	assert.ErrorIs(t, err, charts.ErrParse)
	assert.Equal(t, charts.StatusFailed, status)
}
