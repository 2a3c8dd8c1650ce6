package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/darshan-rambhia/tempdb/internal/ingest"
	"github.com/darshan-rambhia/tempdb/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v int64) *int64 { return &v }

var sampleReadings = []model.ReadingRow{
	{TimeUTC: 100, TimeUTCISO: "1970-01-01T00:01:40Z", TimeLocalText: "12/31/69 19:01:40", ValueC: 21.5,
		SensorRegistration: "AB01", SensorLabel: "LR", DeploymentName: "Attic_2025", Site: "Home, North wing"},
	{TimeUTC: 160, TimeUTCISO: "1970-01-01T00:02:40Z", TimeLocalText: "12/31/69 19:02:40", ValueC: -3.125,
		SensorRegistration: "AB01", SensorLabel: "LR", DeploymentName: "Attic_2025", Site: "Home, North wing"},
}

func TestWriteCSVReadings(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, sampleReadings))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, ReadingColumns, records[0])
	assert.Equal(t, "1970-01-01T00:01:40Z", records[1][0])
	assert.Equal(t, "21.5", records[1][2])
	assert.Equal(t, "-3.125", records[2][2])
	assert.Equal(t, "Home, North wing", records[1][6])
}

func TestWriteReadingsCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteReadingsCSV(&buf, nil))
	assert.Equal(t, strings.Join(ReadingColumns, ",")+"\n", buf.String())
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, sampleReadings))

	var got []model.ReadingRow
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, sampleReadings, got)
}

func TestWriteTable(t *testing.T) {
	deps := []model.DeploymentSummary{
		{Name: "Attic_2025", Site: "Home", Timezone: "America/New_York", NumSensors: 2, NumReadings: 40,
			FirstReadingUTC: ptr(0), LastReadingUTC: ptr(3600)},
		{Name: "Empty", Site: "Shed", Timezone: "UTC"},
	}
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatTable, deps))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "DEPLOYMENT"))
	assert.Contains(t, lines[1], "1970-01-01T01:00:00Z")
	assert.Contains(t, lines[2], "Empty")
}

func TestWriteTableNoRows(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatTable, []model.SensorSummary{}))
	assert.Contains(t, buf.String(), "REGISTRATION")
	assert.Contains(t, buf.String(), "(no rows)")
}

func TestWriteAllTypes(t *testing.T) {
	for _, data := range []any{
		[]model.SensorSummary{{RegistrationNumber: "AB01", Label: "LR"}},
		[]model.DeploymentSensor{{Label: "LR", RegistrationNumber: "AB01", Location: "shelf"}},
		[]model.FileSummary{{ID: 1, Path: "/data/LR_iButton_x.csv", SHA256: strings.Repeat("a", 64), IngestedAt: 0}},
	} {
		var buf bytes.Buffer
		require.NoError(t, Write(&buf, FormatCSV, data))
		records, err := csv.NewReader(&buf).ReadAll()
		require.NoError(t, err)
		assert.Len(t, records, 2, "%T", data)
	}

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatTable, []model.FileSummary{{SHA256: strings.Repeat("b", 64)}}))
	assert.Contains(t, buf.String(), strings.Repeat("b", 12))
	assert.NotContains(t, buf.String(), strings.Repeat("b", 13))
}

func TestWriteErrors(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, Write(&buf, FormatCSV, 42))
	assert.Error(t, Write(&buf, "xml", sampleReadings))
	assert.True(t, ValidFormat("csv"))
	assert.False(t, ValidFormat("xml"))
}

func TestWriteSummary(t *testing.T) {
	start := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	sum := &ingest.Summary{
		RunID:      "run-1",
		Deployment: &model.Deployment{Name: "Attic_2025"},
		Files:      3, Ingested: 1, Duplicates: 1, Failed: 1, Readings: 20,
		Results: []ingest.FileResult{
			{Path: "/d/a.csv", Readings: 20},
			{Path: "/d/b.csv", Duplicate: true, DuplicateOf: "/old/a.csv", Err: ingest.ErrDuplicateFile},
			{Path: "/d/c.csv", Err: errors.New("no data section")},
		},
		Started:  start,
		Finished: start.Add(1500 * time.Millisecond),
	}

	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, sum, false))
	out := buf.String()
	assert.Contains(t, out, "a.csv")
	assert.Contains(t, out, "duplicate")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "no data section")
	assert.Contains(t, out, "run run-1  deployment Attic_2025")
	assert.Contains(t, out, "(1.5s)")
	assert.Contains(t, out, "same content as a.csv")
	assert.NotContains(t, out, "\033[")

	// Colour must not shift the columns.
	buf.Reset()
	require.NoError(t, WriteSummary(&buf, sum, true))
	colored := buf.String()
	assert.Contains(t, colored, "\033[")
	assert.Equal(t, out, ansi.ReplaceAllString(colored, ""))
	for _, word := range []string{"ok", "duplicate", "failed"} {
		assert.Contains(t, colored, word+"\033[0m")
	}
}

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func TestFormatEpoch(t *testing.T) {
	assert.Equal(t, "", FormatEpoch(nil))
	assert.Equal(t, "2024-11-03T06:30:00Z", FormatEpoch(ptr(1730615400)))
}
