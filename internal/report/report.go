// Package report renders query results and ingestion summaries for the
// terminal, as CSV, or as JSON.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tm "github.com/buger/goterm"

	"github.com/darshan-rambhia/tempdb/internal/ingest"
	"github.com/darshan-rambhia/tempdb/internal/model"
)

// Output formats accepted by Write.
const (
	FormatTable = "table"
	FormatCSV   = "csv"
	FormatJSON  = "json"
)

// Formats lists the accepted output formats.
var Formats = []string{FormatTable, FormatCSV, FormatJSON}

// ValidFormat reports whether f is an accepted output format.
func ValidFormat(f string) bool {
	for _, v := range Formats {
		if v == f {
			return true
		}
	}
	return false
}

// Write renders data in the given format. data must be one of the slice
// types returned by the store's read methods.
func Write(w io.Writer, format string, data any) error {
	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(data); err != nil {
			return fmt.Errorf("encoding json: %w", err)
		}
		return nil
	}

	header, rows, err := tabulate(data)
	if err != nil {
		return err
	}
	switch format {
	case FormatCSV:
		return writeCSV(w, header, rows)
	case FormatTable:
		return writeTable(w, header, rows)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}

func tabulate(data any) ([]string, [][]string, error) {
	var rows [][]string
	switch v := data.(type) {
	case []model.ReadingRow:
		for _, r := range v {
			rows = append(rows, []string{
				r.TimeUTCISO, r.TimeLocalText, formatValue(r.ValueC),
				r.SensorRegistration, r.SensorLabel, r.DeploymentName, r.Site,
				strconv.Itoa(r.QualityFlag),
			})
		}
		return ReadingColumns, rows, nil
	case []model.DeploymentSummary:
		for _, d := range v {
			rows = append(rows, []string{
				d.Name, d.Site, d.Timezone,
				itoa(d.NumSensors), itoa(d.NumReadings),
				FormatEpoch(d.FirstReadingUTC), FormatEpoch(d.LastReadingUTC), d.Notes,
			})
		}
		return []string{"deployment", "site", "timezone", "sensors", "readings", "first_utc", "last_utc", "notes"}, rows, nil
	case []model.SensorSummary:
		for _, s := range v {
			rows = append(rows, []string{
				s.RegistrationNumber, s.Label, s.Type, s.PartNumber,
				itoa(s.NumDeployments), itoa(s.NumReadings),
			})
		}
		return []string{"registration", "label", "type", "part_number", "deployments", "readings"}, rows, nil
	case []model.DeploymentSensor:
		for _, s := range v {
			rows = append(rows, []string{
				s.Label, s.RegistrationNumber, s.Location, s.Notes,
				itoa(s.NumReadings), FormatEpoch(s.FirstReadingUTC), FormatEpoch(s.LastReadingUTC),
			})
		}
		return []string{"label", "registration", "location", "notes", "readings", "first_utc", "last_utc"}, rows, nil
	case []model.FileSummary:
		for _, f := range v {
			rows = append(rows, []string{
				strconv.FormatInt(f.ID, 10), f.Path, f.DeploymentName,
				f.SensorRegistration, f.SensorLabel, shortHash(f.SHA256), f.RunID,
				FormatEpoch(&f.IngestedAt), itoa(f.NumReadings),
				FormatEpoch(f.FirstReadingUTC), FormatEpoch(f.LastReadingUTC),
			})
		}
		return []string{"file_id", "path", "deployment", "registration", "label", "sha256", "run_id", "ingested_at", "readings", "first_utc", "last_utc"}, rows, nil
	default:
		return nil, nil, fmt.Errorf("report: unsupported data type %T", data)
	}
}

// ReadingColumns is the column order for readings exports.
var ReadingColumns = []string{
	"time_utc", "time_local", "value_c", "sensor_registration",
	"sensor_label", "deployment", "site", "quality_flag",
}

// WriteReadingsCSV writes readings as CSV with a header row.
func WriteReadingsCSV(w io.Writer, rows []model.ReadingRow) error {
	header, out, _ := tabulate(rows)
	return writeCSV(w, header, out)
}

func writeCSV(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}
	return nil
}

func writeTable(w io.Writer, header []string, rows [][]string) error {
	tbl := tm.NewTable(0, 10, 2, ' ', 0)
	fmt.Fprintln(tbl, strings.Join(upper(header), "\t"))
	for _, r := range rows {
		fmt.Fprintln(tbl, strings.Join(r, "\t"))
	}
	if _, err := io.WriteString(w, tbl.String()); err != nil {
		return fmt.Errorf("writing table: %w", err)
	}
	if len(rows) == 0 {
		_, err := io.WriteString(w, "(no rows)\n")
		return err
	}
	return nil
}

// WriteSummary prints an ingestion run summary. Status words are coloured
// when color is true.
func WriteSummary(w io.Writer, sum *ingest.Summary, color bool) error {
	tbl := tm.NewTable(0, 10, 2, ' ', 0)
	fmt.Fprintln(tbl, "FILE\tSTATUS\tREADINGS\tROW ERRORS\tDETAIL")
	statuses := make([]string, 0, len(sum.Results))
	for _, r := range sum.Results {
		status, detail := "ok", ""
		switch {
		case r.Duplicate:
			status = "duplicate"
			if r.DuplicateOf != "" {
				detail = "same content as " + filepath.Base(r.DuplicateOf)
			}
		case r.Err != nil:
			status, detail = "failed", r.Err.Error()
		}
		statuses = append(statuses, status)
		fmt.Fprintf(tbl, "%s\t%s\t%d\t%d\t%s\n", filepath.Base(r.Path), status, r.Readings, r.RowErrors, detail)
	}

	table := tbl.String()
	if color {
		table = colorStatus(table, statuses)
	}

	var b strings.Builder
	b.WriteString(table)
	dep := ""
	if sum.Deployment != nil {
		dep = sum.Deployment.Name
	}
	fmt.Fprintf(&b, "\nrun %s  deployment %s  files %d  ingested %d  duplicates %d  failed %d  readings %d  row errors %d  (%s)\n",
		sum.RunID, dep, sum.Files, sum.Ingested, sum.Duplicates, sum.Failed, sum.Readings, sum.RowErrors,
		sum.Finished.Sub(sum.Started).Round(time.Millisecond))
	_, err := io.WriteString(w, b.String())
	return err
}

var statusColors = map[string]int{
	"ok":        tm.GREEN,
	"duplicate": tm.YELLOW,
	"failed":    tm.RED,
}

// colorStatus colours the STATUS cell of each row in an already aligned
// table. Escape codes added before alignment would count toward the column
// width.
func colorStatus(table string, statuses []string) string {
	lines := strings.Split(table, "\n")
	if len(lines) == 0 {
		return table
	}
	col := strings.Index(lines[0], "STATUS")
	if col < 0 {
		return table
	}
	col = len([]rune(lines[0][:col]))
	for i, status := range statuses {
		if i+1 >= len(lines) {
			break
		}
		line := []rune(lines[i+1])
		end := col + len(status)
		if end > len(line) || string(line[col:end]) != status {
			continue
		}
		lines[i+1] = string(line[:col]) + tm.Color(status, statusColors[status]) + string(line[end:])
	}
	return strings.Join(lines, "\n")
}

// FormatEpoch renders UTC epoch seconds as RFC 3339, or "" for nil.
func FormatEpoch(sec *int64) string {
	if sec == nil {
		return ""
	}
	return time.Unix(*sec, 0).UTC().Format(time.RFC3339)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func itoa(n int64) string { return strconv.FormatInt(n, 10) }

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}

func upper(ss []string) []string {
	out := make([]string, len(ss))
	for i, s := range ss {
		out[i] = strings.ToUpper(s)
	}
	return out
}
