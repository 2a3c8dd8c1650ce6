package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/darshan-rambhia/tempdb/internal/report"
	"github.com/darshan-rambhia/tempdb/internal/store"
	"github.com/darshan-rambhia/tempdb/internal/timestamp"
)

type queryFlags struct {
	configPath, dbPath string
	deployment, sensor string
	start, end         string
	listDeployments    bool
	listSensors        bool
	deploymentSensors  string
	fileSummary        bool
	limit              int
	output, format     string
}

func runQuery(args []string, stdout, stderr io.Writer) error {
	var f queryFlags
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&f.configPath, "config", "", "path to tempdb.yml config file")
	fs.StringVar(&f.dbPath, "db", "", "SQLite database path (overrides db_path)")
	fs.StringVar(&f.deployment, "deployment", "", "readings for a deployment")
	fs.StringVar(&f.sensor, "sensor", "", "readings for a sensor registration number")
	fs.StringVar(&f.start, "start", "", "inclusive lower bound (epoch seconds or RFC 3339)")
	fs.StringVar(&f.end, "end", "", "inclusive upper bound (epoch seconds or RFC 3339)")
	fs.BoolVar(&f.listDeployments, "list-deployments", false, "list deployments")
	fs.BoolVar(&f.listSensors, "list-sensors", false, "list sensors")
	fs.StringVar(&f.deploymentSensors, "list-deployment-sensors", "", "list the sensors of a deployment")
	fs.BoolVar(&f.fileSummary, "file-summary", false, "list ingested files")
	fs.IntVar(&f.limit, "limit", 20, "readings shown on the console (0 for all)")
	fs.StringVar(&f.output, "output", "", "write the full result as CSV to this path")
	fs.StringVar(&f.format, "format", report.FormatTable, "console format: table, csv or json")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return usageErr("unexpected argument %q", fs.Arg(0))
	}
	if !report.ValidFormat(f.format) {
		return usageErr("-format must be one of %v", report.Formats)
	}

	cfg, err := loadConfig(f.configPath, f.dbPath, stderr)
	if err != nil {
		return err
	}
	setupLogging(cfg, stderr)

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.CheckSchema(); err != nil {
		return err
	}

	var (
		title string
		data  any
		shown any
	)
	switch {
	case f.listDeployments:
		title = "Deployments"
		data, err = st.ListDeployments()
	case f.listSensors:
		title = "Sensors"
		data, err = st.ListSensors()
	case f.deploymentSensors != "":
		title = "Sensors in " + f.deploymentSensors
		data, err = st.ListDeploymentSensors(f.deploymentSensors)
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("deployment %q: %w", f.deploymentSensors, err)
		}
	case f.fileSummary:
		title = "Ingested files"
		data, err = st.FileSummary()
	default:
		filter, ferr := f.readingFilter()
		if ferr != nil {
			return ferr
		}
		rows, qerr := st.QueryReadings(filter)
		if errors.Is(qerr, store.ErrUnboundedQuery) {
			return usageErr("%s", qerr)
		}
		err = qerr
		data = rows
		title = fmt.Sprintf("%d readings", len(rows))
		if f.format == report.FormatTable && f.limit > 0 && len(rows) > f.limit {
			title += fmt.Sprintf(" (first %d shown)", f.limit)
			shown = rows[:f.limit]
		}
	}
	if err != nil {
		return err
	}
	if shown == nil {
		shown = data
	}

	if f.format == report.FormatTable {
		fmt.Fprintf(stdout, "%s\n\n", title)
	}
	if err := report.Write(stdout, f.format, shown); err != nil {
		return err
	}

	if f.output != "" {
		if err := writeCSVFile(f.output, data); err != nil {
			return err
		}
		fmt.Fprintf(stdout, "\nwrote %s\n", f.output)
	}
	return nil
}

func (f queryFlags) readingFilter() (store.ReadingFilter, error) {
	filter := store.ReadingFilter{Deployment: f.deployment, Sensor: f.sensor}
	for _, b := range []struct {
		name, value string
		dst         **int64
	}{{"start", f.start, &filter.Start}, {"end", f.end, &filter.End}} {
		if b.value == "" {
			continue
		}
		sec, err := timestamp.ParseInstant(b.value)
		if err != nil {
			return filter, usageErr("-%s: %s", b.name, err)
		}
		*b.dst = &sec
	}
	return filter, nil
}

func writeCSVFile(path string, data any) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing %s: %w", path, cerr)
		}
	}()
	return report.Write(out, report.FormatCSV, data)
}
