package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/darshan-rambhia/tempdb/internal/config"
	"github.com/darshan-rambhia/tempdb/internal/ingest"
	"github.com/darshan-rambhia/tempdb/internal/metrics"
	"github.com/darshan-rambhia/tempdb/internal/model"
	"github.com/darshan-rambhia/tempdb/internal/notify"
	"github.com/darshan-rambhia/tempdb/internal/report"
	"github.com/darshan-rambhia/tempdb/internal/store"
	"github.com/darshan-rambhia/tempdb/internal/timestamp"
)

func runIngest(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("ingest", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "usage: tempdb ingest [flags] DIR")
		fs.PrintDefaults()
	}
	configPath := fs.String("config", "", "path to tempdb.yml config file")
	dbPath := fs.String("db", "", "SQLite database path (overrides db_path)")
	initDB := fs.Bool("init-db", false, "create the schema if it does not exist")
	var flags config.IngestOverrides
	fs.StringVar(&flags.Deployment, "deployment", "", "deployment name")
	fs.StringVar(&flags.Site, "site", "", "site name, used when the deployment is created")
	fs.StringVar(&flags.Timezone, "timezone", "", "IANA timezone of the logger clocks")
	fs.StringVar(&flags.FixedOffset, "fixed-offset", "", "fixed UTC offset (±HH:MM) instead of zone rules")
	fs.StringVar(&flags.Notes, "notes", "", "deployment notes")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return usageErr("ingest takes exactly one directory")
	}
	dir := fs.Arg(0)

	cfg, err := loadConfig(*configPath, *dbPath, stderr)
	if err != nil {
		return err
	}
	setupLogging(cfg, stderr)

	doc, docPath, err := config.LoadDeploymentMetadata(dir)
	if err != nil {
		return err
	}
	if docPath != "" {
		slog.Info("loaded deployment metadata", "path", docPath)
	}

	settings, err := config.ResolveIngest(cfg, doc, flags)
	if errors.Is(err, config.ErrIncompleteDeployment) {
		return usageErr("%s: pass -deployment and -site or provide them in %s", err, config.MetadataFileNames[0])
	}
	if err != nil {
		return err
	}

	norm, err := timestamp.New(settings.Timezone, settings.FixedOffset)
	if err != nil {
		return usageErr("%s", err)
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()
	if *initDB {
		if err := st.Migrate(); err != nil {
			return err
		}
	} else if err := st.CheckSchema(); err != nil {
		return fmt.Errorf("%w (run with -init-db to create it)", err)
	}

	reg := prometheus.NewRegistry()
	ingestMetrics, err := metrics.NewIngest(reg)
	if err != nil {
		return err
	}
	if err := reg.Register(metrics.NewStoreCollector(st.Stats)); err != nil {
		return fmt.Errorf("registering store metrics: %w", err)
	}

	overrides := make(map[string]ingest.SensorOverride, len(settings.Sensors))
	for label, s := range settings.Sensors {
		overrides[label] = ingest.SensorOverride{Location: s.Location, Notes: s.Notes}
	}

	in, err := ingest.New(st, ingest.Options{
		Deployment: model.Deployment{
			Name:     settings.Deployment,
			Site:     settings.Site,
			Timezone: settings.Timezone,
			Notes:    settings.Notes,
		},
		Normalizer: norm,
		Sensors:    overrides,
		SensorType: cfg.SensorType,
		Metrics:    ingestMetrics,
	})
	if err != nil {
		return err
	}

	sum, runErr := in.IngestDir(dir, cfg.FileGlob)
	if sum == nil {
		// Nothing was attempted.
		return runErr
	}

	if err := report.WriteSummary(stdout, sum, isTerminal(stdout)); err != nil {
		slog.Warn("writing summary", "error", err)
	}

	if cfg.MetricsTextfile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsTextfile, reg); err != nil {
			slog.Error("writing metrics", "error", err)
		}
	}

	dispatcher, err := notify.FromConfig(cfg.Notifications)
	if err != nil {
		slog.Error("configuring notifications", "error", err)
	} else if dispatcher.Len() > 0 {
		// Failures are logged by the dispatcher.
		_ = dispatcher.Send(context.Background(), sum.Notification(runErr))
	}

	return runErr
}
