package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/darshan-rambhia/tempdb/internal/api"
	"github.com/darshan-rambhia/tempdb/internal/cache"
	"github.com/darshan-rambhia/tempdb/internal/metrics"
	"github.com/darshan-rambhia/tempdb/internal/store"
)

// overviewRefresh is how often serve reloads the overview summary.
const overviewRefresh = 15 * time.Second

func runServe(args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "path to tempdb.yml config file")
	dbPath := fs.String("db", "", "SQLite database path (overrides db_path)")
	listen := fs.String("listen", "", "listen address (overrides listen)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 0 {
		return usageErr("unexpected argument %q", fs.Arg(0))
	}

	cfg, err := loadConfig(*configPath, *dbPath, stderr)
	if err != nil {
		return err
	}
	if *listen != "" {
		cfg.Listen = *listen
	}
	setupLogging(cfg, stderr)

	ver, sha, built, dirty := buildInfo()
	slog.Info("starting tempdb",
		"version", ver,
		"commit", sha,
		"built", built,
		"dirty", dirty,
		"go", runtime.Version(),
		"listen", cfg.Listen,
		"db", cfg.DBPath,
	)

	st, err := store.New(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		metrics.NewStoreCollector(st.Stats),
	)
	httpMetrics, err := metrics.NewHTTP(reg)
	if err != nil {
		return err
	}

	// Setup context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)

	overview := cache.New(st, 2*overviewRefresh)
	g.Go(func() error { return overview.Run(ctx, overviewRefresh) })

	server := api.NewServer(cfg.Listen, st, api.Options{
		Auth:            cfg.Auth,
		Gatherer:        reg,
		Metrics:         httpMetrics,
		Overview:        overview,
		ShutdownTimeout: cfg.ShutdownTimeout.Duration,
	})
	g.Go(func() error { return server.Run(ctx) })

	slog.Info("all components started", "auth", cfg.Auth.Enabled())

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("serving: %w", err)
	}

	slog.Info("tempdb stopped gracefully")
	return nil
}
