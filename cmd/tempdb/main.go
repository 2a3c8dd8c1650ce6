// Command tempdb ingests logger temperature exports into SQLite and serves
// them back for analysis.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"runtime/debug"

	"github.com/darshan-rambhia/tempdb/internal/config"
)

// @title tempdb API
// @version 1.0
// @description Read-only query API over ingested logger temperature readings.
// @host localhost:3900
// @BasePath /

var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// errUsage marks errors caused by how the command was invoked.
var errUsage = errors.New("usage")

// buildInfo returns version, commit, build time, and VCS details from the
// embedded Go build info. ldflags-injected values take priority; VCS info
// from debug.ReadBuildInfo fills in anything left as default.
func buildInfo() (ver, sha, built, dirty string) {
	ver = version
	sha = commit
	built = buildTime
	dirty = "clean"

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}

	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if sha == "none" {
				sha = s.Value
			}
		case "vcs.time":
			if built == "unknown" {
				built = s.Value
			}
		case "vcs.modified":
			if s.Value == "true" {
				dirty = "dirty"
			}
		}
	}

	return
}

const usageText = `usage: tempdb <command> [flags]

commands:
  ingest   load a directory of logger CSV exports
  query    list deployments, sensors, files or readings
  serve    run the read-only HTTP server
  version  print build information

Run "tempdb <command> -h" for command flags.
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprint(stderr, usageText)
		return exitUsage
	}

	var err error
	switch args[0] {
	case "ingest":
		err = runIngest(args[1:], stdout, stderr)
	case "query":
		err = runQuery(args[1:], stdout, stderr)
	case "serve":
		err = runServe(args[1:], stderr)
	case "version", "-version", "--version":
		printVersion(stdout)
		return exitOK
	case "help", "-h", "-help", "--help":
		fmt.Fprint(stdout, usageText)
		return exitOK
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", args[0], usageText)
		return exitUsage
	}

	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, flag.ErrHelp):
		return exitOK
	case errors.Is(err, errUsage):
		fmt.Fprintf(stderr, "error: %s\n", err)
		return exitUsage
	default:
		slog.Error(args[0]+" failed", "error", err)
		return exitError
	}
}

func printVersion(w io.Writer) {
	ver, sha, built, dirty := buildInfo()
	fmt.Fprintf(w, "tempdb %s\n  commit:    %s (%s)\n  built:     %s\n  go:        %s\n  platform:  %s/%s\n",
		ver, sha, dirty, built, runtime.Version(), runtime.GOOS, runtime.GOARCH)
}

// parseFlags parses args and marks parse failures as usage errors.
func parseFlags(fs *flag.FlagSet, args []string) error {
	err := fs.Parse(args)
	if err == nil || errors.Is(err, flag.ErrHelp) {
		return err
	}
	return usageErr("%s", err)
}

// usageErr wraps a message as a usage error.
func usageErr(format string, a ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, a...))
}

// loadConfig loads the config file and applies a -db override.
func loadConfig(path, dbPath string, stderr io.Writer) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, config.ErrConfigFileNotFound) {
			fmt.Fprintf(stderr, "error: %s\n\n", err)
			fmt.Fprintf(stderr, "Copy the example config to get started:\n")
			fmt.Fprintf(stderr, "  cp tempdb.example.yml %s\n\n", path)
		}
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	return cfg, nil
}

// setupLogging installs the default slog handler on stderr.
func setupLogging(cfg *config.Config, stderr io.Writer) {
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: logLevel}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(stderr, opts)
	} else {
		handler = slog.NewTextHandler(stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// isTerminal reports whether w is a character device.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fi, err := f.Stat()
	return err == nil && fi.Mode()&os.ModeCharDevice != 0
}
