// Benchmark report tool for tempdb.
//
// Runs the hashing, header parsing and store benchmarks, captures output,
// and writes a timestamped report to target/reports/bench.txt. Exits
// non-zero if any benchmark fails.
//
// Usage:
//
//	go run ./scripts/bench
//	BENCH_TIME=10s BENCH_FILTER=InsertFile go run ./scripts/bench
package main

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/darshan-rambhia/tempdb/scripts/internal/devtool"
)

func main() {
	root := devtool.ProjectRoot()
	reportDir := devtool.ReportDir(root)
	benchTime := devtool.Env("BENCH_TIME", "3s")
	filter := devtool.Env("BENCH_FILTER", ".")

	fmt.Printf("Running benchmarks matching %q (benchtime=%s)...\n\n", filter, benchTime)

	cmd := exec.Command("go", "test",
		"-bench="+filter,
		"-benchmem",
		"-benchtime="+benchTime,
		"-run=^$",
		"./internal/...",
	)
	cmd.Dir = root

	var buf bytes.Buffer
	cmd.Stdout = io.MultiWriter(os.Stdout, &buf)
	cmd.Stderr = io.MultiWriter(os.Stderr, &buf)
	runErr := cmd.Run()

	var report strings.Builder
	devtool.Header(&report, "Benchmark Report", time.Now(),
		"Benchmark Time", benchTime+" per benchmark",
		"Filter", filter)
	report.WriteString(buf.String())
	if runErr != nil {
		fmt.Fprintf(&report, "\n[ERROR] %v\n", runErr)
	}

	reportPath := filepath.Join(reportDir, "bench.txt")
	if err := os.WriteFile(reportPath, []byte(report.String()), 0o644); err != nil {
		log.Fatalf("writing bench report: %v", err)
	}
	fmt.Printf("\nBenchmark report: %s\n", reportPath)

	if runErr != nil {
		os.Exit(1)
	}
	fmt.Println("Benchmark run complete.")
}
