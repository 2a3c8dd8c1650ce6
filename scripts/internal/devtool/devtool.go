// Package devtool holds the helpers shared by the developer report scripts.
package devtool

import (
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"
)

// Separator lines used in text reports.
var (
	Sep  = strings.Repeat("=", 72)
	Thin = strings.Repeat("-", 72)
)

// ProjectRoot walks up from the calling source file to the directory that
// holds go.mod.
func ProjectRoot() string {
	_, filename, _, ok := runtime.Caller(1)
	if !ok {
		log.Fatal("could not determine script directory")
	}
	dir := filepath.Dir(filename)
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			log.Fatal("could not find project root (no go.mod found)")
		}
		dir = parent
	}
}

// ReportDir creates and returns target/reports under root.
func ReportDir(root string) string {
	dir := filepath.Join(root, "target", "reports")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Fatalf("creating report directory: %v", err)
	}
	return dir
}

// GoVersion returns the output of "go version", or "unknown".
func GoVersion() string {
	out, err := exec.Command("go", "version").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}

// Header writes the common report preamble. extra holds label/value pairs.
func Header(sb *strings.Builder, title string, now time.Time, extra ...string) {
	fmt.Fprintf(sb, "tempdb %s\n%s\n", title, Sep)
	fmt.Fprintf(sb, "%-16s%s\n", "Generated:", now.Format(time.RFC1123))
	fmt.Fprintf(sb, "%-16s%s\n", "Go Version:", GoVersion())
	fmt.Fprintf(sb, "%-16s%s/%s\n", "OS/Arch:", runtime.GOOS, runtime.GOARCH)
	for i := 0; i+1 < len(extra); i += 2 {
		fmt.Fprintf(sb, "%-16s%s\n", extra[i]+":", extra[i+1])
	}
	sb.WriteString(Sep + "\n\n")
}

// Env returns the environment variable key, or def when it is unset.
func Env(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
