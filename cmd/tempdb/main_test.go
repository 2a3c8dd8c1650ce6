package main

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const exportCSV = "Part Number,DS1925L\n" +
	"Registration Number,ABC123\n" +
	"Date/Time,Unit,Value\n" +
	"12/31/24 11:59:59 PM,C,-5.25\n" +
	"01/01/25 12:00:00 AM,C,-5.10\n"

func runCmd(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestRunUsage(t *testing.T) {
	code, _, stderr := runCmd(t)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "usage: tempdb")

	code, _, stderr = runCmd(t, "frobnicate")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, `unknown command "frobnicate"`)

	code, _, _ = runCmd(t, "ingest", "-bogus")
	assert.Equal(t, exitUsage, code)

	code, _, _ = runCmd(t, "ingest", "-h")
	assert.Equal(t, exitOK, code)
}

func TestRunVersion(t *testing.T) {
	code, stdout, _ := runCmd(t, "version")
	assert.Equal(t, exitOK, code)
	assert.True(t, strings.HasPrefix(stdout, "tempdb dev"))
	assert.Contains(t, stdout, "platform:")
}

func TestIngestAndQuery(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "data")
	require.NoError(t, os.Mkdir(data, 0o755))
	writeFile(t, filepath.Join(data, "LR_iButton_Jan2025.csv"), exportCSV)
	writeFile(t, filepath.Join(data, "deployment_metadata.json"),
		`{"deployment":"Attic_2025","site":"Home","sensors":{"LR":{"location":"shelf","notes":"near vent"}}}`)

	var hooks []map[string]any
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		b, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(b, &body)
		hooks = append(hooks, body)
		w.WriteHeader(http.StatusOK)
	}))
	defer hook.Close()

	db := filepath.Join(dir, "temps.db")
	textfile := filepath.Join(dir, "tempdb.prom")
	cfgPath := filepath.Join(dir, "tempdb.yml")
	writeFile(t, cfgPath, "db_path: "+db+"\nmetrics_textfile: "+textfile+"\nnotifications:\n  - type: webhook\n    url: "+hook.URL+"\n")

	// Without -init-db the empty store is refused.
	code, _, stderr := runCmd(t, "ingest", "-config", cfgPath, data)
	assert.Equal(t, exitError, code)
	assert.Contains(t, stderr, "-init-db")

	code, stdout, stderr := runCmd(t, "ingest", "-config", cfgPath, "-init-db", data)
	require.Equal(t, exitOK, code, stderr)
	assert.Contains(t, stdout, "LR_iButton_Jan2025.csv")
	assert.Contains(t, stdout, "deployment Attic_2025")
	assert.Contains(t, stdout, "readings 2")

	prom, err := os.ReadFile(textfile)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `tempdb_ingest_files_total{result="ingested"} 1`)
	assert.Contains(t, string(prom), `tempdb_store_rows{table="temperature_readings"} 2`)

	require.Len(t, hooks, 1)
	assert.Equal(t, "ingest_run", hooks[0]["event"])

	// Second run sees a duplicate and still succeeds.
	code, stdout, _ = runCmd(t, "ingest", "-config", cfgPath, data)
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "duplicate")

	code, stdout, _ = runCmd(t, "query", "-db", db, "-list-deployments")
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "Attic_2025")

	code, stdout, _ = runCmd(t, "query", "-db", db, "-list-deployment-sensors", "Attic_2025", "-format", "json")
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, `"location": "shelf"`)

	out := filepath.Join(dir, "out.csv")
	code, stdout, _ = runCmd(t, "query", "-db", db, "-deployment", "Attic_2025", "-limit", "1", "-output", out)
	require.Equal(t, exitOK, code)
	assert.Contains(t, stdout, "2 readings (first 1 shown)")

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "2025-01-01T04:59:59Z", records[1][0])
}

func TestIngestErrors(t *testing.T) {
	dir := t.TempDir()
	db := filepath.Join(dir, "temps.db")

	// No deployment or site anywhere.
	code, _, stderr := runCmd(t, "ingest", "-db", db, "-init-db", dir)
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "deployment and site are required")

	code, _, _ = runCmd(t, "ingest", "-db", db, "-init-db", "-deployment", "D", "-site", "S", "-timezone", "Mars/Olympus", dir)
	assert.Equal(t, exitUsage, code)

	// Empty directory.
	code, _, _ = runCmd(t, "ingest", "-db", db, "-init-db", "-deployment", "D", "-site", "S", dir)
	assert.Equal(t, exitError, code)

	code, _, _ = runCmd(t, "ingest", "-db", db)
	assert.Equal(t, exitUsage, code)
}

func TestQueryErrors(t *testing.T) {
	db := filepath.Join(t.TempDir(), "temps.db")

	code, _, _ := runCmd(t, "query", "-db", db, "-list-sensors")
	assert.Equal(t, exitError, code, "uninitialised store")

	code, _, _ = runCmd(t, "query", "-db", db, "-format", "xml")
	assert.Equal(t, exitUsage, code)

	code, _, _ = runCmd(t, "ingest", "-db", db, "-init-db", "-deployment", "D", "-site", "S", t.TempDir())
	require.Equal(t, exitError, code) // no files, but the schema now exists

	code, _, stderr := runCmd(t, "query", "-db", db, "-start", "0")
	assert.Equal(t, exitUsage, code)
	assert.Contains(t, stderr, "both start and end")

	code, _, _ = runCmd(t, "query", "-db", db, "-start", "soon", "-end", "later")
	assert.Equal(t, exitUsage, code)

	code, _, _ = runCmd(t, "query", "-db", db, "-list-deployment-sensors", "Nope")
	assert.Equal(t, exitError, code)
}
