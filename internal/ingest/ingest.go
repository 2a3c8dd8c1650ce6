// Package ingest loads logger CSV exports into the store.
//
// Files are processed one at a time in name order. Each file is parsed for
// its header block, its sensor is resolved or created, the sensor's
// deployment context is upserted, and then, unless the file's content hash
// is already recorded, the file and its readings are written in one
// transaction. Malformed rows are dropped with a warning; malformed files are
// skipped; store failures stop the run.
package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/darshan-rambhia/tempdb/internal/metrics"
	"github.com/darshan-rambhia/tempdb/internal/model"
	"github.com/darshan-rambhia/tempdb/internal/store"
	"github.com/darshan-rambhia/tempdb/internal/timestamp"
	"github.com/google/uuid"
)

// SensorNotesKey is the metadata key under which per-sensor deployment notes
// are recorded in a file's metadata snapshot.
const SensorNotesKey = "deployment_sensor_notes"

// SensorOverride is deployment-specific context for one sensor label.
type SensorOverride struct {
	Location string
	Notes    string
}

// Options configures an Ingester.
type Options struct {
	// Deployment names the target deployment and supplies the fields used
	// if it has to be created.
	Deployment model.Deployment
	Normalizer *timestamp.Normalizer
	Sensors    map[string]SensorOverride // keyed by label
	SensorType string
	RunID      string // generated when empty
	Metrics    *metrics.Ingest
}

// FileResult describes the outcome for one file.
type FileResult struct {
	Path      string
	Label     string
	SHA256    string
	SensorID  int64
	FileID    int64
	Readings  int
	RowErrors int
	Duplicate bool
	// DuplicateOf is the stored path of the file with the same content.
	DuplicateOf string
	Err         error
}

// Summary describes one ingestion run.
type Summary struct {
	RunID      string
	Deployment *model.Deployment
	Files      int
	Ingested   int
	Duplicates int
	Failed     int
	Readings   int
	RowErrors  int
	Results    []FileResult
	Started    time.Time
	Finished   time.Time
}

// Ingester runs ingestion for one deployment.
type Ingester struct {
	store      Store
	resolver   *Resolver
	norm       *timestamp.Normalizer
	want       model.Deployment
	deployment *model.Deployment
	sensors    map[string]SensorOverride
	runID      string
	metrics    *metrics.Ingest
	now        func() time.Time
}

// New creates an Ingester.
func New(s Store, opts Options) (*Ingester, error) {
	if opts.Normalizer == nil {
		return nil, errors.New("timestamp normalizer is required")
	}
	if opts.Deployment.Name == "" {
		return nil, errors.New("deployment name is required")
	}
	runID := opts.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	return &Ingester{
		store:    s,
		resolver: NewResolver(s, opts.SensorType),
		norm:     opts.Normalizer,
		want:     opts.Deployment,
		sensors:  opts.Sensors,
		runID:    runID,
		metrics:  opts.Metrics,
		now:      time.Now,
	}, nil
}

// Deployment resolves the target deployment once and returns it. In zone
// mode a stored timezone that differs from the requested one is logged;
// timestamps are still converted with the requested normalizer.
func (in *Ingester) Deployment() (*model.Deployment, error) {
	if in.deployment != nil {
		return in.deployment, nil
	}
	d, err := in.resolver.Deployment(in.want)
	if err != nil {
		return nil, fmt.Errorf("resolving deployment %s: %w", in.want.Name, err)
	}
	if !in.norm.Fixed() && in.want.Timezone != "" && d.Timezone != in.want.Timezone {
		slog.Warn("deployment timezone differs from stored value",
			"deployment", d.Name, "stored", d.Timezone, "using", in.norm.String())
	}
	in.deployment = d
	return d, nil
}

// IngestFile ingests one file. It returns ErrDuplicateFile when the file's
// content is already stored. *FormatError, *ValidationError and *IOError
// affect only this file; any other error comes from the store.
func (in *Ingester) IngestFile(path string) (FileResult, error) {
	res := FileResult{Path: path}

	dep, err := in.Deployment()
	if err != nil {
		return res, err
	}

	md, dataStart, err := parseHeaderFile(path)
	if err != nil {
		return res, err
	}

	res.Label = LabelFromFilename(path)
	var override SensorOverride
	if res.Label != "" {
		override = in.sensors[res.Label]
	}

	sensor, err := in.resolver.Sensor(md, res.Label)
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			verr.Path = path
		}
		return res, err
	}
	res.SensorID = sensor.ID

	// Runs before the duplicate check so location and notes stay current
	// for files that are skipped.
	err = in.store.UpsertSensorDeployment(model.SensorDeployment{
		SensorID:      sensor.ID,
		DeploymentID:  dep.ID,
		LocationNotes: override.Location,
		Notes:         override.Notes,
	})
	if err != nil {
		return res, err
	}

	res.SHA256, err = HashFile(path)
	if err != nil {
		return res, err
	}
	prev, err := in.store.FileByHash(res.SHA256)
	switch {
	case err == nil:
		res.Duplicate = true
		res.DuplicateOf = prev.Path
		return res, ErrDuplicateFile
	case !errors.Is(err, store.ErrNotFound):
		return res, err
	}

	snapshot := md
	if override.Notes != "" {
		snapshot = md.Clone()
		snapshot.Set(SensorNotesKey, override.Notes)
	}
	mdJSON, err := json.Marshal(snapshot)
	if err != nil {
		return res, fmt.Errorf("encoding metadata: %w", err)
	}

	readings, rowErrs, err := in.readReadings(path, dataStart, sensor.ID, dep.ID)
	if err != nil {
		return res, err
	}
	res.RowErrors = len(rowErrs)
	for _, re := range rowErrs {
		slog.Warn("skipping row", "file", filepath.Base(path), "line", re.Line, "error", re.Err)
	}

	res.FileID, err = in.store.InsertFile(&model.IngestedFile{
		DeploymentID: dep.ID,
		SensorID:     sensor.ID,
		Path:         path,
		SHA256:       res.SHA256,
		MetadataJSON: string(mdJSON),
		RunID:        in.runID,
		IngestedAt:   in.now(),
	}, readings)
	if err != nil {
		return res, err
	}
	res.Readings = len(readings)
	return res, nil
}

// IngestDir ingests every file in dir matching glob, in name order. Files
// that fail for file-level reasons are logged and counted; a store failure
// stops the run and is returned with the partial summary.
func (in *Ingester) IngestDir(dir, glob string) (*Summary, error) {
	paths, err := ListInputFiles(dir, glob)
	if err != nil {
		return nil, err
	}

	sum := &Summary{RunID: in.runID, Started: in.now()}
	defer func() {
		sum.Finished = in.now()
		in.metrics.RunFinished(sum.Started, sum.Finished, sum.Failed)
	}()

	dep, err := in.Deployment()
	if err != nil {
		return sum, err
	}
	sum.Deployment = dep

	slog.Info("ingesting directory", "dir", dir, "files", len(paths),
		"deployment", dep.Name, "timezone", in.norm.String(), "run_id", in.runID)

	for _, path := range paths {
		res, err := in.IngestFile(path)
		res.Err = err
		sum.Files++

		switch {
		case err == nil:
			sum.Ingested++
			sum.Readings += res.Readings
			sum.RowErrors += res.RowErrors
			in.metrics.File(metrics.ResultIngested, res.Readings, res.RowErrors)
			if res.Readings == 0 {
				slog.Warn("no valid readings in file", "file", path)
			} else {
				slog.Info("ingested file", "file", path, "readings", res.Readings, "row_errors", res.RowErrors)
			}
		case errors.Is(err, ErrDuplicateFile):
			sum.Duplicates++
			in.metrics.File(metrics.ResultDuplicate, 0, 0)
			slog.Info("file already ingested, skipping", "file", path, "sha256", res.SHA256, "stored_as", res.DuplicateOf)
		case IsFileError(err):
			sum.Failed++
			in.metrics.File(metrics.ResultFailed, 0, 0)
			slog.Error("ingesting file", "file", path, "error", err)
		default:
			sum.Failed++
			in.metrics.File(metrics.ResultFailed, 0, 0)
			sum.Results = append(sum.Results, res)
			return sum, fmt.Errorf("ingesting %s: %w", path, err)
		}
		sum.Results = append(sum.Results, res)
	}
	return sum, nil
}

// IsFileError reports whether err affects only the file it came from.
func IsFileError(err error) bool {
	var (
		ferr *FormatError
		verr *ValidationError
		ioer *IOError
	)
	return errors.As(err, &ferr) || errors.As(err, &verr) || errors.As(err, &ioer)
}

// ListInputFiles returns the files in dir matching glob, sorted by name. A
// missing directory, a non-directory, or an empty match is an *IOError.
func ListInputFiles(dir, glob string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, &IOError{Op: "stat", Path: dir, Err: err}
	}
	if !info.IsDir() {
		return nil, &IOError{Op: "read", Path: dir, Err: errors.New("not a directory")}
	}
	if glob == "" {
		glob = "*.csv"
	}
	matches, err := filepath.Glob(filepath.Join(dir, glob))
	if err != nil {
		return nil, &IOError{Op: "glob", Path: dir, Err: err}
	}

	var files []string
	for _, m := range matches {
		fi, err := os.Stat(m)
		if err != nil || fi.IsDir() {
			continue
		}
		files = append(files, m)
	}
	if len(files) == 0 {
		return nil, &IOError{Op: "list", Path: dir, Err: fmt.Errorf("%w matching %s", ErrNoInputFiles, glob)}
	}
	sort.Strings(files)
	return files, nil
}

func parseHeaderFile(path string) (*Metadata, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	md, dataStart, err := ParseHeader(f)
	if err != nil {
		var ferr *FormatError
		if errors.As(err, &ferr) {
			ferr.Path = path
			return nil, 0, ferr
		}
		return nil, 0, &IOError{Op: "read", Path: path, Err: err}
	}
	return md, dataStart, nil
}

func (in *Ingester) readReadings(path string, dataStart int, sensorID, deploymentID int64) ([]model.Reading, []*ParseError, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, &IOError{Op: "open", Path: path, Err: err}
	}
	defer f.Close()

	rows, err := ReadRows(f, dataStart)
	if err != nil {
		return nil, nil, &IOError{Op: "read", Path: path, Err: err}
	}

	readings := make([]model.Reading, 0, len(rows))
	var rowErrs []*ParseError
	for _, row := range rows {
		r, err := ConvertRow(in.norm, row)
		if err != nil {
			rowErrs = append(rowErrs, err)
			continue
		}
		r.SensorID = sensorID
		r.DeploymentID = deploymentID
		readings = append(readings, r)
	}
	return readings, rowErrs, nil
}

// ConvertRow turns one data row into a reading without owner ids.
func ConvertRow(norm *timestamp.Normalizer, row Row) (model.Reading, *ParseError) {
	utc, err := norm.ToUTC(row.TimeText)
	if err != nil {
		return model.Reading{}, &ParseError{Line: row.Line, Err: err}
	}
	v, err := strconv.ParseFloat(row.ValueText, 64)
	if err != nil {
		return model.Reading{}, &ParseError{Line: row.Line, Err: fmt.Errorf("invalid value %q", row.ValueText)}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return model.Reading{}, &ParseError{Line: row.Line, Err: fmt.Errorf("non-finite value %q", row.ValueText)}
	}
	return model.Reading{
		TimeLocalText: row.TimeText,
		TimeUTC:       utc,
		ValueC:        v,
		QualityFlag:   model.QualityGood,
	}, nil
}
