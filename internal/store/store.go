// Package store provides SQLite persistence for tempdb.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/darshan-rambhia/tempdb/internal/model"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by point lookups that match no row.
var ErrNotFound = errors.New("not found")

// ErrSchemaMissing is returned by CheckSchema when the database has not been
// initialized.
var ErrSchemaMissing = errors.New("database schema not initialized")

// Store wraps a SQLite database for sensor, deployment and reading data.
type Store struct {
	db *sqlx.DB
}

// Open opens or creates a SQLite database at the given path without touching
// its schema. The store holds a single connection.
func Open(dbPath string) (*Store, error) {
	dsn := dbPath + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", dbPath, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}
	return &Store{db: db}, nil
}

// New opens the database and applies the schema.
func New(dbPath string) (*Store, error) {
	s, err := Open(dbPath)
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

// Migrate creates any missing tables, views, triggers and indexes.
func (s *Store) Migrate() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// CheckSchema returns ErrSchemaMissing unless every required table exists.
func (s *Store) CheckSchema() error {
	for _, name := range requiredTables {
		var n int
		err := s.db.Get(&n, `SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name)
		if err != nil {
			return fmt.Errorf("checking schema: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("%w: table %s is missing", ErrSchemaMissing, name)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SensorByRegistration looks up a sensor by its registration number.
func (s *Store) SensorByRegistration(reg string) (*model.Sensor, error) {
	var sensor model.Sensor
	err := s.db.Get(&sensor, `
		SELECT sensor_id, sensor_type, COALESCE(part_number, '') AS part_number,
		       registration_number, COALESCE(label, '') AS label
		FROM sensors WHERE registration_number = ?`, reg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying sensor %s: %w", reg, err)
	}
	return &sensor, nil
}

// CreateSensor inserts a sensor and returns its id.
func (s *Store) CreateSensor(sensor *model.Sensor) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO sensors (sensor_type, part_number, registration_number, label)
		VALUES (?, ?, ?, ?)`,
		sensor.Type, nullIfEmpty(sensor.PartNumber), sensor.RegistrationNumber, nullIfEmpty(sensor.Label),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting sensor %s: %w", sensor.RegistrationNumber, err)
	}
	return res.LastInsertId()
}

// UpdateSensorLabel sets the label of an existing sensor.
func (s *Store) UpdateSensorLabel(sensorID int64, label string) error {
	_, err := s.db.Exec(`UPDATE sensors SET label = ? WHERE sensor_id = ?`, nullIfEmpty(label), sensorID)
	if err != nil {
		return fmt.Errorf("updating sensor %d label: %w", sensorID, err)
	}
	return nil
}

// DeploymentByName looks up a deployment by its unique name.
func (s *Store) DeploymentByName(name string) (*model.Deployment, error) {
	var d model.Deployment
	err := s.db.Get(&d, `
		SELECT deployment_id, name, site, timezone_name, COALESCE(notes, '') AS notes
		FROM deployments WHERE name = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying deployment %s: %w", name, err)
	}
	return &d, nil
}

// CreateDeployment inserts a deployment and returns its id.
func (s *Store) CreateDeployment(d *model.Deployment) (int64, error) {
	res, err := s.db.Exec(`
		INSERT INTO deployments (name, site, timezone_name, notes)
		VALUES (?, ?, ?, ?)`,
		d.Name, d.Site, d.Timezone, nullIfEmpty(d.Notes),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting deployment %s: %w", d.Name, err)
	}
	return res.LastInsertId()
}

// UpdateDeploymentNotes overwrites the notes of an existing deployment.
func (s *Store) UpdateDeploymentNotes(deploymentID int64, notes string) error {
	_, err := s.db.Exec(`UPDATE deployments SET notes = ? WHERE deployment_id = ?`, nullIfEmpty(notes), deploymentID)
	if err != nil {
		return fmt.Errorf("updating deployment %d notes: %w", deploymentID, err)
	}
	return nil
}

// UpsertSensorDeployment inserts or overwrites the context of a sensor in a
// deployment.
func (s *Store) UpsertSensorDeployment(sd model.SensorDeployment) error {
	_, err := s.db.Exec(`
		INSERT INTO sensor_deployments (sensor_id, deployment_id, location_notes, notes)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(sensor_id, deployment_id) DO UPDATE SET
			location_notes = excluded.location_notes,
			notes = excluded.notes`,
		sd.SensorID, sd.DeploymentID, nullIfEmpty(sd.LocationNotes), nullIfEmpty(sd.Notes),
	)
	if err != nil {
		return fmt.Errorf("upserting sensor %d in deployment %d: %w", sd.SensorID, sd.DeploymentID, err)
	}
	return nil
}

// sensorDeployment returns the association between a sensor and deployment.
func (s *Store) sensorDeployment(sensorID, deploymentID int64) (*model.SensorDeployment, error) {
	var sd model.SensorDeployment
	err := s.db.Get(&sd, `
		SELECT sensor_id, deployment_id,
		       COALESCE(location_notes, '') AS location_notes, COALESCE(notes, '') AS notes
		FROM sensor_deployments WHERE sensor_id = ? AND deployment_id = ?`, sensorID, deploymentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying sensor deployment: %w", err)
	}
	return &sd, nil
}

// InsertFile records an ingested file and its readings in one transaction and
// returns the new file id. Reading file ids are set from the inserted row.
func (s *Store) InsertFile(f *model.IngestedFile, readings []model.Reading) (int64, error) {
	tx, err := s.db.Beginx()
	if err != nil {
		return 0, fmt.Errorf("beginning file transaction: %w", err)
	}
	defer tx.Rollback()

	ingestedAt := f.IngestedAt
	if ingestedAt.IsZero() {
		ingestedAt = time.Now()
	}
	res, err := tx.Exec(`
		INSERT INTO files (deployment_id, sensor_id, path, sha256, metadata_json, ingest_run_id, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		f.DeploymentID, f.SensorID, f.Path, f.SHA256, f.MetadataJSON, nullIfEmpty(f.RunID), ingestedAt.Unix(),
	)
	if err != nil {
		return 0, fmt.Errorf("inserting file %s: %w", f.Path, err)
	}
	fileID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading file id: %w", err)
	}

	stmt, err := tx.Preparex(`
		INSERT INTO temperature_readings
		(file_id, deployment_id, sensor_id, time_local_text, time_utc, value_c, quality_flag)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing reading insert: %w", err)
	}
	defer stmt.Close()

	for i := range readings {
		r := &readings[i]
		r.FileID = fileID
		if _, err := stmt.Exec(r.FileID, r.DeploymentID, r.SensorID, r.TimeLocalText, r.TimeUTC, r.ValueC, r.QualityFlag); err != nil {
			return 0, fmt.Errorf("inserting reading %q: %w", r.TimeLocalText, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing file %s: %w", f.Path, err)
	}
	f.ID = fileID
	return fileID, nil
}

// FileByHash returns the ingested file with the given content hash, or
// ErrNotFound.
func (s *Store) FileByHash(sha256 string) (*model.IngestedFile, error) {
	var f model.IngestedFile
	err := s.db.Get(&f, `
		SELECT file_id, deployment_id, sensor_id, path, sha256, metadata_json,
		       COALESCE(ingest_run_id, '') AS ingest_run_id
		FROM files WHERE sha256 = ?`, sha256)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying file %s: %w", sha256, err)
	}
	return &f, nil
}

// Stats returns row counts for the main tables.
func (s *Store) Stats() (model.StoreStats, error) {
	var st model.StoreStats
	err := s.db.Get(&st, `
		SELECT
			(SELECT COUNT(*) FROM sensors)              AS sensors,
			(SELECT COUNT(*) FROM deployments)          AS deployments,
			(SELECT COUNT(*) FROM files)                AS files,
			(SELECT COUNT(*) FROM temperature_readings) AS readings`)
	if err != nil {
		return st, fmt.Errorf("querying stats: %w", err)
	}
	return st, nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
