package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/darshan-rambhia/tempdb/internal/model"
)

// ErrUnboundedQuery is returned when a readings query names neither a
// deployment nor a sensor and lacks a complete time range.
var ErrUnboundedQuery = errors.New("query needs a deployment, a sensor, or both start and end")

// ReadingFilter narrows a readings query. Start and End are inclusive UTC
// epoch seconds.
type ReadingFilter struct {
	Deployment string
	Sensor     string // registration number
	Start      *int64
	End        *int64
	Limit      int
}

const readingColumns = `
	tr.time_utc,
	strftime('%Y-%m-%dT%H:%M:%SZ', tr.time_utc, 'unixepoch') AS time_utc_iso,
	tr.time_local_text,
	tr.value_c,
	s.registration_number AS sensor_registration,
	COALESCE(s.label, '') AS sensor_label,
	d.name AS deployment_name,
	d.site,
	tr.quality_flag`

// QueryReadings returns readings matching the filter ordered by time, then
// deployment name, then sensor registration.
func (s *Store) QueryReadings(f ReadingFilter) ([]model.ReadingRow, error) {
	if f.Deployment == "" && f.Sensor == "" && (f.Start == nil || f.End == nil) {
		return nil, ErrUnboundedQuery
	}

	var where []string
	var args []any
	if f.Deployment != "" {
		where = append(where, "d.name = ?")
		args = append(args, f.Deployment)
	}
	if f.Sensor != "" {
		where = append(where, "s.registration_number = ?")
		args = append(args, f.Sensor)
	}
	if f.Start != nil {
		where = append(where, "tr.time_utc >= ?")
		args = append(args, *f.Start)
	}
	if f.End != nil {
		where = append(where, "tr.time_utc <= ?")
		args = append(args, *f.End)
	}

	q := `SELECT ` + readingColumns + `
		FROM temperature_readings tr
		JOIN sensors s ON tr.sensor_id = s.sensor_id
		JOIN deployments d ON tr.deployment_id = d.deployment_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY tr.time_utc, d.name, s.registration_number`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	var rows []model.ReadingRow
	if err := s.db.Select(&rows, q, args...); err != nil {
		return nil, fmt.Errorf("querying readings: %w", err)
	}
	return rows, nil
}

// ListDeployments returns every deployment with sensor and reading counts.
func (s *Store) ListDeployments() ([]model.DeploymentSummary, error) {
	var out []model.DeploymentSummary
	err := s.db.Select(&out, `
		SELECT
			d.deployment_id,
			d.name,
			d.site,
			d.timezone_name,
			COALESCE(d.notes, '')          AS notes,
			COUNT(DISTINCT tr.sensor_id)   AS num_sensors,
			COUNT(tr.reading_id)           AS num_readings,
			MIN(tr.time_utc)               AS first_reading_utc,
			MAX(tr.time_utc)               AS last_reading_utc
		FROM deployments d
		LEFT JOIN temperature_readings tr ON tr.deployment_id = d.deployment_id
		GROUP BY d.deployment_id
		ORDER BY d.name`)
	if err != nil {
		return nil, fmt.Errorf("listing deployments: %w", err)
	}
	return out, nil
}

// ListSensors returns every sensor with deployment and reading counts.
func (s *Store) ListSensors() ([]model.SensorSummary, error) {
	var out []model.SensorSummary
	err := s.db.Select(&out, `
		SELECT
			s.sensor_id,
			s.sensor_type,
			COALESCE(s.part_number, '')      AS part_number,
			s.registration_number,
			COALESCE(s.label, '')            AS label,
			COUNT(DISTINCT tr.deployment_id) AS num_deployments,
			COUNT(tr.reading_id)             AS num_readings
		FROM sensors s
		LEFT JOIN temperature_readings tr ON tr.sensor_id = s.sensor_id
		GROUP BY s.sensor_id
		ORDER BY s.registration_number`)
	if err != nil {
		return nil, fmt.Errorf("listing sensors: %w", err)
	}
	return out, nil
}

// ListDeploymentSensors returns the sensors associated with a deployment.
// It returns ErrNotFound when the deployment does not exist.
func (s *Store) ListDeploymentSensors(deployment string) ([]model.DeploymentSensor, error) {
	d, err := s.DeploymentByName(deployment)
	if err != nil {
		return nil, err
	}

	var out []model.DeploymentSensor
	err = s.db.Select(&out, `
		SELECT
			s.sensor_id,
			COALESCE(s.label, '')             AS label,
			s.registration_number,
			COALESCE(sd.location_notes, '')   AS location,
			COALESCE(sd.notes, '')            AS notes,
			COUNT(tr.reading_id)              AS num_readings,
			MIN(tr.time_utc)                  AS first_reading_utc,
			MAX(tr.time_utc)                  AS last_reading_utc
		FROM sensor_deployments sd
		JOIN sensors s ON sd.sensor_id = s.sensor_id
		LEFT JOIN temperature_readings tr
			ON tr.sensor_id = sd.sensor_id AND tr.deployment_id = sd.deployment_id
		WHERE sd.deployment_id = ?
		GROUP BY s.sensor_id
		ORDER BY COALESCE(s.label, ''), s.registration_number`, d.ID)
	if err != nil {
		return nil, fmt.Errorf("listing sensors for deployment %s: %w", deployment, err)
	}
	return out, nil
}

// FileSummary returns one row per ingested file, oldest first.
func (s *Store) FileSummary() ([]model.FileSummary, error) {
	var out []model.FileSummary
	err := s.db.Select(&out, `
		SELECT file_id, path, deployment_name, sensor_registration, sensor_label,
		       sha256, ingest_run_id, ingested_at, num_readings,
		       first_reading_utc, last_reading_utc
		FROM v_file_summary
		ORDER BY file_id`)
	if err != nil {
		return nil, fmt.Errorf("querying file summary: %w", err)
	}
	return out, nil
}
