// Package model defines all shared domain types for tempdb.
package model

import "time"

// QualityGood is the quality flag assigned to every reading parsed from a
// logger export. Other codes are reserved.
const QualityGood = 0

// Sensor is a physical logging device, keyed by its registration number.
type Sensor struct {
	ID                 int64  `db:"sensor_id" json:"sensor_id"`
	Type               string `db:"sensor_type" json:"sensor_type"`
	PartNumber         string `db:"part_number" json:"part_number"`
	RegistrationNumber string `db:"registration_number" json:"registration_number"`
	Label              string `db:"label" json:"label"`
}

// Deployment is a named collection campaign at one site.
type Deployment struct {
	ID       int64  `db:"deployment_id" json:"deployment_id"`
	Name     string `db:"name" json:"name"`
	Site     string `db:"site" json:"site"`
	Timezone string `db:"timezone_name" json:"timezone_name"`
	Notes    string `db:"notes" json:"notes"`
}

// SensorDeployment carries deployment-specific context for one sensor.
type SensorDeployment struct {
	SensorID      int64  `db:"sensor_id" json:"sensor_id"`
	DeploymentID  int64  `db:"deployment_id" json:"deployment_id"`
	LocationNotes string `db:"location_notes" json:"location_notes"`
	Notes         string `db:"notes" json:"notes"`
}

// IngestedFile records one successfully processed input file.
type IngestedFile struct {
	ID           int64     `db:"file_id" json:"file_id"`
	DeploymentID int64     `db:"deployment_id" json:"deployment_id"`
	SensorID     int64     `db:"sensor_id" json:"sensor_id"`
	Path         string    `db:"path" json:"path"`
	SHA256       string    `db:"sha256" json:"sha256"`
	MetadataJSON string    `db:"metadata_json" json:"metadata_json"`
	RunID        string    `db:"ingest_run_id" json:"ingest_run_id"`
	IngestedAt   time.Time `db:"-" json:"ingested_at"`
}

// Reading is a single temperature observation.
type Reading struct {
	FileID        int64   `json:"file_id"`
	DeploymentID  int64   `json:"deployment_id"`
	SensorID      int64   `json:"sensor_id"`
	TimeLocalText string  `json:"time_local_text"`
	TimeUTC       int64   `json:"time_utc"`
	ValueC        float64 `json:"value_c"`
	QualityFlag   int     `json:"quality_flag"`
}

// ReadingRow is a reading joined with its sensor and deployment, as returned
// by the read path.
type ReadingRow struct {
	TimeUTC            int64   `db:"time_utc" json:"time_utc"`
	TimeUTCISO         string  `db:"time_utc_iso" json:"time_utc_iso"`
	TimeLocalText      string  `db:"time_local_text" json:"time_local_text"`
	ValueC             float64 `db:"value_c" json:"value_c"`
	SensorRegistration string  `db:"sensor_registration" json:"sensor_registration"`
	SensorLabel        string  `db:"sensor_label" json:"sensor_label"`
	DeploymentName     string  `db:"deployment_name" json:"deployment_name"`
	Site               string  `db:"site" json:"site"`
	QualityFlag        int     `db:"quality_flag" json:"quality_flag"`
}

// DeploymentSummary is one row of the deployment listing.
type DeploymentSummary struct {
	ID              int64  `db:"deployment_id" json:"deployment_id"`
	Name            string `db:"name" json:"name"`
	Site            string `db:"site" json:"site"`
	Timezone        string `db:"timezone_name" json:"timezone_name"`
	Notes           string `db:"notes" json:"notes"`
	NumSensors      int64  `db:"num_sensors" json:"num_sensors"`
	NumReadings     int64  `db:"num_readings" json:"num_readings"`
	FirstReadingUTC *int64 `db:"first_reading_utc" json:"first_reading_utc"`
	LastReadingUTC  *int64 `db:"last_reading_utc" json:"last_reading_utc"`
}

// SensorSummary is one row of the sensor listing.
type SensorSummary struct {
	ID                 int64  `db:"sensor_id" json:"sensor_id"`
	Type               string `db:"sensor_type" json:"sensor_type"`
	PartNumber         string `db:"part_number" json:"part_number"`
	RegistrationNumber string `db:"registration_number" json:"registration_number"`
	Label              string `db:"label" json:"label"`
	NumDeployments     int64  `db:"num_deployments" json:"num_deployments"`
	NumReadings        int64  `db:"num_readings" json:"num_readings"`
}

// DeploymentSensor is a sensor as it participated in one deployment.
type DeploymentSensor struct {
	ID                 int64  `db:"sensor_id" json:"sensor_id"`
	Label              string `db:"label" json:"label"`
	RegistrationNumber string `db:"registration_number" json:"registration_number"`
	Location           string `db:"location" json:"location"`
	Notes              string `db:"notes" json:"notes"`
	NumReadings        int64  `db:"num_readings" json:"num_readings"`
	FirstReadingUTC    *int64 `db:"first_reading_utc" json:"first_reading_utc"`
	LastReadingUTC     *int64 `db:"last_reading_utc" json:"last_reading_utc"`
}

// FileSummary is one row of the file ingestion summary view.
type FileSummary struct {
	ID                 int64  `db:"file_id" json:"file_id"`
	Path               string `db:"path" json:"path"`
	DeploymentName     string `db:"deployment_name" json:"deployment_name"`
	SensorRegistration string `db:"sensor_registration" json:"sensor_registration"`
	SensorLabel        string `db:"sensor_label" json:"sensor_label"`
	SHA256             string `db:"sha256" json:"sha256"`
	RunID              string `db:"ingest_run_id" json:"ingest_run_id"`
	IngestedAt         int64  `db:"ingested_at" json:"ingested_at"`
	NumReadings        int64  `db:"num_readings" json:"num_readings"`
	FirstReadingUTC    *int64 `db:"first_reading_utc" json:"first_reading_utc"`
	LastReadingUTC     *int64 `db:"last_reading_utc" json:"last_reading_utc"`
}

// Notification is a structured message about an ingestion run.
type Notification struct {
	Kind      string            `json:"kind"`
	Severity  string            `json:"severity"` // "info", "warning", "critical"
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	RunID     string            `json:"run_id"`
	Subject   string            `json:"subject"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

// StoreStats holds row counts for the main tables.
type StoreStats struct {
	Sensors     int64 `db:"sensors" json:"sensors"`
	Deployments int64 `db:"deployments" json:"deployments"`
	Files       int64 `db:"files" json:"files"`
	Readings    int64 `db:"readings" json:"readings"`
}
