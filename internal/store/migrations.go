package store

// requiredTables must all exist before ingestion or queries run.
var requiredTables = []string{
	"sensors",
	"deployments",
	"sensor_deployments",
	"files",
	"temperature_readings",
}

const schema = `
-- Physical loggers, keyed by manufacturer registration number
CREATE TABLE IF NOT EXISTS sensors (
    sensor_id           INTEGER PRIMARY KEY AUTOINCREMENT,
    sensor_type         TEXT    NOT NULL,
    part_number         TEXT,
    registration_number TEXT    NOT NULL UNIQUE CHECK (registration_number <> ''),
    label               TEXT
);

-- Collection campaigns
CREATE TABLE IF NOT EXISTS deployments (
    deployment_id INTEGER PRIMARY KEY AUTOINCREMENT,
    name          TEXT    NOT NULL UNIQUE,
    site          TEXT    NOT NULL,
    timezone_name TEXT    NOT NULL,
    notes         TEXT
);

-- Per-deployment context for a sensor (upserted on every file)
CREATE TABLE IF NOT EXISTS sensor_deployments (
    sensor_deployment_id INTEGER PRIMARY KEY AUTOINCREMENT,
    sensor_id            INTEGER NOT NULL REFERENCES sensors(sensor_id),
    deployment_id        INTEGER NOT NULL REFERENCES deployments(deployment_id),
    location_notes       TEXT,
    notes                TEXT,
    UNIQUE (sensor_id, deployment_id)
);

-- One row per ingested input file; sha256 is the idempotency key
CREATE TABLE IF NOT EXISTS files (
    file_id       INTEGER PRIMARY KEY AUTOINCREMENT,
    deployment_id INTEGER NOT NULL REFERENCES deployments(deployment_id),
    sensor_id     INTEGER NOT NULL REFERENCES sensors(sensor_id),
    path          TEXT    NOT NULL,
    sha256        TEXT    NOT NULL UNIQUE,
    metadata_json TEXT    NOT NULL,
    ingest_run_id TEXT,
    ingested_at   INTEGER NOT NULL
);

-- Temperature observations (immutable)
CREATE TABLE IF NOT EXISTS temperature_readings (
    reading_id      INTEGER PRIMARY KEY AUTOINCREMENT,
    file_id         INTEGER NOT NULL REFERENCES files(file_id),
    deployment_id   INTEGER NOT NULL REFERENCES deployments(deployment_id),
    sensor_id       INTEGER NOT NULL REFERENCES sensors(sensor_id),
    time_local_text TEXT    NOT NULL,
    time_utc        INTEGER NOT NULL,
    value_c         REAL    NOT NULL,
    quality_flag    INTEGER NOT NULL DEFAULT 0
);

-- A reading's sensor and deployment must be those of its file
CREATE TRIGGER IF NOT EXISTS trg_readings_match_file
BEFORE INSERT ON temperature_readings
FOR EACH ROW
WHEN NOT EXISTS (
    SELECT 1 FROM files f
    WHERE f.file_id = NEW.file_id
      AND f.sensor_id = NEW.sensor_id
      AND f.deployment_id = NEW.deployment_id
)
BEGIN
    SELECT RAISE(ABORT, 'reading sensor/deployment does not match its file');
END;

CREATE VIEW IF NOT EXISTS v_file_summary AS
SELECT
    f.file_id,
    f.path,
    d.name                       AS deployment_name,
    s.registration_number        AS sensor_registration,
    COALESCE(s.label, '')        AS sensor_label,
    f.sha256,
    COALESCE(f.ingest_run_id, '') AS ingest_run_id,
    f.ingested_at,
    COUNT(tr.reading_id)         AS num_readings,
    MIN(tr.time_utc)             AS first_reading_utc,
    MAX(tr.time_utc)             AS last_reading_utc
FROM files f
JOIN deployments d ON f.deployment_id = d.deployment_id
JOIN sensors s     ON f.sensor_id = s.sensor_id
LEFT JOIN temperature_readings tr ON tr.file_id = f.file_id
GROUP BY f.file_id;

-- Secondary indexes
CREATE INDEX IF NOT EXISTS idx_readings_deployment_time ON temperature_readings(deployment_id, time_utc);
CREATE INDEX IF NOT EXISTS idx_readings_sensor_time ON temperature_readings(sensor_id, time_utc);
CREATE INDEX IF NOT EXISTS idx_readings_file ON temperature_readings(file_id);
CREATE INDEX IF NOT EXISTS idx_readings_time ON temperature_readings(time_utc);
`
