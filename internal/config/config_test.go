package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func writeYAML(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "tempdb.yml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"TEMPDB_DB_PATH", "TEMPDB_LOG_LEVEL", "TEMPDB_LOG_FORMAT",
		"TEMPDB_TIMEZONE", "TEMPDB_FILE_GLOB", "TEMPDB_LISTEN",
		"TEMPDB_METRICS_TEXTFILE", "TEMPDB_AUTH_USERNAME", "TEMPDB_AUTH_PASSWORD_HASH",
		"TEMPDB_NTFY_URL", "TEMPDB_NTFY_TOPIC",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func hashPassword(t *testing.T, pw string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

const fullYAML = `
db_path: "/var/lib/tempdb/field.db"
log_level: "debug"
log_format: "json"
default_timezone: "America/Anchorage"
file_glob: "*_iButton_*.csv"
sensor_type: "ibutton_ds1922"
listen: "127.0.0.1:9000"
shutdown_timeout: "30s"
metrics_textfile: "/var/lib/node_exporter/tempdb.prom"

notifications:
  - type: ntfy
    url: "http://10.100.1.104:8080"
    topic: "field-ingest"
  - type: webhook
    url: "https://hooks.example.com/tempdb"
    method: "POST"
    headers:
      Authorization: "Bearer xxx"
`

func TestLoad_FromYAML(t *testing.T) {
	clearEnv(t)
	path := writeYAML(t, fullYAML)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/var/lib/tempdb/field.db", cfg.DBPath)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "America/Anchorage", cfg.DefaultTimezone)
	assert.Equal(t, "*_iButton_*.csv", cfg.FileGlob)
	assert.Equal(t, "ibutton_ds1922", cfg.SensorType)
	assert.Equal(t, "127.0.0.1:9000", cfg.Listen)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout.Duration)
	assert.Equal(t, "/var/lib/node_exporter/tempdb.prom", cfg.MetricsTextfile)
	assert.False(t, cfg.Auth.Enabled())

	require.Len(t, cfg.Notifications, 2)
	assert.Equal(t, "ntfy", cfg.Notifications[0].Type)
	assert.Equal(t, "field-ingest", cfg.Notifications[0].Topic)
	assert.Equal(t, "webhook", cfg.Notifications[1].Type)
	assert.Equal(t, "Bearer xxx", cfg.Notifications[1].Headers["Authorization"])
}

func TestLoad_FileNotFound(t *testing.T) {
	clearEnv(t)
	_, err := Load("/nonexistent/path/tempdb.yml")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrConfigFileNotFound)
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "tempdb.db", cfg.DBPath)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, "America/New_York", cfg.DefaultTimezone)
	assert.Equal(t, "*.csv", cfg.FileGlob)
	assert.Equal(t, "ibutton_ds1925", cfg.SensorType)
	assert.Equal(t, ":3900", cfg.Listen)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout.Duration)
	assert.Empty(t, cfg.Notifications)
}

func TestLoad_EmptyFile(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(writeYAML(t, ""))
	require.NoError(t, err)
	assert.Equal(t, "tempdb.db", cfg.DBPath)
}

func TestLoad_EnvVarSubstitution(t *testing.T) {
	clearEnv(t)
	hash := hashPassword(t, "field-team")
	t.Setenv("TEMPDB_TEST_HASH", hash)
	t.Setenv("TEMPDB_TEST_DIR", "/srv/data")

	path := writeYAML(t, `
db_path: "${TEMPDB_TEST_DIR}/temps.db"
auth:
  username: "field"
  password_hash: "${TEMPDB_TEST_HASH}"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/data/temps.db", cfg.DBPath)
	assert.Equal(t, hash, cfg.Auth.PasswordHash)
	assert.True(t, cfg.Auth.Enabled())
}

func TestLoad_EnvVarSubstitution_Unset(t *testing.T) {
	clearEnv(t)

	path := writeYAML(t, `
auth:
  username: "field"
  password_hash: "${TEMPDB_UNSET_HASH}"
`)
	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "username and password_hash must be set together")
}

func TestLoad_FromEnvVars(t *testing.T) {
	clearEnv(t)

	t.Setenv("TEMPDB_DB_PATH", "/tmp/env.db")
	t.Setenv("TEMPDB_LOG_LEVEL", "warn")
	t.Setenv("TEMPDB_LOG_FORMAT", "json")
	t.Setenv("TEMPDB_TIMEZONE", "Europe/Berlin")
	t.Setenv("TEMPDB_FILE_GLOB", "*.txt")
	t.Setenv("TEMPDB_LISTEN", ":4000")
	t.Setenv("TEMPDB_METRICS_TEXTFILE", "/tmp/tempdb.prom")
	t.Setenv("TEMPDB_NTFY_URL", "http://ntfy:8080")
	t.Setenv("TEMPDB_NTFY_TOPIC", "test-ingest")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/tmp/env.db", cfg.DBPath)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "Europe/Berlin", cfg.DefaultTimezone)
	assert.Equal(t, "*.txt", cfg.FileGlob)
	assert.Equal(t, ":4000", cfg.Listen)
	assert.Equal(t, "/tmp/tempdb.prom", cfg.MetricsTextfile)

	require.Len(t, cfg.Notifications, 1)
	assert.Equal(t, "ntfy", cfg.Notifications[0].Type)
	assert.Equal(t, "test-ingest", cfg.Notifications[0].Topic)
}

func TestLoad_EnvOverridesYAMLScalars(t *testing.T) {
	clearEnv(t)
	path := writeYAML(t, fullYAML)

	t.Setenv("TEMPDB_LISTEN", ":5555")
	t.Setenv("TEMPDB_LOG_LEVEL", "error")
	t.Setenv("TEMPDB_NTFY_URL", "http://ignored:8080")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":5555", cfg.Listen)
	assert.Equal(t, "error", cfg.LogLevel)
	// Notifications from YAML are kept (env ntfy only applies when YAML has none).
	require.Len(t, cfg.Notifications, 2)
	assert.Equal(t, "field-ingest", cfg.Notifications[0].Topic)
}

func TestLoad_NtfyDefaultTopic(t *testing.T) {
	clearEnv(t)
	t.Setenv("TEMPDB_NTFY_URL", "http://ntfy:8080")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Len(t, cfg.Notifications, 1)
	assert.Equal(t, "tempdb-ingest", cfg.Notifications[0].Topic)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"empty db path", func(c *Config) { c.DBPath = "" }, "db_path is required"},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, "log_level must be one of"},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }, "log_format must be one of"},
		{"bad timezone", func(c *Config) { c.DefaultTimezone = "Mars/Olympus" }, "not a valid IANA zone"},
		{"empty timezone", func(c *Config) { c.DefaultTimezone = "" }, "not a valid IANA zone"},
		{"empty glob", func(c *Config) { c.FileGlob = "" }, "file_glob is required"},
		{"bad glob", func(c *Config) { c.FileGlob = "[" }, "file_glob"},
		{"empty sensor type", func(c *Config) { c.SensorType = "" }, "sensor_type is required"},
		{"zero shutdown timeout", func(c *Config) { c.ShutdownTimeout = Duration{} }, "shutdown_timeout must be > 0"},
		{"username without hash", func(c *Config) { c.Auth.Username = "u" }, "must be set together"},
		{"hash without username", func(c *Config) { c.Auth.PasswordHash = "x" }, "must be set together"},
		{"plaintext password", func(c *Config) { c.Auth = AuthConfig{Username: "u", PasswordHash: "hunter2"} }, "not a bcrypt hash"},
		{
			"ntfy missing url",
			func(c *Config) { c.Notifications = []NotificationConfig{{Type: "ntfy", Topic: "t"}} },
			"notifications[0]: url is required for ntfy",
		},
		{
			"ntfy missing topic",
			func(c *Config) { c.Notifications = []NotificationConfig{{Type: "ntfy", URL: "http://x"}} },
			"notifications[0]: topic is required for ntfy",
		},
		{
			"webhook missing url",
			func(c *Config) { c.Notifications = []NotificationConfig{{Type: "webhook"}} },
			"notifications[0]: url is required for webhook",
		},
		{
			"unknown notification type",
			func(c *Config) { c.Notifications = []NotificationConfig{{Type: "email", URL: "x"}} },
			`unknown type "email"`,
		},
		{
			"invalid url",
			func(c *Config) { c.Notifications = []NotificationConfig{{Type: "webhook", URL: "http://bad host\x7f"}} },
			"invalid url",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_BcryptAuth(t *testing.T) {
	cfg := validConfig()
	cfg.Auth = AuthConfig{Username: "field", PasswordHash: hashPassword(t, "pw")}
	assert.NoError(t, cfg.Validate())
	assert.True(t, cfg.Auth.Enabled())
}

func TestLoad_InvalidYAML(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeYAML(t, "db_path: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing config")
}

func TestLoad_InvalidDuration(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeYAML(t, `shutdown_timeout: "soon"`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestLoad_ValidationFails(t *testing.T) {
	clearEnv(t)
	_, err := Load(writeYAML(t, `log_level: "loud"`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config validation")
}

func TestDuration_MarshalYAML(t *testing.T) {
	d := Duration{90 * time.Second}
	v, err := d.MarshalYAML()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", v)
}

func FuzzExpandEnvVars(f *testing.F) {
	f.Add([]byte(`listen: ":3900"`))
	f.Add([]byte(`password_hash: "${TEMPDB_HASH}"`))
	f.Add([]byte(`${} ${VAR} $VAR`))
	f.Add([]byte(`db_path: "${A}${B}"`))
	f.Fuzz(func(t *testing.T, data []byte) {
		// Must not panic
		_ = expandEnvVars(data)
	})
}

// validConfig returns a minimal valid Config for mutation in tests.
func validConfig() *Config {
	return defaults()
}
