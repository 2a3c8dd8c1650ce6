// Package config handles loading and validating tempdb configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} placeholders in config values.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ErrConfigFileNotFound is returned by Load when the specified config file does not exist.
var ErrConfigFileNotFound = errors.New("config file not found")

// Config is the top-level tempdb configuration.
type Config struct {
	DBPath          string               `yaml:"db_path"`
	LogLevel        string               `yaml:"log_level"`
	LogFormat       string               `yaml:"log_format"`
	DefaultTimezone string               `yaml:"default_timezone"`
	FileGlob        string               `yaml:"file_glob"`
	SensorType      string               `yaml:"sensor_type"`
	Listen          string               `yaml:"listen"`
	ShutdownTimeout Duration             `yaml:"shutdown_timeout"`
	MetricsTextfile string               `yaml:"metrics_textfile"`
	Auth            AuthConfig           `yaml:"auth"`
	Notifications   []NotificationConfig `yaml:"notifications"`
}

// AuthConfig enables HTTP basic auth on the query server when both fields
// are set.
type AuthConfig struct {
	Username     string `yaml:"username"`
	PasswordHash string `yaml:"password_hash"` // bcrypt
}

// Enabled reports whether basic auth is configured.
func (a AuthConfig) Enabled() bool {
	return a.Username != "" && a.PasswordHash != ""
}

// NotificationConfig describes a notification target.
type NotificationConfig struct {
	Type    string            `yaml:"type"` // "ntfy" or "webhook"
	URL     string            `yaml:"url"`
	Topic   string            `yaml:"topic,omitempty"`   // ntfy only
	Method  string            `yaml:"method,omitempty"`  // webhook only
	Headers map[string]string `yaml:"headers,omitempty"` // webhook only
}

// Duration wraps time.Duration with YAML string parsing support.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// Load reads configuration from a YAML file. With no path, defaults and
// TEMPDB_* environment variables are used. If a path is given and the file
// does not exist, ErrConfigFileNotFound is returned.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
		}
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(expandEnvVars(data), cfg); err != nil {
				return nil, fmt.Errorf("parsing config: %w", err)
			}
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("db_path is required")
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("log_level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.LogFormat] {
		return fmt.Errorf("log_format must be one of: text, json")
	}
	if _, err := time.LoadLocation(c.DefaultTimezone); err != nil || c.DefaultTimezone == "" {
		return fmt.Errorf("default_timezone %q is not a valid IANA zone", c.DefaultTimezone)
	}
	if c.FileGlob == "" {
		return fmt.Errorf("file_glob is required")
	}
	if _, err := filepath.Match(c.FileGlob, ""); err != nil {
		return fmt.Errorf("file_glob %q: %w", c.FileGlob, err)
	}
	if c.SensorType == "" {
		return fmt.Errorf("sensor_type is required")
	}
	if c.ShutdownTimeout.Duration <= 0 {
		return fmt.Errorf("shutdown_timeout must be > 0")
	}

	if (c.Auth.Username == "") != (c.Auth.PasswordHash == "") {
		return fmt.Errorf("auth: username and password_hash must be set together")
	}
	if c.Auth.PasswordHash != "" {
		if _, err := bcrypt.Cost([]byte(c.Auth.PasswordHash)); err != nil {
			return fmt.Errorf("auth: password_hash is not a bcrypt hash: %w", err)
		}
	}

	for i, n := range c.Notifications {
		switch n.Type {
		case "ntfy":
			if n.URL == "" {
				return fmt.Errorf("notifications[%d]: url is required for ntfy", i)
			}
			if n.Topic == "" {
				return fmt.Errorf("notifications[%d]: topic is required for ntfy", i)
			}
		case "webhook":
			if n.URL == "" {
				return fmt.Errorf("notifications[%d]: url is required for webhook", i)
			}
		default:
			return fmt.Errorf("notifications[%d]: unknown type %q (expected ntfy or webhook)", i, n.Type)
		}
		if _, err := url.Parse(n.URL); err != nil {
			return fmt.Errorf("notifications[%d]: invalid url: %w", i, err)
		}
	}
	return nil
}

func defaults() *Config {
	return &Config{
		DBPath:          "tempdb.db",
		LogLevel:        "info",
		LogFormat:       "text",
		DefaultTimezone: "America/New_York",
		FileGlob:        "*.csv",
		SensorType:      "ibutton_ds1925",
		Listen:          ":3900",
		ShutdownTimeout: Duration{10 * time.Second},
	}
}

// expandEnvVars replaces ${VAR_NAME} placeholders in raw YAML with the
// corresponding environment variable values. Unset variables are replaced
// with an empty string, which will then fail validation with a clear error.
func expandEnvVars(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		key := string(match[2 : len(match)-1]) // strip ${ and }
		return []byte(os.Getenv(key))
	})
}

func applyEnvOverrides(cfg *Config) {
	for env, field := range map[string]*string{
		"TEMPDB_DB_PATH":            &cfg.DBPath,
		"TEMPDB_LOG_LEVEL":          &cfg.LogLevel,
		"TEMPDB_LOG_FORMAT":         &cfg.LogFormat,
		"TEMPDB_TIMEZONE":           &cfg.DefaultTimezone,
		"TEMPDB_FILE_GLOB":          &cfg.FileGlob,
		"TEMPDB_LISTEN":             &cfg.Listen,
		"TEMPDB_METRICS_TEXTFILE":   &cfg.MetricsTextfile,
		"TEMPDB_AUTH_USERNAME":      &cfg.Auth.Username,
		"TEMPDB_AUTH_PASSWORD_HASH": &cfg.Auth.PasswordHash,
	} {
		if v := os.Getenv(env); v != "" {
			*field = v
		}
	}

	// Single ntfy target from env vars (only if no YAML notifications configured).
	if len(cfg.Notifications) == 0 {
		if ntfyURL := os.Getenv("TEMPDB_NTFY_URL"); ntfyURL != "" {
			topic := os.Getenv("TEMPDB_NTFY_TOPIC")
			if topic == "" {
				topic = "tempdb-ingest"
			}
			cfg.Notifications = append(cfg.Notifications, NotificationConfig{
				Type:  "ntfy",
				URL:   ntfyURL,
				Topic: topic,
			})
		}
	}
}
