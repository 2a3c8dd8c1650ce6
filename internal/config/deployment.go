package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/darshan-rambhia/tempdb/internal/timestamp"
	"gopkg.in/yaml.v3"
)

// ErrMetadataInvalid is returned when a deployment metadata document cannot
// be decoded or holds invalid values.
var ErrMetadataInvalid = errors.New("invalid deployment metadata")

// ErrIncompleteDeployment is returned by ResolveIngest when no deployment
// name or site is available from any source.
var ErrIncompleteDeployment = errors.New("deployment and site are required")

// MetadataFileNames are the deployment document names looked for in an input
// directory, in order.
var MetadataFileNames = []string{
	"deployment_metadata.json",
	"deployment_metadata.yml",
	"deployment_metadata.yaml",
}

// DeploymentMetadata is the optional per-directory deployment document.
type DeploymentMetadata struct {
	Deployment          string                    `json:"deployment" yaml:"deployment"`
	Site                string                    `json:"site" yaml:"site"`
	Timezone            string                    `json:"timezone" yaml:"timezone"`
	TimezoneFixedOffset string                    `json:"timezone_fixed_offset" yaml:"timezone_fixed_offset"`
	DeploymentNotes     string                    `json:"deployment_notes" yaml:"deployment_notes"`
	Sensors             map[string]SensorMetadata `json:"sensors" yaml:"sensors"`
}

// SensorMetadata is the per-label entry of a deployment document.
type SensorMetadata struct {
	Location string `json:"location" yaml:"location"`
	Notes    string `json:"notes" yaml:"notes"`
}

// LoadDeploymentMetadata reads the first deployment document found in dir.
// It returns a nil document and empty path when none exists.
func LoadDeploymentMetadata(dir string) (*DeploymentMetadata, string, error) {
	for _, name := range MetadataFileNames {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return nil, "", fmt.Errorf("reading deployment metadata: %w", err)
		}

		var md DeploymentMetadata
		if filepath.Ext(name) == ".json" {
			err = json.Unmarshal(data, &md)
		} else {
			err = yaml.Unmarshal(data, &md)
		}
		if err != nil {
			return nil, path, fmt.Errorf("%w: %s: %v", ErrMetadataInvalid, path, err)
		}
		if err := md.Validate(); err != nil {
			return nil, path, fmt.Errorf("%w: %s: %v", ErrMetadataInvalid, path, err)
		}
		return &md, path, nil
	}
	return nil, "", nil
}

// Validate checks the timezone and fixed offset, when present.
func (m *DeploymentMetadata) Validate() error {
	if m.Timezone != "" {
		if _, err := time.LoadLocation(m.Timezone); err != nil {
			return fmt.Errorf("timezone %q: %w", m.Timezone, err)
		}
	}
	if m.TimezoneFixedOffset != "" {
		if _, err := timestamp.ParseOffset(m.TimezoneFixedOffset); err != nil {
			return err
		}
	}
	return nil
}

// IngestOverrides are values given explicitly on the command line. Empty
// fields are unset.
type IngestOverrides struct {
	Deployment  string
	Site        string
	Timezone    string
	FixedOffset string
	Notes       string
}

// IngestSettings are the effective settings for one ingestion run.
type IngestSettings struct {
	Deployment  string
	Site        string
	Timezone    string
	FixedOffset string
	Notes       string
	Sensors     map[string]SensorMetadata
}

// ResolveIngest merges command-line values, the deployment document (which
// may be nil) and config defaults, in that order of precedence. Per-sensor
// entries always come from the document.
func ResolveIngest(cfg *Config, doc *DeploymentMetadata, flags IngestOverrides) (IngestSettings, error) {
	if doc == nil {
		doc = &DeploymentMetadata{}
	}
	s := IngestSettings{
		Deployment:  first(flags.Deployment, doc.Deployment),
		Site:        first(flags.Site, doc.Site),
		Timezone:    first(flags.Timezone, doc.Timezone, cfg.DefaultTimezone),
		FixedOffset: first(flags.FixedOffset, doc.TimezoneFixedOffset),
		Notes:       first(flags.Notes, doc.DeploymentNotes),
		Sensors:     doc.Sensors,
	}
	// An explicit timezone selects zone mode over the document's offset.
	if flags.Timezone != "" && flags.FixedOffset == "" {
		s.FixedOffset = ""
	}
	if s.Deployment == "" || s.Site == "" {
		return s, ErrIncompleteDeployment
	}
	return s, nil
}

func first(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
