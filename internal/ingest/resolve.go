package ingest

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/darshan-rambhia/tempdb/internal/model"
	"github.com/darshan-rambhia/tempdb/internal/store"
)

// DefaultSensorType tags sensors created from iButton exports.
const DefaultSensorType = "ibutton_ds1925"

// Header spellings differ between logger software versions; earlier keys win.
var (
	partNumberKeys = []string{
		"1-Wire/iButton Part Number",
		"Part Number",
		"Part",
	}
	registrationKeys = []string{
		"1-Wire/iButton Registration Number",
		"Registration Number",
		"Registration",
	}
)

const labelMarker = "_ibutton_"

// Store is the persistence surface used during ingestion.
type Store interface {
	SensorByRegistration(reg string) (*model.Sensor, error)
	CreateSensor(sensor *model.Sensor) (int64, error)
	UpdateSensorLabel(sensorID int64, label string) error
	DeploymentByName(name string) (*model.Deployment, error)
	CreateDeployment(d *model.Deployment) (int64, error)
	UpdateDeploymentNotes(deploymentID int64, notes string) error
	UpsertSensorDeployment(sd model.SensorDeployment) error
	FileByHash(sha256 string) (*model.IngestedFile, error)
	InsertFile(f *model.IngestedFile, readings []model.Reading) (int64, error)
}

// LabelFromFilename derives a sensor label from the text before the first
// "_iButton_" marker (any case) in the file name. It returns "" when there
// is no marker.
func LabelFromFilename(path string) string {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if i := indexFold(stem, labelMarker); i >= 0 {
		return stem[:i]
	}
	return ""
}

// indexFold returns the byte index in s of the first ASCII case-insensitive
// match of marker, or -1. Offsets stay in s; lowercasing s first would not
// preserve them for every rune.
func indexFold(s, marker string) int {
	for i := 0; i+len(marker) <= len(s); i++ {
		if strings.EqualFold(s[i:i+len(marker)], marker) {
			return i
		}
	}
	return -1
}

// Resolver maps header metadata to stored sensor and deployment identities.
type Resolver struct {
	store      Store
	sensorType string
}

// NewResolver creates a Resolver. An empty sensorType uses DefaultSensorType.
func NewResolver(s Store, sensorType string) *Resolver {
	if sensorType == "" {
		sensorType = DefaultSensorType
	}
	return &Resolver{store: s, sensorType: sensorType}
}

// Sensor returns the sensor named by the metadata's registration number,
// creating it on first sight. A stored sensor without a label takes the
// given one. Metadata without a registration number is a *ValidationError.
func (r *Resolver) Sensor(md *Metadata, label string) (*model.Sensor, error) {
	reg := md.First(registrationKeys...)
	if reg == "" {
		return nil, &ValidationError{Field: "registration number"}
	}

	existing, err := r.store.SensorByRegistration(reg)
	switch {
	case err == nil:
		if label != "" && existing.Label == "" {
			if err := r.store.UpdateSensorLabel(existing.ID, label); err != nil {
				return nil, err
			}
			existing.Label = label
		}
		return existing, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	sensor := &model.Sensor{
		Type:               r.sensorType,
		PartNumber:         md.First(partNumberKeys...),
		RegistrationNumber: reg,
		Label:              label,
	}
	id, err := r.store.CreateSensor(sensor)
	if err != nil {
		return nil, err
	}
	sensor.ID = id
	return sensor, nil
}

// Deployment returns the deployment with d.Name, creating it from d on first
// sight. An existing deployment keeps its site and timezone; its notes are
// replaced only when d.Notes is non-empty.
func (r *Resolver) Deployment(d model.Deployment) (*model.Deployment, error) {
	if d.Name == "" {
		return nil, errors.New("deployment name is required")
	}

	existing, err := r.store.DeploymentByName(d.Name)
	switch {
	case err == nil:
		if d.Notes != "" && d.Notes != existing.Notes {
			if err := r.store.UpdateDeploymentNotes(existing.ID, d.Notes); err != nil {
				return nil, err
			}
			existing.Notes = d.Notes
		}
		return existing, nil
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	if d.Site == "" {
		return nil, fmt.Errorf("site is required to create deployment %s", d.Name)
	}
	id, err := r.store.CreateDeployment(&d)
	if err != nil {
		return nil, err
	}
	d.ID = id
	return &d, nil
}
