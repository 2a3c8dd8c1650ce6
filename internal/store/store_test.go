package store

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/darshan-rambhia/tempdb/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t testing.TB) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := New(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// seed creates one sensor in one deployment and returns their ids.
func seed(t testing.TB, s *Store, reg, deployment string) (sensorID, deploymentID int64) {
	t.Helper()
	var err error
	sensorID, err = s.CreateSensor(&model.Sensor{Type: "ibutton_ds1925", RegistrationNumber: reg})
	require.NoError(t, err)
	d, err := s.DeploymentByName(deployment)
	if err == nil {
		return sensorID, d.ID
	}
	deploymentID, err = s.CreateDeployment(&model.Deployment{Name: deployment, Site: "TestSite", Timezone: "America/New_York"})
	require.NoError(t, err)
	return sensorID, deploymentID
}

func insertFile(t testing.TB, s *Store, sensorID, deploymentID int64, sha string, times ...int64) int64 {
	t.Helper()
	readings := make([]model.Reading, len(times))
	for i, ts := range times {
		readings[i] = model.Reading{
			DeploymentID:  deploymentID,
			SensorID:      sensorID,
			TimeLocalText: time.Unix(ts, 0).UTC().Format("1/2/06 3:04:05 PM"),
			TimeUTC:       ts,
			ValueC:        float64(i) - 5.25,
		}
	}
	id, err := s.InsertFile(&model.IngestedFile{
		DeploymentID: deploymentID,
		SensorID:     sensorID,
		Path:         sha + ".csv",
		SHA256:       sha,
		MetadataJSON: "{}",
		RunID:        "run-1",
	}, readings)
	require.NoError(t, err)
	return id
}

func ptr(v int64) *int64 { return &v }

func TestNew(t *testing.T) {
	s := newTestStore(t)
	assert.NotNil(t, s)
	assert.NoError(t, s.CheckSchema())
}

func TestNew_InvalidPath(t *testing.T) {
	_, err := New("/nonexistent/dir/test.db")
	assert.Error(t, err)
}

func TestNew_WritesToDisk(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "disk.db")
	s, err := New(dbPath)
	require.NoError(t, err)
	defer s.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err)
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	sensorID, depID := seed(t, s, "ABC123", "Test_2025")
	insertFile(t, s, sensorID, depID, "h1", 100)

	require.NoError(t, s.Migrate())
	require.NoError(t, s.Migrate())

	st, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Sensors)
	assert.Equal(t, int64(1), st.Readings)
}

func TestCheckSchema_Missing(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), "empty.db"))
	require.NoError(t, err)
	defer s.Close()

	assert.ErrorIs(t, s.CheckSchema(), ErrSchemaMissing)

	require.NoError(t, s.Migrate())
	assert.NoError(t, s.CheckSchema())
}

func TestSensor_CreateAndLookup(t *testing.T) {
	s := newTestStore(t)

	_, err := s.SensorByRegistration("ABC123")
	assert.ErrorIs(t, err, ErrNotFound)

	id, err := s.CreateSensor(&model.Sensor{Type: "ibutton_ds1925", PartNumber: "DS1925L", RegistrationNumber: "ABC123"})
	require.NoError(t, err)

	got, err := s.SensorByRegistration("ABC123")
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, "DS1925L", got.PartNumber)
	assert.Empty(t, got.Label)

	require.NoError(t, s.UpdateSensorLabel(id, "Attic"))
	got, err = s.SensorByRegistration("ABC123")
	require.NoError(t, err)
	assert.Equal(t, "Attic", got.Label)
}

func TestSensor_RegistrationUnique(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateSensor(&model.Sensor{Type: "t", RegistrationNumber: "ABC123"})
	require.NoError(t, err)
	_, err = s.CreateSensor(&model.Sensor{Type: "t", RegistrationNumber: "ABC123"})
	assert.Error(t, err)
}

func TestSensor_EmptyRegistrationRejected(t *testing.T) {
	s := newTestStore(t)
	_, err := s.CreateSensor(&model.Sensor{Type: "t", RegistrationNumber: ""})
	assert.Error(t, err)
}

func TestDeployment_CreateAndNotes(t *testing.T) {
	s := newTestStore(t)

	_, err := s.DeploymentByName("Test_2025")
	assert.ErrorIs(t, err, ErrNotFound)

	id, err := s.CreateDeployment(&model.Deployment{Name: "Test_2025", Site: "TestSite", Timezone: "America/New_York"})
	require.NoError(t, err)

	_, err = s.CreateDeployment(&model.Deployment{Name: "Test_2025", Site: "Other", Timezone: "UTC"})
	assert.Error(t, err, "name must be unique")

	require.NoError(t, s.UpdateDeploymentNotes(id, "north wall"))
	d, err := s.DeploymentByName("Test_2025")
	require.NoError(t, err)
	assert.Equal(t, "north wall", d.Notes)
	assert.Equal(t, "America/New_York", d.Timezone)
}

func TestUpsertSensorDeployment(t *testing.T) {
	s := newTestStore(t)
	sensorID, depID := seed(t, s, "ABC123", "Test_2025")

	require.NoError(t, s.UpsertSensorDeployment(model.SensorDeployment{
		SensorID: sensorID, DeploymentID: depID, LocationNotes: "Attic", Notes: "rafters",
	}))
	sd, err := s.sensorDeployment(sensorID, depID)
	require.NoError(t, err)
	assert.Equal(t, "Attic", sd.LocationNotes)
	assert.Equal(t, "rafters", sd.Notes)

	// A second upsert overwrites both fields, including with empty values.
	require.NoError(t, s.UpsertSensorDeployment(model.SensorDeployment{
		SensorID: sensorID, DeploymentID: depID, LocationNotes: "Basement",
	}))
	sd, err = s.sensorDeployment(sensorID, depID)
	require.NoError(t, err)
	assert.Equal(t, "Basement", sd.LocationNotes)
	assert.Empty(t, sd.Notes)

	var n int
	require.NoError(t, s.db.Get(&n, `SELECT COUNT(*) FROM sensor_deployments`))
	assert.Equal(t, 1, n)
}

func TestSensorDeployment_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.sensorDeployment(1, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInsertFile(t *testing.T) {
	s := newTestStore(t)
	sensorID, depID := seed(t, s, "ABC123", "Test_2025")

	_, err := s.FileByHash("h1")
	require.ErrorIs(t, err, ErrNotFound)

	readings := []model.Reading{
		{DeploymentID: depID, SensorID: sensorID, TimeLocalText: "12/31/24 11:59:59 PM", TimeUTC: 1735707599, ValueC: -5.25},
		{DeploymentID: depID, SensorID: sensorID, TimeLocalText: "01/01/25 12:00:00 AM", TimeUTC: 1735707600, ValueC: -5.10},
	}
	f := &model.IngestedFile{DeploymentID: depID, SensorID: sensorID, Path: "a.csv", SHA256: "h1", MetadataJSON: `{"k":"v"}`}
	id, err := s.InsertFile(f, readings)
	require.NoError(t, err)
	assert.Equal(t, id, f.ID)
	assert.Equal(t, id, readings[0].FileID)

	got, err := s.FileByHash("h1")
	require.NoError(t, err)
	assert.Equal(t, "a.csv", got.Path)
	assert.Equal(t, `{"k":"v"}`, got.MetadataJSON)

	st, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, model.StoreStats{Sensors: 1, Deployments: 1, Files: 1, Readings: 2}, st)
}

func TestInsertFile_DuplicateHashRejected(t *testing.T) {
	s := newTestStore(t)
	sensorID, depID := seed(t, s, "ABC123", "Test_2025")
	insertFile(t, s, sensorID, depID, "h1", 100, 200)

	_, err := s.InsertFile(&model.IngestedFile{
		DeploymentID: depID, SensorID: sensorID, Path: "copy.csv", SHA256: "h1", MetadataJSON: "{}",
	}, []model.Reading{{DeploymentID: depID, SensorID: sensorID, TimeLocalText: "x", TimeUTC: 300}})
	assert.Error(t, err)

	st, err := s.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(1), st.Files)
	assert.Equal(t, int64(2), st.Readings)
}

func TestInsertFile_MismatchedReadingRollsBack(t *testing.T) {
	s := newTestStore(t)
	sensorID, depID := seed(t, s, "ABC123", "Test_2025")
	otherSensor, _ := seed(t, s, "XYZ789", "Test_2025")

	_, err := s.InsertFile(&model.IngestedFile{
		DeploymentID: depID, SensorID: sensorID, Path: "a.csv", SHA256: "h1", MetadataJSON: "{}",
	}, []model.Reading{
		{DeploymentID: depID, SensorID: sensorID, TimeLocalText: "a", TimeUTC: 100},
		{DeploymentID: depID, SensorID: otherSensor, TimeLocalText: "b", TimeUTC: 200},
	})
	assert.Error(t, err)

	_, err = s.FileByHash("h1")
	assert.ErrorIs(t, err, ErrNotFound, "file row must roll back with its readings")
}

func TestFileByHash_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.FileByHash("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestQueryReadings_ByDeployment(t *testing.T) {
	s := newTestStore(t)
	a, dep := seed(t, s, "BBB", "Dep")
	b, _ := seed(t, s, "AAA", "Dep")
	insertFile(t, s, a, dep, "h1", 100, 300)
	insertFile(t, s, b, dep, "h2", 100, 200)

	rows, err := s.QueryReadings(ReadingFilter{Deployment: "Dep"})
	require.NoError(t, err)
	require.Len(t, rows, 4)

	// Ordered by time, then registration.
	assert.Equal(t, int64(100), rows[0].TimeUTC)
	assert.Equal(t, "AAA", rows[0].SensorRegistration)
	assert.Equal(t, "BBB", rows[1].SensorRegistration)
	assert.Equal(t, int64(200), rows[2].TimeUTC)
	assert.Equal(t, int64(300), rows[3].TimeUTC)
	assert.Equal(t, "Dep", rows[0].DeploymentName)
	assert.Equal(t, "TestSite", rows[0].Site)
	assert.Equal(t, "1970-01-01T00:01:40Z", rows[0].TimeUTCISO)
}

func TestQueryReadings_BySensorAndRange(t *testing.T) {
	s := newTestStore(t)
	a, dep := seed(t, s, "AAA", "Dep")
	insertFile(t, s, a, dep, "h1", 100, 200, 300, 400)

	rows, err := s.QueryReadings(ReadingFilter{Sensor: "AAA", Start: ptr(200), End: ptr(300)})
	require.NoError(t, err)
	require.Len(t, rows, 2, "bounds are inclusive")
	assert.Equal(t, int64(200), rows[0].TimeUTC)
	assert.Equal(t, int64(300), rows[1].TimeUTC)

	rows, err = s.QueryReadings(ReadingFilter{Sensor: "AAA", Limit: 1})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestQueryReadings_TimeRangeAcrossDeployments(t *testing.T) {
	s := newTestStore(t)
	a, depB := seed(t, s, "AAA", "B_dep")
	b, depA := seed(t, s, "BBB", "A_dep")
	insertFile(t, s, a, depB, "h1", 100)
	insertFile(t, s, b, depA, "h2", 100)

	rows, err := s.QueryReadings(ReadingFilter{Start: ptr(0), End: ptr(1000)})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "A_dep", rows[0].DeploymentName)
	assert.Equal(t, "B_dep", rows[1].DeploymentName)

	rows, err = s.QueryReadings(ReadingFilter{Deployment: "B_dep", Start: ptr(0), End: ptr(1000)})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestQueryReadings_Unbounded(t *testing.T) {
	s := newTestStore(t)
	_, err := s.QueryReadings(ReadingFilter{})
	assert.ErrorIs(t, err, ErrUnboundedQuery)
	_, err = s.QueryReadings(ReadingFilter{Start: ptr(0)})
	assert.ErrorIs(t, err, ErrUnboundedQuery)
}

func TestQueryReadings_UnknownDeploymentEmpty(t *testing.T) {
	s := newTestStore(t)
	rows, err := s.QueryReadings(ReadingFilter{Deployment: "nope"})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestListDeployments(t *testing.T) {
	s := newTestStore(t)
	a, dep := seed(t, s, "AAA", "Dep")
	b, _ := seed(t, s, "BBB", "Dep")
	insertFile(t, s, a, dep, "h1", 100, 200)
	insertFile(t, s, b, dep, "h2", 150)
	_, err := s.CreateDeployment(&model.Deployment{Name: "Empty", Site: "X", Timezone: "UTC"})
	require.NoError(t, err)

	list, err := s.ListDeployments()
	require.NoError(t, err)
	require.Len(t, list, 2)

	assert.Equal(t, "Dep", list[0].Name)
	assert.Equal(t, int64(2), list[0].NumSensors)
	assert.Equal(t, int64(3), list[0].NumReadings)
	require.NotNil(t, list[0].FirstReadingUTC)
	assert.Equal(t, int64(100), *list[0].FirstReadingUTC)
	assert.Equal(t, int64(200), *list[0].LastReadingUTC)

	assert.Equal(t, "Empty", list[1].Name)
	assert.Zero(t, list[1].NumReadings)
	assert.Nil(t, list[1].FirstReadingUTC)
}

func TestListSensors(t *testing.T) {
	s := newTestStore(t)
	a, dep1 := seed(t, s, "AAA", "Dep1")
	_, dep2 := seed(t, s, "ZZZ", "Dep2")
	insertFile(t, s, a, dep1, "h1", 100)
	insertFile(t, s, a, dep2, "h2", 200, 300)

	list, err := s.ListSensors()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "AAA", list[0].RegistrationNumber)
	assert.Equal(t, int64(2), list[0].NumDeployments)
	assert.Equal(t, int64(3), list[0].NumReadings)
	assert.Equal(t, "ZZZ", list[1].RegistrationNumber)
	assert.Zero(t, list[1].NumReadings)
}

func TestListDeploymentSensors(t *testing.T) {
	s := newTestStore(t)
	a, dep := seed(t, s, "AAA", "Dep")
	b, _ := seed(t, s, "BBB", "Dep")
	require.NoError(t, s.UpdateSensorLabel(a, "Attic"))
	require.NoError(t, s.UpsertSensorDeployment(model.SensorDeployment{SensorID: a, DeploymentID: dep, LocationNotes: "rafters"}))
	require.NoError(t, s.UpsertSensorDeployment(model.SensorDeployment{SensorID: b, DeploymentID: dep}))
	insertFile(t, s, a, dep, "h1", 100, 200)

	list, err := s.ListDeploymentSensors("Dep")
	require.NoError(t, err)
	require.Len(t, list, 2)

	// Unlabelled sensors sort first.
	assert.Equal(t, "BBB", list[0].RegistrationNumber)
	assert.Zero(t, list[0].NumReadings)
	assert.Equal(t, "Attic", list[1].Label)
	assert.Equal(t, "rafters", list[1].Location)
	assert.Equal(t, int64(2), list[1].NumReadings)

	_, err = s.ListDeploymentSensors("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFileSummary(t *testing.T) {
	s := newTestStore(t)
	a, dep := seed(t, s, "AAA", "Dep")
	insertFile(t, s, a, dep, "h1", 100, 200)
	insertFile(t, s, a, dep, "h2")

	list, err := s.FileSummary()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "h1.csv", list[0].Path)
	assert.Equal(t, "Dep", list[0].DeploymentName)
	assert.Equal(t, "AAA", list[0].SensorRegistration)
	assert.Equal(t, "run-1", list[0].RunID)
	assert.Equal(t, int64(2), list[0].NumReadings)
	assert.NotZero(t, list[0].IngestedAt)
	assert.Zero(t, list[1].NumReadings)
	assert.Nil(t, list[1].FirstReadingUTC)
}

func closedTestStore(t testing.TB) *Store {
	t.Helper()
	s := newTestStore(t)
	s.Close()
	return s
}

func TestClosedDB_Errors(t *testing.T) {
	s := closedTestStore(t)

	_, err := s.SensorByRegistration("x")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)

	_, err = s.CreateSensor(&model.Sensor{Type: "t", RegistrationNumber: "x"})
	assert.Error(t, err)
	_, err = s.CreateDeployment(&model.Deployment{Name: "x"})
	assert.Error(t, err)
	assert.Error(t, s.UpsertSensorDeployment(model.SensorDeployment{SensorID: 1, DeploymentID: 1}))
	_, err = s.FileByHash("x")
	assert.Error(t, err)
	_, err = s.InsertFile(&model.IngestedFile{}, nil)
	assert.Error(t, err)
	_, err = s.QueryReadings(ReadingFilter{Deployment: "x"})
	assert.Error(t, err)
	_, err = s.ListDeployments()
	assert.Error(t, err)
	_, err = s.ListSensors()
	assert.Error(t, err)
	_, err = s.FileSummary()
	assert.Error(t, err)
	_, err = s.Stats()
	assert.Error(t, err)
	assert.Error(t, s.CheckSchema())
}

func BenchmarkInsertFile(b *testing.B) {
	s := newTestStore(b)
	sensorID, depID := seed(b, s, "ABC123", "Bench")
	readings := make([]model.Reading, 2000)
	for i := range readings {
		readings[i] = model.Reading{DeploymentID: depID, SensorID: sensorID, TimeLocalText: "t", TimeUTC: int64(i * 600), ValueC: 20}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := s.InsertFile(&model.IngestedFile{
			DeploymentID: depID, SensorID: sensorID, Path: "bench.csv",
			SHA256: "bench-" + strconv.Itoa(i), MetadataJSON: "{}",
		}, readings)
		if err != nil {
			b.Fatal(err)
		}
	}
}
