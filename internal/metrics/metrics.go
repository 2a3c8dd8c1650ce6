// Package metrics holds the Prometheus collectors for ingestion runs and the
// HTTP query surface.
package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/darshan-rambhia/tempdb/internal/model"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tempdb"

// File outcomes used as the "result" label.
const (
	ResultIngested  = "ingested"
	ResultDuplicate = "duplicate"
	ResultFailed    = "failed"
)

// Ingest records ingestion outcomes. A nil *Ingest records nothing.
type Ingest struct {
	files        *prometheus.CounterVec
	readings     prometheus.Counter
	rowErrors    prometheus.Counter
	runDuration  prometheus.Gauge
	lastRunTime  prometheus.Gauge
	lastRunFails prometheus.Gauge
}

// NewIngest creates the ingestion collectors and registers them with reg.
func NewIngest(reg prometheus.Registerer) (*Ingest, error) {
	m := &Ingest{
		files: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "files_total",
			Help:      "Input files processed, by result",
		}, []string{"result"}),
		readings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "readings_total",
			Help:      "Temperature readings persisted",
		}),
		rowErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "row_errors_total",
			Help:      "Data rows dropped because they could not be parsed",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the most recent ingestion run",
		}),
		lastRunTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the most recent ingestion run finished",
		}),
		lastRunFails: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "ingest",
			Name:      "last_run_failed_files",
			Help:      "Files that failed in the most recent ingestion run",
		}),
	}
	for _, c := range []prometheus.Collector{m.files, m.readings, m.rowErrors, m.runDuration, m.lastRunTime, m.lastRunFails} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("registering ingest metrics: %w", err)
		}
	}
	// Pre-create the result series so a textfile always carries all three.
	for _, r := range []string{ResultIngested, ResultDuplicate, ResultFailed} {
		m.files.WithLabelValues(r)
	}
	return m, nil
}

// File records one file outcome with its reading and dropped-row counts.
func (m *Ingest) File(result string, readings, rowErrors int) {
	if m == nil {
		return
	}
	m.files.WithLabelValues(result).Inc()
	m.readings.Add(float64(readings))
	m.rowErrors.Add(float64(rowErrors))
}

// RunFinished records the end of a run.
func (m *Ingest) RunFinished(started, finished time.Time, failed int) {
	if m == nil {
		return
	}
	m.runDuration.Set(finished.Sub(started).Seconds())
	m.lastRunTime.Set(float64(finished.Unix()))
	m.lastRunFails.Set(float64(failed))
}

// HTTP counts API requests.
type HTTP struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTP creates the HTTP collectors and registers them with reg.
func NewHTTP(reg prometheus.Registerer) (*HTTP, error) {
	m := &HTTP{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests served, by route pattern, method and status",
		}, []string{"route", "method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"route"}),
	}
	if err := reg.Register(m.requests); err != nil {
		return nil, fmt.Errorf("registering http metrics: %w", err)
	}
	if err := reg.Register(m.duration); err != nil {
		return nil, fmt.Errorf("registering http metrics: %w", err)
	}
	return m, nil
}

// Observe records one served request.
func (m *HTTP) Observe(route, method string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.duration.WithLabelValues(route).Observe(d.Seconds())
}

// StatsFunc returns current store row counts.
type StatsFunc func() (model.StoreStats, error)

// StoreCollector exports store row counts at scrape time.
type StoreCollector struct {
	stats StatsFunc
	rows  *prometheus.Desc
	up    *prometheus.Desc
}

// NewStoreCollector creates a collector that calls stats on every scrape.
func NewStoreCollector(stats StatsFunc) *StoreCollector {
	return &StoreCollector{
		stats: stats,
		rows: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "store", "rows"),
			"Rows stored, by table",
			[]string{"table"}, nil,
		),
		up: prometheus.NewDesc(
			prometheus.BuildFQName(namespace, "store", "up"),
			"Whether the last store query succeeded",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *StoreCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.rows
	ch <- c.up
}

// Collect implements prometheus.Collector.
func (c *StoreCollector) Collect(ch chan<- prometheus.Metric) {
	st, err := c.stats()
	if err != nil {
		ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 0)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 1)
	for table, n := range map[string]int64{
		"sensors":              st.Sensors,
		"deployments":          st.Deployments,
		"files":                st.Files,
		"temperature_readings": st.Readings,
	} {
		ch <- prometheus.MustNewConstMetric(c.rows, prometheus.GaugeValue, float64(n), table)
	}
}

// WriteTextfile writes every metric in g to path in the node-exporter
// textfile format.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("writing metrics textfile: %w", err)
	}
	return nil
}
