// Package api provides the read-only HTTP surface over the tempdb store.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/a-h/templ"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	"github.com/darshan-rambhia/tempdb/internal/cache"
	"github.com/darshan-rambhia/tempdb/internal/config"
	"github.com/darshan-rambhia/tempdb/internal/metrics"
	"github.com/darshan-rambhia/tempdb/internal/model"
	"github.com/darshan-rambhia/tempdb/internal/report"
	"github.com/darshan-rambhia/tempdb/internal/store"
	"github.com/darshan-rambhia/tempdb/internal/timestamp"
	"github.com/darshan-rambhia/tempdb/templates"

	_ "github.com/darshan-rambhia/tempdb/docs/swagger"
)

// overviewMaxAge bounds how stale the overview page may be.
const overviewMaxAge = 30 * time.Second

// maxPageReadings caps the readings loaded to draw a deployment page.
const maxPageReadings = 200000

// Options configures optional server features.
type Options struct {
	Auth            config.AuthConfig
	Gatherer        prometheus.Gatherer // serves /metrics when set
	Metrics         *metrics.HTTP
	Overview        *cache.Cache // created with overviewMaxAge when nil
	ShutdownTimeout time.Duration
}

// Server is the HTTP server for tempdb.
type Server struct {
	store           *store.Store
	overview        *cache.Cache
	mux             *http.ServeMux
	server          *http.Server
	gatherer        prometheus.Gatherer
	shutdownTimeout time.Duration
}

// NewServer creates a new HTTP server.
func NewServer(addr string, s *store.Store, opts Options) *Server {
	srv := &Server{
		store:           s,
		overview:        opts.Overview,
		mux:             http.NewServeMux(),
		gatherer:        opts.Gatherer,
		shutdownTimeout: opts.ShutdownTimeout,
	}
	if srv.overview == nil {
		srv.overview = cache.New(s, overviewMaxAge)
	}
	if srv.shutdownTimeout <= 0 {
		srv.shutdownTimeout = 5 * time.Second
	}

	srv.registerRoutes()

	var h http.Handler = srv.mux
	if opts.Auth.Enabled() {
		h = BasicAuthMiddleware(opts.Auth.Username, opts.Auth.PasswordHash, h)
	}
	h = MetricsMiddleware(opts.Metrics, h)

	srv.server = &http.Server{
		Addr:         addr,
		Handler:      SecurityHeadersMiddleware(RecoveryMiddleware(LoggingMiddleware(h))),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return srv
}

// Handler returns the fully wrapped handler.
func (s *Server) Handler() http.Handler { return s.server.Handler }

// Run starts the HTTP server. It blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	slog.Info("HTTP server starting", "addr", s.server.Addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		slog.Info("HTTP server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	// HTML pages
	s.mux.HandleFunc("GET /{$}", s.handleOverview)
	s.mux.HandleFunc("GET /deployments/{name}", s.handleDeploymentPage)

	// API endpoints (JSON, CSV)
	s.mux.HandleFunc("GET /api/deployments", s.handleDeployments)
	s.mux.HandleFunc("GET /api/deployments/{name}/sensors", s.handleDeploymentSensors)
	s.mux.HandleFunc("GET /api/deployments/{name}/readings", s.handleDeploymentReadings)
	s.mux.HandleFunc("GET /api/deployments/{name}/readings.csv", s.handleDeploymentReadings)
	s.mux.HandleFunc("GET /api/sensors", s.handleSensors)
	s.mux.HandleFunc("GET /api/sensors/{registration}/readings", s.handleSensorReadings)
	s.mux.HandleFunc("GET /api/sensors/{registration}/readings.csv", s.handleSensorReadings)
	s.mux.HandleFunc("GET /api/readings", s.handleReadings)
	s.mux.HandleFunc("GET /api/readings.csv", s.handleReadings)
	s.mux.HandleFunc("GET /api/files", s.handleFiles)

	// Health check
	s.mux.HandleFunc("GET /healthz", s.handleHealthz)

	// Prometheus
	if s.gatherer != nil {
		s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	// Swagger UI
	s.mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))
}

// renderHTML renders a templ component to a buffer first, then writes the
// buffer to the response. This ensures rendering errors can be returned as a
// proper 500 before any bytes reach the client.
func renderHTML(w http.ResponseWriter, r *http.Request, component templ.Component) {
	var buf bytes.Buffer
	if err := component.Render(r.Context(), &buf); err != nil {
		slog.Error("rendering component", "path", r.URL.Path, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		// Client disconnected after headers sent.
		slog.Debug("writing HTML response", "path", r.URL.Path, "error", err)
	}
}

// writeJSON marshals v to JSON into a buffer first, then writes it to the
// response. This ensures marshalling errors can be returned as a proper 500.
func writeJSON(w http.ResponseWriter, r *http.Request, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("encoding JSON response", "path", r.URL.Path, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(data); err != nil {
		slog.Debug("writing JSON response", "path", r.URL.Path, "error", err)
	}
}

// writeReadings writes rows as CSV when the route ends in .csv, otherwise
// as JSON.
func writeReadings(w http.ResponseWriter, r *http.Request, rows []model.ReadingRow, filename string) {
	if !isCSVRoute(r) {
		if rows == nil {
			rows = []model.ReadingRow{}
		}
		writeJSON(w, r, rows)
		return
	}
	var buf bytes.Buffer
	if err := report.WriteReadingsCSV(&buf, rows); err != nil {
		slog.Error("encoding CSV response", "path", r.URL.Path, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if _, err := buf.WriteTo(w); err != nil {
		slog.Debug("writing CSV response", "path", r.URL.Path, "error", err)
	}
}

func isCSVRoute(r *http.Request) bool {
	n := len(r.Pattern)
	return n >= 4 && r.Pattern[n-4:] == ".csv"
}

func serverError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

// readingFilter reads start, end and limit from the query string.
func readingFilter(r *http.Request) (store.ReadingFilter, error) {
	var f store.ReadingFilter
	q := r.URL.Query()
	for _, b := range []struct {
		key string
		dst **int64
	}{{"start", &f.Start}, {"end", &f.End}} {
		v := q.Get(b.key)
		if v == "" {
			continue
		}
		sec, err := timestamp.ParseInstant(v)
		if err != nil {
			return f, fmt.Errorf("%s: %w", b.key, err)
		}
		*b.dst = &sec
	}
	if f.Start != nil && f.End != nil && *f.Start > *f.End {
		return f, errors.New("start is after end")
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, fmt.Errorf("limit: %q is not a non-negative integer", v)
		}
		f.Limit = n
	}
	return f, nil
}

// @Summary Overview page
// @Description HTML list of deployments with store totals
// @Produce html
// @Success 200 {string} string "HTML page"
// @Router / [get]
func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	snap, err := s.overview.Snapshot()
	if err != nil {
		serverError(w, "loading overview", err)
		return
	}
	renderHTML(w, r, templates.Overview(snap.Stats, snap.Deployments))
}

// @Summary Deployment page
// @Description HTML page with per-sensor ranges and trends
// @Produce html
// @Param name path string true "Deployment name"
// @Success 200 {string} string "HTML page"
// @Failure 404 {string} string "Deployment not found"
// @Router /deployments/{name} [get]
func (s *Server) handleDeploymentPage(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	dep, err := s.store.DeploymentByName(name)
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		serverError(w, "looking up deployment", err)
		return
	}
	sensors, err := s.store.ListDeploymentSensors(name)
	if err != nil {
		serverError(w, "listing deployment sensors", err)
		return
	}
	rows, err := s.store.QueryReadings(store.ReadingFilter{Deployment: name, Limit: maxPageReadings})
	if err != nil {
		serverError(w, "querying deployment readings", err)
		return
	}
	renderHTML(w, r, templates.DeploymentPage(dep, sensors, templates.SeriesBySensor(rows)))
}

// @Summary List deployments
// @Description Deployments with sensor and reading counts
// @Produce json
// @Success 200 {array} model.DeploymentSummary
// @Failure 500 {string} string "Internal Server Error"
// @Router /api/deployments [get]
func (s *Server) handleDeployments(w http.ResponseWriter, r *http.Request) {
	out, err := s.store.ListDeployments()
	if err != nil {
		serverError(w, "listing deployments", err)
		return
	}
	if out == nil {
		out = []model.DeploymentSummary{}
	}
	writeJSON(w, r, out)
}

// @Summary List deployment sensors
// @Description Sensors associated with a deployment
// @Produce json
// @Param name path string true "Deployment name"
// @Success 200 {array} model.DeploymentSensor
// @Failure 404 {string} string "Deployment not found"
// @Router /api/deployments/{name}/sensors [get]
func (s *Server) handleDeploymentSensors(w http.ResponseWriter, r *http.Request) {
	out, err := s.store.ListDeploymentSensors(r.PathValue("name"))
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Deployment not found", http.StatusNotFound)
		return
	}
	if err != nil {
		serverError(w, "listing deployment sensors", err)
		return
	}
	if out == nil {
		out = []model.DeploymentSensor{}
	}
	writeJSON(w, r, out)
}

// @Summary Deployment readings
// @Description Readings for one deployment ordered by time and registration. The .csv variant returns CSV.
// @Produce json
// @Param name path string true "Deployment name"
// @Param start query string false "Inclusive lower bound (epoch seconds or RFC 3339)"
// @Param end query string false "Inclusive upper bound (epoch seconds or RFC 3339)"
// @Param limit query int false "Maximum rows"
// @Success 200 {array} model.ReadingRow
// @Failure 400 {string} string "Invalid query parameter"
// @Failure 404 {string} string "Deployment not found"
// @Router /api/deployments/{name}/readings [get]
func (s *Server) handleDeploymentReadings(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	f, err := readingFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := s.store.DeploymentByName(name); errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Deployment not found", http.StatusNotFound)
		return
	} else if err != nil {
		serverError(w, "looking up deployment", err)
		return
	}
	f.Deployment = name
	rows, err := s.store.QueryReadings(f)
	if err != nil {
		serverError(w, "querying deployment readings", err)
		return
	}
	writeReadings(w, r, rows, name+"_readings.csv")
}

// @Summary List sensors
// @Description Sensors with deployment and reading counts
// @Produce json
// @Success 200 {array} model.SensorSummary
// @Router /api/sensors [get]
func (s *Server) handleSensors(w http.ResponseWriter, r *http.Request) {
	out, err := s.store.ListSensors()
	if err != nil {
		serverError(w, "listing sensors", err)
		return
	}
	if out == nil {
		out = []model.SensorSummary{}
	}
	writeJSON(w, r, out)
}

// @Summary Sensor readings
// @Description Readings for one sensor ordered by time. The .csv variant returns CSV.
// @Produce json
// @Param registration path string true "Sensor registration number"
// @Param start query string false "Inclusive lower bound (epoch seconds or RFC 3339)"
// @Param end query string false "Inclusive upper bound (epoch seconds or RFC 3339)"
// @Param limit query int false "Maximum rows"
// @Success 200 {array} model.ReadingRow
// @Failure 400 {string} string "Invalid query parameter"
// @Failure 404 {string} string "Sensor not found"
// @Router /api/sensors/{registration}/readings [get]
func (s *Server) handleSensorReadings(w http.ResponseWriter, r *http.Request) {
	reg := r.PathValue("registration")
	f, err := readingFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, err := s.store.SensorByRegistration(reg); errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Sensor not found", http.StatusNotFound)
		return
	} else if err != nil {
		serverError(w, "looking up sensor", err)
		return
	}
	f.Sensor = reg
	rows, err := s.store.QueryReadings(f)
	if err != nil {
		serverError(w, "querying sensor readings", err)
		return
	}
	writeReadings(w, r, rows, reg+"_readings.csv")
}

// @Summary Query readings
// @Description Readings in a time range, optionally scoped to a deployment or sensor. Needs a deployment, a sensor, or both bounds.
// @Produce json
// @Param deployment query string false "Deployment name"
// @Param sensor query string false "Sensor registration number"
// @Param start query string false "Inclusive lower bound (epoch seconds or RFC 3339)"
// @Param end query string false "Inclusive upper bound (epoch seconds or RFC 3339)"
// @Param limit query int false "Maximum rows"
// @Success 200 {array} model.ReadingRow
// @Failure 400 {string} string "Invalid query parameter"
// @Router /api/readings [get]
func (s *Server) handleReadings(w http.ResponseWriter, r *http.Request) {
	f, err := readingFilter(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	f.Deployment = r.URL.Query().Get("deployment")
	f.Sensor = r.URL.Query().Get("sensor")

	rows, err := s.store.QueryReadings(f)
	if errors.Is(err, store.ErrUnboundedQuery) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		serverError(w, "querying readings", err)
		return
	}
	writeReadings(w, r, rows, "readings.csv")
}

// @Summary File summary
// @Description One row per ingested file
// @Produce json
// @Success 200 {array} model.FileSummary
// @Router /api/files [get]
func (s *Server) handleFiles(w http.ResponseWriter, r *http.Request) {
	out, err := s.store.FileSummary()
	if err != nil {
		serverError(w, "querying file summary", err)
		return
	}
	if out == nil {
		out = []model.FileSummary{}
	}
	writeJSON(w, r, out)
}

// @Summary Health check
// @Description Returns store reachability and row counts
// @Produce json
// @Success 200 {object} map[string]interface{} "Health status"
// @Failure 503 {object} map[string]interface{} "Store unavailable"
// @Router /healthz [get]
func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats()
	if err != nil {
		slog.Warn("health check failed", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		writeJSON(w, r, map[string]any{
			"status":    "unavailable",
			"timestamp": time.Now().Unix(),
		})
		return
	}
	writeJSON(w, r, map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
		"store":     stats,
	})
}
