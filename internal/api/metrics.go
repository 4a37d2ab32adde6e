package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/samcharles93/fitskit/internal/inspect"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// Metrics holds the Prometheus collectors of the HTTP service. Each Metrics
// value registers into its own registry.
type Metrics struct {
	registry *prometheus.Registry

	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight *prometheus.GaugeVec

	unitsDecodedTotal   *prometheus.CounterVec
	issuesTotal         *prometheus.CounterVec
	decodedBytesTotal   prometheus.Counter
	storeOperationTotal *prometheus.CounterVec
}

func NewMetrics(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,

		httpRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fitskit_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),
		httpRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fitskit_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),
		httpRequestsInFlight: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "fitskit_http_requests_in_flight",
				Help: "Number of HTTP requests currently being processed",
			},
			[]string{"method", "endpoint"},
		),

		unitsDecodedTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fitskit_units_decoded_total",
				Help: "Units decoded from uploaded files, by kind",
			},
			[]string{"kind"},
		),
		issuesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fitskit_issues_total",
				Help: "Issues reported for uploaded files, by kind",
			},
			[]string{"kind"},
		),
		decodedBytesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "fitskit_decoded_bytes_total",
				Help: "Bytes of FITS data decoded",
			},
		),
		storeOperationTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fitskit_report_store_operations_total",
				Help: "Report store operations",
			},
			[]string{"operation", "status"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordHTTPRequest(method, endpoint string, statusCode int, duration time.Duration) {
	m.httpRequestsTotal.WithLabelValues(method, endpoint, strconv.Itoa(statusCode)).Inc()
	m.httpRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RecordReport counts the units and issues of one decoded file.
func (m *Metrics) RecordReport(r inspect.Report) {
	m.decodedBytesTotal.Add(float64(r.Size))
	for _, u := range r.Units {
		m.unitsDecodedTotal.WithLabelValues(u.Kind).Inc()
	}
	for _, is := range r.Issues {
		m.issuesTotal.WithLabelValues(is.Kind).Inc()
	}
}

func (m *Metrics) RecordStoreOperation(operation string, err error) {
	status := statusSuccess
	if err != nil {
		status = statusError
	}
	m.storeOperationTotal.WithLabelValues(operation, status).Inc()
}

// Instrument wraps an HTTP handler with request metrics.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		endpoint := routeLabel(r.URL.Path)

		gauge := m.httpRequestsInFlight.WithLabelValues(r.Method, endpoint)
		gauge.Inc()
		defer gauge.Dec()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		m.RecordHTTPRequest(r.Method, endpoint, rw.statusCode, time.Since(start))
	})
}

var knownRoutes = map[string]bool{
	"/healthz":            true,
	"/metrics":            true,
	"/version":            true,
	"/v1/inspect":         true,
	"/v1/verify":          true,
	"/v1/stamp":           true,
	"/v1/checksum/encode": true,
	"/v1/checksum/decode": true,
	"/v1/checksum/sum":    true,
	"/v1/reports":         true,
}

// routeLabel collapses request paths onto their route so label cardinality
// stays bounded.
func routeLabel(path string) string {
	if knownRoutes[path] {
		return path
	}
	if strings.HasPrefix(path, "/v1/reports/") {
		return "/v1/reports/:id"
	}
	return "other"
}

// responseWriter captures the status code written by a handler.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
