// Package metrics exposes Prometheus instrumentation for the service:
// HTTP traffic, propagation work, conjunction analyses, and catalog
// freshness.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitwatch_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orbitwatch_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	propagationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitwatch_propagations_total",
			Help: "Total number of single-epoch propagations by outcome.",
		},
		[]string{"outcome"},
	)

	propagationDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "orbitwatch_propagation_duration_seconds",
			Help:    "Wall time of one propagation call.",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 10),
		},
	)

	conjunctionAnalysesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitwatch_conjunction_analyses_total",
			Help: "Total number of pairwise close-approach analyses by risk level.",
		},
		[]string{"risk"},
	)

	catalogObjects = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "orbitwatch_catalog_objects",
			Help: "Number of objects in the current catalog snapshot.",
		},
	)

	catalogAgeSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "orbitwatch_catalog_age_seconds",
			Help: "Age of the current catalog snapshot in seconds.",
		},
	)

	catalogFetchFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orbitwatch_catalog_fetch_failures_total",
			Help: "Total number of failed catalog refresh attempts.",
		},
	)

	rateLimitRejectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orbitwatch_ratelimit_rejections_total",
			Help: "Total number of requests rejected by the rate limiter.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		propagationsTotal,
		propagationDurationSeconds,
		conjunctionAnalysesTotal,
		catalogObjects,
		catalogAgeSeconds,
		catalogFetchFailuresTotal,
		rateLimitRejectionsTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObservePropagation records one propagation call.
func ObservePropagation(d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	propagationsTotal.WithLabelValues(outcome).Inc()
	propagationDurationSeconds.Observe(d.Seconds())
}

// IncConjunctionAnalysis records one completed analysis by risk level.
func IncConjunctionAnalysis(risk string) {
	conjunctionAnalysesTotal.WithLabelValues(risk).Inc()
}

// SetCatalogObjects sets the tracked-object gauge.
func SetCatalogObjects(n int) {
	catalogObjects.Set(float64(n))
}

// SetCatalogAge sets the snapshot age gauge.
func SetCatalogAge(seconds float64) {
	catalogAgeSeconds.Set(seconds)
}

// IncCatalogFetchFailures records one failed refresh.
func IncCatalogFetchFailures() {
	catalogFetchFailuresTotal.Inc()
}

// IncRateLimitRejections records one rejected request.
func IncRateLimitRejections() {
	rateLimitRejectionsTotal.Inc()
}

// exactRoutes are path labels recorded as-is.
var exactRoutes = map[string]bool{
	"/":                          true,
	"/healthz":                   true,
	"/readyz":                    true,
	"/metrics":                   true,
	"/api/v1/catalog":            true,
	"/api/v1/catalog/refresh":    true,
	"/api/v1/fleet":              true,
	"/api/v1/conjunction":        true,
	"/api/v1/conjunction/screen": true,
}

// paramRoutes are prefixes whose trailing catalog number collapses into
// one label.
var paramRoutes = []string{
	"/api/v1/elements/",
	"/api/v1/state/",
	"/api/v1/track/",
	"/api/v1/groundtrack/",
}

// normalizeRoute bounds path label cardinality: known routes pass
// through, per-object routes collapse their catalog number, and
// everything else (scanners, bots) becomes "other".
func normalizeRoute(path string) string {
	if exactRoutes[path] {
		return path
	}
	for _, prefix := range paramRoutes {
		if rest, ok := strings.CutPrefix(path, prefix); ok && rest != "" && !strings.Contains(rest, "/") {
			return prefix + "{catnum}"
		}
	}
	return "other"
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)
		path := normalizeRoute(r.URL.Path)

		httpRequestsTotal.WithLabelValues(path, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(path, r.Method).Observe(duration)
	})
}
