// Package metrics exposes Prometheus instrumentation for strmhook.
//
// Metrics live on a private registry so tests and embedded servers never
// collide with the global default registerer:
//
//	strmhook_files_total                    counter: media files by outcome (created, skipped, failed)
//	strmhook_runs_total                     counter: generation runs by mode and status
//	strmhook_listing_duration_seconds       histogram: AList walk latency
//	strmhook_http_requests_total            counter: requests by method, route and status
//	strmhook_http_request_duration_seconds  histogram: request latency by method and route
//
// All recording methods are safe on a nil *Metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors for one process.
type Metrics struct {
	registry        *prometheus.Registry
	files           *prometheus.CounterVec
	runs            *prometheus.CounterVec
	listing         prometheus.Histogram
	requests        *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

// New registers every strmhook collector plus the Go runtime and process
// collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		files: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "strmhook_files_total",
			Help: "Media files handled, by outcome.",
		}, []string{"outcome"}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "strmhook_runs_total",
			Help: "Generation runs, by mode and status.",
		}, []string{"mode", "status"}),
		listing: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "strmhook_listing_duration_seconds",
			Help:    "Time spent walking a remote directory.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
		}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "strmhook_http_requests_total",
			Help: "Total HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "strmhook_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// FileHandled counts one media file with the given outcome.
func (m *Metrics) FileHandled(outcome string) {
	if m == nil {
		return
	}
	m.files.WithLabelValues(outcome).Inc()
}

// RunFinished counts one completed generation run.
func (m *Metrics) RunFinished(mode, status string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(mode, status).Inc()
}

// ObserveListing records how long a remote walk took.
func (m *Metrics) ObserveListing(d time.Duration) {
	if m == nil {
		return
	}
	m.listing.Observe(d.Seconds())
}

// Handler returns the scrape handler for m's registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware records request counts and latency. The route label is the
// matched ServeMux pattern, keeping label cardinality bounded.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(r.Method, route, strconv.Itoa(rw.status)).Inc()
		m.requestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// responseWriter captures the status code written by the wrapped handler.
type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
