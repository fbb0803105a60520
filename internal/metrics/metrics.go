// Package metrics provides Prometheus instrumentation for QuillPost.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors used across the server.
type Metrics struct {
	registry *prometheus.Registry

	// RequestsTotal counts HTTP requests by method, route pattern and status.
	RequestsTotal *prometheus.CounterVec

	// RequestDuration observes HTTP request latency by method and route pattern.
	RequestDuration *prometheus.HistogramVec

	// PostsCreated counts created posts, partitioned by the classifier outcome.
	PostsCreated *prometheus.CounterVec

	// PostsDeleted counts deleted posts.
	PostsDeleted prometheus.Counter

	// AuthFailures counts rejected requests by pipeline stage.
	AuthFailures *prometheus.CounterVec
}

// New creates the metric set on a dedicated registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quillpost_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "route", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "quillpost_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		PostsCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quillpost_posts_created_total",
			Help: "Total number of posts created.",
		}, []string{"restricted"}),
		PostsDeleted: factory.NewCounter(prometheus.CounterOpts{
			Name: "quillpost_posts_deleted_total",
			Help: "Total number of posts deleted.",
		}),
		AuthFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "quillpost_auth_failures_total",
			Help: "Total number of requests rejected by the access control pipeline.",
		}, []string{"reason"}),
	}
}

// Handler returns the HTTP handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObservePostCreated records a post creation.
func (m *Metrics) ObservePostCreated(restricted bool) {
	m.PostsCreated.WithLabelValues(strconv.FormatBool(restricted)).Inc()
}

// ObserveAuthFailure records a rejection by the access control pipeline.
func (m *Metrics) ObserveAuthFailure(reason string) {
	m.AuthFailures.WithLabelValues(reason).Inc()
}

// statusRecorder captures the response status for instrumentation.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// HTTPMiddleware instruments request counts and latency. The route label uses
// the raw path's first two segments to bound cardinality.
func (m *Metrics) HTTPMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := routeLabel(r.URL.Path)
		m.RequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// routeLabel trims a request path to at most its first two segments, so
// per-resource IDs do not explode the label space.
func routeLabel(path string) string {
	segments := 0
	for i := 1; i < len(path); i++ {
		if path[i] == '/' {
			segments++
			if segments == 2 {
				return path[:i]
			}
		}
	}
	return path
}
