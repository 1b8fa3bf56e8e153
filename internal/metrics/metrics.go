// Package metrics exposes request-level Prometheus instrumentation.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "conduit_http_requests_total",
			Help: "Total number of HTTP requests by method, route and status.",
		},
		[]string{"method", "route", "status"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "conduit_http_request_duration_seconds",
			Help:    "HTTP request latency by method and route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Handler serves the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(statusCode int) {
	r.status = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}

// WithMetricsHTTPMiddleware records a counter and latency observation
// per request, labeled by the matched chi route pattern rather than
// the raw URL to keep cardinality bounded.
func WithMetricsHTTPMiddleware(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		start := time.Now()

		recorder := &statusRecorder{ResponseWriter: response, status: http.StatusOK}
		h.ServeHTTP(recorder, request)

		route := chi.RouteContext(request.Context()).RoutePattern()
		if route == "" {
			route = "unmatched"
		}

		requestsTotal.WithLabelValues(request.Method, route, strconv.Itoa(recorder.status)).Inc()
		requestDuration.WithLabelValues(request.Method, route).Observe(time.Since(start).Seconds())
	}

	return http.HandlerFunc(middleware)
}
