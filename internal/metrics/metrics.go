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
			Name: "orbitlab_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"path", "method", "code"},
	)

	httpDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "orbitlab_http_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	calculationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitlab_calculations_total",
			Help: "Solver invocations by kind and result.",
		},
		[]string{"kind", "result"},
	)

	gestureShapesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitlab_gesture_shapes_total",
			Help: "Recognized gesture strokes by shape.",
		},
		[]string{"shape"},
	)

	tleLookupsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orbitlab_tle_lookups_total",
			Help: "NORAD element set lookups by source.",
		},
		[]string{"source"},
	)

	streamConnectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orbitlab_stream_connections_total",
			Help: "Total orbit stream connections accepted.",
		},
	)

	streamRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orbitlab_stream_rejected_total",
			Help: "Orbit stream connections rejected by the concurrency cap.",
		},
	)

	streamMessagesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orbitlab_stream_messages_total",
			Help: "Orbit state messages sent to stream clients.",
		},
	)

	streamActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "orbitlab_stream_active",
			Help: "Currently open orbit streams.",
		},
	)

	rateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orbitlab_rate_limited_total",
			Help: "Requests rejected by the per-IP rate limiter.",
		},
	)

	authRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "orbitlab_auth_rejected_total",
			Help: "Requests to protected routes without a valid bearer token.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpDurationSeconds,
		calculationsTotal,
		gestureShapesTotal,
		tleLookupsTotal,
		streamConnectionsTotal,
		streamRejectedTotal,
		streamMessagesTotal,
		streamActive,
		rateLimitedTotal,
		authRejectedTotal,
	)
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Calculation records one solver call. result is "ok", "invalid" or "error".
func Calculation(kind, result string) {
	calculationsTotal.WithLabelValues(kind, result).Inc()
}

// GestureShape records a recognized stroke.
func GestureShape(shape string) {
	gestureShapesTotal.WithLabelValues(shape).Inc()
}

// TLELookup records where a NORAD lookup was served from ("cache" or "upstream").
func TLELookup(source string) {
	tleLookupsTotal.WithLabelValues(source).Inc()
}

// StreamOpened records an accepted stream.
func StreamOpened() {
	streamConnectionsTotal.Inc()
	streamActive.Inc()
}

// StreamClosed records a stream ending.
func StreamClosed() {
	streamActive.Dec()
}

// StreamRejected records a stream refused by the concurrency cap.
func StreamRejected() {
	streamRejectedTotal.Inc()
}

// StreamMessage records one orbit state sent.
func StreamMessage() {
	streamMessagesTotal.Inc()
}

// RateLimited records a request rejected by the rate limiter.
func RateLimited() {
	rateLimitedTotal.Inc()
}

// AuthRejected records a request refused for a missing or wrong token.
func AuthRejected() {
	authRejectedTotal.Inc()
}

// knownRoutes are reported verbatim as the path label.
var knownRoutes = map[string]bool{
	"/":                         true,
	"/healthz":                  true,
	"/readyz":                   true,
	"/metrics":                  true,
	"/api/v1/body":              true,
	"/api/v1/orbit/circular":    true,
	"/api/v1/orbit/ellipse":     true,
	"/api/v1/transfer/hohmann":  true,
	"/api/v1/transfer/sweep":    true,
	"/api/v1/rocket/delta-v":    true,
	"/api/v1/gesture/recognize": true,
	"/api/v1/academy/topics":    true,
	"/api/v1/tle/orbit":         true,
	"/api/v1/tle/catalog":       true,
	"/api/v1/tle/passes":        true,
	"/api/v1/stream/orbit":      true,
}

const topicPrefix = "/api/v1/academy/topics/"

// normalizeRoute maps a request path to a bounded set of labels so unknown
// paths and topic ids cannot grow metric cardinality.
func normalizeRoute(path string) string {
	if knownRoutes[path] {
		return path
	}
	if rest, ok := strings.CutPrefix(path, topicPrefix); ok && rest != "" && !strings.Contains(rest, "/") {
		return topicPrefix + "{id}"
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

// Flush forwards to the underlying writer so SSE works through the middleware.
func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware records request count and duration for each request.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		route := normalizeRoute(r.URL.Path)
		duration := time.Since(start).Seconds()
		code := strconv.Itoa(rw.statusCode)

		httpRequestsTotal.WithLabelValues(route, r.Method, code).Inc()
		httpDurationSeconds.WithLabelValues(route, r.Method).Observe(duration)
	})
}
