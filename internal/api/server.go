package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dev2025-gs/orbital-playground/internal/astro"
	"github.com/dev2025-gs/orbital-playground/internal/auth"
	"github.com/dev2025-gs/orbital-playground/internal/health"
	"github.com/dev2025-gs/orbital-playground/internal/httputil"
	"github.com/dev2025-gs/orbital-playground/internal/metrics"
	"github.com/dev2025-gs/orbital-playground/internal/ratelimit"
	"github.com/dev2025-gs/orbital-playground/internal/stream"
	"github.com/dev2025-gs/orbital-playground/internal/tle"
)

// Config wires the server's dependencies.
type Config struct {
	Addr       string
	Body       astro.CentralBody
	Auth       auth.Config
	RateLimit  ratelimit.Config
	Limiter    *ratelimit.IPRateLimiter // nil disables rate limiting
	Stream     *stream.Handler
	TLEStore   *tle.Store
	Pool       *tle.WorkerPool
	TrustProxy bool
}

// Server holds the HTTP server and its dependencies.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates a configured HTTP server.
func NewServer(cfg Config, logger *slog.Logger) *Server {
	handler := NewHandler(cfg, logger)

	return &Server{
		httpServer: &http.Server{
			Addr:              cfg.Addr,
			Handler:           handler,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		logger: logger,
	}
}

// NewHandler builds the routed handler with its middleware chain.
func NewHandler(cfg Config, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	h := &handlers{
		body:   cfg.Body,
		store:  cfg.TLEStore,
		pool:   cfg.Pool,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", health.Healthz)
	mux.HandleFunc("GET /readyz", health.Readyz(logger, cfg.Body.Validate))
	mux.Handle("GET /metrics", metrics.Handler())

	mux.HandleFunc("GET /api/v1/body", h.getBody)
	mux.HandleFunc("GET /api/v1/orbit/circular", h.circularOrbit)
	mux.HandleFunc("GET /api/v1/orbit/ellipse", h.ellipse)
	mux.HandleFunc("GET /api/v1/transfer/hohmann", h.hohmannQuery)
	mux.HandleFunc("POST /api/v1/transfer/hohmann", h.hohmannJSON)
	mux.HandleFunc("GET /api/v1/transfer/sweep", h.transferSweep)
	mux.HandleFunc("POST /api/v1/rocket/delta-v", h.rocketDeltaV)
	mux.HandleFunc("POST /api/v1/gesture/recognize", h.recognizeGesture)
	mux.HandleFunc("GET /api/v1/academy/topics", h.listTopics)
	mux.HandleFunc("GET /api/v1/academy/topics/{id}", h.getTopic)
	mux.HandleFunc("POST /api/v1/tle/orbit", h.tleOrbit)
	mux.HandleFunc("POST /api/v1/tle/catalog", h.tleCatalog)
	mux.HandleFunc("POST /api/v1/tle/passes", h.tlePasses)
	if cfg.Stream != nil {
		mux.HandleFunc("GET /api/v1/stream/orbit", cfg.Stream.HandleOrbit)
	}

	// Build middleware chain: metrics -> logging -> auth -> rate limit -> mux.
	var handler http.Handler = mux
	handler = ratelimit.Middleware(cfg.RateLimit, cfg.Limiter, logger)(handler)
	handler = auth.Middleware(cfg.Auth)(handler)
	handler = loggingMiddleware(logger, cfg.TrustProxy)(handler)
	handler = metrics.Middleware(handler)
	return handler
}

// HTTPServer returns the underlying *http.Server for external control (e.g. shutdown).
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// probePath returns true for health/readiness probe paths that should not log at INFO.
func probePath(path string) bool {
	return path == "/healthz" || path == "/readyz" || path == "/metrics"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.statusCode = code
	sr.ResponseWriter.WriteHeader(code)
}

// Flush keeps SSE working through the logging middleware.
func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter {
	return sr.ResponseWriter
}

func loggingMiddleware(logger *slog.Logger, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(sr, r)

			duration := time.Since(start)
			level := slog.LevelInfo
			if probePath(r.URL.Path) {
				level = slog.LevelDebug
			}

			logger.Log(r.Context(), level, "request",
				"component", "api",
				"method", r.Method,
				"path", r.URL.Path,
				"status", strconv.Itoa(sr.statusCode),
				"duration_ms", duration.Milliseconds(),
				"remote_ip", httputil.ClientIP(r, trustProxy),
			)
		})
	}
}
