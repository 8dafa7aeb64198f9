// Package stream implements Server-Sent Events (SSE) streaming of a body
// moving along a Keplerian orbit. Clients connect via GET /api/v1/stream/orbit
// and receive the propagated state at a fixed wall-clock step, with
// simulated time running speed times faster.
//
// SSE message format:
//
//	data: {"type":"orbit_state","t":"2026-02-06T04:00:00Z","elapsed_seconds":60,...}\n\n
//
// First message is always metadata describing the orbit:
//
//	data: {"type":"metadata","body":{...},"orbit":{...},"circular":{...}}\n\n
//
// Keep-alive comments (:\n\n) are sent every KeepaliveInterval to prevent timeout.
// Reconnecting clients restart at periapsis with a fresh metadata message.
package stream

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/dev2025-gs/orbital-playground/internal/astro"
	"github.com/dev2025-gs/orbital-playground/internal/httputil"
	"github.com/dev2025-gs/orbital-playground/internal/metrics"
)

// Query parameter defaults and bounds.
const (
	defaultAltitude = 400.0
	defaultStep     = 1
	maxStep         = 60
	defaultSpeed    = 60.0
	maxSpeed        = 3600.0
)

// Config holds streaming configuration loaded from environment variables.
type Config struct {
	MaxConcurrentPerIP int           // Max concurrent streams per IP (default: 5).
	KeepaliveInterval  time.Duration // Keep-alive ping interval (default: 30s).
	TrustProxy         bool          // Use X-Forwarded-For for the per-IP cap.
}

// Handler manages SSE streaming connections.
type Handler struct {
	body    astro.CentralBody
	config  Config
	limiter *streamLimiter
	logger  *slog.Logger
}

// NewHandler creates a new streaming handler for orbits around body.
func NewHandler(body astro.CentralBody, config Config, logger *slog.Logger) *Handler {
	if config.KeepaliveInterval <= 0 {
		config.KeepaliveInterval = 30 * time.Second
	}
	return &Handler{
		body:    body,
		config:  config,
		limiter: newStreamLimiter(config.MaxConcurrentPerIP),
		logger:  logger,
	}
}

// streamParams are the validated query parameters of one stream.
type streamParams struct {
	ellipse astro.Ellipse
	step    int
	speed   float64
}

func (h *Handler) parseParams(r *http.Request) (streamParams, error) {
	q := r.URL.Query()

	altitude := defaultAltitude
	if v := q.Get("altitude"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || math.IsInf(f, 0) || math.IsNaN(f) {
			return streamParams{}, fmt.Errorf("invalid altitude parameter, must be a non-negative number of km")
		}
		altitude = f
	}

	eccentricity := 0.0
	if v := q.Get("eccentricity"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return streamParams{}, fmt.Errorf("invalid eccentricity parameter, must be in [0, 1)")
		}
		eccentricity = f
	}

	step := defaultStep
	if v := q.Get("step"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxStep {
			return streamParams{}, fmt.Errorf("invalid step parameter, must be 1-%d", maxStep)
		}
		step = n
	}

	speed := defaultSpeed
	if v := q.Get("speed"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || !(f >= 1 && f <= maxSpeed) {
			return streamParams{}, fmt.Errorf("invalid speed parameter, must be 1-%g", maxSpeed)
		}
		speed = f
	}

	el, err := astro.NewEllipse(h.body.RadiusFromAltitude(altitude), eccentricity)
	if err != nil {
		return streamParams{}, err
	}
	if el.Periapsis() <= h.body.Radius {
		return streamParams{}, fmt.Errorf("periapsis %.1f km is inside %s", el.Periapsis(), h.body.Name)
	}

	return streamParams{ellipse: el, step: step, speed: speed}, nil
}

// HandleOrbit serves the SSE orbit stream.
// GET /api/v1/stream/orbit?altitude=400&eccentricity=0.1&step=1&speed=60
func (h *Handler) HandleOrbit(w http.ResponseWriter, r *http.Request) {
	params, err := h.parseParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// Rate limiting: enforce concurrent stream limit per IP.
	ip := httputil.ClientIP(r, h.config.TrustProxy)
	if !h.limiter.acquire(ip) {
		metrics.StreamRejected()
		h.logger.Warn("stream rate limit exceeded",
			"component", "stream",
			"remote_ip", ip,
			"current_count", h.limiter.count(ip),
		)
		w.Header().Set("Retry-After", "30")
		writeError(w, http.StatusTooManyRequests, "too many concurrent streams")
		return
	}

	metrics.StreamOpened()
	startTime := time.Now()
	h.logger.Info("stream connected",
		"component", "stream",
		"remote_ip", ip,
		"user_agent", r.Header.Get("User-Agent"),
		"semi_major_axis_km", params.ellipse.SemiMajorAxis,
		"eccentricity", params.ellipse.Eccentricity,
		"step", params.step,
		"speed", params.speed,
	)

	var c *client
	defer func() {
		h.limiter.release(ip)
		metrics.StreamClosed()
		attrs := []any{
			"component", "stream",
			"remote_ip", ip,
			"duration_seconds", int(time.Since(startTime).Seconds()),
		}
		if c != nil {
			attrs = append(attrs, "messages_sent", c.messagesSent, "bytes_sent", c.bytesSent)
		}
		h.logger.Info("stream disconnected", attrs...)
	}()

	// Verify flusher support (required for SSE).
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering.
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Clear the server's default WriteTimeout for this connection.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("could not clear write deadline", "error", err)
	}

	c = &client{
		w:       w,
		flusher: flusher,
		rc:      rc,
		ip:      ip,
		logger:  h.logger,
	}

	// Jittered retry interval (3-7s) spreads reconnections after a restart.
	if err := c.sendRetry(3000 + rand.Intn(4000)); err != nil {
		return
	}

	if err := c.sendJSON(h.metadata(params)); err != nil {
		h.logger.Warn("stream send error (metadata)", "component", "stream", "remote_ip", ip, "error", err)
		return
	}

	ticker := time.NewTicker(time.Duration(params.step) * time.Second)
	defer ticker.Stop()

	keepaliveTicker := time.NewTicker(h.config.KeepaliveInterval)
	defer keepaliveTicker.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return

		case now := <-ticker.C:
			elapsed := now.Sub(startTime).Seconds() * params.speed
			msg := h.stateMessage(params.ellipse, now, elapsed)
			if err := c.sendJSON(msg); err != nil {
				h.logger.Warn("stream send error", "component", "stream", "remote_ip", ip, "error", err)
				return
			}
			metrics.StreamMessage()

			// Reset keepalive since we just sent data.
			keepaliveTicker.Reset(h.config.KeepaliveInterval)

		case <-keepaliveTicker.C:
			if err := c.sendKeepalive(); err != nil {
				h.logger.Warn("stream keepalive error", "component", "stream", "remote_ip", ip, "error", err)
				return
			}
		}
	}
}

func (h *Handler) metadata(p streamParams) metadataMessage {
	// The circular reference orbit shares the semi-major axis and is always valid here.
	circ, _ := astro.CircularOrbit(h.body, p.ellipse.SemiMajorAxis)
	return metadataMessage{
		Type:     "metadata",
		Body:     h.body,
		Orbit:    p.ellipse.Geometry(h.body),
		Circular: circ,
		Step:     p.step,
		Speed:    p.speed,
	}
}

func (h *Handler) stateMessage(el astro.Ellipse, now time.Time, elapsed float64) orbitStateMessage {
	s := el.StateAt(h.body, elapsed)
	return orbitStateMessage{
		Type:        "orbit_state",
		T:           now.UTC().Format(time.RFC3339),
		OrbitSample: s,
		Altitude:    s.Radius - h.body.Radius,
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// SSE message payload types.

type metadataMessage struct {
	Type     string                  `json:"type"`
	Body     astro.CentralBody       `json:"body"`
	Orbit    astro.Geometry          `json:"orbit"`
	Circular astro.OrbitalParameters `json:"circular"`
	Step     int                     `json:"step_seconds"`
	Speed    float64                 `json:"speed"`
}

type orbitStateMessage struct {
	Type string `json:"type"`
	T    string `json:"t"`
	astro.OrbitSample
	Altitude float64 `json:"altitude_km"`
}
