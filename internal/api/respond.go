package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dev2025-gs/orbital-playground/internal/academy"
	"github.com/dev2025-gs/orbital-playground/internal/astro"
	"github.com/dev2025-gs/orbital-playground/internal/gesture"
	"github.com/dev2025-gs/orbital-playground/internal/metrics"
	"github.com/dev2025-gs/orbital-playground/internal/passes"
	"github.com/dev2025-gs/orbital-playground/internal/transform"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// errBadRequest marks request validation failures raised by the handlers.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest),
		errors.Is(err, astro.ErrInvalidInput),
		errors.Is(err, gesture.ErrTooFewPoints),
		errors.Is(err, transform.ErrInvalidObserver),
		errors.Is(err, passes.ErrInvalidWindow):
		return http.StatusBadRequest
	case errors.Is(err, academy.ErrTopicNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status, recording a calculation result
// when kind is set. Server errors are logged and not echoed to the client.
func fail(w http.ResponseWriter, logger *slog.Logger, kind string, err error) {
	status := statusFor(err)
	if kind != "" {
		result := "invalid"
		if status >= 500 {
			result = "error"
		}
		metrics.Calculation(kind, result)
	}
	if status >= 500 {
		logger.Error("request failed", "component", "api", "kind", kind, "error", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, err.Error())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return badRequest("invalid JSON body: %v", err)
	}
	return nil
}

// queryFloat parses an optional float query parameter. A missing parameter
// returns nil.
func queryFloat(q url.Values, name string) (*float64, error) {
	v := q.Get(name)
	if v == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, badRequest("invalid %s parameter %q", name, v)
	}
	return &f, nil
}

// queryInt parses an optional integer query parameter within [lo, hi].
func queryInt(q url.Values, name string, def, lo, hi int) (int, error) {
	v := q.Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < lo || n > hi {
		return 0, badRequest("invalid %s parameter, must be %d-%d", name, lo, hi)
	}
	return n, nil
}

// altitudeToRadius converts a non-negative altitude to an orbital radius.
func altitudeToRadius(body astro.CentralBody, name string, alt float64) (float64, error) {
	if alt < 0 || math.IsNaN(alt) || math.IsInf(alt, 0) {
		return 0, badRequest("%s must be a non-negative number of km, got %v", name, alt)
	}
	return body.RadiusFromAltitude(alt), nil
}
