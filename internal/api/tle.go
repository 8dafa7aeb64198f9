package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/dev2025-gs/orbital-playground/internal/astro"
	"github.com/dev2025-gs/orbital-playground/internal/metrics"
	"github.com/dev2025-gs/orbital-playground/internal/passes"
	"github.com/dev2025-gs/orbital-playground/internal/tle"
	"github.com/dev2025-gs/orbital-playground/internal/transform"
)

// maxCatalogEntries bounds the CPU spent on one catalogue request.
const maxCatalogEntries = 2000

// tleBody is the body SGP4 element sets orbit. Radii derived from them are
// never combined with a configured body's μ.
var tleBody = astro.Earth

type observerRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Altitude  float64 `json:"altitude_km"`
}

type tleOrbitRequest struct {
	TLE            string           `json:"tle"`
	NORADID        int              `json:"norad_id"`
	At             *time.Time       `json:"at"`
	TargetAltitude *float64         `json:"target_altitude"`
	Observer       *observerRequest `json:"observer"`
}

type tleOrbitResponse struct {
	Satellite tle.Track               `json:"satellite"`
	Circular  astro.OrbitalParameters `json:"circular"`
	Transfer  *astro.BurnSchedule     `json:"transfer,omitempty"`
	Look      *transform.LookAngles   `json:"look,omitempty"`
	Cached    bool                    `json:"cached,omitempty"`
}

// resolveEntry returns the element set from the inline text or, failing
// that, from the NORAD store.
func (h *handlers) resolveEntry(r *http.Request, text string, noradID int) (tle.TLEEntry, bool, error) {
	if strings.TrimSpace(text) != "" {
		entry, err := tle.ParseOne(text, h.logger)
		if err != nil {
			return tle.TLEEntry{}, false, badRequest("tle: %v", err)
		}
		return entry, false, nil
	}
	if noradID <= 0 {
		return tle.TLEEntry{}, false, badRequest("tle or norad_id is required")
	}
	if h.store == nil {
		return tle.TLEEntry{}, false, errNoStore
	}
	entry, cached, err := h.store.Get(r.Context(), noradID)
	if err != nil {
		return tle.TLEEntry{}, false, &upstreamError{err: err}
	}
	if cached {
		metrics.TLELookup("cache")
	} else {
		metrics.TLELookup("upstream")
	}
	return entry, cached, nil
}

var errNoStore = errors.New("NORAD lookup not configured")

// upstreamError wraps a failed element set fetch.
type upstreamError struct {
	err error
}

func (e *upstreamError) Error() string { return "fetching element set: " + e.err.Error() }
func (e *upstreamError) Unwrap() error { return e.err }

// failLookup maps a resolveEntry error to its response.
func (h *handlers) failLookup(w http.ResponseWriter, kind string, noradID int, err error) {
	var ue *upstreamError
	switch {
	case errors.Is(err, tle.ErrNoEntries):
		metrics.Calculation(kind, "invalid")
		writeError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &ue):
		h.logger.Warn("element set lookup failed", "component", "api", "norad_id", noradID, "error", err)
		metrics.Calculation(kind, "error")
		writeError(w, http.StatusBadGateway, err.Error())
	case errors.Is(err, errNoStore):
		metrics.Calculation(kind, "error")
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		fail(w, h.logger, kind, err)
	}
}

// POST /api/v1/tle/orbit
//
// Propagates a satellite to the requested instant and seeds the circular
// orbit and, with target_altitude, Hohmann calculators with its radius.
func (h *handlers) tleOrbit(w http.ResponseWriter, r *http.Request) {
	var req tleOrbitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, h.logger, "tle", err)
		return
	}

	entry, cached, err := h.resolveEntry(r, req.TLE, req.NORADID)
	if err != nil {
		h.failLookup(w, "tle", req.NORADID, err)
		return
	}

	at := time.Now()
	if req.At != nil {
		at = *req.At
	}

	track, err := tle.TrackAt(entry, at)
	if err != nil {
		// Decayed or diverged element sets are a client-side problem.
		fail(w, h.logger, "tle", badRequest("%v", err))
		return
	}

	circ, err := astro.CircularOrbit(tleBody, track.State.Radius)
	if err != nil {
		fail(w, h.logger, "tle", err)
		return
	}
	resp := tleOrbitResponse{Satellite: track, Circular: circ, Cached: cached}

	if req.TargetAltitude != nil {
		r2, err := altitudeToRadius(tleBody, "target_altitude", *req.TargetAltitude)
		if err != nil {
			fail(w, h.logger, "tle", err)
			return
		}
		schedule, err := astro.HohmannTransfer(tleBody, track.State.Radius, r2)
		if err != nil {
			fail(w, h.logger, "tle", err)
			return
		}
		resp.Transfer = &schedule
	}

	if req.Observer != nil {
		obs, err := transform.NewObserver(req.Observer.Latitude, req.Observer.Longitude, req.Observer.Altitude)
		if err != nil {
			fail(w, h.logger, "tle", err)
			return
		}
		ecef := transform.TEMEToECEF(transform.Vector(track.State.PositionKm), track.State.Time)
		look := obs.Look(ecef)
		resp.Look = &look
	}

	metrics.Calculation("tle", "ok")
	writeJSON(w, http.StatusOK, resp)
}

type tleCatalogRequest struct {
	TLE string     `json:"tle"`
	At  *time.Time `json:"at"`
}

type tleCatalogResponse struct {
	Time       time.Time   `json:"time"`
	Propagated int         `json:"propagated"`
	Failed     int         `json:"failed"`
	Tracks     []tle.Track `json:"tracks"`
}

// POST /api/v1/tle/catalog
//
// Propagates every element set in a catalogue text to one instant.
func (h *handlers) tleCatalog(w http.ResponseWriter, r *http.Request) {
	var req tleCatalogRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, h.logger, "catalog", err)
		return
	}

	entries, err := tle.Parse(strings.NewReader(req.TLE), h.logger)
	if err != nil {
		fail(w, h.logger, "catalog", badRequest("tle: %v", err))
		return
	}
	if len(entries) == 0 {
		fail(w, h.logger, "catalog", badRequest("tle: %v", tle.ErrNoEntries))
		return
	}
	if len(entries) > maxCatalogEntries {
		fail(w, h.logger, "catalog", badRequest("catalogue has %d entries, limit is %d", len(entries), maxCatalogEntries))
		return
	}

	at := time.Now()
	if req.At != nil {
		at = *req.At
	}
	at = at.UTC().Truncate(time.Second)

	pool := h.pool
	if pool == nil {
		pool = tle.NewWorkerPool(1, h.logger)
	}
	tracks, ok, failed := pool.TrackBatch(r.Context(), entries, at)

	metrics.Calculation("catalog", "ok")
	writeJSON(w, http.StatusOK, tleCatalogResponse{
		Time:       at,
		Propagated: ok,
		Failed:     failed,
		Tracks:     tracks,
	})
}

type tlePassesRequest struct {
	TLE          string           `json:"tle"`
	NORADID      int              `json:"norad_id"`
	Observer     *observerRequest `json:"observer"`
	Start        *time.Time       `json:"start"`
	Hours        *float64         `json:"hours"`
	MinElevation float64          `json:"min_elevation"`
	MaxPasses    *int             `json:"max_passes"`
}

type tlePassesResponse struct {
	NORADID int           `json:"norad_id"`
	Name    string        `json:"name,omitempty"`
	Start   time.Time     `json:"start"`
	End     time.Time     `json:"end"`
	Passes  []passes.Pass `json:"passes"`
	Cached  bool          `json:"cached,omitempty"`
}

const (
	defaultPassHours = 24
	defaultMaxPasses = 10
)

// POST /api/v1/tle/passes
//
// Predicts when a satellite is above min_elevation for a ground observer.
func (h *handlers) tlePasses(w http.ResponseWriter, r *http.Request) {
	var req tlePassesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, h.logger, "passes", err)
		return
	}
	if req.Observer == nil {
		fail(w, h.logger, "passes", badRequest("observer is required"))
		return
	}
	obs, err := transform.NewObserver(req.Observer.Latitude, req.Observer.Longitude, req.Observer.Altitude)
	if err != nil {
		fail(w, h.logger, "passes", err)
		return
	}

	window := passes.Window{
		Start:        time.Now(),
		Horizon:      defaultPassHours * time.Hour,
		MinElevation: req.MinElevation,
		MaxPasses:    defaultMaxPasses,
	}
	if req.Start != nil {
		window.Start = *req.Start
	}
	if req.Hours != nil {
		window.Horizon = time.Duration(*req.Hours * float64(time.Hour))
	}
	if req.MaxPasses != nil {
		window.MaxPasses = *req.MaxPasses
	}
	if err := window.Validate(); err != nil {
		fail(w, h.logger, "passes", err)
		return
	}

	entry, cached, err := h.resolveEntry(r, req.TLE, req.NORADID)
	if err != nil {
		h.failLookup(w, "passes", req.NORADID, err)
		return
	}
	prop, err := tle.NewPropagator(entry)
	if err != nil {
		fail(w, h.logger, "passes", badRequest("tle: %v", err))
		return
	}

	found, err := passes.Predict(r.Context(), prop, obs, window)
	if err != nil {
		fail(w, h.logger, "passes", err)
		return
	}

	start := window.Start.UTC().Truncate(time.Second)
	metrics.Calculation("passes", "ok")
	writeJSON(w, http.StatusOK, tlePassesResponse{
		NORADID: entry.NORADID,
		Name:    entry.Name,
		Start:   start,
		End:     start.Add(window.Horizon),
		Passes:  found,
		Cached:  cached,
	})
}
