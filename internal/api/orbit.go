package api

import (
	"log/slog"
	"net/http"

	"github.com/dev2025-gs/orbital-playground/internal/academy"
	"github.com/dev2025-gs/orbital-playground/internal/astro"
	"github.com/dev2025-gs/orbital-playground/internal/gesture"
	"github.com/dev2025-gs/orbital-playground/internal/metrics"
	"github.com/dev2025-gs/orbital-playground/internal/tle"
)

const (
	defaultSweepSamples = 50
	maxSweepSamples     = 500
	maxPathSamples      = 1000
)

type handlers struct {
	body   astro.CentralBody
	store  *tle.Store
	pool   *tle.WorkerPool
	logger *slog.Logger
}

func (h *handlers) getBody(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.body)
}

// GET /api/v1/orbit/circular?radius=6771 or ?altitude=400
func (h *handlers) circularOrbit(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	radius, err := queryFloat(q, "radius")
	if err != nil {
		fail(w, h.logger, "circular", err)
		return
	}
	if radius == nil {
		alt, err := queryFloat(q, "altitude")
		if err != nil {
			fail(w, h.logger, "circular", err)
			return
		}
		if alt == nil {
			fail(w, h.logger, "circular", badRequest("radius or altitude is required"))
			return
		}
		rad, err := altitudeToRadius(h.body, "altitude", *alt)
		if err != nil {
			fail(w, h.logger, "circular", err)
			return
		}
		radius = &rad
	}

	params, err := astro.CircularOrbit(h.body, *radius)
	if err != nil {
		fail(w, h.logger, "circular", err)
		return
	}
	metrics.Calculation("circular", "ok")
	writeJSON(w, http.StatusOK, params)
}

// hohmannRequest accepts either altitudes or radii, in km.
type hohmannRequest struct {
	InitialAltitude *float64 `json:"initial_altitude"`
	TargetAltitude  *float64 `json:"target_altitude"`
	R1              *float64 `json:"r1"`
	R2              *float64 `json:"r2"`
}

func (req hohmannRequest) radii(body astro.CentralBody) (float64, float64, error) {
	if req.R1 != nil && req.R2 != nil {
		return *req.R1, *req.R2, nil
	}
	if req.InitialAltitude == nil || req.TargetAltitude == nil {
		return 0, 0, badRequest("initial_altitude and target_altitude (or r1 and r2) are required")
	}
	r1, err := altitudeToRadius(body, "initial_altitude", *req.InitialAltitude)
	if err != nil {
		return 0, 0, err
	}
	r2, err := altitudeToRadius(body, "target_altitude", *req.TargetAltitude)
	if err != nil {
		return 0, 0, err
	}
	return r1, r2, nil
}

func (h *handlers) hohmann(w http.ResponseWriter, req hohmannRequest) {
	r1, r2, err := req.radii(h.body)
	if err != nil {
		fail(w, h.logger, "hohmann", err)
		return
	}
	schedule, err := astro.HohmannTransfer(h.body, r1, r2)
	if err != nil {
		fail(w, h.logger, "hohmann", err)
		return
	}
	metrics.Calculation("hohmann", "ok")
	writeJSON(w, http.StatusOK, schedule)
}

// POST /api/v1/transfer/hohmann
func (h *handlers) hohmannJSON(w http.ResponseWriter, r *http.Request) {
	var req hohmannRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, h.logger, "hohmann", err)
		return
	}
	h.hohmann(w, req)
}

// GET /api/v1/transfer/hohmann?initial_altitude=400&target_altitude=35786
func (h *handlers) hohmannQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var req hohmannRequest
	for name, dst := range map[string]**float64{
		"initial_altitude": &req.InitialAltitude,
		"target_altitude":  &req.TargetAltitude,
		"r1":               &req.R1,
		"r2":               &req.R2,
	} {
		v, err := queryFloat(q, name)
		if err != nil {
			fail(w, h.logger, "hohmann", err)
			return
		}
		*dst = v
	}
	h.hohmann(w, req)
}

type sweepResponse struct {
	InitialRadius float64              `json:"initial_radius_km"`
	Transfers     []astro.BurnSchedule `json:"transfers"`
}

// GET /api/v1/transfer/sweep?initial_altitude=400&min_altitude=1000&max_altitude=35786&samples=50
func (h *handlers) transferSweep(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	alts := make(map[string]float64, 3)
	for _, name := range []string{"initial_altitude", "min_altitude", "max_altitude"} {
		v, err := queryFloat(q, name)
		if err != nil {
			fail(w, h.logger, "sweep", err)
			return
		}
		if v == nil {
			fail(w, h.logger, "sweep", badRequest("%s is required", name))
			return
		}
		alts[name] = *v
	}
	samples, err := queryInt(q, "samples", defaultSweepSamples, 1, maxSweepSamples)
	if err != nil {
		fail(w, h.logger, "sweep", err)
		return
	}
	if alts["max_altitude"] < alts["min_altitude"] {
		fail(w, h.logger, "sweep", badRequest("max_altitude must not be below min_altitude"))
		return
	}

	radii := make(map[string]float64, 3)
	for name, alt := range alts {
		r, err := altitudeToRadius(h.body, name, alt)
		if err != nil {
			fail(w, h.logger, "sweep", err)
			return
		}
		radii[name] = r
	}

	targets := astro.LinearRadii(radii["min_altitude"], radii["max_altitude"], samples)
	transfers, err := astro.TransferSweep(h.body, radii["initial_altitude"], targets)
	if err != nil {
		fail(w, h.logger, "sweep", err)
		return
	}
	metrics.Calculation("sweep", "ok")
	writeJSON(w, http.StatusOK, sweepResponse{
		InitialRadius: radii["initial_altitude"],
		Transfers:     transfers,
	})
}

type ellipseResponse struct {
	Orbit astro.Geometry     `json:"orbit"`
	Path  []astro.OrbitPoint `json:"path"`
}

// GET /api/v1/orbit/ellipse?altitude=400&eccentricity=0.1&samples=64
//
// altitude is the semi-major axis minus the body radius.
func (h *handlers) ellipse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	alt, err := queryFloat(q, "altitude")
	if err != nil {
		fail(w, h.logger, "ellipse", err)
		return
	}
	if alt == nil {
		fail(w, h.logger, "ellipse", badRequest("altitude is required"))
		return
	}
	e := 0.0
	if v, err := queryFloat(q, "eccentricity"); err != nil {
		fail(w, h.logger, "ellipse", err)
		return
	} else if v != nil {
		e = *v
	}
	samples, err := queryInt(q, "samples", astro.DefaultPathSamples, 3, maxPathSamples)
	if err != nil {
		fail(w, h.logger, "ellipse", err)
		return
	}

	a, err := altitudeToRadius(h.body, "altitude", *alt)
	if err != nil {
		fail(w, h.logger, "ellipse", err)
		return
	}
	el, err := astro.NewEllipse(a, e)
	if err != nil {
		fail(w, h.logger, "ellipse", err)
		return
	}
	if el.Periapsis() <= h.body.Radius {
		fail(w, h.logger, "ellipse", badRequest("periapsis %.1f km is inside %s", el.Periapsis(), h.body.Name))
		return
	}

	metrics.Calculation("ellipse", "ok")
	writeJSON(w, http.StatusOK, ellipseResponse{
		Orbit: el.Geometry(h.body),
		Path:  el.Path(samples),
	})
}

// rocketRequest takes either both masses or a target delta-v.
type rocketRequest struct {
	Isp         float64  `json:"isp"`
	InitialMass *float64 `json:"initial_mass"`
	FinalMass   *float64 `json:"final_mass"`
	DeltaV      *float64 `json:"delta_v"`
}

type rocketResponse struct {
	DeltaV    float64 `json:"delta_v_km_s"`
	MassRatio float64 `json:"mass_ratio"`
}

// POST /api/v1/rocket/delta-v
func (h *handlers) rocketDeltaV(w http.ResponseWriter, r *http.Request) {
	var req rocketRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, h.logger, "rocket", err)
		return
	}

	var resp rocketResponse
	switch {
	case req.InitialMass != nil && req.FinalMass != nil:
		dv, err := astro.RocketDeltaV(req.Isp, *req.InitialMass, *req.FinalMass)
		if err != nil {
			fail(w, h.logger, "rocket", err)
			return
		}
		resp = rocketResponse{DeltaV: dv, MassRatio: *req.InitialMass / *req.FinalMass}
	case req.DeltaV != nil:
		ratio, err := astro.MassRatio(*req.DeltaV, req.Isp)
		if err != nil {
			fail(w, h.logger, "rocket", err)
			return
		}
		resp = rocketResponse{DeltaV: *req.DeltaV, MassRatio: ratio}
	default:
		fail(w, h.logger, "rocket", badRequest("initial_mass and final_mass, or delta_v, are required"))
		return
	}

	metrics.Calculation("rocket", "ok")
	writeJSON(w, http.StatusOK, resp)
}

type gestureRequest struct {
	Points []gesture.Point `json:"points"`
}

// POST /api/v1/gesture/recognize
func (h *handlers) recognizeGesture(w http.ResponseWriter, r *http.Request) {
	var req gestureRequest
	if err := decodeJSON(w, r, &req); err != nil {
		fail(w, h.logger, "gesture", err)
		return
	}
	res, err := gesture.Recognize(req.Points)
	if err != nil {
		fail(w, h.logger, "gesture", err)
		return
	}
	metrics.Calculation("gesture", "ok")
	metrics.GestureShape(string(res.Shape))
	writeJSON(w, http.StatusOK, res)
}

func (h *handlers) listTopics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"topics": academy.List()})
}

func (h *handlers) getTopic(w http.ResponseWriter, r *http.Request) {
	topic, err := academy.Get(r.PathValue("id"))
	if err != nil {
		fail(w, h.logger, "", err)
		return
	}
	writeJSON(w, http.StatusOK, topic)
}
