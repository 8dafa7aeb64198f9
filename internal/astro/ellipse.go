package astro

import (
	"fmt"
	"math"
)

// OrbitType is a coarse label for an orbit's eccentricity.
type OrbitType string

const (
	OrbitCircular         OrbitType = "circular"
	OrbitElliptical       OrbitType = "elliptical"
	OrbitHighlyElliptical OrbitType = "highly_elliptical"
)

// ClassifyEccentricity labels e the way the viewer overlay does.
func ClassifyEccentricity(e float64) OrbitType {
	switch {
	case e < 0.1:
		return OrbitCircular
	case e < 0.5:
		return OrbitElliptical
	default:
		return OrbitHighlyElliptical
	}
}

// DefaultPathSamples is the number of points used to draw an orbit path.
const DefaultPathSamples = 64

const (
	keplerTolerance = 1e-12
	keplerMaxIter   = 50
)

// Ellipse is a bound Keplerian orbit in its own plane, with the central body
// at the focus on the origin and periapsis on the +X axis.
type Ellipse struct {
	SemiMajorAxis float64 `json:"semi_major_axis_km"`
	Eccentricity  float64 `json:"eccentricity"`
}

// OrbitPoint is a position in the orbital plane, in km.
type OrbitPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// OrbitSample is the state of a body on an Ellipse at a time past periapsis.
type OrbitSample struct {
	Elapsed     float64    `json:"elapsed_seconds"`
	MeanAnomaly float64    `json:"mean_anomaly_rad"`
	TrueAnomaly float64    `json:"true_anomaly_rad"`
	Radius      float64    `json:"radius_km"`
	Speed       float64    `json:"speed_km_s"`
	Position    OrbitPoint `json:"position"`
}

// NewEllipse validates a semi-major axis and eccentricity.
func NewEllipse(a, e float64) (Ellipse, error) {
	if err := checkRadius("semi-major axis", a); err != nil {
		return Ellipse{}, err
	}
	if math.IsNaN(e) || e < 0 || e >= 1 {
		return Ellipse{}, fmt.Errorf("eccentricity %v outside [0, 1): %w", e, ErrInvalidInput)
	}
	return Ellipse{SemiMajorAxis: a, Eccentricity: e}, nil
}

// SemiMinorAxis returns b = a·sqrt(1-e²).
func (el Ellipse) SemiMinorAxis() float64 {
	return el.SemiMajorAxis * math.Sqrt(1-el.Eccentricity*el.Eccentricity)
}

// Periapsis returns the closest-approach radius.
func (el Ellipse) Periapsis() float64 {
	return el.SemiMajorAxis * (1 - el.Eccentricity)
}

// Apoapsis returns the farthest radius.
func (el Ellipse) Apoapsis() float64 {
	return el.SemiMajorAxis * (1 + el.Eccentricity)
}

// Period returns the orbital period in minutes.
func (el Ellipse) Period(body CentralBody) float64 {
	return periodSeconds(body.Mu, el.SemiMajorAxis) / 60
}

// Type classifies the ellipse by eccentricity.
func (el Ellipse) Type() OrbitType {
	return ClassifyEccentricity(el.Eccentricity)
}

// Geometry is the derived shape of an Ellipse, flattened for display.
type Geometry struct {
	SemiMajorAxis float64   `json:"semi_major_axis_km"`
	Eccentricity  float64   `json:"eccentricity"`
	SemiMinorAxis float64   `json:"semi_minor_axis_km"`
	Periapsis     float64   `json:"periapsis_km"`
	Apoapsis      float64   `json:"apoapsis_km"`
	Period        float64   `json:"period_minutes"`
	Type          OrbitType `json:"orbit_type"`
}

// Geometry returns the derived shape around body.
func (el Ellipse) Geometry(body CentralBody) Geometry {
	return Geometry{
		SemiMajorAxis: el.SemiMajorAxis,
		Eccentricity:  el.Eccentricity,
		SemiMinorAxis: el.SemiMinorAxis(),
		Periapsis:     el.Periapsis(),
		Apoapsis:      el.Apoapsis(),
		Period:        el.Period(body),
		Type:          el.Type(),
	}
}

// Path samples n points evenly spaced in eccentric anomaly around the orbit.
// n below 3 falls back to DefaultPathSamples.
func (el Ellipse) Path(n int) []OrbitPoint {
	if n < 3 {
		n = DefaultPathSamples
	}
	pts := make([]OrbitPoint, n)
	for i := range pts {
		E := float64(i) / float64(n) * 2 * math.Pi
		pts[i] = el.positionAtEccentric(E)
	}
	return pts
}

// StateAt propagates a body from periapsis by dt seconds.
func (el Ellipse) StateAt(body CentralBody, dt float64) OrbitSample {
	a, e := el.SemiMajorAxis, el.Eccentricity
	n := math.Sqrt(body.Mu / (a * a * a))

	M := normalizeAngle(n * dt)
	E := solveKepler(M, e)

	sinE, cosE := math.Sincos(E)
	nu := normalizeAngle(math.Atan2(math.Sqrt(1-e*e)*sinE, cosE-e))
	r := a * (1 - e*cosE)

	return OrbitSample{
		Elapsed:     dt,
		MeanAnomaly: M,
		TrueAnomaly: nu,
		Radius:      r,
		Speed:       math.Sqrt(body.Mu * (2/r - 1/a)),
		Position:    el.positionAtEccentric(E),
	}
}

func (el Ellipse) positionAtEccentric(E float64) OrbitPoint {
	sinE, cosE := math.Sincos(E)
	return OrbitPoint{
		X: el.SemiMajorAxis * (cosE - el.Eccentricity),
		Y: el.SemiMinorAxis() * sinE,
	}
}

// solveKepler solves E - e·sin(E) = M for E by Newton iteration.
func solveKepler(M, e float64) float64 {
	E := M
	if e > 0.8 {
		E = math.Pi
	}
	for i := 0; i < keplerMaxIter; i++ {
		f := E - e*math.Sin(E) - M
		d := f / (1 - e*math.Cos(E))
		E -= d
		if math.Abs(d) < keplerTolerance {
			break
		}
	}
	return E
}

func normalizeAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a < 0 {
		a += 2 * math.Pi
	}
	return a
}
