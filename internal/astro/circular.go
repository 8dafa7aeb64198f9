package astro

import "math"

// OrbitalParameters describes a circular orbit.
type OrbitalParameters struct {
	Radius   float64 `json:"radius_km"`
	Velocity float64 `json:"velocity_km_s"`
	Altitude float64 `json:"altitude_km"`
	Period   float64 `json:"period_minutes"`
}

// CircularOrbit derives velocity, period and altitude for a circular orbit of
// radius r around body. Radii inside the body are not rejected.
func CircularOrbit(body CentralBody, r float64) (OrbitalParameters, error) {
	if err := checkRadius("radius", r); err != nil {
		return OrbitalParameters{}, err
	}

	return OrbitalParameters{
		Radius:   r,
		Velocity: math.Sqrt(body.Mu / r),
		Altitude: r - body.Radius,
		Period:   periodSeconds(body.Mu, r) / 60,
	}, nil
}

// periodSeconds is the Keplerian period of an orbit with semi-major axis a.
func periodSeconds(mu, a float64) float64 {
	return 2 * math.Pi * math.Sqrt(a*a*a/mu)
}
