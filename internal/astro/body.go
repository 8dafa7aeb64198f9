// Package astro implements the closed-form two-body calculations behind the
// orbit viewer: circular-orbit parameters, Hohmann transfers, Keplerian ellipse
// geometry and the rocket equation.
//
// All functions are pure. Working units are kilometres and seconds; periods and
// transfer times are reported in minutes.
package astro

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput is returned for radii, axes or masses that are zero,
// negative, NaN or infinite.
var ErrInvalidInput = errors.New("invalid input")

// CentralBody is the massive body an orbit is computed around.
type CentralBody struct {
	Name   string  `json:"name"`
	Radius float64 `json:"radius_km"` // km
	Mu     float64 `json:"mu"`        // gravitational parameter, km^3/s^2
}

// Earth uses the mean radius and the WGS-84 gravitational parameter.
var Earth = CentralBody{
	Name:   "Earth",
	Radius: 6371,
	Mu:     398600.4418,
}

// Validate reports whether the body has a positive, finite radius and μ.
func (b CentralBody) Validate() error {
	if !positive(b.Radius) {
		return fmt.Errorf("body radius %v: %w", b.Radius, ErrInvalidInput)
	}
	if !positive(b.Mu) {
		return fmt.Errorf("body gravitational parameter %v: %w", b.Mu, ErrInvalidInput)
	}
	return nil
}

// RadiusFromAltitude converts an altitude above the surface to a radius from
// the body centre.
func (b CentralBody) RadiusFromAltitude(altitude float64) float64 {
	return b.Radius + altitude
}

// positive is true for finite values strictly greater than zero.
func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

func checkRadius(name string, r float64) error {
	if !positive(r) {
		return fmt.Errorf("%s %v: %w", name, r, ErrInvalidInput)
	}
	return nil
}
