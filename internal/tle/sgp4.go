package tle

import (
	"fmt"
	"math"
	"strings"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
	"github.com/soniakeys/meeus/v3/julian"
)

// Position magnitudes outside this band mean SGP4 has diverged or the
// element set has decayed.
const (
	minRadiusKm = 6200.0
	maxRadiusKm = 500000.0
)

// Propagator wraps go-satellite's SGP4 model for a single element set.
//
// satellite.Propagate takes Satellite by value so SGP4 error codes are not
// visible to the caller; failures are detected from NaN/Inf output and
// unreasonable position magnitudes.
type Propagator struct {
	sat   satellite.Satellite
	entry TLEEntry
}

// NewPropagator initialises SGP4 (WGS-84 constants) for entry.
//
// The lines are pre-validated because go-satellite calls log.Fatal on
// malformed input.
func NewPropagator(entry TLEEntry) (*Propagator, error) {
	if err := validateLines(entry.Line1, entry.Line2); err != nil {
		return nil, fmt.Errorf("invalid TLE for NORAD %d: %w", entry.NORADID, err)
	}

	sat := satellite.TLEToSat(entry.Line1, entry.Line2, satellite.GravityWGS84)
	if sat.Error != 0 {
		return nil, fmt.Errorf("sgp4 init failed for NORAD %d: code=%d %s", entry.NORADID, sat.Error, sat.ErrorStr)
	}
	return &Propagator{sat: sat, entry: entry}, nil
}

// Entry returns the element set this propagator was built from.
func (p *Propagator) Entry() TLEEntry {
	return p.entry
}

func validateLines(line1, line2 string) error {
	line1 = strings.TrimSpace(line1)
	line2 = strings.TrimSpace(line2)

	if len(line1) != 69 {
		return fmt.Errorf("line1 length %d, expected 69", len(line1))
	}
	if len(line2) != 69 {
		return fmt.Errorf("line2 length %d, expected 69", len(line2))
	}
	if line1[0] != '1' {
		return fmt.Errorf("line1 must start with '1', got '%c'", line1[0])
	}
	if line2[0] != '2' {
		return fmt.Errorf("line2 must start with '2', got '%c'", line2[0])
	}
	return nil
}

// StateAt propagates to t (truncated to whole seconds, UTC).
func (p *Propagator) StateAt(t time.Time) (State, error) {
	t = t.UTC().Truncate(time.Second)
	pos, vel := satellite.Propagate(p.sat, t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second())

	for _, v := range []float64{pos.X, pos.Y, pos.Z, vel.X, vel.Y, vel.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return State{}, fmt.Errorf("sgp4 propagation failed for NORAD %d: output is NaN/Inf", p.entry.NORADID)
		}
	}

	r := math.Sqrt(pos.X*pos.X + pos.Y*pos.Y + pos.Z*pos.Z)
	if r < minRadiusKm || r > maxRadiusKm {
		return State{}, fmt.Errorf("sgp4 propagation failed for NORAD %d: unreasonable position magnitude %.1f km", p.entry.NORADID, r)
	}

	return State{
		Time:        t,
		JulianDate:  julian.TimeToJD(t),
		PositionKm:  [3]float64{pos.X, pos.Y, pos.Z},
		VelocityKmS: [3]float64{vel.X, vel.Y, vel.Z},
		Radius:      r,
		Speed:       math.Sqrt(vel.X*vel.X + vel.Y*vel.Y + vel.Z*vel.Z),
	}, nil
}

// EpochJulianDate returns the element set epoch as a Julian date.
func (p *Propagator) EpochJulianDate() float64 {
	return julian.TimeToJD(p.entry.Epoch)
}
