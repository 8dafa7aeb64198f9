package astro

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// BurnSchedule is the two-impulse plan for a Hohmann transfer.
type BurnSchedule struct {
	InitialRadius         float64 `json:"initial_radius_km"`
	TargetRadius          float64 `json:"target_radius_km"`
	TransferSemiMajorAxis float64 `json:"transfer_semi_major_axis_km"`
	DeltaV1               float64 `json:"delta_v1_km_s"`
	DeltaV2               float64 `json:"delta_v2_km_s"`
	TotalDeltaV           float64 `json:"total_delta_v_km_s"`
	TransferTime          float64 `json:"transfer_time_minutes"`
}

// HohmannTransfer computes the minimum-energy two-burn transfer between
// coplanar circular orbits of radii r1 and r2. Either ordering is accepted;
// burn magnitudes are absolute. Equal radii yield an all-zero schedule.
func HohmannTransfer(body CentralBody, r1, r2 float64) (BurnSchedule, error) {
	if err := checkRadius("initial radius", r1); err != nil {
		return BurnSchedule{}, err
	}
	if err := checkRadius("target radius", r2); err != nil {
		return BurnSchedule{}, err
	}

	if r1 == r2 {
		return BurnSchedule{
			InitialRadius:         r1,
			TargetRadius:          r2,
			TransferSemiMajorAxis: r1,
		}, nil
	}

	mu := body.Mu
	v1 := math.Sqrt(mu / r1)
	v2 := math.Sqrt(mu / r2)

	a := (r1 + r2) / 2

	// Vis-viva at periapsis and apoapsis of the transfer ellipse.
	vt1 := math.Sqrt(mu * (2/r1 - 1/a))
	vt2 := math.Sqrt(mu * (2/r2 - 1/a))

	dv1 := math.Abs(vt1 - v1)
	dv2 := math.Abs(v2 - vt2)

	return BurnSchedule{
		InitialRadius:         r1,
		TargetRadius:          r2,
		TransferSemiMajorAxis: a,
		DeltaV1:               dv1,
		DeltaV2:               dv2,
		TotalDeltaV:           dv1 + dv2,
		TransferTime:          math.Pi * math.Sqrt(a*a*a/mu) / 60,
	}, nil
}

// TransferSweep evaluates HohmannTransfer from r1 to each radius in targets.
// It stops at the first invalid target.
func TransferSweep(body CentralBody, r1 float64, targets []float64) ([]BurnSchedule, error) {
	out := make([]BurnSchedule, 0, len(targets))
	for i, r2 := range targets {
		bs, err := HohmannTransfer(body, r1, r2)
		if err != nil {
			return nil, fmt.Errorf("sweep target %d: %w", i, err)
		}
		out = append(out, bs)
	}
	return out, nil
}

// LinearRadii returns n evenly spaced radii from lo to hi inclusive.
func LinearRadii(lo, hi float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	if n == 1 {
		return []float64{lo}
	}
	return floats.Span(make([]float64, n), lo, hi)
}
