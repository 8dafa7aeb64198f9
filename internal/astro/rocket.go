package astro

import (
	"fmt"
	"math"
)

// StandardGravity is g0 in m/s^2.
const StandardGravity = 9.80665

// RocketDeltaV applies the Tsiolkovsky rocket equation. isp is in seconds,
// masses in any consistent unit; the result is in km/s.
func RocketDeltaV(isp, initialMass, finalMass float64) (float64, error) {
	if !positive(isp) || !positive(initialMass) || !positive(finalMass) {
		return 0, fmt.Errorf("isp=%v m0=%v mf=%v: %w", isp, initialMass, finalMass, ErrInvalidInput)
	}
	if finalMass > initialMass {
		return 0, fmt.Errorf("final mass %v exceeds initial mass %v: %w", finalMass, initialMass, ErrInvalidInput)
	}
	return isp * StandardGravity * math.Log(initialMass/finalMass) / 1000, nil
}

// MassRatio returns m0/mf needed to reach deltaV km/s with the given isp.
func MassRatio(deltaV, isp float64) (float64, error) {
	if !positive(isp) || math.IsNaN(deltaV) || deltaV < 0 || math.IsInf(deltaV, 1) {
		return 0, fmt.Errorf("delta-v=%v isp=%v: %w", deltaV, isp, ErrInvalidInput)
	}
	return math.Exp(deltaV * 1000 / (isp * StandardGravity)), nil
}
