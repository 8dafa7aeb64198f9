// Package transform converts SGP4 output into Earth-fixed and geodetic
// coordinates for ground-track display.
//
// TEME to ECEF uses a single rotation by Greenwich mean sidereal time
// (TEME → PEF ≈ ECEF). Polar motion and the equation of the equinoxes are
// ignored, which is well under a kilometre at LEO.
package transform

import (
	"math"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
	"github.com/soniakeys/meeus/v3/sidereal"
)

// WGS-84 ellipsoid, kilometres.
const (
	wgs84A  = 6378.137
	wgs84F  = 1.0 / 298.257223563
	wgs84E2 = wgs84F * (2 - wgs84F)
)

// Vector is a Cartesian position in kilometres.
type Vector [3]float64

// Norm returns the vector magnitude.
func (v Vector) Norm() float64 {
	return math.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// Subpoint is the geodetic point directly beneath a satellite.
type Subpoint struct {
	Latitude  float64 `json:"latitude_deg"`
	Longitude float64 `json:"longitude_deg"`
	Altitude  float64 `json:"altitude_km"`
}

// GMST returns Greenwich mean sidereal time at t in radians.
func GMST(t time.Time) float64 {
	return sidereal.Mean(julian.TimeToJD(t.UTC())).Angle().Rad()
}

// TEMEToECEF rotates a TEME position into the Earth-fixed frame at t.
func TEMEToECEF(teme Vector, t time.Time) Vector {
	return TEMEToECEFWithGMST(teme, GMST(t))
}

// TEMEToECEFWithGMST is TEMEToECEF with a precomputed GMST angle, for
// converting many positions at the same instant.
func TEMEToECEFWithGMST(teme Vector, gmst float64) Vector {
	return rotateZ(teme, gmst)
}

// rotateZ applies R3(theta).
func rotateZ(v Vector, theta float64) Vector {
	c, s := math.Cos(theta), math.Sin(theta)
	return Vector{
		v[0]*c + v[1]*s,
		-v[0]*s + v[1]*c,
		v[2],
	}
}

// ECEFToGeodetic converts an ECEF position to WGS-84 latitude, longitude and
// height using Bowring's iteration.
func ECEFToGeodetic(ecef Vector) Subpoint {
	x, y, z := ecef[0], ecef[1], ecef[2]
	lon := math.Atan2(y, x)
	p := math.Hypot(x, y)

	lat := math.Atan2(z, p*(1-wgs84E2))
	for i := 0; i < 5; i++ {
		sinLat := math.Sin(lat)
		n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)
		lat = math.Atan2(z+wgs84E2*n*sinLat, p)
	}

	sinLat, cosLat := math.Sin(lat), math.Cos(lat)
	n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	var alt float64
	if math.Abs(cosLat) > 1e-10 {
		alt = p/cosLat - n
	} else {
		alt = math.Abs(z)/math.Abs(sinLat) - n*(1-wgs84E2)
	}

	return Subpoint{
		Latitude:  lat * 180 / math.Pi,
		Longitude: lon * 180 / math.Pi,
		Altitude:  alt,
	}
}

// SubpointAt returns the ground point beneath a TEME position at t.
func SubpointAt(teme Vector, t time.Time) Subpoint {
	return ECEFToGeodetic(TEMEToECEF(teme, t))
}
