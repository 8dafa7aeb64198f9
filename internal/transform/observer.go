package transform

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidObserver is returned for an observer outside valid geodetic ranges.
var ErrInvalidObserver = errors.New("invalid observer")

// Observer is a ground site with its ECEF position precomputed.
type Observer struct {
	Latitude  float64 // degrees
	Longitude float64 // degrees
	Altitude  float64 // km above the ellipsoid

	ecef Vector
}

// LookAngles holds azimuth, elevation and slant range from an observer.
type LookAngles struct {
	Azimuth   float64 `json:"azimuth_deg"`
	Elevation float64 `json:"elevation_deg"`
	Range     float64 `json:"range_km"`
	Visible   bool    `json:"visible"`
}

// NewObserver validates the site and precomputes its ECEF position.
func NewObserver(latDeg, lonDeg, altKm float64) (Observer, error) {
	if math.IsNaN(latDeg) || latDeg < -90 || latDeg > 90 {
		return Observer{}, fmt.Errorf("%w: latitude %v", ErrInvalidObserver, latDeg)
	}
	if math.IsNaN(lonDeg) || lonDeg < -180 || lonDeg > 180 {
		return Observer{}, fmt.Errorf("%w: longitude %v", ErrInvalidObserver, lonDeg)
	}
	if math.IsNaN(altKm) || math.IsInf(altKm, 0) {
		return Observer{}, fmt.Errorf("%w: altitude %v", ErrInvalidObserver, altKm)
	}

	lat := latDeg * math.Pi / 180
	lon := lonDeg * math.Pi / 180
	sinLat, cosLat := math.Sin(lat), math.Cos(lat)
	n := wgs84A / math.Sqrt(1-wgs84E2*sinLat*sinLat)

	return Observer{
		Latitude:  latDeg,
		Longitude: lonDeg,
		Altitude:  altKm,
		ecef: Vector{
			(n + altKm) * cosLat * math.Cos(lon),
			(n + altKm) * cosLat * math.Sin(lon),
			(n*(1-wgs84E2) + altKm) * sinLat,
		},
	}, nil
}

// ECEF returns the observer's Earth-fixed position.
func (o Observer) ECEF() Vector {
	return o.ecef
}

// Look computes look angles to a satellite at an ECEF position using the
// South-East-Zenith frame. Azimuth is clockwise from north.
func (o Observer) Look(sat Vector) LookAngles {
	rx := sat[0] - o.ecef[0]
	ry := sat[1] - o.ecef[1]
	rz := sat[2] - o.ecef[2]

	lat := o.Latitude * math.Pi / 180
	lon := o.Longitude * math.Pi / 180
	sinLat, cosLat := math.Sin(lat), math.Cos(lat)
	sinLon, cosLon := math.Sin(lon), math.Cos(lon)

	south := sinLat*cosLon*rx + sinLat*sinLon*ry - cosLat*rz
	east := -sinLon*rx + cosLon*ry
	zenith := cosLat*cosLon*rx + cosLat*sinLon*ry + sinLat*rz

	rng := math.Sqrt(south*south + east*east + zenith*zenith)
	el := math.Asin(zenith / rng)
	az := math.Atan2(east, -south)
	if az < 0 {
		az += 2 * math.Pi
	}

	return LookAngles{
		Azimuth:   az * 180 / math.Pi,
		Elevation: el * 180 / math.Pi,
		Range:     rng,
		Visible:   el > 0,
	}
}
