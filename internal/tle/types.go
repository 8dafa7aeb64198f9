package tle

import "time"

// TLEEntry represents a single satellite's two-line element set.
type TLEEntry struct {
	NORADID int       `json:"norad_id"`
	Name    string    `json:"name,omitempty"`
	Epoch   time.Time `json:"epoch"`
	Line1   string    `json:"line1"`
	Line2   string    `json:"line2"`
}

// State is an SGP4-propagated position and velocity in the TEME frame.
type State struct {
	Time        time.Time  `json:"time"`
	JulianDate  float64    `json:"julian_date"`
	PositionKm  [3]float64 `json:"position_km"`
	VelocityKmS [3]float64 `json:"velocity_km_s"`
	Radius      float64    `json:"radius_km"`
	Speed       float64    `json:"speed_km_s"`
}
