// Package passes predicts when a satellite rises above an observer's horizon.
package passes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dev2025-gs/orbital-playground/internal/tle"
	"github.com/dev2025-gs/orbital-playground/internal/transform"
)

// ErrInvalidWindow is returned for a non-positive or oversized search window.
var ErrInvalidWindow = errors.New("invalid pass window")

// MaxHorizon bounds how far ahead a single prediction scans.
const MaxHorizon = 72 * time.Hour

const (
	coarseStep      = 30 * time.Second
	fineStep        = time.Second
	groundTrackStep = 10 * time.Second
	minPassDuration = 10 * time.Second
)

// GroundTrackPoint is the sub-satellite point at one instant of a pass.
type GroundTrackPoint struct {
	Time      time.Time `json:"time"`
	Latitude  float64   `json:"latitude_deg"`
	Longitude float64   `json:"longitude_deg"`
	Altitude  float64   `json:"altitude_km"`
	Elevation float64   `json:"elevation_deg"`
}

// Pass is one visibility window above the minimum elevation.
type Pass struct {
	Start            time.Time          `json:"start"`
	MaxElevationTime time.Time          `json:"max_elevation_time"`
	End              time.Time          `json:"end"`
	DurationSeconds  float64            `json:"duration_seconds"`
	MaxElevation     float64            `json:"max_elevation_deg"`
	AzimuthAtMax     float64            `json:"azimuth_at_max_deg"`
	StartAzimuth     float64            `json:"start_azimuth_deg"`
	EndAzimuth       float64            `json:"end_azimuth_deg"`
	GroundTrack      []GroundTrackPoint `json:"ground_track"`
}

// Window bounds a prediction.
type Window struct {
	Start        time.Time
	Horizon      time.Duration
	MinElevation float64 // degrees
	MaxPasses    int     // <= 0 means unlimited
}

// Validate checks the horizon is positive and within MaxHorizon.
func (w Window) Validate() error {
	if w.Horizon <= 0 || w.Horizon > MaxHorizon {
		return fmt.Errorf("%w: horizon %v must be in (0, %v]", ErrInvalidWindow, w.Horizon, MaxHorizon)
	}
	if w.MinElevation < -90 || w.MinElevation > 90 {
		return fmt.Errorf("%w: min elevation %v", ErrInvalidWindow, w.MinElevation)
	}
	return nil
}

// Predict scans the window in coarse steps and refines every candidate at
// one-second resolution. A cancelled context returns the passes found so far.
func Predict(ctx context.Context, prop *tle.Propagator, obs transform.Observer, w Window) ([]Pass, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}

	start := w.Start.UTC().Truncate(time.Second)
	end := start.Add(w.Horizon)
	passes := []Pass{}

	t := start
	for t.Before(end) {
		if w.MaxPasses > 0 && len(passes) >= w.MaxPasses {
			break
		}
		if ctx.Err() != nil {
			return passes, nil
		}

		s, err := sample(prop, obs, t)
		if err != nil || s.look.Elevation < w.MinElevation {
			t = t.Add(coarseStep)
			continue
		}

		pass, windowEnd := refine(ctx, prop, obs, t, start, end, w.MinElevation)
		if pass != nil && pass.End.Sub(pass.Start) >= minPassDuration {
			passes = append(passes, *pass)
		}
		t = windowEnd.Add(coarseStep)
	}

	return passes, nil
}

type observation struct {
	look transform.LookAngles
	sub  transform.Subpoint
}

func sample(prop *tle.Propagator, obs transform.Observer, t time.Time) (observation, error) {
	state, err := prop.StateAt(t)
	if err != nil {
		return observation{}, err
	}
	gmst := transform.GMST(t)
	ecef := transform.TEMEToECEFWithGMST(transform.Vector(state.PositionKm), gmst)
	return observation{
		look: obs.Look(ecef),
		sub:  transform.ECEFToGeodetic(ecef),
	}, nil
}

// refine backs up one coarse step from hit to find the rise, then scans
// forward to the set. It returns the pass and the instant scanning stopped.
func refine(ctx context.Context, prop *tle.Propagator, obs transform.Observer, hit, windowStart, windowEnd time.Time, minElev float64) (*Pass, time.Time) {
	t := hit.Add(-coarseStep)
	if t.Before(windowStart) {
		t = windowStart
	}

	var (
		pass     Pass
		rose     bool
		wasAbove bool
		last     observation
	)

	for ; t.Before(windowEnd); t = t.Add(fineStep) {
		if ctx.Err() != nil {
			break
		}

		s, err := sample(prop, obs, t)
		if err != nil {
			continue
		}
		last = s
		above := s.look.Elevation >= minElev

		if above && !wasAbove && !rose {
			rose = true
			pass.Start = t
			pass.StartAzimuth = s.look.Azimuth
			pass.MaxElevation = s.look.Elevation
			pass.MaxElevationTime = t
			pass.AzimuthAtMax = s.look.Azimuth
		}

		if above && rose {
			if s.look.Elevation > pass.MaxElevation {
				pass.MaxElevation = s.look.Elevation
				pass.MaxElevationTime = t
				pass.AzimuthAtMax = s.look.Azimuth
			}
			if t.Sub(pass.Start)%groundTrackStep == 0 {
				pass.GroundTrack = append(pass.GroundTrack, GroundTrackPoint{
					Time:      t,
					Latitude:  s.sub.Latitude,
					Longitude: s.sub.Longitude,
					Altitude:  s.sub.Altitude,
					Elevation: s.look.Elevation,
				})
			}
		}

		if !above && wasAbove && rose {
			pass.End = t
			pass.EndAzimuth = s.look.Azimuth
			break
		}
		wasAbove = above
	}

	if !rose {
		return nil, t
	}
	// Still above at the end of the window: close the pass there.
	if pass.End.IsZero() {
		pass.End = t
		pass.EndAzimuth = last.look.Azimuth
	}

	pass.DurationSeconds = pass.End.Sub(pass.Start).Seconds()
	return &pass, pass.End
}
