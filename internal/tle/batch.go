package tle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/dev2025-gs/orbital-playground/internal/transform"
)

// Track is a propagated satellite with the ground point beneath it.
type Track struct {
	NORADID  int                `json:"norad_id"`
	Name     string             `json:"name,omitempty"`
	State    State              `json:"state"`
	Subpoint transform.Subpoint `json:"subpoint"`
}

// TrackAt propagates a single entry to t.
func TrackAt(entry TLEEntry, t time.Time) (Track, error) {
	return trackWithGMST(entry, t, transform.GMST(t))
}

func trackWithGMST(entry TLEEntry, t time.Time, gmst float64) (Track, error) {
	prop, err := NewPropagator(entry)
	if err != nil {
		return Track{}, err
	}
	state, err := prop.StateAt(t)
	if err != nil {
		return Track{}, err
	}
	ecef := transform.TEMEToECEFWithGMST(transform.Vector(state.PositionKm), gmst)
	return Track{
		NORADID:  entry.NORADID,
		Name:     entry.Name,
		State:    state,
		Subpoint: transform.ECEFToGeodetic(ecef),
	}, nil
}

type trackJob struct {
	index int
	entry TLEEntry
}

type trackResult struct {
	index   int
	track   Track
	err     error
	noradID int
}

// WorkerPool propagates catalogues on a fixed number of goroutines.
type WorkerPool struct {
	workers int
	logger  *slog.Logger
}

// NewWorkerPool creates a worker pool. workers < 1 is treated as 1.
func NewWorkerPool(workers int, logger *slog.Logger) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{
		workers: workers,
		logger:  logger,
	}
}

// Workers returns the pool size.
func (wp *WorkerPool) Workers() int {
	return wp.workers
}

// TrackBatch propagates every entry to t. Failed entries are logged and
// skipped; the success and error counts are returned alongside the tracks.
// Tracks keep the relative order of their entries.
func (wp *WorkerPool) TrackBatch(ctx context.Context, entries []TLEEntry, t time.Time) ([]Track, int, int) {
	if len(entries) == 0 {
		return nil, 0, 0
	}

	t = t.UTC().Truncate(time.Second)
	gmst := transform.GMST(t)

	jobs := make(chan trackJob, wp.workers*2)
	results := make(chan trackResult, wp.workers*2)

	var wg sync.WaitGroup
	for i := 0; i < wp.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				track, err := trackWithGMST(job.entry, t, gmst)
				select {
				case results <- trackResult{index: job.index, track: track, err: err, noradID: job.entry.NORADID}:
				case <-ctx.Done():
					return
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for i, entry := range entries {
			select {
			case jobs <- trackJob{index: i, entry: entry}:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	slots := make([]Track, len(entries))
	done := make([]bool, len(entries))
	var successCount, errorCount int
	for result := range results {
		if result.err != nil {
			errorCount++
			wp.logger.Warn("propagation failed",
				"component", "tle",
				"norad_id", result.noradID,
				"error", result.err,
			)
			continue
		}
		successCount++
		slots[result.index] = result.track
		done[result.index] = true
	}

	tracks := make([]Track, 0, successCount)
	for i, ok := range done {
		if ok {
			tracks = append(tracks, slots[i])
		}
	}

	return tracks, successCount, errorCount
}
