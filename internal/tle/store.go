package tle

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultMaxAge bounds how long a fetched element set is served from memory.
// CelesTrak refreshes GP data every few hours.
const DefaultMaxAge = 2 * time.Hour

type storedEntry struct {
	entry     TLEEntry
	fetchedAt time.Time
}

// Store caches fetched element sets by NORAD ID in memory.
type Store struct {
	fetcher *Fetcher
	maxAge  time.Duration
	now     func() time.Time

	mu      sync.RWMutex
	entries map[int]storedEntry

	fetchMu sync.Mutex // serializes upstream fetches
}

// NewStore creates a Store backed by fetcher. maxAge <= 0 uses DefaultMaxAge.
func NewStore(fetcher *Fetcher, maxAge time.Duration) *Store {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Store{
		fetcher: fetcher,
		maxAge:  maxAge,
		now:     time.Now,
		entries: make(map[int]storedEntry),
	}
}

// Get returns a fresh cached entry or fetches it upstream. The boolean
// reports whether the entry came from the cache.
func (s *Store) Get(ctx context.Context, noradID int) (TLEEntry, bool, error) {
	if e, ok := s.lookup(noradID); ok {
		return e, true, nil
	}

	s.fetchMu.Lock()
	defer s.fetchMu.Unlock()

	// Another caller may have fetched while we waited.
	if e, ok := s.lookup(noradID); ok {
		return e, true, nil
	}

	entry, err := s.fetcher.FetchEntry(ctx, noradID)
	if err != nil {
		// The stale copy is never served again; drop it.
		s.mu.Lock()
		delete(s.entries, noradID)
		s.mu.Unlock()
		return TLEEntry{}, false, err
	}

	s.mu.Lock()
	s.entries[noradID] = storedEntry{entry: entry, fetchedAt: s.now()}
	s.mu.Unlock()
	return entry, false, nil
}

func (s *Store) lookup(noradID int) (TLEEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[noradID]
	if !ok || s.now().Sub(e.fetchedAt) > s.maxAge {
		return TLEEntry{}, false
	}
	return e.entry, true
}

// Len returns the number of cached entries, including expired ones not yet swept.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Sweep drops entries older than the max age and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, e := range s.entries {
		if now.Sub(e.fetchedAt) > s.maxAge {
			delete(s.entries, id)
			removed++
		}
	}
	return removed
}

// Run sweeps expired entries every interval until ctx is cancelled.
func (s *Store) Run(ctx context.Context, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 {
				logger.Debug("swept expired element sets", "component", "tle", "removed", n, "remaining", s.Len())
			}
		}
	}
}
