package tle

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	defaultSourceURL = "https://celestrak.org/NORAD/elements/gp.php"

	// maxBodyBytes caps how much of a response is read.
	maxBodyBytes = 50 << 20
)

// Fetcher retrieves element sets by NORAD catalogue number from a
// CelesTrak-compatible GP endpoint.
type Fetcher struct {
	sourceURL  string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewFetcher creates a Fetcher for the given GP endpoint. An empty sourceURL
// uses CelesTrak.
func NewFetcher(sourceURL string, logger *slog.Logger) *Fetcher {
	if sourceURL == "" {
		sourceURL = defaultSourceURL
	}
	return &Fetcher{
		sourceURL: sourceURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// SourceURL returns the configured source URL.
func (f *Fetcher) SourceURL() string {
	return f.sourceURL
}

// Fetch performs an HTTP GET of the element set for noradID and returns the
// raw response body.
func (f *Fetcher) Fetch(ctx context.Context, noradID int) ([]byte, error) {
	u, err := url.Parse(f.sourceURL)
	if err != nil {
		return nil, fmt.Errorf("parsing source URL: %w", err)
	}
	q := u.Query()
	q.Set("CATNR", strconv.Itoa(noradID))
	q.Set("FORMAT", "tle")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching TLE data: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, f.sourceURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes+1))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}
	if len(body) > maxBodyBytes {
		return nil, fmt.Errorf("response exceeds %d byte limit", maxBodyBytes)
	}

	f.logger.Debug("fetched TLE",
		"component", "tle",
		"norad_id", noradID,
		"bytes", len(body),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return body, nil
}

// FetchEntry fetches and parses the element set for noradID.
func (f *Fetcher) FetchEntry(ctx context.Context, noradID int) (TLEEntry, error) {
	data, err := f.Fetch(ctx, noradID)
	if err != nil {
		return TLEEntry{}, err
	}
	entry, err := ParseOne(string(data), f.logger)
	if err != nil {
		return TLEEntry{}, fmt.Errorf("NORAD %d: %w", noradID, err)
	}
	return entry, nil
}
