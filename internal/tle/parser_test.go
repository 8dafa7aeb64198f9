package tle

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const (
	issLine1      = "1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9005"
	issLine2      = "2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    09"
	starlinkLine1 = "1 44713U 19074A   24100.50000000  .00001000  00000-0  10000-4 0  9995"
	starlinkLine2 = "2 44713  53.0000 200.0000 0001500  90.0000 270.0000 15.06000000    05"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantIDs   []int
		wantNames []string
	}{
		{
			name:      "three line",
			input:     "ISS (ZARYA)\n" + issLine1 + "\n" + issLine2 + "\n",
			wantIDs:   []int{25544},
			wantNames: []string{"ISS (ZARYA)"},
		},
		{
			name:      "two line",
			input:     issLine1 + "\n" + issLine2 + "\n",
			wantIDs:   []int{25544},
			wantNames: []string{""},
		},
		{
			name:      "zero-prefixed name",
			input:     "0 STARLINK-1007\n" + starlinkLine1 + "\n" + starlinkLine2 + "\n",
			wantIDs:   []int{44713},
			wantNames: []string{"STARLINK-1007"},
		},
		{
			name:      "mixed with CRLF and blank lines",
			input:     "ISS (ZARYA)\r\n" + issLine1 + "\r\n" + issLine2 + "\r\n\r\n" + starlinkLine1 + "\n" + starlinkLine2,
			wantIDs:   []int{25544, 44713},
			wantNames: []string{"ISS (ZARYA)", ""},
		},
		{
			name:      "malformed entry skipped",
			input:     "BROKEN\n" + issLine1 + "\nnot a line two\nISS (ZARYA)\n" + issLine1 + "\n" + issLine2 + "\n",
			wantIDs:   []int{25544},
			wantNames: []string{"ISS (ZARYA)"},
		},
		{
			name:    "orphan line one",
			input:   issLine1 + "\n" + issLine1 + "\n",
			wantIDs: nil,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			entries, err := Parse(strings.NewReader(tc.input), testLogger)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if len(entries) != len(tc.wantIDs) {
				t.Fatalf("got %d entries, want %d", len(entries), len(tc.wantIDs))
			}
			for i, e := range entries {
				if e.NORADID != tc.wantIDs[i] {
					t.Errorf("entry %d NORAD = %d, want %d", i, e.NORADID, tc.wantIDs[i])
				}
				if e.Name != tc.wantNames[i] {
					t.Errorf("entry %d name = %q, want %q", i, e.Name, tc.wantNames[i])
				}
			}
		})
	}
}

func TestParseOne(t *testing.T) {
	entry, err := ParseOne(issLine1+"\n"+issLine2, testLogger)
	if err != nil {
		t.Fatalf("ParseOne: %v", err)
	}
	if entry.Line1 != issLine1 || entry.Line2 != issLine2 {
		t.Error("lines not preserved")
	}

	if _, err := ParseOne("garbage\n", testLogger); !errors.Is(err, ErrNoEntries) {
		t.Errorf("err = %v, want ErrNoEntries", err)
	}
}

func TestParseEpoch(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"24100.50000000", time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC)},
		{"00001.00000000", time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"57001.00000000", time.Date(1957, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"99365.25000000", time.Date(1999, 12, 31, 6, 0, 0, 0, time.UTC)},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := parseEpoch(tc.in)
			if err != nil {
				t.Fatalf("parseEpoch: %v", err)
			}
			if d := got.Sub(tc.want); d > time.Millisecond || d < -time.Millisecond {
				t.Errorf("parseEpoch(%q) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}

	for _, bad := range []string{"24", "xx100.5", "24abc"} {
		if _, err := parseEpoch(bad); err == nil {
			t.Errorf("parseEpoch(%q) expected error", bad)
		}
	}
}
