package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dev2025-gs/orbital-playground/internal/astro"
	"github.com/dev2025-gs/orbital-playground/internal/auth"
	"github.com/dev2025-gs/orbital-playground/internal/ratelimit"
	"github.com/dev2025-gs/orbital-playground/internal/stream"
	"github.com/dev2025-gs/orbital-playground/internal/tle"
)

const (
	issLine1 = "1 25544U 98067A   24100.50000000  .00016717  00000-0  10270-3 0  9005"
	issLine2 = "2 25544  51.6400 100.0000 0001000   0.0000   0.0000 15.50000000    09"
	issTLE   = "ISS (ZARYA)\n" + issLine1 + "\n" + issLine2 + "\n"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

func testHandler(t *testing.T) http.Handler {
	t.Helper()
	return NewHandler(Config{
		Body:   astro.Earth,
		Stream: stream.NewHandler(astro.Earth, stream.Config{MaxConcurrentPerIP: 2}, testLogger()),
		Pool:   tle.NewWorkerPool(2, testLogger()),
	}, testLogger())
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rdr = strings.NewReader(b)
		default:
			data, err := json.Marshal(b)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			rdr = bytes.NewReader(data)
		}
	}
	req := httptest.NewRequest(method, target, rdr)
	req.RemoteAddr = "192.0.2.10:4000"
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(w.Body).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func near(got, want, tol float64) bool {
	return math.Abs(got-want) <= tol
}

func TestProbes(t *testing.T) {
	h := testHandler(t)
	for _, path := range []string{"/healthz", "/readyz", "/metrics"} {
		if w := do(t, h, "GET", path, nil); w.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, w.Code)
		}
	}

	bad := NewHandler(Config{Body: astro.CentralBody{Name: "void"}}, testLogger())
	if w := do(t, bad, "GET", "/readyz", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("readyz with invalid body = %d, want 503", w.Code)
	}
}

func TestGetBody(t *testing.T) {
	w := do(t, testHandler(t), "GET", "/api/v1/body", nil)
	body := decode[astro.CentralBody](t, w)
	if body != astro.Earth {
		t.Errorf("body = %+v, want %+v", body, astro.Earth)
	}
}

func TestCircularOrbit(t *testing.T) {
	h := testHandler(t)

	for _, target := range []string{
		"/api/v1/orbit/circular?altitude=400",
		"/api/v1/orbit/circular?radius=6771",
	} {
		w := do(t, h, "GET", target, nil)
		if w.Code != http.StatusOK {
			t.Fatalf("%s status = %d: %s", target, w.Code, w.Body.String())
		}
		p := decode[astro.OrbitalParameters](t, w)
		if !near(p.Velocity, 7.672599, 1e-5) || !near(p.Period, 92.414252, 1e-3) || !near(p.Altitude, 400, 1e-9) {
			t.Errorf("%s = %+v", target, p)
		}
	}

	tests := []struct {
		name   string
		target string
	}{
		{"missing", "/api/v1/orbit/circular"},
		{"negative altitude", "/api/v1/orbit/circular?altitude=-1"},
		{"zero radius", "/api/v1/orbit/circular?radius=0"},
		{"non-numeric", "/api/v1/orbit/circular?radius=far"},
		{"infinite", "/api/v1/orbit/circular?radius=Inf"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, h, "GET", tc.target, nil)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			if resp := decode[map[string]string](t, w); resp["error"] == "" {
				t.Error("expected error field in response")
			}
		})
	}
}

func TestHohmann(t *testing.T) {
	h := testHandler(t)

	check := func(t *testing.T, w *httptest.ResponseRecorder) {
		t.Helper()
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d: %s", w.Code, w.Body.String())
		}
		s := decode[astro.BurnSchedule](t, w)
		if !near(s.DeltaV1, 2.399352, 1e-5) || !near(s.DeltaV2, 1.457226, 1e-5) {
			t.Errorf("burns = %v, %v", s.DeltaV1, s.DeltaV2)
		}
		if !near(s.TotalDeltaV, 3.856578, 1e-5) || !near(s.TransferTime, 317.337164, 1e-3) {
			t.Errorf("total = %v, time = %v", s.TotalDeltaV, s.TransferTime)
		}
	}

	t.Run("GET altitudes", func(t *testing.T) {
		check(t, do(t, h, "GET", "/api/v1/transfer/hohmann?initial_altitude=400&target_altitude=35786", nil))
	})
	t.Run("POST altitudes", func(t *testing.T) {
		check(t, do(t, h, "POST", "/api/v1/transfer/hohmann", map[string]float64{
			"initial_altitude": 400, "target_altitude": 35786,
		}))
	})
	t.Run("POST radii", func(t *testing.T) {
		check(t, do(t, h, "POST", "/api/v1/transfer/hohmann", map[string]float64{"r1": 6771, "r2": 42157}))
	})

	bad := []struct {
		name   string
		method string
		target string
		body   any
		want   int
	}{
		{"missing target", "GET", "/api/v1/transfer/hohmann?initial_altitude=400", nil, http.StatusBadRequest},
		{"negative altitude", "POST", "/api/v1/transfer/hohmann", map[string]float64{"initial_altitude": -5, "target_altitude": 100}, http.StatusBadRequest},
		{"zero radius", "POST", "/api/v1/transfer/hohmann", map[string]float64{"r1": 0, "r2": 7000}, http.StatusBadRequest},
		{"malformed JSON", "POST", "/api/v1/transfer/hohmann", "{", http.StatusBadRequest},
		{"wrong method", "PUT", "/api/v1/transfer/hohmann", nil, http.StatusMethodNotAllowed},
	}
	for _, tc := range bad {
		t.Run(tc.name, func(t *testing.T) {
			if w := do(t, h, tc.method, tc.target, tc.body); w.Code != tc.want {
				t.Errorf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestTransferSweep(t *testing.T) {
	h := testHandler(t)

	w := do(t, h, "GET", "/api/v1/transfer/sweep?initial_altitude=400&min_altitude=1000&max_altitude=20000&samples=20", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	resp := decode[sweepResponse](t, w)
	if len(resp.Transfers) != 20 {
		t.Fatalf("got %d transfers, want 20", len(resp.Transfers))
	}
	if resp.InitialRadius != 6771 {
		t.Errorf("initial radius = %v, want 6771", resp.InitialRadius)
	}
	for i := 1; i < len(resp.Transfers); i++ {
		if resp.Transfers[i].DeltaV1 <= resp.Transfers[i-1].DeltaV1 {
			t.Errorf("delta-v1 not increasing at %d", i)
		}
	}

	for _, q := range []string{
		"initial_altitude=400&min_altitude=1000",
		"initial_altitude=400&min_altitude=1000&max_altitude=2000&samples=501",
		"initial_altitude=400&min_altitude=2000&max_altitude=1000",
		"initial_altitude=-1&min_altitude=1000&max_altitude=2000",
	} {
		if w := do(t, h, "GET", "/api/v1/transfer/sweep?"+q, nil); w.Code != http.StatusBadRequest {
			t.Errorf("%s status = %d, want 400", q, w.Code)
		}
	}
}

func TestEllipse(t *testing.T) {
	h := testHandler(t)

	w := do(t, h, "GET", "/api/v1/orbit/ellipse?altitude=10000&eccentricity=0.3&samples=16", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	resp := decode[ellipseResponse](t, w)
	if len(resp.Path) != 16 {
		t.Errorf("path has %d points, want 16", len(resp.Path))
	}
	if resp.Orbit.Type != astro.OrbitElliptical {
		t.Errorf("type = %q", resp.Orbit.Type)
	}
	if !near(resp.Orbit.Periapsis, 16371*0.7, 1e-6) {
		t.Errorf("periapsis = %v", resp.Orbit.Periapsis)
	}

	for _, q := range []string{
		"eccentricity=0.1",
		"altitude=400&eccentricity=0.5",
		"altitude=400&eccentricity=1",
		"altitude=400&samples=2",
	} {
		if w := do(t, h, "GET", "/api/v1/orbit/ellipse?"+q, nil); w.Code != http.StatusBadRequest {
			t.Errorf("%s status = %d, want 400", q, w.Code)
		}
	}
}

func TestRocketDeltaV(t *testing.T) {
	h := testHandler(t)

	w := do(t, h, "POST", "/api/v1/rocket/delta-v", map[string]float64{"isp": 300, "initial_mass": 1000, "final_mass": 250})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	resp := decode[rocketResponse](t, w)
	want := 300 * astro.StandardGravity * math.Log(4) / 1000
	if !near(resp.DeltaV, want, 1e-9) || resp.MassRatio != 4 {
		t.Errorf("resp = %+v, want delta-v %v ratio 4", resp, want)
	}

	w = do(t, h, "POST", "/api/v1/rocket/delta-v", map[string]float64{"isp": 300, "delta_v": 10})
	resp = decode[rocketResponse](t, w)
	if !near(resp.MassRatio, 29.9358, 1e-3) {
		t.Errorf("mass ratio = %v, want ~29.9358", resp.MassRatio)
	}

	for _, body := range []map[string]float64{
		{"isp": 300},
		{"isp": 300, "initial_mass": 100, "final_mass": 200},
		{"isp": 0, "initial_mass": 200, "final_mass": 100},
	} {
		if w := do(t, h, "POST", "/api/v1/rocket/delta-v", body); w.Code != http.StatusBadRequest {
			t.Errorf("%v status = %d, want 400", body, w.Code)
		}
	}
}

func TestRecognizeGesture(t *testing.T) {
	h := testHandler(t)

	pts := make([][2]float64, 40)
	for i := range pts {
		a := float64(i) / float64(len(pts)-1) * 2 * math.Pi
		pts[i] = [2]float64{200 + 100*math.Cos(a), 200 + 100*math.Sin(a)}
	}
	w := do(t, h, "POST", "/api/v1/gesture/recognize", map[string]any{"points": pts})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if resp := decode[map[string]any](t, w); resp["shape"] != "circle" {
		t.Errorf("shape = %v, want circle", resp["shape"])
	}

	w = do(t, h, "POST", "/api/v1/gesture/recognize", map[string]any{"points": pts[:5]})
	if w.Code != http.StatusBadRequest {
		t.Errorf("short stroke status = %d, want 400", w.Code)
	}
}

func TestAcademy(t *testing.T) {
	h := testHandler(t)

	w := do(t, h, "GET", "/api/v1/academy/topics", nil)
	list := decode[map[string][]map[string]any](t, w)
	if len(list["topics"]) != 4 {
		t.Errorf("got %d topics, want 4", len(list["topics"]))
	}

	w = do(t, h, "GET", "/api/v1/academy/topics/rocket-equation", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if topic := decode[map[string]string](t, w); topic["content"] == "" {
		t.Error("topic content empty")
	}

	if w := do(t, h, "GET", "/api/v1/academy/topics/warp-drive", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown topic status = %d, want 404", w.Code)
	}
}

func TestTLEOrbitInline(t *testing.T) {
	h := testHandler(t)
	at := time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)

	w := do(t, h, "POST", "/api/v1/tle/orbit", map[string]any{
		"tle":             issTLE,
		"at":              at,
		"target_altitude": 35786,
		"observer":        map[string]float64{"latitude": 51.5, "longitude": -0.1},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	resp := decode[tleOrbitResponse](t, w)

	if resp.Satellite.NORADID != 25544 || resp.Satellite.Name != "ISS (ZARYA)" {
		t.Errorf("satellite = %+v", resp.Satellite)
	}
	if !near(resp.Circular.Radius, resp.Satellite.State.Radius, 1e-9) {
		t.Errorf("circular radius %v does not match propagated radius %v", resp.Circular.Radius, resp.Satellite.State.Radius)
	}
	if resp.Transfer == nil || resp.Transfer.TargetRadius != 42157 {
		t.Fatalf("transfer = %+v", resp.Transfer)
	}
	if resp.Transfer.InitialRadius != resp.Satellite.State.Radius {
		t.Errorf("transfer not seeded from satellite radius")
	}
	if resp.Look == nil || resp.Look.Range <= 0 {
		t.Errorf("look = %+v", resp.Look)
	}
}

func TestTLEOrbitUsesEarthForOtherBody(t *testing.T) {
	mars := astro.CentralBody{Name: "Mars", Radius: 3389.5, Mu: 42828.37}
	h := NewHandler(Config{Body: mars}, testLogger())

	w := do(t, h, "POST", "/api/v1/tle/orbit", map[string]any{
		"tle":             issTLE,
		"at":              time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC),
		"target_altitude": 35786,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	resp := decode[tleOrbitResponse](t, w)

	r := resp.Satellite.State.Radius
	if want := math.Sqrt(astro.Earth.Mu / r); !near(resp.Circular.Velocity, want, 1e-9) {
		t.Errorf("velocity = %v, want Earth value %v", resp.Circular.Velocity, want)
	}
	if want := r - astro.Earth.Radius; !near(resp.Circular.Altitude, want, 1e-9) {
		t.Errorf("altitude = %v, want %v above Earth", resp.Circular.Altitude, want)
	}
	if resp.Transfer == nil || resp.Transfer.TargetRadius != 42157 {
		t.Errorf("transfer target not measured from Earth: %+v", resp.Transfer)
	}

	// The calculators still follow the configured body.
	circ := decode[astro.OrbitalParameters](t, do(t, h, "GET", "/api/v1/orbit/circular?altitude=400", nil))
	if circ.Radius != mars.Radius+400 {
		t.Errorf("calculator radius = %v, want %v", circ.Radius, mars.Radius+400)
	}
}

func TestTLEOrbitNORAD(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("CATNR") != "25544" {
			w.Write([]byte("No GP data found\n"))
			return
		}
		w.Write([]byte(issTLE))
	}))
	defer upstream.Close()

	h := NewHandler(Config{
		Body:     astro.Earth,
		TLEStore: tle.NewStore(tle.NewFetcher(upstream.URL, testLogger()), time.Hour),
	}, testLogger())

	body := map[string]any{"norad_id": 25544, "at": time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)}
	w := do(t, h, "POST", "/api/v1/tle/orbit", body)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if resp := decode[tleOrbitResponse](t, w); resp.Cached {
		t.Error("first lookup reported cached")
	}
	if resp := decode[tleOrbitResponse](t, do(t, h, "POST", "/api/v1/tle/orbit", body)); !resp.Cached {
		t.Error("second lookup not served from cache")
	}

	if w := do(t, h, "POST", "/api/v1/tle/orbit", map[string]any{"norad_id": 1}); w.Code != http.StatusNotFound {
		t.Errorf("unknown NORAD status = %d, want 404", w.Code)
	}
}

func TestTLEOrbitErrors(t *testing.T) {
	h := testHandler(t)
	at := time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		body any
		want int
	}{
		{"empty", map[string]any{}, http.StatusBadRequest},
		{"garbage tle", map[string]any{"tle": "hello\nworld\n"}, http.StatusBadRequest},
		{"norad without store", map[string]any{"norad_id": 25544}, http.StatusServiceUnavailable},
		{"bad observer", map[string]any{"tle": issTLE, "at": at, "observer": map[string]float64{"latitude": 95}}, http.StatusBadRequest},
		{"negative target", map[string]any{"tle": issTLE, "at": at, "target_altitude": -1}, http.StatusBadRequest},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if w := do(t, h, "POST", "/api/v1/tle/orbit", tc.body); w.Code != tc.want {
				t.Errorf("status = %d, want %d: %s", w.Code, tc.want, w.Body.String())
			}
		})
	}
}

func TestTLECatalog(t *testing.T) {
	h := testHandler(t)
	catalog := issTLE +
		"STARLINK-1007\n" +
		"1 44713U 19074A   24100.50000000  .00001000  00000-0  10000-4 0  9995\n" +
		"2 44713  53.0000 200.0000 0001500  90.0000 270.0000 15.06000000    05\n"

	w := do(t, h, "POST", "/api/v1/tle/catalog", map[string]any{
		"tle": catalog,
		"at":  time.Date(2024, 4, 10, 12, 0, 0, 0, time.UTC),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	resp := decode[tleCatalogResponse](t, w)
	if resp.Propagated != 2 || resp.Failed != 0 || len(resp.Tracks) != 2 {
		t.Errorf("propagated=%d failed=%d tracks=%d", resp.Propagated, resp.Failed, len(resp.Tracks))
	}

	if w := do(t, h, "POST", "/api/v1/tle/catalog", map[string]any{"tle": ""}); w.Code != http.StatusBadRequest {
		t.Errorf("empty catalogue status = %d, want 400", w.Code)
	}
}

func TestTLEPasses(t *testing.T) {
	h := testHandler(t)
	start := time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC)

	w := do(t, h, "POST", "/api/v1/tle/passes", map[string]any{
		"tle":        issTLE,
		"start":      start,
		"hours":      24,
		"max_passes": 3,
		"observer":   map[string]float64{"latitude": 51.5, "longitude": -0.1},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	resp := decode[tlePassesResponse](t, w)
	if resp.NORADID != 25544 {
		t.Errorf("norad_id = %d, want 25544", resp.NORADID)
	}
	if !resp.End.Equal(start.Add(24 * time.Hour)) {
		t.Errorf("end = %v, want %v", resp.End, start.Add(24*time.Hour))
	}
	if len(resp.Passes) == 0 || len(resp.Passes) > 3 {
		t.Errorf("got %d passes, want 1-3", len(resp.Passes))
	}

	tests := []struct {
		name string
		body any
	}{
		{"missing observer", map[string]any{"tle": issTLE}},
		{"horizon too long", map[string]any{"tle": issTLE, "hours": 100, "observer": map[string]float64{}}},
		{"no element set", map[string]any{"observer": map[string]float64{}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if w := do(t, h, "POST", "/api/v1/tle/passes", tc.body); w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400: %s", w.Code, w.Body.String())
			}
		})
	}
}

func TestStreamRoute(t *testing.T) {
	h := testHandler(t)
	if w := do(t, h, "GET", "/api/v1/stream/orbit?step=0", nil); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestMiddlewareChain(t *testing.T) {
	cfg := Config{
		Body:      astro.Earth,
		Auth:      auth.Config{Enabled: true, Token: "s3cret"},
		RateLimit: ratelimit.Config{RPS: 1, Burst: 2, Prefix: "/api/"},
	}
	cfg.Limiter = ratelimit.NewIPRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst, time.Minute)
	h := NewHandler(cfg, testLogger())

	// Protected route without a token is rejected before the rate limiter.
	for i := 0; i < 3; i++ {
		if w := do(t, h, "POST", "/api/v1/tle/orbit", map[string]any{}); w.Code != http.StatusUnauthorized {
			t.Fatalf("tle without token = %d, want 401", w.Code)
		}
	}

	codes := []int{}
	for i := 0; i < 3; i++ {
		codes = append(codes, do(t, h, "GET", "/api/v1/body", nil).Code)
	}
	if codes[0] != 200 || codes[1] != 200 || codes[2] != http.StatusTooManyRequests {
		t.Errorf("status sequence = %v, want [200 200 429]", codes)
	}

	// Probes are neither authenticated nor limited.
	if w := do(t, h, "GET", "/healthz", nil); w.Code != http.StatusOK {
		t.Errorf("healthz = %d", w.Code)
	}
}

func TestProbePath(t *testing.T) {
	for path, want := range map[string]bool{
		"/healthz":     true,
		"/readyz":      true,
		"/metrics":     true,
		"/api/v1/body": false,
	} {
		if got := probePath(path); got != want {
			t.Errorf("probePath(%q) = %v, want %v", path, got, want)
		}
	}
}
