package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"zutopia/internal/api"
	"zutopia/internal/audio"
	"zutopia/internal/config"
	"zutopia/internal/game"
	"zutopia/internal/render"

	"github.com/vmihailenco/msgpack/v5"
)

// ============================================================================
// Mock Implementations
// ============================================================================

// MockEngine implements api.EngineInterface for testing
type MockEngine struct {
	mu       sync.Mutex
	snapshot *game.GameSnapshot
	state    string
	ticking  bool
	starts   int
	pointerX float64
	pointerY float64
	moves    int
}

func NewMockEngine() *MockEngine {
	return &MockEngine{
		state: "NEW",
		snapshot: &game.GameSnapshot{
			Sequence:     1,
			Session:      1,
			State:        "NEW",
			ArenaWidth:   400,
			ArenaHeight:  600,
			Ball:         game.BallSnapshot{X: 200, Y: 300, VX: 1e-7, VY: 1e-7, Radius: 8},
			Paddle:       game.PaddleSnapshot{X: 200, Y: 500, Width: 100, Height: 5},
			Targets:      []game.TargetSnapshot{{ID: 0, X: 60, Y: 30, Width: 48, Height: 43, Variant: "goat"}},
			TargetsTotal: 16,
			TargetsLeft:  1,
			MissLimit:    5,
		},
	}
}

func (m *MockEngine) GetSnapshot() *game.GameSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.snapshot == nil {
		return nil
	}
	return m.snapshot.Clone()
}

func (m *MockEngine) Stats() game.EngineStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return game.EngineStats{TickRate: 60, Session: 1, State: m.state, Ticking: m.ticking}
}

func (m *MockEngine) GameConfig() config.GameConfig {
	return config.DefaultGame()
}

func (m *MockEngine) RequestStart() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ticking {
		return false
	}
	m.ticking = true
	m.starts++
	return true
}

func (m *MockEngine) PointerMoved(x, y float64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != "ACTIVE" {
		return false
	}
	m.pointerX, m.pointerY = x, y
	m.moves++
	return true
}

func (m *MockEngine) setState(state string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
}

func (m *MockEngine) lastPointer() (x, y float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pointerX, m.pointerY
}

func (m *MockEngine) counts() (starts, moves int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.starts, m.moves
}

// testRateLimit keeps the limiter out of the way
var testRateLimit = &api.RateLimitConfig{
	RequestsPerSecond: 1000,
	Burst:             1000,
	CleanupInterval:   time.Hour,
}

func newTestServer(t *testing.T, cfg api.RouterConfig) *httptest.Server {
	t.Helper()
	cfg.DisableLogging = true
	if cfg.RateLimitConfig == nil && cfg.RateLimiter == nil {
		cfg.RateLimitConfig = testRateLimit
	}
	if cfg.InputLimitConfig == nil && cfg.InputLimiter == nil {
		cfg.InputLimitConfig = testRateLimit
	}
	ts := httptest.NewServer(api.NewRouter(cfg))
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

// ============================================================================
// Router Purity Tests
// ============================================================================

// TestNewRouterHasNoSideEffects verifies that building the router never
// touches the engine
func TestNewRouterHasNoSideEffects(t *testing.T) {
	mockEngine := NewMockEngine()
	reads := api.NewClientLimiter(api.RouteRead, *testRateLimit)
	defer reads.Stop()
	inputs := api.NewClientLimiter(api.RouteInput, *testRateLimit)
	defer inputs.Stop()

	router := api.NewRouter(api.RouterConfig{
		Engine:       mockEngine,
		RateLimiter:  reads,
		InputLimiter: inputs,
	})
	if router == nil {
		t.Fatal("Router should not be nil")
	}
	if starts, moves := mockEngine.counts(); starts != 0 || moves != 0 {
		t.Error("NewRouter must not drive the engine")
	}
}

// ============================================================================
// API Endpoint Tests
// ============================================================================

// TestAPIGetState tests the snapshot endpoint
func TestAPIGetState(t *testing.T) {
	ts := newTestServer(t, api.RouterConfig{Engine: NewMockEngine()})

	resp, err := http.Get(ts.URL + "/api/state")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON, got %q", ct)
	}

	var snap game.GameSnapshot
	decodeBody(t, resp, &snap)
	if snap.State != "NEW" || snap.TargetsLeft != 1 || len(snap.Targets) != 1 {
		t.Errorf("Unexpected snapshot %+v", snap)
	}
	if snap.Targets[0].Variant != "goat" {
		t.Errorf("Expected goat target, got %q", snap.Targets[0].Variant)
	}
}

// TestAPIGetStateMsgpack tests content negotiation
func TestAPIGetStateMsgpack(t *testing.T) {
	ts := newTestServer(t, api.RouterConfig{Engine: NewMockEngine()})

	tests := []struct {
		name   string
		url    string
		accept string
	}{
		{"accept header", "/api/state", "application/msgpack"},
		{"query parameter", "/api/state?encoding=msgpack", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest("GET", ts.URL+tt.url, nil)
			if tt.accept != "" {
				req.Header.Set("Accept", tt.accept)
			}
			resp, err := http.DefaultClient.Do(req)
			if err != nil {
				t.Fatalf("Request failed: %v", err)
			}
			defer resp.Body.Close()

			if ct := resp.Header.Get("Content-Type"); ct != "application/msgpack" {
				t.Fatalf("Expected msgpack, got %q", ct)
			}
			var snap game.GameSnapshot
			if err := msgpack.NewDecoder(resp.Body).Decode(&snap); err != nil {
				t.Fatalf("Failed to decode msgpack: %v", err)
			}
			if snap.Paddle.Width != 100 || snap.Ball.Radius != 8 {
				t.Errorf("Unexpected snapshot %+v", snap)
			}
		})
	}
}

// TestAPIGetStateUnavailable covers an engine without snapshots
func TestAPIGetStateUnavailable(t *testing.T) {
	mockEngine := NewMockEngine()
	mockEngine.snapshot = nil
	ts := newTestServer(t, api.RouterConfig{Engine: mockEngine})

	resp, err := http.Get(ts.URL + "/api/state")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", resp.StatusCode)
	}
}

// TestAPIStatsAndConfig tests the monitoring endpoints
func TestAPIStatsAndConfig(t *testing.T) {
	ts := newTestServer(t, api.RouterConfig{Engine: NewMockEngine()})

	resp, err := http.Get(ts.URL + "/api/stats")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	var stats struct {
		Engine    game.EngineStats             `json:"engine"`
		RateLimit map[string]map[string]uint64 `json:"rateLimit"`
	}
	decodeBody(t, resp, &stats)
	if stats.Engine.TickRate != 60 || stats.Engine.State != "NEW" {
		t.Errorf("Unexpected engine stats %+v", stats.Engine)
	}
	if stats.RateLimit["read"]["allowed"] == 0 {
		t.Error("Expected the stats request itself to be counted")
	}
	if _, ok := stats.RateLimit["input"]; !ok {
		t.Errorf("Expected input limiter stats, got %v", stats.RateLimit)
	}

	resp, err = http.Get(ts.URL + "/api/config")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	var cfg config.GameConfig
	decodeBody(t, resp, &cfg)
	if cfg.MissLimit != 5 || cfg.Grid.Columns != 4 || cfg.TargetCollision != config.CollisionLookahead {
		t.Errorf("Unexpected config %+v", cfg)
	}
}

// TestAPIGameStart tests the start trigger
func TestAPIGameStart(t *testing.T) {
	mockEngine := NewMockEngine()
	ts := newTestServer(t, api.RouterConfig{Engine: mockEngine})

	for i, want := range []bool{true, false} {
		var result map[string]bool
		decodeBody(t, postJSON(t, ts.URL+"/api/game/start", ""), &result)
		if result["success"] != want {
			t.Errorf("Start %d: expected success=%v, got %v", i, want, result["success"])
		}
	}
	if starts, _ := mockEngine.counts(); starts != 1 {
		t.Errorf("Expected 1 start, got %d", starts)
	}
}

// TestAPIPointer tests pointer forwarding and gating
func TestAPIPointer(t *testing.T) {
	mockEngine := NewMockEngine()
	ts := newTestServer(t, api.RouterConfig{Engine: mockEngine})

	var result map[string]bool
	decodeBody(t, postJSON(t, ts.URL+"/api/game/pointer", `{"x": 120, "y": 480}`), &result)
	if result["success"] {
		t.Error("Pointer should be ignored before the session is ACTIVE")
	}

	mockEngine.setState("ACTIVE")
	decodeBody(t, postJSON(t, ts.URL+"/api/game/pointer", `{"x": 120, "y": 480}`), &result)
	if !result["success"] {
		t.Error("Pointer should move the paddle while ACTIVE")
	}
	if x, y := mockEngine.lastPointer(); x != 120 || y != 480 {
		t.Errorf("Engine saw pointer (%v, %v)", x, y)
	}
}

// TestAPIPointerValidation tests input validation
func TestAPIPointerValidation(t *testing.T) {
	ts := newTestServer(t, api.RouterConfig{Engine: NewMockEngine()})

	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"empty body", "", http.StatusBadRequest},
		{"invalid JSON", "not json", http.StatusBadRequest},
		{"missing y", `{"x": 10}`, http.StatusBadRequest},
		{"wrong type", `{"x": "left", "y": 10}`, http.StatusBadRequest},
		{"valid", `{"x": 0, "y": 0}`, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, ts.URL+"/api/game/pointer", tt.body)
			resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("Expected %d, got %d", tt.wantStatus, resp.StatusCode)
			}
		})
	}
}

// TestAPIFrame tests PNG rendering
func TestAPIFrame(t *testing.T) {
	renderer, err := render.New(config.DefaultRender())
	if err != nil {
		t.Fatal(err)
	}

	t.Run("disabled", func(t *testing.T) {
		ts := newTestServer(t, api.RouterConfig{Engine: NewMockEngine()})
		resp, err := http.Get(ts.URL + "/api/frame.png")
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("Expected 404 without a renderer, got %d", resp.StatusCode)
		}
	})

	t.Run("enabled", func(t *testing.T) {
		ts := newTestServer(t, api.RouterConfig{Engine: NewMockEngine(), Renderer: renderer})
		resp, err := http.Get(ts.URL + "/api/frame.png")
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		defer resp.Body.Close()
		if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
			t.Fatalf("Expected image/png, got %q", ct)
		}
		img, err := png.Decode(resp.Body)
		if err != nil {
			t.Fatalf("Invalid PNG: %v", err)
		}
		if b := img.Bounds(); b.Dx() != 400 || b.Dy() != 600 {
			t.Errorf("Unexpected frame size %v", b)
		}
	})
}

// TestAPISound tests sound cue downloads
func TestAPISound(t *testing.T) {
	bank, err := audio.NewBank(config.DefaultAudio())
	if err != nil {
		t.Fatal(err)
	}
	ts := newTestServer(t, api.RouterConfig{Engine: NewMockEngine(), Sounds: bank})

	tests := []struct {
		cue        string
		wantStatus int
	}{
		{"paddle", http.StatusOK},
		{"won", http.StatusOK},
		{"explosion", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.cue, func(t *testing.T) {
			resp, err := http.Get(ts.URL + "/api/sfx/" + tt.cue)
			if err != nil {
				t.Fatalf("Request failed: %v", err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("Expected %d, got %d", tt.wantStatus, resp.StatusCode)
			}
			if tt.wantStatus == http.StatusOK && resp.Header.Get("Content-Type") != "audio/wav" {
				t.Errorf("Expected audio/wav, got %q", resp.Header.Get("Content-Type"))
			}
		})
	}
}

// ============================================================================
// Middleware Tests
// ============================================================================

// TestAPICORSHeaders verifies CORS headers are set correctly
func TestAPICORSHeaders(t *testing.T) {
	ts := newTestServer(t, api.RouterConfig{
		Engine:      NewMockEngine(),
		CORSOrigins: []string{"http://test.example.com"},
	})

	req, _ := http.NewRequest("GET", ts.URL+"/api/state", nil)
	req.Header.Set("Origin", "http://test.example.com")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	allowOrigin := resp.Header.Get("Access-Control-Allow-Origin")
	if allowOrigin != "http://test.example.com" {
		t.Errorf("Expected Access-Control-Allow-Origin 'http://test.example.com', got '%s'", allowOrigin)
	}
}

// TestAPIRateLimiting verifies rate limiting works
func TestAPIRateLimiting(t *testing.T) {
	ts := newTestServer(t, api.RouterConfig{
		Engine: NewMockEngine(),
		RateLimitConfig: &api.RateLimitConfig{
			RequestsPerSecond: 1, // Only 1 request per second
			Burst:             2, // Allow burst of 2
			CleanupInterval:   time.Hour,
		},
	})

	var gotRateLimited bool
	for i := 0; i < 10; i++ {
		resp, err := http.Get(ts.URL + "/api/state")
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			if resp.Header.Get("Retry-After") == "" {
				t.Error("Expected Retry-After header")
			}
			gotRateLimited = true
			break
		}
	}

	if !gotRateLimited {
		t.Error("Expected to be rate limited after burst exceeded")
	}
}

// TestInputLimitIsSeparateFromReads verifies game commands and snapshot
// reads spend different per-IP budgets
func TestInputLimitIsSeparateFromReads(t *testing.T) {
	tight := &api.RateLimitConfig{RequestsPerSecond: 0.5, Burst: 2, CleanupInterval: time.Hour}

	getState := func(t *testing.T, ts *httptest.Server) int {
		t.Helper()
		resp, err := http.Get(ts.URL + "/api/state")
		if err != nil {
			t.Fatalf("Request failed: %v", err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}
	movePointer := func(t *testing.T, ts *httptest.Server) *http.Response {
		t.Helper()
		resp := postJSON(t, ts.URL+"/api/game/pointer", `{"x": 120, "y": 450}`)
		resp.Body.Close()
		return resp
	}

	t.Run("pointer flood leaves reads alone", func(t *testing.T) {
		ts := newTestServer(t, api.RouterConfig{Engine: NewMockEngine(), InputLimitConfig: tight})

		for i := 0; i < 2; i++ {
			if resp := movePointer(t, ts); resp.StatusCode != http.StatusOK {
				t.Fatalf("Move %d within burst got %d", i, resp.StatusCode)
			}
		}
		resp := movePointer(t, ts)
		if resp.StatusCode != http.StatusTooManyRequests {
			t.Fatalf("Expected 429 after input burst, got %d", resp.StatusCode)
		}
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err != nil || secs < 1 {
			t.Errorf("Expected a whole-second Retry-After, got %q", resp.Header.Get("Retry-After"))
		}

		for i := 0; i < 5; i++ {
			if code := getState(t, ts); code != http.StatusOK {
				t.Fatalf("Read %d should not share the input budget, got %d", i, code)
			}
		}
	})

	t.Run("read flood leaves input alone", func(t *testing.T) {
		ts := newTestServer(t, api.RouterConfig{Engine: NewMockEngine(), RateLimitConfig: tight})

		limited := false
		for i := 0; i < 3; i++ {
			if getState(t, ts) == http.StatusTooManyRequests {
				limited = true
			}
		}
		if !limited {
			t.Fatal("Expected reads to be limited after burst")
		}

		for i := 0; i < 5; i++ {
			if resp := movePointer(t, ts); resp.StatusCode != http.StatusOK {
				t.Fatalf("Move %d should not share the read budget, got %d", i, resp.StatusCode)
			}
		}
	})
}

// TestAPIRedirects tests the redirect behavior
func TestAPIRedirects(t *testing.T) {
	ts := newTestServer(t, api.RouterConfig{Engine: NewMockEngine()})

	client := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	resp, err := client.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound {
		t.Errorf("Expected 302 redirect, got %d", resp.StatusCode)
	}
	if location := resp.Header.Get("Location"); location != "/api/state" {
		t.Errorf("Expected redirect to /api/state, got %s", location)
	}
}

// ============================================================================
// Real Engine Tests
// ============================================================================

// TestServerWithEngine drives a real engine through the full server router
func TestServerWithEngine(t *testing.T) {
	engine, err := game.NewEngine(config.DefaultGame(), config.EngineConfig{TickRate: 60, Seed: 11})
	if err != nil {
		t.Fatal(err)
	}
	server := api.NewServer(engine, api.ServerOptions{})
	defer server.Stop(context.Background())

	ts := httptest.NewServer(server.Router())
	defer ts.Close()

	var result map[string]bool
	decodeBody(t, postJSON(t, ts.URL+"/api/game/start", ""), &result)
	if !result["success"] {
		t.Fatal("Expected the first start request to succeed")
	}

	engine.Frame(0)
	engine.Frame(16_000_000)

	resp, err := http.Get(ts.URL + "/api/state")
	if err != nil {
		t.Fatalf("Request failed: %v", err)
	}
	var snap game.GameSnapshot
	decodeBody(t, resp, &snap)
	if snap.State != "ACTIVE" || snap.TickNumber != 1 || !snap.Ticking {
		t.Errorf("Expected an ACTIVE snapshot after one tick, got state=%s tick=%d", snap.State, snap.TickNumber)
	}
	if len(snap.Targets) != 16 {
		t.Errorf("Expected 16 targets, got %d", len(snap.Targets))
	}

	decodeBody(t, postJSON(t, ts.URL+"/api/game/pointer", `{"x": 50, "y": 550}`), &result)
	if !result["success"] {
		t.Error("Pointer should be accepted while ACTIVE")
	}
	if p := engine.GetSnapshot().Paddle; p.X != 50 {
		t.Errorf("Expected paddle centered at x=50, got %v", p.X)
	}
}

// ============================================================================
// Benchmarks
// ============================================================================

// BenchmarkAPIGetState benchmarks the state endpoint
func BenchmarkAPIGetState(b *testing.B) {
	router := api.NewRouter(api.RouterConfig{
		Engine:          NewMockEngine(),
		RateLimitConfig: testRateLimit,
		DisableLogging:  true,
	})

	ts := httptest.NewServer(router)
	defer ts.Close()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		resp, err := http.Get(ts.URL + "/api/state")
		if err != nil {
			b.Fatalf("Request failed: %v", err)
		}
		resp.Body.Close()
	}
}
