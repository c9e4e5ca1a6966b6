package api

import (
	"io"
	"net/http"
	"time"

	"zutopia/internal/audio"
	"zutopia/internal/config"
	"zutopia/internal/game"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// EngineInterface defines the game engine methods used by the API.
// This interface enables mocking for tests without spinning up the frame clock.
// Keep this minimal - only include methods the API layer actually calls.
type EngineInterface interface {
	// GetSnapshot returns a private copy of the latest published snapshot
	GetSnapshot() *game.GameSnapshot
	// Stats returns engine counters for monitoring
	Stats() game.EngineStats
	// GameConfig returns the configuration sessions are built from
	GameConfig() config.GameConfig
	// RequestStart lets a NEW session begin ticking
	RequestStart() bool
	// PointerMoved forwards pointer input to the paddle
	PointerMoved(x, y float64) bool
}

// FrameRenderer draws snapshots as PNG images
type FrameRenderer interface {
	EncodePNG(w io.Writer, snap *game.GameSnapshot) error
}

// SoundBank serves pre-rendered sound cues
type SoundBank interface {
	WAV(c audio.Cue) ([]byte, error)
}

// RouterConfig contains all dependencies needed to construct the HTTP router.
//
// Example usage in tests:
//
//	cfg := api.RouterConfig{
//	    Engine: mockEngine,
//	    RateLimitConfig: &api.RateLimitConfig{
//	        RequestsPerSecond: 1000, // High limit for tests
//	        Burst:             1000,
//	    },
//	}
//	router := api.NewRouter(cfg)
//	ts := httptest.NewServer(router)
type RouterConfig struct {
	// Engine is the game engine (required)
	Engine EngineInterface

	// Renderer enables GET /api/frame.png when set
	Renderer FrameRenderer

	// Sounds enables GET /api/sfx/{cue} when set
	Sounds SoundBank

	// RateLimiter budgets the read routes. If nil, one is created from
	// RateLimitConfig, or DefaultRateLimitConfig when that is nil too.
	RateLimiter     *ClientLimiter
	RateLimitConfig *RateLimitConfig

	// InputLimiter budgets /api/game commands separately, so a pointer
	// stream never starves snapshot polling. Falls back like RateLimiter,
	// ending at DefaultInputRateLimitConfig.
	InputLimiter     *ClientLimiter
	InputLimitConfig *RateLimitConfig

	// CORSOrigins is an optional list of allowed CORS origins.
	// If nil, uses AllowedOrigins.
	CORSOrigins []string

	// DisableLogging disables the request logger middleware (useful for benchmarks).
	DisableLogging bool
}

// routerHandlers holds the handler functions for the router.
type routerHandlers struct {
	engine   EngineInterface
	renderer FrameRenderer
	sounds   SoundBank
	limiters []*ClientLimiter
}

// NewRouter constructs the HTTP router with all middleware and routes.
//
// IMPORTANT: This function is PURE apart from the sweepers of limiters it
// creates itself:
//   - No network listeners are opened
//   - No engine goroutines are launched
//
// This makes it safe to use in tests with httptest.NewServer.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Middleware - Order matters!
	if !cfg.DisableLogging {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	corsOrigins := cfg.CORSOrigins
	if corsOrigins == nil {
		corsOrigins = AllowedOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}))

	reads := orNewLimiter(cfg.RateLimiter, RouteRead, cfg.RateLimitConfig, DefaultRateLimitConfig)
	inputs := orNewLimiter(cfg.InputLimiter, RouteInput, cfg.InputLimitConfig, DefaultInputRateLimitConfig)

	h := &routerHandlers{
		engine:   cfg.Engine,
		renderer: cfg.Renderer,
		sounds:   cfg.Sounds,
		limiters: []*ClientLimiter{reads, inputs},
	}

	r.Route("/api", func(r chi.Router) {
		// Read side, served from snapshots
		r.Group(func(r chi.Router) {
			r.Use(reads.Middleware)
			r.Get("/state", h.handleGetState)
			r.Get("/stats", h.handleGetStats)
			r.Get("/config", h.handleGetConfig)
			r.Get("/frame.png", h.handleGetFrame)
			r.Get("/sfx/{cue}", h.handleGetSound)
		})

		// Player input
		r.Route("/game", func(r chi.Router) {
			r.Use(inputs.Middleware)
			r.Post("/start", h.handleGameStart)
			r.Post("/pointer", h.handlePointer)
		})
	})

	r.With(reads.Middleware).Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/api/state", http.StatusFound)
	})

	return r
}

func orNewLimiter(l *ClientLimiter, class RouteClass, cfg *RateLimitConfig, def RateLimitConfig) *ClientLimiter {
	if l != nil {
		return l
	}
	if cfg != nil {
		def = *cfg
	}
	return NewClientLimiter(class, def)
}

// metricsMiddleware records latency per route pattern, never per raw path
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		endpoint := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				endpoint = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		RecordRequest(r.Method, endpoint, status, time.Since(start))
	})
}
