package api

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"sync"
	"time"

	"zutopia/internal/game"

	"github.com/go-chi/chi/v5"
)

// ServerOptions carries the optional presentation dependencies
type ServerOptions struct {
	Renderer       FrameRenderer
	Sounds         SoundBank
	AllowedOrigins []string // nil uses AllowedOrigins
	BroadcastHz    int      // WebSocket state pushes per second
}

// Server is the HTTP API server with WebSocket support.
// It combines the HTTP router with WebSocket hub for real-time updates.
type Server struct {
	engine   *game.Engine
	opts     ServerOptions
	router   *chi.Mux
	wsHub    *WebSocketHub
	limiters []*ClientLimiter

	mu         sync.Mutex
	httpServer *http.Server
}

// NewServer creates a new API server with default production configuration.
//
// IMPORTANT: Background workers do NOT start until Start() is called, and
// the engine is not touched until then either.
//
// For testing HTTP endpoints without WebSocket support, use NewRouter() directly.
func NewServer(engine *game.Engine, opts ServerOptions) *Server {
	s := &Server{
		engine: engine,
		opts:   opts,
		wsHub:  NewWebSocketHub(engine, opts.AllowedOrigins),
	}

	// Create rate limiters (we track them for cleanup)
	reads := NewClientLimiter(RouteRead, DefaultRateLimitConfig)
	inputs := NewClientLimiter(RouteInput, DefaultInputRateLimitConfig)
	s.limiters = []*ClientLimiter{reads, inputs}

	var renderer FrameRenderer
	if opts.Renderer != nil {
		renderer = timedRenderer{opts.Renderer}
	}

	s.router = NewRouter(RouterConfig{
		Engine:       engine,
		Renderer:     renderer,
		Sounds:       opts.Sounds,
		RateLimiter:  reads,
		InputLimiter: inputs,
		CORSOrigins:  opts.AllowedOrigins,
	})

	// Add WebSocket routes (these need the wsHub instance)
	s.setupWebSocketRoutes(reads)

	return s
}

// setupWebSocketRoutes adds WebSocket-specific routes to the router.
// These routes need access to the wsHub instance, so they can't be
// part of the generic NewRouter factory.
func (s *Server) setupWebSocketRoutes(reads *ClientLimiter) {
	s.router.With(reads.Middleware).Get("/ws", s.wsHub.HandleWebSocket)
}

// Start wires engine observers, starts background workers and serves addr.
// This is the ONLY method that starts goroutines or opens network listeners.
// It blocks until Stop is called or the listener fails.
func (s *Server) Start(addr string) error {
	s.engine.AddListener(MetricsListener{})
	s.engine.AddListener(s.wsHub.Listener())
	s.engine.SetFrameHook(func(elapsed time.Duration, _ game.GameState) {
		RecordTick(elapsed)
	})

	go s.wsHub.Run()
	s.wsHub.StartBroadcastLoop(s.opts.BroadcastHz)
	go s.eventLogStatsLoop()

	s.mu.Lock()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	log.Printf("🌐 API server starting on %s", addr)
	log.Printf("🕹️ Live state: ws://localhost%s/ws", addr)

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// eventLogStatsLoop mirrors event log counters into Prometheus
func (s *Server) eventLogStatsLoop() {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-s.wsHub.done:
			return
		case <-ticker.C:
			stats := s.engine.GetEventLogStats()
			total, _ := stats["total"].(uint64)
			dropped, _ := stats["dropped"].(uint64)
			UpdateEventLogStats(total, dropped)
		}
	}
}

// Router returns the HTTP handler for use with httptest.
// Use this in integration tests instead of calling Start().
func (s *Server) Router() http.Handler {
	return s.router
}

// Hub returns the WebSocket hub
func (s *Server) Hub() *WebSocketHub {
	return s.wsHub
}

// Stop performs graceful shutdown of the listener and background workers.
func (s *Server) Stop(ctx context.Context) error {
	s.wsHub.Stop()
	for _, l := range s.limiters {
		l.Stop()
	}

	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

// timedRenderer records render latency
type timedRenderer struct {
	next FrameRenderer
}

func (t timedRenderer) EncodePNG(w io.Writer, snap *game.GameSnapshot) error {
	start := time.Now()
	err := t.next.EncodePNG(w, snap)
	RecordRender(time.Since(start))
	return err
}
