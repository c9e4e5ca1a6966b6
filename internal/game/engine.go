package game

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"zutopia/internal/config"
)

// Engine is the frame driver. It turns frame callbacks into nanosecond
// deltas for the current Session and rebuilds the session whenever one ends.
// Every mutation happens under mu; readers use the published snapshots.
type Engine struct {
	mu      sync.Mutex
	gameCfg config.GameConfig
	cfg     config.EngineConfig

	session    *Session
	sessionNum uint64
	ticking    bool
	lastNano   int64     // Previous frame time, -1 until the first ticking frame
	outcome    GameState // How the previous session ended, StateNew if none yet

	// Stats
	wins   int
	losses int
	frames uint64

	listeners listenerSet
	onFrame   func(elapsed time.Duration, state GameState)

	// Deterministic RNG for cosmetic variants
	rng     *rand.Rand
	rngSeed int64

	running  bool
	ticker   *time.Ticker
	stopChan chan struct{}
	epoch    time.Time

	// Triple-buffered snapshots, republished after every mutation
	snapshotPool *SnapshotPool

	// Event sourcing for replay and debugging
	eventLog *EventLog
}

// EngineStats is a point-in-time summary for monitoring endpoints
type EngineStats struct {
	Running      bool                   `json:"running"`
	TickRate     int                    `json:"tickRate"`
	Autopilot    bool                   `json:"autopilot"`
	RNGSeed      int64                  `json:"rngSeed"`
	Session      uint64                 `json:"session"`
	State        string                 `json:"state"`
	Ticking      bool                   `json:"ticking"`
	Tick         uint64                 `json:"tick"`
	Frames       uint64                 `json:"frames"`
	Wins         int                    `json:"wins"`
	Losses       int                    `json:"losses"`
	Misses       int                    `json:"misses"`
	TargetsLeft  int                    `json:"targetsLeft"`
	TargetsTotal int                    `json:"targetsTotal"`
	BallSpeed    float64                `json:"ballSpeed"`
	EventLog     map[string]interface{} `json:"eventLog"`
}

// NewEngine validates both configurations and builds the first session.
func NewEngine(gameCfg config.GameConfig, cfg config.EngineConfig) (*Engine, error) {
	if err := gameCfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.TickRate <= 0 {
		return nil, fmt.Errorf("%w: tick rate must be positive, got %d", config.ErrInvalidConfig, cfg.TickRate)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	e := &Engine{
		gameCfg:      gameCfg,
		cfg:          cfg,
		lastNano:     -1,
		outcome:      StateNew,
		rng:          rand.New(rand.NewSource(seed)),
		rngSeed:      seed,
		epoch:        time.Now(),
		snapshotPool: NewSnapshotPool(gameCfg.Grid.Rows * gameCfg.Grid.Columns),
		eventLog:     NewEventLog(),
	}
	e.listeners.add(newEventLogListener(e.eventLog))

	s, err := NewSession(gameCfg, e.rng, &e.listeners)
	if err != nil {
		return nil, err
	}
	e.session = s
	e.sessionNum = 1
	e.ticking = cfg.Autopilot

	e.produceSnapshotLocked()
	return e, nil
}

// Start begins the built-in frame clock at TickRate frames per second
func (e *Engine) Start() {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.stopChan = make(chan struct{})
	e.ticker = time.NewTicker(time.Second / time.Duration(e.cfg.TickRate))
	ticker, stop := e.ticker, e.stopChan
	e.mu.Unlock()

	go func() {
		for {
			select {
			case <-ticker.C:
				e.Frame(e.Now())
			case <-stop:
				return
			}
		}
	}()

	log.Printf("🎮 Game engine started at %d TPS", e.cfg.TickRate)
}

// Stop stops the frame clock
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}

	e.running = false
	e.ticker.Stop()
	close(e.stopChan)
	log.Println("🛑 Game engine stopped")
}

// Now returns monotonic nanoseconds since the engine was created
func (e *Engine) Now() int64 {
	return int64(time.Since(e.epoch))
}

// Frame is the per-frame entry point. now must come from a monotonic clock.
// It returns the state produced by this frame; a WON or LOST result means
// the session has already been replaced by a fresh NEW one.
func (e *Engine) Frame(now int64) GameState {
	e.mu.Lock()

	e.frames++
	if !e.ticking {
		state := e.session.State()
		e.mu.Unlock()
		return state
	}
	if e.lastNano < 0 {
		e.lastNano = now
		state := e.session.State()
		e.mu.Unlock()
		return state
	}

	delta := now - e.lastNano
	if delta <= 0 {
		state := e.session.State()
		e.mu.Unlock()
		return state
	}
	e.lastNano = now

	started := time.Now()
	if e.cfg.Autopilot {
		e.steerLocked()
	}
	state := e.session.Step(delta)
	if state.Terminal() {
		e.finishLocked(state)
	}
	e.produceSnapshotLocked()
	hook := e.onFrame
	e.mu.Unlock()

	if hook != nil {
		hook(time.Since(started), state)
	}
	return state
}

// steerLocked parks the paddle under the ball
func (e *Engine) steerLocked() {
	ball := e.session.Ball()
	paddle := e.session.Paddle()
	e.session.PointerMoved(ball.X, paddle.Y)
}

// finishLocked records the outcome and replaces the session with a fresh one
func (e *Engine) finishLocked(outcome GameState) {
	s := e.session
	if outcome == StateWon {
		e.wins++
		log.Printf("🏆 Session %d won after %d ticks (%d misses)", e.sessionNum, s.Tick(), s.Misses())
	} else {
		e.losses++
		log.Printf("💀 Session %d lost with %d/%d targets left", e.sessionNum, len(s.LiveTargets()), s.TargetCount())
	}
	e.outcome = outcome

	s.Teardown()
	next, err := NewSession(e.gameCfg, e.rng, &e.listeners)
	if err != nil {
		// Config was validated in NewEngine, so this only happens on a bug
		log.Printf("❌ Failed to rebuild session: %v", err)
		e.ticking = false
		return
	}
	e.session = next
	e.sessionNum++
	e.ticking = e.cfg.Autopilot
	e.lastNano = -1
	e.listeners.StateChanged(outcome, StateNew)
}

// RequestStart lets a NEW session begin ticking. It returns false when the
// session is already running.
func (e *Engine) RequestStart() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.ticking || e.session.State() != StateNew {
		return false
	}
	e.ticking = true
	e.lastNano = -1
	log.Printf("▶️ Session %d started", e.sessionNum)
	e.produceSnapshotLocked()
	return true
}

// PointerMoved forwards pointer input to the paddle. Ignored unless ACTIVE.
func (e *Engine) PointerMoved(x, y float64) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.session.PointerMoved(x, y) {
		return false
	}
	e.produceSnapshotLocked()
	return true
}

// AddListener registers l for simulation notifications and replays the
// current session's entities to it. l must not call back into the Engine.
func (e *Engine) AddListener(l Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.listeners.add(l)
	e.session.Announce(l)
}

// SetFrameHook installs fn to run after every simulated frame, outside the lock
func (e *Engine) SetFrameHook(fn func(elapsed time.Duration, state GameState)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onFrame = fn
}

// State returns the current session state
func (e *Engine) State() GameState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.State()
}

// GetSnapshot returns a private copy of the latest published snapshot.
// Callers may keep it and hand it to other goroutines.
func (e *Engine) GetSnapshot() *GameSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := e.snapshotPool.AcquireRead()
	if snap == nil {
		return nil
	}
	return snap.Clone()
}

// produceSnapshotLocked publishes an immutable copy of the current session
func (e *Engine) produceSnapshotLocked() {
	s := e.session
	snap := e.snapshotPool.AcquireWrite()

	snap.TickNumber = s.Tick()
	snap.Session = e.sessionNum
	snap.State = s.State().String()
	snap.Outcome = ""
	if e.outcome.Terminal() {
		snap.Outcome = e.outcome.String()
	}
	snap.Ticking = e.ticking
	snap.ArenaWidth = s.arena.Width()
	snap.ArenaHeight = s.arena.Height()

	b := s.ball
	snap.Ball = BallSnapshot{X: b.X, Y: b.Y, VX: b.VX, VY: b.VY, Radius: b.Radius(), Speed: b.Speed()}
	p := s.paddle
	snap.Paddle = PaddleSnapshot{X: p.X, Y: p.Y, Width: p.Width, Height: p.Height}

	for _, t := range s.targets {
		if !s.alive[t.ID] {
			continue
		}
		snap.Targets = append(snap.Targets, TargetSnapshot{
			ID:      t.ID,
			X:       t.Box.MinX,
			Y:       t.Box.MinY,
			Width:   t.Box.Width(),
			Height:  t.Box.Height(),
			Variant: t.Variant.String(),
		})
	}

	snap.TargetsTotal = len(s.targets)
	snap.TargetsLeft = s.live
	snap.Misses = s.misses
	snap.MissLimit = e.gameCfg.MissLimit
	snap.Wins = e.wins
	snap.Losses = e.losses

	e.snapshotPool.PublishWrite()
}

// Stats returns a summary for the stats endpoint
func (e *Engine) Stats() EngineStats {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	return EngineStats{
		Running:      e.running,
		TickRate:     e.cfg.TickRate,
		Autopilot:    e.cfg.Autopilot,
		RNGSeed:      e.rngSeed,
		Session:      e.sessionNum,
		State:        s.State().String(),
		Ticking:      e.ticking,
		Tick:         s.Tick(),
		Frames:       e.frames,
		Wins:         e.wins,
		Losses:       e.losses,
		Misses:       s.Misses(),
		TargetsLeft:  s.live,
		TargetsTotal: s.TargetCount(),
		BallSpeed:    s.ball.Speed(),
		EventLog:     e.eventLog.GetStats(),
	}
}

// GameConfig returns the configuration every session is built from
func (e *Engine) GameConfig() config.GameConfig {
	return e.gameCfg
}

// StartEventLog initializes the event logging system
func (e *Engine) StartEventLog(filePath string) error {
	return e.eventLog.Start(filePath)
}

// StopEventLog gracefully stops the event logging system
func (e *Engine) StopEventLog() {
	e.eventLog.Stop()
}

// GetEventLogStats returns event log statistics for monitoring
func (e *Engine) GetEventLogStats() map[string]interface{} {
	return e.eventLog.GetStats()
}
