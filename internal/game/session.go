package game

import (
	"math/rand"

	"zutopia/internal/config"
	"zutopia/internal/game/spatial"
)

// Session is one playthrough. It exclusively owns the ball, the paddle and
// the live targets; restarting means building a new Session.
type Session struct {
	cfg   config.GameConfig
	arena Bounds

	ball    *Ball
	paddle  *Paddle
	targets []*Target // Full grid, indexed by target ID
	alive   []bool
	live    int

	// Broad phase over live targets
	grid *spatial.Grid

	misses int
	state  GameState
	tick   uint64
	last   TickReport

	listener Listener
}

// NewSession validates the configuration and lays out a fresh arena.
// rng drives cosmetic target variants only; l may be nil.
func NewSession(cfg config.GameConfig, rng *rand.Rand, l Listener) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if l == nil {
		l = NopListener{}
	}

	arena := NewBounds(0, 0, cfg.ArenaWidth, cfg.ArenaHeight)
	s := &Session{
		cfg:      cfg,
		arena:    arena,
		ball:     NewBall(arena, cfg.BallRadius, cfg.InitialVX, cfg.InitialVY, cfg.SpeedBoost),
		paddle:   NewPaddle(arena, cfg.PaddleWidth, cfg.PaddleHeight, cfg.PaddleStartY, cfg.PaddleMinY),
		targets:  NewTargetGrid(cfg, rng),
		grid:     spatial.NewGrid(cfg.ArenaWidth, cfg.ArenaHeight, float64(max(cfg.Grid.BlockWidth, cfg.Grid.BlockHeight))),
		state:    StateNew,
		listener: l,
	}

	s.alive = make([]bool, len(s.targets))
	for _, t := range s.targets {
		s.alive[t.ID] = true
		s.grid.Insert(t.ID, t.Box.MinX, t.Box.MinY, t.Box.MaxX, t.Box.MaxY)
	}
	s.live = len(s.targets)

	s.Announce(l)

	return s, nil
}

// Step advances the simulation by deltaNs and returns the resulting state.
// A non-positive delta or a finished session leaves everything untouched.
func (s *Session) Step(deltaNs int64) GameState {
	if deltaNs <= 0 || s.state.Terminal() {
		return s.state
	}

	s.tick++
	report := TickReport{Tick: s.tick, DeltaNs: deltaNs}

	// Paddle is tested one frame ahead so the ball cannot sink into it.
	predicted := s.ball.Predict(deltaNs)
	if CollidesWith(s.paddle, predicted) {
		s.ball.FlipY()
		report.PaddleHit = true
	}

	hitBox := predicted
	if s.cfg.TargetCollision == config.CollisionCurrent {
		hitBox = s.ball.BoundingBox()
	}
	for _, id := range s.grid.QueryBox(hitBox.MinX, hitBox.MinY, hitBox.MaxX, hitBox.MaxY) {
		t := s.targets[id]
		if !s.alive[id] || !CollidesWith(t, hitBox) {
			continue
		}
		s.removeTarget(t)
		s.ball.FlipY()
		s.ball.BoostSpeed()
		report.Destroyed = append(report.Destroyed, id)
	}

	vx, vy := s.ball.VX, s.ball.VY
	if s.ball.Advance(deltaNs) {
		s.misses++
		report.FloorMiss = true
	}
	report.WallBounceX = (vx < 0) != (s.ball.VX < 0)
	report.WallBounceY = (vy < 0) != (s.ball.VY < 0)

	prev := s.state
	switch {
	case s.live == 0:
		s.state = StateWon
	case s.misses >= s.cfg.MissLimit:
		s.state = StateLost
	default:
		s.state = StateActive
	}

	report.Misses = s.misses
	report.TargetsLeft = s.live
	report.Speed = s.ball.Speed()
	report.State = s.state
	s.last = report

	s.listener.EntitiesMoved(s.ballEntity(), s.paddleEntity())
	s.listener.TickCompleted(report)
	if prev != s.state {
		s.listener.StateChanged(prev, s.state)
	}

	return s.state
}

// PointerMoved steers the paddle. Input is ignored unless the session is ACTIVE.
func (s *Session) PointerMoved(x, y float64) bool {
	if s.state != StateActive {
		return false
	}
	s.paddle.MoveTo(x, y)
	s.listener.EntitiesMoved(s.ballEntity(), s.paddleEntity())
	return true
}

// Teardown announces the removal of every remaining entity.
// The session must not be stepped afterwards.
func (s *Session) Teardown() {
	s.listener.EntityRemoved(s.ballEntity())
	s.listener.EntityRemoved(s.paddleEntity())
	for _, t := range s.targets {
		if s.alive[t.ID] {
			s.listener.EntityRemoved(targetEntity(t))
		}
	}
}

// Announce replays EntityAdded for everything currently alive, so a
// listener attached mid-session can build its scene.
func (s *Session) Announce(l Listener) {
	l.EntityAdded(s.ballEntity())
	l.EntityAdded(s.paddleEntity())
	for _, t := range s.targets {
		if s.alive[t.ID] {
			l.EntityAdded(targetEntity(t))
		}
	}
}

func (s *Session) removeTarget(t *Target) {
	s.alive[t.ID] = false
	s.live--
	s.grid.Remove(t.ID, t.Box.MinX, t.Box.MinY, t.Box.MaxX, t.Box.MaxY)
	s.listener.EntityRemoved(targetEntity(t))
}

// State returns the current lifecycle state.
func (s *Session) State() GameState { return s.state }

// Misses returns the number of floor misses so far.
func (s *Session) Misses() int { return s.misses }

// Tick returns the number of steps that actually ran.
func (s *Session) Tick() uint64 { return s.tick }

// LastReport returns the summary of the most recent step.
func (s *Session) LastReport() TickReport { return s.last }

// Ball returns a copy of the ball.
func (s *Session) Ball() Ball { return *s.ball }

// Paddle returns a copy of the paddle.
func (s *Session) Paddle() Paddle { return *s.paddle }

// TargetCount returns the size of the full grid.
func (s *Session) TargetCount() int { return len(s.targets) }

// LiveTargets returns copies of the remaining targets in grid order.
func (s *Session) LiveTargets() []Target {
	out := make([]Target, 0, s.live)
	for _, t := range s.targets {
		if s.alive[t.ID] {
			out = append(out, *t)
		}
	}
	return out
}

// Arena returns the arena bounds.
func (s *Session) Arena() Bounds { return s.arena }

func (s *Session) ballEntity() Entity {
	return Entity{Kind: EntityBall, Box: s.ball.BoundingBox()}
}

func (s *Session) paddleEntity() Entity {
	return Entity{Kind: EntityPaddle, Box: s.paddle.BoundingBox()}
}

func targetEntity(t *Target) Entity {
	return Entity{ID: t.ID, Kind: EntityTarget, Box: t.Box, Variant: t.Variant}
}
