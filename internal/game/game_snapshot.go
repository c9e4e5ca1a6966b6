package game

import (
	"sync/atomic"
	"time"
)

// BallSnapshot is an immutable copy of the ball for rendering
type BallSnapshot struct {
	X      float64 `json:"x" msgpack:"x"`
	Y      float64 `json:"y" msgpack:"y"`
	VX     float64 `json:"vx" msgpack:"vx"`
	VY     float64 `json:"vy" msgpack:"vy"`
	Radius float64 `json:"radius" msgpack:"radius"`
	Speed  float64 `json:"speed" msgpack:"speed"`
}

// PaddleSnapshot is an immutable copy of the paddle; X/Y is the center
type PaddleSnapshot struct {
	X      float64 `json:"x" msgpack:"x"`
	Y      float64 `json:"y" msgpack:"y"`
	Width  float64 `json:"width" msgpack:"width"`
	Height float64 `json:"height" msgpack:"height"`
}

// TargetSnapshot is an immutable live target; X/Y is the top-left corner
type TargetSnapshot struct {
	ID      uint32  `json:"id" msgpack:"id"`
	X       float64 `json:"x" msgpack:"x"`
	Y       float64 `json:"y" msgpack:"y"`
	Width   float64 `json:"width" msgpack:"width"`
	Height  float64 `json:"height" msgpack:"height"`
	Variant string  `json:"variant" msgpack:"variant"`
}

// GameSnapshot is a complete immutable game state for rendering
// Target slice is pre-allocated to the grid size and never grows
type GameSnapshot struct {
	Sequence   uint64    `json:"sequence" msgpack:"sequence"`   // Monotonic sequence for ordering
	Timestamp  time.Time `json:"timestamp" msgpack:"timestamp"` // When snapshot was created
	TickNumber uint64    `json:"tick" msgpack:"tick"`           // Session tick this represents
	Session    uint64    `json:"session" msgpack:"session"`     // 1-based session counter
	State      string    `json:"state" msgpack:"state"`         // NEW, ACTIVE, WON or LOST
	Outcome    string    `json:"outcome" msgpack:"outcome"`     // Result of the previous session, if any
	Ticking    bool      `json:"ticking" msgpack:"ticking"`     // Start was requested for this session

	ArenaWidth  float64 `json:"arenaWidth" msgpack:"arenaWidth"`
	ArenaHeight float64 `json:"arenaHeight" msgpack:"arenaHeight"`

	Ball    BallSnapshot     `json:"ball" msgpack:"ball"`
	Paddle  PaddleSnapshot   `json:"paddle" msgpack:"paddle"`
	Targets []TargetSnapshot `json:"targets" msgpack:"targets"`

	// Aggregate stats
	TargetsTotal int `json:"targetsTotal" msgpack:"targetsTotal"`
	TargetsLeft  int `json:"targetsLeft" msgpack:"targetsLeft"`
	Misses       int `json:"misses" msgpack:"misses"`
	MissLimit    int `json:"missLimit" msgpack:"missLimit"`
	Wins         int `json:"wins" msgpack:"wins"`
	Losses       int `json:"losses" msgpack:"losses"`
}

// Clone returns a deep copy that stays valid after the pool reuses the slot
func (s *GameSnapshot) Clone() *GameSnapshot {
	c := *s
	c.Targets = append([]TargetSnapshot(nil), s.Targets...)
	return &c
}

// SnapshotPool pre-allocates snapshots to avoid GC pressure
// Uses triple buffering for lock-free producer/consumer
type SnapshotPool struct {
	snapshots [3]GameSnapshot // Triple buffer
	writeIdx  uint32          // atomic - producer index
	readIdx   uint32          // atomic - consumer index
	sequence  uint64          // atomic - monotonic sequence
	published atomic.Bool
}

// NewSnapshotPool creates a pool sized for maxTargets live targets
func NewSnapshotPool(maxTargets int) *SnapshotPool {
	pool := &SnapshotPool{}

	// Pre-allocate all slices to avoid runtime allocations
	for i := 0; i < 3; i++ {
		pool.snapshots[i] = GameSnapshot{
			Targets: make([]TargetSnapshot, 0, maxTargets),
		}
	}

	return pool
}

// AcquireWrite gets the next write slot (producer only, called with the engine lock held)
// Returns a snapshot with a reset target slice but preserved capacity
func (p *SnapshotPool) AcquireWrite() *GameSnapshot {
	idx := (atomic.LoadUint32(&p.writeIdx) + 1) % 3
	if idx == atomic.LoadUint32(&p.readIdx)%3 {
		idx = (idx + 1) % 3
	}
	atomic.StoreUint32(&p.writeIdx, idx)
	snap := &p.snapshots[idx]

	snap.Targets = snap.Targets[:0]

	// Assign new sequence number
	snap.Sequence = atomic.AddUint64(&p.sequence, 1)
	snap.Timestamp = time.Now()

	return snap
}

// PublishWrite marks write complete and advances read pointer
// Called after snapshot is fully populated
func (p *SnapshotPool) PublishWrite() {
	atomic.StoreUint32(&p.readIdx, atomic.LoadUint32(&p.writeIdx))
	p.published.Store(true)
}

// AcquireRead gets the latest complete snapshot (consumer only)
// Returns nil if nothing has been published yet
func (p *SnapshotPool) AcquireRead() *GameSnapshot {
	if !p.published.Load() {
		return nil
	}
	idx := atomic.LoadUint32(&p.readIdx) % 3
	return &p.snapshots[idx]
}
