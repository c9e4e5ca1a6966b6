package game

// GameState is the session lifecycle: NEW → ACTIVE → WON/LOST → (restart) NEW.
type GameState uint8

const (
	StateNew GameState = iota
	StateActive
	StateWon
	StateLost
)

// String returns the state name
func (s GameState) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateActive:
		return "ACTIVE"
	case StateWon:
		return "WON"
	case StateLost:
		return "LOST"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether the session is over.
func (s GameState) Terminal() bool {
	return s == StateWon || s == StateLost
}

// EntityKind identifies what an Entity notification refers to.
type EntityKind uint8

const (
	EntityBall EntityKind = iota
	EntityPaddle
	EntityTarget
)

// String returns the kind name
func (k EntityKind) String() string {
	switch k {
	case EntityBall:
		return "ball"
	case EntityPaddle:
		return "paddle"
	case EntityTarget:
		return "target"
	default:
		return "unknown"
	}
}

// Entity is a read-only description of something the presentation layer draws.
type Entity struct {
	ID      uint32 // Target id; zero for ball and paddle
	Kind    EntityKind
	Box     Bounds
	Variant Variant // Targets only
}

// TickReport summarizes what happened during one simulation step.
type TickReport struct {
	Tick        uint64
	DeltaNs     int64
	PaddleHit   bool
	Destroyed   []uint32 // Target ids in the order they were removed
	WallBounceX bool
	WallBounceY bool
	FloorMiss   bool
	Misses      int
	TargetsLeft int
	Speed       float64 // Ball speed after the step, distance per ns
	State       GameState
}

// Listener receives the outbound effects of the simulation.
// Callbacks run synchronously inside the tick and must not call back into
// the Engine that owns the session.
type Listener interface {
	EntityAdded(e Entity)
	EntityRemoved(e Entity)
	EntitiesMoved(ball, paddle Entity)
	TickCompleted(r TickReport)
	StateChanged(from, to GameState)
}

// NopListener ignores every notification. Embed it to implement only
// the callbacks you care about.
type NopListener struct{}

func (NopListener) EntityAdded(Entity)                {}
func (NopListener) EntityRemoved(Entity)              {}
func (NopListener) EntitiesMoved(Entity, Entity)      {}
func (NopListener) TickCompleted(TickReport)          {}
func (NopListener) StateChanged(GameState, GameState) {}

// listenerSet fans notifications out to every registered listener.
type listenerSet struct {
	list []Listener
}

func (ls *listenerSet) add(l Listener) {
	ls.list = append(ls.list, l)
}

func (ls *listenerSet) EntityAdded(e Entity) {
	for _, l := range ls.list {
		l.EntityAdded(e)
	}
}

func (ls *listenerSet) EntityRemoved(e Entity) {
	for _, l := range ls.list {
		l.EntityRemoved(e)
	}
}

func (ls *listenerSet) EntitiesMoved(ball, paddle Entity) {
	for _, l := range ls.list {
		l.EntitiesMoved(ball, paddle)
	}
}

func (ls *listenerSet) TickCompleted(r TickReport) {
	for _, l := range ls.list {
		l.TickCompleted(r)
	}
}

func (ls *listenerSet) StateChanged(from, to GameState) {
	for _, l := range ls.list {
		l.StateChanged(from, to)
	}
}
