package game

import (
	"encoding/json"
	"time"
)

// EventType enum for event classification
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeTick              // Tick boundary with delta time
	EventTypeSessionStart
	EventTypePaddleBounce
	EventTypeTargetDestroyed
	EventTypeFloorMiss
	EventTypeSessionEnd

	eventTypeCount // keep last
)

// EventVersion for backwards compatibility in replay
const EventVersion uint8 = 1

// Event is the core event structure for the event log
type Event struct {
	Version   uint8     `json:"version"`   // Schema version
	Type      EventType `json:"type"`      // Event type
	Timestamp int64     `json:"timestamp"` // Unix nano
	Sequence  uint64    `json:"sequence"`  // Monotonic sequence
	Session   uint64    `json:"session"`   // Session this occurred in
	TickNum   uint64    `json:"tickNum"`   // Session tick this occurred in
	Payload   []byte    `json:"payload"`   // JSON-encoded payload
}

// String returns human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTypeTick:
		return "tick"
	case EventTypeSessionStart:
		return "session_start"
	case EventTypePaddleBounce:
		return "paddle_bounce"
	case EventTypeTargetDestroyed:
		return "target_destroyed"
	case EventTypeFloorMiss:
		return "floor_miss"
	case EventTypeSessionEnd:
		return "session_end"
	default:
		return "unknown"
	}
}

// Typed payloads for different event types

// TickPayload contains tick boundary information for replay
type TickPayload struct {
	DeltaTimeNs int64   `json:"deltaTimeNs"`
	BallX       float64 `json:"ballX"`
	BallY       float64 `json:"ballY"`
	PaddleX     float64 `json:"paddleX"`
}

// TargetPayload contains target destruction details
type TargetPayload struct {
	TargetID    uint32  `json:"targetId"`
	Variant     string  `json:"variant"`
	TargetsLeft int     `json:"targetsLeft"`
	Speed       float64 `json:"speed"`
}

// MissPayload contains floor miss details
type MissPayload struct {
	Misses int `json:"misses"`
}

// SessionPayload contains session boundary details
type SessionPayload struct {
	State       string `json:"state"`
	Misses      int    `json:"misses"`
	TargetsLeft int    `json:"targetsLeft"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload interface{}) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, session, tickNum uint64, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		Session:   session,
		TickNum:   tickNum,
		Payload:   EncodePayload(payload),
	}
}

// eventLogListener turns simulation notifications into log events.
// It runs inside the tick, so it only touches the non-blocking Emit path.
type eventLogListener struct {
	NopListener
	log *EventLog

	session uint64
	tick    uint64
	ball    Entity
	paddle  Entity
	// Target variants by id; ids restart at zero every session
	variants map[uint32]Variant
}

func newEventLogListener(el *EventLog) *eventLogListener {
	return &eventLogListener{log: el, variants: make(map[uint32]Variant)}
}

func (l *eventLogListener) EntityAdded(e Entity) {
	if e.Kind == EntityTarget {
		l.variants[e.ID] = e.Variant
	}
}

func (l *eventLogListener) EntitiesMoved(ball, paddle Entity) {
	l.ball, l.paddle = ball, paddle
}

func (l *eventLogListener) TickCompleted(r TickReport) {
	l.tick = r.Tick
	bx, by := l.ball.Box.Center()
	px, _ := l.paddle.Box.Center()
	l.log.EmitSimple(EventTypeTick, l.session, r.Tick, TickPayload{
		DeltaTimeNs: r.DeltaNs,
		BallX:       bx,
		BallY:       by,
		PaddleX:     px,
	})

	if r.PaddleHit {
		l.log.EmitSimple(EventTypePaddleBounce, l.session, r.Tick, nil)
	}
	for i, id := range r.Destroyed {
		l.log.EmitSimple(EventTypeTargetDestroyed, l.session, r.Tick, TargetPayload{
			TargetID: id,
			Variant:  l.variants[id].String(),
			// Left count as it was right after this particular removal
			TargetsLeft: r.TargetsLeft + len(r.Destroyed) - 1 - i,
			Speed:       r.Speed,
		})
	}
	if r.FloorMiss {
		l.log.EmitSimple(EventTypeFloorMiss, l.session, r.Tick, MissPayload{Misses: r.Misses})
	}

	if r.State.Terminal() {
		l.log.EmitSimple(EventTypeSessionEnd, l.session, r.Tick, SessionPayload{
			State:       r.State.String(),
			Misses:      r.Misses,
			TargetsLeft: r.TargetsLeft,
		})
	}
}

func (l *eventLogListener) StateChanged(from, to GameState) {
	switch to {
	case StateActive:
		l.session++
		l.log.EmitSimple(EventTypeSessionStart, l.session, l.tick, SessionPayload{State: to.String()})
	case StateNew:
		l.tick = 0
	}
}
