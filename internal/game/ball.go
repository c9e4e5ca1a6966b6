package game

import "math"

// Ball is the only moving entity. Velocity is expressed in distance per
// nanosecond so that integrating a frame is a single multiply.
type Ball struct {
	X, Y   float64 // Center
	VX, VY float64

	radius float64
	boost  float64
	arena  Bounds
}

// NewBall places a ball at the center of the arena with the given velocity.
func NewBall(arena Bounds, radius, vx, vy, boost float64) *Ball {
	cx, cy := arena.Center()
	return &Ball{
		X:      cx,
		Y:      cy,
		VX:     vx,
		VY:     vy,
		radius: radius,
		boost:  boost,
		arena:  arena,
	}
}

// Read-only accessors use value receivers so copies returned by
// Session.Ball can call them directly.

// Radius returns the fixed ball radius.
func (b Ball) Radius() float64 { return b.radius }

// Speed returns the velocity magnitude in distance per nanosecond.
func (b Ball) Speed() float64 { return math.Hypot(b.VX, b.VY) }

// BoundingBox returns the square enclosing the ball.
func (b Ball) BoundingBox() Bounds {
	return b.boxAt(b.X, b.Y)
}

func (b Ball) boxAt(x, y float64) Bounds {
	return Bounds{
		MinX: x - b.radius,
		MinY: y - b.radius,
		MaxX: x + b.radius,
		MaxY: y + b.radius,
	}
}

// Predict returns the box the ball would occupy after deltaNs without moving it.
func (b Ball) Predict(deltaNs int64) Bounds {
	dt := float64(deltaNs)
	return b.boxAt(b.X+b.VX*dt, b.Y+b.VY*dt)
}

// Advance moves the ball by deltaNs, reflecting off any arena edge the
// predicted box would cross. Reflection is decided before integration so the
// ball turns around at the moment of contact instead of a frame late.
// It reports whether the predicted box crossed the floor.
func (b *Ball) Advance(deltaNs int64) bool {
	if deltaNs <= 0 {
		return false
	}

	peek := b.Predict(deltaNs)

	if peek.MinX < b.arena.MinX || peek.MaxX > b.arena.MaxX {
		b.FlipX()
	}
	if peek.MinY < b.arena.MinY || peek.MaxY > b.arena.MaxY {
		b.FlipY()
	}

	dt := float64(deltaNs)
	b.X += b.VX * dt
	b.Y += b.VY * dt

	return peek.MaxY > b.arena.MaxY
}

// FlipX inverts horizontal motion.
func (b *Ball) FlipX() { b.VX = -b.VX }

// FlipY inverts vertical motion.
func (b *Ball) FlipY() { b.VY = -b.VY }

// BoostSpeed scales both velocity components by the configured factor.
// There is no upper bound.
func (b *Ball) BoostSpeed() {
	b.VX *= b.boost
	b.VY *= b.boost
}
