package game

import "math"

// Paddle is a fixed-size rectangle that follows the pointer.
// It has no velocity of its own.
type Paddle struct {
	X, Y          float64 // Center
	Width, Height float64

	minY  float64 // Highest allowed center y
	arena Bounds
}

// NewPaddle creates a paddle centered horizontally at startY.
func NewPaddle(arena Bounds, width, height, startY, minY float64) *Paddle {
	cx, _ := arena.Center()
	p := &Paddle{
		Width:  width,
		Height: height,
		minY:   minY,
		arena:  arena,
	}
	p.MoveTo(cx, startY)
	return p
}

// BoundingBox returns the paddle rectangle.
func (p Paddle) BoundingBox() Bounds {
	return NewBounds(p.X-p.Width/2, p.Y-p.Height/2, p.Width, p.Height)
}

// MoveTo centers the paddle on the pointer. The rectangle is kept fully
// inside the arena and its center never rises above the configured minimum.
func (p *Paddle) MoveTo(px, py float64) {
	halfW, halfH := p.Width/2, p.Height/2

	p.X = clamp(px, p.arena.MinX+halfW, p.arena.MaxX-halfW)

	top := math.Max(p.minY, p.arena.MinY+halfH)
	p.Y = clamp(py, top, p.arena.MaxY-halfH)
}

func clamp(v, lo, hi float64) float64 {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
