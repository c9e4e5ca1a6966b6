package game

// Bounds is an axis-aligned bounding box in arena coordinates
// (origin top-left, +x right, +y down). MinX <= MaxX and MinY <= MaxY.
type Bounds struct {
	MinX, MinY float64
	MaxX, MaxY float64
}

// NewBounds builds a box from its top-left corner and extent.
func NewBounds(x, y, w, h float64) Bounds {
	return Bounds{MinX: x, MinY: y, MaxX: x + w, MaxY: y + h}
}

// Width returns the horizontal extent.
func (b Bounds) Width() float64 { return b.MaxX - b.MinX }

// Height returns the vertical extent.
func (b Bounds) Height() float64 { return b.MaxY - b.MinY }

// Center returns the midpoint of the box.
func (b Bounds) Center() (float64, float64) {
	return (b.MinX + b.MaxX) / 2, (b.MinY + b.MaxY) / 2
}

// Intersects reports whether two boxes overlap with positive area.
// Boxes that only share an edge do not intersect.
func (b Bounds) Intersects(o Bounds) bool {
	return b.MinX < o.MaxX && b.MaxX > o.MinX &&
		b.MinY < o.MaxY && b.MaxY > o.MinY
}

// Within reports whether b lies entirely inside o (edges included).
func (b Bounds) Within(o Bounds) bool {
	return b.MinX >= o.MinX && b.MaxX <= o.MaxX &&
		b.MinY >= o.MinY && b.MaxY <= o.MaxY
}

// Collidable is anything that occupies an axis-aligned box in the arena.
type Collidable interface {
	BoundingBox() Bounds
}

// Collides reports whether two collidables overlap.
func Collides(a, b Collidable) bool {
	return a.BoundingBox().Intersects(b.BoundingBox())
}

// CollidesWith tests a collidable against a raw box, typically a predicted one.
func CollidesWith(c Collidable, box Bounds) bool {
	return c.BoundingBox().Intersects(box)
}
