package game

import "testing"

func TestPaddleMoveToClamps(t *testing.T) {
	arena := NewBounds(0, 0, 400, 600)

	tests := []struct {
		name   string
		px, py float64
		wantX  float64
		wantY  float64
	}{
		{"inside", 150, 450, 150, 450},
		{"past left edge", -50, 450, 50, 450},
		{"past right edge", 1000, 450, 350, 450},
		{"below floor", 200, 900, 200, 597.5},
		{"above minimum height", 200, 10, 200, 200},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPaddle(arena, 100, 5, 500, 200)
			p.MoveTo(tt.px, tt.py)
			if p.X != tt.wantX || p.Y != tt.wantY {
				t.Errorf("MoveTo(%g, %g) = (%g, %g), want (%g, %g)", tt.px, tt.py, p.X, p.Y, tt.wantX, tt.wantY)
			}
			if !p.BoundingBox().Within(arena) {
				t.Errorf("Paddle box %v left the arena", p.BoundingBox())
			}
		})
	}
}

func TestNewPaddleStartsCentered(t *testing.T) {
	p := NewPaddle(NewBounds(0, 0, 400, 600), 100, 5, 500, 200)
	if p.X != 200 || p.Y != 500 {
		t.Errorf("Expected paddle at (200, 500), got (%g, %g)", p.X, p.Y)
	}

	box := p.BoundingBox()
	if box.MinX != 150 || box.MaxX != 250 || box.MinY != 497.5 || box.MaxY != 502.5 {
		t.Errorf("Unexpected paddle box %v", box)
	}
}
