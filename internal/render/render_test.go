package render

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"zutopia/internal/config"
	"zutopia/internal/game"
)

func testSnapshot() *game.GameSnapshot {
	return &game.GameSnapshot{
		State:       "ACTIVE",
		Ticking:     true,
		ArenaWidth:  400,
		ArenaHeight: 600,
		Ball:        game.BallSnapshot{X: 200, Y: 300, Radius: 10},
		Paddle:      game.PaddleSnapshot{X: 200, Y: 500, Width: 80, Height: 16},
		Targets: []game.TargetSnapshot{
			{ID: 0, X: 60, Y: 30, Width: 48, Height: 43, Variant: "duck"},
			{ID: 5, X: 137, Y: 90, Width: 48, Height: 43, Variant: "horse"},
		},
		TargetsTotal: 16,
		TargetsLeft:  2,
		Misses:       1,
		MissLimit:    5,
	}
}

func mustRenderer(t *testing.T, cfg config.RenderConfig) *Renderer {
	t.Helper()
	r, err := New(cfg)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return r
}

func pixel(img image.Image, x, y float64) color.RGBA {
	return color.RGBAModel.Convert(img.At(int(x), int(y))).(color.RGBA)
}

func TestNewRejectsBadScale(t *testing.T) {
	for _, scale := range []float64{0, -1} {
		if _, err := New(config.RenderConfig{Scale: scale}); !errors.Is(err, config.ErrInvalidConfig) {
			t.Errorf("Scale %v: expected ErrInvalidConfig, got %v", scale, err)
		}
	}
}

func TestMissingFontFallsBack(t *testing.T) {
	r := mustRenderer(t, config.RenderConfig{Scale: 1, FontPath: "/nonexistent/font.ttf"})
	if r.fontSmall == nil || r.fontLarge == nil {
		t.Fatal("Expected bitmap fallback faces")
	}
	snap := testSnapshot()
	snap.Ticking = false
	r.Render(snap) // must not panic without a TrueType face
}

func TestRenderDrawsEntities(t *testing.T) {
	r := mustRenderer(t, config.DefaultRender())
	snap := testSnapshot()
	img := r.Render(snap)

	if b := img.Bounds(); b.Dx() != 400 || b.Dy() != 600 {
		t.Fatalf("Expected 400x600 frame, got %v", b)
	}

	tests := []struct {
		name string
		x, y float64
		want color.RGBA
	}{
		{"ball", snap.Ball.X, snap.Ball.Y, ColorBall},
		{"paddle", snap.Paddle.X, snap.Paddle.Y, ColorPaddle},
		{"duck", 60 + 24, 30 + 21, VariantColor("duck")},
		{"horse", 137 + 24, 90 + 21, VariantColor("horse")},
		{"empty", 300, 400, ColorBackground},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pixel(img, tt.x, tt.y); got != tt.want {
				t.Errorf("Pixel at (%v, %v) = %v, want %v", tt.x, tt.y, got, tt.want)
			}
		})
	}
}

func TestRenderScalesOutput(t *testing.T) {
	r := mustRenderer(t, config.RenderConfig{Scale: 2})
	snap := testSnapshot()
	img := r.Render(snap)

	if b := img.Bounds(); b.Dx() != 800 || b.Dy() != 1200 {
		t.Fatalf("Expected 800x1200 frame, got %v", b)
	}
	if got := pixel(img, snap.Paddle.X*2, snap.Paddle.Y*2); got != ColorPaddle {
		t.Errorf("Scaled paddle pixel = %v", got)
	}
}

func TestBanner(t *testing.T) {
	tests := []struct {
		name    string
		ticking bool
		outcome string
		want    string
		shown   bool
	}{
		{"playing", true, "", "", false},
		{"playing after loss", true, "LOST", "", false},
		{"first session", false, "", BannerStart, true},
		{"after loss", false, "LOST", BannerLost, true},
		{"after win", false, "WON", BannerWon, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := testSnapshot()
			snap.Ticking = tt.ticking
			snap.Outcome = tt.outcome

			text, _, shown := Banner(snap)
			if shown != tt.shown || text != tt.want {
				t.Errorf("Banner() = %q, %v; want %q, %v", text, shown, tt.want, tt.shown)
			}
		})
	}
}

func TestBannerShadesArena(t *testing.T) {
	r := mustRenderer(t, config.DefaultRender())
	snap := testSnapshot()
	snap.Ticking = false

	// The ball sits in the banner band and gets darkened by the overlay
	if got := pixel(r.Render(snap), 20, 300); got == ColorBackground {
		t.Error("Expected the banner band to shade the background")
	}
}

func TestEncodePNG(t *testing.T) {
	r := mustRenderer(t, config.DefaultRender())

	var buf bytes.Buffer
	if err := r.EncodePNG(&buf, testSnapshot()); err != nil {
		t.Fatalf("EncodePNG failed: %v", err)
	}

	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("Output is not a PNG: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 400 || b.Dy() != 600 {
		t.Errorf("Decoded frame is %v", b)
	}
}

func TestVariantColorFallback(t *testing.T) {
	if VariantColor("unicorn") != variantFallback {
		t.Error("Unknown variants should use the fallback color")
	}
	if VariantColor("duck") == VariantColor("goat") {
		t.Error("Variants should be distinguishable")
	}
}
