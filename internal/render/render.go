package render

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"io"
	"log"
	"os"

	"zutopia/internal/config"
	"zutopia/internal/game"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
)

// Banner texts shown over the arena
const (
	BannerStart = "Click mouse to start"
	BannerLost  = "Game Over"
	BannerWon   = "You won!"
)

// Palette
var (
	ColorBackground = color.RGBA{12, 12, 28, 255}
	ColorStar       = color.RGBA{255, 255, 255, 90}
	ColorBall       = color.RGBA{255, 214, 10, 255}
	ColorPaddle     = color.RGBA{0, 212, 255, 255}
	ColorHUD        = color.RGBA{220, 225, 240, 255}
	ColorShade      = color.RGBA{0, 0, 0, 160}
	ColorLost       = color.RGBA{255, 60, 60, 255}
	ColorWon        = color.RGBA{60, 230, 120, 255}

	variantColors = map[string]color.RGBA{
		"duck":  {250, 200, 40, 255},
		"goat":  {200, 200, 210, 255},
		"horse": {160, 100, 50, 255},
	}
	variantFallback = color.RGBA{180, 80, 200, 255}
)

// Renderer draws snapshots into images. Fonts are loaded once in New.
type Renderer struct {
	scale     float64
	fontSmall font.Face
	fontLarge font.Face
}

// New builds a renderer. Without a usable FontPath the bitmap face is used
// for all text.
func New(cfg config.RenderConfig) (*Renderer, error) {
	if cfg.Scale <= 0 {
		return nil, fmt.Errorf("%w: render scale must be positive, got %v", config.ErrInvalidConfig, cfg.Scale)
	}

	r := &Renderer{
		scale:     cfg.Scale,
		fontSmall: basicfont.Face7x13,
		fontLarge: basicfont.Face7x13,
	}
	if cfg.FontPath != "" {
		r.loadFonts(cfg.FontPath)
	}
	return r, nil
}

// loadFonts swaps in TrueType faces, keeping the bitmap face on failure
func (r *Renderer) loadFonts(path string) {
	fontData, err := os.ReadFile(path)
	if err != nil {
		log.Printf("⚠️ Failed to read font file: %v", err)
		return
	}

	parsedFont, err := opentype.Parse(fontData)
	if err != nil {
		log.Printf("⚠️ Failed to parse font: %v", err)
		return
	}

	small, err := opentype.NewFace(parsedFont, &opentype.FaceOptions{
		Size:    14 * r.scale,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		log.Printf("⚠️ Failed to create small font face: %v", err)
		return
	}
	large, err := opentype.NewFace(parsedFont, &opentype.FaceOptions{
		Size:    32 * r.scale,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		log.Printf("⚠️ Failed to create large font face: %v", err)
		return
	}

	r.fontSmall, r.fontLarge = small, large
	log.Printf("🔤 Loaded font %s", path)
}

// Size returns the output dimensions in pixels for an arena
func (r *Renderer) Size(arenaWidth, arenaHeight float64) (int, int) {
	return int(arenaWidth*r.scale + 0.5), int(arenaHeight*r.scale + 0.5)
}

// Render draws a complete frame for snap
func (r *Renderer) Render(snap *game.GameSnapshot) image.Image {
	w, h := r.Size(snap.ArenaWidth, snap.ArenaHeight)
	dc := gg.NewContext(w, h)

	r.drawBackground(dc, w, h)

	dc.Push()
	dc.Scale(r.scale, r.scale)
	r.drawTargets(dc, snap.Targets)
	r.drawPaddle(dc, snap.Paddle)
	r.drawBall(dc, snap.Ball)
	dc.Pop()

	r.drawHUD(dc, snap, w)
	if text, c, ok := Banner(snap); ok {
		r.drawBanner(dc, text, c, snap, w, h)
	}

	return dc.Image()
}

// EncodePNG renders snap and writes it as PNG
func (r *Renderer) EncodePNG(w io.Writer, snap *game.GameSnapshot) error {
	if err := png.Encode(w, r.Render(snap)); err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	return nil
}

// Banner returns the overlay text for snap. Terminal outcomes are shown
// together with the start prompt until the next session begins ticking.
func Banner(snap *game.GameSnapshot) (string, color.RGBA, bool) {
	if snap.Ticking {
		return "", color.RGBA{}, false
	}
	switch snap.Outcome {
	case game.StateLost.String():
		return BannerLost, ColorLost, true
	case game.StateWon.String():
		return BannerWon, ColorWon, true
	default:
		return BannerStart, ColorHUD, true
	}
}

// VariantColor returns the fill color for a target variant
func VariantColor(variant string) color.RGBA {
	if c, ok := variantColors[variant]; ok {
		return c
	}
	return variantFallback
}

func (r *Renderer) drawBackground(dc *gg.Context, w, h int) {
	dc.SetColor(ColorBackground)
	dc.DrawRectangle(0, 0, float64(w), float64(h))
	dc.Fill()

	dc.SetColor(ColorStar)
	for i := 0; i < 30; i++ {
		x := float64((i * 67) % w)
		y := float64((i * 47) % h)
		dc.DrawCircle(x, y, 1)
		dc.Fill()
	}
}

func (r *Renderer) drawTargets(dc *gg.Context, targets []game.TargetSnapshot) {
	for _, t := range targets {
		dc.SetColor(VariantColor(t.Variant))
		dc.DrawRoundedRectangle(t.X, t.Y, t.Width, t.Height, 4)
		dc.Fill()

		dc.SetColor(color.RGBA{0, 0, 0, 90})
		dc.SetLineWidth(1)
		dc.DrawRoundedRectangle(t.X, t.Y, t.Width, t.Height, 4)
		dc.Stroke()
	}
}

func (r *Renderer) drawPaddle(dc *gg.Context, p game.PaddleSnapshot) {
	dc.SetColor(ColorPaddle)
	dc.DrawRoundedRectangle(p.X-p.Width/2, p.Y-p.Height/2, p.Width, p.Height, p.Height/3)
	dc.Fill()
}

func (r *Renderer) drawBall(dc *gg.Context, b game.BallSnapshot) {
	dc.SetColor(ColorBall)
	dc.DrawCircle(b.X, b.Y, b.Radius)
	dc.Fill()
}

// drawHUD runs in pixel space so bitmap text stays crisp at any scale
func (r *Renderer) drawHUD(dc *gg.Context, snap *game.GameSnapshot, w int) {
	margin := 8 * r.scale
	dc.SetFontFace(r.fontSmall)
	dc.SetColor(ColorHUD)

	dc.DrawStringAnchored(fmt.Sprintf("Misses %d/%d", snap.Misses, snap.MissLimit), margin, margin, 0, 1)
	dc.DrawStringAnchored(fmt.Sprintf("Targets %d/%d", snap.TargetsLeft, snap.TargetsTotal), float64(w)-margin, margin, 1, 1)
}

func (r *Renderer) drawBanner(dc *gg.Context, text string, c color.RGBA, snap *game.GameSnapshot, w, h int) {
	cx, cy := float64(w)/2, float64(h)/2

	dc.SetColor(ColorShade)
	dc.DrawRectangle(0, cy-48*r.scale, float64(w), 96*r.scale)
	dc.Fill()

	dc.SetFontFace(r.fontLarge)
	dc.SetColor(c)
	dc.DrawStringAnchored(text, cx, cy-12*r.scale, 0.5, 0.5)

	// Outcomes also tell the player how to continue
	if text != BannerStart {
		dc.SetFontFace(r.fontSmall)
		dc.SetColor(ColorHUD)
		dc.DrawStringAnchored(BannerStart, cx, cy+20*r.scale, 0.5, 0.5)
	}

	if snap.Wins+snap.Losses > 0 {
		dc.SetFontFace(r.fontSmall)
		dc.SetColor(ColorHUD)
		dc.DrawStringAnchored(fmt.Sprintf("Won %d  Lost %d", snap.Wins, snap.Losses), cx, cy+38*r.scale, 0.5, 0.5)
	}
}
