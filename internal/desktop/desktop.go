// Package desktop runs the game in a native window.
package desktop

import (
	"fmt"
	"log"

	"zutopia/internal/audio"
	"zutopia/internal/config"
	"zutopia/internal/game"
	"zutopia/internal/render"

	"github.com/hajimehoshi/ebiten/v2"
	ebaudio "github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/hajimehoshi/ebiten/v2/vector"
)

// Debug font cell size used for centering text
const (
	glyphWidth  = 6
	glyphHeight = 16
)

// Input is one frame of user input in arena coordinates
type Input struct {
	X, Y    int
	Clicked bool
	Quit    bool
}

// CueSink plays sound cues
type CueSink interface {
	Play(c audio.Cue)
}

// Game implements ebiten.Game on top of a game.Engine. The engine's own
// clock must not be started; Update drives Frame instead.
type Game struct {
	engine *game.Engine
	cues   *audio.CueQueue
	sink   CueSink // nil when muted

	width, height int
	snap          *game.GameSnapshot
}

// New wires a frontend to engine. sink may be nil.
func New(engine *game.Engine, sink CueSink) *Game {
	cfg := engine.GameConfig()
	g := &Game{
		engine: engine,
		cues:   audio.NewCueQueue(),
		sink:   sink,
		width:  int(cfg.ArenaWidth),
		height: int(cfg.ArenaHeight),
		snap:   engine.GetSnapshot(),
	}
	engine.AddListener(g.cues)
	return g
}

// Update reads input and advances the simulation by one frame
func (g *Game) Update() error {
	x, y := ebiten.CursorPosition()
	return g.step(Input{
		X:       x,
		Y:       y,
		Clicked: inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft),
		Quit:    inpututil.IsKeyJustPressed(ebiten.KeyEscape),
	}, g.engine.Now())
}

// step applies in and runs the frame at now
func (g *Game) step(in Input, now int64) error {
	if in.Quit {
		return ebiten.Termination
	}
	if in.Clicked && g.engine.RequestStart() {
		log.Println("🖱️ Start clicked")
	}
	g.engine.PointerMoved(float64(in.X), float64(in.Y))
	g.engine.Frame(now)
	g.snap = g.engine.GetSnapshot()

	for _, c := range g.cues.Drain() {
		if g.sink != nil {
			g.sink.Play(c)
		}
	}
	return nil
}

// Snapshot returns the snapshot Draw will use next
func (g *Game) Snapshot() *game.GameSnapshot {
	return g.snap
}

// Draw renders the latest snapshot
func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(render.ColorBackground)
	snap := g.snap
	if snap == nil {
		return
	}

	for _, t := range snap.Targets {
		vector.DrawFilledRect(screen, float32(t.X), float32(t.Y), float32(t.Width), float32(t.Height),
			render.VariantColor(t.Variant), false)
	}

	p := snap.Paddle
	vector.DrawFilledRect(screen, float32(p.X-p.Width/2), float32(p.Y-p.Height/2), float32(p.Width), float32(p.Height),
		render.ColorPaddle, false)

	b := snap.Ball
	vector.DrawFilledCircle(screen, float32(b.X), float32(b.Y), float32(b.Radius), render.ColorBall, true)

	misses := fmt.Sprintf("Misses %d/%d", snap.Misses, snap.MissLimit)
	targets := fmt.Sprintf("Targets %d/%d", snap.TargetsLeft, snap.TargetsTotal)
	ebitenutil.DebugPrintAt(screen, misses, 8, 4)
	ebitenutil.DebugPrintAt(screen, targets, g.width-8-len(targets)*glyphWidth, 4)

	if text, _, ok := render.Banner(snap); ok {
		g.drawBanner(screen, text, snap)
	}
}

func (g *Game) drawBanner(screen *ebiten.Image, text string, snap *game.GameSnapshot) {
	cy := g.height / 2
	vector.DrawFilledRect(screen, 0, float32(cy-48), float32(g.width), 96, render.ColorShade, false)

	lines := []string{text}
	if text != render.BannerStart {
		lines = append(lines, render.BannerStart)
	}
	if snap.Wins+snap.Losses > 0 {
		lines = append(lines, fmt.Sprintf("Won %d  Lost %d", snap.Wins, snap.Losses))
	}

	y := cy - len(lines)*glyphHeight/2
	for _, line := range lines {
		ebitenutil.DebugPrintAt(screen, line, (g.width-len(line)*glyphWidth)/2, y)
		y += glyphHeight
	}
}

// Layout keeps the logical screen equal to the arena so cursor positions
// are arena coordinates
func (g *Game) Layout(_, _ int) (int, int) {
	return g.width, g.height
}

// =============================================================================
// AUDIO
// =============================================================================

// Speaker plays cues from a Bank through the ebiten audio context
type Speaker struct {
	bank    *audio.Bank
	ctx     *ebaudio.Context
	players []*ebaudio.Player
}

// NewSpeaker opens the audio device. Only one may exist per process.
func NewSpeaker(bank *audio.Bank) *Speaker {
	return &Speaker{
		bank: bank,
		ctx:  ebaudio.NewContext(int(bank.Format().SampleRate)),
	}
}

// Play starts c and forgets players that have finished
func (s *Speaker) Play(c audio.Cue) {
	live := s.players[:0]
	for _, p := range s.players {
		if p.IsPlaying() {
			live = append(live, p)
		} else {
			p.Close()
		}
	}
	s.players = live

	pcm, err := s.bank.PCM(c)
	if err != nil {
		log.Printf("⚠️ No sound for %s: %v", c, err)
		return
	}
	p := s.ctx.NewPlayerFromBytes(pcm)
	p.Play()
	s.players = append(s.players, p)
}

// =============================================================================
// ENTRY POINT
// =============================================================================

// Run opens the window and blocks until it is closed
func Run(engine *game.Engine, bank *audio.Bank, renderCfg config.RenderConfig, tickRate int) error {
	var sink CueSink
	if bank != nil && bank.Enabled() {
		sink = NewSpeaker(bank)
	}
	g := New(engine, sink)

	ebiten.SetWindowTitle("Zutopia")
	ebiten.SetWindowSize(int(float64(g.width)*renderCfg.Scale), int(float64(g.height)*renderCfg.Scale))
	ebiten.SetTPS(tickRate)

	log.Printf("🪟 Window %dx%d at %d TPS", g.width, g.height, tickRate)
	if err := ebiten.RunGame(g); err != nil {
		return fmt.Errorf("run window: %w", err)
	}
	return nil
}
