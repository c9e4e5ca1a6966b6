// Package term plays the game inside a terminal. The arena is projected
// onto character cells below a one-line HUD.
package term

import (
	"context"
	"fmt"
	"image/color"
	"log"
	"time"

	"zutopia/internal/game"
	"zutopia/internal/render"

	"github.com/gdamore/tcell/v2"
)

const (
	ballRune   = '●'
	paddleRune = '▀'
	targetRune = '█'
	hudRows    = 1
)

// Terminal drives an engine from a tcell screen. The engine's own clock
// must not be started; Run calls Frame on every tick.
type Terminal struct {
	engine *game.Engine
	screen tcell.Screen
	tick   time.Duration

	arenaW, arenaH float64
}

// New prepares a terminal frontend. screen must already be initialized.
func New(engine *game.Engine, screen tcell.Screen, tickRate int) *Terminal {
	if tickRate <= 0 {
		tickRate = 60
	}
	cfg := engine.GameConfig()
	screen.EnableMouse()
	screen.HideCursor()
	return &Terminal{
		engine: engine,
		screen: screen,
		tick:   time.Second / time.Duration(tickRate),
		arenaW: cfg.ArenaWidth,
		arenaH: cfg.ArenaHeight,
	}
}

// Run polls input and advances the engine until the player quits or ctx ends
func (t *Terminal) Run(ctx context.Context) error {
	ticker := time.NewTicker(t.tick)
	defer ticker.Stop()

	events := make(chan tcell.Event, 100)
	done := make(chan struct{})
	defer close(done)
	go t.pollEvents(events, done)

	log.Printf("⌨️ Terminal frontend at %v per frame", t.tick)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok || !t.HandleEvent(ev) {
				return nil
			}
		case <-ticker.C:
			t.engine.Frame(t.engine.Now())
			t.Draw()
		}
	}
}

// pollEvents forwards screen events until the screen is finalized or Run
// has returned. PollEvent itself only unblocks on Fini.
func (t *Terminal) pollEvents(events chan<- tcell.Event, done <-chan struct{}) {
	defer close(events)
	for {
		ev := t.screen.PollEvent()
		if ev == nil {
			return
		}
		select {
		case events <- ev:
		case <-done:
			return
		}
	}
}

// HandleEvent applies one input event. It returns false when the player quits.
func (t *Terminal) HandleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch ev.Key() {
		case tcell.KeyEscape, tcell.KeyCtrlC:
			return false
		case tcell.KeyRune:
			switch ev.Rune() {
			case 'q', 'Q':
				return false
			case ' ':
				t.engine.RequestStart()
			}
		}

	case *tcell.EventMouse:
		x, y := t.toArena(ev.Position())
		t.engine.PointerMoved(x, y)
		if ev.Buttons()&tcell.Button1 != 0 {
			t.engine.RequestStart()
		}

	case *tcell.EventResize:
		t.screen.Sync()
	}
	return true
}

// toArena maps a cell to the arena point at its center
func (t *Terminal) toArena(col, row int) (float64, float64) {
	cols, rows := t.grid()
	x := (float64(col) + 0.5) * t.arenaW / float64(cols)
	y := (float64(row-hudRows) + 0.5) * t.arenaH / float64(rows)
	return x, y
}

// toCell maps an arena point to a cell, clamped to the arena area
func (t *Terminal) toCell(x, y float64) (int, int) {
	cols, rows := t.grid()
	col := clampInt(int(x*float64(cols)/t.arenaW), 0, cols-1)
	row := clampInt(int(y*float64(rows)/t.arenaH), 0, rows-1)
	return col, row + hudRows
}

// grid returns the cell dimensions available to the arena
func (t *Terminal) grid() (int, int) {
	w, h := t.screen.Size()
	return max(w, 1), max(h-hudRows, 1)
}

// Draw renders the latest snapshot
func (t *Terminal) Draw() {
	snap := t.engine.GetSnapshot()
	t.screen.Clear()
	if snap == nil {
		t.screen.Show()
		return
	}

	for _, tg := range snap.Targets {
		style := tcell.StyleDefault.Foreground(rgb(render.VariantColor(tg.Variant)))
		c0, r0 := t.toCell(tg.X, tg.Y)
		c1, r1 := t.toCell(tg.X+tg.Width-1e-9, tg.Y+tg.Height-1e-9)
		for r := r0; r <= r1; r++ {
			for c := c0; c <= c1; c++ {
				t.screen.SetContent(c, r, targetRune, nil, style)
			}
		}
	}

	p := snap.Paddle
	paddleStyle := tcell.StyleDefault.Foreground(rgb(render.ColorPaddle))
	c0, row := t.toCell(p.X-p.Width/2, p.Y)
	c1, _ := t.toCell(p.X+p.Width/2-1e-9, p.Y)
	for c := c0; c <= c1; c++ {
		t.screen.SetContent(c, row, paddleRune, nil, paddleStyle)
	}

	bc, br := t.toCell(snap.Ball.X, snap.Ball.Y)
	t.screen.SetContent(bc, br, ballRune, nil, tcell.StyleDefault.Foreground(rgb(render.ColorBall)))

	t.drawHUD(snap)
	if text, c, ok := render.Banner(snap); ok {
		t.drawBanner(snap, text, c)
	}
	t.screen.Show()
}

func (t *Terminal) drawHUD(snap *game.GameSnapshot) {
	style := tcell.StyleDefault.Foreground(rgb(render.ColorHUD)).Reverse(true)
	cols, _ := t.grid()
	for c := 0; c < cols; c++ {
		t.screen.SetContent(c, 0, ' ', nil, style)
	}
	t.printAt(1, 0, fmt.Sprintf("Misses %d/%d", snap.Misses, snap.MissLimit), style)
	targets := fmt.Sprintf("Targets %d/%d", snap.TargetsLeft, snap.TargetsTotal)
	t.printAt(cols-len(targets)-1, 0, targets, style)
}

func (t *Terminal) drawBanner(snap *game.GameSnapshot, text string, c color.RGBA) {
	cols, rows := t.grid()
	lines := []string{text}
	if text != render.BannerStart {
		lines = append(lines, render.BannerStart)
	}
	if snap.Wins+snap.Losses > 0 {
		lines = append(lines, fmt.Sprintf("Won %d  Lost %d", snap.Wins, snap.Losses))
	}

	row := hudRows + (rows-len(lines))/2
	for i, line := range lines {
		style := tcell.StyleDefault.Foreground(rgb(render.ColorHUD))
		if i == 0 {
			style = tcell.StyleDefault.Foreground(rgb(c)).Bold(true)
		}
		t.printAt((cols-len([]rune(line)))/2, row+i, line, style)
	}
}

func (t *Terminal) printAt(col, row int, s string, style tcell.Style) {
	for _, r := range s {
		t.screen.SetContent(col, row, r, nil, style)
		col++
	}
}

func rgb(c color.RGBA) tcell.Color {
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
