package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
)

// TestDefaultGameIsValid verifies the shipped defaults pass validation
func TestDefaultGameIsValid(t *testing.T) {
	if err := DefaultGame().Validate(); err != nil {
		t.Fatalf("default game config rejected: %v", err)
	}
}

// TestSpacingX verifies the classic 4-column layout spacing
func TestSpacingX(t *testing.T) {
	g := DefaultGame().Grid

	// 48 + (400 - 4*48 - 2*60) / 3 = 48 + 88/3 = 48 + 29
	if got := g.SpacingX(400); got != 77 {
		t.Errorf("Expected spacing 77, got %d", got)
	}

	g.Columns = 1
	if got := g.SpacingX(400); got != g.BlockWidth {
		t.Errorf("Single column spacing should equal block width, got %d", got)
	}
}

// TestValidateRejectsMalformed verifies every fail-fast branch
func TestValidateRejectsMalformed(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *GameConfig)
	}{
		{"zero radius", func(c *GameConfig) { c.BallRadius = 0 }},
		{"negative radius", func(c *GameConfig) { c.BallRadius = -3 }},
		{"ball wider than arena", func(c *GameConfig) { c.BallRadius = 250 }},
		{"zero arena", func(c *GameConfig) { c.ArenaWidth = 0 }},
		{"zero vx", func(c *GameConfig) { c.InitialVX = 0 }},
		{"zero vy", func(c *GameConfig) { c.InitialVY = 0 }},
		{"boost not above one", func(c *GameConfig) { c.SpeedBoost = 1 }},
		{"negative paddle", func(c *GameConfig) { c.PaddleWidth = -1 }},
		{"paddle wider than arena", func(c *GameConfig) { c.PaddleWidth = 500 }},
		{"no misses allowed", func(c *GameConfig) { c.MissLimit = 0 }},
		{"unknown policy", func(c *GameConfig) { c.TargetCollision = "sideways" }},
		{"empty grid", func(c *GameConfig) { c.Grid.Rows = 0 }},
		{"zero block", func(c *GameConfig) { c.Grid.BlockHeight = 0 }},
		{"grid too wide", func(c *GameConfig) { c.Grid.Columns = 9 }},
		{"grid too tall", func(c *GameConfig) { c.Grid.Rows = 20 }},
		{"NaN radius", func(c *GameConfig) { c.BallRadius = math.NaN() }},
		{"infinite radius", func(c *GameConfig) { c.BallRadius = math.Inf(1) }},
		{"NaN arena width", func(c *GameConfig) { c.ArenaWidth = math.NaN() }},
		{"NaN arena height", func(c *GameConfig) { c.ArenaHeight = math.NaN() }},
		{"infinite arena", func(c *GameConfig) { c.ArenaWidth = math.Inf(1) }},
		{"NaN vx", func(c *GameConfig) { c.InitialVX = math.NaN() }},
		{"infinite vy", func(c *GameConfig) { c.InitialVY = math.Inf(-1) }},
		{"NaN boost", func(c *GameConfig) { c.SpeedBoost = math.NaN() }},
		{"infinite boost", func(c *GameConfig) { c.SpeedBoost = math.Inf(1) }},
		{"NaN paddle width", func(c *GameConfig) { c.PaddleWidth = math.NaN() }},
		{"NaN paddle height", func(c *GameConfig) { c.PaddleHeight = math.NaN() }},
		{"infinite paddle", func(c *GameConfig) { c.PaddleWidth = math.Inf(1) }},
		{"NaN paddle start", func(c *GameConfig) { c.PaddleStartY = math.NaN() }},
		{"infinite paddle floor", func(c *GameConfig) { c.PaddleMinY = math.Inf(-1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultGame()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Expected validation error, got nil")
			}
			if !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("Expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

// TestGameFromEnv verifies environment overrides
func TestGameFromEnv(t *testing.T) {
	t.Setenv("ARENA_HEIGHT", "900")
	t.Setenv("MISS_LIMIT", "3")
	t.Setenv("COLLISION_POLICY", "CURRENT")
	t.Setenv("SPEED_BOOST", "not-a-number")

	cfg := GameFromEnv()

	if cfg.ArenaHeight != 900 {
		t.Errorf("Expected height 900, got %g", cfg.ArenaHeight)
	}
	if cfg.PaddleStartY != 800 || cfg.PaddleMinY != 300 {
		t.Errorf("Paddle defaults should follow arena height, got start=%g min=%g", cfg.PaddleStartY, cfg.PaddleMinY)
	}
	if cfg.MissLimit != 3 {
		t.Errorf("Expected miss limit 3, got %d", cfg.MissLimit)
	}
	if cfg.TargetCollision != CollisionCurrent {
		t.Errorf("Expected current policy, got %q", cfg.TargetCollision)
	}
	if cfg.SpeedBoost != 1.1 {
		t.Errorf("Malformed env value should keep default, got %g", cfg.SpeedBoost)
	}
}

// TestEngineFromEnv verifies engine overrides including an explicitly empty log path
func TestEngineFromEnv(t *testing.T) {
	t.Setenv("TICK_RATE", "120")
	t.Setenv("AUTOPILOT", "true")
	t.Setenv("EVENT_LOG_PATH", "")

	cfg := EngineFromEnv()

	if cfg.TickRate != 120 {
		t.Errorf("Expected 120 TPS, got %d", cfg.TickRate)
	}
	if !cfg.Autopilot {
		t.Error("Expected autopilot enabled")
	}
	if cfg.EventLogPath != "" {
		t.Errorf("Expected event log disabled, got %q", cfg.EventLogPath)
	}
}

// TestLoad verifies all sections are populated
func TestLoad(t *testing.T) {
	cfg := Load()
	if cfg.Server.Port != 3000 {
		t.Errorf("Expected port 3000, got %d", cfg.Server.Port)
	}
	if cfg.Audio.SampleRate != 44100 {
		t.Errorf("Expected 44100 Hz, got %d", cfg.Audio.SampleRate)
	}
	if cfg.Render.Scale != 1 {
		t.Errorf("Expected scale 1, got %g", cfg.Render.Scale)
	}
}

func TestServerFromEnv(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("ALLOWED_ORIGINS", "https://zutopia.example, http://localhost:*,")
	t.Setenv("DEBUG_ENABLED", "false")

	cfg := ServerFromEnv()
	if cfg.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.Port)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[0] != "https://zutopia.example" {
		t.Errorf("Unexpected origins %q", cfg.AllowedOrigins)
	}
	if cfg.DebugEnabled {
		t.Error("Expected debug server disabled")
	}
	if cfg.BroadcastHz != 20 {
		t.Errorf("Expected default 20 Hz, got %d", cfg.BroadcastHz)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("ZUTOPIA_TEST_DOTENV=loaded\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Unsetenv("ZUTOPIA_TEST_DOTENV") })

	got, ok := LoadDotEnv(filepath.Join(dir, "missing.env"), path)
	if !ok || got != path {
		t.Fatalf("LoadDotEnv() = %q, %v; want %q, true", got, ok, path)
	}
	if v := os.Getenv("ZUTOPIA_TEST_DOTENV"); v != "loaded" {
		t.Errorf("Expected variable from .env, got %q", v)
	}

	if _, ok := LoadDotEnv(filepath.Join(dir, "nope")); ok {
		t.Error("Missing files should report false")
	}
}
