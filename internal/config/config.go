// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for arena geometry, engine timing,
// server and presentation settings.
//
// IMPORTANT: When changing values, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// =============================================================================
// GAME CONFIGURATION
// =============================================================================

// CollisionPolicy selects which ball box target collisions are tested against.
type CollisionPolicy string

const (
	// CollisionLookahead tests targets against the predicted box, like the paddle.
	// A target whose edge merely touches the ball's path is destroyed one tick
	// early under this policy; CollisionCurrent leaves it standing.
	CollisionLookahead CollisionPolicy = "lookahead"
	// CollisionCurrent tests targets against the box the ball occupies now.
	CollisionCurrent CollisionPolicy = "current"
)

// GridConfig describes the target grid layout.
type GridConfig struct {
	Rows        int `json:"rows"`     // Targets per column (y direction)
	Columns     int `json:"columns"`  // Targets per row (x direction)
	PaddingX    int `json:"paddingX"` // Left and right edge padding
	PaddingY    int `json:"paddingY"` // Top padding
	BlockWidth  int `json:"blockWidth"`
	BlockHeight int `json:"blockHeight"`
	SpacingY    int `json:"spacingY"` // Distance between successive rows
}

// SpacingX is derived from the arena width so the grid is horizontally
// balanced. Uses integer division, like the classic layout.
func (g GridConfig) SpacingX(arenaWidth int) int {
	if g.Columns < 2 {
		return g.BlockWidth
	}
	free := arenaWidth - g.Columns*g.BlockWidth - 2*g.PaddingX
	return g.BlockWidth + free/(g.Columns-1)
}

// GameConfig holds every constant the simulation needs.
// Velocities are in distance per nanosecond.
type GameConfig struct {
	ArenaWidth  float64 `json:"arenaWidth"`
	ArenaHeight float64 `json:"arenaHeight"`

	BallRadius float64 `json:"ballRadius"`
	InitialVX  float64 `json:"initialVX"`
	InitialVY  float64 `json:"initialVY"`
	SpeedBoost float64 `json:"speedBoost"` // Velocity multiplier applied on every target hit

	PaddleWidth  float64 `json:"paddleWidth"`
	PaddleHeight float64 `json:"paddleHeight"`
	PaddleStartY float64 `json:"paddleStartY"` // Initial paddle center y
	PaddleMinY   float64 `json:"paddleMinY"`   // Highest allowed paddle center y

	MissLimit int `json:"missLimit"` // Floor misses before the session is lost

	Grid            GridConfig      `json:"grid"`
	TargetCollision CollisionPolicy `json:"targetCollision"`
}

// DefaultGame returns the classic Zutopia layout.
func DefaultGame() GameConfig {
	return GameConfig{
		ArenaWidth:  400,
		ArenaHeight: 600,

		BallRadius: 8,
		InitialVX:  1e-7,
		InitialVY:  1e-7,
		SpeedBoost: 1.1,

		PaddleWidth:  100,
		PaddleHeight: 5,
		PaddleStartY: 500, // 100 above the floor
		PaddleMinY:   200, // one third of the arena

		MissLimit: 5,

		Grid: GridConfig{
			Rows:        4,
			Columns:     4,
			PaddingX:    60,
			PaddingY:    30,
			BlockWidth:  48,
			BlockHeight: 43,
			SpacingY:    60,
		},
		TargetCollision: CollisionLookahead,
	}
}

// GameFromEnv returns game configuration with environment variable overrides.
// Arena-relative paddle defaults follow the arena size when it is overridden.
func GameFromEnv() GameConfig {
	cfg := DefaultGame()

	if w := getEnvFloat("ARENA_WIDTH", 0); w > 0 {
		cfg.ArenaWidth = w
	}
	if h := getEnvFloat("ARENA_HEIGHT", 0); h > 0 {
		cfg.ArenaHeight = h
		cfg.PaddleStartY = h - 100
		cfg.PaddleMinY = h / 3
	}
	if r := getEnvFloat("BALL_RADIUS", 0); r > 0 {
		cfg.BallRadius = r
	}
	if b := getEnvFloat("SPEED_BOOST", 0); b > 0 {
		cfg.SpeedBoost = b
	}
	if m := getEnvInt("MISS_LIMIT", 0); m > 0 {
		cfg.MissLimit = m
	}
	if p := os.Getenv("COLLISION_POLICY"); p != "" {
		cfg.TargetCollision = CollisionPolicy(strings.ToLower(p))
	}

	return cfg
}

// Validate rejects configurations that would produce degenerate geometry.
// Every float must be finite; NaN fails each comparison below.
func (c GameConfig) Validate() error {
	switch {
	case !positive(c.ArenaWidth) || !positive(c.ArenaHeight):
		return fmt.Errorf("%w: arena must be positive and finite, got %gx%g", ErrInvalidConfig, c.ArenaWidth, c.ArenaHeight)
	case !positive(c.BallRadius):
		return fmt.Errorf("%w: ball radius must be positive, got %g", ErrInvalidConfig, c.BallRadius)
	case !(2*c.BallRadius < c.ArenaWidth) || !(2*c.BallRadius < c.ArenaHeight):
		return fmt.Errorf("%w: ball of radius %g does not fit the arena", ErrInvalidConfig, c.BallRadius)
	case !finite(c.InitialVX) || !finite(c.InitialVY) || c.InitialVX == 0 || c.InitialVY == 0:
		return fmt.Errorf("%w: initial velocity components must be finite and non-zero, got (%g, %g)", ErrInvalidConfig, c.InitialVX, c.InitialVY)
	case !(c.SpeedBoost > 1) || math.IsInf(c.SpeedBoost, 1):
		return fmt.Errorf("%w: speed boost must be finite and greater than 1, got %g", ErrInvalidConfig, c.SpeedBoost)
	case !positive(c.PaddleWidth) || !positive(c.PaddleHeight):
		return fmt.Errorf("%w: paddle size must be positive, got %gx%g", ErrInvalidConfig, c.PaddleWidth, c.PaddleHeight)
	case c.PaddleWidth > c.ArenaWidth || c.PaddleHeight > c.ArenaHeight:
		return fmt.Errorf("%w: paddle larger than arena", ErrInvalidConfig)
	case !finite(c.PaddleStartY) || !finite(c.PaddleMinY):
		return fmt.Errorf("%w: paddle positions must be finite, got start %g min %g", ErrInvalidConfig, c.PaddleStartY, c.PaddleMinY)
	case c.MissLimit < 1:
		return fmt.Errorf("%w: miss limit must be at least 1, got %d", ErrInvalidConfig, c.MissLimit)
	}

	if c.TargetCollision != CollisionLookahead && c.TargetCollision != CollisionCurrent {
		return fmt.Errorf("%w: unknown collision policy %q", ErrInvalidConfig, c.TargetCollision)
	}

	g := c.Grid
	if g.Rows < 1 || g.Columns < 1 {
		return fmt.Errorf("%w: grid must have at least one row and column, got %dx%d", ErrInvalidConfig, g.Rows, g.Columns)
	}
	if g.BlockWidth <= 0 || g.BlockHeight <= 0 {
		return fmt.Errorf("%w: block size must be positive, got %dx%d", ErrInvalidConfig, g.BlockWidth, g.BlockHeight)
	}
	if g.PaddingX < 0 || g.PaddingY < 0 || g.SpacingY < 0 {
		return fmt.Errorf("%w: grid padding and spacing must not be negative", ErrInvalidConfig)
	}
	width := int(c.ArenaWidth)
	if 2*g.PaddingX+g.Columns*g.BlockWidth > width {
		return fmt.Errorf("%w: %d columns of width %d do not fit in %d", ErrInvalidConfig, g.Columns, g.BlockWidth, width)
	}
	bottom := g.PaddingY + (g.Rows-1)*g.SpacingY + g.BlockHeight
	if float64(bottom) > c.ArenaHeight {
		return fmt.Errorf("%w: grid bottom %d exceeds arena height %g", ErrInvalidConfig, bottom, c.ArenaHeight)
	}

	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

// =============================================================================
// ENGINE CONFIGURATION
// =============================================================================

// EngineConfig controls the frame driver.
type EngineConfig struct {
	TickRate     int    // Frames per second for the built-in clock
	Autopilot    bool   // Steer the paddle and restart automatically
	Seed         int64  // Seed for cosmetic randomness (0 = time based)
	EventLogPath string // JSONL event log, empty disables the file
}

// DefaultEngine returns the default engine configuration.
func DefaultEngine() EngineConfig {
	return EngineConfig{
		TickRate:     60,
		EventLogPath: "events.jsonl",
	}
}

// EngineFromEnv returns engine configuration with environment variable overrides.
func EngineFromEnv() EngineConfig {
	cfg := DefaultEngine()

	if t := getEnvInt("TICK_RATE", 0); t > 0 {
		cfg.TickRate = t
	}
	if os.Getenv("AUTOPILOT") == "true" {
		cfg.Autopilot = true
	}
	if s := getEnvInt("RNG_SEED", 0); s != 0 {
		cfg.Seed = int64(s)
	}
	if p, ok := os.LookupEnv("EVENT_LOG_PATH"); ok {
		cfg.EventLogPath = p
	}

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port           int
	AllowedOrigins []string // CORS and WebSocket origins, nil uses the API defaults
	BroadcastHz    int      // WebSocket state pushes per second
	DebugEnabled   bool     // pprof and /metrics server
	DebugAddr      string   // Localhost only unless ALLOW_DEBUG_EXTERNAL=true
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:         3000,
		BroadcastHz:  20,
		DebugEnabled: true,
		DebugAddr:    "127.0.0.1:6060",
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.AllowedOrigins = append(cfg.AllowedOrigins, o)
			}
		}
	}
	if hz := getEnvInt("WS_BROADCAST_HZ", 0); hz > 0 {
		cfg.BroadcastHz = hz
	}
	if os.Getenv("DEBUG_ENABLED") == "false" {
		cfg.DebugEnabled = false
	}
	if addr := os.Getenv("DEBUG_ADDR"); addr != "" {
		cfg.DebugAddr = addr
	}

	return cfg
}

// =============================================================================
// RENDER CONFIGURATION
// =============================================================================

// RenderConfig holds PNG frame rendering settings.
type RenderConfig struct {
	Scale    float64 // Output pixels per arena unit
	FontPath string  // Optional TTF/OTF, falls back to a bitmap face
}

// DefaultRender returns the default render configuration.
func DefaultRender() RenderConfig {
	return RenderConfig{
		Scale: 1,
	}
}

// RenderFromEnv returns render configuration with environment variable overrides.
func RenderFromEnv() RenderConfig {
	cfg := DefaultRender()

	if s := getEnvFloat("RENDER_SCALE", 0); s > 0 {
		cfg.Scale = s
	}
	cfg.FontPath = os.Getenv("FONT_PATH")

	return cfg
}

// =============================================================================
// AUDIO CONFIGURATION
// =============================================================================

// AudioConfig holds sound cue settings.
type AudioConfig struct {
	SampleRate int     // Cue sample rate in Hz
	Volume     float64 // Master volume (0.0 to 1.0)
	Enabled    bool
}

// DefaultAudio returns the default audio configuration.
func DefaultAudio() AudioConfig {
	return AudioConfig{
		SampleRate: 44100,
		Volume:     0.5,
		Enabled:    true,
	}
}

// AudioFromEnv returns audio configuration with environment variable overrides.
func AudioFromEnv() AudioConfig {
	cfg := DefaultAudio()

	if v := getEnvFloat("SFX_VOLUME", -1); v >= 0 {
		cfg.Volume = v
	}
	if os.Getenv("SFX_ENABLED") == "false" {
		cfg.Enabled = false
	}

	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Game   GameConfig
	Engine EngineConfig
	Server ServerConfig
	Render RenderConfig
	Audio  AudioConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Game:   GameFromEnv(),
		Engine: EngineFromEnv(),
		Server: ServerFromEnv(),
		Render: RenderFromEnv(),
		Audio:  AudioFromEnv(),
	}
}

// LoadDotEnv loads the first .env file found in paths and returns its path.
// Variables already set in the environment win.
func LoadDotEnv(paths ...string) (string, bool) {
	for _, p := range paths {
		if err := godotenv.Load(p); err == nil {
			return p, true
		}
	}
	return "", false
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
