package game

import (
	"math/rand"

	"zutopia/internal/config"
)

// Variant is the purely cosmetic animal shown on a target.
type Variant uint8

const (
	VariantDuck Variant = iota
	VariantGoat
	VariantHorse
)

// variantCount is used for random selection
const variantCount = 3

// String returns the variant name
func (v Variant) String() string {
	switch v {
	case VariantDuck:
		return "duck"
	case VariantGoat:
		return "goat"
	case VariantHorse:
		return "horse"
	default:
		return "unknown"
	}
}

// Target is a static block that is destroyed when the ball touches it.
type Target struct {
	ID      uint32
	Box     Bounds
	Variant Variant
}

// BoundingBox returns the target rectangle.
func (t Target) BoundingBox() Bounds { return t.Box }

// NewTargetGrid lays out the full target grid for a session.
// Targets are ordered x-index outer, y-index inner; IDs follow that order.
// rng only picks cosmetic variants; nil selects VariantDuck everywhere.
func NewTargetGrid(cfg config.GameConfig, rng *rand.Rand) []*Target {
	g := cfg.Grid
	spacingX := g.SpacingX(int(cfg.ArenaWidth))

	targets := make([]*Target, 0, g.Rows*g.Columns)
	for i := 0; i < g.Columns; i++ {
		for j := 0; j < g.Rows; j++ {
			variant := VariantDuck
			if rng != nil {
				variant = Variant(rng.Intn(variantCount))
			}
			targets = append(targets, &Target{
				ID: uint32(len(targets)),
				Box: NewBounds(
					float64(g.PaddingX+i*spacingX),
					float64(g.PaddingY+j*g.SpacingY),
					float64(g.BlockWidth),
					float64(g.BlockHeight),
				),
				Variant: variant,
			})
		}
	}
	return targets
}
