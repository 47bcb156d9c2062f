package wfc

import (
	"errors"
	"fmt"
	"iter"
	"math/rand"

	"github.com/lawnchairsociety/villagegen/internal/logger"
)

// DefaultMaxAttempts bounds how many fresh grids are tried before giving up
const DefaultMaxAttempts = 1000

// VillageConfig contains parameters for village generation
type VillageConfig struct {
	Width       int   // Grid width in cells, at least 3
	Height      int   // Grid height in cells, at least 3
	MaxAttempts int   // Number of solve attempts before giving up
	Seed        int64 // Base seed; each attempt derives its own stream from it
}

// DefaultVillageConfig returns reasonable defaults for a village
func DefaultVillageConfig(seed int64) *VillageConfig {
	return &VillageConfig{
		Width:       20,
		Height:      12,
		MaxAttempts: DefaultMaxAttempts,
		Seed:        seed,
	}
}

// Validate checks the grid size and attempt budget
func (c *VillageConfig) Validate() error {
	if c.Width < 3 || c.Height < 3 {
		return fmt.Errorf("%w: %dx%d, need at least 3x3", ErrInvalidSize, c.Width, c.Height)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidAttempts, c.MaxAttempts)
	}
	return nil
}

// Village is the output of a successful generation
type Village struct {
	Width, Height int
	Seed          int64
	Attempts      int         // Attempts used, the successful one included
	Placements    []Placement // Every cell exactly once, in collapse order
}

// All returns the placements as a single-pass sequence in collapse order
func (v *Village) All() iter.Seq[Placement] {
	return func(yield func(Placement) bool) {
		for _, p := range v.Placements {
			if !yield(p) {
				return
			}
		}
	}
}

// Tiles returns the final tile of every cell, indexed [y][x]
func (v *Village) Tiles() [][]TileKind {
	tiles := make([][]TileKind, v.Height)
	for y := range tiles {
		tiles[y] = make([]TileKind, v.Width)
	}
	for _, p := range v.Placements {
		tiles[p.Y][p.X] = p.Kind
	}
	return tiles
}

// Verify checks that every cell was placed exactly once and that every adjacent
// pair of tiles is allowed by the catalog in both directions
func (v *Village) Verify(catalog *Catalog) error {
	seen := make(map[cell]bool, len(v.Placements))
	for _, p := range v.Placements {
		if p.X < 0 || p.X >= v.Width || p.Y < 0 || p.Y >= v.Height {
			return fmt.Errorf("placement (%d,%d) outside %dx%d grid", p.X, p.Y, v.Width, v.Height)
		}
		c := cell{p.X, p.Y}
		if seen[c] {
			return fmt.Errorf("cell (%d,%d) placed twice", p.X, p.Y)
		}
		seen[c] = true
	}
	if len(seen) != v.Width*v.Height {
		return fmt.Errorf("placed %d of %d cells", len(seen), v.Width*v.Height)
	}

	tiles := v.Tiles()
	for y := 0; y < v.Height; y++ {
		for x := 0; x < v.Width; x++ {
			for _, dir := range []Direction{Up, Right} {
				dx, dy := dir.Offset()
				nx, ny := x+dx, y+dy
				if nx >= v.Width || ny >= v.Height {
					continue
				}
				a, b := tiles[y][x], tiles[ny][nx]
				if !catalog.Allows(a, dir, b) || !catalog.Allows(b, dir.Opposite(), a) {
					return fmt.Errorf("%s at (%d,%d) may not have %s %s of it", a, x, y, b, dir)
				}
			}
		}
	}
	return nil
}

// Generator retries solve attempts until one succeeds
type Generator struct {
	config  *VillageConfig
	catalog *Catalog
}

// NewGenerator creates a new village generator
func NewGenerator(config *VillageConfig, catalog *Catalog) *Generator {
	return &Generator{
		config:  config,
		catalog: catalog,
	}
}

// AttemptSeed derives the random seed of one attempt from the base seed. The first
// attempt uses the base seed itself; later attempts hash the seed together with
// the attempt number so nearby base seeds do not share streams.
func AttemptSeed(seed int64, attempt int) int64 {
	if attempt == 0 {
		return seed
	}
	return int64(splitmix64(splitmix64(uint64(seed)) ^ uint64(attempt)))
}

func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// Generate runs up to MaxAttempts independent attempts, each on a fresh grid with a
// fresh random stream, and returns the first one that solves
func (g *Generator) Generate() (*Village, error) {
	if err := g.config.Validate(); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt < g.config.MaxAttempts; attempt++ {
		rng := rand.New(rand.NewSource(AttemptSeed(g.config.Seed, attempt)))
		solver := NewSolver(g.config.Width, g.config.Height, g.catalog, rng)

		placements, err := solver.Solve()
		if err != nil {
			if !errors.Is(err, ErrContradiction) {
				return nil, err
			}
			logger.Debug("Village attempt contradicted",
				"attempt", attempt+1,
				"placed", len(solver.Placements()),
				"error", err)
			lastErr = err
			continue
		}

		logger.Debug("Village attempt solved",
			"attempt", attempt+1,
			"steps", solver.Steps,
			"cells", len(placements))

		return &Village{
			Width:      g.config.Width,
			Height:     g.config.Height,
			Seed:       g.config.Seed,
			Attempts:   attempt + 1,
			Placements: placements,
		}, nil
	}

	return nil, fmt.Errorf("%w after %d attempts (last: %v)", ErrGenerationExhausted, g.config.MaxAttempts, lastErr)
}

// Generate builds a width x height village from the catalog, trying at most
// maxAttempts grids
func Generate(width, height int, catalog *Catalog, maxAttempts int, seed int64) (*Village, error) {
	cfg := &VillageConfig{
		Width:       width,
		Height:      height,
		MaxAttempts: maxAttempts,
		Seed:        seed,
	}
	return NewGenerator(cfg, catalog).Generate()
}
