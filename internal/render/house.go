// Package render turns generated villages into something to look at: text grids,
// paced terminal playback and YAML exports.
package render

import (
	"iter"
	"math/rand"

	"github.com/lawnchairsociety/villagegen/internal/wfc"
)

// Tile is a placement with its drawable kind resolved. Variant equals Kind for
// roads and holds the chosen house variant for houses.
type Tile struct {
	wfc.Placement
	Variant wfc.TileKind
}

// HouseResolver draws each generic house as one of several variants.
// A nil resolver, or one without variants, leaves every kind unchanged.
type HouseResolver struct {
	house    wfc.TileKind
	variants []wfc.TileKind
	rng      *rand.Rand
}

// NewHouseResolver creates a resolver picking uniformly among variants
func NewHouseResolver(house wfc.TileKind, variants []wfc.TileKind, rng *rand.Rand) *HouseResolver {
	return &HouseResolver{
		house:    house,
		variants: variants,
		rng:      rng,
	}
}

// Variants returns the configured house variants
func (r *HouseResolver) Variants() []wfc.TileKind {
	if r == nil {
		return nil
	}
	return r.variants
}

// Resolve returns the drawable tile for a placement
func (r *HouseResolver) Resolve(p wfc.Placement) Tile {
	t := Tile{Placement: p, Variant: p.Kind}
	if r == nil || len(r.variants) == 0 || p.Kind != r.house {
		return t
	}
	t.Variant = r.variants[r.rng.Intn(len(r.variants))]
	return t
}

// Tiles resolves every placement of a village, keeping collapse order
func (r *HouseResolver) Tiles(placements iter.Seq[wfc.Placement]) []Tile {
	var tiles []Tile
	for p := range placements {
		tiles = append(tiles, r.Resolve(p))
	}
	return tiles
}

// Seq returns the tiles as a single-pass sequence
func Seq(tiles []Tile) iter.Seq[Tile] {
	return func(yield func(Tile) bool) {
		for _, t := range tiles {
			if !yield(t) {
				return
			}
		}
	}
}
