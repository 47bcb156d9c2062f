package wfc

import (
	"slices"

	"github.com/zyedidia/generic/mapset"
)

// Grid holds the domain of every cell during one solve attempt.
// Cells are indexed [y][x]. A cell is collapsed once its domain has one member
// and contradicted once it has none. A cell is assigned once the solver has
// collapsed or narrowed it to a single kind; a domain that starts as a singleton
// is not assigned until the solver places it.
type Grid struct {
	Width, Height int

	domains   [][]mapset.Set[TileKind]
	assigned  [][]bool
	remaining int
}

// NewGrid creates a grid with empty domains. Call Initialize before solving.
func NewGrid(width, height int) *Grid {
	g := &Grid{
		Width:     width,
		Height:    height,
		domains:   make([][]mapset.Set[TileKind], height),
		assigned:  make([][]bool, height),
	}
	for y := 0; y < height; y++ {
		g.domains[y] = make([]mapset.Set[TileKind], width)
		g.assigned[y] = make([]bool, width)
	}
	return g
}

// Initialize gives every cell its own copy of the full tile set. No cell starts
// assigned, even when the set has a single kind.
func (g *Grid) Initialize(full []TileKind) {
	g.remaining = g.Width * g.Height
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			domain := mapset.New[TileKind]()
			for _, k := range full {
				domain.Put(k)
			}
			g.domains[y][x] = domain
			g.assigned[y][x] = false
		}
	}
}

// InBounds returns true if (x, y) is a cell of the grid
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.Width && y >= 0 && y < g.Height
}

// Narrow intersects the domain of (x, y) with allowed and returns the new domain size
func (g *Grid) Narrow(x, y int, allowed mapset.Set[TileKind]) int {
	domain := g.domains[y][x]

	var drop []TileKind
	domain.Each(func(k TileKind) {
		if !allowed.Has(k) {
			drop = append(drop, k)
		}
	})
	for _, k := range drop {
		domain.Remove(k)
	}

	g.markAssigned(x, y)
	return domain.Size()
}

// Collapse sets the domain of (x, y) to the single given kind
func (g *Grid) Collapse(x, y int, kind TileKind) {
	domain := mapset.New[TileKind]()
	domain.Put(kind)
	g.domains[y][x] = domain
	g.markAssigned(x, y)
}

// markAssigned counts a cell the first time the solver leaves it with one kind
func (g *Grid) markAssigned(x, y int) {
	if g.assigned[y][x] || g.domains[y][x].Size() != 1 {
		return
	}
	g.assigned[y][x] = true
	g.remaining--
}

// Entropy returns the number of tile kinds still possible at (x, y)
func (g *Grid) Entropy(x, y int) int {
	return g.domains[y][x].Size()
}

// IsContradicted returns true if no tile kind is possible at (x, y)
func (g *Grid) IsContradicted(x, y int) bool {
	return g.domains[y][x].Size() == 0
}

// IsCollapsed returns true if exactly one tile kind is possible at (x, y)
func (g *Grid) IsCollapsed(x, y int) bool {
	return g.domains[y][x].Size() == 1
}

// IsAssigned returns true once the solver has fixed the kind at (x, y)
func (g *Grid) IsAssigned(x, y int) bool {
	return g.assigned[y][x]
}

// Has returns true if kind is still possible at (x, y)
func (g *Grid) Has(x, y int, kind TileKind) bool {
	return g.domains[y][x].Has(kind)
}

// Domain returns the possible kinds at (x, y), sorted
func (g *Grid) Domain(x, y int) []TileKind {
	out := make([]TileKind, 0, g.domains[y][x].Size())
	g.domains[y][x].Each(func(k TileKind) {
		out = append(out, k)
	})
	slices.Sort(out)
	return out
}

// Remaining returns the number of cells not yet assigned
func (g *Grid) Remaining() int {
	return g.remaining
}
