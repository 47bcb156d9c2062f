package wfc

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"slices"
)

var (
	ErrContradiction       = errors.New("wfc: contradiction - no valid tiles for cell")
	ErrGenerationExhausted = errors.New("wfc: failed to find valid solution")
	ErrInvalidSize         = errors.New("wfc: invalid grid size")
	ErrInvalidAttempts     = errors.New("wfc: invalid attempt count")
	ErrMalformedCatalog    = errors.New("wfc: malformed tile catalog")
	ErrSolverUsed          = errors.New("wfc: solver already ran")
)

// ContradictionError describes the propagation step that emptied a cell's domain
type ContradictionError struct {
	X, Y    int       // The cell left with no possible tile
	Placed  TileKind  // The tile whose constraint emptied it
	Dir     Direction // Direction from the placed tile to the emptied cell
	Allowed []TileKind
}

func (e *ContradictionError) Error() string {
	return fmt.Sprintf("wfc: contradiction at (%d,%d) - %s %s only allows %v",
		e.X, e.Y, e.Dir, e.Placed, e.Allowed)
}

func (e *ContradictionError) Unwrap() error {
	return ErrContradiction
}

// State is the lifecycle of one solve attempt
type State int

const (
	Running State = iota
	Solved
	Contradicted
)

// String returns the string representation of a State
func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case Solved:
		return "solved"
	case Contradicted:
		return "contradicted"
	default:
		return "unknown"
	}
}

// cell is a grid coordinate
type cell struct{ x, y int }

// Solver runs a single Wave Function Collapse attempt over a fresh grid.
// A Solver is used once; retries build a new one.
type Solver struct {
	Width, Height int
	Grid          *Grid
	Catalog       *Catalog
	rng           *rand.Rand

	// Steps counts cells chosen by entropy selection (seed and forced cascades excluded)
	Steps int

	placements []Placement
	state      State
}

// NewSolver creates a solver for one attempt with an initialized grid
func NewSolver(width, height int, catalog *Catalog, rng *rand.Rand) *Solver {
	s := &Solver{
		Width:      width,
		Height:     height,
		Grid:       NewGrid(width, height),
		Catalog:    catalog,
		rng:        rng,
		placements: make([]Placement, 0, width*height),
	}
	s.Grid.Initialize(catalog.Kinds())
	return s
}

// State returns the current attempt state
func (s *Solver) State() State {
	return s.state
}

// Placements returns the placements made so far, in collapse order
func (s *Solver) Placements() []Placement {
	return slices.Clone(s.placements)
}

// Solve runs the attempt to completion. It returns the ordered placements covering
// every cell, or an error wrapping ErrContradiction as soon as a domain empties.
func (s *Solver) Solve() ([]Placement, error) {
	if s.state != Running || len(s.placements) > 0 {
		return nil, ErrSolverUsed
	}
	if s.Width < 3 || s.Height < 3 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, s.Width, s.Height)
	}

	x, y := s.seedCell()
	if err := s.place(x, y, s.seedTile()); err != nil {
		return nil, s.fail(err)
	}

	for s.Grid.Remaining() > 0 {
		c, ok := s.selectCell()
		if !ok {
			break
		}
		s.Steps++
		if err := s.place(c.x, c.y, s.choose(c.x, c.y)); err != nil {
			return nil, s.fail(err)
		}
	}

	if s.Grid.Remaining() > 0 {
		return nil, s.fail(ErrContradiction)
	}

	s.state = Solved
	return s.Placements(), nil
}

func (s *Solver) fail(err error) error {
	s.state = Contradicted
	return err
}

// seedCell picks a random cell at least one cell away from every edge
func (s *Solver) seedCell() (int, int) {
	x := 1 + s.rng.Intn(s.Width-2)
	y := 1 + s.rng.Intn(s.Height-2)
	return x, y
}

// seedTile picks the house or, with equal chance, a uniformly random road
func (s *Solver) seedTile() TileKind {
	roads := s.Catalog.Roads()
	if len(roads) == 0 || s.rng.Float64() < 0.5 {
		return s.Catalog.House()
	}
	return roads[s.rng.Intn(len(roads))]
}

// selectCell returns a random cell among those with the fewest remaining
// possibilities, ignoring assigned cells. The whole grid is scanned every time.
func (s *Solver) selectCell() (cell, bool) {
	lowest := math.MaxInt
	var ties []cell

	for y := 0; y < s.Height; y++ {
		for x := 0; x < s.Width; x++ {
			if s.Grid.IsAssigned(x, y) {
				continue
			}
			n := s.Grid.Entropy(x, y)
			if n < lowest {
				lowest = n
				ties = ties[:0]
				ties = append(ties, cell{x, y})
			} else if n == lowest {
				ties = append(ties, cell{x, y})
			}
		}
	}

	if len(ties) == 0 {
		return cell{}, false
	}
	return ties[s.rng.Intn(len(ties))], true
}

// choose collapses the domain at (x, y) to one tile using the catalog weights
func (s *Solver) choose(x, y int) TileKind {
	options := make([]TileKind, 0, s.Grid.Entropy(x, y))
	for _, k := range s.Catalog.kinds {
		if s.Grid.Has(x, y, k) {
			options = append(options, k)
		}
	}
	return s.weightedPick(options)
}

// weightedPick draws uniformly in [0, total weight) and walks the options in order,
// subtracting weights until the running value drops below zero
func (s *Solver) weightedPick(options []TileKind) TileKind {
	if len(options) == 1 {
		return options[0]
	}

	var total float64
	for _, k := range options {
		total += s.Catalog.rules[k].Weight
	}

	r := s.rng.Float64() * total
	for _, k := range options {
		r -= s.Catalog.rules[k].Weight
		if r < 0 {
			return k
		}
	}
	// Float rounding can leave r at exactly zero
	return options[len(options)-1]
}

// place collapses (x, y) to kind, records the placement and propagates
func (s *Solver) place(x, y int, kind TileKind) error {
	s.Grid.Collapse(x, y, kind)
	s.placements = append(s.placements, Placement{X: x, Y: y, Kind: kind})
	return s.propagate(x, y, kind)
}

// propagate narrows every unassigned neighbor of (x, y) to what kind allows in that
// direction. A neighbor left with one option is placed immediately, so the whole
// cascade finishes before control returns to entropy selection.
func (s *Solver) propagate(x, y int, kind TileKind) error {
	rule := s.Catalog.rules[kind]

	for _, dir := range AllDirections() {
		dx, dy := dir.Offset()
		nx, ny := x+dx, y+dy
		if !s.Grid.InBounds(nx, ny) || s.Grid.IsAssigned(nx, ny) {
			continue
		}

		switch s.Grid.Narrow(nx, ny, rule.Allowed[dir]) {
		case 0:
			return &ContradictionError{
				X:       nx,
				Y:       ny,
				Placed:  kind,
				Dir:     dir,
				Allowed: rule.AllowedList(dir),
			}
		case 1:
			if err := s.place(nx, ny, s.Grid.Domain(nx, ny)[0]); err != nil {
				return err
			}
		}
	}

	return nil
}
