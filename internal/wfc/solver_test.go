package wfc

import (
	"errors"
	"math"
	"math/rand"
	"testing"
)

// deadEndCatalog has a house and a road that allow no neighbors at all
func deadEndCatalog(t *testing.T) *Catalog {
	t.Helper()
	catalog, err := NewCatalog("house",
		NewTileRule("house", RoleHouse, "House", 1),
		NewTileRule("road", RoleHorizontal, "Road", 1),
	)
	if err != nil {
		t.Fatalf("NewCatalog() failed: %v", err)
	}
	return catalog
}

func TestNewSolver(t *testing.T) {
	catalog := mustCatalog(t, FourTiles)
	solver := NewSolver(10, 6, catalog, rand.New(rand.NewSource(42)))

	if solver.Width != 10 || solver.Height != 6 {
		t.Errorf("size = %dx%d, want 10x6", solver.Width, solver.Height)
	}
	if solver.Grid == nil {
		t.Fatal("Grid should not be nil")
	}
	if solver.Grid.Remaining() != 60 {
		t.Errorf("Remaining() = %d, want 60", solver.Grid.Remaining())
	}
	if solver.Grid.Entropy(3, 3) != catalog.Len() {
		t.Errorf("Entropy(3,3) = %d, want %d", solver.Grid.Entropy(3, 3), catalog.Len())
	}
	if solver.State() != Running {
		t.Errorf("State() = %s, want running", solver.State())
	}
}

func TestSolverCoversEveryCell(t *testing.T) {
	for _, c := range allComplexities {
		catalog := mustCatalog(t, c)
		var solved int
		for seed := int64(0); seed < 50; seed++ {
			solver := NewSolver(8, 6, catalog, rand.New(rand.NewSource(seed)))
			placements, err := solver.Solve()
			if err != nil {
				if !errors.Is(err, ErrContradiction) {
					t.Fatalf("%s seed %d: unexpected error %v", c, seed, err)
				}
				if solver.State() != Contradicted {
					t.Errorf("State() = %s, want contradicted", solver.State())
				}
				continue
			}
			solved++

			v := &Village{Width: 8, Height: 6, Placements: placements}
			if err := v.Verify(catalog); err != nil {
				t.Errorf("%s seed %d: %v", c, seed, err)
			}
			if solver.State() != Solved {
				t.Errorf("State() = %s, want solved", solver.State())
			}
		}
		if solved == 0 {
			t.Errorf("%s: no attempt out of 50 solved", c)
		}
	}
}

func TestSolverPlacesEveryCellOfSingleKindCatalog(t *testing.T) {
	house := NewTileRule("house", RoleHouse, "House", 1)
	for _, dir := range AllDirections() {
		house.Allow(dir, "house")
	}
	catalog, err := NewCatalog("house", house)
	if err != nil {
		t.Fatalf("NewCatalog() failed: %v", err)
	}

	v, err := Generate(3, 3, catalog, 10, 1)
	if err != nil {
		t.Fatalf("Generate() failed: %v", err)
	}
	if len(v.Placements) != 9 {
		t.Errorf("got %d placements, want 9", len(v.Placements))
	}
	if err := v.Verify(catalog); err != nil {
		t.Errorf("Verify() failed: %v", err)
	}
}

func TestSolverSeedCellOnSmallestGrid(t *testing.T) {
	catalog := mustCatalog(t, FourTiles)

	for seed := int64(0); seed < 100; seed++ {
		solver := NewSolver(3, 3, catalog, rand.New(rand.NewSource(seed)))
		solver.Solve()

		placements := solver.Placements()
		if len(placements) == 0 {
			t.Fatalf("seed %d: no placements", seed)
		}
		if placements[0].X != 1 || placements[0].Y != 1 {
			t.Errorf("seed %d: first placement at (%d,%d), want (1,1)", seed, placements[0].X, placements[0].Y)
		}
	}
}

func TestSolverSeedCellAvoidsEdges(t *testing.T) {
	catalog := mustCatalog(t, EightTiles)

	for seed := int64(0); seed < 200; seed++ {
		solver := NewSolver(7, 5, catalog, rand.New(rand.NewSource(seed)))
		x, y := solver.seedCell()
		if x < 1 || x > 5 || y < 1 || y > 3 {
			t.Errorf("seed %d: seed cell (%d,%d) touches an edge", seed, x, y)
		}
	}
}

func TestSolverSeedTileSplit(t *testing.T) {
	catalog := mustCatalog(t, FourTiles)
	solver := NewSolver(3, 3, catalog, rand.New(rand.NewSource(7)))

	const draws = 10000
	houses := 0
	for i := 0; i < draws; i++ {
		if solver.seedTile() == catalog.House() {
			houses++
		}
	}

	ratio := float64(houses) / draws
	if math.Abs(ratio-0.5) > 0.03 {
		t.Errorf("house seed ratio = %.3f, want about 0.5", ratio)
	}
}

func TestSolverContradiction(t *testing.T) {
	catalog := deadEndCatalog(t)
	solver := NewSolver(3, 3, catalog, rand.New(rand.NewSource(1)))

	placements, err := solver.Solve()
	if !errors.Is(err, ErrContradiction) {
		t.Fatalf("Solve() error = %v, want ErrContradiction", err)
	}
	if placements != nil {
		t.Errorf("Solve() returned %d placements on failure", len(placements))
	}

	var ce *ContradictionError
	if !errors.As(err, &ce) {
		t.Fatalf("error %v is not a *ContradictionError", err)
	}
	if ce.X < 0 || ce.X > 2 || ce.Y < 0 || ce.Y > 2 {
		t.Errorf("contradiction at (%d,%d) is outside the grid", ce.X, ce.Y)
	}
	if len(ce.Allowed) != 0 {
		t.Errorf("Allowed = %v, want empty", ce.Allowed)
	}

	if got := len(solver.Placements()); got != 1 {
		t.Errorf("placements before failure = %d, want 1", got)
	}
	if solver.State() != Contradicted {
		t.Errorf("State() = %s, want contradicted", solver.State())
	}
}

func TestSolverRejectsReuse(t *testing.T) {
	catalog := mustCatalog(t, FourTiles)
	solver := NewSolver(5, 5, catalog, rand.New(rand.NewSource(3)))

	solver.Solve()
	if _, err := solver.Solve(); !errors.Is(err, ErrSolverUsed) {
		t.Errorf("second Solve() error = %v, want ErrSolverUsed", err)
	}
}

func TestSolverRejectsSmallGrid(t *testing.T) {
	catalog := mustCatalog(t, FourTiles)
	solver := NewSolver(2, 5, catalog, rand.New(rand.NewSource(3)))

	if _, err := solver.Solve(); !errors.Is(err, ErrInvalidSize) {
		t.Errorf("Solve() error = %v, want ErrInvalidSize", err)
	}
}

func TestSelectCellPicksLowestEntropy(t *testing.T) {
	catalog := mustCatalog(t, FourTiles)
	solver := NewSolver(4, 4, catalog, rand.New(rand.NewSource(11)))

	solver.Grid.Collapse(1, 1, "house")
	solver.Grid.Narrow(0, 0, setOf("horizontal", "vertical"))
	solver.Grid.Narrow(3, 2, setOf("horizontal", "house"))
	solver.Grid.Narrow(2, 3, setOf("horizontal", "vertical", "house"))

	seen := map[cell]bool{}
	for i := 0; i < 200; i++ {
		c, ok := solver.selectCell()
		if !ok {
			t.Fatal("selectCell() found nothing")
		}
		if c != (cell{0, 0}) && c != (cell{3, 2}) {
			t.Fatalf("selectCell() = %v, want (0,0) or (3,2)", c)
		}
		seen[c] = true
	}
	if len(seen) != 2 {
		t.Errorf("ties were not broken randomly: only saw %v", seen)
	}
}

func TestSelectCellSkipsCollapsed(t *testing.T) {
	catalog := mustCatalog(t, FourTiles)
	solver := NewSolver(3, 3, catalog, rand.New(rand.NewSource(5)))

	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			if x != 2 || y != 0 {
				solver.Grid.Collapse(x, y, "house")
			}
		}
	}

	c, ok := solver.selectCell()
	if !ok || c != (cell{2, 0}) {
		t.Errorf("selectCell() = %v, %v, want (2,0)", c, ok)
	}

	solver.Grid.Collapse(2, 0, "house")
	if _, ok := solver.selectCell(); ok {
		t.Error("selectCell() should find nothing on a collapsed grid")
	}
}

func TestWeightedPickFollowsWeights(t *testing.T) {
	light := NewTileRule("light", RoleHorizontal, "Light", 1)
	heavy := NewTileRule("heavy", RoleHouse, "Heavy", 3)
	catalog, err := NewCatalog("heavy", light, heavy)
	if err != nil {
		t.Fatalf("NewCatalog() failed: %v", err)
	}

	solver := NewSolver(3, 3, catalog, rand.New(rand.NewSource(99)))
	options := []TileKind{"light", "heavy"}

	const draws = 20000
	heavyCount := 0
	for i := 0; i < draws; i++ {
		if solver.weightedPick(options) == "heavy" {
			heavyCount++
		}
	}

	ratio := float64(heavyCount) / draws
	if math.Abs(ratio-0.75) > 0.02 {
		t.Errorf("heavy ratio = %.3f, want about 0.75", ratio)
	}
}

func TestWeightedPickSingleOption(t *testing.T) {
	catalog := mustCatalog(t, FourTiles)
	solver := NewSolver(3, 3, catalog, rand.New(rand.NewSource(1)))

	if got := solver.weightedPick([]TileKind{"cross"}); got != "cross" {
		t.Errorf("weightedPick() = %q, want cross", got)
	}
}

func TestContradictionErrorMessage(t *testing.T) {
	err := &ContradictionError{X: 2, Y: 1, Placed: "horizontal", Dir: Up, Allowed: []TileKind{"house"}}

	if !errors.Is(err, ErrContradiction) {
		t.Error("ContradictionError should unwrap to ErrContradiction")
	}
	want := "wfc: contradiction at (2,1) - up horizontal only allows [house]"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}
