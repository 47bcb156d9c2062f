package wfc

import (
	"errors"
	"slices"
	"testing"
)

// roleKinds names every tile after its role
func roleKinds(c Complexity) ([]TileKind, TileKind) {
	var kinds []TileKind
	for _, role := range RolesFor(c) {
		kinds = append(kinds, TileKind(role.String()))
	}
	var house TileKind
	if c == TwelveTiles {
		house = "house"
	}
	return kinds, house
}

func mustCatalog(t testing.TB, c Complexity) *Catalog {
	t.Helper()
	kinds, house := roleKinds(c)
	bindings, err := BindRoles(c, kinds, house)
	if err != nil {
		t.Fatalf("BindRoles(%s) failed: %v", c, err)
	}
	catalog, err := BuildCatalog(c, bindings)
	if err != nil {
		t.Fatalf("BuildCatalog(%s) failed: %v", c, err)
	}
	return catalog
}

var allComplexities = []Complexity{FourTiles, EightTiles, TwelveTiles}

func TestParseComplexity(t *testing.T) {
	tests := []struct {
		input string
		want  Complexity
	}{
		{"four", FourTiles},
		{"4", FourTiles},
		{"eight", EightTiles},
		{"8", EightTiles},
		{"twelve", TwelveTiles},
		{"12", TwelveTiles},
	}

	for _, tt := range tests {
		got, err := ParseComplexity(tt.input)
		if err != nil || got != tt.want {
			t.Errorf("ParseComplexity(%q) = %v, %v, want %v", tt.input, got, err, tt.want)
		}
	}

	if _, err := ParseComplexity("sixteen"); err == nil {
		t.Error("ParseComplexity(sixteen) should fail")
	}
}

func TestCatalogSizes(t *testing.T) {
	tests := []struct {
		complexity Complexity
		tiles      int
	}{
		{FourTiles, 4},
		{EightTiles, 8},
		{TwelveTiles, 12},
	}

	for _, tt := range tests {
		catalog := mustCatalog(t, tt.complexity)
		if catalog.Len() != tt.tiles {
			t.Errorf("%s catalog has %d tiles, want %d", tt.complexity, catalog.Len(), tt.tiles)
		}
		if catalog.House() != "house" {
			t.Errorf("%s catalog house = %q, want house", tt.complexity, catalog.House())
		}
		if len(catalog.Roads()) != tt.tiles-1 {
			t.Errorf("%s catalog has %d roads, want %d", tt.complexity, len(catalog.Roads()), tt.tiles-1)
		}
	}
}

func TestCatalogSymmetry(t *testing.T) {
	for _, c := range allComplexities {
		catalog := mustCatalog(t, c)
		for _, from := range catalog.Kinds() {
			for _, dir := range AllDirections() {
				for _, to := range catalog.Kinds() {
					forward := catalog.Allows(from, dir, to)
					backward := catalog.Allows(to, dir.Opposite(), from)
					if forward != backward {
						t.Errorf("%s: %s allows %s %s = %v, but reverse = %v",
							c, from, to, dir, forward, backward)
					}
				}
			}
		}
	}
}

func TestCatalogEveryTileHasNeighbors(t *testing.T) {
	for _, c := range allComplexities {
		catalog := mustCatalog(t, c)
		for _, kind := range catalog.Kinds() {
			rule, _ := catalog.Rule(kind)
			for _, dir := range AllDirections() {
				if len(rule.AllowedList(dir)) == 0 {
					t.Errorf("%s: %s allows nothing %s", c, kind, dir)
				}
			}
		}
	}
}

func TestCatalogIsRebuiltIdentically(t *testing.T) {
	for _, c := range allComplexities {
		a := mustCatalog(t, c)
		b := mustCatalog(t, c)

		if !slices.Equal(a.Kinds(), b.Kinds()) {
			t.Fatalf("%s: kind order differs: %v vs %v", c, a.Kinds(), b.Kinds())
		}
		for _, kind := range a.Kinds() {
			ra, _ := a.Rule(kind)
			rb, _ := b.Rule(kind)
			if ra.Weight != rb.Weight {
				t.Errorf("%s: %s weight %v vs %v", c, kind, ra.Weight, rb.Weight)
			}
			for _, dir := range AllDirections() {
				if !slices.Equal(ra.AllowedList(dir), rb.AllowedList(dir)) {
					t.Errorf("%s: %s %s differs", c, kind, dir)
				}
			}
		}
	}
}

func TestFourTileRules(t *testing.T) {
	catalog := mustCatalog(t, FourTiles)

	tests := []struct {
		from TileKind
		dir  Direction
		want []TileKind
	}{
		{"horizontal", Up, []TileKind{"house"}},
		{"horizontal", Left, []TileKind{"cross", "horizontal"}},
		{"vertical", Up, []TileKind{"cross", "vertical"}},
		{"vertical", Right, []TileKind{"house"}},
		{"cross", Down, []TileKind{"vertical"}},
		{"cross", Right, []TileKind{"horizontal"}},
		{"house", Up, []TileKind{"horizontal", "house"}},
		{"house", Left, []TileKind{"house", "vertical"}},
	}

	for _, tt := range tests {
		rule, _ := catalog.Rule(tt.from)
		if got := rule.AllowedList(tt.dir); !slices.Equal(got, tt.want) {
			t.Errorf("%s %s = %v, want %v", tt.from, tt.dir, got, tt.want)
		}
	}

	weights := map[TileKind]float64{"horizontal": 1, "vertical": 1, "cross": 0.1, "house": 2}
	for kind, want := range weights {
		rule, _ := catalog.Rule(kind)
		if rule.Weight != want {
			t.Errorf("%s weight = %v, want %v", kind, rule.Weight, want)
		}
	}
}

func TestEightTileRules(t *testing.T) {
	catalog := mustCatalog(t, EightTiles)

	if !catalog.Allows("corner_down_left", Down, "vertical") {
		t.Error("corner_down_left should allow vertical below")
	}
	if !catalog.Allows("corner_down_left", Left, "horizontal") {
		t.Error("corner_down_left should allow horizontal to the left")
	}
	if catalog.Allows("corner_down_left", Up, "vertical") {
		t.Error("corner_down_left should not allow vertical above")
	}
	if !catalog.Allows("house", Up, "corner_up_right") {
		t.Error("house should allow corner_up_right above")
	}

	rule, _ := catalog.Rule("house")
	if rule.Weight != 1.5 {
		t.Errorf("house weight = %v, want 1.5", rule.Weight)
	}
}

func TestTwelveTileRules(t *testing.T) {
	catalog := mustCatalog(t, TwelveTiles)

	for _, dir := range AllDirections() {
		if !catalog.Allows("house", dir, "house") {
			t.Errorf("house should allow house %s", dir)
		}
	}

	rule, _ := catalog.Rule("tee_up_down_left")
	if got := rule.AllowedList(Left); !slices.Equal(got, []TileKind{"horizontal"}) {
		t.Errorf("tee_up_down_left left = %v, want [horizontal]", got)
	}
	if got := rule.AllowedList(Right); !slices.Equal(got, []TileKind{"house"}) {
		t.Errorf("tee_up_down_left right = %v, want [house]", got)
	}

	for _, kind := range catalog.Kinds() {
		rule, _ := catalog.Rule(kind)
		if rule.Weight != 1 {
			t.Errorf("%s weight = %v, want 1", kind, rule.Weight)
		}
	}
}

func TestBindRolesErrors(t *testing.T) {
	four, _ := roleKinds(FourTiles)
	twelve, _ := roleKinds(TwelveTiles)

	tests := []struct {
		name       string
		complexity Complexity
		kinds      []TileKind
		house      TileKind
	}{
		{"short list", FourTiles, four[:3], ""},
		{"long list", FourTiles, append(slices.Clone(four), "extra"), ""},
		{"house mismatch", FourTiles, four, "cottage"},
		{"twelve without house", TwelveTiles, twelve, ""},
		{"unknown complexity", Complexity(9), four, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BindRoles(tt.complexity, tt.kinds, tt.house)
			if !errors.Is(err, ErrMalformedCatalog) {
				t.Errorf("BindRoles() error = %v, want ErrMalformedCatalog", err)
			}
		})
	}

	if _, err := BindRoles(FourTiles, four, "house"); err != nil {
		t.Errorf("BindRoles() with matching house failed: %v", err)
	}
}

func TestBuildCatalogErrors(t *testing.T) {
	valid := func() map[Role]TileKind {
		kinds, house := roleKinds(FourTiles)
		b, _ := BindRoles(FourTiles, kinds, house)
		return b
	}

	missing := valid()
	delete(missing, RoleCross)

	empty := valid()
	empty[RoleVertical] = ""

	duplicate := valid()
	duplicate[RoleVertical] = "horizontal"

	extra := valid()
	extra[RoleTeeUpDownLeft] = "tee"

	tests := []struct {
		name     string
		bindings map[Role]TileKind
	}{
		{"missing role", missing},
		{"empty kind", empty},
		{"duplicate kind", duplicate},
		{"role outside complexity", extra},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := BuildCatalog(FourTiles, tt.bindings)
			if !errors.Is(err, ErrMalformedCatalog) {
				t.Errorf("BuildCatalog() error = %v, want ErrMalformedCatalog", err)
			}
		})
	}
}

func TestNewCatalogErrors(t *testing.T) {
	house := NewTileRule("house", RoleHouse, "House", 1)
	road := NewTileRule("road", RoleHorizontal, "Road", 1)

	stray := NewTileRule("road", RoleHorizontal, "Road", 1)
	stray.Allow(Up, "ghost")

	tests := []struct {
		name  string
		house TileKind
		rules []*TileRule
	}{
		{"no rules", "house", nil},
		{"missing house", "cottage", []*TileRule{house, road}},
		{"duplicate kind", "house", []*TileRule{house, road, road}},
		{"zero weight", "house", []*TileRule{house, NewTileRule("road", RoleHorizontal, "Road", 0)}},
		{"unknown neighbor", "house", []*TileRule{house, stray}},
		{"nil rule", "house", []*TileRule{house, nil}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.house, tt.rules...)
			if !errors.Is(err, ErrMalformedCatalog) {
				t.Errorf("NewCatalog() error = %v, want ErrMalformedCatalog", err)
			}
		})
	}
}

func TestCatalogKindFor(t *testing.T) {
	catalog := mustCatalog(t, EightTiles)

	kind, ok := catalog.KindFor(RoleCornerUpLeft)
	if !ok || kind != "corner_up_left" {
		t.Errorf("KindFor(corner_up_left) = %q, %v", kind, ok)
	}
	if _, ok := catalog.KindFor(RoleTeeUpDownLeft); ok {
		t.Error("eight tile catalog should have no T-junction")
	}
}
