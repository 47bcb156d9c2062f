package wfc

import (
	"fmt"
	"math"
	"slices"

	"github.com/zyedidia/generic/mapset"
)

// Complexity selects which tile catalog a village is built from
type Complexity int

const (
	FourTiles   Complexity = iota // Straight roads, crossings and houses
	EightTiles                    // Adds the four corner turns
	TwelveTiles                   // Adds T-junctions; adjacency derived from road exits
)

// String returns the string representation of a Complexity
func (c Complexity) String() string {
	switch c {
	case FourTiles:
		return "four"
	case EightTiles:
		return "eight"
	case TwelveTiles:
		return "twelve"
	default:
		return "unknown"
	}
}

// ParseComplexity converts "four", "eight" or "twelve" (or 4, 8, 12) into a Complexity
func ParseComplexity(s string) (Complexity, error) {
	switch s {
	case "four", "4":
		return FourTiles, nil
	case "eight", "8":
		return EightTiles, nil
	case "twelve", "12":
		return TwelveTiles, nil
	}
	return 0, fmt.Errorf("unknown complexity %q", s)
}

// TileRule holds the weight and directional adjacency of one tile kind.
// Allowed[d] lists the kinds that may occupy the neighboring cell in direction d.
type TileRule struct {
	Kind    TileKind
	Role    Role
	Name    string
	Weight  float64
	Allowed [4]mapset.Set[TileKind]
}

// NewTileRule creates a rule with empty allowed-sets
func NewTileRule(kind TileKind, role Role, name string, weight float64) *TileRule {
	r := &TileRule{
		Kind:   kind,
		Role:   role,
		Name:   name,
		Weight: weight,
	}
	for _, dir := range AllDirections() {
		r.Allowed[dir] = mapset.New[TileKind]()
	}
	return r
}

// Allow adds kinds to the allowed-set for a direction
func (r *TileRule) Allow(dir Direction, kinds ...TileKind) {
	for _, k := range kinds {
		r.Allowed[dir].Put(k)
	}
}

// Allows returns true if kind may sit next to this tile in the given direction
func (r *TileRule) Allows(dir Direction, kind TileKind) bool {
	return r.Allowed[dir].Has(kind)
}

// AllowedList returns the allowed-set for a direction as a sorted slice
func (r *TileRule) AllowedList(dir Direction) []TileKind {
	out := make([]TileKind, 0, r.Allowed[dir].Size())
	r.Allowed[dir].Each(func(k TileKind) {
		out = append(out, k)
	})
	slices.Sort(out)
	return out
}

// Catalog maps every tile kind of a generation run to its rule.
// It is read-only once built and may be shared by any number of attempts.
type Catalog struct {
	rules map[TileKind]*TileRule
	kinds []TileKind // stable iteration order
	house TileKind
}

// NewCatalog assembles a catalog from explicit rules.
// The house kind must be one of the rules. Allowed-sets may only name kinds in the catalog.
func NewCatalog(house TileKind, rules ...*TileRule) (*Catalog, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("%w: no tile rules", ErrMalformedCatalog)
	}

	c := &Catalog{
		rules: make(map[TileKind]*TileRule, len(rules)),
		kinds: make([]TileKind, 0, len(rules)),
		house: house,
	}
	for _, r := range rules {
		if r == nil || r.Kind == "" {
			return nil, fmt.Errorf("%w: rule without a tile kind", ErrMalformedCatalog)
		}
		if _, dup := c.rules[r.Kind]; dup {
			return nil, fmt.Errorf("%w: duplicate tile kind %q", ErrMalformedCatalog, r.Kind)
		}
		if r.Weight <= 0 || math.IsInf(r.Weight, 0) || math.IsNaN(r.Weight) {
			return nil, fmt.Errorf("%w: tile %q has invalid weight %v", ErrMalformedCatalog, r.Kind, r.Weight)
		}
		c.rules[r.Kind] = r
		c.kinds = append(c.kinds, r.Kind)
	}

	if _, ok := c.rules[house]; !ok {
		return nil, fmt.Errorf("%w: house tile %q is not in the catalog", ErrMalformedCatalog, house)
	}

	for _, r := range rules {
		for _, dir := range AllDirections() {
			var unknown TileKind
			r.Allowed[dir].Each(func(k TileKind) {
				if _, ok := c.rules[k]; !ok && unknown == "" {
					unknown = k
				}
			})
			if unknown != "" {
				return nil, fmt.Errorf("%w: tile %q allows unknown tile %q %s",
					ErrMalformedCatalog, r.Kind, unknown, dir)
			}
		}
	}

	return c, nil
}

// Rule returns the rule for a tile kind
func (c *Catalog) Rule(kind TileKind) (*TileRule, bool) {
	r, ok := c.rules[kind]
	return r, ok
}

// Kinds returns every tile kind in catalog order
func (c *Catalog) Kinds() []TileKind {
	return slices.Clone(c.kinds)
}

// Roads returns every tile kind except the house, in catalog order
func (c *Catalog) Roads() []TileKind {
	roads := make([]TileKind, 0, len(c.kinds))
	for _, k := range c.kinds {
		if k != c.house {
			roads = append(roads, k)
		}
	}
	return roads
}

// House returns the generic house tile kind
func (c *Catalog) House() TileKind {
	return c.house
}

// Len returns the number of tile kinds
func (c *Catalog) Len() int {
	return len(c.kinds)
}

// KindFor returns the tile kind bound to a role
func (c *Catalog) KindFor(role Role) (TileKind, bool) {
	for _, k := range c.kinds {
		if c.rules[k].Role == role {
			return k, true
		}
	}
	return "", false
}

// Allows reports whether to may sit in direction dir of from
func (c *Catalog) Allows(from TileKind, dir Direction, to TileKind) bool {
	r, ok := c.rules[from]
	if !ok {
		return false
	}
	return r.Allows(dir, to)
}

// RolesFor returns the fixed role order a tile list must follow for the given complexity.
// The four and eight tile lists end with the house. The twelve tile list has no house;
// it is supplied separately.
func RolesFor(c Complexity) []Role {
	switch c {
	case FourTiles:
		return []Role{RoleHorizontal, RoleVertical, RoleCross, RoleHouse}
	case EightTiles:
		return []Role{
			RoleHorizontal, RoleVertical, RoleCross,
			RoleCornerDownLeft, RoleCornerDownRight, RoleCornerUpLeft, RoleCornerUpRight,
			RoleHouse,
		}
	case TwelveTiles:
		return []Role{
			RoleCornerDownLeft, RoleCornerDownRight, RoleCornerUpLeft, RoleCornerUpRight,
			RoleHorizontal, RoleVertical,
			RoleTeeDownLeftRight, RoleTeeUpDownLeft, RoleTeeUpDownRight, RoleTeeUpLeftRight,
			RoleCross,
		}
	}
	return nil
}

// CatalogRoles returns every role a catalog of this complexity binds, house included
func CatalogRoles(c Complexity) []Role {
	roles := RolesFor(c)
	if c == TwelveTiles {
		roles = append(roles, RoleHouse)
	}
	return roles
}

// BindRoles turns an ordered tile list into explicit role bindings.
// For the twelve tile catalog the house is passed separately; for the others it may be
// left empty, and if given it must match the house entry of the list.
func BindRoles(c Complexity, kinds []TileKind, house TileKind) (map[Role]TileKind, error) {
	roles := RolesFor(c)
	if roles == nil {
		return nil, fmt.Errorf("%w: unknown complexity %d", ErrMalformedCatalog, c)
	}
	if len(kinds) != len(roles) {
		return nil, fmt.Errorf("%w: %s catalog needs %d tiles, got %d",
			ErrMalformedCatalog, c, len(roles), len(kinds))
	}

	bindings := make(map[Role]TileKind, len(roles)+1)
	for i, role := range roles {
		bindings[role] = kinds[i]
	}

	if c == TwelveTiles {
		if house == "" {
			return nil, fmt.Errorf("%w: twelve tile catalog needs a house tile", ErrMalformedCatalog)
		}
		bindings[RoleHouse] = house
	} else if house != "" && bindings[RoleHouse] != house {
		return nil, fmt.Errorf("%w: house %q does not match list entry %q",
			ErrMalformedCatalog, house, bindings[RoleHouse])
	}

	return bindings, nil
}

// BuildCatalog builds the compatibility catalog for a complexity from explicit role bindings.
// Every role of the complexity must be bound to a distinct, non-empty tile kind.
func BuildCatalog(c Complexity, bindings map[Role]TileKind) (*Catalog, error) {
	roles := CatalogRoles(c)
	if len(roles) == 0 {
		return nil, fmt.Errorf("%w: unknown complexity %d", ErrMalformedCatalog, c)
	}

	seen := make(map[TileKind]Role, len(roles))
	for _, role := range roles {
		kind, ok := bindings[role]
		if !ok || kind == "" {
			return nil, fmt.Errorf("%w: %s catalog is missing the %s tile", ErrMalformedCatalog, c, role)
		}
		if other, dup := seen[kind]; dup {
			return nil, fmt.Errorf("%w: tile %q bound to both %s and %s", ErrMalformedCatalog, kind, other, role)
		}
		seen[kind] = role
	}
	if len(bindings) != len(roles) {
		for role := range bindings {
			if !slices.Contains(roles, role) {
				return nil, fmt.Errorf("%w: %s catalog has no %s role", ErrMalformedCatalog, c, role)
			}
		}
	}

	b := newCatalogBuilder(bindings)
	switch c {
	case FourTiles:
		b.buildFour()
	case EightTiles:
		b.buildEight()
	case TwelveTiles:
		b.buildTwelve()
	}

	rules := make([]*TileRule, 0, len(roles))
	for _, role := range roles {
		rules = append(rules, b.rules[role])
	}
	return NewCatalog(bindings[RoleHouse], rules...)
}

// catalogBuilder declares adjacency between roles and resolves them to bound kinds
type catalogBuilder struct {
	bindings map[Role]TileKind
	rules    map[Role]*TileRule
}

func newCatalogBuilder(bindings map[Role]TileKind) *catalogBuilder {
	return &catalogBuilder{
		bindings: bindings,
		rules:    make(map[Role]*TileRule, len(bindings)),
	}
}

// tile registers the rule for a role
func (b *catalogBuilder) tile(role Role, name string, weight float64) {
	b.rules[role] = NewTileRule(b.bindings[role], role, name, weight)
}

// allow lets each of the given roles sit in direction dir of role from
func (b *catalogBuilder) allow(from Role, dir Direction, to ...Role) {
	for _, r := range to {
		b.rules[from].Allow(dir, b.bindings[r])
	}
}

func (b *catalogBuilder) buildFour() {
	b.tile(RoleHorizontal, "Horizontal Road", 1)
	b.tile(RoleVertical, "Vertical Road", 1)
	b.tile(RoleCross, "X Intersection", 0.1)
	b.tile(RoleHouse, "House", 2)

	b.allow(RoleHorizontal, Up, RoleHouse)
	b.allow(RoleHorizontal, Down, RoleHouse)
	b.allow(RoleHorizontal, Left, RoleHorizontal, RoleCross)
	b.allow(RoleHorizontal, Right, RoleHorizontal, RoleCross)

	b.allow(RoleVertical, Up, RoleVertical, RoleCross)
	b.allow(RoleVertical, Down, RoleVertical, RoleCross)
	b.allow(RoleVertical, Left, RoleHouse)
	b.allow(RoleVertical, Right, RoleHouse)

	b.allow(RoleCross, Up, RoleVertical)
	b.allow(RoleCross, Down, RoleVertical)
	b.allow(RoleCross, Left, RoleHorizontal)
	b.allow(RoleCross, Right, RoleHorizontal)

	b.allow(RoleHouse, Up, RoleHorizontal, RoleHouse)
	b.allow(RoleHouse, Down, RoleHorizontal, RoleHouse)
	b.allow(RoleHouse, Left, RoleVertical, RoleHouse)
	b.allow(RoleHouse, Right, RoleVertical, RoleHouse)
}

func (b *catalogBuilder) buildEight() {
	b.tile(RoleHorizontal, "Horizontal Road", 1)
	b.tile(RoleVertical, "Vertical Road", 1)
	b.tile(RoleCross, "X Intersection", 0.1)
	b.tile(RoleCornerDownLeft, "Down to Left Corner", 0.1)
	b.tile(RoleCornerDownRight, "Down to Right Corner", 0.1)
	b.tile(RoleCornerUpLeft, "Up to Left Corner", 0.1)
	b.tile(RoleCornerUpRight, "Up to Right Corner", 0.1)
	b.tile(RoleHouse, "House", 1.5)

	b.allow(RoleHorizontal, Up, RoleHouse)
	b.allow(RoleHorizontal, Down, RoleHouse)
	b.allow(RoleHorizontal, Left, RoleHorizontal, RoleCornerDownRight, RoleCornerUpRight, RoleCross)
	b.allow(RoleHorizontal, Right, RoleHorizontal, RoleCornerDownLeft, RoleCornerUpLeft, RoleCross)

	b.allow(RoleVertical, Up, RoleVertical, RoleCornerDownLeft, RoleCornerDownRight, RoleCross)
	b.allow(RoleVertical, Down, RoleVertical, RoleCornerUpLeft, RoleCornerUpRight, RoleCross)
	b.allow(RoleVertical, Left, RoleHouse)
	b.allow(RoleVertical, Right, RoleHouse)

	b.allow(RoleCross, Up, RoleVertical)
	b.allow(RoleCross, Down, RoleVertical)
	b.allow(RoleCross, Left, RoleHorizontal)
	b.allow(RoleCross, Right, RoleHorizontal)

	b.allow(RoleCornerDownLeft, Up, RoleHouse)
	b.allow(RoleCornerDownLeft, Down, RoleVertical)
	b.allow(RoleCornerDownLeft, Left, RoleHorizontal)
	b.allow(RoleCornerDownLeft, Right, RoleHouse)

	b.allow(RoleCornerDownRight, Up, RoleHouse)
	b.allow(RoleCornerDownRight, Down, RoleVertical)
	b.allow(RoleCornerDownRight, Left, RoleHouse)
	b.allow(RoleCornerDownRight, Right, RoleHorizontal)

	b.allow(RoleCornerUpLeft, Up, RoleVertical)
	b.allow(RoleCornerUpLeft, Down, RoleHouse)
	b.allow(RoleCornerUpLeft, Left, RoleHorizontal)
	b.allow(RoleCornerUpLeft, Right, RoleHouse)

	b.allow(RoleCornerUpRight, Up, RoleVertical)
	b.allow(RoleCornerUpRight, Down, RoleHouse)
	b.allow(RoleCornerUpRight, Left, RoleHouse)
	b.allow(RoleCornerUpRight, Right, RoleHorizontal)

	b.allow(RoleHouse, Up, RoleHorizontal, RoleCornerUpLeft, RoleCornerUpRight, RoleHouse)
	b.allow(RoleHouse, Down, RoleHorizontal, RoleCornerDownLeft, RoleCornerDownRight, RoleHouse)
	b.allow(RoleHouse, Left, RoleVertical, RoleCornerDownLeft, RoleCornerUpLeft, RoleHouse)
	b.allow(RoleHouse, Right, RoleVertical, RoleCornerDownRight, RoleCornerUpRight, RoleHouse)
}

// buildTwelve derives adjacency from road exits. A tile with a road leaving in some
// direction meets the straight road of that axis; any side without a road meets a house.
func (b *catalogBuilder) buildTwelve() {
	roles := CatalogRoles(TwelveTiles)
	for _, role := range roles {
		b.tile(role, twelveNames[role], 1)
	}

	for _, dir := range AllDirections() {
		straight := RoleVertical
		if dir == Left || dir == Right {
			straight = RoleHorizontal
		}
		for _, role := range roles {
			if role.HasExit(dir) {
				b.allow(role, dir, straight)
				b.allow(straight, dir.Opposite(), role)
			} else {
				b.allow(role, dir, RoleHouse)
				b.allow(RoleHouse, dir.Opposite(), role)
			}
		}
	}
}

var twelveNames = map[Role]string{
	RoleCornerDownLeft:   "Down to Left Corner",
	RoleCornerDownRight:  "Down to Right Corner",
	RoleCornerUpLeft:     "Up to Left Corner",
	RoleCornerUpRight:    "Up to Right Corner",
	RoleHorizontal:       "Horizontal Road",
	RoleVertical:         "Vertical Road",
	RoleTeeDownLeftRight: "Down/Left/Right Junction",
	RoleTeeUpDownLeft:    "Up/Down/Left Junction",
	RoleTeeUpDownRight:   "Up/Down/Right Junction",
	RoleTeeUpLeftRight:   "Up/Left/Right Junction",
	RoleCross:            "X Intersection",
	RoleHouse:            "House",
}
