package wfc

import "slices"

// TileKind identifies one placeable tile variant. The value is opaque to the
// solver; callers pick whatever names their renderer understands.
type TileKind string

// Role describes what a tile kind represents in a village
type Role int

const (
	RoleHorizontal       Role = iota // Straight road, left to right
	RoleVertical                     // Straight road, up to down
	RoleCross                        // Four-way intersection
	RoleCornerDownLeft               // Turn joining the road below with the road to the left
	RoleCornerDownRight              // Turn joining the road below with the road to the right
	RoleCornerUpLeft                 // Turn joining the road above with the road to the left
	RoleCornerUpRight                // Turn joining the road above with the road to the right
	RoleTeeDownLeftRight             // T-junction open down, left and right
	RoleTeeUpDownLeft                // T-junction open up, down and left
	RoleTeeUpDownRight               // T-junction open up, down and right
	RoleTeeUpLeftRight               // T-junction open up, left and right
	RoleHouse                        // Building plot, no road
)

var roleNames = map[Role]string{
	RoleHorizontal:       "horizontal",
	RoleVertical:         "vertical",
	RoleCross:            "cross",
	RoleCornerDownLeft:   "corner_down_left",
	RoleCornerDownRight:  "corner_down_right",
	RoleCornerUpLeft:     "corner_up_left",
	RoleCornerUpRight:    "corner_up_right",
	RoleTeeDownLeftRight: "tee_down_left_right",
	RoleTeeUpDownLeft:    "tee_up_down_left",
	RoleTeeUpDownRight:   "tee_up_down_right",
	RoleTeeUpLeftRight:   "tee_up_left_right",
	RoleHouse:            "house",
}

// String returns the string representation of a Role
func (r Role) String() string {
	if name, ok := roleNames[r]; ok {
		return name
	}
	return "unknown"
}

// ParseRole converts a role name back into a Role
func ParseRole(name string) (Role, bool) {
	for r, n := range roleNames {
		if n == name {
			return r, true
		}
	}
	return 0, false
}

// IsRoad returns true for every role except the house
func (r Role) IsRoad() bool {
	return r != RoleHouse
}

// Exits returns the directions in which a tile of this role exposes a road
func (r Role) Exits() []Direction {
	switch r {
	case RoleHorizontal:
		return []Direction{Left, Right}
	case RoleVertical:
		return []Direction{Up, Down}
	case RoleCross:
		return []Direction{Up, Right, Down, Left}
	case RoleCornerDownLeft:
		return []Direction{Down, Left}
	case RoleCornerDownRight:
		return []Direction{Right, Down}
	case RoleCornerUpLeft:
		return []Direction{Up, Left}
	case RoleCornerUpRight:
		return []Direction{Up, Right}
	case RoleTeeDownLeftRight:
		return []Direction{Right, Down, Left}
	case RoleTeeUpDownLeft:
		return []Direction{Up, Down, Left}
	case RoleTeeUpDownRight:
		return []Direction{Up, Right, Down}
	case RoleTeeUpLeftRight:
		return []Direction{Up, Right, Left}
	default:
		return nil
	}
}

// HasExit returns true if the role exposes a road in the given direction
func (r Role) HasExit(dir Direction) bool {
	return slices.Contains(r.Exits(), dir)
}

// Direction represents one of the four grid neighbors.
// Up points towards larger y.
type Direction int

const (
	Up Direction = iota
	Right
	Down
	Left
)

// String returns the string representation of a Direction
func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Right:
		return "right"
	case Down:
		return "down"
	case Left:
		return "left"
	default:
		return "unknown"
	}
}

// Opposite returns the opposite direction
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Right:
		return Left
	case Down:
		return Up
	case Left:
		return Right
	default:
		return d
	}
}

// Offset returns the coordinate delta of a step in this direction
func (d Direction) Offset() (dx, dy int) {
	switch d {
	case Up:
		return 0, 1
	case Right:
		return 1, 0
	case Down:
		return 0, -1
	case Left:
		return -1, 0
	}
	return 0, 0
}

// AllDirections returns all four directions
func AllDirections() []Direction {
	return []Direction{Up, Right, Down, Left}
}

// Placement records one collapsed cell, in the order cells were collapsed
type Placement struct {
	X, Y int
	Kind TileKind
}

// Centered returns the placement position shifted so the grid center sits at the origin
func (p Placement) Centered(width, height int) (int, int) {
	return p.X - width/2, p.Y - height/2
}
