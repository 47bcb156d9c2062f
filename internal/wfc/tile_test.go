package wfc

import "testing"

func TestDirectionOpposite(t *testing.T) {
	tests := []struct {
		dir  Direction
		want Direction
	}{
		{Up, Down},
		{Down, Up},
		{Left, Right},
		{Right, Left},
	}

	for _, tt := range tests {
		if got := tt.dir.Opposite(); got != tt.want {
			t.Errorf("%s.Opposite() = %s, want %s", tt.dir, got, tt.want)
		}
	}
}

func TestDirectionOffset(t *testing.T) {
	tests := []struct {
		dir    Direction
		dx, dy int
	}{
		{Up, 0, 1},
		{Right, 1, 0},
		{Down, 0, -1},
		{Left, -1, 0},
	}

	for _, tt := range tests {
		dx, dy := tt.dir.Offset()
		if dx != tt.dx || dy != tt.dy {
			t.Errorf("%s.Offset() = (%d,%d), want (%d,%d)", tt.dir, dx, dy, tt.dx, tt.dy)
		}
		ox, oy := tt.dir.Opposite().Offset()
		if dx+ox != 0 || dy+oy != 0 {
			t.Errorf("%s and its opposite do not cancel out", tt.dir)
		}
	}
}

func TestRoleNamesRoundTrip(t *testing.T) {
	for role := RoleHorizontal; role <= RoleHouse; role++ {
		name := role.String()
		if name == "unknown" {
			t.Errorf("role %d has no name", role)
			continue
		}
		got, ok := ParseRole(name)
		if !ok || got != role {
			t.Errorf("ParseRole(%q) = %v, %v, want %v, true", name, got, ok, role)
		}
	}

	if _, ok := ParseRole("castle"); ok {
		t.Error("ParseRole(castle) should fail")
	}
}

func TestRoleExits(t *testing.T) {
	tests := []struct {
		role  Role
		exits int
	}{
		{RoleHorizontal, 2},
		{RoleVertical, 2},
		{RoleCross, 4},
		{RoleCornerDownLeft, 2},
		{RoleTeeUpDownLeft, 3},
		{RoleHouse, 0},
	}

	for _, tt := range tests {
		if got := len(tt.role.Exits()); got != tt.exits {
			t.Errorf("%s has %d exits, want %d", tt.role, got, tt.exits)
		}
	}

	if !RoleCornerDownLeft.HasExit(Down) || !RoleCornerDownLeft.HasExit(Left) {
		t.Error("corner_down_left should exit down and left")
	}
	if RoleCornerDownLeft.HasExit(Up) {
		t.Error("corner_down_left should not exit up")
	}
	if RoleHouse.IsRoad() {
		t.Error("house is not a road")
	}
	if !RoleTeeUpLeftRight.IsRoad() {
		t.Error("tee_up_left_right is a road")
	}
}

func TestPlacementCentered(t *testing.T) {
	p := Placement{X: 0, Y: 0, Kind: "h"}
	x, y := p.Centered(10, 6)
	if x != -5 || y != -3 {
		t.Errorf("Centered() = (%d,%d), want (-5,-3)", x, y)
	}

	p = Placement{X: 5, Y: 3}
	x, y = p.Centered(10, 6)
	if x != 0 || y != 0 {
		t.Errorf("Centered() = (%d,%d), want (0,0)", x, y)
	}
}
