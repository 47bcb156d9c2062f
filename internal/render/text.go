package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/lawnchairsociety/villagegen/internal/wfc"
)

const (
	emptyGlyph   = "·"
	unknownGlyph = "?"
)

var defaultGlyphs = map[wfc.Role]string{
	wfc.RoleHorizontal:       "─",
	wfc.RoleVertical:         "│",
	wfc.RoleCross:            "┼",
	wfc.RoleCornerDownLeft:   "┐",
	wfc.RoleCornerDownRight:  "┌",
	wfc.RoleCornerUpLeft:     "┘",
	wfc.RoleCornerUpRight:    "└",
	wfc.RoleTeeDownLeftRight: "┬",
	wfc.RoleTeeUpDownLeft:    "┤",
	wfc.RoleTeeUpDownRight:   "├",
	wfc.RoleTeeUpLeftRight:   "┴",
	wfc.RoleHouse:            "■",
}

// DefaultGlyph returns the box-drawing character for a role
func DefaultGlyph(role wfc.Role) string {
	if g, ok := defaultGlyphs[role]; ok {
		return g
	}
	return unknownGlyph
}

type legendEntry struct {
	glyph string
	label string
}

// GlyphSet maps tile kinds to the characters drawn for them
type GlyphSet struct {
	byKind map[wfc.TileKind]string
	legend []legendEntry
}

// NewGlyphSet builds glyphs for every kind of the catalog. overrides replaces the
// glyph of a role by role name. House variants share the house glyph.
func NewGlyphSet(catalog *wfc.Catalog, overrides map[string]string, variants []wfc.TileKind) *GlyphSet {
	g := &GlyphSet{byKind: make(map[wfc.TileKind]string)}

	for _, kind := range catalog.Kinds() {
		rule, _ := catalog.Rule(kind)
		glyph := DefaultGlyph(rule.Role)
		if o, ok := overrides[rule.Role.String()]; ok && o != "" {
			glyph = o
		}
		g.byKind[kind] = glyph
		g.legend = append(g.legend, legendEntry{glyph: glyph, label: rule.Name})
	}

	house := g.byKind[catalog.House()]
	for _, v := range variants {
		if _, ok := g.byKind[v]; !ok {
			g.byKind[v] = house
		}
	}

	return g
}

// Glyph returns the character for a kind
func (g *GlyphSet) Glyph(kind wfc.TileKind) string {
	if glyph, ok := g.byKind[kind]; ok {
		return glyph
	}
	return unknownGlyph
}

// Legend lists every glyph with the name of its tile
func (g *GlyphSet) Legend() string {
	var b strings.Builder
	b.WriteString("Legend:\n")
	for _, e := range g.legend {
		fmt.Fprintf(&b, "  %s  %s\n", e.glyph, e.label)
	}
	fmt.Fprintf(&b, "  %s  Not yet placed\n", emptyGlyph)
	return b.String()
}

// TextSurface draws a village as a grid of characters. The top printed row is
// the highest y.
type TextSurface struct {
	Width, Height int

	glyphs *GlyphSet
	cells  [][]wfc.TileKind
}

// NewTextSurface creates an empty text surface
func NewTextSurface(width, height int, glyphs *GlyphSet) *TextSurface {
	cells := make([][]wfc.TileKind, height)
	for y := range cells {
		cells[y] = make([]wfc.TileKind, width)
	}
	return &TextSurface{
		Width:  width,
		Height: height,
		glyphs: glyphs,
		cells:  cells,
	}
}

// SetTile records the kind at (x, y)
func (s *TextSurface) SetTile(x, y int, kind wfc.TileKind) error {
	if x < 0 || x >= s.Width || y < 0 || y >= s.Height {
		return fmt.Errorf("tile (%d,%d) outside %dx%d surface", x, y, s.Width, s.Height)
	}
	s.cells[y][x] = kind
	return nil
}

// Kind returns the kind drawn at (x, y), or "" if nothing is there yet
func (s *TextSurface) Kind(x, y int) wfc.TileKind {
	return s.cells[y][x]
}

// String renders the grid, one line per row
func (s *TextSurface) String() string {
	var b strings.Builder
	for y := s.Height - 1; y >= 0; y-- {
		for x := 0; x < s.Width; x++ {
			kind := s.cells[y][x]
			if kind == "" {
				b.WriteString(emptyGlyph)
			} else {
				b.WriteString(s.glyphs.Glyph(kind))
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// WriteTo writes the rendered grid to w
func (s *TextSurface) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, s.String())
	return int64(n), err
}
