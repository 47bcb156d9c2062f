package render

import (
	"fmt"
	"io"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/lawnchairsociety/villagegen/internal/wfc"
)

// Header describes the generation a YAML export came from
type Header struct {
	RunID      string `yaml:"run_id,omitempty"`
	Width      int    `yaml:"width"`
	Height     int    `yaml:"height"`
	Seed       int64  `yaml:"seed"`
	Complexity string `yaml:"complexity"`
	Attempts   int    `yaml:"attempts"`
}

// villageYAML is the document layout, metadata first and placements last
type villageYAML struct {
	Header     `yaml:",inline"`
	Placements yaml.Node `yaml:"placements"`
}

// WriteYAML writes the tiles in collapse order, one flow mapping per placement
func WriteYAML(w io.Writer, h Header, tiles []Tile) error {
	fmt.Fprintf(w, "# Village %dx%d (%s tiles)\n", h.Width, h.Height, h.Complexity)
	fmt.Fprintf(w, "# Generated with seed: %d\n", h.Seed)
	fmt.Fprintf(w, "# Placements: %d\n\n", len(tiles))

	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)

	doc := &villageYAML{
		Header:     h,
		Placements: placementsNode(tiles),
	}
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("failed to encode YAML: %w", err)
	}
	return encoder.Close()
}

func placementsNode(tiles []Tile) yaml.Node {
	node := yaml.Node{Kind: yaml.SequenceNode}
	for i, t := range tiles {
		item := &yaml.Node{Kind: yaml.MappingNode, Style: yaml.FlowStyle}
		addIntField(item, "step", i)
		addIntField(item, "x", t.X)
		addIntField(item, "y", t.Y)
		addStringField(item, "tile", string(t.Kind))
		if t.Variant != t.Kind {
			addStringField(item, "variant", string(t.Variant))
		}
		node.Content = append(node.Content, item)
	}
	return node
}

func addStringField(node *yaml.Node, key, value string) {
	node.Content = append(node.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: value},
	)
}

func addIntField(node *yaml.Node, key string, value int) {
	node.Content = append(node.Content,
		&yaml.Node{Kind: yaml.ScalarNode, Value: key},
		&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!int", Value: strconv.Itoa(value)},
	)
}

// ReadYAML parses a document written by WriteYAML. Tiles come back in collapse order.
func ReadYAML(r io.Reader) (Header, []Tile, error) {
	var doc struct {
		Header     `yaml:",inline"`
		Placements []struct {
			Step    int    `yaml:"step"`
			X       int    `yaml:"x"`
			Y       int    `yaml:"y"`
			Tile    string `yaml:"tile"`
			Variant string `yaml:"variant"`
		} `yaml:"placements"`
	}
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return Header{}, nil, fmt.Errorf("failed to decode YAML: %w", err)
	}

	tiles := make([]Tile, len(doc.Placements))
	for i, p := range doc.Placements {
		if p.Step != i {
			return doc.Header, nil, fmt.Errorf("placement %d has step %d", i, p.Step)
		}
		variant := p.Variant
		if variant == "" {
			variant = p.Tile
		}
		tiles[i] = Tile{
			Placement: wfc.Placement{X: p.X, Y: p.Y, Kind: wfc.TileKind(p.Tile)},
			Variant:   wfc.TileKind(variant),
		}
	}
	return doc.Header, tiles, nil
}
