package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/lawnchairsociety/villagegen/internal/config"
	"github.com/lawnchairsociety/villagegen/internal/render"
	"github.com/lawnchairsociety/villagegen/internal/village"
	"github.com/lawnchairsociety/villagegen/internal/wfc"
)

// GridPos is a cell position
type GridPos struct {
	X, Y int
}

func main() {
	inputFile := flag.String("input", "village.out.yaml", "Path to a village YAML export")
	configFile := flag.String("config", "village.yaml", "Village config the export was generated with")
	outputFile := flag.String("output", "", "Output file (empty for stdout)")
	showLegend := flag.Bool("legend", true, "Show legend")
	flag.Parse()

	f, err := os.Open(*inputFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading file: %v\n", err)
		os.Exit(1)
	}
	header, tiles, err := render.ReadYAML(f)
	f.Close()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing YAML: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	complexity, err := wfc.ParseComplexity(header.Complexity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	catalog, err := village.NewService(cfg, nil).Catalog(complexity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building catalog: %v\n", err)
		os.Exit(1)
	}

	output, err := renderVillage(header, tiles, catalog, cfg.Render.Glyphs, *showLegend)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *outputFile != "" {
		if err := os.WriteFile(*outputFile, []byte(output), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output file: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Map written to %s\n", *outputFile)
	} else {
		fmt.Print(output)
	}
}

func renderVillage(header render.Header, tiles []render.Tile, catalog *wfc.Catalog, glyphOverrides map[string]string, showLegend bool) (string, error) {
	var output strings.Builder

	output.WriteString(fmt.Sprintf("Village Map (Seed: %d, Size: %dx%d, Tiles: %s)\n",
		header.Seed, header.Width, header.Height, header.Complexity))
	if header.RunID != "" {
		output.WriteString(fmt.Sprintf("Run: %s\n", header.RunID))
	}
	output.WriteString(strings.Repeat("=", 60) + "\n\n")

	glyphs := render.NewGlyphSet(catalog, glyphOverrides, variantsOf(tiles))
	surface := render.NewTextSurface(header.Width, header.Height, glyphs)
	if _, err := render.Draw(surface, render.Seq(tiles)); err != nil {
		return "", err
	}
	output.WriteString(surface.String())
	output.WriteString("\n")

	v := &wfc.Village{Width: header.Width, Height: header.Height, Seed: header.Seed, Attempts: header.Attempts}
	for _, t := range tiles {
		v.Placements = append(v.Placements, t.Placement)
	}
	if err := v.Verify(catalog); err != nil {
		output.WriteString(fmt.Sprintf("WARNING: %v\n", err))
	}

	renderStats(&output, tiles, catalog)

	if showLegend {
		output.WriteString("\n")
		output.WriteString(glyphs.Legend())
	}
	return output.String(), nil
}

func renderStats(output *strings.Builder, tiles []render.Tile, catalog *wfc.Catalog) {
	counts := make(map[wfc.TileKind]int)
	for _, t := range tiles {
		counts[t.Variant]++
	}
	kinds := make([]wfc.TileKind, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool {
		if counts[kinds[i]] != counts[kinds[j]] {
			return counts[kinds[i]] > counts[kinds[j]]
		}
		return kinds[i] < kinds[j]
	})

	output.WriteString("Tile counts:\n")
	for _, k := range kinds {
		output.WriteString(fmt.Sprintf("  %-20s %d\n", k, counts[k]))
	}

	networks := roadNetworks(tiles, catalog)
	output.WriteString(fmt.Sprintf("Road networks: %d", len(networks)))
	if len(networks) > 0 {
		sizes := make([]string, len(networks))
		for i, n := range networks {
			sizes[i] = fmt.Sprint(len(n))
		}
		output.WriteString(" (sizes: " + strings.Join(sizes, ", ") + ")")
	}
	output.WriteString("\n")
}

// roadNetworks groups road cells into networks joined by facing exits,
// largest first
func roadNetworks(tiles []render.Tile, catalog *wfc.Catalog) [][]GridPos {
	roles := make(map[GridPos]wfc.Role)
	for _, t := range tiles {
		rule, ok := catalog.Rule(t.Kind)
		if !ok || !rule.Role.IsRoad() {
			continue
		}
		roles[GridPos{t.X, t.Y}] = rule.Role
	}

	visited := make(map[GridPos]bool)
	var networks [][]GridPos
	for _, t := range tiles {
		start := GridPos{t.X, t.Y}
		if _, isRoad := roles[start]; !isRoad || visited[start] {
			continue
		}

		// BFS over connected road exits
		var network []GridPos
		queue := []GridPos{start}
		visited[start] = true
		for len(queue) > 0 {
			pos := queue[0]
			queue = queue[1:]
			network = append(network, pos)

			for _, dir := range roles[pos].Exits() {
				dx, dy := dir.Offset()
				next := GridPos{pos.X + dx, pos.Y + dy}
				role, isRoad := roles[next]
				if !isRoad || visited[next] || !role.HasExit(dir.Opposite()) {
					continue
				}
				visited[next] = true
				queue = append(queue, next)
			}
		}
		networks = append(networks, network)
	}

	sort.SliceStable(networks, func(i, j int) bool {
		return len(networks[i]) > len(networks[j])
	})
	return networks
}

func variantsOf(tiles []render.Tile) []wfc.TileKind {
	seen := make(map[wfc.TileKind]bool)
	var variants []wfc.TileKind
	for _, t := range tiles {
		if t.Variant != t.Kind && !seen[t.Variant] {
			seen[t.Variant] = true
			variants = append(variants, t.Variant)
		}
	}
	return variants
}
