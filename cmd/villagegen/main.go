package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lawnchairsociety/villagegen/internal/config"
	"github.com/lawnchairsociety/villagegen/internal/database"
	"github.com/lawnchairsociety/villagegen/internal/logger"
	"github.com/lawnchairsociety/villagegen/internal/render"
	"github.com/lawnchairsociety/villagegen/internal/village"
	"github.com/lawnchairsociety/villagegen/internal/wfc"
)

const clearScreen = "\033[H\033[2J"

type options struct {
	configFile string
	width      int
	height     int
	complexity string
	seed       int64
	phrase     string
	attempts   int
	format     string
	outputFile string
	legend     bool
	animate    bool
	delay      time.Duration
	replay     string
	listRuns   int
	noJournal  bool
}

func main() {
	var opts options
	flag.StringVar(&opts.configFile, "config", "village.yaml", "Path to village config YAML file")
	flag.IntVar(&opts.width, "width", 0, "Village width in cells (overrides config)")
	flag.IntVar(&opts.height, "height", 0, "Village height in cells (overrides config)")
	flag.StringVar(&opts.complexity, "complexity", "", "Tile catalog: four, eight or twelve (overrides config)")
	flag.Int64Var(&opts.seed, "seed", 0, "Generation seed (overrides config)")
	flag.StringVar(&opts.phrase, "phrase", "", "Seed phrase hashed into a seed (overrides config)")
	flag.IntVar(&opts.attempts, "attempts", 0, "Maximum solve attempts (overrides config)")
	flag.StringVar(&opts.format, "format", "", "Output format: text or yaml (overrides config)")
	flag.StringVar(&opts.outputFile, "output", "", "Output file (empty for stdout)")
	flag.BoolVar(&opts.legend, "legend", true, "Show legend under text output")
	flag.BoolVar(&opts.animate, "animate", false, "Draw the village step by step in the terminal")
	flag.DurationVar(&opts.delay, "delay", 0, "Pause between animated steps (default: playback.step_delay)")
	flag.StringVar(&opts.replay, "replay", "", "Regenerate a journaled run by ID")
	flag.IntVar(&opts.listRuns, "runs", 0, "List the N most recent journaled runs and exit")
	flag.BoolVar(&opts.noJournal, "no-journal", false, "Do not record this run in the journal")
	flag.Parse()

	set := make(map[string]bool)
	flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if err := run(opts, set); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(opts options, set map[string]bool) error {
	logConfig, err := logger.LoadConfig(opts.configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load logging config: %v\n", err)
	}
	if err := logger.Initialize(logConfig); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}

	cfg, err := config.LoadConfig(opts.configFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	applyFlags(cfg, opts, set)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config:\n%w", err)
	}

	var journal village.Journal
	if cfg.Journal.Enabled && !opts.noJournal {
		db, err := database.Open(cfg.Journal.Database())
		if err != nil {
			logger.Warning("Run journal unavailable, continuing without it", "driver", cfg.Journal.Driver, "error", err)
		} else {
			defer db.Close()
			journal = db
		}
	}
	svc := village.NewService(cfg, journal)

	if opts.listRuns > 0 {
		runs, err := svc.Runs(opts.listRuns)
		if err != nil {
			return err
		}
		printRuns(os.Stdout, runs)
		return nil
	}

	var result *village.Result
	if opts.replay != "" {
		result, err = svc.Replay(opts.replay)
	} else {
		req, reqErr := svc.DefaultRequest()
		if reqErr != nil {
			return reqErr
		}
		result, err = svc.Generate(req)
	}
	if err != nil {
		return err
	}

	var out io.Writer = os.Stdout
	if opts.outputFile != "" {
		f, err := os.Create(opts.outputFile)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if cfg.Render.Format == "yaml" {
		if err := render.WriteYAML(out, result.Header(), result.Tiles); err != nil {
			return err
		}
	} else if err := writeText(out, cfg, svc, result, opts); err != nil {
		return err
	}

	if opts.outputFile != "" {
		fmt.Printf("Village written to %s\n", opts.outputFile)
	}
	return nil
}

// applyFlags copies explicitly set flags over the loaded config
func applyFlags(cfg *config.Config, opts options, set map[string]bool) {
	if set["width"] {
		cfg.Village.Width = opts.width
	}
	if set["height"] {
		cfg.Village.Height = opts.height
	}
	if set["complexity"] {
		cfg.Village.Complexity = opts.complexity
	}
	if set["seed"] {
		seed := opts.seed
		cfg.Village.Seed = &seed
	}
	if set["phrase"] {
		cfg.Village.Seed = nil
		cfg.Village.SeedPhrase = opts.phrase
	}
	if set["attempts"] {
		cfg.Village.MaxAttempts = opts.attempts
	}
	if set["format"] {
		cfg.Render.Format = opts.format
	}
	if set["legend"] {
		cfg.Render.Legend = opts.legend
	}
	if set["delay"] {
		cfg.Playback.StepDelay = opts.delay
	}
}

func writeText(out io.Writer, cfg *config.Config, svc *village.Service, result *village.Result, opts options) error {
	h := result.Header()
	glyphs := render.NewGlyphSet(result.Catalog, cfg.Render.Glyphs, svc.HouseVariants())
	surface := render.NewTextSurface(h.Width, h.Height, glyphs)

	title := fmt.Sprintf("Village %dx%d (%s tiles, seed %d, %d attempt(s))\n",
		h.Width, h.Height, h.Complexity, h.Seed, h.Attempts)

	if opts.animate && opts.outputFile == "" {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		frame := render.SurfaceFunc(func(x, y int, kind wfc.TileKind) error {
			if err := surface.SetTile(x, y, kind); err != nil {
				return err
			}
			_, err := fmt.Fprint(out, clearScreen+title+surface.String())
			return err
		})
		if _, err := render.Play(ctx, frame, render.Seq(result.Tiles), cfg.Playback.StepDelay); err != nil {
			return err
		}
		fmt.Fprint(out, clearScreen)
	} else if _, err := render.Draw(surface, render.Seq(result.Tiles)); err != nil {
		return err
	}

	var b strings.Builder
	b.WriteString(title)
	if h.RunID != "" {
		fmt.Fprintf(&b, "Run: %s\n", h.RunID)
	}
	b.WriteString(strings.Repeat("=", max(h.Width, len(title)-1)) + "\n")
	b.WriteString(surface.String())
	if cfg.Render.Legend {
		b.WriteString("\n")
		b.WriteString(glyphs.Legend())
	}
	_, err := io.WriteString(out, b.String())
	return err
}

func printRuns(out io.Writer, runs []database.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded")
		return
	}
	fmt.Fprintf(out, "%-36s  %-19s  %-7s  %-7s  %8s  %20s  %s\n",
		"ID", "CREATED", "SIZE", "TILES", "ATTEMPTS", "SEED", "RESULT")
	for _, r := range runs {
		outcome := "ok"
		if !r.Succeeded {
			outcome = "failed"
		}
		fmt.Fprintf(out, "%-36s  %-19s  %-7s  %-7s  %8d  %20d  %s\n",
			r.ID,
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			fmt.Sprintf("%dx%d", r.Width, r.Height),
			r.Complexity,
			r.Attempts,
			r.Seed,
			outcome)
	}
}
