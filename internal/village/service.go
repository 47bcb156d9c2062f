// Package village ties generation, house variants and the run journal together.
// The command line tool and the playback server both generate through a Service.
package village

import (
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/lawnchairsociety/villagegen/internal/config"
	"github.com/lawnchairsociety/villagegen/internal/database"
	"github.com/lawnchairsociety/villagegen/internal/logger"
	"github.com/lawnchairsociety/villagegen/internal/render"
	"github.com/lawnchairsociety/villagegen/internal/wfc"
)

// ErrJournalDisabled is returned by journal lookups when no journal is attached.
var ErrJournalDisabled = errors.New("village: run journal is disabled")

// Journal stores run metadata. *database.Database implements it.
type Journal interface {
	RecordRun(run *database.Run) error
	GetRun(id string) (*database.Run, error)
	ListRuns(limit int) ([]database.Run, error)
	Stats() (*database.RunStats, error)
}

// Request describes one village to generate
type Request struct {
	Width       int
	Height      int
	Complexity  wfc.Complexity
	MaxAttempts int
	Seed        int64
}

// Result is a generated village with its house variants resolved
type Result struct {
	Run     *database.Run
	Village *wfc.Village
	Catalog *wfc.Catalog
	Tiles   []render.Tile
}

// Header returns the YAML export header for the result
func (r *Result) Header() render.Header {
	return render.Header{
		RunID:      r.Run.ID,
		Width:      r.Village.Width,
		Height:     r.Village.Height,
		Seed:       r.Village.Seed,
		Complexity: r.Run.Complexity,
		Attempts:   r.Village.Attempts,
	}
}

// Service generates villages from a loaded configuration
type Service struct {
	cfg      *config.Config
	journal  Journal
	variants []wfc.TileKind
}

// NewService creates a service. journal may be nil to skip recording runs.
func NewService(cfg *config.Config, journal Journal) *Service {
	variants := make([]wfc.TileKind, 0, len(cfg.HouseVariants))
	for _, v := range cfg.HouseVariants {
		variants = append(variants, wfc.TileKind(v))
	}
	return &Service{
		cfg:      cfg,
		journal:  journal,
		variants: variants,
	}
}

// Config returns the configuration the service was built from
func (s *Service) Config() *config.Config {
	return s.cfg
}

// HouseVariants returns the configured house variants
func (s *Service) HouseVariants() []wfc.TileKind {
	return s.variants
}

// DefaultRequest returns a request for the configured village, resolving the seed
func (s *Service) DefaultRequest() (Request, error) {
	complexity, err := s.cfg.Complexity()
	if err != nil {
		return Request{}, err
	}
	return Request{
		Width:       s.cfg.Village.Width,
		Height:      s.cfg.Village.Height,
		Complexity:  complexity,
		MaxAttempts: s.cfg.Village.MaxAttempts,
		Seed:        s.cfg.Village.ResolveSeed(),
	}, nil
}

// Catalog builds the catalog for a complexity with the configured tile kinds
func (s *Service) Catalog(complexity wfc.Complexity) (*wfc.Catalog, error) {
	return wfc.BuildCatalog(complexity, s.cfg.Bindings(complexity))
}

// Generate builds a village and records the run. Runs that exhaust their
// attempts are recorded as failures before the error is returned.
func (s *Service) Generate(req Request) (*Result, error) {
	catalog, err := s.Catalog(req.Complexity)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	village, err := wfc.Generate(req.Width, req.Height, catalog, req.MaxAttempts, req.Seed)
	elapsed := time.Since(start)

	run := &database.Run{
		Seed:        req.Seed,
		Width:       req.Width,
		Height:      req.Height,
		Complexity:  req.Complexity.String(),
		MaxAttempts: req.MaxAttempts,
		Duration:    elapsed,
	}

	if err != nil {
		if !errors.Is(err, wfc.ErrGenerationExhausted) {
			return nil, err
		}
		run.Attempts = req.MaxAttempts
		run.Error = err.Error()
		s.record(run)
		logger.Audit("Village generation failed",
			"run_id", run.ID,
			"seed", req.Seed,
			"width", req.Width,
			"height", req.Height,
			"complexity", run.Complexity,
			"attempts", req.MaxAttempts)
		return nil, err
	}

	run.Attempts = village.Attempts
	run.Succeeded = true
	s.record(run)

	logger.Audit("Village generated",
		"run_id", run.ID,
		"seed", req.Seed,
		"width", req.Width,
		"height", req.Height,
		"complexity", run.Complexity,
		"attempts", village.Attempts,
		"duration", elapsed)

	resolver := render.NewHouseResolver(catalog.House(), s.variants, rand.New(rand.NewSource(req.Seed)))

	return &Result{
		Run:     run,
		Village: village,
		Catalog: catalog,
		Tiles:   resolver.Tiles(village.All()),
	}, nil
}

// Replay regenerates a journaled run. The village is identical to the original
// as long as the tile configuration has not changed since.
func (s *Service) Replay(id string) (*Result, error) {
	if s.journal == nil {
		return nil, ErrJournalDisabled
	}
	run, err := s.journal.GetRun(id)
	if err != nil {
		return nil, err
	}
	complexity, err := wfc.ParseComplexity(run.Complexity)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", id, err)
	}

	catalog, err := s.Catalog(complexity)
	if err != nil {
		return nil, err
	}
	village, err := wfc.Generate(run.Width, run.Height, catalog, run.MaxAttempts, run.Seed)
	if err != nil {
		return nil, fmt.Errorf("replay of run %s: %w", id, err)
	}
	if run.Succeeded && village.Attempts != run.Attempts {
		logger.Warning("Replay diverged from journal",
			"run_id", id,
			"journal_attempts", run.Attempts,
			"replay_attempts", village.Attempts)
	}

	logger.Info("Village replayed", "run_id", id, "seed", run.Seed, "attempts", village.Attempts)

	resolver := render.NewHouseResolver(catalog.House(), s.variants, rand.New(rand.NewSource(run.Seed)))

	return &Result{
		Run:     run,
		Village: village,
		Catalog: catalog,
		Tiles:   resolver.Tiles(village.All()),
	}, nil
}

// Runs lists the most recent journaled runs
func (s *Service) Runs(limit int) ([]database.Run, error) {
	if s.journal == nil {
		return nil, ErrJournalDisabled
	}
	return s.journal.ListRuns(limit)
}

// Run returns one journaled run
func (s *Service) Run(id string) (*database.Run, error) {
	if s.journal == nil {
		return nil, ErrJournalDisabled
	}
	return s.journal.GetRun(id)
}

// Stats summarizes the journal
func (s *Service) Stats() (*database.RunStats, error) {
	if s.journal == nil {
		return nil, ErrJournalDisabled
	}
	return s.journal.Stats()
}

// record stores the run, logging instead of failing when the journal is unavailable
func (s *Service) record(run *database.Run) {
	if s.journal == nil {
		return
	}
	if err := s.journal.RecordRun(run); err != nil {
		logger.Warning("Failed to record village run", "seed", run.Seed, "error", err)
	}
}
