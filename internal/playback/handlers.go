package playback

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/lawnchairsociety/villagegen/internal/config"
	"github.com/lawnchairsociety/villagegen/internal/database"
	"github.com/lawnchairsociety/villagegen/internal/logger"
	"github.com/lawnchairsociety/villagegen/internal/render"
	"github.com/lawnchairsociety/villagegen/internal/village"
	"github.com/lawnchairsociety/villagegen/internal/wfc"
)

// maxRequestBody bounds the JSON body of a generate request
const maxRequestBody = 1 << 14

var errBadRequest = errors.New("bad request")

// GenerateRequest is the body of POST /api/villages and the query of /ws/villages.
// Unset fields fall back to the server's village configuration.
type GenerateRequest struct {
	Width       int    `json:"width,omitempty"`
	Height      int    `json:"height,omitempty"`
	Complexity  string `json:"complexity,omitempty"`
	MaxAttempts int    `json:"max_attempts,omitempty"`
	Seed        *int64 `json:"seed,omitempty"`
	SeedPhrase  string `json:"seed_phrase,omitempty"`
}

// PlacementJSON is one placement as sent to clients. WorldX and WorldY put the
// grid center at the origin for clients that place tiles around a camera.
type PlacementJSON struct {
	Step    int    `json:"step"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	WorldX  int    `json:"world_x"`
	WorldY  int    `json:"world_y"`
	Tile    string `json:"tile"`
	Variant string `json:"variant,omitempty"`
}

// VillageResponse is a generated village
type VillageResponse struct {
	RunID      string          `json:"run_id,omitempty"`
	Width      int             `json:"width"`
	Height     int             `json:"height"`
	Seed       int64           `json:"seed"`
	Complexity string          `json:"complexity"`
	Attempts   int             `json:"attempts"`
	Placements []PlacementJSON `json:"placements"`
	Rows       []string        `json:"rows"`
}

// RunJSON is a journaled run
type RunJSON struct {
	ID          string    `json:"id"`
	Seed        int64     `json:"seed"`
	Width       int       `json:"width"`
	Height      int       `json:"height"`
	Complexity  string    `json:"complexity"`
	Attempts    int       `json:"attempts"`
	MaxAttempts int       `json:"max_attempts"`
	Succeeded   bool      `json:"succeeded"`
	DurationMS  int64     `json:"duration_ms"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// StatsJSON summarizes the journal
type StatsJSON struct {
	Total             int     `json:"total"`
	Succeeded         int     `json:"succeeded"`
	Failed            int     `json:"failed"`
	AverageAttempts   float64 `json:"average_attempts"`
	AverageDurationMS int64   `json:"average_duration_ms"`
}

// handleGenerate handles POST /api/villages
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var body GenerateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	req, err := s.resolveRequest(body)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.service.Generate(req)
	if err != nil {
		respondGenerateError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, s.villageResponse(result))
}

// handleReplay handles GET /api/runs/{id}/village
func (s *Server) handleReplay(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.Replay(chi.URLParam(r, "id"))
	if err != nil {
		respondJournalError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, s.villageResponse(result))
}

// handleListRuns handles GET /api/runs
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	runs, err := s.service.Runs(limit)
	if err != nil {
		respondJournalError(w, err)
		return
	}

	out := make([]RunJSON, 0, len(runs))
	for i := range runs {
		out = append(out, runJSON(&runs[i]))
	}
	respondJSON(w, http.StatusOK, out)
}

// handleGetRun handles GET /api/runs/{id}
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.service.Run(chi.URLParam(r, "id"))
	if err != nil {
		respondJournalError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, runJSON(run))
}

// handleStats handles GET /api/stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.Stats()
	if err != nil {
		respondJournalError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, StatsJSON{
		Total:             stats.Total,
		Succeeded:         stats.Succeeded,
		Failed:            stats.Failed,
		AverageAttempts:   stats.AverageAttempts,
		AverageDurationMS: stats.AverageDuration.Milliseconds(),
	})
}

// resolveRequest fills a request from the village configuration and checks it
// against the server limits
func (s *Server) resolveRequest(body GenerateRequest) (village.Request, error) {
	defaults := s.service.Config().Village

	req := village.Request{
		Width:       defaults.Width,
		Height:      defaults.Height,
		MaxAttempts: defaults.MaxAttempts,
	}
	if body.Width != 0 {
		req.Width = body.Width
	}
	if body.Height != 0 {
		req.Height = body.Height
	}
	if req.Width < 3 || req.Height < 3 {
		return req, fmt.Errorf("%w: village must be at least 3x3, got %dx%d", errBadRequest, req.Width, req.Height)
	}
	// Divide rather than multiply so huge sides cannot overflow past the limit
	if req.Width > s.cfg.MaxCells/req.Height {
		return req, fmt.Errorf("%w: %dx%d exceeds the limit of %d cells", errBadRequest, req.Width, req.Height, s.cfg.MaxCells)
	}

	if body.MaxAttempts < 0 {
		return req, fmt.Errorf("%w: max_attempts must be positive", errBadRequest)
	}
	if body.MaxAttempts > 0 && body.MaxAttempts < req.MaxAttempts {
		req.MaxAttempts = body.MaxAttempts
	}

	complexity := defaults.Complexity
	if body.Complexity != "" {
		complexity = body.Complexity
	}
	c, err := wfc.ParseComplexity(complexity)
	if err != nil {
		return req, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	req.Complexity = c

	seedSource := config.VillageConfig{Seed: body.Seed, SeedPhrase: body.SeedPhrase}
	if body.Seed == nil && body.SeedPhrase == "" {
		seedSource = defaults
	}
	req.Seed = seedSource.ResolveSeed()

	return req, nil
}

// requestFromQuery reads a generate request from URL query parameters
func requestFromQuery(q url.Values) (GenerateRequest, error) {
	var body GenerateRequest
	var err error

	if v := q.Get("width"); v != "" {
		if body.Width, err = strconv.Atoi(v); err != nil {
			return body, fmt.Errorf("%w: invalid width %q", errBadRequest, v)
		}
	}
	if v := q.Get("height"); v != "" {
		if body.Height, err = strconv.Atoi(v); err != nil {
			return body, fmt.Errorf("%w: invalid height %q", errBadRequest, v)
		}
	}
	if v := q.Get("max_attempts"); v != "" {
		if body.MaxAttempts, err = strconv.Atoi(v); err != nil {
			return body, fmt.Errorf("%w: invalid max_attempts %q", errBadRequest, v)
		}
	}
	if v := q.Get("seed"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return body, fmt.Errorf("%w: invalid seed %q", errBadRequest, v)
		}
		body.Seed = &seed
	}
	body.Complexity = q.Get("complexity")
	body.SeedPhrase = q.Get("seed_phrase")

	return body, nil
}

func (s *Server) villageResponse(result *village.Result) VillageResponse {
	cfg := s.service.Config()
	glyphs := render.NewGlyphSet(result.Catalog, cfg.Render.Glyphs, s.service.HouseVariants())
	surface := render.NewTextSurface(result.Village.Width, result.Village.Height, glyphs)
	// Tiles always fit the surface they were generated for
	_, _ = render.Draw(surface, render.Seq(result.Tiles))

	placements := make([]PlacementJSON, 0, len(result.Tiles))
	for i, t := range result.Tiles {
		placements = append(placements, placementJSON(i, t, result.Village.Width, result.Village.Height))
	}

	h := result.Header()
	return VillageResponse{
		RunID:      h.RunID,
		Width:      h.Width,
		Height:     h.Height,
		Seed:       h.Seed,
		Complexity: h.Complexity,
		Attempts:   h.Attempts,
		Placements: placements,
		Rows:       splitRows(surface.String()),
	}
}

func placementJSON(step int, t render.Tile, width, height int) PlacementJSON {
	wx, wy := t.Centered(width, height)
	p := PlacementJSON{
		Step:   step,
		X:      t.X,
		Y:      t.Y,
		WorldX: wx,
		WorldY: wy,
		Tile:   string(t.Kind),
	}
	if t.Variant != t.Kind {
		p.Variant = string(t.Variant)
	}
	return p
}

func runJSON(run *database.Run) RunJSON {
	return RunJSON{
		ID:          run.ID,
		Seed:        run.Seed,
		Width:       run.Width,
		Height:      run.Height,
		Complexity:  run.Complexity,
		Attempts:    run.Attempts,
		MaxAttempts: run.MaxAttempts,
		Succeeded:   run.Succeeded,
		DurationMS:  run.Duration.Milliseconds(),
		Error:       run.Error,
		CreatedAt:   run.CreatedAt,
	}
}

func splitRows(grid string) []string {
	return strings.Split(strings.TrimSuffix(grid, "\n"), "\n")
}

func respondGenerateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, wfc.ErrGenerationExhausted):
		respondError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, wfc.ErrInvalidSize), errors.Is(err, wfc.ErrInvalidAttempts),
		errors.Is(err, wfc.ErrMalformedCatalog):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		logger.Error("Village generation error", "error", err)
		respondError(w, http.StatusInternalServerError, "Generation failed")
	}
}

func respondJournalError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrRunNotFound):
		respondError(w, http.StatusNotFound, "Run not found")
	case errors.Is(err, village.ErrJournalDisabled):
		respondError(w, http.StatusServiceUnavailable, "Run journal is disabled")
	default:
		logger.Error("Run journal error", "error", err)
		respondError(w, http.StatusInternalServerError, "Journal lookup failed")
	}
}
