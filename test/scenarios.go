package test

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/lawnchairsociety/villagegen/internal/config"
	"github.com/lawnchairsociety/villagegen/internal/playback"
	"github.com/lawnchairsociety/villagegen/internal/testclient"
	"github.com/lawnchairsociety/villagegen/internal/village"
	"github.com/lawnchairsociety/villagegen/internal/wfc"
)

// foreignOrigin is an origin no sensible deployment allows
const foreignOrigin = "http://villagegen-foreign.invalid"

// Verbose controls whether detailed logging is shown during tests
var Verbose = false

// TestResult represents the result of a test
type TestResult struct {
	Name    string
	Passed  bool
	Message string
}

// Suite runs scenarios against one server. The config must match the server's
// tile settings so villages can be checked against the same catalog.
type Suite struct {
	client *testclient.TestClient
	cfg    *config.Config
	svc    *village.Service
}

// NewSuite creates a suite for the server at baseURL
func NewSuite(baseURL string, cfg *config.Config) *Suite {
	return &Suite{
		client: testclient.NewTestClient("testrunner", baseURL),
		cfg:    cfg,
		svc:    village.NewService(cfg, nil),
	}
}

// logAction logs a test action when verbose mode is enabled
func logAction(testName, action string) {
	if Verbose {
		fmt.Printf("  [%s] %s\n", testName, action)
	}
}

// logResult logs an expected vs actual result when verbose mode is enabled
func logResult(testName string, success bool, detail string) {
	if Verbose {
		status := "OK"
		if !success {
			status = "FAIL"
		}
		fmt.Printf("  [%s] %s: %s\n", testName, status, detail)
	}
}

func pass(name, msg string) TestResult {
	return TestResult{Name: name, Passed: true, Message: msg}
}

func fail(name string, format string, args ...any) TestResult {
	return TestResult{Name: name, Passed: false, Message: fmt.Sprintf(format, args...)}
}

// RunAllTests runs every scenario in order
func (s *Suite) RunAllTests() []TestResult {
	defer s.client.Close()

	results := make([]TestResult, 0)

	results = append(results, s.TestHealth())
	for _, c := range []wfc.Complexity{wfc.FourTiles, wfc.EightTiles, wfc.TwelveTiles} {
		results = append(results, s.TestGenerateIsValid(c))
	}
	results = append(results, s.TestSameSeedSameVillage())
	results = append(results, s.TestSeedPhrase())
	results = append(results, s.TestStreamMatchesGenerate())
	results = append(results, s.TestRunIsJournaled())
	results = append(results, s.TestRejectsTinyVillage())
	results = append(results, s.TestOriginCheck())

	return results
}

// TestHealth checks the health endpoint
func (s *Suite) TestHealth() TestResult {
	name := "Health"
	logAction(name, "GET /api/health")
	if err := s.client.Health(); err != nil {
		return fail(name, "health check failed: %v", err)
	}
	return pass(name, "server is healthy")
}

// TestGenerateIsValid generates a village and checks coverage and adjacency
func (s *Suite) TestGenerateIsValid(c wfc.Complexity) TestResult {
	name := "GenerateIsValid/" + c.String()
	seed := int64(1000 + c)

	logAction(name, fmt.Sprintf("POST /api/villages 12x9 seed=%d", seed))
	v, err := s.client.Generate(playback.GenerateRequest{
		Width: 12, Height: 9, Complexity: c.String(), Seed: &seed,
	})
	if err != nil {
		return fail(name, "generate failed: %v", err)
	}

	if err := s.verify(v); err != nil {
		logResult(name, false, err.Error())
		return fail(name, "invalid village: %v", err)
	}
	logResult(name, true, fmt.Sprintf("%d placements after %d attempt(s)", len(v.Placements), v.Attempts))
	return pass(name, fmt.Sprintf("%d cells placed, %d attempt(s)", len(v.Placements), v.Attempts))
}

// TestSameSeedSameVillage checks that generation is deterministic in the seed
func (s *Suite) TestSameSeedSameVillage() TestResult {
	name := "SameSeedSameVillage"
	seed := int64(4242)
	req := playback.GenerateRequest{Width: 10, Height: 7, Seed: &seed}

	a, err := s.client.Generate(req)
	if err != nil {
		return fail(name, "first generate failed: %v", err)
	}
	b, err := s.client.Generate(req)
	if err != nil {
		return fail(name, "second generate failed: %v", err)
	}
	if a.Attempts != b.Attempts {
		return fail(name, "attempts differ: %d vs %d", a.Attempts, b.Attempts)
	}
	for i := range a.Placements {
		if a.Placements[i] != b.Placements[i] {
			return fail(name, "placement %d differs: %+v vs %+v", i, a.Placements[i], b.Placements[i])
		}
	}
	return pass(name, "identical placements for the same seed")
}

// TestSeedPhrase checks that phrases hash to the documented seed
func (s *Suite) TestSeedPhrase() TestResult {
	name := "SeedPhrase"
	phrase := "market by the river"

	v, err := s.client.Generate(playback.GenerateRequest{Width: 6, Height: 6, SeedPhrase: phrase})
	if err != nil {
		return fail(name, "generate failed: %v", err)
	}
	if want := config.SeedFromPhrase(phrase); v.Seed != want {
		return fail(name, "seed %d, want %d", v.Seed, want)
	}
	return pass(name, "phrase produced the expected seed")
}

// TestStreamMatchesGenerate checks the WebSocket stream against the JSON endpoint
func (s *Suite) TestStreamMatchesGenerate() TestResult {
	name := "StreamMatchesGenerate"
	seed := int64(77)

	v, err := s.client.Generate(playback.GenerateRequest{Width: 8, Height: 6, Seed: &seed})
	if err != nil {
		return fail(name, "generate failed: %v", err)
	}

	query := url.Values{}
	query.Set("width", "8")
	query.Set("height", "6")
	query.Set("seed", strconv.FormatInt(seed, 10))
	query.Set("delay", "0s")

	logAction(name, "GET /ws/villages?"+query.Encode())
	stream, err := s.client.Stream(query, "")
	if err != nil {
		return fail(name, "stream failed: %v", err)
	}
	if stream.End.Type != playback.MessageDone {
		return fail(name, "stream ended with %q: %s", stream.End.Type, stream.End.Error)
	}
	if len(stream.Tiles) != len(v.Placements) {
		return fail(name, "streamed %d tiles, generated %d", len(stream.Tiles), len(v.Placements))
	}
	for i, p := range v.Placements {
		t := stream.Tiles[i]
		drawn := p.Tile
		if p.Variant != "" {
			drawn = p.Variant
		}
		if t.X != p.X || t.Y != p.Y || t.Tile != drawn {
			return fail(name, "step %d: streamed (%d,%d) %s, generated (%d,%d) %s",
				i, t.X, t.Y, t.Tile, p.X, p.Y, drawn)
		}
	}
	return pass(name, fmt.Sprintf("%d tiles streamed in collapse order", len(stream.Tiles)))
}

// TestRunIsJournaled checks that a generated village can be looked up and replayed
func (s *Suite) TestRunIsJournaled() TestResult {
	name := "RunIsJournaled"
	seed := int64(555)

	v, err := s.client.Generate(playback.GenerateRequest{Width: 7, Height: 7, Seed: &seed})
	if err != nil {
		return fail(name, "generate failed: %v", err)
	}
	if v.RunID == "" {
		return pass(name, "skipped: journal disabled")
	}

	run, err := s.client.Run(v.RunID)
	if err != nil {
		return fail(name, "run lookup failed: %v", err)
	}
	if run.Seed != seed || !run.Succeeded || run.Attempts != v.Attempts {
		return fail(name, "journal entry does not match: %+v", run)
	}

	replayed, err := s.client.Replay(v.RunID)
	if err != nil {
		return fail(name, "replay failed: %v", err)
	}
	for i := range v.Placements {
		if v.Placements[i] != replayed.Placements[i] {
			return fail(name, "replay differs at step %d", i)
		}
	}
	return pass(name, "run "+v.RunID+" journaled and replayed")
}

// TestRejectsTinyVillage checks that villages below 3x3 are refused
func (s *Suite) TestRejectsTinyVillage() TestResult {
	name := "RejectsTinyVillage"

	_, err := s.client.Generate(playback.GenerateRequest{Width: 2, Height: 5})
	var status *testclient.StatusError
	if !errors.As(err, &status) || status.Status != http.StatusBadRequest {
		return fail(name, "expected 400, got %v", err)
	}
	return pass(name, "2x5 rejected: "+status.Message)
}

// TestOriginCheck checks WebSocket origin enforcement
func (s *Suite) TestOriginCheck() TestResult {
	name := "OriginCheck"

	query := url.Values{}
	query.Set("width", "4")
	query.Set("height", "4")
	query.Set("delay", "0s")

	_, err := s.client.Stream(query, foreignOrigin)
	allowed := false
	for _, o := range s.cfg.Playback.AllowedOrigins {
		if o == "*" || o == foreignOrigin {
			allowed = true
		}
	}

	var status *testclient.StatusError
	rejected := errors.As(err, &status) && status.Status == http.StatusForbidden
	switch {
	case allowed && err != nil:
		return fail(name, "allowed origin was refused: %v", err)
	case !allowed && !rejected:
		return fail(name, "expected 403 for foreign origin, got %v", err)
	}
	return pass(name, fmt.Sprintf("foreign origin allowed=%v as configured", allowed))
}

// verify rebuilds the village from a response and checks it against the catalog
func (s *Suite) verify(v *playback.VillageResponse) error {
	complexity, err := wfc.ParseComplexity(v.Complexity)
	if err != nil {
		return err
	}
	catalog, err := s.svc.Catalog(complexity)
	if err != nil {
		return err
	}

	village := &wfc.Village{Width: v.Width, Height: v.Height, Seed: v.Seed, Attempts: v.Attempts}
	for _, p := range v.Placements {
		village.Placements = append(village.Placements, wfc.Placement{X: p.X, Y: p.Y, Kind: wfc.TileKind(p.Tile)})
	}
	return village.Verify(catalog)
}

// PrintResults prints a summary of test results
func PrintResults(results []TestResult) {
	passed := 0
	failed := 0

	fmt.Println("============================================================")
	fmt.Println("Integration Test Results")
	fmt.Println("============================================================")
	fmt.Println()

	for _, r := range results {
		status := "PASS"
		if !r.Passed {
			status = "FAIL"
			failed++
		} else {
			passed++
		}
		fmt.Printf("[%s] %s: %s\n", status, r.Name, r.Message)
	}

	fmt.Println()
	fmt.Println("------------------------------------------------------------")
	fmt.Printf("Total: %d | Passed: %d | Failed: %d\n", len(results), passed, failed)
	fmt.Println("------------------------------------------------------------")
}
