package village

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lawnchairsociety/villagegen/internal/config"
	"github.com/lawnchairsociety/villagegen/internal/database"
	"github.com/lawnchairsociety/villagegen/internal/wfc"
)

// failingJournal rejects every write and counts the attempts
type failingJournal struct {
	writes int
}

func (j *failingJournal) RecordRun(*database.Run) error {
	j.writes++
	return errors.New("disk full")
}

func (j *failingJournal) GetRun(string) (*database.Run, error) { return nil, database.ErrRunNotFound }

func (j *failingJournal) ListRuns(int) ([]database.Run, error) { return nil, nil }

func (j *failingJournal) Stats() (*database.RunStats, error) { return &database.RunStats{}, nil }

func openJournal(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "villages.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func smallRequest(seed int64) Request {
	return Request{
		Width:       8,
		Height:      6,
		Complexity:  wfc.EightTiles,
		MaxAttempts: wfc.DefaultMaxAttempts,
		Seed:        seed,
	}
}

func TestGenerateRecordsRun(t *testing.T) {
	db := openJournal(t)
	svc := NewService(config.DefaultConfig(), db)

	result, err := svc.Generate(smallRequest(11))
	require.NoError(t, err)

	assert.NotEmpty(t, result.Run.ID)
	assert.True(t, result.Run.Succeeded)
	assert.Equal(t, result.Village.Attempts, result.Run.Attempts)
	assert.Len(t, result.Tiles, 48)
	require.NoError(t, result.Village.Verify(result.Catalog))

	stored, err := db.GetRun(result.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(11), stored.Seed)
	assert.Equal(t, "eight", stored.Complexity)
	assert.Equal(t, 8, stored.Width)
}

func TestGenerateUsesConfiguredKinds(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Tiles = map[string]string{"house": "cottage"}
	cfg.HouseVariants = []string{"inn", "smithy"}
	svc := NewService(cfg, nil)

	result, err := svc.Generate(smallRequest(5))
	require.NoError(t, err)

	assert.Equal(t, wfc.TileKind("cottage"), result.Catalog.House())
	for _, tile := range result.Tiles {
		if tile.Kind == "cottage" {
			assert.Contains(t, []wfc.TileKind{"inn", "smithy"}, tile.Variant)
		} else {
			assert.Equal(t, tile.Kind, tile.Variant)
		}
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.HouseVariants = []string{"inn", "smithy", "barn"}
	svc := NewService(cfg, nil)

	a, err := svc.Generate(smallRequest(99))
	require.NoError(t, err)
	b, err := svc.Generate(smallRequest(99))
	require.NoError(t, err)

	assert.Equal(t, a.Tiles, b.Tiles)
}

func TestGenerateSurvivesJournalFailure(t *testing.T) {
	journal := &failingJournal{}
	svc := NewService(config.DefaultConfig(), journal)

	result, err := svc.Generate(smallRequest(3))
	require.NoError(t, err)
	assert.True(t, result.Run.Succeeded)
	assert.Equal(t, 1, journal.writes)
}

func TestGenerateInvalidSizeIsNotRecorded(t *testing.T) {
	journal := &failingJournal{}
	svc := NewService(config.DefaultConfig(), journal)

	req := smallRequest(3)
	req.Width = 2
	_, err := svc.Generate(req)
	assert.ErrorIs(t, err, wfc.ErrInvalidSize)
	assert.Equal(t, 0, journal.writes)
}

func TestReplayMatchesOriginal(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.HouseVariants = []string{"inn", "smithy"}
	svc := NewService(cfg, openJournal(t))

	original, err := svc.Generate(smallRequest(1234))
	require.NoError(t, err)

	replayed, err := svc.Replay(original.Run.ID)
	require.NoError(t, err)

	assert.Equal(t, original.Village.Placements, replayed.Village.Placements)
	assert.Equal(t, original.Tiles, replayed.Tiles)
	assert.Equal(t, original.Run.ID, replayed.Header().RunID)
}

func TestReplayUnknownRun(t *testing.T) {
	svc := NewService(config.DefaultConfig(), openJournal(t))

	_, err := svc.Replay("missing")
	assert.ErrorIs(t, err, database.ErrRunNotFound)
}

func TestJournalDisabled(t *testing.T) {
	svc := NewService(config.DefaultConfig(), nil)

	_, err := svc.Replay("any")
	assert.ErrorIs(t, err, ErrJournalDisabled)
	_, err = svc.Runs(10)
	assert.ErrorIs(t, err, ErrJournalDisabled)
	_, err = svc.Run("any")
	assert.ErrorIs(t, err, ErrJournalDisabled)
	_, err = svc.Stats()
	assert.ErrorIs(t, err, ErrJournalDisabled)
}

func TestRunsAndStats(t *testing.T) {
	svc := NewService(config.DefaultConfig(), openJournal(t))

	for seed := int64(1); seed <= 3; seed++ {
		_, err := svc.Generate(smallRequest(seed))
		require.NoError(t, err)
	}

	runs, err := svc.Runs(10)
	require.NoError(t, err)
	assert.Len(t, runs, 3)

	stats, err := svc.Stats()
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Total)
	assert.Equal(t, 3, stats.Succeeded)
}

func TestDefaultRequest(t *testing.T) {
	cfg := config.DefaultConfig()
	seed := int64(77)
	cfg.Village.Seed = &seed
	cfg.Village.Complexity = "four"

	req, err := NewService(cfg, nil).DefaultRequest()
	require.NoError(t, err)
	assert.Equal(t, Request{
		Width:       20,
		Height:      12,
		Complexity:  wfc.FourTiles,
		MaxAttempts: wfc.DefaultMaxAttempts,
		Seed:        77,
	}, req)
}
