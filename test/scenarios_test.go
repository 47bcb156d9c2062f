package test

import (
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/lawnchairsociety/villagegen/internal/config"
	"github.com/lawnchairsociety/villagegen/internal/database"
	"github.com/lawnchairsociety/villagegen/internal/playback"
	"github.com/lawnchairsociety/villagegen/internal/village"
)

func TestSuiteAgainstInProcessServer(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Playback.StepDelay = 0
	cfg.HouseVariants = []string{"cottage", "inn"}

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "villages.db"))
	if err != nil {
		t.Fatalf("Failed to open journal: %v", err)
	}
	defer db.Close()

	srv := playback.NewServer(cfg.Playback, village.NewService(cfg, db))
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	for _, r := range NewSuite(ts.URL, cfg).RunAllTests() {
		if !r.Passed {
			t.Errorf("%s: %s", r.Name, r.Message)
		}
	}
}
