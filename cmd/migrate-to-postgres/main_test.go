package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/lawnchairsociety/villagegen/internal/database"
)

func openJournal(t *testing.T, name string) *database.Database {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), name))
	if err != nil {
		t.Fatalf("Failed to open journal: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCopyRuns(t *testing.T) {
	source := openJournal(t, "source.db")
	target := openJournal(t, "target.db")

	for seed := int64(1); seed <= 3; seed++ {
		run := &database.Run{
			Seed:        seed,
			Width:       10,
			Height:      8,
			Complexity:  "four",
			Attempts:    1,
			MaxAttempts: 1000,
			Succeeded:   true,
			Duration:    20 * time.Millisecond,
		}
		if err := source.RecordRun(run); err != nil {
			t.Fatalf("RecordRun failed: %v", err)
		}
		if seed == 2 {
			existing := *run
			if err := target.RecordRun(&existing); err != nil {
				t.Fatalf("RecordRun on target failed: %v", err)
			}
		}
	}

	copied, skipped, err := copyRuns(source, target)
	if err != nil {
		t.Fatalf("copyRuns failed: %v", err)
	}
	if copied != 2 || skipped != 1 {
		t.Errorf("copied=%d skipped=%d, want 2 and 1", copied, skipped)
	}

	stats, err := target.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("target has %d runs, want 3", stats.Total)
	}
}

func TestCopyRunsDryRun(t *testing.T) {
	source := openJournal(t, "source.db")
	if err := source.RecordRun(&database.Run{Seed: 1, Width: 3, Height: 3, Complexity: "four", Attempts: 1, MaxAttempts: 1}); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	copied, skipped, err := copyRuns(source, nil)
	if err != nil {
		t.Fatalf("copyRuns failed: %v", err)
	}
	if copied != 1 || skipped != 0 {
		t.Errorf("copied=%d skipped=%d, want 1 and 0", copied, skipped)
	}
}
