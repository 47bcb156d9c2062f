package database

import (
	"fmt"
	"os"
	"sync"
	"testing"
	"time"
)

// getPostgresTestConfig returns PostgreSQL config if available, nil otherwise.
// Set these environment variables to run PostgreSQL tests:
//
//	VILLAGE_TEST_POSTGRES=1
//	VILLAGE_TEST_POSTGRES_HOST (default: localhost)
//	VILLAGE_TEST_POSTGRES_PORT (default: 5432)
//	VILLAGE_TEST_POSTGRES_USER (default: village)
//	VILLAGE_TEST_POSTGRES_PASSWORD (default: village)
//	VILLAGE_TEST_POSTGRES_DATABASE (default: village_test)
func getPostgresTestConfig() *Config {
	if os.Getenv("VILLAGE_TEST_POSTGRES") == "" {
		return nil
	}

	env := func(key, fallback string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		return fallback
	}

	port := 5432
	if portStr := os.Getenv("VILLAGE_TEST_POSTGRES_PORT"); portStr != "" {
		fmt.Sscanf(portStr, "%d", &port)
	}

	return &Config{
		Driver: "postgres",
		Postgres: PostgresConfig{
			Host:            env("VILLAGE_TEST_POSTGRES_HOST", "localhost"),
			Port:            port,
			User:            env("VILLAGE_TEST_POSTGRES_USER", "village"),
			Password:        env("VILLAGE_TEST_POSTGRES_PASSWORD", "village"),
			Database:        env("VILLAGE_TEST_POSTGRES_DATABASE", "village_test"),
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 1 * time.Minute,
		},
	}
}

// skipIfNoPostgres skips the test if PostgreSQL is not available
func skipIfNoPostgres(t *testing.T) *Config {
	cfg := getPostgresTestConfig()
	if cfg == nil {
		t.Skip("Skipping PostgreSQL test: VILLAGE_TEST_POSTGRES not set")
	}
	return cfg
}

// setupPostgresTestDB opens a PostgreSQL journal and clears it before and after the test
func setupPostgresTestDB(t *testing.T, cfg *Config) *Database {
	db, err := Open(*cfg)
	if err != nil {
		t.Fatalf("Failed to open PostgreSQL database: %v", err)
	}

	if _, err := db.db.Exec("DELETE FROM runs"); err != nil {
		t.Logf("Note: Could not clean runs: %v", err)
	}

	t.Cleanup(func() {
		db.db.Exec("DELETE FROM runs")
		db.Close()
	})

	return db
}

func TestPostgres_Open(t *testing.T) {
	cfg := skipIfNoPostgres(t)

	db, err := Open(*cfg)
	if err != nil {
		t.Fatalf("Failed to open PostgreSQL database: %v", err)
	}
	defer db.Close()

	stats := db.db.Stats()
	if stats.MaxOpenConnections != cfg.Postgres.MaxOpenConns {
		t.Errorf("Expected MaxOpenConns %d, got %d", cfg.Postgres.MaxOpenConns, stats.MaxOpenConnections)
	}
}

func TestPostgres_RecordAndGetRun(t *testing.T) {
	cfg := skipIfNoPostgres(t)
	db := setupPostgresTestDB(t, cfg)

	run := sampleRun(7, true)
	if err := db.RecordRun(run); err != nil {
		t.Fatalf("RecordRun failed: %v", err)
	}

	got, err := db.GetRun(run.ID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got.Seed != 7 || !got.Succeeded {
		t.Errorf("GetRun = %+v", got)
	}

	stats, err := db.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != 1 || stats.Succeeded != 1 {
		t.Errorf("Stats = %+v", stats)
	}
}

// TestPostgres_ConcurrentWrites records runs from several goroutines at once
func TestPostgres_ConcurrentWrites(t *testing.T) {
	cfg := skipIfNoPostgres(t)
	db := setupPostgresTestDB(t, cfg)

	const workers = 10
	const writesPerWorker = 5

	var wg sync.WaitGroup
	errs := make(chan error, workers*writesPerWorker)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < writesPerWorker; j++ {
				if err := db.RecordRun(sampleRun(int64(worker*100+j), true)); err != nil {
					errs <- fmt.Errorf("worker %d: %w", worker, err)
				}
			}
		}(i)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	stats, err := db.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Total != workers*writesPerWorker {
		t.Errorf("Expected %d runs, got %d", workers*writesPerWorker, stats.Total)
	}
}
