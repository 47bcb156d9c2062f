// migrate-to-postgres copies the run journal from SQLite to PostgreSQL.
//
// Usage:
//
//	go run ./cmd/migrate-to-postgres \
//	    -sqlite data/villages.db \
//	    -pg-host localhost \
//	    -pg-port 5432 \
//	    -pg-user villagegen \
//	    -pg-password villagegen \
//	    -pg-database villagegen
package main

import (
	"errors"
	"flag"
	"log"

	"github.com/lawnchairsociety/villagegen/internal/database"
)

func main() {
	// Parse command-line flags
	sqlitePath := flag.String("sqlite", "data/villages.db", "Path to SQLite journal")
	pgHost := flag.String("pg-host", "localhost", "PostgreSQL host")
	pgPort := flag.Int("pg-port", 5432, "PostgreSQL port")
	pgUser := flag.String("pg-user", "villagegen", "PostgreSQL user")
	pgPassword := flag.String("pg-password", "", "PostgreSQL password")
	pgDatabase := flag.String("pg-database", "villagegen", "PostgreSQL database name")
	pgSSLMode := flag.String("pg-sslmode", "disable", "PostgreSQL SSL mode")
	dryRun := flag.Bool("dry-run", false, "Show what would be migrated without making changes")
	flag.Parse()

	log.Println("Run Journal Migration: SQLite to PostgreSQL")
	log.Println("===========================================")

	log.Printf("Opening SQLite journal: %s", *sqlitePath)
	source, err := database.OpenSQLite(*sqlitePath)
	if err != nil {
		log.Fatalf("Failed to open SQLite journal: %v", err)
	}
	defer source.Close()

	var target *database.Database
	if *dryRun {
		log.Println("DRY RUN MODE - No changes will be made")
	} else {
		pg := database.DefaultPostgresConfig()
		pg.Host = *pgHost
		pg.Port = *pgPort
		pg.User = *pgUser
		pg.Password = *pgPassword
		pg.Database = *pgDatabase
		pg.SSLMode = *pgSSLMode

		log.Printf("Opening PostgreSQL journal: %s@%s:%d/%s", pg.User, pg.Host, pg.Port, pg.Database)
		target, err = database.Open(database.Config{
			Driver:   string(database.DialectPostgres),
			Postgres: pg,
		})
		if err != nil {
			log.Fatalf("Failed to open PostgreSQL journal: %v", err)
		}
		defer target.Close()
	}

	copied, skipped, err := copyRuns(source, target)
	if err != nil {
		log.Fatalf("Failed to migrate runs: %v", err)
	}

	log.Println("===========================================")
	log.Printf("Migration complete! Runs migrated: %d, already present: %d", copied, skipped)
	if *dryRun {
		log.Println("(DRY RUN - No actual changes were made)")
	}
}

// copyRuns records every run of source in target, skipping runs target already
// has. A nil target only counts.
func copyRuns(source, target *database.Database) (copied, skipped int64, err error) {
	err = source.EachRun(func(run *database.Run) error {
		if target == nil {
			copied++
			return nil
		}
		if err := target.RecordRun(run); err != nil {
			if errors.Is(err, database.ErrDuplicateRun) {
				skipped++
				return nil
			}
			return err
		}
		copied++
		return nil
	})
	return copied, skipped, err
}
