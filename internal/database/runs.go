package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrRunNotFound  = errors.New("database: run not found")
	ErrDuplicateRun = errors.New("database: run already recorded")
)

// Run is the journal entry of one generation.
type Run struct {
	ID          string
	Seed        int64
	Width       int
	Height      int
	Complexity  string
	Attempts    int // Attempts used; equals MaxAttempts when the run failed
	MaxAttempts int
	Succeeded   bool
	Duration    time.Duration
	Error       string // Failure message, empty on success
	CreatedAt   time.Time
}

// RunStats summarizes the journal.
type RunStats struct {
	Total           int
	Succeeded       int
	Failed          int
	AverageAttempts float64
	AverageDuration time.Duration
}

const runColumns = `id, seed, width, height, complexity, attempts, max_attempts,
	succeeded, duration_ms, error, created_at`

// RecordRun stores a run. An empty ID is filled with a new UUID and a zero
// CreatedAt with the current time.
func (d *Database) RecordRun(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}

	_, err := d.db.Exec(d.qb.Build(`
		INSERT INTO runs (`+runColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`), run.ID, run.Seed, run.Width, run.Height, run.Complexity, run.Attempts, run.MaxAttempts,
		run.Succeeded, run.Duration.Milliseconds(), run.Error, run.CreatedAt)
	if err != nil {
		if d.dialect.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", ErrDuplicateRun, run.ID)
		}
		return err
	}
	return nil
}

// GetRun returns the run with the given ID.
func (d *Database) GetRun(id string) (*Run, error) {
	row := d.db.QueryRow(d.qb.Build(`SELECT `+runColumns+` FROM runs WHERE id = ?`), id)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return run, nil
}

// ListRuns returns the most recent runs, newest first.
func (d *Database) ListRuns(limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := d.db.Query(d.qb.Build(`
		SELECT `+runColumns+`
		FROM runs
		ORDER BY created_at DESC, id
		LIMIT ?
	`), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// EachRun calls fn for every recorded run, oldest first, stopping at the first error.
func (d *Database) EachRun(fn func(*Run) error) error {
	rows, err := d.db.Query(`SELECT ` + runColumns + ` FROM runs ORDER BY created_at, id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return err
		}
		if err := fn(run); err != nil {
			return err
		}
	}
	return rows.Err()
}

// Stats returns totals and averages over every recorded run.
func (d *Database) Stats() (*RunStats, error) {
	var (
		stats      RunStats
		avgMillis  float64
		successful sql.NullInt64
	)

	err := d.db.QueryRow(`
		SELECT COUNT(*),
			SUM(CASE WHEN succeeded THEN 1 ELSE 0 END),
			COALESCE(AVG(attempts), 0),
			COALESCE(AVG(duration_ms), 0)
		FROM runs
	`).Scan(&stats.Total, &successful, &stats.AverageAttempts, &avgMillis)
	if err != nil {
		return nil, err
	}

	stats.Succeeded = int(successful.Int64)
	stats.Failed = stats.Total - stats.Succeeded
	stats.AverageDuration = time.Duration(avgMillis * float64(time.Millisecond))
	return &stats, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run    Run
		millis int64
	)
	err := row.Scan(&run.ID, &run.Seed, &run.Width, &run.Height, &run.Complexity,
		&run.Attempts, &run.MaxAttempts, &run.Succeeded, &millis, &run.Error, &run.CreatedAt)
	if err != nil {
		return nil, err
	}
	run.Duration = time.Duration(millis) * time.Millisecond
	return &run, nil
}
