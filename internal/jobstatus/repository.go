// Package jobstatus persists per-job "last successful run" checkpoints,
// enabling catch-up processing across restarts and missed schedules.
package jobstatus

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rgeorgiou/quarterbook/internal/domain"
)

// Repository handles job checkpoint database operations.
//
// The store provides no locking: callers must guarantee at most one in-flight
// run per job name (single scheduler instance per deployment).
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new job checkpoint repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "jobstatus").Logger(),
	}
}

// Get returns the checkpoint for jobName, or nil when none exists yet.
func (r *Repository) Get(jobName string) (*domain.Checkpoint, error) {
	var lastRun int64
	err := r.db.QueryRow("SELECT last_run FROM job_checkpoints WHERE job_name = ?", jobName).Scan(&lastRun)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get checkpoint for %s: %w", jobName, err)
	}

	return &domain.Checkpoint{
		JobName: jobName,
		LastRun: time.Unix(lastRun, 0).UTC(),
	}, nil
}

// GetOrInit returns the checkpoint for jobName, creating it lazily on first
// use. A fresh checkpoint is seeded to "yesterday" so the first invocation
// always has exactly one day to process.
func (r *Repository) GetOrInit(jobName string, now time.Time) (domain.Checkpoint, error) {
	cp, err := r.Get(jobName)
	if err != nil {
		return domain.Checkpoint{}, err
	}
	if cp != nil {
		return *cp, nil
	}

	seeded := now.UTC().Add(-24 * time.Hour)
	_, err = r.db.Exec(
		"INSERT INTO job_checkpoints (job_name, last_run) VALUES (?, ?)",
		jobName, seeded.Unix(),
	)
	if err != nil {
		return domain.Checkpoint{}, fmt.Errorf("failed to init checkpoint for %s: %w", jobName, err)
	}

	r.log.Info().
		Str("job", jobName).
		Time("last_run", seeded).
		Msg("Checkpoint initialized")

	return domain.Checkpoint{JobName: jobName, LastRun: seeded}, nil
}

// Commit persists a new last-run timestamp for jobName. Callers invoke this
// only after the full batch for the run completed without fatal error.
func (r *Repository) Commit(jobName string, ts time.Time) error {
	res, err := r.db.Exec(
		"UPDATE job_checkpoints SET last_run = ? WHERE job_name = ?",
		ts.UTC().Unix(), jobName,
	)
	if err != nil {
		return fmt.Errorf("failed to commit checkpoint for %s: %w", jobName, err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read commit result for %s: %w", jobName, err)
	}
	if rows == 0 {
		// Commit without a prior GetOrInit; insert rather than lose the run.
		if _, err := r.db.Exec(
			"INSERT INTO job_checkpoints (job_name, last_run) VALUES (?, ?)",
			jobName, ts.UTC().Unix(),
		); err != nil {
			return fmt.Errorf("failed to insert checkpoint for %s: %w", jobName, err)
		}
	}

	return nil
}
