// Package rates provides the historical rate table and rate resolution.
package rates

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rgeorgiou/quarterbook/internal/domain"
)

// Repository handles rate history database operations. The table is
// append-only: entries are inserted, never updated or deleted.
type Repository struct {
	db  *sql.DB
	log zerolog.Logger
}

// NewRepository creates a new rate history repository.
func NewRepository(db *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		db:  db,
		log: log.With().Str("repo", "rates").Logger(),
	}
}

// Insert appends a new rate entry.
func (r *Repository) Insert(rate float64, effectiveDate time.Time) error {
	if rate < 0 || rate > 100 {
		return fmt.Errorf("rate must be between 0 and 100 (got %g)", rate)
	}

	_, err := r.db.Exec(
		"INSERT INTO rate_history (rate, effective_date) VALUES (?, ?)",
		rate, effectiveDate.UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert rate entry: %w", err)
	}

	r.log.Info().
		Float64("rate", rate).
		Time("effective_date", effectiveDate).
		Msg("Rate entry recorded")

	return nil
}

// LatestEffectiveOnOrBefore returns the most recent entry whose effective
// date is on or before the target date, or nil when no entry matches.
func (r *Repository) LatestEffectiveOnOrBefore(date time.Time) (*domain.RateEntry, error) {
	query := `
		SELECT id, rate, effective_date FROM rate_history
		WHERE effective_date <= ?
		ORDER BY effective_date DESC
		LIMIT 1
	`

	var entry domain.RateEntry
	var effective int64
	err := r.db.QueryRow(query, date.UTC().Unix()).Scan(&entry.ID, &entry.Rate, &effective)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get rate effective on or before %s: %w",
			date.Format("2006-01-02"), err)
	}

	entry.EffectiveDate = time.Unix(effective, 0).UTC()
	return &entry, nil
}

// History returns the most recent entries, newest first.
func (r *Repository) History(limit int) ([]domain.RateEntry, error) {
	rows, err := r.db.Query(
		"SELECT id, rate, effective_date FROM rate_history ORDER BY effective_date DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get rate history: %w", err)
	}
	defer rows.Close()

	var entries []domain.RateEntry
	for rows.Next() {
		var entry domain.RateEntry
		var effective int64
		if err := rows.Scan(&entry.ID, &entry.Rate, &effective); err != nil {
			return nil, fmt.Errorf("failed to scan rate entry: %w", err)
		}
		entry.EffectiveDate = time.Unix(effective, 0).UTC()
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rate history: %w", err)
	}

	return entries, nil
}
