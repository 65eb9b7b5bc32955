package rates

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgeorgiou/quarterbook/internal/domain"
	qbtesting "github.com/rgeorgiou/quarterbook/internal/testing"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestLatestEffectiveOnOrBefore(t *testing.T) {
	db, cleanup := qbtesting.NewTestDB(t)
	defer cleanup()

	repo := NewRepository(db.Conn(), zerolog.Nop())
	require.NoError(t, repo.Insert(6, date(2024, time.January, 1)))
	require.NoError(t, repo.Insert(7.5, date(2024, time.April, 1)))
	require.NoError(t, repo.Insert(9, date(2024, time.July, 1)))

	entry, err := repo.LatestEffectiveOnOrBefore(date(2024, time.May, 15))
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, 7.5, entry.Rate)

	// Exact boundary: entry effective on the target date matches.
	entry, err = repo.LatestEffectiveOnOrBefore(date(2024, time.July, 1))
	require.NoError(t, err)
	require.NotNil(t, entry)
	assert.Equal(t, 9.0, entry.Rate)
}

func TestLatestEffectiveOnOrBeforeNoMatch(t *testing.T) {
	db, cleanup := qbtesting.NewTestDB(t)
	defer cleanup()

	repo := NewRepository(db.Conn(), zerolog.Nop())
	require.NoError(t, repo.Insert(6, date(2024, time.June, 1)))

	entry, err := repo.LatestEffectiveOnOrBefore(date(2024, time.January, 1))
	require.NoError(t, err)
	assert.Nil(t, entry)
}

func TestInsertRejectsOutOfRangeRate(t *testing.T) {
	db, cleanup := qbtesting.NewTestDB(t)
	defer cleanup()

	repo := NewRepository(db.Conn(), zerolog.Nop())
	assert.Error(t, repo.Insert(-1, date(2024, time.January, 1)))
	assert.Error(t, repo.Insert(101, date(2024, time.January, 1)))
}

func TestResolveRateUsesHistory(t *testing.T) {
	db, cleanup := qbtesting.NewTestDB(t)
	defer cleanup()

	repo := NewRepository(db.Conn(), zerolog.Nop())
	require.NoError(t, repo.Insert(11, date(2024, time.February, 1)))

	resolver := NewResolver(repo, 8, zerolog.Nop())
	assert.Equal(t, 11.0, resolver.ResolveRate(date(2024, time.March, 1)))
}

func TestResolveRateFallsBackToDefault(t *testing.T) {
	db, cleanup := qbtesting.NewTestDB(t)
	defer cleanup()

	repo := NewRepository(db.Conn(), zerolog.Nop())
	resolver := NewResolver(repo, 8, zerolog.Nop())

	assert.Equal(t, 8.0, resolver.ResolveRate(date(2024, time.March, 1)))
}

type failingSource struct{}

func (failingSource) LatestEffectiveOnOrBefore(time.Time) (*domain.RateEntry, error) {
	return nil, errors.New("boom")
}

func TestResolveRateFallsBackOnLookupError(t *testing.T) {
	resolver := NewResolver(failingSource{}, 5, zerolog.Nop())
	assert.Equal(t, 5.0, resolver.ResolveRate(date(2024, time.March, 1)))
}

func TestResolveRateDeterministic(t *testing.T) {
	db, cleanup := qbtesting.NewTestDB(t)
	defer cleanup()

	repo := NewRepository(db.Conn(), zerolog.Nop())
	require.NoError(t, repo.Insert(6, date(2024, time.January, 1)))
	require.NoError(t, repo.Insert(7, date(2024, time.June, 1)))

	resolver := NewResolver(repo, 8, zerolog.Nop())

	target := date(2024, time.August, 10)
	first := resolver.ResolveRate(target)
	second := resolver.ResolveRate(target)
	assert.Equal(t, first, second)
	assert.Equal(t, 7.0, first)
}
