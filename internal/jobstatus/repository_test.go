package jobstatus

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	qbtesting "github.com/rgeorgiou/quarterbook/internal/testing"
)

func TestGetReturnsNilForUnknownJob(t *testing.T) {
	db, cleanup := qbtesting.NewTestDB(t)
	defer cleanup()

	repo := NewRepository(db.Conn(), zerolog.Nop())

	cp, err := repo.Get("daily_accrual")
	require.NoError(t, err)
	assert.Nil(t, cp)
}

func TestGetOrInitSeedsYesterday(t *testing.T) {
	db, cleanup := qbtesting.NewTestDB(t)
	defer cleanup()

	repo := NewRepository(db.Conn(), zerolog.Nop())

	now := time.Date(2024, time.May, 10, 12, 0, 0, 0, time.UTC)
	cp, err := repo.GetOrInit("daily_accrual", now)
	require.NoError(t, err)

	assert.Equal(t, "daily_accrual", cp.JobName)
	assert.Equal(t, now.Add(-24*time.Hour), cp.LastRun)
}

func TestGetOrInitReturnsExisting(t *testing.T) {
	db, cleanup := qbtesting.NewTestDB(t)
	defer cleanup()

	repo := NewRepository(db.Conn(), zerolog.Nop())

	first := time.Date(2024, time.May, 10, 12, 0, 0, 0, time.UTC)
	cp1, err := repo.GetOrInit("daily_accrual", first)
	require.NoError(t, err)

	// A later call must not re-seed.
	cp2, err := repo.GetOrInit("daily_accrual", first.Add(72*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, cp1.LastRun, cp2.LastRun)
}

func TestCommitAdvancesCheckpoint(t *testing.T) {
	db, cleanup := qbtesting.NewTestDB(t)
	defer cleanup()

	repo := NewRepository(db.Conn(), zerolog.Nop())

	now := time.Date(2024, time.May, 10, 12, 0, 0, 0, time.UTC)
	_, err := repo.GetOrInit("daily_accrual", now)
	require.NoError(t, err)

	require.NoError(t, repo.Commit("daily_accrual", now))

	cp, err := repo.Get("daily_accrual")
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, now, cp.LastRun)
}

func TestCommitWithoutInitCreatesRow(t *testing.T) {
	db, cleanup := qbtesting.NewTestDB(t)
	defer cleanup()

	repo := NewRepository(db.Conn(), zerolog.Nop())

	ts := time.Date(2024, time.May, 11, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Commit("quarter_rollover", ts))

	cp, err := repo.Get("quarter_rollover")
	require.NoError(t, err)
	require.NotNil(t, cp)
	assert.Equal(t, ts, cp.LastRun)
}

func TestCheckpointsAreIndependentPerJob(t *testing.T) {
	db, cleanup := qbtesting.NewTestDB(t)
	defer cleanup()

	repo := NewRepository(db.Conn(), zerolog.Nop())

	now := time.Date(2024, time.May, 10, 0, 0, 0, 0, time.UTC)
	_, err := repo.GetOrInit("daily_accrual", now)
	require.NoError(t, err)
	_, err = repo.GetOrInit("quarter_rollover", now.Add(48*time.Hour))
	require.NoError(t, err)

	a, err := repo.Get("daily_accrual")
	require.NoError(t, err)
	b, err := repo.Get("quarter_rollover")
	require.NoError(t, err)
	assert.NotEqual(t, a.LastRun, b.LastRun)
}
