package accrual

import (
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgeorgiou/quarterbook/internal/domain"
)

type stubStore struct {
	invs    []domain.Investment
	addOns  map[int64][]domain.AddOn
	oneOffs map[int64][]domain.OneOff

	saved       []domain.Investment
	savedAddOns [][]domain.AddOn
	findErr     error
	saveErr     error
}

func (s *stubStore) FindActive() ([]domain.Investment, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	out := make([]domain.Investment, len(s.invs))
	copy(out, s.invs)
	return out, nil
}

func (s *stubStore) AddOnsFor(id int64) ([]domain.AddOn, error)   { return s.addOns[id], nil }
func (s *stubStore) OneOffsFor(id int64) ([]domain.OneOff, error) { return s.oneOffs[id], nil }

func (s *stubStore) SaveAccrual(inv *domain.Investment, addOns []domain.AddOn, _ []domain.OneOff) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.saved = append(s.saved, *inv)
	s.savedAddOns = append(s.savedAddOns, addOns)
	return nil
}

type stubCheckpoints struct {
	cp      domain.Checkpoint
	commits []time.Time
	initErr error
}

func (s *stubCheckpoints) GetOrInit(jobName string, now time.Time) (domain.Checkpoint, error) {
	if s.initErr != nil {
		return domain.Checkpoint{}, s.initErr
	}
	if s.cp.JobName == "" {
		s.cp = domain.Checkpoint{JobName: jobName, LastRun: now.AddDate(0, 0, -1)}
	}
	return s.cp, nil
}

func (s *stubCheckpoints) Commit(_ string, ts time.Time) error {
	s.commits = append(s.commits, ts)
	return nil
}

type stubLifecycle struct {
	rolled []int64
	err    error
}

func (s *stubLifecycle) Rollover(inv *domain.Investment, _ time.Time) error {
	if s.err != nil {
		return s.err
	}
	s.rolled = append(s.rolled, inv.ID)
	return nil
}

func newTestJob(store *stubStore, cps *stubCheckpoints, lc *stubLifecycle, now time.Time) *Job {
	j := NewJob(store, cps, lc, fixedResolver{rate: 8}, zerolog.Nop())
	j.now = func() time.Time { return now }
	return j
}

func q3Investment(id int64, principal string) domain.Investment {
	return domain.Investment{
		ID:             id,
		TransactionID:  "txn-1",
		UserID:         "user-1",
		Principal:      decimal.RequireFromString(principal),
		GuaranteedRate: 8,
		StartDate:      time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC),
		Quarter:        "Q3",
		QuarterEndDate: time.Date(2024, time.September, 30, 0, 0, 0, 0, time.UTC),
		Active:         true,
	}
}

func TestJobAccruesPrincipal(t *testing.T) {
	store := &stubStore{invs: []domain.Investment{q3Investment(1, "50000")}}
	cps := &stubCheckpoints{}
	now := time.Date(2024, time.July, 31, 6, 0, 0, 0, time.UTC)

	require.NoError(t, newTestJob(store, cps, &stubLifecycle{}, now).Run())

	require.Len(t, store.saved, 1)
	got := store.saved[0]

	// 30 elapsed days at 50000 * 0.08 / 92 per day.
	assert.Equal(t, "1304.35", got.PrincipalAccruedReturn.Round(2).String())
	assert.True(t, got.TotalAccruedReturn.Equal(got.PrincipalAccruedReturn))
	require.Len(t, cps.commits, 1)
	assert.Equal(t, now, cps.commits[0])
}

func TestJobCatchesUpMissedDays(t *testing.T) {
	store := &stubStore{invs: []domain.Investment{q3Investment(1, "50000")}}
	now := time.Date(2024, time.July, 31, 6, 0, 0, 0, time.UTC)
	cps := &stubCheckpoints{cp: domain.Checkpoint{
		JobName: JobName,
		LastRun: now.AddDate(0, 0, -3),
	}}

	require.NoError(t, newTestJob(store, cps, &stubLifecycle{}, now).Run())

	// One pass per missed day, in order, each strictly later than the last.
	require.Len(t, store.saved, 3)
	prev := decimal.Zero
	for i, saved := range store.saved {
		assert.True(t, saved.PrincipalAccruedReturn.GreaterThan(prev),
			"pass %d must accrue past the previous day", i)
		prev = saved.PrincipalAccruedReturn
	}
	assert.Equal(t, "1304.35", prev.Round(2).String())
	require.Len(t, cps.commits, 1)
}

func TestJobIdempotentSameDay(t *testing.T) {
	store := &stubStore{invs: []domain.Investment{q3Investment(1, "50000")}}
	now := time.Date(2024, time.July, 31, 6, 0, 0, 0, time.UTC)
	cps := &stubCheckpoints{cp: domain.Checkpoint{JobName: JobName, LastRun: now.Add(-time.Hour)}}

	job := newTestJob(store, cps, &stubLifecycle{}, now)
	require.NoError(t, job.Run())
	require.NoError(t, job.Run())

	// Reprocessing the same day sets the same absolute values.
	require.Len(t, store.saved, 2)
	assert.True(t, store.saved[0].PrincipalAccruedReturn.Equal(store.saved[1].PrincipalAccruedReturn))
	assert.True(t, store.saved[0].TotalAccruedReturn.Equal(store.saved[1].TotalAccruedReturn))
}

func TestJobIncludesAddOnsAndFee(t *testing.T) {
	inv := q3Investment(1, "50000")
	inv.ManagementFeeRate = 5
	store := &stubStore{
		invs: []domain.Investment{inv},
		addOns: map[int64][]domain.AddOn{1: {{
			ID:           10,
			InvestmentID: 1,
			Amount:       decimal.RequireFromString("10000"),
			Rate:         10,
			Status:       domain.AddOnStatusActive,
			StartDate:    time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC),
		}}},
	}
	cps := &stubCheckpoints{}
	now := time.Date(2024, time.July, 31, 6, 0, 0, 0, time.UTC)

	require.NoError(t, newTestJob(store, cps, &stubLifecycle{}, now).Run())

	require.Len(t, store.saved, 1)
	got := store.saved[0]

	// Add-on: 30 days at 10000 * 0.10 / 92 per day.
	assert.Equal(t, "326.09", got.AddOnAccruedReturn.Round(2).String())
	// Fee: (1304.35 + 326.09) * 5%.
	assert.Equal(t, "81.52", got.ManagementFee.Round(2).String())
	expectedTotal := got.PrincipalAccruedReturn.Add(got.AddOnAccruedReturn).Sub(got.ManagementFee)
	assert.True(t, got.TotalAccruedReturn.Equal(expectedTotal))

	require.Len(t, store.savedAddOns, 1)
	require.Len(t, store.savedAddOns[0], 1)
	assert.Equal(t, "326.09", store.savedAddOns[0][0].AccruedInterest.Round(2).String())
}

func TestJobSkipsInactiveAddOns(t *testing.T) {
	frozen := decimal.RequireFromString("42.42")
	store := &stubStore{
		invs: []domain.Investment{q3Investment(1, "50000")},
		addOns: map[int64][]domain.AddOn{1: {{
			ID:              10,
			InvestmentID:    1,
			Amount:          decimal.RequireFromString("10000"),
			Rate:            10,
			Status:          domain.AddOnStatusInactive,
			StartDate:       time.Date(2024, time.July, 1, 0, 0, 0, 0, time.UTC),
			AccruedInterest: frozen,
		}}},
	}
	cps := &stubCheckpoints{}
	now := time.Date(2024, time.July, 31, 6, 0, 0, 0, time.UTC)

	require.NoError(t, newTestJob(store, cps, &stubLifecycle{}, now).Run())

	require.Len(t, store.saved, 1)
	assert.True(t, store.saved[0].AddOnAccruedReturn.IsZero(),
		"inactive add-ons contribute nothing to the running total")
	require.Len(t, store.savedAddOns[0], 1)
	assert.True(t, store.savedAddOns[0][0].AccruedInterest.Equal(frozen),
		"inactive add-on accrual stays frozen")
}

func TestJobDelegatesDueInvestments(t *testing.T) {
	due := q3Investment(1, "50000")
	running := q3Investment(2, "1000")
	running.QuarterEndDate = time.Date(2024, time.September, 30, 0, 0, 0, 0, time.UTC)
	store := &stubStore{invs: []domain.Investment{due, running}}
	lc := &stubLifecycle{}
	cps := &stubCheckpoints{}
	now := time.Date(2024, time.October, 1, 6, 0, 0, 0, time.UTC)

	require.NoError(t, newTestJob(store, cps, lc, now).Run())

	// Both reached quarter end by Oct 1: rollover, no accrual writes.
	assert.Equal(t, []int64{1, 2}, lc.rolled)
	assert.Empty(t, store.saved)
	require.Len(t, cps.commits, 1)
}

func TestJobToleratesSingleFailure(t *testing.T) {
	store := &stubStore{
		invs:    []domain.Investment{q3Investment(1, "50000")},
		saveErr: errors.New("disk full"),
	}
	cps := &stubCheckpoints{}
	now := time.Date(2024, time.July, 31, 6, 0, 0, 0, time.UTC)

	// A per-investment failure is logged and skipped; the run still commits.
	require.NoError(t, newTestJob(store, cps, &stubLifecycle{}, now).Run())
	require.Len(t, cps.commits, 1)
}

func TestJobAbortsWhenLoadFails(t *testing.T) {
	store := &stubStore{findErr: errors.New("db gone")}
	cps := &stubCheckpoints{}
	now := time.Date(2024, time.July, 31, 6, 0, 0, 0, time.UTC)

	err := newTestJob(store, cps, &stubLifecycle{}, now).Run()
	require.Error(t, err)
	assert.Empty(t, cps.commits, "checkpoint must not advance when the batch aborts")
}

func TestJobName(t *testing.T) {
	j := NewJob(nil, nil, nil, fixedResolver{rate: 8}, zerolog.Nop())
	assert.Equal(t, JobName, j.Name())
}
