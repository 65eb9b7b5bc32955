package accrual

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/rgeorgiou/quarterbook/internal/domain"
	"github.com/rgeorgiou/quarterbook/internal/quarter"
)

// JobName identifies the daily accrual job in the checkpoint store.
const JobName = "daily_accrual"

// InvestmentStore is the slice of the investment repository the job needs.
type InvestmentStore interface {
	FindActive() ([]domain.Investment, error)
	AddOnsFor(investmentID int64) ([]domain.AddOn, error)
	OneOffsFor(investmentID int64) ([]domain.OneOff, error)
	SaveAccrual(inv *domain.Investment, addOns []domain.AddOn, oneOffs []domain.OneOff) error
}

// CheckpointStore records the job's last successful run.
type CheckpointStore interface {
	GetOrInit(jobName string, now time.Time) (domain.Checkpoint, error)
	Commit(jobName string, ts time.Time) error
}

// LifecycleHandler rolls an investment past its quarter boundary. The job
// delegates to it instead of accruing once the target date reaches the
// investment's quarter end.
type LifecycleHandler interface {
	Rollover(inv *domain.Investment, now time.Time) error
}

// Job recomputes accrued returns for every active investment on each tick,
// catching up one pass per missed calendar day since the last checkpoint.
// All accrual fields are set from absolute elapsed days, never incremented,
// so reprocessing a day is harmless.
type Job struct {
	investments InvestmentStore
	checkpoints CheckpointStore
	lifecycle   LifecycleHandler
	resolver    RateResolver
	log         zerolog.Logger
	now         func() time.Time
}

// NewJob creates the daily accrual job.
func NewJob(
	investments InvestmentStore,
	checkpoints CheckpointStore,
	lifecycle LifecycleHandler,
	resolver RateResolver,
	log zerolog.Logger,
) *Job {
	return &Job{
		investments: investments,
		checkpoints: checkpoints,
		lifecycle:   lifecycle,
		resolver:    resolver,
		log:         log.With().Str("job", JobName).Logger(),
		now:         time.Now,
	}
}

// Name implements scheduler.Job.
func (j *Job) Name() string { return JobName }

// Run implements scheduler.Job. The checkpoint only advances after every
// missed day has been processed, so a crash mid-catch-up replays the same
// days on the next tick.
func (j *Job) Run() error {
	now := j.now().UTC()

	cp, err := j.checkpoints.GetOrInit(JobName, now)
	if err != nil {
		return fmt.Errorf("accrual job: %w", err)
	}

	daysMissed, err := quarter.DaysBetween(cp.LastRun, now)
	if err != nil {
		return fmt.Errorf("accrual job: invalid checkpoint %s: %w", cp.LastRun, err)
	}
	if daysMissed <= 0 {
		// Already ran today. One idempotent pass over today costs little and
		// picks up entities created since the earlier run.
		daysMissed = 1
	}

	j.log.Info().
		Time("last_run", cp.LastRun).
		Int("days_missed", daysMissed).
		Msg("Starting accrual run")

	lastRunDay := quarter.Day(cp.LastRun)
	for d := 1; d <= daysMissed; d++ {
		targetDate := quarter.MinDay(lastRunDay.AddDate(0, 0, d), now)
		if err := j.processDay(targetDate, now); err != nil {
			return fmt.Errorf("accrual job: day %s: %w", targetDate.Format("2006-01-02"), err)
		}
	}

	if err := j.checkpoints.Commit(JobName, now); err != nil {
		return fmt.Errorf("accrual job: failed to commit checkpoint: %w", err)
	}

	j.log.Info().Int("days_processed", daysMissed).Msg("Accrual run complete")
	return nil
}

// processDay recomputes accrual for all active investments as of targetDate.
// A failure to load the investment set aborts the day; a failure on a single
// investment is logged and skipped so one bad record cannot starve the rest.
func (j *Job) processDay(targetDate, now time.Time) error {
	invs, err := j.investments.FindActive()
	if err != nil {
		return fmt.Errorf("failed to load active investments: %w", err)
	}

	var failed int
	for i := range invs {
		inv := &invs[i]

		if !quarter.Day(targetDate).Before(quarter.Day(inv.QuarterEndDate)) {
			if err := j.lifecycle.Rollover(inv, now); err != nil {
				failed++
				j.log.Error().
					Err(err).
					Int64("investment_id", inv.ID).
					Str("transaction_id", inv.TransactionID).
					Msg("Quarter rollover failed")
			}
			continue
		}

		if err := j.accrueInvestment(inv, targetDate); err != nil {
			failed++
			j.log.Error().
				Err(err).
				Int64("investment_id", inv.ID).
				Str("transaction_id", inv.TransactionID).
				Msg("Accrual failed for investment")
		}
	}

	if failed > 0 {
		j.log.Warn().
			Int("failed", failed).
			Int("total", len(invs)).
			Time("target_date", targetDate).
			Msg("Accrual day completed with failures")
	}

	return nil
}

// accrueInvestment recomputes every running total for one investment as of
// targetDate and persists the result atomically.
func (j *Job) accrueInvestment(inv *domain.Investment, targetDate time.Time) error {
	asOf := quarter.MinDay(targetDate, inv.QuarterEndDate)
	elapsed, err := quarter.DaysBetween(inv.StartDate, asOf)
	if err != nil {
		return fmt.Errorf("invalid accrual window: %w", err)
	}

	rate := inv.GuaranteedRate
	if rate <= 0 {
		rate = j.resolver.ResolveRate(asOf)
	}
	daysInQuarter := quarter.DaysIn(inv.QuarterEndDate)

	principalAccrual, err := AccruedOverDays(DailyRate(inv.Principal, rate, daysInQuarter), elapsed)
	if err != nil {
		return err
	}

	addOns, err := j.investments.AddOnsFor(inv.ID)
	if err != nil {
		return fmt.Errorf("failed to load add-ons: %w", err)
	}
	for i := range addOns {
		a := &addOns[i]
		if a.Status != domain.AddOnStatusActive {
			continue
		}
		start := a.StartDate
		if start.IsZero() {
			start = a.DateOfEntry
		}
		if asOf.Before(quarter.Day(start)) {
			a.AccruedInterest = decimal.Zero
			continue
		}
		addOnElapsed, err := quarter.DaysBetween(start, asOf)
		if err != nil {
			return fmt.Errorf("add-on %d: invalid accrual window: %w", a.ID, err)
		}
		addOnRate := a.Rate
		if addOnRate <= 0 {
			addOnRate = rate
		}
		a.AccruedInterest, err = AccruedOverDays(DailyRate(a.Amount, addOnRate, daysInQuarter), addOnElapsed)
		if err != nil {
			return fmt.Errorf("add-on %d: %w", a.ID, err)
		}
	}

	oneOffs, err := j.investments.OneOffsFor(inv.ID)
	if err != nil {
		return fmt.Errorf("failed to load one-offs: %w", err)
	}
	oneOffAccrual := decimal.Zero
	for i := range oneOffs {
		o := &oneOffs[i]
		o.AccruedInterest, err = OneOffAccrual(o, asOf, j.resolver)
		if err != nil {
			return fmt.Errorf("one-off %d: %w", o.ID, err)
		}
		oneOffAccrual = oneOffAccrual.Add(o.AccruedInterest)
	}

	inv.PrincipalAccruedReturn = principalAccrual
	inv.AddOnAccruedReturn = AggregateAddOnAccrual(addOns)
	inv.OneOffAccruedReturn = oneOffAccrual
	inv.ManagementFee = ManagementFee(inv.PrincipalAccruedReturn, inv.AddOnAccruedReturn, inv.ManagementFeeRate)
	inv.TotalAccruedReturn = TotalReturn(
		inv.PrincipalAccruedReturn,
		inv.AddOnAccruedReturn,
		inv.OneOffAccruedReturn,
		inv.PerformanceYield,
		inv.ManagementFee,
		inv.OperationalCost,
	)

	if err := inv.Validate(); err != nil {
		return fmt.Errorf("accrual produced invalid state: %w", err)
	}

	return j.investments.SaveAccrual(inv, addOns, oneOffs)
}
