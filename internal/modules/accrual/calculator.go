// Package accrual computes time-proportional simple-interest returns for
// investments, add-ons and one-off deposits.
package accrual

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rgeorgiou/quarterbook/internal/domain"
	"github.com/rgeorgiou/quarterbook/internal/quarter"
)

// daysInYear is the annual day basis for one-off deposits, which accrue over
// their own date window rather than a quarter.
const daysInYear = 365

// RateResolver returns the annual rate (percent) effective on a date.
type RateResolver interface {
	ResolveRate(date time.Time) float64
}

// DailyRate returns the simple-interest amount earned per day:
// principal * (annualPercent/100) / daysInQuarter. Returns zero for a
// non-positive day count rather than dividing by it.
func DailyRate(principal decimal.Decimal, annualPercent float64, daysInQuarter int) decimal.Decimal {
	if daysInQuarter <= 0 {
		return decimal.Zero
	}
	return principal.
		Mul(decimal.NewFromFloat(annualPercent)).
		Div(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(int64(daysInQuarter)))
}

// AccruedOverDays returns dailyRate * elapsedDays. Negative elapsed days are
// rejected rather than silently producing a negative accrual.
func AccruedOverDays(dailyRate decimal.Decimal, elapsedDays int) (decimal.Decimal, error) {
	if elapsedDays < 0 {
		return decimal.Zero, fmt.Errorf("%w: %d", domain.ErrInvalidElapsedDays, elapsedDays)
	}
	return dailyRate.Mul(decimal.NewFromInt(int64(elapsedDays))), nil
}

// AggregateAddOnAccrual sums accrued interest across active add-ons.
// Inactive add-ons are frozen at their last computed value and skipped.
func AggregateAddOnAccrual(addOns []domain.AddOn) decimal.Decimal {
	total := decimal.Zero
	for i := range addOns {
		if addOns[i].Status != domain.AddOnStatusActive {
			continue
		}
		total = total.Add(addOns[i].AccruedInterest)
	}
	return total
}

// ManagementFee returns (principalAccrual + addOnAccrual) * feeRate / 100,
// floored at zero. A net-negative period never generates a fee. One-off
// accrual is excluded from the fee base.
func ManagementFee(principalAccrual, addOnAccrual decimal.Decimal, feeRate float64) decimal.Decimal {
	base := principalAccrual.Add(addOnAccrual)
	if base.IsNegative() {
		return decimal.Zero
	}
	fee := base.Mul(decimal.NewFromFloat(feeRate)).Div(decimal.NewFromInt(100))
	if fee.IsNegative() {
		return decimal.Zero
	}
	return fee
}

// TotalReturn composes the running total:
// principal + addOn + oneOff + performanceYield - fee - operationalCost,
// floored at zero so costs can never drive the stored total negative.
func TotalReturn(principalAccrual, addOnAccrual, oneOffAccrual, performanceYield, fee, operationalCost decimal.Decimal) decimal.Decimal {
	total := principalAccrual.
		Add(addOnAccrual).
		Add(oneOffAccrual).
		Add(performanceYield).
		Sub(fee).
		Sub(operationalCost)
	if total.IsNegative() {
		return decimal.Zero
	}
	return total
}

// DynamicAccruedReturn accrues an amount from start through end (exclusive of
// the start day, inclusive of each full elapsed day), resolving the rate
// separately for every day so mid-window rate changes take effect on their
// effective date. Uses a 365-day annual basis.
func DynamicAccruedReturn(amount decimal.Decimal, start, end time.Time, resolver RateResolver) (decimal.Decimal, error) {
	days, err := quarter.DaysBetween(start, end)
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	day := quarter.Day(start)
	for i := 0; i < days; i++ {
		day = day.AddDate(0, 0, 1)
		rate := resolver.ResolveRate(day)
		total = total.Add(amount.
			Mul(decimal.NewFromFloat(rate)).
			Div(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(daysInYear)))
	}

	return total, nil
}

// OneOffAccrual accrues a one-off deposit as of asOf, clamped to its own
// [start, end] window. Before the window opens it is zero; after the window
// closes it is frozen at the full-window value. A fixed positive rate on the
// deposit wins over the historical rate table.
func OneOffAccrual(o *domain.OneOff, asOf time.Time, resolver RateResolver) (decimal.Decimal, error) {
	target := quarter.MinDay(asOf, o.EndDate)
	if target.Before(quarter.Day(o.StartDate)) {
		return decimal.Zero, nil
	}

	if o.Rate > 0 {
		days, err := quarter.DaysBetween(o.StartDate, target)
		if err != nil {
			return decimal.Zero, err
		}
		return AccruedOverDays(
			o.Amount.
				Mul(decimal.NewFromFloat(o.Rate)).
				Div(decimal.NewFromInt(100)).
				Div(decimal.NewFromInt(daysInYear)),
			days,
		)
	}

	return DynamicAccruedReturn(o.Amount, o.StartDate, target, resolver)
}
