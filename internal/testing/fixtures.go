package testing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rgeorgiou/quarterbook/internal/domain"
	"github.com/rgeorgiou/quarterbook/internal/quarter"
)

// NewInvestmentFixture returns a valid active investment starting on the
// given date, with the quarter fields derived from it. Callers override
// fields as needed.
func NewInvestmentFixture(start time.Time, principal string) domain.Investment {
	now := time.Now().UTC()
	return domain.Investment{
		TransactionID:  uuid.NewString(),
		UserID:         "user-1",
		Name:           "Fixture Investment",
		Principal:      decimal.RequireFromString(principal),
		GuaranteedRate: 8,
		StartDate:      start,
		Quarter:        quarter.ShortLabel(start),
		QuarterEndDate: quarter.EndOf(start),
		Active:         true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// NewAddOnFixture returns an active add-on for the given investment,
// inheriting the usual 8 percent rate.
func NewAddOnFixture(investmentID int64, start time.Time, amount string) domain.AddOn {
	now := time.Now().UTC()
	return domain.AddOn{
		InvestmentID: investmentID,
		Amount:       decimal.RequireFromString(amount),
		Rate:         8,
		Status:       domain.AddOnStatusActive,
		StartDate:    start,
		DateOfEntry:  start,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// NewOneOffFixture returns a one-off deposit accruing over [start, end].
func NewOneOffFixture(investmentID int64, start, end time.Time, amount string) domain.OneOff {
	now := time.Now().UTC()
	return domain.OneOff{
		InvestmentID: investmentID,
		Amount:       decimal.RequireFromString(amount),
		Rate:         8,
		StartDate:    start,
		EndDate:      end,
		DateOfEntry:  start,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}
