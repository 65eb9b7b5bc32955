// Package domain provides the core entities of the accrual engine.
package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// AddOnStatus represents the lifecycle state of an add-on contribution.
type AddOnStatus string

const (
	// AddOnStatusActive - the add-on accrues interest daily.
	AddOnStatusActive AddOnStatus = "active"
	// AddOnStatusInactive - the add-on is finalized; its accrued interest is
	// frozen at the last computed value and no longer recomputed.
	AddOnStatusInactive AddOnStatus = "inactive"
)

// DefaultGuaranteedRate is the fallback annual rate (percent) applied when
// neither the investment nor the rate history provides one.
const DefaultGuaranteedRate = 8.0

// Investment is a client investment for a single quarter. A record never
// changes quarter: at quarter end it is archived and a successor record is
// created with the accrued return folded into the principal.
type Investment struct {
	ID            int64  `json:"id"`
	TransactionID string `json:"transaction_id"`
	UserID        string `json:"user_id"`
	Name          string `json:"name,omitempty"`

	Principal      decimal.Decimal `json:"principal"`
	GuaranteedRate float64         `json:"guaranteed_rate"`
	StartDate      time.Time       `json:"start_date"`
	Quarter        string          `json:"quarter"` // Q1..Q4
	QuarterEndDate time.Time       `json:"quarter_end_date"`

	// Running totals, recomputed in full on every accrual run.
	PrincipalAccruedReturn decimal.Decimal `json:"principal_accrued_return"`
	AddOnAccruedReturn     decimal.Decimal `json:"add_on_accrued_return"`
	OneOffAccruedReturn    decimal.Decimal `json:"one_off_accrued_return"`
	TotalAccruedReturn     decimal.Decimal `json:"total_accrued_return"`

	ManagementFeeRate float64         `json:"management_fee_rate"`
	ManagementFee     decimal.Decimal `json:"management_fee"`
	PerformanceYield  decimal.Decimal `json:"performance_yield"`
	OperationalCost   decimal.Decimal `json:"operational_cost"`

	Archived      bool   `json:"archived"`
	Active        bool   `json:"active"`
	PredecessorID *int64 `json:"predecessor_id,omitempty"`

	// Static document attachments, carried forward verbatim on rollover.
	Mandate     []string `json:"mandate,omitempty"`
	Certificate []string `json:"certificate,omitempty"`
	Checklist   []string `json:"checklist,omitempty"`
	PartnerForm []string `json:"partner_form,omitempty"`
	Others      []string `json:"others,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks the invariants enforced at the repository boundary.
func (inv *Investment) Validate() error {
	if inv.TransactionID == "" {
		return fmt.Errorf("investment transaction id is required")
	}
	if inv.UserID == "" {
		return fmt.Errorf("investment user id is required")
	}
	if inv.Principal.IsNegative() {
		return fmt.Errorf("investment principal cannot be negative (got %s)", inv.Principal)
	}
	if inv.GuaranteedRate < 0 || inv.GuaranteedRate > 100 {
		return fmt.Errorf("guaranteed rate must be between 0 and 100 (got %g)", inv.GuaranteedRate)
	}
	if inv.ManagementFeeRate < 0 || inv.ManagementFeeRate > 100 {
		return fmt.Errorf("management fee rate must be between 0 and 100 (got %g)", inv.ManagementFeeRate)
	}
	if !validQuarter(inv.Quarter) {
		return fmt.Errorf("quarter must be one of Q1..Q4 (got %q)", inv.Quarter)
	}
	if inv.StartDate.IsZero() {
		return fmt.Errorf("investment start date is required")
	}
	if inv.QuarterEndDate.IsZero() {
		return fmt.Errorf("investment quarter end date is required")
	}
	if inv.Archived && inv.Active {
		return fmt.Errorf("investment cannot be both archived and active")
	}
	for name, v := range map[string]decimal.Decimal{
		"principal_accrued_return": inv.PrincipalAccruedReturn,
		"add_on_accrued_return":    inv.AddOnAccruedReturn,
		"one_off_accrued_return":   inv.OneOffAccruedReturn,
		"total_accrued_return":     inv.TotalAccruedReturn,
		"management_fee":           inv.ManagementFee,
	} {
		if v.IsNegative() {
			return fmt.Errorf("%s cannot be negative (got %s)", name, v)
		}
	}
	return nil
}

func validQuarter(q string) bool {
	switch q {
	case "Q1", "Q2", "Q3", "Q4":
		return true
	}
	return false
}

// AddOn is supplemental capital contributed to an existing investment after
// its creation. It accrues at the rate inherited from the parent investment
// at creation time, and is never carried into the successor on rollover.
type AddOn struct {
	ID           int64 `json:"id"`
	InvestmentID int64 `json:"investment_id"`

	Amount          decimal.Decimal `json:"amount"`
	Rate            float64         `json:"rate"`
	Status          AddOnStatus     `json:"status"`
	StartDate       time.Time       `json:"start_date"`
	DateOfEntry     time.Time       `json:"date_of_entry"`
	AccruedInterest decimal.Decimal `json:"accrued_interest"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks add-on invariants.
func (a *AddOn) Validate() error {
	if a.InvestmentID == 0 {
		return fmt.Errorf("add-on must reference an investment")
	}
	if a.Amount.IsNegative() {
		return fmt.Errorf("add-on amount cannot be negative (got %s)", a.Amount)
	}
	if a.Rate < 0 || a.Rate > 100 {
		return fmt.Errorf("add-on rate must be between 0 and 100 (got %g)", a.Rate)
	}
	if a.Status != AddOnStatusActive && a.Status != AddOnStatusInactive {
		return fmt.Errorf("add-on status must be active or inactive (got %q)", a.Status)
	}
	if a.AccruedInterest.IsNegative() {
		return fmt.Errorf("add-on accrued interest cannot be negative (got %s)", a.AccruedInterest)
	}
	return nil
}

// OneOff is a single non-recurring deposit accruing over its own date window.
// One-offs are not carried forward on rollover.
type OneOff struct {
	ID           int64 `json:"id"`
	InvestmentID int64 `json:"investment_id"`

	Amount          decimal.Decimal `json:"amount"`
	Rate            float64         `json:"rate"`
	Yield           decimal.Decimal `json:"yield"`
	StartDate       time.Time       `json:"start_date"`
	EndDate         time.Time       `json:"end_date"`
	DateOfEntry     time.Time       `json:"date_of_entry"`
	AccruedInterest decimal.Decimal `json:"accrued_interest"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Validate checks one-off invariants.
func (o *OneOff) Validate() error {
	if o.InvestmentID == 0 {
		return fmt.Errorf("one-off must reference an investment")
	}
	if o.Amount.IsNegative() {
		return fmt.Errorf("one-off amount cannot be negative (got %s)", o.Amount)
	}
	if o.Rate < 0 || o.Rate > 100 {
		return fmt.Errorf("one-off rate must be between 0 and 100 (got %g)", o.Rate)
	}
	if o.StartDate.IsZero() || o.EndDate.IsZero() {
		return fmt.Errorf("one-off requires a start and end date")
	}
	if o.EndDate.Before(o.StartDate) {
		return fmt.Errorf("one-off end date %s precedes start date %s",
			o.EndDate.Format("2006-01-02"), o.StartDate.Format("2006-01-02"))
	}
	return nil
}

// RateEntry is one row of the historical rate table. Entries are append-only.
type RateEntry struct {
	ID            int64     `json:"id"`
	Rate          float64   `json:"rate"`
	EffectiveDate time.Time `json:"effective_date"`
}

// Checkpoint records the last successful run of a named background job.
// The checkpoint only advances after a full batch completes, so a crash
// mid-batch causes the next run to recompute the same missed days.
type Checkpoint struct {
	JobName string    `json:"job_name"`
	LastRun time.Time `json:"last_run"`
}
