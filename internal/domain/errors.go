package domain

import (
	"errors"
	"fmt"
)

// ErrInvalidRange is returned by day-count functions when the end date
// precedes the start date or a date is the zero value.
var ErrInvalidRange = errors.New("invalid date range")

// ErrInvalidElapsedDays is returned when a negative elapsed-day count reaches
// the accrual calculator. It indicates corrupted entity data: the affected
// entity is skipped for the tick, never silently accrued negative interest.
var ErrInvalidElapsedDays = errors.New("elapsed days cannot be negative")

// RolloverStage identifies where a rollover failed.
type RolloverStage string

const (
	RolloverStageArchive RolloverStage = "archive"
	RolloverStageCreate  RolloverStage = "create"
)

// RolloverError reports a failed quarter rollover. When Stage is
// RolloverStageCreate the predecessor has already been archived and is left
// without a successor - an operational condition requiring reconciliation.
type RolloverError struct {
	InvestmentID  int64
	TransactionID string
	Stage         RolloverStage
	Err           error
}

func (e *RolloverError) Error() string {
	return fmt.Sprintf("rollover of investment %d (%s) failed at %s stage: %v",
		e.InvestmentID, e.TransactionID, e.Stage, e.Err)
}

func (e *RolloverError) Unwrap() error {
	return e.Err
}
