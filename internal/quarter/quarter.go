// Package quarter provides calendar-quarter date arithmetic for the accrual
// engine. All functions are pure and operate on UTC calendar days: quarters
// are the calendar quarters ending on the last day of Mar/Jun/Sep/Dec.
package quarter

import (
	"fmt"
	"time"

	"github.com/rgeorgiou/quarterbook/internal/domain"
)

// Day truncates t to UTC midnight. All day-count arithmetic goes through
// this so that intra-day timestamps never shift a day boundary.
func Day(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the calendar-day difference between start and end.
// DaysBetween(d, d) == 0. Returns domain.ErrInvalidRange when end precedes
// start or either date is the zero value.
func DaysBetween(start, end time.Time) (int, error) {
	if start.IsZero() || end.IsZero() {
		return 0, fmt.Errorf("%w: zero date", domain.ErrInvalidRange)
	}
	s, e := Day(start), Day(end)
	if e.Before(s) {
		return 0, fmt.Errorf("%w: end %s before start %s",
			domain.ErrInvalidRange, e.Format("2006-01-02"), s.Format("2006-01-02"))
	}
	return int(e.Sub(s) / (24 * time.Hour)), nil
}

// quarterIndex returns 1..4 for t's calendar quarter.
func quarterIndex(t time.Time) int {
	return (int(t.UTC().Month())-1)/3 + 1
}

// StartOf returns the first calendar day of the quarter containing t.
func StartOf(t time.Time) time.Time {
	q := quarterIndex(t)
	return time.Date(t.UTC().Year(), time.Month((q-1)*3+1), 1, 0, 0, 0, 0, time.UTC)
}

// EndOf returns the last calendar day of the quarter containing t
// (Mar 31, Jun 30, Sep 30 or Dec 31, at UTC midnight).
func EndOf(t time.Time) time.Time {
	q := quarterIndex(t)
	firstOfNext := time.Date(t.UTC().Year(), time.Month(q*3+1), 1, 0, 0, 0, 0, time.UTC)
	return firstOfNext.AddDate(0, 0, -1)
}

// Label returns the year-qualified quarter label for t, e.g. "2026-Q1".
func Label(t time.Time) string {
	return fmt.Sprintf("%d-Q%d", t.UTC().Year(), quarterIndex(t))
}

// ShortLabel returns the storage-format quarter label for t, e.g. "Q1".
func ShortLabel(t time.Time) string {
	return fmt.Sprintf("Q%d", quarterIndex(t))
}

// NextShortLabel returns the short label of the quarter following t's.
func NextShortLabel(t time.Time) string {
	return ShortLabel(EndOf(t).AddDate(0, 0, 1))
}

// DaysIn returns the inclusive day count of the quarter containing t,
// from the quarter's first day to its last (90 for a non-leap Q1, 92 for Q3).
func DaysIn(t time.Time) int {
	days, _ := DaysBetween(StartOf(t), EndOf(t))
	return days + 1
}

// IsQuarterEnd reports whether t falls on the last calendar day of a quarter.
func IsQuarterEnd(t time.Time) bool {
	return Day(t).Equal(EndOf(t))
}

// MinDay returns the earlier of two instants, compared as calendar days.
func MinDay(a, b time.Time) time.Time {
	if Day(b).Before(Day(a)) {
		return b
	}
	return a
}
