package quarter

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rgeorgiou/quarterbook/internal/domain"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDaysBetween(t *testing.T) {
	days, err := DaysBetween(date(2024, time.January, 1), date(2024, time.January, 31))
	require.NoError(t, err)
	assert.Equal(t, 30, days)
}

func TestDaysBetweenSameDay(t *testing.T) {
	d := date(2024, time.June, 15)
	days, err := DaysBetween(d, d)
	require.NoError(t, err)
	assert.Equal(t, 0, days)
}

func TestDaysBetweenIgnoresTimeOfDay(t *testing.T) {
	start := time.Date(2024, time.March, 1, 23, 59, 0, 0, time.UTC)
	end := time.Date(2024, time.March, 2, 0, 1, 0, 0, time.UTC)
	days, err := DaysBetween(start, end)
	require.NoError(t, err)
	assert.Equal(t, 1, days)
}

func TestDaysBetweenReversedFails(t *testing.T) {
	_, err := DaysBetween(date(2024, time.February, 2), date(2024, time.February, 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidRange))
}

func TestDaysBetweenZeroDateFails(t *testing.T) {
	_, err := DaysBetween(time.Time{}, date(2024, time.February, 1))
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidRange))
}

func TestLabelFirstQuarter(t *testing.T) {
	for _, m := range []time.Month{time.January, time.February, time.March} {
		assert.Equal(t, "2025-Q1", Label(date(2025, m, 15)))
		assert.Equal(t, "Q1", ShortLabel(date(2025, m, 15)))
	}
}

func TestLabelAllQuarters(t *testing.T) {
	cases := map[time.Month]string{
		time.February: "Q1",
		time.May:      "Q2",
		time.August:   "Q3",
		time.November: "Q4",
	}
	for m, want := range cases {
		assert.Equal(t, want, ShortLabel(date(2024, m, 10)))
	}
}

func TestEndOfQuarter(t *testing.T) {
	// Q1 of a non-leap year ends March 31.
	for _, d := range []time.Time{
		date(2025, time.January, 1),
		date(2025, time.February, 28),
		date(2025, time.March, 31),
	} {
		assert.Equal(t, date(2025, time.March, 31), EndOf(d))
	}

	assert.Equal(t, date(2024, time.June, 30), EndOf(date(2024, time.April, 1)))
	assert.Equal(t, date(2024, time.September, 30), EndOf(date(2024, time.July, 15)))
	assert.Equal(t, date(2024, time.December, 31), EndOf(date(2024, time.October, 31)))
}

func TestStartOfQuarter(t *testing.T) {
	assert.Equal(t, date(2024, time.July, 1), StartOf(date(2024, time.September, 30)))
	assert.Equal(t, date(2024, time.January, 1), StartOf(date(2024, time.January, 1)))
}

func TestDaysIn(t *testing.T) {
	assert.Equal(t, 90, DaysIn(date(2025, time.February, 1))) // non-leap Q1
	assert.Equal(t, 91, DaysIn(date(2024, time.February, 1))) // leap Q1
	assert.Equal(t, 91, DaysIn(date(2024, time.May, 1)))      // Q2
	assert.Equal(t, 92, DaysIn(date(2024, time.August, 1)))   // Q3
	assert.Equal(t, 92, DaysIn(date(2024, time.November, 1))) // Q4
}

func TestNextShortLabel(t *testing.T) {
	assert.Equal(t, "Q2", NextShortLabel(date(2024, time.February, 20)))
	assert.Equal(t, "Q1", NextShortLabel(date(2024, time.December, 31)))
}

func TestIsQuarterEnd(t *testing.T) {
	assert.True(t, IsQuarterEnd(date(2024, time.March, 31)))
	assert.True(t, IsQuarterEnd(time.Date(2024, time.June, 30, 14, 0, 0, 0, time.UTC)))
	assert.False(t, IsQuarterEnd(date(2024, time.March, 30)))
	assert.False(t, IsQuarterEnd(date(2023, time.February, 28)))
}

func TestMinDay(t *testing.T) {
	a := date(2024, time.March, 10)
	b := date(2024, time.March, 12)
	assert.Equal(t, a, MinDay(a, b))
	assert.Equal(t, a, MinDay(b, a))
}
