package shared

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestISOWeekRange(t *testing.T) {
	week := ISOWeek{Year: 2024, Week: 11}
	start, end := week.Range()
	require.Equal(t, "2024-03-11", start.Format("2006-01-02"))
	require.Equal(t, "2024-03-17", end.Format("2006-01-02"))

	// January 1-3 of 2021 belong to week 53 of 2020; week 1 starts on the 4th.
	start, end = ISOWeek{Year: 2021, Week: 1}.Range()
	require.Equal(t, "2021-01-04", start.Format("2006-01-02"))
	require.Equal(t, "2021-01-10", end.Format("2006-01-02"))
}

func TestISOWeekOfYearBoundary(t *testing.T) {
	// 2024-12-30 is a Monday belonging to ISO week 1 of 2025.
	week := ISOWeekOf(time.Date(2024, 12, 30, 0, 0, 0, 0, time.UTC))
	require.Equal(t, ISOWeek{Year: 2025, Week: 1}, week)
}

func TestLastNISOWeeks(t *testing.T) {
	ref := time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)
	weeks := LastNISOWeeks(ref, 8)
	require.Len(t, weeks, 8)
	require.Equal(t, ISOWeek{Year: 2024, Week: 11}, weeks[7])
	require.Equal(t, ISOWeek{Year: 2024, Week: 4}, weeks[0])

	// Consecutive weeks with no gaps across the series.
	for i := 1; i < len(weeks); i++ {
		prevStart, _ := weeks[i-1].Range()
		start, _ := weeks[i].Range()
		require.Equal(t, prevStart.AddDate(0, 0, 7), start)
	}
}

func TestLastNMonthsWrapsYear(t *testing.T) {
	ref := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	months := LastNMonths(ref, 12)
	require.Len(t, months, 12)
	require.Equal(t, CalendarMonth{Year: 2024, Month: time.March}, months[11])
	require.Equal(t, CalendarMonth{Year: 2023, Month: time.April}, months[0])
	require.Equal(t, CalendarMonth{Year: 2023, Month: time.December}, months[8])
}

func TestDaysBetween(t *testing.T) {
	from := time.Date(2024, 2, 24, 23, 59, 0, 0, time.UTC)
	to := time.Date(2024, 3, 15, 0, 1, 0, 0, time.UTC)
	// Time of day is ignored; only calendar days count.
	require.Equal(t, 20, DaysBetween(from, to))
	require.Equal(t, -20, DaysBetween(to, from))
	require.Equal(t, 0, DaysBetween(to, to))
}
