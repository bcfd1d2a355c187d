package shared

import "time"

// ISOWeek identifies a Monday-starting week per ISO-8601 numbering.
type ISOWeek struct {
	Year int
	Week int
}

// CalendarMonth identifies a calendar month.
type CalendarMonth struct {
	Year  int
	Month time.Month
}

// ISOWeekOf returns the ISO week containing t.
func ISOWeekOf(t time.Time) ISOWeek {
	year, week := t.ISOWeek()
	return ISOWeek{Year: year, Week: week}
}

// Range returns the Monday and Sunday dates of the week, at midnight UTC.
func (w ISOWeek) Range() (start, end time.Time) {
	// January 4th is always inside ISO week 1.
	jan4 := time.Date(w.Year, time.January, 4, 0, 0, 0, 0, time.UTC)
	weekOneMonday := jan4.AddDate(0, 0, -isoWeekdayIndex(jan4))
	start = weekOneMonday.AddDate(0, 0, (w.Week-1)*7)
	end = start.AddDate(0, 0, 6)
	return start, end
}

// MonthOf returns the calendar month containing t.
func MonthOf(t time.Time) CalendarMonth {
	return CalendarMonth{Year: t.Year(), Month: t.Month()}
}

// LastNISOWeeks returns the n consecutive ISO weeks ending with the week
// containing ref, oldest first.
func LastNISOWeeks(ref time.Time, n int) []ISOWeek {
	weeks := make([]ISOWeek, n)
	monday := truncateToMonday(ref)
	for i := n - 1; i >= 0; i-- {
		weeks[i] = ISOWeekOf(monday)
		monday = monday.AddDate(0, 0, -7)
	}
	return weeks
}

// LastNMonths returns the n consecutive calendar months ending with the
// month containing ref, oldest first.
func LastNMonths(ref time.Time, n int) []CalendarMonth {
	months := make([]CalendarMonth, n)
	year, month := ref.Year(), ref.Month()
	for i := n - 1; i >= 0; i-- {
		months[i] = CalendarMonth{Year: year, Month: month}
		month--
		if month == 0 {
			month = time.December
			year--
		}
	}
	return months
}

// DaysBetween returns the whole-day difference to - from, ignoring the time
// of day.
func DaysBetween(from, to time.Time) int {
	fromDay := time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	toDay := time.Date(to.Year(), to.Month(), to.Day(), 0, 0, 0, 0, time.UTC)
	return int(toDay.Sub(fromDay).Hours() / 24)
}

func truncateToMonday(t time.Time) time.Time {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return day.AddDate(0, 0, -isoWeekdayIndex(day))
}

func isoWeekdayIndex(t time.Time) int {
	// time.Weekday counts Sunday as 0; ISO weeks start on Monday.
	return (int(t.Weekday()) + 6) % 7
}
