package core

import (
	"fmt"
	"time"
)

// AddMonths returns the date n whole months after base, keeping the
// day-of-month where possible. When the target month is shorter the day is
// clamped to its last valid day (Jan 31 + 1 month = Feb 28/29), never rolled
// into the following month.
func AddMonths(base Date, n int) Date {
	year := base.Year()
	month := int(base.Month()) + n
	// Normalize month into [1,12], carrying into the year.
	year += (month - 1) / 12
	month = (month-1)%12 + 1
	if month < 1 {
		month += 12
		year--
	}

	day := base.Day()
	if last := daysIn(year, month); day > last {
		day = last
	}
	return NewDate(year, month, day)
}

// MonthlySchedule returns count dates, one per month starting at base, each
// clamped per AddMonths.
func MonthlySchedule(base Date, count int) []Date {
	out := make([]Date, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, AddMonths(base, i))
	}
	return out
}

// InstallmentDescription annotates a base description with its position in
// the series, e.g. "TV (2/12)".
func InstallmentDescription(base string, i, n int) string {
	return fmt.Sprintf("%s (%d/%d)", base, i, n)
}

// daysIn returns the number of days in the given month.
func daysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 12, 0, 0, 0, time.UTC).Day()
}
