// Package due computes maintenance due dates.
//
// Every cycle falls on the 15th of a selected month. A client with no active
// schedule gets NoScheduleDate, a far-future sentinel that sorts after every
// real date.
package due

import (
	"time"
)

// DateLayout is the storage and display format for calendar dates.
const DateLayout = "2006-01-02"

// CycleDay is the day of month every maintenance cycle falls on.
const CycleDay = 15

// NoScheduleDate marks a client with no active schedule.
// Compare with IsNoSchedule rather than against a formatted literal.
var NoScheduleDate = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// IsNoSchedule reports whether t is the no-schedule sentinel.
func IsNoSchedule(t time.Time) bool {
	return t.Year() >= NoScheduleDate.Year()
}

// CycleDate returns the due date of the cycle in (year, month).
func CycleDate(year int, month time.Month) time.Time {
	return time.Date(year, month, CycleDay, 0, 0, 0, 0, time.UTC)
}

// Date returns midnight UTC on the given calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Truncate drops the clock part of t, keeping t's calendar day.
func Truncate(t time.Time) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d)
}

// Parse reads a YYYY-MM-DD date.
func Parse(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// Format renders a date as YYYY-MM-DD.
func Format(t time.Time) string {
	return t.Format(DateLayout)
}

// ComputeNextDue returns the next due date for a schedule as of today.
//
// The current month still counts when today is before the 15th. Otherwise the
// next selected month later this year wins, then the first selected month of
// next year. Inactive clients and empty schedules get NoScheduleDate.
func ComputeNextDue(months MonthSet, inactive bool, today time.Time) time.Time {
	if inactive || months.Empty() {
		return NoScheduleDate
	}

	year, month, day := today.Date()
	current := int(month) - 1

	if months.Has(current) && day < CycleDay {
		return CycleDate(year, month)
	}
	return nextSelected(months, year, current)
}

// NextCycleAfter returns the cycle following the one due on dueDate.
// It is anchored on dueDate's month, not on today, so completing an overdue
// cycle advances exactly one cycle.
func NextCycleAfter(months MonthSet, inactive bool, dueDate time.Time) time.Time {
	if inactive || months.Empty() {
		return NoScheduleDate
	}
	return nextSelected(months, dueDate.Year(), int(dueDate.Month())-1)
}

func nextSelected(months MonthSet, year, current int) time.Time {
	if next := months.after(current); next >= 0 {
		return CycleDate(year, time.Month(next+1))
	}
	return CycleDate(year+1, time.Month(months.first()+1))
}
