// Package refresh keeps Client.NextDue in step with "today".
//
// Completion advances NextDue from the completed cycle. Everything else
// (schedule edits, slot deletion, the periodic refresher) recomputes from
// today and skips cycles that already have a completed record.
package refresh

import (
	"context"
	"time"

	"github.com/teranos/pmcal/errors"
	"github.com/teranos/pmcal/maint"
	"github.com/teranos/pmcal/maint/due"
)

// maxSkips bounds how many already-completed cycles are stepped over.
const maxSkips = 12

// RecomputeNextDue returns ComputeNextDue(today), advanced past any cycle for
// which completed returns true. completed may be nil.
func RecomputeNextDue(months due.MonthSet, inactive bool, today time.Time, completed func(time.Time) bool) time.Time {
	next := due.ComputeNextDue(months, inactive, today)
	if completed == nil {
		return next
	}
	for i := 0; i < maxSkips && !due.IsNoSchedule(next) && completed(next); i++ {
		next = due.NextCycleAfter(months, inactive, next)
	}
	return next
}

// NextDueFor recomputes c's next due date against the records in st.
func NextDueFor(ctx context.Context, st maint.Store, c *maint.Client, today time.Time) (time.Time, error) {
	if !c.HasSchedule() {
		return due.NoScheduleDate, nil
	}

	dates, err := st.CompletedDueDates(ctx, c.TenantID, c.ID, due.Truncate(today))
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "load completed cycles for client %s", c.ID)
	}
	done := make(map[string]bool, len(dates))
	for _, d := range dates {
		done[due.Format(d)] = true
	}

	return RecomputeNextDue(c.SelectedMonths, c.Inactive, today, func(d time.Time) bool {
		return done[due.Format(d)]
	}), nil
}
