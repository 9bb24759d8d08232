// Package series expands phased recurring job definitions into visits and
// materializes them as work orders.
package series

import (
	"sort"
	"time"

	"github.com/teranos/pmcal/maint"
	"github.com/teranos/pmcal/maint/due"
)

// Generate expands a series into at most count visits.
//
// A cursor starts at the series start date and walks the phases in
// OrderIndex order. A phase is left once its occurrence cap is reached or the
// cursor passes its end date; the cursor carries over into the next phase.
// Fewer than count visits come back when every phase runs out.
func Generate(s *maint.Series, phases []*maint.Phase, count int) []maint.Visit {
	if s == nil || count <= 0 {
		return nil
	}

	ordered := make([]*maint.Phase, len(phases))
	copy(ordered, phases)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].OrderIndex < ordered[j].OrderIndex })

	cursor := due.Truncate(s.StartDate)
	anchorDay := cursor.Day()
	visits := make([]maint.Visit, 0, count)
	idx, produced := 0, 0

	for len(visits) < count && idx < len(ordered) {
		p := ordered[idx]
		if exhausted(p, produced, cursor) {
			idx++
			produced = 0
			continue
		}

		visits = append(visits, maint.Visit{
			SeriesID:     s.ID,
			PhaseIndex:   p.OrderIndex,
			Date:         cursor,
			Summary:      s.Summary,
			Description:  s.Description,
			JobType:      s.JobType,
			Priority:     s.Priority,
			TechnicianID: s.DefaultTechnicianID,
		})
		produced++
		cursor, anchorDay = advance(cursor, anchorDay, p)
	}
	return visits
}

func exhausted(p *maint.Phase, produced int, cursor time.Time) bool {
	if p.Occurrences != nil && produced >= *p.Occurrences {
		return true
	}
	if p.EndDate != nil && cursor.After(due.Truncate(*p.EndDate)) {
		return true
	}
	switch p.Frequency {
	case maint.FrequencyDaily, maint.FrequencyWeekly, maint.FrequencyMonthly, maint.FrequencyQuarterly, maint.FrequencyYearly:
		return false
	}
	// A frequency we cannot step by would never move the cursor
	return true
}

// advance steps the cursor by one phase period. Month-based steps keep the
// original day of month, clamped to the target month's length, so a series
// starting on the 31st lands on Feb 28 and then back on Mar 31.
func advance(cursor time.Time, anchorDay int, p *maint.Phase) (time.Time, int) {
	n := p.Interval
	if n < 1 {
		n = 1
	}

	switch p.Frequency {
	case maint.FrequencyDaily:
		next := cursor.AddDate(0, 0, n)
		return next, next.Day()
	case maint.FrequencyWeekly:
		next := cursor.AddDate(0, 0, 7*n)
		return next, next.Day()
	case maint.FrequencyMonthly:
		return addMonths(cursor, n, anchorDay), anchorDay
	case maint.FrequencyQuarterly:
		return addMonths(cursor, 3*n, anchorDay), anchorDay
	case maint.FrequencyYearly:
		return addMonths(cursor, 12*n, anchorDay), anchorDay
	}
	return cursor, anchorDay
}

func addMonths(cursor time.Time, months, anchorDay int) time.Time {
	target := due.YearMonthOf(cursor).AddMonths(months)
	day := anchorDay
	if last := target.DaysIn(); day > last {
		day = last
	}
	return due.Date(target.Year, target.Month, day)
}
