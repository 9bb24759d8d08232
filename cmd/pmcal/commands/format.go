package commands

import (
	"strconv"
	"strings"
	"time"

	"github.com/pterm/pterm"

	"github.com/teranos/pmcal/errors"
	"github.com/teranos/pmcal/maint"
	"github.com/teranos/pmcal/maint/due"
)

// parseMonths accepts a comma-separated list of month numbers (1-12) or
// names ("Mar", "june"). An empty string is the empty set.
func parseMonths(s string) (due.MonthSet, error) {
	var indexes []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if n, err := strconv.Atoi(part); err == nil {
			if n < 1 || n > 12 {
				return 0, errors.WithHint(
					errors.NewInvalidRequestError("month %d out of range", n),
					"use 1-12 or month names such as Mar,Jun,Sep,Dec",
				)
			}
			indexes = append(indexes, n-1)
			continue
		}
		m, ok := monthByName(part)
		if !ok {
			return 0, errors.WithHint(
				errors.NewInvalidRequestError("unknown month %q", part),
				"use 1-12 or month names such as Mar,Jun,Sep,Dec",
			)
		}
		indexes = append(indexes, int(m)-1)
	}
	return due.NewMonthSet(indexes...)
}

func monthByName(s string) (time.Month, bool) {
	s = strings.ToLower(s)
	for m := time.January; m <= time.December; m++ {
		name := strings.ToLower(m.String())
		if s == name || (len(s) >= 3 && strings.HasPrefix(name, s)) {
			return m, true
		}
	}
	return 0, false
}

// parseYearMonth parses "2025-09".
func parseYearMonth(s string) (due.YearMonth, error) {
	t, err := time.Parse("2006-01", strings.TrimSpace(s))
	if err != nil {
		return due.YearMonth{}, errors.WithHint(
			errors.NewInvalidRequestError("invalid month %q", s),
			"months are written as YYYY-MM, for example 2025-09",
		)
	}
	return due.YearMonthOf(t), nil
}

// parseDate parses "2025-09-15".
func parseDate(s string) (time.Time, error) {
	d, err := due.Parse(strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, errors.WithHint(
			errors.NewInvalidRequestError("invalid date %q", s),
			"dates are written as YYYY-MM-DD",
		)
	}
	return d, nil
}

// parsePhase parses frequency[:interval[:occurrences[:end-date]]], for
// example "monthly:1:6" or "weekly:2::2026-03-31".
func parsePhase(order int, s string) (*maint.Phase, error) {
	parts := strings.Split(s, ":")
	frequency, err := maint.ParseFrequency(strings.ToLower(strings.TrimSpace(parts[0])))
	if err != nil {
		return nil, err
	}
	p := &maint.Phase{OrderIndex: order, Frequency: frequency, Interval: 1}

	if len(parts) > 4 {
		return nil, errors.NewInvalidRequestError("phase %q has too many fields", s)
	}
	if len(parts) > 1 && parts[1] != "" {
		if p.Interval, err = strconv.Atoi(parts[1]); err != nil {
			return nil, errors.NewInvalidRequestError("phase %q: interval %q is not a number", s, parts[1])
		}
	}
	if len(parts) > 2 && parts[2] != "" {
		n, err := strconv.Atoi(parts[2])
		if err != nil {
			return nil, errors.NewInvalidRequestError("phase %q: occurrences %q is not a number", s, parts[2])
		}
		p.Occurrences = &n
	}
	if len(parts) > 3 && parts[3] != "" {
		end, err := parseDate(parts[3])
		if err != nil {
			return nil, err
		}
		p.EndDate = &end
	}
	return p, p.Validate()
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func formatNextDue(t time.Time) string {
	if due.IsNoSchedule(t) {
		return "no schedule"
	}
	return due.Format(t)
}

func formatSlotDay(a *maint.Assignment) string {
	if a.Unscheduled() {
		return "unscheduled"
	}
	day := due.Format(a.ScheduledDate)
	if a.Hour != nil {
		day += " " + strconv.Itoa(*a.Hour) + ":00"
	}
	return day
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return ""
}

func renderAssignments(list []*maint.Assignment) error {
	data := pterm.TableData{{"Job", "Client", "Month", "Date", "Completed", "Technicians", "ID"}}
	for _, a := range list {
		data = append(data, []string{
			strconv.FormatInt(a.JobNumber, 10),
			a.ClientID,
			a.YearMonth().Key(),
			formatSlotDay(a),
			yesNo(a.Completed),
			strings.Join(a.TechnicianIDs, ","),
			a.ID,
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}

func printAssignment(a *maint.Assignment) {
	pterm.Printfln("ID:           %s", a.ID)
	pterm.Printfln("Job number:   %d", a.JobNumber)
	pterm.Printfln("Client:       %s", a.ClientID)
	pterm.Printfln("Month:        %s", a.YearMonth().Key())
	pterm.Printfln("Date:         %s", formatSlotDay(a))
	pterm.Printfln("Due date:     %s (auto: %t)", due.Format(a.ScheduledDate), a.AutoDueDate)
	pterm.Printfln("Completed:    %t", a.Completed)
	if len(a.TechnicianIDs) > 0 {
		pterm.Printfln("Technicians:  %s", strings.Join(a.TechnicianIDs, ", "))
	}
	if a.WorkOrderID != nil {
		pterm.Printfln("Work order:   %s", *a.WorkOrderID)
	}
	if a.Notes != "" {
		pterm.Printfln("Notes:        %s", a.Notes)
	}
}
