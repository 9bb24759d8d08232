package maint

import (
	"sort"
	"time"

	"github.com/teranos/pmcal/maint/due"
)

// Client is the owner of a recurring schedule.
// Client management owns the rest of the client record; the engine reads the
// schedule and maintains NextDue.
type Client struct {
	ID             string
	TenantID       string
	Name           string
	SelectedMonths due.MonthSet
	Inactive       bool
	NextDue        time.Time // due.NoScheduleDate when there is no active schedule
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasSchedule reports whether the client should be receiving visits.
func (c *Client) HasSchedule() bool {
	return !c.Inactive && !c.SelectedMonths.Empty()
}

// Assignment is one visit slot: at most one per (tenant, client, year, month).
type Assignment struct {
	ID            string
	TenantID      string
	ClientID      string
	Year          int
	Month         time.Month
	Day           *int // nil = unscheduled placeholder
	Hour          *int
	ScheduledDate time.Time
	AutoDueDate   bool // ScheduledDate was provisioned from the cycle, not picked by a person
	Completed     bool
	JobNumber     int64
	TechnicianIDs []string
	WorkOrderID   *string
	Notes         string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Unscheduled reports whether the slot still needs a day.
func (a *Assignment) Unscheduled() bool {
	return a.Day == nil
}

// YearMonth returns the slot's calendar month.
func (a *Assignment) YearMonth() due.YearMonth {
	return due.YearMonth{Year: a.Year, Month: a.Month}
}

// NormalizeTechnicians returns ids sorted, without blanks or repeats.
// Slots always carry technicians in this form, both in memory and in storage.
func NormalizeTechnicians(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}

// AssignmentFields are the optional fields accepted when creating a slot.
type AssignmentFields struct {
	Day           *int
	Hour          *int
	ScheduledDate *time.Time
	TechnicianIDs []string
	WorkOrderID   *string
	Notes         string
}

// AssignmentPatch is a partial update. Nil fields are left unchanged.
type AssignmentPatch struct {
	Day           *int
	ClearDay      bool // turn the slot back into an unscheduled placeholder
	Hour          *int
	ScheduledDate *time.Time
	Completed     *bool
	TechnicianIDs *[]string
	Notes         *string
}

// MaintenanceRecord is the completion fact for one cycle.
// CompletedAt is the sole authority on whether the cycle is done.
type MaintenanceRecord struct {
	ID          string
	TenantID    string
	ClientID    string
	DueDate     time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// IsCompleted reports whether the cycle counts as done.
func (r *MaintenanceRecord) IsCompleted() bool {
	return r != nil && r.CompletedAt != nil
}
