package maint

import "time"

// WorkOrderStatus is a work order's lifecycle state.
type WorkOrderStatus string

const (
	StatusDraft      WorkOrderStatus = "draft"
	StatusScheduled  WorkOrderStatus = "scheduled"
	StatusInProgress WorkOrderStatus = "in_progress"
	StatusOnHold     WorkOrderStatus = "on_hold"
	StatusCompleted  WorkOrderStatus = "completed"
	StatusInvoiced   WorkOrderStatus = "invoiced"
	StatusClosed     WorkOrderStatus = "closed"
	StatusArchived   WorkOrderStatus = "archived"
	StatusCancelled  WorkOrderStatus = "cancelled"
)

// WorkOrder is a concrete job, either entered by hand or materialized from a series.
type WorkOrder struct {
	ID            string
	TenantID      string
	ClientID      string
	SeriesID      *string
	JobNumber     int64
	InvoiceNumber *int64
	Summary       string
	Description   string
	JobType       string
	Priority      string
	TechnicianID  string
	ScheduledDate time.Time
	Status        WorkOrderStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
