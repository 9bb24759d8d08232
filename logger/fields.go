package logger

import (
	"go.uber.org/zap"
)

// Standard field names for consistent structured logging across pmcal.
// Use these constants instead of raw strings to ensure consistency.
const (
	// Identity and scope
	FieldTenantID = "tenant_id"
	FieldActorID  = "actor_id"

	// Components
	FieldComponent = "component"

	// Domain records
	FieldClientID     = "client_id"
	FieldAssignmentID = "assignment_id"
	FieldSeriesID     = "series_id"
	FieldWorkOrderID  = "work_order_id"
	FieldJobNumber    = "job_number"
	FieldDueDate      = "due_date"
	FieldNextDue      = "next_due"
	FieldYear         = "year"
	FieldMonth        = "month"

	// Timing
	FieldDurationMS = "duration_ms"

	// Errors
	FieldError = "error"

	// Counts and state
	FieldCount     = "count"
	FieldCompleted = "completed"
	FieldStatus    = "status"

	// Files
	FieldFile = "file"

	// CLI glyph (sym package)
	FieldSymbol = "symbol"
)

// ComponentLogger returns a named logger for a specific component.
// This is the preferred way to get a logger for dependency injection.
//
// Example:
//
//	toggle := completion.NewToggle(st, clock, logger.ComponentLogger("completion"))
func ComponentLogger(name string) *zap.SugaredLogger {
	return Logger.Named(name)
}

// TenantLogger scopes a logger to one tenant (and actor, when known).
func TenantLogger(parent *zap.SugaredLogger, tenantID, actorID string) *zap.SugaredLogger {
	if actorID == "" {
		return parent.With(FieldTenantID, tenantID)
	}
	return parent.With(FieldTenantID, tenantID, FieldActorID, actorID)
}
