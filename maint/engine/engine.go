// Package engine is the entry point to maintenance scheduling.
//
// Engine wires the calendar, completion, series, backlog and work-order
// components over one Store and exposes the operations callers use. Every
// call takes a maint.RequestContext by value.
package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/pmcal/maint"
	"github.com/teranos/pmcal/maint/backlog"
	"github.com/teranos/pmcal/maint/calendar"
	"github.com/teranos/pmcal/maint/completion"
	"github.com/teranos/pmcal/maint/due"
	"github.com/teranos/pmcal/maint/refresh"
	"github.com/teranos/pmcal/maint/series"
	"github.com/teranos/pmcal/maint/workorder"
)

// Engine is the scheduling facade
type Engine struct {
	store  maint.Store
	clock  maint.Clock
	logger *zap.SugaredLogger

	calendar   *calendar.Service
	completion *completion.Toggle
	series     *series.Service
	backlog    *backlog.Scanner
	workOrders *workorder.Service
}

// New creates an engine over store. log may be nil.
func New(store maint.Store, clock maint.Clock, log *zap.SugaredLogger) *Engine {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if clock == nil {
		clock = maint.SystemClock{}
	}
	return &Engine{
		store:      store,
		clock:      clock,
		logger:     log,
		calendar:   calendar.NewService(store, clock, log.Named("calendar")),
		completion: completion.NewToggle(store, clock, log.Named("completion")),
		series:     series.NewService(store, clock, log.Named("series")),
		backlog:    backlog.NewScanner(store, clock, log.Named("backlog")),
		workOrders: workorder.NewService(store, clock, log.Named("workorder")),
	}
}

// Clock returns the engine's time source
func (e *Engine) Clock() maint.Clock {
	return e.clock
}

// ComputeNextDue is the pure due-date rule.
func (e *Engine) ComputeNextDue(months due.MonthSet, inactive bool, today time.Time) time.Time {
	return due.ComputeNextDue(months, inactive, today)
}

// CreateAssignment adds a visit slot. ErrDuplicateAssignment if the month is taken.
func (e *Engine) CreateAssignment(ctx context.Context, rc maint.RequestContext, clientID string, year int, month time.Month, fields maint.AssignmentFields) (*maint.Assignment, error) {
	return e.calendar.Create(ctx, rc, clientID, year, month, fields)
}

// GetAssignment returns a slot, or nil when absent.
func (e *Engine) GetAssignment(ctx context.Context, rc maint.RequestContext, id string) (*maint.Assignment, error) {
	return e.calendar.Get(ctx, rc, id)
}

// GetAssignmentByMonth returns the client's slot for a month, or nil.
func (e *Engine) GetAssignmentByMonth(ctx context.Context, rc maint.RequestContext, clientID string, year int, month time.Month) (*maint.Assignment, error) {
	return e.calendar.GetByMonth(ctx, rc, clientID, year, month)
}

// ListAssignments returns a month's slots, optionally for one technician.
func (e *Engine) ListAssignments(ctx context.Context, rc maint.RequestContext, year int, month time.Month, technicianID string) ([]*maint.Assignment, error) {
	return e.calendar.List(ctx, rc, year, month, technicianID)
}

// UpdateAssignment applies a partial patch. ErrNotFound if the slot is absent.
func (e *Engine) UpdateAssignment(ctx context.Context, rc maint.RequestContext, id string, patch maint.AssignmentPatch) (*maint.Assignment, error) {
	return e.calendar.Update(ctx, rc, id, patch)
}

// DeleteAssignment removes a slot and recomputes the owning client's NextDue
// in the same transaction.
func (e *Engine) DeleteAssignment(ctx context.Context, rc maint.RequestContext, id string) (bool, error) {
	return e.calendar.DeleteAndRecompute(ctx, rc, id)
}

// ToggleCompletion flips the cycle due on dueDate between open and completed.
func (e *Engine) ToggleCompletion(ctx context.Context, rc maint.RequestContext, clientID string, dueDate time.Time) (completion.Result, error) {
	return e.completion.Toggle(ctx, rc, clientID, dueDate)
}

// CreateSeries stores a recurring series and its phases.
func (e *Engine) CreateSeries(ctx context.Context, rc maint.RequestContext, s *maint.Series, phases []*maint.Phase) error {
	return e.series.CreateSeries(ctx, rc, s, phases)
}

// GenerateFromSeries materializes up to count visits of a series as work orders.
func (e *Engine) GenerateFromSeries(ctx context.Context, rc maint.RequestContext, seriesID string, count int) ([]maint.Visit, error) {
	return e.series.Materialize(ctx, rc, seriesID, count)
}

// ScanBacklog returns the existing-unscheduled and missing views.
func (e *Engine) ScanBacklog(ctx context.Context, rc maint.RequestContext) (backlog.Result, error) {
	return e.backlog.Scan(ctx, rc)
}

// StaleBacklog returns open placeholders older than the backlog window.
func (e *Engine) StaleBacklog(ctx context.Context, rc maint.RequestContext, limit int) ([]backlog.Entry, error) {
	return e.backlog.Stale(ctx, rc, limit)
}

// AssertWorkOrderTransition validates a status change without persisting it.
func (e *Engine) AssertWorkOrderTransition(from, to maint.WorkOrderStatus) error {
	return workorder.AssertTransition(from, to)
}

// TransitionWorkOrder persists a guarded status change.
func (e *Engine) TransitionWorkOrder(ctx context.Context, rc maint.RequestContext, id string, to maint.WorkOrderStatus) (*maint.WorkOrder, error) {
	return e.workOrders.Transition(ctx, rc, id, to)
}

// NewRefresher builds a periodic NextDue refresher over the engine's store and clock.
func (e *Engine) NewRefresher(ctx context.Context, cfg refresh.Config) *refresh.Refresher {
	return refresh.NewRefresherWithContext(ctx, e.store, e.clock, cfg, e.logger.Named("refresh"))
}
