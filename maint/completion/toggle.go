// Package completion flips a maintenance cycle between open and completed.
//
// One toggle touches up to five records: the maintenance record, the client's
// NextDue, the cycle's calendar slot, a linked work order and the next
// cycle's placeholder slot. They are written in one transaction.
package completion

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/pmcal/errors"
	"github.com/teranos/pmcal/logger"
	"github.com/teranos/pmcal/maint"
	"github.com/teranos/pmcal/maint/due"
)

// Result is the outcome of one toggle.
type Result struct {
	Completed bool
	NextDue   *time.Time // set when the cycle was completed

	// Provisioned is the placeholder created for the next cycle, if any
	Provisioned *maint.Assignment
}

// Toggle handles completion toggles
type Toggle struct {
	store  maint.Store
	clock  maint.Clock
	logger *zap.SugaredLogger
}

// NewToggle creates a completion toggle
func NewToggle(store maint.Store, clock maint.Clock, log *zap.SugaredLogger) *Toggle {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Toggle{store: store, clock: clock, logger: log}
}

// Toggle completes an open cycle or reopens a completed one.
//
// dueDate names the cycle and comes from the caller, not from today, so
// overdue and future cycles can be completed explicitly. Calling it twice with
// the same dueDate returns the cycle to where it started.
func (t *Toggle) Toggle(ctx context.Context, rc maint.RequestContext, clientID string, dueDate time.Time) (Result, error) {
	if err := rc.Validate(); err != nil {
		return Result{}, err
	}
	dueDate = due.Truncate(dueDate)
	if due.IsNoSchedule(dueDate) {
		return Result{}, errors.NewInvalidRequestError("cannot complete the no-schedule sentinel date")
	}

	now := t.clock.Now()
	var cmd *Command
	var provisioned *maint.Assignment
	err := t.store.InTx(ctx, func(tx maint.Store) error {
		var err error
		if cmd, err = plan(ctx, tx, rc.TenantID, clientID, dueDate, now); err != nil {
			return err
		}
		provisioned, err = cmd.Apply(ctx, tx, now)
		return err
	})
	if err != nil {
		logger.TenantLogger(t.logger, rc.TenantID, rc.ActorID).Warnw("Completion toggle failed",
			logger.FieldClientID, clientID,
			logger.FieldDueDate, due.Format(dueDate),
			logger.FieldError, err)
		return Result{}, err
	}

	result := Result{Completed: cmd.Completed, Provisioned: provisioned}
	if cmd.Completed {
		next := cmd.NextDue
		result.NextDue = &next
	}

	log := logger.TenantLogger(t.logger, rc.TenantID, rc.ActorID)
	log.Infow("Completion toggled",
		logger.FieldClientID, clientID,
		logger.FieldDueDate, due.Format(dueDate),
		logger.FieldCompleted, cmd.Completed,
		logger.FieldNextDue, due.Format(cmd.NextDue))
	if provisioned != nil {
		log.Debugw("Next cycle provisioned",
			logger.FieldAssignmentID, provisioned.ID,
			logger.FieldJobNumber, provisioned.JobNumber,
			logger.FieldYear, provisioned.Year,
			logger.FieldMonth, int(provisioned.Month))
	}
	return result, nil
}
