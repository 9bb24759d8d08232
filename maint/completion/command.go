package completion

import (
	"context"
	"time"

	"github.com/teranos/pmcal/errors"
	"github.com/teranos/pmcal/maint"
	"github.com/teranos/pmcal/maint/calendar"
	"github.com/teranos/pmcal/maint/due"
	"github.com/teranos/pmcal/maint/workorder"
)

// Command is every write one toggle makes. It is planned from a snapshot read
// and applied inside the same transaction, so either all of it lands or none.
type Command struct {
	TenantID  string
	ClientID  string
	DueDate   time.Time
	Completed bool // state the cycle ends up in

	Record     *maint.MaintenanceRecord
	NextDue    time.Time
	Assignment *maint.Assignment // slot for DueDate's month, nil when there is none
	WorkOrder  *maint.WorkOrder  // linked order to move to completed, nil when none
	Provision  *due.YearMonth    // next cycle's month needing a placeholder, nil when covered
}

// plan reads the current state of one cycle and decides the writes.
func plan(ctx context.Context, tx maint.Store, tenantID, clientID string, dueDate, now time.Time) (*Command, error) {
	client, err := tx.GetClient(ctx, tenantID, clientID)
	if err != nil {
		return nil, errors.Wrap(err, "load client")
	}
	if client == nil {
		return nil, errors.NewNotFoundError("client %s", clientID)
	}

	record, err := tx.GetRecord(ctx, tenantID, clientID, dueDate)
	if err != nil {
		return nil, errors.Wrap(err, "load maintenance record")
	}
	assignment, err := tx.GetAssignmentByMonth(ctx, tenantID, clientID, dueDate.Year(), dueDate.Month())
	if err != nil {
		return nil, errors.Wrap(err, "load assignment")
	}

	cmd := &Command{
		TenantID:   tenantID,
		ClientID:   clientID,
		DueDate:    dueDate,
		Assignment: assignment,
	}

	if record.IsCompleted() {
		// Completed -> Open: keep the row, clear the fact, restore the cycle as due
		record.CompletedAt = nil
		record.UpdatedAt = now
		cmd.Record = record
		cmd.NextDue = dueDate
		if assignment != nil {
			assignment.Completed = false
			assignment.UpdatedAt = now
		}
		return cmd, nil
	}

	// Open -> Completed
	if record == nil {
		record = &maint.MaintenanceRecord{
			TenantID:  tenantID,
			ClientID:  clientID,
			DueDate:   dueDate,
			CreatedAt: now,
		}
	}
	completedAt := now
	record.CompletedAt = &completedAt
	record.UpdatedAt = now
	cmd.Record = record
	cmd.Completed = true
	cmd.NextDue = due.NextCycleAfter(client.SelectedMonths, client.Inactive, dueDate)

	if assignment != nil {
		assignment.Completed = true
		assignment.UpdatedAt = now
		if cmd.WorkOrder, err = linkedOrderToComplete(ctx, tx, tenantID, assignment); err != nil {
			return nil, err
		}
	}

	if !due.IsNoSchedule(cmd.NextDue) {
		next := due.YearMonthOf(cmd.NextDue)
		existing, err := tx.GetAssignmentByMonth(ctx, tenantID, clientID, next.Year, next.Month)
		if err != nil {
			return nil, errors.Wrap(err, "check next cycle assignment")
		}
		if existing == nil {
			cmd.Provision = &next
		}
	}
	return cmd, nil
}

// linkedOrderToComplete returns the slot's work order when it still has to be
// moved to completed. Orders already at or past completion are left alone.
func linkedOrderToComplete(ctx context.Context, tx maint.Store, tenantID string, a *maint.Assignment) (*maint.WorkOrder, error) {
	if a.WorkOrderID == nil {
		return nil, nil
	}
	w, err := tx.GetWorkOrder(ctx, tenantID, *a.WorkOrderID)
	if err != nil {
		return nil, errors.Wrap(err, "load linked work order")
	}
	if w == nil {
		return nil, nil
	}

	switch w.Status {
	case maint.StatusCompleted, maint.StatusInvoiced, maint.StatusClosed, maint.StatusArchived, maint.StatusCancelled:
		return nil, nil
	}
	if err := workorder.AssertTransition(w.Status, maint.StatusCompleted); err != nil {
		return nil, errors.WithHintf(
			errors.Wrapf(err, "linked work order %d", w.JobNumber),
			"move work order %d to scheduled or in_progress before completing the visit", w.JobNumber,
		)
	}
	return w, nil
}

// Apply performs the planned writes using tx.
func (c *Command) Apply(ctx context.Context, tx maint.Store, now time.Time) (*maint.Assignment, error) {
	if err := tx.SaveRecord(ctx, c.Record); err != nil {
		return nil, err
	}
	if err := tx.SetClientNextDue(ctx, c.TenantID, c.ClientID, c.NextDue, now); err != nil {
		return nil, err
	}
	if c.Assignment != nil {
		if err := tx.UpdateAssignment(ctx, c.Assignment); err != nil {
			return nil, err
		}
	}
	if c.WorkOrder != nil {
		if err := workorder.Apply(ctx, tx, c.WorkOrder, maint.StatusCompleted, maint.FixedClock(now)); err != nil {
			return nil, err
		}
	}
	if c.Provision == nil {
		return nil, nil
	}
	provisioned, err := calendar.Insert(ctx, tx, c.TenantID, c.ClientID, c.Provision.Year, c.Provision.Month, maint.AssignmentFields{}, now)
	if err != nil {
		return nil, errors.Wrap(err, "provision next cycle")
	}
	return provisioned, nil
}
