// Package calendar manages visit slots: one assignment per client and month.
package calendar

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/pmcal/errors"
	"github.com/teranos/pmcal/logger"
	"github.com/teranos/pmcal/maint"
	"github.com/teranos/pmcal/maint/due"
	"github.com/teranos/pmcal/maint/refresh"
)

// Service handles calendar assignment operations
type Service struct {
	store  maint.Store
	clock  maint.Clock
	logger *zap.SugaredLogger
}

// NewService creates a calendar service
func NewService(store maint.Store, clock maint.Clock, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{store: store, clock: clock, logger: log}
}

// Create adds a slot for (client, year, month).
// It fails with ErrDuplicateAssignment if the slot is taken and ErrNotFound if
// the client does not exist. The job number is issued in the same transaction.
func (s *Service) Create(ctx context.Context, rc maint.RequestContext, clientID string, year int, month time.Month, fields maint.AssignmentFields) (*maint.Assignment, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}

	var created *maint.Assignment
	err := s.store.InTx(ctx, func(tx maint.Store) error {
		client, err := tx.GetClient(ctx, rc.TenantID, clientID)
		if err != nil {
			return errors.Wrap(err, "load client")
		}
		if client == nil {
			return errors.NewNotFoundError("client %s", clientID)
		}

		created, err = Insert(ctx, tx, rc.TenantID, clientID, year, month, fields, s.clock.Now())
		return err
	})
	if err != nil {
		return nil, err
	}

	logger.TenantLogger(s.logger, rc.TenantID, rc.ActorID).Infow("Assignment created",
		logger.FieldAssignmentID, created.ID,
		logger.FieldClientID, clientID,
		logger.FieldJobNumber, created.JobNumber,
		logger.FieldYear, year,
		logger.FieldMonth, int(month),
		"unscheduled", created.Unscheduled())
	return created, nil
}

// Insert validates and inserts a slot using tx, which must be a transaction.
// The existence check and the counter increment share that transaction, so a
// slot is never numbered twice and never duplicated.
// With neither Day nor ScheduledDate set, the slot is an unscheduled
// placeholder dated on the month's cycle.
func Insert(ctx context.Context, tx maint.Store, tenantID, clientID string, year int, month time.Month, fields maint.AssignmentFields, now time.Time) (*maint.Assignment, error) {
	ym := due.YearMonth{Year: year, Month: month}
	if err := validateMonth(ym); err != nil {
		return nil, err
	}
	if fields.Day != nil {
		if err := validateDay(ym, *fields.Day); err != nil {
			return nil, err
		}
	}
	if err := validateHour(fields.Hour); err != nil {
		return nil, err
	}

	existing, err := tx.GetAssignmentByMonth(ctx, tenantID, clientID, year, month)
	if err != nil {
		return nil, errors.Wrap(err, "check existing assignment")
	}
	if existing != nil {
		return nil, errors.NewDuplicateAssignmentError(clientID, year, int(month))
	}

	jobNumber, err := tx.IssueJobNumber(ctx, tenantID, now)
	if err != nil {
		return nil, errors.Wrap(err, "issue job number")
	}

	a := &maint.Assignment{
		TenantID:      tenantID,
		ClientID:      clientID,
		Year:          year,
		Month:         month,
		Day:           fields.Day,
		Hour:          fields.Hour,
		JobNumber:     jobNumber,
		TechnicianIDs: maint.NormalizeTechnicians(fields.TechnicianIDs),
		WorkOrderID:   fields.WorkOrderID,
		Notes:         fields.Notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	switch {
	case fields.ScheduledDate != nil:
		a.ScheduledDate = due.Truncate(*fields.ScheduledDate)
	case fields.Day != nil:
		a.ScheduledDate = due.Date(year, month, *fields.Day)
	default:
		a.ScheduledDate = ym.Cycle()
		a.AutoDueDate = true
	}

	if err := tx.InsertAssignment(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Get returns a slot by id, or nil when absent.
func (s *Service) Get(ctx context.Context, rc maint.RequestContext, id string) (*maint.Assignment, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	return s.store.GetAssignment(ctx, rc.TenantID, id)
}

// GetByMonth returns the client's slot for (year, month), or nil when absent.
func (s *Service) GetByMonth(ctx context.Context, rc maint.RequestContext, clientID string, year int, month time.Month) (*maint.Assignment, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	if err := validateMonth(due.YearMonth{Year: year, Month: month}); err != nil {
		return nil, err
	}
	return s.store.GetAssignmentByMonth(ctx, rc.TenantID, clientID, year, month)
}

// List returns the month's slots. A non-empty technicianID keeps only slots that technician is on.
func (s *Service) List(ctx context.Context, rc maint.RequestContext, year int, month time.Month, technicianID string) ([]*maint.Assignment, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	if err := validateMonth(due.YearMonth{Year: year, Month: month}); err != nil {
		return nil, err
	}
	return s.store.ListAssignments(ctx, rc.TenantID, year, month, technicianID)
}

// Update applies a partial patch. Only supplied fields change.
//
// Setting Day without ScheduledDate moves ScheduledDate to that day of the
// slot's month. Rescheduling never touches Completed; completion has its own
// operation.
func (s *Service) Update(ctx context.Context, rc maint.RequestContext, id string, patch maint.AssignmentPatch) (*maint.Assignment, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}

	var updated *maint.Assignment
	err := s.store.InTx(ctx, func(tx maint.Store) error {
		a, err := tx.GetAssignment(ctx, rc.TenantID, id)
		if err != nil {
			return errors.Wrap(err, "load assignment")
		}
		if a == nil {
			return errors.NewNotFoundError("assignment %s", id)
		}

		if err := applyPatch(a, patch); err != nil {
			return err
		}
		a.UpdatedAt = s.clock.Now()

		if err := tx.UpdateAssignment(ctx, a); err != nil {
			return err
		}
		updated = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.TenantLogger(s.logger, rc.TenantID, rc.ActorID).Infow("Assignment updated",
		logger.FieldAssignmentID, id,
		logger.FieldJobNumber, updated.JobNumber,
		"scheduled_date", due.Format(updated.ScheduledDate))
	return updated, nil
}

func applyPatch(a *maint.Assignment, patch maint.AssignmentPatch) error {
	ym := a.YearMonth()

	if patch.ClearDay && patch.Day != nil {
		return errors.NewInvalidRequestError("cannot set and clear the day in one update")
	}

	if patch.ClearDay {
		a.Day = nil
		if patch.ScheduledDate == nil {
			a.ScheduledDate = ym.Cycle()
			a.AutoDueDate = true
		}
	}
	if patch.Day != nil {
		if err := validateDay(ym, *patch.Day); err != nil {
			return err
		}
		day := *patch.Day
		a.Day = &day
		if patch.ScheduledDate == nil {
			a.ScheduledDate = due.Date(a.Year, a.Month, day)
		}
		a.AutoDueDate = false
	}
	if patch.ScheduledDate != nil {
		a.ScheduledDate = due.Truncate(*patch.ScheduledDate)
		a.AutoDueDate = false
	}
	if patch.Hour != nil {
		if err := validateHour(patch.Hour); err != nil {
			return err
		}
		hour := *patch.Hour
		a.Hour = &hour
	}
	if patch.Completed != nil {
		a.Completed = *patch.Completed
	}
	if patch.TechnicianIDs != nil {
		a.TechnicianIDs = maint.NormalizeTechnicians(*patch.TechnicianIDs)
	}
	if patch.Notes != nil {
		a.Notes = *patch.Notes
	}
	return nil
}

// Delete removes a slot and reports whether it existed.
// The owning client's NextDue is left as is; callers that do not follow up
// with a recompute should use DeleteAndRecompute.
func (s *Service) Delete(ctx context.Context, rc maint.RequestContext, id string) (bool, error) {
	if err := rc.Validate(); err != nil {
		return false, err
	}
	deleted, err := s.store.DeleteAssignment(ctx, rc.TenantID, id)
	if err != nil {
		return false, errors.MarkTransactionFailure(err)
	}
	return deleted, nil
}

// DeleteAndRecompute removes a slot and recomputes the owning client's
// NextDue in the same transaction.
func (s *Service) DeleteAndRecompute(ctx context.Context, rc maint.RequestContext, id string) (bool, error) {
	if err := rc.Validate(); err != nil {
		return false, err
	}

	deleted := false
	var nextDue time.Time
	var clientID string
	err := s.store.InTx(ctx, func(tx maint.Store) error {
		a, err := tx.GetAssignment(ctx, rc.TenantID, id)
		if err != nil {
			return errors.Wrap(err, "load assignment")
		}
		if a == nil {
			return nil
		}
		clientID = a.ClientID

		if deleted, err = tx.DeleteAssignment(ctx, rc.TenantID, id); err != nil {
			return err
		}

		client, err := tx.GetClient(ctx, rc.TenantID, a.ClientID)
		if err != nil {
			return errors.Wrap(err, "load client")
		}
		if client == nil {
			return nil
		}

		now := s.clock.Now()
		if nextDue, err = refresh.NextDueFor(ctx, tx, client, now); err != nil {
			return err
		}
		return tx.SetClientNextDue(ctx, rc.TenantID, client.ID, nextDue, now)
	})
	if err != nil {
		return false, err
	}

	if deleted {
		logger.TenantLogger(s.logger, rc.TenantID, rc.ActorID).Infow("Assignment deleted",
			logger.FieldAssignmentID, id,
			logger.FieldClientID, clientID,
			logger.FieldNextDue, due.Format(nextDue))
	}
	return deleted, nil
}

func validateMonth(ym due.YearMonth) error {
	if ym.Month < time.January || ym.Month > time.December {
		return errors.WithHint(
			errors.NewInvalidRequestError("month %d out of range", int(ym.Month)),
			"assignment months run from 1 (January) to 12 (December)",
		)
	}
	if ym.Year < 1 || ym.Year >= due.NoScheduleDate.Year() {
		return errors.NewInvalidRequestError("year %d out of range", ym.Year)
	}
	return nil
}

func validateDay(ym due.YearMonth, day int) error {
	if day < 1 || day > ym.DaysIn() {
		return errors.NewInvalidRequestError("day %d does not exist in %s", day, ym)
	}
	return nil
}

func validateHour(hour *int) error {
	if hour != nil && (*hour < 0 || *hour > 23) {
		return errors.NewInvalidRequestError("hour %d out of range 0-23", *hour)
	}
	return nil
}
