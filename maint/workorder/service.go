package workorder

import (
	"context"

	"go.uber.org/zap"

	"github.com/teranos/pmcal/errors"
	"github.com/teranos/pmcal/logger"
	"github.com/teranos/pmcal/maint"
)

// Service persists guarded status changes.
type Service struct {
	store  maint.Store
	clock  maint.Clock
	logger *zap.SugaredLogger
}

// NewService creates a work-order service
func NewService(store maint.Store, clock maint.Clock, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{store: store, clock: clock, logger: log}
}

// Transition moves a work order to status `to`.
// Moving to invoiced issues the tenant's next invoice number in the same transaction.
func (s *Service) Transition(ctx context.Context, rc maint.RequestContext, id string, to maint.WorkOrderStatus) (*maint.WorkOrder, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}

	var result *maint.WorkOrder
	err := s.store.InTx(ctx, func(tx maint.Store) error {
		w, err := tx.GetWorkOrder(ctx, rc.TenantID, id)
		if err != nil {
			return errors.Wrap(err, "load work order")
		}
		if w == nil {
			return errors.NewNotFoundError("work order %s", id)
		}
		if err := Apply(ctx, tx, w, to, s.clock); err != nil {
			return err
		}
		result = w
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.TenantLogger(s.logger, rc.TenantID, rc.ActorID).Infow("Work order transitioned",
		logger.FieldWorkOrderID, id,
		logger.FieldJobNumber, result.JobNumber,
		logger.FieldStatus, string(to))
	return result, nil
}

// Apply guards and persists one status change on w using tx.
// Components that flip status as a side effect call this inside their own transaction.
func Apply(ctx context.Context, tx maint.Store, w *maint.WorkOrder, to maint.WorkOrderStatus, clock maint.Clock) error {
	if err := AssertTransition(w.Status, to); err != nil {
		return errors.Wrapf(err, "work order %d", w.JobNumber)
	}
	if w.Status == to {
		return nil
	}

	now := clock.Now()
	if to == maint.StatusInvoiced && w.InvoiceNumber == nil {
		n, err := tx.IssueInvoiceNumber(ctx, w.TenantID, now)
		if err != nil {
			return errors.Wrap(err, "issue invoice number")
		}
		w.InvoiceNumber = &n
	}

	w.Status = to
	w.UpdatedAt = now
	if err := tx.UpdateWorkOrderStatus(ctx, w); err != nil {
		return errors.Wrap(err, "update work order status")
	}
	return nil
}
