package engine

import (
	"context"
	"strings"

	"github.com/teranos/pmcal/errors"
	"github.com/teranos/pmcal/logger"
	"github.com/teranos/pmcal/maint"
	"github.com/teranos/pmcal/maint/due"
	"github.com/teranos/pmcal/maint/refresh"
)

// CreateClient registers a schedule owner. Client management proper lives
// elsewhere; this exists so a tenant can be seeded.
func (e *Engine) CreateClient(ctx context.Context, rc maint.RequestContext, name string, months due.MonthSet, inactive bool) (*maint.Client, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(name) == "" {
		return nil, errors.NewInvalidRequestError("client name is required")
	}

	now := e.clock.Now()
	c := &maint.Client{
		TenantID:       rc.TenantID,
		Name:           name,
		SelectedMonths: months,
		Inactive:       inactive,
		NextDue:        due.ComputeNextDue(months, inactive, now),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := e.store.CreateClient(ctx, c); err != nil {
		return nil, errors.MarkTransactionFailure(err)
	}

	logger.TenantLogger(e.logger, rc.TenantID, rc.ActorID).Infow("Client created",
		logger.FieldClientID, c.ID,
		"months", months.String(),
		logger.FieldNextDue, due.Format(c.NextDue))
	return c, nil
}

// GetClient returns a client, or nil when absent.
func (e *Engine) GetClient(ctx context.Context, rc maint.RequestContext, id string) (*maint.Client, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	return e.store.GetClient(ctx, rc.TenantID, id)
}

// ListClients returns the tenant's clients.
func (e *Engine) ListClients(ctx context.Context, rc maint.RequestContext, activeOnly bool) ([]*maint.Client, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	return e.store.ListClients(ctx, rc.TenantID, activeOnly)
}

// SetClientSchedule replaces a client's months and activity flag and
// recomputes NextDue from today in the same transaction.
func (e *Engine) SetClientSchedule(ctx context.Context, rc maint.RequestContext, clientID string, months due.MonthSet, inactive bool) (*maint.Client, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}

	var updated *maint.Client
	err := e.store.InTx(ctx, func(tx maint.Store) error {
		c, err := tx.GetClient(ctx, rc.TenantID, clientID)
		if err != nil {
			return errors.Wrap(err, "load client")
		}
		if c == nil {
			return errors.NewNotFoundError("client %s", clientID)
		}

		now := e.clock.Now()
		c.SelectedMonths = months
		c.Inactive = inactive
		if c.NextDue, err = refresh.NextDueFor(ctx, tx, c, now); err != nil {
			return err
		}
		c.UpdatedAt = now
		if err := tx.UpdateClientSchedule(ctx, c); err != nil {
			return err
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.TenantLogger(e.logger, rc.TenantID, rc.ActorID).Infow("Client schedule updated",
		logger.FieldClientID, clientID,
		"months", months.String(),
		"inactive", inactive,
		logger.FieldNextDue, due.Format(updated.NextDue))
	return updated, nil
}
