package series

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/pmcal/errors"
	"github.com/teranos/pmcal/logger"
	"github.com/teranos/pmcal/maint"
	"github.com/teranos/pmcal/maint/due"
	"github.com/teranos/pmcal/maint/workorder"
)

// Service creates series and materializes their visits
type Service struct {
	store  maint.Store
	clock  maint.Clock
	logger *zap.SugaredLogger
}

// NewService creates a series service
func NewService(store maint.Store, clock maint.Clock, log *zap.SugaredLogger) *Service {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Service{store: store, clock: clock, logger: log}
}

// CreateSeries validates and stores a series with its phases.
func (s *Service) CreateSeries(ctx context.Context, rc maint.RequestContext, series *maint.Series, phases []*maint.Phase) error {
	if err := rc.Validate(); err != nil {
		return err
	}
	if strings.TrimSpace(series.Summary) == "" {
		return errors.NewInvalidRequestError("series summary is required")
	}
	if len(phases) == 0 {
		return errors.WithHint(
			errors.NewInvalidRequestError("series needs at least one phase"),
			"add a phase such as --phase monthly:1",
		)
	}
	seen := make(map[int]bool, len(phases))
	for _, p := range phases {
		if err := p.Validate(); err != nil {
			return err
		}
		if seen[p.OrderIndex] {
			return errors.NewInvalidRequestError("duplicate phase order index %d", p.OrderIndex)
		}
		seen[p.OrderIndex] = true
	}

	now := s.clock.Now()
	series.TenantID = rc.TenantID
	series.StartDate = due.Truncate(series.StartDate)
	series.CreatedAt = now
	series.UpdatedAt = now

	err := s.store.InTx(ctx, func(tx maint.Store) error {
		if series.ClientID != "" {
			client, err := tx.GetClient(ctx, rc.TenantID, series.ClientID)
			if err != nil {
				return errors.Wrap(err, "load client")
			}
			if client == nil {
				return errors.NewNotFoundError("client %s", series.ClientID)
			}
		}
		return tx.CreateSeries(ctx, series, phases)
	})
	if err != nil {
		return err
	}

	logger.TenantLogger(s.logger, rc.TenantID, rc.ActorID).Infow("Series created",
		logger.FieldSeriesID, series.ID,
		"phases", len(phases),
		"start_date", due.Format(series.StartDate))
	return nil
}

// Materialize generates up to count visits and makes sure each has a work
// order. Dates that already have one are reused, so repeated calls do not
// duplicate orders. New orders are numbered from the tenant counter and
// enter as scheduled.
func (s *Service) Materialize(ctx context.Context, rc maint.RequestContext, seriesID string, count int) ([]maint.Visit, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	if count < 0 {
		return nil, errors.NewInvalidRequestError("count cannot be negative")
	}

	now := s.clock.Now()
	var visits []maint.Visit
	created := 0
	err := s.store.InTx(ctx, func(tx maint.Store) error {
		series, phases, err := tx.GetSeries(ctx, rc.TenantID, seriesID)
		if err != nil {
			return errors.Wrap(err, "load series")
		}
		if series == nil {
			return errors.NewNotFoundError("series %s", seriesID)
		}

		visits = Generate(series, phases, count)
		for i := range visits {
			v := &visits[i]
			existing, err := tx.FindSeriesWorkOrder(ctx, rc.TenantID, seriesID, v.Date)
			if err != nil {
				return errors.Wrap(err, "check existing work order")
			}
			if existing != nil {
				v.WorkOrderID = existing.ID
				v.JobNumber = existing.JobNumber
				continue
			}

			w, err := newWorkOrder(ctx, tx, series, v, now)
			if err != nil {
				return err
			}
			v.WorkOrderID = w.ID
			v.JobNumber = w.JobNumber
			created++
		}

		return tx.RecordGeneration(ctx, rc.TenantID, seriesID, now, created)
	})
	if err != nil {
		return nil, err
	}

	logger.TenantLogger(s.logger, rc.TenantID, rc.ActorID).Infow("Series materialized",
		logger.FieldSeriesID, seriesID,
		logger.FieldCount, len(visits),
		"created", created)
	return visits, nil
}

func newWorkOrder(ctx context.Context, tx maint.Store, series *maint.Series, v *maint.Visit, now time.Time) (*maint.WorkOrder, error) {
	jobNumber, err := tx.IssueJobNumber(ctx, series.TenantID, now)
	if err != nil {
		return nil, errors.Wrap(err, "issue job number")
	}

	seriesID := series.ID
	w := &maint.WorkOrder{
		TenantID:      series.TenantID,
		ClientID:      series.ClientID,
		SeriesID:      &seriesID,
		JobNumber:     jobNumber,
		Summary:       v.Summary,
		Description:   v.Description,
		JobType:       v.JobType,
		Priority:      v.Priority,
		TechnicianID:  v.TechnicianID,
		ScheduledDate: v.Date,
		Status:        maint.StatusDraft,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	// Generated orders carry a date, so they enter as scheduled
	if err := workorder.AssertTransition(w.Status, maint.StatusScheduled); err != nil {
		return nil, err
	}
	w.Status = maint.StatusScheduled

	if err := tx.InsertWorkOrder(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}
