package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/teranos/pmcal/errors"
	"github.com/teranos/pmcal/maint"
	"github.com/teranos/pmcal/maint/due"
)

// CreateSeries inserts a series and its phases. Run it inside InTx.
func (s *Store) CreateSeries(ctx context.Context, series *maint.Series, phases []*maint.Phase) error {
	if series.ID == "" {
		series.ID = uuid.NewString()
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO recurring_job_series (
			id, tenant_id, client_id, start_date, summary, description, job_type, priority,
			default_technician_id, last_generated_at, generated_count, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		series.ID, series.TenantID, nullString(series.ClientID), due.Format(series.StartDate),
		series.Summary, nullString(series.Description), nullString(series.JobType), nullString(series.Priority),
		nullString(series.DefaultTechnicianID), nullTime(series.LastGeneratedAt), series.GeneratedCount,
		formatTime(series.CreatedAt), formatTime(series.UpdatedAt),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to create series %s", series.ID)
	}

	for _, p := range phases {
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		p.SeriesID = series.ID

		var endDate any
		if p.EndDate != nil {
			endDate = due.Format(*p.EndDate)
		}
		if _, err := s.q.ExecContext(ctx, `
			INSERT INTO recurring_job_phases (id, series_id, order_index, frequency, interval_count, occurrences, end_date)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.ID, p.SeriesID, p.OrderIndex, string(p.Frequency), p.Interval, nullInt(p.Occurrences), endDate,
		); err != nil {
			return errors.Wrapf(err, "failed to create phase %d of series %s", p.OrderIndex, series.ID)
		}
	}
	return nil
}

// GetSeries returns the series and its phases in order, or nil when absent.
func (s *Store) GetSeries(ctx context.Context, tenantID, id string) (*maint.Series, []*maint.Phase, error) {
	var series maint.Series
	var clientID, description, jobType, priority, technician, lastGenerated sql.NullString
	var startDate, createdAt, updatedAt string

	err := s.q.QueryRowContext(ctx, `
		SELECT id, tenant_id, client_id, start_date, summary, description, job_type, priority,
		       default_technician_id, last_generated_at, generated_count, created_at, updated_at
		FROM recurring_job_series
		WHERE tenant_id = ? AND id = ?`, tenantID, id,
	).Scan(
		&series.ID, &series.TenantID, &clientID, &startDate, &series.Summary, &description, &jobType, &priority,
		&technician, &lastGenerated, &series.GeneratedCount, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, errors.Wrapf(err, "failed to get series %s", id)
	}

	series.ClientID = clientID.String
	series.Description = description.String
	series.JobType = jobType.String
	series.Priority = priority.String
	series.DefaultTechnicianID = technician.String
	if series.StartDate, err = due.Parse(startDate); err != nil {
		return nil, nil, errors.Wrapf(err, "parse start_date for series %s", id)
	}
	if series.LastGeneratedAt, err = parseNullTime(lastGenerated); err != nil {
		return nil, nil, errors.Wrapf(err, "parse last_generated_at for series %s", id)
	}
	if series.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, nil, errors.Wrapf(err, "parse created_at for series %s", id)
	}
	if series.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, nil, errors.Wrapf(err, "parse updated_at for series %s", id)
	}

	phases, err := s.listPhases(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return &series, phases, nil
}

func (s *Store) listPhases(ctx context.Context, seriesID string) ([]*maint.Phase, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, series_id, order_index, frequency, interval_count, occurrences, end_date
		FROM recurring_job_phases
		WHERE series_id = ?
		ORDER BY order_index`, seriesID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list phases of series %s", seriesID)
	}
	defer rows.Close()

	var phases []*maint.Phase
	for rows.Next() {
		var p maint.Phase
		var frequency string
		var occurrences sql.NullInt64
		var endDate sql.NullString

		if err := rows.Scan(&p.ID, &p.SeriesID, &p.OrderIndex, &frequency, &p.Interval, &occurrences, &endDate); err != nil {
			return nil, errors.Wrap(err, "failed to scan phase")
		}
		p.Frequency = maint.Frequency(frequency)
		if occurrences.Valid {
			n := int(occurrences.Int64)
			p.Occurrences = &n
		}
		if endDate.Valid {
			d, err := due.Parse(endDate.String)
			if err != nil {
				return nil, errors.Wrapf(err, "parse end_date for phase %s", p.ID)
			}
			p.EndDate = &d
		}
		phases = append(phases, &p)
	}
	return phases, errors.Wrap(rows.Err(), "iterate phases")
}

// RecordGeneration updates the series bookkeeping after a generation run.
func (s *Store) RecordGeneration(ctx context.Context, tenantID, id string, at time.Time, generated int) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE recurring_job_series
		SET last_generated_at = ?, generated_count = generated_count + ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?`,
		formatTime(at), generated, formatTime(at), tenantID, id,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to record generation for series %s", id)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NewNotFoundError("series %s", id)
	}
	return nil
}
