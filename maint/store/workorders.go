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

const workOrderSelect = `
	SELECT id, tenant_id, client_id, series_id, job_number, invoice_number, summary,
	       description, job_type, priority, technician_id, scheduled_date, status,
	       created_at, updated_at
	FROM work_orders`

// InsertWorkOrder inserts a work order. An empty ID is filled with a new UUID.
func (s *Store) InsertWorkOrder(ctx context.Context, w *maint.WorkOrder) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO work_orders (
			id, tenant_id, client_id, series_id, job_number, invoice_number, summary,
			description, job_type, priority, technician_id, scheduled_date, status,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.TenantID, nullString(w.ClientID), nullStringPtr(w.SeriesID), w.JobNumber, nullInt64(w.InvoiceNumber),
		w.Summary, nullString(w.Description), nullString(w.JobType), nullString(w.Priority), nullString(w.TechnicianID),
		due.Format(w.ScheduledDate), string(w.Status), formatTime(w.CreatedAt), formatTime(w.UpdatedAt),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to insert work order %d", w.JobNumber)
	}
	return nil
}

// GetWorkOrder returns the work order, or nil when absent.
func (s *Store) GetWorkOrder(ctx context.Context, tenantID, id string) (*maint.WorkOrder, error) {
	w, err := scanWorkOrder(s.q.QueryRowContext(ctx, workOrderSelect+`
		WHERE tenant_id = ? AND id = ?`, tenantID, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get work order %s", id)
	}
	return w, nil
}

// FindSeriesWorkOrder returns the order a series already produced for date, or nil.
func (s *Store) FindSeriesWorkOrder(ctx context.Context, tenantID, seriesID string, date time.Time) (*maint.WorkOrder, error) {
	w, err := scanWorkOrder(s.q.QueryRowContext(ctx, workOrderSelect+`
		WHERE tenant_id = ? AND series_id = ? AND scheduled_date = ?`,
		tenantID, seriesID, due.Format(date)))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to find work order for series %s on %s", seriesID, due.Format(date))
	}
	return w, nil
}

// UpdateWorkOrderStatus writes status and invoice number.
func (s *Store) UpdateWorkOrderStatus(ctx context.Context, w *maint.WorkOrder) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE work_orders SET status = ?, invoice_number = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?`,
		string(w.Status), nullInt64(w.InvoiceNumber), formatTime(w.UpdatedAt), w.TenantID, w.ID,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to update work order %s", w.ID)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NewNotFoundError("work order %s", w.ID)
	}
	return nil
}

func nullInt64(p *int64) any {
	if p == nil {
		return nil
	}
	return *p
}

func scanWorkOrder(row scanner) (*maint.WorkOrder, error) {
	var w maint.WorkOrder
	var clientID, seriesID, description, jobType, priority, technician sql.NullString
	var invoice sql.NullInt64
	var scheduled, status, createdAt, updatedAt string

	err := row.Scan(
		&w.ID, &w.TenantID, &clientID, &seriesID, &w.JobNumber, &invoice, &w.Summary,
		&description, &jobType, &priority, &technician, &scheduled, &status,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	w.ClientID = clientID.String
	if seriesID.Valid {
		w.SeriesID = &seriesID.String
	}
	if invoice.Valid {
		n := invoice.Int64
		w.InvoiceNumber = &n
	}
	w.Description = description.String
	w.JobType = jobType.String
	w.Priority = priority.String
	w.TechnicianID = technician.String
	w.Status = maint.WorkOrderStatus(status)

	if w.ScheduledDate, err = due.Parse(scheduled); err != nil {
		return nil, errors.Wrapf(err, "parse scheduled_date for work order %s", w.ID)
	}
	if w.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, errors.Wrapf(err, "parse created_at for work order %s", w.ID)
	}
	if w.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, errors.Wrapf(err, "parse updated_at for work order %s", w.ID)
	}
	return &w, nil
}
