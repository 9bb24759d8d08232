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

// GetRecord returns the completion record for one cycle, or nil.
func (s *Store) GetRecord(ctx context.Context, tenantID, clientID string, dueDate time.Time) (*maint.MaintenanceRecord, error) {
	var r maint.MaintenanceRecord
	var dueStr, createdAt, updatedAt string
	var completedAt sql.NullString

	err := s.q.QueryRowContext(ctx, `
		SELECT id, tenant_id, client_id, due_date, completed_at, created_at, updated_at
		FROM maintenance_records
		WHERE tenant_id = ? AND client_id = ? AND due_date = ?`,
		tenantID, clientID, due.Format(dueDate),
	).Scan(&r.ID, &r.TenantID, &r.ClientID, &dueStr, &completedAt, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get maintenance record for client %s due %s", clientID, due.Format(dueDate))
	}

	if r.DueDate, err = due.Parse(dueStr); err != nil {
		return nil, errors.Wrapf(err, "parse due_date for record %s", r.ID)
	}
	if r.CompletedAt, err = parseNullTime(completedAt); err != nil {
		return nil, errors.Wrapf(err, "parse completed_at for record %s", r.ID)
	}
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, errors.Wrapf(err, "parse created_at for record %s", r.ID)
	}
	if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, errors.Wrapf(err, "parse updated_at for record %s", r.ID)
	}
	return &r, nil
}

// SaveRecord upserts the record for (tenant, client, due date).
// The row is never deleted; only CompletedAt changes after creation.
func (s *Store) SaveRecord(ctx context.Context, r *maint.MaintenanceRecord) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}

	err := s.q.QueryRowContext(ctx, `
		INSERT INTO maintenance_records (id, tenant_id, client_id, due_date, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, client_id, due_date) DO UPDATE
		SET completed_at = excluded.completed_at, updated_at = excluded.updated_at
		RETURNING id`,
		r.ID, r.TenantID, r.ClientID, due.Format(r.DueDate), nullTime(r.CompletedAt),
		formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
	).Scan(&r.ID)
	if err != nil {
		return errors.Wrapf(err, "failed to save maintenance record for client %s due %s", r.ClientID, due.Format(r.DueDate))
	}
	return nil
}

// CompletedDueDates lists the client's completed cycles on or after from.
func (s *Store) CompletedDueDates(ctx context.Context, tenantID, clientID string, from time.Time) ([]time.Time, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT due_date FROM maintenance_records
		WHERE tenant_id = ? AND client_id = ? AND completed_at IS NOT NULL AND due_date >= ?
		ORDER BY due_date`,
		tenantID, clientID, due.Format(from))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list completed cycles")
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, errors.Wrap(err, "failed to scan due date")
		}
		d, err := due.Parse(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "parse due_date %q", raw)
		}
		dates = append(dates, d)
	}
	return dates, errors.Wrap(rows.Err(), "iterate completed cycles")
}
