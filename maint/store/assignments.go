package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/teranos/pmcal/db"
	"github.com/teranos/pmcal/errors"
	"github.com/teranos/pmcal/maint"
	"github.com/teranos/pmcal/maint/due"
)

const assignmentSelect = `
	SELECT a.id, a.tenant_id, a.client_id, a.year, a.month, a.day, a.hour,
	       a.scheduled_date, a.auto_due_date, a.completed, a.job_number,
	       a.work_order_id, a.notes, a.created_at, a.updated_at,
	       (SELECT json_group_array(t.technician_id)
	        FROM calendar_assignment_technicians t
	        WHERE t.assignment_id = a.id) AS technicians
	FROM calendar_assignments a`

// InsertAssignment inserts a slot and its technicians.
// A slot already taken for (tenant, client, year, month) yields ErrDuplicateAssignment.
func (s *Store) InsertAssignment(ctx context.Context, a *maint.Assignment) error {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO calendar_assignments (
			id, tenant_id, client_id, year, month, day, hour,
			scheduled_date, auto_due_date, completed, job_number,
			work_order_id, notes, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.TenantID, a.ClientID, a.Year, int(a.Month), nullInt(a.Day), nullInt(a.Hour),
		due.Format(a.ScheduledDate), boolInt(a.AutoDueDate), boolInt(a.Completed), a.JobNumber,
		nullStringPtr(a.WorkOrderID), nullString(a.Notes), formatTime(a.CreatedAt), formatTime(a.UpdatedAt),
	)
	if err != nil {
		if db.IsUniqueViolation(err) && strings.Contains(err.Error(), "calendar_assignments.month") {
			return errors.NewDuplicateAssignmentError(a.ClientID, a.Year, int(a.Month))
		}
		return errors.Wrapf(err, "failed to insert assignment for client %s %04d-%02d", a.ClientID, a.Year, int(a.Month))
	}

	return s.writeTechnicians(ctx, a.ID, a.TechnicianIDs)
}

// GetAssignment returns the slot, or nil when absent.
func (s *Store) GetAssignment(ctx context.Context, tenantID, id string) (*maint.Assignment, error) {
	row := s.q.QueryRowContext(ctx, assignmentSelect+`
		WHERE a.tenant_id = ? AND a.id = ?`, tenantID, id)
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get assignment %s", id)
	}
	return a, nil
}

// GetAssignmentByMonth returns the client's slot for (year, month), or nil.
func (s *Store) GetAssignmentByMonth(ctx context.Context, tenantID, clientID string, year int, month time.Month) (*maint.Assignment, error) {
	row := s.q.QueryRowContext(ctx, assignmentSelect+`
		WHERE a.tenant_id = ? AND a.client_id = ? AND a.year = ? AND a.month = ?`,
		tenantID, clientID, year, int(month))
	a, err := scanAssignment(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get assignment for client %s %04d-%02d", clientID, year, int(month))
	}
	return a, nil
}

// UpdateAssignment writes every mutable field and replaces the technician list.
func (s *Store) UpdateAssignment(ctx context.Context, a *maint.Assignment) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE calendar_assignments
		SET day = ?, hour = ?, scheduled_date = ?, auto_due_date = ?, completed = ?,
		    work_order_id = ?, notes = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?`,
		nullInt(a.Day), nullInt(a.Hour), due.Format(a.ScheduledDate), boolInt(a.AutoDueDate), boolInt(a.Completed),
		nullStringPtr(a.WorkOrderID), nullString(a.Notes), formatTime(a.UpdatedAt),
		a.TenantID, a.ID,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to update assignment %s", a.ID)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NewNotFoundError("assignment %s", a.ID)
	}

	if _, err := s.q.ExecContext(ctx, `DELETE FROM calendar_assignment_technicians WHERE assignment_id = ?`, a.ID); err != nil {
		return errors.Wrapf(err, "failed to clear technicians for assignment %s", a.ID)
	}
	return s.writeTechnicians(ctx, a.ID, a.TechnicianIDs)
}

// DeleteAssignment removes a slot. Technician rows cascade.
func (s *Store) DeleteAssignment(ctx context.Context, tenantID, id string) (bool, error) {
	res, err := s.q.ExecContext(ctx, `DELETE FROM calendar_assignments WHERE tenant_id = ? AND id = ?`, tenantID, id)
	if err != nil {
		return false, errors.Wrapf(err, "failed to delete assignment %s", id)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListAssignments returns the month's slots, optionally only those a technician is on.
func (s *Store) ListAssignments(ctx context.Context, tenantID string, year int, month time.Month, technicianID string) ([]*maint.Assignment, error) {
	return s.queryAssignments(ctx, assignmentSelect+`
		WHERE a.tenant_id = ? AND a.year = ? AND a.month = ?
		  AND (? = '' OR EXISTS (
		        SELECT 1 FROM calendar_assignment_technicians t
		        WHERE t.assignment_id = a.id AND t.technician_id = ?))
		ORDER BY a.scheduled_date, a.hour IS NULL, a.hour, a.job_number`,
		tenantID, year, int(month), technicianID, technicianID)
}

// ListAssignmentsInRange returns every slot from `from` through `to`, inclusive.
func (s *Store) ListAssignmentsInRange(ctx context.Context, tenantID string, from, to due.YearMonth) ([]*maint.Assignment, error) {
	return s.queryAssignments(ctx, assignmentSelect+`
		WHERE a.tenant_id = ? AND (a.year * 100 + a.month) BETWEEN ? AND ?
		ORDER BY a.year, a.month, a.scheduled_date, a.job_number`,
		tenantID, monthKey(from), monthKey(to))
}

// ListUnscheduledBefore returns open placeholders of active clients older than
// `before`, newest first.
func (s *Store) ListUnscheduledBefore(ctx context.Context, tenantID string, before due.YearMonth, limit int) ([]*maint.Assignment, error) {
	return s.queryAssignments(ctx, assignmentSelect+`
		JOIN clients c ON c.id = a.client_id AND c.tenant_id = a.tenant_id
		WHERE a.tenant_id = ? AND a.day IS NULL AND a.completed = 0 AND c.inactive = 0
		  AND (a.year * 100 + a.month) < ?
		ORDER BY a.year DESC, a.month DESC, a.job_number
		LIMIT ?`,
		tenantID, monthKey(before), limit)
}

func (s *Store) queryAssignments(ctx context.Context, query string, args ...any) ([]*maint.Assignment, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query assignments")
	}
	defer rows.Close()

	var out []*maint.Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan assignment")
		}
		out = append(out, a)
	}
	return out, errors.Wrap(rows.Err(), "iterate assignments")
}

func (s *Store) writeTechnicians(ctx context.Context, assignmentID string, technicianIDs []string) error {
	for _, id := range maint.NormalizeTechnicians(technicianIDs) {
		if _, err := s.q.ExecContext(ctx, `
			INSERT INTO calendar_assignment_technicians (assignment_id, technician_id)
			VALUES (?, ?)`, assignmentID, id); err != nil {
			return errors.Wrapf(err, "failed to assign technician %s", id)
		}
	}
	return nil
}

func monthKey(ym due.YearMonth) int {
	return ym.Year*100 + int(ym.Month)
}

func scanAssignment(row scanner) (*maint.Assignment, error) {
	var a maint.Assignment
	var month int
	var day, hour sql.NullInt64
	var scheduledDate, createdAt, updatedAt, technicians string
	var autoDue, completed int
	var workOrderID, notes sql.NullString

	err := row.Scan(
		&a.ID, &a.TenantID, &a.ClientID, &a.Year, &month, &day, &hour,
		&scheduledDate, &autoDue, &completed, &a.JobNumber,
		&workOrderID, &notes, &createdAt, &updatedAt, &technicians,
	)
	if err != nil {
		return nil, err
	}

	a.Month = time.Month(month)
	if day.Valid {
		d := int(day.Int64)
		a.Day = &d
	}
	if hour.Valid {
		h := int(hour.Int64)
		a.Hour = &h
	}
	a.AutoDueDate = autoDue != 0
	a.Completed = completed != 0
	if workOrderID.Valid {
		a.WorkOrderID = &workOrderID.String
	}
	a.Notes = notes.String

	if a.ScheduledDate, err = due.Parse(scheduledDate); err != nil {
		return nil, errors.Wrapf(err, "parse scheduled_date for assignment %s", a.ID)
	}
	if a.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, errors.Wrapf(err, "parse created_at for assignment %s", a.ID)
	}
	if a.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, errors.Wrapf(err, "parse updated_at for assignment %s", a.ID)
	}
	if err := json.Unmarshal([]byte(technicians), &a.TechnicianIDs); err != nil {
		return nil, errors.Wrapf(err, "decode technicians for assignment %s", a.ID)
	}
	a.TechnicianIDs = maint.NormalizeTechnicians(a.TechnicianIDs)
	return &a, nil
}
