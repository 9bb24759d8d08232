package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/teranos/pmcal/errors"
	"github.com/teranos/pmcal/maint"
	"github.com/teranos/pmcal/maint/due"
)

const clientColumns = `id, tenant_id, name, selected_months, inactive, next_due, created_at, updated_at`

// CreateClient inserts a client. An empty ID is filled with a new UUID.
func (s *Store) CreateClient(ctx context.Context, c *maint.Client) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	months, err := json.Marshal(c.SelectedMonths)
	if err != nil {
		return errors.Wrap(err, "encode selected months")
	}

	_, err = s.q.ExecContext(ctx, `
		INSERT INTO clients (`+clientColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.TenantID, c.Name, string(months), boolInt(c.Inactive),
		due.Format(c.NextDue), formatTime(c.CreatedAt), formatTime(c.UpdatedAt),
	)
	if err != nil {
		return errors.Wrapf(err, "failed to create client %s", c.ID)
	}
	return nil
}

// GetClient returns the client, or nil when absent.
func (s *Store) GetClient(ctx context.Context, tenantID, id string) (*maint.Client, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+clientColumns+`
		FROM clients
		WHERE tenant_id = ? AND id = ?`, tenantID, id)

	c, err := scanClient(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get client %s", id)
	}
	return c, nil
}

// ListClients returns the tenant's clients ordered by name.
func (s *Store) ListClients(ctx context.Context, tenantID string, activeOnly bool) ([]*maint.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE tenant_id = ?`
	if activeOnly {
		query += ` AND inactive = 0`
	}
	query += ` ORDER BY name, id`

	rows, err := s.q.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list clients")
	}
	defer rows.Close()

	var clients []*maint.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan client")
		}
		clients = append(clients, c)
	}
	return clients, errors.Wrap(rows.Err(), "iterate clients")
}

// UpdateClientSchedule writes the schedule fields and NextDue.
func (s *Store) UpdateClientSchedule(ctx context.Context, c *maint.Client) error {
	months, err := json.Marshal(c.SelectedMonths)
	if err != nil {
		return errors.Wrap(err, "encode selected months")
	}

	res, err := s.q.ExecContext(ctx, `
		UPDATE clients
		SET name = ?, selected_months = ?, inactive = ?, next_due = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?`,
		c.Name, string(months), boolInt(c.Inactive), due.Format(c.NextDue), formatTime(c.UpdatedAt),
		c.TenantID, c.ID,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to update client %s", c.ID)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NewNotFoundError("client %s", c.ID)
	}
	return nil
}

// SetClientNextDue writes only NextDue.
func (s *Store) SetClientNextDue(ctx context.Context, tenantID, id string, nextDue, updatedAt time.Time) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE clients SET next_due = ?, updated_at = ?
		WHERE tenant_id = ? AND id = ?`,
		due.Format(nextDue), formatTime(updatedAt), tenantID, id,
	)
	if err != nil {
		return errors.Wrapf(err, "failed to set next due for client %s", id)
	}
	n, err := rowsAffected(res)
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.NewNotFoundError("client %s", id)
	}
	return nil
}

func scanClient(row scanner) (*maint.Client, error) {
	var c maint.Client
	var months, nextDue, createdAt, updatedAt string
	var inactive int

	if err := row.Scan(&c.ID, &c.TenantID, &c.Name, &months, &inactive, &nextDue, &createdAt, &updatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(months), &c.SelectedMonths); err != nil {
		return nil, errors.Wrapf(err, "decode selected_months for client %s", c.ID)
	}
	c.Inactive = inactive != 0

	var err error
	if c.NextDue, err = due.Parse(nextDue); err != nil {
		return nil, errors.Wrapf(err, "parse next_due for client %s", c.ID)
	}
	if c.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, errors.Wrapf(err, "parse created_at for client %s", c.ID)
	}
	if c.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, errors.Wrapf(err, "parse updated_at for client %s", c.ID)
	}
	return &c, nil
}
