package store

import (
	"context"
	"time"

	"github.com/teranos/pmcal/errors"
)

// Each counter column holds the next value to hand out. The upsert creates the
// tenant's row on first use and increments it otherwise, in one statement, so
// two concurrent callers can never read the same value.

// IssueJobNumber returns the tenant's next job number.
func (s *Store) IssueJobNumber(ctx context.Context, tenantID string, now time.Time) (int64, error) {
	var n int64
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO company_counters (tenant_id, next_job_number, updated_at)
		VALUES (?, 2, ?)
		ON CONFLICT(tenant_id) DO UPDATE
		SET next_job_number = next_job_number + 1, updated_at = excluded.updated_at
		RETURNING next_job_number - 1`,
		tenantID, formatTime(now),
	).Scan(&n)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to issue job number for tenant %s", tenantID)
	}
	return n, nil
}

// IssueInvoiceNumber returns the tenant's next invoice number.
func (s *Store) IssueInvoiceNumber(ctx context.Context, tenantID string, now time.Time) (int64, error) {
	var n int64
	err := s.q.QueryRowContext(ctx, `
		INSERT INTO company_counters (tenant_id, next_invoice_number, updated_at)
		VALUES (?, 2, ?)
		ON CONFLICT(tenant_id) DO UPDATE
		SET next_invoice_number = next_invoice_number + 1, updated_at = excluded.updated_at
		RETURNING next_invoice_number - 1`,
		tenantID, formatTime(now),
	).Scan(&n)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to issue invoice number for tenant %s", tenantID)
	}
	return n, nil
}
