// Package store implements maint.Store on SQLite.
//
// Dates are stored as YYYY-MM-DD and timestamps as RFC3339 UTC strings, so
// lexical order matches chronological order in every index.
package store

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/pmcal/db"
	"github.com/teranos/pmcal/errors"
	"github.com/teranos/pmcal/logger"
	"github.com/teranos/pmcal/maint"
)

// dbtx is the query surface shared by *sql.DB and *sql.Tx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store handles persistence of the scheduling records
type Store struct {
	db     *sql.DB // nil when the store is bound to a transaction
	q      dbtx
	logger *zap.SugaredLogger
}

var _ maint.Store = (*Store)(nil)

// New creates a store over db. log may be nil.
func New(db *sql.DB, log *zap.SugaredLogger) *Store {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Store{db: db, q: db, logger: logger.AddDBSymbol(log)}
}

// DB returns the underlying handle, or nil for a transaction-bound store.
func (s *Store) DB() *sql.DB {
	return s.db
}

// InTx runs fn inside one transaction. Nested calls join the outer transaction.
func (s *Store) InTx(ctx context.Context, fn func(tx maint.Store) error) error {
	if s.db == nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return s.txFailure(errors.Wrap(err, "begin transaction"))
	}

	if err := fn(&Store{q: tx, logger: s.logger}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Warnw("Rollback failed", logger.FieldError, rbErr)
		}
		return s.txFailure(err)
	}

	if err := tx.Commit(); err != nil {
		return s.txFailure(errors.Wrap(err, "commit transaction"))
	}
	return nil
}

// txFailure marks err retryable. A lock timeout also gets a retry hint,
// since nothing was written and another writer held the database.
func (s *Store) txFailure(err error) error {
	if db.IsBusy(err) {
		s.logger.Warnw("Database busy, transaction abandoned", logger.FieldError, err)
		err = errors.WithHint(err, "the database was locked by another writer; retry the operation")
	}
	return errors.MarkTransactionFailure(err)
}

// Counts returns row counts per table for one tenant.
func (s *Store) Counts(ctx context.Context, tenantID string) (map[string]int, error) {
	tables := []string{"clients", "calendar_assignments", "maintenance_records", "recurring_job_series", "work_orders"}
	counts := make(map[string]int, len(tables))
	for _, table := range tables {
		var n int
		// table names come from the fixed list above
		if err := s.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+" WHERE tenant_id = ?", tenantID).Scan(&n); err != nil {
			return nil, errors.Wrapf(err, "count %s", table)
		}
		counts[table] = n
	}
	return counts, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return formatTime(*t)
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid {
		return nil, nil
	}
	t, err := parseTime(ns.String)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullStringPtr(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func nullInt(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func rowsAffected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "rows affected")
	}
	return n, nil
}
