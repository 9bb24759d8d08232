package maint

import (
	"context"
	"time"

	"github.com/teranos/pmcal/maint/due"
)

// Store is the transactional record store every engine component runs against.
//
// Lookups of a single record return (nil, nil) when it is absent. Every method
// is scoped by tenant. Calls made on the Store handed to an InTx callback run
// inside that transaction.
type Store interface {
	// InTx runs fn in one transaction. A non-nil error from fn, or a failure to
	// commit, rolls back every write made through tx. Store-level failures come
	// back marked errors.ErrTransactionFailure.
	InTx(ctx context.Context, fn func(tx Store) error) error

	CreateClient(ctx context.Context, c *Client) error
	GetClient(ctx context.Context, tenantID, id string) (*Client, error)
	ListClients(ctx context.Context, tenantID string, activeOnly bool) ([]*Client, error)
	UpdateClientSchedule(ctx context.Context, c *Client) error
	SetClientNextDue(ctx context.Context, tenantID, id string, nextDue, updatedAt time.Time) error

	// Counters never hand out the same value twice within a tenant.
	IssueJobNumber(ctx context.Context, tenantID string, now time.Time) (int64, error)
	IssueInvoiceNumber(ctx context.Context, tenantID string, now time.Time) (int64, error)

	InsertAssignment(ctx context.Context, a *Assignment) error
	GetAssignment(ctx context.Context, tenantID, id string) (*Assignment, error)
	GetAssignmentByMonth(ctx context.Context, tenantID, clientID string, year int, month time.Month) (*Assignment, error)
	UpdateAssignment(ctx context.Context, a *Assignment) error
	DeleteAssignment(ctx context.Context, tenantID, id string) (bool, error)
	ListAssignments(ctx context.Context, tenantID string, year int, month time.Month, technicianID string) ([]*Assignment, error)
	ListAssignmentsInRange(ctx context.Context, tenantID string, from, to due.YearMonth) ([]*Assignment, error)
	ListUnscheduledBefore(ctx context.Context, tenantID string, before due.YearMonth, limit int) ([]*Assignment, error)

	GetRecord(ctx context.Context, tenantID, clientID string, dueDate time.Time) (*MaintenanceRecord, error)
	SaveRecord(ctx context.Context, r *MaintenanceRecord) error
	CompletedDueDates(ctx context.Context, tenantID, clientID string, from time.Time) ([]time.Time, error)

	CreateSeries(ctx context.Context, s *Series, phases []*Phase) error
	GetSeries(ctx context.Context, tenantID, id string) (*Series, []*Phase, error)
	RecordGeneration(ctx context.Context, tenantID, id string, at time.Time, generated int) error

	InsertWorkOrder(ctx context.Context, w *WorkOrder) error
	GetWorkOrder(ctx context.Context, tenantID, id string) (*WorkOrder, error)
	FindSeriesWorkOrder(ctx context.Context, tenantID, seriesID string, date time.Time) (*WorkOrder, error)
	UpdateWorkOrderStatus(ctx context.Context, w *WorkOrder) error
}
