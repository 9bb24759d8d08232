package completion

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/pmcal/errors"
	pmcaltest "github.com/teranos/pmcal/internal/testing"
	"github.com/teranos/pmcal/internal/util"
	"github.com/teranos/pmcal/maint"
	"github.com/teranos/pmcal/maint/calendar"
	"github.com/teranos/pmcal/maint/due"
	"github.com/teranos/pmcal/maint/refresh"
	"github.com/teranos/pmcal/maint/store"
)

var (
	today     = time.Date(2025, 7, 10, 14, 0, 0, 0, time.UTC)
	rc        = maint.RequestContext{TenantID: "t1", ActorID: "tech-a"}
	quarterly = due.MonthSetOf(2, 5, 8, 11) // Mar, Jun, Sep, Dec
)

type fixture struct {
	toggle   *Toggle
	calendar *calendar.Service
	store    *store.Store
	client   *maint.Client
}

func setup(t *testing.T, months due.MonthSet, inactive bool) *fixture {
	t.Helper()
	log := zaptest.NewLogger(t).Sugar()
	st := store.New(pmcaltest.CreateTestDB(t), log)
	clock := maint.FixedClock(today)

	c := &maint.Client{
		TenantID:       rc.TenantID,
		Name:           "Acme",
		SelectedMonths: months,
		Inactive:       inactive,
		NextDue:        due.ComputeNextDue(months, inactive, today),
		CreatedAt:      today,
		UpdatedAt:      today,
	}
	require.NoError(t, st.CreateClient(context.Background(), c))

	return &fixture{
		toggle:   NewToggle(st, clock, log),
		calendar: calendar.NewService(st, clock, log),
		store:    st,
		client:   c,
	}
}

func (f *fixture) reloadClient(t *testing.T) *maint.Client {
	t.Helper()
	c, err := f.store.GetClient(context.Background(), rc.TenantID, f.client.ID)
	require.NoError(t, err)
	return c
}

func (f *fixture) slot(t *testing.T, year int, month time.Month) *maint.Assignment {
	t.Helper()
	a, err := f.store.GetAssignmentByMonth(context.Background(), rc.TenantID, f.client.ID, year, month)
	require.NoError(t, err)
	return a
}

func TestToggle_CompletesAndProvisionsNextCycle(t *testing.T) {
	ctx := context.Background()
	f := setup(t, quarterly, false)
	dueDate := due.Date(2025, 9, 15)

	sep, err := f.calendar.Create(ctx, rc, f.client.ID, 2025, time.September, maint.AssignmentFields{Day: util.Ptr(12)})
	require.NoError(t, err)

	result, err := f.toggle.Toggle(ctx, rc, f.client.ID, dueDate)
	require.NoError(t, err)
	assert.True(t, result.Completed)
	require.NotNil(t, result.NextDue)
	assert.Equal(t, "2025-12-15", due.Format(*result.NextDue))

	assert.Equal(t, "2025-12-15", due.Format(f.reloadClient(t).NextDue))
	assert.True(t, f.slot(t, 2025, time.September).Completed)

	record, err := f.store.GetRecord(ctx, rc.TenantID, f.client.ID, dueDate)
	require.NoError(t, err)
	require.True(t, record.IsCompleted())
	assert.True(t, today.Equal(*record.CompletedAt))

	dec := f.slot(t, 2025, time.December)
	require.NotNil(t, dec, "next cycle placeholder should be provisioned")
	assert.True(t, dec.Unscheduled())
	assert.True(t, dec.AutoDueDate)
	assert.False(t, dec.Completed)
	assert.Equal(t, "2025-12-15", due.Format(dec.ScheduledDate))
	assert.Greater(t, dec.JobNumber, sep.JobNumber)
	require.NotNil(t, result.Provisioned)
	assert.Equal(t, dec.ID, result.Provisioned.ID)
}

func TestToggle_RoundTrip(t *testing.T) {
	ctx := context.Background()
	f := setup(t, quarterly, false)
	dueDate := due.Date(2025, 9, 15)

	_, err := f.calendar.Create(ctx, rc, f.client.ID, 2025, time.September, maint.AssignmentFields{})
	require.NoError(t, err)

	first, err := f.toggle.Toggle(ctx, rc, f.client.ID, dueDate)
	require.NoError(t, err)
	require.True(t, first.Completed)
	placeholder := f.slot(t, 2025, time.December)
	require.NotNil(t, placeholder)

	second, err := f.toggle.Toggle(ctx, rc, f.client.ID, dueDate)
	require.NoError(t, err)
	assert.False(t, second.Completed)
	assert.Nil(t, second.NextDue)
	assert.Nil(t, second.Provisioned)

	assert.Equal(t, "2025-09-15", due.Format(f.reloadClient(t).NextDue), "reopening restores the cycle as due")
	assert.False(t, f.slot(t, 2025, time.September).Completed)

	record, err := f.store.GetRecord(ctx, rc.TenantID, f.client.ID, dueDate)
	require.NoError(t, err)
	require.NotNil(t, record, "the record row is kept")
	assert.False(t, record.IsCompleted())

	third, err := f.toggle.Toggle(ctx, rc, f.client.ID, dueDate)
	require.NoError(t, err)
	assert.Equal(t, first.Completed, third.Completed)
	assert.Equal(t, due.Format(*first.NextDue), due.Format(*third.NextDue))
	assert.Nil(t, third.Provisioned, "the placeholder from the first completion is reused")
	assert.Equal(t, placeholder.ID, f.slot(t, 2025, time.December).ID)

	reRecord, err := f.store.GetRecord(ctx, rc.TenantID, f.client.ID, dueDate)
	require.NoError(t, err)
	assert.Equal(t, record.ID, reRecord.ID)
	assert.True(t, reRecord.IsCompleted())

	n, err := f.store.IssueJobNumber(ctx, rc.TenantID, today)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n, "repeated toggles must not issue extra job numbers")
}

func TestToggle_WithoutAssignment(t *testing.T) {
	ctx := context.Background()
	f := setup(t, due.MonthSetOf(6), false)

	result, err := f.toggle.Toggle(ctx, rc, f.client.ID, due.Date(2025, 7, 15))
	require.NoError(t, err)
	assert.True(t, result.Completed)
	assert.Equal(t, "2026-07-15", due.Format(*result.NextDue))

	assert.Nil(t, f.slot(t, 2025, time.July), "no slot is invented for the completed cycle")
	assert.NotNil(t, f.slot(t, 2026, time.July))
}

func TestToggle_ExistingNextSlotIsKept(t *testing.T) {
	ctx := context.Background()
	f := setup(t, quarterly, false)

	dec, err := f.calendar.Create(ctx, rc, f.client.ID, 2025, time.December, maint.AssignmentFields{Day: util.Ptr(4)})
	require.NoError(t, err)

	result, err := f.toggle.Toggle(ctx, rc, f.client.ID, due.Date(2025, 9, 15))
	require.NoError(t, err)
	assert.Nil(t, result.Provisioned)

	got := f.slot(t, 2025, time.December)
	assert.Equal(t, dec.ID, got.ID)
	assert.Equal(t, 4, *got.Day)
}

func TestToggle_InactiveClientHasNoNextCycle(t *testing.T) {
	ctx := context.Background()
	f := setup(t, quarterly, true)

	result, err := f.toggle.Toggle(ctx, rc, f.client.ID, due.Date(2025, 9, 15))
	require.NoError(t, err)
	assert.True(t, result.Completed)
	assert.True(t, due.IsNoSchedule(*result.NextDue))
	assert.Nil(t, result.Provisioned)
	assert.True(t, due.IsNoSchedule(f.reloadClient(t).NextDue))
}

func TestToggle_ClientNotFound(t *testing.T) {
	f := setup(t, quarterly, false)

	_, err := f.toggle.Toggle(context.Background(), rc, "nope", due.Date(2025, 9, 15))
	require.Error(t, err)
	assert.True(t, errors.IsNotFoundError(err))
	assert.False(t, errors.IsTransactionFailure(err))
}

func TestToggle_RejectsSentinel(t *testing.T) {
	f := setup(t, quarterly, false)

	_, err := f.toggle.Toggle(context.Background(), rc, f.client.ID, due.NoScheduleDate)
	assert.True(t, errors.IsInvalidRequestError(err))
}

// Completion advances from the completed cycle; the refresher recomputes from
// today. Completing an overdue cycle therefore lands on the cycle right after
// it, even when that cycle is also in the past.
func TestToggle_DueDateAnchorDivergesFromToday(t *testing.T) {
	ctx := context.Background()
	f := setup(t, quarterly, false)

	result, err := f.toggle.Toggle(ctx, rc, f.client.ID, due.Date(2025, 3, 15))
	require.NoError(t, err)
	assert.Equal(t, "2025-06-15", due.Format(*result.NextDue))
	assert.NotNil(t, f.slot(t, 2025, time.June))

	refreshed, err := refresh.NextDueFor(ctx, f.store, f.reloadClient(t), today)
	require.NoError(t, err)
	assert.Equal(t, "2025-09-15", due.Format(refreshed))
}

func TestToggle_CompletesLinkedWorkOrder(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		status     maint.WorkOrderStatus
		wantStatus maint.WorkOrderStatus
		wantErr    bool
	}{
		{"scheduled order completes", maint.StatusScheduled, maint.StatusCompleted, false},
		{"in progress order completes", maint.StatusInProgress, maint.StatusCompleted, false},
		{"invoiced order is left alone", maint.StatusInvoiced, maint.StatusInvoiced, false},
		{"draft order blocks completion", maint.StatusDraft, maint.StatusDraft, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t, quarterly, false)
			w := &maint.WorkOrder{
				TenantID: rc.TenantID, ClientID: f.client.ID, JobNumber: 100, Summary: "PM visit",
				ScheduledDate: due.Date(2025, 9, 15), Status: tt.status, CreatedAt: today, UpdatedAt: today,
			}
			require.NoError(t, f.store.InsertWorkOrder(ctx, w))
			_, err := f.calendar.Create(ctx, rc, f.client.ID, 2025, time.September, maint.AssignmentFields{WorkOrderID: &w.ID})
			require.NoError(t, err)

			_, err = f.toggle.Toggle(ctx, rc, f.client.ID, due.Date(2025, 9, 15))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsInvalidTransition(err))
				assert.False(t, f.slot(t, 2025, time.September).Completed, "rejected toggle leaves the slot open")
				assert.Nil(t, f.slot(t, 2025, time.December))
			} else {
				require.NoError(t, err)
			}

			got, err := f.store.GetWorkOrder(ctx, rc.TenantID, w.ID)
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, got.Status)
		})
	}
}

// A failure on the last write must undo the first three.
func TestToggle_FailureLeavesPreToggleState(t *testing.T) {
	ctx := context.Background()
	f := setup(t, quarterly, false)

	_, err := f.calendar.Create(ctx, rc, f.client.ID, 2025, time.September, maint.AssignmentFields{})
	require.NoError(t, err)
	before := f.reloadClient(t)

	db := f.store.DB()
	_, err = db.Exec(`
		CREATE TRIGGER fail_provision BEFORE INSERT ON calendar_assignments
		BEGIN SELECT RAISE(ABORT, 'injected failure'); END`)
	require.NoError(t, err)

	_, err = f.toggle.Toggle(ctx, rc, f.client.ID, due.Date(2025, 9, 15))
	require.Error(t, err)
	assert.True(t, errors.IsTransactionFailure(err), "store failures are retryable")

	record, err := f.store.GetRecord(ctx, rc.TenantID, f.client.ID, due.Date(2025, 9, 15))
	require.NoError(t, err)
	assert.Nil(t, record)
	assert.Equal(t, due.Format(before.NextDue), due.Format(f.reloadClient(t).NextDue))
	assert.False(t, f.slot(t, 2025, time.September).Completed)

	// Once the fault is gone the same call succeeds
	_, err = db.Exec(`DROP TRIGGER fail_provision`)
	require.NoError(t, err)
	result, err := f.toggle.Toggle(ctx, rc, f.client.ID, due.Date(2025, 9, 15))
	require.NoError(t, err)
	assert.True(t, result.Completed)
}
