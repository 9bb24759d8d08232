package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/teranos/pmcal/errors"
	pmcaltest "github.com/teranos/pmcal/internal/testing"
	"github.com/teranos/pmcal/internal/util"
	"github.com/teranos/pmcal/maint"
	"github.com/teranos/pmcal/maint/due"
)

var testNow = time.Date(2025, 7, 10, 9, 30, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	return New(pmcaltest.CreateTestDB(t), zaptest.NewLogger(t).Sugar())
}

func seedClient(t *testing.T, s *Store, tenantID, name string, months due.MonthSet) *maint.Client {
	t.Helper()
	c := &maint.Client{
		TenantID:       tenantID,
		Name:           name,
		SelectedMonths: months,
		NextDue:        due.ComputeNextDue(months, false, testNow),
		CreatedAt:      testNow,
		UpdatedAt:      testNow,
	}
	require.NoError(t, s.CreateClient(context.Background(), c))
	return c
}

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	c := seedClient(t, s, "t1", "Acme HVAC", due.MonthSetOf(2, 5, 8, 11))
	require.NotEmpty(t, c.ID)

	got, err := s.GetClient(ctx, "t1", c.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Acme HVAC", got.Name)
	assert.Equal(t, due.MonthSetOf(2, 5, 8, 11), got.SelectedMonths)
	assert.Equal(t, "2025-09-15", due.Format(got.NextDue))
	assert.True(t, testNow.Equal(got.CreatedAt))

	t.Run("absent client is nil without error", func(t *testing.T) {
		missing, err := s.GetClient(ctx, "t1", "nope")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("other tenants cannot see it", func(t *testing.T) {
		other, err := s.GetClient(ctx, "t2", c.ID)
		require.NoError(t, err)
		assert.Nil(t, other)
	})

	t.Run("schedule update round-trips the sentinel", func(t *testing.T) {
		got.Inactive = true
		got.NextDue = due.NoScheduleDate
		got.UpdatedAt = testNow.Add(time.Hour)
		require.NoError(t, s.UpdateClientSchedule(ctx, got))

		reloaded, err := s.GetClient(ctx, "t1", c.ID)
		require.NoError(t, err)
		assert.True(t, reloaded.Inactive)
		assert.True(t, due.IsNoSchedule(reloaded.NextDue))
	})

	t.Run("missing client update is NotFound", func(t *testing.T) {
		err := s.SetClientNextDue(ctx, "t1", "nope", testNow, testNow)
		assert.True(t, errors.IsNotFoundError(err))
	})
}

func TestListClients(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	seedClient(t, s, "t1", "Bravo", due.MonthSetOf(0))
	inactive := seedClient(t, s, "t1", "Alpha", due.MonthSetOf(1))
	seedClient(t, s, "t2", "Other tenant", due.MonthSetOf(1))

	inactive.Inactive = true
	require.NoError(t, s.UpdateClientSchedule(ctx, inactive))

	all, err := s.ListClients(ctx, "t1", false)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Alpha", all[0].Name)

	active, err := s.ListClients(ctx, "t1", true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Bravo", active[0].Name)
}

func TestIssueJobNumber(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for want := int64(1); want <= 3; want++ {
		n, err := s.IssueJobNumber(ctx, "t1", testNow)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	t.Run("tenants have independent sequences", func(t *testing.T) {
		n, err := s.IssueJobNumber(ctx, "t2", testNow)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)
	})

	t.Run("invoice numbers are a separate sequence", func(t *testing.T) {
		n, err := s.IssueInvoiceNumber(ctx, "t1", testNow)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n)

		job, err := s.IssueJobNumber(ctx, "t1", testNow)
		require.NoError(t, err)
		assert.Equal(t, int64(4), job)
	})

	t.Run("updated_at comes from the caller", func(t *testing.T) {
		later := testNow.Add(48 * time.Hour)
		_, err := s.IssueJobNumber(ctx, "t1", later)
		require.NoError(t, err)

		var updatedAt string
		require.NoError(t, s.DB().QueryRowContext(ctx,
			`SELECT updated_at FROM company_counters WHERE tenant_id = ?`, "t1").Scan(&updatedAt))
		assert.Equal(t, "2025-07-12T09:30:00Z", updatedAt)
	})
}

func TestIssueJobNumber_Concurrent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	const workers = 20
	numbers := make(chan int64, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := s.IssueJobNumber(ctx, "t1", testNow)
			assert.NoError(t, err)
			numbers <- n
		}()
	}
	wg.Wait()
	close(numbers)

	seen := make(map[int64]bool)
	for n := range numbers {
		assert.False(t, seen[n], "job number %d issued twice", n)
		seen[n] = true
	}
	assert.Len(t, seen, workers)
	for i := int64(1); i <= workers; i++ {
		assert.True(t, seen[i], "missing job number %d", i)
	}
}

func newAssignment(c *maint.Client, year int, month time.Month, job int64) *maint.Assignment {
	return &maint.Assignment{
		TenantID:      c.TenantID,
		ClientID:      c.ID,
		Year:          year,
		Month:         month,
		ScheduledDate: due.CycleDate(year, month),
		AutoDueDate:   true,
		JobNumber:     job,
		CreatedAt:     testNow,
		UpdatedAt:     testNow,
	}
}

func TestAssignmentLifecycle(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := seedClient(t, s, "t1", "Acme", due.MonthSetOf(8))

	a := newAssignment(c, 2025, time.September, 1)
	a.TechnicianIDs = []string{"tech-b", "tech-a", "tech-a"}
	a.Notes = "gate code 1234"
	require.NoError(t, s.InsertAssignment(ctx, a))

	got, err := s.GetAssignment(ctx, "t1", a.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Unscheduled())
	assert.Nil(t, got.Hour)
	assert.True(t, got.AutoDueDate)
	assert.Equal(t, []string{"tech-a", "tech-b"}, got.TechnicianIDs)
	assert.Equal(t, "gate code 1234", got.Notes)
	assert.Equal(t, "2025-09-15", due.Format(got.ScheduledDate))

	byMonth, err := s.GetAssignmentByMonth(ctx, "t1", c.ID, 2025, time.September)
	require.NoError(t, err)
	require.NotNil(t, byMonth)
	assert.Equal(t, a.ID, byMonth.ID)

	t.Run("duplicate slot is rejected by the index", func(t *testing.T) {
		dup := newAssignment(c, 2025, time.September, 2)
		err := s.InsertAssignment(ctx, dup)
		require.Error(t, err)
		assert.True(t, errors.IsDuplicateAssignment(err))
	})

	t.Run("update replaces technicians", func(t *testing.T) {
		got.Day = util.Ptr(22)
		got.Hour = util.Ptr(9)
		got.ScheduledDate = due.Date(2025, 9, 22)
		got.AutoDueDate = false
		got.TechnicianIDs = []string{"tech-c"}
		got.UpdatedAt = testNow.Add(time.Hour)
		require.NoError(t, s.UpdateAssignment(ctx, got))

		reloaded, err := s.GetAssignment(ctx, "t1", a.ID)
		require.NoError(t, err)
		assert.Equal(t, 22, *reloaded.Day)
		assert.Equal(t, 9, *reloaded.Hour)
		assert.Equal(t, []string{"tech-c"}, reloaded.TechnicianIDs)
		assert.False(t, reloaded.AutoDueDate)
	})

	t.Run("list filters by technician", func(t *testing.T) {
		other := seedClient(t, s, "t1", "Other", due.MonthSetOf(8))
		require.NoError(t, s.InsertAssignment(ctx, newAssignment(other, 2025, time.September, 3)))

		all, err := s.ListAssignments(ctx, "t1", 2025, time.September, "")
		require.NoError(t, err)
		assert.Len(t, all, 2)

		mine, err := s.ListAssignments(ctx, "t1", 2025, time.September, "tech-c")
		require.NoError(t, err)
		require.Len(t, mine, 1)
		assert.Equal(t, a.ID, mine[0].ID)
	})

	t.Run("delete cascades technicians", func(t *testing.T) {
		deleted, err := s.DeleteAssignment(ctx, "t1", a.ID)
		require.NoError(t, err)
		assert.True(t, deleted)

		var n int
		require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM calendar_assignment_technicians WHERE assignment_id = ?`, a.ID).Scan(&n))
		assert.Zero(t, n)

		again, err := s.DeleteAssignment(ctx, "t1", a.ID)
		require.NoError(t, err)
		assert.False(t, again)
	})
}

func TestListAssignmentsInRange(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := seedClient(t, s, "t1", "Acme", due.MonthSetOf(0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11))

	for i, m := range []time.Month{time.May, time.June, time.July, time.August, time.September} {
		require.NoError(t, s.InsertAssignment(ctx, newAssignment(c, 2025, m, int64(i+1))))
	}
	require.NoError(t, s.InsertAssignment(ctx, newAssignment(c, 2024, time.July, 10)))

	got, err := s.ListAssignmentsInRange(ctx, "t1",
		due.YearMonth{Year: 2025, Month: time.June}, due.YearMonth{Year: 2025, Month: time.August})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, time.June, got[0].Month)
	assert.Equal(t, time.August, got[2].Month)

	stale, err := s.ListUnscheduledBefore(ctx, "t1", due.YearMonth{Year: 2025, Month: time.June}, 10)
	require.NoError(t, err)
	require.Len(t, stale, 2)
	assert.Equal(t, 2025, stale[0].Year, "newest first")
	assert.Equal(t, time.May, stale[0].Month)
	assert.Equal(t, 2024, stale[1].Year)
}

func TestInTx(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	t.Run("error rolls back every write", func(t *testing.T) {
		var id string
		err := s.InTx(ctx, func(tx maint.Store) error {
			c := &maint.Client{TenantID: "t1", Name: "Ghost", NextDue: due.NoScheduleDate, CreatedAt: testNow, UpdatedAt: testNow}
			require.NoError(t, tx.CreateClient(ctx, c))
			id = c.ID
			_, err := tx.IssueJobNumber(ctx, "t1", testNow)
			require.NoError(t, err)
			return errors.New("disk I/O error")
		})
		require.Error(t, err)
		assert.True(t, errors.IsTransactionFailure(err))

		c, err := s.GetClient(ctx, "t1", id)
		require.NoError(t, err)
		assert.Nil(t, c)

		n, err := s.IssueJobNumber(ctx, "t1", testNow)
		require.NoError(t, err)
		assert.Equal(t, int64(1), n, "rolled back counter increment must not leave a gap")
	})

	t.Run("domain errors pass through unmarked", func(t *testing.T) {
		err := s.InTx(ctx, func(tx maint.Store) error {
			return errors.NewNotFoundError("client c1")
		})
		assert.True(t, errors.IsNotFoundError(err))
		assert.False(t, errors.IsTransactionFailure(err))
	})

	t.Run("nested calls join the outer transaction", func(t *testing.T) {
		err := s.InTx(ctx, func(tx maint.Store) error {
			return tx.InTx(ctx, func(inner maint.Store) error {
				assert.Same(t, tx, inner)
				return nil
			})
		})
		require.NoError(t, err)
	})
}

func TestSaveRecord(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	c := seedClient(t, s, "t1", "Acme", due.MonthSetOf(8))
	dueDate := due.Date(2025, 9, 15)

	r := &maint.MaintenanceRecord{
		TenantID: "t1", ClientID: c.ID, DueDate: dueDate,
		CompletedAt: util.Ptr(testNow), CreatedAt: testNow, UpdatedAt: testNow,
	}
	require.NoError(t, s.SaveRecord(ctx, r))
	firstID := r.ID

	got, err := s.GetRecord(ctx, "t1", c.ID, dueDate)
	require.NoError(t, err)
	require.True(t, got.IsCompleted())

	// A second save for the same cycle updates the existing row
	again := &maint.MaintenanceRecord{TenantID: "t1", ClientID: c.ID, DueDate: dueDate, CreatedAt: testNow, UpdatedAt: testNow}
	require.NoError(t, s.SaveRecord(ctx, again))
	assert.Equal(t, firstID, again.ID)

	got, err = s.GetRecord(ctx, "t1", c.ID, dueDate)
	require.NoError(t, err)
	assert.False(t, got.IsCompleted())

	dates, err := s.CompletedDueDates(ctx, "t1", c.ID, due.Date(2025, 1, 1))
	require.NoError(t, err)
	assert.Empty(t, dates)

	absent, err := s.GetRecord(ctx, "t1", c.ID, due.Date(2025, 12, 15))
	require.NoError(t, err)
	assert.Nil(t, absent)
}

func TestSeriesRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	series := &maint.Series{
		TenantID: "t1", StartDate: due.Date(2025, 1, 31), Summary: "Filter swap",
		JobType: "pm", Priority: "normal", DefaultTechnicianID: "tech-a",
		CreatedAt: testNow, UpdatedAt: testNow,
	}
	phases := []*maint.Phase{
		{OrderIndex: 1, Frequency: maint.FrequencyMonthly, Interval: 1, EndDate: util.Ptr(due.Date(2025, 6, 30))},
		{OrderIndex: 0, Frequency: maint.FrequencyWeekly, Interval: 2, Occurrences: util.Ptr(3)},
	}
	require.NoError(t, s.InTx(ctx, func(tx maint.Store) error {
		return tx.CreateSeries(ctx, series, phases)
	}))

	got, gotPhases, err := s.GetSeries(ctx, "t1", series.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Filter swap", got.Summary)
	assert.Equal(t, "tech-a", got.DefaultTechnicianID)
	assert.Nil(t, got.LastGeneratedAt)
	require.Len(t, gotPhases, 2)
	assert.Equal(t, maint.FrequencyWeekly, gotPhases[0].Frequency, "phases come back in order")
	assert.Equal(t, 3, *gotPhases[0].Occurrences)
	assert.Equal(t, "2025-06-30", due.Format(*gotPhases[1].EndDate))

	require.NoError(t, s.RecordGeneration(ctx, "t1", series.ID, testNow, 4))
	got, _, err = s.GetSeries(ctx, "t1", series.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.GeneratedCount)
	require.NotNil(t, got.LastGeneratedAt)

	missing, _, err := s.GetSeries(ctx, "t2", series.ID)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestWorkOrders(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	seriesID := "series-1"
	require.NoError(t, s.CreateSeries(ctx, &maint.Series{
		ID: seriesID, TenantID: "t1", StartDate: due.Date(2025, 1, 1), Summary: "PM",
		CreatedAt: testNow, UpdatedAt: testNow,
	}, nil))

	w := &maint.WorkOrder{
		TenantID: "t1", SeriesID: &seriesID, JobNumber: 7, Summary: "PM",
		ScheduledDate: due.Date(2025, 2, 1), Status: maint.StatusScheduled,
		CreatedAt: testNow, UpdatedAt: testNow,
	}
	require.NoError(t, s.InsertWorkOrder(ctx, w))

	found, err := s.FindSeriesWorkOrder(ctx, "t1", seriesID, due.Date(2025, 2, 1))
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, w.ID, found.ID)
	assert.Nil(t, found.InvoiceNumber)

	found.Status = maint.StatusInvoiced
	found.InvoiceNumber = util.Ptr(int64(3))
	require.NoError(t, s.UpdateWorkOrderStatus(ctx, found))

	got, err := s.GetWorkOrder(ctx, "t1", w.ID)
	require.NoError(t, err)
	assert.Equal(t, maint.StatusInvoiced, got.Status)
	assert.Equal(t, int64(3), *got.InvoiceNumber)

	none, err := s.FindSeriesWorkOrder(ctx, "t1", seriesID, due.Date(2025, 3, 1))
	require.NoError(t, err)
	assert.Nil(t, none)

	counts, err := s.Counts(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, 1, counts["work_orders"])
	assert.Equal(t, 1, counts["recurring_job_series"])
}
