package calendar

import (
	"context"
	"fmt"
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
	"github.com/teranos/pmcal/maint/store"
)

var (
	today = time.Date(2025, 7, 10, 14, 0, 0, 0, time.UTC)
	rc    = maint.RequestContext{TenantID: "t1", ActorID: "dispatcher"}
)

func setup(t *testing.T) (*Service, *store.Store) {
	t.Helper()
	log := zaptest.NewLogger(t).Sugar()
	st := store.New(pmcaltest.CreateTestDB(t), log)
	return NewService(st, maint.FixedClock(today), log), st
}

func seedClient(t *testing.T, st *store.Store, name string, months due.MonthSet) *maint.Client {
	t.Helper()
	c := &maint.Client{
		TenantID:       rc.TenantID,
		Name:           name,
		SelectedMonths: months,
		NextDue:        due.ComputeNextDue(months, false, today),
		CreatedAt:      today,
		UpdatedAt:      today,
	}
	require.NoError(t, st.CreateClient(context.Background(), c))
	return c
}

func TestCreate(t *testing.T) {
	ctx := context.Background()
	svc, st := setup(t)
	c := seedClient(t, st, "Acme", due.MonthSetOf(8, 11))

	t.Run("placeholder is dated on the cycle", func(t *testing.T) {
		a, err := svc.Create(ctx, rc, c.ID, 2025, time.September, maint.AssignmentFields{})
		require.NoError(t, err)
		assert.True(t, a.Unscheduled())
		assert.True(t, a.AutoDueDate)
		assert.False(t, a.Completed)
		assert.Equal(t, "2025-09-15", due.Format(a.ScheduledDate))
		assert.Equal(t, int64(1), a.JobNumber)
	})

	t.Run("day derives the scheduled date", func(t *testing.T) {
		a, err := svc.Create(ctx, rc, c.ID, 2025, time.December, maint.AssignmentFields{
			Day:           util.Ptr(3),
			Hour:          util.Ptr(8),
			TechnicianIDs: []string{"tech-a"},
		})
		require.NoError(t, err)
		assert.Equal(t, "2025-12-03", due.Format(a.ScheduledDate))
		assert.False(t, a.AutoDueDate)
		assert.Equal(t, int64(2), a.JobNumber)

		got, err := svc.Get(ctx, rc, a.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"tech-a"}, got.TechnicianIDs)
	})

	t.Run("second slot for the same month is a duplicate", func(t *testing.T) {
		_, err := svc.Create(ctx, rc, c.ID, 2025, time.September, maint.AssignmentFields{})
		require.Error(t, err)
		assert.True(t, errors.IsDuplicateAssignment(err))
		assert.False(t, errors.IsTransactionFailure(err))

		n, err := st.IssueJobNumber(ctx, rc.TenantID, today)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n, "a rejected create must not consume a job number")
	})

	t.Run("unknown client", func(t *testing.T) {
		_, err := svc.Create(ctx, rc, "nope", 2025, time.September, maint.AssignmentFields{})
		assert.True(t, errors.IsNotFoundError(err))
	})

	t.Run("other tenant cannot use the client", func(t *testing.T) {
		_, err := svc.Create(ctx, maint.RequestContext{TenantID: "t2"}, c.ID, 2025, time.October, maint.AssignmentFields{})
		assert.True(t, errors.IsNotFoundError(err))
	})

	t.Run("missing tenant", func(t *testing.T) {
		_, err := svc.Create(ctx, maint.RequestContext{}, c.ID, 2025, time.October, maint.AssignmentFields{})
		assert.True(t, errors.IsInvalidRequestError(err))
	})
}

func TestCreate_Validation(t *testing.T) {
	ctx := context.Background()
	svc, st := setup(t)
	c := seedClient(t, st, "Acme", due.MonthSetOf(8))

	tests := []struct {
		name   string
		year   int
		month  time.Month
		fields maint.AssignmentFields
	}{
		{"month 13", 2025, 13, maint.AssignmentFields{}},
		{"month 0", 2025, 0, maint.AssignmentFields{}},
		{"sentinel year", 9999, time.December, maint.AssignmentFields{}},
		{"day past month end", 2025, time.September, maint.AssignmentFields{Day: util.Ptr(31)}},
		{"hour out of range", 2025, time.September, maint.AssignmentFields{Hour: util.Ptr(24)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, rc, c.ID, tt.year, tt.month, tt.fields)
			require.Error(t, err)
			assert.True(t, errors.IsInvalidRequestError(err))
		})
	}
}

func TestCreate_ConcurrentDuplicates(t *testing.T) {
	ctx := context.Background()
	svc, st := setup(t)
	c := seedClient(t, st, "Acme", due.MonthSetOf(8))

	const callers = 8
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Create(ctx, rc, c.ID, 2025, time.September, maint.AssignmentFields{})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	succeeded, duplicates := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.IsDuplicateAssignment(err):
			duplicates++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, callers-1, duplicates)
}

func TestCreate_ConcurrentJobNumbers(t *testing.T) {
	ctx := context.Background()
	svc, st := setup(t)

	const n = 12
	clients := make([]*maint.Client, n)
	for i := range clients {
		clients[i] = seedClient(t, st, fmt.Sprintf("Client %02d", i), due.MonthSetOf(8))
	}

	var wg sync.WaitGroup
	numbers := make(chan int64, n)
	for _, c := range clients {
		wg.Add(1)
		go func(clientID string) {
			defer wg.Done()
			a, err := svc.Create(ctx, rc, clientID, 2025, time.September, maint.AssignmentFields{})
			if assert.NoError(t, err) {
				numbers <- a.JobNumber
			}
		}(c.ID)
	}
	wg.Wait()
	close(numbers)

	seen := make(map[int64]bool, n)
	for num := range numbers {
		assert.False(t, seen[num], "job number %d issued twice", num)
		seen[num] = true
	}
	require.Len(t, seen, n)
	for i := int64(1); i <= n; i++ {
		assert.True(t, seen[i], "job numbers should be gap-free, missing %d", i)
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	svc, st := setup(t)
	c := seedClient(t, st, "Acme", due.MonthSetOf(8))

	a, err := svc.Create(ctx, rc, c.ID, 2025, time.September, maint.AssignmentFields{Notes: "call ahead"})
	require.NoError(t, err)

	t.Run("setting the day reschedules but keeps completion", func(t *testing.T) {
		got, err := svc.Update(ctx, rc, a.ID, maint.AssignmentPatch{Completed: util.Ptr(true)})
		require.NoError(t, err)
		require.True(t, got.Completed)

		got, err = svc.Update(ctx, rc, a.ID, maint.AssignmentPatch{Day: util.Ptr(22)})
		require.NoError(t, err)
		assert.Equal(t, "2025-09-22", due.Format(got.ScheduledDate))
		assert.False(t, got.AutoDueDate)
		assert.True(t, got.Completed, "rescheduling must not change completion")
		assert.Equal(t, "call ahead", got.Notes, "unsupplied fields stay")
	})

	t.Run("explicit scheduled date wins over the derived one", func(t *testing.T) {
		got, err := svc.Update(ctx, rc, a.ID, maint.AssignmentPatch{
			Day:           util.Ptr(23),
			ScheduledDate: util.Ptr(time.Date(2025, 9, 24, 0, 0, 0, 0, time.UTC)),
		})
		require.NoError(t, err)
		assert.Equal(t, 23, *got.Day)
		assert.Equal(t, "2025-09-24", due.Format(got.ScheduledDate))
	})

	t.Run("technicians and notes", func(t *testing.T) {
		got, err := svc.Update(ctx, rc, a.ID, maint.AssignmentPatch{
			TechnicianIDs: &[]string{"tech-b", "", "tech-a", "tech-b"},
			Notes:         util.Ptr(""),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"tech-a", "tech-b"}, got.TechnicianIDs)
		assert.Empty(t, got.Notes)

		stored, err := svc.Get(ctx, rc, a.ID)
		require.NoError(t, err)
		assert.Equal(t, stored.TechnicianIDs, got.TechnicianIDs, "returned slot must match the stored one")

		mine, err := svc.List(ctx, rc, 2025, time.September, "tech-b")
		require.NoError(t, err)
		require.Len(t, mine, 1)

		none, err := svc.List(ctx, rc, 2025, time.September, "tech-z")
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("clearing the day returns it to the backlog", func(t *testing.T) {
		got, err := svc.Update(ctx, rc, a.ID, maint.AssignmentPatch{ClearDay: true})
		require.NoError(t, err)
		assert.True(t, got.Unscheduled())
		assert.True(t, got.AutoDueDate)
		assert.Equal(t, "2025-09-15", due.Format(got.ScheduledDate))
	})

	t.Run("invalid patches", func(t *testing.T) {
		_, err := svc.Update(ctx, rc, a.ID, maint.AssignmentPatch{ClearDay: true, Day: util.Ptr(2)})
		assert.True(t, errors.IsInvalidRequestError(err))

		_, err = svc.Update(ctx, rc, a.ID, maint.AssignmentPatch{Day: util.Ptr(31)})
		assert.True(t, errors.IsInvalidRequestError(err))
	})

	t.Run("missing assignment", func(t *testing.T) {
		_, err := svc.Update(ctx, rc, "nope", maint.AssignmentPatch{Day: util.Ptr(2)})
		assert.True(t, errors.IsNotFoundError(err))
	})
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc, st := setup(t)
	c := seedClient(t, st, "Acme", due.MonthSetOf(8))

	a, err := svc.Create(ctx, rc, c.ID, 2025, time.September, maint.AssignmentFields{})
	require.NoError(t, err)

	deleted, err := svc.Delete(ctx, rc, a.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = svc.Delete(ctx, rc, a.ID)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestDeleteAndRecompute(t *testing.T) {
	ctx := context.Background()
	svc, st := setup(t)
	c := seedClient(t, st, "Acme", due.MonthSetOf(8))

	a, err := svc.Create(ctx, rc, c.ID, 2025, time.September, maint.AssignmentFields{})
	require.NoError(t, err)

	// Leave NextDue pointing somewhere stale
	require.NoError(t, st.SetClientNextDue(ctx, rc.TenantID, c.ID, due.Date(2025, 1, 15), today))

	deleted, err := svc.DeleteAndRecompute(ctx, rc, a.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	got, err := st.GetClient(ctx, rc.TenantID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "2025-09-15", due.Format(got.NextDue))

	t.Run("completed cycles are skipped", func(t *testing.T) {
		b, err := svc.Create(ctx, rc, c.ID, 2025, time.September, maint.AssignmentFields{})
		require.NoError(t, err)
		require.NoError(t, st.SaveRecord(ctx, &maint.MaintenanceRecord{
			TenantID: rc.TenantID, ClientID: c.ID, DueDate: due.Date(2025, 9, 15),
			CompletedAt: util.Ptr(today), CreatedAt: today, UpdatedAt: today,
		}))

		_, err = svc.DeleteAndRecompute(ctx, rc, b.ID)
		require.NoError(t, err)

		got, err := st.GetClient(ctx, rc.TenantID, c.ID)
		require.NoError(t, err)
		assert.Equal(t, "2026-09-15", due.Format(got.NextDue))
	})

	t.Run("absent slot is not an error", func(t *testing.T) {
		deleted, err := svc.DeleteAndRecompute(ctx, rc, "nope")
		require.NoError(t, err)
		assert.False(t, deleted)
	})
}
