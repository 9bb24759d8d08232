package commands

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// useTestDB points the global flags at a fresh database for one test.
func useTestDB(t *testing.T) {
	t.Helper()
	DBPathFlag = filepath.Join(t.TempDir(), "pmcal_cli.db")
	TenantFlag = "t1"
	ActorFlag = "test"
	t.Cleanup(func() {
		DBPathFlag, TenantFlag, ActorFlag = "", "", ""
	})
}

func TestCommands_ScheduleAndComplete(t *testing.T) {
	useTestDB(t)
	ctx := context.Background()
	for _, c := range []*cobra.Command{clientAddCmd, calendarCreateCmd, CompleteCmd, BacklogCmd, dbStatsCmd} {
		c.SetContext(ctx)
	}

	clientMonthsFlag = "Mar,Jun,Sep,Dec"
	require.NoError(t, runClientAdd(clientAddCmd, []string{"Acme Plant"}))

	s, err := openSession()
	require.NoError(t, err)
	clients, err := s.engine.ListClients(ctx, s.rc, true)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	clientID := clients[0].ID
	require.NoError(t, s.Close())

	require.NoError(t, calendarCreateCmd.Flags().Set("day", "12"))
	t.Cleanup(func() { slotDayFlag = 0; calendarCreateCmd.Flags().Lookup("day").Changed = false })
	require.NoError(t, runCalendarCreate(calendarCreateCmd, []string{clientID, "2030-09"}))

	require.NoError(t, runComplete(CompleteCmd, []string{clientID, "2030-09-15"}))
	require.NoError(t, runBacklog(BacklogCmd, nil))
	require.NoError(t, runDbStats(dbStatsCmd, nil))

	s, err = openSession()
	require.NoError(t, err)
	defer s.Close()

	sep, err := s.engine.GetAssignmentByMonth(ctx, s.rc, clientID, 2030, time.September)
	require.NoError(t, err)
	require.NotNil(t, sep)
	assert.True(t, sep.Completed)
	assert.Equal(t, 12, *sep.Day)

	dec, err := s.engine.GetAssignmentByMonth(ctx, s.rc, clientID, 2030, time.December)
	require.NoError(t, err)
	require.NotNil(t, dec, "completion provisions the next cycle")
	assert.True(t, dec.Unscheduled())

	client, err := s.engine.GetClient(ctx, s.rc, clientID)
	require.NoError(t, err)
	assert.Equal(t, "2030-12-15", formatNextDue(client.NextDue))
}

func TestCommands_DuplicateSlotIsUserError(t *testing.T) {
	useTestDB(t)
	ctx := context.Background()
	clientAddCmd.SetContext(ctx)
	calendarCreateCmd.SetContext(ctx)

	clientMonthsFlag = "1"
	require.NoError(t, runClientAdd(clientAddCmd, []string{"Boiler Co"}))

	s, err := openSession()
	require.NoError(t, err)
	clients, err := s.engine.ListClients(ctx, s.rc, true)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	require.NoError(t, runCalendarCreate(calendarCreateCmd, []string{clients[0].ID, "2031-01"}))
	err = runCalendarCreate(calendarCreateCmd, []string{clients[0].ID, "2031-01"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already has an assignment")
}

func TestWorkOrderCheck(t *testing.T) {
	assert.NoError(t, runWorkOrderCheck(workOrderCheckCmd, []string{"completed", "invoiced"}))
	assert.Error(t, runWorkOrderCheck(workOrderCheckCmd, []string{"archived", "draft"}))
	assert.Error(t, runWorkOrderCheck(workOrderCheckCmd, []string{"bogus", "draft"}))
}
