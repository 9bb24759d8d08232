// Package backlog finds maintenance cycles that still need scheduling.
//
// The scan covers exactly three calendar months: the previous, the current
// and the next, relative to the clock. Older gaps are reported separately by
// Stale so the main view stays short.
package backlog

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/pmcal/errors"
	"github.com/teranos/pmcal/logger"
	"github.com/teranos/pmcal/maint"
	"github.com/teranos/pmcal/maint/due"
)

// Entry is one cycle needing attention.
// Missing entries are synthetic: no slot exists, so AssignmentID is empty.
type Entry struct {
	Missing       bool
	AssignmentID  string
	ClientID      string
	ClientName    string
	Year          int
	Month         time.Month
	DueDate       time.Time
	JobNumber     int64
	TechnicianIDs []string
}

// Result holds the two disjoint backlog views.
type Result struct {
	Window   []due.YearMonth
	Existing []Entry // unscheduled placeholders that exist
	Missing  []Entry // selected months with no slot at all
}

// Window returns the previous, current and next calendar month around now.
func Window(now time.Time) []due.YearMonth {
	current := due.YearMonthOf(now)
	return []due.YearMonth{current.AddMonths(-1), current, current.AddMonths(1)}
}

// Scanner produces backlog views. It holds no state between calls.
type Scanner struct {
	store  maint.Store
	clock  maint.Clock
	logger *zap.SugaredLogger
}

// NewScanner creates a backlog scanner
func NewScanner(store maint.Store, clock maint.Clock, log *zap.SugaredLogger) *Scanner {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Scanner{store: store, clock: clock, logger: log}
}

// Scan computes the backlog for the window around the clock's now.
func (s *Scanner) Scan(ctx context.Context, rc maint.RequestContext) (Result, error) {
	if err := rc.Validate(); err != nil {
		return Result{}, err
	}

	window := Window(s.clock.Now())
	result := Result{Window: window}

	// Both reads share one transaction so the two views come from one snapshot
	var clients []*maint.Client
	var assignments []*maint.Assignment
	err := s.store.InTx(ctx, func(tx maint.Store) error {
		var err error
		if clients, err = tx.ListClients(ctx, rc.TenantID, true); err != nil {
			return errors.Wrap(err, "list active clients")
		}
		if assignments, err = tx.ListAssignmentsInRange(ctx, rc.TenantID, window[0], window[len(window)-1]); err != nil {
			return errors.Wrap(err, "list assignments in window")
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	active := make(map[string]*maint.Client, len(clients))
	for _, c := range clients {
		active[c.ID] = c
	}

	// Any slot, scheduled or not, completed or not, covers its month
	covered := make(map[string]bool, len(assignments))
	for _, a := range assignments {
		covered[slotKey(a.ClientID, a.YearMonth())] = true

		client, ok := active[a.ClientID]
		if !ok || !a.Unscheduled() || a.Completed {
			continue
		}
		result.Existing = append(result.Existing, Entry{
			AssignmentID:  a.ID,
			ClientID:      a.ClientID,
			ClientName:    client.Name,
			Year:          a.Year,
			Month:         a.Month,
			DueDate:       a.ScheduledDate,
			JobNumber:     a.JobNumber,
			TechnicianIDs: a.TechnicianIDs,
		})
	}

	for _, ym := range window {
		for _, c := range clients {
			if !c.SelectedMonths.Has(ym.Index()) || covered[slotKey(c.ID, ym)] {
				continue
			}
			result.Missing = append(result.Missing, Entry{
				Missing:    true,
				ClientID:   c.ID,
				ClientName: c.Name,
				Year:       ym.Year,
				Month:      ym.Month,
				DueDate:    ym.Cycle(),
			})
		}
	}

	logger.TenantLogger(s.logger, rc.TenantID, rc.ActorID).Debugw("Backlog scanned",
		"window_start", window[0].Key(),
		"window_end", window[len(window)-1].Key(),
		"existing", len(result.Existing),
		"missing", len(result.Missing))
	return result, nil
}

// Stale lists open placeholders from before the window, newest first.
func (s *Scanner) Stale(ctx context.Context, rc maint.RequestContext, limit int) ([]Entry, error) {
	if err := rc.Validate(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, errors.NewInvalidRequestError("limit must be positive, got %d", limit)
	}

	window := Window(s.clock.Now())
	var assignments []*maint.Assignment
	var clients []*maint.Client
	err := s.store.InTx(ctx, func(tx maint.Store) error {
		var err error
		if assignments, err = tx.ListUnscheduledBefore(ctx, rc.TenantID, window[0], limit); err != nil {
			return errors.Wrap(err, "list stale placeholders")
		}
		if clients, err = tx.ListClients(ctx, rc.TenantID, true); err != nil {
			return errors.Wrap(err, "list active clients")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(clients))
	for _, c := range clients {
		names[c.ID] = c.Name
	}

	entries := make([]Entry, 0, len(assignments))
	for _, a := range assignments {
		entries = append(entries, Entry{
			AssignmentID:  a.ID,
			ClientID:      a.ClientID,
			ClientName:    names[a.ClientID],
			Year:          a.Year,
			Month:         a.Month,
			DueDate:       a.ScheduledDate,
			JobNumber:     a.JobNumber,
			TechnicianIDs: a.TechnicianIDs,
		})
	}
	return entries, nil
}

func slotKey(clientID string, ym due.YearMonth) string {
	return clientID + "|" + ym.Key()
}
