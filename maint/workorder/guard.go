// Package workorder guards work-order status changes.
package workorder

import (
	"github.com/teranos/pmcal/errors"
	"github.com/teranos/pmcal/maint"
)

// transitions lists the legal successors of each status.
// Archived and cancelled are terminal.
var transitions = map[maint.WorkOrderStatus][]maint.WorkOrderStatus{
	maint.StatusDraft:      {maint.StatusScheduled, maint.StatusCancelled},
	maint.StatusScheduled:  {maint.StatusDraft, maint.StatusInProgress, maint.StatusOnHold, maint.StatusCompleted, maint.StatusCancelled},
	maint.StatusInProgress: {maint.StatusOnHold, maint.StatusCompleted, maint.StatusCancelled},
	maint.StatusOnHold:     {maint.StatusScheduled, maint.StatusInProgress, maint.StatusCancelled},
	maint.StatusCompleted:  {maint.StatusInvoiced, maint.StatusClosed, maint.StatusArchived},
	maint.StatusInvoiced:   {maint.StatusClosed, maint.StatusArchived},
	maint.StatusClosed:     {maint.StatusArchived},
	maint.StatusArchived:   nil,
	maint.StatusCancelled:  nil,
}

// AssertTransition returns nil when moving from -> to is legal.
// Staying in the same status is always legal.
func AssertTransition(from, to maint.WorkOrderStatus) error {
	if from == to {
		if _, known := transitions[from]; known {
			return nil
		}
	}
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return errors.NewInvalidTransitionError(string(from), string(to))
}

// Allowed returns the legal successors of status.
func Allowed(status maint.WorkOrderStatus) []maint.WorkOrderStatus {
	out := make([]maint.WorkOrderStatus, len(transitions[status]))
	copy(out, transitions[status])
	return out
}

// IsTerminal reports whether nothing can follow status.
func IsTerminal(status maint.WorkOrderStatus) bool {
	next, known := transitions[status]
	return known && len(next) == 0
}

// ParseStatus validates a status name.
func ParseStatus(s string) (maint.WorkOrderStatus, error) {
	status := maint.WorkOrderStatus(s)
	if _, ok := transitions[status]; !ok {
		return "", errors.NewInvalidRequestError("unknown work order status %q", s)
	}
	return status, nil
}
