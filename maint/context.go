package maint

import (
	"strings"
	"time"

	"github.com/teranos/pmcal/errors"
)

// RequestContext scopes one engine call to a tenant.
// It is passed by value into every operation; nothing is read from ambient state.
type RequestContext struct {
	TenantID string
	ActorID  string
}

// Validate rejects calls with no tenant.
func (rc RequestContext) Validate() error {
	if strings.TrimSpace(rc.TenantID) == "" {
		return errors.WithHint(
			errors.NewInvalidRequestError("tenant id is required"),
			"pass --tenant or set engine.default_tenant",
		)
	}
	return nil
}

// Clock is the engine's source of "now".
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now calls f.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock in UTC.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// FixedClock always returns t.
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

// ClockIn reads the wall clock in loc, so "today" follows the tenant's calendar.
func ClockIn(loc *time.Location) Clock {
	if loc == nil {
		return SystemClock{}
	}
	return ClockFunc(func() time.Time { return time.Now().In(loc) })
}
