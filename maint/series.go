package maint

import (
	"time"

	"github.com/teranos/pmcal/errors"
)

// Frequency is the unit a recurring phase advances by.
type Frequency string

const (
	FrequencyDaily     Frequency = "daily"
	FrequencyWeekly    Frequency = "weekly"
	FrequencyMonthly   Frequency = "monthly"
	FrequencyQuarterly Frequency = "quarterly"
	FrequencyYearly    Frequency = "yearly"
)

// ParseFrequency validates a frequency name.
func ParseFrequency(s string) (Frequency, error) {
	switch f := Frequency(s); f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyYearly:
		return f, nil
	}
	return "", errors.WithHint(
		errors.NewInvalidRequestError("unknown frequency %q", s),
		"use daily, weekly, monthly, quarterly or yearly",
	)
}

// Series is a recurring job definition. Its visits carry the template fields.
type Series struct {
	ID                  string
	TenantID            string
	ClientID            string
	StartDate           time.Time
	Summary             string
	Description         string
	JobType             string
	Priority            string
	DefaultTechnicianID string
	LastGeneratedAt     *time.Time
	GeneratedCount      int
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Phase is one stretch of a series with its own cadence and limits.
// Phases are consumed in OrderIndex order.
type Phase struct {
	ID          string
	SeriesID    string
	OrderIndex  int
	Frequency   Frequency
	Interval    int
	Occurrences *int       // cap on visits produced by this phase
	EndDate     *time.Time // no visit is produced after this date
}

// Validate checks a phase definition.
func (p *Phase) Validate() error {
	if _, err := ParseFrequency(string(p.Frequency)); err != nil {
		return err
	}
	if p.Interval < 1 {
		return errors.NewInvalidRequestError("phase %d: interval must be at least 1, got %d", p.OrderIndex, p.Interval)
	}
	if p.Occurrences != nil && *p.Occurrences < 0 {
		return errors.NewInvalidRequestError("phase %d: occurrences cannot be negative", p.OrderIndex)
	}
	return nil
}

// Visit is one generated occurrence of a series.
type Visit struct {
	SeriesID     string
	PhaseIndex   int
	Date         time.Time
	Summary      string
	Description  string
	JobType      string
	Priority     string
	TechnicianID string

	// Set once the visit has been materialized as a work order
	WorkOrderID string
	JobNumber   int64
}
