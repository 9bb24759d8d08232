package am

import (
	"time"

	"github.com/teranos/pmcal/errors"
)

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	// Database path is optional - empty defaults to DefaultDatabasePath

	if c.Engine.Timezone != "" {
		if _, err := time.LoadLocation(c.Engine.Timezone); err != nil {
			return errors.WithHint(
				errors.Wrapf(err, "engine.timezone %q is not a valid IANA zone", c.Engine.Timezone),
				"use a name like \"UTC\" or \"Europe/Amsterdam\"",
			)
		}
	}

	// 0 = use default, negative = invalid
	if c.Engine.SeriesGenerateCount < 0 {
		return errors.Newf("engine.series_generate_count must be >= 0, got %d", c.Engine.SeriesGenerateCount)
	}
	if c.Engine.StaleBacklogLimit < 0 {
		return errors.Newf("engine.stale_backlog_limit must be >= 0, got %d", c.Engine.StaleBacklogLimit)
	}

	// 0 = run once, negative = invalid
	if c.Refresh.IntervalSeconds < 0 {
		return errors.Newf("refresh.interval_seconds must be >= 0, got %d", c.Refresh.IntervalSeconds)
	}
	if c.Refresh.MaxTenantsPerSecond < 0 {
		return errors.Newf("refresh.max_tenants_per_second must be >= 0, got %f", c.Refresh.MaxTenantsPerSecond)
	}

	return nil
}

// Location returns the configured time zone, falling back to UTC
func (c *Config) Location() *time.Location {
	if c.Engine.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Engine.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
