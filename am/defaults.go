package am

import (
	"fmt"

	"github.com/spf13/viper"
)

// Default values shared by SetDefaults and the zero-value getters below
const (
	DefaultDatabasePath        = "pmcal.db"
	DefaultTenant              = "default"
	DefaultTimezone            = "UTC"
	DefaultSeriesGenerateCount = 12
	DefaultStaleBacklogLimit   = 50
	DefaultRefreshInterval     = 3600 // seconds
	DefaultMaxTenantsPerSecond = 5.0
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", DefaultDatabasePath)

	v.SetDefault("engine.default_tenant", DefaultTenant)
	v.SetDefault("engine.timezone", DefaultTimezone)
	v.SetDefault("engine.series_generate_count", DefaultSeriesGenerateCount)
	v.SetDefault("engine.stale_backlog_limit", DefaultStaleBacklogLimit)

	v.SetDefault("refresh.interval_seconds", DefaultRefreshInterval)
	v.SetDefault("refresh.tenants", []string{})
	v.SetDefault("refresh.max_tenants_per_second", DefaultMaxTenantsPerSecond)

	v.SetDefault("log.json", false)
}

// BindSensitiveEnvVars explicitly binds configuration commonly set per deployment
func BindSensitiveEnvVars(v *viper.Viper) {
	v.BindEnv("database.path", "PMCAL_DATABASE_PATH")
	v.BindEnv("engine.default_tenant", "PMCAL_TENANT")
}

// GetDatabasePath returns the configured database path
func (c *Config) GetDatabasePath() string {
	if c.Database.Path == "" {
		return DefaultDatabasePath
	}
	return c.Database.Path
}

// GetDefaultTenant returns the tenant used when a command omits --tenant
func (c *Config) GetDefaultTenant() string {
	if c.Engine.DefaultTenant == "" {
		return DefaultTenant
	}
	return c.Engine.DefaultTenant
}

// GetSeriesGenerateCount returns the default number of series visits to materialize
func (c *Config) GetSeriesGenerateCount() int {
	if c.Engine.SeriesGenerateCount <= 0 {
		return DefaultSeriesGenerateCount
	}
	return c.Engine.SeriesGenerateCount
}

// GetStaleBacklogLimit returns the stale backlog row limit
func (c *Config) GetStaleBacklogLimit() int {
	if c.Engine.StaleBacklogLimit <= 0 {
		return DefaultStaleBacklogLimit
	}
	return c.Engine.StaleBacklogLimit
}

// String returns a string representation of the config
func (c *Config) String() string {
	return fmt.Sprintf("Config{Database: %s, Tenant: %s, Timezone: %s, Refresh: {Interval: %ds}}",
		c.Database.Path, c.Engine.DefaultTenant, c.Engine.Timezone, c.Refresh.IntervalSeconds)
}
