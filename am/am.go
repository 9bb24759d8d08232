package am

// Config represents the pmcal configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Engine   EngineConfig   `mapstructure:"engine"`
	Refresh  RefreshConfig  `mapstructure:"refresh"`
	Log      LogConfig      `mapstructure:"log"`
}

// DatabaseConfig configures the SQLite record store
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// EngineConfig configures scheduling behaviour shared by every command
type EngineConfig struct {
	DefaultTenant       string `mapstructure:"default_tenant"`        // Tenant used when --tenant is omitted
	Timezone            string `mapstructure:"timezone"`              // IANA zone used to decide what "today" is (default: UTC)
	SeriesGenerateCount int    `mapstructure:"series_generate_count"` // Visits materialized per series generate (default: 12)
	StaleBacklogLimit   int    `mapstructure:"stale_backlog_limit"`   // Max rows returned by the stale backlog query (default: 50)
}

// RefreshConfig configures the periodic nextDue refresher
type RefreshConfig struct {
	IntervalSeconds     int      `mapstructure:"interval_seconds"`       // How often refresh --watch recomputes nextDue (default: 3600)
	Tenants             []string `mapstructure:"tenants"`                // Tenants to refresh (empty = engine.default_tenant)
	MaxTenantsPerSecond float64  `mapstructure:"max_tenants_per_second"` // Rate limit between tenant passes
}

// LogConfig configures log output
type LogConfig struct {
	JSON bool `mapstructure:"json"`
}

// File system constants
const (
	DefaultDirPermissions = 0755 // Standard directory permissions (rwxr-xr-x)
)
