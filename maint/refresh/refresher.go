package refresh

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/teranos/pmcal/am"
	"github.com/teranos/pmcal/db"
	"github.com/teranos/pmcal/errors"
	"github.com/teranos/pmcal/logger"
	"github.com/teranos/pmcal/maint"
	"github.com/teranos/pmcal/maint/due"
)

// Config controls the periodic refresher
type Config struct {
	Interval            time.Duration // How often every tenant is recomputed
	Tenants             []string
	MaxTenantsPerSecond float64 // Tenant passes per second across one run
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Interval:            am.DefaultRefreshInterval * time.Second,
		Tenants:             []string{am.DefaultTenant},
		MaxTenantsPerSecond: am.DefaultMaxTenantsPerSecond,
	}
}

// ConfigFromAM builds a refresher config from the loaded am configuration.
func ConfigFromAM(cfg *am.Config) Config {
	out := DefaultConfig()
	if cfg.Refresh.IntervalSeconds > 0 {
		out.Interval = time.Duration(cfg.Refresh.IntervalSeconds) * time.Second
	}
	if cfg.Refresh.MaxTenantsPerSecond > 0 {
		out.MaxTenantsPerSecond = cfg.Refresh.MaxTenantsPerSecond
	}
	if len(cfg.Refresh.Tenants) > 0 {
		out.Tenants = append([]string(nil), cfg.Refresh.Tenants...)
	} else {
		out.Tenants = []string{cfg.GetDefaultTenant()}
	}
	return out
}

// Summary reports one refresh pass
type Summary struct {
	Tenants  int
	Clients  int
	Updated  int
	Failures int
}

// Refresher periodically recomputes NextDue for every client of the configured tenants.
type Refresher struct {
	store      maint.Store
	clock      maint.Clock
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	logger     *zap.SugaredLogger
	refreshLog *zap.SugaredLogger // Logger with the refresh symbol pre-attached
	reset      chan time.Duration

	mu              sync.Mutex
	cfg             Config
	limiter         *rate.Limiter
	lastTickAt      time.Time
	ticksSinceStart int64
	lastSummary     Summary
}

// NewRefresher creates a refresher
func NewRefresher(store maint.Store, clock maint.Clock, cfg Config, log *zap.SugaredLogger) *Refresher {
	return NewRefresherWithContext(context.Background(), store, clock, cfg, log)
}

// NewRefresherWithContext creates a refresher with a parent context
func NewRefresherWithContext(ctx context.Context, store maint.Store, clock maint.Clock, cfg Config, log *zap.SugaredLogger) *Refresher {
	refreshCtx, cancel := context.WithCancel(ctx)
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig().Interval
	}

	return &Refresher{
		store:      store,
		clock:      clock,
		ctx:        refreshCtx,
		cancel:     cancel,
		logger:     log,
		refreshLog: logger.AddRefreshSymbol(log),
		reset:      make(chan time.Duration, 1),
		cfg:        cfg,
		limiter:    newLimiter(cfg.MaxTenantsPerSecond),
	}
}

func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Limit(perSecond), 1)
}

// Start begins the refresh loop
func (r *Refresher) Start() {
	r.wg.Add(1)
	go r.run()
	r.refreshLog.Infow("NextDue refresher started", "interval", r.config().Interval)
}

// Stop gracefully stops the refresh loop
func (r *Refresher) Stop() {
	r.cancel()
	r.wg.Wait()
	r.refreshLog.Infow("NextDue refresher stopped")
}

// Reconfigure swaps in a new config. A changed interval takes effect on the next tick.
func (r *Refresher) Reconfigure(cfg Config) {
	r.mu.Lock()
	if cfg.Interval <= 0 {
		cfg.Interval = r.cfg.Interval
	}
	changed := cfg.Interval != r.cfg.Interval
	r.cfg = cfg
	r.limiter = newLimiter(cfg.MaxTenantsPerSecond)
	r.mu.Unlock()

	if changed {
		select {
		case r.reset <- cfg.Interval:
		default:
		}
	}
	r.refreshLog.Infow("NextDue refresher reconfigured",
		"interval", cfg.Interval,
		"tenants", len(cfg.Tenants))
}

// WatchConfig reconfigures the refresher whenever the watched config file reloads.
func (r *Refresher) WatchConfig(w *am.ConfigWatcher) {
	w.OnReload(func(cfg *am.Config) error {
		r.Reconfigure(ConfigFromAM(cfg))
		return nil
	})
}

func (r *Refresher) config() Config {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cfg
}

// run is the main refresh loop
func (r *Refresher) run() {
	defer r.wg.Done()

	ticker := time.NewTicker(r.config().Interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case d := <-r.reset:
			ticker.Reset(d)
		case tickTime := <-ticker.C:
			r.mu.Lock()
			r.lastTickAt = tickTime
			r.ticksSinceStart++
			tick := r.ticksSinceStart
			r.mu.Unlock()

			if _, err := r.RunOnce(r.ctx); err != nil {
				if db.IsDatabaseClosed(err) {
					r.refreshLog.Infow("Database closed, refresh loop exiting", "tick", tick)
					return
				}
				// Don't spam logs - log errors at warn level
				r.refreshLog.Warnw("Refresh tick error", logger.FieldError, err, "tick", tick)
			}
		}
	}
}

// RunOnce refreshes every configured tenant once, rate limited across tenants.
func (r *Refresher) RunOnce(ctx context.Context) (Summary, error) {
	start := time.Now()
	cfg := r.config()
	r.mu.Lock()
	limiter := r.limiter
	r.mu.Unlock()

	var summary Summary
	for _, tenantID := range cfg.Tenants {
		if err := limiter.Wait(ctx); err != nil {
			return summary, errors.Wrap(err, "refresh cancelled")
		}

		clients, updated, err := r.RefreshTenant(ctx, maint.RequestContext{TenantID: tenantID, ActorID: "refresher"})
		if db.IsDatabaseClosed(err) {
			// Shutdown closed the store under us; the remaining tenants would fail the same way
			return summary, errors.Wrap(err, "refresh aborted")
		}
		summary.Tenants++
		summary.Clients += clients
		summary.Updated += updated
		if err != nil {
			summary.Failures++
			r.refreshLog.Errorw("Failed to refresh tenant",
				logger.FieldTenantID, tenantID,
				logger.FieldError, err)
			// Continue with other tenants even if one fails
			continue
		}
	}

	r.mu.Lock()
	r.lastSummary = summary
	r.mu.Unlock()

	r.refreshLog.Infow("Refresh pass complete",
		"tenants", summary.Tenants,
		"clients", summary.Clients,
		"updated", summary.Updated,
		"failures", summary.Failures,
		logger.FieldDurationMS, time.Since(start).Milliseconds())
	return summary, nil
}

// RefreshTenant recomputes NextDue for every client of one tenant.
// Each client is written in its own transaction; it returns how many clients
// were examined and how many changed.
func (r *Refresher) RefreshTenant(ctx context.Context, rc maint.RequestContext) (int, int, error) {
	if err := rc.Validate(); err != nil {
		return 0, 0, err
	}

	clients, err := r.store.ListClients(ctx, rc.TenantID, false)
	if err != nil {
		return 0, 0, errors.Wrapf(err, "list clients of tenant %s", rc.TenantID)
	}

	now := r.clock.Now()
	updated := 0
	for _, c := range clients {
		select {
		case <-ctx.Done():
			return len(clients), updated, ctx.Err()
		default:
		}

		changed := false
		err := r.store.InTx(ctx, func(tx maint.Store) error {
			next, err := NextDueFor(ctx, tx, c, now)
			if err != nil {
				return err
			}
			if next.Equal(c.NextDue) {
				return nil
			}
			changed = true
			return tx.SetClientNextDue(ctx, rc.TenantID, c.ID, next, now)
		})
		if err != nil {
			return len(clients), updated, errors.Wrapf(err, "refresh client %s", c.ID)
		}
		if changed {
			updated++
			r.logger.Debugw("NextDue refreshed",
				logger.FieldTenantID, rc.TenantID,
				logger.FieldClientID, c.ID,
				"previous", due.Format(c.NextDue))
		}
	}
	return len(clients), updated, nil
}

// GetStats returns refresher statistics
func (r *Refresher) GetStats() map[string]interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	return map[string]interface{}{
		"last_tick_at":      r.lastTickAt,
		"ticks_since_start": r.ticksSinceStart,
		"interval":          r.cfg.Interval,
		"tenants":           len(r.cfg.Tenants),
		"last_updated":      r.lastSummary.Updated,
	}
}
