package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/pmcal/am"
	"github.com/teranos/pmcal/errors"
	"github.com/teranos/pmcal/logger"
	"github.com/teranos/pmcal/maint/refresh"
	"github.com/teranos/pmcal/sym"
)

// RefreshCmd recomputes next-due dates
var RefreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: sym.Refresh + " Recompute next-due dates against today",
	Long: sym.Refresh + ` refresh: Next-due refresh

Recomputes every client's next due date from today, stepping over cycles
that are already completed. Tenants come from refresh.tenants, or the
--tenant flag when given.

With --watch the refresh repeats every refresh.interval_seconds and picks
up config file edits without a restart.

Examples:
  pmcal refresh
  pmcal refresh --watch`,
	RunE: runRefresh,
}

var refreshWatchFlag bool

func init() {
	RefreshCmd.Flags().BoolVar(&refreshWatchFlag, "watch", false, "Keep running and refresh on an interval")
}

func runRefresh(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	cfg := refresh.ConfigFromAM(s.cfg)
	if TenantFlag != "" {
		cfg.Tenants = []string{TenantFlag}
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	refresher := s.engine.NewRefresher(ctx, cfg)

	summary, err := refresher.RunOnce(ctx)
	if err != nil {
		return err
	}
	pterm.Success.Printfln("%s Refreshed %d clients across %d tenants, %d updated", sym.Refresh, summary.Clients, summary.Tenants, summary.Updated)
	if summary.Failures > 0 {
		pterm.Warning.Printfln("%d tenants failed, see logs", summary.Failures)
	}
	if !refreshWatchFlag {
		return nil
	}

	if path := watchedConfigPath(); path != "" {
		watcher, err := am.NewConfigWatcher(path)
		if err != nil {
			return errors.Wrap(err, "failed to watch config")
		}
		defer watcher.Stop()
		if TenantFlag == "" {
			refresher.WatchConfig(watcher)
		}
		watcher.Start()
		logger.Debugw("Watching config", logger.FieldFile, path)
	}

	refresher.Start()
	pterm.Info.Printfln("Refreshing every %s (Ctrl+C to stop)", cfg.Interval)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigChan:
	case <-ctx.Done():
	}

	refresher.Stop()
	pterm.Success.Println("Refresher stopped")
	return nil
}
