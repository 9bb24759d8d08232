package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teranos/pmcal/am"
	"github.com/teranos/pmcal/cmd/pmcal/commands"
	"github.com/teranos/pmcal/errors"
	"github.com/teranos/pmcal/logger"
)

var rootCmd = &cobra.Command{
	Use:   "pmcal",
	Short: "pmcal - Preventive maintenance scheduling",
	Long: `pmcal - Preventive maintenance scheduling and calendar consistency.

pmcal keeps a tenant's maintenance calendar consistent: one visit slot per
client and month, gap-free job numbers, next-due dates that follow
completions, and a backlog of cycles that still need a technician.

Available commands:
  am        - Manage pmcal configuration
  db        - Migrate and inspect the record store
  client    - Register clients and edit their maintenance months
  calendar  - Create, edit and list visit slots
  complete  - Toggle a maintenance cycle between open and completed
  series    - Define recurring job series and materialize visits
  backlog   - Show cycles that still need scheduling
  workorder - Move work orders through their lifecycle
  refresh   - Recompute next-due dates against today

Examples:
  pmcal client add "Acme Plant" --months Mar,Jun,Sep,Dec
  pmcal calendar create <client-id> 2025-09 --day 12
  pmcal complete <client-id> 2025-09-15
  pmcal backlog --stale
  pmcal refresh --watch`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		verbosity, _ := cmd.Flags().GetCount("verbose")
		jsonLogs := false
		if cfg, err := am.Load(); err == nil {
			jsonLogs = cfg.Log.JSON
		}
		if err := logger.Initialize(jsonLogs, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Cleanup()
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")
	rootCmd.PersistentFlags().StringVar(&commands.TenantFlag, "tenant", "", "Tenant to operate on (default: engine.default_tenant)")
	rootCmd.PersistentFlags().StringVar(&commands.DBPathFlag, "db", "", "Database path (default: database.path)")
	rootCmd.PersistentFlags().StringVar(&commands.ActorFlag, "actor", "cli", "Actor recorded in logs")

	rootCmd.AddCommand(commands.AmCmd)
	rootCmd.AddCommand(commands.DbCmd)
	rootCmd.AddCommand(commands.ClientCmd)
	rootCmd.AddCommand(commands.CalendarCmd)
	rootCmd.AddCommand(commands.CompleteCmd)
	rootCmd.AddCommand(commands.SeriesCmd)
	rootCmd.AddCommand(commands.BacklogCmd)
	rootCmd.AddCommand(commands.WorkOrderCmd)
	rootCmd.AddCommand(commands.RefreshCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		for _, hint := range errors.GetAllHints(err) {
			fmt.Fprintln(os.Stderr, "Hint:", hint)
		}
		os.Exit(1)
	}
}
