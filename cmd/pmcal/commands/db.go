package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teranos/pmcal/db"
	"github.com/teranos/pmcal/errors"
	"github.com/teranos/pmcal/sym"
)

// DbCmd represents the db (database) command
var DbCmd = &cobra.Command{
	Use:   "db",
	Short: sym.DB + " Manage the pmcal record store",
	Long: sym.DB + ` db: Manage the pmcal record store

Examples:
  pmcal db migrate                # Apply pending migrations
  pmcal db stats                  # Show record counts for the tenant`,
}

var dbMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending migrations",
	RunE:  runDbMigrate,
}

var dbStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show record counts for the tenant",
	RunE:  runDbStats,
}

func init() {
	DbCmd.AddCommand(dbMigrateCmd)
	DbCmd.AddCommand(dbStatsCmd)
}

func runDbMigrate(cmd *cobra.Command, args []string) error {
	database, dbPath, err := openDatabase(DBPathFlag)
	if err != nil {
		return err
	}
	defer database.Close()

	versions, err := db.AppliedVersions(database)
	if err != nil {
		return errors.Wrap(err, "failed to read applied migrations")
	}
	fmt.Printf("%s %s is at migration %s (%d applied)\n", sym.DB, dbPath, versions[len(versions)-1], len(versions))
	return nil
}

func runDbStats(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	counts, err := s.store.Counts(cmd.Context(), s.rc.TenantID)
	if err != nil {
		return err
	}

	fmt.Printf("%s Database Statistics\n", sym.DB)
	fmt.Printf("%s\n\n", strings.Repeat("━", 46))
	fmt.Printf("Database Path:        %s\n", s.dbPath)
	fmt.Printf("Tenant:               %s\n", s.rc.TenantID)
	fmt.Printf("Clients:              %d\n", counts["clients"])
	fmt.Printf("Calendar assignments: %d\n", counts["calendar_assignments"])
	fmt.Printf("Maintenance records:  %d\n", counts["maintenance_records"])
	fmt.Printf("Recurring series:     %d\n", counts["recurring_job_series"])
	fmt.Printf("Work orders:          %d\n", counts["work_orders"])
	return nil
}
