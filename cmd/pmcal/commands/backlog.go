package commands

import (
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/pmcal/maint/backlog"
	"github.com/teranos/pmcal/maint/due"
	"github.com/teranos/pmcal/sym"
)

// BacklogCmd shows cycles needing scheduling
var BacklogCmd = &cobra.Command{
	Use:   "backlog",
	Short: sym.Backlog + " Show cycles that still need scheduling",
	Long: sym.Backlog + ` backlog: Scheduling backlog

Covers the previous, current and next month. Existing entries are
placeholder slots without a day; missing entries are maintenance months
that have no slot at all.

Examples:
  pmcal backlog
  pmcal backlog --stale --limit 20     # placeholders older than the window`,
	RunE: runBacklog,
}

var (
	backlogStaleFlag bool
	backlogLimitFlag int
)

func init() {
	BacklogCmd.Flags().BoolVar(&backlogStaleFlag, "stale", false, "List open placeholders older than the window")
	BacklogCmd.Flags().IntVar(&backlogLimitFlag, "limit", 0, "Maximum stale rows (default: engine.stale_backlog_limit)")
}

func runBacklog(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	if backlogStaleFlag {
		limit := backlogLimitFlag
		if limit == 0 {
			limit = s.cfg.GetStaleBacklogLimit()
		}
		entries, err := s.engine.StaleBacklog(cmd.Context(), s.rc, limit)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			pterm.Info.Println("No stale placeholders")
			return nil
		}
		return renderBacklog(entries)
	}

	result, err := s.engine.ScanBacklog(cmd.Context(), s.rc)
	if err != nil {
		return err
	}
	keys := make([]string, len(result.Window))
	for i, ym := range result.Window {
		keys[i] = ym.Key()
	}
	pterm.DefaultSection.Printfln("Backlog %s", strings.Join(keys, ", "))

	if len(result.Existing) == 0 && len(result.Missing) == 0 {
		pterm.Success.Println("Nothing left to schedule")
		return nil
	}
	if len(result.Existing) > 0 {
		pterm.Info.Printfln("%d unscheduled placeholders", len(result.Existing))
		if err := renderBacklog(result.Existing); err != nil {
			return err
		}
	}
	if len(result.Missing) > 0 {
		pterm.Warning.Printfln("%d maintenance months without a slot", len(result.Missing))
		if err := renderBacklog(result.Missing); err != nil {
			return err
		}
	}
	return nil
}

func renderBacklog(entries []backlog.Entry) error {
	data := pterm.TableData{{"Client", "Month", "Due", "Job", "Technicians", "Assignment"}}
	for _, e := range entries {
		job := ""
		if e.JobNumber > 0 {
			job = strconv.FormatInt(e.JobNumber, 10)
		}
		data = append(data, []string{
			e.ClientName,
			due.YearMonth{Year: e.Year, Month: e.Month}.Key(),
			due.Format(e.DueDate),
			job,
			strings.Join(e.TechnicianIDs, ","),
			e.AssignmentID,
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
