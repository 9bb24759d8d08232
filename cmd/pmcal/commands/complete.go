package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/pmcal/maint/due"
	"github.com/teranos/pmcal/sym"
)

// CompleteCmd toggles a maintenance cycle
var CompleteCmd = &cobra.Command{
	Use:   "complete <client-id> <due-date>",
	Short: sym.Complete + " Toggle a maintenance cycle between open and completed",
	Long: sym.Complete + ` complete: Completion toggle

Completing a cycle records it, advances the client's next due date to the
following cycle, marks the month's slot completed, completes a linked work
order and provisions a placeholder slot for the next cycle. Running the same
command again reopens the cycle.

The due date names the cycle (the 15th of a maintenance month), so overdue
cycles can be completed explicitly.

Examples:
  pmcal complete <client-id> 2025-09-15`,
	Args: cobra.ExactArgs(2),
	RunE: runComplete,
}

func runComplete(cmd *cobra.Command, args []string) error {
	dueDate, err := parseDate(args[1])
	if err != nil {
		return err
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	result, err := s.engine.ToggleCompletion(cmd.Context(), s.rc, args[0], dueDate)
	if err != nil {
		return err
	}

	if !result.Completed {
		pterm.Info.Printfln("Cycle %s reopened", due.Format(dueDate))
		return nil
	}
	pterm.Success.Printfln("Cycle %s completed, next due %s", due.Format(dueDate), formatNextDue(*result.NextDue))
	if result.Provisioned != nil {
		pterm.Info.Printfln("Placeholder job %d provisioned for %s", result.Provisioned.JobNumber, result.Provisioned.YearMonth().Key())
	}
	return nil
}
