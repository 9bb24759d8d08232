package commands

import (
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/pmcal/maint"
	"github.com/teranos/pmcal/maint/workorder"
	"github.com/teranos/pmcal/sym"
)

// WorkOrderCmd represents the workorder command
var WorkOrderCmd = &cobra.Command{
	Use:   "workorder",
	Short: sym.Order + " Move work orders through their lifecycle",
	Long: sym.Order + ` workorder: Work-order status changes

Statuses: draft, scheduled, in_progress, on_hold, completed, invoiced,
closed, archived, cancelled. Archived and cancelled are terminal.

Examples:
  pmcal workorder transition <id> in_progress
  pmcal workorder check completed invoiced`,
}

var workOrderTransitionCmd = &cobra.Command{
	Use:   "transition <work-order-id> <status>",
	Short: "Change a work order's status",
	Args:  cobra.ExactArgs(2),
	RunE:  runWorkOrderTransition,
}

var workOrderCheckCmd = &cobra.Command{
	Use:   "check <from> <to>",
	Short: "Check whether a status change is allowed",
	Args:  cobra.ExactArgs(2),
	RunE:  runWorkOrderCheck,
}

func init() {
	WorkOrderCmd.AddCommand(workOrderTransitionCmd)
	WorkOrderCmd.AddCommand(workOrderCheckCmd)
}

func runWorkOrderTransition(cmd *cobra.Command, args []string) error {
	to, err := workorder.ParseStatus(args[1])
	if err != nil {
		return err
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	w, err := s.engine.TransitionWorkOrder(cmd.Context(), s.rc, args[0], to)
	if err != nil {
		return err
	}
	pterm.Success.Printfln("Work order %d is now %s", w.JobNumber, w.Status)
	if w.InvoiceNumber != nil {
		pterm.Info.Printfln("Invoice number %d", *w.InvoiceNumber)
	}
	return nil
}

func runWorkOrderCheck(cmd *cobra.Command, args []string) error {
	from, err := workorder.ParseStatus(args[0])
	if err != nil {
		return err
	}
	to, err := workorder.ParseStatus(args[1])
	if err != nil {
		return err
	}

	if err := workorder.AssertTransition(from, to); err != nil {
		return err
	}
	pterm.Success.Printfln("%s -> %s is allowed", from, to)
	if next := workorder.Allowed(to); len(next) > 0 {
		pterm.Info.Printfln("From %s: %s", to, joinStatuses(next))
	}
	return nil
}

func joinStatuses(statuses []maint.WorkOrderStatus) string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return strings.Join(out, ", ")
}
