package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/pmcal/errors"
	"github.com/teranos/pmcal/maint"
	"github.com/teranos/pmcal/maint/due"
	"github.com/teranos/pmcal/sym"
)

// CalendarCmd represents the calendar command
var CalendarCmd = &cobra.Command{
	Use:   "calendar",
	Short: sym.Calendar + " Create, edit and list visit slots",
	Long: sym.Calendar + ` calendar: Visit slots

Each client has at most one slot per month. A slot without a day is an
unscheduled placeholder dated on the month's cycle (the 15th).

Examples:
  pmcal calendar create <client-id> 2025-09            # placeholder
  pmcal calendar create <client-id> 2025-09 --day 12 --tech alice
  pmcal calendar update <id> --day 18 --hour 9
  pmcal calendar update <id> --clear-day
  pmcal calendar list 2025-09 --tech alice
  pmcal calendar delete <id>`,
}

var calendarCreateCmd = &cobra.Command{
	Use:   "create <client-id> <yyyy-mm>",
	Short: "Create a visit slot",
	Args:  cobra.ExactArgs(2),
	RunE:  runCalendarCreate,
}

var calendarUpdateCmd = &cobra.Command{
	Use:   "update <assignment-id>",
	Short: "Edit a visit slot",
	Args:  cobra.ExactArgs(1),
	RunE:  runCalendarUpdate,
}

var calendarDeleteCmd = &cobra.Command{
	Use:   "delete <assignment-id>",
	Short: "Delete a visit slot and recompute the client's next due date",
	Args:  cobra.ExactArgs(1),
	RunE:  runCalendarDelete,
}

var calendarListCmd = &cobra.Command{
	Use:   "list <yyyy-mm>",
	Short: "List a month's visit slots",
	Args:  cobra.ExactArgs(1),
	RunE:  runCalendarList,
}

var calendarShowCmd = &cobra.Command{
	Use:   "show <assignment-id>",
	Short: "Show a visit slot",
	Args:  cobra.ExactArgs(1),
	RunE:  runCalendarShow,
}

var (
	slotDayFlag       int
	slotHourFlag      int
	slotDateFlag      string
	slotTechFlag      string
	slotWorkOrderFlag string
	slotNotesFlag     string
	slotClearDayFlag  bool
	slotCompletedFlag bool
)

func init() {
	for _, c := range []*cobra.Command{calendarCreateCmd, calendarUpdateCmd} {
		c.Flags().IntVar(&slotDayFlag, "day", 0, "Day of month")
		c.Flags().IntVar(&slotHourFlag, "hour", 0, "Hour of day (0-23)")
		c.Flags().StringVar(&slotDateFlag, "date", "", "Explicit scheduled date (YYYY-MM-DD)")
		c.Flags().StringVar(&slotTechFlag, "tech", "", "Comma-separated technician ids")
		c.Flags().StringVar(&slotNotesFlag, "notes", "", "Free-form notes")
	}
	calendarCreateCmd.Flags().StringVar(&slotWorkOrderFlag, "work-order", "", "Linked work order id")
	calendarUpdateCmd.Flags().BoolVar(&slotClearDayFlag, "clear-day", false, "Turn the slot back into an unscheduled placeholder")
	calendarUpdateCmd.Flags().BoolVar(&slotCompletedFlag, "completed", false, "Mark the slot completed (does not touch the maintenance record)")
	calendarListCmd.Flags().StringVar(&slotTechFlag, "tech", "", "Only slots assigned to this technician")

	CalendarCmd.AddCommand(calendarCreateCmd)
	CalendarCmd.AddCommand(calendarUpdateCmd)
	CalendarCmd.AddCommand(calendarDeleteCmd)
	CalendarCmd.AddCommand(calendarListCmd)
	CalendarCmd.AddCommand(calendarShowCmd)
}

func runCalendarCreate(cmd *cobra.Command, args []string) error {
	ym, err := parseYearMonth(args[1])
	if err != nil {
		return err
	}

	fields := maint.AssignmentFields{
		TechnicianIDs: splitList(slotTechFlag),
		Notes:         slotNotesFlag,
	}
	flags := cmd.Flags()
	if flags.Changed("day") {
		fields.Day = &slotDayFlag
	}
	if flags.Changed("hour") {
		fields.Hour = &slotHourFlag
	}
	if slotDateFlag != "" {
		d, err := parseDate(slotDateFlag)
		if err != nil {
			return err
		}
		fields.ScheduledDate = &d
	}
	if slotWorkOrderFlag != "" {
		fields.WorkOrderID = &slotWorkOrderFlag
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	a, err := s.engine.CreateAssignment(cmd.Context(), s.rc, args[0], ym.Year, ym.Month, fields)
	if err != nil {
		return err
	}
	pterm.Success.Printfln("Job %d created for %s (%s)", a.JobNumber, ym.Key(), formatSlotDay(a))
	pterm.Printfln("ID: %s", a.ID)
	return nil
}

func runCalendarUpdate(cmd *cobra.Command, args []string) error {
	var patch maint.AssignmentPatch
	flags := cmd.Flags()
	if flags.Changed("day") {
		patch.Day = &slotDayFlag
	}
	patch.ClearDay = slotClearDayFlag
	if flags.Changed("hour") {
		patch.Hour = &slotHourFlag
	}
	if slotDateFlag != "" {
		d, err := parseDate(slotDateFlag)
		if err != nil {
			return err
		}
		patch.ScheduledDate = &d
	}
	if flags.Changed("completed") {
		patch.Completed = &slotCompletedFlag
	}
	if flags.Changed("tech") {
		techs := splitList(slotTechFlag)
		patch.TechnicianIDs = &techs
	}
	if flags.Changed("notes") {
		patch.Notes = &slotNotesFlag
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	a, err := s.engine.UpdateAssignment(cmd.Context(), s.rc, args[0], patch)
	if err != nil {
		return err
	}
	pterm.Success.Printfln("Job %d updated", a.JobNumber)
	printAssignment(a)
	return nil
}

func runCalendarDelete(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	deleted, err := s.engine.DeleteAssignment(cmd.Context(), s.rc, args[0])
	if err != nil {
		return err
	}
	if !deleted {
		pterm.Warning.Printfln("Assignment %s does not exist", args[0])
		return nil
	}
	pterm.Success.Printfln("Assignment %s deleted", args[0])
	return nil
}

func runCalendarList(cmd *cobra.Command, args []string) error {
	ym, err := parseYearMonth(args[0])
	if err != nil {
		return err
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	list, err := s.engine.ListAssignments(cmd.Context(), s.rc, ym.Year, ym.Month, slotTechFlag)
	if err != nil {
		return err
	}
	if len(list) == 0 {
		pterm.Info.Printfln("No assignments in %s", ym.Key())
		return nil
	}
	return renderAssignments(list)
}

func runCalendarShow(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	a, err := s.engine.GetAssignment(cmd.Context(), s.rc, args[0])
	if err != nil {
		return err
	}
	if a == nil {
		return errors.NewNotFoundError("assignment %s", args[0])
	}
	printAssignment(a)
	if record, err := s.store.GetRecord(cmd.Context(), s.rc.TenantID, a.ClientID, a.YearMonth().Cycle()); err == nil && record.IsCompleted() {
		pterm.Printfln("Cycle %s completed at %s", due.Format(record.DueDate), record.CompletedAt.Format("2006-01-02 15:04"))
	}
	return nil
}
