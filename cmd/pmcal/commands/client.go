package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/pmcal/errors"
	"github.com/teranos/pmcal/sym"
)

// ClientCmd represents the client command
var ClientCmd = &cobra.Command{
	Use:   "client",
	Short: sym.Client + " Register clients and edit their maintenance months",
	Long: sym.Client + ` client: Schedule owners

A client's maintenance months decide when its cycles fall due: one cycle on
the 15th of each selected month.

Examples:
  pmcal client add "Acme Plant" --months Mar,Jun,Sep,Dec
  pmcal client schedule <id> --months 1,7
  pmcal client schedule <id> --inactive
  pmcal client list --all`,
}

var clientAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Register a client",
	Args:  cobra.ExactArgs(1),
	RunE:  runClientAdd,
}

var clientScheduleCmd = &cobra.Command{
	Use:   "schedule <client-id>",
	Short: "Replace a client's maintenance months and recompute its next due date",
	Args:  cobra.ExactArgs(1),
	RunE:  runClientSchedule,
}

var clientShowCmd = &cobra.Command{
	Use:   "show <client-id>",
	Short: "Show a client",
	Args:  cobra.ExactArgs(1),
	RunE:  runClientShow,
}

var clientListCmd = &cobra.Command{
	Use:   "list",
	Short: "List clients",
	RunE:  runClientList,
}

var (
	clientMonthsFlag   string
	clientInactiveFlag bool
	clientAllFlag      bool
)

func init() {
	for _, c := range []*cobra.Command{clientAddCmd, clientScheduleCmd} {
		c.Flags().StringVar(&clientMonthsFlag, "months", "", "Maintenance months, e.g. Mar,Jun,Sep,Dec or 3,6,9,12")
		c.Flags().BoolVar(&clientInactiveFlag, "inactive", false, "Suspend the client's schedule")
	}
	clientListCmd.Flags().BoolVar(&clientAllFlag, "all", false, "Include inactive clients")

	ClientCmd.AddCommand(clientAddCmd)
	ClientCmd.AddCommand(clientScheduleCmd)
	ClientCmd.AddCommand(clientShowCmd)
	ClientCmd.AddCommand(clientListCmd)
}

func runClientAdd(cmd *cobra.Command, args []string) error {
	months, err := parseMonths(clientMonthsFlag)
	if err != nil {
		return err
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	c, err := s.engine.CreateClient(cmd.Context(), s.rc, args[0], months, clientInactiveFlag)
	if err != nil {
		return err
	}
	pterm.Success.Printfln("Client %s created (%s), next due %s", c.ID, c.SelectedMonths, formatNextDue(c.NextDue))
	return nil
}

func runClientSchedule(cmd *cobra.Command, args []string) error {
	months, err := parseMonths(clientMonthsFlag)
	if err != nil {
		return err
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	c, err := s.engine.SetClientSchedule(cmd.Context(), s.rc, args[0], months, clientInactiveFlag)
	if err != nil {
		return err
	}
	pterm.Success.Printfln("Client %s now maintained in %s, next due %s", c.ID, c.SelectedMonths, formatNextDue(c.NextDue))
	return nil
}

func runClientShow(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	c, err := s.engine.GetClient(cmd.Context(), s.rc, args[0])
	if err != nil {
		return err
	}
	if c == nil {
		return errors.NewNotFoundError("client %s", args[0])
	}

	pterm.Printfln("ID:        %s", c.ID)
	pterm.Printfln("Name:      %s", c.Name)
	pterm.Printfln("Months:    %s", c.SelectedMonths)
	pterm.Printfln("Active:    %t", !c.Inactive)
	pterm.Printfln("Next due:  %s", formatNextDue(c.NextDue))
	return nil
}

func runClientList(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	clients, err := s.engine.ListClients(cmd.Context(), s.rc, !clientAllFlag)
	if err != nil {
		return err
	}
	if len(clients) == 0 {
		pterm.Info.Println("No clients")
		return nil
	}

	data := pterm.TableData{{"Name", "Months", "Next due", "Active", "ID"}}
	for _, c := range clients {
		data = append(data, []string{c.Name, c.SelectedMonths.String(), formatNextDue(c.NextDue), yesNo(!c.Inactive), c.ID})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
