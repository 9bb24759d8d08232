package commands

import (
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/pmcal/maint"
	"github.com/teranos/pmcal/maint/due"
	"github.com/teranos/pmcal/sym"
)

// SeriesCmd represents the series command
var SeriesCmd = &cobra.Command{
	Use:   "series",
	Short: sym.Series + " Define recurring job series and materialize visits",
	Long: sym.Series + ` series: Recurring job series

A series runs through its phases in order. Each phase is written as
frequency[:interval[:occurrences[:end-date]]], where frequency is daily,
weekly, monthly, quarterly or yearly.

Examples:
  pmcal series create <client-id> --start 2025-08-01 --summary "Chiller PM" \
      --phase weekly:1:4 --phase monthly:1:12
  pmcal series generate <series-id> --count 6`,
}

var seriesCreateCmd = &cobra.Command{
	Use:   "create <client-id>",
	Short: "Create a recurring series",
	Args:  cobra.ExactArgs(1),
	RunE:  runSeriesCreate,
}

var seriesGenerateCmd = &cobra.Command{
	Use:   "generate <series-id>",
	Short: "Materialize the next visits of a series as work orders",
	Args:  cobra.ExactArgs(1),
	RunE:  runSeriesGenerate,
}

var (
	seriesStartFlag       string
	seriesSummaryFlag     string
	seriesDescriptionFlag string
	seriesJobTypeFlag     string
	seriesPriorityFlag    string
	seriesTechFlag        string
	seriesPhaseFlags      []string
	seriesCountFlag       int
)

func init() {
	f := seriesCreateCmd.Flags()
	f.StringVar(&seriesStartFlag, "start", "", "First visit date (YYYY-MM-DD)")
	f.StringVar(&seriesSummaryFlag, "summary", "", "Work order summary")
	f.StringVar(&seriesDescriptionFlag, "description", "", "Work order description")
	f.StringVar(&seriesJobTypeFlag, "job-type", "", "Work order job type")
	f.StringVar(&seriesPriorityFlag, "priority", "", "Work order priority")
	f.StringVar(&seriesTechFlag, "tech", "", "Default technician id")
	f.StringArrayVar(&seriesPhaseFlags, "phase", nil, "Phase definition, repeatable")
	_ = seriesCreateCmd.MarkFlagRequired("start")
	_ = seriesCreateCmd.MarkFlagRequired("summary")

	seriesGenerateCmd.Flags().IntVar(&seriesCountFlag, "count", 0, "Visits to materialize (default: engine.series_generate_count)")

	SeriesCmd.AddCommand(seriesCreateCmd)
	SeriesCmd.AddCommand(seriesGenerateCmd)
}

func runSeriesCreate(cmd *cobra.Command, args []string) error {
	start, err := parseDate(seriesStartFlag)
	if err != nil {
		return err
	}
	phases := make([]*maint.Phase, 0, len(seriesPhaseFlags))
	for i, raw := range seriesPhaseFlags {
		p, err := parsePhase(i, raw)
		if err != nil {
			return err
		}
		phases = append(phases, p)
	}

	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	series := &maint.Series{
		ClientID:            args[0],
		StartDate:           start,
		Summary:             seriesSummaryFlag,
		Description:         seriesDescriptionFlag,
		JobType:             seriesJobTypeFlag,
		Priority:            seriesPriorityFlag,
		DefaultTechnicianID: seriesTechFlag,
	}
	if err := s.engine.CreateSeries(cmd.Context(), s.rc, series, phases); err != nil {
		return err
	}
	pterm.Success.Printfln("Series %s created with %d phases", series.ID, len(phases))
	return nil
}

func runSeriesGenerate(cmd *cobra.Command, args []string) error {
	s, err := openSession()
	if err != nil {
		return err
	}
	defer s.Close()

	count := seriesCountFlag
	if count == 0 {
		count = s.cfg.GetSeriesGenerateCount()
	}

	visits, err := s.engine.GenerateFromSeries(cmd.Context(), s.rc, args[0], count)
	if err != nil {
		return err
	}
	if len(visits) == 0 {
		pterm.Info.Println("Series has no visits left")
		return nil
	}

	data := pterm.TableData{{"Job", "Date", "Phase", "Summary", "Work order"}}
	for _, v := range visits {
		data = append(data, []string{
			strconv.FormatInt(v.JobNumber, 10),
			due.Format(v.Date),
			strconv.Itoa(v.PhaseIndex),
			v.Summary,
			v.WorkOrderID,
		})
	}
	return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
}
