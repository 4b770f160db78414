package cmd

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cbill/internal/calendar"
	"github.com/theirongolddev/cbill/internal/cli"
	"github.com/theirongolddev/cbill/internal/model"
)

var bizdaysCmd = &cobra.Command{
	Use:   "bizdays [YEAR [MONTH]]",
	Short: "Business days per month",
	Long: "Count weekend, holiday and business days per month.\n\n" +
		"With no arguments the months of the current billing report are shown.\n" +
		"YEAR shows all twelve months; YEAR MONTH shows one month.",
	Args: cobra.MaximumNArgs(2),
	RunE: runBizdays,
}

func init() {
	rootCmd.AddCommand(bizdaysCmd)
}

func runBizdays(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		a, err := analyze(cmd.Context())
		if err != nil {
			return err
		}
		if noData(a) {
			return nil
		}
		printHeader(fmt.Sprintf("BUSINESS DAYS  %s", periodLabel(a.Report.Periods)), a.Report)
		fmt.Print(cli.RenderBusinessDays(a.Report.BusinessDays))
		return nil
	}

	periods, err := periodsFromArgs(args)
	if err != nil {
		return err
	}
	p, _, err := cfg.Provider()
	if err != nil {
		return err
	}
	reports, err := calendar.MonthRange(p, cfg.Calendar.Jurisdiction, periods)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println(cli.RenderTitle(fmt.Sprintf("BUSINESS DAYS  %s  %s", periodLabel(periods), cfg.Calendar.Jurisdiction)))
	fmt.Println()
	fmt.Print(cli.RenderBusinessDays(calendar.Trend(reports)))
	return nil
}

// periodsFromArgs turns [YEAR [MONTH]] into the months to report.
func periodsFromArgs(args []string) ([]model.Period, error) {
	year, err := strconv.Atoi(args[0])
	if err != nil || year < 1 {
		return nil, fmt.Errorf("invalid year %q", args[0])
	}
	if len(args) == 1 {
		out := make([]model.Period, 12)
		for i := range out {
			out[i] = model.Period{Year: year, Month: time.Month(i + 1)}
		}
		return out, nil
	}

	month, err := strconv.Atoi(args[1])
	if err != nil || month < 1 || month > 12 {
		return nil, fmt.Errorf("invalid month %q", args[1])
	}
	return []model.Period{{Year: year, Month: time.Month(month)}}, nil
}
