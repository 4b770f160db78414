package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cbill/internal/cli"
	"github.com/theirongolddev/cbill/internal/model"
)

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Business days, top anomalies and summary statistics",
	RunE:  runSummary,
}

func init() {
	rootCmd.AddCommand(summaryCmd)
}

func runSummary(cmd *cobra.Command, _ []string) error {
	a, err := analyze(cmd.Context())
	if err != nil {
		return err
	}
	if noData(a) {
		return nil
	}

	rep := a.Report
	printHeader(fmt.Sprintf("BILLING ANOMALIES  %s", periodLabel(rep.Periods)), rep)

	fmt.Print(cli.RenderBusinessDays(rep.BusinessDays))
	fmt.Println()
	fmt.Print(cli.RenderAnomalies(rep.Top))
	fmt.Println()
	fmt.Print(cli.RenderSummary(rep.Summary))
	return nil
}

// periodLabel names the analysis window, e.g. "2025-04 → 2025-06".
func periodLabel(periods []model.Period) string {
	switch len(periods) {
	case 0:
		return ""
	case 1:
		return periods[0].String()
	}
	return periods[0].String() + " → " + periods[len(periods)-1].String()
}
