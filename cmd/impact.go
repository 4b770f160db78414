package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cbill/internal/cli"
	"github.com/theirongolddev/cbill/internal/pipeline"
)

var impactCmd = &cobra.Command{
	Use:   "impact",
	Short: "Relate business-day changes to billing per month",
	RunE:  runImpact,
}

func init() {
	rootCmd.AddCommand(impactCmd)
}

func runImpact(cmd *cobra.Command, _ []string) error {
	a, err := analyze(cmd.Context())
	if err != nil {
		return err
	}
	if noData(a) {
		return nil
	}

	rep := a.Report
	months := pipeline.ImpactAnalysis(a.Load.Records, rep.Anomalies, rep.BusinessDays)

	printHeader(fmt.Sprintf("BUSINESS-DAY IMPACT  %s", periodLabel(rep.Periods)), rep)
	fmt.Print(cli.RenderImpact(months))

	for _, m := range months {
		if len(m.HolidayNames) == 0 {
			continue
		}
		fmt.Printf("  %s  %s\n", m.Period, cli.RenderMuted(strings.Join(m.HolidayNames, ", ")))
	}
	return nil
}
