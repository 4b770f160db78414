package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cbill/internal/pipeline"
)

var flagServicesFlaggedOnly bool

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "Billing and flagged items per unit service",
	RunE:  runServices,
}

func init() {
	servicesCmd.Flags().BoolVar(&flagServicesFlaggedOnly, "flagged", false, "Only list services with flagged items")
	rootCmd.AddCommand(servicesCmd)
}

func runServices(cmd *cobra.Command, _ []string) error {
	a, err := analyze(cmd.Context())
	if err != nil {
		return err
	}
	if noData(a) {
		return nil
	}

	rep := a.Report
	services := pipeline.AggregateServices(a.Load.Records, rep.Anomalies)
	if flagServicesFlaggedOnly {
		kept := services[:0]
		for _, s := range services {
			if s.Flagged > 0 {
				kept = append(kept, s)
			}
		}
		services = kept
	}

	printHeader(fmt.Sprintf("UNIT SERVICES  %s", periodLabel(rep.Periods)), rep)
	if len(services) == 0 {
		fmt.Println("  No unit services with flagged items.")
		return nil
	}
	fmt.Print(renderGroups("By Unit Service", "Service", services))
	return nil
}
