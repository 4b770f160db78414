package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cbill/internal/cli"
	"github.com/theirongolddev/cbill/internal/model"
	"github.com/theirongolddev/cbill/internal/pipeline"
)

var lobsCmd = &cobra.Command{
	Use:   "lobs",
	Short: "Billing and flagged items per line of business",
	RunE:  runLOBs,
}

func init() {
	rootCmd.AddCommand(lobsCmd)
}

func runLOBs(cmd *cobra.Command, _ []string) error {
	a, err := analyze(cmd.Context())
	if err != nil {
		return err
	}
	if noData(a) {
		return nil
	}

	rep := a.Report
	lobs := pipeline.AggregateLOBs(a.Load.Records, rep.Anomalies)

	printHeader(fmt.Sprintf("LINES OF BUSINESS  %s", periodLabel(rep.Periods)), rep)

	fmt.Print(renderGroups("By LOB", "LOB", lobs))
	return nil
}

// renderGroups renders per-group billing totals as a table.
func renderGroups(title, keyHeader string, groups []model.GroupStats) string {
	rows := make([][]string, 0, len(groups))
	for _, gs := range groups {
		rows = append(rows, []string{
			cli.Truncate(gs.Key, 24),
			cli.FormatNumber(int64(gs.Records)),
			cli.FormatNumber(int64(gs.Flagged)),
			fmt.Sprintf("%.1f%%", gs.FlaggedShare()*100),
			cli.FormatAmount(gs.Billed),
			cli.FormatSignedPercent(gs.BilledChangePct),
			cli.FormatNumber(gs.Lines),
			cli.FormatSignedPercent(gs.LineChangePct),
		})
	}

	return cli.RenderTable(cli.Table{
		Title:   title,
		Headers: []string{keyHeader, "Records", "Flagged", "Share", "Billed", "Δ Billed", "Lines", "Δ Lines"},
		Rows:    rows,
	})
}
