package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cbill/internal/cli"
	"github.com/theirongolddev/cbill/internal/model"
	"github.com/theirongolddev/cbill/internal/pipeline"
)

var (
	flagCategory string
	flagSeverity string
	flagAll      bool
	flagExplain  string
)

var anomaliesCmd = &cobra.Command{
	Use:   "anomalies",
	Short: "Ranked list of flagged billing items",
	RunE:  runAnomalies,
}

func init() {
	anomaliesCmd.Flags().StringVar(&flagCategory, "category", "", "Filter to category label (substring match)")
	anomaliesCmd.Flags().StringVar(&flagSeverity, "severity", "", "Filter to severity tier (very severe, severe, caution, minor)")
	anomaliesCmd.Flags().BoolVar(&flagAll, "all", false, "Show every flagged item instead of the top N")
	anomaliesCmd.Flags().StringVar(&flagExplain, "explain", "", "Show why records matching an item id or name were or were not flagged")
	rootCmd.AddCommand(anomaliesCmd)
}

func runAnomalies(cmd *cobra.Command, _ []string) error {
	sev, err := parseSeverity(flagSeverity)
	if err != nil {
		return err
	}

	a, err := analyze(cmd.Context())
	if err != nil {
		return err
	}
	if noData(a) {
		return nil
	}

	rep := a.Report
	if flagExplain != "" {
		printHeader(fmt.Sprintf("DETECTION  %s", periodLabel(rep.Periods)), rep)
		verdicts := explainMatching(a.Load.Records, rep.Thresholds, flagExplain)
		fmt.Print(cli.RenderVerdicts(verdicts))
		return nil
	}

	items := pipeline.FilterByCategory(rep.Anomalies, flagCategory)
	items = pipeline.FilterBySeverity(items, sev)

	n := cfg.General.TopN
	if flagAll {
		n = len(items)
	}

	printHeader(fmt.Sprintf("ANOMALIES  %s", periodLabel(rep.Periods)), rep)
	if len(items) != len(rep.Anomalies) {
		fmt.Printf("  %s of %s flagged items match\n\n",
			cli.FormatNumber(int64(len(items))), cli.FormatNumber(int64(len(rep.Anomalies))))
	}
	fmt.Print(cli.RenderAnomalies(pipeline.TopN(items, n)))
	return nil
}

// explainMatching returns verdicts for records whose item id or name
// contains query, case-insensitively.
func explainMatching(records []model.BillingRecord, th model.Thresholds, query string) []pipeline.Verdict {
	q := strings.ToLower(strings.TrimSpace(query))
	var matched []model.BillingRecord
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.ItemID), q) || strings.Contains(strings.ToLower(r.ItemName), q) {
			matched = append(matched, r)
		}
	}
	return pipeline.Explain(matched, th)
}

// parseSeverity accepts a tier name case-insensitively. Empty matches all.
func parseSeverity(s string) (model.Severity, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	for _, sev := range model.Severities {
		if strings.EqualFold(s, string(sev)) {
			return sev, nil
		}
	}
	names := make([]string, len(model.Severities))
	for i, sev := range model.Severities {
		names[i] = string(sev)
	}
	return "", fmt.Errorf("unknown severity %q (want one of: %s)", s, strings.Join(names, ", "))
}
