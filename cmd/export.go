package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/cbill/internal/export"
	"github.com/theirongolddev/cbill/internal/model"
	"github.com/theirongolddev/cbill/internal/pipeline"
	"github.com/theirongolddev/cbill/internal/summarizer"
)

var (
	flagFormat string
	flagOutput string
	flagSubmit bool
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the report as JSON or an Excel workbook",
	Long: "Write the full report (business days, ranked anomalies, summary and\n" +
		"business-day impact). With --submit the report is also sent to the\n" +
		"configured summarizer and the returned prose is printed.",
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&flagFormat, "format", "", "Output format: json or xlsx (default from --output extension, else json)")
	exportCmd.Flags().StringVarP(&flagOutput, "output", "o", "", "Output file (default stdout; xlsx requires a file)")
	exportCmd.Flags().BoolVar(&flagSubmit, "submit", false, "Send the report to the summarizer endpoint")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	format, err := exportFormat(flagFormat, flagOutput)
	if err != nil {
		return err
	}

	var client *summarizer.Client
	if flagSubmit {
		client = summarizer.NewClient(cfg.Summarizer.Endpoint, cfg.Summarizer.APIKey, cfg.SummarizerTimeout())
		if client == nil {
			return errors.New("--submit needs summarizer.endpoint (or CBILL_SUMMARIZER_ENDPOINT)")
		}
	}

	a, err := analyze(cmd.Context())
	if err != nil {
		return err
	}
	rep := a.Report
	impact := pipeline.ImpactAnalysis(a.Load.Records, rep.Anomalies, rep.BusinessDays)

	if err := writeExport(format, flagOutput, rep, impact); err != nil {
		return err
	}
	if flagOutput != "" && !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Wrote %d anomalies to %s\n", len(rep.Anomalies), flagOutput)
	}

	if client != nil {
		return submit(cmd.Context(), client, rep)
	}
	return nil
}

// exportFormat resolves the output format from the flag or file extension.
func exportFormat(format, output string) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = "json"
		if strings.EqualFold(filepath.Ext(output), ".xlsx") {
			format = "xlsx"
		}
	}
	switch format {
	case "json":
		return format, nil
	case "xlsx":
		if output == "" {
			return "", errors.New("xlsx export needs --output")
		}
		return format, nil
	default:
		return "", fmt.Errorf("unknown format %q (want json or xlsx)", format)
	}
}

func writeExport(format, output string, rep model.Report, impact []model.MonthImpact) error {
	var w io.Writer = os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating %s: %w", output, err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	if format == "xlsx" {
		return export.WriteXLSX(w, rep, impact)
	}
	return export.WriteJSON(w, rep, impact)
}

func submit(ctx context.Context, c *summarizer.Client, rep model.Report) error {
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Submitting report %s to %s...\n", rep.RunID, c.Endpoint())
	}
	res, err := c.Summarize(ctx, summarizer.NewPayload(rep))
	if err != nil {
		return fmt.Errorf("summarizing report: %w", err)
	}
	out := os.Stdout
	if flagOutput == "" {
		out = os.Stderr
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, res.Text)
	return nil
}
