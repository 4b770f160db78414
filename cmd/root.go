// Package cmd implements the cbill CLI commands.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/cbill/internal/cli"
	"github.com/theirongolddev/cbill/internal/config"
	"github.com/theirongolddev/cbill/internal/model"
	"github.com/theirongolddev/cbill/internal/pipeline"
	"github.com/theirongolddev/cbill/internal/store"
)

var (
	flagDataDir      string
	flagMinAmount    float64
	flagMinLines     int64
	flagChangePct    float64
	flagJurisdiction string
	flagTop          int
	flagLOB          string
	flagNoCache      bool
	flagQuiet        bool
)

// skipValidation marks commands that must run even with a broken config.
const skipValidation = "skip-validation"

// cfg is the resolved configuration: file, then environment, then flags.
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:   "cbill",
	Short: "Telecom billing anomaly detection",
	Long: "Flag anomalous billing line items month over month, normalizing for\n" +
		"business days (weekends and public holidays).",
	RunE:              runSummary,
	PersistentPreRunE: resolveConfig,
	SilenceUsage:      true,
}

// Execute is the main entry point called from main.go.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	defaults := config.DefaultConfig()

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&flagDataDir, "data-dir", "d", defaults.General.DataDir, "Billing export directory (.csv, .xlsx)")
	pf.Float64Var(&flagMinAmount, "min-amount", defaults.Thresholds.MinAmount, "Requested amount (current or prior) a record must reach")
	pf.Int64Var(&flagMinLines, "min-lines", defaults.Thresholds.MinLines, "Current line count a record must exceed")
	pf.Float64Var(&flagChangePct, "change-pct", defaults.Thresholds.ChangePct, "Billed and line change, in percent either way, a record must reach")
	pf.StringVar(&flagJurisdiction, "jurisdiction", defaults.Calendar.Jurisdiction, "Holiday calendar (KR, NONE)")
	pf.IntVarP(&flagTop, "top", "t", defaults.General.TopN, "Number of ranked anomalies to show")
	pf.StringVarP(&flagLOB, "lob", "l", "", "Filter to line of business (substring match)")
	pf.BoolVar(&flagNoCache, "no-cache", false, "Skip SQLite cache, reparse everything")
	pf.BoolVarP(&flagQuiet, "quiet", "q", false, "Suppress progress output")
}

// resolveConfig loads .env, the config file and CBILL_* variables, then
// applies any flag the user set explicitly.
func resolveConfig(cmd *cobra.Command, _ []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	loaded, err := config.Load()
	if err != nil {
		if cmd.Annotations[skipValidation] == "" {
			return err
		}
		loaded = config.DefaultConfig()
	}
	cfg = loaded

	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		cfg.General.DataDir = flagDataDir
	}
	if flags.Changed("min-amount") {
		cfg.Thresholds.MinAmount = flagMinAmount
	}
	if flags.Changed("min-lines") {
		cfg.Thresholds.MinLines = flagMinLines
	}
	if flags.Changed("change-pct") {
		cfg.Thresholds.ChangePct = flagChangePct
	}
	if flags.Changed("jurisdiction") {
		cfg.Calendar.Jurisdiction = flagJurisdiction
	}
	if flags.Changed("top") {
		cfg.General.TopN = flagTop
	}

	if cmd.Annotations[skipValidation] != "" {
		return nil
	}
	return config.Validate(cfg)
}

// reportOptions builds pipeline options from the resolved config.
func reportOptions(c config.Config) (pipeline.Options, error) {
	p, key, err := c.Provider()
	if err != nil {
		return pipeline.Options{}, err
	}
	return pipeline.Options{
		Thresholds:   c.ModelThresholds(),
		Jurisdiction: c.Calendar.Jurisdiction,
		Calendar:     p,
		CalendarKey:  key,
		TopN:         c.General.TopN,
	}, nil
}

// analysis is the shared result of loading and detecting.
type analysis struct {
	Load   *pipeline.LoadResult
	Report model.Report
}

// analyze is the shared data path used by all report commands. It uses the
// SQLite cache for parsed files and business days when available.
func analyze(ctx context.Context) (*analysis, error) {
	opts, err := reportOptions(cfg)
	if err != nil {
		return nil, err
	}
	dir := cfg.General.DataDir

	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Scanning %s...\n", dir)
	}
	progressFn := func(current, total int) {
		if flagQuiet {
			return
		}
		if current%10 == 0 || current == total {
			fmt.Fprintf(os.Stderr, "\r  Parsing [%d/%d]", current, total)
		}
	}

	lr, cache := loadCached(ctx, dir, progressFn)
	if cache != nil {
		defer func() { _ = cache.Close() }()
		opts.Cache = cache
	}
	if lr == nil {
		lr, err = pipeline.Load(ctx, dir, progressFn)
		if err != nil {
			return nil, err
		}
		if !flagQuiet && lr.TotalFiles > 0 {
			fmt.Fprintf(os.Stderr, "\r  Parsed %s records from %d files    \n",
				cli.FormatNumber(int64(len(lr.Records))), lr.ParsedFiles)
		}
	}

	warnLoad(lr)

	lr.Records = pipeline.FilterRecordsByLOB(lr.Records, flagLOB)
	rep, err := pipeline.BuildReport(ctx, lr.Records, opts)
	if err != nil {
		return nil, fmt.Errorf("building report: %w", err)
	}
	return &analysis{Load: lr, Report: rep}, nil
}

// loadCached tries the cache-assisted load. On success the open cache is
// returned so it can also serve business days; the caller closes it. Any
// failure returns (nil, nil) and the caller does a full parse.
func loadCached(ctx context.Context, dir string, progressFn pipeline.ProgressFunc) (*pipeline.LoadResult, *store.Cache) {
	if flagNoCache {
		return nil, nil
	}
	cache, err := store.Open(pipeline.CachePath())
	if err != nil {
		if !flagQuiet {
			fmt.Fprintf(os.Stderr, "  Cache unavailable, doing full parse\n")
		}
		return nil, nil
	}

	cr, err := pipeline.LoadWithCache(ctx, dir, cache, progressFn)
	if err != nil {
		_ = cache.Close()
		if !flagQuiet {
			fmt.Fprintf(os.Stderr, "\n  Cache error, falling back to full parse\n")
		}
		return nil, nil
	}

	if !flagQuiet && cr.TotalFiles > 0 {
		if cr.Reparsed == 0 {
			fmt.Fprintf(os.Stderr, "\r  Loaded %s records from cache    \n",
				cli.FormatNumber(int64(len(cr.Records))))
		} else {
			fmt.Fprintf(os.Stderr, "\r  %d cached + %d reparsed files (%s records)    \n",
				cr.CacheHits, cr.Reparsed, cli.FormatNumber(int64(len(cr.Records))))
		}
	}
	return &cr.LoadResult, cache
}

func warnLoad(lr *pipeline.LoadResult) {
	if flagQuiet {
		return
	}
	for _, fe := range lr.FileErrors {
		fmt.Fprintf(os.Stderr, "  warning: skipped %s: %v\n", fe.Path, fe.Err)
	}
	if lr.CoercedCells > 0 {
		fmt.Fprintf(os.Stderr, "  warning: %s unparseable numeric cells read as 0\n",
			cli.FormatNumber(int64(lr.CoercedCells)))
	}
}

// printHeader prints the report title and the thresholds in effect.
func printHeader(title string, rep model.Report) {
	fmt.Println()
	fmt.Println(cli.RenderTitle(title))
	fmt.Printf("  %s records  ·  calendar %s  ·  %s\n",
		cli.FormatNumber(int64(rep.RecordCount)),
		rep.Jurisdiction,
		thresholdSummary(rep.Thresholds),
	)
	if flagLOB != "" {
		fmt.Printf("  LOB filter: %s\n", flagLOB)
	}
	fmt.Println()
}

// thresholdSummary states the detection bounds the way the predicates
// apply them.
func thresholdSummary(th model.Thresholds) string {
	return fmt.Sprintf("requested ≥ %s, lines > %s, |change| ≥ %.1f%%",
		cli.FormatAmount(th.MinAmount),
		cli.FormatNumber(th.MinLines),
		th.ChangeThresholdPct,
	)
}

// noData reports the empty state and returns true when there is nothing to
// show.
func noData(a *analysis) bool {
	if a.Load.TotalFiles == 0 {
		fmt.Printf("\n  No billing exports found in %s.\n", cfg.General.DataDir)
		fmt.Println("  Drop .csv or .xlsx files there, or pass --data-dir.")
		return true
	}
	if a.Report.RecordCount == 0 {
		fmt.Println("\n  No billing records matched.")
		return true
	}
	return false
}
