package pipeline

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/theirongolddev/cbill/internal/calendar"
	"github.com/theirongolddev/cbill/internal/model"
)

// BusinessDayCache stores computed business-day reports under a calendar key.
// Implementations must treat reports as immutable values.
type BusinessDayCache interface {
	GetBusinessDays(calendarKey string, p model.Period) (model.BusinessDayReport, bool, error)
	PutBusinessDays(calendarKey string, r model.BusinessDayReport) error
}

// Options configures BuildReport.
type Options struct {
	Thresholds   model.Thresholds
	Jurisdiction string
	Calendar     calendar.Provider // nil means the built-in provider for Jurisdiction
	// CalendarKey prefixes cache keys. Defaults to Jurisdiction. The
	// fingerprint of the resolved holidays is always appended.
	CalendarKey string
	Cache       BusinessDayCache // optional
	TopN        int
	Now         func() time.Time
}

// BuildReport runs the full analysis over records. Business days and
// detection run concurrently. An empty record set yields an empty report
// with NoAnomalies set; records without any parseable report date fail
// with ErrNoValidPeriod.
func BuildReport(ctx context.Context, records []model.BillingRecord, opts Options) (model.Report, error) {
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}

	rep := model.Report{
		RunID:        uuid.NewString(),
		GeneratedAt:  now().UTC(),
		Thresholds:   opts.Thresholds,
		Jurisdiction: opts.Jurisdiction,
		RecordCount:  len(records),
		Summary:      model.SummaryReport{NoAnomalies: true},
	}
	if len(records) == 0 {
		return rep, nil
	}

	periods, err := SelectPeriods(ReportDates(records))
	if err != nil {
		return model.Report{}, err
	}
	rep.Periods = periods

	provider := opts.Calendar
	if provider == nil {
		provider, err = calendar.ForJurisdiction(opts.Jurisdiction, nil)
		if err != nil {
			return model.Report{}, err
		}
	}

	var (
		reports   []model.BusinessDayReport
		anomalies []model.AnomalyRecord
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		reports, err = businessDaysFor(gctx, provider, opts, periods)
		return err
	})
	g.Go(func() error {
		anomalies = Detect(records, opts.Thresholds)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return model.Report{}, err
	}
	if err := ctx.Err(); err != nil {
		return model.Report{}, err
	}

	rep.BusinessDays = calendar.Trend(reports)
	rep.Anomalies = Rank(anomalies)
	rep.Top = TopN(rep.Anomalies, opts.TopN)
	rep.Summary = Summarize(rep.Anomalies)
	return rep, nil
}

func businessDaysFor(ctx context.Context, p calendar.Provider, opts Options, periods []model.Period) ([]model.BusinessDayReport, error) {
	key, err := cacheKey(p, opts, periods)
	if err != nil {
		return nil, err
	}

	out := make([]model.BusinessDayReport, 0, len(periods))
	for _, per := range periods {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if opts.Cache != nil {
			if r, ok, err := opts.Cache.GetBusinessDays(key, per); err == nil && ok {
				out = append(out, r)
				continue
			}
		}
		r, err := calendar.BusinessDays(p, opts.Jurisdiction, per.Year, per.Month)
		if err != nil {
			return nil, fmt.Errorf("business days for %s: %w", per, err)
		}
		if opts.Cache != nil {
			_ = opts.Cache.PutBusinessDays(key, r)
		}
		out = append(out, r)
	}
	return out, nil
}

// cacheKey appends the fingerprint of the holidays covering periods, so a
// cached report is only reused for identical holiday data.
func cacheKey(p calendar.Provider, opts Options, periods []model.Period) (string, error) {
	key := opts.CalendarKey
	if key == "" {
		key = opts.Jurisdiction
	}
	if opts.Cache == nil {
		return key, nil
	}
	years := make([]int, 0, len(periods))
	for _, per := range periods {
		if !slices.Contains(years, per.Year) {
			years = append(years, per.Year)
		}
	}
	set, err := p.HolidaysFor(opts.Jurisdiction, years)
	if err != nil {
		return "", fmt.Errorf("holidays for %v: %w", years, err)
	}
	return key + "@" + set.Fingerprint(), nil
}
