package cli

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/theirongolddev/cbill/internal/model"
	"github.com/theirongolddev/cbill/internal/pipeline"
)

// RenderBusinessDays renders the month-by-month business-day table.
func RenderBusinessDays(trend []model.BusinessDayTrend) string {
	rows := make([][]string, 0, len(trend))
	for _, t := range trend {
		r := t.Report
		delta, deltaPct := "-", "-"
		if t.HasPrevious {
			delta = FormatDays(t.DeltaDays)
			deltaPct = FormatSignedPercent(t.DeltaPct)
		}
		rows = append(rows, []string{
			r.Period().String(),
			strconv.Itoa(r.TotalDays),
			strconv.Itoa(r.WeekendDays),
			strconv.Itoa(r.HolidayDays),
			strconv.Itoa(r.BusinessDays),
			delta,
			deltaPct,
		})
	}

	var b strings.Builder
	b.WriteString(RenderTable(Table{
		Title:   "Business Days",
		Headers: []string{"Month", "Days", "Weekend", "Holidays", "Business", "Δ Days", "Δ %"},
		Rows:    rows,
	}))

	for _, t := range trend {
		names := t.Report.HolidayNames()
		if len(names) == 0 {
			continue
		}
		fmt.Fprintf(&b, "  %s  %s\n", t.Report.Period(), RenderMuted(strings.Join(names, ", ")))
	}
	return b.String()
}

// RenderAnomalies renders the top-N flagged records followed by a
// "... and N more" footer when the list was truncated.
func RenderAnomalies(top model.TopList) string {
	if len(top.Items) == 0 {
		return "  No anomalies detected.\n"
	}

	rows := make([][]string, 0, len(top.Items))
	for i, a := range top.Items {
		var billed []float64
		for _, p := range pipeline.TrendSeries(a.BillingRecord) {
			billed = append(billed, p.Billed)
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			Truncate(a.ItemName, 24),
			Truncate(a.LOB, 12),
			FormatAmount(a.BilledAmount),
			FormatSignedPercent(a.BilledChangePct),
			FormatNumber(a.Lines),
			FormatSignedPercent(a.LineChangePct),
			FormatARPU(a.ARPU),
			string(a.Severity),
			RenderSparkline(billed),
		})
	}

	var b strings.Builder
	b.WriteString(RenderTable(Table{
		Title:    "Top Anomalies",
		Headers:  []string{"#", "Item", "LOB", "Billed", "Δ Billed", "Lines", "Δ Lines", "ARPU", "Severity", "Trend"},
		Rows:     rows,
		LeftCols: 3,
	}))
	for i, a := range top.Items {
		fmt.Fprintf(&b, "  %2d. %s\n", i+1, RenderMuted(model.JoinCategories(a.Categories)))
	}
	if top.Remaining > 0 {
		fmt.Fprintf(&b, "  ... and %s more\n", FormatNumber(int64(top.Remaining)))
	}
	return b.String()
}

// RenderVerdicts renders each record with the detection rule that stopped
// it, or its severity when it was flagged.
func RenderVerdicts(verdicts []pipeline.Verdict) string {
	if len(verdicts) == 0 {
		return "  No matching records.\n"
	}

	rows := make([][]string, 0, len(verdicts))
	for _, v := range verdicts {
		result := "flagged: " + string(v.Severity)
		if v.Failed != "" {
			result = "not flagged: " + v.Failed
		}
		rows = append(rows, []string{
			Truncate(v.ItemID, 12),
			Truncate(v.ItemName, 24),
			FormatAmount(math.Max(v.RequestedAmount, v.PriorRequested)),
			FormatNumber(v.Lines),
			FormatARPU(v.ARPU),
			FormatSignedPercent(v.BilledChangePct),
			FormatSignedPercent(v.LineChangePct),
			result,
		})
	}
	return RenderTable(Table{
		Title:    "Detection Verdicts",
		Headers:  []string{"ID", "Item", "Requested", "Lines", "ARPU", "Δ Billed", "Δ Lines", "Result"},
		Rows:     rows,
		LeftCols: 2,
	})
}

// RenderSummary renders the distribution and change statistics of the
// flagged set.
func RenderSummary(s model.SummaryReport) string {
	if s.NoAnomalies {
		return "  No anomalies detected.\n"
	}

	var b strings.Builder
	b.WriteString(RenderTable(Table{
		Title:   "Summary",
		Headers: []string{"Metric", "Mean", "Min", "Max"},
		Rows: [][]string{
			{"Billed change", FormatSignedPercent(s.BilledChange.Mean), FormatSignedPercent(s.BilledChange.Min), FormatSignedPercent(s.BilledChange.Max)},
			{"Line change", FormatSignedPercent(s.LineChange.Mean), FormatSignedPercent(s.LineChange.Min), FormatSignedPercent(s.LineChange.Max)},
			{"---"},
			{"Flagged items", "", "", FormatNumber(int64(s.TotalFlagged))},
			{"Largest billed", "", "", FormatAmount(s.MaxBilledAmount)},
			{"Most lines", "", "", FormatNumber(s.MaxLines)},
		},
	}))

	b.WriteString("\n")
	b.WriteString(headerStyle.Render("  Severity"))
	b.WriteString("\n")
	for _, sc := range s.SeverityCounts {
		fmt.Fprintf(&b, "  %s %s\n", pad(RenderSeverity(sc.Severity), 12, true), FormatNumber(int64(sc.Count)))
	}

	b.WriteString("\n")
	b.WriteString(headerStyle.Render("  Categories"))
	b.WriteString("\n")
	labelWidth, peak := 0, 0
	for _, cc := range s.CategoryCounts {
		labelWidth = max(labelWidth, len(cc.Category))
		peak = max(peak, cc.Count)
	}
	for _, cc := range s.CategoryCounts {
		b.WriteString(RenderHorizontalBar(string(cc.Category), labelWidth, float64(cc.Count), float64(peak), 24))
		fmt.Fprintf(&b, " %d\n", cc.Count)
	}
	return b.String()
}

// RenderImpact renders the business-day impact table.
func RenderImpact(months []model.MonthImpact) string {
	rows := make([][]string, 0, len(months))
	for _, m := range months {
		rows = append(rows, []string{
			m.Period.String(),
			strconv.Itoa(m.BusinessDays),
			FormatDays(m.BusinessDayDelta),
			FormatSignedPercent(m.BusinessDayDeltaPct),
			strconv.Itoa(m.HolidayDays),
			FormatNumber(int64(m.Records)),
			FormatAmount(m.AvgBilledAmount),
			FormatAmount(m.BilledPerBusinessDay),
			FormatNumber(int64(m.FlaggedCount)),
		})
	}
	return RenderTable(Table{
		Title:   "Business-Day Impact",
		Headers: []string{"Month", "Business", "Δ Days", "Δ %", "Holidays", "Records", "Avg Billed", "Billed/Day", "Flagged"},
		Rows:    rows,
	})
}
