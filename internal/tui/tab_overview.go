package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/cbill/internal/cli"
	"github.com/theirongolddev/cbill/internal/model"
	"github.com/theirongolddev/cbill/internal/tui/components"
	"github.com/theirongolddev/cbill/internal/tui/theme"
)

func (a App) renderOverviewTab(cw int) string {
	t := theme.Active
	rep := a.report
	sum := rep.Summary
	var b strings.Builder

	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	// Row 1: Metric cards
	share := ""
	if rep.RecordCount > 0 {
		share = fmt.Sprintf("%.1f%% of records", float64(sum.TotalFlagged)/float64(rep.RecordCount)*100)
	}
	bdValue, bdDelta := "-", ""
	if n := len(rep.BusinessDays); n > 0 {
		last := rep.BusinessDays[n-1]
		bdValue = fmt.Sprintf("%d", last.Report.BusinessDays)
		bdDelta = last.Report.Period().String()
		if last.HasPrevious {
			bdDelta += fmt.Sprintf(" (%s)", cli.FormatDays(last.DeltaDays))
		}
	}
	billedDelta := ""
	if !sum.NoAnomalies {
		billedDelta = fmt.Sprintf("range %s … %s",
			cli.FormatSignedPercent(sum.BilledChange.Min), cli.FormatSignedPercent(sum.BilledChange.Max))
	}
	sevColor := t.Green
	if len(sum.SeverityCounts) > 0 {
		sevColor = t.SeverityColor(sum.SeverityCounts[0].Severity)
	}

	sourceDelta := ""
	if a.load != nil {
		sourceDelta = fmt.Sprintf("%d files", a.load.ParsedFiles)
		if n := len(a.load.FileErrors); n > 0 {
			sourceDelta += fmt.Sprintf(", %d skipped", n)
		}
	}

	b.WriteString(components.MetricCardRow([]components.Metric{
		{Label: "Records", Value: cli.FormatNumber(int64(rep.RecordCount)), Delta: sourceDelta},
		{Label: "Flagged", Value: cli.FormatNumber(int64(sum.TotalFlagged)), Delta: share, Color: sevColor},
		{Label: "Mean billed Δ", Value: cli.FormatSignedPercent(sum.BilledChange.Mean), Delta: billedDelta, Color: t.ChangeColor(sum.BilledChange.Mean)},
		{Label: "Business days", Value: bdValue, Delta: bdDelta},
	}, cw))
	b.WriteString("\n")

	halves := components.LayoutRow(cw, 2)

	// Row 2: Business days | Severity
	b.WriteString(components.CardRow([]string{
		components.ContentCard("Business Days", a.renderBusinessDayBars(components.CardInnerWidth(halves[0])), halves[0]),
		components.ContentCard("Severity", a.renderSeverityBars(components.CardInnerWidth(halves[1])), halves[1]),
	}))
	b.WriteString("\n")

	// Row 3: Categories | Change stats
	var stats strings.Builder
	if sum.NoAnomalies {
		stats.WriteString(mutedStyle.Render("No anomalies detected."))
	} else {
		row := func(label string, cs model.ChangeStats) string {
			return mutedStyle.Render(fmt.Sprintf("%-14s", label)) +
				lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface).Render(fmt.Sprintf("mean %s  min %s  max %s",
					cli.FormatSignedPercent(cs.Mean), cli.FormatSignedPercent(cs.Min), cli.FormatSignedPercent(cs.Max)))
		}
		stats.WriteString(row("Billed change", sum.BilledChange))
		stats.WriteString("\n")
		stats.WriteString(row("Line change", sum.LineChange))
		stats.WriteString("\n\n")
		stats.WriteString(mutedStyle.Render(fmt.Sprintf("%-14s", "Max billed")) +
			lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface).Render(cli.FormatAmount(sum.MaxBilledAmount)))
		stats.WriteString("\n")
		stats.WriteString(mutedStyle.Render(fmt.Sprintf("%-14s", "Max lines")) +
			lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface).Render(cli.FormatNumber(sum.MaxLines)))
		if a.load != nil && a.load.CoercedCells > 0 {
			stats.WriteString("\n\n")
			stats.WriteString(mutedStyle.Render(fmt.Sprintf("%d blank numeric cells read as 0", a.load.CoercedCells)))
		}
	}
	b.WriteString(components.CardRow([]string{
		components.ContentCard("Categories", a.renderCategoryBars(components.CardInnerWidth(halves[0])), halves[0]),
		components.ContentCard("Change", stats.String(), halves[1]),
	}))
	b.WriteString("\n")

	// Row 4: Summary
	b.WriteString(components.ContentCard("Summary", a.renderSummaryBody(components.CardInnerWidth(cw)), cw))

	return b.String()
}

func (a App) renderBusinessDayBars(w int) string {
	t := theme.Active
	if len(a.report.BusinessDays) == 0 {
		return lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Render("No report months.")
	}
	bars := make([]components.Bar, len(a.report.BusinessDays))
	for i, tr := range a.report.BusinessDays {
		text := fmt.Sprintf("%2d", tr.Report.BusinessDays)
		color := t.Accent
		if tr.HasPrevious {
			text += fmt.Sprintf(" %4s", cli.FormatDays(tr.DeltaDays))
			switch {
			case tr.DeltaDays < 0:
				color = t.Orange
			case tr.DeltaDays > 0:
				color = t.Green
			}
		} else {
			text += "     "
		}
		if tr.Report.HolidayDays > 0 {
			text += fmt.Sprintf("  %dh", tr.Report.HolidayDays)
		}
		bars[i] = components.Bar{
			Label: tr.Report.Period().String(),
			Value: float64(tr.Report.BusinessDays),
			Text:  text,
			Color: color,
		}
	}
	return components.HBarChart(bars, w)
}

func (a App) renderSeverityBars(w int) string {
	t := theme.Active
	counts := make(map[model.Severity]int, len(a.report.Summary.SeverityCounts))
	for _, sc := range a.report.Summary.SeverityCounts {
		counts[sc.Severity] = sc.Count
	}
	bars := make([]components.Bar, len(model.Severities))
	for i, sev := range model.Severities {
		bars[i] = components.Bar{
			Label: string(sev),
			Value: float64(counts[sev]),
			Text:  cli.FormatNumber(int64(counts[sev])),
			Color: t.SeverityColor(sev),
		}
	}
	body := components.HBarChart(bars, w)
	if a.report.RecordCount > 0 {
		body += "\n\n" + components.ShareBar("flagged", a.report.Summary.TotalFlagged, a.report.RecordCount, 12, max(w-20, 4))
	}
	return body
}

func (a App) renderCategoryBars(w int) string {
	t := theme.Active
	cats := a.report.Summary.CategoryCounts
	if len(cats) == 0 {
		return lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface).Render("No categories.")
	}
	bars := make([]components.Bar, len(cats))
	for i, cc := range cats {
		bars[i] = components.Bar{
			Label: string(cc.Category),
			Value: float64(cc.Count),
			Text:  cli.FormatNumber(int64(cc.Count)),
			Color: t.Magenta,
		}
	}
	return components.HBarChart(bars, w)
}

func (a App) renderSummaryBody(w int) string {
	t := theme.Active
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	textStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface).Width(w)

	switch {
	case a.summarizing:
		return mutedStyle.Render(a.spinner.View() + " Requesting summary...")
	case a.summaryErr != nil:
		return lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface).Width(w).Render(a.summaryErr.Error())
	case a.summary != nil:
		return textStyle.Render(a.summary.Text) + "\n" +
			mutedStyle.Render("received "+a.summary.ReceivedAt.Local().Format("15:04:05"))
	case a.opts.Summarizer == nil:
		return mutedStyle.Render("Set summarizer.endpoint to enable report summaries.")
	default:
		return mutedStyle.Render("[S] summarize this report")
	}
}
