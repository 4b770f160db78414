package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/cbill/internal/cli"
	"github.com/theirongolddev/cbill/internal/tui/components"
	"github.com/theirongolddev/cbill/internal/tui/theme"
)

func (a App) renderImpactTab(cw int) string {
	t := theme.Active
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)

	if len(a.impact) == 0 {
		return components.ContentCard("Business-Day Impact", mutedStyle.Render("No report months."), cw)
	}

	inner := components.CardInnerWidth(cw)
	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)

	cols := []struct {
		name  string
		width int
	}{
		{"Month", 8}, {"BizDays", 7}, {"Δ", 5}, {"Δ%", 7}, {"Hol", 4},
		{"Records", 8}, {"Avg billed", 14}, {"Billed/BD", 14}, {"Flagged", 8},
	}
	fixed := 0
	for _, c := range cols {
		fixed += c.width + 1
	}
	holW := inner - fixed
	if holW < 10 {
		holW = 10
	}

	var b strings.Builder
	var head strings.Builder
	for i, c := range cols {
		if i == 0 {
			fmt.Fprintf(&head, "%-*s ", c.width, c.name)
		} else {
			fmt.Fprintf(&head, "%*s ", c.width, c.name)
		}
	}
	head.WriteString(cli.Fit("Holidays", holW))
	b.WriteString(headerStyle.Render(head.String()))

	perBD := make([]components.Bar, len(a.impact))
	for i, m := range a.impact {
		delta, deltaPct := "", ""
		if i > 0 {
			delta = cli.FormatDays(m.BusinessDayDelta)
			deltaPct = cli.FormatSignedPercent(m.BusinessDayDeltaPct)
		}
		line := fmt.Sprintf("%-8s %7d %5s %7s %4d %8s %14s %14s %8s %s",
			m.Period.String(),
			m.BusinessDays,
			delta,
			deltaPct,
			m.HolidayDays,
			cli.FormatNumber(int64(m.Records)),
			cli.FormatAmount(m.AvgBilledAmount),
			cli.FormatAmount(m.BilledPerBusinessDay),
			cli.FormatNumber(int64(m.FlaggedCount)),
			cli.Fit(strings.Join(m.HolidayNames, ", "), holW),
		)
		b.WriteString("\n")
		b.WriteString(rowStyle.Render(line))

		color := t.Accent
		if m.BusinessDayDelta < 0 {
			color = t.Orange
		}
		perBD[i] = components.Bar{
			Label: m.Period.String(),
			Value: m.BilledPerBusinessDay,
			Text:  cli.FormatCompact(m.BilledPerBusinessDay),
			Color: color,
		}
	}

	table := components.ContentCard("Business-Day Impact", b.String(), cw)
	chart := components.ContentCard("Billed per business day", components.HBarChart(perBD, inner), cw)

	note := mutedStyle.Render("Months with fewer business days bill less per calendar month; " +
		"compare billed per business day before treating a drop as an anomaly.")
	return table + "\n" + chart + "\n" + components.ContentCard("", note, cw)
}
