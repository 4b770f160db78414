package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/cbill/internal/cli"
	"github.com/theirongolddev/cbill/internal/model"
	"github.com/theirongolddev/cbill/internal/pipeline"
	"github.com/theirongolddev/cbill/internal/tui/components"
	"github.com/theirongolddev/cbill/internal/tui/theme"
)

// anomaliesState holds the anomalies tab state.
type anomaliesState struct {
	cursor int
	offset int // scroll offset for the list

	searching   bool
	searchInput textinput.Model
	searchQuery string

	// severityIdx cycles through "" and model.Severities.
	severityIdx int
}

func (s anomaliesState) severity() model.Severity {
	if s.severityIdx == 0 {
		return ""
	}
	return model.Severities[s.severityIdx-1]
}

func (s *anomaliesState) move(delta, n int) {
	s.cursor += delta
	s.clamp(n)
}

func (s *anomaliesState) clamp(n int) {
	if s.cursor >= n {
		s.cursor = n - 1
	}
	if s.cursor < 0 {
		s.cursor = 0
	}
}

func newSearchInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "item, LOB or category"
	ti.CharLimit = 64
	ti.Width = 40
	ti.Prompt = "/ "
	return ti
}

// matchAnomaly reports whether a flagged record matches a free-text query
// against its ID, name, LOB and category labels.
func matchAnomaly(a model.AnomalyRecord, query string) bool {
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(a.ItemID), q) ||
		strings.Contains(strings.ToLower(a.ItemName), q) ||
		strings.Contains(strings.ToLower(a.LOB), q) {
		return true
	}
	for _, c := range a.Categories {
		if strings.Contains(string(c), q) {
			return true
		}
	}
	return false
}

// visibleAnomalies returns the ranked flagged set after the severity
// filter and search query.
func (a App) visibleAnomalies() []model.AnomalyRecord {
	items := pipeline.FilterBySeverity(a.report.Anomalies, a.anom.severity())
	if a.anom.searchQuery == "" {
		return items
	}
	var out []model.AnomalyRecord
	for _, it := range items {
		if matchAnomaly(it, a.anom.searchQuery) {
			out = append(out, it)
		}
	}
	return out
}

// updateAnomaliesKey handles list navigation. ok is false when the key
// should fall through to global bindings.
func (a App) updateAnomaliesKey(key string) (tea.Model, tea.Cmd, bool) {
	n := len(a.visibleAnomalies())
	switch key {
	case "/":
		a.anom.searching = true
		a.anom.searchInput = newSearchInput()
		a.anom.searchInput.SetValue(a.anom.searchQuery)
		cmd := a.anom.searchInput.Focus()
		return a, cmd, true
	case "s":
		a.anom.severityIdx = (a.anom.severityIdx + 1) % (len(model.Severities) + 1)
		a.anom.cursor, a.anom.offset = 0, 0
		return a, nil, true
	case "esc":
		a.anom.searchQuery = ""
		a.anom.severityIdx = 0
		a.anom.cursor, a.anom.offset = 0, 0
		return a, nil, true
	case "j", "down":
		a.anom.move(1, n)
		return a, nil, true
	case "k", "up":
		a.anom.move(-1, n)
		return a, nil, true
	case "g", "home":
		a.anom.cursor = 0
		return a, nil, true
	case "G", "end":
		a.anom.cursor = n - 1
		a.anom.clamp(n)
		return a, nil, true
	}
	return a, nil, false
}

// updateAnomalySearch handles key events while in search mode.
func (a App) updateAnomalySearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		a.anom.searchQuery = strings.TrimSpace(a.anom.searchInput.Value())
		a.anom.searching = false
		a.anom.cursor, a.anom.offset = 0, 0
		return a, nil
	case "esc":
		a.anom.searching = false
		return a, nil
	}

	var cmd tea.Cmd
	a.anom.searchInput, cmd = a.anom.searchInput.Update(msg)
	return a, cmd
}

func (a App) renderAnomaliesTab(cw, h int) string {
	t := theme.Active
	items := a.visibleAnomalies()

	var header strings.Builder
	mutedStyle := lipgloss.NewStyle().Foreground(t.TextMuted)
	accentStyle := lipgloss.NewStyle().Foreground(t.Accent).Bold(true)
	switch {
	case a.anom.searching:
		header.WriteString(a.anom.searchInput.View())
	case a.anom.searchQuery != "" || a.anom.severityIdx != 0:
		header.WriteString(mutedStyle.Render(" filter:"))
		if a.anom.searchQuery != "" {
			header.WriteString(" " + accentStyle.Render(fmt.Sprintf("%q", a.anom.searchQuery)))
		}
		if sev := a.anom.severity(); sev != "" {
			header.WriteString(" " + lipgloss.NewStyle().Foreground(t.SeverityColor(sev)).Bold(true).Render(string(sev)))
		}
		header.WriteString(mutedStyle.Render(fmt.Sprintf("  %d of %d  [esc] clear", len(items), len(a.report.Anomalies))))
	default:
		header.WriteString(mutedStyle.Render(fmt.Sprintf(" %d flagged  [/] search  [s] severity", len(items))))
	}
	headerLine := header.String()
	h -= lipgloss.Height(headerLine)

	if len(items) == 0 {
		msg := "No anomalies detected."
		if len(a.report.Anomalies) > 0 {
			msg = "No anomalies match the current filter."
		}
		return headerLine + "\n" + components.ContentCard("Anomalies", mutedStyle.Render(msg), cw)
	}

	sel := items[min(a.anom.cursor, len(items)-1)]
	if a.isCompactLayout() {
		listH := h / 2
		return headerLine + "\n" +
			a.renderAnomalyList(items, cw, listH) + "\n" +
			a.renderAnomalyDetail(sel, cw)
	}

	leftW := cw * 11 / 20
	rightW := cw - leftW
	return headerLine + "\n" + components.CardRow([]string{
		a.renderAnomalyList(items, leftW, h),
		a.renderAnomalyDetail(sel, rightW),
	})
}

func (a App) renderAnomalyList(items []model.AnomalyRecord, w, h int) string {
	t := theme.Active
	inner := components.CardInnerWidth(w)

	headerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	rowStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	selectedStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.SurfaceBright).Bold(true)

	visible := h - 4 // card border (2) + title (1) + header row (1)
	if visible < 3 {
		visible = 3
	}

	offset := a.anom.offset
	if a.anom.cursor < offset {
		offset = a.anom.cursor
	}
	if a.anom.cursor >= offset+visible {
		offset = a.anom.cursor - visible + 1
	}

	const rankW, changeW, sevW = 4, 9, 11
	lobW := 12
	nameW := inner - rankW - changeW - sevW - lobW - 4
	if nameW < 10 {
		nameW = 10
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%-*s %-*s %-*s %*s %-*s",
		rankW, "#", nameW, "Item", lobW, "LOB", changeW, "Billed Δ", sevW, "Severity")))

	end := offset + visible
	if end > len(items) {
		end = len(items)
	}
	for i := offset; i < end; i++ {
		it := items[i]
		style := rowStyle
		if i == a.anom.cursor {
			style = selectedStyle
		}
		left := style.Render(fmt.Sprintf("%-*d %s %s ",
			rankW, i+1, cli.Fit(it.ItemName, nameW), cli.Fit(it.LOB, lobW)))
		change := style.Foreground(t.ChangeColor(it.BilledChangePct)).
			Render(fmt.Sprintf("%*s ", changeW, cli.FormatSignedPercent(it.BilledChangePct)))
		sev := style.Foreground(t.SeverityColor(it.Severity)).
			Render(fmt.Sprintf("%-*s", sevW, it.Severity))
		b.WriteString("\n" + left + change + sev)
	}

	title := fmt.Sprintf("Ranked anomalies (%d)", len(items))
	return components.ContentCard(title, b.String(), w)
}

func (a App) renderAnomalyDetail(it model.AnomalyRecord, w int) string {
	t := theme.Active
	inner := components.CardInnerWidth(w)

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	headStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)

	row := func(label, value string) string {
		return labelStyle.Render(fmt.Sprintf("%-16s", label)) + valueStyle.Render(value)
	}

	var b strings.Builder
	b.WriteString(headStyle.Render(cli.Truncate(it.ItemName, inner)))
	b.WriteString("\n")
	b.WriteString(labelStyle.Render(cli.Truncate(it.ItemID+" · "+it.LOB, inner)))
	b.WriteString("\n\n")

	b.WriteString(row("Severity", "") +
		lipgloss.NewStyle().Foreground(t.SeverityColor(it.Severity)).Background(t.Surface).Bold(true).Render(string(it.Severity)))
	b.WriteString("\n")
	b.WriteString(row("Categories", cli.Truncate(model.JoinCategories(it.Categories), inner-16)))
	b.WriteString("\n\n")

	b.WriteString(row("Billed", cli.FormatAmount(it.BilledAmount)))
	b.WriteString("\n")
	b.WriteString(row("Prior billed", cli.FormatAmount(it.PriorBilled)))
	b.WriteString("\n")
	b.WriteString(row("Billed change", "") +
		lipgloss.NewStyle().Foreground(t.ChangeColor(it.BilledChangePct)).Background(t.Surface).Render(cli.FormatSignedPercent(it.BilledChangePct)))
	b.WriteString("\n")
	b.WriteString(row("Lines", cli.FormatNumber(it.Lines)))
	b.WriteString("\n")
	b.WriteString(row("Prior lines", cli.FormatNumber(it.PriorLines)))
	b.WriteString("\n")
	b.WriteString(row("Line change", "") +
		lipgloss.NewStyle().Foreground(t.ChangeColor(it.LineChangePct)).Background(t.Surface).Render(cli.FormatSignedPercent(it.LineChangePct)))
	b.WriteString("\n")
	b.WriteString(row("Requested", cli.FormatAmount(it.RequestedAmount)))
	b.WriteString("\n")
	b.WriteString(row("ARPU", cli.FormatARPU(it.ARPU)))
	b.WriteString("\n\n")

	series := pipeline.TrendSeries(it.BillingRecord)
	billed := make([]float64, len(series))
	labels := make([]string, len(series))
	for i, p := range series {
		billed[i] = p.Billed
		labels[i] = p.Label
	}
	b.WriteString(labelStyle.Render(fmt.Sprintf("%-16s", "Billed trend")))
	b.WriteString(components.Sparkline(billed, t.Accent))
	b.WriteString(labelStyle.Render("  " + strings.Join(labels, " → ")))

	if it.SourceFile != "" {
		b.WriteString("\n\n")
		b.WriteString(labelStyle.Render(cli.Truncate(fmt.Sprintf("%s:%d", it.SourceFile, it.SourceRow), inner)))
	}

	return components.ContentCard("Detail", b.String(), w)
}
