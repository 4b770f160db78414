package components

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/theirongolddev/cbill/internal/tui/theme"
)

func init() {
	// Force TrueColor output so ANSI codes are generated in tests
	lipgloss.SetColorProfile(termenv.TrueColor)
}

func TestCardRowBackgroundFill(t *testing.T) {
	theme.SetActive("flexoki-dark")

	shortCard := ContentCard("Short", "Content", 22)
	tallCard := ContentCard("Tall", "Line 1\nLine 2\nLine 3\nLine 4\nLine 5", 22)

	shortLines := len(strings.Split(shortCard, "\n"))
	tallLines := len(strings.Split(tallCard, "\n"))
	if shortLines >= tallLines {
		t.Fatal("test setup: short card should be shorter than tall card")
	}

	joined := CardRow([]string{tallCard, shortCard})
	lines := strings.Split(joined, "\n")
	if len(lines) != tallLines {
		t.Errorf("joined height = %d, want %d", len(lines), tallLines)
	}

	// Lines below the short card must still carry background styling.
	for i := shortLines; i < len(lines); i++ {
		if !strings.Contains(lines[i], "\x1b[") {
			t.Errorf("line %d has no ANSI codes: %q", i, lines[i])
		}
	}
}

func TestCardRowWidthConsistency(t *testing.T) {
	theme.SetActive("flexoki-dark")

	shortCard := ContentCard("Short", "A", 30)
	tallCard := ContentCard("Tall", "A\nB\nC\nD\nE\nF", 20)

	joined := CardRow([]string{tallCard, shortCard})
	lines := strings.Split(joined, "\n")

	want := lipgloss.Width(tallCard) + lipgloss.Width(shortCard)
	for i, line := range lines {
		if w := lipgloss.Width(line); w != want {
			t.Errorf("line %d width = %d, want %d", i, w, want)
		}
	}
}

func TestLayoutRow(t *testing.T) {
	widths := LayoutRow(10, 3)
	if len(widths) != 3 || widths[0] != 4 || widths[1] != 3 || widths[2] != 3 {
		t.Errorf("LayoutRow(10, 3) = %v", widths)
	}
	if LayoutRow(10, 0) != nil {
		t.Error("LayoutRow(10, 0) should be nil")
	}
}

func TestMetricCardRowWidth(t *testing.T) {
	theme.SetActive("terminal")
	row := MetricCardRow([]Metric{
		{Label: "Records", Value: "1,204"},
		{Label: "Flagged", Value: "37", Delta: "3.1%"},
		{Label: "Business days", Value: "19"},
	}, 61)
	for i, line := range strings.Split(row, "\n") {
		if w := lipgloss.Width(line); w != 61 {
			t.Errorf("line %d width = %d, want 61", i, w)
		}
	}
}

func TestTabBarWidthsMatchRender(t *testing.T) {
	theme.SetActive("flexoki-dark")
	for active := range Tabs {
		total := 0
		for i := range Tabs {
			total += TabVisualWidth(i, active)
		}
		total += len(Tabs) - 1 // separators

		bar := RenderTabBar(active, 0)
		if got := lipgloss.Width(bar); got != total {
			t.Errorf("active=%d: bar width = %d, want %d", active, got, total)
		}
	}
}

func TestTabIdxByKey(t *testing.T) {
	if got := TabIdxByKey('x'); got != len(Tabs)-1 {
		t.Errorf("TabIdxByKey('x') = %d", got)
	}
	if got := TabIdxByKey('z'); got != -1 {
		t.Errorf("TabIdxByKey('z') = %d", got)
	}
}

func TestHBarChart(t *testing.T) {
	theme.SetActive("terminal")
	bars := []Bar{
		{Label: "severe", Value: 10},
		{Label: "minor", Value: 0, Text: "none"},
		{Label: "caution", Value: 2_500_000},
	}
	out := HBarChart(bars, 40)
	lines := strings.Split(out, "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines", len(lines))
	}
	for i, line := range lines {
		if w := lipgloss.Width(line); w != 40 {
			t.Errorf("row %d width = %d, want 40: %q", i, w, line)
		}
	}
	if !strings.Contains(lines[1], "none") || strings.Contains(lines[1], "█") {
		t.Errorf("zero bar = %q", lines[1])
	}
	if bars[0].Text != "" {
		t.Error("HBarChart mutated its input")
	}
}

func TestShareBar(t *testing.T) {
	theme.SetActive("terminal")
	out := ShareBar("flagged", 1, 4, 8, 20)
	if !strings.Contains(out, "25.0%") {
		t.Errorf("ShareBar = %q", out)
	}
	if w := lipgloss.Width(ShareBar("flagged", 0, 0, 8, 20)); w != lipgloss.Width(out) {
		t.Errorf("empty share bar width = %d, want %d", w, lipgloss.Width(out))
	}
}
