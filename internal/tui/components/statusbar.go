package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/cbill/internal/tui/theme"
)

// Status is the content of the bottom status bar.
type Status struct {
	Keys    string // key hints for the active tab
	Info    string // transient state, e.g. refreshing or an error
	RunID   string
	DataAge string
}

// RenderStatusBar renders the bottom status bar: key hints on the left,
// run id and load time on the right.
func RenderStatusBar(width int, s Status) string {
	t := theme.Active

	style := lipgloss.NewStyle().
		Foreground(t.TextMuted).
		Background(t.Surface).
		Width(width)

	left := " [?]help  [r]efresh  [q]uit"
	if s.Keys != "" {
		left += "  " + s.Keys
	}
	if s.Info != "" {
		left += "   " + s.Info
	}

	var right []string
	if s.RunID != "" {
		id := s.RunID
		if len(id) > 8 {
			id = id[:8]
		}
		right = append(right, "run "+id)
	}
	if s.DataAge != "" {
		right = append(right, "load "+s.DataAge)
	}
	r := strings.Join(right, "  ")
	if r != "" {
		r += " "
	}

	padding := max(width-lipgloss.Width(left)-lipgloss.Width(r), 0)
	return style.Render(left + strings.Repeat(" ", padding) + r)
}
