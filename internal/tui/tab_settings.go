package tui

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/cbill/internal/calendar"
	"github.com/theirongolddev/cbill/internal/cli"
	"github.com/theirongolddev/cbill/internal/config"
	"github.com/theirongolddev/cbill/internal/summarizer"
	"github.com/theirongolddev/cbill/internal/tui/components"
	"github.com/theirongolddev/cbill/internal/tui/theme"
)

// settingsState tracks the settings tab state.
type settingsState struct {
	form    *huh.Form
	vals    *settingsValues // shared with form; App is copied by value
	saved   bool  // flash "saved" message until the next edit
	saveErr error // non-nil if last save failed
}

// settingsValues are the editable settings as form text.
type settingsValues struct {
	SetupValues
	TopN     string
	Endpoint string
}

func settingsValuesFrom(cfg config.Config) settingsValues {
	return settingsValues{
		SetupValues: SetupValuesFrom(cfg),
		TopN:        strconv.Itoa(cfg.General.TopN),
		Endpoint:    cfg.Summarizer.Endpoint,
	}
}

// apply writes the edited settings into cfg and validates the result.
func (v settingsValues) apply(cfg config.Config) (config.Config, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v.TopN))
	if err != nil {
		return cfg, fmt.Errorf("top n: %w", err)
	}
	cfg.General.TopN = n
	cfg.Summarizer.Endpoint = strings.TrimSpace(v.Endpoint)
	return v.SetupValues.Apply(cfg)
}

func newSettingsForm(vals *settingsValues) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Requested amount threshold").Value(&vals.MinAmount).Validate(nonNegativeFloat),
			huh.NewInput().Title("Line count threshold").Value(&vals.MinLines).Validate(nonNegativeInt),
			huh.NewInput().Title("Change threshold (%)").Value(&vals.ChangePct).Validate(nonNegativeFloat),
			huh.NewInput().Title("Top N").Description("Rows shown in ranked listings.").Value(&vals.TopN).Validate(positiveInt),
		).Title("Detection"),
		huh.NewGroup(
			huh.NewInput().Title("Data directory").Value(&vals.DataDir).Validate(requireText("data directory")),
			huh.NewSelect[string]().
				Title("Holiday calendar").
				Options(huh.NewOptions(calendar.Jurisdictions...)...).
				Value(&vals.Jurisdiction),
			huh.NewInput().Title("Summarizer endpoint").Description("Leave empty to disable.").Value(&vals.Endpoint),
			huh.NewSelect[string]().
				Title("Color theme").
				Options(huh.NewOptions(theme.Names()...)...).
				Value(&vals.Theme),
		).Title("Environment"),
	).WithShowHelp(true)
}

func (a App) startSettingsForm() (tea.Model, tea.Cmd) {
	vals := settingsValuesFrom(loadConfigOrDefault())
	a.settings.vals = &vals
	a.settings.saved = false
	a.settings.saveErr = nil
	a.settings.form = newSettingsForm(a.settings.vals).WithWidth(a.contentWidth() - 4)
	return a, a.settings.form.Init()
}

func (a App) updateSettingsForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok && km.String() == "esc" {
		a.settings.form = nil
		return a, nil
	}

	form, cmd := a.settings.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.settings.form = f
	}

	switch a.settings.form.State {
	case huh.StateCompleted:
		a.settings.form = nil
		cfg, err := a.settings.vals.apply(loadConfigOrDefault())
		if err == nil {
			err = config.Save(cfg)
		}
		a.settings.saveErr = err
		a.settings.saved = err == nil
		if err != nil {
			return a, nil
		}
		summarizerChanged := cfg.Summarizer.Endpoint != a.currentEndpoint()
		a.applyConfig(cfg)
		if summarizerChanged {
			a.opts.Summarizer = summarizer.NewClient(cfg.Summarizer.Endpoint, cfg.Summarizer.APIKey, cfg.SummarizerTimeout())
		}
		a.refreshing = true
		return a, tea.Batch(refreshDataCmd(a.opts), a.spinner.Tick)
	case huh.StateAborted:
		a.settings.form = nil
		return a, nil
	}
	return a, cmd
}

func (a App) currentEndpoint() string {
	if a.opts.Summarizer == nil {
		return ""
	}
	return a.opts.Summarizer.Endpoint()
}

func (a App) renderSettingsTab(cw int) string {
	t := theme.Active

	if a.settings.form != nil {
		return components.ContentCard("Edit Settings  (esc to cancel)", a.settings.form.View(), cw)
	}

	labelStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	valueStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)
	accentStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)
	greenStyle := lipgloss.NewStyle().Foreground(t.Green).Background(t.Surface)
	redStyle := lipgloss.NewStyle().Foreground(t.Red).Background(t.Surface)

	cfg := loadConfigOrDefault()
	endpoint := cfg.Summarizer.Endpoint
	if endpoint == "" {
		endpoint = "(not set)"
	}
	extra := "none"
	if n := len(cfg.Calendar.Extra); n > 0 {
		extra = fmt.Sprintf("%d company holidays", n)
	}

	fields := []struct{ label, value string }{
		{"Data directory", cfg.General.DataDir},
		{"Min billed amount", cli.FormatAmount(cfg.Thresholds.MinAmount)},
		{"Min line count", cli.FormatNumber(cfg.Thresholds.MinLines)},
		{"Change threshold", fmt.Sprintf("%.1f%%", cfg.Thresholds.ChangePct)},
		{"Top N", strconv.Itoa(cfg.General.TopN)},
		{"Holiday calendar", strings.ToUpper(cfg.Calendar.Jurisdiction)},
		{"Extra holidays", extra},
		{"Summarizer", endpoint},
		{"Daemon address", cfg.Daemon.Addr},
		{"Theme", cfg.Appearance.Theme},
	}

	var b strings.Builder
	for _, f := range fields {
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-20s", f.label)))
		b.WriteString(valueStyle.Render(f.value))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(labelStyle.Render("Config file: " + config.ConfigPath()))
	b.WriteString("\n\n")

	switch {
	case a.settings.saveErr != nil:
		b.WriteString(redStyle.Render("Save failed: " + a.settings.saveErr.Error()))
	case a.settings.saved:
		b.WriteString(greenStyle.Render("Saved. Report rebuilt with the new settings."))
	default:
		b.WriteString(accentStyle.Render("[Enter] edit settings"))
	}

	return components.ContentCard("Settings", b.String(), cw)
}
