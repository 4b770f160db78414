// Package tui provides the interactive Bubble Tea dashboard for cbill.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/theirongolddev/cbill/internal/cli"
	"github.com/theirongolddev/cbill/internal/config"
	"github.com/theirongolddev/cbill/internal/model"
	"github.com/theirongolddev/cbill/internal/pipeline"
	"github.com/theirongolddev/cbill/internal/store"
	"github.com/theirongolddev/cbill/internal/summarizer"
	"github.com/theirongolddev/cbill/internal/tui/components"
	"github.com/theirongolddev/cbill/internal/tui/theme"
)

// Options configures the dashboard.
type Options struct {
	DataDir    string
	LOB        string
	UseCache   bool
	Report     pipeline.Options
	Summarizer *summarizer.Client
	// AutoRefresh reloads the data directory every RefreshInterval.
	AutoRefresh     bool
	RefreshInterval time.Duration
}

// DataLoadedMsg is sent when the data pipeline finishes.
type DataLoadedMsg struct {
	Load     *pipeline.LoadResult
	Report   model.Report
	Err      error
	LoadTime time.Duration
}

// ProgressMsg reports file parsing progress.
type ProgressMsg struct {
	Current int
	Total   int
}

// RefreshDataMsg is sent when a background data refresh completes.
type RefreshDataMsg DataLoadedMsg

// SummaryMsg carries the summarizer response for the current report.
type SummaryMsg struct {
	RunID  string
	Result *summarizer.Result
	Err    error
}

// Tab indexes, matching components.Tabs.
const (
	tabOverview = iota
	tabAnomalies
	tabImpact
	tabSettings
)

// App is the root Bubble Tea model.
type App struct {
	opts Options

	// Data
	load     *pipeline.LoadResult
	report   model.Report
	impact   []model.MonthImpact
	loaded   bool
	loadErr  error
	loadTime time.Duration

	// Refresh state
	lastRefresh time.Time
	refreshing  bool

	// Summarizer state for the current report
	summary     *summarizer.Result
	summaryErr  error
	summarizing bool

	// UI state
	width     int
	height    int
	activeTab int
	showHelp  bool

	// Per-tab state
	anom     anomaliesState
	settings settingsState

	// First-run setup (huh form)
	setupForm *huh.Form
	setupVals *setupValues
	needSetup bool

	// Loading: channel-based progress subscription
	spinner     spinner.Model
	progress    int
	progressMax int
	loadSub     chan tea.Msg // progress + completion messages from loader goroutine
}

const (
	minTerminalWidth = 80
	compactWidth     = 120
	maxContentWidth  = 180

	minContentHeight = 5
	minRefresh       = 10 * time.Second
)

// NewApp creates a new TUI app model.
func NewApp(opts Options) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	if opts.RefreshInterval < minRefresh {
		opts.RefreshInterval = 30 * time.Second
	}

	return App{
		opts:      opts,
		needSetup: !config.Exists(),
		spinner:   sp,
		loadSub:   make(chan tea.Msg, 1),
	}
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	return tea.Batch(
		tea.EnableMouseCellMotion,
		loadDataCmd(a.opts, a.loadSub),
		a.spinner.Tick,
		tickCmd(),
	)
}

// setData installs a fresh load result and report.
func (a *App) setData(lr *pipeline.LoadResult, rep model.Report, took time.Duration) {
	if a.report.RunID != rep.RunID {
		a.summary, a.summaryErr = nil, nil
	}
	a.load = lr
	a.report = rep
	a.loadTime = took
	a.recompute()
}

func (a *App) recompute() {
	var records []model.BillingRecord
	if a.load != nil {
		records = a.load.Records
	}
	a.impact = pipeline.ImpactAnalysis(records, a.report.Anomalies, a.report.BusinessDays)
	a.anom.clamp(len(a.visibleAnomalies()))
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(msg.Width).WithHeight(msg.Height)
		}
		if a.settings.form != nil {
			a.settings.form = a.settings.form.WithWidth(a.contentWidth() - 4)
		}
		return a, nil

	case tea.MouseMsg:
		if !a.loaded || a.showHelp || a.setupForm != nil || a.settings.form != nil {
			return a, nil
		}
		switch msg.Button {
		case tea.MouseButtonWheelUp:
			if a.activeTab == tabAnomalies && !a.anom.searching {
				a.anom.move(-1, len(a.visibleAnomalies()))
			}
		case tea.MouseButtonWheelDown:
			if a.activeTab == tabAnomalies && !a.anom.searching {
				a.anom.move(1, len(a.visibleAnomalies()))
			}
		case tea.MouseButtonLeft:
			if msg.Y == 0 {
				if tab := a.tabAtX(msg.X); tab >= 0 {
					a.activeTab = tab
				}
			}
		}
		return a, nil

	case tea.KeyMsg:
		return a.updateKey(msg)

	case DataLoadedMsg:
		a.loaded = true
		a.loadErr = msg.Err
		a.lastRefresh = time.Now()
		if msg.Err == nil {
			a.setData(msg.Load, msg.Report, msg.LoadTime)
		}
		if a.needSetup {
			records := 0
			if msg.Load != nil {
				records = len(msg.Load.Records)
			}
			a.setupVals = &setupValues{}
			a.setupForm = newSetupForm(records, a.opts.DataDir, a.setupVals)
			if a.width > 0 {
				a.setupForm = a.setupForm.WithWidth(a.width).WithHeight(a.height)
			}
			return a, a.setupForm.Init()
		}
		return a, nil

	case ProgressMsg:
		a.progress = msg.Current
		a.progressMax = msg.Total
		return a, waitForLoadMsg(a.loadSub)

	case RefreshDataMsg:
		a.refreshing = false
		a.lastRefresh = time.Now()
		a.loadErr = msg.Err
		if msg.Err == nil {
			a.setData(msg.Load, msg.Report, msg.LoadTime)
		}
		return a, nil

	case SummaryMsg:
		a.summarizing = false
		if msg.RunID == a.report.RunID {
			a.summary, a.summaryErr = msg.Result, msg.Err
		}
		return a, nil

	case spinner.TickMsg:
		if !a.loaded || a.refreshing || a.summarizing {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			return a, cmd
		}
		return a, nil

	case tickMsg:
		cmds := []tea.Cmd{tickCmd()}
		if a.loaded && a.opts.AutoRefresh && !a.refreshing && time.Since(a.lastRefresh) >= a.opts.RefreshInterval {
			a.refreshing = true
			cmds = append(cmds, refreshDataCmd(a.opts), a.spinner.Tick)
		}
		return a, tea.Batch(cmds...)
	}

	// Forward unhandled messages to active forms (cursor blinks, etc.)
	if a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	if a.settings.form != nil {
		return a.updateSettingsForm(msg)
	}
	if a.activeTab == tabAnomalies && a.anom.searching {
		var cmd tea.Cmd
		a.anom.searchInput, cmd = a.anom.searchInput.Update(msg)
		return a, cmd
	}
	return a, nil
}

func (a App) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return a, tea.Quit
	}
	if !a.loaded {
		return a, nil
	}

	// Forms and search intercept all keys.
	if a.setupForm != nil {
		return a.updateSetupForm(msg)
	}
	if a.settings.form != nil {
		return a.updateSettingsForm(msg)
	}
	if a.activeTab == tabAnomalies && a.anom.searching {
		return a.updateAnomalySearch(msg)
	}

	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	switch a.activeTab {
	case tabOverview:
		if key == "S" {
			return a.requestSummary()
		}
	case tabAnomalies:
		if m, cmd, ok := a.updateAnomaliesKey(key); ok {
			return m, cmd
		}
	case tabSettings:
		if key == "enter" || key == "e" {
			return a.startSettingsForm()
		}
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "r":
		if !a.refreshing {
			a.refreshing = true
			return a, tea.Batch(refreshDataCmd(a.opts), a.spinner.Tick)
		}
		return a, nil
	case "R":
		a.opts.AutoRefresh = !a.opts.AutoRefresh
		return a, nil
	case "left":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
		return a, nil
	case "right", "tab":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
		return a, nil
	}

	if len(msg.Runes) == 1 {
		if idx := components.TabIdxByKey(msg.Runes[0]); idx >= 0 {
			a.activeTab = idx
		}
	}
	return a, nil
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	switch a.setupForm.State {
	case huh.StateCompleted:
		cfg, err := a.saveSetupConfig()
		a.needSetup = false
		a.setupForm = nil
		if err != nil {
			a.settings.saveErr = err
			return a, nil
		}
		a.applyConfig(cfg)
		a.refreshing = true
		return a, tea.Batch(refreshDataCmd(a.opts), a.spinner.Tick)
	case huh.StateAborted:
		a.needSetup = false
		a.setupForm = nil
		return a, nil
	}
	return a, cmd
}

// applyConfig rebuilds analysis options from a saved configuration.
func (a *App) applyConfig(cfg config.Config) {
	theme.SetActive(cfg.Appearance.Theme)
	a.opts.DataDir = cfg.General.DataDir
	a.opts.Report.Thresholds = cfg.ModelThresholds()
	a.opts.Report.TopN = cfg.General.TopN
	a.opts.Report.Jurisdiction = cfg.Calendar.Jurisdiction
	if p, key, err := cfg.Provider(); err == nil {
		a.opts.Report.Calendar = p
		a.opts.Report.CalendarKey = key
	}
}

// requestSummary sends the current report to the summarizer endpoint.
func (a App) requestSummary() (tea.Model, tea.Cmd) {
	if a.summarizing || a.report.RunID == "" {
		return a, nil
	}
	if a.opts.Summarizer == nil {
		a.summaryErr = errSummarizerUnset
		return a, nil
	}
	a.summarizing = true
	a.summaryErr = nil
	return a, tea.Batch(summarizeCmd(a.opts.Summarizer, a.report), a.spinner.Tick)
}

var errSummarizerUnset = errors.New("no summarizer endpoint configured (set summarizer.endpoint)")

func (a App) contentWidth() int {
	cw := a.width
	if cw > maxContentWidth {
		cw = maxContentWidth
	}
	return cw
}

func (a App) isCompactLayout() bool {
	return a.contentWidth() < compactWidth
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if !a.loaded {
		return a.viewLoading()
	}
	if a.setupForm != nil {
		return a.setupForm.View()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := a.height
	if h < 5 {
		h = 5
	}
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  cbill needs at least %d columns.\n",
		a.width,
		minTerminalWidth,
	)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) viewLoading() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(2, 4)
	logoStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	subtitleStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	spinnerStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface)
	countStyle := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)

	var b strings.Builder
	b.WriteString(logoStyle.Render("◈ cbill"))
	b.WriteString(subtitleStyle.Render(" · Billing Anomaly Monitor"))
	b.WriteString("\n\n")

	if a.progressMax > 0 {
		barW := 40
		if barW > a.width-30 {
			barW = a.width - 30
		}
		if barW < 20 {
			barW = 20
		}
		pct := float64(a.progress) / float64(a.progressMax)
		b.WriteString(spinnerStyle.Render(a.spinner.View()))
		b.WriteString(subtitleStyle.Render(" Parsing billing files\n\n"))
		b.WriteString(components.ProgressBar(pct, barW))
		b.WriteString("\n")
		b.WriteString(countStyle.Render(cli.FormatNumber(int64(a.progress))))
		b.WriteString(subtitleStyle.Render(" / "))
		b.WriteString(countStyle.Render(cli.FormatNumber(int64(a.progressMax))))
	} else {
		b.WriteString(spinnerStyle.Render(a.spinner.View()))
		b.WriteString(subtitleStyle.Render(" Discovering billing files..."))
	}

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewHelp() string {
	t := theme.Active

	cardStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3)
	titleStyle := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sectionStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Cyan).Background(t.Surface).Bold(true)
	descStyle := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dimStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	sections := []struct {
		title    string
		bindings []struct{ key, desc string }
	}{
		{"Navigation", []struct{ key, desc string }{
			{"o a i x", "Jump to tab"},
			{"← →", "Previous / Next tab"},
			{"j k", "Navigate anomalies"},
			{"g G", "First / Last anomaly"},
		}},
		{"Actions", []struct{ key, desc string }{
			{"/", "Search anomalies"},
			{"s", "Cycle severity filter"},
			{"S", "Summarize report"},
			{"Enter", "Edit settings"},
			{"Esc", "Clear search / Cancel"},
			{"r", "Refresh data"},
			{"R", "Toggle auto-refresh"},
			{"?", "Toggle help"},
			{"q", "Quit"},
		}},
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n")
	for _, sec := range sections {
		b.WriteString("\n")
		b.WriteString(sectionStyle.Render(sec.title))
		b.WriteString("\n")
		for _, bind := range sec.bindings {
			fmt.Fprintf(&b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-10s", bind.key)),
				descStyle.Render(bind.desc))
		}
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Press any key to close"))

	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, cardStyle.Render(b.String()),
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	// 1. Header: tab bar + filter pill
	pillStyle := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	accentStyle := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)

	filterStr := pillStyle.Render(" ") + accentStyle.Render(a.opts.Report.Jurisdiction)
	if len(a.report.Periods) > 0 {
		first, last := a.report.Periods[0], a.report.Periods[len(a.report.Periods)-1]
		filterStr += pillStyle.Render(" │ ") + accentStyle.Render(first.String()+" → "+last.String())
	}
	if a.opts.LOB != "" {
		filterStr += pillStyle.Render(" │ lob ") + accentStyle.Render(a.opts.LOB)
	}
	th := a.opts.Report.Thresholds
	filterStr += pillStyle.Render(fmt.Sprintf(" │ ≥%s billed, ≥%s lines, ±%.0f%% ",
		cli.FormatCompact(th.MinAmount), cli.FormatNumber(th.MinLines), th.ChangeThresholdPct))

	header := components.RenderTabBar(a.activeTab, w) + "\n" +
		lipgloss.NewStyle().Background(t.Surface).Width(w).Render(filterStr)

	// 2. Status bar
	info := ""
	switch {
	case a.refreshing:
		info = a.spinner.View() + " refreshing"
	case a.loadErr != nil:
		info = "load failed: " + a.loadErr.Error()
	case a.opts.AutoRefresh:
		info = "auto-refresh " + a.opts.RefreshInterval.String()
	}
	keys := ""
	switch a.activeTab {
	case tabAnomalies:
		keys = "[/]search  [s]everity  [S]ummarize"
	case tabSettings:
		keys = "[enter]edit"
	}
	statusBar := components.RenderStatusBar(w, components.Status{
		Keys:    keys,
		Info:    info,
		RunID:   a.report.RunID,
		DataAge: fmt.Sprintf("%.1fs", a.loadTime.Seconds()),
	})

	// 3. Content zone height
	contentH := h - lipgloss.Height(header) - lipgloss.Height(statusBar)
	if contentH < minContentHeight {
		contentH = minContentHeight
	}

	// 4. Tab content
	var content string
	switch a.activeTab {
	case tabOverview:
		content = a.renderOverviewTab(cw)
	case tabAnomalies:
		content = a.renderAnomaliesTab(cw, contentH)
	case tabImpact:
		content = a.renderImpactTab(cw)
	case tabSettings:
		content = a.renderSettingsTab(cw)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

// ─── Commands ───────────────────────────────────────────────────

type tickMsg struct{}

func tickCmd() tea.Cmd {
	return tea.Tick(250*time.Millisecond, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

// analyze loads the data directory and builds a report. The SQLite cache
// is used when enabled and reachable; any cache failure falls back to a
// full parse.
func analyze(ctx context.Context, opts Options, progressFn pipeline.ProgressFunc) (*pipeline.LoadResult, model.Report, error) {
	ropts := opts.Report

	var lr *pipeline.LoadResult
	if opts.UseCache {
		if cache, err := store.Open(pipeline.CachePath()); err == nil {
			defer func() { _ = cache.Close() }()
			if cr, loadErr := pipeline.LoadWithCache(ctx, opts.DataDir, cache, progressFn); loadErr == nil {
				lr = &cr.LoadResult
				ropts.Cache = cache
			}
		}
	}
	if lr == nil {
		var err error
		lr, err = pipeline.Load(ctx, opts.DataDir, progressFn)
		if err != nil {
			return nil, model.Report{}, err
		}
	}

	lr.Records = pipeline.FilterRecordsByLOB(lr.Records, opts.LOB)
	rep, err := pipeline.BuildReport(ctx, lr.Records, ropts)
	if err != nil {
		return lr, model.Report{}, err
	}
	return lr, rep, nil
}

// loadDataCmd starts the data loading pipeline in a background goroutine.
// It streams ProgressMsg updates and a final DataLoadedMsg through sub.
func loadDataCmd(opts Options, sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		go func() {
			start := time.Now()

			// Non-blocking send so workers aren't stalled; the next update catches up.
			progressFn := func(current, total int) {
				select {
				case sub <- ProgressMsg{Current: current, Total: total}:
				default:
				}
			}

			lr, rep, err := analyze(context.Background(), opts, progressFn)
			sub <- DataLoadedMsg{Load: lr, Report: rep, Err: err, LoadTime: time.Since(start)}
		}()

		// Block until the first message (either ProgressMsg or DataLoadedMsg)
		return <-sub
	}
}

// waitForLoadMsg blocks until the next message arrives from the loader goroutine.
func waitForLoadMsg(sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-sub
	}
}

// refreshDataCmd reloads data in the background (no progress UI).
func refreshDataCmd(opts Options) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		lr, rep, err := analyze(context.Background(), opts, nil)
		return RefreshDataMsg{Load: lr, Report: rep, Err: err, LoadTime: time.Since(start)}
	}
}

func summarizeCmd(c *summarizer.Client, rep model.Report) tea.Cmd {
	return func() tea.Msg {
		res, err := c.Summarize(context.Background(), summarizer.NewPayload(rep))
		return SummaryMsg{RunID: rep.RunID, Result: res, Err: err}
	}
}

// ─── Helpers ────────────────────────────────────────────────────

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg))
	}
	return strings.Join(lines, "\n")
}

// ─── Mouse Support ──────────────────────────────────────────────

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
// Hitboxes are derived from the same width rules used by RenderTabBar.
func (a App) tabAtX(x int) int {
	pos := 0
	for i := range components.Tabs {
		tabW := components.TabVisualWidth(i, a.activeTab)
		if x >= pos && x < pos+tabW {
			return i
		}
		pos += tabW
		if i < len(components.Tabs)-1 {
			pos++ // separator
		}
	}
	return -1
}
