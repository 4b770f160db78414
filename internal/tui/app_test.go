package tui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/theirongolddev/cbill/internal/config"
	"github.com/theirongolddev/cbill/internal/model"
	"github.com/theirongolddev/cbill/internal/pipeline"
	"github.com/theirongolddev/cbill/internal/tui/theme"
)

func anomaly(id, name, lob string, change float64, cats ...model.Category) model.AnomalyRecord {
	return model.AnomalyRecord{
		BillingRecord: model.BillingRecord{
			ItemID: id, ItemName: name, LOB: lob, ReportDate: "2025-06-01",
			BilledAmount: 2e7, PriorBilled: 2e7 / (1 + change/100), Lines: 900, PriorLines: 800,
		},
		BilledChangePct: change,
		Categories:      cats,
		Severity:        model.SeverityFor(change),
	}
}

func testReport() model.Report {
	items := []model.AnomalyRecord{
		anomaly("A1", "Data Plan", "Mobile", 60, model.CategoryBilledSurge),
		anomaly("B2", "Fiber 1G", "Broadband", -35, model.CategoryBilledDrop),
		anomaly("C3", "IPTV Basic", "Media", 20, model.CategoryBilledSurge, model.CategoryHighValue),
	}
	return model.Report{
		RunID:        "run-1",
		Jurisdiction: "KR",
		RecordCount:  10,
		Anomalies:    items,
		Summary:      pipeline.Summarize(items),
	}
}

func loadedApp(t *testing.T) App {
	t.Helper()
	theme.SetActive("terminal")
	a := App{width: 140, height: 50, loadSub: make(chan tea.Msg, 1)}
	rep := testReport()
	lr := &pipeline.LoadResult{ParsedFiles: 1}
	for _, it := range rep.Anomalies {
		lr.Records = append(lr.Records, it.BillingRecord)
	}
	m, _ := a.Update(DataLoadedMsg{Load: lr, Report: rep, LoadTime: time.Millisecond})
	return m.(App)
}

func press(t *testing.T, a App, keys ...string) App {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "esc":
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		m, _ := a.Update(msg)
		a = m.(App)
	}
	return a
}

func TestDataLoadedComputesImpact(t *testing.T) {
	a := loadedApp(t)
	if !a.loaded || a.report.RunID != "run-1" {
		t.Fatalf("app not loaded: %+v", a.report)
	}
	if a.setupForm != nil {
		t.Error("setup form opened without needSetup")
	}
}

func TestDataLoadedError(t *testing.T) {
	a := App{}
	m, _ := a.Update(DataLoadedMsg{Err: pipeline.ErrNoValidPeriod})
	got := m.(App)
	if !got.loaded || !errors.Is(got.loadErr, pipeline.ErrNoValidPeriod) {
		t.Errorf("loaded=%v loadErr=%v", got.loaded, got.loadErr)
	}
}

func TestTabKeys(t *testing.T) {
	a := loadedApp(t)
	if a = press(t, a, "a"); a.activeTab != tabAnomalies {
		t.Errorf("a -> tab %d", a.activeTab)
	}
	if a = press(t, a, "i"); a.activeTab != tabImpact {
		t.Errorf("i -> tab %d", a.activeTab)
	}
	if a = press(t, a, "x"); a.activeTab != tabSettings {
		t.Errorf("x -> tab %d", a.activeTab)
	}
	if a = press(t, a, "o"); a.activeTab != tabOverview {
		t.Errorf("o -> tab %d", a.activeTab)
	}
}

func TestAnomalyNavigationAndFilters(t *testing.T) {
	a := press(t, loadedApp(t), "a", "j", "j", "j")
	if a.anom.cursor != 2 {
		t.Errorf("cursor = %d, want 2 (clamped)", a.anom.cursor)
	}

	// First severity step is "very severe": only A1 (+60%).
	a = press(t, a, "s")
	if got := a.visibleAnomalies(); len(got) != 1 || got[0].ItemID != "A1" {
		t.Errorf("very severe filter = %+v", got)
	}
	if a.anom.cursor != 0 {
		t.Errorf("cursor not reset on filter change: %d", a.anom.cursor)
	}

	a = press(t, a, "esc")
	if len(a.visibleAnomalies()) != 3 {
		t.Errorf("esc did not clear filters")
	}
}

func TestAnomalySearch(t *testing.T) {
	a := press(t, loadedApp(t), "a", "/")
	if !a.anom.searching {
		t.Fatal("/ did not start search")
	}
	a = press(t, a, "h", "i", "g", "h", "enter")
	if a.anom.searching || a.anom.searchQuery != "high" {
		t.Fatalf("searching=%v query=%q", a.anom.searching, a.anom.searchQuery)
	}
	if got := a.visibleAnomalies(); len(got) != 1 || got[0].ItemID != "C3" {
		t.Errorf("category search = %+v", got)
	}
}

func TestMatchAnomaly(t *testing.T) {
	it := anomaly("B2", "Fiber 1G", "Broadband", -35, model.CategoryBilledDrop)
	for _, q := range []string{"b2", "fiber", "BROAD", "drop"} {
		if !matchAnomaly(it, q) {
			t.Errorf("matchAnomaly(%q) = false", q)
		}
	}
	if matchAnomaly(it, "mobile") {
		t.Error("matchAnomaly(mobile) = true")
	}
}

func TestSummaryWithoutEndpoint(t *testing.T) {
	a := press(t, loadedApp(t), "S")
	if !errors.Is(a.summaryErr, errSummarizerUnset) {
		t.Errorf("summaryErr = %v", a.summaryErr)
	}

	// A response for a stale run is ignored.
	m, _ := a.Update(SummaryMsg{RunID: "old", Err: errors.New("late")})
	if got := m.(App); !errors.Is(got.summaryErr, errSummarizerUnset) {
		t.Errorf("stale summary overwrote state: %v", got.summaryErr)
	}
}

func TestViewRendersEveryTab(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	a := loadedApp(t)
	wants := map[string]string{"o": "Business Days", "a": "Data Plan", "i": "Business-Day Impact", "x": "Holiday calendar"}
	for key, want := range wants {
		v := press(t, a, key).View()
		if !strings.Contains(v, want) {
			t.Errorf("tab %q view missing %q", key, want)
		}
	}
}

func TestSetupValuesApply(t *testing.T) {
	base := config.DefaultConfig()
	v := SetupValuesFrom(base)
	v.MinAmount = "5000000"
	v.Jurisdiction = "NONE"
	v.Theme = "tokyo-night"

	cfg, err := v.Apply(base)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Thresholds.MinAmount != 5e6 || cfg.Calendar.Jurisdiction != "NONE" || cfg.Appearance.Theme != "tokyo-night" {
		t.Errorf("cfg = %+v", cfg)
	}

	v.MinLines = "-1"
	if _, err := v.Apply(base); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("negative lines: err = %v", err)
	}

	v.MinLines = "500"
	v.Jurisdiction = "JP"
	if _, err := v.Apply(base); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("unknown jurisdiction: err = %v", err)
	}
}

func TestSettingsValuesApply(t *testing.T) {
	base := config.DefaultConfig()
	v := settingsValuesFrom(base)
	v.TopN = "25"
	v.Endpoint = " http://localhost:9000/summarize "

	cfg, err := v.apply(base)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.General.TopN != 25 || cfg.Summarizer.Endpoint != "http://localhost:9000/summarize" {
		t.Errorf("cfg = %+v", cfg)
	}

	v.TopN = "ten"
	if _, err := v.apply(base); err == nil {
		t.Error("expected error for non-numeric top n")
	}
}

func TestFormValidators(t *testing.T) {
	if nonNegativeFloat("1.5") != nil || nonNegativeFloat("-1") == nil || nonNegativeFloat("x") == nil {
		t.Error("nonNegativeFloat")
	}
	if nonNegativeInt("0") != nil || nonNegativeInt("1.5") == nil {
		t.Error("nonNegativeInt")
	}
	if positiveInt("1") != nil || positiveInt("0") == nil {
		t.Error("positiveInt")
	}
	if requireText("dir")("  ") == nil {
		t.Error("requireText")
	}
}
