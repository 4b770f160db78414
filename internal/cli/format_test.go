package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/cbill/internal/model"
	"github.com/theirongolddev/cbill/internal/pipeline"
)

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{12345678, "12,345,678"},
		{-1234567, "-1,234,567"},
	}
	for _, tt := range tests {
		if got := FormatNumber(tt.in); got != tt.want {
			t.Errorf("FormatNumber(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatHelpers(t *testing.T) {
	checks := []struct{ got, want string }{
		{FormatAmount(10_000_000.4), "10,000,000"},
		{FormatCompact(12_345_678), "12.3M"},
		{FormatCompact(950), "950"},
		{FormatSignedPercent(25), "+25.0%"},
		{FormatSignedPercent(-15), "-15.0%"},
		{FormatSignedPercent(0), "0.0%"},
		{FormatDays(2), "+2d"},
		{FormatDays(-2), "-2d"},
		{FormatDays(0), "0d"},
		{FormatARPU(0.125), "0.13"},
		{FormatARPU(-0.125), "-0.13"},
		{FormatARPU(1666.67), "1,667"},
		{Truncate("데이터 요금제", 4), "데이터…"},
		{Truncate("short", 10), "short"},
		{Fit("데이터", 8), "데이터  "},
		{Fit("데이터 요금제", 5), "데이…"},
		{Fit("voice", 3), "vo…"},
	}
	for i, c := range checks {
		if c.got != c.want {
			t.Errorf("check %d = %q, want %q", i, c.got, c.want)
		}
	}
}

func TestRenderTable_WideRunesAlign(t *testing.T) {
	out := RenderTable(Table{
		Headers: []string{"Item", "Billed"},
		Rows:    [][]string{{"데이터", "1"}, {"voice", "22"}},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 6 {
		t.Fatalf("got %d lines:\n%s", len(lines), out)
	}
	want := len([]rune(lines[0]))
	for _, l := range lines[1:] {
		if strings.Contains(l, "데이터") {
			continue // each Hangul rune is two cells wide
		}
		if n := len([]rune(l)); n != want {
			t.Errorf("line %q has %d runes, want %d", l, n, want)
		}
	}
}

func TestRenderAnomalies_Remaining(t *testing.T) {
	top := model.TopList{
		Items: []model.AnomalyRecord{{
			BillingRecord:   model.BillingRecord{ItemName: "Data Plan", LOB: "Mobile", BilledAmount: 1e6, PriorBilled: 8e5},
			BilledChangePct: 25,
			Categories:      []model.Category{model.CategoryBilledSurge, model.CategoryHighValue},
			Severity:        model.SeverityCaution,
		}},
		Remaining: 3,
	}
	out := RenderAnomalies(top)
	for _, want := range []string{"Data Plan", "+25.0%", "billed-amount surge / high-value request", "... and 3 more"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if got := RenderAnomalies(model.TopList{}); !strings.Contains(got, "No anomalies") {
		t.Errorf("empty list = %q", got)
	}
}

func TestRenderVerdicts(t *testing.T) {
	verdicts := []pipeline.Verdict{
		{AnomalyRecord: model.AnomalyRecord{BillingRecord: model.BillingRecord{ItemID: "A1", ItemName: "Data Plan"}, Severity: model.SeveritySevere}},
		{AnomalyRecord: model.AnomalyRecord{BillingRecord: model.BillingRecord{ItemID: "B7", ItemName: "Voice Plan", Lines: 450}}, Failed: "enough lines"},
	}
	out := RenderVerdicts(verdicts)
	for _, want := range []string{"Data Plan", "flagged: severe", "not flagged: enough lines"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if got := RenderVerdicts(nil); !strings.Contains(got, "No matching") {
		t.Errorf("empty verdicts = %q", got)
	}
}

func TestRenderBusinessDays(t *testing.T) {
	trend := []model.BusinessDayTrend{
		{Report: model.BusinessDayReport{Year: 2025, Month: 5, TotalDays: 31, WeekendDays: 9, HolidayDays: 2, BusinessDays: 20,
			Holidays: []model.Holiday{{Date: time.Date(2025, 5, 5, 0, 0, 0, 0, time.UTC), Name: "Children's Day"}}}},
		{Report: model.BusinessDayReport{Year: 2025, Month: 6, TotalDays: 30, WeekendDays: 9, HolidayDays: 2, BusinessDays: 19},
			HasPrevious: true, DeltaDays: -1, DeltaPct: -5},
	}
	out := RenderBusinessDays(trend)
	for _, want := range []string{"2025-05", "2025-06", "-1d", "-5.0%", "Children's Day"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}
