package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/theirongolddev/cbill/internal/model"
)

func TestPeriodsFromArgs(t *testing.T) {
	got, err := periodsFromArgs([]string{"2025"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 12 || got[0] != (model.Period{Year: 2025, Month: time.January}) || got[11].Month != time.December {
		t.Errorf("year periods = %v", got)
	}

	got, err = periodsFromArgs([]string{"2025", "6"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].String() != "2025-06" {
		t.Errorf("month periods = %v", got)
	}

	for _, args := range [][]string{{"x"}, {"2025", "13"}, {"2025", "0"}, {"0"}} {
		if _, err := periodsFromArgs(args); err == nil {
			t.Errorf("periodsFromArgs(%v) succeeded", args)
		}
	}
}

func TestPeriodLabel(t *testing.T) {
	ps := []model.Period{{Year: 2025, Month: time.April}, {Year: 2025, Month: time.May}, {Year: 2025, Month: time.June}}
	tests := []struct {
		in   []model.Period
		want string
	}{
		{nil, ""},
		{ps[:1], "2025-04"},
		{ps, "2025-04 → 2025-06"},
	}
	for _, tt := range tests {
		if got := periodLabel(tt.in); got != tt.want {
			t.Errorf("periodLabel(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseSeverity(t *testing.T) {
	if sev, err := parseSeverity(" Very Severe "); err != nil || sev != model.SeverityVerySevere {
		t.Errorf("parseSeverity = %q, %v", sev, err)
	}
	if sev, err := parseSeverity(""); err != nil || sev != "" {
		t.Errorf("empty severity = %q, %v", sev, err)
	}
	if _, err := parseSeverity("critical"); err == nil || !strings.Contains(err.Error(), "caution") {
		t.Errorf("unknown severity err = %v", err)
	}
}

func TestThresholdSummary(t *testing.T) {
	got := thresholdSummary(model.Thresholds{MinAmount: 10_000_000, MinLines: 500, ChangeThresholdPct: 15})
	want := "requested ≥ 10,000,000, lines > 500, |change| ≥ 15.0%"
	if got != want {
		t.Errorf("thresholdSummary = %q, want %q", got, want)
	}
}

func TestExplainMatching(t *testing.T) {
	flagged := model.BillingRecord{
		ItemID: "A1", ItemName: "Data Plan", RequestedAmount: 11_000_000,
		BilledAmount: 1_000_000, Lines: 600, PriorBilled: 800_000, PriorLines: 400,
	}
	thin := flagged
	thin.ItemID, thin.ItemName, thin.Lines = "B7", "Voice Plan", 450
	other := flagged
	other.ItemID, other.ItemName = "C3", "Roaming"

	got := explainMatching([]model.BillingRecord{flagged, thin, other}, model.DefaultThresholds(), " plan ")
	if len(got) != 2 {
		t.Fatalf("matched %d records, want 2", len(got))
	}
	if got[0].Failed != "" || got[1].Failed != "enough lines" {
		t.Errorf("verdicts = %q, %q", got[0].Failed, got[1].Failed)
	}
	if got := explainMatching([]model.BillingRecord{flagged}, model.DefaultThresholds(), "a1"); len(got) != 1 {
		t.Errorf("id match returned %d verdicts", len(got))
	}
}

func TestExportFormat(t *testing.T) {
	tests := []struct {
		format, output string
		want           string
		wantErr        bool
	}{
		{"", "", "json", false},
		{"", "report.XLSX", "xlsx", false},
		{"JSON", "report.xlsx", "json", false},
		{"xlsx", "", "", true},
		{"csv", "out.csv", "", true},
	}
	for _, tt := range tests {
		got, err := exportFormat(tt.format, tt.output)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("exportFormat(%q, %q) = %q, %v", tt.format, tt.output, got, err)
		}
	}
}

func TestWithoutDetach(t *testing.T) {
	got := withoutDetach([]string{"daemon", "--detach", "--addr", "x", "--detach=true"})
	if strings.Join(got, " ") != "daemon --addr x" {
		t.Errorf("withoutDetach = %v", got)
	}
}

func TestPIDFile(t *testing.T) {
	pf := pidFile(filepath.Join(t.TempDir(), "run", "cbilld.pid"))

	if err := pf.claim(); err != nil {
		t.Fatalf("claim on empty dir: %v", err)
	}

	st := daemonState{PID: os.Getpid(), Addr: "127.0.0.1:9999", DataDir: "data"}
	if err := pf.write(st); err != nil {
		t.Fatal(err)
	}
	got, err := pf.read()
	if err != nil {
		t.Fatal(err)
	}
	if got.PID != st.PID || got.Addr != st.Addr {
		t.Errorf("read = %+v", got)
	}

	// Our own pid is alive, so a second claim must fail.
	if err := pf.claim(); err == nil {
		t.Error("claim succeeded while owner is alive")
	}

	pf.remove()
	if _, err := pf.read(); !os.IsNotExist(err) {
		t.Errorf("read after remove err = %v", err)
	}

	if err := os.WriteFile(pf.path(), []byte("garbage\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := pf.read(); err == nil {
		t.Error("read accepted a malformed pid")
	}
	if err := pf.claim(); err != nil {
		t.Errorf("claim should clear malformed pid file: %v", err)
	}
	if _, err := os.Stat(pf.path()); !os.IsNotExist(err) {
		t.Error("malformed pid file not removed")
	}
}
