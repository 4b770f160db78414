package model

import (
	"errors"
	"testing"
	"time"
)

func TestSeverityFor(t *testing.T) {
	tests := []struct {
		pct  float64
		want Severity
	}{
		{0, SeverityMinor},
		{14.99, SeverityMinor},
		{15, SeverityCaution},
		{-15, SeverityCaution},
		{29.9, SeverityCaution},
		{30, SeveritySevere},
		{-49.9, SeveritySevere},
		{50, SeverityVerySevere},
		{-60, SeverityVerySevere},
		{400, SeverityVerySevere},
	}
	for _, tt := range tests {
		if got := SeverityFor(tt.pct); got != tt.want {
			t.Errorf("SeverityFor(%.2f) = %q, want %q", tt.pct, got, tt.want)
		}
	}
}

func TestJoinCategories(t *testing.T) {
	got := JoinCategories([]Category{CategoryBilledSurge, CategoryHighValue})
	if got != "billed-amount surge / high-value request" {
		t.Errorf("JoinCategories = %q", got)
	}
	if got := JoinCategories(nil); got != "" {
		t.Errorf("JoinCategories(nil) = %q, want empty", got)
	}
}

func TestThresholdsValidate(t *testing.T) {
	if err := DefaultThresholds().Validate(); err != nil {
		t.Fatalf("default thresholds invalid: %v", err)
	}
	if err := (Thresholds{}).Validate(); err != nil {
		t.Fatalf("zero thresholds invalid: %v", err)
	}

	bad := []Thresholds{
		{MinAmount: -1},
		{MinLines: -1},
		{ChangeThresholdPct: -0.5},
	}
	for _, th := range bad {
		if err := th.Validate(); !errors.Is(err, ErrInvalidThresholds) {
			t.Errorf("Validate(%+v) = %v, want ErrInvalidThresholds", th, err)
		}
	}
}

func TestPeriodAddMonths(t *testing.T) {
	p := Period{Year: 2025, Month: time.February}
	if got := p.AddMonths(-2); got != (Period{Year: 2024, Month: time.December}) {
		t.Errorf("AddMonths(-2) = %v", got)
	}
	if got := p.AddMonths(11); got != (Period{Year: 2026, Month: time.January}) {
		t.Errorf("AddMonths(11) = %v", got)
	}
	if !p.AddMonths(-1).Before(p) || p.Before(p) {
		t.Error("Before ordering wrong")
	}
	if p.String() != "2025-02" {
		t.Errorf("String = %q", p.String())
	}
}

func TestAnomalyHasCategory(t *testing.T) {
	a := AnomalyRecord{Categories: []Category{CategoryLineDrop}}
	if !a.HasCategory(CategoryLineDrop) || a.HasCategory(CategoryOther) {
		t.Errorf("HasCategory mismatch for %v", a.Categories)
	}
}
