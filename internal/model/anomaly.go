package model

import "strings"

// Category labels why a flagged record is anomalous.
type Category string

// Category labels, in classifier evaluation order.
const (
	CategoryBilledSurge = Category("billed-amount surge")
	CategoryBilledDrop  = Category("billed-amount drop")
	CategoryLineSurge   = Category("line-count surge")
	CategoryLineDrop    = Category("line-count drop")
	CategoryHighValue   = Category("high-value request")
	CategoryLowARPU     = Category("low ARPU")
	CategoryHighARPU    = Category("high ARPU")
	CategoryOther       = Category("other")
)

// CategorySeparator joins labels for display.
const CategorySeparator = " / "

// JoinCategories renders labels for display. Keep the slice form for counting.
func JoinCategories(cats []Category) string {
	parts := make([]string, len(cats))
	for i, c := range cats {
		parts[i] = string(c)
	}
	return strings.Join(parts, CategorySeparator)
}

// Severity is a display-only triage tier derived from |billed-amount change|.
type Severity string

// Severity tiers, most severe first.
const (
	SeverityVerySevere = Severity("very severe")
	SeveritySevere     = Severity("severe")
	SeverityCaution    = Severity("caution")
	SeverityMinor      = Severity("minor")
)

// Severities lists all tiers from most to least severe.
var Severities = []Severity{SeverityVerySevere, SeveritySevere, SeverityCaution, SeverityMinor}

// Severity tier lower bounds (inclusive), in percent. These do not follow
// the detection threshold.
const (
	SeverityVerySevereMin = 50.0
	SeveritySevereMin     = 30.0
	SeverityCautionMin    = 15.0
)

// SeverityFor buckets a billed-amount percentage change. The sign is ignored.
func SeverityFor(billedChangePct float64) Severity {
	abs := billedChangePct
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs >= SeverityVerySevereMin:
		return SeverityVerySevere
	case abs >= SeveritySevereMin:
		return SeveritySevere
	case abs >= SeverityCautionMin:
		return SeverityCaution
	default:
		return SeverityMinor
	}
}

// AnomalyRecord is a BillingRecord that passed every detection predicate,
// with its derived metrics and labels.
type AnomalyRecord struct {
	BillingRecord

	ARPU            float64 `json:"arpu"`
	BilledChangePct float64 `json:"billed_change_pct"`
	LineChangePct   float64 `json:"line_change_pct"`

	Categories []Category `json:"categories"`
	Severity   Severity   `json:"severity"`
}

// HasCategory reports whether the record carries label c.
func (a AnomalyRecord) HasCategory(c Category) bool {
	for _, got := range a.Categories {
		if got == c {
			return true
		}
	}
	return false
}
