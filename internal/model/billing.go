// Package model defines domain types for cbill billing records, anomalies and reports.
package model

import (
	"errors"
	"fmt"
	"time"
)

// PlaceholderReportDate is assigned to records whose source has no report-date column.
const PlaceholderReportDate = "2025-06-01"

// BillingRecord is one billed line item for one reporting period.
// M1 is the current period, M2 the prior period and M3 the period before that.
type BillingRecord struct {
	ItemID          string `json:"item_id"`
	ItemName        string `json:"item_name"`
	UnitServiceName string `json:"unit_service_name"`
	LOB             string `json:"lob"`
	ReportDate      string `json:"report_date"` // raw value as ingested; see pipeline.ParseReportDate

	RequestedAmount float64 `json:"requested_amount"`
	BilledAmount    float64 `json:"billed_amount"`
	Lines           int64   `json:"lines"`

	PriorRequested float64 `json:"prior_requested"`
	PriorBilled    float64 `json:"prior_billed"`
	PriorLines     int64   `json:"prior_lines"`

	// Optional trend-display values; zero when the source has no M3 columns.
	ThirdBilled float64 `json:"third_billed,omitempty"`
	ThirdLines  int64   `json:"third_lines,omitempty"`
	HasThird    bool    `json:"has_third,omitempty"`

	SourceFile string `json:"source_file,omitempty"`
	SourceRow  int    `json:"source_row,omitempty"`
}

// Period identifies one calendar month.
type Period struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// PeriodOf returns the month containing t.
func PeriodOf(t time.Time) Period {
	return Period{Year: t.Year(), Month: t.Month()}
}

// AddMonths returns the period n months after p (n may be negative).
func (p Period) AddMonths(n int) Period {
	t := time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	return PeriodOf(t)
}

// Before reports whether p is strictly earlier than o.
func (p Period) Before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

// String formats the period as "2006-01".
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Default detection thresholds.
const (
	DefaultMinAmount          = 10_000_000
	DefaultMinLines           = 500
	DefaultChangeThresholdPct = 15
)

// ErrInvalidThresholds is returned by Thresholds.Validate.
var ErrInvalidThresholds = errors.New("model: invalid thresholds")

// Thresholds configures anomaly detection. The detector trusts these values;
// callers validate them once at the boundary.
type Thresholds struct {
	MinAmount          float64 `json:"min_amount"`
	MinLines           int64   `json:"min_lines"`
	ChangeThresholdPct float64 `json:"change_threshold_pct"`
}

// DefaultThresholds returns the stock detection thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinAmount:          DefaultMinAmount,
		MinLines:           DefaultMinLines,
		ChangeThresholdPct: DefaultChangeThresholdPct,
	}
}

// Validate rejects negative thresholds.
func (t Thresholds) Validate() error {
	switch {
	case t.MinAmount < 0:
		return fmt.Errorf("%w: min_amount %.0f is negative", ErrInvalidThresholds, t.MinAmount)
	case t.MinLines < 0:
		return fmt.Errorf("%w: min_lines %d is negative", ErrInvalidThresholds, t.MinLines)
	case t.ChangeThresholdPct < 0:
		return fmt.Errorf("%w: change_threshold_pct %.1f is negative", ErrInvalidThresholds, t.ChangeThresholdPct)
	}
	return nil
}
