package model

import "time"

// Holiday is one named public holiday.
type Holiday struct {
	Date time.Time `json:"date"`
	Name string    `json:"name"`
}

// BusinessDayReport classifies every day of one calendar month.
// TotalDays == WeekendDays + HolidayDays + BusinessDays; a holiday on a
// weekend counts only as a weekend day and is not listed in Holidays.
type BusinessDayReport struct {
	Year         int        `json:"year"`
	Month        time.Month `json:"month"`
	TotalDays    int        `json:"total_days"`
	WeekendDays  int        `json:"weekend_days"`
	HolidayDays  int        `json:"holiday_days"`
	BusinessDays int        `json:"business_days"`
	Holidays     []Holiday  `json:"holidays"`
}

// Period returns the month the report covers.
func (r BusinessDayReport) Period() Period {
	return Period{Year: r.Year, Month: r.Month}
}

// HolidayNames returns the names of the counted holidays in date order.
func (r BusinessDayReport) HolidayNames() []string {
	names := make([]string, len(r.Holidays))
	for i, h := range r.Holidays {
		names[i] = h.Name
	}
	return names
}

// BusinessDayTrend is one month of business days compared to the month before.
// The first month in a window has HasPrevious == false and zero deltas.
type BusinessDayTrend struct {
	Report      BusinessDayReport `json:"report"`
	HasPrevious bool              `json:"has_previous"`
	DeltaDays   int               `json:"delta_days"`
	DeltaPct    float64           `json:"delta_pct"`
}

// ChangeStats holds mean and extrema of a percentage change across flagged records.
type ChangeStats struct {
	Mean float64 `json:"mean"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// CategoryCount is one row of the category frequency distribution.
type CategoryCount struct {
	Category Category `json:"category"`
	Count    int      `json:"count"`
}

// SeverityCount is one row of the severity distribution.
type SeverityCount struct {
	Severity Severity `json:"severity"`
	Count    int      `json:"count"`
}

// SummaryReport aggregates a flagged set. When NoAnomalies is true every
// statistic is zero and the distributions are empty.
type SummaryReport struct {
	NoAnomalies     bool            `json:"no_anomalies"`
	TotalFlagged    int             `json:"total_flagged"`
	CategoryCounts  []CategoryCount `json:"category_counts"`
	SeverityCounts  []SeverityCount `json:"severity_counts"`
	BilledChange    ChangeStats     `json:"billed_change"`
	LineChange      ChangeStats     `json:"line_change"`
	MaxBilledAmount float64         `json:"max_billed_amount"`
	MaxLines        int64           `json:"max_lines"`
}

// TopList is the head of a ranked flagged set plus the count left out.
type TopList struct {
	Items     []AnomalyRecord `json:"items"`
	Remaining int             `json:"remaining"`
}

// Report is the full output of one analysis run.
type Report struct {
	RunID        string             `json:"run_id"`
	GeneratedAt  time.Time          `json:"generated_at"`
	Thresholds   Thresholds         `json:"thresholds"`
	Jurisdiction string             `json:"jurisdiction"`
	RecordCount  int                `json:"record_count"`
	Periods      []Period           `json:"periods"`
	BusinessDays []BusinessDayTrend `json:"business_days"`
	Anomalies    []AnomalyRecord    `json:"anomalies"`
	Top          TopList            `json:"top"`
	Summary      SummaryReport      `json:"summary"`
}

// MonthImpact relates one month's business days to its billing and flags.
type MonthImpact struct {
	Period               Period   `json:"period"`
	BusinessDays         int      `json:"business_days"`
	BusinessDayDelta     int      `json:"business_day_delta"`
	BusinessDayDeltaPct  float64  `json:"business_day_delta_pct"`
	HolidayDays          int      `json:"holiday_days"`
	HolidayNames         []string `json:"holiday_names"`
	Records              int      `json:"records"`
	AvgBilledAmount      float64  `json:"avg_billed_amount"`
	BilledPerBusinessDay float64  `json:"billed_per_business_day"`
	FlaggedCount         int      `json:"flagged_count"`
}
