package pipeline

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/theirongolddev/cbill/internal/model"
)

// ErrNoValidPeriod is returned when no report-date value can be parsed.
var ErrNoValidPeriod = errors.New("pipeline: no valid report period")

// PeriodWindow is the number of months analyzed, ending at the anchor month.
const PeriodWindow = 3

var reportDateLayouts = []string{
	"2006-01-02",
	"2006-01",
	"20060102",
	"200601",
	"2006/01/02",
	"2006/01",
	"2006.01.02",
	"2006.01",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// excelEpoch is day zero of spreadsheet serial dates.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// ParseReportDate parses a report-date cell in any of the accepted layouts,
// including spreadsheet serial day numbers.
func ParseReportDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range reportDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	// Serial day numbers from spreadsheets exported without date formatting.
	if len(s) == 5 {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return excelEpoch.AddDate(0, 0, n), true
		}
	}
	return time.Time{}, false
}

// SelectPeriods picks the analysis window from a report-date column: the
// latest parseable date's month and the two months before it, oldest first.
// Unparseable and empty values are ignored.
func SelectPeriods(column []string) ([]model.Period, error) {
	var anchor time.Time
	found := false
	for _, v := range column {
		t, ok := ParseReportDate(v)
		if !ok {
			continue
		}
		if !found || t.After(anchor) {
			anchor = t
			found = true
		}
	}
	if !found {
		return nil, ErrNoValidPeriod
	}

	last := model.PeriodOf(anchor)
	periods := make([]model.Period, PeriodWindow)
	for i := range periods {
		periods[i] = last.AddMonths(i - (PeriodWindow - 1))
	}
	return periods, nil
}

// ReportDates extracts the report-date column from records.
func ReportDates(records []model.BillingRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ReportDate
	}
	return out
}
