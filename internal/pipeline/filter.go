package pipeline

import (
	"strings"

	"github.com/theirongolddev/cbill/internal/model"
)

// FilterRecordsByLOB returns records whose LOB contains lob (case-insensitive).
func FilterRecordsByLOB(records []model.BillingRecord, lob string) []model.BillingRecord {
	if lob == "" {
		return records
	}
	var result []model.BillingRecord
	for _, r := range records {
		if containsIgnoreCase(r.LOB, lob) {
			result = append(result, r)
		}
	}
	return result
}

// FilterByLOB returns anomalies whose LOB contains lob (case-insensitive).
func FilterByLOB(anomalies []model.AnomalyRecord, lob string) []model.AnomalyRecord {
	if lob == "" {
		return anomalies
	}
	var result []model.AnomalyRecord
	for _, a := range anomalies {
		if containsIgnoreCase(a.LOB, lob) {
			result = append(result, a)
		}
	}
	return result
}

// FilterByCategory returns anomalies carrying a label that contains category.
func FilterByCategory(anomalies []model.AnomalyRecord, category string) []model.AnomalyRecord {
	if category == "" {
		return anomalies
	}
	var result []model.AnomalyRecord
	for _, a := range anomalies {
		for _, c := range a.Categories {
			if containsIgnoreCase(string(c), category) {
				result = append(result, a)
				break
			}
		}
	}
	return result
}

// FilterBySeverity returns anomalies in the given tier. An empty tier matches all.
func FilterBySeverity(anomalies []model.AnomalyRecord, sev model.Severity) []model.AnomalyRecord {
	if sev == "" {
		return anomalies
	}
	var result []model.AnomalyRecord
	for _, a := range anomalies {
		if strings.EqualFold(string(a.Severity), string(sev)) {
			result = append(result, a)
		}
	}
	return result
}

// TrendPoint is one month of a record's billing history.
type TrendPoint struct {
	Label  string
	Billed float64
	Lines  int64
}

// TrendSeries returns a record's M3, M2, M1 values oldest first. M3 is
// omitted when the source had no third-period columns.
func TrendSeries(r model.BillingRecord) []TrendPoint {
	var pts []TrendPoint
	if r.HasThird {
		pts = append(pts, TrendPoint{Label: "M3", Billed: r.ThirdBilled, Lines: r.ThirdLines})
	}
	return append(pts,
		TrendPoint{Label: "M2", Billed: r.PriorBilled, Lines: r.PriorLines},
		TrendPoint{Label: "M1", Billed: r.BilledAmount, Lines: r.Lines},
	)
}

func containsIgnoreCase(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
