package pipeline

import (
	"sort"

	"github.com/theirongolddev/cbill/internal/model"
)

// categoryOrder fixes tie-breaking in the category distribution.
var categoryOrder = map[model.Category]int{
	model.CategoryBilledSurge: 0,
	model.CategoryBilledDrop:  1,
	model.CategoryLineSurge:   2,
	model.CategoryLineDrop:    3,
	model.CategoryHighValue:   4,
	model.CategoryLowARPU:     5,
	model.CategoryHighARPU:    6,
	model.CategoryOther:       7,
}

// Summarize computes statistics over a flagged set. An empty set yields
// NoAnomalies with every statistic zero.
func Summarize(anomalies []model.AnomalyRecord) model.SummaryReport {
	if len(anomalies) == 0 {
		return model.SummaryReport{NoAnomalies: true}
	}

	s := model.SummaryReport{TotalFlagged: len(anomalies)}
	catCounts := make(map[model.Category]int)
	sevCounts := make(map[model.Severity]int)

	first := anomalies[0]
	s.BilledChange = model.ChangeStats{Min: first.BilledChangePct, Max: first.BilledChangePct}
	s.LineChange = model.ChangeStats{Min: first.LineChangePct, Max: first.LineChangePct}
	var billedSum, lineSum float64

	for _, a := range anomalies {
		for _, c := range a.Categories {
			catCounts[c]++
		}
		sevCounts[a.Severity]++

		billedSum += a.BilledChangePct
		lineSum += a.LineChangePct
		updateStats(&s.BilledChange, a.BilledChangePct)
		updateStats(&s.LineChange, a.LineChangePct)

		if a.BilledAmount > s.MaxBilledAmount {
			s.MaxBilledAmount = a.BilledAmount
		}
		if a.Lines > s.MaxLines {
			s.MaxLines = a.Lines
		}
	}

	n := float64(len(anomalies))
	s.BilledChange.Mean = billedSum / n
	s.LineChange.Mean = lineSum / n

	for c, count := range catCounts {
		s.CategoryCounts = append(s.CategoryCounts, model.CategoryCount{Category: c, Count: count})
	}
	sort.Slice(s.CategoryCounts, func(i, j int) bool {
		a, b := s.CategoryCounts[i], s.CategoryCounts[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if ra, rb := rankCategory(a.Category), rankCategory(b.Category); ra != rb {
			return ra < rb
		}
		return a.Category < b.Category
	})

	for _, sev := range model.Severities {
		if count := sevCounts[sev]; count > 0 {
			s.SeverityCounts = append(s.SeverityCounts, model.SeverityCount{Severity: sev, Count: count})
		}
	}
	return s
}

func updateStats(st *model.ChangeStats, v float64) {
	if v < st.Min {
		st.Min = v
	}
	if v > st.Max {
		st.Max = v
	}
}

func rankCategory(c model.Category) int {
	if r, ok := categoryOrder[c]; ok {
		return r
	}
	return len(categoryOrder)
}
