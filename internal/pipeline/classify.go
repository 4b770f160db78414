package pipeline

import "github.com/theirongolddev/cbill/internal/model"

// ARPU bounds for the low/high ARPU labels.
const (
	LowARPUBelow  = 1_000.0
	HighARPUAbove = 50_000.0
)

// Classify labels a flagged record. Labels come in a fixed order: billed
// direction, line direction, high-value request, ARPU band. A record that
// matches no rule gets CategoryOther.
func Classify(a model.AnomalyRecord, th model.Thresholds) []model.Category {
	var cats []model.Category

	switch {
	case a.BilledChangePct >= th.ChangeThresholdPct && a.BilledChangePct > 0:
		cats = append(cats, model.CategoryBilledSurge)
	case a.BilledChangePct <= -th.ChangeThresholdPct && a.BilledChangePct < 0:
		cats = append(cats, model.CategoryBilledDrop)
	}

	switch {
	case a.LineChangePct >= th.ChangeThresholdPct && a.LineChangePct > 0:
		cats = append(cats, model.CategoryLineSurge)
	case a.LineChangePct <= -th.ChangeThresholdPct && a.LineChangePct < 0:
		cats = append(cats, model.CategoryLineDrop)
	}

	if a.RequestedAmount >= th.MinAmount {
		cats = append(cats, model.CategoryHighValue)
	}

	switch {
	case a.ARPU < LowARPUBelow:
		cats = append(cats, model.CategoryLowARPU)
	case a.ARPU > HighARPUAbove:
		cats = append(cats, model.CategoryHighARPU)
	}

	if len(cats) == 0 {
		cats = []model.Category{model.CategoryOther}
	}
	return cats
}
