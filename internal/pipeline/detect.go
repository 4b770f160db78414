package pipeline

import (
	"math"

	"github.com/theirongolddev/cbill/internal/model"
)

// MinARPU is the lowest ARPU a record may have and still be flagged.
const MinARPU = 0.1

// Derive computes ARPU and period-over-period changes for a record.
// Non-positive denominators and ratios that overflow yield zero rather than
// an error.
func Derive(r model.BillingRecord) model.AnomalyRecord {
	a := model.AnomalyRecord{BillingRecord: r}
	if r.Lines > 0 {
		a.ARPU = finite(r.BilledAmount / float64(r.Lines))
	}
	a.BilledChangePct = pctChange(r.BilledAmount, r.PriorBilled)
	a.LineChangePct = pctChange(float64(r.Lines), float64(r.PriorLines))
	return a
}

func pctChange(cur, prior float64) float64 {
	if prior <= 0 {
		return 0
	}
	return finite((cur - prior) / prior * 100)
}

func finite(v float64) float64 {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return 0
	}
	return v
}

// Predicate is one detection rule. A record is flagged only if every
// predicate holds.
type Predicate struct {
	Name string
	Test func(a model.AnomalyRecord, th model.Thresholds) bool
}

// Predicates lists the detection rules in evaluation order.
var Predicates = []Predicate{
	{"has lines", func(a model.AnomalyRecord, _ model.Thresholds) bool {
		return a.Lines+a.PriorLines > 0
	}},
	{"material request", func(a model.AnomalyRecord, th model.Thresholds) bool {
		return a.RequestedAmount >= th.MinAmount || a.PriorRequested >= th.MinAmount
	}},
	{"enough lines", func(a model.AnomalyRecord, th model.Thresholds) bool {
		return a.Lines > th.MinLines
	}},
	{"minimum ARPU", func(a model.AnomalyRecord, _ model.Thresholds) bool {
		return a.ARPU >= MinARPU
	}},
	{"billed change", func(a model.AnomalyRecord, th model.Thresholds) bool {
		return math.Abs(a.BilledChangePct) >= th.ChangeThresholdPct
	}},
	{"line change", func(a model.AnomalyRecord, th model.Thresholds) bool {
		return math.Abs(a.LineChangePct) >= th.ChangeThresholdPct
	}},
}

// Flagged reports whether a derived record passes every predicate.
func Flagged(a model.AnomalyRecord, th model.Thresholds) bool {
	for _, p := range Predicates {
		if !p.Test(a, th) {
			return false
		}
	}
	return true
}

// FailedPredicate returns the name of the first predicate a record fails,
// or "" if it is flagged.
func FailedPredicate(a model.AnomalyRecord, th model.Thresholds) string {
	for _, p := range Predicates {
		if !p.Test(a, th) {
			return p.Name
		}
	}
	return ""
}

// Detect returns the records that pass every predicate, in input order, each
// classified and given a severity tier. Thresholds are used as given.
func Detect(records []model.BillingRecord, th model.Thresholds) []model.AnomalyRecord {
	var out []model.AnomalyRecord
	for _, r := range records {
		a := Derive(r)
		if !Flagged(a, th) {
			continue
		}
		a.Categories = Classify(a, th)
		a.Severity = model.SeverityFor(a.BilledChangePct)
		out = append(out, a)
	}
	return out
}

// Verdict is a derived record together with the first predicate it fails.
// Flagged records carry their categories and severity and an empty Failed.
type Verdict struct {
	model.AnomalyRecord
	Failed string
}

// Explain evaluates every record, in input order, and reports why each was
// or was not flagged.
func Explain(records []model.BillingRecord, th model.Thresholds) []Verdict {
	out := make([]Verdict, 0, len(records))
	for _, r := range records {
		a := Derive(r)
		v := Verdict{AnomalyRecord: a, Failed: FailedPredicate(a, th)}
		if v.Failed == "" {
			v.Categories = Classify(a, th)
			v.Severity = model.SeverityFor(a.BilledChangePct)
		}
		out = append(out, v)
	}
	return out
}
