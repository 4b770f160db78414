package pipeline

import (
	"sort"

	"github.com/theirongolddev/cbill/internal/model"
)

// AggregateLOBs computes per-LOB billing totals and flagged counts.
func AggregateLOBs(records []model.BillingRecord, anomalies []model.AnomalyRecord) []model.GroupStats {
	return AggregateBy(records, anomalies, func(r model.BillingRecord) string { return r.LOB })
}

// AggregateServices computes per-unit-service billing totals and flagged counts.
func AggregateServices(records []model.BillingRecord, anomalies []model.AnomalyRecord) []model.GroupStats {
	return AggregateBy(records, anomalies, func(r model.BillingRecord) string { return r.UnitServiceName })
}

// AggregateBy groups records and anomalies by key. Records with an empty key
// are grouped under "(none)". Groups are ordered by billed amount descending.
func AggregateBy(records []model.BillingRecord, anomalies []model.AnomalyRecord, key func(model.BillingRecord) string) []model.GroupStats {
	groups := make(map[string]*model.GroupStats)
	get := func(r model.BillingRecord) *model.GroupStats {
		k := key(r)
		if k == "" {
			k = "(none)"
		}
		gs, ok := groups[k]
		if !ok {
			gs = &model.GroupStats{Key: k}
			groups[k] = gs
		}
		return gs
	}

	for _, r := range records {
		ls := get(r)
		ls.Records++
		ls.Billed += r.BilledAmount
		ls.PriorBilled += r.PriorBilled
		ls.Lines += r.Lines
		ls.PriorLines += r.PriorLines
	}
	for _, a := range anomalies {
		ls := get(a.BillingRecord)
		ls.Flagged++
		if a.BilledAmount > ls.MaxFlaggedBilled {
			ls.MaxFlaggedBilled = a.BilledAmount
		}
	}

	out := make([]model.GroupStats, 0, len(groups))
	for _, ls := range groups {
		ls.BilledChangePct = pctChange(ls.Billed, ls.PriorBilled)
		ls.LineChangePct = pctChange(float64(ls.Lines), float64(ls.PriorLines))
		out = append(out, *ls)
	}

	// Sort by billed amount descending
	sort.Slice(out, func(i, j int) bool {
		if out[i].Billed != out[j].Billed {
			return out[i].Billed > out[j].Billed
		}
		return out[i].Key < out[j].Key
	})
	return out
}
