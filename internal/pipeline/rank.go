package pipeline

import (
	"sort"

	"github.com/theirongolddev/cbill/internal/model"
)

// DefaultTopN is the number of records listed when no count is given.
const DefaultTopN = 10

// Rank returns a copy of records sorted by signed billed-amount change,
// largest first. Ties keep their input order.
func Rank(records []model.AnomalyRecord) []model.AnomalyRecord {
	out := make([]model.AnomalyRecord, len(records))
	copy(out, records)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].BilledChangePct > out[j].BilledChangePct
	})
	return out
}

// TopN ranks records and returns the first n plus how many were left out.
// n <= 0 means DefaultTopN.
func TopN(records []model.AnomalyRecord, n int) model.TopList {
	if n <= 0 {
		n = DefaultTopN
	}
	ranked := Rank(records)
	if len(ranked) <= n {
		return model.TopList{Items: ranked}
	}
	return model.TopList{Items: ranked[:n], Remaining: len(ranked) - n}
}
