package model

// GroupStats holds aggregated billing for one group of records, such as a
// line of business or a unit service.
type GroupStats struct {
	Key              string  `json:"key"`
	Records          int     `json:"records"`
	Flagged          int     `json:"flagged"`
	Billed           float64 `json:"billed"`
	PriorBilled      float64 `json:"prior_billed"`
	BilledChangePct  float64 `json:"billed_change_pct"`
	Lines            int64   `json:"lines"`
	PriorLines       int64   `json:"prior_lines"`
	LineChangePct    float64 `json:"line_change_pct"`
	MaxFlaggedBilled float64 `json:"max_flagged_billed"`
}

// FlaggedShare is the fraction of the group's records that were flagged.
func (s GroupStats) FlaggedShare() float64 {
	if s.Records == 0 {
		return 0
	}
	return float64(s.Flagged) / float64(s.Records)
}
