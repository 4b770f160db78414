package summarizer

import (
	"encoding/json"
	"time"

	"github.com/theirongolddev/cbill/internal/model"
)

// Payload is the read-only report data sent for summarization. It carries
// plain values only; wording and formatting are left to the service.
type Payload struct {
	RunID        string                   `json:"run_id"`
	GeneratedAt  time.Time                `json:"generated_at"`
	Jurisdiction string                   `json:"jurisdiction"`
	Thresholds   model.Thresholds         `json:"thresholds"`
	RecordCount  int                      `json:"record_count"`
	BusinessDays []model.BusinessDayTrend `json:"business_days"`
	Flagged      []FlaggedItem            `json:"flagged"`
	Remaining    int                      `json:"remaining"`
	Summary      model.SummaryReport      `json:"summary"`
}

// FlaggedItem is the subset of an anomaly record shared with the service.
type FlaggedItem struct {
	ItemID          string           `json:"item_id"`
	ItemName        string           `json:"item_name"`
	LOB             string           `json:"lob"`
	BilledAmount    float64          `json:"billed_amount"`
	PriorBilled     float64          `json:"prior_billed"`
	Lines           int64            `json:"lines"`
	PriorLines      int64            `json:"prior_lines"`
	ARPU            float64          `json:"arpu"`
	BilledChangePct float64          `json:"billed_change_pct"`
	LineChangePct   float64          `json:"line_change_pct"`
	Categories      []model.Category `json:"categories"`
	Severity        model.Severity   `json:"severity"`
}

// NewPayload extracts the summarizable parts of a report: business days,
// the top-N flagged records and the summary statistics.
func NewPayload(r model.Report) Payload {
	p := Payload{
		RunID:        r.RunID,
		GeneratedAt:  r.GeneratedAt,
		Jurisdiction: r.Jurisdiction,
		Thresholds:   r.Thresholds,
		RecordCount:  r.RecordCount,
		BusinessDays: r.BusinessDays,
		Flagged:      make([]FlaggedItem, 0, len(r.Top.Items)),
		Remaining:    r.Top.Remaining,
		Summary:      r.Summary,
	}
	for _, a := range r.Top.Items {
		p.Flagged = append(p.Flagged, FlaggedItem{
			ItemID:          a.ItemID,
			ItemName:        a.ItemName,
			LOB:             a.LOB,
			BilledAmount:    a.BilledAmount,
			PriorBilled:     a.PriorBilled,
			Lines:           a.Lines,
			PriorLines:      a.PriorLines,
			ARPU:            a.ARPU,
			BilledChangePct: a.BilledChangePct,
			LineChangePct:   a.LineChangePct,
			Categories:      a.Categories,
			Severity:        a.Severity,
		})
	}
	return p
}

// response is the service reply. The prose may arrive under "summary" or
// "text", or the whole body may be a bare JSON string.
type response struct {
	Summary json.RawMessage `json:"summary"`
	Text    json.RawMessage `json:"text"`
}

// Result is a summarization reply.
type Result struct {
	Text       string
	RequestID  string
	ReceivedAt time.Time
}
