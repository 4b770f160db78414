package pipeline

import (
	"math"
	"testing"

	"github.com/theirongolddev/cbill/internal/model"
)

func TestAggregateLOBs(t *testing.T) {
	records := []model.BillingRecord{
		{ItemID: "1", LOB: "Mobile", BilledAmount: 300, PriorBilled: 200, Lines: 30, PriorLines: 20},
		{ItemID: "2", LOB: "Mobile", BilledAmount: 100, PriorBilled: 200, Lines: 10, PriorLines: 20},
		{ItemID: "3", LOB: "Broadband", BilledAmount: 50, PriorBilled: 0, Lines: 5},
		{ItemID: "4", LOB: "", BilledAmount: 50, PriorBilled: 100},
	}
	anomalies := []model.AnomalyRecord{{BillingRecord: records[0]}}

	got := AggregateLOBs(records, anomalies)
	if len(got) != 3 {
		t.Fatalf("got %d LOBs, want 3: %+v", len(got), got)
	}

	mobile := got[0]
	if mobile.Key != "Mobile" || mobile.Records != 2 || mobile.Flagged != 1 {
		t.Errorf("mobile = %+v", mobile)
	}
	if mobile.Billed != 400 || mobile.BilledChangePct != 0 || mobile.LineChangePct != 0 {
		t.Errorf("mobile totals = %+v", mobile)
	}
	if mobile.MaxFlaggedBilled != 300 {
		t.Errorf("MaxFlaggedBilled = %v", mobile.MaxFlaggedBilled)
	}
	if math.Abs(mobile.FlaggedShare()-0.5) > 1e-9 {
		t.Errorf("FlaggedShare = %v", mobile.FlaggedShare())
	}

	// Equal billed totals sort by name.
	if got[1].Key != "(none)" || got[2].Key != "Broadband" {
		t.Errorf("order = %s, %s", got[1].Key, got[2].Key)
	}
	if got[2].BilledChangePct != 0 {
		t.Errorf("zero prior billed change = %v, want 0", got[2].BilledChangePct)
	}
	if got[1].BilledChangePct != -50 {
		t.Errorf("(none) change = %v, want -50", got[1].BilledChangePct)
	}
}

func TestAggregateLOBs_Empty(t *testing.T) {
	if got := AggregateLOBs(nil, nil); len(got) != 0 {
		t.Errorf("AggregateLOBs(nil) = %+v", got)
	}
}
