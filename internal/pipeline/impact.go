package pipeline

import "github.com/theirongolddev/cbill/internal/model"

// ImpactAnalysis relates each month's business days to the billing and
// flagged records reported in that month. Records are assigned to a month by
// their report date; undated records are ignored.
func ImpactAnalysis(records []model.BillingRecord, anomalies []model.AnomalyRecord, trend []model.BusinessDayTrend) []model.MonthImpact {
	type acc struct {
		records int
		billed  float64
		flagged int
	}
	byMonth := make(map[model.Period]*acc, len(trend))
	for _, t := range trend {
		byMonth[t.Report.Period()] = &acc{}
	}

	for _, r := range records {
		if a := byMonth[periodOfRecord(r)]; a != nil {
			a.records++
			a.billed += r.BilledAmount
		}
	}
	for _, an := range anomalies {
		if a := byMonth[periodOfRecord(an.BillingRecord)]; a != nil {
			a.flagged++
		}
	}

	out := make([]model.MonthImpact, 0, len(trend))
	for _, t := range trend {
		a := byMonth[t.Report.Period()]
		mi := model.MonthImpact{
			Period:              t.Report.Period(),
			BusinessDays:        t.Report.BusinessDays,
			BusinessDayDelta:    t.DeltaDays,
			BusinessDayDeltaPct: t.DeltaPct,
			HolidayDays:         t.Report.HolidayDays,
			HolidayNames:        t.Report.HolidayNames(),
			Records:             a.records,
			FlaggedCount:        a.flagged,
		}
		if a.records > 0 {
			mi.AvgBilledAmount = a.billed / float64(a.records)
		}
		if t.Report.BusinessDays > 0 {
			mi.BilledPerBusinessDay = a.billed / float64(t.Report.BusinessDays)
		}
		out = append(out, mi)
	}
	return out
}

// periodOfRecord returns the month of r's report date, or the zero Period.
func periodOfRecord(r model.BillingRecord) model.Period {
	t, ok := ParseReportDate(r.ReportDate)
	if !ok {
		return model.Period{}
	}
	return model.PeriodOf(t)
}
