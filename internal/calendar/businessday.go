package calendar

import (
	"fmt"
	"time"

	"github.com/theirongolddev/cbill/internal/model"
)

// BusinessDays classifies every day of year/month as weekend, holiday or
// business day. Weekend takes precedence: a holiday falling on Saturday or
// Sunday counts only as a weekend day. Missing holiday data is an error.
func BusinessDays(p Provider, jurisdiction string, year int, month time.Month) (model.BusinessDayReport, error) {
	if month < time.January || month > time.December {
		return model.BusinessDayReport{}, fmt.Errorf("%w: %d", ErrInvalidMonth, int(month))
	}

	holidays, err := p.HolidaysFor(jurisdiction, []int{year})
	if err != nil {
		return model.BusinessDayReport{}, fmt.Errorf("holidays for %04d-%02d: %w", year, int(month), err)
	}

	r := model.BusinessDayReport{Year: year, Month: month}
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	next := first.AddDate(0, 1, 0)

	for d := first; d.Before(next); d = d.AddDate(0, 0, 1) {
		r.TotalDays++
		switch wd := d.Weekday(); {
		case wd == time.Saturday || wd == time.Sunday:
			r.WeekendDays++
		default:
			if name, ok := holidays.Name(DateOf(d)); ok {
				r.HolidayDays++
				r.Holidays = append(r.Holidays, model.Holiday{Date: d, Name: name})
				continue
			}
			r.BusinessDays++
		}
	}
	return r, nil
}

// MonthRange computes reports for each period in order.
func MonthRange(p Provider, jurisdiction string, periods []model.Period) ([]model.BusinessDayReport, error) {
	out := make([]model.BusinessDayReport, 0, len(periods))
	for _, per := range periods {
		r, err := BusinessDays(p, jurisdiction, per.Year, per.Month)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, nil
}

// Trend pairs each report with its change from the previous one.
// Reports must be in chronological order.
func Trend(reports []model.BusinessDayReport) []model.BusinessDayTrend {
	out := make([]model.BusinessDayTrend, len(reports))
	for i, r := range reports {
		out[i].Report = r
		if i == 0 {
			continue
		}
		prev := reports[i-1].BusinessDays
		out[i].HasPrevious = true
		out[i].DeltaDays = r.BusinessDays - prev
		if prev > 0 {
			out[i].DeltaPct = float64(out[i].DeltaDays) / float64(prev) * 100
		}
	}
	return out
}
