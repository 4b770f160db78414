// Package export writes finished reports as JSON documents or Excel workbooks.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/theirongolddev/cbill/internal/model"
)

// Sheet names in the exported workbook, in tab order.
const (
	SheetAnomalies    = "Anomalies"
	SheetBusinessDays = "Business Days"
	SheetImpact       = "Impact"
	SheetSummary      = "Summary"
)

// Document is the JSON export: the report plus its business-day impact.
type Document struct {
	model.Report
	Impact []model.MonthImpact `json:"impact,omitempty"`
}

// WriteJSON writes rep and impact as indented JSON.
func WriteJSON(w io.Writer, rep model.Report, impact []model.MonthImpact) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(Document{Report: rep, Impact: impact}); err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}
	return nil
}

// WriteXLSX writes rep and impact as a workbook with one sheet per view.
func WriteXLSX(w io.Writer, rep model.Report, impact []model.MonthImpact) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("creating header style: %w", err)
	}

	sheets := []struct {
		name string
		rows [][]any
	}{
		{SheetAnomalies, anomalyRows(rep.Anomalies)},
		{SheetBusinessDays, businessDayRows(rep.BusinessDays)},
		{SheetImpact, impactRows(impact)},
		{SheetSummary, summaryRows(rep)},
	}

	for i, s := range sheets {
		if i == 0 {
			if err := f.SetSheetName(f.GetSheetName(0), s.name); err != nil {
				return fmt.Errorf("naming sheet %s: %w", s.name, err)
			}
		} else if _, err := f.NewSheet(s.name); err != nil {
			return fmt.Errorf("adding sheet %s: %w", s.name, err)
		}
		if err := writeRows(f, s.name, s.rows); err != nil {
			return err
		}
		if err := f.SetRowStyle(s.name, 1, 1, bold); err != nil {
			return fmt.Errorf("styling sheet %s: %w", s.name, err)
		}
	}
	f.SetActiveSheet(0)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func writeRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return fmt.Errorf("writing %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}

func anomalyRows(items []model.AnomalyRecord) [][]any {
	rows := [][]any{{
		"Rank", "Item ID", "Item Name", "Unit Service", "LOB", "Report Date",
		"Billed", "Prior Billed", "Billed Change %",
		"Lines", "Prior Lines", "Line Change %",
		"Requested", "ARPU", "Severity", "Categories",
	}}
	for i, a := range items {
		rows = append(rows, []any{
			i + 1, a.ItemID, a.ItemName, a.UnitServiceName, a.LOB, a.ReportDate,
			a.BilledAmount, a.PriorBilled, round2(a.BilledChangePct),
			a.Lines, a.PriorLines, round2(a.LineChangePct),
			a.RequestedAmount, round2(a.ARPU), string(a.Severity), model.JoinCategories(a.Categories),
		})
	}
	return rows
}

func businessDayRows(trend []model.BusinessDayTrend) [][]any {
	rows := [][]any{{"Month", "Days", "Weekend", "Holidays", "Business", "Change (days)", "Change %", "Holiday Names"}}
	for _, t := range trend {
		r := t.Report
		var delta, deltaPct any
		if t.HasPrevious {
			delta, deltaPct = t.DeltaDays, round2(t.DeltaPct)
		}
		rows = append(rows, []any{
			r.Period().String(), r.TotalDays, r.WeekendDays, r.HolidayDays, r.BusinessDays,
			delta, deltaPct, strings.Join(r.HolidayNames(), ", "),
		})
	}
	return rows
}

func impactRows(months []model.MonthImpact) [][]any {
	rows := [][]any{{"Month", "Business Days", "Change (days)", "Change %", "Holidays", "Records", "Avg Billed", "Billed per Business Day", "Flagged"}}
	for _, m := range months {
		rows = append(rows, []any{
			m.Period.String(), m.BusinessDays, m.BusinessDayDelta, round2(m.BusinessDayDeltaPct),
			m.HolidayDays, m.Records, round2(m.AvgBilledAmount), round2(m.BilledPerBusinessDay), m.FlaggedCount,
		})
	}
	return rows
}

func summaryRows(rep model.Report) [][]any {
	s := rep.Summary
	th := rep.Thresholds
	rows := [][]any{
		{"Metric", "Value"},
		{"Run ID", rep.RunID},
		{"Generated", rep.GeneratedAt.Format("2006-01-02 15:04:05Z07:00")},
		{"Jurisdiction", rep.Jurisdiction},
		{"Records", rep.RecordCount},
		{"Min amount", th.MinAmount},
		{"Min lines", th.MinLines},
		{"Change threshold %", th.ChangeThresholdPct},
		{"Flagged", s.TotalFlagged},
	}
	if s.NoAnomalies {
		return append(rows, []any{"Result", "No anomalies detected"})
	}
	rows = append(rows,
		[]any{"Billed change mean %", round2(s.BilledChange.Mean)},
		[]any{"Billed change min %", round2(s.BilledChange.Min)},
		[]any{"Billed change max %", round2(s.BilledChange.Max)},
		[]any{"Line change mean %", round2(s.LineChange.Mean)},
		[]any{"Line change min %", round2(s.LineChange.Min)},
		[]any{"Line change max %", round2(s.LineChange.Max)},
		[]any{"Largest billed", s.MaxBilledAmount},
		[]any{"Most lines", s.MaxLines},
	)
	for _, sc := range s.SeverityCounts {
		rows = append(rows, []any{"Severity: " + string(sc.Severity), sc.Count})
	}
	for _, cc := range s.CategoryCounts {
		rows = append(rows, []any{"Category: " + string(cc.Category), cc.Count})
	}
	return rows
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
