// Package source discovers and parses CSV and XLSX billing exports.
package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/theirongolddev/cbill/internal/model"
)

// ErrNoHeader is returned for a file with no header row.
var ErrNoHeader = errors.New("source: no header row")

// ParseFile reads one discovered billing file.
func ParseFile(df DiscoveredFile) ParseResult {
	switch df.Format {
	case FormatXLSX:
		return parseXLSX(df)
	default:
		f, err := os.Open(df.Path)
		if err != nil {
			return ParseResult{Err: err}
		}
		defer func() { _ = f.Close() }()
		return ParseCSV(f, df.Path)
	}
}

// ParseCSV reads a CSV billing table from r. sourceName is recorded on each record.
func ParseCSV(r io.Reader, sourceName string) ParseResult {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return ParseResult{Err: fmt.Errorf("reading csv %s: %w", sourceName, err)}
	}
	return parseRows(rows, sourceName)
}

func parseXLSX(df DiscoveredFile) ParseResult {
	f, err := excelize.OpenFile(df.Path)
	if err != nil {
		return ParseResult{Err: fmt.Errorf("opening %s: %w", df.Path, err)}
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return ParseResult{Err: fmt.Errorf("%s: %w", df.Path, ErrNoHeader)}
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return ParseResult{Err: fmt.Errorf("reading sheet %q of %s: %w", sheets[0], df.Path, err)}
	}
	return parseRows(rows, df.Path)
}

// parseRows converts a header row plus data rows into billing records.
// Leading blank rows before the header are skipped.
func parseRows(rows [][]string, sourceName string) ParseResult {
	for len(rows) > 0 && blankRow(rows[0]) {
		rows = rows[1:]
	}
	if len(rows) == 0 {
		return ParseResult{Err: fmt.Errorf("%s: %w", sourceName, ErrNoHeader)}
	}

	layout, err := ResolveLayout(rows[0])
	if err != nil {
		return ParseResult{Err: fmt.Errorf("%s: %w", sourceName, err)}
	}

	var res ParseResult
	res.Records = make([]model.BillingRecord, 0, len(rows)-1)

	for i, row := range rows[1:] {
		res.Rows++
		if blankRow(row) {
			res.EmptyRows++
			continue
		}

		cell := func(c Column) string {
			pos := layout[c]
			if pos < 0 || pos >= len(row) {
				return ""
			}
			return strings.TrimSpace(row[pos])
		}
		amount := func(c Column) float64 {
			v, ok := ParseNumber(cell(c))
			if !ok {
				res.CoercedCells++
			}
			return v
		}
		count := func(c Column) int64 {
			v, ok := ParseNumber(cell(c))
			v = math.Round(v)
			if !ok || v >= math.MaxInt64 || v < math.MinInt64 {
				res.CoercedCells++
				return 0
			}
			return int64(v)
		}

		rec := model.BillingRecord{
			ItemID:          cell(ColItemID),
			ItemName:        cell(ColItemName),
			UnitServiceName: cell(ColUnitServiceName),
			LOB:             cell(ColLOB),
			RequestedAmount: amount(ColRequested),
			PriorRequested:  amount(ColPriorRequested),
			Lines:           count(ColLines),
			PriorLines:      count(ColPriorLines),
			BilledAmount:    amount(ColBilled),
			PriorBilled:     amount(ColPriorBilled),
			SourceFile:      sourceName,
			SourceRow:       i + 2, // 1-based, after header
		}
		if layout.Has(ColReportDate) {
			rec.ReportDate = cell(ColReportDate)
		} else {
			rec.ReportDate = model.PlaceholderReportDate
		}
		if layout.Has(ColThirdBilled) || layout.Has(ColThirdLines) {
			rec.HasThird = true
			if layout.Has(ColThirdBilled) {
				rec.ThirdBilled = amount(ColThirdBilled)
			}
			if layout.Has(ColThirdLines) {
				rec.ThirdLines = count(ColThirdLines)
			}
		}
		res.Records = append(res.Records, rec)
	}
	return res
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// ParseNumber parses a numeric cell tolerantly: thousands separators,
// currency marks, surrounding whitespace and accounting-style parentheses
// are accepted. It returns (0, false) for blank or unparseable input.
func ParseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}

	neg := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		neg = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	s = numberReplacer.Replace(s)
	if s == "" {
		return 0, false
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	if neg {
		v = -v
	}
	return v, true
}

var numberReplacer = strings.NewReplacer(
	",", "",
	" ", "",
	"\u00a0", "",
	"₩", "",
	"$", "",
	"원", "",
	"KRW", "",
	"krw", "",
)
