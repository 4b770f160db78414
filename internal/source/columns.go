package source

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrMissingColumns is returned when a table lacks required columns.
var ErrMissingColumns = errors.New("source: missing required columns")

// Column identifies one logical input column.
type Column int

// Logical columns of a billing table.
const (
	ColItemID Column = iota
	ColItemName
	ColUnitServiceName
	ColLOB
	ColReportDate
	ColRequested
	ColPriorRequested
	ColLines
	ColPriorLines
	ColBilled
	ColPriorBilled
	ColThirdBilled
	ColThirdLines
	numColumns
)

type columnDef struct {
	name     string
	aliases  []string // normalized header forms
	required bool
}

var columnDefs = [numColumns]columnDef{
	ColItemID:          {"item_id", []string{"청구항목id", "itemid", "item_id"}, false},
	ColItemName:        {"item_name", []string{"청구항목명", "itemname", "item_name"}, true},
	ColUnitServiceName: {"unit_service_name", []string{"단위서비스명", "unitservicename", "unit_service_name"}, false},
	ColLOB:             {"lob", []string{"lob"}, true},
	ColReportDate:      {"report_month", []string{"기준월", "reportmonth", "report_month", "month"}, false},
	ColRequested:       {"m1_requested", []string{"m1요청금액", "m1requestedamount", "m1_requested"}, true},
	ColPriorRequested:  {"m2_requested", []string{"m2요청금액", "m2requestedamount", "m2_requested"}, true},
	ColLines:           {"m1_lines", []string{"m1월회선수", "m1lines", "m1_lines"}, true},
	ColPriorLines:      {"m2_lines", []string{"m2월회선수", "m2lines", "m2_lines"}, true},
	ColBilled:          {"m1_billed", []string{"m1청구금액", "m1billedamount", "m1_billed"}, true},
	ColPriorBilled:     {"m2_billed", []string{"m2청구금액", "m2billedamount", "m2_billed"}, true},
	ColThirdBilled:     {"m3_billed", []string{"m3청구금액", "m3billedamount", "m3_billed"}, false},
	ColThirdLines:      {"m3_lines", []string{"m3월회선수", "m3lines", "m3_lines"}, false},
}

var aliasIndex = func() map[string]Column {
	m := make(map[string]Column)
	for c, def := range columnDefs {
		for _, a := range def.aliases {
			m[a] = Column(c)
		}
	}
	return m
}()

// NormalizeHeader trims whitespace and a UTF-8 BOM, lower-cases, and removes
// interior spaces.
func NormalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.TrimSpace(h)
	h = strings.ToLower(h)
	return strings.ReplaceAll(h, " ", "")
}

// Layout maps logical columns to positions in a header row. Absent columns are -1.
type Layout [numColumns]int

// Has reports whether column c was found.
func (l Layout) Has(c Column) bool { return l[c] >= 0 }

// ResolveLayout matches a header row against the known column aliases.
// The first occurrence of a column wins.
func ResolveLayout(header []string) (Layout, error) {
	var l Layout
	for i := range l {
		l[i] = -1
	}
	for pos, h := range header {
		c, ok := aliasIndex[NormalizeHeader(h)]
		if ok && l[c] < 0 {
			l[c] = pos
		}
	}

	var missing []string
	for c, def := range columnDefs {
		if def.required && l[c] < 0 {
			missing = append(missing, def.name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return l, fmt.Errorf("%w: %s", ErrMissingColumns, strings.Join(missing, ", "))
	}
	return l, nil
}
