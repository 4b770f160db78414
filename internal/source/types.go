package source

import "github.com/theirongolddev/cbill/internal/model"

// Format is the container format of a discovered billing file.
type Format string

// Supported formats.
const (
	FormatCSV  Format = "csv"
	FormatXLSX Format = "xlsx"
)

// DiscoveredFile represents a billing export found during directory scanning.
type DiscoveredFile struct {
	Path   string
	Name   string // path relative to the scanned directory
	Format Format
}

// ParseResult holds the output of parsing a single billing file.
type ParseResult struct {
	Records      []model.BillingRecord
	Rows         int // data rows read, including dropped empty rows
	EmptyRows    int
	CoercedCells int // numeric cells that failed to parse and became 0
	Err          error
}
