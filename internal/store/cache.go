// Package store provides a SQLite-backed cache for parsed billing records
// and computed business-day reports.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/theirongolddev/cbill/internal/model"

	_ "modernc.org/sqlite" // register sqlite driver
)

// Cache provides SQLite-backed record and business-day caching.
type Cache struct {
	db *sql.DB
}

// Open opens or creates the cache database at the given path.
func Open(dbPath string) (*Cache, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("creating cache dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)")
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Close closes the cache database.
func (c *Cache) Close() error {
	return c.db.Close()
}

// FileInfo holds the tracked state of one parsed file.
type FileInfo struct {
	MtimeNs      int64
	SizeBytes    int64
	Rows         int
	EmptyRows    int
	CoercedCells int
}

// GetTrackedFiles returns a map of file_path -> FileInfo for all tracked files.
func (c *Cache) GetTrackedFiles() (map[string]FileInfo, error) {
	rows, err := c.db.Query("SELECT file_path, mtime_ns, size_bytes, row_count, empty_rows, coerced_cells FROM file_tracker")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	result := make(map[string]FileInfo)
	for rows.Next() {
		var path string
		var fi FileInfo
		if err := rows.Scan(&path, &fi.MtimeNs, &fi.SizeBytes, &fi.Rows, &fi.EmptyRows, &fi.CoercedCells); err != nil {
			return nil, err
		}
		result[path] = fi
	}
	return result, rows.Err()
}

// SaveFile replaces the cached records of one file and updates its tracking info.
func (c *Cache) SaveFile(path string, records []model.BillingRecord, fi FileInfo) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)

	_, err = tx.Exec(`INSERT OR REPLACE INTO file_tracker
		(file_path, mtime_ns, size_bytes, row_count, empty_rows, coerced_cells, parsed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		path, fi.MtimeNs, fi.SizeBytes, fi.Rows, fi.EmptyRows, fi.CoercedCells, now,
	)
	if err != nil {
		return err
	}

	if _, err = tx.Exec("DELETE FROM billing_records WHERE file_path = ?", path); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`INSERT INTO billing_records
		(file_path, source_row, item_id, item_name, unit_service_name, lob, report_date,
		 requested_amount, billed_amount, lines, prior_requested, prior_billed, prior_lines,
		 third_billed, third_lines, has_third)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		hasThird := 0
		if r.HasThird {
			hasThird = 1
		}
		_, err = stmt.Exec(
			path, r.SourceRow, r.ItemID, r.ItemName, r.UnitServiceName, r.LOB, r.ReportDate,
			r.RequestedAmount, r.BilledAmount, r.Lines, r.PriorRequested, r.PriorBilled, r.PriorLines,
			r.ThirdBilled, r.ThirdLines, hasThird,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// LoadAllRecords reads every cached record, ordered by file and row.
func (c *Cache) LoadAllRecords() ([]model.BillingRecord, error) {
	rows, err := c.db.Query(`SELECT
		file_path, source_row, item_id, item_name, unit_service_name, lob, report_date,
		requested_amount, billed_amount, lines, prior_requested, prior_billed, prior_lines,
		third_billed, third_lines, has_third
		FROM billing_records ORDER BY file_path, source_row`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []model.BillingRecord
	for rows.Next() {
		var r model.BillingRecord
		var itemID, unitService, reportDate sql.NullString
		var thirdBilled sql.NullFloat64
		var thirdLines sql.NullInt64
		var hasThird int

		err := rows.Scan(
			&r.SourceFile, &r.SourceRow, &itemID, &r.ItemName, &unitService, &r.LOB, &reportDate,
			&r.RequestedAmount, &r.BilledAmount, &r.Lines, &r.PriorRequested, &r.PriorBilled, &r.PriorLines,
			&thirdBilled, &thirdLines, &hasThird,
		)
		if err != nil {
			return nil, err
		}
		r.ItemID = itemID.String
		r.UnitServiceName = unitService.String
		r.ReportDate = reportDate.String
		r.ThirdBilled = thirdBilled.Float64
		r.ThirdLines = thirdLines.Int64
		r.HasThird = hasThird != 0
		records = append(records, r)
	}
	return records, rows.Err()
}

// DeleteFile removes a file's tracking entry and its records.
func (c *Cache) DeleteFile(path string) error {
	tx, err := c.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec("DELETE FROM billing_records WHERE file_path = ?", path); err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM file_tracker WHERE file_path = ?", path); err != nil {
		return err
	}
	return tx.Commit()
}

// RecordCount returns the number of cached records.
func (c *Cache) RecordCount() (int, error) {
	var count int
	err := c.db.QueryRow("SELECT COUNT(*) FROM billing_records").Scan(&count)
	return count, err
}

// GetBusinessDays returns a cached report for (calendarKey, period).
func (c *Cache) GetBusinessDays(calendarKey string, p model.Period) (model.BusinessDayReport, bool, error) {
	r := model.BusinessDayReport{Year: p.Year, Month: p.Month}
	var holidaysJSON string
	err := c.db.QueryRow(`SELECT total_days, weekend_days, holiday_days, business_days, holidays_json
		FROM business_days WHERE calendar_key = ? AND year = ? AND month = ?`,
		calendarKey, p.Year, int(p.Month),
	).Scan(&r.TotalDays, &r.WeekendDays, &r.HolidayDays, &r.BusinessDays, &holidaysJSON)
	if err == sql.ErrNoRows {
		return model.BusinessDayReport{}, false, nil
	}
	if err != nil {
		return model.BusinessDayReport{}, false, err
	}
	if err := json.Unmarshal([]byte(holidaysJSON), &r.Holidays); err != nil {
		return model.BusinessDayReport{}, false, fmt.Errorf("decoding cached holidays: %w", err)
	}
	return r, true, nil
}

// PutBusinessDays stores a computed report under calendarKey.
func (c *Cache) PutBusinessDays(calendarKey string, r model.BusinessDayReport) error {
	holidays := r.Holidays
	if holidays == nil {
		holidays = []model.Holiday{}
	}
	holidaysJSON, err := json.Marshal(holidays)
	if err != nil {
		return err
	}
	_, err = c.db.Exec(`INSERT OR REPLACE INTO business_days
		(calendar_key, year, month, total_days, weekend_days, holiday_days, business_days, holidays_json, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		calendarKey, r.Year, int(r.Month), r.TotalDays, r.WeekendDays, r.HolidayDays, r.BusinessDays,
		string(holidaysJSON), time.Now().UTC().Format(time.RFC3339),
	)
	return err
}
