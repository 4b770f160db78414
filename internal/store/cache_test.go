package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/theirongolddev/cbill/internal/model"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "nested", "cache.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSaveAndLoadRecords(t *testing.T) {
	c := openTestCache(t)

	recs := []model.BillingRecord{
		{ItemID: "A1", ItemName: "Data", LOB: "Mobile", ReportDate: "2025-06-01",
			RequestedAmount: 12e6, BilledAmount: 36e6, Lines: 1200,
			PriorRequested: 9e6, PriorBilled: 30e6, PriorLines: 1000, SourceRow: 3},
		{ItemName: "Voice", LOB: "Fixed", BilledAmount: 1, Lines: 2,
			HasThird: true, ThirdBilled: 5, ThirdLines: 6, SourceRow: 2},
	}
	fi := FileInfo{MtimeNs: 42, SizeBytes: 100, Rows: 3, EmptyRows: 1, CoercedCells: 2}
	if err := c.SaveFile("/data/a.csv", recs, fi); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}

	tracked, err := c.GetTrackedFiles()
	if err != nil {
		t.Fatal(err)
	}
	if got := tracked["/data/a.csv"]; got != fi {
		t.Errorf("tracked = %+v, want %+v", got, fi)
	}

	loaded, err := c.LoadAllRecords()
	if err != nil {
		t.Fatal(err)
	}
	if len(loaded) != 2 {
		t.Fatalf("loaded %d records, want 2", len(loaded))
	}
	// ordered by source row
	if loaded[0].ItemName != "Voice" || !loaded[0].HasThird || loaded[0].ThirdLines != 6 {
		t.Errorf("first = %+v", loaded[0])
	}
	want := recs[0]
	want.SourceFile = "/data/a.csv"
	if loaded[1] != want {
		t.Errorf("second = %+v\nwant   %+v", loaded[1], want)
	}
}

func TestSaveFileReplacesRecords(t *testing.T) {
	c := openTestCache(t)

	first := []model.BillingRecord{{ItemName: "a", LOB: "x", SourceRow: 2}, {ItemName: "b", LOB: "x", SourceRow: 3}}
	if err := c.SaveFile("f.csv", first, FileInfo{MtimeNs: 1}); err != nil {
		t.Fatal(err)
	}
	second := []model.BillingRecord{{ItemName: "c", LOB: "x", SourceRow: 2}}
	if err := c.SaveFile("f.csv", second, FileInfo{MtimeNs: 2}); err != nil {
		t.Fatal(err)
	}

	n, err := c.RecordCount()
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("RecordCount = %d, want 1", n)
	}

	if err := c.DeleteFile("f.csv"); err != nil {
		t.Fatal(err)
	}
	tracked, _ := c.GetTrackedFiles()
	n, _ = c.RecordCount()
	if len(tracked) != 0 || n != 0 {
		t.Errorf("after delete: tracked=%d records=%d", len(tracked), n)
	}
}

func TestBusinessDayCache(t *testing.T) {
	c := openTestCache(t)
	p := model.Period{Year: 2024, Month: time.April}

	if _, ok, err := c.GetBusinessDays("KR", p); err != nil || ok {
		t.Fatalf("empty cache: ok=%v err=%v", ok, err)
	}

	r := model.BusinessDayReport{
		Year: 2024, Month: time.April, TotalDays: 30, WeekendDays: 8, HolidayDays: 1, BusinessDays: 21,
		Holidays: []model.Holiday{{Date: time.Date(2024, 4, 10, 0, 0, 0, 0, time.UTC), Name: "National Assembly Election Day"}},
	}
	if err := c.PutBusinessDays("KR", r); err != nil {
		t.Fatal(err)
	}

	got, ok, err := c.GetBusinessDays("KR", p)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.BusinessDays != 21 || got.TotalDays != 30 || len(got.Holidays) != 1 {
		t.Fatalf("got %+v", got)
	}
	if !got.Holidays[0].Date.Equal(r.Holidays[0].Date) || got.Holidays[0].Name != r.Holidays[0].Name {
		t.Errorf("holiday = %+v", got.Holidays[0])
	}

	// Keys are independent.
	if _, ok, _ := c.GetBusinessDays("KR+extra", p); ok {
		t.Error("different calendar key should miss")
	}
}
