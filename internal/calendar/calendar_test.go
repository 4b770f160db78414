package calendar

import (
	"errors"
	"testing"
	"time"

	"github.com/theirongolddev/cbill/internal/model"
)

func TestBusinessDays_KR(t *testing.T) {
	tests := []struct {
		name         string
		year         int
		month        time.Month
		total        int
		weekend      int
		holiday      int
		business     int
		holidayNames []string
	}{
		{"april 2024 election", 2024, time.April, 30, 8, 1, 21, []string{"National Assembly Election Day"}},
		{"march 2025 weekend holiday", 2025, time.March, 31, 10, 1, 20, []string{"Independence Movement Day (substitute)"}},
		{"june 2025", 2025, time.June, 30, 9, 2, 19, []string{"Presidential Election Day", "Memorial Day"}},
		{"december 2025", 2025, time.December, 31, 8, 1, 22, []string{"Christmas Day"}},
		{"leap february 2024", 2024, time.February, 29, 8, 2, 19, []string{"Seollal", "Seollal (substitute)"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := BusinessDays(KR{}, JurisdictionKR, tt.year, tt.month)
			if err != nil {
				t.Fatalf("BusinessDays: %v", err)
			}
			if r.TotalDays != tt.total || r.WeekendDays != tt.weekend || r.HolidayDays != tt.holiday || r.BusinessDays != tt.business {
				t.Fatalf("got total=%d weekend=%d holiday=%d business=%d, want %d/%d/%d/%d",
					r.TotalDays, r.WeekendDays, r.HolidayDays, r.BusinessDays,
					tt.total, tt.weekend, tt.holiday, tt.business)
			}
			if r.TotalDays != r.WeekendDays+r.HolidayDays+r.BusinessDays {
				t.Fatal("day classes do not sum to total")
			}
			names := r.HolidayNames()
			if len(names) != len(tt.holidayNames) {
				t.Fatalf("holidays = %v, want %v", names, tt.holidayNames)
			}
			for i := range names {
				if names[i] != tt.holidayNames[i] {
					t.Errorf("holiday[%d] = %q, want %q", i, names[i], tt.holidayNames[i])
				}
			}
		})
	}
}

func TestBusinessDays_AllSupportedMonthsSum(t *testing.T) {
	first, last := KRYearRange()
	for y := first; y <= last; y++ {
		for m := time.January; m <= time.December; m++ {
			r, err := BusinessDays(KR{}, "kr", y, m)
			if err != nil {
				t.Fatalf("%d-%02d: %v", y, m, err)
			}
			if r.TotalDays != r.WeekendDays+r.HolidayDays+r.BusinessDays {
				t.Errorf("%d-%02d: classes do not sum", y, m)
			}
			for i := 1; i < len(r.Holidays); i++ {
				if !r.Holidays[i-1].Date.Before(r.Holidays[i].Date) {
					t.Errorf("%d-%02d: holidays out of order", y, m)
				}
			}
			for _, h := range r.Holidays {
				if wd := h.Date.Weekday(); wd == time.Saturday || wd == time.Sunday {
					t.Errorf("%d-%02d: weekend holiday %s listed", y, m, h.Date.Format("2006-01-02"))
				}
			}
		}
	}
}

func TestBusinessDays_EmptyProvider(t *testing.T) {
	r, err := BusinessDays(Empty{}, "anywhere", 2025, time.February)
	if err != nil {
		t.Fatal(err)
	}
	if r.TotalDays != 28 || r.WeekendDays != 8 || r.HolidayDays != 0 || r.BusinessDays != 20 {
		t.Errorf("got %+v", r)
	}
}

func TestBusinessDays_Errors(t *testing.T) {
	if _, err := BusinessDays(KR{}, JurisdictionKR, 2023, time.May); !errors.Is(err, ErrYearOutOfRange) {
		t.Errorf("2023: err = %v, want ErrYearOutOfRange", err)
	}
	if _, err := BusinessDays(KR{}, "JP", 2025, time.May); !errors.Is(err, ErrUnsupportedJurisdiction) {
		t.Errorf("JP: err = %v, want ErrUnsupportedJurisdiction", err)
	}
	if _, err := BusinessDays(KR{}, JurisdictionKR, 2025, time.Month(13)); !errors.Is(err, ErrInvalidMonth) {
		t.Errorf("month 13: err = %v, want ErrInvalidMonth", err)
	}
	if _, err := BusinessDays(KR{}, JurisdictionKR, 2025, time.Month(0)); !errors.Is(err, ErrInvalidMonth) {
		t.Errorf("month 0: err = %v, want ErrInvalidMonth", err)
	}
}

func TestStaticAndMerge(t *testing.T) {
	company := Static{Holidays: HolidaySet{
		{Year: 2025, Month: time.June, Day: 10}: "Company Founding Day",
		{Year: 2025, Month: time.June, Day: 6}:  "Should Not Override",
	}}
	p := Merge(KR{}, company)

	r, err := BusinessDays(p, JurisdictionKR, 2025, time.June)
	if err != nil {
		t.Fatal(err)
	}
	if r.HolidayDays != 3 || r.BusinessDays != 18 {
		t.Fatalf("holiday=%d business=%d, want 3/18", r.HolidayDays, r.BusinessDays)
	}
	want := []string{"Presidential Election Day", "Memorial Day", "Company Founding Day"}
	got := r.HolidayNames()
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("holiday[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	// Merge propagates the range error of any member.
	if _, err := BusinessDays(p, JurisdictionKR, 2030, time.June); !errors.Is(err, ErrYearOutOfRange) {
		t.Errorf("err = %v, want ErrYearOutOfRange", err)
	}

	scoped := Static{Jurisdiction: "KR"}
	if _, err := scoped.HolidaysFor("US", []int{2025}); !errors.Is(err, ErrUnsupportedJurisdiction) {
		t.Errorf("scoped static: err = %v", err)
	}
}

func TestForJurisdiction(t *testing.T) {
	p, err := ForJurisdiction("none", nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := BusinessDays(p, "none", 1999, time.January); err != nil {
		t.Errorf("NONE provider should cover any year: %v", err)
	}
	if _, err := ForJurisdiction("XX", nil); !errors.Is(err, ErrUnsupportedJurisdiction) {
		t.Errorf("err = %v", err)
	}
}

func TestTrend(t *testing.T) {
	reports := []model.BusinessDayReport{
		{Year: 2025, Month: time.April, BusinessDays: 22},
		{Year: 2025, Month: time.May, BusinessDays: 19},
		{Year: 2025, Month: time.June, BusinessDays: 19},
	}
	tr := Trend(reports)
	if tr[0].HasPrevious || tr[0].DeltaDays != 0 {
		t.Errorf("first entry should have no previous: %+v", tr[0])
	}
	if tr[1].DeltaDays != -3 {
		t.Errorf("delta = %d, want -3", tr[1].DeltaDays)
	}
	if got := tr[1].DeltaPct; got > -13.63 || got < -13.64 {
		t.Errorf("delta pct = %.4f, want about -13.636", got)
	}
	if tr[2].DeltaDays != 0 || tr[2].DeltaPct != 0 {
		t.Errorf("flat month: %+v", tr[2])
	}
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate(" 2025-10-09 ")
	if err != nil {
		t.Fatal(err)
	}
	if d != (Date{Year: 2025, Month: time.October, Day: 9}) || d.String() != "2025-10-09" {
		t.Errorf("got %v", d)
	}
	if _, err := ParseDate("10/09/2025"); err == nil {
		t.Error("expected error")
	}
}

func TestHolidaySetFingerprint(t *testing.T) {
	a := HolidaySet{
		{Year: 2024, Month: time.October, Day: 1}: "Armed Forces Day",
		{Year: 2024, Month: time.October, Day: 3}: "National Foundation Day",
	}
	b := HolidaySet{
		{Year: 2024, Month: time.October, Day: 3}: "National Foundation Day",
		{Year: 2024, Month: time.October, Day: 1}: "Armed Forces Day",
	}
	if a.Fingerprint() != b.Fingerprint() {
		t.Error("equal sets gave different fingerprints")
	}
	if len(a.Fingerprint()) != 8 {
		t.Errorf("fingerprint = %q, want 8 hex digits", a.Fingerprint())
	}

	delete(b, Date{Year: 2024, Month: time.October, Day: 1})
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("removing a holiday kept the fingerprint")
	}
	b[Date{Year: 2024, Month: time.October, Day: 1}] = "Temporary Holiday"
	if a.Fingerprint() == b.Fingerprint() {
		t.Error("renaming a holiday kept the fingerprint")
	}
}
