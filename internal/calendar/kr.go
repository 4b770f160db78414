package calendar

import (
	"fmt"
	"strings"
	"time"
)

// JurisdictionKR is the jurisdiction code for the Republic of Korea.
const JurisdictionKR = "KR"

// krHolidays lists Korean public holidays including lunar holidays,
// election days, temporary holidays and substitute holidays.
var krHolidays = map[int][]struct {
	month time.Month
	day   int
	name  string
}{
	2024: {
		{time.January, 1, "New Year's Day"},
		{time.February, 9, "Seollal"},
		{time.February, 10, "Seollal"},
		{time.February, 11, "Seollal"},
		{time.February, 12, "Seollal (substitute)"},
		{time.March, 1, "Independence Movement Day"},
		{time.April, 10, "National Assembly Election Day"},
		{time.May, 5, "Children's Day"},
		{time.May, 6, "Children's Day (substitute)"},
		{time.May, 15, "Buddha's Birthday"},
		{time.June, 6, "Memorial Day"},
		{time.August, 15, "Liberation Day"},
		{time.September, 16, "Chuseok"},
		{time.September, 17, "Chuseok"},
		{time.September, 18, "Chuseok"},
		{time.October, 1, "Armed Forces Day (temporary)"},
		{time.October, 3, "National Foundation Day"},
		{time.October, 9, "Hangul Day"},
		{time.December, 25, "Christmas Day"},
	},
	2025: {
		{time.January, 1, "New Year's Day"},
		{time.January, 27, "Temporary Holiday"},
		{time.January, 28, "Seollal"},
		{time.January, 29, "Seollal"},
		{time.January, 30, "Seollal"},
		{time.March, 1, "Independence Movement Day"},
		{time.March, 3, "Independence Movement Day (substitute)"},
		{time.May, 5, "Children's Day, Buddha's Birthday"},
		{time.May, 6, "Buddha's Birthday (substitute)"},
		{time.June, 3, "Presidential Election Day"},
		{time.June, 6, "Memorial Day"},
		{time.August, 15, "Liberation Day"},
		{time.October, 3, "National Foundation Day"},
		{time.October, 5, "Chuseok"},
		{time.October, 6, "Chuseok"},
		{time.October, 7, "Chuseok"},
		{time.October, 8, "Chuseok (substitute)"},
		{time.October, 9, "Hangul Day"},
		{time.December, 25, "Christmas Day"},
	},
	2026: {
		{time.January, 1, "New Year's Day"},
		{time.February, 16, "Seollal"},
		{time.February, 17, "Seollal"},
		{time.February, 18, "Seollal"},
		{time.March, 1, "Independence Movement Day"},
		{time.March, 2, "Independence Movement Day (substitute)"},
		{time.May, 5, "Children's Day"},
		{time.May, 24, "Buddha's Birthday"},
		{time.May, 25, "Buddha's Birthday (substitute)"},
		{time.June, 3, "Local Election Day"},
		{time.June, 6, "Memorial Day"},
		{time.August, 15, "Liberation Day"},
		{time.August, 17, "Liberation Day (substitute)"},
		{time.September, 24, "Chuseok"},
		{time.September, 25, "Chuseok"},
		{time.September, 26, "Chuseok"},
		{time.October, 3, "National Foundation Day"},
		{time.October, 5, "National Foundation Day (substitute)"},
		{time.October, 9, "Hangul Day"},
		{time.December, 25, "Christmas Day"},
	},
}

// KR is the built-in Korean holiday provider.
type KR struct{}

// HolidaysFor returns Korean holidays for years. Years without table data
// fail with ErrYearOutOfRange.
func (KR) HolidaysFor(jurisdiction string, years []int) (HolidaySet, error) {
	if !strings.EqualFold(strings.TrimSpace(jurisdiction), JurisdictionKR) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedJurisdiction, jurisdiction)
	}
	out := HolidaySet{}
	for _, y := range years {
		entries, ok := krHolidays[y]
		if !ok {
			lo, hi := KRYearRange()
			return nil, fmt.Errorf("%w: %d (KR data covers %d-%d)", ErrYearOutOfRange, y, lo, hi)
		}
		for _, e := range entries {
			out[Date{Year: y, Month: e.month, Day: e.day}] = e.name
		}
	}
	return out, nil
}

// KRYearRange returns the first and last year of the built-in table.
func KRYearRange() (first, last int) {
	for y := range krHolidays {
		if first == 0 || y < first {
			first = y
		}
		if y > last {
			last = y
		}
	}
	return first, last
}

// JurisdictionNone selects a calendar with weekends only.
const JurisdictionNone = "NONE"

// Jurisdictions lists the codes ForJurisdiction accepts.
var Jurisdictions = []string{JurisdictionKR, JurisdictionNone}

// ForJurisdiction returns the built-in provider for a jurisdiction code,
// merged with extra. JurisdictionNone yields weekends only.
func ForJurisdiction(jurisdiction string, extra HolidaySet) (Provider, error) {
	var base Provider
	switch strings.ToUpper(strings.TrimSpace(jurisdiction)) {
	case JurisdictionKR:
		base = KR{}
	case JurisdictionNone:
		base = Empty{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedJurisdiction, jurisdiction)
	}
	if len(extra) == 0 {
		return base, nil
	}
	return Merge(base, Static{Holidays: extra}), nil
}
