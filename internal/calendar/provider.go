// Package calendar provides public-holiday data and business-day counting.
package calendar

import (
	"errors"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"
	"time"

	"github.com/theirongolddev/cbill/internal/model"
)

var (
	// ErrUnsupportedJurisdiction is returned when a provider has no data for a jurisdiction.
	ErrUnsupportedJurisdiction = errors.New("calendar: unsupported jurisdiction")
	// ErrYearOutOfRange is returned when a provider has no holiday data for a year.
	ErrYearOutOfRange = errors.New("calendar: year out of range")
	// ErrInvalidMonth is returned for months outside 1..12.
	ErrInvalidMonth = errors.New("calendar: invalid month")
)

// Date is a calendar day without time or zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return Date{Year: t.Year(), Month: t.Month(), Day: t.Day()}
}

// ParseDate parses "2006-01-02".
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parsing holiday date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Time returns midnight UTC on d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string {
	return d.Time().Format("2006-01-02")
}

// HolidaySet maps each holiday date to its name.
type HolidaySet map[Date]string

// Name returns the holiday name for d, if any.
func (s HolidaySet) Name(d Date) (string, bool) {
	name, ok := s[d]
	return name, ok
}

// Sorted returns the holidays in date order.
func (s HolidaySet) Sorted() []model.Holiday {
	out := make([]model.Holiday, 0, len(s))
	for d, name := range s {
		out = append(out, model.Holiday{Date: d.Time(), Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// Fingerprint returns a short digest of the dates and names in s. Equal sets
// give equal fingerprints regardless of insertion order.
func (s HolidaySet) Fingerprint() string {
	lines := make([]string, 0, len(s))
	for d, name := range s {
		lines = append(lines, d.String()+"="+name)
	}
	sort.Strings(lines)
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.Join(lines, "\n")))
	return fmt.Sprintf("%08x", h.Sum32())
}

// Provider supplies named public holidays for a jurisdiction and set of years.
type Provider interface {
	HolidaysFor(jurisdiction string, years []int) (HolidaySet, error)
}

// Empty returns no holidays for any jurisdiction or year.
type Empty struct{}

// HolidaysFor returns an empty set.
func (Empty) HolidaysFor(string, []int) (HolidaySet, error) {
	return HolidaySet{}, nil
}

// Static is an explicit holiday table. An empty Jurisdiction matches any
// jurisdiction. Years without entries yield no holidays rather than an error,
// so Static is suited to supplementing a full provider via Merge.
type Static struct {
	Jurisdiction string
	Holidays     HolidaySet
}

// HolidaysFor returns the entries of s that fall in years.
func (s Static) HolidaysFor(jurisdiction string, years []int) (HolidaySet, error) {
	if s.Jurisdiction != "" && !strings.EqualFold(s.Jurisdiction, jurisdiction) {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedJurisdiction, jurisdiction)
	}
	want := make(map[int]bool, len(years))
	for _, y := range years {
		want[y] = true
	}
	out := HolidaySet{}
	for d, name := range s.Holidays {
		if want[d.Year] {
			out[d] = name
		}
	}
	return out, nil
}

type merged []Provider

// Merge returns the union of providers. Any provider error fails the lookup.
// When two providers name the same date, the earlier provider wins.
func Merge(providers ...Provider) Provider {
	return merged(providers)
}

func (m merged) HolidaysFor(jurisdiction string, years []int) (HolidaySet, error) {
	out := HolidaySet{}
	for _, p := range m {
		set, err := p.HolidaysFor(jurisdiction, years)
		if err != nil {
			return nil, err
		}
		for d, name := range set {
			if _, ok := out[d]; !ok {
				out[d] = name
			}
		}
	}
	return out, nil
}
