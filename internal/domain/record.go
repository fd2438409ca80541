package domain

import (
	"cmp"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Date is a calendar day in UTC, serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

// NewDate returns the Date for the given calendar day. Out-of-range days are
// normalized the way time.Date does (Feb 30 becomes Mar 1 or 2).
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{t}, nil
}

func (d Date) String() string {
	return d.Format(time.DateOnly)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (d Date) MarshalYAML() (any, error) {
	return d.String(), nil
}

// DailyRecord is one day of observations. Nil fields were not reported.
type DailyRecord struct {
	Date          Date     `json:"date"`
	TempMin       *float64 `json:"temp_min"`       // °C
	TempMax       *float64 `json:"temp_max"`       // °C
	TempMean      *float64 `json:"temp_mean"`      // °C
	Precipitation *float64 `json:"precipitation"`  // mm
	Humidity      *float64 `json:"humidity"`       // %
	WindSpeed     *float64 `json:"wind_speed"`     // km/h as reported by the provider
	CloudCover    *float64 `json:"cloud_cover"`    // %
}

// meanTemp returns the reported daily mean, falling back to the midpoint of
// min and max when only those are present.
func (r DailyRecord) meanTemp() (float64, bool) {
	if r.TempMean != nil {
		return *r.TempMean, true
	}
	if r.TempMin != nil && r.TempMax != nil {
		return (*r.TempMin + *r.TempMax) / 2, true
	}
	return 0, false
}

// Dataset is the daily history for exactly one location.
type Dataset []DailyRecord

// sorted returns a copy ordered by date. Records sharing a date are ordered by
// their values so that the copy is identical for any permutation of the input.
func (ds Dataset) sorted() Dataset {
	out := slices.Clone(ds)
	slices.SortStableFunc(out, compareRecords)
	return out
}

func compareRecords(a, b DailyRecord) int {
	if c := a.Date.Compare(b.Date.Time); c != 0 {
		return c
	}
	for _, pair := range [][2]*float64{
		{a.TempMin, b.TempMin},
		{a.TempMax, b.TempMax},
		{a.TempMean, b.TempMean},
		{a.Precipitation, b.Precipitation},
		{a.Humidity, b.Humidity},
		{a.WindSpeed, b.WindSpeed},
		{a.CloudCover, b.CloudCover},
	} {
		if c := compareOptional(pair[0], pair[1]); c != 0 {
			return c
		}
	}
	return 0
}

func compareOptional(a, b *float64) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	default:
		return cmp.Compare(*a, *b)
	}
}

// years returns the distinct calendar years present, ascending.
func (ds Dataset) years() []int {
	seen := make(map[int]struct{})
	for _, r := range ds {
		seen[r.Date.Year()] = struct{}{}
	}
	out := make([]int, 0, len(seen))
	for y := range seen {
		out = append(out, y)
	}
	slices.Sort(out)
	return out
}

// referenceYear is the year seasonal dates are expressed in: the latest year
// present, or 0 for an empty dataset.
func (ds Dataset) referenceYear() int {
	ref := 0
	for _, r := range ds {
		if y := r.Date.Year(); y > ref {
			ref = y
		}
	}
	return ref
}

// Float returns a pointer to v, convenient for building records.
func Float(v float64) *float64 {
	return &v
}
