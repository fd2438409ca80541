package domain

import "time"

// YearCoverage counts the records reported for one calendar year.
type YearCoverage struct {
	Year int `json:"year"`
	Days int `json:"days"`
}

// Expected returns the number of days in the year.
func (y YearCoverage) Expected() int {
	return time.Date(y.Year, time.December, 31, 0, 0, 0, 0, time.UTC).YearDay()
}

// CoverageSummary describes gaps and inconsistencies in a dataset. The engine
// tolerates all of them; the summary is for operators deciding whether a
// dataset is worth classifying.
type CoverageSummary struct {
	Records        int            `json:"records"`
	Years          []YearCoverage `json:"years"`
	Missing        map[string]int `json:"missing"`
	DuplicateDates []Date         `json:"duplicate_dates,omitempty"`
	InvertedTemps  []Date         `json:"inverted_temps,omitempty"` // TempMin > TempMax
}

// InspectCoverage summarizes per-year day counts, missing fields, duplicate
// dates and days whose minimum exceeds their maximum.
func InspectCoverage(ds Dataset) CoverageSummary {
	sorted := ds.sorted()
	summary := CoverageSummary{
		Records: len(sorted),
		Missing: map[string]int{},
	}

	perYear := map[int]int{}
	var prev *Date
	for i := range sorted {
		r := sorted[i]
		perYear[r.Date.Year()]++

		if prev != nil && prev.Equal(r.Date.Time) {
			if n := len(summary.DuplicateDates); n == 0 || !summary.DuplicateDates[n-1].Equal(r.Date.Time) {
				summary.DuplicateDates = append(summary.DuplicateDates, r.Date)
			}
		}
		prev = &sorted[i].Date

		if r.TempMin != nil && r.TempMax != nil && *r.TempMin > *r.TempMax {
			summary.InvertedTemps = append(summary.InvertedTemps, r.Date)
		}
		countMissing(summary.Missing, "temp_min", r.TempMin)
		countMissing(summary.Missing, "temp_max", r.TempMax)
		countMissing(summary.Missing, "temp_mean", r.TempMean)
		countMissing(summary.Missing, "precipitation", r.Precipitation)
		countMissing(summary.Missing, "humidity", r.Humidity)
		countMissing(summary.Missing, "wind_speed", r.WindSpeed)
		countMissing(summary.Missing, "cloud_cover", r.CloudCover)
	}

	for _, y := range sorted.years() {
		summary.Years = append(summary.Years, YearCoverage{Year: y, Days: perYear[y]})
	}
	return summary
}

func countMissing(counts map[string]int, field string, v *float64) {
	if v == nil {
		counts[field]++
	}
}

// IncompleteYears returns the years covering less than minShare of their days.
func (c CoverageSummary) IncompleteYears(minShare float64) []int {
	var out []int
	for _, y := range c.Years {
		if float64(y.Days) < minShare*float64(y.Expected()) {
			out = append(out, y.Year)
		}
	}
	return out
}
