package domain

import "time"

// GrowingThreshold is the minimum temperature (°C) a day must exceed to count as growing.
const GrowingThreshold = 5.0

// fullSeasonShare is the share of growing days at which a location is treated
// as growing all year round.
const fullSeasonShare = 0.95

const fullSeasonDays = 365

// GrowingSeason is the representative growing window. Start and End are nil
// when no day in the dataset qualifies.
type GrowingSeason struct {
	Start      *Date `json:"start" yaml:"start"`
	End        *Date `json:"end" yaml:"end"`
	LengthDays int   `json:"length_days" yaml:"length_days"`
}

func isGrowingDay(r DailyRecord) bool {
	return r.TempMin != nil && *r.TempMin > GrowingThreshold
}

// EstimateGrowingSeason averages each year's first and last growing day and
// growing-day count. Datasets where at least 95% of days are growing days get
// a full January to December season.
func EstimateGrowingSeason(ds Dataset) GrowingSeason {
	type yearSeason struct {
		first Date
		last  Date
		count int
	}
	perYear := make(map[int]*yearSeason)
	growing := 0
	for _, r := range ds {
		if !isGrowingDay(r) {
			continue
		}
		growing++
		year := r.Date.Year()
		ys, ok := perYear[year]
		if !ok {
			perYear[year] = &yearSeason{first: r.Date, last: r.Date, count: 1}
			continue
		}
		ys.count++
		if r.Date.Before(ys.first.Time) {
			ys.first = r.Date
		}
		if r.Date.After(ys.last.Time) {
			ys.last = r.Date
		}
	}

	if growing == 0 {
		return GrowingSeason{}
	}

	ref := ds.referenceYear()
	if float64(growing)/float64(len(ds)) >= fullSeasonShare {
		start := NewDate(ref, time.January, 1)
		end := NewDate(ref, time.December, 31)
		return GrowingSeason{Start: &start, End: &end, LengthDays: fullSeasonDays}
	}

	var (
		starts, ends dayAverager
		lengths      meanAcc
	)
	for _, year := range ds.years() {
		ys, ok := perYear[year]
		if !ok {
			continue
		}
		starts.add(ys.first)
		ends.add(ys.last)
		n := float64(ys.count)
		lengths.add(&n)
	}
	avgLength, _ := lengths.value()

	return GrowingSeason{
		Start:      starts.date(ref),
		End:        ends.date(ref),
		LengthDays: roundHalfUp(avgLength),
	}
}
