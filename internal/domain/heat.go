package domain

// HotDayThreshold is the maximum temperature (°C) a day must exceed to count
// toward the heat zone.
const HotDayThreshold = 30.0

// heatBand maps an average number of hot days per year in [minDays, maxDays) to a zone.
type heatBand struct {
	zone    int
	minDays float64
	maxDays float64
}

var heatBands = []heatBand{
	{zone: 1, minDays: 0, maxDays: 1},
	{zone: 2, minDays: 1, maxDays: 7},
	{zone: 3, minDays: 7, maxDays: 14},
	{zone: 4, minDays: 14, maxDays: 30},
	{zone: 5, minDays: 30, maxDays: 45},
	{zone: 6, minDays: 45, maxDays: 60},
	{zone: 7, minDays: 60, maxDays: 90},
	{zone: 8, minDays: 90, maxDays: 120},
	{zone: 9, minDays: 120, maxDays: 150},
	{zone: 10, minDays: 150, maxDays: 180},
	{zone: 11, minDays: 180, maxDays: 210},
	{zone: 12, minDays: 210, maxDays: 365},
}

// HeatZone returns the AHS heat zone (1-12) for the dataset.
func HeatZone(ds Dataset) int {
	return HeatZoneForDays(HotDaysPerYear(ds))
}

// HotDaysPerYear counts days with TempMax above HotDayThreshold and scales the
// count by the record span in years (record count / 365). An empty dataset has
// zero hot days.
func HotDaysPerYear(ds Dataset) float64 {
	if len(ds) == 0 {
		return 0
	}
	hot := 0
	for _, r := range ds {
		if r.TempMax != nil && *r.TempMax > HotDayThreshold {
			hot++
		}
	}
	years := float64(len(ds)) / 365
	return float64(hot) / years
}

// HeatZoneForDays maps an average hot-days-per-year figure to a zone. Values
// beyond every band are zone 12.
func HeatZoneForDays(days float64) int {
	for _, b := range heatBands {
		if days >= b.minDays && days < b.maxDays {
			return b.zone
		}
	}
	return heatBands[len(heatBands)-1].zone
}
