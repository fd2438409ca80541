package domain

import "time"

// daysPerMonth scales an average daily precipitation to an approximate monthly total.
const daysPerMonth = 30

// daylightHours is the fixed day length used for the sunshine-hours estimate.
const daylightHours = 12

// MonthlyAggregate summarizes one calendar month across all years.
type MonthlyAggregate struct {
	TempAvg     float64 `json:"temp_avg" yaml:"temp_avg"`
	PrecipTotal float64 `json:"precip_total" yaml:"precip_total"`
	DayCount    int     `json:"day_count" yaml:"day_count"`
}

// SeasonalMetrics holds the rainfall, temperature and sky aggregates of a report.
// Pointer fields are nil when no record carried the underlying value.
type SeasonalMetrics struct {
	AnnualRainfall           float64     `json:"annual_rainfall" yaml:"annual_rainfall"`
	AvgTempMin               *float64    `json:"avg_temp_min" yaml:"avg_temp_min"`
	AvgTempMax               *float64    `json:"avg_temp_max" yaml:"avg_temp_max"`
	AvgHumidity              *float64    `json:"avg_humidity" yaml:"avg_humidity"`
	AvgWindSpeed             *float64    `json:"avg_wind_speed" yaml:"avg_wind_speed"`
	EstimatedSunshinePercent *float64    `json:"estimated_sunshine_percent" yaml:"estimated_sunshine_percent"`
	SunshineHoursPerDay      *float64    `json:"sunshine_hours_per_day" yaml:"sunshine_hours_per_day"`
	WettestMonth             string      `json:"wettest_month" yaml:"wettest_month"`
	WettestMonthPrecip       float64     `json:"wettest_month_precip" yaml:"wettest_month_precip"`
	DriestMonth              string      `json:"driest_month" yaml:"driest_month"`
	DriestMonthPrecip        float64     `json:"driest_month_precip" yaml:"driest_month_precip"`
	MonthlyPrecipPattern     [12]float64 `json:"monthly_precip_pattern" yaml:"monthly_precip_pattern"`
}

type meanAcc struct {
	sum float64
	n   int
}

func (m *meanAcc) add(v *float64) {
	if v == nil {
		return
	}
	m.sum += *v
	m.n++
}

func (m meanAcc) value() (float64, bool) {
	if m.n == 0 {
		return 0, false
	}
	return m.sum / float64(m.n), true
}

func (m meanAcc) ptr() *float64 {
	v, ok := m.value()
	if !ok {
		return nil
	}
	return &v
}

// monthStats accumulates one calendar month over every year in the dataset.
type monthStats struct {
	temp   meanAcc
	precip meanAcc
	days   int
}

// collectMonths groups a date-sorted dataset by calendar month, ignoring year.
func collectMonths(sorted Dataset) [12]monthStats {
	var months [12]monthStats
	for _, r := range sorted {
		m := &months[r.Date.Month()-1]
		m.days++
		m.precip.add(r.Precipitation)
		if t, ok := r.meanTemp(); ok {
			m.temp.add(&t)
		}
	}
	return months
}

// MonthlyNormals returns the per-month temperature mean, precipitation total
// and day count. Months without data are zero.
func MonthlyNormals(ds Dataset) [12]MonthlyAggregate {
	return monthlyNormals(collectMonths(ds.sorted()))
}

func monthlyNormals(months [12]monthStats) [12]MonthlyAggregate {
	var out [12]MonthlyAggregate
	for i, m := range months {
		avg, _ := m.temp.value()
		out[i] = MonthlyAggregate{
			TempAvg:     avg,
			PrecipTotal: m.precip.sum,
			DayCount:    m.days,
		}
	}
	return out
}

// AnnualRainfall is total precipitation divided by the number of distinct
// calendar years present.
func AnnualRainfall(ds Dataset) float64 {
	return annualRainfall(ds.sorted())
}

func annualRainfall(sorted Dataset) float64 {
	years := len(sorted.years())
	if years == 0 {
		return 0
	}
	var total float64
	for _, r := range sorted {
		if r.Precipitation != nil {
			total += *r.Precipitation
		}
	}
	return total / float64(years)
}

// AggregateSeasonal computes rainfall, means and the monthly precipitation pattern.
func AggregateSeasonal(ds Dataset) SeasonalMetrics {
	sorted := ds.sorted()

	var tMin, tMax, humidity, wind, cloud meanAcc
	for _, r := range sorted {
		tMin.add(r.TempMin)
		tMax.add(r.TempMax)
		humidity.add(r.Humidity)
		wind.add(r.WindSpeed)
		cloud.add(r.CloudCover)
	}

	metrics := SeasonalMetrics{
		AnnualRainfall: annualRainfall(sorted),
		AvgTempMin:     tMin.ptr(),
		AvgTempMax:     tMax.ptr(),
		AvgHumidity:    humidity.ptr(),
		AvgWindSpeed:   wind.ptr(),
	}
	months := collectMonths(sorted)
	metrics.MonthlyPrecipPattern = precipPattern(months)

	if avgCloud, ok := cloud.value(); ok {
		pct := 100 - avgCloud
		hours := pct / 100 * daylightHours
		metrics.EstimatedSunshinePercent = &pct
		metrics.SunshineHoursPerDay = &hours
	}

	if !hasPrecipitation(months) {
		return metrics
	}

	wettest, driest := 0, 0
	for i, v := range metrics.MonthlyPrecipPattern {
		if v > metrics.MonthlyPrecipPattern[wettest] {
			wettest = i
		}
		if v < metrics.MonthlyPrecipPattern[driest] {
			driest = i
		}
	}
	metrics.WettestMonth = time.Month(wettest + 1).String()
	metrics.WettestMonthPrecip = metrics.MonthlyPrecipPattern[wettest]
	metrics.DriestMonth = time.Month(driest + 1).String()
	metrics.DriestMonthPrecip = metrics.MonthlyPrecipPattern[driest]

	return metrics
}

func hasPrecipitation(months [12]monthStats) bool {
	for _, m := range months {
		if _, ok := m.precip.value(); ok {
			return true
		}
	}
	return false
}

// precipPattern approximates each month's total as its mean daily precipitation times 30.
func precipPattern(months [12]monthStats) [12]float64 {
	var out [12]float64
	for i, m := range months {
		if avg, ok := m.precip.value(); ok {
			out[i] = avg * daysPerMonth
		}
	}
	return out
}
