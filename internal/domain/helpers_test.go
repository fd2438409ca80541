package domain

import (
	"context"
	"io"
	"log/slog"
	"math"
	"time"
)

// daily builds one record per day from start to end inclusive.
func daily(start, end Date, fill func(d Date) DailyRecord) Dataset {
	var ds Dataset
	for t := start.Time; !t.After(end.Time); t = t.AddDate(0, 0, 1) {
		d := Date{t}
		r := fill(d)
		r.Date = d
		ds = append(ds, r)
	}
	return ds
}

func fullYear(year int, fill func(d Date) DailyRecord) Dataset {
	return daily(NewDate(year, time.January, 1), NewDate(year, time.December, 31), fill)
}

func years(from, to int, fill func(d Date) DailyRecord) Dataset {
	return daily(NewDate(from, time.January, 1), NewDate(to, time.December, 31), fill)
}

func constantTemps(minT, maxT float64) func(Date) DailyRecord {
	return func(Date) DailyRecord {
		return DailyRecord{TempMin: Float(minT), TempMax: Float(maxT)}
	}
}

// temperate is a northern-hemisphere seasonal cycle: mean ~0 °C in mid
// January and ~20 °C in mid July, 2 mm of rain and 60% cloud every day.
func temperate(d Date) DailyRecord {
	doy := float64(d.YearDay())
	mean := 10 - 10*math.Cos(2*math.Pi*(doy-15)/365)
	return DailyRecord{
		TempMin:       Float(mean - 5),
		TempMax:       Float(mean + 5),
		TempMean:      Float(mean),
		Precipitation: Float(2),
		Humidity:      Float(75),
		WindSpeed:     Float(12),
		CloudCover:    Float(60),
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- mock geocoder ---

type mockGeocoder struct {
	forwardResult GeocodingResult
	forwardErr    error
	reverseResult GeocodingResult
	reverseErr    error
	forwardCalls  int
	reverseCalls  int
}

func (m *mockGeocoder) ForwardGeocode(_ context.Context, _ string) (GeocodingResult, error) {
	m.forwardCalls++
	return m.forwardResult, m.forwardErr
}

func (m *mockGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (GeocodingResult, error) {
	m.reverseCalls++
	return m.reverseResult, m.reverseErr
}
