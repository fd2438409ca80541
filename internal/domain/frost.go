package domain

import (
	"math"
	"time"
)

// FrostThreshold is the minimum temperature (°C) at or below which a day counts as frost.
const FrostThreshold = 0.0

// FrostDates are the average last spring and first autumn frost. Both are nil
// for a frost-free climate.
type FrostDates struct {
	LastSpring *Date `json:"last_spring" yaml:"last_spring"`
	FirstFall  *Date `json:"first_fall" yaml:"first_fall"`
}

// dayAverager averages month and day components independently.
type dayAverager struct {
	months meanAcc
	days   meanAcc
}

func (a *dayAverager) add(d Date) {
	m := float64(d.Month())
	day := float64(d.Day())
	a.months.add(&m)
	a.days.add(&day)
}

// date returns the averaged month/day in year, or nil when nothing was added.
func (a dayAverager) date(year int) *Date {
	m, ok := a.months.value()
	if !ok {
		return nil
	}
	d, _ := a.days.value()
	out := NewDate(year, time.Month(roundHalfUp(m)), roundHalfUp(d))
	return &out
}

func roundHalfUp(v float64) int {
	return int(math.Floor(v + 0.5))
}

// EstimateFrostDates finds per calendar year the latest frost in January to
// June and the earliest frost in July to December, then averages each across
// the years that have one.
func EstimateFrostDates(ds Dataset) FrostDates {
	type yearFrost struct {
		lastSpring *Date
		firstFall  *Date
	}
	perYear := make(map[int]*yearFrost)
	for _, r := range ds {
		if r.TempMin == nil || *r.TempMin > FrostThreshold {
			continue
		}
		year := r.Date.Year()
		yf, ok := perYear[year]
		if !ok {
			yf = &yearFrost{}
			perYear[year] = yf
		}
		d := r.Date
		if d.Month() <= time.June {
			if yf.lastSpring == nil || d.After(yf.lastSpring.Time) {
				yf.lastSpring = &d
			}
			continue
		}
		if yf.firstFall == nil || d.Before(yf.firstFall.Time) {
			yf.firstFall = &d
		}
	}

	var spring, fall dayAverager
	for _, year := range ds.years() {
		yf, ok := perYear[year]
		if !ok {
			continue
		}
		if yf.lastSpring != nil {
			spring.add(*yf.lastSpring)
		}
		if yf.firstFall != nil {
			fall.add(*yf.firstFall)
		}
	}

	ref := ds.referenceYear()
	return FrostDates{
		LastSpring: spring.date(ref),
		FirstFall:  fall.date(ref),
	}
}
