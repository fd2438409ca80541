// Command gendataset writes a deterministic synthetic multi-year daily dataset
// for demos and tests, and optionally the climate report computed from it. It
// uses the domain package so the report matches what the service would return.
//
// Usage:
//
//	go run ./cmd/gendataset \
//	  -out data/mock/temperate_2015_2024.json \
//	  -report-out data/mock/temperate_2015_2024_report.json \
//	  -lat 51.48 -start-year 2015 -years 10
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/JoergFritschi-crypto/garden-climate/internal/domain"
)

// climate shapes the synthetic series: an annual sine around mean with a
// peak in the local summer, plus seeded noise.
type climate struct {
	lat        float64
	mean       float64 // annual mean temperature, °C
	amplitude  float64 // half the summer-winter swing of the daily mean, °C
	diurnal    float64 // half the day-night range, °C
	rainPerDay float64 // mean daily precipitation, mm
	wetMonth   time.Month
	missing    float64 // share of records with a dropped field
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	out := flag.String("out", "", "output path for the dataset JSON")
	reportOut := flag.String("report-out", "", "optional output path for the computed report JSON")
	startYear := flag.Int("start-year", 2015, "first calendar year")
	years := flag.Int("years", 10, "number of calendar years")
	lat := flag.Float64("lat", 51.48, "latitude; negative values shift summer to January")
	mean := flag.Float64("mean", 11, "annual mean temperature in °C")
	amplitude := flag.Float64("amplitude", 7, "seasonal amplitude of the daily mean in °C")
	rain := flag.Float64("rain", 2, "mean daily precipitation in mm")
	missing := flag.Float64("missing", 0.01, "share of records with one missing field")
	seed := flag.Uint64("seed", 1, "random seed")
	flag.Parse()

	if *out == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -out")
	}
	if *years < 1 {
		return fmt.Errorf("-years must be at least 1")
	}

	c := climate{
		lat:        *lat,
		mean:       *mean,
		amplitude:  *amplitude,
		diurnal:    4.5,
		rainPerDay: *rain,
		wetMonth:   time.November,
		missing:    *missing,
	}
	ds := generate(c, *startYear, *years, rand.New(rand.NewPCG(*seed, *seed^0x9e3779b97f4a7c15)))
	log.Printf("generated %d records for %d-%d", len(ds), *startYear, *startYear+*years-1)

	if err := writeJSON(*out, ds); err != nil {
		return fmt.Errorf("writing dataset: %w", err)
	}
	log.Printf("wrote dataset: %s", *out)

	report := domain.ComputeClimateReport(ds, lat)
	if *reportOut != "" {
		if err := writeJSON(*reportOut, report); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		log.Printf("wrote report: %s", *reportOut)
	}

	printStats(report)
	return nil
}

// generate produces one record per day of the given years.
func generate(c climate, startYear, years int, rng *rand.Rand) domain.Dataset {
	start := time.Date(startYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(startYear+years, time.January, 1, 0, 0, 0, 0, time.UTC)

	// Day of year of the warmest day: mid-July north, mid-January south.
	peak := 196.0
	if c.lat < 0 {
		peak = 15
	}

	ds := make(domain.Dataset, 0, int(end.Sub(start).Hours()/24))
	for t := start; t.Before(end); t = t.AddDate(0, 0, 1) {
		phase := 2 * math.Pi * (float64(t.YearDay()) - peak) / 365.25
		dailyMean := c.mean + c.amplitude*math.Cos(phase) + rng.NormFloat64()*2.5
		spread := c.diurnal + rng.Float64()*2

		precip := 0.0
		wetness := 1.0
		if t.Month() == c.wetMonth {
			wetness = 1.6
		}
		if rng.Float64() < 0.45 {
			precip = rng.ExpFloat64() * c.rainPerDay * wetness / 0.45
		}

		r := domain.DailyRecord{
			Date:          domain.Date{Time: t},
			TempMin:       domain.Float(round1(dailyMean - spread)),
			TempMax:       domain.Float(round1(dailyMean + spread)),
			TempMean:      domain.Float(round1(dailyMean)),
			Precipitation: domain.Float(round1(precip)),
			Humidity:      domain.Float(round1(clamp(78-dailyMean+rng.NormFloat64()*6, 20, 100))),
			WindSpeed:     domain.Float(round1(math.Abs(12 + rng.NormFloat64()*5))),
			CloudCover:    domain.Float(round1(clamp(60+rng.NormFloat64()*20, 0, 100))),
		}
		if rng.Float64() < c.missing {
			dropField(&r, rng.IntN(4))
		}
		ds = append(ds, r)
	}
	return ds
}

func dropField(r *domain.DailyRecord, field int) {
	switch field {
	case 0:
		r.TempMean = nil
	case 1:
		r.Humidity = nil
	case 2:
		r.WindSpeed = nil
	default:
		r.CloudCover = nil
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(r domain.ClimateReport) {
	fmt.Println()
	fmt.Println("=== Dataset Summary ===")
	fmt.Printf("  records:          %d over %d years\n", r.RecordCount, r.YearsCovered)
	fmt.Printf("  coldest minimum:  %.1f °C\n", r.ColdestMinimum)
	fmt.Printf("  USDA / RHS:       %s / %s (%s)\n", r.USDAZone, r.RHSZone, r.HardinessCategory)
	fmt.Printf("  heat zone:        %d\n", r.HeatZone)
	fmt.Printf("  Köppen:           %s\n", r.Koppen)
	fmt.Printf("  annual rainfall:  %.1f mm (wettest %s, driest %s)\n", r.AnnualRainfall, r.WettestMonth, r.DriestMonth)
	fmt.Printf("  growing season:   %d days\n", r.GrowingSeason.LengthDays)
}
