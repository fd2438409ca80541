// Command validate checks a daily weather dataset before it is classified:
// per-year coverage, duplicate dates, inverted min/max temperatures and
// out-of-range values. With -report it also recomputes the climate report and
// compares it with a stored fixture.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -dataset data/mock/temperate_2015_2024.json \
//	  -report data/mock/temperate_2015_2024_report.json \
//	  -lat 51.48
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/JoergFritschi-crypto/garden-climate/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

type options struct {
	datasetPath string
	reportPath  string
	lat         float64
	minCoverage float64
}

func main() {
	var opts options
	flag.StringVar(&opts.datasetPath, "dataset", "", "path to a dataset JSON file (array of daily records)")
	flag.StringVar(&opts.reportPath, "report", "", "optional path to the expected climate report JSON")
	flag.Float64Var(&opts.lat, "lat", math.NaN(), "latitude used when recomputing the report")
	flag.Float64Var(&opts.minCoverage, "min-coverage", 0.95, "minimum share of days each year must cover")
	flag.Parse()

	if opts.datasetPath == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(os.Stdout, opts); code != 0 {
		os.Exit(code)
	}
}

func run(w io.Writer, opts options) int {
	fmt.Fprintln(w, "=== Climate Dataset Validation ===")
	fmt.Fprintln(w)

	ds, err := loadJSON[domain.Dataset](opts.datasetPath)
	if err != nil {
		fmt.Fprintf(w, "FATAL: load dataset: %v\n", err)
		return 1
	}
	summary := domain.InspectCoverage(ds)

	phases := []*phase{
		validateCoverage(summary, opts.minCoverage),
		validateConsistency(summary),
		validateRanges(ds),
	}
	if opts.reportPath != "" {
		expected, err := loadJSON[domain.ClimateReport](opts.reportPath)
		if err != nil {
			fmt.Fprintf(w, "FATAL: load report: %v\n", err)
			return 1
		}
		var latitude *float64
		if !math.IsNaN(opts.lat) {
			latitude = &opts.lat
		}
		phases = append(phases, validateReport(ds, latitude, expected))
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(w, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Records: %d across %d years\n", summary.Records, len(summary.Years))
	for field, n := range summary.Missing {
		if n > 0 {
			fmt.Fprintf(w, "  missing %-14s %d\n", field+":", n)
		}
	}

	// Print detailed errors.
	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(w, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(w, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(w, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(w, "\nValidation FAILED.")
	return 1
}

func loadJSON[T any](path string) (T, error) {
	var v T
	data, err := os.ReadFile(path)
	if err != nil {
		return v, err
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("parse %s: %w", path, err)
	}
	return v, nil
}

// ── Validation phases ──

func validateCoverage(s domain.CoverageSummary, minShare float64) *phase {
	p := &phase{name: "Phase 1: Year coverage"}
	if s.Records == 0 {
		p.errorf("dataset is empty")
		return p
	}
	incomplete := map[int]bool{}
	for _, y := range s.IncompleteYears(minShare) {
		incomplete[y] = true
	}
	for _, y := range s.Years {
		if incomplete[y.Year] {
			p.errorf("%d: %d of %d days (below %.0f%%)", y.Year, y.Days, y.Expected(), minShare*100)
		}
	}
	return p
}

func validateConsistency(s domain.CoverageSummary) *phase {
	p := &phase{name: "Phase 2: Duplicates and inverted temperatures"}
	for _, d := range s.DuplicateDates {
		p.errorf("duplicate date %s", d)
	}
	for _, d := range s.InvertedTemps {
		p.errorf("%s: temp_min above temp_max", d)
	}
	return p
}

// Plausible bounds for surface observations.
const (
	minTemp = -90.0
	maxTemp = 60.0
)

func validateRanges(ds domain.Dataset) *phase {
	p := &phase{name: "Phase 3: Value ranges"}
	for _, r := range ds {
		checkRange(p, r.Date, "temp_min", r.TempMin, minTemp, maxTemp)
		checkRange(p, r.Date, "temp_max", r.TempMax, minTemp, maxTemp)
		checkRange(p, r.Date, "temp_mean", r.TempMean, minTemp, maxTemp)
		checkRange(p, r.Date, "precipitation", r.Precipitation, 0, math.Inf(1))
		checkRange(p, r.Date, "humidity", r.Humidity, 0, 100)
		checkRange(p, r.Date, "wind_speed", r.WindSpeed, 0, math.Inf(1))
		checkRange(p, r.Date, "cloud_cover", r.CloudCover, 0, 100)
	}
	return p
}

func checkRange(p *phase, date domain.Date, field string, v *float64, lo, hi float64) {
	if v == nil {
		return
	}
	if math.IsNaN(*v) || *v < lo || *v > hi {
		p.errorf("%s: %s=%g outside [%g, %g]", date, field, *v, lo, hi)
	}
}

func validateReport(ds domain.Dataset, latitude *float64, expected domain.ClimateReport) *phase {
	p := &phase{name: "Phase 4: Report matches fixture"}
	got := domain.ComputeClimateReport(ds, latitude)
	if diff := cmp.Diff(expected, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		p.errorf("report mismatch (-fixture +computed):\n%s", diff)
	}
	return p
}
