// Command climatereport prints a climate report, either computed from a dataset
// file or fetched for a location from the historical weather API.
//
// Usage:
//
//	go run ./cmd/gendataset -out /tmp/dataset.json
//	go run ./cmd/climatereport -input /tmp/dataset.json -lat 51.48
//	go run ./cmd/climatereport -lat 51.48 -lon -0.30 -years 10 -format yaml
//	MAPBOX_TOKEN=... go run ./cmd/climatereport -location "Kew Gardens"
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/JoergFritschi-crypto/garden-climate/internal/adapter/mapbox"
	"github.com/JoergFritschi-crypto/garden-climate/internal/adapter/openmeteo"
	"github.com/JoergFritschi-crypto/garden-climate/internal/domain"
	"github.com/JoergFritschi-crypto/garden-climate/internal/observability"
	"github.com/JoergFritschi-crypto/garden-climate/internal/pipeline"
)

type options struct {
	input    string
	location string
	lat      float64
	lon      float64
	years    int
	format   string
	baseURL  string
	timeout  time.Duration
	verbose  bool
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 2
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	var out any
	if opts.input != "" {
		out, err = computeFromFile(opts)
	} else {
		out, err = fetchReport(ctx, opts, logger)
	}
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	if err := write(stdout, opts.format, out); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	fs := flag.NewFlagSet("climatereport", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts options
	fs.StringVar(&opts.input, "input", "", "dataset JSON file (array of daily records); computes offline")
	fs.StringVar(&opts.location, "location", "", "place name to geocode (requires MAPBOX_TOKEN)")
	fs.Float64Var(&opts.lat, "lat", math.NaN(), "latitude in degrees")
	fs.Float64Var(&opts.lon, "lon", math.NaN(), "longitude in degrees")
	fs.IntVar(&opts.years, "years", 10, "years of history to fetch")
	fs.StringVar(&opts.format, "format", "json", "output format: json or yaml")
	fs.StringVar(&opts.baseURL, "base-url", openmeteo.DefaultBaseURL, "historical weather API endpoint")
	fs.DurationVar(&opts.timeout, "timeout", 30*time.Second, "weather API request timeout")
	fs.BoolVar(&opts.verbose, "v", false, "verbose logging to stderr")
	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if opts.format != "json" && opts.format != "yaml" {
		return options{}, fmt.Errorf("unknown format %q", opts.format)
	}
	if opts.input == "" && opts.location == "" && (math.IsNaN(opts.lat) || math.IsNaN(opts.lon)) {
		return options{}, errors.New("either -input, -location, or -lat and -lon are required")
	}
	return opts, nil
}

func computeFromFile(opts options) (domain.ClimateReport, error) {
	data, err := os.ReadFile(opts.input)
	if err != nil {
		return domain.ClimateReport{}, err
	}
	var ds domain.Dataset
	if err := json.Unmarshal(data, &ds); err != nil {
		return domain.ClimateReport{}, fmt.Errorf("parse %s: %w", opts.input, err)
	}

	var latitude *float64
	if !math.IsNaN(opts.lat) {
		latitude = &opts.lat
	}
	return domain.ComputeClimateReport(ds, latitude), nil
}

func fetchReport(ctx context.Context, opts options, logger *slog.Logger) (domain.LocationReport, error) {
	metrics := observability.NewMetricsForTesting()

	var geocoder domain.Geocoder
	if token := os.Getenv("MAPBOX_TOKEN"); token != "" {
		geocoder = mapbox.NewClient(token, 5*time.Second, logger, metrics)
	} else if opts.location != "" && math.IsNaN(opts.lat) {
		return domain.LocationReport{}, errors.New("-location requires MAPBOX_TOKEN")
	}

	provider := openmeteo.NewClient(openmeteo.DefaultOptions(opts.baseURL, opts.timeout, 3), logger, metrics)
	service := pipeline.NewReportService(
		provider,
		geocoder,
		pipeline.NewAssembler(true, metrics),
		pipeline.Persistence{},
		pipeline.ServiceConfig{HistoryYears: opts.years},
		logger,
		metrics,
	)

	req := domain.ReportRequest{Location: opts.location, Years: opts.years}
	if !math.IsNaN(opts.lat) && !math.IsNaN(opts.lon) {
		req.Lat = &opts.lat
		req.Lon = &opts.lon
	}
	return service.Generate(ctx, req)
}

func write(w io.Writer, format string, v any) error {
	if format == "yaml" {
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
