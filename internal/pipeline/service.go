package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JoergFritschi-crypto/garden-climate/internal/domain"
	"github.com/JoergFritschi-crypto/garden-climate/internal/observability"
)

// ErrFetchFailed wraps failures of the weather provider.
var ErrFetchFailed = errors.New("fetch weather history")

// ServiceConfig tunes report generation.
type ServiceConfig struct {
	HistoryYears int           // default years of history per report
	MaxAge       time.Duration // stored reports older than this are regenerated
}

// Persistence groups the optional storage collaborators. Nil members are skipped.
type Persistence struct {
	Store   ReportStore
	Cache   ReportCache
	Archive DatasetArchive
}

// ReportService resolves locations, fetches their history and produces reports,
// consulting the cache and store before recomputing.
type ReportService struct {
	provider  WeatherProvider
	geocoder  domain.Geocoder
	assembler *Assembler
	persist   Persistence
	cfg       ServiceConfig
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// NewReportService creates a ReportService. geocoder may be nil, in which case
// only coordinate requests can be served.
func NewReportService(provider WeatherProvider, geocoder domain.Geocoder, assembler *Assembler, persist Persistence, cfg ServiceConfig, logger *slog.Logger, metrics *observability.Metrics) *ReportService {
	return &ReportService{
		provider:  provider,
		geocoder:  geocoder,
		assembler: assembler,
		persist:   persist,
		cfg:       cfg,
		logger:    logger,
		metrics:   metrics,
	}
}

// Generate returns the report for req, from cache or store when a fresh one
// exists and req.Refresh is false, otherwise by fetching and analyzing history.
func (s *ReportService) Generate(ctx context.Context, req domain.ReportRequest) (domain.LocationReport, error) {
	if err := req.Validate(); err != nil {
		return domain.LocationReport{}, err
	}
	years := req.Years
	if years == 0 {
		years = s.cfg.HistoryYears
	}

	loc, err := domain.ResolveLocation(ctx, req, s.geocoder, s.logger)
	if err != nil {
		return domain.LocationReport{}, err
	}
	key := domain.NewLocationKey(loc.Lat, loc.Lon, years)

	if !req.Refresh {
		if report, ok := s.lookup(ctx, key); ok {
			return report, nil
		}
	}

	period := domain.HistoryPeriod(domain.Now(), years)
	ds, err := s.provider.FetchDaily(ctx, loc.Lat, loc.Lon, period)
	if err != nil {
		return domain.LocationReport{}, fmt.Errorf("%w for %s: %w", ErrFetchFailed, key, err)
	}

	if s.persist.Archive != nil {
		if err := s.persist.Archive.Put(ctx, key, period, ds); err != nil {
			s.logger.Warn("archive dataset failed", "location_key", key, "error", err)
		}
	}

	climate, err := s.assembler.Assemble(ctx, ds, &loc.Lat)
	if err != nil {
		return domain.LocationReport{}, err
	}
	report := domain.NewLocationReport(req.RequestID, loc, years, period, climate)

	if s.persist.Store != nil {
		if err := s.persist.Store.Save(ctx, report); err != nil {
			s.logger.Error("save report failed", "location_key", key, "error", err)
		}
	}
	s.cacheReport(ctx, report)

	s.metrics.ReportsServed.WithLabelValues("computed").Inc()
	s.logger.Info("report generated",
		"request_id", req.RequestID,
		"location_key", key,
		"records", len(ds),
		"usda_zone", climate.USDAZone,
		"koppen", climate.Koppen.String(),
		"insufficient_data", climate.InsufficientData,
	)
	return report, nil
}

// lookup serves from cache, then from the store when the stored report is fresh.
// Lookup failures are logged and treated as misses.
func (s *ReportService) lookup(ctx context.Context, key domain.LocationKey) (domain.LocationReport, bool) {
	if s.persist.Cache != nil {
		report, found, err := s.persist.Cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("report cache lookup failed", "location_key", key, "error", err)
		} else if found {
			s.metrics.ReportsServed.WithLabelValues("cache").Inc()
			return report, true
		}
	}

	if s.persist.Store == nil {
		return domain.LocationReport{}, false
	}
	report, found, err := s.persist.Store.Latest(ctx, key)
	if err != nil {
		s.logger.Warn("report store lookup failed", "location_key", key, "error", err)
		return domain.LocationReport{}, false
	}
	if !found || report.IsStale(s.cfg.MaxAge) {
		return domain.LocationReport{}, false
	}
	s.cacheReport(ctx, report)
	s.metrics.ReportsServed.WithLabelValues("store").Inc()
	return report, true
}

func (s *ReportService) cacheReport(ctx context.Context, report domain.LocationReport) {
	if s.persist.Cache == nil {
		return
	}
	if err := s.persist.Cache.Set(ctx, report); err != nil {
		s.logger.Warn("report cache write failed", "location_key", report.Key, "error", err)
	}
}

// Compute assembles a report for a caller-supplied dataset without touching
// the provider or persistence.
func (s *ReportService) Compute(ctx context.Context, ds domain.Dataset, latitude *float64) (domain.ClimateReport, error) {
	return s.assembler.Assemble(ctx, ds, latitude)
}

// RefreshStale regenerates up to limit stored reports older than the configured
// max age. It returns how many were refreshed; individual failures are logged
// and skipped.
func (s *ReportService) RefreshStale(ctx context.Context, limit int) (int, error) {
	if s.persist.Store == nil || s.cfg.MaxAge <= 0 {
		return 0, nil
	}

	stale, err := s.persist.Store.ListStale(ctx, domain.Now().Add(-s.cfg.MaxAge), limit)
	if err != nil {
		return 0, fmt.Errorf("list stale reports: %w", err)
	}

	refreshed := 0
	for _, old := range stale {
		if err := ctx.Err(); err != nil {
			return refreshed, err
		}
		req := domain.ReportRequest{
			RequestID: "refresh-" + old.ID,
			Location:  old.Location.Name,
			Lat:       &old.Location.Lat,
			Lon:       &old.Location.Lon,
			Years:     old.Years,
			Refresh:   true,
		}
		if _, err := s.Generate(ctx, req); err != nil {
			s.logger.Warn("refresh stale report failed", "location_key", old.Key, "error", err)
			continue
		}
		refreshed++
	}

	s.metrics.StaleRefreshed.Add(float64(refreshed))
	if len(stale) > 0 {
		s.logger.Info("stale reports refreshed", "found", len(stale), "refreshed", refreshed)
	}
	return refreshed, nil
}
