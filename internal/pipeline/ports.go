package pipeline

import (
	"context"
	"time"

	"github.com/JoergFritschi-crypto/garden-climate/internal/domain"
)

// BatchExtractor reads up to batchSize raw report requests from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.RawRequest, error)
}

// Transformer turns a raw request into a finished location report.
type Transformer interface {
	Transform(ctx context.Context, raw domain.RawRequest) (domain.LocationReport, error)
}

// BatchLoader writes multiple reports to the destination.
type BatchLoader interface {
	LoadBatch(ctx context.Context, reports []domain.LocationReport) error
}

// WeatherProvider fetches the daily history of a location.
type WeatherProvider interface {
	FetchDaily(ctx context.Context, lat, lon float64, period domain.Period) (domain.Dataset, error)
}

// ReportStore persists reports keyed by location.
type ReportStore interface {
	Save(ctx context.Context, report domain.LocationReport) error
	// Latest returns the most recent report for key; found is false when none exists.
	Latest(ctx context.Context, key domain.LocationKey) (report domain.LocationReport, found bool, err error)
	// ListStale returns up to limit reports generated before cutoff, oldest first.
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]domain.LocationReport, error)
}

// ReportCache is a short-lived lookaside cache in front of the store.
type ReportCache interface {
	Get(ctx context.Context, key domain.LocationKey) (report domain.LocationReport, found bool, err error)
	Set(ctx context.Context, report domain.LocationReport) error
}

// DatasetArchive keeps the raw dataset a report was computed from.
type DatasetArchive interface {
	Put(ctx context.Context, key domain.LocationKey, period domain.Period, ds domain.Dataset) error
}
