package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidRequest marks a request that cannot be parsed or fails validation.
	ErrInvalidRequest = errors.New("invalid report request")
	// ErrLocationRequired is returned when a request carries neither coordinates nor a place name.
	ErrLocationRequired = errors.New("location name or coordinates required")
	// ErrLocationNotFound is returned when a place name cannot be geocoded.
	ErrLocationNotFound = errors.New("location not found")
)

// Location identifies where a report applies.
type Location struct {
	Name      string  `json:"name,omitempty" yaml:"name,omitempty"`
	Lat       float64 `json:"lat" yaml:"lat"`
	Lon       float64 `json:"lon" yaml:"lon"`
	GeoSource string  `json:"geo_source,omitempty" yaml:"geo_source,omitempty"` // "request", "forward", "reverse", "failed"
}

// ReportRequest asks for the climate report of a location.
type ReportRequest struct {
	RequestID string   `json:"request_id,omitempty"`
	Location  string   `json:"location,omitempty"`
	Lat       *float64 `json:"lat,omitempty"`
	Lon       *float64 `json:"lon,omitempty"`
	Years     int      `json:"years,omitempty"`
	Refresh   bool     `json:"refresh,omitempty"`
}

// Validate checks coordinate ranges and that some location is given.
func (r ReportRequest) Validate() error {
	if r.Years < 0 {
		return fmt.Errorf("%w: years must not be negative", ErrInvalidRequest)
	}
	if (r.Lat == nil) != (r.Lon == nil) {
		return fmt.Errorf("%w: lat and lon must be given together", ErrInvalidRequest)
	}
	if r.Lat != nil {
		if math.IsNaN(*r.Lat) || *r.Lat < -90 || *r.Lat > 90 {
			return fmt.Errorf("%w: lat out of range", ErrInvalidRequest)
		}
		if math.IsNaN(*r.Lon) || *r.Lon < -180 || *r.Lon > 180 {
			return fmt.Errorf("%w: lon out of range", ErrInvalidRequest)
		}
		return nil
	}
	if strings.TrimSpace(r.Location) == "" {
		return ErrLocationRequired
	}
	return nil
}

// ParseReportRequest decodes and validates a JSON report request.
func ParseReportRequest(data []byte) (ReportRequest, error) {
	var req ReportRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return ReportRequest{}, fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}
	if err := req.Validate(); err != nil {
		return ReportRequest{}, err
	}
	return req, nil
}

// Period is the inclusive date range a dataset was requested for.
type Period struct {
	Start Date `json:"start" yaml:"start"`
	End   Date `json:"end" yaml:"end"`
}

// HistoryPeriod returns the last `years` whole calendar years before now.
func HistoryPeriod(now time.Time, years int) Period {
	endYear := now.Year() - 1
	return Period{
		Start: NewDate(endYear-years+1, time.January, 1),
		End:   NewDate(endYear, time.December, 31),
	}
}

// LocationKey identifies reports for the same rounded coordinates and history length.
type LocationKey string

// NewLocationKey rounds coordinates to two decimals (~1 km).
func NewLocationKey(lat, lon float64, years int) LocationKey {
	return LocationKey(fmt.Sprintf("%.2f,%.2f,%dy", roundTo(lat, 2), roundTo(lon, 2), years))
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	r := math.Round(v*p) / p
	if r == 0 {
		return 0 // drop negative zero
	}
	return r
}

// LocationReport is a ClimateReport bound to the location and period it was computed for.
type LocationReport struct {
	ID          string        `json:"id" yaml:"id"`
	RequestID   string        `json:"request_id,omitempty" yaml:"request_id,omitempty"`
	Key         LocationKey   `json:"location_key" yaml:"location_key"`
	Location    Location      `json:"location" yaml:"location"`
	Years       int           `json:"years" yaml:"years"`
	Period      Period        `json:"period" yaml:"period"`
	Report      ClimateReport `json:"report" yaml:"report"`
	GeneratedAt time.Time     `json:"generated_at" yaml:"generated_at"`
}

// NewLocationReport stamps a report with a fresh ID and the current time.
func NewLocationReport(requestID string, loc Location, years int, period Period, report ClimateReport) LocationReport {
	return LocationReport{
		ID:          uuid.NewString(),
		RequestID:   requestID,
		Key:         NewLocationKey(loc.Lat, loc.Lon, years),
		Location:    loc,
		Years:       years,
		Period:      period,
		Report:      report,
		GeneratedAt: Now(),
	}
}

// IsStale reports whether the report is older than maxAge. A non-positive
// maxAge means reports never go stale.
func (r LocationReport) IsStale(maxAge time.Duration) bool {
	if maxAge <= 0 {
		return false
	}
	return clock.Since(r.GeneratedAt) > maxAge
}
