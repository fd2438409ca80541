package domain

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
)

// ResolveLocation turns a request into coordinates and a display name.
//
// Requests with coordinates always succeed: a nil geocoder or a failed reverse
// lookup only leaves the name empty (graceful degradation). Requests with a
// place name need a geocoder and fail with ErrLocationNotFound when the name
// does not resolve.
func ResolveLocation(ctx context.Context, req ReportRequest, geocoder Geocoder, logger *slog.Logger) (Location, error) {
	name := strings.TrimSpace(req.Location)

	if req.Lat != nil && req.Lon != nil {
		loc := Location{Name: name, Lat: *req.Lat, Lon: *req.Lon, GeoSource: "request"}
		if geocoder == nil || name != "" {
			return loc, nil
		}
		result, err := geocoder.ReverseGeocode(ctx, loc.Lat, loc.Lon)
		if err != nil {
			logger.Warn("reverse geocoding failed",
				"request_id", req.RequestID,
				"lat", loc.Lat,
				"lon", loc.Lon,
				"error", err,
			)
			loc.GeoSource = "failed"
			return loc, nil
		}
		if result.FormattedAddress != "" {
			loc.Name = result.FormattedAddress
			loc.GeoSource = "reverse"
		}
		return loc, nil
	}

	if name == "" {
		return Location{}, ErrLocationRequired
	}
	if geocoder == nil {
		return Location{}, fmt.Errorf("%w: %q (geocoding disabled)", ErrLocationNotFound, name)
	}

	result, err := geocoder.ForwardGeocode(ctx, name)
	if err != nil {
		return Location{}, fmt.Errorf("forward geocode %q: %w", name, err)
	}
	if result.Lat == 0 && result.Lon == 0 {
		return Location{}, fmt.Errorf("%w: %q", ErrLocationNotFound, name)
	}

	display := result.FormattedAddress
	if display == "" {
		display = result.PlaceName
	}
	return Location{Name: display, Lat: result.Lat, Lon: result.Lon, GeoSource: "forward"}, nil
}
