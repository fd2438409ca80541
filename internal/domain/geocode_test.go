package domain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coords(lat, lon float64) ReportRequest {
	return ReportRequest{RequestID: "req-1", Lat: Float(lat), Lon: Float(lon)}
}

func TestResolveLocation_CoordinatesWithoutGeocoder(t *testing.T) {
	loc, err := ResolveLocation(context.Background(), coords(51.5, -0.12), nil, discardLogger())

	require.NoError(t, err)
	assert.Equal(t, Location{Lat: 51.5, Lon: -0.12, GeoSource: "request"}, loc)
}

func TestResolveLocation_ReverseGeocode(t *testing.T) {
	geo := &mockGeocoder{
		reverseResult: GeocodingResult{
			Lat:              51.5,
			Lon:              -0.12,
			FormattedAddress: "Westminster, London, United Kingdom",
			PlaceName:        "Westminster",
		},
	}

	loc, err := ResolveLocation(context.Background(), coords(51.5, -0.12), geo, discardLogger())

	require.NoError(t, err)
	assert.Equal(t, "Westminster, London, United Kingdom", loc.Name)
	assert.Equal(t, "reverse", loc.GeoSource)
	assert.Equal(t, 1, geo.reverseCalls)
	assert.Equal(t, 0, geo.forwardCalls)
}

func TestResolveLocation_ReverseGeocodeFailureDegrades(t *testing.T) {
	geo := &mockGeocoder{reverseErr: errors.New("api down")}

	loc, err := ResolveLocation(context.Background(), coords(40.7, -74), geo, discardLogger())

	require.NoError(t, err)
	assert.Empty(t, loc.Name)
	assert.Equal(t, "failed", loc.GeoSource)
	assert.Equal(t, 40.7, loc.Lat)
	assert.Equal(t, -74.0, loc.Lon)
}

func TestResolveLocation_NamedCoordinatesSkipLookup(t *testing.T) {
	geo := &mockGeocoder{}
	req := coords(48.85, 2.35)
	req.Location = "Paris allotment"

	loc, err := ResolveLocation(context.Background(), req, geo, discardLogger())

	require.NoError(t, err)
	assert.Equal(t, "Paris allotment", loc.Name)
	assert.Equal(t, "request", loc.GeoSource)
	assert.Equal(t, 0, geo.reverseCalls)
}

func TestResolveLocation_ForwardGeocode(t *testing.T) {
	geo := &mockGeocoder{
		forwardResult: GeocodingResult{
			Lat:              55.95,
			Lon:              -3.19,
			FormattedAddress: "Edinburgh, Scotland, United Kingdom",
			PlaceName:        "Edinburgh",
			Confidence:       0.9,
		},
	}

	loc, err := ResolveLocation(context.Background(), ReportRequest{Location: " Edinburgh "}, geo, discardLogger())

	require.NoError(t, err)
	assert.Equal(t, Location{
		Name:      "Edinburgh, Scotland, United Kingdom",
		Lat:       55.95,
		Lon:       -3.19,
		GeoSource: "forward",
	}, loc)
	assert.Equal(t, 1, geo.forwardCalls)
}

func TestResolveLocation_ForwardFallsBackToPlaceName(t *testing.T) {
	geo := &mockGeocoder{forwardResult: GeocodingResult{Lat: 1, Lon: 2, PlaceName: "Somewhere"}}

	loc, err := ResolveLocation(context.Background(), ReportRequest{Location: "somewhere"}, geo, discardLogger())

	require.NoError(t, err)
	assert.Equal(t, "Somewhere", loc.Name)
}

func TestResolveLocation_NotFound(t *testing.T) {
	geo := &mockGeocoder{}

	_, err := ResolveLocation(context.Background(), ReportRequest{Location: "Atlantis"}, geo, discardLogger())

	assert.ErrorIs(t, err, ErrLocationNotFound)
}

func TestResolveLocation_NameWithoutGeocoder(t *testing.T) {
	_, err := ResolveLocation(context.Background(), ReportRequest{Location: "Leeds"}, nil, discardLogger())

	assert.ErrorIs(t, err, ErrLocationNotFound)
}

func TestResolveLocation_ForwardError(t *testing.T) {
	geo := &mockGeocoder{forwardErr: errors.New("rate limited")}

	_, err := ResolveLocation(context.Background(), ReportRequest{Location: "Leeds"}, geo, discardLogger())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limited")
	assert.NotErrorIs(t, err, ErrLocationNotFound)
}

func TestResolveLocation_NothingGiven(t *testing.T) {
	_, err := ResolveLocation(context.Background(), ReportRequest{}, nil, discardLogger())

	assert.ErrorIs(t, err, ErrLocationRequired)
}
