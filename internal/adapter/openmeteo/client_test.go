package openmeteo

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JoergFritschi-crypto/garden-climate/internal/domain"
	"github.com/JoergFritschi-crypto/garden-climate/internal/observability"
)

const threeDays = `{
  "latitude": 51.48,
  "longitude": -0.3,
  "daily": {
    "time": ["2024-01-01", "2024-01-02", "2024-01-03"],
    "temperature_2m_min": [-1.5, 0.2, null],
    "temperature_2m_max": [6.1, 7.4, 8.0],
    "temperature_2m_mean": [2.3, 3.9, 5.1],
    "precipitation_sum": [0.0, 4.2, 1.1],
    "relative_humidity_2m_mean": [88, 91, 85],
    "wind_speed_10m_mean": [12.5, 20.1, 9.8],
    "cloud_cover_mean": [75, 100]
  }
}`

var testPeriod = domain.Period{
	Start: domain.NewDate(2024, time.January, 1),
	End:   domain.NewDate(2024, time.January, 3),
}

func testClient(baseURL string, maxRetries int) *Client {
	opts := Options{
		BaseURL:        baseURL,
		Timeout:        5 * time.Second,
		MaxRetries:     maxRetries,
		RetryDelay:     time.Millisecond,
		Multiplier:     2,
		BreakerTimeout: time.Minute,
	}
	return NewClient(opts, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())
}

func TestClient_FetchDaily_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "51.4800", q.Get("latitude"))
		assert.Equal(t, "-0.3000", q.Get("longitude"))
		assert.Equal(t, "2024-01-01", q.Get("start_date"))
		assert.Equal(t, "2024-01-03", q.Get("end_date"))
		assert.Contains(t, q.Get("daily"), "temperature_2m_min")
		assert.Contains(t, q.Get("daily"), "cloud_cover_mean")
		assert.Equal(t, "UTC", q.Get("timezone"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, threeDays)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 0)
	ds, err := c.FetchDaily(context.Background(), 51.48, -0.3, testPeriod)
	require.NoError(t, err)
	require.Len(t, ds, 3)

	first := ds[0]
	assert.Equal(t, "2024-01-01", first.Date.String())
	require.NotNil(t, first.TempMin)
	assert.Equal(t, -1.5, *first.TempMin)
	assert.Equal(t, 6.1, *first.TempMax)
	assert.Equal(t, 2.3, *first.TempMean)
	assert.Equal(t, 0.0, *first.Precipitation)
	assert.Equal(t, 88.0, *first.Humidity)
	assert.Equal(t, 12.5, *first.WindSpeed)
	assert.Equal(t, 75.0, *first.CloudCover)

	last := ds[2]
	assert.Nil(t, last.TempMin, "null value stays unset")
	assert.Nil(t, last.CloudCover, "short array leaves trailing days unset")
	assert.Equal(t, 8.0, *last.TempMax)

	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.ProviderRequests.WithLabelValues("success")), 0)
}

func TestClient_FetchDaily_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "upstream busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, threeDays)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 3)
	ds, err := c.FetchDaily(context.Background(), 51.48, -0.3, testPeriod)
	require.NoError(t, err)
	assert.Len(t, ds, 3)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_FetchDaily_RetriesRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, threeDays)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 1)
	_, err := c.FetchDaily(context.Background(), 51.48, -0.3, testPeriod)
	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
}

func TestClient_FetchDaily_ClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":true,"reason":"Parameter 'start_date' is out of range"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 3)
	_, err := c.FetchDaily(context.Background(), 51.48, -0.3, testPeriod)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 400")
	assert.Contains(t, err.Error(), "out of range")
	assert.Equal(t, int32(1), calls.Load())
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.ProviderRequests.WithLabelValues("error")), 0)
}

func TestClient_FetchDaily_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 2)
	_, err := c.FetchDaily(context.Background(), 51.48, -0.3, testPeriod)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_FetchDaily_BreakerOpens(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 0)
	for range 3 {
		_, err := c.FetchDaily(context.Background(), 51.48, -0.3, testPeriod)
		require.Error(t, err)
	}
	require.Equal(t, int32(3), calls.Load())

	_, err := c.FetchDaily(context.Background(), 51.48, -0.3, testPeriod)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker is open")
	assert.Equal(t, int32(3), calls.Load(), "open breaker must not reach the server")
	assert.InDelta(t, 1, testutil.ToFloat64(c.metrics.ProviderRequests.WithLabelValues("open")), 0)
}

func TestClient_FetchDaily_BadRequestsDoNotTripBreaker(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 0)
	for i := range 5 {
		_, err := c.FetchDaily(context.Background(), 51.48, -0.3, testPeriod)
		require.Error(t, err)
		assert.NotContains(t, err.Error(), "circuit breaker", "call %d", i)
	}
}

func TestClient_FetchDaily_InvalidJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "not json")
	}))
	defer srv.Close()

	c := testClient(srv.URL, 0)
	_, err := c.FetchDaily(context.Background(), 51.48, -0.3, testPeriod)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode open-meteo response")
}

func TestClient_FetchDaily_InvalidDate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"daily":{"time":["2024-13-01"]}}`)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 0)
	_, err := c.FetchDaily(context.Background(), 51.48, -0.3, testPeriod)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "daily.time[0]")
}

func TestClient_FetchDaily_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	opts := Options{BaseURL: srv.URL, Timeout: time.Second, MaxRetries: 5, RetryDelay: time.Hour, Multiplier: 1}
	c := NewClient(opts, slog.New(slog.NewTextHandler(io.Discard, nil)), observability.NewMetricsForTesting())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.FetchDaily(ctx, 51.48, -0.3, testPeriod)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions(DefaultBaseURL, 30*time.Second, 3)
	assert.Equal(t, DefaultBaseURL, opts.BaseURL)
	assert.Equal(t, 3, opts.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, opts.RetryDelay)
	assert.Equal(t, 2.0, opts.Multiplier)
}

func TestStatusError_ClientError(t *testing.T) {
	tests := []struct {
		code int
		want bool
	}{
		{http.StatusBadRequest, true},
		{http.StatusNotFound, true},
		{http.StatusTooManyRequests, false},
		{http.StatusInternalServerError, false},
		{http.StatusBadGateway, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.want, (&statusError{code: tt.code}).clientError())
		})
	}
}
