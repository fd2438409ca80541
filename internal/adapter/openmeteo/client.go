package openmeteo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/JoergFritschi-crypto/garden-climate/internal/domain"
	"github.com/JoergFritschi-crypto/garden-climate/internal/observability"
)

// DefaultBaseURL is the Open-Meteo historical weather endpoint.
const DefaultBaseURL = "https://archive-api.open-meteo.com/v1/archive"

// dailyVariables are requested in this order; the response carries one array per variable.
var dailyVariables = []string{
	"temperature_2m_min",
	"temperature_2m_max",
	"temperature_2m_mean",
	"precipitation_sum",
	"relative_humidity_2m_mean",
	"wind_speed_10m_mean",
	"cloud_cover_mean",
}

// Options tunes the HTTP client, retries, and circuit breaker.
type Options struct {
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	Multiplier float64

	// BreakerTimeout is how long the breaker stays open before letting a probe through.
	BreakerTimeout time.Duration
}

// DefaultOptions returns the production settings for the given endpoint.
func DefaultOptions(baseURL string, timeout time.Duration, maxRetries int) Options {
	return Options{
		BaseURL:        baseURL,
		Timeout:        timeout,
		MaxRetries:     maxRetries,
		RetryDelay:     500 * time.Millisecond,
		Multiplier:     2,
		BreakerTimeout: 30 * time.Second,
	}
}

// Client fetches daily weather history from Open-Meteo. It implements
// pipeline.WeatherProvider.
type Client struct {
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	opts       Options
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates an Open-Meteo archive client.
func NewClient(opts Options, logger *slog.Logger, metrics *observability.Metrics) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Multiplier < 1 {
		opts.Multiplier = 1
	}

	settings := gobreaker.Settings{
		Name:        "openmeteo",
		MaxRequests: 1,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		// Client errors and cancellations do not count against the upstream.
		IsSuccessful: func(err error) bool {
			var se *statusError
			if errors.As(err, &se) && se.clientError() {
				return true
			}
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}

	return &Client{
		httpClient: &http.Client{Timeout: opts.Timeout},
		breaker:    gobreaker.NewCircuitBreaker(settings),
		opts:       opts,
		logger:     logger,
		metrics:    metrics,
	}
}

// FetchDaily returns one record per day of period for the given coordinates.
func (c *Client) FetchDaily(ctx context.Context, lat, lon float64, period domain.Period) (domain.Dataset, error) {
	u := c.requestURL(lat, lon, period)

	start := time.Now()
	body, err := c.breaker.Execute(func() (any, error) {
		return c.getWithRetry(ctx, u)
	})
	c.metrics.ProviderDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.metrics.ProviderRequests.WithLabelValues("open").Inc()
		} else {
			c.metrics.ProviderRequests.WithLabelValues("error").Inc()
		}
		return nil, fmt.Errorf("open-meteo archive: %w", err)
	}

	var resp archiveResponse
	if err := json.Unmarshal(body.([]byte), &resp); err != nil {
		c.metrics.ProviderRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("decode open-meteo response: %w", err)
	}
	ds, err := resp.dataset()
	if err != nil {
		c.metrics.ProviderRequests.WithLabelValues("error").Inc()
		return nil, err
	}

	c.metrics.ProviderRequests.WithLabelValues("success").Inc()
	c.logger.Debug("fetched weather history",
		"lat", lat,
		"lon", lon,
		"start", period.Start.String(),
		"end", period.End.String(),
		"records", len(ds),
	)
	return ds, nil
}

func (c *Client) requestURL(lat, lon float64, period domain.Period) string {
	params := url.Values{
		"latitude":   {strconv.FormatFloat(lat, 'f', 4, 64)},
		"longitude":  {strconv.FormatFloat(lon, 'f', 4, 64)},
		"start_date": {period.Start.String()},
		"end_date":   {period.End.String()},
		"daily":      {strings.Join(dailyVariables, ",")},
		"timezone":   {"UTC"},
	}
	return c.opts.BaseURL + "?" + params.Encode()
}

func (c *Client) getWithRetry(ctx context.Context, u string) ([]byte, error) {
	var lastErr error
	delay := c.opts.RetryDelay

	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Debug("retrying weather request", "attempt", attempt, "delay", delay)
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
			delay = time.Duration(float64(delay) * c.opts.Multiplier)
		}

		body, err := c.get(ctx, u)
		if err == nil {
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err

		var se *statusError
		if errors.As(err, &se) && se.clientError() {
			return nil, err
		}
		c.logger.Warn("weather request failed", "attempt", attempt, "error", err)
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (c *Client) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(msg))}
	}
	return io.ReadAll(resp.Body)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// statusError is a non-200 response from the API.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.code, e.body)
}

// clientError reports a 4xx other than 429; retrying those cannot help.
func (e *statusError) clientError() bool {
	return e.code >= 400 && e.code < 500 && e.code != http.StatusTooManyRequests
}
