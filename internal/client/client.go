package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"time"

	"github.com/kjstillabower/deskclock/internal/circuitbreaker"
	"github.com/kjstillabower/deskclock/internal/models"
	"github.com/kjstillabower/deskclock/internal/observability"
)

// WeatherClient fetches the current conditions for the configured location.
type WeatherClient interface {
	GetCurrentWeather(ctx context.Context) (models.WeatherReading, error)
}

var (
	ErrInvalidAPIKey     = errors.New("invalid API key")
	ErrLocationNotFound  = errors.New("location not found")
	ErrUpstreamFailure   = errors.New("upstream failure")
	ErrRateLimited       = errors.New("rate limited")
	ErrMalformedResponse = errors.New("malformed response")
)

// WeatherAPI.com error codes carried in the JSON error body.
const (
	apiCodeKeyMissing       = 1002
	apiCodeQueryMissing     = 1003
	apiCodeNoLocation       = 1006
	apiCodeKeyInvalid       = 2006
	apiCodeQuotaExceeded    = 2007
	apiCodeKeyDisabled      = 2008
	apiCodeNoAccessToSource = 2009
)

// Options tunes retries. Zero values take defaults.
type Options struct {
	Timeout        time.Duration
	RetryAttempts  int
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
	Breaker        *circuitbreaker.CircuitBreaker
}

// WeatherAPIClient reads current conditions from WeatherAPI.com's
// current.json endpoint.
type WeatherAPIClient struct {
	apiKey         string
	apiURL         string
	location       string
	timeout        time.Duration
	client         *http.Client
	retryAttempts  int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	breaker        *circuitbreaker.CircuitBreaker
	sleep          func(ctx context.Context, d time.Duration) error
}

// NewWeatherAPIClient creates a client for one location.
func NewWeatherAPIClient(apiKey, apiURL, location string, opts Options) (*WeatherAPIClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: API key is required", ErrInvalidAPIKey)
	}
	if len(apiKey) < 10 {
		return nil, fmt.Errorf("%w: API key appears invalid (too short)", ErrInvalidAPIKey)
	}
	if _, err := url.Parse(apiURL); err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.RetryAttempts <= 0 {
		opts.RetryAttempts = 3
	}
	if opts.RetryBaseDelay <= 0 {
		opts.RetryBaseDelay = 200 * time.Millisecond
	}
	if opts.RetryMaxDelay <= 0 {
		opts.RetryMaxDelay = 2 * time.Second
	}

	return &WeatherAPIClient{
		apiKey:         apiKey,
		apiURL:         apiURL,
		location:       location,
		timeout:        opts.Timeout,
		retryAttempts:  opts.RetryAttempts,
		retryBaseDelay: opts.RetryBaseDelay,
		retryMaxDelay:  opts.RetryMaxDelay,
		breaker:        opts.Breaker,
		sleep:          sleepCtx,
		client: &http.Client{
			Timeout: opts.Timeout,
		},
	}, nil
}

type currentResponse struct {
	Current *struct {
		TempC     *float64 `json:"temp_c"`
		Humidity  int      `json:"humidity"`
		IsDay     int      `json:"is_day"`
		Condition struct {
			Text string `json:"text"`
			Code int    `json:"code"`
		} `json:"condition"`
	} `json:"current"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// GetCurrentWeather fetches once, retrying transient failures with
// exponential backoff. The whole call runs through the circuit breaker when
// one is configured.
func (c *WeatherAPIClient) GetCurrentWeather(ctx context.Context) (models.WeatherReading, error) {
	if c.breaker == nil {
		return c.fetchWithRetry(ctx)
	}
	var reading models.WeatherReading
	err := c.breaker.Call(ctx, func(ctx context.Context) error {
		var err error
		reading, err = c.fetchWithRetry(ctx)
		return err
	})
	return reading, err
}

func (c *WeatherAPIClient) fetchWithRetry(ctx context.Context) (models.WeatherReading, error) {
	var lastErr error

	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		if attempt > 0 {
			observability.WeatherAPIRetriesTotal.Inc()
			if err := c.sleep(ctx, c.calculateBackoff(attempt)); err != nil {
				return models.WeatherReading{}, err
			}
		}

		result, err := c.callAPI(ctx)
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !isRetryable(err) {
			return models.WeatherReading{}, err
		}
	}

	return models.WeatherReading{}, fmt.Errorf("exhausted retries: %w", lastErr)
}

func (c *WeatherAPIClient) callAPI(ctx context.Context) (models.WeatherReading, error) {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues("error").Inc()
		return models.WeatherReading{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		duration := time.Since(start).Seconds()
		observability.WeatherAPICallsTotal.WithLabelValues("error").Inc()
		observability.WeatherAPIDuration.WithLabelValues("error").Observe(duration)

		if errors.Is(err, context.DeadlineExceeded) {
			return models.WeatherReading{}, fmt.Errorf("request timeout: %w", err)
		}
		return models.WeatherReading{}, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	duration := time.Since(start).Seconds()
	status := statusLabel(resp.StatusCode)
	observability.WeatherAPICallsTotal.WithLabelValues(status).Inc()
	observability.WeatherAPIDuration.WithLabelValues(status).Observe(duration)

	if err != nil {
		return models.WeatherReading{}, fmt.Errorf("read response body: %w", err)
	}
	if err := handleErrorResponse(resp.StatusCode, body); err != nil {
		return models.WeatherReading{}, err
	}
	return parseCurrent(body)
}

func parseCurrent(body []byte) (models.WeatherReading, error) {
	var apiResp currentResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return models.WeatherReading{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	cur := apiResp.Current
	if cur == nil || cur.TempC == nil {
		return models.WeatherReading{}, fmt.Errorf("%w: missing current conditions", ErrMalformedResponse)
	}
	if cur.Condition.Code == 0 {
		return models.WeatherReading{}, fmt.Errorf("%w: missing condition code", ErrMalformedResponse)
	}
	return models.WeatherReading{
		Temperature:   int(math.Round(*cur.TempC)),
		Humidity:      cur.Humidity,
		ConditionCode: cur.Condition.Code,
		IsDaytime:     cur.IsDay == 1,
	}, nil
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrUpstreamFailure) ||
		errors.Is(err, context.DeadlineExceeded) ||
		isNetError(err)
}

func (c *WeatherAPIClient) calculateBackoff(attempt int) time.Duration {
	delay := float64(c.retryBaseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(c.retryMaxDelay) {
		delay = float64(c.retryMaxDelay)
	}

	jitter := delay * 0.1 * rand.Float64()
	return time.Duration(delay + jitter)
}

func (c *WeatherAPIClient) buildRequest(ctx context.Context) (*http.Request, error) {
	baseURL, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("q", c.location)
	params.Set("aqi", "no")
	baseURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	return req, nil
}

// handleErrorResponse maps HTTP status and WeatherAPI.com error codes to
// sentinel errors.
func handleErrorResponse(statusCode int, body []byte) error {
	if statusCode >= 200 && statusCode < 300 {
		return nil
	}

	var apiErr errorResponse
	_ = json.Unmarshal(body, &apiErr)
	code, msg := apiErr.Error.Code, apiErr.Error.Message

	switch code {
	case apiCodeKeyMissing, apiCodeKeyInvalid, apiCodeKeyDisabled, apiCodeNoAccessToSource:
		return fmt.Errorf("%w: %s", ErrInvalidAPIKey, msg)
	case apiCodeNoLocation, apiCodeQueryMissing:
		return fmt.Errorf("%w: %s", ErrLocationNotFound, msg)
	case apiCodeQuotaExceeded:
		return fmt.Errorf("%w: %s", ErrRateLimited, msg)
	}

	switch {
	case statusCode == http.StatusUnauthorized || statusCode == http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d", ErrInvalidAPIKey, statusCode)
	case statusCode == http.StatusNotFound:
		return fmt.Errorf("%w: HTTP %d", ErrLocationNotFound, statusCode)
	case statusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: HTTP %d", ErrRateLimited, statusCode)
	}
	return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, statusCode)
}

func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
