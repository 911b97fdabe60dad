package openweather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/Incognitol07/weather-data-pipeline-etl/internal/config"
	"github.com/Incognitol07/weather-data-pipeline-etl/pkg/logging"
	"github.com/Incognitol07/weather-data-pipeline-etl/pkg/metrics"
)

// Endpoint paths consumed from the provider.
const (
	CurrentWeatherPath = "/data/2.5/weather"
	ForecastPath       = "/data/2.5/forecast"
	DirectGeocodePath  = "/geo/1.0/direct"
	ReverseGeocodePath = "/geo/1.0/reverse"
)

// credentialParam is the query key the client injects on every request.
// Callers must never supply it themselves.
const credentialParam = "appid"

// APIError reports a non-2xx provider response with its status and raw body.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openweathermap request failed: status %d: %s", e.StatusCode, e.Body)
}

// IsTransient reports whether a retry at a later scheduled run may succeed.
func (e *APIError) IsTransient() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Client issues parameterized GET requests against the weather provider. It
// injects the API credential, rate-limits outbound calls, and fast-fails
// through a circuit breaker when the provider is down. It never retries; retry
// policy belongs to the scheduler.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *logging.StructuredLogger
	metrics    *metrics.Collector
}

// NewClient creates a provider client from configuration.
func NewClient(cfg config.ProviderConfig, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openweathermap",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		breaker: breaker,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// FetchJSON issues a GET against path with the given query parameters and
// decodes the JSON response into dest. Non-2xx responses yield an *APIError.
func (c *Client) FetchJSON(ctx context.Context, path string, params url.Values, dest interface{}) error {
	if params.Has(credentialParam) {
		return fmt.Errorf("query parameters must not carry %q; the client injects the credential", credentialParam)
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}

	query := url.Values{}
	for k, vs := range params {
		for _, v := range vs {
			query.Add(k, v)
		}
	}
	query.Set(credentialParam, c.apiKey)

	requestURL := c.baseURL + path + "?" + query.Encode()

	start := time.Now()
	result, err := c.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}

		// Count server-side failures against the breaker; client-side
		// statuses pass through for the caller to classify.
		if resp.StatusCode >= 500 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
		}

		return resp, nil
	})
	c.metrics.ProviderRequestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())

	if err != nil {
		c.metrics.RecordProviderRequest(path, "error")
		c.logger.Error(ctx, "[PROVIDER_ERROR] Provider request failed", logging.Fields{
			"path": path,
		}, err)
		return err
	}

	resp := result.(*http.Response)
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(body)}
		c.metrics.RecordProviderRequest(path, "error")
		c.logger.Error(ctx, "[PROVIDER_ERROR] Provider returned non-success status", logging.Fields{
			"path":   path,
			"status": resp.StatusCode,
		}, apiErr)
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		c.metrics.RecordProviderRequest(path, "decode_error")
		return fmt.Errorf("decode provider response: %w", err)
	}

	c.metrics.RecordProviderRequest(path, "ok")
	return nil
}
