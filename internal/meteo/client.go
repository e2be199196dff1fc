package meteo

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
	"strconv"
	"sync"
	"time"

	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/circuitbreaker"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/city"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/models"
	"github.com/FIREPRO12344IE/climamind-uae-ai-11878/internal/observability"
)

// Fetcher pulls current weather conditions for tracked cities.
type Fetcher interface {
	FetchCity(ctx context.Context, c city.City) (models.WeatherReading, error)
	FetchAll(ctx context.Context) ([]models.WeatherReading, error)
}

var (
	ErrUpstreamFailure = errors.New("upstream failure")
	ErrRateLimited     = errors.New("rate limited")
)

// OpenMeteoClient fetches current conditions from the Open-Meteo forecast API.
// Open-Meteo requires no API key.
type OpenMeteoClient struct {
	apiURL         string
	timeout        time.Duration
	client         *http.Client
	retryAttempts  int
	retryBaseDelay time.Duration
	retryMaxDelay  time.Duration
	breaker        *circuitbreaker.CircuitBreaker

	// Air quality has no real feed yet; a bounded placeholder stands in until
	// one is integrated.
	rndMu sync.Mutex
	rnd   *rand.Rand
}

// NewOpenMeteoClient creates a client for the given forecast endpoint.
func NewOpenMeteoClient(apiURL string, timeout time.Duration, retryAttempts int, retryBaseDelay, retryMaxDelay time.Duration) *OpenMeteoClient {
	return &OpenMeteoClient{
		apiURL:         apiURL,
		timeout:        timeout,
		retryAttempts:  retryAttempts,
		retryBaseDelay: retryBaseDelay,
		retryMaxDelay:  retryMaxDelay,
		client:         &http.Client{Timeout: timeout},
		rnd:            rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetCircuitBreaker wires a breaker around upstream calls.
func (c *OpenMeteoClient) SetCircuitBreaker(cb *circuitbreaker.CircuitBreaker) {
	c.breaker = cb
}

type openMeteoResponse struct {
	Current struct {
		Temperature float64  `json:"temperature_2m"`
		Humidity    float64  `json:"relative_humidity_2m"`
		WindSpeed   float64  `json:"wind_speed_10m"`
		Visibility  *float64 `json:"visibility"` // meters
		UVIndex     *float64 `json:"uv_index"`
	} `json:"current"`
	Daily struct {
		PrecipitationSum []float64 `json:"precipitation_sum"`
	} `json:"daily"`
}

// FetchCity fetches current conditions for one city, retrying transient
// failures with exponential backoff and jitter.
func (c *OpenMeteoClient) FetchCity(ctx context.Context, cty city.City) (models.WeatherReading, error) {
	var lastErr error

	for attempt := 0; attempt < c.retryAttempts; attempt++ {
		if attempt > 0 {
			observability.IngestRetriesTotal.Inc()
			delay := c.calculateBackoff(attempt)
			select {
			case <-ctx.Done():
				recordIngestError(ctx.Err())
				return models.WeatherReading{}, ctx.Err()
			case <-time.After(delay):
			}
		}

		var result models.WeatherReading
		call := func() error {
			var err error
			result, err = c.callAPI(ctx, cty)
			return err
		}

		var err error
		if c.breaker != nil {
			err = c.breaker.Call(ctx, call)
		} else {
			err = call()
		}
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !isRetryable(err) {
			recordIngestError(err)
			return models.WeatherReading{}, err
		}
	}

	recordIngestError(lastErr)
	return models.WeatherReading{}, fmt.Errorf("exhausted retries: %w", lastErr)
}

// recordIngestError counts one failed fetch under its error category. Called
// once per FetchCity failure, after retries are exhausted.
func recordIngestError(err error) {
	observability.IngestErrorsTotal.WithLabelValues(string(CategorizeError(err))).Inc()
}

// FetchAll fetches all tracked cities concurrently. Partial success is fine;
// it fails only when every city fails.
func (c *OpenMeteoClient) FetchAll(ctx context.Context) ([]models.WeatherReading, error) {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		readings []models.WeatherReading
		lastErr  error
	)

	for _, cty := range city.Tracked {
		cty := cty
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := c.FetchCity(ctx, cty)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				lastErr = fmt.Errorf("fetch %s: %w", cty.Name, err)
				return
			}
			readings = append(readings, r)
		}()
	}
	wg.Wait()

	if len(readings) == 0 {
		if lastErr == nil {
			lastErr = fmt.Errorf("%w: no cities fetched", ErrUpstreamFailure)
		}
		return nil, lastErr
	}
	return readings, nil
}

func (c *OpenMeteoClient) callAPI(ctx context.Context, cty city.City) (models.WeatherReading, error) {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx, cty)
	if err != nil {
		observability.IngestCallsTotal.WithLabelValues("error").Inc()
		return models.WeatherReading{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		duration := time.Since(start).Seconds()
		observability.IngestCallsTotal.WithLabelValues("error").Inc()
		observability.IngestDuration.WithLabelValues("error").Observe(duration)

		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return models.WeatherReading{}, fmt.Errorf("request timeout: %w", err)
		}
		return models.WeatherReading{}, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	duration := time.Since(start).Seconds()
	status := statusLabel(resp.StatusCode)
	observability.IngestCallsTotal.WithLabelValues(status).Inc()
	observability.IngestDuration.WithLabelValues(status).Observe(duration)

	if err := handleErrorResponse(resp); err != nil {
		return models.WeatherReading{}, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.WeatherReading{}, fmt.Errorf("read response body: %w", err)
	}

	var apiResp openMeteoResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return models.WeatherReading{}, fmt.Errorf("parse response: %w", err)
	}

	return c.mapResponse(apiResp, cty), nil
}

func (c *OpenMeteoClient) buildRequest(ctx context.Context, cty city.City) (*http.Request, error) {
	baseURL, err := url.Parse(c.apiURL)
	if err != nil {
		return nil, fmt.Errorf("invalid API URL: %w", err)
	}

	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(cty.Latitude, 'f', 6, 64))
	params.Set("longitude", strconv.FormatFloat(cty.Longitude, 'f', 6, 64))
	params.Set("current", "temperature_2m,relative_humidity_2m,wind_speed_10m,visibility,uv_index")
	params.Set("daily", "precipitation_sum")
	params.Set("timezone", "auto")
	baseURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", baseURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	return req, nil
}

func handleErrorResponse(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w", ErrRateLimited)
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}

	return nil
}

func (c *OpenMeteoClient) mapResponse(apiResp openMeteoResponse, cty city.City) models.WeatherReading {
	r := models.WeatherReading{
		City:        cty.Name,
		Temperature: apiResp.Current.Temperature,
		Humidity:    apiResp.Current.Humidity,
		WindSpeed:   apiResp.Current.WindSpeed,
		AirQuality:  c.placeholderAirQuality(),
	}

	if apiResp.Current.Visibility != nil {
		km := *apiResp.Current.Visibility / 1000
		r.Visibility = &km
	}
	if apiResp.Current.UVIndex != nil {
		r.UVIndex = *apiResp.Current.UVIndex
	}
	if len(apiResp.Daily.PrecipitationSum) > 0 {
		r.Rainfall = apiResp.Daily.PrecipitationSum[0]
	}
	return r
}

// placeholderAirQuality returns a bounded stand-in AQI in [20,120). No real
// air-quality feed is integrated yet.
func (c *OpenMeteoClient) placeholderAirQuality() float64 {
	c.rndMu.Lock()
	defer c.rndMu.Unlock()
	return 20 + c.rnd.Float64()*100
}

func (c *OpenMeteoClient) calculateBackoff(attempt int) time.Duration {
	delay := float64(c.retryBaseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(c.retryMaxDelay) {
		delay = float64(c.retryMaxDelay)
	}

	c.rndMu.Lock()
	jitter := delay * 0.1 * c.rnd.Float64()
	c.rndMu.Unlock()
	return time.Duration(delay + jitter)
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrRateLimited) || errors.Is(err, ErrUpstreamFailure) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return false
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
