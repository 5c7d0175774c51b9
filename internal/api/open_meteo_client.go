package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"monthweather/internal/metrics"
	"monthweather/internal/models"
)

const (
	forecastURL = "https://api.open-meteo.com/v1/forecast"
	archiveURL  = "https://archive-api.open-meteo.com/v1/archive"
)

// ErrNoFields is returned when a request names no daily fields
var ErrNoFields = errors.New("no daily fields provided")

// OpenMeteoClient is a client for the Open-Meteo forecast and archive APIs
type OpenMeteoClient struct {
	client      *http.Client
	forecastURL string
	archiveURL  string
	timezone    string
}

// DailyParams describes one daily request. A request with a date range asks
// for that range, otherwise ForecastDays days from today are requested.
type DailyParams struct {
	Latitude     float64
	Longitude    float64
	DailyFields  []string
	Timezone     string
	StartDate    string
	EndDate      string
	ForecastDays int
}

// NewOpenMeteoClient creates a new Open-Meteo API client
func NewOpenMeteoClient() *OpenMeteoClient {
	return &OpenMeteoClient{
		client:      &http.Client{Timeout: 30 * time.Second},
		forecastURL: forecastURL,
		archiveURL:  archiveURL,
	}
}

// WithBaseURLs points the client at other endpoints, e.g. a local mirror
func (c *OpenMeteoClient) WithBaseURLs(forecast, archive string) *OpenMeteoClient {
	c.forecastURL = forecast
	c.archiveURL = archive
	return c
}

// WithTimezone sets the timezone daily boundaries are computed in
func (c *OpenMeteoClient) WithTimezone(tz string) *OpenMeteoClient {
	c.timezone = tz
	return c
}

// BuildURL builds the request URL for endpoint. The daily list is joined
// without spaces, which the API requires.
func (c *OpenMeteoClient) BuildURL(endpoint string, params DailyParams) string {
	if params.Timezone == "" {
		params.Timezone = "auto"
	}

	reqURL := fmt.Sprintf("%s?latitude=%.4f&longitude=%.4f&timezone=%s",
		endpoint, params.Latitude, params.Longitude, url.QueryEscape(params.Timezone))

	if params.StartDate != "" || params.EndDate != "" {
		reqURL += fmt.Sprintf("&start_date=%s&end_date=%s", params.StartDate, params.EndDate)
	} else {
		reqURL += fmt.Sprintf("&forecast_days=%d", params.ForecastDays)
	}

	if len(params.DailyFields) > 0 {
		reqURL += "&daily=" + strings.Join(params.DailyFields, ",")
	}

	return reqURL
}

// GetHistoricalDaily fetches archived daily values between start and end
// (YYYY-MM-DD, both inclusive)
func (c *OpenMeteoClient) GetHistoricalDaily(ctx context.Context, lat, long float64, fields []string, start, end string) (*models.Forecast, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("GetHistoricalDaily: %w", ErrNoFields)
	}

	return c.get(ctx, "archive", c.BuildURL(c.archiveURL, DailyParams{
		Latitude:    lat,
		Longitude:   long,
		DailyFields: fields,
		Timezone:    c.timezone,
		StartDate:   start,
		EndDate:     end,
	}))
}

// GetDailyForecast fetches daily forecast values for the next days days
func (c *OpenMeteoClient) GetDailyForecast(ctx context.Context, lat, long float64, fields []string, days int) (*models.Forecast, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("GetDailyForecast: %w", ErrNoFields)
	}

	return c.get(ctx, "forecast", c.BuildURL(c.forecastURL, DailyParams{
		Latitude:     lat,
		Longitude:    long,
		DailyFields:  fields,
		Timezone:     c.timezone,
		ForecastDays: days,
	}))
}

func (c *OpenMeteoClient) get(ctx context.Context, endpoint, reqURL string) (forecast *models.Forecast, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordAPIRequest(endpoint, time.Since(start), err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build %s request: %w", endpoint, err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	forecast = &models.Forecast{}
	if err := json.NewDecoder(resp.Body).Decode(forecast); err != nil {
		return nil, fmt.Errorf("failed to decode %s response: %w", endpoint, err)
	}

	return forecast, nil
}
