// Package power fetches daily weather series from the NASA POWER temporal
// API and reduces them to per-county summary statistics.
package power

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/tillfield/county-feature-etl/internal/domain"
	"github.com/tillfield/county-feature-etl/internal/observability"
)

// SummaryFields lists the weather summary columns in output order.
var SummaryFields = []string{"temp_mean", "temp_std", "rain_sum", "rain_std"}

// Client queries the POWER daily-point endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	start      string // YYYY-MM-DD, inclusive
	end        string // YYYY-MM-DD, inclusive
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a POWER client covering the given date range.
func NewClient(baseURL, start, end string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		start:      start,
		end:        end,
		logger:     logger,
		metrics:    metrics,
	}
}

// Fetch returns the weather summary vector for key, ordered per
// SummaryFields. An absent rainfall parameter is zero-filled; a response
// with no temperature data at all yields the all-zero summary. Transport
// and decode failures return an error.
func (c *Client) Fetch(ctx context.Context, key domain.Coordinate) (domain.AttributeVector, error) {
	params := url.Values{
		"parameters": {"T2M,PRECTOT"},
		"community":  {"AG"},
		"longitude":  {fmt.Sprintf("%.6f", key.Lon)},
		"latitude":   {fmt.Sprintf("%.6f", key.Lat)},
		"start":      {compactDate(c.start)},
		"end":        {compactDate(c.end)},
		"format":     {"JSON"},
	}

	c.logger.Debug("fetching weather data", "lat", key.Lat, "lon", key.Lon)

	start := time.Now()
	resp, err := c.get(ctx, c.baseURL+"?"+params.Encode())
	c.metrics.FetchDuration.WithLabelValues("weather").Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues("weather", "error").Inc()
		return nil, err
	}

	temp := dailyValues(resp.Properties.Parameter["T2M"])
	rain := resp.Properties.Parameter["PRECTOT"]
	if len(rain) == 0 {
		rain = resp.Properties.Parameter["PRECTOTCORR"]
	}
	rainVals := dailyValues(rain)
	if len(rainVals) == 0 {
		// POWER omits PRECTOT for some regions; zero rainfall is the
		// documented upstream default there.
		rainVals = make([]float64, len(temp))
	}

	if len(temp) == 0 {
		c.metrics.FetchRequests.WithLabelValues("weather", "empty").Inc()
		return ZeroSummary(), nil
	}
	c.metrics.FetchRequests.WithLabelValues("weather", "success").Inc()

	return domain.AttributeVector{mean(temp), std(temp), sum(rainVals), std(rainVals)}, nil
}

// ZeroSummary returns the all-zero weather summary used when no daily data
// is available for a county.
func ZeroSummary() domain.AttributeVector {
	return make(domain.AttributeVector, len(SummaryFields))
}

func (c *Client) get(ctx context.Context, fullURL string) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("power request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("power API error: status %d: %s", resp.StatusCode, body)
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// dailyValues flattens a date-keyed series into date order.
func dailyValues(series map[string]float64) []float64 {
	if len(series) == 0 {
		return nil
	}
	dates := make([]string, 0, len(series))
	for d := range series {
		dates = append(dates, d)
	}
	sort.Strings(dates)
	vals := make([]float64, len(dates))
	for i, d := range dates {
		vals[i] = series[d]
	}
	return vals
}

func compactDate(d string) string {
	return strings.ReplaceAll(d, "-", "")
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	return sum(vals) / float64(len(vals))
}

func sum(vals []float64) float64 {
	var s float64
	for _, v := range vals {
		s += v
	}
	return s
}

// std is the population standard deviation.
func std(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	m := mean(vals)
	var ss float64
	for _, v := range vals {
		d := v - m
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(vals)))
}

// POWER API response types.

type response struct {
	Properties struct {
		Parameter map[string]map[string]float64 `json:"parameter"`
	} `json:"properties"`
}
