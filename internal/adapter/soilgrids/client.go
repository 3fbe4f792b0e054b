// Package soilgrids fetches soil property profiles from the ISRIC SoilGrids
// v2.0 REST API.
package soilgrids

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/tillfield/county-feature-etl/internal/domain"
	"github.com/tillfield/county-feature-etl/internal/observability"
)

// properties maps each output field to its SoilGrids property name and the
// linear scale correction applied after depth averaging. Order matches
// domain.SoilProperties.
var properties = []struct {
	name  string
	scale float64
}{
	{"clay", 1},
	{"silt", 1},
	{"sand", 1},
	{"soc", 1},
	{"phh2o", 0.1}, // pHx10 → pH
}

// Client queries the SoilGrids properties endpoint for one coordinate at a
// time. The underlying http.Client pools connections, so a single Client
// shared across many sequential fetches reuses one session.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a SoilGrids client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		logger:     logger,
		metrics:    metrics,
	}
}

// Fetch returns the soil attribute vector for key, ordered per
// domain.SoilProperties. A property with no usable depth values is NaN.
// Transport and decode failures return an error; an all-missing but
// well-formed response does not.
func (c *Client) Fetch(ctx context.Context, key domain.Coordinate) (domain.AttributeVector, error) {
	params := url.Values{
		"lon":   {fmt.Sprintf("%.6f", key.Lon)},
		"lat":   {fmt.Sprintf("%.6f", key.Lat)},
		"value": {"mean"},
	}
	for _, p := range properties {
		params.Add("property", p.name)
	}

	c.logger.Debug("fetching soil data", "lat", key.Lat, "lon", key.Lon)

	start := time.Now()
	resp, err := c.get(ctx, c.baseURL+"?"+params.Encode())
	c.metrics.FetchDuration.WithLabelValues("soil").Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.FetchRequests.WithLabelValues("soil", "error").Inc()
		return nil, err
	}

	vec := make(domain.AttributeVector, len(properties))
	for i, p := range properties {
		vec[i] = depthMean(resp.Properties.Layers, p.name) * p.scale
	}

	if vec.FullyMissing() {
		c.metrics.FetchRequests.WithLabelValues("soil", "empty").Inc()
	} else {
		c.metrics.FetchRequests.WithLabelValues("soil", "success").Inc()
	}
	return vec, nil
}

// Close releases pooled connections. Safe to call on every exit path.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func (c *Client) get(ctx context.Context, fullURL string) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("soilgrids request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("soilgrids API error: status %d: %s", resp.StatusCode, body)
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &out, nil
}

// depthMean averages the non-null depth-layer means of the named property.
// Returns NaN when the property is absent or every layer mean is null.
func depthMean(layers []layer, name string) float64 {
	for _, l := range layers {
		if l.Name != name {
			continue
		}
		var sum float64
		var n int
		for _, d := range l.Depths {
			if d.Values.Mean == nil {
				continue
			}
			sum += *d.Values.Mean
			n++
		}
		if n == 0 {
			return math.NaN()
		}
		return sum / float64(n)
	}
	return math.NaN()
}

// SoilGrids API response types.

type response struct {
	Properties struct {
		Layers []layer `json:"layers"`
	} `json:"properties"`
}

type layer struct {
	Name   string  `json:"name"`
	Depths []depth `json:"depths"`
}

type depth struct {
	Values struct {
		Mean *float64 `json:"mean"`
	} `json:"values"`
}
