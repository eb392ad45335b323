// Package geocoder is a forward geocoding client for Mapbox-compatible HTTP APIs.
package geocoder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/rentsearch/internal/domain"
	"github.com/kailas-cloud/rentsearch/internal/metrics"
)

// ErrCircuitOpen is returned while the breaker rejects calls.
var ErrCircuitOpen = gobreaker.ErrOpenState

// Config holds geocoding provider settings.
type Config struct {
	BaseURL string
	APIKey  string
	Limit   int
	Timeout time.Duration
	Breaker BreakerConfig
	Logger  *zap.Logger
}

// BreakerConfig controls when the circuit breaker trips.
type BreakerConfig struct {
	Name         string
	MaxRequests  uint32
	Interval     time.Duration
	Timeout      time.Duration
	FailureRatio float64
	MinRequests  uint32
}

// DefaultBreakerConfig returns the breaker settings used when none are configured.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		Name:         "geocoder",
		MaxRequests:  1,
		Interval:     60 * time.Second,
		Timeout:      30 * time.Second,
		FailureRatio: 0.5,
		MinRequests:  5,
	}
}

// Client calls the geocoding API through a circuit breaker.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	limit   int
	breaker *gobreaker.CircuitBreaker[[]domain.Coordinates]
	logger  *zap.Logger
}

// New creates a geocoding client.
func New(cfg *Config) *Client {
	limit := cfg.Limit
	if limit <= 0 {
		limit = 1
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	bc := cfg.Breaker
	if bc.Name == "" {
		bc = DefaultBreakerConfig()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	settings := gobreaker.Settings{
		Name:        bc.Name,
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < bc.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= bc.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Geocoder breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
			metrics.GeocoderBreakerState.WithLabelValues(name).Set(stateToFloat(to))
		},
	}
	metrics.GeocoderBreakerState.WithLabelValues(bc.Name).Set(0)

	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		limit:   limit,
		breaker: gobreaker.NewCircuitBreaker[[]domain.Coordinates](settings),
		logger:  logger,
	}
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

// State returns the current breaker state.
func (c *Client) State() gobreaker.State {
	return c.breaker.State()
}

// featureCollection is the subset of the provider response we read.
type featureCollection struct {
	Features []struct {
		PlaceName string    `json:"place_name"`
		Center    []float64 `json:"center"`
	} `json:"features"`
}

// Geocode returns candidate coordinates for name, best match first.
// Zero candidates is not an error. Transport failures and 5xx responses count against the breaker.
func (c *Client) Geocode(ctx context.Context, name, country string) ([]domain.Coordinates, error) {
	out, err := c.breaker.Execute(func() ([]domain.Coordinates, error) {
		return c.fetch(ctx, name, country)
	})
	if err != nil {
		return nil, fmt.Errorf("geocode %q: %w: %w", name, domain.ErrGeocoderError, err)
	}
	return out, nil
}

func (c *Client) fetch(ctx context.Context, name, country string) ([]domain.Coordinates, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(c.limit))
	if country != "" {
		q.Set("country", country)
	}
	if c.apiKey != "" {
		q.Set("access_token", c.apiKey)
	}
	endpoint := c.baseURL + "/geocoding/v5/mapbox.places/" + url.PathEscape(name) + ".json?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, string(body))
	}

	var fc featureCollection
	if err := json.NewDecoder(resp.Body).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	out := make([]domain.Coordinates, 0, len(fc.Features))
	for _, f := range fc.Features {
		if len(f.Center) != 2 {
			continue
		}
		out = append(out, domain.Coordinates{Lon: f.Center[0], Lat: f.Center[1]})
	}
	return out, nil
}
