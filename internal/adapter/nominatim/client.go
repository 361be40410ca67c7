// Package nominatim implements domain.Geocoder against the OpenStreetMap
// Nominatim search API.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/place-mention-heatmap/internal/domain"
	"github.com/couchcryptid/place-mention-heatmap/internal/observability"
	"golang.org/x/time/rate"
)

// DefaultBaseURL is the public Nominatim instance.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// Client queries Nominatim's structured search with city= and countrycodes=.
// The public instance allows one request per second per application.
type Client struct {
	baseURL    string
	userAgent  string
	language   string
	httpClient *http.Client
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// Options configures a Client.
type Options struct {
	BaseURL   string
	UserAgent string
	Language  string
	Timeout   time.Duration
	// RatePerSecond caps outbound requests. Zero or less disables the limit.
	RatePerSecond float64
}

// NewClient creates a Nominatim client.
func NewClient(opts Options, logger *slog.Logger, metrics *observability.Metrics) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	return &Client{
		baseURL:    base,
		userAgent:  opts.UserAgent,
		language:   opts.Language,
		httpClient: &http.Client{Timeout: opts.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		metrics:    metrics,
		logger:     logger,
	}
}

// ForwardGeocode looks up query as a city within country.
func (c *Client) ForwardGeocode(ctx context.Context, query, country string) (domain.GeocodingResult, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("rate limit wait: %w", err)
	}

	params := url.Values{
		"city":   {query},
		"format": {"jsonv2"},
		"limit":  {"1"},
	}
	if country != "" {
		params.Set("countrycodes", strings.ToLower(country))
	}
	if c.language != "" {
		params.Set("accept-language", c.language)
	}

	start := time.Now()
	result, err := c.search(ctx, c.baseURL+"/search?"+params.Encode())
	c.metrics.GeocodeAPIDuration.WithLabelValues("nominatim").Observe(time.Since(start).Seconds())
	return result, err
}

func (c *Client) search(ctx context.Context, fullURL string) (domain.GeocodingResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("nominatim search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return domain.GeocodingResult{}, fmt.Errorf("nominatim API error: status %d: %s", resp.StatusCode, body)
	}

	var places []place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("decode response: %w", err)
	}
	if len(places) == 0 {
		return domain.GeocodingResult{}, domain.ErrNotFound
	}

	p := places[0]
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("parse lat %q: %w", p.Lat, err)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return domain.GeocodingResult{}, fmt.Errorf("parse lon %q: %w", p.Lon, err)
	}

	c.logger.Debug("nominatim match", "query_url", fullURL, "display_name", p.DisplayName)
	return domain.GeocodingResult{
		Coordinate:  domain.Coordinate{Lat: lat, Lon: lon},
		DisplayName: p.DisplayName,
		Confidence:  p.Importance,
	}, nil
}

// Nominatim returns coordinates as decimal strings.
type place struct {
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Importance  float64 `json:"importance"`
}
