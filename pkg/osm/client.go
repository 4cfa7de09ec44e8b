// Package osm searches OpenStreetMap places through a Nominatim service so
// a navigation can be planned to a named destination.
package osm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/spf13/cast"
	"golang.org/x/time/rate"

	"github.com/NERVsystems/navtrack/pkg/geo"
	"github.com/NERVsystems/navtrack/pkg/version"
)

const (
	// DefaultBaseURL is the public Nominatim instance
	DefaultBaseURL = "https://nominatim.openstreetmap.org"

	// DefaultLimit is the number of places returned when none is requested
	DefaultLimit = 5
	// MaxLimit is the largest result count Nominatim serves
	MaxLimit = 40
	// MaxQueryLength caps the free-form query
	MaxQueryLength = 256
)

var (
	// ErrEmptyQuery is returned for a query without any text
	ErrEmptyQuery = errors.New("search query is empty")
	// ErrNoResults is returned by Resolve when nothing matches the query
	ErrNoResults = errors.New("no places match the query")
)

// Config configures a Client.
type Config struct {
	Enabled      bool          `koanf:"enabled"`
	BaseURL      string        `koanf:"base_url"`
	UserAgent    string        `koanf:"user_agent"`
	Timeout      time.Duration `koanf:"timeout"`
	MinInterval  time.Duration `koanf:"min_interval"`  // between requests
	SearchRadius float64       `koanf:"search_radius"` // meters around the bias point
	CacheSize    int           `koanf:"cache_size"`
	CacheTTL     time.Duration `koanf:"cache_ttl"`
}

// DefaultConfig follows the public Nominatim usage policy of one request
// per second with an identifying User-Agent.
func DefaultConfig() Config {
	return Config{
		Enabled:      true,
		BaseURL:      DefaultBaseURL,
		UserAgent:    version.UserAgent(),
		Timeout:      10 * time.Second,
		MinInterval:  time.Second,
		SearchRadius: 5000,
		CacheSize:    128,
		CacheTTL:     10 * time.Minute,
	}
}

// Place is a single search result.
type Place struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	DisplayName string         `json:"display_name"`
	Category    string         `json:"category,omitempty"`
	Type        string         `json:"type,omitempty"`
	Importance  float64        `json:"importance,omitempty"`
	Location    geo.Coordinate `json:"location"`
	Distance    float64        `json:"distance"` // meters from the bias point, -1 without one
}

// searchResult is one entry of a Nominatim jsonv2 search response.
type searchResult struct {
	PlaceID     any     `json:"place_id"`
	Name        string  `json:"name"`
	DisplayName string  `json:"display_name"`
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	Category    string  `json:"category"`
	Type        string  `json:"type"`
	Importance  float64 `json:"importance"`
}

// Client is a Nominatim search client with rate limiting and a response
// cache.
type Client struct {
	baseURL    *url.URL
	userAgent  string
	radius     float64
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *expirable.LRU[string, []Place]
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the client logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client for cfg.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse Nominatim base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("Nominatim base URL %q must be absolute", cfg.BaseURL)
	}

	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}
	c := &Client{
		baseURL:   base,
		userAgent: cfg.UserAgent,
		radius:    cfg.SearchRadius,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     30 * time.Second,
			},
			Timeout: cfg.Timeout,
		},
		limiter: rate.NewLimiter(limit, 1),
		logger:  slog.Default(),
	}
	if cfg.CacheSize > 0 {
		c.cache = expirable.NewLRU[string, []Place](cfg.CacheSize, nil, cfg.CacheTTL)
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "nominatim")
	return c, nil
}

// SanitizeQuery trims the query, collapses whitespace and drops control
// characters. The result is at most MaxQueryLength bytes.
func SanitizeQuery(query string) string {
	query = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return ' '
		}
		return r
	}, query)
	query = strings.Join(strings.Fields(query), " ")
	if len(query) > MaxQueryLength {
		query = strings.TrimSpace(strings.ToValidUTF8(query[:MaxQueryLength], ""))
	}
	return query
}

func cacheKey(query string, limit int, near *geo.Coordinate) string {
	key := fmt.Sprintf("%d/%s", limit, strings.ToLower(query))
	if near != nil {
		key += fmt.Sprintf("@%.3f,%.3f", near.Latitude, near.Longitude)
	}
	return key
}

// Search looks up places matching query. When near is set, results are
// biased towards a box of the configured radius around it and ordered by
// distance from it; otherwise Nominatim's relevance order is kept. An
// empty result is not an error.
func (c *Client) Search(ctx context.Context, query string, limit int, near *geo.Coordinate) ([]Place, error) {
	query = SanitizeQuery(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	if near != nil && !near.Valid() {
		return nil, NewAPIError(http.StatusBadRequest, fmt.Sprintf("invalid bias point %s", near), GuidanceCoordinates)
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	key := cacheKey(query, limit, near)
	if c.cache != nil {
		if places, ok := c.cache.Get(key); ok {
			c.logger.Debug("search cache hit", "key", key)
			return places, nil
		}
	}

	reqURL := *c.baseURL
	reqURL.Path = strings.TrimSuffix(reqURL.Path, "/") + "/search"
	q := reqURL.Query()
	q.Set("q", query)
	q.Set("format", "jsonv2")
	q.Set("limit", strconv.Itoa(limit))
	if near != nil && c.radius > 0 {
		box := geo.NewBoundingBox()
		box.ExtendWithPoint(near.Latitude, near.Longitude)
		box.Buffer(c.radius)
		// left,top,right,bottom
		q.Set("viewbox", fmt.Sprintf("%f,%f,%f,%f", box.MinLon, box.MaxLat, box.MaxLon, box.MinLat))
	}
	reqURL.RawQuery = q.Encode()

	if err := c.limiter.Wait(ctx); err != nil {
		c.logger.Debug("rate limiter wait error", "error", err)
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create search request: %w", err)
	}
	// Nominatim's usage policy requires an identifying User-Agent.
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &APIError{
			Service:     "Nominatim",
			Message:     err.Error(),
			Recoverable: true,
			Guidance:    GuidanceNetworkError,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("geocoding service returned error", "status", resp.StatusCode)
		return nil, NewAPIError(resp.StatusCode, http.StatusText(resp.StatusCode), "")
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}
	var results []searchResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, NewAPIError(resp.StatusCode, "failed to parse geocoding response", GuidanceDataError)
	}

	places := make([]Place, 0, len(results))
	for _, r := range results {
		p, err := convertResult(r)
		if err != nil {
			c.logger.Debug("skipping search result", "place_id", r.PlaceID, "error", err)
			continue
		}
		p.Distance = -1
		if near != nil {
			p.Distance = geo.Distance(*near, p.Location)
		}
		places = append(places, p)
	}
	if near != nil {
		sort.SliceStable(places, func(i, j int) bool {
			return places[i].Distance < places[j].Distance
		})
	}

	c.logger.Debug("searched places",
		"query", query,
		"count", len(places),
		"duration", time.Since(start))

	if c.cache != nil {
		c.cache.Add(key, places)
	}
	return places, nil
}

// Resolve returns the best match for query, preferring places close to
// near when it is set.
func (c *Client) Resolve(ctx context.Context, query string, near *geo.Coordinate) (Place, error) {
	places, err := c.Search(ctx, query, DefaultLimit, near)
	if err != nil {
		return Place{}, err
	}
	if len(places) == 0 {
		return Place{}, fmt.Errorf("%w: %q", ErrNoResults, SanitizeQuery(query))
	}
	return places[0], nil
}

func convertResult(r searchResult) (Place, error) {
	lat, err := cast.ToFloat64E(r.Lat)
	if err != nil {
		return Place{}, fmt.Errorf("latitude %q: %w", r.Lat, err)
	}
	lon, err := cast.ToFloat64E(r.Lon)
	if err != nil {
		return Place{}, fmt.Errorf("longitude %q: %w", r.Lon, err)
	}
	loc := geo.Coordinate{Latitude: lat, Longitude: lon}
	if !loc.Valid() {
		return Place{}, fmt.Errorf("invalid location %s", loc)
	}

	name := r.Name
	if name == "" {
		name, _, _ = strings.Cut(r.DisplayName, ",")
	}
	return Place{
		ID:          cast.ToString(r.PlaceID),
		Name:        name,
		DisplayName: r.DisplayName,
		Category:    r.Category,
		Type:        r.Type,
		Importance:  r.Importance,
		Location:    loc,
	}, nil
}
