// Package osrm fetches candidate routes from an OSRM routing service and
// converts them into navigation routes.
package osrm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/NERVsystems/navtrack/pkg/geo"
	"github.com/NERVsystems/navtrack/pkg/nav"
	"github.com/NERVsystems/navtrack/pkg/version"
)

const (
	// DefaultBaseURL is the public OSRM demo server
	DefaultBaseURL = "https://router.project-osrm.org"
)

// Config configures a Client.
type Config struct {
	BaseURL     string        `koanf:"base_url"`
	UserAgent   string        `koanf:"user_agent"`
	Timeout     time.Duration `koanf:"timeout"`
	MinInterval time.Duration `koanf:"min_interval"` // between requests to one host
	Burst       int           `koanf:"burst"`
	CacheSize   int           `koanf:"cache_size"`
	CacheTTL    time.Duration `koanf:"cache_ttl"`
}

// DefaultConfig returns settings suitable for the public demo server.
func DefaultConfig() Config {
	return Config{
		BaseURL:     DefaultBaseURL,
		UserAgent:   version.UserAgent(),
		Timeout:     30 * time.Second,
		MinInterval: 600 * time.Millisecond,
		Burst:       5,
		CacheSize:   256,
		CacheTTL:    30 * time.Second,
	}
}

// RouteResponse is the body of an OSRM route request.
type RouteResponse struct {
	Code    string  `json:"code"`
	Message string  `json:"message,omitempty"`
	Routes  []Route `json:"routes,omitempty"`
}

// Route represents a single route in the OSRM response
type Route struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Geometry string  `json:"geometry"`
	Legs     []Leg   `json:"legs"`
}

// Leg represents a leg of the OSRM route
type Leg struct {
	Distance float64 `json:"distance"`
	Duration float64 `json:"duration"`
	Steps    []Step  `json:"steps"`
	Summary  string  `json:"summary"`
}

// Step represents a step in an OSRM leg
type Step struct {
	Distance float64  `json:"distance"`
	Duration float64  `json:"duration"`
	Geometry string   `json:"geometry"`
	Maneuver Maneuver `json:"maneuver"`
	Mode     string   `json:"mode"`
	Name     string   `json:"name"`
	Ref      string   `json:"ref,omitempty"`
}

// Maneuver represents a maneuver in an OSRM step
type Maneuver struct {
	BearingAfter  int       `json:"bearing_after"`
	BearingBefore int       `json:"bearing_before"`
	Location      []float64 `json:"location"`
	Type          string    `json:"type"`
	Modifier      string    `json:"modifier,omitempty"`
	Exit          int       `json:"exit,omitempty"`
}

// Profile maps a transport mode to an OSRM profile. OSRM has no transit
// profile, so transit is routed like driving.
func Profile(mode nav.TransportMode) string {
	switch mode {
	case nav.ModeWalking:
		return "foot"
	default:
		return "driving"
	}
}

// Client is an OSRM routing client with per-host rate limiting and a
// short-lived response cache.
type Client struct {
	baseURL    *url.URL
	userAgent  string
	httpClient *http.Client
	limiter    *RateLimiter
	cache      *expirable.LRU[string, []nav.Route]
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
		return nil, fmt.Errorf("parse OSRM base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("OSRM base URL %q must be absolute", cfg.BaseURL)
	}

	c := &Client{
		baseURL:   base,
		userAgent: cfg.UserAgent,
		httpClient: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
			Timeout: cfg.Timeout,
		},
		limiter: NewRateLimiter(cfg.MinInterval, cfg.Burst),
		logger:  slog.Default(),
	}
	if cfg.CacheSize > 0 {
		c.cache = expirable.NewLRU[string, []nav.Route](cfg.CacheSize, nil, cfg.CacheTTL)
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "osrm")
	return c, nil
}

// cacheKey rounds coordinates to about a meter so jittery fixes share entries.
func cacheKey(origin, destination geo.Coordinate, profile string) string {
	return fmt.Sprintf("%s/%.5f,%.5f;%.5f,%.5f", profile,
		origin.Longitude, origin.Latitude, destination.Longitude, destination.Latitude)
}

// FetchRoutes requests up to three alternative routes from origin to
// destination. A response without routes is reported as an *APIError.
func (c *Client) FetchRoutes(ctx context.Context, origin, destination geo.Coordinate, mode nav.TransportMode) ([]nav.Route, error) {
	if !origin.Valid() || !destination.Valid() {
		return nil, NewAPIError(http.StatusBadRequest, "InvalidInput",
			fmt.Sprintf("invalid coordinates %s -> %s", origin, destination), "")
	}

	profile := Profile(mode)
	key := cacheKey(origin, destination, profile)
	if c.cache != nil {
		if routes, ok := c.cache.Get(key); ok {
			c.logger.Debug("route cache hit", "key", key)
			return routes, nil
		}
	}

	reqURL := *c.baseURL
	reqURL.Path = fmt.Sprintf("/route/v1/%s/%f,%f;%f,%f", profile,
		origin.Longitude, origin.Latitude,
		destination.Longitude, destination.Latitude)
	q := reqURL.Query()
	q.Set("alternatives", "true")
	q.Set("steps", "true")
	q.Set("geometries", "polyline6")
	q.Set("overview", "full")
	reqURL.RawQuery = q.Encode()

	if err := c.limiter.Wait(ctx, reqURL.Host); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create route request: %w", err)
	}
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
			Service:     "OSRM",
			Message:     err.Error(),
			Recoverable: true,
			Guidance:    GuidanceNetworkError,
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("read route response: %w", err)
	}

	var osrmResp RouteResponse
	if err := json.Unmarshal(body, &osrmResp); err != nil {
		if resp.StatusCode != http.StatusOK {
			return nil, NewAPIError(resp.StatusCode, "", http.StatusText(resp.StatusCode), "")
		}
		return nil, NewAPIError(resp.StatusCode, "", "failed to parse routing response", GuidanceDataError)
	}
	if osrmResp.Code != "Ok" {
		c.logger.Warn("routing service error",
			"code", osrmResp.Code, "message", osrmResp.Message, "status", resp.StatusCode)
		return nil, NewAPIError(resp.StatusCode, osrmResp.Code, osrmResp.Message, "")
	}
	if len(osrmResp.Routes) == 0 {
		return nil, NewAPIError(http.StatusNotFound, "NoRoute", "no route found", "")
	}

	routes := make([]nav.Route, 0, len(osrmResp.Routes))
	for i, r := range osrmResp.Routes {
		route, err := convertRoute(r)
		if err != nil {
			return nil, NewAPIError(resp.StatusCode, "", fmt.Sprintf("route %d: %v", i, err), GuidanceDataError)
		}
		routes = append(routes, route)
	}

	c.logger.Debug("fetched routes",
		"profile", profile,
		"count", len(routes),
		"duration", time.Since(start))

	if c.cache != nil {
		c.cache.Add(key, routes)
	}
	return routes, nil
}

func convertRoute(r Route) (nav.Route, error) {
	line, err := DecodePolyline6(r.Geometry)
	if err != nil {
		return nav.Route{}, err
	}
	route := nav.Route{
		Polyline:           line,
		Distance:           r.Distance,
		ExpectedTravelTime: r.Duration,
	}
	for _, leg := range r.Legs {
		for _, s := range leg.Steps {
			stepLine, err := DecodePolyline6(s.Geometry)
			if err != nil {
				return nav.Route{}, err
			}
			route.Steps = append(route.Steps, nav.Step{
				Instruction: Instruction(s),
				Polyline:    stepLine,
			})
		}
	}
	return route, nil
}
