package tools

import (
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/spf13/cast"

	"github.com/NERVsystems/navtrack/pkg/geo"
)

// argument returns the raw value of a tool argument.
func argument(req mcp.CallToolRequest, name string) (any, bool) {
	v, ok := req.Params.Arguments[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// requiredFloat reads a numeric argument, accepting numbers and numeric strings.
func requiredFloat(req mcp.CallToolRequest, name string) (float64, error) {
	v, ok := argument(req, name)
	if !ok {
		return 0, fmt.Errorf("%s is required", name)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	return f, nil
}

func optionalFloat(req mcp.CallToolRequest, name string, fallback float64) (float64, error) {
	v, ok := argument(req, name)
	if !ok {
		return fallback, nil
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	return f, nil
}

func optionalInt(req mcp.CallToolRequest, name string, fallback int) (int, error) {
	v, ok := argument(req, name)
	if !ok {
		return fallback, nil
	}
	i, err := cast.ToIntE(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", name)
	}
	return i, nil
}

func requiredString(req mcp.CallToolRequest, name string) (string, error) {
	v, ok := argument(req, name)
	if !ok {
		return "", fmt.Errorf("%s is required", name)
	}
	s, err := cast.ToStringE(v)
	if err != nil || s == "" {
		return "", fmt.Errorf("%s must be a non-empty string", name)
	}
	return s, nil
}

// optionalTime parses an RFC 3339 timestamp or unix seconds.
func optionalTime(req mcp.CallToolRequest, name string) (time.Time, error) {
	v, ok := argument(req, name)
	if !ok {
		return time.Time{}, nil
	}
	if s, isString := v.(string); isString {
		if s == "" {
			return time.Time{}, nil
		}
		t, err := time.Parse(time.RFC3339, s)
		if err != nil {
			return time.Time{}, fmt.Errorf("%s must be an RFC 3339 timestamp", name)
		}
		return t, nil
	}
	secs, err := cast.ToInt64E(v)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be an RFC 3339 timestamp", name)
	}
	return time.Unix(secs, 0).UTC(), nil
}

// coordinate reads a latitude/longitude argument pair and validates it.
func coordinate(req mcp.CallToolRequest, latName, lonName string) (geo.Coordinate, error) {
	lat, err := requiredFloat(req, latName)
	if err != nil {
		return geo.Coordinate{}, err
	}
	lon, err := requiredFloat(req, lonName)
	if err != nil {
		return geo.Coordinate{}, err
	}
	c := geo.Coordinate{Latitude: lat, Longitude: lon}
	if !c.Valid() {
		return geo.Coordinate{}, fmt.Errorf("invalid coordinates %s", c)
	}
	return c, nil
}

// optionalCoordinate reads a latitude/longitude pair that may be omitted
// as a whole. Giving only one of the two is an error.
func optionalCoordinate(req mcp.CallToolRequest, latName, lonName string) (*geo.Coordinate, error) {
	_, hasLat := argument(req, latName)
	_, hasLon := argument(req, lonName)
	if !hasLat && !hasLon {
		return nil, nil
	}
	c, err := coordinate(req, latName, lonName)
	if err != nil {
		return nil, err
	}
	return &c, nil
}
