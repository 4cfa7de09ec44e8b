package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NERVsystems/navtrack/pkg/geo"
	"github.com/NERVsystems/navtrack/pkg/nav/navtest"
	"github.com/NERVsystems/navtrack/pkg/osm"
)

// fakePlaces serves a fixed result list and records the last request.
type fakePlaces struct {
	mu     sync.Mutex
	places []osm.Place
	err    error
	query  string
	limit  int
	near   *geo.Coordinate
}

func (f *fakePlaces) Search(ctx context.Context, query string, limit int, near *geo.Coordinate) ([]osm.Place, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.query, f.limit, f.near = query, limit, near
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.places) {
		return f.places[:limit], nil
	}
	return f.places, nil
}

func (f *fakePlaces) Resolve(ctx context.Context, query string, near *geo.Coordinate) (osm.Place, error) {
	places, err := f.Search(ctx, query, osm.DefaultLimit, near)
	if err != nil {
		return osm.Place{}, err
	}
	if len(places) == 0 {
		return osm.Place{}, fmt.Errorf("%w: %q", osm.ErrNoResults, query)
	}
	return places[0], nil
}

func harborPlaces() []osm.Place {
	return []osm.Place{
		{ID: "1", Name: "Harbor Market", DisplayName: "Harbor Market, Harbor Road", Location: navtest.Point(1000, 0), Distance: 1000},
		{ID: "2", Name: "Harbor Museum", DisplayName: "Harbor Museum, Harbor Road", Location: navtest.Point(1400, 0), Distance: 1400},
	}
}

func TestHandleSearchDestination(t *testing.T) {
	places := &fakePlaces{places: harborPlaces()}
	r, _ := newTestRegistryWithPlaces(t, places)

	result, text := call(t, r.HandleSearchDestination, map[string]any{
		"query":    "  harbor\tmarket ",
		"near_lat": 0.0,
		"near_lon": "0",
		"limit":    1,
	})
	require.False(t, result.IsError, text)

	var out SearchResult
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	assert.Equal(t, "harbor market", out.Query)
	assert.Equal(t, 1, out.Count)
	require.Len(t, out.Places, 1)
	assert.Equal(t, "Harbor Market", out.Places[0].Name)

	assert.Equal(t, "harbor market", places.query)
	assert.Equal(t, 1, places.limit)
	require.NotNil(t, places.near)
	assert.Equal(t, geo.Coordinate{}, *places.near)
}

func TestHandleSearchDestinationWithoutPosition(t *testing.T) {
	places := &fakePlaces{places: harborPlaces()}
	r, _ := newTestRegistryWithPlaces(t, places)

	result, text := call(t, r.HandleSearchDestination, map[string]any{"query": "museum"})
	require.False(t, result.IsError, text)
	assert.Nil(t, places.near)
	assert.Equal(t, osm.DefaultLimit, places.limit)
}

func TestHandleSearchDestinationValidation(t *testing.T) {
	tests := []struct {
		name string
		args map[string]any
		want string
	}{
		{"Missing query", map[string]any{}, "query is required"},
		{"Blank query", map[string]any{"query": " \n "}, "query must not be empty"},
		{"Limit too large", map[string]any{"query": "park", "limit": 500}, "limit must be between"},
		{"Only latitude", map[string]any{"query": "park", "near_lat": 1.0}, "near_lon is required"},
		{"Bad position", map[string]any{"query": "park", "near_lat": 100.0, "near_lon": 0.0}, "Invalid search position"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			places := &fakePlaces{}
			r, _ := newTestRegistryWithPlaces(t, places)

			result, text := call(t, r.HandleSearchDestination, tt.args)
			assert.True(t, result.IsError)
			assert.Contains(t, text, tt.want)
			assert.Empty(t, places.query, "invalid requests never reach the geocoder")
		})
	}
}

func TestHandleSearchDestinationServiceError(t *testing.T) {
	places := &fakePlaces{err: osm.NewAPIError(http.StatusTooManyRequests, "Too Many Requests", "")}
	r, _ := newTestRegistryWithPlaces(t, places)

	result, text := call(t, r.HandleSearchDestination, map[string]any{"query": "park"})
	assert.True(t, result.IsError)
	assert.Contains(t, text, osm.GuidanceRateLimit)
}

func TestHandlePlanNavigationDestinationQuery(t *testing.T) {
	places := &fakePlaces{places: harborPlaces()}
	r, fetcher := newTestRegistryWithPlaces(t, places)

	result, text := call(t, r.HandlePlanNavigation, map[string]any{
		"origin_lat":        0.0,
		"origin_lon":        0.0,
		"destination_query": "Harbor Market",
		"mode":              "walking",
	})
	require.False(t, result.IsError, text)

	var out PlanResult
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	require.NotNil(t, out.Destination)
	assert.Equal(t, "Harbor Market", out.Destination.Name)
	require.Len(t, out.Routes, 1)
	assert.Equal(t, 1, fetcher.Calls())

	require.NotNil(t, places.near, "the search is biased towards the origin")
	assert.Equal(t, geo.Coordinate{}, *places.near)

	snap, err := r.manager.Status(out.NavigationID)
	require.NoError(t, err)
	assert.Equal(t, navtest.Point(1000, 0), snap.Destination)
}

func TestHandlePlanNavigationDestinationQueryFailures(t *testing.T) {
	tests := []struct {
		name   string
		places PlaceSearcher
		want   string
	}{
		{"No match", &fakePlaces{}, osm.GuidanceNoResults},
		{"Service down", &fakePlaces{err: &osm.APIError{Service: "Nominatim", Message: "connection refused", Recoverable: true, Guidance: osm.GuidanceNetworkError}}, osm.GuidanceNetworkError},
		{"Search disabled", nil, GuidanceSearchOff},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, fetcher := newTestRegistryWithPlaces(t, tt.places)

			result, text := call(t, r.HandlePlanNavigation, map[string]any{
				"origin_lat":        0.0,
				"origin_lon":        0.0,
				"destination_query": "Atlantis",
			})
			assert.True(t, result.IsError)
			assert.Contains(t, text, tt.want)
			assert.Zero(t, fetcher.Calls(), "no routes are fetched without a destination")
		})
	}
}

func TestSearchToolRequiresGeocoder(t *testing.T) {
	r, _ := newTestRegistryWithPlaces(t, nil)
	for _, def := range r.GetToolDefinitions() {
		assert.NotEqual(t, "search_destination", def.Name)
	}
}
