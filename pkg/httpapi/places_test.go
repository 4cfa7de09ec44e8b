package httpapi

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
	calls  int
	query  string
	limit  int
	near   *geo.Coordinate
}

func (f *fakePlaces) Search(ctx context.Context, query string, limit int, near *geo.Coordinate) ([]osm.Place, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
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
		{ID: "1", Name: "Harbor Market", Location: navtest.Point(1000, 0), Distance: 1000},
		{ID: "2", Name: "Harbor Museum", Location: navtest.Point(1400, 0), Distance: 1400},
	}
}

func TestSearchPlaces(t *testing.T) {
	places := &fakePlaces{places: harborPlaces()}
	api := newTestAPIWithPlaces(t, places)

	rec := api.do(http.MethodGet, "/api/places?q=harbor+market&lat=0.001&lon=0&limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp PlacesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "harbor market", resp.Query)
	assert.Equal(t, 1, resp.Count)
	require.Len(t, resp.Places, 1)
	assert.Equal(t, "Harbor Market", resp.Places[0].Name)

	assert.Equal(t, 1, places.limit)
	require.NotNil(t, places.near)
	assert.Equal(t, geo.Coordinate{Latitude: 0.001}, *places.near)
}

func TestSearchPlacesValidation(t *testing.T) {
	tests := []struct {
		name string
		path string
		want int
	}{
		{"Missing query", "/api/places", http.StatusBadRequest},
		{"Blank query", "/api/places?q=%20%20", http.StatusBadRequest},
		{"Bad limit", "/api/places?q=park&limit=many", http.StatusBadRequest},
		{"Limit too large", "/api/places?q=park&limit=100", http.StatusBadRequest},
		{"Only latitude", "/api/places?q=park&lat=1", http.StatusBadRequest},
		{"Latitude out of range", "/api/places?q=park&lat=91&lon=0", http.StatusBadRequest},
		{"No position", "/api/places?q=park", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			places := &fakePlaces{}
			api := newTestAPIWithPlaces(t, places)

			rec := api.do(http.MethodGet, tt.path, nil)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			if tt.want != http.StatusOK {
				assert.Zero(t, places.calls)
			}
		})
	}
}

func TestSearchPlacesFailures(t *testing.T) {
	t.Run("Geocoder error", func(t *testing.T) {
		api := newTestAPIWithPlaces(t, &fakePlaces{err: osm.NewAPIError(http.StatusTooManyRequests, "Too Many Requests", "")})
		rec := api.do(http.MethodGet, "/api/places?q=park", nil)
		assert.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, osm.GuidanceRateLimit, decodeError(t, rec).Details["guidance"])
	})

	t.Run("Search disabled", func(t *testing.T) {
		api := newTestAPIWithPlaces(t, nil)
		rec := api.do(http.MethodGet, "/api/places?q=park", nil)
		assert.Equal(t, http.StatusNotImplemented, rec.Code)
	})
}

func TestPlanNavigationDestinationQuery(t *testing.T) {
	places := &fakePlaces{places: harborPlaces()}
	api := newTestAPIWithPlaces(t, places)

	rec := api.do(http.MethodPost, "/api/navigations", PlanRequest{
		Origin:           navtest.Point(0, 0),
		DestinationQuery: "Harbor Market",
		Mode:             "walking",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp PlanResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotNil(t, resp.Place)
	assert.Equal(t, "Harbor Market", resp.Place.Name)
	assert.Equal(t, navtest.Point(1000, 0), resp.Destination)
	assert.Len(t, resp.Summaries, 1)

	require.NotNil(t, places.near, "the search is biased towards the origin")
	assert.Equal(t, navtest.Point(0, 0), *places.near)

	snap, err := api.manager.Status(resp.ID)
	require.NoError(t, err)
	assert.Equal(t, navtest.Point(1000, 0), snap.Destination)
}

func TestPlanNavigationDestinationQueryFailures(t *testing.T) {
	tests := []struct {
		name   string
		places PlaceSearcher
		want   int
	}{
		{"No match", &fakePlaces{}, http.StatusNotFound},
		{"Geocoder error", &fakePlaces{err: osm.NewAPIError(http.StatusServiceUnavailable, "unavailable", "")}, http.StatusBadGateway},
		{"Search disabled", nil, http.StatusNotImplemented},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := newTestAPIWithPlaces(t, tt.places)
			rec := api.do(http.MethodPost, "/api/navigations", PlanRequest{
				Origin:           navtest.Point(0, 0),
				DestinationQuery: "Atlantis",
			})
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
			assert.Zero(t, api.fetcher.Calls())
		})
	}
}
