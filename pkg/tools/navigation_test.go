package tools

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NERVsystems/navtrack/pkg/nav"
	"github.com/NERVsystems/navtrack/pkg/nav/navtest"
	"github.com/NERVsystems/navtrack/pkg/navigator"
	"github.com/NERVsystems/navtrack/pkg/osrm"
	"github.com/NERVsystems/navtrack/pkg/testutil"
)

var t0 = time.Date(2026, 10, 19, 14, 0, 0, 0, time.UTC)

func newTestRegistry(t *testing.T) (*Registry, *navtest.Fetcher) {
	t.Helper()
	return newTestRegistryWithPlaces(t, &fakePlaces{places: harborPlaces()})
}

func newTestRegistryWithPlaces(t *testing.T, places PlaceSearcher) (*Registry, *navtest.Fetcher) {
	t.Helper()
	tracker, err := nav.NewTracker(nav.DefaultThresholds(),
		nav.WithLogger(testutil.DiscardLogger()),
		nav.WithLocation(time.UTC))
	require.NoError(t, err)

	fetcher := navtest.NewFetcher()
	manager := navigator.NewManager(fetcher, tracker, navigator.DefaultConfig(),
		navigator.WithLogger(testutil.DiscardLogger()))
	t.Cleanup(manager.Close)

	r := NewRegistry(testutil.DiscardLogger(), manager, places)
	r.now = func() time.Time { return t0 }
	return r, fetcher
}

func call(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (*mcp.CallToolResult, string) {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	result, err := handler(context.Background(), req)
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")
	return result, text.Text
}

func planArgs() map[string]any {
	dest := navtest.Point(1000, 0)
	return map[string]any{
		"origin_lat":      0.0,
		"origin_lon":      0.0,
		"destination_lat": dest.Latitude,
		"destination_lon": dest.Longitude,
		"mode":            "walking",
	}
}

func plan(t *testing.T, r *Registry) string {
	t.Helper()
	result, text := call(t, r.HandlePlanNavigation, planArgs())
	require.False(t, result.IsError, text)
	var out PlanResult
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	require.NotEmpty(t, out.NavigationID)
	return out.NavigationID
}

func TestToolDefinitions(t *testing.T) {
	r, _ := newTestRegistry(t)
	defs := r.GetToolDefinitions()

	names := make(map[string]bool)
	for _, def := range defs {
		assert.Equal(t, def.Name, def.Tool.Name)
		assert.NotNil(t, def.Handler)
		names[def.Name] = true
	}
	for _, want := range []string{"plan_navigation", "set_transport_mode", "start_navigation",
		"update_location", "navigation_status", "end_navigation", "search_destination"} {
		assert.True(t, names[want], "missing tool %s", want)
	}
}

func TestHandlePlanNavigation(t *testing.T) {
	r, _ := newTestRegistry(t)

	result, text := call(t, r.HandlePlanNavigation, planArgs())
	require.False(t, result.IsError, text)

	var out PlanResult
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	assert.Equal(t, navigator.StateBrowsing, out.State)
	assert.Equal(t, nav.ModeWalking, out.Mode)
	require.Len(t, out.Routes, 1)
	assert.Equal(t, "1.0 km", out.Routes[0].DistanceText)
	assert.Contains(t, out.Summary, "1 walking route(s)")
}

func TestHandlePlanNavigationValidation(t *testing.T) {
	tests := []struct {
		name string
		edit func(map[string]any)
		want string
	}{
		{"Missing origin", func(a map[string]any) { delete(a, "origin_lat") }, "origin_lat is required"},
		{"Latitude out of range", func(a map[string]any) { a["destination_lat"] = 95.0 }, "Invalid destination"},
		{"Not a number", func(a map[string]any) { a["origin_lon"] = "east" }, "origin_lon must be a number"},
		{"Unknown mode", func(a map[string]any) { a["mode"] = "teleport" }, "teleport"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, fetcher := newTestRegistry(t)
			args := planArgs()
			tt.edit(args)

			result, text := call(t, r.HandlePlanNavigation, args)
			assert.True(t, result.IsError)
			assert.Contains(t, text, tt.want)
			assert.Zero(t, fetcher.Calls())
		})
	}
}

func TestHandlePlanNavigationNumericStrings(t *testing.T) {
	r, _ := newTestRegistry(t)
	args := planArgs()
	args["origin_lat"] = "0"
	args["origin_lon"] = "0.0"

	result, text := call(t, r.HandlePlanNavigation, args)
	assert.False(t, result.IsError, text)
}

func TestHandlePlanNavigationFetchFailure(t *testing.T) {
	r, fetcher := newTestRegistry(t)
	fetcher.SetError(osrm.NewAPIError(http.StatusBadRequest, "NoRoute", "Impossible route", osrm.GuidanceRouteNotFound))

	result, text := call(t, r.HandlePlanNavigation, planArgs())
	require.False(t, result.IsError, "a failed fetch still opens the navigation")

	var out PlanResult
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	assert.Empty(t, out.Routes)
	assert.Contains(t, out.LastError, "Impossible route")
}

func TestNavigationSession(t *testing.T) {
	r, _ := newTestRegistry(t)
	id := plan(t, r)

	// Updates before start are rejected with guidance.
	result, text := call(t, r.HandleUpdateLocation, map[string]any{
		"navigation_id": id, "latitude": 0.0, "longitude": 0.0,
	})
	assert.True(t, result.IsError)
	assert.Contains(t, text, GuidanceNotNavigating)

	result, text = call(t, r.HandleStartNavigation, map[string]any{"navigation_id": id, "route_index": "0"})
	require.False(t, result.IsError, text)

	result, text = call(t, r.HandleStartNavigation, map[string]any{"navigation_id": id})
	assert.True(t, result.IsError)
	assert.Contains(t, text, GuidanceStarted)

	pos := navtest.Point(350, 0)
	result, text = call(t, r.HandleUpdateLocation, map[string]any{
		"navigation_id": id,
		"latitude":      pos.Latitude,
		"longitude":     pos.Longitude,
		"timestamp":     t0.Add(time.Minute).Format(time.RFC3339),
	})
	require.False(t, result.IsError, text)

	var loc LocationResult
	require.NoError(t, json.Unmarshal([]byte(text), &loc))
	assert.Equal(t, id, loc.NavigationID)
	assert.Contains(t, loc.Instruction, "Harbor Road")
	assert.InDelta(t, 650, loc.RemainingDistance, 1)
	assert.Equal(t, "650 m", loc.DistanceText)
	assert.False(t, loc.OffRoute)
	assert.False(t, loc.HasArrived)

	end := navtest.Point(990, 0)
	_, text = call(t, r.HandleUpdateLocation, map[string]any{
		"navigation_id": id,
		"latitude":      end.Latitude,
		"longitude":     end.Longitude,
		"timestamp":     t0.Add(10 * time.Minute).Unix(),
	})
	require.NoError(t, json.Unmarshal([]byte(text), &loc))
	assert.True(t, loc.ArrivedNow)
	assert.True(t, loc.HasArrived)
	assert.Equal(t, nav.ArrivedInstruction, loc.Instruction)

	result, text = call(t, r.HandleEndNavigation, map[string]any{"navigation_id": id})
	require.False(t, result.IsError, text)

	result, text = call(t, r.HandleNavigationStatus, map[string]any{"navigation_id": id})
	assert.True(t, result.IsError)
	assert.Contains(t, text, GuidanceNotFound)
}

func TestHandleStartNavigationInvalidIndex(t *testing.T) {
	r, _ := newTestRegistry(t)
	id := plan(t, r)

	result, text := call(t, r.HandleStartNavigation, map[string]any{"navigation_id": id, "route_index": 3})
	assert.True(t, result.IsError)
	assert.Contains(t, text, GuidanceRouteIndex)
}

func TestHandleNavigationStatus(t *testing.T) {
	r, _ := newTestRegistry(t)
	id := plan(t, r)

	_, text := call(t, r.HandleNavigationStatus, map[string]any{"navigation_id": id})
	assert.Contains(t, text, "[0] 1.0 km, 10 min")

	_, text = call(t, r.HandleNavigationStatus, map[string]any{"navigation_id": id, "format": FormatJSON})
	var snap navigator.Snapshot
	require.NoError(t, json.Unmarshal([]byte(text), &snap))
	assert.Equal(t, id, snap.ID)
	assert.Equal(t, navigator.StateBrowsing, snap.State)

	_, text = call(t, r.HandleNavigationStatus, map[string]any{"navigation_id": id, "format": FormatGeoJSON})
	fc, err := geojson.UnmarshalFeatureCollection([]byte(text))
	require.NoError(t, err)
	assert.NotEmpty(t, fc.Features)

	result, text := call(t, r.HandleNavigationStatus, map[string]any{"navigation_id": id, "format": "kml"})
	assert.True(t, result.IsError)
	assert.Contains(t, text, "Unknown format")
}

func TestHandleSetTransportMode(t *testing.T) {
	r, fetcher := newTestRegistry(t)
	id := plan(t, r)

	result, text := call(t, r.HandleSetTransportMode, map[string]any{"navigation_id": id, "mode": "driving"})
	require.False(t, result.IsError, text)
	var out PlanResult
	require.NoError(t, json.Unmarshal([]byte(text), &out))
	assert.Equal(t, nav.ModeDriving, out.Mode)
	assert.Equal(t, 2, fetcher.Calls())

	result, _ = call(t, r.HandleSetTransportMode, map[string]any{"navigation_id": id, "mode": "boat"})
	assert.True(t, result.IsError)

	result, text = call(t, r.HandleSetTransportMode, map[string]any{"navigation_id": "missing", "mode": "walking"})
	assert.True(t, result.IsError)
	assert.Contains(t, text, GuidanceNotFound)
}

func TestToolError(t *testing.T) {
	apiErr := osrm.NewAPIError(http.StatusServiceUnavailable, "", "routing service unavailable", osrm.GuidanceNetworkError)
	result := ToolError(apiErr)
	require.True(t, result.IsError)
	text := result.Content[0].(mcp.TextContent).Text
	assert.Contains(t, text, "routing service unavailable")
	assert.Contains(t, text, osrm.GuidanceNetworkError)

	result = ToolError(context.DeadlineExceeded)
	assert.Equal(t, "Error: context deadline exceeded", result.Content[0].(mcp.TextContent).Text)
}

func TestOptionalTime(t *testing.T) {
	tests := []struct {
		name    string
		value   any
		want    time.Time
		wantErr bool
	}{
		{"Missing", nil, time.Time{}, false},
		{"RFC 3339", "2026-10-19T14:00:00Z", t0, false},
		{"Unix seconds", t0.Unix(), t0, false},
		{"Unix seconds as float", float64(t0.Unix()), t0, false},
		{"Garbage", "yesterday", time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req mcp.CallToolRequest
			req.Params.Arguments = map[string]any{"timestamp": tt.value}
			got, err := optionalTime(req, "timestamp")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}
