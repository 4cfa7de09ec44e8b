package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NERVsystems/navtrack/pkg/nav"
	"github.com/NERVsystems/navtrack/pkg/nav/navtest"
	"github.com/NERVsystems/navtrack/pkg/navigator"
	"github.com/NERVsystems/navtrack/pkg/osm"
	"github.com/NERVsystems/navtrack/pkg/testutil"
)

// nominatimResults places Harbor Market 1 km north of the origin.
const nominatimResults = `[{"place_id": 42, "name": "Harbor Market", "display_name": "Harbor Market, Harbor Road",
  "lat": "0.0089932", "lon": "0", "category": "amenity", "type": "marketplace"}]`

func newTestServer(t *testing.T) *Server {
	t.Helper()
	tracker, err := nav.NewTracker(nav.DefaultThresholds(), nav.WithLogger(testutil.DiscardLogger()))
	require.NoError(t, err)
	manager := navigator.NewManager(navtest.NewFetcher(), tracker, navigator.DefaultConfig(),
		navigator.WithLogger(testutil.DiscardLogger()))
	t.Cleanup(manager.Close)

	nominatim := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(nominatimResults))
	}))
	t.Cleanup(nominatim.Close)
	cfg := osm.DefaultConfig()
	cfg.BaseURL = nominatim.URL
	cfg.MinInterval = 0
	places, err := osm.NewClient(cfg, osm.WithLogger(testutil.DiscardLogger()))
	require.NoError(t, err)

	return NewServer(testutil.DiscardLogger(), manager, places)
}

func handle(t *testing.T, s *Server, request string) string {
	t.Helper()
	resp := s.MCPServer().HandleMessage(context.Background(), json.RawMessage(request))
	require.NotNil(t, resp)
	data, err := json.Marshal(resp)
	require.NoError(t, err)
	return string(data)
}

func initialize(t *testing.T, s *Server) {
	t.Helper()
	resp := handle(t, s, `{"jsonrpc":"2.0","id":0,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`)
	require.Contains(t, resp, ServerName)
}

func TestNewServer(t *testing.T) {
	s := newTestServer(t)
	require.NotNil(t, s)
	require.NotNil(t, s.MCPServer())
}

func TestServerListsNavigationTools(t *testing.T) {
	s := newTestServer(t)
	initialize(t, s)

	tools := handle(t, s, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`)
	for _, name := range []string{"plan_navigation", "start_navigation", "update_location", "end_navigation", "search_destination"} {
		assert.Contains(t, tools, name)
	}

	prompts := handle(t, s, `{"jsonrpc":"2.0","id":3,"method":"prompts/list"}`)
	assert.Contains(t, prompts, `"navigation"`)
}

func TestServerCallTool(t *testing.T) {
	s := newTestServer(t)
	initialize(t, s)
	dest := navtest.Point(1000, 0)
	req := map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]any{
			"name": "plan_navigation",
			"arguments": map[string]any{
				"origin_lat": 0, "origin_lon": 0,
				"destination_lat": dest.Latitude, "destination_lon": dest.Longitude,
			},
		},
	}
	raw, err := json.Marshal(req)
	require.NoError(t, err)

	resp := handle(t, s, string(raw))
	assert.Contains(t, resp, "navigation_id")
	assert.Contains(t, resp, "browsing")
}

func TestServerPlanToNamedDestination(t *testing.T) {
	s := newTestServer(t)
	initialize(t, s)

	call := func(id int, name string, args map[string]any) string {
		raw, err := json.Marshal(map[string]any{
			"jsonrpc": "2.0",
			"id":      id,
			"method":  "tools/call",
			"params":  map[string]any{"name": name, "arguments": args},
		})
		require.NoError(t, err)
		return handle(t, s, string(raw))
	}

	resp := call(1, "search_destination", map[string]any{"query": "Harbor Market", "near_lat": 0, "near_lon": 0})
	assert.Contains(t, resp, "Harbor Market")
	assert.NotContains(t, resp, `"isError":true`)

	resp = call(2, "plan_navigation", map[string]any{
		"origin_lat": 0, "origin_lon": 0, "destination_query": "harbor market",
	})
	assert.Contains(t, resp, "navigation_id")
	assert.Contains(t, resp, "Harbor Market")
	assert.NotContains(t, resp, `"isError":true`)
}

func TestServerRunStopsOnCancel(t *testing.T) {
	s := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())

	in, inWriter := io.Pipe()
	defer inWriter.Close()

	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, in, io.Discard)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
