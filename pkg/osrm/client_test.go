package osrm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NERVsystems/navtrack/pkg/geo"
	"github.com/NERVsystems/navtrack/pkg/nav"
	"github.com/NERVsystems/navtrack/pkg/testutil"
)

var (
	origin      = geo.Coordinate{Latitude: 41.3851, Longitude: 2.1734}
	corner      = geo.Coordinate{Latitude: 41.3870, Longitude: 2.1734}
	destination = geo.Coordinate{Latitude: 41.3870, Longitude: 2.1760}
)

func sampleResponse() RouteResponse {
	full := geo.Polyline{origin, corner, destination}
	return RouteResponse{
		Code: "Ok",
		Routes: []Route{{
			Distance: 430,
			Duration: 62,
			Geometry: EncodePolyline6(full),
			Legs: []Leg{{
				Steps: []Step{
					{Name: "Passeig de Gràcia", Geometry: EncodePolyline6(geo.Polyline{origin, corner}),
						Maneuver: Maneuver{Type: "depart", BearingAfter: 0}},
					{Name: "Carrer d'Aragó", Geometry: EncodePolyline6(geo.Polyline{corner, destination}),
						Maneuver: Maneuver{Type: "turn", Modifier: "right"}},
					{Geometry: EncodePolyline6(geo.Polyline{destination, destination}),
						Maneuver: Maneuver{Type: "arrive"}},
				},
			}},
		}, {
			Distance: 510,
			Duration: 80,
			Geometry: EncodePolyline6(geo.Polyline{origin, destination}),
		}},
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *atomic.Int32) {
	t.Helper()
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.BaseURL = srv.URL
	cfg.MinInterval = 0
	client, err := NewClient(cfg, WithLogger(testutil.DiscardLogger()))
	require.NoError(t, err)
	return client, &hits
}

func TestFetchRoutes(t *testing.T) {
	var gotPath, gotQuery, gotUA string
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotUA = r.Header.Get("User-Agent")
		_ = json.NewEncoder(w).Encode(sampleResponse())
	})

	routes, err := client.FetchRoutes(context.Background(), origin, destination, nav.ModeWalking)
	require.NoError(t, err)
	require.Len(t, routes, 2)

	assert.True(t, strings.HasPrefix(gotPath, "/route/v1/foot/2.173400,41.385100;2.176000,41.387000"), gotPath)
	for _, param := range []string{"alternatives=true", "steps=true", "geometries=polyline6", "overview=full"} {
		assert.Contains(t, gotQuery, param)
	}
	assert.True(t, strings.HasPrefix(gotUA, "navtrack/"))

	first := routes[0]
	assert.Equal(t, 430.0, first.Distance)
	assert.Equal(t, 62.0, first.ExpectedTravelTime)
	require.Len(t, first.Polyline, 3)
	assert.Less(t, geo.Distance(first.Polyline[1], corner), 0.2)

	require.Len(t, first.Steps, 3)
	assert.Equal(t, "Head north on Passeig de Gràcia", first.Steps[0].Instruction)
	assert.Equal(t, "Turn right onto Carrer d'Aragó", first.Steps[1].Instruction)
	assert.Equal(t, "Arrive at destination", first.Steps[2].Instruction)
	assert.Len(t, first.Steps[1].Polyline, 2)

	assert.Empty(t, routes[1].Steps)
}

func TestFetchRoutesProfiles(t *testing.T) {
	assert.Equal(t, "driving", Profile(nav.ModeDriving))
	assert.Equal(t, "foot", Profile(nav.ModeWalking))
	assert.Equal(t, "driving", Profile(nav.ModeTransit))
}

func TestFetchRoutesCache(t *testing.T) {
	client, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sampleResponse())
	})
	ctx := context.Background()

	_, err := client.FetchRoutes(ctx, origin, destination, nav.ModeDriving)
	require.NoError(t, err)
	_, err = client.FetchRoutes(ctx, origin, destination, nav.ModeDriving)
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load())

	_, err = client.FetchRoutes(ctx, origin, destination, nav.ModeWalking)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load(), "profiles are cached separately")
}

func TestFetchRoutesErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		code        string
		recoverable bool
	}{
		{"No route", http.StatusBadRequest, `{"code":"NoRoute","message":"Impossible route between points"}`, "NoRoute", false},
		{"Rate limited", http.StatusTooManyRequests, `<html>slow down</html>`, "", true},
		{"Server error", http.StatusInternalServerError, ``, "", true},
		{"Empty route list", http.StatusOK, `{"code":"Ok","routes":[]}`, "NoRoute", true},
		{"Bad geometry", http.StatusOK, `{"code":"Ok","routes":[{"distance":1,"duration":1,"geometry":"_p~iF~ps|U_"}]}`, "", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = w.Write([]byte(tc.body))
			})

			routes, err := client.FetchRoutes(context.Background(), origin, destination, nav.ModeDriving)
			assert.Nil(t, routes)
			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr), "expected *APIError, got %v", err)
			assert.Equal(t, tc.code, apiErr.Code)
			assert.Equal(t, tc.recoverable, apiErr.Recoverable)
			assert.NotEmpty(t, apiErr.Guidance)
		})
	}
}

func TestFetchRoutesInvalidCoordinates(t *testing.T) {
	client, hits := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	_, err := client.FetchRoutes(context.Background(), geo.Coordinate{Latitude: 91}, destination, nav.ModeDriving)
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Zero(t, hits.Load())
}

func TestFetchRoutesContextCanceled(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.FetchRoutes(ctx, origin, destination, nav.ModeDriving)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(time.Hour, 1)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.NoError(t, rl.Wait(ctx, "a.example"))
	require.NoError(t, rl.Wait(ctx, "b.example"), "hosts are limited independently")
	assert.Error(t, rl.Wait(ctx, "a.example"))
}
