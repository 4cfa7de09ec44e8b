// Package navtest provides route fixtures for tests of packages built on nav.
package navtest

import (
	"context"
	"math"
	"sync"

	"github.com/NERVsystems/navtrack/pkg/geo"
	"github.com/NERVsystems/navtrack/pkg/nav"
)

const degPerMeter = 180 / (math.Pi * geo.EarthRadius)

// Point places a coordinate north and east of (0, 0), in meters.
func Point(north, east float64) geo.Coordinate {
	return geo.Coordinate{Latitude: north * degPerMeter, Longitude: east * degPerMeter}
}

// NorthRoute runs due north from (0, 0) for length meters, with a
// departure step and a turn step halfway.
func NorthRoute(length, seconds float64) nav.Route {
	var line geo.Polyline
	for m := 0.0; m < length; m += 10 {
		line = append(line, Point(m, 0))
	}
	line = append(line, Point(length, 0))
	half := len(line) / 2
	return nav.Route{
		Polyline:           line,
		Distance:           length,
		ExpectedTravelTime: seconds,
		Steps: []nav.Step{
			{Instruction: "Head north on Main Street", Polyline: line[:half+1]},
			{Instruction: "Continue onto Harbor Road", Polyline: line[half:]},
			{Instruction: "Arrive at destination", Polyline: geo.Polyline{line[len(line)-1], line[len(line)-1]}},
		},
	}
}

// Fetcher returns the same routes for every request and counts calls.
type Fetcher struct {
	mu     sync.Mutex
	Routes []nav.Route
	Err    error
	calls  int
}

// NewFetcher returns a fetcher serving a single 1 km northbound route.
func NewFetcher() *Fetcher {
	return &Fetcher{Routes: []nav.Route{NorthRoute(1000, 600)}}
}

// FetchRoutes implements navigator.RouteFetcher.
func (f *Fetcher) FetchRoutes(ctx context.Context, origin, destination geo.Coordinate, mode nav.TransportMode) ([]nav.Route, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.Err != nil {
		return nil, f.Err
	}
	return append([]nav.Route(nil), f.Routes...), nil
}

// SetError makes subsequent fetches fail with err.
func (f *Fetcher) SetError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Err = err
}

// Calls returns how many fetches have been made.
func (f *Fetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}
