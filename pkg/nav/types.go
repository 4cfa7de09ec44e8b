// Package nav implements the active-navigation tracking engine.
//
// The engine is a synchronous state machine: every location fix is fed to
// Tracker.Process together with the Session it belongs to, and the engine
// answers with a Result describing the remaining path, the maneuver to
// display and the status flags (off-route, reroute requested, arrived).
// The engine never performs I/O; asking the routing service for new routes
// is left to the caller, which reports them back through ApplyRoutes.
package nav

import (
	"fmt"
	"strings"
	"time"

	"github.com/NERVsystems/navtrack/pkg/geo"
)

// TransportMode selects the off-route threshold and the routing profile.
type TransportMode string

const (
	ModeDriving TransportMode = "driving"
	ModeWalking TransportMode = "walking"
	ModeTransit TransportMode = "transit"
)

// ParseTransportMode accepts the canonical mode names plus the aliases the
// routing services use ("car", "automobile", "foot", "walk").
func ParseTransportMode(s string) (TransportMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "driving", "drive", "car", "automobile":
		return ModeDriving, nil
	case "walking", "walk", "foot":
		return ModeWalking, nil
	case "transit":
		return ModeTransit, nil
	default:
		return "", fmt.Errorf("unknown transport mode %q", s)
	}
}

// Step is a single maneuver: the instruction shown to the user and the
// short stretch of road it covers. An empty instruction marks a silent step.
type Step struct {
	Instruction string       `json:"instruction"`
	Polyline    geo.Polyline `json:"polyline"`
}

// Route is one candidate path to the destination.
type Route struct {
	Polyline           geo.Polyline `json:"polyline"`
	Distance           float64      `json:"distance"`             // meters
	ExpectedTravelTime float64      `json:"expected_travel_time"` // seconds
	Steps              []Step       `json:"steps"`
}

// SecondsPerMeter is the route's average pace, 0 when the distance is 0.
func (r Route) SecondsPerMeter() float64 {
	if r.Distance <= 0 {
		return 0
	}
	return r.ExpectedTravelTime / r.Distance
}

// Fix is a single position report from the location source.
type Fix struct {
	Coordinate geo.Coordinate `json:"coordinate"`
	Timestamp  time.Time      `json:"timestamp"`
	Course     float64        `json:"course"` // degrees, negative when unknown
}

// Result is what the engine hands to the rendering layer after each update.
type Result struct {
	TrimmedPath       geo.Polyline  `json:"trimmed_path"`
	ActiveRouteIndex  int           `json:"active_route_index"`
	StepIndex         int           `json:"step_index"`
	Instruction       string        `json:"instruction"`
	RemainingDistance float64       `json:"remaining_distance"` // meters
	RemainingTime     time.Duration `json:"remaining_time"`
	ETA               time.Time     `json:"eta"`
	DistanceText      string        `json:"distance_text"`
	DurationText      string        `json:"duration_text"`
	ETAClock          string        `json:"eta_clock"`
	ETALabel          string        `json:"eta_label"`
	DistanceToRoute   float64       `json:"distance_to_route"` // meters, -1 when unknown
	OffRoute          bool          `json:"off_route"`
	RerouteRequested  bool          `json:"reroute_requested"`
	ArrivedNow        bool          `json:"arrived_now"`
	HasArrived        bool          `json:"has_arrived"`
}
