package tools

import (
	"github.com/NERVsystems/navtrack/pkg/nav"
	"github.com/NERVsystems/navtrack/pkg/navigator"
	"github.com/NERVsystems/navtrack/pkg/osm"
)

// PlanResult is returned by plan_navigation and set_transport_mode.
type PlanResult struct {
	NavigationID string                   `json:"navigation_id"`
	State        navigator.State          `json:"state"`
	Mode         nav.TransportMode        `json:"mode"`
	Routes       []navigator.RouteSummary `json:"routes"`
	LastError    string                   `json:"last_error,omitempty"`
	Summary      string                   `json:"summary"`

	// Destination is the place a destination_query resolved to.
	Destination *osm.Place `json:"destination,omitempty"`
}

// LocationResult is returned by update_location. The trimmed path is
// left out to keep responses small; navigation_status with the geojson
// format carries the geometry.
type LocationResult struct {
	NavigationID      string  `json:"navigation_id"`
	Instruction       string  `json:"instruction"`
	StepIndex         int     `json:"step_index"`
	ActiveRouteIndex  int     `json:"active_route_index"`
	RemainingDistance float64 `json:"remaining_distance"`
	RemainingSeconds  float64 `json:"remaining_seconds"`
	DistanceText      string  `json:"distance_text"`
	DurationText      string  `json:"duration_text"`
	ETAClock          string  `json:"eta_clock"`
	DistanceToRoute   float64 `json:"distance_to_route"`
	OffRoute          bool    `json:"off_route"`
	RerouteRequested  bool    `json:"reroute_requested"`
	ArrivedNow        bool    `json:"arrived_now"`
	HasArrived        bool    `json:"has_arrived"`
}

func planResult(s navigator.Snapshot) PlanResult {
	return PlanResult{
		NavigationID: s.ID,
		State:        s.State,
		Mode:         s.Mode,
		Routes:       s.Summaries,
		LastError:    s.LastError,
		Summary:      s.Summary(),
	}
}

func locationResult(id string, res nav.Result) LocationResult {
	return LocationResult{
		NavigationID:      id,
		Instruction:       res.Instruction,
		StepIndex:         res.StepIndex,
		ActiveRouteIndex:  res.ActiveRouteIndex,
		RemainingDistance: res.RemainingDistance,
		RemainingSeconds:  res.RemainingTime.Seconds(),
		DistanceText:      res.DistanceText,
		DurationText:      res.DurationText,
		ETAClock:          res.ETAClock,
		DistanceToRoute:   res.DistanceToRoute,
		OffRoute:          res.OffRoute,
		RerouteRequested:  res.RerouteRequested,
		ArrivedNow:        res.ArrivedNow,
		HasArrived:        res.HasArrived,
	}
}
