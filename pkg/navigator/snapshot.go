package navigator

import (
	"fmt"
	"time"

	"github.com/NERVsystems/navtrack/pkg/geo"
	"github.com/NERVsystems/navtrack/pkg/nav"
)

// State is the lifecycle stage of a navigation.
type State string

const (
	// StateBrowsing means candidates are shown but tracking has not begun.
	StateBrowsing State = "browsing"
	// StateNavigating means location fixes are being tracked.
	StateNavigating State = "navigating"
	// StateArrived is terminal; the navigation stays readable until ended.
	StateArrived State = "arrived"
)

// RouteSummary is the browsing view of one candidate route.
type RouteSummary struct {
	Index              int     `json:"index"`
	Distance           float64 `json:"distance"`
	ExpectedTravelTime float64 `json:"expected_travel_time"`
	DistanceText       string  `json:"distance_text"`
	DurationText       string  `json:"duration_text"`
	Steps              int     `json:"steps"`
	Active             bool    `json:"active"`
}

// Snapshot is a consistent, read-only copy of a navigation.
type Snapshot struct {
	ID          string            `json:"id"`
	State       State             `json:"state"`
	Mode        nav.TransportMode `json:"mode"`
	Origin      geo.Coordinate    `json:"origin"`
	Destination geo.Coordinate    `json:"destination"`
	Summaries   []RouteSummary    `json:"routes"`
	Rerouting   bool              `json:"rerouting"`
	LastError   string            `json:"last_error,omitempty"`
	Last        *nav.Result       `json:"last,omitempty"`
	UpdatedAt   time.Time         `json:"updated_at"`

	// Routes holds the full geometry for rendering layers.
	Routes           []nav.Route `json:"-"`
	ActiveRouteIndex int         `json:"active_route_index"`
}

// ActiveRoute returns the followed (or highlighted) candidate.
func (s Snapshot) ActiveRoute() (nav.Route, bool) {
	if s.ActiveRouteIndex < 0 || s.ActiveRouteIndex >= len(s.Routes) {
		return nav.Route{}, false
	}
	return s.Routes[s.ActiveRouteIndex], true
}

// Summary renders the snapshot as a few human-readable lines.
func (s Snapshot) Summary() string {
	switch s.State {
	case StateBrowsing:
		if len(s.Summaries) == 0 {
			return fmt.Sprintf("Navigation %s: no routes found (%s)", s.ID, s.Mode)
		}
		text := fmt.Sprintf("Navigation %s: %d %s route(s)", s.ID, len(s.Summaries), s.Mode)
		for _, r := range s.Summaries {
			text += fmt.Sprintf("\n  [%d] %s, %s", r.Index, r.DistanceText, r.DurationText)
		}
		return text
	case StateArrived:
		return fmt.Sprintf("Navigation %s: you have arrived", s.ID)
	}
	if s.Last == nil {
		return fmt.Sprintf("Navigation %s: waiting for the first location fix", s.ID)
	}
	text := fmt.Sprintf("%s\n%s (%s)", s.Last.Instruction, s.Last.ETALabel, s.Last.DurationText)
	if s.Rerouting {
		text += "\nRerouting..."
	}
	return text
}

func summarize(routes []nav.Route, active int) []RouteSummary {
	out := make([]RouteSummary, len(routes))
	for i, r := range routes {
		out[i] = RouteSummary{
			Index:              i,
			Distance:           r.Distance,
			ExpectedTravelTime: r.ExpectedTravelTime,
			DistanceText:       nav.FormatDistance(r.Distance),
			DurationText:       nav.FormatDuration(time.Duration(r.ExpectedTravelTime * float64(time.Second))),
			Steps:              len(r.Steps),
			Active:             i == active,
		}
	}
	return out
}
