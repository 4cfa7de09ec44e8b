package nav

import (
	"time"

	"github.com/NERVsystems/navtrack/pkg/geo"
)

// Session is the mutable state of one active-navigation episode. It is
// owned by a single caller and mutated only through Tracker methods; it is
// not safe for concurrent use.
type Session struct {
	Destination geo.Coordinate
	Mode        TransportMode

	ActiveRouteIndex int
	CurrentStepIndex int
	HasStartedMoving bool
	LastRerouteTime  time.Time
	HasArrived       bool

	routes    []Route
	densified []geo.Polyline   // lazily built search geometry, parallel to routes
	stepLines [][]geo.Polyline // lazily built step search geometry, parallel to routes
	start     *geo.Coordinate
	display   string
}

// StartSession creates a session following routes[chosen]. An out-of-range
// choice falls back to the first route.
func StartSession(routes []Route, destination geo.Coordinate, chosen int, mode TransportMode) *Session {
	s := &Session{
		Destination: destination,
		Mode:        mode,
	}
	s.replaceRoutes(routes)
	if chosen >= 0 && chosen < len(s.routes) {
		s.ActiveRouteIndex = chosen
	}
	return s
}

// EndSession clears all state. The session must not be reused afterwards.
func (s *Session) EndSession() {
	*s = Session{}
}

// Routes returns the current candidate routes.
func (s *Session) Routes() []Route {
	return s.routes
}

// ActiveRoute returns the followed route, or false when there are no candidates.
func (s *Session) ActiveRoute() (Route, bool) {
	if s.ActiveRouteIndex < 0 || s.ActiveRouteIndex >= len(s.routes) {
		return Route{}, false
	}
	return s.routes[s.ActiveRouteIndex], true
}

// Instruction returns the text most recently selected for display.
func (s *Session) Instruction() string {
	return s.display
}

func (s *Session) replaceRoutes(routes []Route) {
	s.routes = make([]Route, len(routes))
	copy(s.routes, routes)
	s.densified = make([]geo.Polyline, len(routes))
	s.stepLines = make([][]geo.Polyline, len(routes))
	s.ActiveRouteIndex = 0
	s.CurrentStepIndex = 0
}

// searchGeometry returns the densified polyline of route i, building it on
// first use.
func (s *Session) searchGeometry(i int, spacing float64) geo.Polyline {
	if s.densified[i] == nil {
		s.densified[i] = geo.Densify(s.routes[i].Polyline, spacing)
	}
	return s.densified[i]
}

// stepGeometry returns the densified polyline of step j of route i.
// Routing services often describe a straight road with just its two end
// vertices, so the nearest-vertex search needs the same spacing as the
// route-level search.
func (s *Session) stepGeometry(i, j int, spacing float64) geo.Polyline {
	if s.stepLines[i] == nil {
		s.stepLines[i] = make([]geo.Polyline, len(s.routes[i].Steps))
	}
	if s.stepLines[i][j] == nil {
		s.stepLines[i][j] = geo.Densify(s.routes[i].Steps[j].Polyline, spacing)
	}
	return s.stepLines[i][j]
}
