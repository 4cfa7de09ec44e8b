package nav

import (
	"log/slog"
	"math"
	"time"

	"github.com/NERVsystems/navtrack/pkg/geo"
)

// Tracker evaluates location updates against a Session. A Tracker holds
// only configuration and may be shared by any number of sessions.
type Tracker struct {
	thresholds Thresholds
	eta        ETAFormatter
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithLogger sets the logger used for state transitions.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) {
		t.logger = logger
	}
}

// WithClock replaces time.Now. It is consulted when a fix has no timestamp.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		t.now = now
	}
}

// WithLocation sets the time zone of the arrival clock.
func WithLocation(loc *time.Location) Option {
	return func(t *Tracker) {
		t.eta.Location = loc
	}
}

// NewTracker validates thresholds and builds a Tracker.
func NewTracker(thresholds Thresholds, opts ...Option) (*Tracker, error) {
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	t := &Tracker{
		thresholds: thresholds,
		now:        time.Now,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.logger = t.logger.With("component", "tracker")
	return t, nil
}

// Thresholds returns the tracker's configuration.
func (t *Tracker) Thresholds() Thresholds {
	return t.thresholds
}

// Process evaluates one location fix. The order is fixed: movement gate,
// arrival, route selection, trimming, step tracking, then ETA. Arrival
// short-circuits everything after it.
func (t *Tracker) Process(s *Session, fix Fix) Result {
	pos := fix.Coordinate
	at := fix.Timestamp
	if at.IsZero() {
		at = t.now()
	}

	res := Result{
		ActiveRouteIndex: s.ActiveRouteIndex,
		DistanceToRoute:  -1,
		TrimmedPath:      geo.Polyline{},
	}

	if s.HasArrived {
		return t.arrivedResult(s, res, at)
	}

	t.updateMovement(s, pos)

	if t.checkArrival(s, pos) {
		t.logger.Info("arrived at destination",
			"destination", s.Destination.String(),
			"distance", geo.Distance(pos, s.Destination))
		res.ArrivedNow = true
		return t.arrivedResult(s, res, at)
	}

	if len(s.routes) == 0 {
		res.StepIndex = s.CurrentStepIndex
		res.Instruction = s.display
		return res
	}

	candidates := make([]geo.Polyline, len(s.routes))
	for i := range s.routes {
		candidates[i] = s.searchGeometry(i, t.thresholds.DensifySpacing)
	}

	threshold := t.thresholds.OffRouteDistance(s.Mode)
	sel := SelectRoute(pos, candidates, s.ActiveRouteIndex, threshold, s.HasStartedMoving)
	if d := sel.Distances[sel.Index]; !math.IsInf(d, 1) {
		res.DistanceToRoute = d
	}
	res.OffRoute = sel.OffRoute

	route := s.routes[sel.Index]
	res.TrimmedPath = TrimPath(candidates[sel.Index], pos)

	if t.trackSteps(s, sel.Index, pos) {
		t.logger.Debug("left current step segment", "step", s.CurrentStepIndex)
		res.OffRoute = res.OffRoute || s.HasStartedMoving
	}

	if res.OffRoute {
		res.RerouteRequested = t.requestReroute(s, at)
		if res.RerouteRequested {
			t.logger.Info("requesting reroute",
				"distance_to_route", res.DistanceToRoute,
				"threshold", threshold,
				"mode", s.Mode)
		}
	}

	res.StepIndex = s.CurrentStepIndex
	res.Instruction = s.display

	remaining := -1.0
	if len(res.TrimmedPath) > 0 {
		remaining = geo.Length(res.TrimmedPath)
	}
	res.setETA(t.eta.Compute(route, remaining, at))
	return res
}

// RefreshETA recomputes the progress strings of a previous result against
// a new clock reading, without consuming a location fix.
func (t *Tracker) RefreshETA(s *Session, prev Result, now time.Time) Result {
	route, ok := s.ActiveRoute()
	if !ok || prev.HasArrived {
		return prev
	}
	remaining := -1.0
	if len(prev.TrimmedPath) > 0 {
		remaining = geo.Length(prev.TrimmedPath)
	}
	res := prev
	res.ArrivedNow = false
	res.RerouteRequested = false
	res.setETA(t.eta.Compute(route, remaining, now))
	return res
}

// ApplyRoutes replaces the candidate routes after a successful fetch. The
// active index and step index restart at 0; arrival and movement state are
// kept. An empty list is ignored so the stale route stays in use, and the
// call reports whether anything changed.
func (t *Tracker) ApplyRoutes(s *Session, routes []Route) bool {
	if len(routes) == 0 {
		return false
	}
	s.replaceRoutes(routes)
	s.display = ""
	t.logger.Info("applied new routes", "count", len(routes))
	return true
}

func (t *Tracker) arrivedResult(s *Session, res Result, at time.Time) Result {
	res.HasArrived = true
	res.StepIndex = s.CurrentStepIndex
	res.Instruction = ArrivedInstruction
	if route, ok := s.ActiveRoute(); ok {
		res.setETA(t.eta.Compute(route, 0, at))
	}
	return res
}

func (r *Result) setETA(e ETA) {
	r.RemainingDistance = e.RemainingDistance
	r.RemainingTime = e.RemainingTime
	r.ETA = e.Arrival
	r.DistanceText = e.DistanceText
	r.DurationText = e.DurationText
	r.ETAClock = e.Clock
	r.ETALabel = e.Label()
}
