package nav

import (
	"time"

	"github.com/NERVsystems/navtrack/pkg/geo"
)

// checkArrival sets the terminal arrival flag the first time pos is inside
// the arrival radius. It returns true only on that first time.
func (t *Tracker) checkArrival(s *Session, pos geo.Coordinate) bool {
	if s.HasArrived {
		return false
	}
	if geo.Distance(pos, s.Destination) >= t.thresholds.ArrivalRadius {
		return false
	}
	s.HasArrived = true
	if route, ok := s.ActiveRoute(); ok {
		s.CurrentStepIndex = len(route.Steps)
	}
	s.display = ArrivedInstruction
	return true
}

// updateMovement records the first fix as the start position and latches
// HasStartedMoving once the user is MovementGate meters away from it.
func (t *Tracker) updateMovement(s *Session, pos geo.Coordinate) {
	if s.start == nil {
		start := pos
		s.start = &start
		return
	}
	if !s.HasStartedMoving && geo.Distance(*s.start, pos) > t.thresholds.MovementGate {
		s.HasStartedMoving = true
	}
}

// requestReroute applies the shared gate for reroute requests: the user
// must be moving and no request may have been made within the cooldown.
func (t *Tracker) requestReroute(s *Session, at time.Time) bool {
	if !s.HasStartedMoving {
		return false
	}
	if !s.LastRerouteTime.IsZero() && at.Sub(s.LastRerouteTime) < t.thresholds.RerouteCooldown {
		return false
	}
	s.LastRerouteTime = at
	return true
}
