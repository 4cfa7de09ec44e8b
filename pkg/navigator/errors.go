package navigator

import "errors"

var (
	// ErrNotFound is returned for unknown or ended navigation IDs.
	ErrNotFound = errors.New("navigation not found")
	// ErrNoRoutes is returned when starting a navigation without candidates.
	ErrNoRoutes = errors.New("no candidate routes")
	// ErrInvalidRouteIndex is returned when the chosen route does not exist.
	ErrInvalidRouteIndex = errors.New("invalid route index")
	// ErrNotNavigating is returned for location updates before start.
	ErrNotNavigating = errors.New("navigation has not started")
	// ErrAlreadyStarted is returned when starting twice.
	ErrAlreadyStarted = errors.New("navigation already started")
)
