package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/NERVsystems/navtrack/pkg/navigator"
	"github.com/NERVsystems/navtrack/pkg/osm"
	"github.com/NERVsystems/navtrack/pkg/osrm"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error   string         `json:"error"`
	Details map[string]any `json:"details,omitempty"`
}

// statusFor maps manager, routing and geocoding errors to HTTP status codes.
func statusFor(err error) int {
	var apiErr *osrm.APIError
	var geoErr *osm.APIError
	switch {
	case errors.Is(err, navigator.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, navigator.ErrInvalidRouteIndex):
		return http.StatusBadRequest
	case errors.Is(err, navigator.ErrNoRoutes),
		errors.Is(err, navigator.ErrNotNavigating),
		errors.Is(err, navigator.ErrAlreadyStarted):
		return http.StatusConflict
	case errors.Is(err, osm.ErrNoResults):
		return http.StatusNotFound
	case errors.Is(err, osm.ErrEmptyQuery):
		return http.StatusBadRequest
	case errors.Is(err, errSearchDisabled):
		return http.StatusNotImplemented
	case errors.As(err, &apiErr), errors.As(err, &geoErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string, details map[string]any) {
	writeJSON(w, status, ErrorResponse{Error: message, Details: details})
}

// writeFailure renders err with its mapped status. Routing and geocoding
// errors carry their guidance in the details.
func writeFailure(w http.ResponseWriter, err error) {
	details := map[string]any{"internal": err.Error()}
	var apiErr *osrm.APIError
	var geoErr *osm.APIError
	switch {
	case errors.As(err, &apiErr):
		details["guidance"] = apiErr.Guidance
		details["recoverable"] = apiErr.Recoverable
	case errors.As(err, &geoErr):
		details["guidance"] = geoErr.Guidance
		details["recoverable"] = geoErr.Recoverable
	case errors.Is(err, osm.ErrNoResults):
		details["guidance"] = osm.GuidanceNoResults
	}
	writeError(w, statusFor(err), http.StatusText(statusFor(err)), details)
}
