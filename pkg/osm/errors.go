package osm

import (
	"fmt"
	"net/http"
)

// APIError represents an error returned by the geocoding service, with
// guidance to help users recover.
type APIError struct {
	Service     string // The API service name
	StatusCode  int    // HTTP status code
	Message     string // Error message
	Recoverable bool   // Whether retrying later may succeed
	Guidance    string // Guidance for users on how to recover
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Guidance != "" {
		return fmt.Sprintf("%s API error (%d): %s. %s", e.Service, e.StatusCode, e.Message, e.Guidance)
	}
	return fmt.Sprintf("%s API error (%d): %s", e.Service, e.StatusCode, e.Message)
}

// Geocoding error guidance
const (
	GuidanceRateLimit    = "The geocoding service allows one request per second. Please wait a moment and try again."
	GuidanceGeneral      = "Try a more specific place name, or add the city or country."
	GuidanceNetworkError = "Check your internet connection and try again."
	GuidanceDataError    = "The geocoding service returned malformed data."
	GuidanceCoordinates  = "Latitude must be between -90 and 90 and longitude between -180 and 180."
	GuidanceNoResults    = "Try a different spelling, a nearby landmark or pass coordinates instead."
)

// NewAPIError creates an APIError, inferring guidance from the HTTP status
// when none is given.
func NewAPIError(statusCode int, message, guidance string) *APIError {
	if guidance == "" {
		switch statusCode {
		case http.StatusTooManyRequests, http.StatusForbidden:
			guidance = GuidanceRateLimit
		default:
			guidance = GuidanceGeneral
		}
	}
	return &APIError{
		Service:     "Nominatim",
		StatusCode:  statusCode,
		Message:     message,
		Recoverable: statusCode != http.StatusBadRequest,
		Guidance:    guidance,
	}
}
