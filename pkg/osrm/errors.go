package osrm

import (
	"fmt"
	"net/http"
)

// APIError represents an error that occurred while communicating with
// the routing service, with information to help users recover.
type APIError struct {
	Service     string // The API service name
	StatusCode  int    // HTTP status code
	Code        string // OSRM response code, e.g. "NoRoute"
	Message     string // Error message
	Recoverable bool   // Whether retrying later may succeed
	Guidance    string // Guidance for users on how to recover
}

// Error implements the error interface and provides a formatted error message.
func (e *APIError) Error() string {
	if e.Guidance != "" {
		return fmt.Sprintf("%s API error (%d): %s. %s", e.Service, e.StatusCode, e.Message, e.Guidance)
	}
	return fmt.Sprintf("%s API error (%d): %s", e.Service, e.StatusCode, e.Message)
}

// Routing error guidance
const (
	GuidanceRouteNotFound = "No route could be found between the specified points. Try locations with accessible roads."
	GuidanceRateLimit     = "The routing service is experiencing high load. Please try again in a few seconds."
	GuidanceTimeout       = "The routing request timed out. Try a shorter route or check your internet connection."
	GuidanceGeneral       = "Check that your coordinates are accessible by the specified transport mode."
	GuidanceNetworkError  = "Check your internet connection and try again."
	GuidanceDataError     = "The data received was incomplete or malformed."
)

// NewAPIError creates a new APIError with guidance inferred from the OSRM
// code or HTTP status when none is given.
func NewAPIError(statusCode int, code, message, guidance string) *APIError {
	if guidance == "" {
		switch {
		case code == "NoRoute" || code == "NoSegment":
			guidance = GuidanceRouteNotFound
		case statusCode == http.StatusTooManyRequests:
			guidance = GuidanceRateLimit
		case statusCode == http.StatusRequestTimeout, statusCode == http.StatusGatewayTimeout:
			guidance = GuidanceTimeout
		default:
			guidance = GuidanceGeneral
		}
	}

	return &APIError{
		Service:     "OSRM",
		StatusCode:  statusCode,
		Code:        code,
		Message:     message,
		Recoverable: statusCode != http.StatusBadRequest,
		Guidance:    guidance,
	}
}
