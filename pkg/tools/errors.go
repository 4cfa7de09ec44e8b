package tools

import (
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/navtrack/pkg/navigator"
	"github.com/NERVsystems/navtrack/pkg/osm"
	"github.com/NERVsystems/navtrack/pkg/osrm"
)

var errSearchDisabled = errors.New("destination search is disabled")

// Guidance for navigator errors
const (
	GuidanceNotFound      = "Call plan_navigation to obtain a navigation_id; ended navigations cannot be resumed."
	GuidanceNoRoutes      = "No routes are available yet. Try set_transport_mode or plan again with nearby accessible points."
	GuidanceRouteIndex    = "Use one of the route indexes listed by plan_navigation."
	GuidanceNotNavigating = "Call start_navigation before reporting locations."
	GuidanceStarted       = "The navigation is already running; report locations with update_location."
	GuidanceCoordinates   = "Latitude must be between -90 and 90 and longitude between -180 and 180."
	GuidanceSearchOff     = "Pass destination_lat and destination_lon instead of destination_query."
)

// ErrorWithGuidance returns a properly formatted error response with user guidance.
func ErrorWithGuidance(err *osrm.APIError) *mcp.CallToolResult {
	errorText := fmt.Sprintf("Error: %s\n\nGuidance: %s", err.Message, err.Guidance)
	return mcp.NewToolResultError(errorText)
}

func geocodeErrorWithGuidance(err *osm.APIError) *mcp.CallToolResult {
	return ErrorResponse(fmt.Sprintf("Error: %s\n\nGuidance: %s", err.Message, err.Guidance))
}

// ToolError maps a navigator or routing error to a tool result.
func ToolError(err error) *mcp.CallToolResult {
	var apiErr *osrm.APIError
	if errors.As(err, &apiErr) {
		return ErrorWithGuidance(apiErr)
	}
	var geoErr *osm.APIError
	if errors.As(err, &geoErr) {
		return geocodeErrorWithGuidance(geoErr)
	}

	guidance := ""
	switch {
	case errors.Is(err, navigator.ErrNotFound):
		guidance = GuidanceNotFound
	case errors.Is(err, navigator.ErrNoRoutes):
		guidance = GuidanceNoRoutes
	case errors.Is(err, navigator.ErrInvalidRouteIndex):
		guidance = GuidanceRouteIndex
	case errors.Is(err, navigator.ErrNotNavigating):
		guidance = GuidanceNotNavigating
	case errors.Is(err, navigator.ErrAlreadyStarted):
		guidance = GuidanceStarted
	case errors.Is(err, osm.ErrNoResults):
		guidance = osm.GuidanceNoResults
	case errors.Is(err, errSearchDisabled):
		guidance = GuidanceSearchOff
	}
	if guidance == "" {
		return ErrorResponse(fmt.Sprintf("Error: %s", err))
	}
	return ErrorResponse(fmt.Sprintf("Error: %s\n\nGuidance: %s", err, guidance))
}
