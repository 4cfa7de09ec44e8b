package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/navtrack/pkg/geo"
	"github.com/NERVsystems/navtrack/pkg/nav"
	"github.com/NERVsystems/navtrack/pkg/osm"
	"github.com/NERVsystems/navtrack/pkg/render"
)

// Status formats accepted by navigation_status.
const (
	FormatText    = "text"
	FormatJSON    = "json"
	FormatGeoJSON = "geojson"
)

// PlanNavigationTool returns a tool definition for route planning
func PlanNavigationTool() mcp.Tool {
	return mcp.NewTool("plan_navigation",
		mcp.WithDescription("Fetch candidate routes between two points and open a navigation in browsing state"),
		mcp.WithNumber("origin_lat",
			mcp.Required(),
			mcp.Description("Starting point latitude"),
		),
		mcp.WithNumber("origin_lon",
			mcp.Required(),
			mcp.Description("Starting point longitude"),
		),
		mcp.WithNumber("destination_lat",
			mcp.Description("Destination latitude; required unless destination_query is given"),
		),
		mcp.WithNumber("destination_lon",
			mcp.Description("Destination longitude; required unless destination_query is given"),
		),
		mcp.WithString("destination_query",
			mcp.Description("Place name or address to navigate to; the match closest to the origin is used"),
		),
		mcp.WithString("mode",
			mcp.Description("Transport mode (driving, walking, transit)"),
			mcp.DefaultString(string(nav.ModeDriving)),
		),
	)
}

// HandlePlanNavigation implements route planning
func (r *Registry) HandlePlanNavigation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := r.logger.With("tool", "plan_navigation")

	origin, err := coordinate(req, "origin_lat", "origin_lon")
	if err != nil {
		return ErrorResponse(fmt.Sprintf("Invalid origin: %v", err)), nil
	}
	mode, err := nav.ParseTransportMode(mcp.ParseString(req, "mode", string(nav.ModeDriving)))
	if err != nil {
		return ErrorResponse(err.Error()), nil
	}

	var place *osm.Place
	var destination geo.Coordinate
	if query := osm.SanitizeQuery(mcp.ParseString(req, "destination_query", "")); query != "" {
		found, err := r.resolveDestination(ctx, query, origin)
		if err != nil {
			logger.Warn("failed to resolve destination", "query", query, "error", err)
			return ToolError(err), nil
		}
		logger.Debug("resolved destination", "query", query, "place", found.DisplayName)
		place, destination = &found, found.Location
	} else {
		destination, err = coordinate(req, "destination_lat", "destination_lon")
		if err != nil {
			return ErrorResponse(fmt.Sprintf("Invalid destination: %v", err)), nil
		}
	}

	snap, err := r.manager.Plan(ctx, origin, destination, mode)
	if err != nil {
		logger.Error("failed to plan navigation", "error", err)
		return ToolError(err), nil
	}
	logger.Info("navigation planned", "id", snap.ID, "routes", len(snap.Summaries))
	out := planResult(snap)
	out.Destination = place
	return JSONResult(out)
}

// SetTransportModeTool returns a tool definition for changing the transport mode
func SetTransportModeTool() mcp.Tool {
	return mcp.NewTool("set_transport_mode",
		mcp.WithDescription("Change the transport mode of a navigation and re-fetch its routes"),
		mcp.WithString("navigation_id",
			mcp.Required(),
			mcp.Description("Navigation identifier returned by plan_navigation"),
		),
		mcp.WithString("mode",
			mcp.Required(),
			mcp.Description("Transport mode (driving, walking, transit)"),
		),
	)
}

// HandleSetTransportMode implements transport mode changes
func (r *Registry) HandleSetTransportMode(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requiredString(req, "navigation_id")
	if err != nil {
		return ErrorResponse(err.Error()), nil
	}
	raw, err := requiredString(req, "mode")
	if err != nil {
		return ErrorResponse(err.Error()), nil
	}
	mode, err := nav.ParseTransportMode(raw)
	if err != nil {
		return ErrorResponse(err.Error()), nil
	}

	snap, err := r.manager.SetMode(ctx, id, mode)
	if err != nil {
		return ToolError(err), nil
	}
	return JSONResult(planResult(snap))
}

// StartNavigationTool returns a tool definition for starting tracking
func StartNavigationTool() mcp.Tool {
	return mcp.NewTool("start_navigation",
		mcp.WithDescription("Start turn-by-turn tracking along one of the planned routes"),
		mcp.WithString("navigation_id",
			mcp.Required(),
			mcp.Description("Navigation identifier returned by plan_navigation"),
		),
		mcp.WithNumber("route_index",
			mcp.Description("Index of the route to follow"),
			mcp.DefaultNumber(0),
		),
	)
}

// HandleStartNavigation implements starting a navigation
func (r *Registry) HandleStartNavigation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requiredString(req, "navigation_id")
	if err != nil {
		return ErrorResponse(err.Error()), nil
	}
	index, err := optionalInt(req, "route_index", 0)
	if err != nil {
		return ErrorResponse(err.Error()), nil
	}

	snap, err := r.manager.Start(id, index)
	if err != nil {
		return ToolError(err), nil
	}
	r.logger.Info("navigation started", "id", id, "route", index)
	return JSONResult(planResult(snap))
}

// UpdateLocationTool returns a tool definition for location updates
func UpdateLocationTool() mcp.Tool {
	return mcp.NewTool("update_location",
		mcp.WithDescription("Report the current location and get the instruction, remaining distance and ETA"),
		mcp.WithString("navigation_id",
			mcp.Required(),
			mcp.Description("Navigation identifier returned by plan_navigation"),
		),
		mcp.WithNumber("latitude",
			mcp.Required(),
			mcp.Description("Current latitude"),
		),
		mcp.WithNumber("longitude",
			mcp.Required(),
			mcp.Description("Current longitude"),
		),
		mcp.WithString("timestamp",
			mcp.Description("Fix time in RFC 3339; defaults to now"),
		),
		mcp.WithNumber("course",
			mcp.Description("Heading in degrees; negative when unknown"),
		),
	)
}

// HandleUpdateLocation implements location updates
func (r *Registry) HandleUpdateLocation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requiredString(req, "navigation_id")
	if err != nil {
		return ErrorResponse(err.Error()), nil
	}
	pos, err := coordinate(req, "latitude", "longitude")
	if err != nil {
		return ErrorResponse(err.Error()), nil
	}
	ts, err := optionalTime(req, "timestamp")
	if err != nil {
		return ErrorResponse(err.Error()), nil
	}
	course, err := optionalFloat(req, "course", -1)
	if err != nil {
		return ErrorResponse(err.Error()), nil
	}
	if ts.IsZero() {
		ts = r.now()
	}

	res, err := r.manager.Update(id, nav.Fix{Coordinate: pos, Timestamp: ts, Course: course})
	if err != nil {
		return ToolError(err), nil
	}
	return JSONResult(locationResult(id, res))
}

// NavigationStatusTool returns a tool definition for navigation status
func NavigationStatusTool() mcp.Tool {
	return mcp.NewTool("navigation_status",
		mcp.WithDescription("Describe a navigation as text, JSON or a GeoJSON map layer"),
		mcp.WithString("navigation_id",
			mcp.Required(),
			mcp.Description("Navigation identifier returned by plan_navigation"),
		),
		mcp.WithString("format",
			mcp.Description("Output format"),
			mcp.Enum(FormatText, FormatJSON, FormatGeoJSON),
			mcp.DefaultString(FormatText),
		),
	)
}

// HandleNavigationStatus implements navigation status
func (r *Registry) HandleNavigationStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requiredString(req, "navigation_id")
	if err != nil {
		return ErrorResponse(err.Error()), nil
	}
	snap, err := r.manager.Status(id)
	if err != nil {
		return ToolError(err), nil
	}

	switch format := mcp.ParseString(req, "format", FormatText); format {
	case FormatText:
		return mcp.NewToolResultText(snap.Summary()), nil
	case FormatJSON:
		return JSONResult(snap)
	case FormatGeoJSON:
		data, err := json.Marshal(render.FeatureCollection(snap))
		if err != nil {
			r.logger.Error("failed to encode geojson", "id", id, "error", err)
			return ErrorResponse("Failed to generate GeoJSON"), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	default:
		return ErrorResponse(fmt.Sprintf("Unknown format %q; use text, json or geojson", format)), nil
	}
}

// EndNavigationTool returns a tool definition for ending a navigation
func EndNavigationTool() mcp.Tool {
	return mcp.NewTool("end_navigation",
		mcp.WithDescription("End a navigation and stop its background refresh"),
		mcp.WithString("navigation_id",
			mcp.Required(),
			mcp.Description("Navigation identifier returned by plan_navigation"),
		),
	)
}

// HandleEndNavigation implements ending a navigation
func (r *Registry) HandleEndNavigation(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requiredString(req, "navigation_id")
	if err != nil {
		return ErrorResponse(err.Error()), nil
	}
	if err := r.manager.End(id); err != nil {
		return ToolError(err), nil
	}
	r.logger.Info("navigation ended", "id", id)
	return mcp.NewToolResultText(fmt.Sprintf("Navigation %s ended", id)), nil
}
