package tools

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/NERVsystems/navtrack/pkg/geo"
	"github.com/NERVsystems/navtrack/pkg/osm"
)

// SearchResult is returned by search_destination.
type SearchResult struct {
	Query  string      `json:"query"`
	Places []osm.Place `json:"places"`
	Count  int         `json:"count"`
}

// SearchDestinationTool returns a tool definition for destination search
func SearchDestinationTool() mcp.Tool {
	return mcp.NewTool("search_destination",
		mcp.WithDescription("Search OpenStreetMap for places matching a name or address; pass the returned location to plan_navigation"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Place name, point of interest or address"),
		),
		mcp.WithNumber("near_lat",
			mcp.Description("Latitude to search around, usually the current position"),
		),
		mcp.WithNumber("near_lon",
			mcp.Description("Longitude to search around, usually the current position"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of places to return"),
			mcp.DefaultNumber(osm.DefaultLimit),
			mcp.Max(osm.MaxLimit),
		),
	)
}

// HandleSearchDestination implements destination search
func (r *Registry) HandleSearchDestination(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	logger := r.logger.With("tool", "search_destination")

	query, err := requiredString(req, "query")
	if err != nil {
		return ErrorResponse(err.Error()), nil
	}
	query = osm.SanitizeQuery(query)
	if query == "" {
		return ErrorResponse("query must not be empty"), nil
	}
	limit, err := optionalInt(req, "limit", osm.DefaultLimit)
	if err != nil {
		return ErrorResponse(err.Error()), nil
	}
	if limit < 1 || limit > osm.MaxLimit {
		return ErrorResponse(fmt.Sprintf("limit must be between 1 and %d", osm.MaxLimit)), nil
	}
	near, err := optionalCoordinate(req, "near_lat", "near_lon")
	if err != nil {
		return ErrorResponse(fmt.Sprintf("Invalid search position: %v", err)), nil
	}

	places, err := r.places.Search(ctx, query, limit, near)
	if err != nil {
		logger.Error("destination search failed", "query", query, "error", err)
		return ToolError(err), nil
	}
	logger.Debug("destination search", "query", query, "results", len(places))
	return JSONResult(SearchResult{Query: query, Places: places, Count: len(places)})
}

// resolveDestination turns a destination query into coordinates, preferring
// places close to origin.
func (r *Registry) resolveDestination(ctx context.Context, query string, origin geo.Coordinate) (osm.Place, error) {
	if r.places == nil {
		return osm.Place{}, errSearchDisabled
	}
	return r.places.Resolve(ctx, query, &origin)
}
