// Package tools provides the navigation MCP tools implementations.
package tools

import (
	"context"
	"log/slog"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/NERVsystems/navtrack/pkg/geo"
	"github.com/NERVsystems/navtrack/pkg/navigator"
	"github.com/NERVsystems/navtrack/pkg/osm"
)

// PlaceSearcher resolves free-form destination queries.
type PlaceSearcher interface {
	Search(ctx context.Context, query string, limit int, near *geo.Coordinate) ([]osm.Place, error)
	Resolve(ctx context.Context, query string, near *geo.Coordinate) (osm.Place, error)
}

// Registry holds all MCP tool registrations for the navigation service.
type Registry struct {
	logger  *slog.Logger
	manager *navigator.Manager
	places  PlaceSearcher
	now     func() time.Time
}

// NewRegistry creates a new MCP tool registry backed by manager. A nil
// places disables destination search.
func NewRegistry(logger *slog.Logger, manager *navigator.Manager, places PlaceSearcher) *Registry {
	return &Registry{
		logger:  logger,
		manager: manager,
		places:  places,
		now:     time.Now,
	}
}

// ToolDefinition represents a navigation MCP tool definition.
type ToolDefinition struct {
	Name        string
	Description string
	Tool        mcp.Tool
	Handler     func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// GetToolDefinitions returns all navigation MCP tool definitions.
func (r *Registry) GetToolDefinitions() []ToolDefinition {
	defs := []ToolDefinition{
		// Planning
		{
			Name:        "plan_navigation",
			Description: "Fetch candidate routes between two locations",
			Tool:        PlanNavigationTool(),
			Handler:     r.HandlePlanNavigation,
		},
		{
			Name:        "set_transport_mode",
			Description: "Change the transport mode and re-fetch routes",
			Tool:        SetTransportModeTool(),
			Handler:     r.HandleSetTransportMode,
		},

		// Tracking
		{
			Name:        "start_navigation",
			Description: "Start turn-by-turn tracking along a candidate route",
			Tool:        StartNavigationTool(),
			Handler:     r.HandleStartNavigation,
		},
		{
			Name:        "update_location",
			Description: "Report a location fix and get the current guidance",
			Tool:        UpdateLocationTool(),
			Handler:     r.HandleUpdateLocation,
		},
		{
			Name:        "navigation_status",
			Description: "Get the state of a navigation as text, JSON or GeoJSON",
			Tool:        NavigationStatusTool(),
			Handler:     r.HandleNavigationStatus,
		},
		{
			Name:        "end_navigation",
			Description: "End a navigation and release its resources",
			Tool:        EndNavigationTool(),
			Handler:     r.HandleEndNavigation,
		},
	}

	if r.places != nil {
		defs = append(defs, ToolDefinition{
			Name:        "search_destination",
			Description: "Find destinations by name or address",
			Tool:        SearchDestinationTool(),
			Handler:     r.HandleSearchDestination,
		})
	}
	return defs
}

// RegisterTools registers all tools with the MCP server.
func (r *Registry) RegisterTools(mcpServer *server.MCPServer) {
	for _, def := range r.GetToolDefinitions() {
		r.logger.Info("registering tool", "name", def.Name)
		mcpServer.AddTool(def.Tool, def.Handler)
	}
}
