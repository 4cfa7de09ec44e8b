// Package prompts provides prompt templates for use with the MCP server.
package prompts

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterNavigationPrompts registers all navigation-related prompts with the MCP server
func RegisterNavigationPrompts(s *server.MCPServer) {
	s.AddPrompt(mcp.NewPrompt("navigation",
		mcp.WithPromptDescription("Instructions for driving a turn-by-turn navigation with the tracking tools"),
	), NavigationPromptHandler)

	s.AddPrompt(mcp.NewPrompt("navigation_examples",
		mcp.WithPromptDescription("Examples of a complete navigation session"),
	), NavigationExamplesHandler)
}

// NavigationPromptHandler returns the main prompt for the navigation tools
func NavigationPromptHandler(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	systemPrompt := `You have access to turn-by-turn navigation tools.
A navigation moves through three states: browsing, navigating and arrived.

1. Call plan_navigation with origin and destination coordinates and a mode (driving, walking or transit).
   When the user names a place instead, pass it as destination_query, or call search_destination near the
   origin first and let the user pick one of the places
2. Show the candidate routes to the user; use set_transport_mode to compare modes
3. Call start_navigation with the chosen route_index
4. Call update_location for every new position, in order, with its timestamp
5. Read the instruction, distance_text and eta_clock fields back to the user
6. Call end_navigation when the user is done, even after arrival

TRACKING GUIDELINES:
- Rerouting only happens after the user has moved away from the starting point
- When reroute_requested is true, new routes arrive in the background; keep sending locations
- When has_arrived is true, stop sending locations; the instruction reads "You have arrived"
- Use navigation_status with format geojson to draw the route, the remaining path and the position on a map`

	return mcp.NewGetPromptResult(
		"Navigation Tool Usage Guidelines",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(
				mcp.RoleAssistant,
				mcp.NewTextContent(systemPrompt),
			),
		},
	), nil
}

// NavigationExamplesHandler returns a worked example session
func NavigationExamplesHandler(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	examples := `EXAMPLE NAVIGATION SESSION:

search_destination:
{"query": "Sagrada Familia", "near_lat": 41.3851, "near_lon": 2.1734, "limit": 1}
-> {"query": "Sagrada Familia", "count": 1, "places": [{"name": "Sagrada Família", "location": {"latitude": 41.4036, "longitude": 2.1744}, "distance": 2060}]}

plan_navigation:
{"origin_lat": 41.3851, "origin_lon": 2.1734, "destination_lat": 41.4036, "destination_lon": 2.1744, "mode": "walking"}
-> {"navigation_id": "6f1c...", "state": "browsing", "routes": [{"index": 0, "distance_text": "2.3 km", "duration_text": "28 min"}]}

start_navigation:
{"navigation_id": "6f1c...", "route_index": 0}

update_location:
{"navigation_id": "6f1c...", "latitude": 41.3860, "longitude": 2.1735, "timestamp": "2026-05-04T09:30:00Z"}
-> {"instruction": "Turn right onto Carrer d'Aragó", "distance_text": "2.2 km", "eta_clock": "9:57 AM"}

end_navigation:
{"navigation_id": "6f1c..."}`

	return mcp.NewGetPromptResult(
		"Navigation Examples",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(
				mcp.RoleAssistant,
				mcp.NewTextContent(examples),
			),
		},
	), nil
}
