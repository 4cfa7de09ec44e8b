package tools

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
)

// ErrorResponse is used for consistent error reporting
func ErrorResponse(message string) *mcp.CallToolResult {
	return mcp.NewToolResultError(message)
}

// JSONResult marshals v as the text content of a tool result.
func JSONResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return ErrorResponse("Failed to generate result"), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
