// Package server provides the MCP server exposing the navigation tools.
package server

import (
	"context"
	"io"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/NERVsystems/navtrack/pkg/navigator"
	"github.com/NERVsystems/navtrack/pkg/tools"
	"github.com/NERVsystems/navtrack/pkg/tools/prompts"
	"github.com/NERVsystems/navtrack/pkg/version"
)

const (
	// ServerName is the name of the MCP server
	ServerName = "navtrack-mcp-server"
)

// Server encapsulates the MCP server with navigation tools.
type Server struct {
	srv    *server.MCPServer
	logger *slog.Logger
}

// NewServer creates a new navigation MCP server with all tools and prompts
// registered. A nil places leaves out destination search.
func NewServer(logger *slog.Logger, manager *navigator.Manager, places tools.PlaceSearcher) *Server {
	logger = logger.With("component", "mcp")
	logger.Info("initializing navigation MCP server",
		"name", ServerName,
		"version", version.BuildVersion)

	srv := server.NewMCPServer(
		ServerName,
		version.BuildVersion,
		server.WithToolCapabilities(false),
		server.WithPromptCapabilities(false),
		server.WithRecovery(),
	)

	registry := tools.NewRegistry(logger, manager, places)
	registry.RegisterTools(srv)
	prompts.RegisterNavigationPrompts(srv)

	return &Server{srv: srv, logger: logger}
}

// MCPServer returns the underlying MCP server.
func (s *Server) MCPServer() *server.MCPServer {
	return s.srv
}

// Run serves MCP over in/out until ctx is canceled or in is closed.
func (s *Server) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	stdio := server.NewStdioServer(s.srv)
	stdio.SetErrorLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError))
	s.logger.Info("serving MCP over stdio")
	return stdio.Listen(ctx, in, out)
}
