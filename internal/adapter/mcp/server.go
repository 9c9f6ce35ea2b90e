// Package mcp exposes the handoff engine as Model Context Protocol tools and
// resources so that agents can request handoffs themselves.
package mcp

import (
	"context"
	"net/http"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain/event"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain/handoff"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/port/catalog"
)

// HandoffService is the subset of the handoff service the tools call.
type HandoffService interface {
	AnalyzeHandoffIntent(ctx context.Context, hc *handoff.Context) handoff.Result
	ExecuteHandoff(ctx context.Context, handoffID, targetAgentID string, hc *handoff.Context, payload handoff.Payload) handoff.ExecutionResult
	GetHandoffHistory(ctx context.Context, userID, sessionID string, limit int) ([]event.HandoffEvent, error)
	RateHandoff(ctx context.Context, handoffID string, rating int, feedback string) handoff.OperationResult
}

// ServerConfig holds the MCP server identity.
type ServerConfig struct {
	Name    string
	Version string
	Path    string // endpoint path the streamable HTTP handler is mounted on
}

// ServerDeps are the collaborators behind the tools and resources.
// Nil dependencies turn the corresponding tools into error results.
type ServerDeps struct {
	Handoffs HandoffService
	Agents   catalog.Agents
	Chains   catalog.Chains
}

// Server wraps an mcp-go server with the handoff tools registered.
type Server struct {
	cfg       ServerConfig
	deps      ServerDeps
	mcpServer *mcpserver.MCPServer
}

// NewServer creates the MCP server and registers all tools and resources.
func NewServer(cfg ServerConfig, deps ServerDeps) *Server {
	if cfg.Path == "" {
		cfg.Path = "/mcp"
	}
	s := &Server{
		cfg:  cfg,
		deps: deps,
		mcpServer: mcpserver.NewMCPServer(cfg.Name, cfg.Version,
			mcpserver.WithToolCapabilities(false),
			mcpserver.WithResourceCapabilities(false, false),
			mcpserver.WithRecovery(),
		),
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying mcp-go server.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

// Handler returns the streamable HTTP transport, ready to be mounted on the
// configured path.
func (s *Server) Handler() http.Handler {
	return mcpserver.NewStreamableHTTPServer(s.mcpServer,
		mcpserver.WithEndpointPath(s.cfg.Path),
		mcpserver.WithStateLess(true),
	)
}
