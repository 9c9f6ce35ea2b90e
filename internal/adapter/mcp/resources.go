package mcp

import (
	"context"
	"encoding/json"

	mcplib "github.com/mark3labs/mcp-go/mcp"
)

const (
	agentsURI = "handoff://catalog/agents"
	chainsURI = "handoff://catalog/chains"
)

// registerResources registers all MCP resources on the server.
func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			agentsURI,
			"Agent Catalog",
			mcplib.WithResourceDescription("Every agent a handoff can target, with category, capabilities and tier"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleAgentsResource,
	)

	s.mcpServer.AddResource(
		mcplib.NewResource(
			chainsURI,
			"Workflow Chains",
			mcplib.WithResourceDescription("Predefined multi-agent workflow chains in match order"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleChainsResource,
	)
}

func (s *Server) handleAgentsResource(ctx context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	if s.deps.Agents == nil {
		return jsonResource(req.Params.URI, `{"error":"agent catalog not configured"}`), nil
	}
	agents, err := s.deps.Agents.GetAllAgents(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(agents)
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, string(data)), nil
}

func (s *Server) handleChainsResource(ctx context.Context, req mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	if s.deps.Chains == nil {
		return jsonResource(req.Params.URI, `{"error":"chain catalog not configured"}`), nil
	}
	chains, err := s.deps.Chains.Chains(ctx)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(chains)
	if err != nil {
		return nil, err
	}
	return jsonResource(req.Params.URI, string(data)), nil
}

func jsonResource(uri, text string) []mcplib.ResourceContents {
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     text,
		},
	}
}
