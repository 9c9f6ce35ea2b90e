package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain/agent"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain/handoff"
)

// registerTools registers all MCP tools on the server.
func (s *Server) registerTools() {
	s.mcpServer.AddTools(
		s.analyzeHandoffTool(),
		s.executeHandoffTool(),
		s.handoffHistoryTool(),
		s.rateHandoffTool(),
	)
}

// contextOptions describe the handoff context shared by analyze and execute.
func contextOptions() []mcplib.ToolOption {
	return []mcplib.ToolOption{
		mcplib.WithString("source_agent_id",
			mcplib.Required(),
			mcplib.Description("The agent that produced the current work"),
		),
		mcplib.WithString("user_intent",
			mcplib.Description("Free-text description of what the user wants next"),
		),
		mcplib.WithString("user_id", mcplib.Required()),
		mcplib.WithString("session_id"),
		mcplib.WithString("user_tier",
			mcplib.Required(),
			mcplib.Enum(string(agent.TierGateway), string(agent.TierStarter), string(agent.TierStar), string(agent.TierAllStar)),
		),
		mcplib.WithArray("previous_agents",
			mcplib.Description("Agents already visited in this session, in order"),
			mcplib.WithStringItems(),
		),
		mcplib.WithNumber("handoff_count", mcplib.Min(0)),
		mcplib.WithObject("preferences",
			mcplib.Description("preferred_agents, avoided_agents and workflow_style (fast|thorough|creative)"),
		),
		mcplib.WithObject("workflow_data",
			mcplib.Description(`Work in progress as {"kind": "content|campaign|brand|opaque", "data": {...}}`),
		),
	}
}

func (s *Server) analyzeHandoffTool() mcpserver.ServerTool {
	opts := append([]mcplib.ToolOption{
		mcplib.WithDescription("Rank the agents best suited to continue the current work and suggest a workflow chain"),
		mcplib.WithString("target_agent_id",
			mcplib.Description("Agent the user asked for explicitly; reported as requested_agent when it qualifies"),
		),
	}, contextOptions()...)
	return mcpserver.ServerTool{
		Tool:    mcplib.NewTool("analyze_handoff", opts...),
		Handler: s.handleAnalyzeHandoff,
	}
}

func (s *Server) executeHandoffTool() mcpserver.ServerTool {
	opts := append([]mcplib.ToolOption{
		mcplib.WithDescription("Hand the work over to the chosen agent and trigger its workflow"),
		mcplib.WithString("handoff_id",
			mcplib.Required(),
			mcplib.Description("The handoff_id returned by analyze_handoff"),
		),
		mcplib.WithString("target_agent_id", mcplib.Required()),
	}, contextOptions()...)
	return mcpserver.ServerTool{
		Tool:    mcplib.NewTool("execute_handoff", opts...),
		Handler: s.handleExecuteHandoff,
	}
}

func (s *Server) handoffHistoryTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("get_handoff_history",
		mcplib.WithDescription("List a user's recent handoff events, newest first"),
		mcplib.WithString("user_id", mcplib.Required()),
		mcplib.WithString("session_id"),
		mcplib.WithNumber("limit", mcplib.Description("Maximum events to return (default 10, max 100)")),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleHandoffHistory,
	}
}

func (s *Server) rateHandoffTool() mcpserver.ServerTool {
	tool := mcplib.NewTool("rate_handoff",
		mcplib.WithDescription("Rate an executed handoff from 1 to 5"),
		mcplib.WithString("handoff_id", mcplib.Required()),
		mcplib.WithNumber("rating", mcplib.Required(), mcplib.Min(1), mcplib.Max(5)),
		mcplib.WithString("feedback"),
	)
	return mcpserver.ServerTool{
		Tool:    tool,
		Handler: s.handleRateHandoff,
	}
}

// handoffArgs is the flat tool argument form of a handoff.Context.
type handoffArgs struct {
	HandoffID      string               `json:"handoff_id"`
	SourceAgentID  string               `json:"source_agent_id"`
	UserIntent     string               `json:"user_intent"`
	TargetAgentID  string               `json:"target_agent_id"`
	UserID         string               `json:"user_id"`
	SessionID      string               `json:"session_id"`
	UserTier       agent.Tier           `json:"user_tier"`
	PreviousAgents []string             `json:"previous_agents"`
	HandoffCount   int                  `json:"handoff_count"`
	Preferences    *handoff.Preferences `json:"preferences"`
	WorkflowData   handoff.Payload      `json:"workflow_data"`
}

func (a *handoffArgs) context() *handoff.Context {
	return &handoff.Context{
		SourceAgentID: a.SourceAgentID,
		UserIntent:    a.UserIntent,
		TargetAgentID: a.TargetAgentID,
		Preferences:   a.Preferences,
		WorkflowData:  a.WorkflowData,
		Session: handoff.SessionContext{
			UserID:         a.UserID,
			SessionID:      a.SessionID,
			UserTier:       a.UserTier,
			PreviousAgents: a.PreviousAgents,
			HandoffCount:   a.HandoffCount,
		},
	}
}

// bindArgs decodes the tool arguments into v through their JSON form.
func bindArgs(req *mcplib.CallToolRequest, v any) error {
	data, err := json.Marshal(req.GetArguments())
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (s *Server) handleAnalyzeHandoff(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Handoffs == nil {
		return mcplib.NewToolResultError("handoff service not configured"), nil
	}
	var args handoffArgs
	if err := bindArgs(&req, &args); err != nil {
		return mcplib.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	res := s.deps.Handoffs.AnalyzeHandoffIntent(ctx, args.context())
	return resultJSON(res, !res.Success)
}

func (s *Server) handleExecuteHandoff(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Handoffs == nil {
		return mcplib.NewToolResultError("handoff service not configured"), nil
	}
	var args handoffArgs
	if err := bindArgs(&req, &args); err != nil {
		return mcplib.NewToolResultErrorFromErr("invalid arguments", err), nil
	}
	if args.HandoffID == "" || args.TargetAgentID == "" {
		return mcplib.NewToolResultError("handoff_id and target_agent_id are required"), nil
	}
	hc := args.context()
	res := s.deps.Handoffs.ExecuteHandoff(ctx, args.HandoffID, args.TargetAgentID, hc, hc.WorkflowData)
	return resultJSON(res, !res.Success)
}

func (s *Server) handleHandoffHistory(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Handoffs == nil {
		return mcplib.NewToolResultError("handoff service not configured"), nil
	}
	userID := req.GetString("user_id", "")
	if userID == "" {
		return mcplib.NewToolResultError("user_id is required"), nil
	}
	events, err := s.deps.Handoffs.GetHandoffHistory(ctx, userID, req.GetString("session_id", ""), req.GetInt("limit", 0))
	if err != nil {
		return mcplib.NewToolResultErrorFromErr(fmt.Sprintf("failed to list handoffs for %s", userID), err), nil
	}
	return resultJSON(events, false)
}

func (s *Server) handleRateHandoff(ctx context.Context, req mcplib.CallToolRequest) (*mcplib.CallToolResult, error) { //nolint:gocritic // hugeParam: mcp-go handler signature
	if s.deps.Handoffs == nil {
		return mcplib.NewToolResultError("handoff service not configured"), nil
	}
	handoffID := req.GetString("handoff_id", "")
	if handoffID == "" {
		return mcplib.NewToolResultError("handoff_id is required"), nil
	}
	res := s.deps.Handoffs.RateHandoff(ctx, handoffID, req.GetInt("rating", 0), req.GetString("feedback", ""))
	return resultJSON(res, !res.Success)
}

// resultJSON renders v as a JSON text result.
func resultJSON(v any, isError bool) (*mcplib.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcplib.NewToolResultErrorFromErr("failed to marshal result", err), nil
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{mcplib.NewTextContent(string(data))},
		IsError: isError,
	}, nil
}
