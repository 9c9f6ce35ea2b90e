// Package handoff contains the pure decision logic of the cross-agent handoff
// engine: capability matching, confidence scoring, ranking and workflow-chain
// matching, together with the request/result value types they operate on.
//
// Nothing in this package performs I/O. Success rates, catalogs and chains are
// passed in by the caller so that scoring stays deterministic.
package handoff

import (
	"fmt"
	"slices"
	"strings"

	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain/agent"
)

// WorkflowStyle is the user's preferred pacing for a multi-agent workflow.
type WorkflowStyle string

const (
	StyleFast     WorkflowStyle = "fast"
	StyleThorough WorkflowStyle = "thorough"
	StyleCreative WorkflowStyle = "creative"
)

// Valid reports whether s is empty or a known style.
func (s WorkflowStyle) Valid() bool {
	switch s {
	case "", StyleFast, StyleThorough, StyleCreative:
		return true
	}
	return false
}

// HandoffType describes how the target agent runs relative to the rest of the workflow.
type HandoffType string

const (
	TypeSequential  HandoffType = "sequential"
	TypeParallel    HandoffType = "parallel"
	TypeConditional HandoffType = "conditional"
)

// SessionContext is supplied by the caller on every request. The engine keeps
// no session state of its own.
type SessionContext struct {
	UserID         string     `json:"user_id"`
	SessionID      string     `json:"session_id"`
	UserTier       agent.Tier `json:"user_tier"`
	PreviousAgents []string   `json:"previous_agents,omitempty"`
	HandoffCount   int        `json:"handoff_count"`
}

// Visited reports whether agentID is already part of this session's trail.
func (s *SessionContext) Visited(agentID string) bool {
	return slices.Contains(s.PreviousAgents, agentID)
}

// Preferences are optional user hints that bias scoring.
type Preferences struct {
	PreferredAgents []string      `json:"preferred_agents,omitempty"`
	AvoidedAgents   []string      `json:"avoided_agents,omitempty"`
	WorkflowStyle   WorkflowStyle `json:"workflow_style,omitempty"`
}

// Prefers reports whether agentID is in the preferred list.
func (p *Preferences) Prefers(agentID string) bool {
	return p != nil && slices.Contains(p.PreferredAgents, agentID)
}

// Avoids reports whether agentID is in the avoided list.
func (p *Preferences) Avoids(agentID string) bool {
	return p != nil && slices.Contains(p.AvoidedAgents, agentID)
}

// Context is the per-request input to handoff analysis and execution.
type Context struct {
	SourceAgentID string         `json:"source_agent_id"`
	UserIntent    string         `json:"user_intent"`
	TargetAgentID string         `json:"target_agent_id,omitempty"`
	Preferences   *Preferences   `json:"preferences,omitempty"`
	WorkflowData  Payload        `json:"workflow_data"`
	Session       SessionContext `json:"session"`
}

// Validate checks that a Context carries the fields every operation needs.
// Tier values are checked separately so that they surface as InvalidTier.
func (c *Context) Validate() error {
	if strings.TrimSpace(c.SourceAgentID) == "" {
		return fmt.Errorf("%w: source_agent_id is required", domain.ErrValidation)
	}
	if c.Session.UserID == "" {
		return fmt.Errorf("%w: session.user_id is required", domain.ErrValidation)
	}
	if c.Session.HandoffCount < 0 {
		return fmt.Errorf("%w: session.handoff_count must be >= 0", domain.ErrValidation)
	}
	if c.Preferences != nil && !c.Preferences.WorkflowStyle.Valid() {
		return fmt.Errorf("%w: unknown workflow_style %q", domain.ErrValidation, c.Preferences.WorkflowStyle)
	}
	return c.WorkflowData.Validate()
}

// workflowStyle returns the requested style or "" when no preferences were sent.
func (c *Context) workflowStyle() WorkflowStyle {
	if c.Preferences == nil {
		return ""
	}
	return c.Preferences.WorkflowStyle
}

// Recommendation is an immutable suggestion to hand work to one agent.
type Recommendation struct {
	AgentID           string      `json:"agent_id"`
	AgentName         string      `json:"agent_name"`
	SuperheroName     string      `json:"superhero_name"`
	Confidence        int         `json:"confidence"`
	Reasoning         string      `json:"reasoning"`
	EstimatedDuration int         `json:"estimated_duration"`
	RequiredTier      agent.Tier  `json:"required_tier"`
	HandoffType       HandoffType `json:"handoff_type"`
	Prerequisites     []string    `json:"prerequisites"`
	ExpectedOutputs   []string    `json:"expected_outputs"`
}

// Exclusion records a candidate that was dropped before ranking and why.
type Exclusion struct {
	AgentID string `json:"agent_id"`
	Reason  string `json:"reason"`
}

// Result is the outcome of AnalyzeHandoffIntent.
type Result struct {
	Success         bool             `json:"success"`
	HandoffID       string           `json:"handoff_id"`
	State           State            `json:"state"`
	Recommendation  *Recommendation  `json:"recommendation,omitempty"`
	Alternatives    []Recommendation `json:"alternatives,omitempty"`
	Recommendations []Recommendation `json:"recommendations,omitempty"`
	WorkflowChain   *WorkflowChain   `json:"workflow_chain,omitempty"`
	RequestedAgent  *Recommendation  `json:"requested_agent,omitempty"`
	Exclusions      []Exclusion      `json:"exclusions,omitempty"`
	Error           ErrorKind        `json:"error,omitempty"`
	Message         string           `json:"message,omitempty"`
}

// ExecutionResult is the outcome of ExecuteHandoff.
type ExecutionResult struct {
	Success       bool      `json:"success"`
	HandoffID     string    `json:"handoff_id"`
	TargetAgentID string    `json:"target_agent_id"`
	ExecutionID   string    `json:"execution_id,omitempty"`
	State         State     `json:"state"`
	Error         ErrorKind `json:"error,omitempty"`
	Message       string    `json:"message,omitempty"`
}

// OperationResult is the outcome of operations that return no data.
type OperationResult struct {
	Success bool      `json:"success"`
	Error   ErrorKind `json:"error,omitempty"`
	Message string    `json:"message,omitempty"`
}

// ExecutionID composes the identifier correlating a handoff decision with its
// downstream workflow run. handoffID is unique, so the composition is too.
func ExecutionID(handoffID, targetAgentID string) string {
	return "exec_" + handoffID + "_" + targetAgentID
}
