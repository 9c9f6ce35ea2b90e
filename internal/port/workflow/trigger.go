// Package workflow defines the port for starting an agent's workflow once a
// handoff has been executed.
package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Request is handed to the target agent's workflow.
type Request struct {
	ExecutionID   string          `json:"execution_id"`
	HandoffID     string          `json:"handoff_id"`
	SourceAgentID string          `json:"source_agent_id"`
	TargetAgentID string          `json:"target_agent_id"`
	UserID        string          `json:"user_id"`
	SessionID     string          `json:"session_id,omitempty"`
	Intent        string          `json:"intent,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	RequestID     string          `json:"request_id,omitempty"`
	RequestedAt   time.Time       `json:"requested_at"`
}

// Validate checks required fields before the request is published.
func (r *Request) Validate() error {
	if r.ExecutionID == "" {
		return errors.New("execution_id is required")
	}
	if r.HandoffID == "" {
		return errors.New("handoff_id is required")
	}
	if r.TargetAgentID == "" {
		return errors.New("target_agent_id is required")
	}
	if r.Payload != nil && !json.Valid(r.Payload) {
		return errors.New("payload is not valid JSON")
	}
	return nil
}

// Handle identifies an accepted workflow run. The trigger never waits for
// the target agent to finish.
type Handle struct {
	ExecutionID string `json:"execution_id"`
	Backend     string `json:"backend"`
	Reference   string `json:"reference,omitempty"`
}

// Trigger starts the workflow of agentID.
type Trigger interface {
	TriggerWorkflow(ctx context.Context, agentID string, req Request) (*Handle, error)
}
