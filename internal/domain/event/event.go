// Package event defines the HandoffEvent telemetry entity.
package event

import (
	"encoding/json"
	"time"
	"unicode/utf8"
)

// Type identifies the kind of handoff event.
type Type string

const (
	TypeHandoffRecommended     Type = "handoff.recommended"
	TypeHandoffNoCandidate     Type = "handoff.no_candidate"
	TypeHandoffExecuted        Type = "handoff.executed"
	TypeHandoffExecutionFailed Type = "handoff.execution_failed"
	TypeHandoffRated           Type = "handoff.rated"
)

// MaxIntentRunes bounds the intent text stored with an event.
const MaxIntentRunes = 100

// HandoffEvent is a single immutable telemetry record of a handoff decision,
// execution or rating.
type HandoffEvent struct {
	ID            string          `json:"id"`
	Type          Type            `json:"type"`
	HandoffID     string          `json:"handoff_id"`
	UserID        string          `json:"user_id"`
	SessionID     string          `json:"session_id,omitempty"`
	SourceAgentID string          `json:"source_agent_id,omitempty"`
	TargetAgentID string          `json:"target_agent_id,omitempty"`
	Confidence    int             `json:"confidence,omitempty"`
	HandoffType   string          `json:"handoff_type,omitempty"`
	Intent        string          `json:"intent,omitempty"`
	ExecutionID   string          `json:"execution_id,omitempty"`
	Rating        int             `json:"rating,omitempty"`
	Feedback      string          `json:"feedback,omitempty"`
	Payload       json.RawMessage `json:"payload,omitempty"`
	RequestID     string          `json:"request_id,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// TruncateIntent shortens s to at most MaxIntentRunes runes.
func TruncateIntent(s string) string {
	if utf8.RuneCountInString(s) <= MaxIntentRunes {
		return s
	}
	r := []rune(s)
	return string(r[:MaxIntentRunes])
}
