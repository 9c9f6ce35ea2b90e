package messagequeue

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Validate checks whether data is valid JSON conforming to the schema
// associated with the given subject. Unknown subjects pass validation.
func Validate(subject string, data []byte) error {
	if !json.Valid(data) {
		return fmt.Errorf("invalid JSON on subject %s", subject)
	}

	switch {
	case strings.HasPrefix(subject, SubjectWorkflowTrigger+"."):
		var p WorkflowTriggerPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
		if agentID := strings.TrimPrefix(subject, SubjectWorkflowTrigger+"."); p.TargetAgentID != agentID {
			return fmt.Errorf("schema validation failed for %s: target_agent_id %q does not match subject", subject, p.TargetAgentID)
		}
		if err := p.Validate(); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
	case strings.HasPrefix(subject, SubjectHandoffEvents+"."):
		var p HandoffEventPayload
		if err := json.Unmarshal(data, &p); err != nil {
			return fmt.Errorf("schema validation failed for %s: %w", subject, err)
		}
		if p.HandoffID == "" {
			return fmt.Errorf("schema validation failed for %s: %w", subject, errors.New("handoff_id is required"))
		}
	}
	return nil
}
