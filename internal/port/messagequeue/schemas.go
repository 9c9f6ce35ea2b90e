package messagequeue

import (
	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain/event"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/port/workflow"
)

// WorkflowTriggerPayload is the schema for workflows.trigger.{agentId} messages.
type WorkflowTriggerPayload = workflow.Request

// HandoffEventPayload is the schema for handoffs.events.{type} messages.
type HandoffEventPayload = event.HandoffEvent
