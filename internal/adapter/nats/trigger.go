package nats

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain/event"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/port/messagequeue"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/port/workflow"
)

// WorkflowTrigger publishes workflow requests on workflows.trigger.{agentId}.
// Publishing is the whole contract: agent workers pick the request up on
// their own schedule.
type WorkflowTrigger struct {
	queue messagequeue.Queue
}

// NewWorkflowTrigger creates a trigger over queue.
func NewWorkflowTrigger(queue messagequeue.Queue) *WorkflowTrigger {
	return &WorkflowTrigger{queue: queue}
}

// TriggerWorkflow implements workflow.Trigger.
func (t *WorkflowTrigger) TriggerWorkflow(ctx context.Context, agentID string, req workflow.Request) (*workflow.Handle, error) {
	req.TargetAgentID = agentID
	if err := req.Validate(); err != nil {
		return nil, fmt.Errorf("workflow request: %w", err)
	}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal workflow request: %w", err)
	}
	subject := messagequeue.WorkflowTriggerSubject(agentID)
	if err := t.queue.Publish(ctx, subject, data); err != nil {
		return nil, err
	}
	return &workflow.Handle{ExecutionID: req.ExecutionID, Backend: "nats", Reference: subject}, nil
}

// EventPublisher is a telemetry sink that mirrors handoff events onto
// handoffs.events.{type} for other services and the live feed.
type EventPublisher struct {
	queue messagequeue.Queue
}

// NewEventPublisher creates an EventPublisher over queue.
func NewEventPublisher(queue messagequeue.Queue) *EventPublisher {
	return &EventPublisher{queue: queue}
}

// Track implements telemetry.Sink.
func (p *EventPublisher) Track(ctx context.Context, ev *event.HandoffEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal handoff event: %w", err)
	}
	return p.queue.Publish(ctx, messagequeue.HandoffEventSubject(string(ev.Type)), data)
}
