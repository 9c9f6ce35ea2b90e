// Package messagequeue defines the message queue port (interface).
package messagequeue

import (
	"context"
	"strings"
)

// Handler processes a message received from the queue.
// The context carries request-scoped values such as the request ID.
type Handler func(ctx context.Context, subject string, data []byte) error

// Queue is the port interface for publishing and subscribing to messages.
type Queue interface {
	// Publish sends a message to the given subject.
	Publish(ctx context.Context, subject string, data []byte) error

	// Subscribe registers a handler for messages on the given subject.
	// Dead-letter subjects matched by a wildcard are never handed to handler.
	// The returned function cancels the subscription.
	Subscribe(ctx context.Context, subject string, handler Handler) (cancel func(), err error)

	// Drain gracefully drains all subscriptions before closing.
	Drain() error

	// Close shuts down the queue connection immediately.
	Close() error

	// IsConnected reports whether the queue is currently connected.
	IsConnected() bool
}

// Subjects used by the handoff engine.
const (
	SubjectWorkflowTrigger = "workflows.trigger" // workflows.trigger.{agentId}
	SubjectHandoffEvents   = "handoffs.events"   // handoffs.events.{type}
)

// DeadLetterSuffix is appended to the subject of a message that could not be processed.
const DeadLetterSuffix = ".dlq"

// IsDeadLetter reports whether subject carries a dead-lettered message.
func IsDeadLetter(subject string) bool {
	return strings.HasSuffix(subject, DeadLetterSuffix)
}

// WorkflowTriggerSubject returns the subject a target agent's workers listen on.
func WorkflowTriggerSubject(agentID string) string {
	return SubjectWorkflowTrigger + "." + agentID
}

// HandoffEventSubject returns the subject a handoff event of eventType is published on.
func HandoffEventSubject(eventType string) string {
	return SubjectHandoffEvents + "." + eventType
}
