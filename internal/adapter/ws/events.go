package ws

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain/event"
)

// Track queues a handoff event for the subscribers of its user. It never
// waits on a client. It implements telemetry.Sink.
func (h *Hub) Track(ctx context.Context, ev *event.HandoffEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", ev.Type, err)
	}
	if ev.UserID == "" {
		return nil
	}
	if err := h.publish(ctx, ev.UserID, Message{Type: string(ev.Type), Payload: data}); err != nil {
		return fmt.Errorf("publish %s event: %w", ev.Type, err)
	}
	return nil
}
