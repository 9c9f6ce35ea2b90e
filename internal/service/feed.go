package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain/event"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/port/messagequeue"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/port/telemetry"
)

// FeedRelay forwards handoff events published on the queue by any replica to
// a local sink, typically the websocket hub.
type FeedRelay struct {
	queue messagequeue.Queue
	sink  telemetry.Sink
}

// NewFeedRelay creates a FeedRelay.
func NewFeedRelay(queue messagequeue.Queue, sink telemetry.Sink) *FeedRelay {
	return &FeedRelay{queue: queue, sink: sink}
}

// Start subscribes to all handoff events. The returned function stops the relay.
func (r *FeedRelay) Start(ctx context.Context) (func(), error) {
	return r.queue.Subscribe(ctx, messagequeue.SubjectHandoffEvents+".>", r.handle)
}

func (r *FeedRelay) handle(ctx context.Context, subject string, data []byte) error {
	if messagequeue.IsDeadLetter(subject) {
		return nil
	}
	var ev event.HandoffEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return fmt.Errorf("decode handoff event: %w", err)
	}
	return r.sink.Track(ctx, &ev)
}
