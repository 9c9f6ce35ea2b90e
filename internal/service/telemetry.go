package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain/event"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain/handoff"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/port/telemetry"
)

// Recorder receives handoff metrics. *otel.Metrics implements it.
type Recorder interface {
	Analysis(ctx context.Context, sourceAgentID string, confidence int, chainMatched bool)
	NoCandidate(ctx context.Context, sourceAgentID string)
	Execution(ctx context.Context, targetAgentID, kind string)
	TelemetryFailure(ctx context.Context, eventType string)
}

type nopRecorder struct{}

func (nopRecorder) Analysis(context.Context, string, int, bool) {}
func (nopRecorder) NoCandidate(context.Context, string)         {}
func (nopRecorder) Execution(context.Context, string, string)   {}
func (nopRecorder) TelemetryFailure(context.Context, string)    {}

// telemetryRecorder writes events to the sink. Failures are logged and
// counted and never reach the caller.
type telemetryRecorder struct {
	sink    telemetry.Sink
	metrics Recorder
}

func newTelemetryRecorder(sink telemetry.Sink, metrics Recorder) *telemetryRecorder {
	return &telemetryRecorder{sink: sink, metrics: metrics}
}

func (r *telemetryRecorder) record(ctx context.Context, ev *event.HandoffEvent) {
	if r.sink == nil {
		return
	}
	if err := r.track(ctx, ev); err != nil {
		r.metrics.TelemetryFailure(ctx, string(ev.Type))
		slog.ErrorContext(ctx, "telemetry write failed",
			"event_type", ev.Type,
			"error_kind", handoff.KindOf(err),
			"error", err,
		)
	}
}

// track calls the sink and turns a panic into an error.
func (r *telemetryRecorder) track(ctx context.Context, ev *event.HandoffEvent) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: sink panicked: %v", handoff.ErrTelemetry, p)
		}
	}()
	if err := r.sink.Track(ctx, ev); err != nil {
		return fmt.Errorf("%w: %s: %w", handoff.ErrTelemetry, ev.Type, err)
	}
	return nil
}
