package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "handoffd"

// StartAnalyzeSpan starts a span for one handoff analysis.
func StartAnalyzeSpan(ctx context.Context, handoffID, sourceAgentID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "handoff.analyze",
		trace.WithAttributes(
			attribute.String("handoff.id", handoffID),
			attribute.String("handoff.source_agent", sourceAgentID),
		),
	)
}

// StartExecuteSpan starts a span for a handoff execution.
func StartExecuteSpan(ctx context.Context, handoffID, targetAgentID string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "handoff.execute",
		trace.WithAttributes(
			attribute.String("handoff.id", handoffID),
			attribute.String("handoff.target_agent", targetAgentID),
		),
	)
}
