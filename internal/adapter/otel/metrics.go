package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "handoffd"

// Metrics holds all handoff metric instruments. It implements the service's
// metrics recorder.
type Metrics struct {
	Analyses          metric.Int64Counter
	NoCandidates      metric.Int64Counter
	ChainsMatched     metric.Int64Counter
	Executions        metric.Int64Counter
	ExecutionFailures metric.Int64Counter
	TelemetryFailures metric.Int64Counter
	Confidence        metric.Int64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.Analyses, err = meter.Int64Counter("handoff.analyses",
		metric.WithDescription("Number of handoff analyses"))
	if err != nil {
		return nil, err
	}

	m.NoCandidates, err = meter.Int64Counter("handoff.no_candidate",
		metric.WithDescription("Number of analyses with no candidate above threshold"))
	if err != nil {
		return nil, err
	}

	m.ChainsMatched, err = meter.Int64Counter("handoff.chains.matched",
		metric.WithDescription("Number of analyses that matched a workflow chain"))
	if err != nil {
		return nil, err
	}

	m.Executions, err = meter.Int64Counter("handoff.executions",
		metric.WithDescription("Number of executed handoffs"))
	if err != nil {
		return nil, err
	}

	m.ExecutionFailures, err = meter.Int64Counter("handoff.executions.failed",
		metric.WithDescription("Number of rejected or failed handoff executions"))
	if err != nil {
		return nil, err
	}

	m.TelemetryFailures, err = meter.Int64Counter("handoff.telemetry.failures",
		metric.WithDescription("Number of telemetry writes that failed"))
	if err != nil {
		return nil, err
	}

	m.Confidence, err = meter.Int64Histogram("handoff.confidence",
		metric.WithDescription("Confidence of the best recommendation"),
		metric.WithExplicitBucketBoundaries(30, 40, 50, 60, 70, 80, 90, 100))
	if err != nil {
		return nil, err
	}

	return m, nil
}

// Analysis records one analysis outcome.
func (m *Metrics) Analysis(ctx context.Context, sourceAgentID string, confidence int, chainMatched bool) {
	attrs := metric.WithAttributes(attribute.String("source_agent", sourceAgentID))
	m.Analyses.Add(ctx, 1, attrs)
	m.Confidence.Record(ctx, int64(confidence), attrs)
	if chainMatched {
		m.ChainsMatched.Add(ctx, 1, attrs)
	}
}

// NoCandidate records an analysis without a recommendation.
func (m *Metrics) NoCandidate(ctx context.Context, sourceAgentID string) {
	attrs := metric.WithAttributes(attribute.String("source_agent", sourceAgentID))
	m.Analyses.Add(ctx, 1, attrs)
	m.NoCandidates.Add(ctx, 1, attrs)
}

// Execution records an execution attempt. kind is empty on success.
func (m *Metrics) Execution(ctx context.Context, targetAgentID, kind string) {
	if kind == "" {
		m.Executions.Add(ctx, 1, metric.WithAttributes(attribute.String("target_agent", targetAgentID)))
		return
	}
	m.ExecutionFailures.Add(ctx, 1, metric.WithAttributes(
		attribute.String("target_agent", targetAgentID),
		attribute.String("error", kind),
	))
}

// TelemetryFailure records a failed telemetry write.
func (m *Metrics) TelemetryFailure(ctx context.Context, eventType string) {
	m.TelemetryFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("event_type", eventType)))
}
