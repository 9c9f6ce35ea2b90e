package handoff

import (
	"errors"

	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain/agent"
)

// ErrorKind is the machine-readable failure code returned across the public
// boundary. Callers render Message; Error is stable for mapping.
type ErrorKind string

const (
	KindSourceAgentNotFound ErrorKind = "SourceAgentNotFound"
	KindNoCandidate         ErrorKind = "NoCandidate"
	KindInvalidTier         ErrorKind = "InvalidTier"
	KindTelemetryFailure    ErrorKind = "TelemetryFailure"
	KindExecutionFailure    ErrorKind = "ExecutionFailure"
	KindHandoffRejected     ErrorKind = "HandoffRejected"
	KindInvalidRequest      ErrorKind = "InvalidRequest"
	KindInternal            ErrorKind = "Internal"
)

var (
	// ErrSourceAgentNotFound is returned when the source agent is not in the catalog.
	ErrSourceAgentNotFound = errors.New("source agent not found")
	// ErrNoCandidate is returned when no agent reaches the inclusion threshold.
	ErrNoCandidate = errors.New("no candidate agent reached the confidence threshold")
	// ErrTelemetry wraps a failed telemetry write. It never fails a handoff.
	ErrTelemetry = errors.New("telemetry write failed")
	// ErrExecution wraps a rejected or failed downstream workflow trigger.
	ErrExecution = errors.New("workflow trigger failed")
	// ErrRejected is returned when an execution request violates a handoff guard.
	ErrRejected = errors.New("handoff rejected")
)

// KindOf maps an internal error onto its public ErrorKind.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrSourceAgentNotFound):
		return KindSourceAgentNotFound
	case errors.Is(err, ErrNoCandidate):
		return KindNoCandidate
	case errors.Is(err, agent.ErrInvalidTier):
		return KindInvalidTier
	case errors.Is(err, ErrTelemetry):
		return KindTelemetryFailure
	case errors.Is(err, ErrRejected):
		return KindHandoffRejected
	case errors.Is(err, ErrExecution):
		return KindExecutionFailure
	case errors.Is(err, domain.ErrValidation):
		return KindInvalidRequest
	default:
		return KindInternal
	}
}
