// Package telemetry defines the port interfaces for recording handoff events
// and reading them back.
package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain/event"
)

// Sink records handoff events. Callers treat failures as best-effort.
type Sink interface {
	Track(ctx context.Context, ev *event.HandoffEvent) error
}

// HistoryFilter controls which events ListHandoffs returns.
type HistoryFilter struct {
	UserID    string       `json:"user_id"`
	SessionID string       `json:"session_id,omitempty"`
	Types     []event.Type `json:"types,omitempty"`
	After     *time.Time   `json:"after,omitempty"`
	Limit     int          `json:"limit"`
}

// History reads recorded handoff events, newest first.
type History interface {
	ListHandoffs(ctx context.Context, filter HistoryFilter) ([]event.HandoffEvent, error)
}

// Rating is user feedback attached to one executed handoff.
type Rating struct {
	HandoffID     string `json:"handoff_id"`
	TargetAgentID string `json:"target_agent_id"`
	UserID        string `json:"user_id"`
	SessionID     string `json:"session_id,omitempty"`
	Rating        int    `json:"rating"`
	Feedback      string `json:"feedback,omitempty"`
}

// Ratings persists user feedback on executed handoffs.
type Ratings interface {
	// RateHandoff stores a 1-5 rating, replacing any earlier one. It returns
	// domain.ErrNotFound when handoffID was never executed.
	RateHandoff(ctx context.Context, handoffID string, rating int, feedback string) (*Rating, error)
}

// Fanout sends every event to each sink in order and joins their errors.
type Fanout []Sink

// Track implements Sink.
func (f Fanout) Track(ctx context.Context, ev *event.HandoffEvent) error {
	var errs []error
	for _, s := range f {
		if err := s.Track(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
