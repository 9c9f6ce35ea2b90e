// Package metrics defines the port for historical agent performance.
package metrics

import "context"

// SuccessRates reports an agent's historical success percentage in [0,100].
// ok is false when there is not enough history to say.
type SuccessRates interface {
	SuccessRate(ctx context.Context, agentID string) (rate float64, ok bool, err error)
}
