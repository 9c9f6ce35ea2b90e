// Package catalog defines the read-only agent and workflow-chain catalogs.
package catalog

import (
	"context"

	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain/agent"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain/handoff"
)

// Agents exposes the agent catalog.
type Agents interface {
	GetAllAgents(ctx context.Context) ([]agent.Agent, error)
	// GetAgent returns domain.ErrNotFound when id is unknown.
	GetAgent(ctx context.Context, id string) (*agent.Agent, error)
}

// Chains exposes the workflow-chain catalog in declaration order.
type Chains interface {
	Chains(ctx context.Context) ([]handoff.WorkflowChain, error)
}
