package handoff

import (
	"errors"
	"fmt"
	"strings"

	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain/agent"
)

// ChainStep is one agent's position in a WorkflowChain.
type ChainStep struct {
	AgentID      string   `json:"agent_id" yaml:"agent_id"`
	Order        int      `json:"order" yaml:"order"`
	ParallelWith []string `json:"parallel_with,omitempty" yaml:"parallel_with"`
	Conditions   []string `json:"conditions,omitempty" yaml:"conditions"`
}

// WorkflowChain is a predefined multi-agent sequence suggested when the
// intent and the recommendations fit it.
type WorkflowChain struct {
	ID                string      `json:"id" yaml:"id"`
	Name              string      `json:"name" yaml:"name"`
	Description       string      `json:"description" yaml:"description"`
	Steps             []ChainStep `json:"steps" yaml:"steps"`
	Keywords          []string    `json:"keywords" yaml:"keywords"`
	EstimatedDuration int         `json:"estimated_duration" yaml:"estimated_duration"`
	RequiredTier      agent.Tier  `json:"required_tier" yaml:"required_tier"`
	SuccessRate       float64     `json:"success_rate" yaml:"success_rate"`
	UserRating        float64     `json:"user_rating" yaml:"user_rating"`
}

// Validate checks the structural integrity of a chain definition.
func (c *WorkflowChain) Validate() error {
	if c.ID == "" {
		return errors.New("chain id is required")
	}
	if len(c.Steps) == 0 {
		return fmt.Errorf("chain %s: at least one step is required", c.ID)
	}
	if len(c.Keywords) == 0 {
		return fmt.Errorf("chain %s: at least one keyword is required", c.ID)
	}
	seen := make(map[string]bool, len(c.Steps))
	for _, s := range c.Steps {
		if s.AgentID == "" {
			return fmt.Errorf("chain %s: step %d has no agent_id", c.ID, s.Order)
		}
		if seen[s.AgentID] {
			return fmt.Errorf("chain %s: agent %s appears twice", c.ID, s.AgentID)
		}
		seen[s.AgentID] = true
	}
	if _, err := c.RequiredTier.Rank(); err != nil {
		return fmt.Errorf("chain %s: %w", c.ID, err)
	}
	return nil
}

// AgentIDs returns the step agent ids in declaration order.
func (c *WorkflowChain) AgentIDs() []string {
	ids := make([]string, len(c.Steps))
	for i, s := range c.Steps {
		ids[i] = s.AgentID
	}
	return ids
}

// matchesIntent reports whether any keyword occurs in the lowercase intent.
func (c *WorkflowChain) matchesIntent(intent string) bool {
	for _, kw := range c.Keywords {
		k := strings.ToLower(strings.TrimSpace(kw))
		if k != "" && strings.Contains(intent, k) {
			return true
		}
	}
	return false
}

// ChainMatcher picks the first catalog chain that fits an analysis.
type ChainMatcher struct {
	chains []WorkflowChain

	// OnInvalid, when set, is called for every chain skipped because its
	// tier cannot be ranked.
	OnInvalid func(chainID string, err error)
}

// NewChainMatcher creates a matcher over chains in catalog order.
func NewChainMatcher(chains []WorkflowChain) *ChainMatcher {
	return &ChainMatcher{chains: chains}
}

// Match returns the first chain whose steps are all recommended, whose tier
// the user holds and which shares a keyword with the intent.
func (m *ChainMatcher) Match(hc *Context, recommendedIDs []string) (*WorkflowChain, bool) {
	recommended := make(map[string]bool, len(recommendedIDs))
	for _, id := range recommendedIDs {
		recommended[id] = true
	}
	intent := strings.ToLower(hc.UserIntent)

	for i := range m.chains {
		c := &m.chains[i]
		if len(c.Steps) == 0 || !allRecommended(c, recommended) {
			continue
		}
		ok, err := agent.AtLeast(hc.Session.UserTier, c.RequiredTier)
		if err != nil {
			if m.OnInvalid != nil {
				m.OnInvalid(c.ID, err)
			}
			continue
		}
		if !ok || !c.matchesIntent(intent) {
			continue
		}
		matched := *c
		return &matched, true
	}
	return nil, false
}

func allRecommended(c *WorkflowChain, recommended map[string]bool) bool {
	for _, s := range c.Steps {
		if !recommended[s.AgentID] {
			return false
		}
	}
	return true
}
