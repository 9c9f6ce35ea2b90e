// Package agent defines the Agent catalog entity and access tiers.
package agent

import (
	"errors"
	"strings"
)

// Agent describes one specialised agent as exposed by the agent catalog.
// Values are read-only for the lifetime of a request.
type Agent struct {
	ID            string   `json:"id" yaml:"id"`
	Name          string   `json:"name" yaml:"name"`
	SuperheroName string   `json:"superhero_name,omitempty" yaml:"superhero_name"`
	Category      string   `json:"category" yaml:"category"`
	Description   string   `json:"description" yaml:"description"`
	Capabilities  []string `json:"capabilities" yaml:"capabilities"`
	RequiredTier  Tier     `json:"required_tier" yaml:"required_tier"`
}

// DisplayName returns the superhero label when set, otherwise the plain name.
func (a *Agent) DisplayName() string {
	if a.SuperheroName != "" {
		return a.SuperheroName
	}
	return a.Name
}

// SameCategory reports whether a and other belong to the same category,
// ignoring case and surrounding whitespace.
func (a *Agent) SameCategory(other *Agent) bool {
	return strings.EqualFold(strings.TrimSpace(a.Category), strings.TrimSpace(other.Category))
}

// Validate checks that an Agent has the fields the handoff engine relies on.
func (a *Agent) Validate() error {
	if a.ID == "" {
		return errors.New("agent id is required")
	}
	if a.Name == "" {
		return errors.New("agent name is required")
	}
	if a.Category == "" {
		return errors.New("agent category is required")
	}
	if _, err := a.RequiredTier.Rank(); err != nil {
		return err
	}
	return nil
}
