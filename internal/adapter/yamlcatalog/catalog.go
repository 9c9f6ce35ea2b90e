// Package yamlcatalog implements the agent and workflow-chain catalogs from
// versioned YAML files. The defaults are embedded in the binary; a path in
// configuration overrides them.
package yamlcatalog

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain/agent"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain/handoff"
)

//go:embed defaults/*.yaml
var defaultFiles embed.FS

type agentFile struct {
	Version int           `yaml:"version"`
	Agents  []agent.Agent `yaml:"agents"`
}

type chainFile struct {
	Version int                     `yaml:"version"`
	Chains  []handoff.WorkflowChain `yaml:"chains"`
}

// Catalog serves both catalogs from memory. It is immutable after Load.
type Catalog struct {
	agents        []agent.Agent
	byID          map[string]int
	chains        []handoff.WorkflowChain
	agentsVersion int
	chainsVersion int
}

// Load reads the agent and chain catalogs. An empty path selects the
// embedded default for that file.
func Load(agentsPath, chainsPath string) (*Catalog, error) {
	agentData, err := readFile(agentsPath, "defaults/agents.yaml")
	if err != nil {
		return nil, err
	}
	chainData, err := readFile(chainsPath, "defaults/chains.yaml")
	if err != nil {
		return nil, err
	}
	return Parse(agentData, chainData)
}

// Parse builds a Catalog from raw YAML documents.
func Parse(agentData, chainData []byte) (*Catalog, error) {
	var af agentFile
	if err := yaml.Unmarshal(agentData, &af); err != nil {
		return nil, fmt.Errorf("parse agent catalog: %w", err)
	}
	var cf chainFile
	if err := yaml.Unmarshal(chainData, &cf); err != nil {
		return nil, fmt.Errorf("parse chain catalog: %w", err)
	}

	c := &Catalog{
		agents:        af.Agents,
		byID:          make(map[string]int, len(af.Agents)),
		chains:        cf.Chains,
		agentsVersion: af.Version,
		chainsVersion: cf.Version,
	}
	for i := range c.agents {
		if _, dup := c.byID[c.agents[i].ID]; dup {
			return nil, fmt.Errorf("agent catalog: duplicate id %q", c.agents[i].ID)
		}
		c.byID[c.agents[i].ID] = i
	}
	return c, nil
}

func readFile(path, embedded string) ([]byte, error) {
	if path == "" {
		return defaultFiles.ReadFile(embedded)
	}
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return data, nil
}

// GetAllAgents implements catalog.Agents. The returned slice is a copy.
func (c *Catalog) GetAllAgents(_ context.Context) ([]agent.Agent, error) {
	return append([]agent.Agent(nil), c.agents...), nil
}

// GetAgent implements catalog.Agents.
func (c *Catalog) GetAgent(_ context.Context, id string) (*agent.Agent, error) {
	i, ok := c.byID[id]
	if !ok {
		return nil, fmt.Errorf("agent %q: %w", id, domain.ErrNotFound)
	}
	a := c.agents[i]
	return &a, nil
}

// Chains implements catalog.Chains.
func (c *Catalog) Chains(_ context.Context) ([]handoff.WorkflowChain, error) {
	return append([]handoff.WorkflowChain(nil), c.chains...), nil
}

// Versions returns the declared versions of the agent and chain files.
func (c *Catalog) Versions() (agents, chains int) {
	return c.agentsVersion, c.chainsVersion
}

// Check validates every agent and chain and reports all problems found.
// Chains referencing unknown agents are reported too; they could never match.
func (c *Catalog) Check() error {
	var errs []error
	for i := range c.agents {
		if err := c.agents[i].Validate(); err != nil {
			errs = append(errs, fmt.Errorf("agent %q: %w", c.agents[i].ID, err))
		}
	}
	seen := make(map[string]bool, len(c.chains))
	for i := range c.chains {
		ch := &c.chains[i]
		if err := ch.Validate(); err != nil {
			errs = append(errs, err)
		}
		if seen[ch.ID] {
			errs = append(errs, fmt.Errorf("chain %s: duplicate id", ch.ID))
		}
		seen[ch.ID] = true
		for _, id := range ch.AgentIDs() {
			if _, ok := c.byID[id]; !ok && id != "" {
				errs = append(errs, fmt.Errorf("chain %s: unknown agent %q", ch.ID, id))
			}
		}
	}
	return errors.Join(errs...)
}
