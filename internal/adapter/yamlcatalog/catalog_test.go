package yamlcatalog

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain/agent"
)

func TestLoad_EmbeddedDefaultsAreValid(t *testing.T) {
	c, err := Load("", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := c.Check(); err != nil {
		t.Fatalf("embedded catalog fails Check: %v", err)
	}

	agents, _ := c.GetAllAgents(context.Background())
	if len(agents) < 10 {
		t.Errorf("expected the full default catalog, got %d agents", len(agents))
	}
	chains, _ := c.Chains(context.Background())
	if len(chains) == 0 || chains[0].ID != "content-marketing" {
		t.Errorf("chains must keep file order, got %d chains", len(chains))
	}
	if av, cv := c.Versions(); av == 0 || cv == 0 {
		t.Errorf("versions = %d/%d", av, cv)
	}
}

func TestGetAgent(t *testing.T) {
	c, err := Load("", "")
	if err != nil {
		t.Fatal(err)
	}

	a, err := c.GetAgent(context.Background(), "seo-specialist")
	if err != nil {
		t.Fatalf("GetAgent: %v", err)
	}
	if a.RequiredTier != agent.TierStarter || a.Category != "SEO" {
		t.Errorf("unexpected agent %+v", a)
	}

	_, err = c.GetAgent(context.Background(), "nobody")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetAllAgents_ReturnsCopy(t *testing.T) {
	c, err := Load("", "")
	if err != nil {
		t.Fatal(err)
	}
	agents, _ := c.GetAllAgents(context.Background())
	agents[0].ID = "mutated"
	again, _ := c.GetAllAgents(context.Background())
	if again[0].ID == "mutated" {
		t.Error("GetAllAgents exposed internal storage")
	}
}

func TestParse_DuplicateAgent(t *testing.T) {
	agents := []byte("agents:\n  - {id: a, name: A, category: X, required_tier: gateway}\n  - {id: a, name: B, category: Y, required_tier: gateway}\n")
	if _, err := Parse(agents, []byte("chains: []")); err == nil {
		t.Fatal("expected duplicate id error")
	}
}

func TestCheck_ReportsAllProblems(t *testing.T) {
	agents := []byte(`
agents:
  - {id: a, name: A, category: X, required_tier: platinum}
  - {id: b, name: B, category: Y, required_tier: star}
`)
	chains := []byte(`
chains:
  - id: c1
    steps: [{agent_id: b, order: 1}, {agent_id: ghost, order: 2}]
    keywords: [x]
    required_tier: star
  - id: c2
    steps: [{agent_id: b, order: 1}]
    keywords: [y]
    required_tier: mega
`)
	c, err := Parse(agents, chains)
	if err != nil {
		t.Fatal(err)
	}
	err = c.Check()
	if err == nil {
		t.Fatal("expected problems")
	}
	for _, want := range []string{`agent "a"`, `unknown agent "ghost"`, "chain c2"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("Check() = %v, missing %q", err, want)
		}
	}
}

func TestCheck_InvalidAgentsAreStillServed(t *testing.T) {
	agents := []byte(`
agents:
  - {id: nameless, category: X, required_tier: star}
  - {id: b, name: B, category: Y, required_tier: star}
`)
	c, err := Parse(agents, []byte(`chains: []`))
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Check(); err == nil || !strings.Contains(err.Error(), `agent "nameless"`) {
		t.Fatalf("Check() = %v, want the nameless agent reported", err)
	}

	all, err := c.GetAllAgents(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("served %d agents, want both as loaded", len(all))
	}
	if _, err := c.GetAgent(context.Background(), "nameless"); err != nil {
		t.Errorf("GetAgent(nameless): %v", err)
	}
}

func TestLoad_FromFiles(t *testing.T) {
	dir := t.TempDir()
	ap := filepath.Join(dir, "agents.yaml")
	cp := filepath.Join(dir, "chains.yaml")
	if err := os.WriteFile(ap, []byte("version: 9\nagents:\n  - {id: solo, name: Solo, category: X, required_tier: gateway}\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(cp, []byte("version: 1\nchains: []\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := Load(ap, cp)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if av, _ := c.Versions(); av != 9 {
		t.Errorf("agents version = %d", av)
	}
	if _, err := c.GetAgent(context.Background(), "solo"); err != nil {
		t.Errorf("GetAgent: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/agents.yaml", ""); err == nil {
		t.Fatal("expected error for missing file")
	}
}
