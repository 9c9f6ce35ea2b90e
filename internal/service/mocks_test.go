package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain/agent"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain/event"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain/handoff"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/port/messagequeue"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/port/telemetry"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/port/workflow"
)

func testAgents() []agent.Agent {
	return []agent.Agent{
		{
			ID: "percy", Name: "Percy", SuperheroName: "Percy the Cosmic Concierge",
			Category: "Concierge", Description: "Greets users and routes them to the right agent",
			Capabilities: []string{"onboarding"}, RequiredTier: agent.TierGateway,
		},
		{
			ID: "content-creator", Name: "Content Creator", SuperheroName: "ContentCarltig",
			Category: "Content", Description: "Writes blog articles and long-form copy",
			Capabilities: []string{"blog", "copywriting"}, RequiredTier: agent.TierGateway,
		},
		{
			ID: "seo-specialist", Name: "SEO Specialist", SuperheroName: "SEO Sage",
			Category: "SEO", Description: "Optimises content for search ranking and keyword research",
			Capabilities: []string{"keywords", "seo"}, RequiredTier: agent.TierStarter,
		},
		{
			ID: "social-media-manager", Name: "Social Media Manager", SuperheroName: "SocialNino",
			Category: "Social Media", Description: "Schedules and promotes posts across social media channels",
			Capabilities: []string{"social media", "scheduling"}, RequiredTier: agent.TierStarter,
		},
		{
			ID: "analytics-agent", Name: "Analytics Agent", SuperheroName: "The Don of Data",
			Category: "Analytics", Description: "Reports on campaign performance metrics",
			Capabilities: []string{"reporting", "metrics"}, RequiredTier: agent.TierStar,
		},
		{
			ID: "payments-manager", Name: "Payments Manager",
			Category: "Payments", Description: "Handles invoices and checkout",
			Capabilities: []string{"invoicing"}, RequiredTier: agent.TierAllStar,
		},
		{
			ID: "agentX", Name: "Agent X",
			Category: "Operations", Description: "Runs internal operations tasks",
			RequiredTier: agent.TierGateway,
		},
	}
}

func testChains() []handoff.WorkflowChain {
	return []handoff.WorkflowChain{
		{
			ID:   "content-marketing",
			Name: "Content Marketing Pipeline",
			Steps: []handoff.ChainStep{
				{AgentID: "content-creator", Order: 1},
				{AgentID: "seo-specialist", Order: 2},
				{AgentID: "social-media-manager", Order: 3},
			},
			Keywords:     []string{"content", "marketing"},
			RequiredTier: agent.TierStarter,
		},
	}
}

func testContext(source, intent string, tier agent.Tier) *handoff.Context {
	return &handoff.Context{
		SourceAgentID: source,
		UserIntent:    intent,
		Session: handoff.SessionContext{
			UserID:    "user-1",
			SessionID: "session-1",
			UserTier:  tier,
		},
	}
}

// --- catalog ---

type mockCatalog struct {
	agents []agent.Agent
	chains []handoff.WorkflowChain
	err    error
}

func newMockCatalog() *mockCatalog {
	return &mockCatalog{agents: testAgents(), chains: testChains()}
}

func (m *mockCatalog) GetAllAgents(_ context.Context) ([]agent.Agent, error) {
	if m.err != nil {
		return nil, m.err
	}
	return append([]agent.Agent(nil), m.agents...), nil
}

func (m *mockCatalog) GetAgent(_ context.Context, id string) (*agent.Agent, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.agents {
		if m.agents[i].ID == id {
			a := m.agents[i]
			return &a, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockCatalog) Chains(_ context.Context) ([]handoff.WorkflowChain, error) {
	return m.chains, nil
}

// --- telemetry ---

type mockSink struct {
	mu     sync.Mutex
	events []*event.HandoffEvent
	err    error
	panic  bool
}

func (m *mockSink) Track(_ context.Context, ev *event.HandoffEvent) error {
	if m.panic {
		panic("sink exploded")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return m.err
}

func (m *mockSink) ofType(typ event.Type) []*event.HandoffEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*event.HandoffEvent
	for _, ev := range m.events {
		if ev.Type == typ {
			out = append(out, ev)
		}
	}
	return out
}

type mockHistory struct {
	filter telemetry.HistoryFilter
	events []event.HandoffEvent
	err    error
}

func (m *mockHistory) ListHandoffs(_ context.Context, f telemetry.HistoryFilter) ([]event.HandoffEvent, error) {
	m.filter = f
	return m.events, m.err
}

type mockRatings struct {
	calls  int
	rating *telemetry.Rating
	err    error
}

func (m *mockRatings) RateHandoff(_ context.Context, handoffID string, rating int, feedback string) (*telemetry.Rating, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	r := *m.rating
	r.HandoffID = handoffID
	r.Rating = rating
	r.Feedback = feedback
	return &r, nil
}

// --- workflow ---

type mockTrigger struct {
	mu       sync.Mutex
	requests []workflow.Request
	err      error
}

func (m *mockTrigger) TriggerWorkflow(_ context.Context, agentID string, req workflow.Request) (*workflow.Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return &workflow.Handle{ExecutionID: req.ExecutionID, Backend: "mock", Reference: agentID}, nil
}

func (m *mockTrigger) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// --- metrics ---

type mockRecorder struct {
	mu                sync.Mutex
	analyses          int
	chains            int
	noCandidates      int
	executions        map[string]int
	telemetryFailures int
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{executions: make(map[string]int)}
}

func (m *mockRecorder) Analysis(_ context.Context, _ string, _ int, chainMatched bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.analyses++
	if chainMatched {
		m.chains++
	}
}

func (m *mockRecorder) NoCandidate(context.Context, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.noCandidates++
}

func (m *mockRecorder) Execution(_ context.Context, _ string, kind string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.executions[kind]++
}

func (m *mockRecorder) TelemetryFailure(context.Context, string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.telemetryFailures++
}

type mockRateProvider struct {
	mu    sync.Mutex
	rates map[string]float64
	err   error
	calls map[string]int
}

func newMockRateProvider(rates map[string]float64) *mockRateProvider {
	return &mockRateProvider{rates: rates, calls: make(map[string]int)}
}

func (m *mockRateProvider) SuccessRate(_ context.Context, agentID string) (float64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[agentID]++
	if m.err != nil {
		return 0, false, m.err
	}
	rate, ok := m.rates[agentID]
	return rate, ok, nil
}

func (m *mockRateProvider) callsFor(agentID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[agentID]
}

// --- cache ---

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}

// --- queue ---

type mockQueue struct {
	subject string
	handler messagequeue.Handler
	err     error
}

func (m *mockQueue) Publish(context.Context, string, []byte) error { return nil }

func (m *mockQueue) Subscribe(_ context.Context, subject string, h messagequeue.Handler) (func(), error) {
	if m.err != nil {
		return nil, m.err
	}
	m.subject = subject
	m.handler = h
	return func() {}, nil
}

func (m *mockQueue) Drain() error      { return nil }
func (m *mockQueue) Close() error      { return nil }
func (m *mockQueue) IsConnected() bool { return true }

var errBoom = errors.New("boom")
