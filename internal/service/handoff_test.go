package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain/agent"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain/event"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain/handoff"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/logger"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/port/telemetry"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/resilience"
)

type fixture struct {
	svc      *HandoffService
	catalog  *mockCatalog
	sink     *mockSink
	history  *mockHistory
	ratings  *mockRatings
	trigger  *mockTrigger
	recorder *mockRecorder
	cache    *memCache
}

func newFixture(cfg HandoffConfig) *fixture {
	f := &fixture{
		catalog:  newMockCatalog(),
		sink:     &mockSink{},
		history:  &mockHistory{},
		ratings:  &mockRatings{rating: &telemetry.Rating{TargetAgentID: "seo-specialist", UserID: "user-1", SessionID: "session-1"}},
		trigger:  &mockTrigger{},
		recorder: newMockRecorder(),
		cache:    newMemCache(),
	}
	f.svc = NewHandoffService(cfg, HandoffDeps{
		Agents:  f.catalog,
		Chains:  f.catalog,
		Sink:    f.sink,
		History: f.history,
		Ratings: f.ratings,
		Rates:   NewSuccessRateCache(newMockRateProvider(nil), f.cache, time.Minute),
		Trigger: f.trigger,
		Metrics: f.recorder,
	})
	return f
}

func TestAnalyzeHandoffIntent_PromoteBlogPost(t *testing.T) {
	f := newFixture(HandoffConfig{})
	hc := testContext("content-creator", "promote this blog post on social media", agent.TierStarter)

	res := f.svc.AnalyzeHandoffIntent(context.Background(), hc)
	if !res.Success {
		t.Fatalf("expected success, got %s: %s", res.Error, res.Message)
	}
	if res.State != handoff.StateRecommended {
		t.Errorf("state = %s, want recommended", res.State)
	}
	if !strings.HasPrefix(res.HandoffID, "handoff_") {
		t.Errorf("handoff id %q lacks prefix", res.HandoffID)
	}
	if res.Recommendation == nil || res.Recommendation.AgentID != "social-media-manager" {
		t.Fatalf("recommendation = %+v, want social-media-manager", res.Recommendation)
	}
	for _, r := range res.Recommendations {
		if r.AgentID == "content-creator" {
			t.Error("source agent must not be recommended")
		}
		if r.AgentID == "analytics-agent" || r.AgentID == "payments-manager" {
			t.Errorf("tier-locked agent %s recommended with confidence %d", r.AgentID, r.Confidence)
		}
	}
	if len(res.Alternatives) > handoff.DefaultMaxAlternatives {
		t.Errorf("got %d alternatives", len(res.Alternatives))
	}
	if res.WorkflowChain != nil {
		t.Errorf("unexpected chain %s", res.WorkflowChain.ID)
	}

	recs := f.sink.ofType(event.TypeHandoffRecommended)
	if len(recs) != 1 {
		t.Fatalf("expected one recommended event, got %d", len(recs))
	}
	ev := recs[0]
	if ev.HandoffID != res.HandoffID || ev.TargetAgentID != "social-media-manager" || ev.UserID != "user-1" {
		t.Errorf("unexpected event %+v", ev)
	}
	if ev.Confidence != res.Recommendation.Confidence {
		t.Errorf("event confidence %d, result %d", ev.Confidence, res.Recommendation.Confidence)
	}
	if f.recorder.analyses != 1 {
		t.Errorf("analyses = %d, want 1", f.recorder.analyses)
	}
}

func TestAnalyzeHandoffIntent_MatchesChain(t *testing.T) {
	f := newFixture(HandoffConfig{})
	hc := testContext("percy", "content marketing for my blog", agent.TierStarter)

	res := f.svc.AnalyzeHandoffIntent(context.Background(), hc)
	if !res.Success {
		t.Fatalf("expected success, got %s: %s", res.Error, res.Message)
	}
	if res.Recommendation.AgentID != "content-creator" {
		t.Errorf("best = %s, want content-creator", res.Recommendation.AgentID)
	}
	if res.WorkflowChain == nil || res.WorkflowChain.ID != "content-marketing" {
		t.Fatalf("chain = %+v, want content-marketing", res.WorkflowChain)
	}
	if f.recorder.chains != 1 {
		t.Errorf("chain metric = %d, want 1", f.recorder.chains)
	}
}

func TestAnalyzeHandoffIntent_ChainNeedsTier(t *testing.T) {
	f := newFixture(HandoffConfig{})
	hc := testContext("percy", "content marketing for my blog", agent.TierGateway)

	res := f.svc.AnalyzeHandoffIntent(context.Background(), hc)
	if !res.Success {
		t.Fatalf("expected success, got %s: %s", res.Error, res.Message)
	}
	if res.WorkflowChain != nil {
		t.Errorf("gateway user must not get chain %s", res.WorkflowChain.ID)
	}
}

func TestAnalyzeHandoffIntent_Failures(t *testing.T) {
	tests := []struct {
		name string
		hc   *handoff.Context
		want handoff.ErrorKind
	}{
		{"unknown source", testContext("ghost", "anything", agent.TierStarter), handoff.KindSourceAgentNotFound},
		{"invalid tier", testContext("content-creator", "anything", "platinum"), handoff.KindInvalidTier},
		{"missing source", testContext("", "anything", agent.TierStarter), handoff.KindInvalidRequest},
		{"nil context", nil, handoff.KindInvalidRequest},
		{"missing user", func() *handoff.Context {
			hc := testContext("content-creator", "anything", agent.TierStarter)
			hc.Session.UserID = ""
			return hc
		}(), handoff.KindInvalidRequest},
		{"bad payload", func() *handoff.Context {
			hc := testContext("content-creator", "anything", agent.TierStarter)
			hc.WorkflowData = handoff.Payload{Kind: handoff.PayloadContent}
			return hc
		}(), handoff.KindInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(HandoffConfig{})
			res := f.svc.AnalyzeHandoffIntent(context.Background(), tt.hc)
			if res.Success {
				t.Fatal("expected failure")
			}
			if res.Error != tt.want {
				t.Errorf("error = %s, want %s (%s)", res.Error, tt.want, res.Message)
			}
			if res.State != handoff.StateRejected {
				t.Errorf("state = %s, want rejected", res.State)
			}
			if res.HandoffID == "" {
				t.Error("failed analysis should still carry a handoff id")
			}
			if len(f.sink.events) != 0 {
				t.Errorf("unexpected events %+v", f.sink.events)
			}
		})
	}
}

func TestAnalyzeHandoffIntent_NoCandidate(t *testing.T) {
	f := newFixture(HandoffConfig{})
	f.catalog.agents = []agent.Agent{
		{ID: "writer", Name: "Writer", Category: "Content", RequiredTier: agent.TierGateway},
		{ID: "editor", Name: "Editor", Category: "Content", RequiredTier: agent.TierAllStar},
	}
	hc := testContext("writer", "polish this", agent.TierGateway)

	res := f.svc.AnalyzeHandoffIntent(context.Background(), hc)
	if res.Success || res.Error != handoff.KindNoCandidate {
		t.Fatalf("expected NoCandidate, got success=%v error=%s", res.Success, res.Error)
	}
	if res.Recommendation != nil {
		t.Errorf("unexpected recommendation %+v", res.Recommendation)
	}
	if got := f.sink.ofType(event.TypeHandoffNoCandidate); len(got) != 1 || got[0].HandoffID != res.HandoffID {
		t.Errorf("expected one no_candidate event for %s, got %+v", res.HandoffID, got)
	}
	if f.recorder.noCandidates != 1 {
		t.Errorf("no candidate metric = %d", f.recorder.noCandidates)
	}
}

func TestAnalyzeHandoffIntent_ReportsExclusions(t *testing.T) {
	f := newFixture(HandoffConfig{})
	f.catalog.agents = append(f.catalog.agents, agent.Agent{
		ID: "broken", Name: "Broken", Category: "Misc", RequiredTier: "platinum",
	})
	hc := testContext("content-creator", "promote this blog post on social media", agent.TierStarter)

	res := f.svc.AnalyzeHandoffIntent(context.Background(), hc)
	if !res.Success {
		t.Fatalf("a bad catalog entry must not fail the analysis: %s", res.Message)
	}
	if len(res.Exclusions) != 1 || res.Exclusions[0].AgentID != "broken" {
		t.Errorf("exclusions = %+v", res.Exclusions)
	}
}

func TestAnalyzeHandoffIntent_FreshIDs(t *testing.T) {
	f := newFixture(HandoffConfig{})
	hc := testContext("content-creator", "promote this blog post on social media", agent.TierStarter)

	a := f.svc.AnalyzeHandoffIntent(context.Background(), hc)
	b := f.svc.AnalyzeHandoffIntent(context.Background(), hc)
	if a.HandoffID == b.HandoffID {
		t.Errorf("identical requests got the same handoff id %s", a.HandoffID)
	}
	if a.Recommendation.AgentID != b.Recommendation.AgentID || a.Recommendation.Confidence != b.Recommendation.Confidence {
		t.Error("identical requests should rank identically")
	}
}

func TestAnalyzeHandoffIntent_TargetNotQualified(t *testing.T) {
	f := newFixture(HandoffConfig{})
	hc := testContext("content-creator", "promote this blog post on social media", agent.TierStarter)
	hc.TargetAgentID = "payments-manager"

	res := f.svc.AnalyzeHandoffIntent(context.Background(), hc)
	if !res.Success {
		t.Fatalf("expected success, got %s", res.Error)
	}
	if res.Recommendation.AgentID != "social-media-manager" {
		t.Errorf("best = %s", res.Recommendation.AgentID)
	}
	if !strings.Contains(res.Message, "payments-manager") {
		t.Errorf("message %q should name the requested agent", res.Message)
	}
}

func TestAnalyzeHandoffIntent_QualifiedTargetKeepsRanking(t *testing.T) {
	f := newFixture(HandoffConfig{})
	hc := testContext("content-creator", "promote this blog post on social media", agent.TierStarter)
	plain := f.svc.AnalyzeHandoffIntent(context.Background(), hc)

	hc.TargetAgentID = "agentX"
	res := f.svc.AnalyzeHandoffIntent(context.Background(), hc)
	if !res.Success {
		t.Fatalf("expected success, got %s", res.Error)
	}
	if res.Recommendation.AgentID != "social-media-manager" {
		t.Errorf("best = %s, want social-media-manager", res.Recommendation.AgentID)
	}
	if res.RequestedAgent == nil || res.RequestedAgent.AgentID != "agentX" {
		t.Fatalf("requested agent = %v, want agentX", res.RequestedAgent)
	}
	if len(res.Recommendations) != len(plain.Recommendations) {
		t.Fatalf("recommendations = %d, want %d", len(res.Recommendations), len(plain.Recommendations))
	}
	for i := range res.Recommendations {
		if res.Recommendations[i].AgentID != plain.Recommendations[i].AgentID {
			t.Errorf("recommendation %d = %s, want %s", i, res.Recommendations[i].AgentID, plain.Recommendations[i].AgentID)
		}
	}
	if !strings.Contains(res.Message, "agentX") {
		t.Errorf("message %q should name the requested agent", res.Message)
	}
}

func TestAnalyzeHandoffIntent_TargetIsBest(t *testing.T) {
	f := newFixture(HandoffConfig{})
	hc := testContext("content-creator", "promote this blog post on social media", agent.TierStarter)
	hc.TargetAgentID = "social-media-manager"

	res := f.svc.AnalyzeHandoffIntent(context.Background(), hc)
	if !res.Success {
		t.Fatalf("expected success, got %s", res.Error)
	}
	if res.RequestedAgent == nil || res.RequestedAgent.AgentID != res.Recommendation.AgentID {
		t.Errorf("requested agent = %v, want the best match", res.RequestedAgent)
	}
	if res.Message != "" {
		t.Errorf("unexpected message %q", res.Message)
	}
}

func TestAnalyzeHandoffIntent_TelemetryFailureIsSwallowed(t *testing.T) {
	for _, sink := range []*mockSink{{err: errBoom}, {panic: true}} {
		f := newFixture(HandoffConfig{})
		f.svc.telemetry = newTelemetryRecorder(sink, f.recorder)
		hc := testContext("content-creator", "promote this blog post on social media", agent.TierStarter)

		res := f.svc.AnalyzeHandoffIntent(context.Background(), hc)
		if !res.Success {
			t.Fatalf("telemetry failure leaked into result: %s %s", res.Error, res.Message)
		}
		if f.recorder.telemetryFailures != 1 {
			t.Errorf("telemetry failures = %d, want 1", f.recorder.telemetryFailures)
		}
	}
}

func TestAnalyzeHandoffIntent_UsesSuccessRates(t *testing.T) {
	f := newFixture(HandoffConfig{})
	provider := newMockRateProvider(map[string]float64{"agentX": 100})
	f.svc.deps.Rates = NewSuccessRateCache(provider, f.cache, time.Minute)
	hc := testContext("content-creator", "promote this blog post on social media", agent.TierStarter)

	res := f.svc.AnalyzeHandoffIntent(context.Background(), hc)
	if !res.Success {
		t.Fatalf("expected success, got %s", res.Error)
	}
	var x *handoff.Recommendation
	for i := range res.Recommendations {
		if res.Recommendations[i].AgentID == "agentX" {
			x = &res.Recommendations[i]
		}
	}
	if x == nil {
		t.Fatal("agentX missing from recommendations")
	}
	if !strings.Contains(x.Reasoning, "100% historical success") {
		t.Errorf("reasoning %q should use the known rate", x.Reasoning)
	}
	if provider.callsFor("agentX") != 1 {
		t.Errorf("provider calls = %d", provider.callsFor("agentX"))
	}
}

func TestExecuteHandoff_Success(t *testing.T) {
	f := newFixture(HandoffConfig{})
	hc := testContext("content-creator", "ship it", agent.TierStarter)
	payload := handoff.ContentData(handoff.ContentPayload{Title: "Launch", Body: "..."})
	ctx := logger.WithRequestID(context.Background(), "req-1")

	res := f.svc.ExecuteHandoff(ctx, "h1", "seo-specialist", hc, payload)
	if !res.Success {
		t.Fatalf("expected success, got %s: %s", res.Error, res.Message)
	}
	if res.ExecutionID != "exec_h1_seo-specialist" {
		t.Errorf("execution id = %s", res.ExecutionID)
	}
	if res.State != handoff.StateExecuted {
		t.Errorf("state = %s, want executed", res.State)
	}

	if f.trigger.calls() != 1 {
		t.Fatalf("trigger calls = %d, want 1", f.trigger.calls())
	}
	req := f.trigger.requests[0]
	if req.ExecutionID != res.ExecutionID || req.HandoffID != "h1" || req.SourceAgentID != "content-creator" ||
		req.TargetAgentID != "seo-specialist" || req.UserID != "user-1" || req.SessionID != "session-1" ||
		req.Intent != "ship it" || req.RequestID != "req-1" {
		t.Errorf("unexpected trigger request %+v", req)
	}
	if !strings.Contains(string(req.Payload), `"title":"Launch"`) {
		t.Errorf("payload = %s", req.Payload)
	}
	if err := req.Validate(); err != nil {
		t.Errorf("trigger request invalid: %v", err)
	}

	got := f.sink.ofType(event.TypeHandoffExecuted)
	if len(got) != 1 {
		t.Fatalf("expected one executed event, got %d", len(got))
	}
	if got[0].ExecutionID != res.ExecutionID || got[0].TargetAgentID != "seo-specialist" || got[0].RequestID != "req-1" {
		t.Errorf("unexpected event %+v", got[0])
	}
	if f.recorder.executions[""] != 1 {
		t.Errorf("execution metric = %v", f.recorder.executions)
	}
}

func TestExecuteHandoff_TelemetryFailureStillSucceeds(t *testing.T) {
	f := newFixture(HandoffConfig{})
	f.svc.telemetry = newTelemetryRecorder(&mockSink{err: errBoom}, f.recorder)
	hc := testContext("content-creator", "", agent.TierGateway)

	res := f.svc.ExecuteHandoff(context.Background(), "h1", "agentX", hc, handoff.Payload{})
	if !res.Success {
		t.Fatalf("expected success, got %s: %s", res.Error, res.Message)
	}
	if res.ExecutionID != "exec_h1_agentX" {
		t.Errorf("execution id = %s", res.ExecutionID)
	}
	if f.recorder.telemetryFailures != 1 {
		t.Errorf("telemetry failures = %d", f.recorder.telemetryFailures)
	}
}

func TestExecuteHandoff_Guards(t *testing.T) {
	tests := []struct {
		name      string
		handoffID string
		target    string
		mutate    func(hc *handoff.Context)
		payload   handoff.Payload
		want      handoff.ErrorKind
	}{
		{"self handoff", "h1", "content-creator", nil, handoff.Payload{}, handoff.KindHandoffRejected},
		{"visited target", "h1", "seo-specialist", func(hc *handoff.Context) {
			hc.Session.PreviousAgents = []string{"seo-specialist"}
		}, handoff.Payload{}, handoff.KindHandoffRejected},
		{"session limit", "h1", "seo-specialist", func(hc *handoff.Context) {
			hc.Session.HandoffCount = 5
		}, handoff.Payload{}, handoff.KindHandoffRejected},
		{"tier too low", "h1", "analytics-agent", nil, handoff.Payload{}, handoff.KindHandoffRejected},
		{"unknown target", "h1", "ghost", nil, handoff.Payload{}, handoff.KindHandoffRejected},
		{"unknown source", "h1", "seo-specialist", func(hc *handoff.Context) {
			hc.SourceAgentID = "ghost"
		}, handoff.Payload{}, handoff.KindSourceAgentNotFound},
		{"invalid tier", "h1", "seo-specialist", func(hc *handoff.Context) {
			hc.Session.UserTier = "platinum"
		}, handoff.Payload{}, handoff.KindInvalidTier},
		{"missing handoff id", "", "seo-specialist", nil, handoff.Payload{}, handoff.KindInvalidRequest},
		{"missing target", "h1", "", nil, handoff.Payload{}, handoff.KindInvalidRequest},
		{"mismatched payload", "h1", "seo-specialist", nil, handoff.Payload{Kind: handoff.PayloadBrand}, handoff.KindInvalidRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(HandoffConfig{MaxSessionHandoffs: 5})
			hc := testContext("content-creator", "next step", agent.TierStarter)
			if tt.mutate != nil {
				tt.mutate(hc)
			}

			res := f.svc.ExecuteHandoff(context.Background(), tt.handoffID, tt.target, hc, tt.payload)
			if res.Success {
				t.Fatal("expected failure")
			}
			if res.Error != tt.want {
				t.Errorf("error = %s, want %s (%s)", res.Error, tt.want, res.Message)
			}
			if res.State != handoff.StateRejected {
				t.Errorf("state = %s, want rejected", res.State)
			}
			if f.trigger.calls() != 0 {
				t.Error("trigger must not fire for a rejected handoff")
			}
			if len(f.sink.events) != 0 {
				t.Errorf("unexpected events %+v", f.sink.events)
			}
		})
	}
}

func TestExecuteHandoff_TriggerFailure(t *testing.T) {
	f := newFixture(HandoffConfig{})
	f.trigger.err = errBoom
	hc := testContext("content-creator", "next step", agent.TierStarter)

	res := f.svc.ExecuteHandoff(context.Background(), "h1", "seo-specialist", hc, handoff.Payload{})
	if res.Success || res.Error != handoff.KindExecutionFailure {
		t.Fatalf("expected ExecutionFailure, got success=%v error=%s", res.Success, res.Error)
	}
	if res.ExecutionID != "" {
		t.Errorf("failed execution returned id %s", res.ExecutionID)
	}
	if res.State != handoff.StateRejected {
		t.Errorf("state = %s", res.State)
	}
	failed := f.sink.ofType(event.TypeHandoffExecutionFailed)
	if len(failed) != 1 || failed[0].ExecutionID != "exec_h1_seo-specialist" {
		t.Errorf("expected one execution_failed event, got %+v", failed)
	}
	if len(f.sink.ofType(event.TypeHandoffExecuted)) != 0 {
		t.Error("failed execution recorded as executed")
	}
	if f.recorder.executions[string(handoff.KindExecutionFailure)] != 1 {
		t.Errorf("execution metric = %v", f.recorder.executions)
	}
}

func TestExecuteHandoff_OpenBreakerRejectsWithoutCalling(t *testing.T) {
	f := newFixture(HandoffConfig{})
	f.svc.deps.Breaker = resilience.NewBreaker("test", 1, time.Hour)
	f.trigger.err = errBoom
	hc := testContext("content-creator", "next step", agent.TierStarter)

	first := f.svc.ExecuteHandoff(context.Background(), "h1", "seo-specialist", hc, handoff.Payload{})
	second := f.svc.ExecuteHandoff(context.Background(), "h2", "seo-specialist", hc, handoff.Payload{})

	for _, res := range []handoff.ExecutionResult{first, second} {
		if res.Error != handoff.KindExecutionFailure {
			t.Errorf("%s: error = %s, want ExecutionFailure", res.HandoffID, res.Error)
		}
	}
	if !strings.Contains(second.Message, resilience.ErrCircuitOpen.Error()) {
		t.Errorf("second message %q should mention the open circuit", second.Message)
	}
	if f.trigger.calls() != 1 {
		t.Errorf("trigger calls = %d, want 1", f.trigger.calls())
	}
}

func TestExecuteHandoff_WithoutTrigger(t *testing.T) {
	f := newFixture(HandoffConfig{})
	f.svc.deps.Trigger = nil
	hc := testContext("content-creator", "next step", agent.TierStarter)

	res := f.svc.ExecuteHandoff(context.Background(), "h1", "seo-specialist", hc, handoff.Payload{})
	if !res.Success {
		t.Fatalf("expected success, got %s: %s", res.Error, res.Message)
	}
	if len(f.sink.ofType(event.TypeHandoffExecuted)) != 1 {
		t.Error("execution should still be recorded")
	}
}

func TestGetHandoffHistory_Limits(t *testing.T) {
	tests := []struct {
		name  string
		limit int
		want  int
	}{
		{"default", 0, 10},
		{"negative", -3, 10},
		{"explicit", 25, 25},
		{"clamped", 500, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(HandoffConfig{})
			f.history.events = []event.HandoffEvent{{ID: "e1", HandoffID: "h1"}}

			got, err := f.svc.GetHandoffHistory(context.Background(), "user-1", "session-1", tt.limit)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != 1 {
				t.Errorf("got %d events", len(got))
			}
			if f.history.filter.Limit != tt.want {
				t.Errorf("limit = %d, want %d", f.history.filter.Limit, tt.want)
			}
			if f.history.filter.UserID != "user-1" || f.history.filter.SessionID != "session-1" {
				t.Errorf("filter = %+v", f.history.filter)
			}
		})
	}
}

func TestGetHandoffHistory_Errors(t *testing.T) {
	f := newFixture(HandoffConfig{})
	if _, err := f.svc.GetHandoffHistory(context.Background(), "", "", 0); !errors.Is(err, domain.ErrValidation) {
		t.Errorf("missing user: got %v", err)
	}

	f.history.err = errBoom
	if _, err := f.svc.GetHandoffHistory(context.Background(), "user-1", "", 0); !errors.Is(err, errBoom) {
		t.Errorf("store error not wrapped: %v", err)
	}
}

func TestGetHandoffHistory_NoStore(t *testing.T) {
	f := newFixture(HandoffConfig{})
	f.svc.deps.History = nil

	got, err := f.svc.GetHandoffHistory(context.Background(), "user-1", "", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected empty slice, got %#v", got)
	}
}

func TestRateHandoff(t *testing.T) {
	f := newFixture(HandoffConfig{})
	f.cache.data[successRateKeyPrefix+"seo-specialist"] = []byte("75")

	res := f.svc.RateHandoff(context.Background(), "h1", 5, "great")
	if !res.Success {
		t.Fatalf("expected success, got %s: %s", res.Error, res.Message)
	}
	if f.cache.has(successRateKeyPrefix + "seo-specialist") {
		t.Error("cached success rate should be invalidated")
	}
	rated := f.sink.ofType(event.TypeHandoffRated)
	if len(rated) != 1 {
		t.Fatalf("expected one rated event, got %d", len(rated))
	}
	ev := rated[0]
	if ev.HandoffID != "h1" || ev.Rating != 5 || ev.Feedback != "great" || ev.TargetAgentID != "seo-specialist" || ev.UserID != "user-1" {
		t.Errorf("unexpected event %+v", ev)
	}
}

func TestRateHandoff_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		handoffID string
		rating    int
	}{
		{"zero", "h1", 0},
		{"too high", "h1", 6},
		{"negative", "h1", -1},
		{"missing id", "", 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(HandoffConfig{})
			res := f.svc.RateHandoff(context.Background(), tt.handoffID, tt.rating, "")
			if res.Success || res.Error != handoff.KindInvalidRequest {
				t.Errorf("got success=%v error=%s", res.Success, res.Error)
			}
			if f.ratings.calls != 0 {
				t.Error("store must not be called for invalid input")
			}
		})
	}
}

func TestRateHandoff_NeverExecuted(t *testing.T) {
	f := newFixture(HandoffConfig{})
	f.ratings.err = domain.ErrNotFound

	res := f.svc.RateHandoff(context.Background(), "h-missing", 4, "")
	if res.Success || res.Error != handoff.KindInvalidRequest {
		t.Fatalf("got success=%v error=%s", res.Success, res.Error)
	}
	if !strings.Contains(res.Message, "h-missing") {
		t.Errorf("message %q should name the handoff", res.Message)
	}
	if len(f.sink.events) != 0 {
		t.Error("failed rating should not be recorded")
	}
}

func TestRateHandoff_StoreFailure(t *testing.T) {
	f := newFixture(HandoffConfig{})
	f.ratings.err = errBoom

	res := f.svc.RateHandoff(context.Background(), "h1", 4, "")
	if res.Success || res.Error != handoff.KindInternal {
		t.Errorf("got success=%v error=%s", res.Success, res.Error)
	}
}
