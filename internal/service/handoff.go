package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"

	"github.com/SKRBLAI/skrblai-live-sub001/internal/adapter/otel"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain/agent"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain/event"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain/handoff"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/logger"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/port/catalog"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/port/telemetry"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/port/workflow"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/resilience"
)

// HandoffConfig tunes ranking and the execution guards.
type HandoffConfig struct {
	Ranker              handoff.RankerConfig
	DefaultSuccessRate  float64
	MaxSessionHandoffs  int
	HistoryDefaultLimit int
	HistoryMaxLimit     int
}

// HandoffDeps are the collaborators of HandoffService. Agents is required;
// every other dependency is optional.
type HandoffDeps struct {
	Agents  catalog.Agents
	Chains  catalog.Chains
	Sink    telemetry.Sink
	History telemetry.History
	Ratings telemetry.Ratings
	Rates   *SuccessRateCache
	Trigger workflow.Trigger
	Breaker *resilience.Breaker
	Matcher handoff.CapabilityMatcher
	Metrics Recorder
}

// HandoffService analyses, executes and records cross-agent handoffs.
// It keeps no state between calls.
type HandoffService struct {
	cfg       HandoffConfig
	deps      HandoffDeps
	ranker    *handoff.Ranker
	telemetry *telemetryRecorder
	now       func() time.Time
	newID     func() string
}

// NewHandoffService creates a new HandoffService.
func NewHandoffService(cfg HandoffConfig, deps HandoffDeps) *HandoffService {
	if cfg.HistoryDefaultLimit <= 0 {
		cfg.HistoryDefaultLimit = 10
	}
	if cfg.HistoryMaxLimit <= 0 {
		cfg.HistoryMaxLimit = 100
	}
	if deps.Metrics == nil {
		deps.Metrics = nopRecorder{}
	}
	return &HandoffService{
		cfg:       cfg,
		deps:      deps,
		ranker:    handoff.NewRanker(handoff.NewScorer(deps.Matcher, cfg.DefaultSuccessRate), cfg.Ranker),
		telemetry: newTelemetryRecorder(deps.Sink, deps.Metrics),
		now:       time.Now,
		newID:     func() string { return "handoff_" + uuid.NewString() },
	}
}

// AnalyzeHandoffIntent ranks the agents that could continue the work
// described by hc and, when one fits, suggests a workflow chain. Every call
// gets a fresh handoff id.
func (s *HandoffService) AnalyzeHandoffIntent(ctx context.Context, hc *handoff.Context) handoff.Result {
	if hc == nil {
		hc = &handoff.Context{}
	}
	handoffID := s.newID()
	ctx = logger.WithHandoffID(ctx, handoffID)
	ctx, span := otel.StartAnalyzeSpan(ctx, handoffID, hc.SourceAgentID)
	defer span.End()

	state := handoff.StateAnalyzing
	res := handoff.Result{HandoffID: handoffID, State: state}
	fail := func(err error) handoff.Result {
		advance(ctx, &state, handoff.StateRejected)
		res.State = state
		res.Error = handoff.KindOf(err)
		res.Message = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, string(res.Error))
		return res
	}

	source, err := s.checkContext(ctx, hc)
	if err != nil {
		return fail(err)
	}

	agents, err := s.deps.Agents.GetAllAgents(ctx)
	if err != nil {
		return fail(fmt.Errorf("load agent catalog: %w", err))
	}

	ranking, err := s.ranker.Rank(hc, source, agents, s.prefetchRates(ctx, agents))
	res.Exclusions = ranking.Exclusions
	for _, ex := range ranking.Exclusions {
		slog.WarnContext(ctx, "candidate excluded", "agent_id", ex.AgentID, "reason", ex.Reason)
	}
	if err != nil {
		if errors.Is(err, handoff.ErrNoCandidate) {
			s.deps.Metrics.NoCandidate(ctx, source.ID)
			s.telemetry.record(ctx, s.newEvent(ctx, event.TypeHandoffNoCandidate, handoffID, hc))
		}
		return fail(err)
	}

	best := ranking.Best()
	res.Recommendation = best
	res.Alternatives = ranking.Alternatives()
	res.Recommendations = ranking.Recommendations
	res.WorkflowChain = s.matchChain(ctx, hc, ranking.AgentIDs())
	res.RequestedAgent = ranking.Target
	switch {
	case hc.TargetAgentID == "" || hc.TargetAgentID == best.AgentID:
	case ranking.Target == nil:
		res.Message = fmt.Sprintf("requested agent %s did not qualify; showing the best match instead", hc.TargetAgentID)
	default:
		res.Message = fmt.Sprintf("requested agent %s qualified with confidence %d; best match is %s", hc.TargetAgentID, ranking.Target.Confidence, best.AgentID)
	}

	advance(ctx, &state, handoff.StateRecommended)
	res.State = state
	res.Success = true

	s.deps.Metrics.Analysis(ctx, source.ID, best.Confidence, res.WorkflowChain != nil)

	ev := s.newEvent(ctx, event.TypeHandoffRecommended, handoffID, hc)
	ev.TargetAgentID = best.AgentID
	ev.Confidence = best.Confidence
	ev.HandoffType = string(best.HandoffType)
	s.telemetry.record(ctx, ev)

	slog.InfoContext(ctx, "handoff recommended",
		"source", source.ID,
		"target", best.AgentID,
		"confidence", best.Confidence,
		"candidates", len(ranking.Recommendations),
		"chain", chainID(res.WorkflowChain),
	)
	return res
}

// ExecuteHandoff hands the work over to targetAgentID: it checks the
// guards, fires the target's workflow and records the execution. It does not
// wait for the target agent and never retries.
func (s *HandoffService) ExecuteHandoff(ctx context.Context, handoffID, targetAgentID string, hc *handoff.Context, payload handoff.Payload) handoff.ExecutionResult {
	if hc == nil {
		hc = &handoff.Context{}
	}
	ctx = logger.WithHandoffID(ctx, handoffID)
	ctx, span := otel.StartExecuteSpan(ctx, handoffID, targetAgentID)
	defer span.End()

	state := handoff.StateRecommended
	res := handoff.ExecutionResult{HandoffID: handoffID, TargetAgentID: targetAgentID, State: state}
	fail := func(err error) handoff.ExecutionResult {
		advance(ctx, &state, handoff.StateRejected)
		res.State = state
		res.Error = handoff.KindOf(err)
		res.Message = err.Error()
		s.deps.Metrics.Execution(ctx, targetAgentID, string(res.Error))
		span.RecordError(err)
		span.SetStatus(codes.Error, string(res.Error))
		slog.WarnContext(ctx, "handoff not executed", "target", targetAgentID, "error", err)
		return res
	}

	if handoffID == "" || targetAgentID == "" {
		return fail(fmt.Errorf("%w: handoff_id and target_agent_id are required", domain.ErrValidation))
	}
	if err := payload.Validate(); err != nil {
		return fail(err)
	}
	source, err := s.checkContext(ctx, hc)
	if err != nil {
		return fail(err)
	}
	target, err := s.deps.Agents.GetAgent(ctx, targetAgentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fail(fmt.Errorf("%w: target agent %s not found", handoff.ErrRejected, targetAgentID))
		}
		return fail(fmt.Errorf("load target agent: %w", err))
	}
	if err := s.checkGuards(hc, source, target); err != nil {
		return fail(err)
	}

	data, err := payload.Data()
	if err != nil {
		return fail(err)
	}
	executionID := handoff.ExecutionID(handoffID, targetAgentID)
	advance(ctx, &state, handoff.StateExecuting)

	if err := s.trigger(ctx, workflow.Request{
		ExecutionID:   executionID,
		HandoffID:     handoffID,
		SourceAgentID: source.ID,
		TargetAgentID: target.ID,
		UserID:        hc.Session.UserID,
		SessionID:     hc.Session.SessionID,
		Intent:        hc.UserIntent,
		Payload:       data,
		RequestID:     logger.RequestID(ctx),
		RequestedAt:   s.now().UTC(),
	}); err != nil {
		ev := s.newEvent(ctx, event.TypeHandoffExecutionFailed, handoffID, hc)
		ev.TargetAgentID = target.ID
		ev.ExecutionID = executionID
		s.telemetry.record(ctx, ev)
		return fail(err)
	}

	advance(ctx, &state, handoff.StateExecuted)
	res.State = state
	res.Success = true
	res.ExecutionID = executionID
	s.deps.Metrics.Execution(ctx, target.ID, "")

	ev := s.newEvent(ctx, event.TypeHandoffExecuted, handoffID, hc)
	ev.TargetAgentID = target.ID
	ev.ExecutionID = executionID
	ev.Payload = data
	s.telemetry.record(ctx, ev)

	slog.InfoContext(ctx, "handoff executed", "source", source.ID, "target", target.ID, "execution_id", executionID)
	return res
}

// GetHandoffHistory returns the user's handoff events newest first. limit <= 0
// selects the default; larger values are clamped. Without a history store the
// result is empty.
func (s *HandoffService) GetHandoffHistory(ctx context.Context, userID, sessionID string, limit int) ([]event.HandoffEvent, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", domain.ErrValidation)
	}
	switch {
	case limit <= 0:
		limit = s.cfg.HistoryDefaultLimit
	case limit > s.cfg.HistoryMaxLimit:
		limit = s.cfg.HistoryMaxLimit
	}
	if s.deps.History == nil {
		return []event.HandoffEvent{}, nil
	}
	events, err := s.deps.History.ListHandoffs(ctx, telemetry.HistoryFilter{
		UserID:    userID,
		SessionID: sessionID,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("handoff history: %w", err)
	}
	return events, nil
}

// RateHandoff stores a 1-5 rating for an executed handoff and refreshes the
// target agent's success rate.
func (s *HandoffService) RateHandoff(ctx context.Context, handoffID string, rating int, feedback string) handoff.OperationResult {
	ctx = logger.WithHandoffID(ctx, handoffID)
	fail := func(err error) handoff.OperationResult {
		return handoff.OperationResult{Error: handoff.KindOf(err), Message: err.Error()}
	}

	if handoffID == "" {
		return fail(fmt.Errorf("%w: handoff_id is required", domain.ErrValidation))
	}
	if rating < 1 || rating > 5 {
		return fail(fmt.Errorf("%w: rating must be between 1 and 5", domain.ErrValidation))
	}

	ev := &event.HandoffEvent{
		ID:        uuid.NewString(),
		Type:      event.TypeHandoffRated,
		HandoffID: handoffID,
		Rating:    rating,
		Feedback:  feedback,
		RequestID: logger.RequestID(ctx),
		CreatedAt: s.now().UTC(),
	}

	if s.deps.Ratings != nil {
		rated, err := s.deps.Ratings.RateHandoff(ctx, handoffID, rating, feedback)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fail(fmt.Errorf("%w: handoff %s was never executed", domain.ErrValidation, handoffID))
			}
			return fail(err)
		}
		ev.UserID = rated.UserID
		ev.SessionID = rated.SessionID
		ev.TargetAgentID = rated.TargetAgentID
		if s.deps.Rates != nil {
			if err := s.deps.Rates.Invalidate(ctx, rated.TargetAgentID); err != nil {
				slog.WarnContext(ctx, "success rate invalidation failed", "agent_id", rated.TargetAgentID, "error", err)
			}
		}
	}

	s.telemetry.record(ctx, ev)
	return handoff.OperationResult{Success: true}
}

// checkContext validates hc and resolves the source agent.
func (s *HandoffService) checkContext(ctx context.Context, hc *handoff.Context) (*agent.Agent, error) {
	if err := hc.Validate(); err != nil {
		return nil, err
	}
	if _, err := hc.Session.UserTier.Rank(); err != nil {
		return nil, fmt.Errorf("user tier: %w", err)
	}
	source, err := s.deps.Agents.GetAgent(ctx, hc.SourceAgentID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", handoff.ErrSourceAgentNotFound, hc.SourceAgentID)
		}
		return nil, fmt.Errorf("load source agent: %w", err)
	}
	return source, nil
}

// checkGuards enforces the rules an execution must satisfy.
func (s *HandoffService) checkGuards(hc *handoff.Context, source, target *agent.Agent) error {
	if target.ID == source.ID {
		return fmt.Errorf("%w: cannot hand off to the source agent", handoff.ErrRejected)
	}
	if hc.Session.Visited(target.ID) {
		return fmt.Errorf("%w: %s was already part of this session", handoff.ErrRejected, target.ID)
	}
	if s.cfg.MaxSessionHandoffs > 0 && hc.Session.HandoffCount >= s.cfg.MaxSessionHandoffs {
		return fmt.Errorf("%w: session reached %d handoffs", handoff.ErrRejected, s.cfg.MaxSessionHandoffs)
	}
	ok, err := agent.AtLeast(hc.Session.UserTier, target.RequiredTier)
	if err != nil {
		return fmt.Errorf("target %s: %w", target.ID, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s requires the %s tier", handoff.ErrRejected, target.ID, target.RequiredTier)
	}
	return nil
}

// trigger fires the target's workflow through the breaker. A service without
// a trigger records executions only.
func (s *HandoffService) trigger(ctx context.Context, req workflow.Request) error {
	if s.deps.Trigger == nil {
		slog.DebugContext(ctx, "no workflow trigger configured", "target", req.TargetAgentID)
		return nil
	}
	fire := func(ctx context.Context) error {
		_, err := s.deps.Trigger.TriggerWorkflow(ctx, req.TargetAgentID, req)
		return err
	}
	var err error
	if s.deps.Breaker != nil {
		err = s.deps.Breaker.Execute(ctx, fire)
	} else {
		err = fire(ctx)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", handoff.ErrExecution, req.TargetAgentID, err)
	}
	return nil
}

// prefetchRates loads success rates for every agent. Lookup failures fall
// back to the default rate.
func (s *HandoffService) prefetchRates(ctx context.Context, agents []agent.Agent) handoff.SuccessRates {
	if s.deps.Rates == nil {
		return nil
	}
	ids := make([]string, len(agents))
	for i := range agents {
		ids[i] = agents[i].ID
	}
	rates, err := s.deps.Rates.Prefetch(ctx, ids)
	if err != nil {
		slog.WarnContext(ctx, "success rate lookup failed, using defaults", "error", err)
	}
	return rates
}

// matchChain returns the first catalog chain fitting the ranking, if any.
func (s *HandoffService) matchChain(ctx context.Context, hc *handoff.Context, recommended []string) *handoff.WorkflowChain {
	if s.deps.Chains == nil {
		return nil
	}
	chains, err := s.deps.Chains.Chains(ctx)
	if err != nil {
		slog.WarnContext(ctx, "chain catalog unavailable", "error", err)
		return nil
	}
	m := handoff.NewChainMatcher(chains)
	m.OnInvalid = func(id string, err error) {
		slog.WarnContext(ctx, "workflow chain skipped", "chain_id", id, "error", err)
	}
	chain, ok := m.Match(hc, recommended)
	if !ok {
		return nil
	}
	return chain
}

func (s *HandoffService) newEvent(ctx context.Context, typ event.Type, handoffID string, hc *handoff.Context) *event.HandoffEvent {
	return &event.HandoffEvent{
		ID:            uuid.NewString(),
		Type:          typ,
		HandoffID:     handoffID,
		UserID:        hc.Session.UserID,
		SessionID:     hc.Session.SessionID,
		SourceAgentID: hc.SourceAgentID,
		Intent:        event.TruncateIntent(hc.UserIntent),
		RequestID:     logger.RequestID(ctx),
		CreatedAt:     s.now().UTC(),
	}
}

// advance moves state to next when the transition is allowed.
func advance(ctx context.Context, state *handoff.State, next handoff.State) {
	if !state.CanTransition(next) {
		slog.ErrorContext(ctx, "invalid handoff state transition", "from", *state, "to", next)
		return
	}
	*state = next
}

func chainID(c *handoff.WorkflowChain) string {
	if c == nil {
		return ""
	}
	return c.ID
}
