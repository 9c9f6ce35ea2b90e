package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain/event"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/domain/handoff"
	"github.com/SKRBLAI/skrblai-live-sub001/internal/port/catalog"
)

// HandoffService is the subset of service.HandoffService the HTTP API needs.
type HandoffService interface {
	AnalyzeHandoffIntent(ctx context.Context, hc *handoff.Context) handoff.Result
	ExecuteHandoff(ctx context.Context, handoffID, targetAgentID string, hc *handoff.Context, payload handoff.Payload) handoff.ExecutionResult
	GetHandoffHistory(ctx context.Context, userID, sessionID string, limit int) ([]event.HandoffEvent, error)
	RateHandoff(ctx context.Context, handoffID string, rating int, feedback string) handoff.OperationResult
}

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Handoffs HandoffService
	Agents   catalog.Agents
	Chains   catalog.Chains
}

// AnalyzeHandoff handles POST /api/v1/handoffs/analyze
func (h *Handlers) AnalyzeHandoff(w http.ResponseWriter, r *http.Request) {
	hc, ok := readJSON[handoff.Context](w, r)
	if !ok {
		return
	}
	res := h.Handoffs.AnalyzeHandoffIntent(r.Context(), &hc)
	writeJSON(w, statusFor(res.Error), res)
}

// executeRequest is the body of an execute call. When Payload is omitted the
// context's workflow_data is handed over.
type executeRequest struct {
	TargetAgentID string          `json:"target_agent_id"`
	Context       handoff.Context `json:"context"`
	Payload       handoff.Payload `json:"payload"`
}

// ExecuteHandoff handles POST /api/v1/handoffs/{id}/execute
func (h *Handlers) ExecuteHandoff(w http.ResponseWriter, r *http.Request) {
	handoffID := urlParam(r, "id")
	req, ok := readJSON[executeRequest](w, r)
	if !ok {
		return
	}
	if !requireField(w, req.TargetAgentID, "target_agent_id") {
		return
	}
	payload := req.Payload
	if payload.IsEmpty() {
		payload = req.Context.WorkflowData
	}
	res := h.Handoffs.ExecuteHandoff(r.Context(), handoffID, req.TargetAgentID, &req.Context, payload)
	writeJSON(w, statusFor(res.Error), res)
}

// HandoffHistory handles GET /api/v1/handoffs/history?user_id=&session_id=&limit=
func (h *Handlers) HandoffHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	userID := q.Get("user_id")
	if !requireField(w, userID, "user_id") {
		return
	}
	limit := 0
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "limit must be an integer")
			return
		}
		limit = n
	}

	events, err := h.Handoffs.GetHandoffHistory(r.Context(), userID, q.Get("session_id"), limit)
	if err != nil {
		writeDomainError(w, err, "history not found")
		return
	}
	if events == nil {
		events = []event.HandoffEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

type rateRequest struct {
	Rating   int    `json:"rating"`
	Feedback string `json:"feedback"`
}

// RateHandoff handles POST /api/v1/handoffs/{id}/rating
func (h *Handlers) RateHandoff(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[rateRequest](w, r)
	if !ok {
		return
	}
	res := h.Handoffs.RateHandoff(r.Context(), urlParam(r, "id"), req.Rating, req.Feedback)
	writeJSON(w, statusFor(res.Error), res)
}
