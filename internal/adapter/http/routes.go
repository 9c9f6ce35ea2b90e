package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// Version is reported by GET /api/v1/.
const Version = "0.1.0"

// MountRoutes registers all API routes on the given chi router. idempotent
// wraps the routes that fire side effects; pass nil to disable replay.
func MountRoutes(r chi.Router, h *Handlers, idempotent func(http.Handler) http.Handler) {
	if idempotent == nil {
		idempotent = func(next http.Handler) http.Handler { return next }
	}

	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"version": Version})
		})

		// Handoffs
		r.Post("/handoffs/analyze", h.AnalyzeHandoff)
		r.Get("/handoffs/history", h.HandoffHistory)
		r.With(idempotent).Post("/handoffs/{id}/execute", h.ExecuteHandoff)
		r.With(idempotent).Post("/handoffs/{id}/rating", h.RateHandoff)

		// Catalog
		r.Get("/agents", handleList(h.Agents.GetAllAgents))
		r.Get("/agents/{id}", handleGet(h.Agents.GetAgent, "agent not found"))
		r.Get("/chains", handleList(h.Chains.Chains))
	})
}
