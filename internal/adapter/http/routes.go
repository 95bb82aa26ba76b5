package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RouteOptions carries the per-route middleware. A nil field is skipped.
type RouteOptions struct {
	// Idempotency dedupes retried writes carrying an Idempotency-Key.
	Idempotency func(http.Handler) http.Handler
	// GenerateLimit throttles pitch generation, which spends agent calls.
	GenerateLimit func(http.Handler) http.Handler
	// MetricsAuth verifies metrics pushed by the external metrics process.
	MetricsAuth func(http.Handler) http.Handler
}

func passthrough(next http.Handler) http.Handler { return next }

func orPassthrough(mw func(http.Handler) http.Handler) func(http.Handler) http.Handler {
	if mw == nil {
		return passthrough
	}
	return mw
}

// MountRoutes registers the health check and all API routes on r.
func MountRoutes(r chi.Router, h *Handlers, opts RouteOptions) {
	idem := orPassthrough(opts.Idempotency)

	r.Get("/health", h.GetHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"version": "0.1.0"})
		})

		// Pitches
		r.With(idem).Post("/pitches", h.CreatePitch)
		r.With(orPassthrough(opts.GenerateLimit), idem).Post("/pitches/generate", h.GeneratePitch)

		// Revision tree records
		r.Get("/posts/{id}", h.GetPost)
		r.Get("/posts/{id}/tree", h.GetTree)
		r.Get("/posts/{id}/comments", h.ListComments)
		r.Get("/posts/{id}/votes", h.ListVotes)
		r.With(idem).Post("/posts/{id}/votes", h.CastVote)
		r.With(idem).Post("/posts/{id}/decision", h.Decide)

		// Executions
		r.Get("/executions/{id}", h.GetExecution)
		r.Get("/executions/{id}/asset", h.GetAsset)
		r.With(orPassthrough(opts.MetricsAuth), idem).Put("/executions/{id}/metrics", h.RecordMetrics)

		// Corporate memory
		r.Get("/memory", h.GetMemory)
	})
}
