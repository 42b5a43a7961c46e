package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gebworks/geb-core/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// System metrics (no auth required for basic monitoring)
		r.Get("/metrics", s.handleMetrics)

		// Auth endpoints (no auth required). Refresh carries its own
		// credential (the refresh token) and is validated in the handler.
		r.Post("/auth/register", s.handleRegister)
		r.Post("/auth/login", s.handleLogin)
		r.Post("/auth/refresh", s.handleRefresh)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Get("/auth/me", s.handleMe)

			// Track endpoints. Ownership checks on rename/delete happen in
			// the handlers — they need the stored owner, not just the role.
			r.Route("/tracks", func(r chi.Router) {
				r.Get("/", s.handleListTracks)
				r.Post("/", s.handleCreateTrack)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/download", s.handleDownloadTrack)
					r.Patch("/", s.handleRenameTrack)
					r.Delete("/", s.handleDeleteTrack)
				})
			})

			// Developer-only endpoints
			r.Group(func(r chi.Router) {
				r.Use(s.requireRole(auth.RoleDeveloper))

				r.Delete("/users/{id}", s.handleDeleteUser)
				r.Get("/audit", s.handleListAuditLogs)
			})
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
