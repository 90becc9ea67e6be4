package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the session calendar routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/market-hours", func(r chi.Router) {
		r.Get("/status", h.HandleGetStatus)
		r.Get("/sessions", h.HandleGetSessions)
	})
}
