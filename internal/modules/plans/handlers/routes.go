package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers plan routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/plans", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Put("/{id}/status", h.HandleUpdateStatus)
		r.Delete("/{id}", h.HandleDelete)
	})
}
