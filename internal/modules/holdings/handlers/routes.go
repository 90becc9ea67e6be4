package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers holdings and portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/holdings", func(r chi.Router) {
		r.Get("/", h.HandleList)
		r.Post("/", h.HandleCreate)
		r.Put("/{id}", h.HandleUpdate)
		r.Delete("/{id}", h.HandleDelete)
		r.Post("/{id}/trades", h.HandleTrade)
	})
	r.Route("/portfolio", func(r chi.Router) {
		r.Get("/summary", h.HandleSummary)
		r.Get("/snapshots", h.HandleSnapshots)
	})
}
