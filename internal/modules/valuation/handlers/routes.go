package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers valuation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/valuations", func(r chi.Router) {
		r.Get("/", h.HandleGetValuations)
		r.Get("/indices", h.HandleGetIndices)
		r.Get("/stream", h.HandleStream)
	})
}
