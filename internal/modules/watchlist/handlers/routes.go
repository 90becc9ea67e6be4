package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers watchlist routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/watchlist", func(r chi.Router) {
		r.Route("/indices", func(r chi.Router) {
			r.Get("/", h.HandleListIndices)
			r.Post("/", h.HandleAddIndex)
			r.Delete("/{symbol}", h.HandleRemoveIndex)
		})
		r.Route("/favorites", func(r chi.Router) {
			r.Get("/", h.HandleListFavorites)
			r.Post("/", h.HandleAddFavorite)
			r.Get("/{id}", h.HandleGetFavorite)
			r.Delete("/{id}", h.HandleDeleteFavorite)
		})
	})
}
