// Package handlers provides HTTP handlers for instrument search.
package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/fundpulse/internal/modules/history"
)

// Handler handles instrument search requests
type Handler struct {
	service *history.Service
	stocks  history.StockSearcher
	recent  *history.SearchHistoryRepository
	log     zerolog.Logger
}

// NewHandler creates a new search handler. stocks and recent may be nil.
func NewHandler(service *history.Service, stocks history.StockSearcher, recent *history.SearchHistoryRepository, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		stocks:  stocks,
		recent:  recent,
		log:     log.With().Str("handler", "instruments").Logger(),
	}
}

// HandleSearch handles GET /api/instruments/search?q=
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		http.Error(w, "q is required", http.StatusBadRequest)
		return
	}

	result, err := h.service.Search(r.Context(), q, h.stocks)
	if err != nil {
		h.log.Warn().Err(err).Str("q", q).Msg("Instrument search failed")
		http.Error(w, "Fund directory unavailable", http.StatusBadGateway)
		return
	}
	if h.recent != nil {
		if err := h.recent.Record(q); err != nil {
			h.log.Warn().Err(err).Msg("Failed to record search keyword")
		}
	}
	h.writeJSON(w, http.StatusOK, result)
}

// HandleRecent handles GET /api/instruments/search/history
func (h *Handler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	keywords := []string{}
	if h.recent != nil {
		var err error
		if keywords, err = h.recent.Recent(); err != nil {
			h.log.Error().Err(err).Msg("Failed to read search history")
			http.Error(w, "Failed to read search history", http.StatusInternalServerError)
			return
		}
	}
	h.writeJSON(w, http.StatusOK, keywords)
}

// HandleClearRecent handles DELETE /api/instruments/search/history
func (h *Handler) HandleClearRecent(w http.ResponseWriter, r *http.Request) {
	if h.recent != nil {
		if err := h.recent.Clear(); err != nil {
			h.log.Error().Err(err).Msg("Failed to clear search history")
			http.Error(w, "Failed to clear search history", http.StatusInternalServerError)
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// RegisterRoutes registers instrument routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/instruments/search", func(r chi.Router) {
		r.Get("/", h.HandleSearch)
		r.Get("/history", h.HandleRecent)
		r.Delete("/history", h.HandleClearRecent)
	})
}

// writeJSON writes the data inside the standard envelope
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	response := map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
