// Package handlers provides HTTP handlers for intraday series.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/fundpulse/internal/domain"
)

// SeriesProvider returns the merged intraday series.
type SeriesProvider interface {
	Series(ctx context.Context, code string) (domain.IntradaySeries, error)
}

// Handler handles intraday requests
type Handler struct {
	series SeriesProvider
	log    zerolog.Logger
}

// NewHandler creates a new intraday handler
func NewHandler(series SeriesProvider, log zerolog.Logger) *Handler {
	return &Handler{series: series, log: log.With().Str("handler", "intraday").Logger()}
}

// HandleGetSeries handles GET /api/intraday/{code}
func (h *Handler) HandleGetSeries(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if _, err := domain.Classify(code); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	series, err := h.series.Series(r.Context(), code)
	if err != nil {
		h.log.Error().Err(err).Str("code", code).Msg("Failed to build intraday series")
		http.Error(w, "Failed to build intraday series", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": series,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

// RegisterRoutes registers intraday routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/intraday/{code}", h.HandleGetSeries)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
