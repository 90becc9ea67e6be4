// Package handlers provides HTTP handlers for holdings and portfolio valuation.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/fundpulse/internal/modules/holdings"
)

// Handler handles holdings HTTP requests
type Handler struct {
	service *holdings.Service
	log     zerolog.Logger
}

// NewHandler creates a new holdings handler
func NewHandler(service *holdings.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "holdings").Logger(),
	}
}

// HandleList handles GET /api/holdings
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list holdings")
		http.Error(w, "Failed to list holdings", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, envelope(list))
}

// HandleCreate handles POST /api/holdings
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in holdings.NewHolding
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	created, err := h.service.Add(r.Context(), in)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.writeJSON(w, http.StatusCreated, envelope(created))
}

// HandleUpdate handles PUT /api/holdings/{id}
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var in holdings.UpdateHolding
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	updated, err := h.service.Update(id, in)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, envelope(updated))
}

// HandleDelete handles DELETE /api/holdings/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(id); err != nil {
		h.writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleTrade handles POST /api/holdings/{id}/trades
// Buys are entered as an amount, sells as units
func (h *Handler) HandleTrade(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req holdings.TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	result, err := h.service.Trade(r.Context(), id, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, envelope(result))
}

// HandleSummary handles GET /api/portfolio/summary
func (h *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to build portfolio summary")
		http.Error(w, "Failed to build portfolio summary", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, envelope(summary))
}

// HandleSnapshots handles GET /api/portfolio/snapshots?limit=N
func (h *Handler) HandleSnapshots(w http.ResponseWriter, r *http.Request) {
	limit := 30
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	snaps, err := h.service.Snapshots(limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to load snapshots")
		http.Error(w, "Failed to load snapshots", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, envelope(snaps))
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	if holdings.IsNotFound(err) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if errors.Is(err, holdings.ErrNoLivePrice) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	http.Error(w, err.Error(), http.StatusBadRequest)
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "Invalid holding id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func envelope(data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
