// Package handlers provides HTTP handlers for investment plans.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/fundpulse/internal/modules/plans"
)

// Handler handles plan HTTP requests
type Handler struct {
	repo *plans.Repository
	log  zerolog.Logger
}

// NewHandler creates a new plan handler
func NewHandler(repo *plans.Repository, log zerolog.Logger) *Handler {
	return &Handler{
		repo: repo,
		log:  log.With().Str("handler", "plans").Logger(),
	}
}

// HandleList handles GET /api/plans
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.GetAll()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list plans")
		http.Error(w, "Failed to list plans", http.StatusInternalServerError)
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

// HandleCreate handles POST /api/plans
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var p plans.Plan
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	p.ID = 0
	created, err := h.repo.Create(p)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

// HandleUpdateStatus handles PUT /api/plans/{id}/status
func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req struct {
		Status plans.Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.repo.UpdateStatus(id, req.Status); err != nil {
		writeRepoError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{"id": id, "status": req.Status})
}

// HandleDelete handles DELETE /api/plans/{id}
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	if err := h.repo.Delete(id); err != nil {
		writeRepoError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeRepoError(w http.ResponseWriter, err error) {
	if errors.Is(err, plans.ErrPlanNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, err.Error(), http.StatusBadRequest)
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "Invalid plan id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
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
