// Package handlers provides HTTP handlers for plan simulation.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/fundpulse/internal/modules/sip"
)

// Simulator backtests a plan for an instrument.
type Simulator interface {
	Simulate(ctx context.Context, code string, p sip.Params) (*sip.Result, error)
}

// SimulateRequest is the body of POST /api/sip/simulate.
type SimulateRequest struct {
	InstrumentID string `json:"instrument_id"`
	sip.Params
}

// Handler handles simulation requests
type Handler struct {
	simulator Simulator
	log       zerolog.Logger
}

// NewHandler creates a new simulation handler
func NewHandler(simulator Simulator, log zerolog.Logger) *Handler {
	return &Handler{simulator: simulator, log: log.With().Str("handler", "sip").Logger()}
}

// HandleSimulate handles POST /api/sip/simulate
func (h *Handler) HandleSimulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.InstrumentID == "" {
		http.Error(w, "instrument_id is required", http.StatusBadRequest)
		return
	}
	if err := req.Params.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.simulator.Simulate(r.Context(), req.InstrumentID, req.Params)
	switch {
	case errors.Is(err, sip.ErrNoPurchases):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	case err != nil:
		h.log.Warn().Err(err).Str("code", req.InstrumentID).Msg("Simulation failed")
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}

	response := map[string]interface{}{
		"data": result,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// RegisterRoutes registers simulation routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/sip/simulate", h.HandleSimulate)
}
