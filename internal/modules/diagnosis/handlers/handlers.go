// Package handlers provides HTTP handlers for diagnosis and commentary.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/fundpulse/internal/modules/commentary"
	"github.com/aristath/fundpulse/internal/modules/diagnosis"
)

// Diagnoser scores an instrument.
type Diagnoser interface {
	Diagnose(ctx context.Context, code string) (diagnosis.Diagnosis, error)
}

// Commentator renders commentary for an instrument.
type Commentator interface {
	Comment(ctx context.Context, code string) (commentary.Commentary, error)
}

// Handler handles diagnosis requests
type Handler struct {
	diagnoser   Diagnoser
	commentator Commentator
	log         zerolog.Logger
}

// NewHandler creates a new diagnosis handler
func NewHandler(diagnoser Diagnoser, commentator Commentator, log zerolog.Logger) *Handler {
	return &Handler{
		diagnoser:   diagnoser,
		commentator: commentator,
		log:         log.With().Str("handler", "diagnosis").Logger(),
	}
}

// HandleDiagnose handles GET /api/diagnosis/{code}
// Short history is a normal outcome and is reported with 200 and insufficient_data
func (h *Handler) HandleDiagnose(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	d, err := h.diagnoser.Diagnose(r.Context(), code)
	if err != nil {
		h.writeError(w, code, err)
		return
	}
	h.writeJSON(w, http.StatusOK, d)
}

// HandleCommentary handles GET /api/diagnosis/{code}/commentary
func (h *Handler) HandleCommentary(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	c, err := h.commentator.Comment(r.Context(), code)
	if err != nil {
		h.writeError(w, code, err)
		return
	}
	h.writeJSON(w, http.StatusOK, c)
}

// RegisterRoutes registers diagnosis routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/diagnosis/{code}", func(r chi.Router) {
		r.Get("/", h.HandleDiagnose)
		r.Get("/commentary", h.HandleCommentary)
	})
}

func (h *Handler) writeError(w http.ResponseWriter, code string, err error) {
	var short *diagnosis.InsufficientHistoryError
	if errors.As(err, &short) {
		h.writeJSON(w, http.StatusOK, map[string]interface{}{
			"instrument_id":     code,
			"insufficient_data": true,
			"observations":      short.Have,
			"required":          short.Need,
		})
		return
	}
	h.log.Warn().Err(err).Str("code", code).Msg("Diagnosis failed")
	http.Error(w, err.Error(), http.StatusBadGateway)
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
