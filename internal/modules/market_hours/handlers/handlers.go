// Package handlers provides HTTP handlers for market hours operations.
package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fundpulse/internal/domain"
	"github.com/aristath/fundpulse/internal/modules/market_hours"
)

// Handler handles market hours HTTP requests
type Handler struct {
	calendar *market_hours.Calendar
	now      func() time.Time
	log      zerolog.Logger
}

// NewHandler creates a new market hours handler
func NewHandler(calendar *market_hours.Calendar, log zerolog.Logger) *Handler {
	return &Handler{
		calendar: calendar,
		now:      time.Now,
		log:      log.With().Str("handler", "market_hours").Logger(),
	}
}

// HandleGetStatus handles GET /api/market-hours/status
// Returns whether the session is open and the date a trade entered now is priced at
func (h *Handler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	status := h.calendar.Status(h.now())

	response := map[string]interface{}{
		"data": status,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}

	h.writeJSON(w, http.StatusOK, response)
}

type sessionWindow struct {
	Name  string `json:"name"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// HandleGetSessions handles GET /api/market-hours/sessions
// Lists the polled session windows and the fund order cutoff in market time
func (h *Handler) HandleGetSessions(w http.ResponseWriter, r *http.Request) {
	windows := make([]sessionWindow, len(market_hours.Sessions))
	for i, s := range market_hours.Sessions {
		windows[i] = sessionWindow{Name: s.Name, Start: clock(s.Start), End: clock(s.End)}
	}

	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{
			"sessions":   windows,
			"nav_cutoff": clock(market_hours.NAVCutoff),
			"timezone":   domain.MarketLocation().String(),
		},
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	})
}

func clock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
