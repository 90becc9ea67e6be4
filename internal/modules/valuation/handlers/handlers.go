// Package handlers provides HTTP and websocket handlers for valuations.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/aristath/fundpulse/internal/domain"
)

// Stream interval bounds.
const (
	DefaultStreamInterval = 5 * time.Second
	MinStreamInterval     = time.Second
	MaxStreamInterval     = time.Minute
	MaxCodesPerRequest    = 200
)

// Valuations returns current valuations.
type Valuations interface {
	Current(ctx context.Context, codes []string) map[string]domain.Valuation
}

// IndexSource lists the codes served by the dashboard endpoint.
type IndexSource interface {
	Codes() ([]string, error)
}

// Handler handles valuation requests
type Handler struct {
	valuations     Valuations
	indices        IndexSource
	originPatterns []string
	log            zerolog.Logger
}

// NewHandler creates a new valuation handler. originPatterns are the
// cross-origin hosts allowed to open the stream; same-origin requests are
// always accepted.
func NewHandler(valuations Valuations, indices IndexSource, originPatterns []string, log zerolog.Logger) *Handler {
	return &Handler{
		valuations:     valuations,
		indices:        indices,
		originPatterns: originPatterns,
		log:            log.With().Str("handler", "valuation").Logger(),
	}
}

// HandleGetValuations handles GET /api/valuations?codes=a,b
func (h *Handler) HandleGetValuations(w http.ResponseWriter, r *http.Request) {
	codes, ok := parseCodes(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, h.valuations.Current(r.Context(), codes))
}

// HandleGetIndices handles GET /api/valuations/indices
func (h *Handler) HandleGetIndices(w http.ResponseWriter, r *http.Request) {
	codes, err := h.indices.Codes()
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list indices")
		http.Error(w, "Failed to list indices", http.StatusInternalServerError)
		return
	}
	out := make([]domain.Valuation, 0, len(codes))
	if len(codes) == 0 {
		h.writeJSON(w, http.StatusOK, out)
		return
	}
	vals := h.valuations.Current(r.Context(), codes)
	for _, code := range codes {
		if v, ok := vals[code]; ok {
			out = append(out, v)
		}
	}
	h.writeJSON(w, http.StatusOK, out)
}

// HandleStream handles GET /api/valuations/stream?codes=a,b&interval=5s
// and pushes the valuation map over a websocket every interval until the
// client goes away.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	codes, ok := parseCodes(w, r)
	if !ok {
		return
	}
	interval := DefaultStreamInterval
	if raw := r.URL.Query().Get("interval"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d < MinStreamInterval || d > MaxStreamInterval {
			http.Error(w, "interval must be between 1s and 1m", http.StatusBadRequest)
			return
		}
		interval = d
	}

	// The server write timeout must not cut the stream.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: h.originPatterns})
	if err != nil {
		h.log.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}
	defer conn.CloseNow()

	session := uuid.New().String()
	log := h.log.With().Str("session", session).Int("codes", len(codes)).Logger()
	log.Debug().Dur("interval", interval).Msg("Valuation stream opened")

	// Client messages are ignored; CloseRead cancels ctx when the peer closes.
	ctx := conn.CloseRead(r.Context())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := h.push(ctx, conn, codes, interval); err != nil {
			log.Debug().Err(err).Msg("Valuation stream closed")
			return
		}
		select {
		case <-ctx.Done():
			log.Debug().Msg("Valuation stream closed by client")
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case <-ticker.C:
		}
	}
}

type streamFrame struct {
	Valuations map[string]domain.Valuation `json:"valuations"`
	Timestamp  string                      `json:"timestamp"`
}

func (h *Handler) push(ctx context.Context, conn *websocket.Conn, codes []string, interval time.Duration) error {
	vals := h.valuations.Current(ctx, codes)
	writeCtx, cancel := context.WithTimeout(ctx, interval)
	defer cancel()
	return wsjson.Write(writeCtx, conn, streamFrame{
		Valuations: vals,
		Timestamp:  time.Now().Format(time.RFC3339),
	})
}

func parseCodes(w http.ResponseWriter, r *http.Request) ([]string, bool) {
	var codes []string
	for _, c := range strings.Split(r.URL.Query().Get("codes"), ",") {
		if c = strings.TrimSpace(c); c != "" {
			codes = append(codes, c)
		}
	}
	if len(codes) == 0 {
		http.Error(w, "codes is required", http.StatusBadRequest)
		return nil, false
	}
	if len(codes) > MaxCodesPerRequest {
		http.Error(w, "too many codes", http.StatusBadRequest)
		return nil, false
	}
	return codes, true
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
