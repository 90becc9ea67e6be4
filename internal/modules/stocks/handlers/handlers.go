// Package handlers provides HTTP handlers for stock detail and candles.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/aristath/fundpulse/internal/clients/sina"
	"github.com/aristath/fundpulse/internal/domain"
	"github.com/aristath/fundpulse/internal/modules/stocks"
)

// Stocks is the market data service.
type Stocks interface {
	Detail(ctx context.Context, code string) (sina.StockDetail, error)
	Kline(ctx context.Context, code string, period domain.KlinePeriod) ([]domain.Candle, error)
}

// Handler handles stock requests
type Handler struct {
	stocks Stocks
	log    zerolog.Logger
}

// NewHandler creates a new stock handler
func NewHandler(stocks Stocks, log zerolog.Logger) *Handler {
	return &Handler{stocks: stocks, log: log.With().Str("handler", "stocks").Logger()}
}

// RegisterRoutes registers stock routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/stocks/{code}", func(r chi.Router) {
		r.Get("/detail", h.HandleGetDetail)
		r.Get("/kline", h.HandleGetKline)
	})
}

// HandleGetDetail handles GET /api/stocks/{code}/detail
func (h *Handler) HandleGetDetail(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	d, err := h.stocks.Detail(r.Context(), code)
	if err != nil {
		h.writeError(w, code, err)
		return
	}
	h.writeJSON(w, http.StatusOK, d)
}

// HandleGetKline handles GET /api/stocks/{code}/kline?period=day|week|month
func (h *Handler) HandleGetKline(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	period, err := domain.ParseKlinePeriod(r.URL.Query().Get("period"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	candles, err := h.stocks.Kline(r.Context(), code, period)
	if err != nil {
		h.writeError(w, code, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"code":    code,
		"period":  period,
		"candles": candles,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, code string, err error) {
	if _, cerr := domain.Classify(code); cerr != nil || errors.Is(err, stocks.ErrNotExchangeTraded) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	h.log.Warn().Err(err).Str("code", code).Msg("Upstream market data unavailable")
	http.Error(w, "Upstream market data unavailable", http.StatusBadGateway)
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
