package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/aristath/fundpulse/internal/modules/market_hours"
)

func TestRegisterRoutes(t *testing.T) {
	handler := NewHandler(market_hours.NewCalendar(), zerolog.Nop())
	r := chi.NewRouter()
	r.Route("/api", handler.RegisterRoutes)

	tests := []struct {
		path   string
		status int
	}{
		{"/api/market-hours/status", http.StatusOK},
		{"/api/market-hours/sessions", http.StatusOK},
		{"/api/market-hours/holidays", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest("GET", tt.path, nil))
			assert.Equal(t, tt.status, w.Code)
		})
	}
}
