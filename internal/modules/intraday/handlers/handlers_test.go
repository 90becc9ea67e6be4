package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/fundpulse/internal/domain"
)

type fakeSeries struct {
	err error
}

func (f fakeSeries) Series(_ context.Context, code string) (domain.IntradaySeries, error) {
	if f.err != nil {
		return domain.IntradaySeries{}, f.err
	}
	return domain.IntradaySeries{InstrumentID: code, Points: []domain.TrendPoint{}, IsHistory: true, Source: "remote"}, nil
}

func TestHandleGetSeries(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)

	tests := []struct {
		name     string
		series   SeriesProvider
		path     string
		status   int
		validate func(*testing.T, map[string]interface{})
	}{
		{
			name:   "remote history before open",
			series: fakeSeries{},
			path:   "/intraday/005827",
			status: http.StatusOK,
			validate: func(t *testing.T, data map[string]interface{}) {
				assert.Equal(t, "005827", data["instrument_id"])
				assert.Equal(t, true, data["is_history"])
				assert.Equal(t, "remote", data["source"])
			},
		},
		{name: "invalid code", series: fakeSeries{}, path: "/intraday/xyz", status: http.StatusBadRequest},
		{name: "store failure", series: fakeSeries{err: errors.New("disk")}, path: "/intraday/005827", status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			NewHandler(tt.series, logger).RegisterRoutes(r)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest("GET", tt.path, nil))
			require.Equal(t, tt.status, w.Code)
			if tt.validate != nil {
				var response map[string]interface{}
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
				tt.validate(t, response["data"].(map[string]interface{}))
			}
		})
	}
}
