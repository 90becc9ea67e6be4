package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/fundpulse/internal/modules/commentary"
	"github.com/aristath/fundpulse/internal/modules/diagnosis"
)

type fakeDiagnoser map[string]error

func (f fakeDiagnoser) Diagnose(_ context.Context, code string) (diagnosis.Diagnosis, error) {
	if err := f[code]; err != nil {
		return diagnosis.Diagnosis{}, err
	}
	return diagnosis.Diagnosis{InstrumentID: code, Score: 3.5, Conclusion: "Performing well."}, nil
}

type fakeCommentator struct{}

func (fakeCommentator) Comment(_ context.Context, code string) (commentary.Commentary, error) {
	return commentary.Commentary{InstrumentID: code, Source: commentary.SourceLocal, Markdown: "### report"}, nil
}

func TestDiagnosisRoutes(t *testing.T) {
	logger := zerolog.New(nil).Level(zerolog.Disabled)
	diag := fakeDiagnoser{
		"000001": fmt.Errorf("wrapped: %w", &diagnosis.InsufficientHistoryError{Have: 40, Need: 100}),
		"000002": errors.New("upstream down"),
	}
	r := chi.NewRouter()
	NewHandler(diag, fakeCommentator{}, logger).RegisterRoutes(r)

	tests := []struct {
		name     string
		path     string
		status   int
		validate func(*testing.T, map[string]interface{})
	}{
		{
			name:   "scored",
			path:   "/diagnosis/005827",
			status: http.StatusOK,
			validate: func(t *testing.T, data map[string]interface{}) {
				assert.Equal(t, 3.5, data["score"])
			},
		},
		{
			name:   "insufficient history",
			path:   "/diagnosis/000001",
			status: http.StatusOK,
			validate: func(t *testing.T, data map[string]interface{}) {
				assert.Equal(t, true, data["insufficient_data"])
				assert.Equal(t, 40.0, data["observations"])
				assert.Equal(t, 100.0, data["required"])
			},
		},
		{name: "upstream failure", path: "/diagnosis/000002", status: http.StatusBadGateway},
		{
			name:   "commentary",
			path:   "/diagnosis/005827/commentary",
			status: http.StatusOK,
			validate: func(t *testing.T, data map[string]interface{}) {
				assert.Equal(t, "local", data["source"])
				assert.Equal(t, "### report", data["markdown"])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
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
