package diagnosis

import (
	"context"
	"fmt"

	"github.com/aristath/fundpulse/internal/domain"
)

// HistoryProvider returns NAV history for the last years.
type HistoryProvider interface {
	Series(ctx context.Context, code string, years int) (domain.HistorySeries, error)
}

// Service diagnoses instruments by code.
type Service struct {
	history HistoryProvider
	engine  *Engine
}

// NewService creates the diagnosis service.
func NewService(history HistoryProvider, engine *Engine) *Service {
	return &Service{history: history, engine: engine}
}

// Diagnose fetches the lookback window and scores it.
func (s *Service) Diagnose(ctx context.Context, code string) (Diagnosis, error) {
	series, err := s.history.Series(ctx, code, s.engine.Rules().LookbackYears)
	if err != nil {
		return Diagnosis{}, fmt.Errorf("failed to load history for %s: %w", code, err)
	}
	return s.engine.Diagnose(series)
}
