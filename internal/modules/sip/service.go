package sip

import (
	"context"
	"fmt"

	"github.com/aristath/fundpulse/internal/domain"
)

// HistoryProvider returns NAV history for the last years.
type HistoryProvider interface {
	Series(ctx context.Context, code string, years int) (domain.HistorySeries, error)
}

// Service runs simulations by instrument code.
type Service struct {
	history HistoryProvider
}

// NewService creates the service.
func NewService(history HistoryProvider) *Service {
	return &Service{history: history}
}

// Simulate loads the history window and backtests the plan.
func (s *Service) Simulate(ctx context.Context, code string, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	series, err := s.history.Series(ctx, code, p.DurationYears)
	if err != nil {
		return nil, fmt.Errorf("failed to load history for %s: %w", code, err)
	}
	return Simulate(series, p)
}
