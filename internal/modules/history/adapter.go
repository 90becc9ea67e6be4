package history

import (
	"context"
	"fmt"

	"github.com/aristath/fundpulse/internal/domain"
)

// NAVSourceID identifies quotes derived from the latest confirmed NAV.
const NAVSourceID = "history_nav"

// NAVAdapter quotes a fund at its latest confirmed NAV. It is the last
// resort in the fund chain, used when no estimate feed answers.
type NAVAdapter struct {
	svc *Service
}

// NewNAVAdapter creates the adapter.
func NewNAVAdapter(svc *Service) *NAVAdapter {
	return &NAVAdapter{svc: svc}
}

// ID implements the quote source contract.
func (a *NAVAdapter) ID() string { return NAVSourceID }

// Supports implements the quote source contract.
func (a *NAVAdapter) Supports(kind domain.InstrumentKind) bool {
	return kind == domain.KindFund
}

// Confirmed marks every quote from this adapter as a past close, so the
// resolver reports it stale.
func (a *NAVAdapter) Confirmed() bool { return true }

// Fetch implements the quote source contract.
func (a *NAVAdapter) Fetch(ctx context.Context, code string) (domain.Quote, error) {
	series, err := a.svc.Series(ctx, code, 0)
	if err != nil {
		return domain.Quote{}, err
	}
	return quoteFromSeries(code, series)
}

func quoteFromSeries(code string, series domain.HistorySeries) (domain.Quote, error) {
	latest, ok := series.Latest()
	if !ok {
		return domain.Quote{}, fmt.Errorf("no NAV history for %s", code)
	}
	q := domain.Quote{
		InstrumentID: code,
		Price:        latest.NAV,
		PctChange:    latest.PctChange,
		ObservedDate: latest.Date.In(domain.MarketLocation()).Format(domain.DateLayout),
		ObservedTime: "15:00:00",
		SourceID:     NAVSourceID,
	}
	if n := series.Len(); n >= 2 {
		q.ReferencePrice = series.Points[n-2].NAV
	}
	return q, nil
}
