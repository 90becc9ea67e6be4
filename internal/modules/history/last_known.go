package history

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/aristath/fundpulse/internal/domain"
	"github.com/aristath/fundpulse/internal/modules/valuation"
)

// TickLookup returns the newest stored tick for an instrument.
type TickLookup interface {
	Latest(ctx context.Context, instrumentID string) (domain.Tick, bool, error)
}

// LastKnown supplies the stale fallback without touching the network: the
// last confirmed NAV if any history is cached, else the newest stored tick.
type LastKnown struct {
	svc   *Service
	ticks TickLookup
	log   zerolog.Logger
}

// NewLastKnown creates the provider. ticks may be nil.
func NewLastKnown(svc *Service, ticks TickLookup, log zerolog.Logger) *LastKnown {
	return &LastKnown{svc: svc, ticks: ticks, log: log.With().Str("component", "last_known").Logger()}
}

// LastKnown implements valuation.LastKnownProvider.
func (l *LastKnown) LastKnown(ctx context.Context, code string) (valuation.LastKnown, bool) {
	if series, ok := l.svc.Cached(code); ok {
		if p, ok := series.Latest(); ok && p.NAV > 0 {
			return valuation.LastKnown{Price: p.NAV, Date: p.Date.In(domain.MarketLocation()).Format(domain.DateLayout)}, true
		}
	}

	if l.ticks == nil {
		return valuation.LastKnown{}, false
	}
	t, ok, err := l.ticks.Latest(ctx, code)
	if err != nil {
		l.log.Debug().Err(err).Str("code", code).Msg("Tick lookup failed")
		return valuation.LastKnown{}, false
	}
	if !ok || t.Price <= 0 {
		return valuation.LastKnown{}, false
	}
	return valuation.LastKnown{Price: t.Price, Date: t.Timestamp.In(domain.MarketLocation()).Format(domain.DateLayout)}, true
}
