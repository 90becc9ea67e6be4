package valuation

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fundpulse/internal/domain"
	"github.com/aristath/fundpulse/internal/metrics"
)

// LastKnownSourceID marks quotes built from the stale fallback.
const LastKnownSourceID = "last_known_nav"

// MaxAdapterTimeout caps the per-call timeout.
const MaxAdapterTimeout = 2 * time.Second

// Resolver tries the adapters for an instrument's kind strictly in order
// and returns the first success. Partial fields are never merged across
// sources.
type Resolver struct {
	table     *StrategyTable
	lastKnown LastKnownProvider
	timeout   time.Duration
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

// ResolverConfig holds resolver configuration
type ResolverConfig struct {
	Table     *StrategyTable
	LastKnown LastKnownProvider // optional
	Timeout   time.Duration     // per adapter call, capped at MaxAdapterTimeout
	Metrics   *metrics.Metrics  // optional
}

// NewResolver creates a resolver.
func NewResolver(cfg ResolverConfig, log zerolog.Logger) *Resolver {
	if cfg.Timeout <= 0 || cfg.Timeout > MaxAdapterTimeout {
		cfg.Timeout = MaxAdapterTimeout
	}
	return &Resolver{
		table:     cfg.Table,
		lastKnown: cfg.LastKnown,
		timeout:   cfg.Timeout,
		metrics:   cfg.Metrics,
		log:       log.With().Str("component", "resolver").Logger(),
	}
}

// Resolve never returns an error: upstream failure is a routine outcome
// reported through the valuation status.
func (r *Resolver) Resolve(ctx context.Context, code string) domain.Valuation {
	kind, err := domain.Classify(code)
	if err != nil {
		return domain.Unavailable(code, err.Error())
	}

	var lastErr error
	for _, a := range r.table.Chain(kind) {
		if ctx.Err() != nil {
			lastErr = ctx.Err()
			break
		}

		q, err := r.try(ctx, a, code)
		if err == nil {
			if confirmed(a) {
				// Only the last resort answered: the figure is a past close.
				reason := ErrLiveSourcesUnavailable.Error()
				if lastErr != nil {
					reason = fmt.Sprintf("%v: %v", ErrLiveSourcesUnavailable, lastErr)
				}
				r.metrics.ObserveResolution(string(kind), string(domain.StatusStale))
				r.log.Warn().Err(lastErr).Str("code", code).Str("source", a.ID()).
					Str("observed_date", q.ObservedDate).Msg("Live sources unavailable, using confirmed close")
				return domain.Stale(q, reason)
			}
			r.metrics.ObserveResolution(string(kind), string(domain.StatusLive))
			return domain.Live(q)
		}
		lastErr = err
		r.log.Debug().Err(err).Str("code", code).Str("source", a.ID()).Msg("Source failed, trying next")
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no sources configured for %s", kind)
	}

	v := r.fallback(ctx, code, lastErr)
	r.metrics.ObserveResolution(string(kind), string(v.Status))
	r.log.Warn().Err(lastErr).Str("code", code).Str("status", string(v.Status)).Msg("All sources unavailable")
	return v
}

func confirmed(a Adapter) bool {
	c, ok := a.(ConfirmedSource)
	return ok && c.Confirmed()
}

// try runs one adapter under its own timeout and validates the result.
func (r *Resolver) try(ctx context.Context, a Adapter, code string) (domain.Quote, error) {
	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	q, err := a.Fetch(callCtx, code)
	if err == nil {
		q.InstrumentID = code
		q.SourceID = a.ID()
		err = q.Validate()
	}
	r.metrics.ObserveAdapter(a.ID(), err == nil, time.Since(start))
	if err != nil {
		return domain.Quote{}, &SourceError{Source: a.ID(), Err: err}
	}
	return q, nil
}

// fallback reports the last confirmed NAV flagged stale, with zero change
// because no intraday figure is known. Without one the instrument is unavailable.
func (r *Resolver) fallback(ctx context.Context, code string, cause error) domain.Valuation {
	reason := fmt.Sprintf("%v: %v", ErrAllSourcesUnavailable, cause)
	if r.lastKnown == nil {
		return domain.Unavailable(code, reason)
	}

	lk, ok := r.lastKnown.LastKnown(ctx, code)
	if !ok || lk.Price <= 0 {
		return domain.Unavailable(code, reason)
	}

	return domain.Stale(domain.Quote{
		InstrumentID:   code,
		Price:          lk.Price,
		ReferencePrice: lk.Price,
		PctChange:      0,
		ObservedDate:   lk.Date,
		ObservedTime:   "15:00:00",
		SourceID:       LastKnownSourceID,
	}, reason)
}
