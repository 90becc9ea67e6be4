package valuation

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fundpulse/internal/cache"
	"github.com/aristath/fundpulse/internal/domain"
	"github.com/aristath/fundpulse/internal/metrics"
)

// TickAppender persists accepted quotes.
type TickAppender interface {
	AppendBatch(ctx context.Context, ticks []domain.Tick) (int64, error)
}

// Service is the entry point for current valuations. Live results are
// cached for the quote TTL and persisted as ticks; stale and unavailable
// outcomes are never cached so the next request retries upstream.
type Service struct {
	coordinator *Coordinator
	resolver    *Resolver
	quotes      *cache.Cache[domain.Valuation]
	ticks       TickAppender
	metrics     *metrics.Metrics
	log         zerolog.Logger
}

// ServiceConfig holds service configuration
type ServiceConfig struct {
	Resolver    *Resolver
	Coordinator CoordinatorConfig
	QuoteTTL    time.Duration
	Ticks       TickAppender // optional
	Metrics     *metrics.Metrics
}

// notLive carries a non-live outcome through the cache loader without caching it.
type notLive struct {
	v domain.Valuation
}

func (e *notLive) Error() string { return e.v.Reason }

// NewService creates the valuation service.
func NewService(cfg ServiceConfig, log zerolog.Logger) *Service {
	if cfg.QuoteTTL <= 0 {
		cfg.QuoteTTL = 30 * time.Second
	}
	s := &Service{
		resolver: cfg.Resolver,
		quotes:   cache.New[domain.Valuation]("quotes", cfg.QuoteTTL),
		ticks:    cfg.Ticks,
		metrics:  cfg.Metrics,
		log:      log.With().Str("service", "valuation").Logger(),
	}
	s.coordinator = NewCoordinator(s.resolveCached, cfg.Coordinator, log)
	return s
}

// QuoteCache exposes the cache for metrics and sweeping.
func (s *Service) QuoteCache() *cache.Cache[domain.Valuation] {
	return s.quotes
}

// Resolver returns the underlying resolver.
func (s *Service) Resolver() *Resolver {
	return s.resolver
}

// Current returns one valuation per distinct code. It never fails as a whole.
func (s *Service) Current(ctx context.Context, codes []string) map[string]domain.Valuation {
	out := s.coordinator.FetchMany(ctx, codes)
	s.persist(ctx, out)
	return out
}

// One resolves a single code through the cache.
func (s *Service) One(ctx context.Context, code string) domain.Valuation {
	v := s.resolveCached(ctx, code)
	s.persist(ctx, map[string]domain.Valuation{code: v})
	return v
}

// Invalidate drops cached valuations for the given codes, or all of them.
func (s *Service) Invalidate(codes ...string) {
	if len(codes) == 0 {
		s.quotes.InvalidatePrefix(cache.Key("valuation", ""))
		return
	}
	for _, code := range codes {
		s.quotes.Invalidate(cache.Key("valuation", code))
	}
}

func (s *Service) resolveCached(ctx context.Context, code string) domain.Valuation {
	v, err := s.quotes.GetOrLoad(ctx, cache.Key("valuation", code), func(ctx context.Context) (domain.Valuation, error) {
		v := s.resolver.Resolve(ctx, code)
		if v.Status != domain.StatusLive {
			return v, &notLive{v: v}
		}
		return v, nil
	})
	if err != nil {
		var nl *notLive
		if errors.As(err, &nl) {
			return nl.v
		}
		return domain.Unavailable(code, err.Error())
	}
	return v
}

// persist stores live quotes as ticks. Re-persisting a cached quote is a
// no-op because ticks are keyed by instrument and timestamp.
func (s *Service) persist(ctx context.Context, vals map[string]domain.Valuation) {
	if s.ticks == nil {
		return
	}
	ticks := make([]domain.Tick, 0, len(vals))
	for _, v := range vals {
		if v.Status != domain.StatusLive || v.Quote == nil {
			continue
		}
		t, err := domain.TickFromQuote(*v.Quote)
		if err != nil {
			s.log.Debug().Err(err).Str("code", v.InstrumentID).Msg("Quote has no usable timestamp, not persisted")
			continue
		}
		ticks = append(ticks, t)
	}
	if len(ticks) == 0 {
		return
	}
	n, err := s.ticks.AppendBatch(context.WithoutCancel(ctx), ticks)
	if err != nil {
		s.log.Error().Err(err).Int("count", len(ticks)).Msg("Failed to persist ticks")
		return
	}
	s.metrics.ObserveTicks(n, 0)
}
