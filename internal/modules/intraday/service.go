package intraday

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fundpulse/internal/cache"
	"github.com/aristath/fundpulse/internal/clients/eastmoney"
	"github.com/aristath/fundpulse/internal/domain"
)

// TickReader reads today's locally captured ticks.
type TickReader interface {
	ReadToday(ctx context.Context, instrumentID string) ([]domain.Tick, error)
}

// TrendProvider fetches a remote intraday trend.
type TrendProvider interface {
	Trend(ctx context.Context, code string) ([]domain.TrendPoint, error)
}

// EastmoneyTrends picks the fund estimate curve or the exchange minute
// curve depending on the instrument kind.
type EastmoneyTrends struct {
	client *eastmoney.Client
}

// NewEastmoneyTrends creates the remote trend provider.
func NewEastmoneyTrends(client *eastmoney.Client) *EastmoneyTrends {
	return &EastmoneyTrends{client: client}
}

// Trend implements TrendProvider.
func (e *EastmoneyTrends) Trend(ctx context.Context, code string) ([]domain.TrendPoint, error) {
	kind, err := domain.Classify(code)
	if err != nil {
		return nil, err
	}
	switch kind {
	case domain.KindFund:
		return e.client.FundTrend(ctx, code)
	case domain.KindExchangeTraded:
		return e.client.StockTrend(ctx, code)
	default:
		return nil, fmt.Errorf("no remote trend for %s instruments", kind)
	}
}

// Service serves merged intraday series. Remote trends are cached briefly
// because the chart is re-requested on every refresh.
type Service struct {
	ticks  TickReader
	remote TrendProvider
	trends *cache.Cache[[]domain.TrendPoint]
	now    func() time.Time
	log    zerolog.Logger
}

// NewService creates the intraday service.
func NewService(ticks TickReader, remote TrendProvider, trendTTL time.Duration, log zerolog.Logger) *Service {
	if trendTTL <= 0 {
		trendTTL = time.Minute
	}
	return &Service{
		ticks:  ticks,
		remote: remote,
		trends: cache.New[[]domain.TrendPoint]("intraday_trends", trendTTL),
		now:    time.Now,
		log:    log.With().Str("service", "intraday").Logger(),
	}
}

// TrendCache exposes the cache for metrics and sweeping.
func (s *Service) TrendCache() *cache.Cache[[]domain.TrendPoint] {
	return s.trends
}

// Series returns the merged series. A failing remote feed degrades to the
// local ticks; only a local read failure is an error.
func (s *Service) Series(ctx context.Context, code string) (domain.IntradaySeries, error) {
	local, err := s.ticks.ReadToday(ctx, code)
	if err != nil {
		return domain.IntradaySeries{}, fmt.Errorf("failed to read ticks for %s: %w", code, err)
	}

	var remote []domain.TrendPoint
	if s.remote != nil {
		remote, err = s.trends.GetOrLoad(ctx, cache.Key("trend", code), func(ctx context.Context) ([]domain.TrendPoint, error) {
			return s.remote.Trend(ctx, code)
		})
		if err != nil {
			s.log.Debug().Err(err).Str("code", code).Msg("Remote trend unavailable, using local ticks only")
			remote = nil
		}
	}

	return Merge(code, local, remote, s.now()), nil
}
