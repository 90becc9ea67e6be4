// Package stocks serves exchange-traded market data: the realtime quote
// with its order book and daily/weekly/monthly candles.
package stocks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fundpulse/internal/cache"
	"github.com/aristath/fundpulse/internal/clients/sina"
	"github.com/aristath/fundpulse/internal/domain"
)

// ErrNotExchangeTraded is returned for codes without an exchange listing.
var ErrNotExchangeTraded = errors.New("not an exchange-traded instrument")

// DetailSource returns the realtime quote with order book.
type DetailSource interface {
	StockDetail(ctx context.Context, code string) (sina.StockDetail, error)
}

// KlineSource returns candles for one period.
type KlineSource interface {
	StockKline(ctx context.Context, code string, period domain.KlinePeriod) ([]domain.Candle, error)
}

// Service answers stock detail and kline requests. Candles change at most
// once per session, so they are cached; the detail never is.
type Service struct {
	detail  DetailSource
	klines  KlineSource
	candles *cache.Cache[[]domain.Candle]
	log     zerolog.Logger
}

// NewService creates the stocks service.
func NewService(detail DetailSource, klines KlineSource, klineTTL time.Duration, log zerolog.Logger) *Service {
	if klineTTL <= 0 {
		klineTTL = 5 * time.Minute
	}
	return &Service{
		detail:  detail,
		klines:  klines,
		candles: cache.New[[]domain.Candle]("stock_klines", klineTTL),
		log:     log.With().Str("service", "stocks").Logger(),
	}
}

// KlineCache exposes the candle cache for metrics and sweeping.
func (s *Service) KlineCache() *cache.Cache[[]domain.Candle] {
	return s.candles
}

// Detail returns the realtime detail of code.
func (s *Service) Detail(ctx context.Context, code string) (sina.StockDetail, error) {
	symbol, err := exchangeSymbol(code)
	if err != nil {
		return sina.StockDetail{}, err
	}
	return s.detail.StockDetail(ctx, symbol)
}

// Kline returns candles of code for period, oldest first.
func (s *Service) Kline(ctx context.Context, code string, period domain.KlinePeriod) ([]domain.Candle, error) {
	symbol, err := exchangeSymbol(code)
	if err != nil {
		return nil, err
	}
	candles, err := s.candles.GetOrLoad(ctx, cache.Key("kline", symbol, string(period)), func(ctx context.Context) ([]domain.Candle, error) {
		return s.klines.StockKline(ctx, symbol, period)
	})
	if err != nil {
		s.log.Warn().Err(err).Str("code", symbol).Str("period", string(period)).Msg("Kline fetch failed")
		return nil, err
	}
	return candles, nil
}

func exchangeSymbol(code string) (string, error) {
	kind, err := domain.Classify(code)
	if err != nil {
		return "", err
	}
	if kind != domain.KindExchangeTraded {
		return "", fmt.Errorf("%w: %s is a %s", ErrNotExchangeTraded, code, kind)
	}
	return domain.ExchangeSymbol(code), nil
}
