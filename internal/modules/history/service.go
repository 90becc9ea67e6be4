// Package history provides confirmed NAV history and the fund name
// directory. Both change at most daily, so they are cached in memory and
// persisted to the client data store, where an expired copy still serves
// when the upstream is down.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fundpulse/internal/cache"
	"github.com/aristath/fundpulse/internal/clientdata"
	"github.com/aristath/fundpulse/internal/clients/eastmoney"
	"github.com/aristath/fundpulse/internal/domain"
)

// DefaultLookbackYears is how much history is fetched and cached per instrument.
const DefaultLookbackYears = 5

// Fetcher is the upstream for history and the directory.
type Fetcher interface {
	NAVHistory(ctx context.Context, code string, start, end time.Time) (domain.HistorySeries, error)
	FundDirectory(ctx context.Context) ([]eastmoney.FundInfo, error)
}

// Service serves NAV history and the fund directory.
type Service struct {
	fetcher   Fetcher
	store     *clientdata.Repository
	series    *cache.Cache[domain.HistorySeries]
	directory *cache.Cache[[]eastmoney.FundInfo]
	lookback  int
	now       func() time.Time
	log       zerolog.Logger
}

// Config holds service configuration
type Config struct {
	HistoryTTL    time.Duration
	DirectoryTTL  time.Duration
	LookbackYears int
}

// NewService creates the history service. store may be nil.
func NewService(fetcher Fetcher, store *clientdata.Repository, cfg Config, log zerolog.Logger) *Service {
	if cfg.HistoryTTL <= 0 {
		cfg.HistoryTTL = time.Hour
	}
	if cfg.DirectoryTTL <= 0 {
		cfg.DirectoryTTL = clientdata.TTLFundDirectory
	}
	if cfg.LookbackYears <= 0 {
		cfg.LookbackYears = DefaultLookbackYears
	}
	return &Service{
		fetcher:   fetcher,
		store:     store,
		series:    cache.New[domain.HistorySeries]("nav_history", cfg.HistoryTTL),
		directory: cache.New[[]eastmoney.FundInfo]("fund_directory", cfg.DirectoryTTL),
		lookback:  cfg.LookbackYears,
		now:       time.Now,
		log:       log.With().Str("service", "history").Logger(),
	}
}

// Caches exposes the in-memory caches for metrics and sweeping.
func (s *Service) Caches() []cache.Sweeper {
	return []cache.Sweeper{s.series, s.directory}
}

// SeriesCache returns the NAV history cache.
func (s *Service) SeriesCache() *cache.Cache[domain.HistorySeries] { return s.series }

// DirectoryCache returns the fund directory cache.
func (s *Service) DirectoryCache() *cache.Cache[[]eastmoney.FundInfo] { return s.directory }

// Series returns the NAV history of the last years (capped by the lookback).
func (s *Service) Series(ctx context.Context, code string, years int) (domain.HistorySeries, error) {
	full, err := s.series.GetOrLoad(ctx, cache.Key("history", code), func(ctx context.Context) (domain.HistorySeries, error) {
		return s.load(ctx, code)
	})
	if err != nil {
		return domain.HistorySeries{}, err
	}
	if years <= 0 || years >= s.lookback {
		return full, nil
	}
	return full.Since(s.now().In(domain.MarketLocation()).AddDate(-years, 0, 0)), nil
}

// load reads a fresh persisted copy, then upstream, then an expired copy.
func (s *Service) load(ctx context.Context, code string) (domain.HistorySeries, error) {
	var cached domain.HistorySeries
	if s.store != nil {
		if ok, err := s.store.GetIfFresh(clientdata.TableNAVHistory, code, &cached); err == nil && ok {
			return cached, nil
		}
	}

	end := s.now().In(domain.MarketLocation())
	start := end.AddDate(-s.lookback, 0, 0)
	series, err := s.fetcher.NAVHistory(ctx, code, start, end)
	if err == nil && series.Len() > 0 {
		if s.store != nil {
			if err := s.store.Store(clientdata.TableNAVHistory, code, series, clientdata.TTLNAVHistory); err != nil {
				s.log.Warn().Err(err).Str("code", code).Msg("Failed to persist NAV history")
			}
		}
		return series, nil
	}
	if err == nil {
		err = fmt.Errorf("no NAV history for %s", code)
	}

	if stale, ok := s.persisted(code); ok {
		s.log.Warn().Err(err).Str("code", code).Msg("Using stale NAV history")
		return stale, nil
	}
	return domain.HistorySeries{}, fmt.Errorf("failed to load NAV history for %s: %w", code, err)
}

// persisted returns the stored copy regardless of expiry.
func (s *Service) persisted(code string) (domain.HistorySeries, bool) {
	if s.store == nil {
		return domain.HistorySeries{}, false
	}
	var series domain.HistorySeries
	ok, err := s.store.Get(clientdata.TableNAVHistory, code, &series)
	if err != nil || !ok || series.Len() == 0 {
		return domain.HistorySeries{}, false
	}
	return series, true
}

// Cached returns the history already held in memory or on disk, expired
// or not, without any network call.
func (s *Service) Cached(code string) (domain.HistorySeries, bool) {
	if series, ok := s.series.Get(cache.Key("history", code)); ok && series.Len() > 0 {
		return series, true
	}
	return s.persisted(code)
}
