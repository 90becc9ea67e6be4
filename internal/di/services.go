package di

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fundpulse/internal/clientdata"
	"github.com/aristath/fundpulse/internal/clients/eastmoney"
	"github.com/aristath/fundpulse/internal/clients/sina"
	"github.com/aristath/fundpulse/internal/clients/tiantian"
	"github.com/aristath/fundpulse/internal/clients/wire"
	"github.com/aristath/fundpulse/internal/config"
	"github.com/aristath/fundpulse/internal/metrics"
	"github.com/aristath/fundpulse/internal/modules/commentary"
	"github.com/aristath/fundpulse/internal/modules/diagnosis"
	"github.com/aristath/fundpulse/internal/modules/history"
	"github.com/aristath/fundpulse/internal/modules/holdings"
	"github.com/aristath/fundpulse/internal/modules/intraday"
	"github.com/aristath/fundpulse/internal/modules/market_hours"
	"github.com/aristath/fundpulse/internal/modules/plans"
	"github.com/aristath/fundpulse/internal/modules/sip"
	"github.com/aristath/fundpulse/internal/modules/stocks"
	"github.com/aristath/fundpulse/internal/modules/ticks"
	"github.com/aristath/fundpulse/internal/modules/valuation"
	"github.com/aristath/fundpulse/internal/modules/watchlist"
)

const (
	intradayTrendTTL = time.Minute
	stockKlineTTL    = 5 * time.Minute
)

// InitializeRepositories creates the repositories over the open stores.
func InitializeRepositories(container *Container, cfg *config.Config, log zerolog.Logger) error {
	if container.TicksDB == nil || container.PortfolioDB == nil || container.ClientDataDB == nil {
		return fmt.Errorf("databases not initialized")
	}
	container.ClientDataRepo = clientdata.NewRepository(container.ClientDataDB.Conn())
	container.TickRepo = ticks.NewRepository(container.TicksDB.Conn(), log)
	container.HoldingsRepo = holdings.NewRepository(container.PortfolioDB.Conn(), log)
	container.PlanRepo = plans.NewRepository(container.PortfolioDB.Conn(), log)
	container.SearchHistoryRepo = history.NewSearchHistoryRepository(container.PortfolioDB.Conn())
	container.IndexRepo = watchlist.NewIndexRepository(container.PortfolioDB.Conn(), cfg.DashboardIndices, log)
	container.FavoriteRepo = watchlist.NewFavoriteRepository(container.PortfolioDB.Conn(), log)
	return nil
}

// InitializeServices builds the upstream clients, the valuation pipeline and
// the services above it.
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	m := container.Metrics
	container.Calendar = market_hours.NewCalendar()

	// Upstream clients. EastMoney endpoints are not safe for concurrent use
	// and share one gate.
	container.SinaClient = sina.NewClient(cfg.AdapterTimeout, log,
		sina.WithBaseURLs(cfg.UpstreamEndpoints.SinaQuote, cfg.UpstreamEndpoints.SinaSuggest))
	container.TiantianClient = tiantian.NewClient(cfg.UpstreamEndpoints.Tiantian, cfg.AdapterTimeout, log)
	gate := wire.NewGate("eastmoney", func(waited time.Duration) {
		m.ObserveMutexWait("eastmoney", waited)
	})
	container.EastmoneyClient = eastmoney.NewClient(eastmoney.Config{}, gate, log)

	// History and the directory back both the last-known fallback and
	// the history_nav adapter.
	container.HistoryService = history.NewService(container.EastmoneyClient, container.ClientDataRepo, history.Config{
		HistoryTTL:   cfg.HistoryTTL,
		DirectoryTTL: cfg.DirectoryTTL,
	}, log)

	table, err := valuation.NewStrategyTable(valuation.DefaultOrder(),
		container.SinaClient,
		container.TiantianClient,
		eastmoney.NewBulkAdapter(container.EastmoneyClient),
		history.NewNAVAdapter(container.HistoryService),
	)
	if err != nil {
		return fmt.Errorf("failed to build strategy table: %w", err)
	}
	container.StrategyTable = table

	resolver := valuation.NewResolver(valuation.ResolverConfig{
		Table:     table,
		LastKnown: history.NewLastKnown(container.HistoryService, container.TickRepo, log),
		Timeout:   cfg.AdapterTimeout,
		Metrics:   m,
	}, log)
	container.ValuationService = valuation.NewService(valuation.ServiceConfig{
		Resolver: resolver,
		Coordinator: valuation.CoordinatorConfig{
			Workers:  cfg.FetchWorkers,
			Deadline: cfg.BatchDeadline,
			Metrics:  m,
		},
		QuoteTTL: cfg.QuoteTTL,
		Ticks:    container.TickRepo,
		Metrics:  m,
	}, log)

	container.IntradayService = intraday.NewService(container.TickRepo, intraday.NewEastmoneyTrends(container.EastmoneyClient), intradayTrendTTL, log)
	container.StocksService = stocks.NewService(container.SinaClient, container.EastmoneyClient, stockKlineTTL, log)

	rules, err := loadRules(cfg)
	if err != nil {
		return err
	}
	container.DiagnosisService = diagnosis.NewService(container.HistoryService, diagnosis.NewEngine(rules))
	container.SIPService = sip.NewService(container.HistoryService)
	container.HoldingsService = holdings.NewService(container.HoldingsRepo, container.ValuationService, container.Calendar, log)

	var ai commentary.Generator
	if cfg.AIEnabled() {
		gemini, err := commentary.NewGemini(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			log.Warn().Err(err).Msg("AI commentary disabled, using local reports")
		} else {
			ai = gemini
		}
	}
	container.CommentaryService = commentary.NewService(container.DiagnosisService, container.HistoryService, ai, log)

	container.Caches = append(container.HistoryService.Caches(),
		container.ValuationService.QuoteCache(),
		container.IntradayService.TrendCache(),
		container.EastmoneyClient.BulkCache(),
		container.StocksService.KlineCache(),
	)
	registerCacheMetrics(m, container)

	log.Info().
		Interface("strategy", table.Describe()).
		Bool("ai_commentary", ai != nil).
		Msg("Services initialized")
	return nil
}

// loadRules returns the scoring table from SCORING_RULES_FILE, or the
// built-in table with the configured risk-free rate.
func loadRules(cfg *config.Config) (diagnosis.Rules, error) {
	if cfg.ScoringRulesFile != "" {
		rules, err := diagnosis.LoadRules(cfg.ScoringRulesFile)
		if err != nil {
			return diagnosis.Rules{}, fmt.Errorf("failed to load scoring rules: %w", err)
		}
		return rules, nil
	}
	rules := diagnosis.DefaultRules()
	rules.RiskFreeRate = cfg.RiskFreeRate
	return rules, nil
}

func registerCacheMetrics(m *metrics.Metrics, c *Container) {
	for _, ch := range c.Caches {
		m.RegisterCache(ch)
	}
}
