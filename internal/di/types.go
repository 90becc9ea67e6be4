// Package di wires databases, clients, services and jobs into one container.
package di

import (
	"github.com/aristath/fundpulse/internal/cache"
	"github.com/aristath/fundpulse/internal/clientdata"
	"github.com/aristath/fundpulse/internal/clients/eastmoney"
	"github.com/aristath/fundpulse/internal/clients/sina"
	"github.com/aristath/fundpulse/internal/clients/tiantian"
	"github.com/aristath/fundpulse/internal/database"
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
	"github.com/aristath/fundpulse/internal/scheduler"
)

// Container holds all dependencies for the application.
type Container struct {
	// Databases
	TicksDB      *database.DB
	PortfolioDB  *database.DB
	ClientDataDB *database.DB

	Metrics  *metrics.Metrics
	Calendar *market_hours.Calendar

	// Upstream clients
	SinaClient      *sina.Client
	TiantianClient  *tiantian.Client
	EastmoneyClient *eastmoney.Client

	// Repositories
	ClientDataRepo    *clientdata.Repository
	TickRepo          *ticks.Repository
	HoldingsRepo      *holdings.Repository
	PlanRepo          *plans.Repository
	SearchHistoryRepo *history.SearchHistoryRepository
	IndexRepo         *watchlist.IndexRepository
	FavoriteRepo      *watchlist.FavoriteRepository

	// Services
	HistoryService    *history.Service
	StrategyTable     *valuation.StrategyTable
	ValuationService  *valuation.Service
	IntradayService   *intraday.Service
	DiagnosisService  *diagnosis.Service
	SIPService        *sip.Service
	HoldingsService   *holdings.Service
	CommentaryService *commentary.Service
	StocksService     *stocks.Service

	// Caches are every in-memory cache, for sweeping and metrics.
	Caches []cache.Sweeper
}

// Databases returns the open stores.
func (c *Container) Databases() []*database.DB {
	var out []*database.DB
	for _, db := range []*database.DB{c.TicksDB, c.PortfolioDB, c.ClientDataDB} {
		if db != nil {
			out = append(out, db)
		}
	}
	return out
}

// Close closes every store.
func (c *Container) Close() {
	for _, db := range c.Databases() {
		_ = db.Close()
	}
}

// ScheduledJob pairs a job with its cron schedule.
type ScheduledJob struct {
	Schedule string
	Job      scheduler.Job
}

// JobInstances holds the background jobs.
type JobInstances struct {
	TickPoller        ScheduledJob
	TickRetention     ScheduledJob
	ClientDataCleanup ScheduledJob
	CacheSweep        ScheduledJob
	AssetSnapshot     ScheduledJob
	WALCheckpoint     ScheduledJob
}

// All returns the jobs in registration order.
func (j *JobInstances) All() []ScheduledJob {
	return []ScheduledJob{j.TickPoller, j.TickRetention, j.ClientDataCleanup, j.CacheSweep, j.AssetSnapshot, j.WALCheckpoint}
}
