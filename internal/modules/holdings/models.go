// Package holdings tracks positions, applies trades with weighted-average
// cost accounting and values the portfolio against current quotes.
package holdings

import (
	"errors"

	"github.com/aristath/fundpulse/internal/domain"
)

// ErrHoldingNotFound is returned for an unknown holding id.
var ErrHoldingNotFound = errors.New("holding not found")

// ErrNoLivePrice is returned when a trade omits its price and the
// instrument has no live quote to fill it in.
var ErrNoLivePrice = errors.New("no live price")

// Holding is one position. CostBasis is the average cost per unit.
type Holding struct {
	ID           int64   `json:"id"`
	InstrumentID string  `json:"instrument_id"`
	Name         string  `json:"name"`
	Units        float64 `json:"units"`
	CostBasis    float64 `json:"cost_basis"`
	AcquiredDate string  `json:"acquired_date"`
	CreatedAt    int64   `json:"created_at"`
	UpdatedAt    int64   `json:"updated_at"`
}

// Side of a trade.
type Side string

const (
	Buy  Side = "buy"
	Sell Side = "sell"
)

// TradeRequest enters a trade against a holding. Buys are entered as money
// (Amount), sells as units. Price 0 uses the current valuation.
type TradeRequest struct {
	Side   Side    `json:"side"`
	Amount float64 `json:"amount,omitempty"`
	Units  float64 `json:"units,omitempty"`
	Price  float64 `json:"price,omitempty"`
}

// TradeResult reports the applied trade.
type TradeResult struct {
	Holding       Holding `json:"holding"`
	TradeUnits    float64 `json:"trade_units"`
	TradePrice    float64 `json:"trade_price"`
	EffectiveDate string  `json:"effective_date"`
}

// Position is a holding valued at its current quote.
type Position struct {
	Holding
	Status      domain.ValuationStatus `json:"status"`
	IsStale     bool                   `json:"is_stale"`
	SourceID    string                 `json:"source_id,omitempty"`
	Price       float64                `json:"price"`
	PctChange   float64                `json:"pct_change"`
	MarketValue float64                `json:"market_value"`
	Cost        float64                `json:"cost"`
	Profit      float64                `json:"profit"`
	ProfitRate  float64                `json:"profit_rate"`
	DayProfit   float64                `json:"day_profit"`
}

// Summary is the valued portfolio.
type Summary struct {
	Positions        []Position `json:"positions"`
	TotalMarketValue float64    `json:"total_market_value"`
	TotalCost        float64    `json:"total_cost"`
	TotalProfit      float64    `json:"total_profit"`
	TotalProfitRate  float64    `json:"total_profit_rate"`
	DayProfit        float64    `json:"day_profit"`
	StaleCount       int        `json:"stale_count"`
	Suggestions      []string   `json:"suggestions"`
}

// Snapshot is the end-of-day portfolio total.
type Snapshot struct {
	Date             string  `json:"date"`
	TotalMarketValue float64 `json:"total_market_value"`
	TotalCost        float64 `json:"total_cost"`
	DayProfit        float64 `json:"day_profit"`
}
