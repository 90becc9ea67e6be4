package holdings

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fundpulse/internal/domain"
)

// MaxRecommendedHoldings is the position count above which the summary
// suggests consolidating.
const MaxRecommendedHoldings = 10

// Valuations is the current-valuation collaborator.
type Valuations interface {
	Current(ctx context.Context, codes []string) map[string]domain.Valuation
	Invalidate(codes ...string)
}

// TradingCalendar answers which day a trade is priced at.
type TradingCalendar interface {
	EffectiveTradingDate(t time.Time) time.Time
}

// Service manages holdings and values them.
type Service struct {
	repo       *Repository
	valuations Valuations
	calendar   TradingCalendar
	now        func() time.Time
	log        zerolog.Logger
}

// NewService creates the holdings service.
func NewService(repo *Repository, valuations Valuations, calendar TradingCalendar, log zerolog.Logger) *Service {
	return &Service{
		repo:       repo,
		valuations: valuations,
		calendar:   calendar,
		now:        time.Now,
		log:        log.With().Str("service", "holdings").Logger(),
	}
}

// NewHolding is the input for Add.
type NewHolding struct {
	InstrumentID string  `json:"instrument_id"`
	Name         string  `json:"name"`
	Units        float64 `json:"units"`
	CostBasis    float64 `json:"cost_basis"`
	AcquiredDate string  `json:"acquired_date"`
}

// List returns all holdings.
func (s *Service) List() ([]Holding, error) {
	return s.repo.GetAll()
}

// Codes returns the instrument codes of all holdings.
func (s *Service) Codes() ([]string, error) {
	holdings, err := s.repo.GetAll()
	if err != nil {
		return nil, err
	}
	codes := make([]string, len(holdings))
	for i, h := range holdings {
		codes[i] = h.InstrumentID
	}
	return codes, nil
}

// Add creates a holding. Adding an instrument already held merges the
// position as a buy at the given cost.
func (s *Service) Add(ctx context.Context, in NewHolding) (Holding, error) {
	in.InstrumentID = strings.TrimSpace(in.InstrumentID)
	if _, err := domain.Classify(in.InstrumentID); err != nil {
		return Holding{}, err
	}
	if in.Units < 0 || in.CostBasis < 0 {
		return Holding{}, fmt.Errorf("units and cost basis must not be negative")
	}
	if in.AcquiredDate == "" {
		in.AcquiredDate = s.now().In(domain.MarketLocation()).Format(domain.DateLayout)
	}
	if in.Name == "" {
		in.Name = s.quoteName(ctx, in.InstrumentID)
	}

	var h Holding
	err := s.repo.InTx(ctx, func(tx *Repository) error {
		existing, ok, err := tx.GetByInstrument(in.InstrumentID)
		if err != nil {
			return err
		}
		if !ok {
			h, err = tx.Create(Holding{
				InstrumentID: in.InstrumentID,
				Name:         in.Name,
				Units:        in.Units,
				CostBasis:    in.CostBasis,
				AcquiredDate: in.AcquiredDate,
			})
			return err
		}
		units, cost, err := ApplyTrade(existing.Units, existing.CostBasis, in.Units, in.CostBasis, Buy)
		if err != nil {
			return err
		}
		existing.Units, existing.CostBasis = units, cost
		h, err = tx.Update(existing)
		return err
	})
	if err != nil {
		return Holding{}, err
	}

	s.valuations.Invalidate(h.InstrumentID)
	s.log.Info().Str("code", h.InstrumentID).Float64("units", h.Units).Msg("Holding saved")
	return h, nil
}

// UpdateHolding is the input for Update.
type UpdateHolding struct {
	Name      *string  `json:"name,omitempty"`
	Units     *float64 `json:"units,omitempty"`
	CostBasis *float64 `json:"cost_basis,omitempty"`
}

// Update overwrites the given fields.
func (s *Service) Update(id int64, in UpdateHolding) (Holding, error) {
	h, err := s.repo.GetByID(id)
	if err != nil {
		return Holding{}, err
	}
	if in.Name != nil {
		h.Name = *in.Name
	}
	if in.Units != nil {
		if *in.Units < 0 {
			return Holding{}, fmt.Errorf("units must not be negative")
		}
		h.Units = *in.Units
	}
	if in.CostBasis != nil {
		if *in.CostBasis < 0 {
			return Holding{}, fmt.Errorf("cost basis must not be negative")
		}
		h.CostBasis = *in.CostBasis
	}

	h, err = s.repo.Update(h)
	if err != nil {
		return Holding{}, err
	}
	s.valuations.Invalidate(h.InstrumentID)
	return h, nil
}

// Delete removes a holding.
func (s *Service) Delete(id int64) error {
	h, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(id); err != nil {
		return err
	}
	s.valuations.Invalidate(h.InstrumentID)
	return nil
}

// Trade applies a buy (by amount) or sell (by units) to a holding.
func (s *Service) Trade(ctx context.Context, id int64, req TradeRequest) (TradeResult, error) {
	h, err := s.repo.GetByID(id)
	if err != nil {
		return TradeResult{}, err
	}

	price := req.Price
	if price <= 0 {
		price, err = s.currentPrice(ctx, h.InstrumentID)
		if err != nil {
			return TradeResult{}, err
		}
	}

	var tradeUnits float64
	switch req.Side {
	case Buy:
		if req.Amount <= 0 {
			return TradeResult{}, fmt.Errorf("buy amount must be positive")
		}
		tradeUnits = req.Amount / price
	case Sell:
		if req.Units <= 0 {
			return TradeResult{}, fmt.Errorf("sell units must be positive")
		}
		tradeUnits = req.Units
	default:
		return TradeResult{}, fmt.Errorf("unknown trade side %q", req.Side)
	}

	// The price lookup can be slow, so the holding is re-read inside the
	// transaction rather than trusting the copy loaded above.
	err = s.repo.InTx(ctx, func(tx *Repository) error {
		current, err := tx.GetByID(id)
		if err != nil {
			return err
		}
		units, cost, err := ApplyTrade(current.Units, current.CostBasis, tradeUnits, price, req.Side)
		if err != nil {
			return err
		}
		current.Units, current.CostBasis = units, cost
		h, err = tx.Update(current)
		return err
	})
	if err != nil {
		return TradeResult{}, err
	}
	s.valuations.Invalidate(h.InstrumentID)

	effective := s.calendar.EffectiveTradingDate(s.now()).Format(domain.DateLayout)
	s.log.Info().
		Str("code", h.InstrumentID).
		Str("side", string(req.Side)).
		Float64("units", tradeUnits).
		Float64("price", price).
		Str("effective_date", effective).
		Msg("Trade applied")

	return TradeResult{Holding: h, TradeUnits: tradeUnits, TradePrice: price, EffectiveDate: effective}, nil
}

func (s *Service) currentPrice(ctx context.Context, code string) (float64, error) {
	v := s.valuations.Current(ctx, []string{code})[code]
	if v.Status != domain.StatusLive || v.Quote == nil || v.Quote.Price <= 0 {
		return 0, fmt.Errorf("%w: %s is %s, enter the trade price", ErrNoLivePrice, code, orUnavailable(v.Status))
	}
	return v.Quote.Price, nil
}

func orUnavailable(status domain.ValuationStatus) domain.ValuationStatus {
	if status == "" {
		return domain.StatusUnavailable
	}
	return status
}

func (s *Service) quoteName(ctx context.Context, code string) string {
	v := s.valuations.Current(ctx, []string{code})[code]
	if v.Quote != nil {
		return v.Quote.Name
	}
	return ""
}

// Summary values every holding at its current quote. Holdings without a
// usable quote are valued at cost.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	holdings, err := s.repo.GetAll()
	if err != nil {
		return Summary{}, err
	}

	codes := make([]string, len(holdings))
	for i, h := range holdings {
		codes[i] = h.InstrumentID
	}
	vals := s.valuations.Current(ctx, codes)

	sum := Summary{Positions: make([]Position, 0, len(holdings)), Suggestions: []string{}}
	for _, h := range holdings {
		p := value(h, vals[h.InstrumentID])
		if p.IsStale {
			sum.StaleCount++
		}
		sum.TotalMarketValue += p.MarketValue
		sum.TotalCost += p.Cost
		sum.DayProfit += p.DayProfit
		sum.Positions = append(sum.Positions, p)
	}
	sum.TotalProfit = sum.TotalMarketValue - sum.TotalCost
	if sum.TotalCost > 0 {
		sum.TotalProfitRate = sum.TotalProfit / sum.TotalCost
	}
	sum.TotalMarketValue = round2(sum.TotalMarketValue)
	sum.TotalCost = round2(sum.TotalCost)
	sum.TotalProfit = round2(sum.TotalProfit)
	sum.DayProfit = round2(sum.DayProfit)

	if len(holdings) > MaxRecommendedHoldings {
		sum.Suggestions = append(sum.Suggestions, fmt.Sprintf(
			"Holding %d instruments, more than the recommended 5-8. Over-diversifying dilutes returns; consider consolidating.", len(holdings)))
	}
	return sum, nil
}

// value prices one holding. Day profit uses the reference price when the
// source gave one, otherwise it is backed out of the percent change.
func value(h Holding, v domain.Valuation) Position {
	p := Position{Holding: h, Status: v.Status, IsStale: v.IsStale}
	if v.Status == "" {
		p.Status = domain.StatusUnavailable
		p.IsStale = true
	}
	p.Cost = h.Units * h.CostBasis

	if v.Quote == nil || v.Quote.Price <= 0 {
		p.MarketValue = p.Cost
		return p
	}

	q := v.Quote
	p.SourceID = q.SourceID
	p.Price = q.Price
	p.PctChange = q.PctChange
	p.MarketValue = h.Units * q.Price
	p.Profit = p.MarketValue - p.Cost
	if p.Cost > 0 {
		p.ProfitRate = p.Profit / p.Cost
	}

	switch {
	case q.ReferencePrice > 0:
		p.DayProfit = (q.Price - q.ReferencePrice) * h.Units
	case q.PctChange != 0:
		prev := q.Price / (1 + q.PctChange/100)
		p.DayProfit = (q.Price - prev) * h.Units
	}
	return p
}

// TakeSnapshot stores today's totals.
func (s *Service) TakeSnapshot(ctx context.Context) (Snapshot, error) {
	sum, err := s.Summary(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{
		Date:             s.now().In(domain.MarketLocation()).Format(domain.DateLayout),
		TotalMarketValue: sum.TotalMarketValue,
		TotalCost:        sum.TotalCost,
		DayProfit:        sum.DayProfit,
	}
	if err := s.repo.UpsertSnapshot(snap); err != nil {
		return Snapshot{}, err
	}
	return snap, nil
}

// Snapshots returns recent snapshots.
func (s *Service) Snapshots(limit int) ([]Snapshot, error) {
	return s.repo.Snapshots(limit)
}

// IsNotFound reports whether err is a missing holding.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrHoldingNotFound)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
