// Package diagnosis scores a fund from its NAV history with a
// deterministic rule table.
package diagnosis

import (
	"errors"
	"fmt"
	"math"

	"github.com/aristath/fundpulse/internal/domain"
	"github.com/aristath/fundpulse/pkg/formulas"
)

// ErrInsufficientHistory is returned when the series is too short to score.
var ErrInsufficientHistory = errors.New("insufficient history")

// Metrics are the raw figures the score is built from. Ratios, not percents.
type Metrics struct {
	TotalReturn  float64 `json:"total_return"`
	MaxDrawdown  float64 `json:"max_drawdown"`
	Sharpe       float64 `json:"sharpe"`
	Observations int     `json:"observations"`
	StartDate    string  `json:"start_date"`
	EndDate      string  `json:"end_date"`
}

// Adjustment records one rule that moved the score.
type Adjustment struct {
	Metric    string  `json:"metric"`
	Op        string  `json:"op"`
	Threshold float64 `json:"threshold"`
	Delta     float64 `json:"delta"`
}

// Diagnosis is the scored result.
type Diagnosis struct {
	InstrumentID string       `json:"instrument_id"`
	Score        float64      `json:"score"`
	Conclusion   string       `json:"conclusion"`
	Metrics      Metrics      `json:"metrics"`
	Adjustments  []Adjustment `json:"adjustments"`
}

// InsufficientHistoryError carries how many observations were available.
type InsufficientHistoryError struct {
	Have, Need int
}

func (e *InsufficientHistoryError) Error() string {
	return fmt.Sprintf("%v: %d observations, need %d", ErrInsufficientHistory, e.Have, e.Need)
}

// Is lets errors.Is(err, ErrInsufficientHistory) match.
func (e *InsufficientHistoryError) Is(target error) bool { return target == ErrInsufficientHistory }

// Engine applies a rule table. It holds no mutable state.
type Engine struct {
	rules Rules
}

// NewEngine creates an engine over a validated rule table.
func NewEngine(rules Rules) *Engine {
	return &Engine{rules: rules}
}

// Rules returns the table in use.
func (e *Engine) Rules() Rules { return e.rules }

// Diagnose scores the series. Below the minimum sample size it returns an
// *InsufficientHistoryError rather than a misleading score.
func (e *Engine) Diagnose(series domain.HistorySeries) (Diagnosis, error) {
	if series.Len() < e.rules.MinObservations {
		return Diagnosis{}, &InsufficientHistoryError{Have: series.Len(), Need: e.rules.MinObservations}
	}

	navs := series.NAVs()
	first := series.Points[0]
	last, _ := series.Latest()
	m := Metrics{
		TotalReturn:  formulas.TotalReturn(navs),
		MaxDrawdown:  formulas.MaxDrawdown(navs),
		Sharpe:       formulas.SharpeFromPrices(navs, e.rules.RiskFreeRate),
		Observations: series.Len(),
		StartDate:    first.Date.In(domain.MarketLocation()).Format(domain.DateLayout),
		EndDate:      last.Date.In(domain.MarketLocation()).Format(domain.DateLayout),
	}

	score, adjustments := e.score(m)
	return Diagnosis{
		InstrumentID: series.InstrumentID,
		Score:        score,
		Conclusion:   e.conclude(score),
		Metrics:      m,
		Adjustments:  adjustments,
	}, nil
}

func (e *Engine) score(m Metrics) (float64, []Adjustment) {
	score := e.rules.BaseScore
	adjustments := []Adjustment{}
	for _, g := range e.rules.Groups {
		v := metricValue(m, g.Metric)
		for _, r := range g.Rules {
			if r.matches(v) {
				score += r.Delta
				adjustments = append(adjustments, Adjustment{Metric: g.Metric, Op: r.Op, Threshold: r.Threshold, Delta: r.Delta})
				break
			}
		}
	}
	score = math.Max(e.rules.MinScore, math.Min(e.rules.MaxScore, score))
	return math.Round(score*10) / 10, adjustments
}

func (e *Engine) conclude(score float64) string {
	for _, c := range e.rules.Conclusions {
		if score >= c.MinScore {
			return c.Text
		}
	}
	return e.rules.Conclusions[len(e.rules.Conclusions)-1].Text
}

func metricValue(m Metrics, metric string) float64 {
	switch metric {
	case MetricTotalReturn:
		return m.TotalReturn
	case MetricMaxDrawdown:
		return m.MaxDrawdown
	default:
		return m.Sharpe
	}
}
