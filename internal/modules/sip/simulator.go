// Package sip backtests a systematic investment plan over NAV history.
package sip

import (
	"errors"
	"fmt"
	"time"

	"github.com/aristath/fundpulse/internal/domain"
)

// ErrNoPurchases means the rule never fired over the history; the caller
// cannot simulate, which is different from a zero return.
var ErrNoPurchases = errors.New("no purchases in simulated period")

// Frequency of contributions.
type Frequency string

const (
	Weekly  Frequency = "weekly"
	Monthly Frequency = "monthly"
)

// Band multipliers around the simulated trajectory.
const (
	OptimisticFactor  = 1.10
	PessimisticFactor = 0.90
)

// Params describe the plan. ExecutionDay is an ISO weekday (1 = Monday)
// for weekly plans and a day of month for monthly plans.
type Params struct {
	Amount        float64   `json:"amount"`
	Frequency     Frequency `json:"frequency"`
	ExecutionDay  int       `json:"execution_day"`
	DurationYears int       `json:"duration_years"`
}

// Validate checks the parameters.
func (p Params) Validate() error {
	if p.Amount <= 0 {
		return fmt.Errorf("amount must be positive")
	}
	if p.DurationYears < 1 {
		return fmt.Errorf("duration_years must be at least 1")
	}
	switch p.Frequency {
	case Weekly:
		if p.ExecutionDay < 1 || p.ExecutionDay > 7 {
			return fmt.Errorf("weekly execution_day must be 1-7, got %d", p.ExecutionDay)
		}
	case Monthly:
		if p.ExecutionDay < 1 || p.ExecutionDay > 31 {
			return fmt.Errorf("monthly execution_day must be 1-31, got %d", p.ExecutionDay)
		}
	default:
		return fmt.Errorf("unknown frequency %q", p.Frequency)
	}
	return nil
}

// Point is the plan state right after one purchase.
type Point struct {
	Date        string  `json:"date"`
	NAV         float64 `json:"nav"`
	Units       float64 `json:"units"`
	Invested    float64 `json:"invested"`
	Value       float64 `json:"value"`
	Optimistic  float64 `json:"optimistic"`
	Pessimistic float64 `json:"pessimistic"`
}

// Result summarises the backtest. FinalValue is valued at the last NAV of
// the window.
type Result struct {
	InvestedTotal    float64 `json:"invested_total"`
	FinalValue       float64 `json:"final_value"`
	YieldRate        float64 `json:"yield_rate"`
	Purchases        int     `json:"purchases"`
	FinalOptimistic  float64 `json:"final_optimistic"`
	FinalPessimistic float64 `json:"final_pessimistic"`
	Trajectory       []Point `json:"trajectory"`
}

// Simulate walks the last DurationYears of the series, buying once per
// calendar period on the first trading day on or after the execution day.
// A period with no such day is skipped.
func Simulate(series domain.HistorySeries, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	last, ok := series.Latest()
	if !ok {
		return nil, ErrNoPurchases
	}
	window := series.Since(last.Date.AddDate(-p.DurationYears, 0, 0))

	var (
		units, invested float64
		bought          = make(map[string]bool)
		trajectory      []Point
	)
	for _, pt := range window.Points {
		if pt.NAV <= 0 {
			continue
		}
		d := pt.Date.In(domain.MarketLocation())
		period, day := periodOf(d, p.Frequency)
		if bought[period] || day < p.ExecutionDay {
			continue
		}
		bought[period] = true

		units += p.Amount / pt.NAV
		invested += p.Amount
		value := units * pt.NAV
		trajectory = append(trajectory, Point{
			Date:        d.Format(domain.DateLayout),
			NAV:         pt.NAV,
			Units:       units,
			Invested:    invested,
			Value:       value,
			Optimistic:  value * OptimisticFactor,
			Pessimistic: value * PessimisticFactor,
		})
	}

	if len(trajectory) == 0 {
		return nil, ErrNoPurchases
	}

	final := units * last.NAV
	return &Result{
		InvestedTotal:    invested,
		FinalValue:       final,
		YieldRate:        (final - invested) / invested,
		Purchases:        len(trajectory),
		FinalOptimistic:  final * OptimisticFactor,
		FinalPessimistic: final * PessimisticFactor,
		Trajectory:       trajectory,
	}, nil
}

// periodOf returns the period key and the day within it.
func periodOf(d time.Time, f Frequency) (string, int) {
	if f == Weekly {
		year, week := d.ISOWeek()
		wd := int(d.Weekday())
		if wd == 0 {
			wd = 7
		}
		return fmt.Sprintf("%d-W%02d", year, week), wd
	}
	return d.Format("2006-01"), d.Day()
}
