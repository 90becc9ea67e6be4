package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Tick is one persisted observation. Timestamp has second precision in the
// market zone.
type Tick struct {
	InstrumentID string    `json:"instrument_id"`
	Timestamp    time.Time `json:"timestamp"`
	PctChange    float64   `json:"pct_change"`
	Price        float64   `json:"price"`
}

// TickFromQuote converts a live quote into a storable tick.
func TickFromQuote(q Quote) (Tick, error) {
	ts, err := q.ObservedAt()
	if err != nil {
		return Tick{}, err
	}
	return Tick{
		InstrumentID: q.InstrumentID,
		Timestamp:    ts.Truncate(time.Second),
		PctChange:    q.PctChange,
		Price:        q.Price,
	}, nil
}

// NAVPoint is one confirmed end-of-day net asset value.
type NAVPoint struct {
	Date      time.Time `json:"date"`
	NAV       float64   `json:"nav"`
	PctChange float64   `json:"pct_change"`
}

// HistorySeries is a date-ascending NAV series without duplicate dates.
type HistorySeries struct {
	InstrumentID string     `json:"instrument_id"`
	Points       []NAVPoint `json:"points"`
}

// NewHistorySeries sorts points by date and keeps the last value seen for a
// repeated date.
func NewHistorySeries(code string, points []NAVPoint) HistorySeries {
	sorted := make([]NAVPoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.Before(sorted[j].Date) })

	out := sorted[:0]
	for _, p := range sorted {
		if n := len(out); n > 0 && sameDay(out[n-1].Date, p.Date) {
			out[n-1] = p
			continue
		}
		out = append(out, p)
	}
	return HistorySeries{InstrumentID: code, Points: out}
}

// Len returns the number of observations.
func (h HistorySeries) Len() int { return len(h.Points) }

// NAVs returns the values in date order.
func (h HistorySeries) NAVs() []float64 {
	navs := make([]float64, len(h.Points))
	for i, p := range h.Points {
		navs[i] = p.NAV
	}
	return navs
}

// Latest returns the most recent point.
func (h HistorySeries) Latest() (NAVPoint, bool) {
	if len(h.Points) == 0 {
		return NAVPoint{}, false
	}
	return h.Points[len(h.Points)-1], true
}

// Since returns the suffix of the series on or after from.
func (h HistorySeries) Since(from time.Time) HistorySeries {
	i := sort.Search(len(h.Points), func(i int) bool { return !h.Points[i].Date.Before(from) })
	return HistorySeries{InstrumentID: h.InstrumentID, Points: h.Points[i:]}
}

// TrendPoint is one intraday observation from either the tick store or a
// remote trend feed.
type TrendPoint struct {
	Time      time.Time `json:"time"`
	PctChange float64   `json:"pct_change"`
	Value     float64   `json:"value,omitempty"`
}

// IntradaySeries is the chart-ready merged series for one instrument.
type IntradaySeries struct {
	InstrumentID string       `json:"instrument_id"`
	Points       []TrendPoint `json:"points"`
	IsHistory    bool         `json:"is_history"`
	Source       string       `json:"source"`
}

// KlinePeriod is the bar width of a candle series.
type KlinePeriod string

// Kline periods.
const (
	PeriodDay   KlinePeriod = "day"
	PeriodWeek  KlinePeriod = "week"
	PeriodMonth KlinePeriod = "month"
)

// ParseKlinePeriod accepts day, week or month; empty means day.
func ParseKlinePeriod(s string) (KlinePeriod, error) {
	switch p := KlinePeriod(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PeriodDay, nil
	case PeriodDay, PeriodWeek, PeriodMonth:
		return p, nil
	}
	return "", fmt.Errorf("unknown kline period %q", s)
}

// Candle is one OHLC bar. Date is the bar's last trading day.
type Candle struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	Close  float64 `json:"close"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Volume float64 `json:"volume"`
	Amount float64 `json:"amount"`
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// SameDay reports whether two instants fall on the same calendar day in the market zone.
func SameDay(a, b time.Time) bool {
	return sameDay(a.In(MarketLocation()), b.In(MarketLocation()))
}
