package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// Quote is a normalized observation from a single source. ReferencePrice 0
// means the source did not report one; PctChange is then taken verbatim from
// the source.
type Quote struct {
	InstrumentID   string  `json:"instrument_id"`
	Name           string  `json:"name,omitempty"`
	Price          float64 `json:"price"`
	PctChange      float64 `json:"pct_change"`
	ReferencePrice float64 `json:"reference_price"`
	ObservedDate   string  `json:"observed_date"`
	ObservedTime   string  `json:"observed_time"`
	SourceID       string  `json:"source_id"`
}

// PctTolerance is how far, in percentage points, a sourced PctChange may
// drift from the one implied by Price and ReferencePrice. Feeds round
// prices and percentages separately, so exact agreement is not expected.
const PctTolerance = 0.05

// Validate checks the invariants every adapter must uphold.
func (q Quote) Validate() error {
	if q.InstrumentID == "" {
		return fmt.Errorf("quote has no instrument id")
	}
	if q.Price < 0 || q.ReferencePrice < 0 {
		return fmt.Errorf("quote %s has negative price", q.InstrumentID)
	}
	if q.SourceID == "" {
		return fmt.Errorf("quote %s has no source id", q.InstrumentID)
	}
	if q.ReferencePrice > 0 {
		implied := (q.Price - q.ReferencePrice) / q.ReferencePrice * 100
		if math.Abs(implied-q.PctChange) > PctTolerance {
			return fmt.Errorf("quote %s reports %.2f%% but price implies %.2f%%", q.InstrumentID, q.PctChange, implied)
		}
	}
	return nil
}

// ObservedAt parses the observed date and time in the market zone.
// A HH:MM time is padded to whole minutes.
func (q Quote) ObservedAt() (time.Time, error) {
	return ParseTimestamp(q.ObservedDate, q.ObservedTime)
}

// ParseTimestamp joins a date and a HH:MM[:SS] time into a market-zone instant.
func ParseTimestamp(date, clock string) (time.Time, error) {
	clock = strings.TrimSpace(clock)
	if len(clock) == 5 {
		clock += ":00"
	}
	ts, err := time.ParseInLocation(TimestampLayout, strings.TrimSpace(date)+" "+clock, MarketLocation())
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q %q: %w", date, clock, err)
	}
	return ts, nil
}

// ValuationStatus tells a caller how much weight a number deserves.
type ValuationStatus string

const (
	StatusLive        ValuationStatus = "live"
	StatusStale       ValuationStatus = "stale"
	StatusUnavailable ValuationStatus = "unavailable"
)

// Valuation is the resolver outcome for one instrument. Quote is nil only
// when Status is unavailable. IsStale is always serialised so consumers
// cannot mistake a last-known fallback for a live figure.
type Valuation struct {
	InstrumentID string          `json:"instrument_id"`
	Status       ValuationStatus `json:"status"`
	IsStale      bool            `json:"is_stale"`
	Quote        *Quote          `json:"quote,omitempty"`
	Reason       string          `json:"reason,omitempty"`
}

// Live wraps a fresh quote.
func Live(q Quote) Valuation {
	return Valuation{InstrumentID: q.InstrumentID, Status: StatusLive, Quote: &q}
}

// Stale wraps a last-known fallback quote.
func Stale(q Quote, reason string) Valuation {
	return Valuation{InstrumentID: q.InstrumentID, Status: StatusStale, IsStale: true, Quote: &q, Reason: reason}
}

// Unavailable reports that no figure could be produced.
func Unavailable(code, reason string) Valuation {
	return Valuation{InstrumentID: code, Status: StatusUnavailable, IsStale: true, Reason: reason}
}
