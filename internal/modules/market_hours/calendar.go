// Package market_hours knows the mainland trading session: when quotes
// move and which day a trade entered now will be priced at.
package market_hours

import (
	"time"

	"github.com/aristath/fundpulse/internal/domain"
)

// Session is a half-day window in minutes since midnight, inclusive. The
// bounds are padded a few minutes around the official session so that
// pre-open estimates and late prints are still captured.
type Session struct {
	Name  string
	Start int
	End   int
}

// Sessions of a trading day.
var Sessions = []Session{
	{Name: "morning", Start: 9*60 + 15, End: 11*60 + 35},
	{Name: "afternoon", Start: 12*60 + 55, End: 15*60 + 5},
}

// NAVCutoff is the time after which a fund order is priced on the next
// trading day.
const NAVCutoff = 15 * 60

// Status describes the market at one instant.
type Status struct {
	Open          bool   `json:"open"`
	Session       string `json:"session,omitempty"`
	Timezone      string `json:"timezone"`
	Now           string `json:"now"`
	EffectiveDate string `json:"effective_trading_date"`
}

// Calendar answers session questions. Holidays are not modelled; weekdays
// are trading days.
type Calendar struct {
	loc *time.Location
}

// NewCalendar creates a calendar in the market time zone.
func NewCalendar() *Calendar {
	return &Calendar{loc: domain.MarketLocation()}
}

// IsTradingTime reports whether t falls inside a session on a weekday.
func (c *Calendar) IsTradingTime(t time.Time) bool {
	_, ok := c.session(t)
	return ok
}

// EffectiveTradingDate is today for a weekday before 15:00, otherwise the
// next weekday.
func (c *Calendar) EffectiveTradingDate(t time.Time) time.Time {
	t = t.In(c.loc)
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, c.loc)
	if isWeekday(t) && t.Hour()*60+t.Minute() < NAVCutoff {
		return day
	}
	next := day.AddDate(0, 0, 1)
	for !isWeekday(next) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// Status reports the market state at t.
func (c *Calendar) Status(t time.Time) Status {
	t = t.In(c.loc)
	s, open := c.session(t)
	return Status{
		Open:          open,
		Session:       s.Name,
		Timezone:      c.loc.String(),
		Now:           t.Format(domain.TimestampLayout),
		EffectiveDate: c.EffectiveTradingDate(t).Format(domain.DateLayout),
	}
}

func (c *Calendar) session(t time.Time) (Session, bool) {
	t = t.In(c.loc)
	if !isWeekday(t) {
		return Session{}, false
	}
	minute := t.Hour()*60 + t.Minute()
	for _, s := range Sessions {
		if minute >= s.Start && minute <= s.End {
			return s, true
		}
	}
	return Session{}, false
}

func isWeekday(t time.Time) bool {
	return t.Weekday() != time.Saturday && t.Weekday() != time.Sunday
}
