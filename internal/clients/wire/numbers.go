// Package wire holds parsing and transport helpers shared by the upstream
// quote clients.
package wire

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const (
	pricePlaces = 4
	pctPlaces   = 2
)

var hundred = decimal.NewFromInt(100)

func parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%"))
	if s == "" || s == "--" {
		return decimal.Zero, fmt.Errorf("empty numeric field")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid numeric field %q: %w", s, err)
	}
	return d, nil
}

// Price parses a price field rounded to four places.
func Price(s string) (float64, error) {
	d, err := parse(s)
	if err != nil {
		return 0, err
	}
	return d.Round(pricePlaces).InexactFloat64(), nil
}

// Pct parses a percent field ("1.23" or "1.23%") rounded to two places.
func Pct(s string) (float64, error) {
	d, err := parse(s)
	if err != nil {
		return 0, err
	}
	return d.Round(pctPlaces).InexactFloat64(), nil
}

// PctChange returns (price-ref)/ref*100 rounded to two places; zero when ref is not positive.
func PctChange(price, ref float64) float64 {
	r := decimal.NewFromFloat(ref)
	if !r.IsPositive() {
		return 0
	}
	return decimal.NewFromFloat(price).Sub(r).Div(r).Mul(hundred).Round(pctPlaces).InexactFloat64()
}

// RoundPrice rounds to four places.
func RoundPrice(v float64) float64 {
	return decimal.NewFromFloat(v).Round(pricePlaces).InexactFloat64()
}
