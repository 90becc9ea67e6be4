// Package domain holds the value types shared by the valuation, tick and
// analytics packages.
package domain

import (
	"fmt"
	"strings"
	"time"
)

// InstrumentKind selects which quote sources apply to a code.
type InstrumentKind string

const (
	// KindFund is an off-exchange fund, priced once a day with an intraday estimate.
	KindFund InstrumentKind = "fund"
	// KindExchangeTraded is continuously priced during the session (ETFs, LOFs, stocks).
	KindExchangeTraded InstrumentKind = "exchange_traded"
	// KindIndex is a market index quoted by the exchange feed.
	KindIndex InstrumentKind = "index"
)

// exchangeFundPrefixes are fund code prefixes that trade on an exchange.
var exchangeFundPrefixes = []string{"15", "16", "18", "50", "51", "56", "58"}

// Classify determines the instrument kind from its code.
//
//	s_sh000300, int_dji    -> index
//	sh600519, sz000001     -> exchange traded
//	510300, 159915         -> exchange traded (fund prefixes)
//	000001                 -> fund
func Classify(code string) (InstrumentKind, error) {
	code = strings.TrimSpace(code)
	switch {
	case strings.HasPrefix(code, "s_"), strings.HasPrefix(code, "int_"):
		return KindIndex, nil
	case (strings.HasPrefix(code, "sh") || strings.HasPrefix(code, "sz")) && isDigits(code[2:], 6):
		return KindExchangeTraded, nil
	case isDigits(code, 6):
		for _, p := range exchangeFundPrefixes {
			if strings.HasPrefix(code, p) {
				return KindExchangeTraded, nil
			}
		}
		return KindFund, nil
	}
	return "", fmt.Errorf("unrecognised instrument code %q", code)
}

// ExchangeSymbol returns the exchange-qualified symbol (sh/sz prefixed).
// Bare codes starting with 5 or 6 list in Shanghai, the rest in Shenzhen.
func ExchangeSymbol(code string) string {
	if strings.HasPrefix(code, "sh") || strings.HasPrefix(code, "sz") ||
		strings.HasPrefix(code, "s_") || strings.HasPrefix(code, "int_") {
		return code
	}
	if strings.HasPrefix(code, "5") || strings.HasPrefix(code, "6") {
		return "sh" + code
	}
	return "sz" + code
}

// BareCode strips an sh/sz exchange prefix.
func BareCode(code string) string {
	if len(code) == 8 && (strings.HasPrefix(code, "sh") || strings.HasPrefix(code, "sz")) {
		return code[2:]
	}
	return code
}

func isDigits(s string, n int) bool {
	if len(s) != n {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

var marketLocation = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		return time.FixedZone("CST", 8*3600)
	}
	return loc
}()

// MarketLocation is the exchange time zone all dates and session times are expressed in.
func MarketLocation() *time.Location {
	return marketLocation
}

// DateLayout and TimestampLayout are the wire and storage formats for dates and ticks.
const (
	DateLayout      = "2006-01-02"
	TimeLayout      = "15:04:05"
	TimestampLayout = "2006-01-02 15:04:05"
)
