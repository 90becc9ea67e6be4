package sina

import (
	"fmt"
	"strings"
	"time"

	"github.com/aristath/fundpulse/internal/clients/wire"
	"github.com/aristath/fundpulse/internal/domain"
)

// Full quote layout: name, open, pre_close, price, ..., [30] date, [31] time.
const (
	fieldName     = 0
	fieldPreClose = 2
	fieldPrice    = 3
	fieldDate     = 30
	fieldTime     = 31
	minFields     = 32
)

// extractFields pulls the quoted payload for symbol out of
// `var hq_str_<symbol>="a,b,c";`.
func extractFields(body, symbol string) ([]string, error) {
	marker := "hq_str_" + symbol + "=\""
	i := strings.Index(body, marker)
	if i < 0 {
		return nil, fmt.Errorf("sina: no payload for %s", symbol)
	}
	rest := body[i+len(marker):]
	j := strings.IndexByte(rest, '"')
	if j < 0 {
		return nil, fmt.Errorf("sina: unterminated payload for %s", symbol)
	}
	payload := strings.TrimSpace(rest[:j])
	if payload == "" {
		return nil, fmt.Errorf("sina: empty payload for %s (unknown symbol)", symbol)
	}
	return strings.Split(payload, ","), nil
}

// parseFull handles stock/ETF quotes. Before the open the price field is 0
// and the previous close stands in for it.
func parseFull(f []string) (domain.Quote, error) {
	if len(f) < minFields {
		return domain.Quote{}, fmt.Errorf("short quote: %d fields", len(f))
	}

	preClose, err := wire.Price(f[fieldPreClose])
	if err != nil {
		return domain.Quote{}, fmt.Errorf("pre_close: %w", err)
	}
	price, err := wire.Price(f[fieldPrice])
	if err != nil {
		return domain.Quote{}, fmt.Errorf("price: %w", err)
	}
	if price <= 0 {
		price = preClose
	}
	if price <= 0 {
		return domain.Quote{}, fmt.Errorf("no price")
	}

	return domain.Quote{
		Name:           f[fieldName],
		Price:          price,
		ReferencePrice: preClose,
		PctChange:      wire.PctChange(price, preClose),
		ObservedDate:   strings.TrimSpace(f[fieldDate]),
		ObservedTime:   strings.TrimSpace(f[fieldTime]),
	}, nil
}

// parseIndex handles the simple index layout: name, price, change, pct.
// The feed carries no timestamp so the fetch time is used.
func parseIndex(f []string, now time.Time) (domain.Quote, error) {
	if len(f) < 4 {
		return domain.Quote{}, fmt.Errorf("short index quote: %d fields", len(f))
	}
	price, err := wire.Price(f[1])
	if err != nil {
		return domain.Quote{}, fmt.Errorf("price: %w", err)
	}
	change, err := wire.Price(f[2])
	if err != nil {
		return domain.Quote{}, fmt.Errorf("change: %w", err)
	}
	pct, err := wire.Pct(f[3])
	if err != nil {
		return domain.Quote{}, fmt.Errorf("pct: %w", err)
	}

	ref := wire.RoundPrice(price - change)
	if ref < 0 {
		ref = 0
	}
	return domain.Quote{
		Name:           f[0],
		Price:          price,
		ReferencePrice: ref,
		PctChange:      pct,
		ObservedDate:   now.Format(domain.DateLayout),
		ObservedTime:   now.Format(domain.TimeLayout),
	}, nil
}

// parseSuggest reads `var suggestvalue="item;item";` where each item is
// `key,type,symbol,fullcode,name,...`.
func parseSuggest(body string) []StockMatch {
	start := strings.IndexByte(body, '"')
	end := strings.LastIndexByte(body, '"')
	if start < 0 || end <= start {
		return nil
	}

	var out []StockMatch
	for _, item := range strings.Split(body[start+1:end], ";") {
		parts := strings.Split(item, ",")
		if len(parts) < 5 {
			continue
		}
		full := parts[3]
		if len(full) < 2 {
			continue
		}
		market := full[:2]
		if market != "sh" && market != "sz" {
			continue
		}
		out = append(out, StockMatch{Code: full, Symbol: parts[2], Market: market, Name: parts[4]})
	}
	return out
}
