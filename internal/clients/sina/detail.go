package sina

import (
	"context"
	"fmt"
	"strings"

	"github.com/aristath/fundpulse/internal/clients/wire"
	"github.com/aristath/fundpulse/internal/domain"
)

// Full quote layout beyond the fields parseFull reads. Bid volume/price
// pairs start at 10 and ask pairs at 20, best level first.
const (
	fieldOpen      = 1
	fieldHigh      = 4
	fieldLow       = 5
	fieldVolume    = 8
	fieldAmount    = 9
	fieldBidsStart = 10
	fieldAsksStart = 20
	bookDepth      = 5
)

// BookLevel is one price level of the order book. Volume is in shares.
type BookLevel struct {
	Price  float64 `json:"price"`
	Volume float64 `json:"volume"`
}

// StockDetail is a full realtime quote with the five-level order book.
type StockDetail struct {
	Quote  domain.Quote `json:"quote"`
	Change float64      `json:"change"`
	Open   float64      `json:"open"`
	High   float64      `json:"high"`
	Low    float64      `json:"low"`
	Volume float64      `json:"volume"` // shares
	Amount float64      `json:"amount"` // yuan
	Bids   []BookLevel  `json:"bids"`
	Asks   []BookLevel  `json:"asks"`
}

// StockDetail returns the realtime detail of an exchange-traded instrument.
// Indices carry no order book and are rejected.
func (c *Client) StockDetail(ctx context.Context, code string) (StockDetail, error) {
	symbol := domain.ExchangeSymbol(code)
	if strings.HasPrefix(symbol, "s_") || strings.HasPrefix(symbol, "int_") {
		return StockDetail{}, fmt.Errorf("sina: %s is an index and has no order book", code)
	}

	body, err := c.get(ctx, fmt.Sprintf("%s/list=%s", c.quoteURL, symbol))
	if err != nil {
		return StockDetail{}, err
	}
	fields, err := extractFields(body, symbol)
	if err != nil {
		return StockDetail{}, err
	}

	d, err := parseDetail(fields)
	if err != nil {
		return StockDetail{}, fmt.Errorf("%s: %w", symbol, err)
	}
	d.Quote.InstrumentID = code
	d.Quote.SourceID = SourceID
	return d, nil
}

func parseDetail(f []string) (StockDetail, error) {
	q, err := parseFull(f)
	if err != nil {
		return StockDetail{}, err
	}

	d := StockDetail{
		Quote:  q,
		Change: wire.RoundPrice(q.Price - q.ReferencePrice),
		Bids:   make([]BookLevel, 0, bookDepth),
		Asks:   make([]BookLevel, 0, bookDepth),
	}
	for _, field := range []struct {
		dst *float64
		idx int
	}{
		{&d.Open, fieldOpen},
		{&d.High, fieldHigh},
		{&d.Low, fieldLow},
		{&d.Volume, fieldVolume},
		{&d.Amount, fieldAmount},
	} {
		v, err := wire.Price(f[field.idx])
		if err != nil {
			return StockDetail{}, fmt.Errorf("field %d: %w", field.idx, err)
		}
		*field.dst = v
	}

	if d.Bids, err = parseBook(f, fieldBidsStart); err != nil {
		return StockDetail{}, fmt.Errorf("bids: %w", err)
	}
	if d.Asks, err = parseBook(f, fieldAsksStart); err != nil {
		return StockDetail{}, fmt.Errorf("asks: %w", err)
	}
	return d, nil
}

func parseBook(f []string, start int) ([]BookLevel, error) {
	levels := make([]BookLevel, 0, bookDepth)
	for i := 0; i < bookDepth; i++ {
		vol, err := wire.Price(f[start+2*i])
		if err != nil {
			return nil, fmt.Errorf("level %d volume: %w", i+1, err)
		}
		price, err := wire.Price(f[start+2*i+1])
		if err != nil {
			return nil, fmt.Errorf("level %d price: %w", i+1, err)
		}
		levels = append(levels, BookLevel{Price: price, Volume: vol})
	}
	return levels, nil
}
