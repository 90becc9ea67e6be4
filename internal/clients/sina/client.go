// Package sina reads the Sina Finance hq feed for exchange-traded
// instruments and indices, and its suggest endpoint for stock search.
package sina

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fundpulse/internal/clients/wire"
	"github.com/aristath/fundpulse/internal/domain"
)

// SourceID identifies quotes produced by this client.
const SourceID = "sina"

const (
	defaultQuoteURL   = "http://hq.sinajs.cn"
	defaultSuggestURL = "http://suggest3.sinajs.cn"
	referer           = "https://finance.sina.com.cn/"
)

// Client for the Sina hq and suggest endpoints. Safe for concurrent use.
type Client struct {
	quoteURL   string
	suggestURL string
	client     *http.Client
	now        func() time.Time
	log        zerolog.Logger
}

// Option customises a Client.
type Option func(*Client)

// WithBaseURLs points the client at alternative hosts. An empty URL keeps
// the default.
func WithBaseURLs(quoteURL, suggestURL string) Option {
	return func(c *Client) {
		if quoteURL != "" {
			c.quoteURL = strings.TrimRight(quoteURL, "/")
		}
		if suggestURL != "" {
			c.suggestURL = strings.TrimRight(suggestURL, "/")
		}
	}
}

// NewClient creates a Sina client whose calls are bounded by timeout.
func NewClient(timeout time.Duration, log zerolog.Logger, opts ...Option) *Client {
	c := &Client{
		quoteURL:   defaultQuoteURL,
		suggestURL: defaultSuggestURL,
		client:     &http.Client{Timeout: timeout},
		now:        time.Now,
		log:        log.With().Str("client", SourceID).Logger(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ID implements the quote source contract.
func (c *Client) ID() string { return SourceID }

// Supports reports applicability: Sina quotes exchange-traded instruments and indices.
func (c *Client) Supports(kind domain.InstrumentKind) bool {
	return kind == domain.KindExchangeTraded || kind == domain.KindIndex
}

// Fetch returns the current quote for one code.
func (c *Client) Fetch(ctx context.Context, code string) (domain.Quote, error) {
	symbol := domain.ExchangeSymbol(code)
	body, err := c.get(ctx, fmt.Sprintf("%s/list=%s", c.quoteURL, symbol))
	if err != nil {
		return domain.Quote{}, err
	}

	fields, err := extractFields(body, symbol)
	if err != nil {
		return domain.Quote{}, err
	}

	var q domain.Quote
	if strings.HasPrefix(symbol, "s_") || strings.HasPrefix(symbol, "int_") {
		q, err = parseIndex(fields, c.now().In(domain.MarketLocation()))
	} else {
		q, err = parseFull(fields)
	}
	if err != nil {
		return domain.Quote{}, fmt.Errorf("%s: %w", symbol, err)
	}
	q.InstrumentID = code
	q.SourceID = SourceID

	c.log.Debug().Str("code", code).Float64("price", q.Price).Float64("pct", q.PctChange).Msg("Quote fetched")
	return q, nil
}

// StockMatch is one search hit.
type StockMatch struct {
	Code   string `json:"code"` // exchange-qualified, e.g. sh600519
	Symbol string `json:"symbol"`
	Market string `json:"market"`
	Name   string `json:"name"`
}

// SearchStocks queries the suggest endpoint and keeps Shanghai/Shenzhen A-share hits.
func (c *Client) SearchStocks(ctx context.Context, keyword string) ([]StockMatch, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, nil
	}

	body, err := c.get(ctx, fmt.Sprintf("%s/suggest/type=&key=%s", c.suggestURL, url.QueryEscape(keyword)))
	if err != nil {
		return nil, err
	}
	return parseSuggest(body), nil
}

func (c *Client) get(ctx context.Context, u string) (string, error) {
	raw, err := wire.Get(ctx, c.client, u, map[string]string{"Referer": referer})
	if err != nil {
		return "", fmt.Errorf("sina: %w", err)
	}
	return wire.DecodeGBK(raw)
}
