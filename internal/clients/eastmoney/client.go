// Package eastmoney wraps the EastMoney fund and quote endpoints. Every call
// goes through one shared gate: the endpoints throttle aggressively per
// client and concurrent requests from one host get blocked.
package eastmoney

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fundpulse/internal/cache"
	"github.com/aristath/fundpulse/internal/clients/wire"
	"github.com/aristath/fundpulse/internal/domain"
)

// Endpoints groups the hosts used by the client; tests point all of them
// at one httptest server.
type Endpoints struct {
	FundAPI     string // api.fund.eastmoney.com
	MobileAPI   string // fundmobapi.eastmoney.com
	Push        string // push2.eastmoney.com
	PushHistory string // push2his.eastmoney.com
	FundSite    string // fund.eastmoney.com
}

// DefaultEndpoints are the public hosts.
var DefaultEndpoints = Endpoints{
	FundAPI:     "http://api.fund.eastmoney.com",
	MobileAPI:   "https://fundmobapi.eastmoney.com",
	Push:        "http://push2.eastmoney.com",
	PushHistory: "http://push2his.eastmoney.com",
	FundSite:    "http://fund.eastmoney.com",
}

const (
	fundReferer  = "http://fund.eastmoney.com/"
	f10Referer   = "http://fundf10.eastmoney.com/"
	quoteReferer = "http://quote.eastmoney.com/"
)

// Client for the EastMoney endpoints.
type Client struct {
	endpoints Endpoints
	client    *http.Client
	gate      *wire.Gate
	bulk      *cache.Cache[map[string]domain.Quote]
	now       func() time.Time
	log       zerolog.Logger
}

// Config holds client configuration
type Config struct {
	Endpoints Endpoints
	Timeout   time.Duration // per HTTP call; the bulk list is slow, allow a few seconds
	BulkTTL   time.Duration // reuse of the all-funds estimate list
}

// NewClient creates a client that serializes its calls through gate. Pass the
// same gate to every consumer of these endpoints.
func NewClient(cfg Config, gate *wire.Gate, log zerolog.Logger) *Client {
	if cfg.Endpoints == (Endpoints{}) {
		cfg.Endpoints = DefaultEndpoints
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.BulkTTL <= 0 {
		cfg.BulkTTL = 30 * time.Second
	}
	if gate == nil {
		gate = wire.NewGate("eastmoney", nil)
	}
	cfg.Endpoints.FundAPI = strings.TrimRight(cfg.Endpoints.FundAPI, "/")
	cfg.Endpoints.MobileAPI = strings.TrimRight(cfg.Endpoints.MobileAPI, "/")
	cfg.Endpoints.Push = strings.TrimRight(cfg.Endpoints.Push, "/")
	cfg.Endpoints.PushHistory = strings.TrimRight(cfg.Endpoints.PushHistory, "/")
	cfg.Endpoints.FundSite = strings.TrimRight(cfg.Endpoints.FundSite, "/")

	return &Client{
		endpoints: cfg.Endpoints,
		client:    &http.Client{Timeout: cfg.Timeout},
		gate:      gate,
		bulk:      cache.New[map[string]domain.Quote]("eastmoney_bulk", cfg.BulkTTL),
		now:       time.Now,
		log:       log.With().Str("client", "eastmoney").Logger(),
	}
}

// BulkCache exposes the estimate list cache for metrics and sweeping.
func (c *Client) BulkCache() *cache.Cache[map[string]domain.Quote] {
	return c.bulk
}

// get fetches a URL while holding the shared gate.
func (c *Client) get(ctx context.Context, url, referer string) ([]byte, error) {
	var body []byte
	err := c.gate.Do(ctx, func(ctx context.Context) error {
		var err error
		body, err = wire.Get(ctx, c.client, url, map[string]string{"Referer": referer})
		return err
	})
	return body, err
}

func (c *Client) marketNow() time.Time {
	return c.now().In(domain.MarketLocation())
}
