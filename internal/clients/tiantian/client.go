// Package tiantian reads the fundgz intraday estimate feed (JSONP).
package tiantian

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/fundpulse/internal/clients/wire"
	"github.com/aristath/fundpulse/internal/domain"
)

// SourceID identifies quotes produced by this client.
const SourceID = "tiantian"

const defaultBaseURL = "http://fundgz.1234567.com.cn"

var jsonpPattern = regexp.MustCompile(`jsonpgz\((.*)\);?`)

// Client for fundgz.1234567.com.cn. Safe for concurrent use.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// NewClient creates a client; an empty baseURL selects the public host.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("client", SourceID).Logger(),
	}
}

// ID implements the quote source contract.
func (c *Client) ID() string { return SourceID }

// Supports reports applicability. The feed estimates open-end funds and
// also serves listed fund codes, so it backs up the exchange feed.
func (c *Client) Supports(kind domain.InstrumentKind) bool {
	return kind == domain.KindFund || kind == domain.KindExchangeTraded
}

type estimate struct {
	FundCode string `json:"fundcode"`
	Name     string `json:"name"`
	NAVDate  string `json:"jzrq"`
	NAV      string `json:"dwjz"`
	Estimate string `json:"gsz"`
	Pct      string `json:"gszzl"`
	Time     string `json:"gztime"` // "YYYY-MM-DD HH:MM"
}

// Fetch returns the intraday estimate for a fund.
func (c *Client) Fetch(ctx context.Context, code string) (domain.Quote, error) {
	bare := domain.BareCode(code)
	body, err := wire.Get(ctx, c.client, fmt.Sprintf("%s/js/%s.js", c.baseURL, bare), nil)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("tiantian: %w", err)
	}

	q, err := parseEstimate(body)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("tiantian %s: %w", bare, err)
	}
	q.InstrumentID = code

	c.log.Debug().Str("code", code).Float64("estimate", q.Price).Float64("pct", q.PctChange).Msg("Estimate fetched")
	return q, nil
}

func parseEstimate(body []byte) (domain.Quote, error) {
	m := jsonpPattern.FindSubmatch(body)
	if m == nil || len(strings.TrimSpace(string(m[1]))) == 0 {
		return domain.Quote{}, fmt.Errorf("no estimate in response")
	}

	var e estimate
	if err := json.Unmarshal(m[1], &e); err != nil {
		return domain.Quote{}, fmt.Errorf("invalid estimate payload: %w", err)
	}

	price, err := wire.Price(e.Estimate)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("gsz: %w", err)
	}
	pct, err := wire.Pct(e.Pct)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("gszzl: %w", err)
	}
	// a missing confirmed NAV leaves the reference unknown; the pct is still sourced
	ref, _ := wire.Price(e.NAV)

	date, clock, ok := strings.Cut(strings.TrimSpace(e.Time), " ")
	if !ok {
		return domain.Quote{}, fmt.Errorf("invalid gztime %q", e.Time)
	}
	if len(clock) == 5 {
		clock += ":00"
	}

	return domain.Quote{
		Name:           e.Name,
		Price:          price,
		PctChange:      pct,
		ReferencePrice: ref,
		ObservedDate:   date,
		ObservedTime:   clock,
		SourceID:       SourceID,
	}, nil
}
