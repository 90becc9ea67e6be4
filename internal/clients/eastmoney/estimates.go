package eastmoney

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aristath/fundpulse/internal/clients/wire"
	"github.com/aristath/fundpulse/internal/domain"
)

// BulkSourceID identifies quotes taken from the all-funds estimate list.
const BulkSourceID = "eastmoney_bulk"

type gzListResponse struct {
	Data struct {
		List []struct {
			Code     string `json:"bzdm"`
			Name     string `json:"jjjc"`
			Estimate string `json:"gsz"`
			Pct      string `json:"gszzl"`
			NAV      string `json:"dwjz"`
			Date     string `json:"gzrq"`
		} `json:"list"`
	} `json:"Data"`
	ErrCode int `json:"ErrCode"`
}

// BulkEstimates returns today's estimate for every open-end fund, keyed by
// bare code. The list is fetched once per BulkTTL no matter how many
// callers ask.
func (c *Client) BulkEstimates(ctx context.Context) (map[string]domain.Quote, error) {
	return c.bulk.GetOrLoad(ctx, "all", c.fetchBulk)
}

func (c *Client) fetchBulk(ctx context.Context) (map[string]domain.Quote, error) {
	url := fmt.Sprintf("%s/FundGuZhi/GetFundGZList?type=1&sort=3&orderType=desc&canbuy=0&pageIndex=1&pageSize=20000&_=%s",
		c.endpoints.FundAPI, strconv.FormatInt(c.now().UnixMilli(), 10))
	body, err := c.get(ctx, url, fundReferer)
	if err != nil {
		return nil, fmt.Errorf("eastmoney bulk estimates: %w", err)
	}

	var resp gzListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("eastmoney bulk estimates: invalid payload: %w", err)
	}
	if resp.ErrCode != 0 {
		return nil, fmt.Errorf("eastmoney bulk estimates: error code %d", resp.ErrCode)
	}

	observed := c.marketNow()
	out := make(map[string]domain.Quote, len(resp.Data.List))
	for _, row := range resp.Data.List {
		price, err := wire.Price(row.Estimate)
		if err != nil || price <= 0 {
			continue
		}
		pct, err := wire.Pct(row.Pct)
		if err != nil {
			continue
		}
		ref, _ := wire.Price(row.NAV)
		date := row.Date
		if date == "" {
			date = observed.Format(domain.DateLayout)
		}
		out[row.Code] = domain.Quote{
			InstrumentID:   row.Code,
			Name:           row.Name,
			Price:          price,
			PctChange:      pct,
			ReferencePrice: ref,
			ObservedDate:   date,
			ObservedTime:   observed.Format(domain.TimeLayout),
			SourceID:       BulkSourceID,
		}
	}

	c.log.Debug().Int("funds", len(out)).Msg("Bulk estimates fetched")
	return out, nil
}

// BulkAdapter looks single codes up in the bulk estimate list.
type BulkAdapter struct {
	client *Client
}

// NewBulkAdapter wraps the client as a quote source.
func NewBulkAdapter(c *Client) *BulkAdapter {
	return &BulkAdapter{client: c}
}

// ID implements the quote source contract.
func (a *BulkAdapter) ID() string { return BulkSourceID }

// Supports reports applicability: the list covers open-end and listed funds.
func (a *BulkAdapter) Supports(kind domain.InstrumentKind) bool {
	return kind == domain.KindFund || kind == domain.KindExchangeTraded
}

// Fetch returns the bulk-list estimate for one code.
func (a *BulkAdapter) Fetch(ctx context.Context, code string) (domain.Quote, error) {
	all, err := a.client.BulkEstimates(ctx)
	if err != nil {
		return domain.Quote{}, err
	}
	q, ok := all[domain.BareCode(code)]
	if !ok {
		return domain.Quote{}, fmt.Errorf("eastmoney bulk estimates: %s not listed", code)
	}
	q.InstrumentID = code
	return q, nil
}
