package eastmoney

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/aristath/fundpulse/internal/clients/wire"
	"github.com/aristath/fundpulse/internal/domain"
)

type valuationDetailResponse struct {
	Datas     []string `json:"Datas"` // "HH:MM,value,pct"
	ErrCode   int      `json:"ErrCode"`
	Expansion struct {
		Time string `json:"GZTIME"` // "YYYY-MM-DD HH:MM"
	} `json:"Expansion"`
}

// FundTrend returns the estimate curve of the latest session the upstream
// has, which is the previous session before today's open.
func (c *Client) FundTrend(ctx context.Context, code string) ([]domain.TrendPoint, error) {
	bare := domain.BareCode(code)
	q := url.Values{}
	q.Set("FCODE", bare)
	q.Set("deviceid", "Wap")
	q.Set("plat", "Wap")
	q.Set("product", "EFund")
	q.Set("version", "2.0.0")

	body, err := c.get(ctx, c.endpoints.MobileAPI+"/FundMApi/FundValuationDetail.ashx?"+q.Encode(), fundReferer)
	if err != nil {
		return nil, fmt.Errorf("eastmoney fund trend %s: %w", bare, err)
	}

	var resp valuationDetailResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("eastmoney fund trend %s: invalid payload: %w", bare, err)
	}
	if resp.ErrCode != 0 {
		return nil, fmt.Errorf("eastmoney fund trend %s: error code %d", bare, resp.ErrCode)
	}

	date, _, ok := strings.Cut(strings.TrimSpace(resp.Expansion.Time), " ")
	if !ok || date == "" {
		date = c.marketNow().Format(domain.DateLayout)
	}

	points := make([]domain.TrendPoint, 0, len(resp.Datas))
	for _, row := range resp.Datas {
		parts := strings.Split(row, ",")
		if len(parts) < 3 {
			continue
		}
		ts, err := domain.ParseTimestamp(date, parts[0])
		if err != nil {
			continue
		}
		value, err := wire.Price(parts[1])
		if err != nil {
			continue
		}
		pct, err := wire.Pct(parts[2])
		if err != nil {
			continue
		}
		points = append(points, domain.TrendPoint{Time: ts, Value: value, PctChange: pct})
	}
	return points, nil
}

type trendsResponse struct {
	Data *struct {
		PreClose float64  `json:"preClose"`
		Trends   []string `json:"trends"` // "YYYY-MM-DD HH:MM,price"
	} `json:"data"`
}

// StockTrend returns the minute price curve of an exchange-traded instrument
// with pct change against the previous close.
func (c *Client) StockTrend(ctx context.Context, code string) ([]domain.TrendPoint, error) {
	symbol := domain.ExchangeSymbol(code)

	q := url.Values{}
	q.Set("secid", secID(symbol))
	q.Set("fields1", "f1,f2,f3,f4,f5,f6,f7,f8")
	q.Set("fields2", "f51,f53")
	q.Set("iscr", "0")

	body, err := c.get(ctx, c.endpoints.Push+"/api/qt/stock/trends2/get?"+q.Encode(), quoteReferer)
	if err != nil {
		return nil, fmt.Errorf("eastmoney stock trend %s: %w", symbol, err)
	}

	var resp trendsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("eastmoney stock trend %s: invalid payload: %w", symbol, err)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("eastmoney stock trend %s: no data", symbol)
	}

	pre := resp.Data.PreClose
	points := make([]domain.TrendPoint, 0, len(resp.Data.Trends))
	for _, row := range resp.Data.Trends {
		stamp, priceField, ok := strings.Cut(row, ",")
		if !ok {
			continue
		}
		date, clock, ok := strings.Cut(stamp, " ")
		if !ok {
			continue
		}
		ts, err := domain.ParseTimestamp(date, clock)
		if err != nil {
			continue
		}
		price, err := wire.Price(priceField)
		if err != nil {
			continue
		}
		points = append(points, domain.TrendPoint{Time: ts, Value: price, PctChange: wire.PctChange(price, pre)})
	}
	return points, nil
}
