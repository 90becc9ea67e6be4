package eastmoney

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/aristath/fundpulse/internal/clients/wire"
	"github.com/aristath/fundpulse/internal/domain"
)

const (
	historyPageSize = 200
	historyMaxPages = 40
)

type lsjzResponse struct {
	Data struct {
		List []struct {
			Date string `json:"FSRQ"`
			NAV  string `json:"DWJZ"`
			Pct  string `json:"JZZZL"`
		} `json:"LSJZList"`
	} `json:"Data"`
	ErrCode    int `json:"ErrCode"`
	TotalCount int `json:"TotalCount"`
}

// NAVHistory returns confirmed NAVs between start and end inclusive,
// ascending by date. Pages are requested until the reported total is reached.
func (c *Client) NAVHistory(ctx context.Context, code string, start, end time.Time) (domain.HistorySeries, error) {
	bare := domain.BareCode(code)
	var points []domain.NAVPoint

	for page := 1; page <= historyMaxPages; page++ {
		q := url.Values{}
		q.Set("fundCode", bare)
		q.Set("pageIndex", strconv.Itoa(page))
		q.Set("pageSize", strconv.Itoa(historyPageSize))
		q.Set("startDate", start.Format(domain.DateLayout))
		q.Set("endDate", end.Format(domain.DateLayout))

		body, err := c.get(ctx, c.endpoints.FundAPI+"/f10/lsjz?"+q.Encode(), f10Referer)
		if err != nil {
			return domain.HistorySeries{}, fmt.Errorf("eastmoney nav history %s: %w", bare, err)
		}

		var resp lsjzResponse
		if err := json.Unmarshal(body, &resp); err != nil {
			return domain.HistorySeries{}, fmt.Errorf("eastmoney nav history %s: invalid payload: %w", bare, err)
		}
		if resp.ErrCode != 0 {
			return domain.HistorySeries{}, fmt.Errorf("eastmoney nav history %s: error code %d", bare, resp.ErrCode)
		}

		for _, row := range resp.Data.List {
			date, err := time.ParseInLocation(domain.DateLayout, row.Date, domain.MarketLocation())
			if err != nil {
				continue
			}
			nav, err := wire.Price(row.NAV)
			if err != nil || nav <= 0 {
				continue
			}
			// the first NAV of a fund has no change figure
			pct, _ := wire.Pct(row.Pct)
			points = append(points, domain.NAVPoint{Date: date, NAV: nav, PctChange: pct})
		}

		if len(resp.Data.List) < historyPageSize || page*historyPageSize >= resp.TotalCount {
			break
		}
	}

	if len(points) == 0 {
		return domain.HistorySeries{}, fmt.Errorf("eastmoney nav history %s: no data", bare)
	}

	c.log.Debug().Str("code", bare).Int("points", len(points)).Msg("NAV history fetched")
	return domain.NewHistorySeries(code, points), nil
}
