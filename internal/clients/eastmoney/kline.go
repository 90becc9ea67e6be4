package eastmoney

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/aristath/fundpulse/internal/clients/wire"
	"github.com/aristath/fundpulse/internal/domain"
)

// MaxKlineBars is how many bars one request returns.
const MaxKlineBars = 120

// klt codes of the kline endpoint.
var kltCodes = map[domain.KlinePeriod]string{
	domain.PeriodDay:   "101",
	domain.PeriodWeek:  "102",
	domain.PeriodMonth: "103",
}

type klineResponse struct {
	Data *struct {
		Klines []string `json:"klines"` // "date,open,close,high,low,volume,amount,amplitude"
	} `json:"data"`
}

// StockKline returns up to MaxKlineBars forward-adjusted candles of an
// exchange-traded instrument, oldest first.
func (c *Client) StockKline(ctx context.Context, code string, period domain.KlinePeriod) ([]domain.Candle, error) {
	klt, ok := kltCodes[period]
	if !ok {
		return nil, fmt.Errorf("eastmoney kline: unknown period %q", period)
	}
	symbol := domain.ExchangeSymbol(code)

	q := url.Values{}
	q.Set("secid", secID(symbol))
	q.Set("fields1", "f1,f2,f3,f4,f5,f6,f7,f8")
	q.Set("fields2", "f51,f52,f53,f54,f55,f56,f57,f58")
	q.Set("klt", klt)
	q.Set("fqt", "1")
	q.Set("end", "20500101")
	q.Set("lmt", strconv.Itoa(MaxKlineBars))

	body, err := c.get(ctx, c.endpoints.PushHistory+"/api/qt/stock/kline/get?"+q.Encode(), quoteReferer)
	if err != nil {
		return nil, fmt.Errorf("eastmoney kline %s: %w", symbol, err)
	}

	var resp klineResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("eastmoney kline %s: invalid payload: %w", symbol, err)
	}
	if resp.Data == nil {
		return nil, fmt.Errorf("eastmoney kline %s: no data", symbol)
	}

	candles := make([]domain.Candle, 0, len(resp.Data.Klines))
	for _, row := range resp.Data.Klines {
		candle, err := parseCandle(row)
		if err != nil {
			c.log.Debug().Err(err).Str("row", row).Msg("Skipping malformed kline row")
			continue
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

func parseCandle(row string) (domain.Candle, error) {
	parts := strings.Split(row, ",")
	if len(parts) < 7 {
		return domain.Candle{}, fmt.Errorf("short kline row: %d fields", len(parts))
	}
	c := domain.Candle{Date: parts[0]}
	for i, dst := range []*float64{&c.Open, &c.Close, &c.High, &c.Low, &c.Volume, &c.Amount} {
		v, err := wire.Price(parts[i+1])
		if err != nil {
			return domain.Candle{}, err
		}
		*dst = v
	}
	return c, nil
}

// secID is the market-qualified id the push endpoints take: 1.<code> for
// Shanghai, 0.<code> for Shenzhen.
func secID(symbol string) string {
	if strings.HasPrefix(symbol, "sh") {
		return "1." + domain.BareCode(symbol)
	}
	return "0." + domain.BareCode(symbol)
}
