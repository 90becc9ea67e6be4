package eastmoney

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
)

// FundInfo is one row of the fund name directory.
type FundInfo struct {
	Code     string `json:"code" msgpack:"code"`
	Abbr     string `json:"abbr" msgpack:"abbr"`
	Name     string `json:"name" msgpack:"name"`
	Category string `json:"category" msgpack:"category"`
	Pinyin   string `json:"pinyin" msgpack:"pinyin"`
}

// FundDirectory downloads the full code/name/category list
// (`var r = [["000001","HXCZHH","name","type","PINYIN"],...];`).
func (c *Client) FundDirectory(ctx context.Context) ([]FundInfo, error) {
	body, err := c.get(ctx, c.endpoints.FundSite+"/js/fundcode_search.js", fundReferer)
	if err != nil {
		return nil, fmt.Errorf("eastmoney fund directory: %w", err)
	}
	return parseDirectory(body)
}

func parseDirectory(body []byte) ([]FundInfo, error) {
	start := bytes.IndexByte(body, '[')
	end := bytes.LastIndexByte(body, ']')
	if start < 0 || end <= start {
		return nil, fmt.Errorf("eastmoney fund directory: no array in payload")
	}

	var rows [][]string
	if err := json.Unmarshal(body[start:end+1], &rows); err != nil {
		return nil, fmt.Errorf("eastmoney fund directory: invalid payload: %w", err)
	}

	out := make([]FundInfo, 0, len(rows))
	for _, r := range rows {
		if len(r) < 4 {
			continue
		}
		info := FundInfo{Code: r[0], Abbr: r[1], Name: r[2], Category: r[3]}
		if len(r) > 4 {
			info.Pinyin = r[4]
		}
		out = append(out, info)
	}
	return out, nil
}
