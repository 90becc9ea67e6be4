package sina

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// bookPayload is a 33-field hq line for a stock priced 1700.00 off a
// 1680.00 close with a full five-level book.
func bookPayload() string {
	f := []string{
		"KWEICHOW", "1685.00", "1680.00", "1700.00", "1705.50", "1678.20", "1699.90", "1700.00",
		"2450000", "4163250000.00",
		"100", "1699.90", "200", "1699.80", "300", "1699.70", "400", "1699.60", "500", "1699.50",
		"150", "1700.00", "250", "1700.10", "350", "1700.20", "450", "1700.30", "550", "1700.40",
		"2024-03-01", "10:14:58", "00",
	}
	return strings.Join(f, ",")
}

func TestStockDetail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/list=sh600519", r.URL.Path)
		fmt.Fprintf(w, "var hq_str_sh600519=\"%s\";\n", bookPayload())
	})

	d, err := c.StockDetail(context.Background(), "sh600519")
	require.NoError(t, err)

	assert.Equal(t, "sh600519", d.Quote.InstrumentID)
	assert.Equal(t, SourceID, d.Quote.SourceID)
	assert.Equal(t, 1700.0, d.Quote.Price)
	assert.Equal(t, 1.19, d.Quote.PctChange)
	assert.NoError(t, d.Quote.Validate())
	assert.Equal(t, 20.0, d.Change)
	assert.Equal(t, 1685.0, d.Open)
	assert.Equal(t, 1705.5, d.High)
	assert.Equal(t, 1678.2, d.Low)
	assert.Equal(t, 2450000.0, d.Volume)
	assert.Equal(t, 4163250000.0, d.Amount)

	require.Len(t, d.Bids, 5)
	require.Len(t, d.Asks, 5)
	assert.Equal(t, BookLevel{Price: 1699.9, Volume: 100}, d.Bids[0])
	assert.Equal(t, BookLevel{Price: 1699.5, Volume: 500}, d.Bids[4])
	assert.Equal(t, BookLevel{Price: 1700.0, Volume: 150}, d.Asks[0])
	assert.Equal(t, BookLevel{Price: 1700.4, Volume: 550}, d.Asks[4])
}

func TestStockDetail_Failures(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		payload string
	}{
		{"index has no book", "s_sh000300", `var hq_str_s_sh000300="HS300,3924.34,-12.45,-0.32,1,2";`},
		{"short payload", "sh600519", `var hq_str_sh600519="a,b,c";`},
		{"bad book level", "sh600519", fmt.Sprintf(`var hq_str_sh600519="%s";`, strings.Replace(bookPayload(), ",1699.80,", ",--,", 1))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { fmt.Fprint(w, tt.payload) })
			_, err := c.StockDetail(context.Background(), tt.code)
			assert.Error(t, err)
		})
	}
}
