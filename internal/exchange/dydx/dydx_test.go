package dydx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/perp-research/internal/api"
	"github.com/rickgao/perp-research/internal/model"
)

var now = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

func newServer(t *testing.T, handler func(r *http.Request) any) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := handler(r)
		if body == nil {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL, api.WithRateLimit(0), api.WithRetries(0, 0))
	c.now = func() time.Time { return now }
	return c
}

func marketsBody() map[string]any {
	return map[string]any{"markets": map[string]any{
		"ETH-USD": map[string]any{
			"ticker": "ETH-USD", "status": "ACTIVE", "oraclePrice": "2500",
			"priceChange24H": "100", "volume24H": "1000000", "trades24H": 42,
			"nextFundingRate": "0.00001", "initialMarginFraction": "0.05", "openInterest": "10",
		},
		"BTC-USD": map[string]any{
			"ticker": "BTC-USD", "status": "ACTIVE", "oraclePrice": "60000",
			"priceChange24H": "0", "initialMarginFraction": "0.02", "openInterest": "2",
		},
		"LUNA-USD": map[string]any{"ticker": "LUNA-USD", "status": "FINAL_SETTLEMENT", "oraclePrice": "0"},
	}}
}

func TestResolution(t *testing.T) {
	r, err := Resolution(model.H4)
	require.NoError(t, err)
	assert.Equal(t, "4HOURS", r)

	_, err = Resolution(model.W1)
	assert.ErrorIs(t, err, model.ErrUnsupportedTimeframe)
}

func TestMarketsAndSnapshot(t *testing.T) {
	c := newServer(t, func(r *http.Request) any {
		if r.URL.Path == "/v4/perpetualMarkets" {
			return marketsBody()
		}
		return nil
	})

	markets, err := c.Markets(context.Background())
	require.NoError(t, err)
	require.Len(t, markets, 3)
	assert.Equal(t, "BTC-USD", markets[0].MarketID)
	assert.Equal(t, "BTC", markets[0].BaseSymbol)
	assert.Equal(t, "USD", markets[0].QuoteSymbol)
	assert.InDelta(t, 50.0, markets[0].MaxLeverage, 1e-9)
	assert.Equal(t, model.MarketStatusActive, markets[1].Status)
	assert.True(t, markets[2].IsDelisted)

	snaps, err := c.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snaps, 3)

	eth := snaps[1]
	assert.Equal(t, "ETH-USD", eth.Symbol)
	assert.Equal(t, 2500.0, eth.MarkPrice)
	assert.Equal(t, 2400.0, eth.PrevDayPrice)
	assert.InDelta(t, 100.0/2400*100, eth.PriceChangePct, 1e-9)
	assert.Equal(t, 25000.0, eth.OpenInterestUSD)
	assert.Equal(t, int64(42), eth.Trades24h)

	rates, err := c.CurrentFundingRates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0.00001, rates[1].Rate)
}

// dailyCandles serves one candle per day ending at now, newest first, at most
// limit per page and honouring toISO.
func dailyCandles(days int, calls *int) func(r *http.Request) any {
	return func(r *http.Request) any {
		if !strings.HasPrefix(r.URL.Path, "/v4/candles/perpetualMarkets/") {
			return nil
		}
		*calls++
		q := r.URL.Query()
		to := now
		if s := q.Get("toISO"); s != "" {
			to = parseISO(s)
		}
		var from time.Time
		if s := q.Get("fromISO"); s != "" {
			from = parseISO(s)
		}

		var out []any
		for i := 0; i < days && len(out) < pageLimit; i++ {
			ts := now.AddDate(0, 0, -i)
			if ts.After(to) || (!from.IsZero() && ts.Before(from)) {
				continue
			}
			out = append(out, map[string]any{
				"startedAt": formatISO(ts), "open": "1", "high": "2", "low": "0.5",
				"close": "1.5", "baseTokenVolume": "10", "usdVolume": "15", "trades": 3,
			})
		}
		return map[string]any{"candles": out}
	}
}

func TestCandlesPagesBackward(t *testing.T) {
	var calls int
	c := newServer(t, dailyCandles(1500, &calls))

	got, err := c.Candles(context.Background(), "ETH-USD", model.D1, time.Time{}, now)
	require.NoError(t, err)
	require.Len(t, got, 1500)
	assert.Equal(t, 2, calls)
	assert.True(t, got[0].OpenTime.Before(got[len(got)-1].OpenTime))
	assert.Equal(t, 15.0, got[0].QuoteVolume)
	assert.Equal(t, int64(3), got[0].Trades)

	calls = 0
	since := c.InceptionDate(context.Background(), "ETH-USD")
	require.NotNil(t, since)
	assert.Equal(t, now.AddDate(0, 0, -1499), *since)

	calls = 0
	window, err := c.FetchOHLCV(context.Background(), "ETH-USD", model.D1, now.AddDate(0, 0, -9), now)
	require.NoError(t, err)
	assert.Len(t, window, 10)
	assert.Equal(t, 1, calls)
}

func TestInceptionDateFailure(t *testing.T) {
	c := newServer(t, func(*http.Request) any { return nil })
	assert.Nil(t, c.InceptionDate(context.Background(), "ETH-USD"))

	incs := c.InceptionDates(context.Background(), []string{"ETH-USD"})
	require.Len(t, incs, 1)
	assert.Nil(t, incs[0].DataSince)
}

func TestFundingHistory(t *testing.T) {
	var calls int
	c := newServer(t, func(r *http.Request) any {
		if r.URL.Path != "/v4/historicalFunding/BTC-USD" {
			return nil
		}
		calls++
		before := parseISO(r.URL.Query().Get("effectiveBeforeOrAt"))
		var out []any
		for i := 0; i < 1200 && len(out) < pageLimit; i++ {
			ts := now.Add(-time.Duration(i) * time.Hour)
			if ts.After(before) {
				continue
			}
			out = append(out, map[string]any{"ticker": "BTC-USD", "rate": "0.0001", "price": "60000", "effectiveAt": formatISO(ts)})
		}
		return map[string]any{"historicalFunding": out}
	})

	rates, err := c.FundingHistory(context.Background(), "BTC-USD", now.Add(-48*time.Hour), now)
	require.NoError(t, err)
	assert.Len(t, rates, 49)
	assert.Equal(t, 1, calls)
	assert.True(t, rates[0].IsSettlement)
	assert.Equal(t, 60000.0, rates[0].OraclePrice)

	calls = 0
	all, err := c.FundingHistory(context.Background(), "BTC-USD", time.Time{}, now)
	require.NoError(t, err)
	assert.Len(t, all, 1200)
	assert.Equal(t, 2, calls)
}
