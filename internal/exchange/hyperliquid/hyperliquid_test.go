package hyperliquid

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/perp-research/internal/api"
	"github.com/rickgao/perp-research/internal/model"
)

var now = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

// infoServer routes /info requests by their "type" field.
func infoServer(t *testing.T, handlers map[string]func(req map[string]any) any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/info", r.URL.Path)

		body, _ := io.ReadAll(r.Body)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))

		h, ok := handlers[req["type"].(string)]
		if !ok {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(h(req))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(srv *httptest.Server) *Client {
	c := NewClient(srv.URL, api.WithRateLimit(0), api.WithRetries(0, 0))
	c.now = func() time.Time { return now }
	return c
}

func TestResolveCoin(t *testing.T) {
	tests := []struct {
		coin, dex, want string
	}{
		{"BTC", "", "BTC"},
		{"BTC", NativeDex, "BTC"},
		{"BTC", "HL", "BTC"},
		{"GOLD", "xyz", "xyz:GOLD"},
		{"xyz:GOLD", "flx", "xyz:GOLD"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ResolveCoin(tt.coin, tt.dex), "%s on %q", tt.coin, tt.dex)
	}
}

func TestMarkets(t *testing.T) {
	srv := infoServer(t, map[string]func(map[string]any) any{
		"perpDexs": func(map[string]any) any {
			return []any{nil, map[string]any{"name": "xyz", "fullName": "XYZ"}}
		},
		"allPerpMetas": func(map[string]any) any {
			return []any{
				map[string]any{"universe": []any{
					map[string]any{"name": "BTC", "szDecimals": 5, "maxLeverage": 40},
					map[string]any{"name": "LUNA", "szDecimals": 1, "maxLeverage": 3, "isDelisted": true},
				}},
				map[string]any{"universe": []any{
					map[string]any{"name": "xyz:GOLD", "szDecimals": 4, "maxLeverage": 20},
				}},
			}
		},
	})
	c := newTestClient(srv)

	dexs, err := c.Dexs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{NativeDex, "xyz"}, dexs)

	markets, err := c.Markets(context.Background())
	require.NoError(t, err)
	require.Len(t, markets, 3)

	assert.Equal(t, NativeDex, markets[0].Dex)
	assert.Equal(t, 40.0, markets[0].MaxLeverage)
	assert.True(t, markets[1].IsDelisted)
	assert.Equal(t, "xyz:GOLD", markets[2].Name)
	assert.Equal(t, "GOLD", markets[2].BaseSymbol)
	assert.Equal(t, "xyz", markets[2].Dex)

	rows, err := c.ClassifyAll(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, model.AssetCrypto, rows[0].AssetType)
	assert.Equal(t, model.AssetCommodity, rows[1].AssetType)
}

func TestSnapshot(t *testing.T) {
	var (
		gotDex any
		hasDex bool
	)
	srv := infoServer(t, map[string]func(map[string]any) any{
		"metaAndAssetCtxs": func(req map[string]any) any {
			gotDex, hasDex = req["dex"]
			return []any{
				map[string]any{"universe": []any{
					map[string]any{"name": "xyz:GOLD"},
					map[string]any{"name": "xyz:OLD", "isDelisted": true},
				}},
				[]any{
					map[string]any{"funding": "0.0000125", "openInterest": "100", "prevDayPx": "2000",
						"dayNtlVlm": "5000000", "premium": "0.0001", "oraclePx": "2100", "markPx": "2100.5", "midPx": "2100.25"},
					map[string]any{"funding": "0", "openInterest": "0", "markPx": "1"},
				},
			}
		},
	})
	c := newTestClient(srv)

	snaps, err := c.Snapshot(context.Background(), "xyz")
	require.NoError(t, err)
	assert.Equal(t, "xyz", gotDex)
	require.Len(t, snaps, 1)

	s := snaps[0]
	assert.Equal(t, "GOLD", s.Base)
	assert.Equal(t, "xyz", s.Dex)
	assert.Equal(t, 2100.5, s.MarkPrice)
	assert.InDelta(t, 0.0000125, s.FundingRate, 1e-12)
	assert.Equal(t, 210000.0, s.OpenInterestUSD)
	assert.Equal(t, 5000000.0, s.Volume24hUSD)
	assert.InDelta(t, 5.025, s.PriceChangePct, 1e-9)
	assert.Equal(t, now, s.Time)

	_, err = c.Snapshot(context.Background(), "")
	require.NoError(t, err)
	assert.False(t, hasDex, "native DEX request carries no dex field")
}

// candleVenue serves hourly bars from t0 for n hours, honouring the window.
func candleVenue(t0 time.Time, n int, calls *int32) func(map[string]any) any {
	return func(req map[string]any) any {
		atomic.AddInt32(calls, 1)
		r := req["req"].(map[string]any)
		from := int64(r["startTime"].(float64))
		to := int64(r["endTime"].(float64))

		var out []map[string]any
		for i := 0; i < n; i++ {
			ts := t0.Add(time.Duration(i) * time.Hour).UnixMilli()
			if ts < from || ts > to {
				continue
			}
			out = append(out, map[string]any{
				"t": ts, "T": ts + 3599999, "s": r["coin"], "i": r["interval"],
				"o": "1", "h": "2", "l": "0.5", "c": "1.5", "v": "10", "n": 3,
			})
		}
		return out
	}
}

func TestFetchOHLCV(t *testing.T) {
	t0 := now.Add(-48 * time.Hour)
	var calls int32
	var coins []string
	handler := candleVenue(t0, 48, &calls)
	srv := infoServer(t, map[string]func(map[string]any) any{
		"candleSnapshot": func(req map[string]any) any {
			coins = append(coins, req["req"].(map[string]any)["coin"].(string))
			return handler(req)
		},
	})
	c := newTestClient(srv)

	got, err := c.FetchOHLCV(context.Background(), "GOLD", "xyz", model.H1, t0.Add(2*time.Hour), t0.Add(5*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.Equal(t, t0.Add(2*time.Hour), got[0].OpenTime)
	assert.Equal(t, 1.5, got[0].Close)
	assert.Equal(t, int64(3), got[0].Trades)
	assert.Equal(t, "xyz:GOLD", got[0].Symbol)
	assert.Equal(t, "xyz:GOLD", coins[0])

	_, err = c.Candles(context.Background(), "BTC", model.Timeframe("7m"), t0, now)
	assert.ErrorIs(t, err, model.ErrUnsupportedTimeframe)
}

func TestInceptionDate(t *testing.T) {
	t.Run("first daily bar", func(t *testing.T) {
		first := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
		srv := infoServer(t, map[string]func(map[string]any) any{
			"candleSnapshot": func(req map[string]any) any {
				r := req["req"].(map[string]any)
				assert.Equal(t, "1d", r["interval"])
				assert.Equal(t, 0.0, r["startTime"])
				return []map[string]any{
					{"t": first.Add(24 * time.Hour).UnixMilli(), "o": "1", "h": "1", "l": "1", "c": "1", "v": "1"},
					{"t": first.UnixMilli(), "o": "1", "h": "1", "l": "1", "c": "1", "v": "1"},
				}
			},
		})
		c := newTestClient(srv)

		got := c.InceptionDate(context.Background(), "GOLD", "xyz")
		require.NotNil(t, got)
		assert.Equal(t, first, *got)

		rows := c.InceptionDates(context.Background(), []string{"GOLD"}, "xyz")
		require.Len(t, rows, 1)
		assert.Equal(t, "2024-03-01", rows[0].DataSinceString())
		assert.Equal(t, int(now.Sub(first).Hours()/24), rows[0].DaysAvailable)
	})

	t.Run("failure is unknown", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer srv.Close()
		c := newTestClient(srv)

		assert.Nil(t, c.InceptionDate(context.Background(), "BTC", ""))
		rows := c.InceptionDates(context.Background(), []string{"BTC"}, "")
		require.Len(t, rows, 1)
		assert.Nil(t, rows[0].DataSince)
		assert.Equal(t, 0, rows[0].DaysAvailable)
		assert.Equal(t, NativeDex, rows[0].Dex)
	})
}

func TestFundingHistory(t *testing.T) {
	t0 := now.Add(-10 * time.Hour)
	var calls int32
	srv := infoServer(t, map[string]func(map[string]any) any{
		"fundingHistory": func(req map[string]any) any {
			atomic.AddInt32(&calls, 1)
			from := int64(req["startTime"].(float64))
			var out []map[string]any
			// At most 4 samples per page.
			for i := 0; i < 10 && len(out) < 4; i++ {
				ts := t0.Add(time.Duration(i) * time.Hour).UnixMilli()
				if ts < from {
					continue
				}
				out = append(out, map[string]any{"coin": "ETH", "fundingRate": "0.0001", "premium": "-0.0002", "time": ts})
			}
			return out
		},
	})
	c := newTestClient(srv)

	got, err := c.FundingHistory(context.Background(), "ETH", t0, now)
	require.NoError(t, err)
	require.Len(t, got, 10)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
	assert.Equal(t, t0, got[0].Time)
	assert.InDelta(t, -0.0002, got[0].Premium, 1e-12)
	assert.True(t, got[0].IsSettlement)
}

func TestSpot(t *testing.T) {
	srv := infoServer(t, map[string]func(map[string]any) any{
		"spotMeta": func(map[string]any) any {
			return map[string]any{
				"tokens": []any{
					map[string]any{"name": "USDC", "index": 0, "szDecimals": 8, "weiDecimals": 8},
					map[string]any{"name": "PURR", "index": 1, "isCanonical": true},
					map[string]any{"name": "HYPE", "index": 150},
				},
				"universe": []any{
					map[string]any{"name": "PURR/USDC", "tokens": []int{1, 0}, "index": 0, "isCanonical": true},
					map[string]any{"name": "HYPE/USDC", "tokens": []int{150, 0}, "index": 107},
				},
			}
		},
		"spotMetaAndAssetCtxs": func(map[string]any) any {
			return []any{
				map[string]any{
					"tokens":   []any{map[string]any{"name": "USDC", "index": 0}, map[string]any{"name": "PURR", "index": 1}},
					"universe": []any{map[string]any{"name": "PURR/USDC", "tokens": []int{1, 0}, "index": 0, "isCanonical": true}},
				},
				[]any{map[string]any{"markPx": "0.2", "midPx": "0.2", "prevDayPx": "0.25", "dayNtlVlm": "1000"}},
			}
		},
	})
	c := newTestClient(srv)

	pairs, err := c.SpotPairs(context.Background())
	require.NoError(t, err)
	require.Len(t, pairs, 2)
	assert.Equal(t, "HYPE", pairs[1].BaseToken)
	assert.Equal(t, "USDC", pairs[1].QuoteToken)

	coin, err := c.ResolveSpotPair(context.Background(), "PURR/USDC")
	require.NoError(t, err)
	assert.Equal(t, "PURR/USDC", coin)

	coin, err = c.ResolveSpotPair(context.Background(), "HYPE/USDC")
	require.NoError(t, err)
	assert.Equal(t, "@107", coin)

	coin, err = c.ResolveSpotPair(context.Background(), "@5")
	require.NoError(t, err)
	assert.Equal(t, "@5", coin)

	_, err = c.ResolveSpotPair(context.Background(), "NOPE/USDC")
	assert.ErrorIs(t, err, model.ErrUnknownMarket)

	snaps, err := c.SpotSnapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "PURR", snaps[0].Base)
	assert.InDelta(t, -20.0, snaps[0].PriceChangePct, 1e-9)
}

func TestOrderBookAndTrades(t *testing.T) {
	srv := infoServer(t, map[string]func(map[string]any) any{
		"l2Book": func(map[string]any) any {
			return map[string]any{
				"coin": "BTC", "time": now.UnixMilli(),
				"levels": []any{
					[]any{map[string]any{"px": "100", "sz": "1", "n": 2}},
					[]any{map[string]any{"px": "101", "sz": "3", "n": 1}},
				},
			}
		},
		"recentTrades": func(map[string]any) any {
			return []any{map[string]any{"coin": "BTC", "side": "B", "px": "100.5", "sz": "0.1", "time": now.UnixMilli(), "tid": 42}}
		},
	})
	c := newTestClient(srv)

	book, err := c.OrderBook(context.Background(), "BTC")
	require.NoError(t, err)
	assert.Equal(t, 1.0, book.Spread())
	assert.Equal(t, 2, book.Bids[0].Orders)

	trades, err := c.RecentTrades(context.Background(), "BTC")
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, int64(42), trades[0].TID)
	assert.Equal(t, now, trades[0].Time)
}
