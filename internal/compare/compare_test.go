package compare

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/perp-research/internal/model"
	"github.com/rickgao/perp-research/internal/report"
	"github.com/rickgao/perp-research/internal/stats"
)

var (
	since = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	now   = since.Add(48 * time.Hour)
)

func hourly(start time.Time, hours int, close, volume float64) []model.Candle {
	out := make([]model.Candle, hours)
	for i := range out {
		out[i] = model.Candle{
			OpenTime: start.Add(time.Duration(i) * time.Hour),
			Open:     close, High: close, Low: close, Close: close,
			Volume: volume,
			Trades: 1,
		}
	}
	return out
}

type fakePerps struct {
	bars map[string][]model.Candle // by coin
}

func (f *fakePerps) FetchOHLCV(_ context.Context, coin, dex string, tf model.Timeframe, start, end time.Time) ([]model.Candle, error) {
	bars, ok := f.bars[coin]
	if !ok {
		return nil, model.ErrUnknownMarket
	}
	return bars, nil
}

type fakeRef struct {
	bars   []model.Candle
	err    error
	symbol string
	start  time.Time
}

func (f *fakeRef) FetchOHLCV(_ context.Context, symbol string, tf model.Timeframe, start, end time.Time) ([]model.Candle, error) {
	f.symbol, f.start = symbol, start
	return f.bars, f.err
}

func TestReadChosen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chosen.csv")
	require.NoError(t, os.WriteFile(path, []byte(
		"asset,coin,dex,data_since,yf_ticker\n"+
			"GOLD,xyz:GOLD,xyz,2025-01-02,GC=F\n"+
			"BTC,BTC,Hyperliquid (native),2024-01-01,BTC-USD\n"), 0o644))

	rows, err := ReadChosen(path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "xyz:GOLD", rows[0].Coin)
	assert.Equal(t, since.AddDate(0, 0, 1), rows[0].DataSince)
	assert.Equal(t, model.AssetCommodity, rows[0].AssetType)
	assert.Equal(t, model.AssetCrypto, rows[1].AssetType)

	out := filepath.Join(t.TempDir(), "out.csv")
	require.NoError(t, WriteChosen(out, rows))
	again, err := ReadChosen(out)
	require.NoError(t, err)
	assert.Equal(t, rows, again)

	bad := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("asset,coin\nBTC,BTC\n"), 0o644))
	_, err = ReadChosen(bad)
	assert.ErrorContains(t, err, "missing column")
}

func TestGroup(t *testing.T) {
	rows := []Chosen{
		{Asset: "GOLD", Coin: "xyz:GOLD", Dex: "xyz", DataSince: since.AddDate(0, 0, 5), AssetType: model.AssetCommodity},
		{Asset: "BTC", Coin: "BTC", YFTicker: "BTC-USD", DataSince: since, AssetType: model.AssetCrypto},
		{Asset: "GOLD", Coin: "flx:GOLD", Dex: "flx", DataSince: since, YFTicker: "GC=F", AssetType: model.AssetCommodity},
	}
	got := Group(rows)
	require.Len(t, got, 2)
	assert.Equal(t, "BTC", got[0].Asset)

	gold := got[1]
	assert.Len(t, gold.Venues, 2)
	assert.Equal(t, "GC=F", gold.YFTicker)
	assert.Equal(t, since, gold.Since())
	ex, sym := gold.ReferenceSymbol()
	assert.Equal(t, model.ExchangeYahoo, ex)
	assert.Equal(t, "GC=F", sym)

	gold.CEXSymbol = "PAXGUSDT"
	ex, sym = gold.ReferenceSymbol()
	assert.Equal(t, model.ExchangeBinance, ex)
	assert.Equal(t, "PAXGUSDT", sym)
}

func TestComparerRun(t *testing.T) {
	root := t.TempDir()
	perps := &fakePerps{bars: map[string][]model.Candle{
		"xyz:GOLD": hourly(since, 30, 100, 2),
		"flx:GOLD": hourly(since, 30, 102, 1),
	}}
	yahoo := &fakeRef{bars: hourly(since.Add(2*time.Hour), 5, 101, 10)}
	binance := &fakeRef{err: errors.New("down")}

	c := New(root, perps, WithReference(model.ExchangeYahoo, yahoo), WithReference(model.ExchangeBinance, binance), WithConcurrency(2))
	c.now = func() time.Time { return now }

	rows := []Chosen{
		{Asset: "GOLD", Coin: "xyz:GOLD", Dex: "xyz", DataSince: since, YFTicker: "GC=F", AssetType: model.AssetCommodity},
		{Asset: "GOLD", Coin: "flx:GOLD", Dex: "flx", DataSince: since.Add(time.Hour), YFTicker: "GC=F", AssetType: model.AssetCommodity},
		{Asset: "NOPE", Coin: "NOPE", Dex: "xyz", DataSince: since, YFTicker: "NOPE", AssetType: model.AssetEquity},
	}
	sum, err := c.Run(context.Background(), rows)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Assets)
	assert.Equal(t, 1, sum.Written)
	assert.Equal(t, 1, sum.Failed)

	assert.Equal(t, "GC=F", yahoo.symbol)
	assert.Equal(t, since, yahoo.start)

	path := filepath.Join(root, report.Phase1B, string(model.AssetCommodity), "GOLD.xlsx")
	require.Equal(t, []string{path}, sum.Paths)

	sheets, err := report.SheetList(path)
	require.NoError(t, err)
	assert.Equal(t, []string{HourlySheet, stats.DailySheet, MetaSheet}, sheets)

	header, hourlyRows, err := report.ReadSheet(path, HourlySheet)
	require.NoError(t, err)
	assert.Equal(t, HourlyHeader, header)
	require.Len(t, hourlyRows, 30)
	assert.Equal(t, "101", hourlyRows[0][4], "closes are averaged across DEXs")
	assert.Equal(t, "3", hourlyRows[0][5], "volumes are summed")

	// The daily sheet feeds the statistics loader.
	assets, err := stats.LoadAssets(filepath.Join(root, report.Phase1B), time.Time{}, time.Time{}, nil)
	require.NoError(t, err)
	require.Len(t, assets, 1)
	gold := assets[0]
	assert.Equal(t, "GOLD", gold.Name)
	require.Len(t, gold.Rows, 2)
	assert.InDelta(t, 24*101*3, gold.Rows[0].DefiNotionalVolume, 1e-6)
	assert.InDelta(t, 5*101*10, gold.Rows[0].TradFiNotionalVolume, 1e-6)
	assert.Equal(t, 1, gold.Overlap())

	for _, name := range []string{"xyz_GOLD_xyz.csv", "flx_GOLD_flx.csv", "GC_F.csv"} {
		_, err := os.Stat(filepath.Join(root, report.Phase1B, CandleDir, name))
		assert.NoError(t, err, name)
	}
}

func TestBuildWithoutReference(t *testing.T) {
	root := t.TempDir()
	perps := &fakePerps{bars: map[string][]model.Candle{"BTC": hourly(since, 2, 50000, 1)}}
	binance := &fakeRef{err: errors.New("down")}
	c := New(root, perps, WithReference(model.ExchangeBinance, binance))
	c.now = func() time.Time { return now }

	sel := Group([]Chosen{{Asset: "BTC", Coin: "BTC", Dex: "native", DataSince: since, CEXSymbol: "BTCUSDT", AssetType: model.AssetCrypto}})[0]
	path, err := c.Build(context.Background(), sel)
	require.NoError(t, err, "a failed reference leaves the TradFi side empty")
	assert.Equal(t, "BTCUSDT", binance.symbol)

	_, rows, err := report.ReadSheet(path, stats.DailySheet)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Len(t, rows[0], 4, "empty TradFi volume cell")
}
