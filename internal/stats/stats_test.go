package stats

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/perp-research/internal/config"
	"github.com/rickgao/perp-research/internal/model"
	"github.com/rickgao/perp-research/internal/ohlcv"
	"github.com/rickgao/perp-research/internal/report"
)

var day0 = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

func series(name string, typ model.AssetType, defi, tradfi []float64) AssetSeries {
	a := AssetSeries{Name: name, AssetType: typ}
	for i := range defi {
		a.Rows = append(a.Rows, ohlcv.DailyRow{
			Date:                 day0.AddDate(0, 0, i),
			DefiNotionalVolume:   defi[i],
			TradFiNotionalVolume: tradfi[i],
			DefiClose:            100 + float64(i),
			TradFiClose:          100 + float64(i),
		})
	}
	return a
}

func TestCriticalT(t *testing.T) {
	assert.InDelta(t, 4.303, CriticalT(0.95, 2), 1e-3)
	assert.InDelta(t, 1.96, CriticalT(0.95, 100000), 1e-2)
	assert.True(t, math.IsNaN(CriticalT(0.95, 0)))
}

func TestValidWindow(t *testing.T) {
	nan := math.NaN()
	values := []float64{10, 0, 20, nan, 30, 40}

	assert.Equal(t, []int{0, 2, 4}, ValidWindow(values, 5, 3))
	assert.Equal(t, []int{2, 4, 5}, ValidWindow(values, 6, 3))
	assert.Nil(t, ValidWindow(values, 4, 3), "only two valid values before index 4")
	assert.Nil(t, ValidWindow(values, 0, 1))
}

func TestScoreWindowString(t *testing.T) {
	assert.Equal(t, "[3, 4, 5]", Score{Window: []int{3, 4, 5}}.WindowString())
	assert.Equal(t, InsufficientData, Score{}.WindowString())
	assert.True(t, Score{T: -4.303}.Significant(4.303))
	assert.False(t, Score{T: 4.3}.Significant(4.303))
}

func TestDailyVolumeTTest(t *testing.T) {
	nan := math.NaN()

	t.Run("scores against the previous window", func(t *testing.T) {
		defi := []float64{nan, 10, 20, 30, 100, 0, 25}
		tradfi := []float64{5, 5, 5, 5, 5, 5, 5}
		res, err := DailyVolumeTTest(series("BTC", model.AssetCrypto, defi, tradfi), 3, 0.95)
		require.NoError(t, err)

		// Leading day without DeFi volume is dropped.
		require.Len(t, res.Rows, 6)
		assert.Equal(t, day0.AddDate(0, 0, 1), res.Rows[0].Date)

		for i := 0; i < 3; i++ {
			assert.Zero(t, res.Rows[i].Defi.T)
			assert.True(t, math.IsNaN(res.Rows[i].Defi.Mean))
			assert.Equal(t, InsufficientData, res.Rows[i].Defi.WindowString())
		}

		spike := res.Rows[3].Defi
		assert.Equal(t, []int{0, 1, 2}, spike.Window)
		assert.InDelta(t, 20, spike.Mean, 1e-9)
		assert.InDelta(t, 10, spike.Std, 1e-9)
		assert.InDelta(t, 80/(10/math.Sqrt(3)), spike.T, 1e-9)
		assert.Equal(t, 1, res.DefiHits)

		// Zero volume today is not scored.
		assert.Zero(t, res.Rows[4].Defi.T)
		assert.Nil(t, res.Rows[4].Defi.Window)

		// The zero day is skipped when filling the window.
		assert.Equal(t, []int{1, 2, 3}, res.Rows[5].Defi.Window)

		// Constant TradFi volume has zero std and a zero score.
		assert.Zero(t, res.Rows[3].TradFi.T)
		assert.Zero(t, res.Rows[3].TradFi.Std)
		assert.Zero(t, res.TradFiHits)
	})

	t.Run("no defi volume", func(t *testing.T) {
		_, err := DailyVolumeTTest(series("X", model.AssetCrypto, []float64{0, nan}, []float64{1, 1}), 3, 0.95)
		assert.ErrorIs(t, err, ErrInsufficientData)
	})

	t.Run("too little overlap", func(t *testing.T) {
		defi := []float64{1, 2, 3, 4, 5, 6}
		tradfi := []float64{nan, nan, 1, 2, 3, 4}
		_, err := DailyVolumeTTest(series("X", model.AssetCrypto, defi, tradfi), 3, 0.95)
		assert.ErrorIs(t, err, ErrInsufficientData)
	})
}

func TestCrossCorrelate(t *testing.T) {
	f := func(i int) float64 { return float64((i*i)%11) + 1 }
	var defi, tradfi []float64
	for i := 0; i < 30; i++ {
		defi = append(defi, f(i))
		tradfi = append(tradfi, f(i-2))
	}

	res, err := CrossCorrelate(series("ETH", model.AssetCrypto, defi, tradfi), -7, 7)
	require.NoError(t, err)
	require.Len(t, res.Lags, 15)
	assert.Equal(t, -7, res.Lags[0].Lag)
	assert.Equal(t, 2, res.Peak.Lag)
	assert.InDelta(t, 1, res.Peak.Corr, 1e-9)
	assert.Equal(t, 28, res.Lags[9].Pairs)

	_, err = CrossCorrelate(series("ETH", model.AssetCrypto, defi[:9], tradfi[:9]), -7, 7)
	assert.ErrorIs(t, err, ErrInsufficientData)

	// Lags beyond the series leave too few pairs.
	short, err := CrossCorrelate(series("ETH", model.AssetCrypto, defi[:10], tradfi[:10]), -7, 7)
	require.NoError(t, err)
	assert.True(t, math.IsNaN(short.Lags[0].Corr))
	assert.Equal(t, 3, short.Lags[0].Pairs)
}

func TestPriceCorrelations(t *testing.T) {
	b := series("B", model.AssetEquity, make([]float64, 6), make([]float64, 6))
	for i := range b.Rows {
		b.Rows[i].DefiClose = b.Rows[i].TradFiClose * 1.01
	}
	a := series("A", model.AssetEquity, make([]float64, 4), make([]float64, 4))

	got := PriceCorrelations([]AssetSeries{b, a})
	require.Len(t, got, 1, "A has too few days")
	assert.Equal(t, "B", got[0].Asset)
	assert.InDelta(t, 1, got[0].Corr, 1e-9)
	assert.InDelta(t, 1, got[0].AvgDiffPercent, 1e-9)
	assert.Greater(t, got[0].TrackingError, 0.0)
	assert.Equal(t, 6, got[0].Days)
}

func TestVolumeStatisticsAndSummary(t *testing.T) {
	nan := math.NaN()
	btc := series("BTC", model.AssetCrypto, []float64{10, 20, nan}, []float64{30, 60, 90})
	eth := series("ETH", model.AssetCrypto, []float64{0, 0}, []float64{5, 5})
	gold := series("GOLD", model.AssetCommodity, []float64{nan}, []float64{1})

	stats := VolumeStatistics([]AssetSeries{btc, eth, gold})
	require.Len(t, stats, 2)
	assert.Equal(t, 15.0, stats[0].DefiMean)
	assert.Equal(t, 45.0, stats[0].TradFiMean)
	assert.Equal(t, 3.0, stats[0].Ratio())
	assert.Equal(t, 2, stats[0].Days)
	assert.Zero(t, stats[1].Ratio())

	summary := AssetTypeSummary([]AssetSeries{btc, eth, gold})
	require.Len(t, summary, 1)
	s := summary[0]
	assert.Equal(t, model.AssetCrypto, s.AssetType)
	assert.Equal(t, 2, s.Assets)
	assert.Equal(t, 15.0, s.TotalDefiVolume)
	assert.Equal(t, 50.0, s.TotalTradFiVol)
	assert.Equal(t, 2.0, s.AvgDays)
	assert.InDelta(t, 1, s.AvgPriceCorr, 1e-9)

	assert.Equal(t, []string{"Asset", "DEX Avg ($/day)", "CEX Avg ($/day)", "Ratio (CEX/DEX)", "Days"},
		VolumeStatsHeader(model.AssetCrypto))
}

func TestGroupByType(t *testing.T) {
	nan := math.NaN()
	a := series("A", model.AssetEquity, []float64{1, nan}, []float64{1, 1})
	b := series("B", model.AssetEquity, []float64{1, 1}, []float64{1, 1})
	c := series("C", model.AssetCrypto, []float64{1}, []float64{1})

	groups := GroupByType([]AssetSeries{a, b, c}, true)
	assert.Equal(t, []model.AssetType{model.AssetCrypto, model.AssetEquity}, Types(groups))
	assert.Equal(t, "B", groups[model.AssetEquity][0].Name)

	byName := GroupByType([]AssetSeries{b, a}, false)
	assert.Equal(t, "A", byName[model.AssetEquity][0].Name)
}

func writeDaily(t *testing.T, root string, typ model.AssetType, a AssetSeries) {
	t.Helper()
	dir, err := report.OutputDir(root, report.Phase1B, string(typ))
	require.NoError(t, err)

	rows := make([][]any, len(a.Rows))
	for i, r := range a.Rows {
		rows[i] = []any{report.Date(r.Date), r.DefiNotionalVolume, r.TradFiNotionalVolume, r.DefiClose, r.TradFiClose}
	}
	wb := report.NewWorkbook()
	require.NoError(t, wb.AddSheet(DailySheet, DailyHeader, rows))
	require.NoError(t, wb.Save(filepath.Join(dir, a.Name+".xlsx")))
}

func TestLoadAssets(t *testing.T) {
	root := t.TempDir()
	nan := math.NaN()
	writeDaily(t, root, model.AssetCrypto, series("SOL", model.AssetCrypto, []float64{1, 2, nan, 4}, []float64{5, 6, 7, 8}))

	all, err := LoadAssets(filepath.Join(root, report.Phase1B), time.Time{}, time.Time{}, nil)
	require.NoError(t, err)
	require.Len(t, all, 1)
	sol := all[0]
	assert.Equal(t, "SOL", sol.Name)
	assert.Equal(t, model.AssetCrypto, sol.AssetType)
	assert.Equal(t, 4, sol.TotalDays)
	assert.Equal(t, day0, sol.Inception)
	assert.True(t, math.IsNaN(sol.Rows[2].DefiNotionalVolume))
	assert.Equal(t, 3, sol.Overlap())

	filtered, err := LoadAssets(filepath.Join(root, report.Phase1B), day0.AddDate(0, 0, 1), day0.AddDate(0, 0, 2), nil)
	require.NoError(t, err)
	assert.Len(t, filtered[0].Rows, 2)
	assert.Equal(t, 4, filtered[0].TotalDays)
}

func TestRun(t *testing.T) {
	root := t.TempDir()
	var defi, tradfi []float64
	for i := 0; i < 20; i++ {
		defi = append(defi, float64(100+i%4*10))
		tradfi = append(tradfi, float64(1000+i%5*50))
	}
	defi[15] = 5000
	writeDaily(t, root, model.AssetCrypto, series("BTC", model.AssetCrypto, defi, tradfi))
	writeDaily(t, root, model.AssetEquity, series("NVDA", model.AssetEquity, []float64{1, 2}, []float64{3, 4}))

	cfg := config.ResearchConfig{TTestWindow: 3, ConfidenceLevel: 0.95, LagMin: -7, LagMax: 7}
	sum, err := Run(context.Background(), root, cfg, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Assets)
	assert.Equal(t, 1, sum.TTests)
	assert.Equal(t, 1, sum.Skipped)
	assert.Equal(t, 1, sum.CrossCorrelations)

	out := filepath.Join(root, report.Phase2B)
	header, rows, err := report.ReadCSV(TTestPath(filepath.Join(out, TTestDir), "BTC"))
	require.NoError(t, err)
	assert.Equal(t, TTestHeader, header)
	require.Len(t, rows, 20)
	assert.Equal(t, "2025-01-16", rows[15]["date"])
	assert.Greater(t, report.ParseFloat(rows[15]["defi_t_score"]), 4.303)

	for _, name := range []string{VolumeStatsFile, CrossCorrelationFile, PriceCorrelationFile, TypeSummaryFile} {
		_, err := os.Stat(filepath.Join(out, name))
		assert.NoError(t, err, name)
	}
	sheets, err := report.SheetList(filepath.Join(out, VolumeStatsFile))
	require.NoError(t, err)
	assert.Equal(t, []string{string(model.AssetCrypto), string(model.AssetEquity)}, sheets)
}

func TestParseDate(t *testing.T) {
	for _, s := range []string{"2025-01-01", "2025-01-01 00:00:00", "2025-01-01T00:00:00Z"} {
		got, err := ParseDate(s)
		require.NoError(t, err, s)
		assert.Equal(t, day0, got)
	}
	_, err := ParseDate("yesterday")
	assert.Error(t, err)
}
