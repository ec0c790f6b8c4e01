package stats

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"github.com/rickgao/perp-research/internal/model"
)

// VolumeStat is the average daily notional volume of one asset over the days
// both sides traded.
type VolumeStat struct {
	Asset      string
	DefiMean   float64
	TradFiMean float64
	Days       int
}

// Ratio is TradFi over DeFi volume, 0 when DeFi volume is not positive.
func (v VolumeStat) Ratio() float64 {
	if v.DefiMean <= 0 {
		return 0
	}
	return v.TradFiMean / v.DefiMean
}

// VolumeStatistics summarizes each asset with overlapping days, in input
// order.
func VolumeStatistics(assets []AssetSeries) []VolumeStat {
	var out []VolumeStat
	for _, a := range assets {
		var defi, tradfi []float64
		for _, r := range a.Rows {
			if valid(r.DefiNotionalVolume) && valid(r.TradFiNotionalVolume) {
				defi = append(defi, r.DefiNotionalVolume)
				tradfi = append(tradfi, r.TradFiNotionalVolume)
			}
		}
		if len(defi) == 0 {
			continue
		}
		out = append(out, VolumeStat{
			Asset:      a.Name,
			DefiMean:   mean(defi),
			TradFiMean: mean(tradfi),
			Days:       len(defi),
		})
	}
	return out
}

// TypeSummary aggregates one asset type.
type TypeSummary struct {
	AssetType       model.AssetType
	Assets          int
	AvgPriceCorr    float64 // NaN when no asset has a price correlation
	TotalDefiVolume float64 // sum of per-asset daily means
	TotalTradFiVol  float64
	AvgDays         float64
}

// AssetTypeSummary aggregates assets per type over the days where all four
// daily columns are present. Types with no such day are omitted.
func AssetTypeSummary(assets []AssetSeries) []TypeSummary {
	groups := GroupByType(assets, false)

	var out []TypeSummary
	for _, typ := range Types(groups) {
		s := TypeSummary{AssetType: typ}
		var corrs, days []float64
		for _, a := range groups[typ] {
			var dv, tv, dc, tc []float64
			for _, r := range a.Rows {
				if !valid(r.DefiNotionalVolume) || !valid(r.TradFiNotionalVolume) ||
					!valid(r.DefiClose) || !valid(r.TradFiClose) {
					continue
				}
				dv = append(dv, r.DefiNotionalVolume)
				tv = append(tv, r.TradFiNotionalVolume)
				dc = append(dc, r.DefiClose)
				tc = append(tc, r.TradFiClose)
			}
			if len(dv) == 0 {
				continue
			}
			s.Assets++
			s.TotalDefiVolume += mean(dv)
			s.TotalTradFiVol += mean(tv)
			days = append(days, float64(len(dv)))
			corrs = append(corrs, pearson(dc, tc))
		}
		if s.Assets == 0 {
			continue
		}
		s.AvgPriceCorr = nanMean(corrs)
		s.AvgDays = mean(days)
		out = append(out, s)
	}
	return out
}

func pearson(x, y []float64) float64 {
	if len(x) < 2 {
		return math.NaN()
	}
	return stat.Correlation(x, y, nil)
}
