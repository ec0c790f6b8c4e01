package stats

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/rickgao/perp-research/internal/model"
)

// Thresholds of the correlation analyses.
const (
	DefaultLagMin = -7
	DefaultLagMax = 7

	// MinCrossCorrDays is the fewest overlapping days a lag scan runs on.
	MinCrossCorrDays = 10
	// MinLagPairs is the fewest valid pairs a single lag is computed from.
	MinLagPairs = 5
	// MinPriceDays is the fewest overlapping closes a price correlation runs on.
	MinPriceDays = 5
)

// LagCorrelation is the Pearson correlation of DeFi volume shifted by Lag
// days against TradFi volume. Corr is NaN when fewer than MinLagPairs pairs
// overlap.
type LagCorrelation struct {
	Lag   int
	Corr  float64
	Pairs int
}

// CrossCorrelation is the lag scan of one asset.
type CrossCorrelation struct {
	Asset     string
	AssetType model.AssetType
	Lags      []LagCorrelation
	Peak      LagCorrelation
}

// CrossCorrelate scans lags lagMin..lagMax inclusive. A positive lag pairs
// DeFi volume from lag days earlier with today's TradFi volume. The peak is
// the lag with the largest |corr|.
func CrossCorrelate(a AssetSeries, lagMin, lagMax int) (CrossCorrelation, error) {
	res := CrossCorrelation{Asset: a.Name, AssetType: a.AssetType}

	var defi, tradfi []float64
	for _, r := range a.Rows {
		if valid(r.DefiNotionalVolume) && valid(r.TradFiNotionalVolume) {
			defi = append(defi, r.DefiNotionalVolume)
			tradfi = append(tradfi, r.TradFiNotionalVolume)
		}
	}
	if len(defi) < MinCrossCorrDays {
		return res, ErrInsufficientData
	}

	res.Peak = LagCorrelation{Corr: math.NaN()}
	for lag := lagMin; lag <= lagMax; lag++ {
		var x, y []float64
		for i := range tradfi {
			j := i - lag
			if j < 0 || j >= len(defi) {
				continue
			}
			x = append(x, defi[j])
			y = append(y, tradfi[i])
		}
		lc := LagCorrelation{Lag: lag, Corr: math.NaN(), Pairs: len(x)}
		if len(x) >= MinLagPairs {
			lc.Corr = stat.Correlation(x, y, nil)
		}
		res.Lags = append(res.Lags, lc)

		if valid(lc.Corr) && (!valid(res.Peak.Corr) || math.Abs(lc.Corr) > math.Abs(res.Peak.Corr)) {
			res.Peak = lc
		}
	}
	return res, nil
}

// PriceCorrelation compares daily closes of one asset.
type PriceCorrelation struct {
	Asset          string
	AssetType      model.AssetType
	Corr           float64
	TrackingError  float64 // sample std of defi - tradfi
	AvgDiffPercent float64 // mean of (defi - tradfi) / tradfi
	Days           int
}

// PriceCorrelations computes price agreement for every asset with at least
// MinPriceDays overlapping closes, sorted by asset.
func PriceCorrelations(assets []AssetSeries) []PriceCorrelation {
	var out []PriceCorrelation
	for _, a := range assets {
		var defi, tradfi, diff, pct []float64
		for _, r := range a.Rows {
			if !valid(r.DefiClose) || !valid(r.TradFiClose) {
				continue
			}
			defi = append(defi, r.DefiClose)
			tradfi = append(tradfi, r.TradFiClose)
			d := r.DefiClose - r.TradFiClose
			diff = append(diff, d)
			if r.TradFiClose != 0 {
				pct = append(pct, d/r.TradFiClose*100)
			}
		}
		if len(defi) < MinPriceDays {
			continue
		}
		out = append(out, PriceCorrelation{
			Asset:          a.Name,
			AssetType:      a.AssetType,
			Corr:           stat.Correlation(defi, tradfi, nil),
			TrackingError:  stat.StdDev(diff, nil),
			AvgDiffPercent: mean(pct),
			Days:           len(defi),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Asset < out[j].Asset })
	return out
}

func mean(v []float64) float64 {
	if len(v) == 0 {
		return math.NaN()
	}
	return stat.Mean(v, nil)
}

// nanMean averages the present values of v.
func nanMean(v []float64) float64 {
	var keep []float64
	for _, x := range v {
		if valid(x) {
			keep = append(keep, x)
		}
	}
	return mean(keep)
}
