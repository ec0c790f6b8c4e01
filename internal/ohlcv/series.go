package ohlcv

import (
	"sort"
	"time"

	"github.com/rickgao/perp-research/internal/model"
)

// Dedupe drops candles whose open time was already seen, keeping the first
// occurrence, and returns the rest sorted by open time.
func Dedupe(candles []model.Candle) []model.Candle {
	if len(candles) == 0 {
		return candles
	}

	seen := make(map[int64]struct{}, len(candles))
	out := make([]model.Candle, 0, len(candles))
	for _, c := range candles {
		key := c.OpenTime.UnixMilli()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}

	SortByTime(out)
	return out
}

// SortByTime sorts candles ascending by open time in place.
func SortByTime(candles []model.Candle) {
	sort.SliceStable(candles, func(i, j int) bool {
		return candles[i].OpenTime.Before(candles[j].OpenTime)
	})
}

// Trim keeps candles with start <= OpenTime <= end.
func Trim(candles []model.Candle, start, end time.Time) []model.Candle {
	out := candles[:0:0]
	for _, c := range candles {
		if c.OpenTime.Before(start) || c.OpenTime.After(end) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// AggregateAcrossVenues merges several series of the same asset into one.
// Bars are grouped by open time; prices are averaged over the venues that
// reported the bar, volumes and trade counts are summed.
func AggregateAcrossVenues(series ...[]model.Candle) []model.Candle {
	type acc struct {
		candle model.Candle
		n      float64
	}

	groups := make(map[int64]*acc)
	for _, s := range series {
		for _, c := range s {
			key := c.OpenTime.UnixMilli()
			a, ok := groups[key]
			if !ok {
				a = &acc{candle: model.Candle{
					Exchange:  c.Exchange,
					Symbol:    c.Symbol,
					Interval:  c.Interval,
					OpenTime:  c.OpenTime,
					CloseTime: c.CloseTime,
				}}
				groups[key] = a
			}
			a.candle.Open += c.Open
			a.candle.High += c.High
			a.candle.Low += c.Low
			a.candle.Close += c.Close
			a.candle.Volume += c.Volume
			a.candle.QuoteVolume += c.QuoteVolume
			a.candle.Trades += c.Trades
			a.n++
		}
	}

	out := make([]model.Candle, 0, len(groups))
	for _, a := range groups {
		a.candle.Open /= a.n
		a.candle.High /= a.n
		a.candle.Low /= a.n
		a.candle.Close /= a.n
		out = append(out, a.candle)
	}

	SortByTime(out)
	return out
}
