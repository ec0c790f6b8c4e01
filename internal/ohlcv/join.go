package ohlcv

import (
	"math"
	"sort"
	"time"

	"github.com/rickgao/perp-research/internal/model"
)

// JoinedRow pairs the on-chain and off-chain bar for one timestamp.
type JoinedRow struct {
	Time      time.Time
	Defi      model.Candle
	HasDefi   bool
	TradFi    model.Candle
	HasTradFi bool
}

// Join outer-joins two series on open time, sorted ascending.
func Join(defi, tradfi []model.Candle) []JoinedRow {
	rows := make(map[int64]*JoinedRow, len(defi)+len(tradfi))

	get := func(t time.Time) *JoinedRow {
		key := t.UnixMilli()
		r, ok := rows[key]
		if !ok {
			r = &JoinedRow{Time: t.UTC()}
			rows[key] = r
		}
		return r
	}

	for _, c := range defi {
		r := get(c.OpenTime)
		r.Defi, r.HasDefi = c, true
	}
	for _, c := range tradfi {
		r := get(c.OpenTime)
		r.TradFi, r.HasTradFi = c, true
	}

	out := make([]JoinedRow, 0, len(rows))
	for _, r := range rows {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

// DailyRow is one UTC calendar day of joined data. Missing sides are NaN.
type DailyRow struct {
	Date                 time.Time
	DefiNotionalVolume   float64
	TradFiNotionalVolume float64
	DefiClose            float64
	TradFiClose          float64
}

// Notional returns the bar's quote volume, falling back to volume x close.
func Notional(c model.Candle) float64 {
	if c.QuoteVolume > 0 {
		return c.QuoteVolume
	}
	return c.Volume * c.Close
}

// ResampleDaily rolls intraday joined rows up to UTC days: notional volumes
// are summed and the close is the last close of the day. A side with no bars
// on a day is NaN for that day.
func ResampleDaily(rows []JoinedRow) []DailyRow {
	type acc struct {
		row                DailyRow
		defiSeen, tradSeen bool
		defiLast, tradLast time.Time
	}

	days := make(map[string]*acc)
	var order []string

	for _, r := range rows {
		day := r.Time.UTC().Format(model.DateLayout)
		a, ok := days[day]
		if !ok {
			d, _ := time.Parse(model.DateLayout, day)
			a = &acc{row: DailyRow{Date: d}}
			days[day] = a
			order = append(order, day)
		}
		if r.HasDefi {
			a.row.DefiNotionalVolume += Notional(r.Defi)
			if !a.defiSeen || !r.Time.Before(a.defiLast) {
				a.row.DefiClose = r.Defi.Close
				a.defiLast = r.Time
			}
			a.defiSeen = true
		}
		if r.HasTradFi {
			a.row.TradFiNotionalVolume += Notional(r.TradFi)
			if !a.tradSeen || !r.Time.Before(a.tradLast) {
				a.row.TradFiClose = r.TradFi.Close
				a.tradLast = r.Time
			}
			a.tradSeen = true
		}
	}

	sort.Strings(order)
	out := make([]DailyRow, 0, len(order))
	for _, day := range order {
		a := days[day]
		if !a.defiSeen {
			a.row.DefiNotionalVolume = math.NaN()
			a.row.DefiClose = math.NaN()
		}
		if !a.tradSeen {
			a.row.TradFiNotionalVolume = math.NaN()
			a.row.TradFiClose = math.NaN()
		}
		out = append(out, a.row)
	}
	return out
}
