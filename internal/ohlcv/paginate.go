package ohlcv

import (
	"context"
	"fmt"
	"time"

	"github.com/rickgao/perp-research/internal/model"
)

// Range is a forward pagination request: windows of Step starting at Start
// until End.
type Range struct {
	Start time.Time
	End   time.Time
	Step  time.Duration
}

// Page is one venue response.
type Page struct {
	Candles []model.Candle
	// Done is set when the venue reports there is nothing after this page
	// (edgeX hasNext=false).
	Done bool
}

// FetchFunc fetches the candles whose open time falls in [from, to].
type FetchFunc func(ctx context.Context, from, to time.Time) (Page, error)

// AdvanceFunc returns the next cursor given the newest open time received.
type AdvanceFunc func(last time.Time) time.Time

// AdvanceByMillis moves the cursor ms past the newest bar.
func AdvanceByMillis(ms int64) AdvanceFunc {
	return func(last time.Time) time.Time {
		return last.Add(time.Duration(ms) * time.Millisecond)
	}
}

// AdvanceByInterval moves the cursor one bar past the newest bar.
func AdvanceByInterval(tf model.Timeframe) AdvanceFunc {
	return AdvanceByMillis(tf.Milliseconds())
}

// Paginate walks r forward, calling fetch once per window.
//
// The loop stops when the cursor reaches End, a page is empty, the venue
// reports Done, or the newest bar of a page is not after the cursor.
// The result is de-duplicated by open time and sorted ascending.
func Paginate(ctx context.Context, r Range, advance AdvanceFunc, fetch FetchFunc) ([]model.Candle, error) {
	if r.Step <= 0 {
		return nil, fmt.Errorf("paginate: non-positive step %v", r.Step)
	}

	var all []model.Candle
	cursor := r.Start

	for cursor.Before(r.End) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		windowEnd := cursor.Add(r.Step)
		if windowEnd.After(r.End) {
			windowEnd = r.End
		}

		page, err := fetch(ctx, cursor, windowEnd)
		if err != nil {
			return nil, err
		}
		if len(page.Candles) == 0 {
			break
		}
		all = append(all, page.Candles...)

		if page.Done {
			break
		}

		last := Latest(page.Candles)
		if !last.After(cursor) {
			break
		}
		cursor = advance(last)
	}

	return Dedupe(all), nil
}

// Latest returns the newest open time in candles, zero for an empty slice.
// Venues differ on page ordering so the whole page is scanned.
func Latest(candles []model.Candle) time.Time {
	var latest time.Time
	for _, c := range candles {
		if c.OpenTime.After(latest) {
			latest = c.OpenTime
		}
	}
	return latest
}

// Earliest returns the oldest open time in candles, zero for an empty slice.
func Earliest(candles []model.Candle) time.Time {
	var earliest time.Time
	for i, c := range candles {
		if i == 0 || c.OpenTime.Before(earliest) {
			earliest = c.OpenTime
		}
	}
	return earliest
}
