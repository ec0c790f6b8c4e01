package yahoo

import (
	"context"
	"time"

	"github.com/rickgao/perp-research/internal/model"
	"github.com/rickgao/perp-research/internal/ohlcv"
)

// Candles returns split- and dividend-adjusted bars in [start, end]. A zero
// start means full history and a zero end means now. Bars with any missing
// price are dropped.
func (c *Client) Candles(ctx context.Context, symbol string, tf model.Timeframe, start, end time.Time) ([]model.Candle, error) {
	iv, err := Interval(tf)
	if err != nil {
		return nil, err
	}
	if start.IsZero() {
		start = historyStart
	}
	if end.IsZero() {
		end = c.now().UTC()
	}

	res, err := c.chart(ctx, symbol, iv, start, end)
	if err != nil {
		return nil, err
	}
	return ohlcv.Dedupe(res.candles(symbol, tf)), nil
}

func at(s []*float64, i int) (float64, bool) {
	if i >= len(s) || s[i] == nil {
		return 0, false
	}
	return *s[i], true
}

// candles converts the columnar chart arrays to bars.
func (r *chartResult) candles(symbol string, tf model.Timeframe) []model.Candle {
	if len(r.Indicators.Quote) == 0 {
		return nil
	}
	q := r.Indicators.Quote[0]
	var adj []*float64
	if len(r.Indicators.AdjClose) > 0 {
		adj = r.Indicators.AdjClose[0].AdjClose
	}

	out := make([]model.Candle, 0, len(r.Timestamp))
	for i, ts := range r.Timestamp {
		o, ok1 := at(q.Open, i)
		h, ok2 := at(q.High, i)
		l, ok3 := at(q.Low, i)
		cl, ok4 := at(q.Close, i)
		if !ok1 || !ok2 || !ok3 || !ok4 {
			continue
		}
		vol, _ := at(q.Volume, i)

		if a, ok := at(adj, i); ok && cl != 0 {
			f := a / cl
			o, h, l, cl = o*f, h*f, l*f, a
		}

		out = append(out, model.Candle{
			Exchange: model.ExchangeYahoo,
			Symbol:   symbol,
			Interval: tf,
			OpenTime: time.Unix(ts, 0).UTC(),
			Open:     o,
			High:     h,
			Low:      l,
			Close:    cl,
			Volume:   vol,
		})
	}
	return out
}

// FetchOHLCV fetches a symbol over [start, end] trimmed to the range.
func (c *Client) FetchOHLCV(ctx context.Context, symbol string, tf model.Timeframe, start, end time.Time) ([]model.Candle, error) {
	if end.IsZero() {
		end = c.now().UTC()
	}
	candles, err := c.Candles(ctx, symbol, tf, start, end)
	if err != nil {
		return nil, err
	}
	if start.IsZero() {
		start = historyStart
	}
	return ohlcv.Trim(candles, start, end), nil
}

// InceptionDate returns the first trade date from the chart meta, falling
// back to the first daily bar. It returns nil when neither is available.
func (c *Client) InceptionDate(ctx context.Context, symbol string) *time.Time {
	res, err := c.chart(ctx, symbol, "1d", historyStart, c.now().UTC())
	if err != nil {
		c.logger.Debug("inception lookup failed", "symbol", symbol, "err", err)
		return nil
	}
	if ft := res.Meta.info().FirstTrade; ft != nil {
		return ft
	}
	candles := res.candles(symbol, model.D1)
	if len(candles) == 0 {
		return nil
	}
	first := ohlcv.Earliest(candles)
	return &first
}

// InceptionDates looks up every symbol in turn.
func (c *Client) InceptionDates(ctx context.Context, symbols []string) []model.Inception {
	out := make([]model.Inception, 0, len(symbols))
	for _, s := range symbols {
		if ctx.Err() != nil {
			break
		}
		since := c.InceptionDate(ctx, s)
		out = append(out, model.NewInception(s, model.ExchangeYahoo, "Yahoo Finance", s, since, c.now()))
	}
	return out
}
