package hyperliquid

import (
	"context"
	"fmt"
	"time"

	"github.com/rickgao/perp-research/internal/model"
	"github.com/rickgao/perp-research/internal/ohlcv"
)

// candleSnapshot fetches the bars of coin opening in [from, to].
func (c *Client) candleSnapshot(ctx context.Context, coin string, tf model.Timeframe, from, to time.Time) ([]model.Candle, error) {
	payload := map[string]any{
		"type": "candleSnapshot",
		"req": map[string]any{
			"coin":      coin,
			"interval":  tf.String(),
			"startTime": from.UnixMilli(),
			"endTime":   to.UnixMilli(),
		},
	}

	var raw []rawCandle
	if err := c.info(ctx, payload, &raw); err != nil {
		return nil, fmt.Errorf("candleSnapshot %s %s: %w", coin, tf, err)
	}
	out := make([]model.Candle, 0, len(raw))
	for _, r := range raw {
		out = append(out, r.toModel(coin, tf))
	}
	return out, nil
}

// Candles pages forward through [start, end] in windows of 5000 bars.
// coin is the exact API coin ("BTC", "xyz:GOLD", "@107").
func (c *Client) Candles(ctx context.Context, coin string, tf model.Timeframe, start, end time.Time) ([]model.Candle, error) {
	if !tf.Valid() {
		return nil, fmt.Errorf("%s: %w", tf, model.ErrUnsupportedTimeframe)
	}
	r := ohlcv.Range{
		Start: start,
		End:   end,
		Step:  time.Duration(candlesPerRequest) * tf.Duration(),
	}
	return ohlcv.Paginate(ctx, r, ohlcv.AdvanceByMillis(1), func(ctx context.Context, from, to time.Time) (ohlcv.Page, error) {
		candles, err := c.candleSnapshot(ctx, coin, tf, from, to)
		return ohlcv.Page{Candles: candles}, err
	})
}

// FetchOHLCV fetches a perp on dex over [start, end] and trims the result to
// the requested range. A zero end means now.
func (c *Client) FetchOHLCV(ctx context.Context, coin, dex string, tf model.Timeframe, start, end time.Time) ([]model.Candle, error) {
	if end.IsZero() {
		end = c.now().UTC()
	}
	candles, err := c.Candles(ctx, ResolveCoin(coin, dex), tf, start, end)
	if err != nil {
		return nil, err
	}
	return ohlcv.Trim(candles, start, end), nil
}

// FetchSpotOHLCV fetches a spot pair, by name or "@index", over [start, end].
func (c *Client) FetchSpotOHLCV(ctx context.Context, pair string, tf model.Timeframe, start, end time.Time) ([]model.Candle, error) {
	coin, err := c.ResolveSpotPair(ctx, pair)
	if err != nil {
		return nil, err
	}
	if end.IsZero() {
		end = c.now().UTC()
	}
	candles, err := c.Candles(ctx, coin, tf, start, end)
	if err != nil {
		return nil, err
	}
	return ohlcv.Trim(candles, start, end), nil
}

// InceptionDate returns the open time of the first daily bar of coin on dex,
// or nil when it cannot be determined.
func (c *Client) InceptionDate(ctx context.Context, coin, dex string) *time.Time {
	ticker := ResolveCoin(coin, dex)
	candles, err := c.candleSnapshot(ctx, ticker, model.D1, time.UnixMilli(0), c.now())
	if err != nil {
		c.logger.Debug("inception lookup failed", "coin", ticker, "err", err)
		return nil
	}
	if len(candles) == 0 {
		return nil
	}
	first := ohlcv.Earliest(candles).UTC()
	return &first
}

// InceptionDates looks up every coin on one DEX in turn.
func (c *Client) InceptionDates(ctx context.Context, coins []string, dex string) []model.Inception {
	label := dex
	if IsNativeDex(dex) {
		label = NativeDex
	}

	out := make([]model.Inception, 0, len(coins))
	for i, coin := range coins {
		if ctx.Err() != nil {
			break
		}
		since := c.InceptionDate(ctx, coin, dex)
		out = append(out, model.NewInception(coin, model.ExchangeHyperliquid, label, coin, since, c.now()))
		if (i+1)%10 == 0 || i+1 == len(coins) {
			c.logger.Debug("inception progress", "dex", label, "done", i+1, "total", len(coins))
		}
	}
	return out
}
