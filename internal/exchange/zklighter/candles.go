package zklighter

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rickgao/perp-research/internal/api"
	"github.com/rickgao/perp-research/internal/model"
	"github.com/rickgao/perp-research/internal/ohlcv"
)

type rawCandle struct {
	T           api.FlexInt    `json:"t"`
	Open        api.FlexString `json:"o"`
	High        api.FlexString `json:"h"`
	Low         api.FlexString `json:"l"`
	Close       api.FlexString `json:"c"`
	Volume      api.FlexString `json:"v"`
	QuoteVolume api.FlexString `json:"V"`
}

// candleWindow fetches up to countBack bars of marketID in [from, to].
func (c *Client) candleWindow(ctx context.Context, marketID int, tf model.Timeframe, from, to time.Time, countBack int) ([]model.Candle, error) {
	res, err := Resolution(tf)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("market_id", strconv.Itoa(marketID))
	q.Set("resolution", res)
	q.Set("start_timestamp", strconv.FormatInt(from.UnixMilli(), 10))
	q.Set("end_timestamp", strconv.FormatInt(to.UnixMilli(), 10))
	q.Set("count_back", strconv.Itoa(countBack))

	var resp struct {
		Candles []rawCandle `json:"c"`
	}
	if err := c.get(ctx, "/api/v1/candles", q, &resp); err != nil {
		return nil, fmt.Errorf("candles %d %s: %w", marketID, tf, err)
	}

	symbol := strconv.Itoa(marketID)
	out := make([]model.Candle, 0, len(resp.Candles))
	for _, r := range resp.Candles {
		out = append(out, model.Candle{
			Exchange:    model.ExchangeZkLighter,
			Symbol:      symbol,
			Interval:    tf,
			OpenTime:    model.UnixMilli(r.T.Int64()),
			Open:        model.ParseFloat(r.Open.String()),
			High:        model.ParseFloat(r.High.String()),
			Low:         model.ParseFloat(r.Low.String()),
			Close:       model.ParseFloat(r.Close.String()),
			Volume:      model.ParseFloat(r.Volume.String()),
			QuoteVolume: model.ParseFloat(r.QuoteVolume.String()),
		})
	}
	return out, nil
}

// Candles pages forward through [start, end] in windows of 5000 bars.
// A zero start means the epoch; a zero end means now.
func (c *Client) Candles(ctx context.Context, marketID int, tf model.Timeframe, start, end time.Time) ([]model.Candle, error) {
	if _, err := Resolution(tf); err != nil {
		return nil, err
	}
	if start.IsZero() {
		start = time.UnixMilli(0).UTC()
	}
	if end.IsZero() {
		end = c.now().UTC()
	}

	r := ohlcv.Range{Start: start, End: end, Step: time.Duration(candlesPerRequest) * tf.Duration()}
	return ohlcv.Paginate(ctx, r, ohlcv.AdvanceByInterval(tf), func(ctx context.Context, from, to time.Time) (ohlcv.Page, error) {
		candles, err := c.candleWindow(ctx, marketID, tf, from, to, candlesPerRequest)
		return ohlcv.Page{Candles: candles}, err
	})
}

// FetchOHLCV fetches a market, by symbol or id, over [start, end] and trims
// the result to the requested range.
func (c *Client) FetchOHLCV(ctx context.Context, symbolOrID string, tf model.Timeframe, start, end time.Time) ([]model.Candle, error) {
	id, err := c.ResolveMarket(ctx, symbolOrID)
	if err != nil {
		return nil, err
	}
	if end.IsZero() {
		end = c.now().UTC()
	}
	candles, err := c.Candles(ctx, id, tf, start, end)
	if err != nil {
		return nil, err
	}
	return ohlcv.Trim(candles, start, end), nil
}

// InceptionDate returns the open time of the first daily bar of a market,
// or nil when it cannot be determined.
func (c *Client) InceptionDate(ctx context.Context, marketID int) *time.Time {
	candles, err := c.candleWindow(ctx, marketID, model.D1, time.UnixMilli(0), c.now(), inceptionCountBack)
	if err != nil {
		c.logger.Debug("inception lookup failed", "market_id", marketID, "err", err)
		return nil
	}
	if len(candles) == 0 {
		return nil
	}
	first := ohlcv.Earliest(candles)
	return &first
}

// InceptionDates looks up every market in turn.
func (c *Client) InceptionDates(ctx context.Context, marketIDs []int) []model.Inception {
	out := make([]model.Inception, 0, len(marketIDs))
	for _, id := range marketIDs {
		if ctx.Err() != nil {
			break
		}
		since := c.InceptionDate(ctx, id)
		sym := strconv.Itoa(id)
		out = append(out, model.NewInception(sym, model.ExchangeZkLighter, "zkLighter", sym, since, c.now()))
	}
	return out
}
