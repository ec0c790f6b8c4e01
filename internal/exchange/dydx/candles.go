package dydx

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
	StartedAt       string         `json:"startedAt"`
	Ticker          string         `json:"ticker"`
	Resolution      string         `json:"resolution"`
	Open            api.FlexString `json:"open"`
	High            api.FlexString `json:"high"`
	Low             api.FlexString `json:"low"`
	Close           api.FlexString `json:"close"`
	BaseTokenVolume api.FlexString `json:"baseTokenVolume"`
	USDVolume       api.FlexString `json:"usdVolume"`
	Trades          api.FlexInt    `json:"trades"`
}

// candlePage fetches up to limit candles opening in [from, to], newest first.
// Zero bounds are omitted.
func (c *Client) candlePage(ctx context.Context, ticker string, tf model.Timeframe, from, to time.Time, limit int) ([]model.Candle, error) {
	res, err := Resolution(tf)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("resolution", res)
	q.Set("limit", strconv.Itoa(limit))
	if !from.IsZero() {
		q.Set("fromISO", formatISO(from))
	}
	if !to.IsZero() {
		q.Set("toISO", formatISO(to))
	}

	var resp struct {
		Candles []rawCandle `json:"candles"`
	}
	if err := c.rest.Get(ctx, "/v4/candles/perpetualMarkets/"+url.PathEscape(ticker), q, &resp); err != nil {
		return nil, fmt.Errorf("candles %s %s: %w", ticker, tf, err)
	}

	out := make([]model.Candle, 0, len(resp.Candles))
	for _, r := range resp.Candles {
		out = append(out, model.Candle{
			Exchange:    model.ExchangeDydx,
			Symbol:      ticker,
			Interval:    tf,
			OpenTime:    parseISO(r.StartedAt),
			Open:        model.ParseFloat(r.Open.String()),
			High:        model.ParseFloat(r.High.String()),
			Low:         model.ParseFloat(r.Low.String()),
			Close:       model.ParseFloat(r.Close.String()),
			Volume:      model.ParseFloat(r.BaseTokenVolume.String()),
			QuoteVolume: model.ParseFloat(r.USDVolume.String()),
			Trades:      r.Trades.Int64(),
		})
	}
	return out, nil
}

// Candles walks backward from end, one full page at a time, until it
// crosses start or the indexer runs out of history.
func (c *Client) Candles(ctx context.Context, ticker string, tf model.Timeframe, start, end time.Time) ([]model.Candle, error) {
	if _, err := Resolution(tf); err != nil {
		return nil, err
	}
	if end.IsZero() {
		end = c.now().UTC()
	}

	var all []model.Candle
	to := end
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page, err := c.candlePage(ctx, ticker, tf, start, to, pageLimit)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		all = append(all, page...)

		oldest := ohlcv.Earliest(page)
		if len(page) < pageLimit || !oldest.After(start) || !oldest.Before(to) {
			break
		}
		to = oldest.Add(-time.Millisecond)
	}
	return ohlcv.Dedupe(all), nil
}

// FetchOHLCV fetches a market over [start, end] and trims the result to the
// requested range.
func (c *Client) FetchOHLCV(ctx context.Context, ticker string, tf model.Timeframe, start, end time.Time) ([]model.Candle, error) {
	if end.IsZero() {
		end = c.now().UTC()
	}
	candles, err := c.Candles(ctx, ticker, tf, start, end)
	if err != nil {
		return nil, err
	}
	return ohlcv.Trim(candles, start, end), nil
}

// InceptionDate returns the start of the oldest daily candle of a market, or
// nil when it cannot be determined.
func (c *Client) InceptionDate(ctx context.Context, ticker string) *time.Time {
	candles, err := c.Candles(ctx, ticker, model.D1, time.Time{}, c.now().UTC())
	if err != nil {
		c.logger.Debug("inception lookup failed", "ticker", ticker, "err", err)
		return nil
	}
	if len(candles) == 0 {
		return nil
	}
	first := candles[0].OpenTime
	return &first
}

// InceptionDates looks up every ticker in turn.
func (c *Client) InceptionDates(ctx context.Context, tickers []string) []model.Inception {
	out := make([]model.Inception, 0, len(tickers))
	for _, t := range tickers {
		if ctx.Err() != nil {
			break
		}
		since := c.InceptionDate(ctx, t)
		out = append(out, model.NewInception(t, model.ExchangeDydx, "dYdX", t, since, c.now()))
	}
	return out
}
