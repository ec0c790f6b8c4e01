// Package binance reads CEX spot klines, the off-chain side of crypto
// comparisons, through go-binance.
package binance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	gobinance "github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"

	"github.com/rickgao/perp-research/internal/model"
	"github.com/rickgao/perp-research/internal/ohlcv"
)

const (
	// DefaultBaseURL is the public spot API.
	DefaultBaseURL = "https://api.binance.com"

	// klinesPerRequest is the maximum kline page size.
	klinesPerRequest = 1000
)

// Client wraps the go-binance spot client. Only public endpoints are used.
type Client struct {
	api    *gobinance.Client
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger.With("exchange", model.ExchangeBinance)
		}
	}
}

// WithHTTPClient sets the HTTP client used by go-binance.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.api.HTTPClient = hc
	}
}

// NewClient creates a client against baseURL, or the public API when empty.
func NewClient(baseURL string, opts ...Option) *Client {
	api := gobinance.NewClient("", "")
	if baseURL != "" {
		api.BaseURL = baseURL
	} else {
		api.BaseURL = DefaultBaseURL
	}
	c := &Client{
		api:    api,
		logger: slog.Default().With("exchange", model.ExchangeBinance),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name implements the venue source interfaces.
func (c *Client) Name() string {
	return model.ExchangeBinance
}

// Interval maps a timeframe to the kline interval. Every model timeframe has
// a Binance equivalent with the same spelling.
func Interval(tf model.Timeframe) (string, error) {
	if !tf.Valid() {
		return "", fmt.Errorf("binance %s: %w", tf, model.ErrUnsupportedTimeframe)
	}
	return tf.String(), nil
}

// IsInvalidSymbol reports whether err is Binance's unknown symbol rejection.
func IsInvalidSymbol(err error) bool {
	var apiErr *common.APIError
	return errors.As(err, &apiErr) && apiErr.Code == -1121
}

func toCandle(k *gobinance.Kline, symbol string, tf model.Timeframe) model.Candle {
	return model.Candle{
		Exchange:    model.ExchangeBinance,
		Symbol:      symbol,
		Interval:    tf,
		OpenTime:    model.UnixMilli(k.OpenTime),
		CloseTime:   model.UnixMilli(k.CloseTime),
		Open:        model.ParseFloat(k.Open),
		High:        model.ParseFloat(k.High),
		Low:         model.ParseFloat(k.Low),
		Close:       model.ParseFloat(k.Close),
		Volume:      model.ParseFloat(k.Volume),
		QuoteVolume: model.ParseFloat(k.QuoteAssetVolume),
		Trades:      k.TradeNum,
	}
}

// klines fetches up to limit bars opening at or after from and at or before end.
func (c *Client) klines(ctx context.Context, symbol string, tf model.Timeframe, from, end time.Time, limit int) ([]model.Candle, error) {
	iv, err := Interval(tf)
	if err != nil {
		return nil, err
	}
	svc := c.api.NewKlinesService().
		Symbol(symbol).
		Interval(iv).
		StartTime(from.UnixMilli()).
		Limit(limit)
	if !end.IsZero() {
		svc = svc.EndTime(end.UnixMilli())
	}
	raw, err := svc.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("klines %s %s: %w", symbol, tf, err)
	}
	out := make([]model.Candle, 0, len(raw))
	for _, k := range raw {
		out = append(out, toCandle(k, symbol, tf))
	}
	return out, nil
}

// Candles pages forward from start in pages of 1000 bars. Each page starts
// one millisecond after the newest bar received, so months of uneven length
// are not skipped. A zero end means now.
func (c *Client) Candles(ctx context.Context, symbol string, tf model.Timeframe, start, end time.Time) ([]model.Candle, error) {
	if _, err := Interval(tf); err != nil {
		return nil, err
	}
	if end.IsZero() {
		end = c.now().UTC()
	}
	r := ohlcv.Range{Start: start, End: end, Step: klinesPerRequest * tf.Duration()}
	return ohlcv.Paginate(ctx, r, ohlcv.AdvanceByMillis(1), func(ctx context.Context, from, _ time.Time) (ohlcv.Page, error) {
		candles, err := c.klines(ctx, symbol, tf, from, end, klinesPerRequest)
		if err != nil {
			return ohlcv.Page{}, err
		}
		return ohlcv.Page{Candles: candles, Done: len(candles) < klinesPerRequest}, nil
	})
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
	return ohlcv.Trim(candles, start, end), nil
}

// InceptionDate returns the open time of the first daily kline, or nil when
// it cannot be determined.
func (c *Client) InceptionDate(ctx context.Context, symbol string) *time.Time {
	candles, err := c.klines(ctx, symbol, model.D1, time.UnixMilli(0), time.Time{}, 1)
	if err != nil {
		c.logger.Debug("inception lookup failed", "symbol", symbol, "err", err)
		return nil
	}
	if len(candles) == 0 {
		return nil
	}
	first := candles[0].OpenTime
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
		out = append(out, model.NewInception(s, model.ExchangeBinance, "Binance", s, since, c.now()))
	}
	return out
}
