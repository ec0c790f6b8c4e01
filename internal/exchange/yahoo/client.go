// Package yahoo reads TradFi reference data from the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/rickgao/perp-research/internal/api"
	"github.com/rickgao/perp-research/internal/model"
)

const (
	// DefaultBaseURL is the public chart API host.
	DefaultBaseURL = "https://query1.finance.yahoo.com"

	// DefaultRateLimit is the spacing between requests.
	DefaultRateLimit = 200 * time.Millisecond

	chartPath = "/v8/finance/chart/"
)

// historyStart is the start used when a caller asks for full history.
var historyStart = time.Date(1900, 1, 1, 0, 0, 0, 0, time.UTC)

// Client is a Yahoo Finance chart API client.
type Client struct {
	rest   *api.Client
	logger *slog.Logger
	now    func() time.Time
}

// NewClient creates a client. Options are applied on top of the venue defaults.
func NewClient(baseURL string, opts ...api.ClientOption) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	base := []api.ClientOption{api.WithRateLimit(DefaultRateLimit)}
	rest := api.NewClient(model.ExchangeYahoo, baseURL, append(base, opts...)...)
	return &Client{
		rest:   rest,
		logger: rest.Logger().With("exchange", model.ExchangeYahoo),
		now:    time.Now,
	}
}

// Name implements the venue source interfaces.
func (c *Client) Name() string {
	return model.ExchangeYahoo
}

var intervals = map[model.Timeframe]string{
	model.M1:  "1m",
	model.M5:  "5m",
	model.M15: "15m",
	model.M30: "30m",
	model.H1:  "1h",
	model.D1:  "1d",
	model.W1:  "1wk",
	model.MO1: "1mo",
}

// Interval maps a timeframe to the chart API interval.
func Interval(tf model.Timeframe) (string, error) {
	iv, ok := intervals[tf]
	if !ok {
		return "", fmt.Errorf("yahoo %s: %w", tf, model.ErrUnsupportedTimeframe)
	}
	return iv, nil
}

// -----------------------------------------------------------------------------
// Raw payloads
// -----------------------------------------------------------------------------

type chartMeta struct {
	Symbol               string  `json:"symbol"`
	Currency             string  `json:"currency"`
	ExchangeName         string  `json:"exchangeName"`
	FullExchangeName     string  `json:"fullExchangeName"`
	InstrumentType       string  `json:"instrumentType"`
	LongName             string  `json:"longName"`
	ShortName            string  `json:"shortName"`
	FirstTradeDate       *int64  `json:"firstTradeDate"`
	RegularMarketTime    int64   `json:"regularMarketTime"`
	RegularMarketPrice   float64 `json:"regularMarketPrice"`
	PreviousClose        float64 `json:"previousClose"`
	ChartPreviousClose   float64 `json:"chartPreviousClose"`
	RegularMarketDayHigh float64 `json:"regularMarketDayHigh"`
	RegularMarketDayLow  float64 `json:"regularMarketDayLow"`
	RegularMarketVolume  float64 `json:"regularMarketVolume"`
}

type chartQuote struct {
	Open   []*float64 `json:"open"`
	High   []*float64 `json:"high"`
	Low    []*float64 `json:"low"`
	Close  []*float64 `json:"close"`
	Volume []*float64 `json:"volume"`
}

type chartResult struct {
	Meta       chartMeta `json:"meta"`
	Timestamp  []int64   `json:"timestamp"`
	Indicators struct {
		Quote    []chartQuote `json:"quote"`
		AdjClose []struct {
			AdjClose []*float64 `json:"adjclose"`
		} `json:"adjclose"`
	} `json:"indicators"`
}

type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// chart fetches one chart window. Zero bounds fall back to a one-day range.
func (c *Client) chart(ctx context.Context, symbol, interval string, start, end time.Time) (*chartResult, error) {
	q := url.Values{}
	q.Set("interval", interval)
	q.Set("includePrePost", "false")
	q.Set("events", "div,splits")
	if start.IsZero() && end.IsZero() {
		q.Set("range", "1d")
	} else {
		q.Set("period1", strconv.FormatInt(start.Unix(), 10))
		q.Set("period2", strconv.FormatInt(end.Unix(), 10))
	}

	var resp chartResponse
	if err := c.rest.Get(ctx, chartPath+url.PathEscape(symbol), q, &resp); err != nil {
		return nil, fmt.Errorf("chart %s: %w", symbol, err)
	}
	if e := resp.Chart.Error; e != nil {
		return nil, &api.EnvelopeError{Exchange: model.ExchangeYahoo, Code: e.Code, Message: e.Description}
	}
	if len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("chart %s: %w", symbol, model.ErrNoData)
	}
	return &resp.Chart.Result[0], nil
}
