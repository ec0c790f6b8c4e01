// Package edgex reads perp contracts, klines and funding from the edgeX
// public REST API.
package edgex

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"time"

	"github.com/rickgao/perp-research/internal/api"
	"github.com/rickgao/perp-research/internal/model"
)

const (
	// DefaultBaseURL is the public mainnet API.
	DefaultBaseURL = "https://pro.edgex.exchange"

	// DefaultRateLimit is the spacing between requests.
	DefaultRateLimit = 200 * time.Millisecond

	codeSuccess = "SUCCESS"

	// klinesPerRequest is the API page size cap.
	klinesPerRequest = 1000

	// fundingPageSize is the API page size cap for funding history.
	fundingPageSize = 100
)

// Client is an edgeX public API client.
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
	rest := api.NewClient(model.ExchangeEdgex, baseURL, append(base, opts...)...)
	return &Client{
		rest:   rest,
		logger: rest.Logger().With("exchange", model.ExchangeEdgex),
		now:    time.Now,
	}
}

// Name implements the venue source interfaces.
func (c *Client) Name() string {
	return model.ExchangeEdgex
}

type envelope struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// get calls path and decodes the envelope's data into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	var env envelope
	if err := c.rest.Get(ctx, path, query, &env); err != nil {
		return err
	}
	if env.Code != codeSuccess {
		return &api.EnvelopeError{Exchange: model.ExchangeEdgex, Code: env.Code, Message: env.Msg}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

var quoteSuffix = regexp.MustCompile(`(USD|USDT|2USD)$`)

// ContractBase strips the quote suffix from a contract name: "BTCUSD" is "BTC".
func ContractBase(name string) string {
	return quoteSuffix.ReplaceAllString(name, "")
}

var klineTypes = map[model.Timeframe]string{
	model.M1:  "MINUTE_1",
	model.M5:  "MINUTE_5",
	model.M15: "MINUTE_15",
	model.M30: "MINUTE_30",
	model.H1:  "HOUR_1",
	model.H4:  "HOUR_4",
	model.D1:  "DAY_1",
	model.W1:  "WEEK_1",
	model.MO1: "MONTH_1",
}

// KlineType maps a timeframe to the API klineType.
func KlineType(tf model.Timeframe) (string, error) {
	k, ok := klineTypes[tf]
	if !ok {
		return "", fmt.Errorf("edgex %s: %w", tf, model.ErrUnsupportedTimeframe)
	}
	return k, nil
}

// ServerTime returns the exchange clock.
func (c *Client) ServerTime(ctx context.Context) (time.Time, error) {
	var data struct {
		TimeMillis api.FlexInt `json:"timeMillis"`
	}
	if err := c.get(ctx, "/api/v1/public/meta/getServerTime", nil, &data); err != nil {
		return time.Time{}, fmt.Errorf("server time: %w", err)
	}
	return model.UnixMilli(data.TimeMillis.Int64()), nil
}
