// Package zklighter reads perp markets, candles and funding from the
// zkLighter public REST API.
package zklighter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"time"

	"github.com/rickgao/perp-research/internal/api"
	"github.com/rickgao/perp-research/internal/model"
)

const (
	// DefaultBaseURL is the public mainnet API.
	DefaultBaseURL = "https://mainnet.zklighter.elliot.ai"

	// DefaultRateLimit is the spacing between requests.
	DefaultRateLimit = 200 * time.Millisecond

	codeOK = 200

	// candlesPerRequest is the count_back used for every candle window.
	candlesPerRequest = 5000

	// inceptionCountBack covers the whole history of a daily series.
	inceptionCountBack = 10000
)

// Client is a zkLighter public API client.
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
	rest := api.NewClient(model.ExchangeZkLighter, baseURL, append(base, opts...)...)
	return &Client{
		rest:   rest,
		logger: rest.Logger().With("exchange", model.ExchangeZkLighter),
		now:    time.Now,
	}
}

// Name implements the venue source interfaces.
func (c *Client) Name() string {
	return model.ExchangeZkLighter
}

type envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// get calls path, checks the inline status code and decodes the body into out.
func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	var raw json.RawMessage
	if err := c.rest.Get(ctx, path, query, &raw); err != nil {
		return err
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	if env.Code != codeOK {
		return &api.EnvelopeError{
			Exchange: model.ExchangeZkLighter,
			Code:     strconv.Itoa(env.Code),
			Message:  env.Message,
		}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

var resolutions = map[model.Timeframe]string{
	model.M1:  "1m",
	model.M5:  "5m",
	model.M15: "15m",
	model.M30: "30m",
	model.H1:  "1h",
	model.H4:  "4h",
	model.H12: "12h",
	model.D1:  "1d",
	model.W1:  "1w",
}

// Resolution maps a timeframe to the API resolution.
func Resolution(tf model.Timeframe) (string, error) {
	r, ok := resolutions[tf]
	if !ok {
		return "", fmt.Errorf("zklighter %s: %w", tf, model.ErrUnsupportedTimeframe)
	}
	return r, nil
}
