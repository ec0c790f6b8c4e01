// Package dydx reads perpetual markets, candles and funding from the dYdX v4
// indexer.
package dydx

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/rickgao/perp-research/internal/api"
	"github.com/rickgao/perp-research/internal/model"
)

const (
	// DefaultBaseURL is the public indexer.
	DefaultBaseURL = "https://indexer.dydx.trade"

	// DefaultRateLimit is the spacing between requests.
	DefaultRateLimit = 300 * time.Millisecond

	// pageLimit is the indexer's maximum page size.
	pageLimit = 1000
)

// isoLayout is the indexer's timestamp format.
const isoLayout = "2006-01-02T15:04:05.000Z"

// Client is a dYdX indexer client.
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
	rest := api.NewClient(model.ExchangeDydx, baseURL, append(base, opts...)...)
	return &Client{
		rest:   rest,
		logger: rest.Logger().With("exchange", model.ExchangeDydx),
		now:    time.Now,
	}
}

// Name implements the venue source interfaces.
func (c *Client) Name() string {
	return model.ExchangeDydx
}

var resolutions = map[model.Timeframe]string{
	model.M1:  "1MIN",
	model.M5:  "5MINS",
	model.M15: "15MINS",
	model.M30: "30MINS",
	model.H1:  "1HOUR",
	model.H4:  "4HOURS",
	model.D1:  "1DAY",
}

// Resolution maps a timeframe to the indexer resolution.
func Resolution(tf model.Timeframe) (string, error) {
	r, ok := resolutions[tf]
	if !ok {
		return "", fmt.Errorf("dydx %s: %w", tf, model.ErrUnsupportedTimeframe)
	}
	return r, nil
}

func parseISO(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

func formatISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}
