// Package hyperliquid reads perp and spot market data from the Hyperliquid
// info endpoint, across the native DEX and every builder-deployed DEX.
package hyperliquid

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/rickgao/perp-research/internal/api"
	"github.com/rickgao/perp-research/internal/model"
)

const (
	// DefaultBaseURL is the public mainnet API.
	DefaultBaseURL = "https://api.hyperliquid.xyz"

	// DefaultRateLimit is the spacing between info requests.
	DefaultRateLimit = 200 * time.Millisecond

	infoPath = "/info"

	// candlesPerRequest bounds one candleSnapshot window.
	candlesPerRequest = 5000
)

// NativeDex labels the first entry of perpDexs, which the API returns as null.
const NativeDex = "Hyperliquid (native)"

// Client is a Hyperliquid info API client.
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
	rest := api.NewClient(model.ExchangeHyperliquid, baseURL, append(base, opts...)...)
	return &Client{
		rest:   rest,
		logger: rest.Logger().With("exchange", model.ExchangeHyperliquid),
		now:    time.Now,
	}
}

// Name implements the venue source interfaces.
func (c *Client) Name() string {
	return model.ExchangeHyperliquid
}

// info posts one info request.
func (c *Client) info(ctx context.Context, payload map[string]any, out any) error {
	return c.rest.Post(ctx, infoPath, payload, out)
}

// -----------------------------------------------------------------------------
// Raw payloads
// -----------------------------------------------------------------------------

type perpAsset struct {
	Name         string  `json:"name"`
	SzDecimals   int     `json:"szDecimals"`
	MaxLeverage  float64 `json:"maxLeverage"`
	OnlyIsolated bool    `json:"onlyIsolated"`
	IsDelisted   bool    `json:"isDelisted"`
}

type perpMeta struct {
	Universe []perpAsset `json:"universe"`
}

type perpDex struct {
	Name     string `json:"name"`
	FullName string `json:"fullName"`
	Deployer string `json:"deployer"`
}

type assetCtx struct {
	Funding      string   `json:"funding"`
	OpenInterest string   `json:"openInterest"`
	PrevDayPx    string   `json:"prevDayPx"`
	DayNtlVlm    string   `json:"dayNtlVlm"`
	DayBaseVlm   string   `json:"dayBaseVlm"`
	Premium      string   `json:"premium"`
	OraclePx     string   `json:"oraclePx"`
	MarkPx       string   `json:"markPx"`
	MidPx        string   `json:"midPx"`
	ImpactPxs    []string `json:"impactPxs"`
}

type rawCandle struct {
	OpenTime  int64  `json:"t"`
	CloseTime int64  `json:"T"`
	Symbol    string `json:"s"`
	Interval  string `json:"i"`
	Open      string `json:"o"`
	High      string `json:"h"`
	Low       string `json:"l"`
	Close     string `json:"c"`
	Volume    string `json:"v"`
	Trades    int64  `json:"n"`
}

func (r rawCandle) toModel(coin string, tf model.Timeframe) model.Candle {
	return model.Candle{
		Exchange:  model.ExchangeHyperliquid,
		Symbol:    coin,
		Interval:  tf,
		OpenTime:  model.UnixMilli(r.OpenTime),
		CloseTime: model.UnixMilli(r.CloseTime),
		Open:      model.ParseFloat(r.Open),
		High:      model.ParseFloat(r.High),
		Low:       model.ParseFloat(r.Low),
		Close:     model.ParseFloat(r.Close),
		Volume:    model.ParseFloat(r.Volume),
		Trades:    r.Trades,
	}
}

// decodePair splits the [meta, ctxs] tuple returned by the *AndAssetCtxs calls.
func decodePair(raw []json.RawMessage, meta, ctxs any) error {
	if len(raw) != 2 {
		return model.ErrNoData
	}
	if err := json.Unmarshal(raw[0], meta); err != nil {
		return err
	}
	return json.Unmarshal(raw[1], ctxs)
}
