package edgex

import (
	"context"
	"fmt"
	"net/url"

	"github.com/rickgao/perp-research/internal/api"
	"github.com/rickgao/perp-research/internal/model"
)

type rawContract struct {
	ContractID          string         `json:"contractId"`
	ContractName        string         `json:"contractName"`
	BaseCoinID          string         `json:"baseCoinId"`
	QuoteCoinID         string         `json:"quoteCoinId"`
	MinOrderSize        api.FlexString `json:"minOrderSize"`
	MaxOrderSize        api.FlexString `json:"maxOrderSize"`
	DefaultTakerFeeRate api.FlexString `json:"defaultTakerFeeRate"`
	DefaultMakerFeeRate api.FlexString `json:"defaultMakerFeeRate"`
	DefaultLeverage     api.FlexString `json:"defaultLeverage"`
	EnableTrade         bool           `json:"enableTrade"`
	EnableDisplay       bool           `json:"enableDisplay"`
	EnableOpenPosition  bool           `json:"enableOpenPosition"`
}

type rawCoin struct {
	CoinID   string         `json:"coinId"`
	CoinName string         `json:"coinName"`
	StepSize api.FlexString `json:"stepSize"`
	IconURL  string         `json:"iconUrl"`
}

type rawMetadata struct {
	CoinList     []rawCoin     `json:"coinList"`
	ContractList []rawContract `json:"contractList"`
}

type rawTicker struct {
	ContractID         string         `json:"contractId"`
	ContractName       string         `json:"contractName"`
	PriceChange        api.FlexString `json:"priceChange"`
	PriceChangePercent api.FlexString `json:"priceChangePercent"`
	Trades             api.FlexInt    `json:"trades"`
	Size               api.FlexString `json:"size"`
	Value              api.FlexString `json:"value"`
	High               api.FlexString `json:"high"`
	Low                api.FlexString `json:"low"`
	Open               api.FlexString `json:"open"`
	Close              api.FlexString `json:"close"`
	LastPrice          api.FlexString `json:"lastPrice"`
	IndexPrice         api.FlexString `json:"indexPrice"`
	OraclePrice        api.FlexString `json:"oraclePrice"`
	OpenInterest       api.FlexString `json:"openInterest"`
	FundingRate        api.FlexString `json:"fundingRate"`
}

// Coin is one entry of the coin list.
type Coin struct {
	ID       string
	Name     string
	StepSize string
	IconURL  string
}

// Contract is a perp contract with its venue flags.
type Contract struct {
	model.Market
	BaseCoinID         string
	QuoteCoinID        string
	EnableTrade        bool
	EnableDisplay      bool
	EnableOpenPosition bool
}

func (c *Client) metadata(ctx context.Context) (rawMetadata, error) {
	var meta rawMetadata
	if err := c.get(ctx, "/api/v1/public/meta/getMetaData", nil, &meta); err != nil {
		return meta, fmt.Errorf("metadata: %w", err)
	}
	return meta, nil
}

// Contracts lists every perp contract.
func (c *Client) Contracts(ctx context.Context) ([]Contract, error) {
	meta, err := c.metadata(ctx)
	if err != nil {
		return nil, err
	}

	coins := make(map[string]string, len(meta.CoinList))
	for _, coin := range meta.CoinList {
		coins[coin.CoinID] = coin.CoinName
	}

	out := make([]Contract, 0, len(meta.ContractList))
	for _, rc := range meta.ContractList {
		status := "disabled"
		if rc.EnableTrade {
			status = model.MarketStatusActive
		}
		out = append(out, Contract{
			Market: model.Market{
				Exchange:     model.ExchangeEdgex,
				MarketID:     rc.ContractID,
				Name:         rc.ContractName,
				BaseSymbol:   ContractBase(rc.ContractName),
				QuoteSymbol:  coins[rc.QuoteCoinID],
				MarketType:   model.MarketTypePerp,
				Status:       status,
				IsDelisted:   !rc.EnableTrade,
				MaxLeverage:  model.ParseFloat(rc.DefaultLeverage.String()),
				TakerFee:     model.ParseFloat(rc.DefaultTakerFeeRate.String()),
				MakerFee:     model.ParseFloat(rc.DefaultMakerFeeRate.String()),
				MinOrderSize: model.ParseFloat(rc.MinOrderSize.String()),
				MaxOrderSize: model.ParseFloat(rc.MaxOrderSize.String()),
			},
			BaseCoinID:         rc.BaseCoinID,
			QuoteCoinID:        rc.QuoteCoinID,
			EnableTrade:        rc.EnableTrade,
			EnableDisplay:      rc.EnableDisplay,
			EnableOpenPosition: rc.EnableOpenPosition,
		})
	}
	return out, nil
}

// Markets lists every perp contract as unified market rows.
func (c *Client) Markets(ctx context.Context) ([]model.Market, error) {
	contracts, err := c.Contracts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Market, 0, len(contracts))
	for _, ct := range contracts {
		out = append(out, ct.Market)
	}
	c.logger.Debug("markets fetched", "count", len(out))
	return out, nil
}

// Coins lists every coin known to the venue.
func (c *Client) Coins(ctx context.Context) ([]Coin, error) {
	meta, err := c.metadata(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Coin, 0, len(meta.CoinList))
	for _, rc := range meta.CoinList {
		out = append(out, Coin{ID: rc.CoinID, Name: rc.CoinName, StepSize: rc.StepSize.String(), IconURL: rc.IconURL})
	}
	return out, nil
}

// ResolveContract maps a contract name ("BTCUSD") or id to a contract id.
func (c *Client) ResolveContract(ctx context.Context, symbolOrID string) (string, error) {
	contracts, err := c.Contracts(ctx)
	if err != nil {
		return "", err
	}
	for _, ct := range contracts {
		if ct.MarketID == symbolOrID || ct.Name == symbolOrID {
			return ct.MarketID, nil
		}
	}
	return "", fmt.Errorf("edgex contract %q: %w", symbolOrID, model.ErrUnknownMarket)
}

// Ticker returns 24h ticker rows, for one contract or for all when
// contractID is empty.
func (c *Client) Ticker(ctx context.Context, contractID string) ([]model.Snapshot, error) {
	q := url.Values{}
	if contractID != "" {
		q.Set("contractId", contractID)
	}

	var tickers []rawTicker
	if err := c.get(ctx, "/api/v1/public/quote/getTicker", q, &tickers); err != nil {
		return nil, fmt.Errorf("ticker %s: %w", contractID, err)
	}

	now := c.now().UTC()
	out := make([]model.Snapshot, 0, len(tickers))
	for _, t := range tickers {
		s := model.Snapshot{
			Time:           now,
			Exchange:       model.ExchangeEdgex,
			Symbol:         t.ContractName,
			Base:           ContractBase(t.ContractName),
			LastPrice:      model.ParseFloat(t.LastPrice.String()),
			IndexPrice:     model.ParseFloat(t.IndexPrice.String()),
			OraclePrice:    model.ParseFloat(t.OraclePrice.String()),
			Volume24hBase:  model.ParseFloat(t.Size.String()),
			Volume24hUSD:   model.ParseFloat(t.Value.String()),
			Trades24h:      t.Trades.Int64(),
			OpenInterest:   model.ParseFloat(t.OpenInterest.String()),
			FundingRate:    model.ParseFloat(t.FundingRate.String()),
			PriceChangePct: model.ParseFloat(t.PriceChangePercent.String()),
		}
		// The venue reports last price only; it stands in for mark.
		s.MarkPrice = s.LastPrice
		s.OpenInterestUSD = s.OpenInterest * s.Price()
		out = append(out, s)
	}
	return out, nil
}

// Snapshot returns ticker rows for every trading contract. The bulk ticker
// is tried first; when it comes back empty each contract is queried on its
// own and failures are skipped.
func (c *Client) Snapshot(ctx context.Context) ([]model.Snapshot, error) {
	bulk, err := c.Ticker(ctx, "")
	if err == nil && len(bulk) > 0 {
		return bulk, nil
	}
	if err != nil {
		c.logger.Debug("bulk ticker failed, falling back to per-contract", "err", err)
	}

	contracts, err := c.Contracts(ctx)
	if err != nil {
		return nil, err
	}

	var out []model.Snapshot
	for _, ct := range contracts {
		if !ct.EnableTrade {
			continue
		}
		snaps, err := c.Ticker(ctx, ct.MarketID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("ticker failed", "contract", ct.Name, "err", err)
			continue
		}
		out = append(out, snaps...)
	}
	return out, nil
}
