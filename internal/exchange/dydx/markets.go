package dydx

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/rickgao/perp-research/internal/api"
	"github.com/rickgao/perp-research/internal/model"
)

type rawMarket struct {
	Ticker                string         `json:"ticker"`
	Status                string         `json:"status"`
	BaseAsset             string         `json:"baseAsset"`
	QuoteAsset            string         `json:"quoteAsset"`
	OraclePrice           api.FlexString `json:"oraclePrice"`
	PriceChange24H        api.FlexString `json:"priceChange24H"`
	Volume24H             api.FlexString `json:"volume24H"`
	Trades24H             api.FlexInt    `json:"trades24H"`
	NextFundingRate       api.FlexString `json:"nextFundingRate"`
	InitialMarginFraction api.FlexString `json:"initialMarginFraction"`
	OpenInterest          api.FlexString `json:"openInterest"`
}

func (m rawMarket) base() string {
	if m.BaseAsset != "" {
		return m.BaseAsset
	}
	base, _, _ := strings.Cut(m.Ticker, "-")
	return base
}

func (m rawMarket) quote() string {
	if m.QuoteAsset != "" {
		return m.QuoteAsset
	}
	_, quote, _ := strings.Cut(m.Ticker, "-")
	return quote
}

// perpetualMarkets returns the markets sorted by ticker.
func (c *Client) perpetualMarkets(ctx context.Context) ([]rawMarket, error) {
	var resp struct {
		Markets map[string]rawMarket `json:"markets"`
	}
	if err := c.rest.Get(ctx, "/v4/perpetualMarkets", nil, &resp); err != nil {
		return nil, fmt.Errorf("perpetual markets: %w", err)
	}
	out := make([]rawMarket, 0, len(resp.Markets))
	for ticker, m := range resp.Markets {
		if m.Ticker == "" {
			m.Ticker = ticker
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ticker < out[j].Ticker })
	return out, nil
}

// Markets lists every perpetual market.
func (c *Client) Markets(ctx context.Context) ([]model.Market, error) {
	raw, err := c.perpetualMarkets(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Market, 0, len(raw))
	for _, m := range raw {
		status := strings.ToLower(m.Status)
		var maxLev float64
		if imf := model.ParseFloat(m.InitialMarginFraction.String()); imf > 0 {
			maxLev = 1 / imf
		}
		out = append(out, model.Market{
			Exchange:    model.ExchangeDydx,
			MarketID:    m.Ticker,
			Name:        m.Ticker,
			BaseSymbol:  m.base(),
			QuoteSymbol: m.quote(),
			MarketType:  model.MarketTypePerp,
			Status:      status,
			IsDelisted:  status != model.MarketStatusActive,
			MaxLeverage: maxLev,
		})
	}
	return out, nil
}

// Snapshot returns the indexer's 24h statistics for every market.
func (c *Client) Snapshot(ctx context.Context) ([]model.Snapshot, error) {
	raw, err := c.perpetualMarkets(ctx)
	if err != nil {
		return nil, err
	}
	now := c.now().UTC()
	out := make([]model.Snapshot, 0, len(raw))
	for _, m := range raw {
		s := model.Snapshot{
			Time:         now,
			Exchange:     model.ExchangeDydx,
			Symbol:       m.Ticker,
			Base:         m.base(),
			OraclePrice:  model.ParseFloat(m.OraclePrice.String()),
			Volume24hUSD: model.ParseFloat(m.Volume24H.String()),
			Trades24h:    m.Trades24H.Int64(),
			OpenInterest: model.ParseFloat(m.OpenInterest.String()),
			FundingRate:  model.ParseFloat(m.NextFundingRate.String()),
		}
		s.MarkPrice = s.OraclePrice
		s.OpenInterestUSD = s.OpenInterest * s.OraclePrice
		if change := model.ParseFloat(m.PriceChange24H.String()); s.OraclePrice-change != 0 {
			s.PrevDayPrice = s.OraclePrice - change
			s.PriceChangePct = change / s.PrevDayPrice * 100
		}
		out = append(out, s)
	}
	return out, nil
}
