package zklighter

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rickgao/perp-research/internal/api"
	"github.com/rickgao/perp-research/internal/model"
)

type rawOrderBook struct {
	MarketID     int            `json:"market_id"`
	Symbol       string         `json:"symbol"`
	MarketType   string         `json:"market_type"`
	BaseAssetID  int            `json:"base_asset_id"`
	QuoteAssetID int            `json:"quote_asset_id"`
	TakerFee     api.FlexString `json:"taker_fee"`
	MakerFee     api.FlexString `json:"maker_fee"`
	MinBaseSize  api.FlexString `json:"min_base_amount"`
	MinSize      api.FlexString `json:"min_size"`
	Status       string         `json:"status"`
}

type rawDetail struct {
	MarketID              int            `json:"market_id"`
	Symbol                string         `json:"symbol"`
	LastTradePrice        api.FlexString `json:"last_trade_price"`
	DailyTradesCount      api.FlexInt    `json:"daily_trades_count"`
	DailyBaseTokenVolume  api.FlexString `json:"daily_base_token_volume"`
	DailyQuoteTokenVolume api.FlexString `json:"daily_quote_token_volume"`
	DailyPriceChange      api.FlexString `json:"daily_price_change"`
	PriceChange24h        api.FlexString `json:"price_change_24h"`
	OpenInterest          api.FlexString `json:"open_interest"`
	IndexPrice            api.FlexString `json:"index_price"`
	MarkPrice             api.FlexString `json:"mark_price"`
}

// ExchangeStats is the venue-wide activity summary.
type ExchangeStats struct {
	Total            int64   `json:"total"`
	DailyUSDVolume   float64 `json:"daily_usd_volume"`
	DailyTradesCount int64   `json:"daily_trades_count"`
}

// Markets lists every perp market.
func (c *Client) Markets(ctx context.Context) ([]model.Market, error) {
	q := url.Values{}
	q.Set("filter", "perp")

	var resp struct {
		OrderBooks []rawOrderBook `json:"order_books"`
	}
	if err := c.get(ctx, "/api/v1/orderBooks", q, &resp); err != nil {
		return nil, fmt.Errorf("order books: %w", err)
	}

	out := make([]model.Market, 0, len(resp.OrderBooks))
	for _, b := range resp.OrderBooks {
		minSize := b.MinSize
		if minSize == "" {
			minSize = b.MinBaseSize
		}
		marketType := b.MarketType
		if marketType == "" {
			marketType = model.MarketTypePerp
		}
		out = append(out, model.Market{
			Exchange:     model.ExchangeZkLighter,
			MarketID:     strconv.Itoa(b.MarketID),
			Name:         b.Symbol,
			BaseSymbol:   b.Symbol,
			MarketType:   marketType,
			Status:       b.Status,
			IsDelisted:   b.Status != model.MarketStatusActive,
			TakerFee:     model.ParseFloat(b.TakerFee.String()),
			MakerFee:     model.ParseFloat(b.MakerFee.String()),
			MinOrderSize: model.ParseFloat(minSize.String()),
		})
	}
	c.logger.Debug("markets fetched", "count", len(out))
	return out, nil
}

// ActiveMarkets keeps markets whose status is active.
func (c *Client) ActiveMarkets(ctx context.Context) ([]model.Market, error) {
	markets, err := c.Markets(ctx)
	if err != nil {
		return nil, err
	}
	out := markets[:0]
	for _, m := range markets {
		if m.Status == model.MarketStatusActive {
			out = append(out, m)
		}
	}
	return out, nil
}

// ResolveMarket maps a symbol ("ETH") or numeric id to a market id.
func (c *Client) ResolveMarket(ctx context.Context, symbolOrID string) (int, error) {
	if id, err := strconv.Atoi(symbolOrID); err == nil {
		return id, nil
	}
	markets, err := c.Markets(ctx)
	if err != nil {
		return 0, err
	}
	for _, m := range markets {
		if m.Name == symbolOrID {
			return strconv.Atoi(m.MarketID)
		}
	}
	return 0, fmt.Errorf("zklighter market %q: %w", symbolOrID, model.ErrUnknownMarket)
}

// Snapshot returns detail statistics for every perp market.
func (c *Client) Snapshot(ctx context.Context) ([]model.Snapshot, error) {
	q := url.Values{}
	q.Set("filter", "perp")

	var resp struct {
		Details []rawDetail `json:"order_book_details"`
	}
	if err := c.get(ctx, "/api/v1/orderBookDetails", q, &resp); err != nil {
		return nil, fmt.Errorf("order book details: %w", err)
	}

	now := c.now().UTC()
	out := make([]model.Snapshot, 0, len(resp.Details))
	for _, d := range resp.Details {
		change := d.DailyPriceChange
		if change == "" {
			change = d.PriceChange24h
		}
		s := model.Snapshot{
			Time:           now,
			Exchange:       model.ExchangeZkLighter,
			Symbol:         d.Symbol,
			Base:           d.Symbol,
			LastPrice:      model.ParseFloat(d.LastTradePrice.String()),
			MarkPrice:      model.ParseFloat(d.MarkPrice.String()),
			IndexPrice:     model.ParseFloat(d.IndexPrice.String()),
			Trades24h:      d.DailyTradesCount.Int64(),
			Volume24hBase:  model.ParseFloat(d.DailyBaseTokenVolume.String()),
			Volume24hUSD:   model.ParseFloat(d.DailyQuoteTokenVolume.String()),
			OpenInterest:   model.ParseFloat(d.OpenInterest.String()),
			PriceChangePct: model.ParseFloat(change.String()),
		}
		if s.MarkPrice == 0 {
			s.MarkPrice = s.LastPrice
		}
		s.OpenInterestUSD = s.OpenInterest * s.Price()
		out = append(out, s)
	}
	return out, nil
}

// ExchangeStats returns venue-wide totals.
func (c *Client) ExchangeStats(ctx context.Context) (ExchangeStats, error) {
	var stats ExchangeStats
	if err := c.get(ctx, "/api/v1/exchangeStats", nil, &stats); err != nil {
		return stats, fmt.Errorf("exchange stats: %w", err)
	}
	return stats, nil
}
