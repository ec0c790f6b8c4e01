package binance

import (
	"context"
	"fmt"
	"strings"

	"github.com/rickgao/perp-research/internal/model"
)

// Markets lists the given spot symbols, or every symbol when none are given.
func (c *Client) Markets(ctx context.Context, symbols ...string) ([]model.Market, error) {
	svc := c.api.NewExchangeInfoService()
	if len(symbols) > 0 {
		svc = svc.Symbols(symbols...)
	}
	info, err := svc.Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("exchange info: %w", err)
	}
	out := make([]model.Market, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		status := strings.ToLower(s.Status)
		if status == "trading" {
			status = model.MarketStatusActive
		}
		out = append(out, model.Market{
			Exchange:    model.ExchangeBinance,
			MarketID:    s.Symbol,
			Name:        s.Symbol,
			BaseSymbol:  s.BaseAsset,
			QuoteSymbol: s.QuoteAsset,
			MarketType:  model.MarketTypeSpot,
			Status:      status,
			IsDelisted:  status != model.MarketStatusActive,
		})
	}
	return out, nil
}

// Snapshot returns the rolling 24h statistics of one symbol.
func (c *Client) Snapshot(ctx context.Context, symbol string) (model.Snapshot, error) {
	stats, err := c.api.NewListPriceChangeStatsService().Symbol(symbol).Do(ctx)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("24hr ticker %s: %w", symbol, err)
	}
	if len(stats) == 0 {
		return model.Snapshot{}, fmt.Errorf("24hr ticker %s: %w", symbol, model.ErrNoData)
	}
	s := stats[0]
	return model.Snapshot{
		Time:           c.now().UTC(),
		Exchange:       model.ExchangeBinance,
		Symbol:         s.Symbol,
		LastPrice:      model.ParseFloat(s.LastPrice),
		PrevDayPrice:   model.ParseFloat(s.OpenPrice),
		Volume24hBase:  model.ParseFloat(s.Volume),
		Volume24hUSD:   model.ParseFloat(s.QuoteVolume),
		Trades24h:      s.Count,
		PriceChangePct: model.ParseFloat(s.PriceChangePercent),
	}, nil
}
