package yahoo

import (
	"context"
	"time"

	"github.com/rickgao/perp-research/internal/model"
)

// Info is the instrument metadata carried in the chart meta block.
type Info struct {
	Symbol         string
	Name           string
	Exchange       string
	Currency       string
	InstrumentType string
	Price          float64
	PreviousClose  float64
	DayHigh        float64
	DayLow         float64
	Volume         float64
	FirstTrade     *time.Time
}

func (m chartMeta) info() Info {
	inf := Info{
		Symbol:         m.Symbol,
		Name:           m.LongName,
		Exchange:       m.ExchangeName,
		Currency:       m.Currency,
		InstrumentType: m.InstrumentType,
		Price:          m.RegularMarketPrice,
		PreviousClose:  m.PreviousClose,
		DayHigh:        m.RegularMarketDayHigh,
		DayLow:         m.RegularMarketDayLow,
		Volume:         m.RegularMarketVolume,
	}
	if inf.Name == "" {
		inf.Name = m.ShortName
	}
	if inf.PreviousClose == 0 {
		inf.PreviousClose = m.ChartPreviousClose
	}
	if m.FirstTradeDate != nil {
		t := time.Unix(*m.FirstTradeDate, 0).UTC()
		inf.FirstTrade = &t
	}
	return inf
}

// Info returns the metadata of one symbol.
func (c *Client) Info(ctx context.Context, symbol string) (Info, error) {
	res, err := c.chart(ctx, symbol, "1d", time.Time{}, time.Time{})
	if err != nil {
		return Info{}, err
	}
	inf := res.Meta.info()
	if inf.Symbol == "" {
		inf.Symbol = symbol
	}
	return inf, nil
}

// Markets returns one row per symbol. Symbols that fail are logged and kept
// with empty metadata.
func (c *Client) Markets(ctx context.Context, symbols []string) []model.Market {
	out := make([]model.Market, 0, len(symbols))
	for _, sym := range symbols {
		m := model.Market{
			Exchange:   model.ExchangeYahoo,
			MarketID:   sym,
			Name:       sym,
			BaseSymbol: sym,
			MarketType: model.MarketTypeSpot,
			Status:     model.MarketStatusActive,
		}
		inf, err := c.Info(ctx, sym)
		if err != nil {
			c.logger.Warn("info lookup failed", "symbol", sym, "err", err)
		} else {
			if inf.Name != "" {
				m.Name = inf.Name
			}
			m.QuoteSymbol = inf.Currency
		}
		out = append(out, m)
	}
	return out
}

// Snapshot returns the latest regular-session quote of each symbol,
// skipping symbols that fail.
func (c *Client) Snapshot(ctx context.Context, symbols []string) []model.Snapshot {
	now := c.now().UTC()
	out := make([]model.Snapshot, 0, len(symbols))
	for _, sym := range symbols {
		inf, err := c.Info(ctx, sym)
		if err != nil {
			c.logger.Warn("snapshot failed", "symbol", sym, "err", err)
			continue
		}
		s := model.Snapshot{
			Time:          now,
			Exchange:      model.ExchangeYahoo,
			Symbol:        sym,
			Base:          sym,
			LastPrice:     inf.Price,
			PrevDayPrice:  inf.PreviousClose,
			Volume24hBase: inf.Volume,
			Volume24hUSD:  inf.Volume * inf.Price,
		}
		if s.PrevDayPrice != 0 {
			s.PriceChangePct = (s.LastPrice - s.PrevDayPrice) / s.PrevDayPrice * 100
		}
		out = append(out, s)
	}
	return out
}
