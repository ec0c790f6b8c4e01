package hyperliquid

import (
	"context"
	"fmt"
	"time"

	"github.com/rickgao/perp-research/internal/model"
)

// BookLevel is one aggregated price level.
type BookLevel struct {
	Price  float64
	Size   float64
	Orders int
}

// OrderBook is an L2 snapshot. Bids are best first, asks are best first.
type OrderBook struct {
	Coin string
	Time time.Time
	Bids []BookLevel
	Asks []BookLevel
}

// Spread returns best ask minus best bid, 0 when a side is empty.
func (b OrderBook) Spread() float64 {
	if len(b.Bids) == 0 || len(b.Asks) == 0 {
		return 0
	}
	return b.Asks[0].Price - b.Bids[0].Price
}

// Trade is one public fill.
type Trade struct {
	Coin  string
	Side  string // "B" buy, "A" sell
	Price float64
	Size  float64
	Time  time.Time
	Hash  string
	TID   int64
}

type rawLevel struct {
	Px string `json:"px"`
	Sz string `json:"sz"`
	N  int    `json:"n"`
}

type rawBook struct {
	Coin   string       `json:"coin"`
	Time   int64        `json:"time"`
	Levels [][]rawLevel `json:"levels"`
}

type rawTrade struct {
	Coin string `json:"coin"`
	Side string `json:"side"`
	Px   string `json:"px"`
	Sz   string `json:"sz"`
	Time int64  `json:"time"`
	Hash string `json:"hash"`
	TID  int64  `json:"tid"`
}

// OrderBook fetches the current L2 book of coin.
func (c *Client) OrderBook(ctx context.Context, coin string) (OrderBook, error) {
	var raw rawBook
	if err := c.info(ctx, map[string]any{"type": "l2Book", "coin": coin}, &raw); err != nil {
		return OrderBook{}, fmt.Errorf("l2Book %s: %w", coin, err)
	}

	book := OrderBook{Coin: raw.Coin, Time: model.UnixMilli(raw.Time)}
	if len(raw.Levels) > 0 {
		book.Bids = levels(raw.Levels[0])
	}
	if len(raw.Levels) > 1 {
		book.Asks = levels(raw.Levels[1])
	}
	return book, nil
}

func levels(in []rawLevel) []BookLevel {
	out := make([]BookLevel, 0, len(in))
	for _, l := range in {
		out = append(out, BookLevel{Price: model.ParseFloat(l.Px), Size: model.ParseFloat(l.Sz), Orders: l.N})
	}
	return out
}

// RecentTrades fetches the latest public trades of coin.
func (c *Client) RecentTrades(ctx context.Context, coin string) ([]Trade, error) {
	var raw []rawTrade
	if err := c.info(ctx, map[string]any{"type": "recentTrades", "coin": coin}, &raw); err != nil {
		return nil, fmt.Errorf("recentTrades %s: %w", coin, err)
	}
	out := make([]Trade, 0, len(raw))
	for _, r := range raw {
		out = append(out, Trade{
			Coin:  r.Coin,
			Side:  r.Side,
			Price: model.ParseFloat(r.Px),
			Size:  model.ParseFloat(r.Sz),
			Time:  model.UnixMilli(r.Time),
			Hash:  r.Hash,
			TID:   r.TID,
		})
	}
	return out, nil
}
