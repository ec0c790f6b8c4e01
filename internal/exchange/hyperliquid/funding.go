package hyperliquid

import (
	"context"
	"fmt"
	"time"

	"github.com/rickgao/perp-research/internal/model"
	"github.com/rickgao/perp-research/internal/ohlcv"
)

type rawFunding struct {
	Coin        string `json:"coin"`
	FundingRate string `json:"fundingRate"`
	Premium     string `json:"premium"`
	Time        int64  `json:"time"`
}

// CurrentFundingRates returns the live funding rate of every listed perp on
// one DEX.
func (c *Client) CurrentFundingRates(ctx context.Context, dex string) ([]model.FundingRate, error) {
	snaps, err := c.Snapshot(ctx, dex)
	if err != nil {
		return nil, err
	}
	out := make([]model.FundingRate, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, model.FundingRate{
			Exchange:    model.ExchangeHyperliquid,
			Symbol:      s.Symbol,
			Time:        s.Time,
			Rate:        s.FundingRate,
			Premium:     s.Premium,
			MarkPrice:   s.MarkPrice,
			OraclePrice: s.OraclePrice,
		})
	}
	return out, nil
}

func (c *Client) fundingPage(ctx context.Context, coin string, start, end time.Time) ([]model.FundingRate, error) {
	payload := map[string]any{
		"type":      "fundingHistory",
		"coin":      coin,
		"startTime": start.UnixMilli(),
	}
	if !end.IsZero() {
		payload["endTime"] = end.UnixMilli()
	}

	var raw []rawFunding
	if err := c.info(ctx, payload, &raw); err != nil {
		return nil, fmt.Errorf("fundingHistory %s: %w", coin, err)
	}
	out := make([]model.FundingRate, 0, len(raw))
	for _, r := range raw {
		out = append(out, model.FundingRate{
			Exchange:     model.ExchangeHyperliquid,
			Symbol:       coin,
			Time:         model.UnixMilli(r.Time),
			Rate:         model.ParseFloat(r.FundingRate),
			Premium:      model.ParseFloat(r.Premium),
			IsSettlement: true,
		})
	}
	return out, nil
}

// FundingHistory returns the hourly funding samples of coin in [start, end].
// The API caps each response, so the cursor moves past the newest sample
// until a page adds nothing new. A zero end means now.
func (c *Client) FundingHistory(ctx context.Context, coin string, start, end time.Time) ([]model.FundingRate, error) {
	if start.IsZero() {
		start = time.UnixMilli(0).UTC()
	}
	if end.IsZero() {
		end = c.now().UTC()
	}

	var all []model.FundingRate
	cursor := start
	for cursor.Before(end) {
		page, err := c.fundingPage(ctx, coin, cursor, end)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		all = append(all, page...)

		last := page[0].Time
		for _, f := range page {
			if f.Time.After(last) {
				last = f.Time
			}
		}
		if !last.After(cursor) {
			break
		}
		cursor = last.Add(time.Millisecond)
	}
	return ohlcv.DedupeFunding(all, start, end), nil
}
