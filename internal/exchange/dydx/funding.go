package dydx

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/rickgao/perp-research/internal/api"
	"github.com/rickgao/perp-research/internal/model"
	"github.com/rickgao/perp-research/internal/ohlcv"
)

// CurrentFundingRates returns the predicted next funding rate of every market.
func (c *Client) CurrentFundingRates(ctx context.Context) ([]model.FundingRate, error) {
	snaps, err := c.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.FundingRate, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, model.FundingRate{
			Exchange:    model.ExchangeDydx,
			Symbol:      s.Symbol,
			Time:        s.Time,
			Rate:        s.FundingRate,
			OraclePrice: s.OraclePrice,
		})
	}
	return out, nil
}

// FundingHistory returns the hourly settled funding of a market in
// [start, end], paging backward with effectiveBeforeOrAt.
func (c *Client) FundingHistory(ctx context.Context, ticker string, start, end time.Time) ([]model.FundingRate, error) {
	if end.IsZero() {
		end = c.now().UTC()
	}

	var all []model.FundingRate
	before := end
	for {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(pageLimit))
		q.Set("effectiveBeforeOrAt", formatISO(before))

		var resp struct {
			HistoricalFunding []struct {
				Ticker      string         `json:"ticker"`
				Rate        api.FlexString `json:"rate"`
				Price       api.FlexString `json:"price"`
				EffectiveAt string         `json:"effectiveAt"`
			} `json:"historicalFunding"`
		}
		if err := c.rest.Get(ctx, "/v4/historicalFunding/"+url.PathEscape(ticker), q, &resp); err != nil {
			return nil, fmt.Errorf("historical funding %s: %w", ticker, err)
		}
		if len(resp.HistoricalFunding) == 0 {
			break
		}

		oldest := before
		for _, f := range resp.HistoricalFunding {
			at := parseISO(f.EffectiveAt)
			all = append(all, model.FundingRate{
				Exchange:     model.ExchangeDydx,
				Symbol:       ticker,
				Time:         at,
				Rate:         model.ParseFloat(f.Rate.String()),
				OraclePrice:  model.ParseFloat(f.Price.String()),
				IsSettlement: true,
			})
			if at.Before(oldest) {
				oldest = at
			}
		}

		if len(resp.HistoricalFunding) < pageLimit || !oldest.After(start) || !oldest.Before(before) {
			break
		}
		before = oldest.Add(-time.Millisecond)
	}
	return ohlcv.DedupeFunding(all, start, end), nil
}
