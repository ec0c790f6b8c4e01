package zklighter

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

// fundingsPerRequest bounds one fundings window.
const fundingsPerRequest = 5000

// CurrentFundingRates returns the current rate of every perp market.
func (c *Client) CurrentFundingRates(ctx context.Context) ([]model.FundingRate, error) {
	var resp struct {
		FundingRates []struct {
			MarketID int            `json:"market_id"`
			Exchange string         `json:"exchange"`
			Symbol   string         `json:"symbol"`
			Rate     api.FlexString `json:"rate"`
		} `json:"funding_rates"`
	}
	if err := c.get(ctx, "/api/v1/funding-rates", nil, &resp); err != nil {
		return nil, fmt.Errorf("funding rates: %w", err)
	}

	now := c.now().UTC()
	out := make([]model.FundingRate, 0, len(resp.FundingRates))
	for _, r := range resp.FundingRates {
		// The endpoint also mirrors rates quoted on other venues.
		if r.Exchange != "" && r.Exchange != "lighter" {
			continue
		}
		out = append(out, model.FundingRate{
			Exchange: model.ExchangeZkLighter,
			Symbol:   r.Symbol,
			Time:     now,
			Rate:     model.ParseFloat(r.Rate.String()),
		})
	}
	return out, nil
}

func (c *Client) fundingWindow(ctx context.Context, marketID int, from, to time.Time) ([]model.FundingRate, error) {
	q := url.Values{}
	q.Set("market_id", strconv.Itoa(marketID))
	q.Set("resolution", "1h")
	q.Set("start_timestamp", strconv.FormatInt(from.UnixMilli(), 10))
	q.Set("end_timestamp", strconv.FormatInt(to.UnixMilli(), 10))
	q.Set("count_back", strconv.Itoa(fundingsPerRequest))

	var resp struct {
		Fundings []struct {
			T    api.FlexInt    `json:"t"`
			Rate api.FlexString `json:"r"`
		} `json:"f"`
	}
	if err := c.get(ctx, "/api/v1/fundings", q, &resp); err != nil {
		return nil, fmt.Errorf("fundings %d: %w", marketID, err)
	}

	symbol := strconv.Itoa(marketID)
	out := make([]model.FundingRate, 0, len(resp.Fundings))
	for _, f := range resp.Fundings {
		out = append(out, model.FundingRate{
			Exchange:     model.ExchangeZkLighter,
			Symbol:       symbol,
			Time:         model.UnixMilli(f.T.Int64()),
			Rate:         model.ParseFloat(f.Rate.String()),
			IsSettlement: true,
		})
	}
	return out, nil
}

// FundingHistory returns hourly funding of a market in [start, end], walking
// forward in windows of 5000 hours.
func (c *Client) FundingHistory(ctx context.Context, marketID int, start, end time.Time) ([]model.FundingRate, error) {
	if start.IsZero() {
		start = time.UnixMilli(0).UTC()
	}
	if end.IsZero() {
		end = c.now().UTC()
	}

	step := fundingsPerRequest * time.Hour
	var all []model.FundingRate
	cursor := start
	for cursor.Before(end) {
		windowEnd := cursor.Add(step)
		if windowEnd.After(end) {
			windowEnd = end
		}
		page, err := c.fundingWindow(ctx, marketID, cursor, windowEnd)
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
		cursor = last.Add(time.Hour)
	}
	return ohlcv.DedupeFunding(all, start, end), nil
}
