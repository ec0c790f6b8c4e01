package edgex

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

type rawFunding struct {
	ContractID   string         `json:"contractId"`
	FundingTime  api.FlexInt    `json:"fundingTime"`
	FundingRate  api.FlexString `json:"fundingRate"`
	IndexPrice   api.FlexString `json:"indexPrice"`
	OraclePrice  api.FlexString `json:"oraclePrice"`
	MarkPrice    api.FlexString `json:"markPrice"`
	PremiumIndex api.FlexString `json:"premiumIndex"`
	IsSettlement bool           `json:"isSettlement"`
}

func (f rawFunding) toModel() model.FundingRate {
	return model.FundingRate{
		Exchange:     model.ExchangeEdgex,
		Symbol:       f.ContractID,
		Time:         model.UnixMilli(f.FundingTime.Int64()),
		Rate:         model.ParseFloat(f.FundingRate.String()),
		Premium:      model.ParseFloat(f.PremiumIndex.String()),
		MarkPrice:    model.ParseFloat(f.MarkPrice.String()),
		IndexPrice:   model.ParseFloat(f.IndexPrice.String()),
		OraclePrice:  model.ParseFloat(f.OraclePrice.String()),
		IsSettlement: f.IsSettlement,
	}
}

// fundingPage accepts both list field names the API has used.
type fundingPage struct {
	DataList           []rawFunding `json:"dataList"`
	Result             []rawFunding `json:"result"`
	HasNext            bool         `json:"hasNext"`
	OffsetData         string       `json:"offsetData"`
	NextPageOffsetData string       `json:"nextPageOffsetData"`
}

func (p fundingPage) rows() []rawFunding {
	if len(p.DataList) > 0 {
		return p.DataList
	}
	return p.Result
}

func (p fundingPage) offset() string {
	if p.NextPageOffsetData != "" {
		return p.NextPageOffsetData
	}
	return p.OffsetData
}

// LatestFundingRate returns the current rate of one contract, or of every
// contract when contractID is empty.
func (c *Client) LatestFundingRate(ctx context.Context, contractID string) ([]model.FundingRate, error) {
	q := url.Values{}
	if contractID != "" {
		q.Set("contractId", contractID)
	}
	var rates []rawFunding
	if err := c.get(ctx, "/api/v1/public/funding/getLatestFundingRate", q, &rates); err != nil {
		return nil, fmt.Errorf("latest funding %s: %w", contractID, err)
	}
	out := make([]model.FundingRate, 0, len(rates))
	for _, r := range rates {
		out = append(out, r.toModel())
	}
	return out, nil
}

// CurrentFundingRates returns the current rate of every contract.
func (c *Client) CurrentFundingRates(ctx context.Context) ([]model.FundingRate, error) {
	return c.LatestFundingRate(ctx, "")
}

// FundingRatePage fetches one page of funding history.
func (c *Client) FundingRatePage(ctx context.Context, contractID, offset string, settlementOnly bool, start, end time.Time) ([]model.FundingRate, string, bool, error) {
	q := url.Values{}
	q.Set("contractId", contractID)
	q.Set("size", strconv.Itoa(fundingPageSize))
	if offset != "" {
		q.Set("offsetData", offset)
	}
	if settlementOnly {
		q.Set("filterSettlementFundingRate", "true")
	}
	if !start.IsZero() {
		q.Set("filterBeginTimeInclusive", strconv.FormatInt(start.UnixMilli(), 10))
	}
	if !end.IsZero() {
		q.Set("filterEndTimeExclusive", strconv.FormatInt(end.UnixMilli(), 10))
	}

	var page fundingPage
	if err := c.get(ctx, "/api/v1/public/funding/getFundingRatePage", q, &page); err != nil {
		return nil, "", false, fmt.Errorf("funding page %s: %w", contractID, err)
	}
	rows := page.rows()
	out := make([]model.FundingRate, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, page.offset(), page.HasNext, nil
}

// FundingHistory follows offsetData until the venue reports no next page.
// settlementOnly keeps the 8-hourly settlement samples.
func (c *Client) FundingHistory(ctx context.Context, contractID string, start, end time.Time, settlementOnly bool) ([]model.FundingRate, error) {
	var (
		all    []model.FundingRate
		offset string
	)
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rows, next, hasNext, err := c.FundingRatePage(ctx, contractID, offset, settlementOnly, start, end)
		if err != nil {
			return nil, err
		}
		if len(rows) == 0 {
			break
		}
		all = append(all, rows...)
		if !hasNext || next == "" || next == offset {
			break
		}
		offset = next
	}
	return ohlcv.DedupeFunding(all, time.Time{}, time.Time{}), nil
}
