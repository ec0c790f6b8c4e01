package edgex

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rickgao/perp-research/internal/api"
	"github.com/rickgao/perp-research/internal/model"
	"github.com/rickgao/perp-research/internal/ohlcv"
)

type rawKline struct {
	ContractID   string         `json:"contractId"`
	ContractName string         `json:"contractName"`
	KlineTime    api.FlexInt    `json:"klineTime"`
	Trades       api.FlexInt    `json:"trades"`
	Size         api.FlexString `json:"size"`
	Value        api.FlexString `json:"value"`
	Open         api.FlexString `json:"open"`
	High         api.FlexString `json:"high"`
	Low          api.FlexString `json:"low"`
	Close        api.FlexString `json:"close"`
}

type klinePage struct {
	DataList           []rawKline `json:"dataList"`
	HasNext            bool       `json:"hasNext"`
	NextPageOffsetData string     `json:"nextPageOffsetData"`
}

// KlineRequest selects klines for one contract. Begin is inclusive, End is
// exclusive; zero values are omitted.
type KlineRequest struct {
	ContractID string
	PriceType  string // Defaults to LAST_PRICE
	Timeframe  model.Timeframe
	Size       int
	OffsetData string
	Begin      time.Time
	End        time.Time
}

func (r KlineRequest) query() (url.Values, error) {
	kt, err := KlineType(r.Timeframe)
	if err != nil {
		return nil, err
	}
	priceType := r.PriceType
	if priceType == "" {
		priceType = "LAST_PRICE"
	}
	size := r.Size
	if size <= 0 || size > klinesPerRequest {
		size = klinesPerRequest
	}

	q := url.Values{}
	q.Set("priceType", priceType)
	q.Set("klineType", kt)
	q.Set("size", strconv.Itoa(size))
	if r.OffsetData != "" {
		q.Set("offsetData", r.OffsetData)
	}
	if !r.Begin.IsZero() {
		q.Set("filterBeginKlineTimeInclusive", strconv.FormatInt(r.Begin.UnixMilli(), 10))
	}
	if !r.End.IsZero() {
		q.Set("filterEndKlineTimeExclusive", strconv.FormatInt(r.End.UnixMilli(), 10))
	}
	return q, nil
}

func (k rawKline) toModel(symbol string, tf model.Timeframe) model.Candle {
	return model.Candle{
		Exchange:    model.ExchangeEdgex,
		Symbol:      symbol,
		Interval:    tf,
		OpenTime:    model.UnixMilli(k.KlineTime.Int64()),
		Open:        model.ParseFloat(k.Open.String()),
		High:        model.ParseFloat(k.High.String()),
		Low:         model.ParseFloat(k.Low.String()),
		Close:       model.ParseFloat(k.Close.String()),
		Volume:      model.ParseFloat(k.Size.String()),
		QuoteVolume: model.ParseFloat(k.Value.String()),
		Trades:      k.Trades.Int64(),
	}
}

// Kline fetches one page of klines.
func (c *Client) Kline(ctx context.Context, r KlineRequest) (ohlcv.Page, error) {
	q, err := r.query()
	if err != nil {
		return ohlcv.Page{}, err
	}
	q.Set("contractId", r.ContractID)

	var page klinePage
	if err := c.get(ctx, "/api/v1/public/quote/getKline", q, &page); err != nil {
		return ohlcv.Page{}, fmt.Errorf("kline %s: %w", r.ContractID, err)
	}

	out := ohlcv.Page{Done: !page.HasNext}
	for _, k := range page.DataList {
		out.Candles = append(out.Candles, k.toModel(r.ContractID, r.Timeframe))
	}
	return out, nil
}

// MultiContractKline fetches the latest klines of several contracts at once,
// keyed by contract id.
func (c *Client) MultiContractKline(ctx context.Context, contractIDs []string, r KlineRequest) (map[string][]model.Candle, error) {
	q, err := r.query()
	if err != nil {
		return nil, err
	}
	q.Set("contractIdList", strings.Join(contractIDs, ","))

	var data []struct {
		ContractID string     `json:"contractId"`
		KlineList  []rawKline `json:"klineList"`
	}
	if err := c.get(ctx, "/api/v1/public/quote/getMultiContractKline", q, &data); err != nil {
		return nil, fmt.Errorf("multi kline: %w", err)
	}

	out := make(map[string][]model.Candle, len(data))
	for _, d := range data {
		candles := make([]model.Candle, 0, len(d.KlineList))
		for _, k := range d.KlineList {
			candles = append(candles, k.toModel(d.ContractID, r.Timeframe))
		}
		out[d.ContractID] = ohlcv.Dedupe(candles)
	}
	return out, nil
}

// Candles pages forward through [start, end] in windows of 1000 bars.
// A zero start means one window before end; a zero end means now.
func (c *Client) Candles(ctx context.Context, contractID string, tf model.Timeframe, start, end time.Time) ([]model.Candle, error) {
	if _, err := KlineType(tf); err != nil {
		return nil, err
	}
	if end.IsZero() {
		end = c.now().UTC()
	}
	step := time.Duration(klinesPerRequest) * tf.Duration()
	if start.IsZero() {
		start = end.Add(-step)
	}

	r := ohlcv.Range{Start: start, End: end, Step: step}
	return ohlcv.Paginate(ctx, r, ohlcv.AdvanceByInterval(tf), func(ctx context.Context, from, to time.Time) (ohlcv.Page, error) {
		return c.Kline(ctx, KlineRequest{
			ContractID: contractID,
			Timeframe:  tf,
			Size:       klinesPerRequest,
			Begin:      from,
			End:        to,
		})
	})
}

// FetchOHLCV fetches a contract, by id or name, over [start, end] and trims
// the result to the requested range.
func (c *Client) FetchOHLCV(ctx context.Context, symbolOrID string, tf model.Timeframe, start, end time.Time) ([]model.Candle, error) {
	id := symbolOrID
	if !isContractID(symbolOrID) {
		var err error
		if id, err = c.ResolveContract(ctx, symbolOrID); err != nil {
			return nil, err
		}
	}
	if end.IsZero() {
		end = c.now().UTC()
	}
	candles, err := c.Candles(ctx, id, tf, start, end)
	if err != nil {
		return nil, err
	}
	return ohlcv.Trim(candles, start, end), nil
}

func isContractID(s string) bool {
	_, err := strconv.ParseUint(s, 10, 64)
	return err == nil
}

// InceptionDate returns the open time of the first daily kline of a
// contract, or nil when it cannot be determined.
func (c *Client) InceptionDate(ctx context.Context, contractID string) *time.Time {
	page, err := c.Kline(ctx, KlineRequest{
		ContractID: contractID,
		Timeframe:  model.D1,
		Size:       klinesPerRequest,
		Begin:      time.UnixMilli(0),
		End:        c.now(),
	})
	if err != nil {
		c.logger.Debug("inception lookup failed", "contract", contractID, "err", err)
		return nil
	}
	if len(page.Candles) == 0 {
		return nil
	}
	first := ohlcv.Earliest(page.Candles)
	return &first
}

// InceptionDates looks up every contract in turn.
func (c *Client) InceptionDates(ctx context.Context, contractIDs []string) []model.Inception {
	out := make([]model.Inception, 0, len(contractIDs))
	for _, id := range contractIDs {
		if ctx.Err() != nil {
			break
		}
		since := c.InceptionDate(ctx, id)
		out = append(out, model.NewInception(id, model.ExchangeEdgex, "edgeX", id, since, c.now()))
	}
	return out
}
