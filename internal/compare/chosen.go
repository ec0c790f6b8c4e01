// Package compare builds the per-asset DeFi vs TradFi comparison workbooks:
// hourly perp bars aggregated across DEXs, joined with the off-chain
// reference series and rolled up to days.
package compare

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rickgao/perp-research/internal/classify"
	"github.com/rickgao/perp-research/internal/model"
	"github.com/rickgao/perp-research/internal/report"
)

// Chosen CSV columns.
const (
	ColAsset     = "asset"
	ColCoin      = "coin"
	ColDex       = "dex"
	ColDataSince = "data_since"
	ColYFTicker  = "yf_ticker"
	ColCEXSymbol = "cex_symbol"
	ColAssetType = "asset_type"
)

// ChosenHeader is the column order written by WriteChosen.
var ChosenHeader = []string{ColAsset, ColCoin, ColDex, ColDataSince, ColYFTicker, ColCEXSymbol, ColAssetType}

// Chosen is one (asset, coin, dex) row selected for comparison.
type Chosen struct {
	Asset     string
	Coin      string
	Dex       string
	DataSince time.Time
	YFTicker  string
	CEXSymbol string
	AssetType model.AssetType
}

// ReadChosen parses a chosen-assets CSV. asset_type falls back to the
// classifier; cex_symbol is optional.
func ReadChosen(path string) ([]Chosen, error) {
	header, records, err := report.ReadCSV(path)
	if err != nil {
		return nil, err
	}
	for _, col := range []string{ColAsset, ColCoin, ColDex, ColDataSince, ColYFTicker} {
		if !contains(header, col) {
			return nil, fmt.Errorf("%s: missing column %q", path, col)
		}
	}

	out := make([]Chosen, 0, len(records))
	for i, rec := range records {
		c := Chosen{
			Asset:     strings.TrimSpace(rec[ColAsset]),
			Coin:      strings.TrimSpace(rec[ColCoin]),
			Dex:       strings.TrimSpace(rec[ColDex]),
			YFTicker:  strings.TrimSpace(rec[ColYFTicker]),
			CEXSymbol: strings.TrimSpace(rec[ColCEXSymbol]),
			AssetType: model.AssetType(strings.TrimSpace(rec[ColAssetType])),
		}
		if c.Asset == "" || c.Coin == "" {
			return nil, fmt.Errorf("%s row %d: asset and coin are required", path, i+2)
		}
		since, err := time.Parse(model.DateLayout, strings.TrimSpace(rec[ColDataSince]))
		if err != nil {
			return nil, fmt.Errorf("%s row %d: data_since: %w", path, i+2, err)
		}
		c.DataSince = since
		if c.AssetType == "" {
			c.AssetType = classify.Asset(c.Asset, c.Dex)
		}
		out = append(out, c)
	}
	return out, nil
}

// WriteChosen writes rows in ChosenHeader order.
func WriteChosen(path string, rows []Chosen) error {
	out := make([][]string, len(rows))
	for i, c := range rows {
		out[i] = []string{c.Asset, c.Coin, c.Dex, report.Date(c.DataSince), c.YFTicker, c.CEXSymbol, string(c.AssetType)}
	}
	return report.WriteCSV(path, ChosenHeader, out)
}

func contains(s []string, v string) bool {
	for _, x := range s {
		if x == v {
			return true
		}
	}
	return false
}

// Selection is every chosen row of one asset.
type Selection struct {
	Asset     string
	AssetType model.AssetType
	YFTicker  string // first non-empty yf_ticker
	CEXSymbol string // first non-empty cex_symbol
	Venues    []Chosen
}

// Since is the earliest data_since across venues.
func (s Selection) Since() time.Time {
	var min time.Time
	for _, v := range s.Venues {
		if min.IsZero() || v.DataSince.Before(min) {
			min = v.DataSince
		}
	}
	return min
}

// ReferenceSymbol is the off-chain ticker and the venue it trades on.
func (s Selection) ReferenceSymbol() (exchange, symbol string) {
	if s.CEXSymbol != "" {
		return model.ExchangeBinance, s.CEXSymbol
	}
	return model.ExchangeYahoo, s.YFTicker
}

// Group collects rows per asset, sorted by asset.
func Group(rows []Chosen) []Selection {
	byAsset := make(map[string]*Selection)
	for _, r := range rows {
		s, ok := byAsset[r.Asset]
		if !ok {
			s = &Selection{Asset: r.Asset, AssetType: r.AssetType}
			byAsset[r.Asset] = s
		}
		if s.YFTicker == "" {
			s.YFTicker = r.YFTicker
		}
		if s.CEXSymbol == "" {
			s.CEXSymbol = r.CEXSymbol
		}
		s.Venues = append(s.Venues, r)
	}

	out := make([]Selection, 0, len(byAsset))
	for _, s := range byAsset {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Asset < out[j].Asset })
	return out
}
