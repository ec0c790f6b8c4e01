package discovery

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/rickgao/perp-research/internal/classify"
	"github.com/rickgao/perp-research/internal/model"
)

// MarketRow is one market in the cross-chain listing.
type MarketRow struct {
	Chain         string
	ChainMarketID string
	Name          string
	BaseSymbol    string
	Dex           string
	IsDelisted    bool
}

// dexLabel names the DEX column for chains without builder DEXs.
var dexLabel = map[string]string{
	model.ExchangeEdgex:     "edgeX",
	model.ExchangeZkLighter: "zkLighter",
}

// MarketRows flattens every chain's markets in chain order.
func MarketRows(markets map[string][]model.Market) []MarketRow {
	var out []MarketRow
	for _, chain := range classify.Chains {
		for _, m := range markets[chain] {
			r := MarketRow{
				Chain:         chain,
				ChainMarketID: m.MarketID,
				Name:          m.Name,
				BaseSymbol:    m.BaseSymbol,
				Dex:           m.Dex,
				IsDelisted:    m.IsDelisted || m.Status != model.MarketStatusActive,
			}
			if chain == model.ExchangeHyperliquid {
				r.BaseSymbol = classify.StripDexPrefix(m.Name)
				r.IsDelisted = m.IsDelisted
			}
			if r.Dex == "" {
				r.Dex = dexLabel[chain]
			}
			out = append(out, r)
		}
	}
	return out
}

// SnapshotRow is the per (asset, chain) market statistics.
type SnapshotRow struct {
	Name         string
	AssetType    model.AssetType
	Chain        string
	Price        float64 // mean across DEXs
	Volume24h    float64 // sum
	FundingRate  float64 // mean of reported rates, NaN when none
	OpenInterest float64 // sum
	DexsTrading  int
}

// SnapshotTable joins snapshots to the classification on base symbol and
// aggregates them per (asset, type, chain), sorted by type, asset, chain.
// Snapshots of unclassified assets are dropped.
func SnapshotTable(snaps []model.Snapshot, rows []classify.Row) []SnapshotRow {
	types := make(map[string]model.AssetType, len(rows))
	for _, r := range rows {
		types[r.Asset] = r.AssetType
	}

	type key struct{ asset, chain string }
	type acc struct {
		row              SnapshotRow
		prices, fundings []float64
	}
	groups := make(map[key]*acc)
	for _, s := range snaps {
		typ, ok := types[s.Base]
		if !ok {
			continue
		}
		k := key{s.Base, s.Exchange}
		a, ok := groups[k]
		if !ok {
			a = &acc{row: SnapshotRow{Name: s.Base, AssetType: typ, Chain: s.Exchange}}
			groups[k] = a
		}
		a.prices = append(a.prices, s.Price())
		if s.Exchange != model.ExchangeZkLighter {
			a.fundings = append(a.fundings, s.FundingRate)
		}
		a.row.Volume24h += s.Volume24hUSD
		a.row.OpenInterest += s.OpenInterest
		a.row.DexsTrading++
	}

	out := make([]SnapshotRow, 0, len(groups))
	for _, a := range groups {
		a.row.Price = meanOf(a.prices)
		a.row.FundingRate = meanOf(a.fundings)
		out = append(out, a.row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].AssetType != out[j].AssetType {
			return out[i].AssetType < out[j].AssetType
		}
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Chain < out[j].Chain
	})
	return out
}

func meanOf(v []float64) float64 {
	if len(v) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, x := range v {
		sum += x
	}
	return sum / float64(len(v))
}

// AssetVolume is one classified asset with its cross-chain 24h volume.
type AssetVolume struct {
	classify.Row
	Volume24h float64

	InceptionDate *time.Time
	DaysAvailable int
}

// AssetVolumes sums snapshot volume per classified asset, largest first.
func AssetVolumes(table []SnapshotRow, rows []classify.Row) []AssetVolume {
	volume := make(map[string]float64)
	for _, s := range table {
		volume[s.Name] += s.Volume24h
	}
	out := make([]AssetVolume, 0, len(rows))
	for _, r := range rows {
		v, ok := volume[r.Asset]
		if !ok {
			continue
		}
		out = append(out, AssetVolume{Row: r, Volume24h: v})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Volume24h > out[j].Volume24h })
	return out
}

// TopByType keeps the n largest assets of each type, types in name order.
func TopByType(assets []AssetVolume, n int) []AssetVolume {
	byType := make(map[model.AssetType][]AssetVolume)
	for _, a := range assets {
		byType[a.AssetType] = append(byType[a.AssetType], a)
	}
	types := make([]model.AssetType, 0, len(byType))
	for t := range byType {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	var out []AssetVolume
	for _, t := range types {
		group := byType[t]
		if len(group) > n {
			group = group[:n]
		}
		out = append(out, group...)
	}
	return out
}

func marketID(s string) (int, bool) {
	id, err := strconv.Atoi(s)
	return id, err == nil
}
