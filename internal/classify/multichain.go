package classify

import (
	"sort"
	"strings"

	"github.com/rickgao/perp-research/internal/model"
)

// Chain display names used in the dex_names column.
const (
	dexLabelEdgex     = "edgeX"
	dexLabelZkLighter = "zkLighter"
)

// Chains is the fixed order of chains counted by Summarize.
var Chains = []string{model.ExchangeHyperliquid, model.ExchangeEdgex, model.ExchangeZkLighter}

// Row is one asset across every chain that lists it.
type Row struct {
	Asset          string
	AssetType      model.AssetType
	Chains         []string
	DexNames       []string
	HLDexs         []string
	EdgexContracts []string
	ZkLMarkets     []string
}

// NumChains is the number of distinct chains listing the asset.
func (r Row) NumChains() int {
	return len(r.Chains)
}

// TotalMarkets counts Hyperliquid DEXs plus edgeX contracts plus zkLighter markets.
func (r Row) TotalMarkets() int {
	return len(r.HLDexs) + len(r.EdgexContracts) + len(r.ZkLMarkets)
}

// HasChain reports whether chain lists the asset.
func (r Row) HasChain(chain string) bool {
	for _, c := range r.Chains {
		if c == chain {
			return true
		}
	}
	return false
}

// Header is the classification.csv column order.
var Header = []string{
	"asset", "asset_type", "chains", "num_chains", "dex_names",
	"hl_dexs", "edgex_contracts", "zkl_markets", "total_markets",
}

// Record renders the row in Header order.
func (r Row) Record() []string {
	return []string{
		r.Asset,
		r.AssetType.String(),
		strings.Join(r.Chains, ", "),
		itoa(r.NumChains()),
		strings.Join(r.DexNames, ", "),
		strings.Join(r.HLDexs, ", "),
		strings.Join(r.EdgexContracts, ", "),
		strings.Join(r.ZkLMarkets, ", "),
		itoa(r.TotalMarkets()),
	}
}

type accumulator struct {
	asset  string
	typ    model.AssetType
	chains map[string]struct{}
	dexs   map[string]struct{}
	hl     map[string]struct{}
	edgex  []string
	zkl    []string
}

// Multichain merges the market lists of Hyperliquid, edgeX and zkLighter.
//
// Asset types come from the active Hyperliquid classification; assets that
// Hyperliquid does not list are crypto. edgeX contributes trading-enabled
// contracts and zkLighter its active markets, both keyed by BaseSymbol.
// Rows are sorted by asset type name, then chain count descending, then asset.
func Multichain(hl, edgex, zkl []model.Market) []Row {
	types := TypeMap(Hyperliquid(hl, true))
	assets := make(map[string]*accumulator)

	get := func(asset string) *accumulator {
		a, ok := assets[asset]
		if !ok {
			typ, known := types[asset]
			if !known {
				typ = model.AssetCrypto
			}
			a = &accumulator{
				asset:  asset,
				typ:    typ,
				chains: make(map[string]struct{}),
				dexs:   make(map[string]struct{}),
				hl:     make(map[string]struct{}),
			}
			assets[asset] = a
		}
		return a
	}

	for _, m := range hl {
		a := get(StripDexPrefix(m.Name))
		a.chains[model.ExchangeHyperliquid] = struct{}{}
		a.dexs[m.Dex] = struct{}{}
		a.hl[m.Dex] = struct{}{}
	}
	for _, m := range edgex {
		if m.Status != model.MarketStatusActive {
			continue
		}
		a := get(m.BaseSymbol)
		a.chains[model.ExchangeEdgex] = struct{}{}
		a.dexs[dexLabelEdgex] = struct{}{}
		a.edgex = append(a.edgex, m.MarketID)
	}
	for _, m := range zkl {
		if m.Status != model.MarketStatusActive {
			continue
		}
		a := get(m.BaseSymbol)
		a.chains[model.ExchangeZkLighter] = struct{}{}
		a.dexs[dexLabelZkLighter] = struct{}{}
		a.zkl = append(a.zkl, m.MarketID)
	}

	rows := make([]Row, 0, len(assets))
	for _, a := range assets {
		rows = append(rows, Row{
			Asset:          a.asset,
			AssetType:      a.typ,
			Chains:         sortedKeys(a.chains),
			DexNames:       sortedKeys(a.dexs),
			HLDexs:         sortedKeys(a.hl),
			EdgexContracts: a.edgex,
			ZkLMarkets:     a.zkl,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].AssetType != rows[j].AssetType {
			return rows[i].AssetType < rows[j].AssetType
		}
		if rows[i].NumChains() != rows[j].NumChains() {
			return rows[i].NumChains() > rows[j].NumChains()
		}
		return rows[i].Asset < rows[j].Asset
	})
	return rows
}

// Summary counts a classification.
type Summary struct {
	Total       int
	ByType      map[model.AssetType]int
	ByNumChains map[int]int
	MultiChain  int
	SingleChain int
	ByChain     map[string]int
}

// Summarize counts rows by type, chain count and chain.
func Summarize(rows []Row) Summary {
	s := Summary{
		Total:       len(rows),
		ByType:      make(map[model.AssetType]int),
		ByNumChains: make(map[int]int),
		ByChain:     make(map[string]int, len(Chains)),
	}
	for _, r := range rows {
		s.ByType[r.AssetType]++
		s.ByNumChains[r.NumChains()]++
		switch {
		case r.NumChains() > 1:
			s.MultiChain++
		case r.NumChains() == 1:
			s.SingleChain++
		}
		for _, c := range Chains {
			if r.HasChain(c) {
				s.ByChain[c]++
			}
		}
	}
	return s
}

// ByType keeps rows of one asset type.
func ByType(rows []Row, t model.AssetType) []Row {
	var out []Row
	for _, r := range rows {
		if r.AssetType == t {
			out = append(out, r)
		}
	}
	return out
}

// MultiChain keeps rows listed on more than one chain.
func MultiChain(rows []Row) []Row {
	var out []Row
	for _, r := range rows {
		if r.NumChains() > 1 {
			out = append(out, r)
		}
	}
	return out
}
