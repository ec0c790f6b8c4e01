// Package classify labels perp underlyings by asset class and merges the
// market lists of several chains into one row per asset.
package classify

import (
	"sort"
	"strings"

	"github.com/rickgao/perp-research/internal/model"
)

// Asset classifies a base symbol listed on dex.
func Asset(base, dex string) model.AssetType {
	if IsCryptoOnlyDex(dex) {
		return model.AssetCrypto
	}
	for _, l := range lookup {
		if _, ok := l.names[base]; ok {
			return l.typ
		}
	}
	return model.AssetCrypto
}

// StripDexPrefix turns "xyz:GOLD" into "GOLD".
func StripDexPrefix(name string) string {
	if i := strings.LastIndex(name, ":"); i >= 0 {
		return name[i+1:]
	}
	return name
}

// DexRow is one Hyperliquid base asset with the DEXs that list it.
type DexRow struct {
	Asset     string
	AssetType model.AssetType
	Dexs      []string
}

// NumDexs is the number of DEXs listing the asset.
func (r DexRow) NumDexs() int {
	return len(r.Dexs)
}

// Hyperliquid classifies every base asset found in markets. When an asset is
// listed on both a crypto-only DEX and a builder DEX, the builder DEX decides.
// Rows are sorted by asset type rank, then asset.
func Hyperliquid(markets []model.Market, activeOnly bool) []DexRow {
	dexsByAsset := make(map[string]map[string]struct{})
	for _, m := range markets {
		if activeOnly && m.IsDelisted {
			continue
		}
		base := StripDexPrefix(m.Name)
		if dexsByAsset[base] == nil {
			dexsByAsset[base] = make(map[string]struct{})
		}
		dexsByAsset[base][m.Dex] = struct{}{}
	}

	rows := make([]DexRow, 0, len(dexsByAsset))
	for base, dexSet := range dexsByAsset {
		dexs := sortedKeys(dexSet)

		classifyOn := dexs[0]
		for _, d := range dexs {
			if !IsCryptoOnlyDex(d) {
				classifyOn = d
				break
			}
		}

		rows = append(rows, DexRow{
			Asset:     base,
			AssetType: Asset(base, classifyOn),
			Dexs:      dexs,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		ri, rj := rows[i].AssetType.Rank(), rows[j].AssetType.Rank()
		if ri != rj {
			return ri < rj
		}
		return rows[i].Asset < rows[j].Asset
	})
	return rows
}

// TypeMap indexes rows by asset.
func TypeMap(rows []DexRow) map[string]model.AssetType {
	m := make(map[string]model.AssetType, len(rows))
	for _, r := range rows {
		m[r.Asset] = r.AssetType
	}
	return m
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
