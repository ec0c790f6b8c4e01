package classify

import (
	"strconv"

	"github.com/rickgao/perp-research/internal/model"
)

// SideLabels names the on-chain and off-chain side of a comparison.
type SideLabels struct {
	Onchain      string
	Offchain     string
	OnchainLong  string
	OffchainLong string
}

// Labels returns DEX/CEX wording for crypto and DeFi/TradFi otherwise.
func Labels(t model.AssetType) SideLabels {
	if t.IsCrypto() {
		return SideLabels{
			Onchain:      "DEX",
			Offchain:     "CEX",
			OnchainLong:  "DEX Perpetuals",
			OffchainLong: "CEX Spot",
		}
	}
	return SideLabels{
		Onchain:      "DeFi",
		Offchain:     "TradFi",
		OnchainLong:  "DeFi Perpetuals",
		OffchainLong: "Traditional Finance",
	}
}

func itoa(n int) string {
	return strconv.Itoa(n)
}
