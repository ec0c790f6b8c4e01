package model

// AssetType is the asset class of an underlying.
type AssetType string

const (
	AssetCrypto       AssetType = "Crypto Coin"
	AssetEquity       AssetType = "Traditional Equity"
	AssetCommodity    AssetType = "Traditional Commodity"
	AssetIndex        AssetType = "Index"
	AssetFixedIncome  AssetType = "Fixed Income"
	AssetForex        AssetType = "Forex"
	AssetSectorBasket AssetType = "Sector Basket"
)

// AssetTypes is the canonical report order.
var AssetTypes = []AssetType{
	AssetCrypto,
	AssetEquity,
	AssetCommodity,
	AssetIndex,
	AssetFixedIncome,
	AssetForex,
	AssetSectorBasket,
}

// Rank returns the position of t in AssetTypes, or len(AssetTypes) if unknown.
func (t AssetType) Rank() int {
	for i, at := range AssetTypes {
		if at == t {
			return i
		}
	}
	return len(AssetTypes)
}

// IsCrypto reports whether t is the crypto class.
func (t AssetType) IsCrypto() bool {
	return t == AssetCrypto
}

func (t AssetType) String() string {
	return string(t)
}
