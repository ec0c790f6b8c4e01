package classify

import "github.com/rickgao/perp-research/internal/model"

// Hyperliquid builder DEXs that only list crypto coins.
var cryptoOnlyDexs = set("Hyperliquid (native)", "hyna")

var (
	equities = set(
		// Single stocks
		"AAPL", "AMD", "AMZN", "BABA", "COIN", "COST", "CRCL", "CRWV",
		"GME", "GOOGL", "HOOD", "INTC", "LLY", "META", "MSFT", "MSTR",
		"MU", "NFLX", "NVDA", "ORCL", "PLTR", "RIVN", "SMSN", "SNDK",
		"TSLA", "TSM",
		// Pre-IPO trackers
		"ANTHROPIC", "OPENAI", "SPACEX",
		// ETFs
		"URNM", "USAR",
	)

	commodities = set(
		"ALUMINIUM", "CL", "COPPER", "GOLD", "NATGAS", "OIL",
		"PALLADIUM", "PLATINUM", "SILVER", "URANIUM", "USOIL",
	)

	indices = set("DXY", "KR200", "SMALL2000", "US500", "USA500", "USTECH", "XYZ100")

	fixedIncome = set("USBOND")

	forex = set("EUR", "JPY")

	sectorBaskets = set(
		"BIOTECH", "DEFENSE", "ENERGY", "INFOTECH", "MAG7",
		"NUCLEAR", "ROBOT", "SEMIS", "USENERGY",
	)
)

// lookup is checked in order; the first table containing the base wins.
var lookup = []struct {
	names map[string]struct{}
	typ   model.AssetType
}{
	{equities, model.AssetEquity},
	{commodities, model.AssetCommodity},
	{indices, model.AssetIndex},
	{fixedIncome, model.AssetFixedIncome},
	{forex, model.AssetForex},
	{sectorBaskets, model.AssetSectorBasket},
}

func set(names ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(names))
	for _, n := range names {
		m[n] = struct{}{}
	}
	return m
}

// IsCryptoOnlyDex reports whether every market on dex is a crypto coin.
func IsCryptoOnlyDex(dex string) bool {
	_, ok := cryptoOnlyDexs[dex]
	return ok
}
