// Package exchange wires the venue clients from configuration.
package exchange

import (
	"log/slog"

	"github.com/rickgao/perp-research/internal/api"
	"github.com/rickgao/perp-research/internal/config"
	"github.com/rickgao/perp-research/internal/exchange/binance"
	"github.com/rickgao/perp-research/internal/exchange/dydx"
	"github.com/rickgao/perp-research/internal/exchange/edgex"
	"github.com/rickgao/perp-research/internal/exchange/hyperliquid"
	"github.com/rickgao/perp-research/internal/exchange/yahoo"
	"github.com/rickgao/perp-research/internal/exchange/zklighter"
)

// Clients holds one client per enabled venue. Disabled venues are nil.
type Clients struct {
	Hyperliquid *hyperliquid.Client
	Dydx        *dydx.Client
	Edgex       *edgex.Client
	ZkLighter   *zklighter.Client
	Yahoo       *yahoo.Client
	Binance     *binance.Client
}

func restOptions(e config.ExchangeConfig, logger *slog.Logger) []api.ClientOption {
	return append([]api.ClientOption{api.WithLogger(logger)}, e.ClientOptions()...)
}

// New builds the enabled clients.
func New(cfg config.ExchangesConfig, logger *slog.Logger) Clients {
	if logger == nil {
		logger = slog.Default()
	}

	var c Clients
	if e := cfg.Hyperliquid; e.IsEnabled() {
		c.Hyperliquid = hyperliquid.NewClient(e.BaseURL, restOptions(e, logger)...)
	}
	if e := cfg.Dydx; e.IsEnabled() {
		c.Dydx = dydx.NewClient(e.BaseURL, restOptions(e, logger)...)
	}
	if e := cfg.Edgex; e.IsEnabled() {
		c.Edgex = edgex.NewClient(e.BaseURL, restOptions(e, logger)...)
	}
	if e := cfg.ZkLighter; e.IsEnabled() {
		c.ZkLighter = zklighter.NewClient(e.BaseURL, restOptions(e, logger)...)
	}
	if e := cfg.Yahoo; e.IsEnabled() {
		c.Yahoo = yahoo.NewClient(e.BaseURL, restOptions(e, logger)...)
	}
	if e := cfg.Binance; e.IsEnabled() {
		c.Binance = binance.NewClient(e.BaseURL, binance.WithLogger(logger))
	}
	return c
}
