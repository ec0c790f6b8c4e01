package exchange

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/rickgao/perp-research/internal/config"
)

func TestNew_DisabledVenuesAreNil(t *testing.T) {
	off := false
	cfg := config.ExchangesConfig{
		Edgex:   config.ExchangeConfig{Enabled: &off},
		Binance: config.ExchangeConfig{Enabled: &off},
	}

	c := New(cfg, nil)

	assert.NotNil(t, c.Hyperliquid)
	assert.NotNil(t, c.Dydx)
	assert.NotNil(t, c.ZkLighter)
	assert.NotNil(t, c.Yahoo)
	assert.Nil(t, c.Edgex)
	assert.Nil(t, c.Binance)
}
