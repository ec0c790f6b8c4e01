// Package market keeps the live list of perp markets on every venue the
// gatherer follows and reports listings and delistings between syncs.
package market

import (
	"context"

	"github.com/rickgao/perp-research/internal/model"
)

// ChangeBufferSize is the capacity of the MarketChange channel.
const ChangeBufferSize = 1000

// Change event types.
const (
	EventListed   = "listed"
	EventDelisted = "delisted"
)

// Source lists the markets on one venue.
type Source interface {
	Name() string
	Markets(ctx context.Context) ([]model.Market, error)
}

// Registry tracks markets across venues.
type Registry interface {
	// Start performs the initial sync, then reconciles in the background.
	Start(ctx context.Context) error

	// Stop gracefully shuts down.
	Stop(ctx context.Context) error

	// ActiveMarkets returns the tradable markets on one venue, sorted by id.
	ActiveMarkets(exchange string) []model.Market

	// Market returns a market by venue and venue-native id.
	Market(exchange, marketID string) (model.Market, bool)

	// Changes returns listing and delisting events found after the initial sync.
	Changes() <-chan MarketChange
}

// MarketChange is a listing or delisting seen by a reconciliation.
type MarketChange struct {
	Exchange  string
	MarketID  string
	EventType string
	Market    model.Market
}
