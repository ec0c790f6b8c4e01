package market

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/perp-research/internal/model"
)

type fakeSource struct {
	name string

	mu      sync.Mutex
	markets []model.Market
	err     error
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Markets(context.Context) ([]model.Market, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Market(nil), f.markets...), f.err
}

func (f *fakeSource) set(markets ...model.Market) {
	f.mu.Lock()
	f.markets = markets
	f.mu.Unlock()
}

func perp(id string, delisted bool) model.Market {
	return model.Market{MarketID: id, Name: id, BaseSymbol: id, MarketType: model.MarketTypePerp, IsDelisted: delisted}
}

func TestState_Apply(t *testing.T) {
	s := newState()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	changes := s.apply("hyperliquid", []model.Market{perp("BTC", false), perp("ETH", false), perp("LUNA", true)}, now)
	require.Len(t, changes, 2)
	assert.Equal(t, "BTC", changes[0].MarketID)
	assert.Equal(t, EventListed, changes[0].EventType)

	ids := func() []string {
		var out []string
		for _, m := range s.activeMarkets("hyperliquid") {
			out = append(out, m.MarketID)
		}
		return out
	}
	assert.Equal(t, []string{"BTC", "ETH"}, ids())

	// ETH delisted explicitly, BTC disappears, SOL lists.
	changes = s.apply("hyperliquid", []model.Market{perp("ETH", true), perp("SOL", false)}, now.Add(time.Hour))
	require.Len(t, changes, 3)
	assert.Equal(t, MarketChange{Exchange: "hyperliquid", MarketID: "BTC", EventType: EventDelisted, Market: func() model.Market {
		m := perp("BTC", false)
		m.IsDelisted = true
		return m
	}()}, changes[0])
	assert.Equal(t, EventDelisted, changes[1].EventType)
	assert.Equal(t, EventListed, changes[2].EventType)
	assert.Equal(t, []string{"SOL"}, ids())

	m, ok := s.get("hyperliquid", "BTC")
	require.True(t, ok)
	assert.True(t, m.IsDelisted)

	// Other venues are untouched.
	s.apply("dydx", []model.Market{perp("BTC-USD", false)}, now)
	assert.Equal(t, []string{"SOL"}, ids())
	assert.Len(t, s.activeMarkets("dydx"), 1)
}

func TestState_NotifyChangeDropsOldest(t *testing.T) {
	s := newState()
	for i := 0; i < ChangeBufferSize+1; i++ {
		s.notifyChange(MarketChange{MarketID: string(rune('a' + i%26))})
	}
	assert.Len(t, s.changes, ChangeBufferSize)
	first := <-s.changes
	assert.Equal(t, "b", first.MarketID, "oldest event dropped")
}

func TestRegistry_StartAndReconcile(t *testing.T) {
	hl := &fakeSource{name: "hyperliquid"}
	hl.set(perp("BTC", false))
	broken := &fakeSource{name: "edgex", err: errors.New("down")}

	reg := NewRegistry(Config{ReconcileInterval: 10 * time.Millisecond, SyncTimeout: time.Second}, []Source{hl, broken}, nil)
	require.NoError(t, reg.Start(context.Background()))
	defer reg.Stop(context.Background())

	require.Len(t, reg.ActiveMarkets("hyperliquid"), 1)
	select {
	case c := <-reg.Changes():
		t.Fatalf("initial sync must not publish changes, got %+v", c)
	default:
	}

	hl.set(perp("BTC", false), perp("HYPE", false))

	select {
	case c := <-reg.Changes():
		assert.Equal(t, "HYPE", c.MarketID)
		assert.Equal(t, EventListed, c.EventType)
	case <-time.After(time.Second):
		t.Fatal("listing not reported")
	}

	m, ok := reg.Market("hyperliquid", "HYPE")
	require.True(t, ok)
	assert.Equal(t, "HYPE", m.BaseSymbol)
}

func TestRegistry_StartFailsWhenAllVenuesFail(t *testing.T) {
	reg := NewRegistry(DefaultConfig(), []Source{&fakeSource{name: "x", err: errors.New("down")}}, nil)
	assert.ErrorIs(t, reg.Start(context.Background()), ErrNoSources)
}

func TestRegistry_StopWithoutStart(t *testing.T) {
	reg := NewRegistry(DefaultConfig(), nil, nil)
	assert.NoError(t, reg.Stop(context.Background()))
}
