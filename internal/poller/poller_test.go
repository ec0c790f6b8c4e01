package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rickgao/perp-research/internal/config"
	"github.com/rickgao/perp-research/internal/model"
	"github.com/rickgao/perp-research/internal/router"
)

type recorder struct {
	mu        sync.Mutex
	snapshots map[string][]model.Snapshot
	funding   map[string][]model.FundingRate
	ids       map[uuid.UUID]bool
}

func newRecorder() *recorder {
	return &recorder{
		snapshots: map[string][]model.Snapshot{},
		funding:   map[string][]model.FundingRate{},
		ids:       map[uuid.UUID]bool{},
	}
}

func (r *recorder) HandleSnapshots(id uuid.UUID, venue string, s []model.Snapshot) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids[id] = true
	r.snapshots[venue] = append(r.snapshots[venue], s...)
	return nil
}

func (r *recorder) HandleFunding(id uuid.UUID, venue string, f []model.FundingRate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ids[id] = true
	r.funding[venue] = append(r.funding[venue], f...)
	return nil
}

var pollTime = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func venues() []Venue {
	return []Venue{
		{
			Name: model.ExchangeHyperliquid,
			Snapshots: func(context.Context) ([]model.Snapshot, error) {
				return []model.Snapshot{{Symbol: "BTC", Base: "BTC", MarkPrice: 90000}, {Symbol: "ETH", Base: "ETH"}}, nil
			},
			Funding: func(context.Context) ([]model.FundingRate, error) {
				return []model.FundingRate{{Symbol: "BTC", Rate: 0.0001}}, nil
			},
		},
		{
			Name: model.ExchangeDydx,
			Snapshots: func(context.Context) ([]model.Snapshot, error) {
				return nil, errors.New("indexer unavailable")
			},
			Funding: func(context.Context) ([]model.FundingRate, error) {
				ts := pollTime.Add(-time.Hour)
				return []model.FundingRate{{Exchange: model.ExchangeDydx, Symbol: "BTC-USD", Time: ts}}, nil
			},
		},
		{Name: model.ExchangeEdgex},
	}
}

func TestPoller_PollOnce(t *testing.T) {
	rec := newRecorder()
	p := New(Config{Interval: time.Hour, Concurrency: 2, Timeout: time.Second}, venues(), rec, nil)
	p.now = func() time.Time { return pollTime.Add(500 * time.Millisecond) }

	res := p.PollOnce(context.Background())

	assert.Equal(t, int64(2), res.Snapshots)
	assert.Equal(t, int64(2), res.Funding)
	assert.Equal(t, int64(1), res.Errors)
	assert.Equal(t, pollTime, res.Time)
	assert.Equal(t, res, p.Last())

	require.Len(t, rec.ids, 1, "one poll id per cycle")
	assert.True(t, rec.ids[res.PollID])

	hl := rec.snapshots[model.ExchangeHyperliquid]
	require.Len(t, hl, 2)
	assert.Equal(t, pollTime, hl[0].Time, "missing time stamped with the poll time")
	assert.Equal(t, model.ExchangeHyperliquid, hl[0].Exchange)

	dydx := rec.funding[model.ExchangeDydx]
	require.Len(t, dydx, 1)
	assert.Equal(t, pollTime.Add(-time.Hour), dydx[0].Time, "venue time kept")

	assert.Empty(t, rec.snapshots[model.ExchangeDydx])
}

func TestPoller_StartStop(t *testing.T) {
	var cycles atomic.Int32
	v := Venue{Name: "x", Funding: func(context.Context) ([]model.FundingRate, error) {
		cycles.Add(1)
		return nil, nil
	}}
	p := New(Config{Interval: 10 * time.Millisecond, Concurrency: 1, Timeout: time.Second}, []Venue{v}, nil, nil)

	require.NoError(t, p.Start(context.Background()))
	require.Eventually(t, func() bool { return cycles.Load() >= 2 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Stop(ctx))
}

func TestBufferHandler(t *testing.T) {
	h := BufferHandler{
		Snapshots: router.NewGrowableBuffer[router.SnapshotMsg](4),
		Funding:   router.NewGrowableBuffer[router.FundingMsg](4),
	}
	id := uuid.New()

	require.NoError(t, h.HandleSnapshots(id, "hyperliquid", []model.Snapshot{{Symbol: "BTC"}}))
	require.NoError(t, h.HandleFunding(id, "hyperliquid", []model.FundingRate{{Symbol: "BTC"}, {Symbol: "ETH"}}))

	msg, ok := h.Snapshots.TryReceive()
	require.True(t, ok)
	assert.Equal(t, id, msg.PollID)
	assert.Equal(t, 2, h.Funding.Len())

	h.Funding.Close()
	assert.ErrorIs(t, h.HandleFunding(id, "x", []model.FundingRate{{}}), ErrBufferClosed)
	assert.NoError(t, BufferHandler{}.HandleSnapshots(id, "x", []model.Snapshot{{}}))
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.PollerConfig{Concurrency: 9})
	assert.Equal(t, 9, cfg.Concurrency)
	assert.Equal(t, config.DefaultPollInterval, cfg.Interval)
}

func TestNew_ZeroConfigUsesDefaults(t *testing.T) {
	p := New(Config{}, nil, nil, nil)
	assert.Equal(t, DefaultConfig(), p.cfg)

	// A zero interval would panic in time.NewTicker.
	require.NoError(t, p.Start(context.Background()))
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, p.Stop(ctx))
}
