// Package discovery surveys every perp listed on Hyperliquid, edgeX and
// zkLighter: it classifies the underlyings, snapshots their markets, and
// ranks the most traded assets of each type with their history depth.
package discovery

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/perp-research/internal/classify"
	"github.com/rickgao/perp-research/internal/model"
)

// HyperliquidSource is the Hyperliquid side of discovery.
type HyperliquidSource interface {
	Markets(ctx context.Context) ([]model.Market, error)
	SnapshotAll(ctx context.Context) ([]model.Snapshot, error)
	InceptionDate(ctx context.Context, coin, dex string) *time.Time
}

// EdgexSource is the edgeX side of discovery.
type EdgexSource interface {
	Markets(ctx context.Context) ([]model.Market, error)
	Snapshot(ctx context.Context) ([]model.Snapshot, error)
	InceptionDate(ctx context.Context, contractID string) *time.Time
}

// ZkLighterSource is the zkLighter side of discovery.
type ZkLighterSource interface {
	Markets(ctx context.Context) ([]model.Market, error)
	Snapshot(ctx context.Context) ([]model.Snapshot, error)
	InceptionDate(ctx context.Context, marketID int) *time.Time
}

// InceptionCache memoizes inception lookups.
type InceptionCache interface {
	Lookup(ctx context.Context, asset, chain, dex string, fetch func(context.Context) *time.Time) *time.Time
}

// Sources bundles the venues; a nil source is skipped.
type Sources struct {
	Hyperliquid HyperliquidSource
	Edgex       EdgexSource
	ZkLighter   ZkLighterSource
}

// Options tunes a run.
type Options struct {
	TopN                 int
	InceptionTimeout     time.Duration
	InceptionConcurrency int
}

// Discoverer runs the survey.
type Discoverer struct {
	src    Sources
	cache  InceptionCache
	opts   Options
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Discoverer. cache may be nil to always fetch.
func New(src Sources, cache InceptionCache, opts Options, logger *slog.Logger) *Discoverer {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TopN < 1 {
		opts.TopN = 5
	}
	if opts.InceptionConcurrency < 1 {
		opts.InceptionConcurrency = 1
	}
	return &Discoverer{src: src, cache: cache, opts: opts, logger: logger, now: time.Now}
}

// venueData is what one venue returned.
type venueData struct {
	markets   []model.Market
	snapshots []model.Snapshot
}

// Survey is the collected, classified state of every venue.
type Survey struct {
	Markets        map[string][]model.Market // by chain
	Snapshots      []model.Snapshot
	Classification []classify.Row
}

// Collect fetches every venue concurrently. A venue that fails is logged and
// left empty.
func (d *Discoverer) Collect(ctx context.Context) (Survey, error) {
	var (
		mu  sync.Mutex
		out = Survey{Markets: make(map[string][]model.Market)}
	)
	store := func(chain string, v venueData) {
		mu.Lock()
		defer mu.Unlock()
		out.Markets[chain] = v.markets
		out.Snapshots = append(out.Snapshots, v.snapshots...)
	}

	g, gctx := errgroup.WithContext(ctx)
	fetch := func(chain string, markets func(context.Context) ([]model.Market, error), snaps func(context.Context) ([]model.Snapshot, error)) {
		g.Go(func() error {
			logger := d.logger.With("chain", chain)
			m, err := markets(gctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Error("markets fetch failed", "err", err)
				return nil
			}
			s, err := snaps(gctx)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Warn("snapshot fetch failed", "err", err)
			}
			logger.Info("venue collected", "markets", len(m), "snapshots", len(s))
			store(chain, venueData{markets: m, snapshots: s})
			return nil
		})
	}

	if d.src.Hyperliquid != nil {
		fetch(model.ExchangeHyperliquid, d.src.Hyperliquid.Markets, d.src.Hyperliquid.SnapshotAll)
	}
	if d.src.Edgex != nil {
		fetch(model.ExchangeEdgex, d.src.Edgex.Markets, d.src.Edgex.Snapshot)
	}
	if d.src.ZkLighter != nil {
		fetch(model.ExchangeZkLighter, d.src.ZkLighter.Markets, d.src.ZkLighter.Snapshot)
	}
	if err := g.Wait(); err != nil {
		return out, err
	}

	out.Classification = classify.Multichain(
		out.Markets[model.ExchangeHyperliquid],
		out.Markets[model.ExchangeEdgex],
		out.Markets[model.ExchangeZkLighter],
	)
	return out, nil
}
