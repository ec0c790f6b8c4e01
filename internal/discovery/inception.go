package discovery

import (
	"context"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/perp-research/internal/model"
)

// Cache dex labels for chains without builder DEXs.
const (
	cacheDexEdgex     = "edgeX"
	cacheDexZkLighter = "zkLighter"
)

// InceptionStats counts how inception lookups were served.
type InceptionStats struct {
	Lookups  int64
	APICalls int64
}

// CacheHits is the number of lookups served without a venue call.
func (s InceptionStats) CacheHits() int64 {
	return s.Lookups - s.APICalls
}

type lookupFunc func(ctx context.Context) *time.Time

// Inceptions fills the earliest inception date of each asset across every
// market that lists it. Each venue call is bounded by the inception timeout.
func (d *Discoverer) Inceptions(ctx context.Context, assets []AssetVolume) ([]AssetVolume, InceptionStats, error) {
	var lookups, calls atomic.Int64
	now := d.now().UTC()
	out := make([]AssetVolume, len(assets))
	copy(out, assets)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(d.opts.InceptionConcurrency)
	for i := range out {
		a := &out[i]
		g.Go(func() error {
			var earliest *time.Time
			for _, l := range d.lookups(a) {
				if err := gctx.Err(); err != nil {
					return err
				}
				lookups.Add(1)
				date := d.lookup(gctx, a.Asset, l.chain, l.dex, func(ctx context.Context) *time.Time {
					calls.Add(1)
					tctx, cancel := context.WithTimeout(ctx, d.opts.InceptionTimeout)
					defer cancel()
					return l.fetch(tctx)
				})
				if date != nil && (earliest == nil || date.Before(*earliest)) {
					earliest = date
				}
			}
			a.InceptionDate = earliest
			if earliest != nil {
				a.DaysAvailable = int(now.Sub(*earliest).Hours() / 24)
			}
			return nil
		})
	}
	err := g.Wait()
	stats := InceptionStats{Lookups: lookups.Load(), APICalls: calls.Load()}
	d.logger.Info("inception lookups done",
		"assets", len(out),
		"lookups", stats.Lookups,
		"api_calls", stats.APICalls,
		"cache_hits", stats.CacheHits(),
	)
	return out, stats, err
}

type venueLookup struct {
	chain, dex string
	fetch      lookupFunc
}

func (d *Discoverer) lookups(a *AssetVolume) []venueLookup {
	asset := a.Asset
	var out []venueLookup
	if hl := d.src.Hyperliquid; hl != nil {
		for _, dex := range a.HLDexs {
			out = append(out, venueLookup{model.ExchangeHyperliquid, dex, func(ctx context.Context) *time.Time {
				return hl.InceptionDate(ctx, asset, dex)
			}})
		}
	}
	if ex := d.src.Edgex; ex != nil {
		for _, id := range a.EdgexContracts {
			out = append(out, venueLookup{model.ExchangeEdgex, cacheDexEdgex, func(ctx context.Context) *time.Time {
				return ex.InceptionDate(ctx, id)
			}})
		}
	}
	if zk := d.src.ZkLighter; zk != nil {
		for _, s := range a.ZkLMarkets {
			id, ok := marketID(s)
			if !ok {
				continue
			}
			out = append(out, venueLookup{model.ExchangeZkLighter, cacheDexZkLighter, func(ctx context.Context) *time.Time {
				return zk.InceptionDate(ctx, id)
			}})
		}
	}
	return out
}

func (d *Discoverer) lookup(ctx context.Context, asset, chain, dex string, fetch lookupFunc) *time.Time {
	if d.cache == nil {
		return fetch(ctx)
	}
	return d.cache.Lookup(ctx, asset, chain, dex, fetch)
}
