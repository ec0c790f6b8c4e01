package hyperliquid

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/perp-research/internal/classify"
	"github.com/rickgao/perp-research/internal/model"
)

// Dexs returns the perp DEX names in the order the API lists them.
// The native DEX comes first as NativeDex.
func (c *Client) Dexs(ctx context.Context) ([]string, error) {
	var raw []*perpDex
	if err := c.info(ctx, map[string]any{"type": "perpDexs"}, &raw); err != nil {
		return nil, fmt.Errorf("perpDexs: %w", err)
	}

	names := make([]string, 0, len(raw))
	for i, d := range raw {
		switch {
		case d == nil:
			names = append(names, NativeDex)
		case d.Name == "":
			names = append(names, fmt.Sprintf("dex_%d", i))
		default:
			names = append(names, d.Name)
		}
	}
	return names, nil
}

// IsNativeDex reports whether dex refers to the native DEX.
func IsNativeDex(dex string) bool {
	switch strings.ToLower(dex) {
	case "", "native", "hl", "hyperliquid", strings.ToLower(NativeDex):
		return true
	}
	return false
}

// ResolveCoin builds the API coin for a DEX: bare on the native DEX,
// "dex:COIN" elsewhere. Already prefixed coins are returned unchanged.
func ResolveCoin(coin, dex string) string {
	if strings.Contains(coin, ":") || IsNativeDex(dex) {
		return coin
	}
	return dex + ":" + coin
}

// Markets lists every perp on every DEX.
func (c *Client) Markets(ctx context.Context) ([]model.Market, error) {
	var (
		dexs  []string
		metas []perpMeta
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		dexs, err = c.Dexs(gctx)
		return err
	})
	g.Go(func() error {
		if err := c.info(gctx, map[string]any{"type": "allPerpMetas"}, &metas); err != nil {
			return fmt.Errorf("allPerpMetas: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []model.Market
	for i, meta := range metas {
		dex := fmt.Sprintf("dex_%d", i)
		if i < len(dexs) {
			dex = dexs[i]
		}
		for _, a := range meta.Universe {
			out = append(out, perpMarket(a, dex))
		}
	}

	c.logger.Debug("markets fetched", "dexs", len(dexs), "count", len(out))
	return out, nil
}

func perpMarket(a perpAsset, dex string) model.Market {
	status := model.MarketStatusActive
	if a.IsDelisted {
		status = "delisted"
	}
	return model.Market{
		Exchange:     model.ExchangeHyperliquid,
		MarketID:     a.Name,
		Name:         a.Name,
		BaseSymbol:   classify.StripDexPrefix(a.Name),
		Dex:          dex,
		MarketType:   model.MarketTypePerp,
		Status:       status,
		IsDelisted:   a.IsDelisted,
		MaxLeverage:  a.MaxLeverage,
		SizeDecimals: a.SzDecimals,
	}
}

// Snapshot returns live statistics for every perp on one DEX.
// Pass "" or any native alias for the native DEX.
func (c *Client) Snapshot(ctx context.Context, dex string) ([]model.Snapshot, error) {
	payload := map[string]any{"type": "metaAndAssetCtxs"}
	label := NativeDex
	if !IsNativeDex(dex) {
		payload["dex"] = dex
		label = dex
	}

	var raw []json.RawMessage
	if err := c.info(ctx, payload, &raw); err != nil {
		return nil, fmt.Errorf("metaAndAssetCtxs %s: %w", label, err)
	}
	var (
		meta perpMeta
		ctxs []assetCtx
	)
	if err := decodePair(raw, &meta, &ctxs); err != nil {
		return nil, fmt.Errorf("decode metaAndAssetCtxs %s: %w", label, err)
	}

	now := c.now().UTC()
	n := min(len(meta.Universe), len(ctxs))
	out := make([]model.Snapshot, 0, n)
	for i := 0; i < n; i++ {
		a, x := meta.Universe[i], ctxs[i]
		if a.IsDelisted {
			continue
		}
		out = append(out, perpSnapshot(now, label, a, x))
	}
	return out, nil
}

func perpSnapshot(now time.Time, dex string, a perpAsset, x assetCtx) model.Snapshot {
	s := model.Snapshot{
		Time:          now,
		Exchange:      model.ExchangeHyperliquid,
		Dex:           dex,
		Symbol:        a.Name,
		Base:          classify.StripDexPrefix(a.Name),
		MarkPrice:     model.ParseFloat(x.MarkPx),
		OraclePrice:   model.ParseFloat(x.OraclePx),
		MidPrice:      model.ParseFloat(x.MidPx),
		PrevDayPrice:  model.ParseFloat(x.PrevDayPx),
		Volume24hUSD:  model.ParseFloat(x.DayNtlVlm),
		Volume24hBase: model.ParseFloat(x.DayBaseVlm),
		OpenInterest:  model.ParseFloat(x.OpenInterest),
		FundingRate:   model.ParseFloat(x.Funding),
		Premium:       model.ParseFloat(x.Premium),
	}
	s.OpenInterestUSD = s.OpenInterest * s.OraclePrice
	if s.PrevDayPrice > 0 {
		s.PriceChangePct = (s.MarkPrice - s.PrevDayPrice) / s.PrevDayPrice * 100
	}
	return s
}

// SnapshotAll snapshots every DEX. A DEX that fails is logged and skipped.
func (c *Client) SnapshotAll(ctx context.Context) ([]model.Snapshot, error) {
	dexs, err := c.Dexs(ctx)
	if err != nil {
		return nil, err
	}

	var out []model.Snapshot
	for _, dex := range dexs {
		snaps, err := c.Snapshot(ctx, dex)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			c.logger.Warn("dex snapshot failed", "dex", dex, "err", err)
			continue
		}
		out = append(out, snaps...)
	}
	return out, nil
}

// ClassifyAll classifies every base asset listed on any DEX.
func (c *Client) ClassifyAll(ctx context.Context, activeOnly bool) ([]classify.DexRow, error) {
	markets, err := c.Markets(ctx)
	if err != nil {
		return nil, err
	}
	return classify.Hyperliquid(markets, activeOnly), nil
}
