package hyperliquid

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rickgao/perp-research/internal/model"
)

type spotToken struct {
	Name        string `json:"name"`
	SzDecimals  int    `json:"szDecimals"`
	WeiDecimals int    `json:"weiDecimals"`
	Index       int    `json:"index"`
	TokenID     string `json:"tokenId"`
	IsCanonical bool   `json:"isCanonical"`
}

type spotPair struct {
	Name        string `json:"name"`
	Tokens      []int  `json:"tokens"`
	Index       int    `json:"index"`
	IsCanonical bool   `json:"isCanonical"`
}

type spotMeta struct {
	Tokens   []spotToken `json:"tokens"`
	Universe []spotPair  `json:"universe"`
}

type spotCtx struct {
	Coin              string `json:"coin"`
	MarkPx            string `json:"markPx"`
	MidPx             string `json:"midPx"`
	PrevDayPx         string `json:"prevDayPx"`
	DayNtlVlm         string `json:"dayNtlVlm"`
	DayBaseVlm        string `json:"dayBaseVlm"`
	CirculatingSupply string `json:"circulatingSupply"`
}

// SpotToken is one token of the spot universe.
type SpotToken struct {
	Index       int
	Name        string
	SzDecimals  int
	WeiDecimals int
	TokenID     string
	IsCanonical bool
}

// SpotPair is one spot trading pair.
type SpotPair struct {
	Name        string
	BaseToken   string
	QuoteToken  string
	PairIndex   int
	IsCanonical bool
}

// Coin is the identifier used by candle and book requests: the pair name
// for canonical pairs, "@index" otherwise.
func (p SpotPair) Coin() string {
	if p.IsCanonical {
		return p.Name
	}
	return fmt.Sprintf("@%d", p.PairIndex)
}

func (c *Client) spotMeta(ctx context.Context) (spotMeta, error) {
	var meta spotMeta
	if err := c.info(ctx, map[string]any{"type": "spotMeta"}, &meta); err != nil {
		return meta, fmt.Errorf("spotMeta: %w", err)
	}
	return meta, nil
}

// SpotTokens lists every spot token.
func (c *Client) SpotTokens(ctx context.Context) ([]SpotToken, error) {
	meta, err := c.spotMeta(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]SpotToken, 0, len(meta.Tokens))
	for _, t := range meta.Tokens {
		out = append(out, SpotToken{
			Index:       t.Index,
			Name:        t.Name,
			SzDecimals:  t.SzDecimals,
			WeiDecimals: t.WeiDecimals,
			TokenID:     t.TokenID,
			IsCanonical: t.IsCanonical,
		})
	}
	return out, nil
}

// SpotPairs lists every spot pair with token names resolved.
func (c *Client) SpotPairs(ctx context.Context) ([]SpotPair, error) {
	meta, err := c.spotMeta(ctx)
	if err != nil {
		return nil, err
	}
	return meta.pairs(), nil
}

func (m spotMeta) pairs() []SpotPair {
	names := make(map[int]string, len(m.Tokens))
	for _, t := range m.Tokens {
		names[t.Index] = t.Name
	}

	out := make([]SpotPair, 0, len(m.Universe))
	for _, p := range m.Universe {
		sp := SpotPair{Name: p.Name, PairIndex: p.Index, IsCanonical: p.IsCanonical}
		if len(p.Tokens) > 0 {
			sp.BaseToken = names[p.Tokens[0]]
		}
		if len(p.Tokens) > 1 {
			sp.QuoteToken = names[p.Tokens[1]]
		}
		out = append(out, sp)
	}
	return out
}

// ResolveSpotPair turns a pair name such as "HYPE/USDC" into its API coin.
// "@index" identifiers are returned unchanged.
func (c *Client) ResolveSpotPair(ctx context.Context, name string) (string, error) {
	if strings.HasPrefix(name, "@") {
		return name, nil
	}
	pairs, err := c.SpotPairs(ctx)
	if err != nil {
		return "", err
	}
	for _, p := range pairs {
		if p.Name == name {
			return p.Coin(), nil
		}
	}
	return "", fmt.Errorf("spot pair %q: %w", name, model.ErrUnknownMarket)
}

// SpotSnapshot returns live statistics for every spot pair.
func (c *Client) SpotSnapshot(ctx context.Context) ([]model.Snapshot, error) {
	var raw []json.RawMessage
	if err := c.info(ctx, map[string]any{"type": "spotMetaAndAssetCtxs"}, &raw); err != nil {
		return nil, fmt.Errorf("spotMetaAndAssetCtxs: %w", err)
	}
	var (
		meta spotMeta
		ctxs []spotCtx
	)
	if err := decodePair(raw, &meta, &ctxs); err != nil {
		return nil, fmt.Errorf("decode spotMetaAndAssetCtxs: %w", err)
	}

	now := c.now().UTC()
	pairs := meta.pairs()
	n := min(len(pairs), len(ctxs))
	out := make([]model.Snapshot, 0, n)
	for i := 0; i < n; i++ {
		p, x := pairs[i], ctxs[i]
		s := model.Snapshot{
			Time:          now,
			Exchange:      model.ExchangeHyperliquid,
			Symbol:        p.Name,
			Base:          p.BaseToken,
			MarkPrice:     model.ParseFloat(x.MarkPx),
			MidPrice:      model.ParseFloat(x.MidPx),
			PrevDayPrice:  model.ParseFloat(x.PrevDayPx),
			Volume24hUSD:  model.ParseFloat(x.DayNtlVlm),
			Volume24hBase: model.ParseFloat(x.DayBaseVlm),
		}
		if s.PrevDayPrice > 0 {
			s.PriceChangePct = (s.MarkPrice - s.PrevDayPrice) / s.PrevDayPrice * 100
		}
		out = append(out, s)
	}
	return out, nil
}
