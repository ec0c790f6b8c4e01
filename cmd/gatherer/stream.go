package main

import (
	"context"
	"log/slog"

	"github.com/rickgao/perp-research/internal/connection"
	"github.com/rickgao/perp-research/internal/exchange/hyperliquid"
	"github.com/rickgao/perp-research/internal/market"
	"github.com/rickgao/perp-research/internal/model"
)

// streamable reports whether a Hyperliquid market belongs on the candle
// stream when following every listing.
func streamable(m model.Market) bool {
	return m.Exchange == model.ExchangeHyperliquid && hyperliquid.IsNativeDex(m.Dex)
}

// subscribeConfigured subscribes the configured coins. With follow set it
// subscribes every active native-DEX perp instead.
func subscribeConfigured(m connection.Manager, reg market.Registry, coins []string, interval string, follow bool, logger *slog.Logger) int {
	if logger == nil {
		logger = slog.Default()
	}
	if follow {
		coins = coins[:0:0]
		for _, mk := range reg.ActiveMarkets(model.ExchangeHyperliquid) {
			if streamable(mk) {
				coins = append(coins, mk.MarketID)
			}
		}
	}

	n := 0
	for _, coin := range coins {
		if _, ok := reg.Market(model.ExchangeHyperliquid, coin); !ok {
			logger.Warn("coin not listed on hyperliquid, subscribing anyway", "coin", coin)
		}
		if err := m.Subscribe(connection.CandleSubscription(coin, interval)); err != nil {
			logger.Error("subscribe failed", "coin", coin, "error", err)
			continue
		}
		n++
	}
	return n
}

// followListings keeps the stream in step with Hyperliquid listings until
// ctx ends or the registry closes its change channel.
func followListings(ctx context.Context, m connection.Manager, reg market.Registry, interval string, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}
	for {
		select {
		case <-ctx.Done():
			return
		case ch, ok := <-reg.Changes():
			if !ok {
				return
			}
			if ch.Exchange != model.ExchangeHyperliquid || !streamable(ch.Market) {
				continue
			}
			sub := connection.CandleSubscription(ch.MarketID, interval)
			var err error
			switch ch.EventType {
			case market.EventListed:
				err = m.Subscribe(sub)
			case market.EventDelisted:
				err = m.Unsubscribe(sub)
			default:
				continue
			}
			if err != nil {
				logger.Warn("stream update failed", "coin", ch.MarketID, "event", ch.EventType, "error", err)
				continue
			}
			logger.Info("stream updated", "coin", ch.MarketID, "event", ch.EventType)
		}
	}
}
