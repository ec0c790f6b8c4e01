// streamtest connects to the Hyperliquid WebSocket and prints decoded
// candles to the console. Nothing is written to the database.
// Usage: go run ./cmd/streamtest -config configs/perp-research.yaml -coins BTC,ETH
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/rickgao/perp-research/internal/app"
	"github.com/rickgao/perp-research/internal/connection"
	"github.com/rickgao/perp-research/internal/router"
)

func main() {
	coinsFlag := flag.String("coins", "", "comma-separated coins (default gatherer.stream.coins)")
	verbose := flag.Bool("verbose", false, "print full message JSON")
	env := app.Boot("streamtest")
	defer env.Close()

	cfg, logger, ctx := env.Config, env.Logger, env.Ctx
	stream := cfg.Gatherer.Stream
	coins := stream.Coins
	if *coinsFlag != "" {
		coins = strings.Split(*coinsFlag, ",")
	}

	manager := connection.NewManager(connection.ManagerConfigFrom(cfg.Gatherer), logger)
	rt := router.NewRouter(router.DefaultRouterConfig(), manager.Messages(), logger)

	if err := rt.Start(ctx); err != nil {
		env.Fail("failed to start router", err)
	}
	if err := manager.Start(ctx); err != nil {
		env.Fail("failed to connect", err)
	}
	for _, coin := range coins {
		coin = strings.TrimSpace(coin)
		if coin == "" {
			continue
		}
		if err := manager.Subscribe(connection.CandleSubscription(coin, stream.Interval)); err != nil {
			logger.Error("subscribe failed", "coin", coin, "error", err)
		}
	}
	logger.Info("streaming", "url", stream.WSURL, "coins", coins, "interval", stream.Interval)

	go printCandles(ctx, rt.Buffers().Candle, *verbose, logger)
	go printStats(ctx, manager, rt)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = manager.Stop(shutdownCtx)
	_ = rt.Stop(shutdownCtx)
}

func printCandles(ctx context.Context, buf *router.GrowableBuffer[router.CandleMsg], verbose bool, logger *slog.Logger) {
	for {
		msg, ok := buf.ReceiveContext(ctx)
		if !ok {
			return
		}
		if verbose {
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Warn("marshal candle", "error", err)
				continue
			}
			fmt.Printf("[CANDLE] %s\n", data)
			continue
		}
		fmt.Printf("[CANDLE] %s %s open=%s o=%s h=%s l=%s c=%s v=%s n=%d session=%d\n",
			msg.Coin, msg.Interval, msg.OpenTime.UTC().Format(time.RFC3339),
			msg.Open, msg.High, msg.Low, msg.Close, msg.Volume, msg.Trades, msg.Session)
	}
}

func printStats(ctx context.Context, manager connection.Manager, rt router.Router) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ms, rs := manager.Stats(), rt.Stats()
			fmt.Printf("[STATS] connected=%t session=%d subs=%d reconnects=%d received=%d routed=%d parse_errors=%d buffered=%d\n",
				ms.Connected, ms.Session, ms.Subscriptions, ms.Reconnects,
				rs.MessagesReceived, rs.MessagesRouted, rs.ParseErrors, rs.CandleBuffer.Count)
		}
	}
}
