package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rickgao/perp-research/internal/app"
	"github.com/rickgao/perp-research/internal/connection"
	"github.com/rickgao/perp-research/internal/database"
	"github.com/rickgao/perp-research/internal/exchange"
	"github.com/rickgao/perp-research/internal/market"
	"github.com/rickgao/perp-research/internal/model"
	"github.com/rickgao/perp-research/internal/poller"
	"github.com/rickgao/perp-research/internal/router"
	"github.com/rickgao/perp-research/internal/writer"
)

const shutdownTimeout = 30 * time.Second

// stopper is any component with a graceful stop.
type stopper interface {
	Stop(ctx context.Context) error
}

func main() {
	env := app.Boot("gatherer")
	defer env.Close()

	cfg, logger, ctx := env.Config, env.Logger, env.Ctx
	if err := cfg.ValidateGatherer(); err != nil {
		env.Fail("invalid gatherer config", err)
	}
	g := cfg.Gatherer

	// Connect to database
	logger.Info("connecting to database",
		"host", cfg.Database.Timescale.Host,
		"port", cfg.Database.Timescale.Port,
		"database", cfg.Database.Timescale.Name,
	)
	pool, err := database.Open(ctx, cfg.Database)
	if err != nil {
		env.Fail("failed to connect to database", err)
	}
	defer pool.Close()
	logger.Info("database connected")

	clients := exchange.New(cfg.Exchanges, logger)
	if clients.Hyperliquid == nil {
		env.Fail("hyperliquid must be enabled for the candle stream", fmt.Errorf("exchanges.hyperliquid.enabled is false"))
	}

	// Market registry over every perp venue
	var sources []market.Source
	var venues []poller.Venue
	hl := clients.Hyperliquid
	sources = append(sources, hl)
	venues = append(venues, poller.Venue{
		Name:      hl.Name(),
		Snapshots: hl.SnapshotAll,
		Funding:   func(ctx context.Context) ([]model.FundingRate, error) {
			return hl.CurrentFundingRates(ctx, "")
		},
	})
	if c := clients.Dydx; c != nil {
		sources = append(sources, c)
		venues = append(venues, poller.Venue{Name: c.Name(), Snapshots: c.Snapshot, Funding: c.CurrentFundingRates})
	}
	if c := clients.Edgex; c != nil {
		sources = append(sources, c)
		venues = append(venues, poller.Venue{Name: c.Name(), Snapshots: c.Snapshot, Funding: c.CurrentFundingRates})
	}
	if c := clients.ZkLighter; c != nil {
		sources = append(sources, c)
		venues = append(venues, poller.Venue{Name: c.Name(), Snapshots: c.Snapshot, Funding: c.CurrentFundingRates})
	}

	registryCfg := market.DefaultConfig()
	registryCfg.ReconcileInterval = g.ReconcileInterval
	registry := market.NewRegistry(registryCfg, sources, logger)

	// Pipeline components
	manager := connection.NewManager(connection.ManagerConfigFrom(g), logger)
	rt := router.NewRouter(router.RouterConfig{CandleBufferSize: g.Writers.BufferSize}, manager.Messages(), logger)

	snapshotBuf := router.NewGrowableBuffer[router.SnapshotMsg](g.Writers.BufferSize)
	fundingBuf := router.NewGrowableBuffer[router.FundingMsg](g.Writers.BufferSize)

	writerCfg := writer.WriterConfigFrom(g.Writers)
	candleWriter := writer.NewCandleWriter(writerCfg, rt.Buffers().Candle, pool, logger)
	snapshotWriter := writer.NewSnapshotWriter(writerCfg, snapshotBuf, pool, logger)
	fundingWriter := writer.NewFundingWriter(writerCfg, fundingBuf, pool, logger)

	pl := poller.New(poller.ConfigFrom(g.Poller), venues, poller.BufferHandler{
		Snapshots: snapshotBuf,
		Funding:   fundingBuf,
	}, logger)

	// Start health server early so we can monitor sync progress
	healthServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", g.HealthPort),
		Handler: createHealthHandler(pool, registry, manager, rt, pl, logger),
	}
	go func() {
		logger.Info("starting health server", "port", g.HealthPort)
		if err := healthServer.ListenAndServe(); err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	logger.Info("starting market registry (initial sync)...")
	if err := registry.Start(ctx); err != nil {
		env.Fail("failed to start market registry", err)
	}
	for _, s := range sources {
		logger.Info("markets loaded", "exchange", s.Name(), "active", len(registry.ActiveMarkets(s.Name())))
	}

	// The stream and writers outlive the signal so shutdown can drain them
	// in order; each is stopped explicitly below.
	pipeCtx := context.WithoutCancel(ctx)

	// Writers start first so nothing backs up; the poller and stream last.
	started := []stopper{}
	for _, w := range []interface {
		stopper
		Start(context.Context) error
	}{candleWriter, snapshotWriter, fundingWriter, rt} {
		if err := w.Start(pipeCtx); err != nil {
			env.Fail("failed to start component", err)
		}
		started = append(started, w)
	}

	if err := manager.Start(pipeCtx); err != nil {
		env.Fail("failed to start websocket manager", err)
	}
	subscribed := subscribeConfigured(manager, registry, g.Stream.Coins, g.Stream.Interval, g.Stream.FollowAll(), logger)
	logger.Info("candle stream subscribed", "coins", subscribed, "interval", g.Stream.Interval)

	if g.Stream.FollowAll() {
		go followListings(ctx, manager, registry, g.Stream.Interval, logger)
	}

	if err := pl.Start(ctx); err != nil {
		env.Fail("failed to start poller", err)
	}

	logger.Info("gatherer running",
		"venues", len(venues),
		"health_url", fmt.Sprintf("http://localhost:%d/health", g.HealthPort),
	)

	// Wait for shutdown
	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	// Producers first, then the router, then the writers flush what is left.
	if err := pl.Stop(shutdownCtx); err != nil {
		logger.Warn("poller stop", "error", err)
	}
	snapshotBuf.Close()
	fundingBuf.Close()
	if err := manager.Stop(shutdownCtx); err != nil {
		logger.Warn("websocket manager stop", "error", err)
	}
	for i := len(started) - 1; i >= 0; i-- {
		if err := started[i].Stop(shutdownCtx); err != nil {
			logger.Warn("component stop", "error", err)
		}
	}
	if err := registry.Stop(shutdownCtx); err != nil {
		logger.Warn("registry stop", "error", err)
	}
	if err := healthServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("health server shutdown", "error", err)
	}

	logger.Info("gatherer stopped",
		"candles", candleWriter.Stats().Inserts,
		"snapshots", snapshotWriter.Stats().Inserts,
		"funding", fundingWriter.Stats().Inserts,
	)
}

// createHealthHandler creates the HTTP handler for health checks.
func createHealthHandler(
	pool *pgxpool.Pool,
	registry market.Registry,
	manager connection.Manager,
	rt router.Router,
	pl *poller.Poller,
	logger *slog.Logger,
) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		health := struct {
			Status     string         `json:"status"`
			Components map[string]any `json:"components"`
		}{
			Status:     "healthy",
			Components: make(map[string]any),
		}

		if err := pool.Ping(ctx); err != nil {
			health.Status = "unhealthy"
			health.Components["timescaledb"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["timescaledb"] = "connected"
		}

		markets := make(map[string]int)
		for _, ex := range []string{model.ExchangeHyperliquid, model.ExchangeDydx, model.ExchangeEdgex, model.ExchangeZkLighter} {
			markets[ex] = len(registry.ActiveMarkets(ex))
		}
		health.Components["market_registry"] = markets
		if markets[model.ExchangeHyperliquid] == 0 {
			health.Status = degrade(health.Status)
		}

		ms := manager.Stats()
		health.Components["websocket"] = ms
		if !ms.Connected {
			health.Status = degrade(health.Status)
		}
		health.Components["router"] = rt.Stats()

		last := pl.Last()
		health.Components["poller"] = map[string]any{
			"poll_id":   last.PollID.String(),
			"time":      last.Time,
			"snapshots": last.Snapshots,
			"funding":   last.Funding,
			"errors":    last.Errors,
		}

		w.Header().Set("Content-Type", "application/json")
		if health.Status == "unhealthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		if err := json.NewEncoder(w).Encode(health); err != nil {
			logger.Debug("health encode failed", "error", err)
		}
	})

	mux.HandleFunc("/debug/markets", func(w http.ResponseWriter, r *http.Request) {
		ex := r.URL.Query().Get("exchange")
		if ex == "" {
			ex = model.ExchangeHyperliquid
		}
		markets := registry.ActiveMarkets(ex)

		// Limit to first 100 for debugging
		total := len(markets)
		if len(markets) > 100 {
			markets = markets[:100]
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"exchange": ex,
			"count":    total,
			"showing":  len(markets),
			"markets":  markets,
		})
	})

	return mux
}

func degrade(status string) string {
	if status == "unhealthy" {
		return status
	}
	return "degraded"
}
