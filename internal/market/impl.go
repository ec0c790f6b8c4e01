package market

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/rickgao/perp-research/internal/model"
)

// ErrNoSources is returned when every venue failed the initial sync.
var ErrNoSources = errors.New("no market source answered")

// Config holds Market Registry configuration.
type Config struct {
	ReconcileInterval time.Duration
	SyncTimeout       time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		ReconcileInterval: 15 * time.Minute,
		SyncTimeout:       time.Minute,
	}
}

// registryImpl implements the Registry interface.
type registryImpl struct {
	cfg     Config
	sources []Source
	logger  *slog.Logger
	now     func() time.Time

	state *registryState

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewRegistry creates a registry over the given venues.
func NewRegistry(cfg Config, sources []Source, logger *slog.Logger) Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = DefaultConfig().ReconcileInterval
	}
	if cfg.SyncTimeout <= 0 {
		cfg.SyncTimeout = DefaultConfig().SyncTimeout
	}

	return &registryImpl{
		cfg:     cfg,
		sources: sources,
		logger:  logger,
		now:     time.Now,
		state:   newState(),
	}
}

// Start performs the initial sync, then reconciles in the background.
func (r *registryImpl) Start(ctx context.Context) error {
	r.ctx, r.cancel = context.WithCancel(ctx)

	// The initial load is the baseline, not a stream of listings.
	if synced := r.sync(r.ctx, false); synced == 0 && len(r.sources) > 0 {
		r.cancel()
		return ErrNoSources
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.reconciliationLoop(r.ctx)
	}()

	r.logger.Info("market registry started", "venues", len(r.sources))
	return nil
}

// Stop gracefully shuts down.
func (r *registryImpl) Stop(ctx context.Context) error {
	if r.cancel != nil {
		r.cancel()
	}

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.logger.Info("market registry stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ActiveMarkets returns the tradable markets on one venue.
func (r *registryImpl) ActiveMarkets(exchange string) []model.Market {
	return r.state.activeMarkets(exchange)
}

// Market returns a market by venue and id.
func (r *registryImpl) Market(exchange, marketID string) (model.Market, bool) {
	return r.state.get(exchange, marketID)
}

// Changes returns the change channel.
func (r *registryImpl) Changes() <-chan MarketChange {
	return r.state.changes
}

func (r *registryImpl) reconciliationLoop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sync(ctx, true)
		}
	}
}

// sync refreshes every venue and returns how many answered. Changes are
// published only when notify is set.
func (r *registryImpl) sync(ctx context.Context, notify bool) int {
	var synced int
	for _, src := range r.sources {
		if err := r.syncSource(ctx, src, notify); err != nil {
			r.logger.Warn("market sync failed", "exchange", src.Name(), "error", err)
			continue
		}
		synced++
	}
	return synced
}

func (r *registryImpl) syncSource(ctx context.Context, src Source, notify bool) error {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.SyncTimeout)
	defer cancel()

	start := time.Now()
	markets, err := src.Markets(ctx)
	if err != nil {
		return fmt.Errorf("fetch markets: %w", err)
	}

	changes := r.state.apply(src.Name(), markets, r.now())
	if notify {
		for _, c := range changes {
			r.state.notifyChange(c)
		}
	}

	if notify && len(changes) > 0 {
		r.logger.Info("reconciliation found changes",
			"exchange", src.Name(),
			"changes", len(changes),
			"duration", time.Since(start),
		)
	} else {
		r.logger.Debug("market sync complete",
			"exchange", src.Name(),
			"markets", len(markets),
			"duration", time.Since(start),
		)
	}
	return nil
}
