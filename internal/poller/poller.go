package poller

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/perp-research/internal/config"
	"github.com/rickgao/perp-research/internal/model"
)

// SnapshotFunc fetches every market snapshot on a venue.
type SnapshotFunc func(ctx context.Context) ([]model.Snapshot, error)

// FundingFunc fetches the current funding rate of every market on a venue.
type FundingFunc func(ctx context.Context) ([]model.FundingRate, error)

// Venue is one exchange to poll. Either func may be nil.
type Venue struct {
	Name      string
	Snapshots SnapshotFunc
	Funding   FundingFunc
}

// Handler receives the results of a poll.
type Handler interface {
	HandleSnapshots(pollID uuid.UUID, venue string, snapshots []model.Snapshot) error
	HandleFunding(pollID uuid.UUID, venue string, rates []model.FundingRate) error
}

// Config holds poller configuration.
type Config struct {
	Interval    time.Duration // Poll interval (default: 5m)
	Concurrency int           // Max concurrent requests (default: 4)
	Timeout     time.Duration // Per-request timeout (default: 30s)
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Interval:    config.DefaultPollInterval,
		Concurrency: config.DefaultPollConcurrency,
		Timeout:     30 * time.Second,
	}
}

// ConfigFrom converts the gatherer poller settings.
func ConfigFrom(c config.PollerConfig) Config {
	cfg := DefaultConfig()
	if c.Interval > 0 {
		cfg.Interval = c.Interval
	}
	if c.Concurrency > 0 {
		cfg.Concurrency = c.Concurrency
	}
	return cfg
}

// Result summarizes one poll cycle.
type Result struct {
	PollID    uuid.UUID
	Time      time.Time
	Snapshots int64
	Funding   int64
	Errors    int64
	Duration  time.Duration
}

// Poller periodically fetches snapshots and funding from every venue.
type Poller struct {
	cfg     Config
	venues  []Venue
	handler Handler
	logger  *slog.Logger
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.Mutex
	last Result
}

// New creates a new Poller.
func New(cfg Config, venues []Venue, handler Handler, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	return &Poller{
		cfg:     cfg,
		venues:  venues,
		handler: handler,
		logger:  logger,
		now:     time.Now,
	}
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) error {
	p.ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go p.run()

	p.logger.Info("venue poller started",
		"venues", len(p.venues),
		"interval", p.cfg.Interval,
		"concurrency", p.cfg.Concurrency,
	)
	return nil
}

// Stop gracefully shuts down the poller.
func (p *Poller) Stop(ctx context.Context) error {
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("venue poller stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Last returns the most recent cycle summary.
func (p *Poller) Last() Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// run is the main polling loop.
func (p *Poller) run() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	// Poll immediately on start.
	p.PollOnce(p.ctx)

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.PollOnce(p.ctx)
		}
	}
}

// PollOnce runs one cycle across every venue.
func (p *Poller) PollOnce(ctx context.Context) Result {
	res := Result{PollID: uuid.New(), Time: p.now().UTC().Truncate(time.Second)}
	start := time.Now()

	// Semaphore for bounded concurrency.
	sem := make(chan struct{}, p.cfg.Concurrency)
	var wg sync.WaitGroup
	var snapshots, funding, errs atomic.Int64

	task := func(venue, kind string, fn func(context.Context) (int, error)) {
		wg.Add(1)
		go func() {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				return
			}

			tctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
			defer cancel()

			n, err := fn(tctx)
			if err != nil {
				p.logger.Warn("poll failed", "exchange", venue, "kind", kind, "error", err)
				errs.Add(1)
				return
			}
			if kind == "snapshots" {
				snapshots.Add(int64(n))
			} else {
				funding.Add(int64(n))
			}
		}()
	}

	for _, v := range p.venues {
		v := v
		if v.Snapshots != nil {
			task(v.Name, "snapshots", func(ctx context.Context) (int, error) {
				return p.pollSnapshots(ctx, res, v)
			})
		}
		if v.Funding != nil {
			task(v.Name, "funding", func(ctx context.Context) (int, error) {
				return p.pollFunding(ctx, res, v)
			})
		}
	}
	wg.Wait()

	res.Snapshots = snapshots.Load()
	res.Funding = funding.Load()
	res.Errors = errs.Load()
	res.Duration = time.Since(start)

	p.mu.Lock()
	p.last = res
	p.mu.Unlock()

	p.logger.Info("poll cycle complete",
		"poll_id", res.PollID,
		"venues", len(p.venues),
		"snapshots", res.Snapshots,
		"funding", res.Funding,
		"errors", res.Errors,
		"duration", res.Duration,
	)
	return res
}

func (p *Poller) pollSnapshots(ctx context.Context, res Result, v Venue) (int, error) {
	snaps, err := v.Snapshots(ctx)
	if err != nil {
		return 0, err
	}
	for i := range snaps {
		if snaps[i].Time.IsZero() {
			snaps[i].Time = res.Time
		}
		if snaps[i].Exchange == "" {
			snaps[i].Exchange = v.Name
		}
	}
	if p.handler != nil {
		if err := p.handler.HandleSnapshots(res.PollID, v.Name, snaps); err != nil {
			return 0, err
		}
	}
	return len(snaps), nil
}

func (p *Poller) pollFunding(ctx context.Context, res Result, v Venue) (int, error) {
	rates, err := v.Funding(ctx)
	if err != nil {
		return 0, err
	}
	for i := range rates {
		if rates[i].Time.IsZero() {
			rates[i].Time = res.Time
		}
		if rates[i].Exchange == "" {
			rates[i].Exchange = v.Name
		}
	}
	if p.handler != nil {
		if err := p.handler.HandleFunding(res.PollID, v.Name, rates); err != nil {
			return 0, err
		}
	}
	return len(rates), nil
}
