package compare

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/perp-research/internal/model"
	"github.com/rickgao/perp-research/internal/ohlcv"
	"github.com/rickgao/perp-research/internal/report"
)

// Interval is the bar size of the comparison series.
const Interval = model.H1

// Sheet names of a comparison workbook; the daily sheet is stats.DailySheet.
const (
	HourlySheet = "ohlcv_1h"
	MetaSheet   = "meta"

	// CandleDir holds the raw per-venue hourly CSVs under Phase 1B.
	CandleDir = "ohlcv_1h"
)

// PerpSource serves perp bars by coin and DEX.
type PerpSource interface {
	FetchOHLCV(ctx context.Context, coin, dex string, tf model.Timeframe, start, end time.Time) ([]model.Candle, error)
}

// ReferenceSource serves off-chain bars by symbol.
type ReferenceSource interface {
	FetchOHLCV(ctx context.Context, symbol string, tf model.Timeframe, start, end time.Time) ([]model.Candle, error)
}

// Comparer builds comparison workbooks.
type Comparer struct {
	perps       PerpSource
	refs        map[string]ReferenceSource // by exchange
	root        string
	concurrency int
	logger      *slog.Logger
	now         func() time.Time
}

// Option configures a Comparer.
type Option func(*Comparer)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Comparer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithConcurrency bounds how many assets are built at once.
func WithConcurrency(n int) Option {
	return func(c *Comparer) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithReference registers the off-chain source for an exchange
// (model.ExchangeYahoo or model.ExchangeBinance).
func WithReference(exchange string, src ReferenceSource) Option {
	return func(c *Comparer) {
		if src != nil {
			c.refs[exchange] = src
		}
	}
}

// New creates a Comparer writing under root/Phase 1B.
func New(root string, perps PerpSource, opts ...Option) *Comparer {
	c := &Comparer{
		perps:       perps,
		refs:        make(map[string]ReferenceSource),
		root:        root,
		concurrency: 1,
		logger:      slog.Default(),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("phase", report.Phase1B)
	return c
}

// Summary counts the outcome of a run.
type Summary struct {
	Assets  int
	Written int
	Failed  int
	Paths   []string
}

// Run builds one workbook per asset. A failed asset is logged and counted.
func (c *Comparer) Run(ctx context.Context, rows []Chosen) (Summary, error) {
	selections := Group(rows)
	sum := Summary{Assets: len(selections)}
	paths := make([]string, len(selections))

	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)
	for i, sel := range selections {
		i, sel := i, sel
		g.Go(func() error {
			path, err := c.Build(gctx, sel)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				failed.Add(1)
				c.logger.Error("comparison failed", "asset", sel.Asset, "err", err)
				return nil
			}
			paths[i] = path
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return sum, err
	}

	for _, p := range paths {
		if p != "" {
			sum.Paths = append(sum.Paths, p)
		}
	}
	sum.Written = len(sum.Paths)
	sum.Failed = int(failed.Load())
	return sum, nil
}

// Build fetches, joins and writes one asset's workbook and returns its path.
func (c *Comparer) Build(ctx context.Context, sel Selection) (string, error) {
	end := c.now().UTC()
	logger := c.logger.With("asset", sel.Asset)

	candleDir, err := report.OutputDir(c.root, report.Phase1B, CandleDir)
	if err != nil {
		return "", err
	}

	var venues [][]model.Candle
	for _, v := range sel.Venues {
		candles, err := c.perps.FetchOHLCV(ctx, v.Coin, v.Dex, Interval, v.DataSince, end)
		if err != nil {
			logger.Warn("perp fetch failed", "coin", v.Coin, "dex", v.Dex, "err", err)
			continue
		}
		if err := writeCandles(filepath.Join(candleDir, fileStem(v.Coin+"_"+v.Dex)+".csv"), candles); err != nil {
			return "", err
		}
		logger.Info("perp bars fetched", "coin", v.Coin, "dex", v.Dex, "bars", len(candles))
		venues = append(venues, candles)
	}
	if len(venues) == 0 {
		return "", fmt.Errorf("%s: no perp data: %w", sel.Asset, model.ErrNoData)
	}
	defi := ohlcv.AggregateAcrossVenues(venues...)

	var tradfi []model.Candle
	exchange, symbol := sel.ReferenceSymbol()
	if src, ok := c.refs[exchange]; ok && symbol != "" {
		tradfi, err = src.FetchOHLCV(ctx, symbol, Interval, sel.Since(), end)
		if err != nil {
			logger.Warn("reference fetch failed", "exchange", exchange, "symbol", symbol, "err", err)
			tradfi = nil
		} else if err := writeCandles(filepath.Join(candleDir, fileStem(symbol)+".csv"), tradfi); err != nil {
			return "", err
		}
	}

	joined := ohlcv.Join(defi, tradfi)
	daily := ohlcv.ResampleDaily(joined)

	dir, err := report.OutputDir(c.root, report.Phase1B, string(sel.AssetType))
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, fileStem(sel.Asset)+".xlsx")
	if err := writeWorkbook(path, end, sel, exchange, symbol, joined, daily); err != nil {
		return "", err
	}
	logger.Info("comparison written",
		"path", path,
		"defi_bars", len(defi),
		"tradfi_bars", len(tradfi),
		"days", len(daily),
	)
	return path, nil
}

// fileStem makes s safe as a file name.
func fileStem(s string) string {
	return strings.NewReplacer("/", "_", ":", "_", "\\", "_", "^", "", "=", "_").Replace(s)
}
