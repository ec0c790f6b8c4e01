package stats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/rickgao/perp-research/internal/config"
	"github.com/rickgao/perp-research/internal/report"
)

// Summary counts what a run produced.
type Summary struct {
	Assets            int
	TTests            int
	Skipped           int
	CrossCorrelations int
	PriceCorrelations int
	Types             int
}

// Run loads the comparison workbooks under root/Phase 1B and writes the
// analysis under root/Phase 2B.
func Run(ctx context.Context, root string, cfg config.ResearchConfig, logger *slog.Logger) (Summary, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("phase", report.Phase2B)

	var sum Summary
	assets, err := LoadAssets(filepath.Join(root, report.Phase1B), cfg.StartTime(), cfg.EndTime(), logger)
	if err != nil {
		return sum, err
	}
	sum.Assets = len(assets)
	if len(assets) == 0 {
		return sum, fmt.Errorf("no comparison workbooks under %s", filepath.Join(root, report.Phase1B))
	}

	out, err := report.OutputDir(root, report.Phase2B)
	if err != nil {
		return sum, err
	}
	ttestDir, err := report.OutputDir(root, report.Phase2B, TTestDir)
	if err != nil {
		return sum, err
	}

	groups := GroupByType(assets, true)
	sum.Types = len(groups)
	if err := WriteVolumeStatistics(filepath.Join(out, VolumeStatsFile), groups); err != nil {
		logger.Warn("volume statistics skipped", "err", err)
	}

	var cross []CrossCorrelation
	for _, typ := range Types(groups) {
		for _, a := range groups[typ] {
			if err := ctx.Err(); err != nil {
				return sum, err
			}

			res, err := DailyVolumeTTest(a, cfg.TTestWindow, cfg.ConfidenceLevel)
			switch {
			case errors.Is(err, ErrInsufficientData):
				sum.Skipped++
				logger.Info("t-test skipped", "asset", a.Name, "overlap", a.Overlap())
			case err != nil:
				return sum, err
			default:
				path, err := WriteTTest(ttestDir, res)
				if err != nil {
					return sum, err
				}
				sum.TTests++
				logger.Info("t-test written",
					"asset", a.Name,
					"path", path,
					"t_critical", res.Critical,
					"defi_significant", res.DefiHits,
					"tradfi_significant", res.TradFiHits,
				)
			}

			cc, err := CrossCorrelate(a, cfg.LagMin, cfg.LagMax)
			if err != nil {
				continue
			}
			cross = append(cross, cc)
			logger.Debug("cross-correlation", "asset", a.Name, "peak_lag", cc.Peak.Lag, "peak_corr", cc.Peak.Corr)
		}
	}
	sum.CrossCorrelations = len(cross)
	if err := WriteCrossCorrelations(filepath.Join(out, CrossCorrelationFile), cross); err != nil {
		return sum, err
	}

	prices := PriceCorrelations(assets)
	sum.PriceCorrelations = len(prices)
	if err := WritePriceCorrelations(filepath.Join(out, PriceCorrelationFile), prices); err != nil {
		return sum, err
	}
	if err := WriteTypeSummary(filepath.Join(out, TypeSummaryFile), AssetTypeSummary(assets)); err != nil {
		return sum, err
	}
	return sum, nil
}
