package stats

import (
	"fmt"
	"path/filepath"

	"github.com/rickgao/perp-research/internal/classify"
	"github.com/rickgao/perp-research/internal/model"
	"github.com/rickgao/perp-research/internal/report"
)

// Output file names under the Phase 2B directory.
const (
	TTestDir             = "Daily Volume Analysis"
	TTestSuffix          = "_daily_volume_ttest.csv"
	VolumeStatsFile      = "volume_statistics.xlsx"
	CrossCorrelationFile = "cross_correlation.csv"
	PriceCorrelationFile = "price_correlation.csv"
	TypeSummaryFile      = "asset_type_summary.csv"
)

// TTestHeader is the column order of a t-test file.
var TTestHeader = []string{
	"date", "defi_volume", "tradfi_volume",
	"defi_t_score", "defi_rolling_mean", "defi_rolling_std", "defi_window_indices",
	"tradfi_t_score", "tradfi_rolling_mean", "tradfi_rolling_std", "tradfi_window_indices",
}

// TTestPath returns dir/<asset>_daily_volume_ttest.csv.
func TTestPath(dir, asset string) string {
	return filepath.Join(dir, asset+TTestSuffix)
}

// WriteTTest writes one asset's rolling t-test.
func WriteTTest(dir string, res TTestResult) (string, error) {
	rows := make([][]string, len(res.Rows))
	for i, r := range res.Rows {
		rows[i] = []string{
			report.Date(r.Date),
			report.Float(r.DefiVolume),
			report.Float(r.TradFiVolume),
			report.Float(r.Defi.T),
			report.Float(r.Defi.Mean),
			report.Float(r.Defi.Std),
			r.Defi.WindowString(),
			report.Float(r.TradFi.T),
			report.Float(r.TradFi.Mean),
			report.Float(r.TradFi.Std),
			r.TradFi.WindowString(),
		}
	}
	path := TTestPath(dir, res.Asset)
	return path, report.WriteCSV(path, TTestHeader, rows)
}

// VolumeStatsHeader names the volume table columns with the type's side
// labels.
func VolumeStatsHeader(t model.AssetType) []string {
	l := classify.Labels(t)
	return []string{
		"Asset",
		l.Onchain + " Avg ($/day)",
		l.Offchain + " Avg ($/day)",
		fmt.Sprintf("Ratio (%s/%s)", l.Offchain, l.Onchain),
		"Days",
	}
}

// WriteVolumeStatistics writes one sheet per asset type.
func WriteVolumeStatistics(path string, groups map[model.AssetType][]AssetSeries) error {
	wb := report.NewWorkbook()
	for _, typ := range Types(groups) {
		stats := VolumeStatistics(groups[typ])
		if len(stats) == 0 {
			continue
		}
		rows := make([][]any, len(stats))
		for i, s := range stats {
			rows[i] = []any{
				s.Asset,
				report.FormatUSD(s.DefiMean),
				report.FormatUSD(s.TradFiMean),
				fmt.Sprintf("%.1fx", s.Ratio()),
				s.Days,
			}
		}
		if err := wb.AddSheet(string(typ), VolumeStatsHeader(typ), rows); err != nil {
			return err
		}
	}
	if len(wb.Sheets()) == 0 {
		return fmt.Errorf("write %s: %w", path, model.ErrNoData)
	}
	return wb.Save(path)
}

// WriteCrossCorrelations writes every scanned lag with the peak flagged.
func WriteCrossCorrelations(path string, results []CrossCorrelation) error {
	header := []string{"asset", "asset_type", "lag", "correlation", "n_pairs", "is_peak"}
	var rows [][]string
	for _, r := range results {
		for _, lc := range r.Lags {
			rows = append(rows, []string{
				r.Asset,
				string(r.AssetType),
				fmt.Sprint(lc.Lag),
				report.Float(lc.Corr),
				fmt.Sprint(lc.Pairs),
				fmt.Sprint(lc.Lag == r.Peak.Lag && valid(r.Peak.Corr)),
			})
		}
	}
	return report.WriteCSV(path, header, rows)
}

// WritePriceCorrelations writes the formatted price agreement table.
func WritePriceCorrelations(path string, results []PriceCorrelation) error {
	header := []string{"Asset", "Asset Type", "Price Correlation", "Tracking Error ($)", "Avg Price Diff (%)", "Days Analyzed"}
	rows := make([][]string, len(results))
	for i, r := range results {
		rows[i] = []string{
			r.Asset,
			string(r.AssetType),
			fmt.Sprintf("%.4f", r.Corr),
			report.FormatUSD(r.TrackingError),
			fmt.Sprintf("%+.2f%%", r.AvgDiffPercent),
			fmt.Sprint(r.Days),
		}
	}
	return report.WriteCSV(path, header, rows)
}

// WriteTypeSummary writes the per-type aggregate table.
func WriteTypeSummary(path string, results []TypeSummary) error {
	header := []string{
		"Asset Type", "Number of Assets", "Avg Price Correlation",
		"Total DeFi Volume ($/day)", "Total TradFi Volume ($/day)", "Avg Days Analyzed",
	}
	rows := make([][]string, len(results))
	for i, r := range results {
		corr := "N/A"
		if valid(r.AvgPriceCorr) {
			corr = fmt.Sprintf("%.3f", r.AvgPriceCorr)
		}
		rows[i] = []string{
			string(r.AssetType),
			fmt.Sprint(r.Assets),
			corr,
			report.FormatUSD(r.TotalDefiVolume),
			report.FormatUSD(r.TotalTradFiVol),
			fmt.Sprintf("%.0f", r.AvgDays),
		}
	}
	return report.WriteCSV(path, header, rows)
}
