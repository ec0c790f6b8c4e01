package events

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/rickgao/perp-research/internal/report"
	"github.com/rickgao/perp-research/internal/stats"
)

// Output file names under the Phase 3A directory.
const (
	EventsFile  = "significant_events.csv"
	BreadthFile = "dates_breadth_summary.csv"
)

// EventsHeader is the column order of the events file.
var EventsHeader = []string{
	"date", "asset", "full_name", "yf_ticker", "asset_class",
	"defi_volume", "defi_volume_pct_change", "defi_t_score",
	"tradfi_volume", "tradfi_volume_pct_change", "tradfi_t_score",
	"defi_significant", "tradfi_significant", "both_significant",
}

// BreadthHeader is the column order of the breadth file.
var BreadthHeader = []string{
	"date", "num_assets_significant", "assets_list",
	"num_defi_only", "num_tradfi_only", "num_both", "asset_classes_affected",
}

func pyBool(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

// WriteEvents writes events in the given order.
func WriteEvents(path string, events []Event) error {
	rows := make([][]string, len(events))
	for i, e := range events {
		rows[i] = []string{
			report.Date(e.Date), e.Asset, e.FullName, e.YFTicker, e.AssetClass,
			report.Float(e.DefiVolume), report.Float(e.DefiPctChange), report.Float(e.DefiT),
			report.Float(e.TradFiVolume), report.Float(e.TradFiPctChange), report.Float(e.TradFiT),
			pyBool(e.DefiSignificant), pyBool(e.TradFiSignificant), pyBool(e.Both()),
		}
	}
	return report.WriteCSV(path, EventsHeader, rows)
}

// WriteBreadth writes the per-date summary.
func WriteBreadth(path string, breadth []Breadth) error {
	rows := make([][]string, len(breadth))
	for i, b := range breadth {
		rows[i] = []string{
			report.Date(b.Date),
			fmt.Sprint(len(b.Assets)),
			strings.Join(b.Assets, ", "),
			fmt.Sprint(b.DefiOnly),
			fmt.Sprint(b.TradFiOnly),
			fmt.Sprint(b.Both),
			strings.Join(b.AssetClasses, ", "),
		}
	}
	return report.WriteCSV(path, BreadthHeader, rows)
}

// Summary counts what a run produced.
type Summary struct {
	Files   int
	Events  int
	Dates   int
	Both    int
	TopDate *Breadth
}

// Run reads root/Phase 2B t-test files and writes root/Phase 3A.
func Run(root string, meta map[string]Meta, threshold float64, logger *slog.Logger) (Summary, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("phase", report.Phase3A)

	var sum Summary
	dir := filepath.Join(root, report.Phase2B, stats.TTestDir)
	events, files, err := Collect(dir, meta, threshold, logger)
	if err != nil {
		return sum, err
	}
	sum.Files = files
	if files == 0 {
		return sum, fmt.Errorf("no t-test files under %s", dir)
	}

	out, err := report.OutputDir(root, report.Phase3A)
	if err != nil {
		return sum, err
	}
	if err := WriteEvents(filepath.Join(out, EventsFile), events); err != nil {
		return sum, err
	}
	breadth := BreadthSummary(events)
	if err := WriteBreadth(filepath.Join(out, BreadthFile), breadth); err != nil {
		return sum, err
	}

	sum.Events = len(events)
	sum.Dates = len(breadth)
	for _, e := range events {
		if e.Both() {
			sum.Both++
		}
	}
	if len(breadth) > 0 {
		sum.TopDate = &breadth[0]
	}
	return sum, nil
}
