// Package events extracts the days on which an asset's DeFi or TradFi volume
// broke out of its recent range, and summarizes how many assets moved
// together on each date.
package events

import (
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rickgao/perp-research/internal/compare"
	"github.com/rickgao/perp-research/internal/report"
	"github.com/rickgao/perp-research/internal/stats"
)

// DefaultThreshold is the two-tailed 95% critical t for a 3-day window.
const DefaultThreshold = 4.303

const unknown = "Unknown"

var fullNames = map[string]string{
	"BTC":         "Bitcoin",
	"ETH":         "Ethereum",
	"SOL":         "Solana",
	"LINK":        "Chainlink",
	"ADA":         "Cardano",
	"NVDA":        "Nvidia",
	"TSLA":        "Tesla",
	"AAPL":        "Apple",
	"MSFT":        "Microsoft",
	"GOOGL":       "Alphabet (Google)",
	"META":        "Meta Platforms",
	"AMZN":        "Amazon",
	"COIN":        "Coinbase",
	"GOLD":        "Gold",
	"SILVER":      "Silver",
	"OIL":         "Crude Oil",
	"NATGAS":      "Natural Gas",
	"Gold":        "Gold",
	"Silver":      "Silver",
	"Oil":         "Crude Oil",
	"Natural Gas": "Natural Gas",
}

// FullName returns the display name of an asset, or the asset itself.
func FullName(asset string) string {
	if n, ok := fullNames[asset]; ok {
		return n
	}
	return asset
}

// Meta describes an asset in the event tables.
type Meta struct {
	FullName   string
	YFTicker   string
	AssetClass string
}

// MetaFromChosen indexes the first yf_ticker and type of every chosen asset.
func MetaFromChosen(rows []compare.Chosen) map[string]Meta {
	out := make(map[string]Meta)
	for _, r := range rows {
		if _, ok := out[r.Asset]; ok {
			continue
		}
		m := Meta{FullName: FullName(r.Asset), YFTicker: r.YFTicker, AssetClass: string(r.AssetType)}
		if m.YFTicker == "" {
			m.YFTicker = "N/A"
		}
		if m.AssetClass == "" {
			m.AssetClass = unknown
		}
		out[r.Asset] = m
	}
	return out
}

func lookupMeta(meta map[string]Meta, asset string) Meta {
	if m, ok := meta[asset]; ok {
		return m
	}
	return Meta{FullName: FullName(asset), YFTicker: "N/A", AssetClass: unknown}
}

// Event is one day on which at least one side of an asset was significant.
type Event struct {
	Date  time.Time
	Asset string
	Meta

	DefiVolume        float64
	DefiPctChange     float64
	DefiT             float64
	TradFiVolume      float64
	TradFiPctChange   float64
	TradFiT           float64
	DefiSignificant   bool
	TradFiSignificant bool
}

// Both reports whether both sides were significant.
func (e Event) Both() bool {
	return e.DefiSignificant && e.TradFiSignificant
}

// TTestDay is one row of a t-test file as read back.
type TTestDay struct {
	Date         time.Time
	DefiVolume   float64
	TradFiVolume float64
	DefiT        float64
	TradFiT      float64
	DefiWindow   string
}

// ReadTTest reads one t-test file.
func ReadTTest(path string) ([]TTestDay, error) {
	_, records, err := report.ReadCSV(path)
	if err != nil {
		return nil, err
	}
	out := make([]TTestDay, 0, len(records))
	for _, rec := range records {
		d, err := stats.ParseDate(rec["date"])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		out = append(out, TTestDay{
			Date:         d,
			DefiVolume:   report.ParseFloat(rec["defi_volume"]),
			TradFiVolume: report.ParseFloat(rec["tradfi_volume"]),
			DefiT:        report.ParseFloat(rec["defi_t_score"]),
			TradFiT:      report.ParseFloat(rec["tradfi_t_score"]),
			DefiWindow:   rec["defi_window_indices"],
		})
	}
	return out, nil
}

// ProcessAsset turns one asset's t-test days into events. Days without a
// DeFi window are dropped before percent changes are taken; the TradFi change
// is taken across days with TradFi volume only.
func ProcessAsset(asset string, days []TTestDay, meta Meta, threshold float64) []Event {
	kept := days[:0:0]
	for _, d := range days {
		if d.DefiWindow == stats.InsufficientData {
			continue
		}
		kept = append(kept, d)
	}

	defiPct := make([]float64, len(kept))
	tradPct := make([]float64, len(kept))
	prevTrad := math.NaN()
	for i, d := range kept {
		defiPct[i] = math.NaN()
		if i > 0 {
			defiPct[i] = pctChange(kept[i-1].DefiVolume, d.DefiVolume)
		}
		tradPct[i] = math.NaN()
		if !math.IsNaN(d.TradFiVolume) {
			tradPct[i] = pctChange(prevTrad, d.TradFiVolume)
			prevTrad = d.TradFiVolume
		}
	}

	var out []Event
	for i, d := range kept {
		e := Event{
			Date:              d.Date,
			Asset:             asset,
			Meta:              meta,
			DefiVolume:        d.DefiVolume,
			DefiPctChange:     defiPct[i],
			DefiT:             d.DefiT,
			TradFiVolume:      d.TradFiVolume,
			TradFiPctChange:   tradPct[i],
			TradFiT:           d.TradFiT,
			DefiSignificant:   significant(d.DefiT, threshold),
			TradFiSignificant: significant(d.TradFiT, threshold),
		}
		if e.DefiSignificant || e.TradFiSignificant {
			out = append(out, e)
		}
	}
	return out
}

func significant(t, threshold float64) bool {
	return !math.IsNaN(t) && math.Abs(t) >= threshold
}

// pctChange is (cur-prev)/prev in percent; NaN without a previous value.
func pctChange(prev, cur float64) float64 {
	if math.IsNaN(prev) || math.IsNaN(cur) {
		return math.NaN()
	}
	if prev == 0 {
		if cur == 0 {
			return math.NaN()
		}
		return math.Inf(sign(cur))
	}
	return (cur - prev) / prev * 100
}

func sign(v float64) int {
	if v < 0 {
		return -1
	}
	return 1
}

// Breadth counts the significant assets of one date.
type Breadth struct {
	Date         time.Time
	Assets       []string
	DefiOnly     int
	TradFiOnly   int
	Both         int
	AssetClasses []string
}

// BreadthSummary groups events by date, most assets first and later dates
// first among ties.
func BreadthSummary(events []Event) []Breadth {
	byDate := make(map[time.Time]*Breadth)
	assets := make(map[time.Time]map[string]struct{})
	classes := make(map[time.Time]map[string]struct{})

	for _, e := range events {
		b, ok := byDate[e.Date]
		if !ok {
			b = &Breadth{Date: e.Date}
			byDate[e.Date] = b
			assets[e.Date] = make(map[string]struct{})
			classes[e.Date] = make(map[string]struct{})
		}
		assets[e.Date][e.Asset] = struct{}{}
		classes[e.Date][e.AssetClass] = struct{}{}
		switch {
		case e.Both():
			b.Both++
		case e.DefiSignificant:
			b.DefiOnly++
		default:
			b.TradFiOnly++
		}
	}

	out := make([]Breadth, 0, len(byDate))
	for d, b := range byDate {
		b.Assets = sortedKeys(assets[d])
		b.AssetClasses = sortedKeys(classes[d])
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i].Assets) != len(out[j].Assets) {
			return len(out[i].Assets) > len(out[j].Assets)
		}
		return out[i].Date.After(out[j].Date)
	})
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// AssetFromPath returns the asset of a t-test file name.
func AssetFromPath(path string) string {
	return strings.TrimSuffix(filepath.Base(path), stats.TTestSuffix)
}

// Collect reads every t-test file in dir and returns the events sorted by
// date then asset. Unreadable files are logged and skipped.
func Collect(dir string, meta map[string]Meta, threshold float64, logger *slog.Logger) ([]Event, int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	files, err := filepath.Glob(filepath.Join(dir, "*"+stats.TTestSuffix))
	if err != nil {
		return nil, 0, err
	}
	sort.Strings(files)

	var out []Event
	for _, path := range files {
		asset := AssetFromPath(path)
		days, err := ReadTTest(path)
		if err != nil {
			logger.Warn("skipping t-test file", "path", path, "err", err)
			continue
		}
		evts := ProcessAsset(asset, days, lookupMeta(meta, asset), threshold)
		logger.Info("asset processed", "asset", asset, "days", len(days), "events", len(evts))
		out = append(out, evts...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Asset < out[j].Asset
	})
	return out, len(files), nil
}
