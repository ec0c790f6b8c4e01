// Package stats runs the daily volume analysis over the joined DeFi/TradFi
// series: rolling-window t-tests, lagged cross-correlation, and per-asset and
// per-type summary tables.
package stats

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rickgao/perp-research/internal/model"
	"github.com/rickgao/perp-research/internal/ohlcv"
	"github.com/rickgao/perp-research/internal/report"
)

// Workbook sheet and column names shared with the comparison writer.
const (
	DailySheet = "daily"

	ColTime         = "time"
	ColDefiVolume   = "defi_notional_volume"
	ColTradFiVolume = "tradfi_notional_volume"
	ColDefiClose    = "defi_close"
	ColTradFiClose  = "tradfi_close"
)

// DailyHeader is the column order of the daily sheet.
var DailyHeader = []string{ColTime, ColDefiVolume, ColTradFiVolume, ColDefiClose, ColTradFiClose}

// AssetSeries is one asset's daily joined series.
type AssetSeries struct {
	Name      string
	AssetType model.AssetType
	Rows      []ohlcv.DailyRow

	Inception time.Time // first row before date filtering
	TotalDays int       // rows before date filtering
}

// Overlap counts rows where both volumes are present.
func (a AssetSeries) Overlap() int {
	n := 0
	for _, r := range a.Rows {
		if valid(r.DefiNotionalVolume) && valid(r.TradFiNotionalVolume) {
			n++
		}
	}
	return n
}

func valid(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// LoadAssets reads every dir/<asset type>/<asset>.xlsx daily sheet. Rows are
// kept when start <= date <= end; zero bounds are open. Unreadable files are
// logged and skipped.
func LoadAssets(dir string, start, end time.Time, logger *slog.Logger) ([]AssetSeries, error) {
	if logger == nil {
		logger = slog.Default()
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}

	var out []AssetSeries
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		typ := model.AssetType(e.Name())
		files, err := filepath.Glob(filepath.Join(dir, e.Name(), "*.xlsx"))
		if err != nil {
			return nil, err
		}
		sort.Strings(files)

		for _, path := range files {
			a, err := loadAsset(path, typ)
			if err != nil {
				logger.Warn("skipping workbook", "path", path, "err", err)
				continue
			}
			a.Rows = filterRange(a.Rows, start, end)
			logger.Info("loaded asset",
				"asset", a.Name,
				"asset_type", typ,
				"inception", report.Date(a.Inception),
				"total", a.TotalDays,
				"filtered", len(a.Rows),
				"overlap", a.Overlap(),
			)
			out = append(out, a)
		}
	}
	return out, nil
}

func loadAsset(path string, typ model.AssetType) (AssetSeries, error) {
	header, rows, err := report.ReadSheet(path, DailySheet)
	if err != nil {
		return AssetSeries{}, err
	}
	a := AssetSeries{
		Name:      strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)),
		AssetType: typ,
	}
	for _, rec := range report.Records(header, rows) {
		t, err := ParseDate(rec[ColTime])
		if err != nil {
			return AssetSeries{}, err
		}
		a.Rows = append(a.Rows, ohlcv.DailyRow{
			Date:                 t,
			DefiNotionalVolume:   report.ParseFloat(rec[ColDefiVolume]),
			TradFiNotionalVolume: report.ParseFloat(rec[ColTradFiVolume]),
			DefiClose:            report.ParseFloat(rec[ColDefiClose]),
			TradFiClose:          report.ParseFloat(rec[ColTradFiClose]),
		})
	}
	sort.Slice(a.Rows, func(i, j int) bool { return a.Rows[i].Date.Before(a.Rows[j].Date) })
	a.TotalDays = len(a.Rows)
	if len(a.Rows) > 0 {
		a.Inception = a.Rows[0].Date
	}
	return a, nil
}

var dateLayouts = []string{model.DateLayout, "2006-01-02 15:04:05", time.RFC3339}

// ParseDate accepts a calendar date, a naive timestamp or RFC 3339.
func ParseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("parse date %q", s)
}

func filterRange(rows []ohlcv.DailyRow, start, end time.Time) []ohlcv.DailyRow {
	if start.IsZero() && end.IsZero() {
		return rows
	}
	out := rows[:0:0]
	for _, r := range rows {
		if !start.IsZero() && r.Date.Before(start) {
			continue
		}
		if !end.IsZero() && r.Date.After(end) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// GroupByType buckets assets by type. Within a type, assets are ordered by
// overlap descending when sortByOverlap is set, otherwise by name.
func GroupByType(assets []AssetSeries, sortByOverlap bool) map[model.AssetType][]AssetSeries {
	out := make(map[model.AssetType][]AssetSeries)
	for _, a := range assets {
		out[a.AssetType] = append(out[a.AssetType], a)
	}
	for _, group := range out {
		sort.SliceStable(group, func(i, j int) bool {
			if sortByOverlap {
				if oi, oj := group[i].Overlap(), group[j].Overlap(); oi != oj {
					return oi > oj
				}
			}
			return group[i].Name < group[j].Name
		})
	}
	return out
}

// Types returns the keys of a grouping in canonical type order, unknown
// types last by name.
func Types(groups map[model.AssetType][]AssetSeries) []model.AssetType {
	types := make([]model.AssetType, 0, len(groups))
	for t := range groups {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool {
		if ri, rj := types[i].Rank(), types[j].Rank(); ri != rj {
			return ri < rj
		}
		return types[i] < types[j]
	})
	return types
}
