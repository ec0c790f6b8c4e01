package compare

import (
	"fmt"
	"time"

	"github.com/rickgao/perp-research/internal/model"
	"github.com/rickgao/perp-research/internal/ohlcv"
	"github.com/rickgao/perp-research/internal/report"
	"github.com/rickgao/perp-research/internal/stats"
)

const hourLayout = "2006-01-02 15:04:05"

// CandleHeader is the column order of a raw per-venue CSV.
var CandleHeader = []string{"time", "open", "high", "low", "close", "volume", "num_trades"}

// HourlyHeader is the column order of the joined hourly sheet.
var HourlyHeader = []string{
	"time",
	"defi_open", "defi_high", "defi_low", "defi_close", "defi_volume", "defi_num_trades",
	"tradfi_open", "tradfi_high", "tradfi_low", "tradfi_close", "tradfi_volume",
}

func writeCandles(path string, candles []model.Candle) error {
	rows := make([][]string, len(candles))
	for i, c := range candles {
		rows[i] = []string{
			c.OpenTime.UTC().Format(hourLayout),
			report.Float(c.Open),
			report.Float(c.High),
			report.Float(c.Low),
			report.Float(c.Close),
			report.Float(c.Volume),
			fmt.Sprint(c.Trades),
		}
	}
	return report.WriteCSV(path, CandleHeader, rows)
}

func hourlyRows(joined []ohlcv.JoinedRow) [][]any {
	rows := make([][]any, len(joined))
	for i, r := range joined {
		row := make([]any, len(HourlyHeader))
		row[0] = r.Time.Format(hourLayout)
		if r.HasDefi {
			d := r.Defi
			row[1], row[2], row[3], row[4], row[5], row[6] = d.Open, d.High, d.Low, d.Close, d.Volume, d.Trades
		}
		if r.HasTradFi {
			t := r.TradFi
			row[7], row[8], row[9], row[10], row[11] = t.Open, t.High, t.Low, t.Close, t.Volume
		}
		rows[i] = row
	}
	return rows
}

func dailyRows(daily []ohlcv.DailyRow) [][]any {
	rows := make([][]any, len(daily))
	for i, d := range daily {
		rows[i] = []any{report.Date(d.Date), d.DefiNotionalVolume, d.TradFiNotionalVolume, d.DefiClose, d.TradFiClose}
	}
	return rows
}

func writeWorkbook(path string, generated time.Time, sel Selection, exchange, symbol string, joined []ohlcv.JoinedRow, daily []ohlcv.DailyRow) error {
	venues := make([]string, len(sel.Venues))
	for i, v := range sel.Venues {
		venues[i] = v.Coin + "@" + v.Dex
	}
	meta := [][]any{
		{"asset", sel.Asset},
		{"asset_type", string(sel.AssetType)},
		{"perp_venues", fmt.Sprint(venues)},
		{"reference_exchange", exchange},
		{"reference_symbol", symbol},
		{"data_since", report.Date(sel.Since())},
		{"generated_at", generated.UTC().Format(time.RFC3339)},
	}

	wb := report.NewWorkbook()
	if err := wb.AddSheet(HourlySheet, HourlyHeader, hourlyRows(joined)); err != nil {
		return err
	}
	if err := wb.AddSheet(stats.DailySheet, stats.DailyHeader, dailyRows(daily)); err != nil {
		return err
	}
	if err := wb.AddSheet(MetaSheet, []string{"key", "value"}, meta); err != nil {
		return err
	}
	return wb.Save(path)
}
