package discovery

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rickgao/perp-research/internal/classify"
	"github.com/rickgao/perp-research/internal/model"
	"github.com/rickgao/perp-research/internal/report"
)

// Output file names under the Phase 1A directory.
const (
	MarketsFile        = "all_chains_markets.csv"
	ClassificationFile = "asset_classification_multichain.csv"
	SnapshotFile       = "market_snapshot.csv"

	topSheet = "Top Assets by Type"
	allSheet = "All Assets"
)

// TopFile returns the base name of the ranked asset export.
func TopFile(n int, ext string) string {
	return fmt.Sprintf("top%d_assets_by_type.%s", n, ext)
}

var (
	// MarketsHeader is the column order of the market listing.
	MarketsHeader = []string{"chain", "chain_market_id", "name", "base_symbol", "dex", "is_delisted"}
	// SnapshotHeader is the column order of the snapshot table.
	SnapshotHeader = []string{"Name", "Asset Type", "Chain", "Price", "Volume (24h)", "Funding Rate", "Open Interest", "DEXs Trading"}
	// TopHeader is the column order of the ranked asset table.
	TopHeader = []string{
		"asset", "asset_type", "volume_24h", "num_chains", "total_markets",
		"inception_date", "days_available", "hl_dexs", "edgex_contracts", "zkl_markets",
	}
	allHeader = []string{"asset", "asset_type", "volume_24h", "num_chains", "total_markets"}
)

func writeMarkets(path string, rows []MarketRow) error {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = []string{r.Chain, r.ChainMarketID, r.Name, r.BaseSymbol, r.Dex, strconv.FormatBool(r.IsDelisted)}
	}
	return report.WriteCSV(path, MarketsHeader, out)
}

func writeClassification(path string, rows []classify.Row) error {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = r.Record()
	}
	return report.WriteCSV(path, classify.Header, out)
}

func writeSnapshots(path string, rows []SnapshotRow) error {
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = []string{
			r.Name, string(r.AssetType), r.Chain,
			report.Float(r.Price), report.Float(r.Volume24h), report.Float(r.FundingRate),
			report.Float(r.OpenInterest), strconv.Itoa(r.DexsTrading),
		}
	}
	return report.WriteCSV(path, SnapshotHeader, out)
}

func topRecord(a AssetVolume) []any {
	inception, days := "", any(nil)
	if a.InceptionDate != nil {
		inception, days = report.Date(*a.InceptionDate), a.DaysAvailable
	}
	return []any{
		a.Asset, string(a.AssetType), a.Volume24h, a.NumChains(), a.TotalMarkets(),
		inception, days,
		strings.Join(a.HLDexs, ", "), strings.Join(a.EdgexContracts, ", "), strings.Join(a.ZkLMarkets, ", "),
	}
}

func writeTopCSV(path string, top []AssetVolume) error {
	out := make([][]string, len(top))
	for i, a := range top {
		rec := topRecord(a)
		row := make([]string, len(rec))
		for j, v := range rec {
			switch x := v.(type) {
			case nil:
			case string:
				row[j] = x
			case float64:
				row[j] = report.Float(x)
			default:
				row[j] = fmt.Sprint(x)
			}
		}
		out[i] = row
	}
	return report.WriteCSV(path, TopHeader, out)
}

func writeTopWorkbook(path string, top, all []AssetVolume) error {
	wb := report.NewWorkbook()

	rows := make([][]any, len(top))
	for i, a := range top {
		rows[i] = topRecord(a)
	}
	if err := wb.AddSheet(topSheet, TopHeader, rows); err != nil {
		return err
	}

	var types []model.AssetType
	byType := make(map[model.AssetType][][]any)
	for _, a := range top {
		if _, ok := byType[a.AssetType]; !ok {
			types = append(types, a.AssetType)
		}
		byType[a.AssetType] = append(byType[a.AssetType], topRecord(a))
	}
	for _, t := range types {
		if report.SheetName(string(t)) == "" {
			continue
		}
		if err := wb.AddSheet(string(t), TopHeader, byType[t]); err != nil {
			return err
		}
	}

	allRows := make([][]any, len(all))
	for i, a := range all {
		allRows[i] = []any{a.Asset, string(a.AssetType), a.Volume24h, a.NumChains(), a.TotalMarkets()}
	}
	if err := wb.AddSheet(allSheet, allHeader, allRows); err != nil {
		return err
	}
	return wb.Save(path)
}

// Summary is what a run found.
type Summary struct {
	Markets         int
	ActiveMarkets   int
	Assets          int
	Classification  classify.Summary
	SnapshotMarkets int
	TotalVolume24h  float64
	TopAssets       int
	AssetTypes      int
	Inception       InceptionStats
	Files           []string
}

// Run collects, classifies, ranks and exports under root/Phase 1A.
func (d *Discoverer) Run(ctx context.Context, root string) (Summary, error) {
	var sum Summary
	survey, err := d.Collect(ctx)
	if err != nil {
		return sum, err
	}
	markets := MarketRows(survey.Markets)
	if len(markets) == 0 {
		return sum, fmt.Errorf("no markets collected: %w", model.ErrNoData)
	}

	dir, err := report.OutputDir(root, report.Phase1A)
	if err != nil {
		return sum, err
	}

	table := SnapshotTable(survey.Snapshots, survey.Classification)
	all := AssetVolumes(table, survey.Classification)
	top, stats, err := d.Inceptions(ctx, TopByType(all, d.opts.TopN))
	if err != nil {
		return sum, err
	}

	sum.Markets = len(markets)
	for _, m := range markets {
		if !m.IsDelisted {
			sum.ActiveMarkets++
		}
	}
	sum.Assets = len(survey.Classification)
	sum.Classification = classify.Summarize(survey.Classification)
	for _, r := range table {
		sum.SnapshotMarkets += r.DexsTrading
		sum.TotalVolume24h += r.Volume24h
	}
	sum.TopAssets = len(top)
	types := make(map[model.AssetType]struct{})
	for _, a := range top {
		types[a.AssetType] = struct{}{}
	}
	sum.AssetTypes = len(types)
	sum.Inception = stats

	writes := []struct {
		name  string
		write func(string) error
	}{
		{MarketsFile, func(p string) error { return writeMarkets(p, markets) }},
		{ClassificationFile, func(p string) error { return writeClassification(p, survey.Classification) }},
		{SnapshotFile, func(p string) error { return writeSnapshots(p, table) }},
		{TopFile(d.opts.TopN, "xlsx"), func(p string) error { return writeTopWorkbook(p, top, all) }},
		{TopFile(d.opts.TopN, "csv"), func(p string) error { return writeTopCSV(p, top) }},
	}
	for _, w := range writes {
		path := filepath.Join(dir, w.name)
		if err := w.write(path); err != nil {
			return sum, err
		}
		sum.Files = append(sum.Files, path)
		d.logger.Info("exported", "path", path)
	}
	return sum, nil
}
