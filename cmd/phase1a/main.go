package main

import (
	"fmt"
	"sort"

	"github.com/rickgao/perp-research/internal/app"
	"github.com/rickgao/perp-research/internal/cache"
	"github.com/rickgao/perp-research/internal/discovery"
	"github.com/rickgao/perp-research/internal/exchange"
	"github.com/rickgao/perp-research/internal/model"
	"github.com/rickgao/perp-research/internal/report"
)

func main() {
	env := app.Boot("phase1a")
	defer env.Close()

	cfg, logger, ctx := env.Config, env.Logger, env.Ctx
	clients := exchange.New(cfg.Exchanges, logger)

	var src discovery.Sources
	if clients.Hyperliquid != nil {
		src.Hyperliquid = clients.Hyperliquid
	}
	if clients.Edgex != nil {
		src.Edgex = clients.Edgex
	}
	if clients.ZkLighter != nil {
		src.ZkLighter = clients.ZkLighter
	}

	var inception discovery.InceptionCache
	c, err := cache.Open(ctx, cfg.Cache.SQLitePath, logger)
	if err != nil {
		logger.Warn("inception cache unavailable, fetching every date", "path", cfg.Cache.SQLitePath, "error", err)
	} else {
		defer c.Close()
		inception = c
	}

	d := discovery.New(src, inception, discovery.Options{
		TopN:                 cfg.Research.TopN,
		InceptionTimeout:     cfg.Research.InceptionTimeout,
		InceptionConcurrency: cfg.Research.InceptionConcurrency,
	}, logger)

	sum, err := d.Run(ctx, cfg.Output.Root)
	if err != nil {
		env.Fail("market discovery failed", err)
	}

	fmt.Println("Phase 1A: market discovery")
	fmt.Printf("  markets:          %s (%s active)\n", report.FormatInt(sum.Markets), report.FormatInt(sum.ActiveMarkets))
	fmt.Printf("  assets:           %s (%s multi-chain, %s single-chain)\n",
		report.FormatInt(sum.Assets), report.FormatInt(sum.Classification.MultiChain), report.FormatInt(sum.Classification.SingleChain))
	for _, t := range model.AssetTypes {
		if n := sum.Classification.ByType[t]; n > 0 {
			fmt.Printf("    %-22s %s\n", t, report.FormatInt(n))
		}
	}
	chains := make([]string, 0, len(sum.Classification.ByChain))
	for ch := range sum.Classification.ByChain {
		chains = append(chains, ch)
	}
	sort.Strings(chains)
	for _, ch := range chains {
		fmt.Printf("    on %-19s %s\n", ch, report.FormatInt(sum.Classification.ByChain[ch]))
	}
	fmt.Printf("  trading markets:  %s\n", report.FormatInt(sum.SnapshotMarkets))
	fmt.Printf("  24h volume:       %s\n", report.FormatUSD(sum.TotalVolume24h))
	fmt.Printf("  top assets:       %s across %s types\n", report.FormatInt(sum.TopAssets), report.FormatInt(sum.AssetTypes))
	fmt.Printf("  inception:        %s lookups, %s API calls, %s cached\n",
		report.FormatInt(int(sum.Inception.Lookups)), report.FormatInt(int(sum.Inception.APICalls)), report.FormatInt(int(sum.Inception.CacheHits())))
	for _, f := range sum.Files {
		fmt.Println("  wrote", f)
	}
}
