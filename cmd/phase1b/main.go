package main

import (
	"errors"
	"flag"
	"fmt"

	"github.com/rickgao/perp-research/internal/app"
	"github.com/rickgao/perp-research/internal/compare"
	"github.com/rickgao/perp-research/internal/exchange"
	"github.com/rickgao/perp-research/internal/model"
	"github.com/rickgao/perp-research/internal/report"
)

func main() {
	chosenPath := flag.String("chosen", "", "chosen-assets CSV (default research.chosen_file)")
	concurrency := flag.Int("concurrency", 4, "assets built in parallel")
	env := app.Boot("phase1b")
	defer env.Close()

	cfg, logger, ctx := env.Config, env.Logger, env.Ctx
	if *chosenPath == "" {
		*chosenPath = cfg.Research.ChosenFile
	}

	rows, err := compare.ReadChosen(*chosenPath)
	if err != nil {
		env.Fail("failed to read chosen assets", err)
	}
	logger.Info("chosen assets loaded", "path", *chosenPath, "rows", len(rows))

	clients := exchange.New(cfg.Exchanges, logger)
	if clients.Hyperliquid == nil {
		env.Fail("hyperliquid is required for comparison", errors.New("exchanges.hyperliquid.enabled is false"))
	}

	opts := []compare.Option{
		compare.WithLogger(logger),
		compare.WithConcurrency(*concurrency),
	}
	if clients.Yahoo != nil {
		opts = append(opts, compare.WithReference(model.ExchangeYahoo, clients.Yahoo))
	}
	if clients.Binance != nil {
		opts = append(opts, compare.WithReference(model.ExchangeBinance, clients.Binance))
	}

	sum, err := compare.New(cfg.Output.Root, clients.Hyperliquid, opts...).Run(ctx, rows)
	if err != nil {
		env.Fail("comparison failed", err)
	}

	fmt.Println("Phase 1B: perp vs reference OHLCV")
	fmt.Printf("  assets:  %s\n", report.FormatInt(sum.Assets))
	fmt.Printf("  written: %s\n", report.FormatInt(sum.Written))
	fmt.Printf("  failed:  %s\n", report.FormatInt(sum.Failed))
	for _, p := range sum.Paths {
		fmt.Println("  wrote", p)
	}
}
