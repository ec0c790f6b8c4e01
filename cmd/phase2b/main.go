package main

import (
	"fmt"

	"github.com/rickgao/perp-research/internal/app"
	"github.com/rickgao/perp-research/internal/report"
	"github.com/rickgao/perp-research/internal/stats"
)

func main() {
	env := app.Boot("phase2b")
	defer env.Close()

	cfg := env.Config
	sum, err := stats.Run(env.Ctx, cfg.Output.Root, cfg.Research, env.Logger)
	if err != nil {
		env.Fail("volume analysis failed", err)
	}

	fmt.Println("Phase 2B: volume analysis")
	fmt.Printf("  assets:              %s across %s types\n", report.FormatInt(sum.Assets), report.FormatInt(sum.Types))
	fmt.Printf("  t-test files:        %s (%s skipped)\n", report.FormatInt(sum.TTests), report.FormatInt(sum.Skipped))
	fmt.Printf("  cross-correlations:  %s\n", report.FormatInt(sum.CrossCorrelations))
	fmt.Printf("  price correlations:  %s\n", report.FormatInt(sum.PriceCorrelations))
	fmt.Printf("  window %d days, confidence %.2f\n", cfg.Research.TTestWindow, cfg.Research.ConfidenceLevel)
}
