package main

import (
	"flag"
	"fmt"
	"strings"

	"github.com/rickgao/perp-research/internal/app"
	"github.com/rickgao/perp-research/internal/compare"
	"github.com/rickgao/perp-research/internal/events"
	"github.com/rickgao/perp-research/internal/report"
)

func main() {
	chosenPath := flag.String("chosen", "", "chosen-assets CSV for asset metadata (default research.chosen_file)")
	env := app.Boot("phase3a")
	defer env.Close()

	cfg, logger := env.Config, env.Logger
	if *chosenPath == "" {
		*chosenPath = cfg.Research.ChosenFile
	}

	// Metadata only labels the output; run without it if the file is missing.
	var meta map[string]events.Meta
	if rows, err := compare.ReadChosen(*chosenPath); err != nil {
		logger.Warn("chosen assets unavailable, asset metadata left unknown", "path", *chosenPath, "error", err)
	} else {
		meta = events.MetaFromChosen(rows)
	}

	sum, err := events.Run(cfg.Output.Root, meta, cfg.Research.TThreshold, logger)
	if err != nil {
		env.Fail("event detection failed", err)
	}

	fmt.Println("Phase 3A: volume events")
	fmt.Printf("  t-test files:  %s\n", report.FormatInt(sum.Files))
	fmt.Printf("  events:        %s (%s on both venues)\n", report.FormatInt(sum.Events), report.FormatInt(sum.Both))
	fmt.Printf("  event dates:   %s\n", report.FormatInt(sum.Dates))
	fmt.Printf("  threshold:     |t| >= %.3f\n", cfg.Research.TThreshold)
	if b := sum.TopDate; b != nil {
		fmt.Printf("  busiest date:  %s with %s assets (%s)\n",
			report.Date(b.Date), report.FormatInt(len(b.Assets)), strings.Join(b.Assets, ", "))
	}
}
