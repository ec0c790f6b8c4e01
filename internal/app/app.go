// Package app holds the startup sequence shared by the binaries.
package app

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/rickgao/perp-research/internal/config"
	"github.com/rickgao/perp-research/internal/logging"
	"github.com/rickgao/perp-research/internal/version"
)

// DefaultConfigPath is used when -config is not given.
const DefaultConfigPath = "configs/perp-research.yaml"

// Env is what every binary starts with.
type Env struct {
	Config *config.Config
	Logger *slog.Logger
	Ctx    context.Context

	cancel context.CancelFunc
	flush  func()
}

// Close releases the signal handler and flushes the logger.
func (e *Env) Close() {
	e.cancel()
	e.flush()
}

// Fail logs err and exits non-zero.
func (e *Env) Fail(msg string, err error) {
	e.Logger.Error(msg, "error", err)
	e.Close()
	os.Exit(1)
}

// Boot parses flags, loads configuration, builds the logger and returns a
// context cancelled on SIGINT or SIGTERM. Callers register their own flags
// before calling Boot. It exits the process on any startup failure.
func Boot(name string) *Env {
	configPath := flag.String("config", DefaultConfigPath, "path to config file")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(name, version.String())
		os.Exit(0)
	}

	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: failed to load config: %v\n", name, err)
		os.Exit(1)
	}

	logger, flush, err := logging.New(cfg.Logging, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: failed to build logger: %v\n", name, err)
		os.Exit(1)
	}
	logger = logger.With("app", name)
	slog.SetDefault(logger)

	logger.Info("starting",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	return &Env{Config: cfg, Logger: logger, Ctx: ctx, cancel: cancel, flush: flush}
}
