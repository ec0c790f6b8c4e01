package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/rickgao/perp-research/internal/model"
)

// Validate checks the sections every binary uses.
func (c *Config) Validate() error {
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}

	if c.Output.Root == "" {
		return errors.New("output.root is required")
	}

	return c.Research.validate("research")
}

// ValidateGatherer additionally checks the database and gatherer sections.
func (c *Config) ValidateGatherer() error {
	if err := c.Validate(); err != nil {
		return err
	}

	if err := c.Database.Timescale.validate("database.timescale"); err != nil {
		return err
	}

	g := c.Gatherer
	if g.HealthPort < 0 || g.HealthPort > 65535 {
		return fmt.Errorf("gatherer.health_port out of range: %d", g.HealthPort)
	}
	if g.Poller.Concurrency < 1 {
		return errors.New("gatherer.poller.concurrency must be >= 1")
	}
	if g.Poller.Interval <= 0 {
		return errors.New("gatherer.poller.interval must be positive")
	}
	if _, err := model.ParseTimeframe(g.Stream.Interval); err != nil {
		return fmt.Errorf("gatherer.stream.interval: %w", err)
	}
	if g.Writers.BatchSize < 1 {
		return errors.New("gatherer.writers.batch_size must be >= 1")
	}
	if g.Writers.BufferSize < 1 {
		return errors.New("gatherer.writers.buffer_size must be >= 1")
	}
	return nil
}

func (r *ResearchConfig) validate(prefix string) error {
	if r.TopN < 1 {
		return fmt.Errorf("%s.top_n must be >= 1", prefix)
	}
	if r.InceptionConcurrency < 1 {
		return fmt.Errorf("%s.inception_concurrency must be >= 1", prefix)
	}
	if r.TTestWindow < 2 {
		return fmt.Errorf("%s.ttest_window must be >= 2, got %d", prefix, r.TTestWindow)
	}
	if r.ConfidenceLevel <= 0 || r.ConfidenceLevel >= 1 {
		return fmt.Errorf("%s.confidence_level must be in (0, 1), got %v", prefix, r.ConfidenceLevel)
	}
	if r.LagMin > r.LagMax {
		return fmt.Errorf("%s.lag_min (%d) cannot exceed lag_max (%d)", prefix, r.LagMin, r.LagMax)
	}
	for _, d := range []struct{ name, v string }{{"start", r.Start}, {"end", r.End}} {
		if d.v == "" {
			continue
		}
		if _, err := time.Parse(model.DateLayout, d.v); err != nil {
			return fmt.Errorf("%s.%s must be YYYY-MM-DD, got %q", prefix, d.name, d.v)
		}
	}
	return nil
}

// StartTime parses research.start, zero when unset.
func (r ResearchConfig) StartTime() time.Time {
	t, _ := time.Parse(model.DateLayout, r.Start)
	return t
}

// EndTime parses research.end, zero when unset.
func (r ResearchConfig) EndTime() time.Time {
	t, _ := time.Parse(model.DateLayout, r.End)
	return t
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
