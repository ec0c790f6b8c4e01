package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	yaml := `
exchanges:
  hyperliquid:
    base_url: https://api.hyperliquid-testnet.xyz
    rate_limit: 500ms
  yahoo:
    enabled: false
database:
  timescale:
    host: localhost
    port: 5432
    name: test_ts
    user: testuser
    password: testpass
research:
  top_n: 3
  chosen_file: picks.csv
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://api.hyperliquid-testnet.xyz", cfg.Exchanges.Hyperliquid.BaseURL)
	assert.Equal(t, 500*time.Millisecond, cfg.Exchanges.Hyperliquid.RateLimit)
	assert.False(t, cfg.Exchanges.Yahoo.IsEnabled())
	assert.True(t, cfg.Exchanges.Dydx.IsEnabled())
	assert.Equal(t, 3, cfg.Research.TopN)
	assert.Equal(t, "localhost", cfg.Database.Timescale.Host)
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := LoadAndValidate("")
	require.NoError(t, err)
	assert.Equal(t, DefaultOutputRoot, cfg.Output.Root)
}

func TestLoadWithEnvSubstitution(t *testing.T) {
	t.Setenv("TEST_DB_PASSWORD", "secret123")

	yaml := `
database:
  timescale:
    host: localhost
    name: test_ts
    user: testuser
    password: ${TEST_DB_PASSWORD}
`
	path := writeTempFile(t, yaml)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "secret123", cfg.Database.Timescale.Password)
}

func TestLoadWithDefaults(t *testing.T) {
	path := writeTempFile(t, "logging:\n  format: json\n")

	cfg, err := LoadWithDefaults(path)
	require.NoError(t, err)

	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, DefaultLogLevel, cfg.Logging.Level)
	assert.Equal(t, DefaultDBPort, cfg.Database.Timescale.Port)
	assert.Equal(t, DefaultTThreshold, cfg.Research.TThreshold)
	assert.Equal(t, DefaultLagMin, cfg.Research.LagMin)
	assert.Equal(t, DefaultLagMax, cfg.Research.LagMax)
	assert.Equal(t, DefaultInceptionTimeout, cfg.Research.InceptionTimeout)
	assert.Len(t, cfg.Gatherer.Stream.Coins, len(DefaultStreamCoins))
}

func TestClientOptions(t *testing.T) {
	retries := 0
	e := ExchangeConfig{RateLimit: time.Second, Timeout: 5 * time.Second, Retries: &retries}
	assert.Len(t, e.ClientOptions(), 3)
	assert.Empty(t, ExchangeConfig{}.ClientOptions())
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		var c Config
		c.applyDefaults()
		c.Database.Timescale = DBConfig{Host: "localhost", Name: "db", User: "user", Password: "pass", MaxConns: 10, MinConns: 2}
		return c
	}

	tests := []struct {
		name     string
		mutate   func(*Config)
		gatherer bool
		wantErr  string
	}{
		{
			name:    "bad log format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: `logging.format must be text or json, got "xml"`,
		},
		{
			name:    "ttest window too small",
			mutate:  func(c *Config) { c.Research.TTestWindow = 1 },
			wantErr: "research.ttest_window must be >= 2, got 1",
		},
		{
			name:    "inverted lags",
			mutate:  func(c *Config) { c.Research.LagMin, c.Research.LagMax = 3, -3 },
			wantErr: "research.lag_min (3) cannot exceed lag_max (-3)",
		},
		{
			name:    "bad start date",
			mutate:  func(c *Config) { c.Research.Start = "2024/01/01" },
			wantErr: `research.start must be YYYY-MM-DD, got "2024/01/01"`,
		},
		{
			name:     "missing timescale password",
			mutate:   func(c *Config) { c.Database.Timescale.Password = "" },
			gatherer: true,
			wantErr:  "database.timescale.password is required",
		},
		{
			name:     "min_conns exceeds max_conns",
			mutate:   func(c *Config) { c.Database.Timescale.MinConns = 20 },
			gatherer: true,
			wantErr:  "database.timescale.min_conns (20) cannot exceed max_conns (10)",
		},
		{
			name:     "bad stream interval",
			mutate:   func(c *Config) { c.Gatherer.Stream.Interval = "7m" },
			gatherer: true,
			wantErr:  `gatherer.stream.interval: unsupported timeframe: "7m"`,
		},
		{
			name:     "valid gatherer config",
			mutate:   func(*Config) {},
			gatherer: true,
		},
		{
			name:   "research ignores database",
			mutate: func(c *Config) { c.Database.Timescale = DBConfig{} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)

			var err error
			if tt.gatherer {
				err = cfg.ValidateGatherer()
			} else {
				err = cfg.Validate()
			}

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.EqualError(t, err, tt.wantErr)
		})
	}
}

func TestResearchDates(t *testing.T) {
	r := ResearchConfig{Start: "2024-03-01"}
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, r.StartTime().Equal(want), "StartTime() = %v, want %v", r.StartTime(), want)
	assert.True(t, r.EndTime().IsZero(), "EndTime() = %v, want zero", r.EndTime())
}

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestStreamFollowAll(t *testing.T) {
	assert.False(t, StreamConfig{Coins: []string{"BTC", "ETH"}}.FollowAll(), "explicit coins")
	assert.True(t, StreamConfig{Coins: []string{"BTC", AllCoins}}.FollowAll(), "wildcard")

	var c Config
	c.applyDefaults()
	assert.Equal(t, DefaultHealthPort, c.Gatherer.HealthPort)
	assert.Equal(t, DefaultReconcileInterval, c.Gatherer.ReconcileInterval)
}
