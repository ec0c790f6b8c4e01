package config

import (
	"time"

	"github.com/rickgao/perp-research/internal/api"
)

// Config is the root configuration shared by the gatherer and the research
// pipelines.
type Config struct {
	Exchanges ExchangesConfig `yaml:"exchanges"`
	Database  DatabaseConfig  `yaml:"database"`
	Cache     CacheConfig     `yaml:"cache"`
	Output    OutputConfig    `yaml:"output"`
	Logging   LoggingConfig   `yaml:"logging"`
	Gatherer  GathererConfig  `yaml:"gatherer"`
	Research  ResearchConfig  `yaml:"research"`
}

// ExchangesConfig holds one entry per venue.
type ExchangesConfig struct {
	Hyperliquid ExchangeConfig `yaml:"hyperliquid"`
	Dydx        ExchangeConfig `yaml:"dydx"`
	Edgex       ExchangeConfig `yaml:"edgex"`
	ZkLighter   ExchangeConfig `yaml:"zklighter"`
	Yahoo       ExchangeConfig `yaml:"yahoo"`
	Binance     ExchangeConfig `yaml:"binance"`
}

// ExchangeConfig holds REST settings for one venue. Zero values keep the
// venue package defaults.
type ExchangeConfig struct {
	BaseURL   string        `yaml:"base_url"`
	RateLimit time.Duration `yaml:"rate_limit"`
	Timeout   time.Duration `yaml:"timeout"`
	Retries   *int          `yaml:"retries"`
	Enabled   *bool         `yaml:"enabled"`
}

// IsEnabled reports whether the venue is enabled. Venues are on unless set
// to false.
func (e ExchangeConfig) IsEnabled() bool {
	return e.Enabled == nil || *e.Enabled
}

// ClientOptions converts the settings into REST client options.
func (e ExchangeConfig) ClientOptions() []api.ClientOption {
	var opts []api.ClientOption
	if e.RateLimit > 0 {
		opts = append(opts, api.WithRateLimit(e.RateLimit))
	}
	if e.Timeout > 0 {
		opts = append(opts, api.WithTimeout(e.Timeout))
	}
	if e.Retries != nil {
		opts = append(opts, api.WithRetries(*e.Retries, DefaultRetryBackoff))
	}
	return opts
}

// DatabaseConfig holds the TimescaleDB connection for time-series data.
type DatabaseConfig struct {
	Timescale DBConfig `yaml:"timescale"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// CacheConfig locates the inception-date cache.
type CacheConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
}

// OutputConfig locates research exports.
type OutputConfig struct {
	Root string `yaml:"root"`
}

// LoggingConfig selects the log level and handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// GathererConfig holds live gatherer settings.
type GathererConfig struct {
	HealthPort        int           `yaml:"health_port"`
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
	Poller            PollerConfig  `yaml:"poller"`
	Stream            StreamConfig  `yaml:"stream"`
	Writers           WritersConfig `yaml:"writers"`
}

// PollerConfig holds snapshot and funding poller settings.
type PollerConfig struct {
	Interval    time.Duration `yaml:"interval"`
	Concurrency int           `yaml:"concurrency"`
}

// StreamConfig holds the Hyperliquid candle stream settings. A coin of "*"
// streams every active native-DEX perp and follows new listings.
type StreamConfig struct {
	WSURL              string        `yaml:"ws_url"`
	Coins              []string      `yaml:"coins"`
	Interval           string        `yaml:"interval"`
	PingInterval       time.Duration `yaml:"ping_interval"`
	ReadTimeout        time.Duration `yaml:"read_timeout"`
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
}

// AllCoins in stream.coins follows every listed market.
const AllCoins = "*"

// FollowAll reports whether the stream follows every listed market.
func (s StreamConfig) FollowAll() bool {
	for _, c := range s.Coins {
		if c == AllCoins {
			return true
		}
	}
	return false
}

// WritersConfig holds batch writer settings.
type WritersConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// ResearchConfig holds the research pipeline parameters.
type ResearchConfig struct {
	TopN                 int           `yaml:"top_n"`
	InceptionTimeout     time.Duration `yaml:"inception_timeout"`
	InceptionConcurrency int           `yaml:"inception_concurrency"`
	TTestWindow          int           `yaml:"ttest_window"`
	ConfidenceLevel      float64       `yaml:"confidence_level"`
	TThreshold           float64       `yaml:"t_threshold"`
	LagMin               int           `yaml:"lag_min"`
	LagMax               int           `yaml:"lag_max"`
	ChosenFile           string        `yaml:"chosen_file"`
	Start                string        `yaml:"start"` // YYYY-MM-DD, empty for open
	End                  string        `yaml:"end"`
}
