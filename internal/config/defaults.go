package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultRetryBackoff         = 2 * time.Second
	DefaultDBPort               = 5432
	DefaultDBSSLMode            = "prefer"
	DefaultMaxConns             = 10
	DefaultMinConns             = 2
	DefaultSQLitePath           = "data/inception_cache.db"
	DefaultOutputRoot           = "output"
	DefaultLogLevel             = "info"
	DefaultLogFormat            = "text"
	DefaultPollInterval         = 5 * time.Minute
	DefaultPollConcurrency      = 4
	DefaultStreamURL            = "wss://api.hyperliquid.xyz/ws"
	DefaultStreamInterval       = "1m"
	DefaultPingInterval         = 30 * time.Second
	DefaultReadTimeout          = 90 * time.Second
	DefaultReconnectBaseDelay   = 1 * time.Second
	DefaultReconnectMaxDelay    = 60 * time.Second
	DefaultBatchSize            = 1000
	DefaultFlushInterval        = 1 * time.Second
	DefaultBufferSize           = 10000
	DefaultTopN                 = 5
	DefaultInceptionTimeout     = 2 * time.Second
	DefaultInceptionConcurrency = 8
	DefaultTTestWindow          = 3
	DefaultConfidenceLevel      = 0.95
	DefaultTThreshold           = 4.303
	DefaultLagMin               = -7
	DefaultLagMax               = 7
	DefaultChosenFile           = "chosen_assets.csv"
	DefaultHealthPort           = 8080
	DefaultReconcileInterval    = 15 * time.Minute
)

// DefaultStreamCoins is streamed when no coins are configured.
var DefaultStreamCoins = []string{"BTC", "ETH"}

func (c *Config) applyDefaults() {
	// Database defaults
	applyDBDefaults(&c.Database.Timescale)

	if c.Cache.SQLitePath == "" {
		c.Cache.SQLitePath = DefaultSQLitePath
	}
	if c.Output.Root == "" {
		c.Output.Root = DefaultOutputRoot
	}
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}

	// Gatherer defaults
	g := &c.Gatherer
	if g.HealthPort == 0 {
		g.HealthPort = DefaultHealthPort
	}
	if g.ReconcileInterval == 0 {
		g.ReconcileInterval = DefaultReconcileInterval
	}
	if g.Poller.Interval == 0 {
		g.Poller.Interval = DefaultPollInterval
	}
	if g.Poller.Concurrency == 0 {
		g.Poller.Concurrency = DefaultPollConcurrency
	}
	if g.Stream.WSURL == "" {
		g.Stream.WSURL = DefaultStreamURL
	}
	if len(g.Stream.Coins) == 0 {
		g.Stream.Coins = append([]string(nil), DefaultStreamCoins...)
	}
	if g.Stream.Interval == "" {
		g.Stream.Interval = DefaultStreamInterval
	}
	if g.Stream.PingInterval == 0 {
		g.Stream.PingInterval = DefaultPingInterval
	}
	if g.Stream.ReadTimeout == 0 {
		g.Stream.ReadTimeout = DefaultReadTimeout
	}
	if g.Stream.ReconnectBaseDelay == 0 {
		g.Stream.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if g.Stream.ReconnectMaxDelay == 0 {
		g.Stream.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if g.Writers.BatchSize == 0 {
		g.Writers.BatchSize = DefaultBatchSize
	}
	if g.Writers.FlushInterval == 0 {
		g.Writers.FlushInterval = DefaultFlushInterval
	}
	if g.Writers.BufferSize == 0 {
		g.Writers.BufferSize = DefaultBufferSize
	}

	// Research defaults
	r := &c.Research
	if r.TopN == 0 {
		r.TopN = DefaultTopN
	}
	if r.InceptionTimeout == 0 {
		r.InceptionTimeout = DefaultInceptionTimeout
	}
	if r.InceptionConcurrency == 0 {
		r.InceptionConcurrency = DefaultInceptionConcurrency
	}
	if r.TTestWindow == 0 {
		r.TTestWindow = DefaultTTestWindow
	}
	if r.ConfidenceLevel == 0 {
		r.ConfidenceLevel = DefaultConfidenceLevel
	}
	if r.TThreshold == 0 {
		r.TThreshold = DefaultTThreshold
	}
	if r.LagMin == 0 && r.LagMax == 0 {
		r.LagMin, r.LagMax = DefaultLagMin, DefaultLagMax
	}
	if r.ChosenFile == "" {
		r.ChosenFile = DefaultChosenFile
	}
}

func applyDBDefaults(db *DBConfig) {
	if db.Port == 0 {
		db.Port = DefaultDBPort
	}
	if db.SSLMode == "" {
		db.SSLMode = DefaultDBSSLMode
	}
	if db.MaxConns == 0 {
		db.MaxConns = DefaultMaxConns
	}
	if db.MinConns == 0 {
		db.MinConns = DefaultMinConns
	}
}
