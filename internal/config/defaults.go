package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultFeedURL            = "ws://localhost:8000/ws"
	DefaultExpiryWarning      = 10 * time.Minute
	DefaultHandshakeTimeout   = 10 * time.Second
	DefaultDialTimeout        = 15 * time.Second
	DefaultPingInterval       = 15 * time.Second
	DefaultPingTimeout        = 45 * time.Second
	DefaultWriteTimeout       = 5 * time.Second
	DefaultFeedBufferSize     = 1024
	DefaultReconnectPolicy    = "exponential"
	DefaultReconnectInterval  = 3 * time.Second
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 30 * time.Second
	DefaultReconnectJitter    = 0.5
	DefaultStableAfter        = 10 * time.Second
	DefaultWatchlistInterval  = 1 * time.Minute
	DefaultWatchlistWorkers   = 4
	DefaultQueryTimeout       = 10 * time.Second
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 4
	DefaultMinConns           = 1
	DefaultHTTPPort           = 9090
	DefaultMetricsPath        = "/metrics"
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "text"
	DefaultSimulatorPort      = 8000
	DefaultTickInterval       = 5 * time.Second
	DefaultSimulatorPrice     = "100"
)

// Default returns a config with every default applied, for running without
// a file.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	// Feed defaults
	if c.Feed.URL == "" {
		c.Feed.URL = DefaultFeedURL
	}
	if c.Feed.ExpiryWarning == 0 {
		c.Feed.ExpiryWarning = DefaultExpiryWarning
	}
	if c.Feed.HandshakeTimeout == 0 {
		c.Feed.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if c.Feed.DialTimeout == 0 {
		c.Feed.DialTimeout = DefaultDialTimeout
	}
	if c.Feed.PingInterval == 0 {
		c.Feed.PingInterval = DefaultPingInterval
	}
	if c.Feed.PingTimeout == 0 {
		c.Feed.PingTimeout = DefaultPingTimeout
	}
	if c.Feed.WriteTimeout == 0 {
		c.Feed.WriteTimeout = DefaultWriteTimeout
	}
	if c.Feed.BufferSize == 0 {
		c.Feed.BufferSize = DefaultFeedBufferSize
	}

	// Reconnect defaults
	if c.Reconnect.Policy == "" {
		c.Reconnect.Policy = DefaultReconnectPolicy
	}
	if c.Reconnect.Interval == 0 {
		c.Reconnect.Interval = DefaultReconnectInterval
	}
	if c.Reconnect.BaseDelay == 0 {
		c.Reconnect.BaseDelay = DefaultReconnectBaseDelay
	}
	if c.Reconnect.MaxDelay == 0 {
		c.Reconnect.MaxDelay = DefaultReconnectMaxDelay
	}
	if c.Reconnect.Jitter == nil {
		jitter := DefaultReconnectJitter
		c.Reconnect.Jitter = &jitter
	}
	if c.Reconnect.StableAfter == 0 {
		c.Reconnect.StableAfter = DefaultStableAfter
	}

	// Watchlist defaults
	if c.Watchlist.Interval == 0 {
		c.Watchlist.Interval = DefaultWatchlistInterval
	}
	if c.Watchlist.Concurrency == 0 {
		c.Watchlist.Concurrency = DefaultWatchlistWorkers
	}
	if c.Watchlist.QueryTimeout == 0 {
		c.Watchlist.QueryTimeout = DefaultQueryTimeout
	}

	// Database defaults
	applyDBDefaults(&c.Database)

	// HTTP defaults
	if c.HTTP.Port == 0 {
		c.HTTP.Port = DefaultHTTPPort
	}
	if c.HTTP.Path == "" {
		c.HTTP.Path = DefaultMetricsPath
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = DefaultLogLevel
	}
	if c.Logging.Format == "" {
		c.Logging.Format = DefaultLogFormat
	}

	// Simulator defaults
	if c.Simulator.Port == 0 {
		c.Simulator.Port = DefaultSimulatorPort
	}
	if c.Simulator.TickInterval == 0 {
		c.Simulator.TickInterval = DefaultTickInterval
	}
	if c.Simulator.DefaultPrice == "" {
		c.Simulator.DefaultPrice = DefaultSimulatorPrice
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
