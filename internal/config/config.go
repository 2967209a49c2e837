package config

import (
	"time"

	"github.com/rickgao/stockfeed/internal/connection"
)

// Config is the root configuration for pricefeed and mockfeed.
type Config struct {
	Feed          FeedConfig           `yaml:"feed"`
	Reconnect     ReconnectConfig      `yaml:"reconnect"`
	Subscriptions []SubscriptionConfig `yaml:"subscriptions"`
	Watchlist     WatchlistConfig      `yaml:"watchlist"`
	Database      DBConfig             `yaml:"database"`
	HTTP          HTTPConfig           `yaml:"http"`
	Logging       LoggingConfig        `yaml:"logging"`
	Simulator     SimulatorConfig      `yaml:"simulator"`
}

// FeedConfig holds the price feed connection settings.
type FeedConfig struct {
	URL                string        `yaml:"url"`
	Token              string        `yaml:"token"`      // Literal token, usually ${VAR}
	TokenEnv           string        `yaml:"token_env"`  // Env var read on every connect
	TokenFile          string        `yaml:"token_file"` // File read on every connect
	ExpiryWarning      time.Duration `yaml:"expiry_warning"`
	HandshakeTimeout   time.Duration `yaml:"handshake_timeout"`
	DialTimeout        time.Duration `yaml:"dial_timeout"`
	PingInterval       time.Duration `yaml:"ping_interval"`
	PingTimeout        time.Duration `yaml:"ping_timeout"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`
	KeepaliveInterval  time.Duration `yaml:"keepalive_interval"`
	BufferSize         int           `yaml:"buffer_size"`
	EvictOnUnsubscribe bool          `yaml:"evict_on_unsubscribe"`
}

// ReconnectConfig selects the reconnection policy.
type ReconnectConfig struct {
	Policy    string        `yaml:"policy"` // "fixed" or "exponential"
	Interval  time.Duration `yaml:"interval"`
	BaseDelay time.Duration `yaml:"base_delay"`
	MaxDelay  time.Duration `yaml:"max_delay"`
	Jitter    *float64      `yaml:"jitter"` // nil means default; 0 disables

	// A connection that drops within stable_after counts as a failure.
	StableAfter time.Duration `yaml:"stable_after"`
}

// Connection returns the policy in the form the connection manager takes.
func (r ReconnectConfig) Connection() connection.ReconnectConfig {
	rc := connection.ReconnectConfig{
		Policy:      r.Policy,
		Interval:    r.Interval,
		BaseDelay:   r.BaseDelay,
		MaxDelay:    r.MaxDelay,
		StableAfter: r.StableAfter,
	}
	if r.Jitter != nil {
		rc.Jitter = *r.Jitter
	}
	return rc
}

// SubscriptionConfig is one statically desired key.
type SubscriptionConfig struct {
	Symbol string `yaml:"symbol"`
	Market string `yaml:"market"`
}

// WatchlistConfig drives the desired set from user watchlists in Postgres.
type WatchlistConfig struct {
	Enabled      bool          `yaml:"enabled"`
	UserIDs      []string      `yaml:"user_ids"`
	Interval     time.Duration `yaml:"interval"`
	Concurrency  int           `yaml:"concurrency"`
	QueryTimeout time.Duration `yaml:"query_timeout"`
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

// HTTPConfig holds the debug HTTP server settings.
type HTTPConfig struct {
	Enabled bool   `yaml:"enabled"`
	Port    int    `yaml:"port"`
	Path    string `yaml:"metrics_path"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// SimulatorConfig holds mockfeed settings.
type SimulatorConfig struct {
	Port          int           `yaml:"port"`
	TickInterval  time.Duration `yaml:"tick_interval"`
	Secret        string        `yaml:"secret"`
	RejectUnknown bool          `yaml:"reject_unknown"`
	DefaultPrice  string        `yaml:"default_price"`
	Seeds         []SeedConfig  `yaml:"seeds"`
}

// SeedConfig is the opening price of one simulated key.
type SeedConfig struct {
	Symbol string `yaml:"symbol"`
	Market string `yaml:"market"`
	Price  string `yaml:"price"`
}
