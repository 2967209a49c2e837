package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	u, err := url.Parse(c.Feed.URL)
	if err != nil {
		return fmt.Errorf("feed.url is invalid: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("feed.url must use ws or wss, got %q", c.Feed.URL)
	}
	if c.Feed.BufferSize < 1 {
		return errors.New("feed.buffer_size must be >= 1")
	}
	if c.Feed.PingInterval < 0 || c.Feed.KeepaliveInterval < 0 {
		return errors.New("feed intervals must be >= 0")
	}
	if c.Feed.HandshakeTimeout < 0 || c.Feed.DialTimeout < 0 || c.Feed.PingTimeout < 0 || c.Feed.WriteTimeout < 0 {
		return errors.New("feed timeouts must be >= 0")
	}

	if err := c.Reconnect.Connection().Validate(); err != nil {
		return err
	}

	for i, s := range c.Subscriptions {
		if strings.TrimSpace(s.Symbol) == "" {
			return fmt.Errorf("subscriptions[%d].symbol is required", i)
		}
	}

	if c.Watchlist.Enabled {
		if len(c.Watchlist.UserIDs) == 0 {
			return errors.New("watchlist.user_ids is required when watchlist is enabled")
		}
		for i, id := range c.Watchlist.UserIDs {
			if _, err := uuid.Parse(id); err != nil {
				return fmt.Errorf("watchlist.user_ids[%d] is not a uuid: %q", i, id)
			}
		}
		if c.Watchlist.Interval <= 0 {
			return errors.New("watchlist.interval must be > 0")
		}
		if c.Watchlist.Concurrency < 1 {
			return errors.New("watchlist.concurrency must be >= 1")
		}
		if c.Watchlist.QueryTimeout <= 0 {
			return errors.New("watchlist.query_timeout must be > 0")
		}
		if err := c.Database.validate("database"); err != nil {
			return err
		}
	}

	if c.HTTP.Enabled && (c.HTTP.Port < 1 || c.HTTP.Port > 65535) {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}

	if _, err := ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	if c.Logging.Format != "text" && c.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}

// ValidateSimulator checks the simulator section.
func (c *Config) ValidateSimulator() error {
	if c.Simulator.Port < 1 || c.Simulator.Port > 65535 {
		return fmt.Errorf("simulator.port must be between 1 and 65535, got %d", c.Simulator.Port)
	}
	if c.Simulator.TickInterval <= 0 {
		return errors.New("simulator.tick_interval must be > 0")
	}
	if _, err := decimal.NewFromString(c.Simulator.DefaultPrice); err != nil {
		return fmt.Errorf("simulator.default_price is invalid: %w", err)
	}
	for i, s := range c.Simulator.Seeds {
		if strings.TrimSpace(s.Symbol) == "" {
			return fmt.Errorf("simulator.seeds[%d].symbol is required", i)
		}
		if _, err := decimal.NewFromString(s.Price); err != nil {
			return fmt.Errorf("simulator.seeds[%d].price is invalid: %w", i, err)
		}
	}
	return nil
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

// ParseLevel maps a logging.level value to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("logging.level must be debug, info, warn or error, got %q", s)
	}
}
