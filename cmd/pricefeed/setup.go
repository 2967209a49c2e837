package main

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/rickgao/stockfeed/internal/auth"
	"github.com/rickgao/stockfeed/internal/config"
	"github.com/rickgao/stockfeed/internal/feed"
	"github.com/rickgao/stockfeed/internal/model"
	"github.com/rickgao/stockfeed/internal/watchlist"
)

// feedConfig maps the file config onto a session config.
func feedConfig(cfg *config.Config) feed.Config {
	fc := feed.DefaultConfig()

	fc.Client.URL = cfg.Feed.URL
	fc.Client.HandshakeTimeout = cfg.Feed.HandshakeTimeout
	fc.Client.PingInterval = cfg.Feed.PingInterval
	fc.Client.PingTimeout = cfg.Feed.PingTimeout
	fc.Client.WriteTimeout = cfg.Feed.WriteTimeout
	fc.Client.BufferSize = cfg.Feed.BufferSize

	fc.Manager.DialTimeout = cfg.Feed.DialTimeout
	fc.Manager.KeepaliveInterval = cfg.Feed.KeepaliveInterval
	fc.Manager.Reconnect = cfg.Reconnect.Connection()

	fc.EvictOnUnsubscribe = cfg.Feed.EvictOnUnsubscribe
	return fc
}

// staticKeys returns the configured subscriptions, normalized.
func staticKeys(cfg *config.Config) []model.Key {
	keys := make([]model.Key, 0, len(cfg.Subscriptions))
	for _, s := range cfg.Subscriptions {
		keys = append(keys, model.NewKey(s.Symbol, s.Market))
	}
	return keys
}

// credentials builds the token provider: literal token first, then the
// environment variable, then the token file.
func credentials(fc config.FeedConfig, logger *slog.Logger) auth.Provider {
	providers := []auth.Provider{auth.Static(fc.Token)}
	if fc.TokenEnv != "" {
		providers = append(providers, auth.Env(fc.TokenEnv))
	}
	if fc.TokenFile != "" {
		providers = append(providers, auth.File(fc.TokenFile))
	}

	p := auth.Chain(providers...)
	if fc.ExpiryWarning > 0 {
		p = auth.WithExpiryWarning(p, fc.ExpiryWarning, logger)
	}
	return p
}

// refreshConfig maps the watchlist section onto a refresher config.
func refreshConfig(cfg *config.Config) (watchlist.Config, []uuid.UUID, error) {
	users := make([]uuid.UUID, 0, len(cfg.Watchlist.UserIDs))
	for _, raw := range cfg.Watchlist.UserIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return watchlist.Config{}, nil, fmt.Errorf("parse watchlist user %q: %w", raw, err)
		}
		users = append(users, id)
	}

	return watchlist.Config{
		Interval:    cfg.Watchlist.Interval,
		Concurrency: cfg.Watchlist.Concurrency,
		Timeout:     cfg.Watchlist.QueryTimeout,
		Static:      staticKeys(cfg),
	}, users, nil
}

// formatRecord renders one update for the console.
func formatRecord(rec model.PriceRecord) string {
	sign := ""
	if rec.Change.IsPositive() {
		sign = "+"
	}
	return fmt.Sprintf("[PRICE] %-20s %12s  %s%s (%s%s%%)  at %s",
		rec.Key().String(),
		rec.CurrentPrice.StringFixed(2),
		sign, rec.Change.StringFixed(2),
		sign, rec.ChangePercent.StringFixed(2),
		rec.Timestamp.UTC().Format("15:04:05"),
	)
}
