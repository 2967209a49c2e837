package main

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rickgao/stockfeed/internal/config"
	"github.com/rickgao/stockfeed/internal/feedsim"
	"github.com/rickgao/stockfeed/internal/model"
)

// simConfig maps the simulator section onto a feedsim config. The section
// must already have passed ValidateSimulator.
func simConfig(sc config.SimulatorConfig) (feedsim.Config, error) {
	cfg := feedsim.DefaultConfig()
	cfg.TickInterval = sc.TickInterval
	cfg.RejectUnknown = sc.RejectUnknown
	if sc.Secret != "" {
		cfg.Secret = []byte(sc.Secret)
	}

	price, err := decimal.NewFromString(sc.DefaultPrice)
	if err != nil {
		return feedsim.Config{}, fmt.Errorf("parse default price: %w", err)
	}
	cfg.DefaultPrice = price

	cfg.Seeds = make(map[model.Key]decimal.Decimal, len(sc.Seeds))
	for _, seed := range sc.Seeds {
		p, err := decimal.NewFromString(seed.Price)
		if err != nil {
			return feedsim.Config{}, fmt.Errorf("parse seed price for %s: %w", seed.Symbol, err)
		}
		cfg.Seeds[model.NewKey(seed.Symbol, seed.Market)] = p
	}
	return cfg, nil
}
