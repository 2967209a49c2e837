// Package model defines shared data types used across the price feed client.
//
// Conventions:
//   - Prices: decimal.Decimal, never float64
//   - Timestamps: time.Time in UTC (server timestamp plus local receive time)
//   - Keys: (symbol, market) pairs; the same ticker may trade in several markets
package model
