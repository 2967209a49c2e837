// Package database provides the PostgreSQL connection pool used to read user watchlists.
//
// The feed itself is stateless. Postgres only supplies the desired key set
// when the watchlist source is enabled.
package database
