// Package watchlist derives the desired subscription set from user
// watchlists stored in PostgreSQL.
//
// A Store reads one user's watched (symbol, market) pairs. A Refresher
// polls the store for a fixed set of users on an interval, unions the
// results with any static keys, and hands the result to a feed session.
// A failed cycle leaves the previous desired set in place.
package watchlist
