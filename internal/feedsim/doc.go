// Package feedsim is an in-process market-data feed that speaks the same
// WebSocket protocol as the production analytics backend.
//
// It authenticates the ?token= query parameter, answers subscribe,
// unsubscribe and ping requests, sends an initial price on every
// subscribe, and pushes random-walk price updates for every subscribed key
// on a fixed tick. It backs local development (cmd/mockfeed) and the feed
// package's end-to-end tests.
package feedsim
