// Package subscription implements the Subscription Registry component.
//
// The registry is the authoritative record of which (symbol, market) keys
// the consumer wants streamed. It diffs every new desired set against the
// previous one and, while a connection is up, emits only the resulting
// unsubscribe/subscribe frames. On every new connection it re-subscribes
// the full current desired set.
//
// A Registry is owned by the connection manager's loop and is not safe for
// concurrent use.
package subscription
