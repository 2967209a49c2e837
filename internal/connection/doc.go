// Package connection implements the Connection Manager component.
//
// The Connection Manager:
//   - Maintains at most one WebSocket connection to the price feed
//   - Runs a single event loop; all state transitions, handler callbacks
//     and posted work execute on that loop, one at a time
//   - Moves through disconnected → connecting → connected and back
//   - Reconnects forever while the handler still wants a connection,
//     using a fixed interval or bounded exponential backoff with jitter
//   - Never connects without a credential
package connection
