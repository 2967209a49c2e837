// Package metrics provides Prometheus metrics for monitoring.
//
// Key metrics:
//   - Feed connection state, attempts, failures and disconnects
//   - Inbound frame rates by event kind, decode errors
//   - Outbound subscribe/unsubscribe frames
//   - Desired subscription count and cached price count
//
// All hook methods are safe to call on a nil *Metrics.
package metrics
