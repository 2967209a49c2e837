// Package httpapi serves the debug HTTP surface of a running feed session:
// health, cached prices, connection status, the desired set and Prometheus
// metrics.
package httpapi
