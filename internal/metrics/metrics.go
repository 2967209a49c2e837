package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rickgao/stockfeed/internal/model"
)

const namespace = "stockfeed"

// Metrics holds the collectors for one feed session.
type Metrics struct {
	ConnectionState    prometheus.Gauge
	ConnectAttempts    prometheus.Counter
	ConnectFailures    prometheus.Counter
	Disconnects        prometheus.Counter
	FramesReceived     prometheus.Counter
	FramesSent         *prometheus.CounterVec
	Events             *prometheus.CounterVec
	DecodeErrors       prometheus.Counter
	DroppedUpdates     prometheus.Counter
	SubscriptionErrors prometheus.Counter
	DesiredKeys        prometheus.Gauge
	CachedPrices       prometheus.Gauge
	ObserverDrops      prometheus.Counter
}

// New creates the collectors and registers them with reg. A nil reg skips
// registration, which keeps tests independent of the global registry.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ConnectionState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connection_state",
			Help:      "Feed connection state (0=disconnected, 1=connecting, 2=connected).",
		}),
		ConnectAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connect_attempts_total",
			Help:      "Connection attempts started.",
		}),
		ConnectFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connect_failures_total",
			Help:      "Connection attempts that failed to open.",
		}),
		Disconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "disconnects_total",
			Help:      "Open connections lost to transport errors.",
		}),
		FramesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_received_total",
			Help:      "Inbound frames read from the feed.",
		}),
		FramesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_sent_total",
			Help:      "Outbound request frames by action.",
		}, []string{"action"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Decoded inbound events by kind.",
		}, []string{"kind"}),
		DecodeErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decode_errors_total",
			Help:      "Inbound frames dropped because they could not be parsed.",
		}),
		DroppedUpdates: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_updates_total",
			Help:      "Price updates dropped because their key is not desired.",
		}),
		SubscriptionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "subscription_errors_total",
			Help:      "Requests rejected by the feed.",
		}),
		DesiredKeys: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "desired_subscriptions",
			Help:      "Size of the desired subscription set.",
		}),
		CachedPrices: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "cached_prices",
			Help:      "Entries in the price cache.",
		}),
		ObserverDrops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "observer_drops_total",
			Help:      "Price notifications skipped for slow observers.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.ConnectionState,
			m.ConnectAttempts,
			m.ConnectFailures,
			m.Disconnects,
			m.FramesReceived,
			m.FramesSent,
			m.Events,
			m.DecodeErrors,
			m.DroppedUpdates,
			m.SubscriptionErrors,
			m.DesiredKeys,
			m.CachedPrices,
			m.ObserverDrops,
		)
	}

	return m
}

// SetState records the connection state.
func (m *Metrics) SetState(s model.ConnState) {
	if m == nil {
		return
	}
	m.ConnectionState.Set(float64(s))
}

// ConnectAttempt counts a connection attempt.
func (m *Metrics) ConnectAttempt() {
	if m == nil {
		return
	}
	m.ConnectAttempts.Inc()
}

// ConnectFailed counts a failed connection attempt.
func (m *Metrics) ConnectFailed() {
	if m == nil {
		return
	}
	m.ConnectFailures.Inc()
}

// Disconnected counts a lost connection.
func (m *Metrics) Disconnected() {
	if m == nil {
		return
	}
	m.Disconnects.Inc()
}

// FrameReceived counts an inbound frame.
func (m *Metrics) FrameReceived() {
	if m == nil {
		return
	}
	m.FramesReceived.Inc()
}

// FrameSent counts an outbound frame.
func (m *Metrics) FrameSent(action string) {
	if m == nil {
		return
	}
	m.FramesSent.WithLabelValues(action).Inc()
}

// Event counts a decoded event by kind.
func (m *Metrics) Event(kind string) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(kind).Inc()
}

// DecodeError counts a dropped malformed frame.
func (m *Metrics) DecodeError() {
	if m == nil {
		return
	}
	m.DecodeErrors.Inc()
}

// DroppedUpdate counts a price update for an undesired key.
func (m *Metrics) DroppedUpdate() {
	if m == nil {
		return
	}
	m.DroppedUpdates.Inc()
}

// SubscriptionError counts a rejected request.
func (m *Metrics) SubscriptionError() {
	if m == nil {
		return
	}
	m.SubscriptionErrors.Inc()
}

// SetDesired records the desired set size.
func (m *Metrics) SetDesired(n int) {
	if m == nil {
		return
	}
	m.DesiredKeys.Set(float64(n))
}

// SetCached records the cache size.
func (m *Metrics) SetCached(n int) {
	if m == nil {
		return
	}
	m.CachedPrices.Set(float64(n))
}

// ObserverDrop counts a skipped observer notification.
func (m *Metrics) ObserverDrop() {
	if m == nil {
		return
	}
	m.ObserverDrops.Inc()
}
