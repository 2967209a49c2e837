package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/rickgao/stockfeed/internal/model"
)

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	// None of these may panic.
	m.SetState(model.Connected)
	m.ConnectAttempt()
	m.ConnectFailed()
	m.Disconnected()
	m.FrameReceived()
	m.FrameSent("subscribe")
	m.Event("price_update")
	m.DecodeError()
	m.DroppedUpdate()
	m.SubscriptionError()
	m.SetDesired(3)
	m.SetCached(2)
	m.ObserverDrop()
}

func TestMetrics_Hooks(t *testing.T) {
	m := New(nil)

	m.SetState(model.Connected)
	if got := testutil.ToFloat64(m.ConnectionState); got != 2 {
		t.Errorf("connection_state = %v, want 2", got)
	}

	m.ConnectAttempt()
	m.ConnectAttempt()
	if got := testutil.ToFloat64(m.ConnectAttempts); got != 2 {
		t.Errorf("connect_attempts_total = %v, want 2", got)
	}

	m.FrameSent("subscribe")
	m.FrameSent("subscribe")
	m.FrameSent("unsubscribe")
	if got := testutil.ToFloat64(m.FramesSent.WithLabelValues("subscribe")); got != 2 {
		t.Errorf("frames_sent_total{action=subscribe} = %v, want 2", got)
	}

	m.SetDesired(5)
	if got := testutil.ToFloat64(m.DesiredKeys); got != 5 {
		t.Errorf("desired_subscriptions = %v, want 5", got)
	}
}

func TestNew_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.ConnectAttempt()
	m.Event("pong")

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	names := make(map[string]bool)
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{"stockfeed_connect_attempts_total", "stockfeed_events_total", "stockfeed_connection_state"} {
		if !names[want] {
			t.Errorf("metric %s not registered", want)
		}
	}
}
