package connection

import (
	"testing"
	"time"
)

func TestReconnectConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     ReconnectConfig
		wantErr bool
	}{
		{"default", DefaultReconnectConfig(), false},
		{"fixed", ReconnectConfig{Policy: PolicyFixed, Interval: 3 * time.Second}, false},
		{"fixed zero interval", ReconnectConfig{Policy: PolicyFixed}, true},
		{"exponential zero base", ReconnectConfig{Policy: PolicyExponential, MaxDelay: time.Second}, true},
		{"exponential max below base", ReconnectConfig{Policy: PolicyExponential, BaseDelay: 2 * time.Second, MaxDelay: time.Second}, true},
		{"exponential bad jitter", ReconnectConfig{Policy: PolicyExponential, BaseDelay: time.Second, MaxDelay: time.Second, Jitter: 1.5}, true},
		{"unknown policy", ReconnectConfig{Policy: "linear"}, true},
		{"negative stable after", ReconnectConfig{Policy: PolicyFixed, Interval: time.Second, StableAfter: -time.Second}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestReconnectConfig_FixedBackOff(t *testing.T) {
	b := ReconnectConfig{Policy: PolicyFixed, Interval: 3 * time.Second}.NewBackOff()

	for i := 0; i < 5; i++ {
		if got := b.NextBackOff(); got != 3*time.Second {
			t.Errorf("NextBackOff() #%d = %v, want 3s", i, got)
		}
	}
}

func TestReconnectConfig_ExponentialBackOff(t *testing.T) {
	cfg := ReconnectConfig{
		Policy:    PolicyExponential,
		BaseDelay: 100 * time.Millisecond,
		MaxDelay:  time.Second,
	}
	b := cfg.NewBackOff()

	want := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		time.Second,
		time.Second,
	}
	for i, w := range want {
		if got := b.NextBackOff(); got != w {
			t.Errorf("NextBackOff() #%d = %v, want %v", i, got, w)
		}
	}

	b.Reset()
	if got := b.NextBackOff(); got != 100*time.Millisecond {
		t.Errorf("NextBackOff() after Reset = %v, want 100ms", got)
	}
}

func TestReconnectConfig_JitterBounds(t *testing.T) {
	cfg := DefaultReconnectConfig()
	b := cfg.NewBackOff()

	upper := time.Duration(float64(cfg.MaxDelay)*(1+cfg.Jitter)) + 1
	for i := 0; i < 20; i++ {
		got := b.NextBackOff()
		if got <= 0 || got > upper {
			t.Fatalf("NextBackOff() #%d = %v, want within (0, %v]", i, got, upper)
		}
	}
}
