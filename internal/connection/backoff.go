package connection

import (
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Reconnect policies.
const (
	PolicyFixed       = "fixed"
	PolicyExponential = "exponential"
)

// ReconnectConfig selects how long to wait between connection attempts.
// There is no retry limit under either policy.
type ReconnectConfig struct {
	Policy    string        // "fixed" or "exponential"
	Interval  time.Duration // Fixed policy delay
	BaseDelay time.Duration // Exponential policy first delay
	MaxDelay  time.Duration // Exponential policy cap
	Jitter    float64       // Randomization factor, 0 to 1

	// StableAfter is how long a connection must stay open before the
	// schedule resets. A connection lost sooner counts as a failure.
	// 0 resets as soon as the handshake completes.
	StableAfter time.Duration
}

// DefaultReconnectConfig returns bounded exponential backoff with jitter.
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		Policy:      PolicyExponential,
		Interval:    3 * time.Second,
		BaseDelay:   1 * time.Second,
		MaxDelay:    30 * time.Second,
		Jitter:      0.5,
		StableAfter: 10 * time.Second,
	}
}

// Validate checks the policy name and delays.
func (c ReconnectConfig) Validate() error {
	switch c.Policy {
	case PolicyFixed:
		if c.Interval <= 0 {
			return errors.New("reconnect.interval must be > 0")
		}
	case PolicyExponential:
		if c.BaseDelay <= 0 {
			return errors.New("reconnect.base_delay must be > 0")
		}
		if c.MaxDelay < c.BaseDelay {
			return fmt.Errorf("reconnect.max_delay (%v) cannot be below base_delay (%v)", c.MaxDelay, c.BaseDelay)
		}
		if c.Jitter < 0 || c.Jitter > 1 {
			return fmt.Errorf("reconnect.jitter must be between 0 and 1, got %v", c.Jitter)
		}
	default:
		return fmt.Errorf("reconnect.policy must be fixed or exponential, got %q", c.Policy)
	}
	if c.StableAfter < 0 {
		return errors.New("reconnect.stable_after must be >= 0")
	}
	return nil
}

// NewBackOff builds the backoff schedule for the policy.
func (c ReconnectConfig) NewBackOff() backoff.BackOff {
	if c.Policy == PolicyFixed {
		return backoff.NewConstantBackOff(c.Interval)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.BaseDelay
	b.MaxInterval = c.MaxDelay
	b.RandomizationFactor = c.Jitter
	b.Multiplier = 2
	b.Reset()
	return b
}
