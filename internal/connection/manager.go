package connection

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/rickgao/stockfeed/internal/codec"
	"github.com/rickgao/stockfeed/internal/metrics"
	"github.com/rickgao/stockfeed/internal/model"
)

// Credentials supplies the bearer token used to open a connection.
// An empty token means no credential is available.
type Credentials interface {
	Token(ctx context.Context) (string, error)
}

// Sender transmits frames over the live connection.
type Sender interface {
	Send(data []byte) error
}

// Handler receives lifecycle events and inbound frames. Every method is
// invoked on the manager's loop goroutine.
type Handler interface {
	// Wanted reports whether a connection is currently needed.
	Wanted() bool

	// OnConnected fires on every transition into connected.
	OnConnected(s Sender)

	// OnDisconnected fires when an open connection is lost.
	OnDisconnected(err error)

	// OnMessage delivers one inbound frame, in transport order.
	OnMessage(msg TimestampedMessage)
}

// dialResult carries a finished connection attempt back to the loop.
type dialResult struct {
	seq    uint64
	client Client
	err    error
}

// Manager owns the single feed connection.
type Manager struct {
	cfg     ManagerConfig
	dialer  Dialer
	creds   Credentials
	handler Handler
	metrics *metrics.Metrics
	logger  *slog.Logger

	cmds        chan func()
	dialResults chan dialResult

	ctx       context.Context
	cancel    context.CancelFunc
	done      chan struct{}
	stopped   chan struct{}
	startOnce sync.Once
	stopOnce  sync.Once

	// Loop-owned state
	state      model.ConnState
	client     Client
	backoff    backoff.BackOff
	retry      *time.Timer
	stable     *time.Timer
	keepalive  *time.Ticker
	dialCancel context.CancelFunc
	dialSeq    uint64

	// Shared with readers
	connected atomic.Bool
	statusMu  sync.RWMutex
	status    Status
}

// NewManager creates a new Connection Manager.
func NewManager(cfg ManagerConfig, dialer Dialer, creds Credentials, handler Handler, m *metrics.Metrics, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CommandBufferSize < 1 {
		cfg.CommandBufferSize = 1
	}

	return &Manager{
		cfg:         cfg,
		dialer:      dialer,
		creds:       creds,
		handler:     handler,
		metrics:     m,
		logger:      logger,
		cmds:        make(chan func(), cfg.CommandBufferSize),
		dialResults: make(chan dialResult),
		done:        make(chan struct{}),
		stopped:     make(chan struct{}),
		backoff:     cfg.Reconnect.NewBackOff(),
		status:      Status{State: model.Disconnected, Reason: ReasonIdle},
	}
}

// Start launches the event loop and evaluates whether to connect.
func (m *Manager) Start(ctx context.Context) error {
	started := false
	m.startOnce.Do(func() {
		m.ctx, m.cancel = context.WithCancel(ctx)
		started = true
		go m.run()
	})
	if !started {
		return fmt.Errorf("manager already started")
	}

	m.Kick()

	m.logger.Info("connection manager started",
		"reconnect_policy", m.cfg.Reconnect.Policy,
		"keepalive_interval", m.cfg.KeepaliveInterval,
	)
	return nil
}

// Stop cancels any pending retry, closes the connection, and waits for the
// loop to exit. No handler callbacks run after Stop returns.
func (m *Manager) Stop(ctx context.Context) error {
	m.stopOnce.Do(m.shutdown)

	select {
	case <-m.done:
		return nil
	case <-ctx.Done():
		m.logger.Warn("connection manager stop timed out")
		return ctx.Err()
	}
}

// shutdown refuses further work and cancels the loop. Runs once, from Stop
// or from the loop exiting on its own when the Start context ends.
func (m *Manager) shutdown() {
	close(m.stopped)
	// Never started: nothing to wait for.
	m.startOnce.Do(func() { close(m.done) })
	if m.cancel != nil {
		m.cancel()
	}
}

// Post queues fn to run on the loop. Returns false once the manager is
// stopped or its context is done.
func (m *Manager) Post(fn func()) bool {
	select {
	case <-m.stopped:
		return false
	default:
	}

	select {
	case m.cmds <- fn:
		return true
	case <-m.stopped:
		return false
	case <-m.done:
		return false
	}
}

// Kick asks the loop to connect if disconnected, wanted, and no retry is pending.
func (m *Manager) Kick() {
	m.Post(func() { m.maybeConnect("kick") })
}

// Send writes a frame on the live connection. Only call from the loop
// (inside Post or a Handler callback).
func (m *Manager) Send(data []byte) error {
	if m.client == nil || m.state != model.Connected {
		return ErrNotConnected
	}
	return m.client.Send(data)
}

// IsConnected reports whether the connection is open. Safe from any goroutine.
func (m *Manager) IsConnected() bool {
	return m.connected.Load()
}

// Status returns a snapshot of connection state. Safe from any goroutine.
func (m *Manager) Status() Status {
	m.statusMu.RLock()
	defer m.statusMu.RUnlock()
	return m.status
}

// run is the event loop.
func (m *Manager) run() {
	defer close(m.done)
	defer m.teardown()
	defer m.stopOnce.Do(m.shutdown)

	for {
		var msgs <-chan TimestampedMessage
		var errs <-chan error
		if m.client != nil {
			msgs = m.client.Messages()
			errs = m.client.Errors()
		}
		var retryC, stableC, keepaliveC <-chan time.Time
		if m.retry != nil {
			retryC = m.retry.C
		}
		if m.stable != nil {
			stableC = m.stable.C
		}
		if m.keepalive != nil {
			keepaliveC = m.keepalive.C
		}

		select {
		case <-m.ctx.Done():
			return

		case fn := <-m.cmds:
			fn()

		case res := <-m.dialResults:
			m.handleDialResult(res)

		case <-retryC:
			m.retry = nil
			m.maybeConnect("retry")

		case <-stableC:
			m.stable = nil
			m.markStable()

		case msg, ok := <-msgs:
			if !ok {
				m.handleConnectionLost(ErrConnectionClosed)
				continue
			}
			m.metrics.FrameReceived()
			m.handler.OnMessage(msg)

		case err := <-errs:
			m.handleConnectionLost(err)

		case <-keepaliveC:
			m.sendKeepalive()
		}
	}
}

// maybeConnect starts a connection attempt when one is wanted and possible.
func (m *Manager) maybeConnect(trigger string) {
	if m.state != model.Disconnected {
		return
	}
	// A pending retry owns the next attempt.
	if m.retry != nil {
		return
	}

	if !m.handler.Wanted() {
		m.updateStatus(func(s *Status) {
			s.Reason = ReasonIdle
			s.NextRetryAt = time.Time{}
		})
		return
	}

	token, err := m.creds.Token(m.ctx)
	if err != nil || token == "" {
		if err == nil {
			err = ErrNoCredential
		}
		m.logger.Warn("no credential, staying disconnected", "trigger", trigger, "error", err)
		m.updateStatus(func(s *Status) {
			s.Reason = ReasonNoCredential
			s.LastError = err.Error()
			s.NextRetryAt = time.Time{}
		})
		return
	}

	m.setState(model.Connecting)
	m.dialSeq++
	seq := m.dialSeq
	m.metrics.ConnectAttempt()
	m.updateStatus(func(s *Status) {
		s.Reason = ReasonNone
		s.Attempts++
		s.NextRetryAt = time.Time{}
	})

	dialCtx := m.ctx
	var cancel context.CancelFunc
	if m.cfg.DialTimeout > 0 {
		dialCtx, cancel = context.WithTimeout(m.ctx, m.cfg.DialTimeout)
	} else {
		dialCtx, cancel = context.WithCancel(m.ctx)
	}
	m.dialCancel = cancel

	m.logger.Debug("connecting", "trigger", trigger, "attempt", seq)

	go func() {
		c, err := m.dialer.Dial(dialCtx, token)
		select {
		case m.dialResults <- dialResult{seq: seq, client: c, err: err}:
		case <-m.ctx.Done():
			if c != nil {
				c.Close()
			}
		}
	}()
}

// handleDialResult completes a connection attempt.
func (m *Manager) handleDialResult(res dialResult) {
	if m.dialCancel != nil {
		m.dialCancel()
		m.dialCancel = nil
	}
	if res.seq != m.dialSeq || m.state != model.Connecting {
		if res.client != nil {
			res.client.Close()
		}
		return
	}

	if res.err != nil {
		m.logger.Warn("connection attempt failed", "error", res.err)
		m.metrics.ConnectFailed()
		m.setState(model.Disconnected)
		m.updateStatus(func(s *Status) {
			s.ConsecutiveFailures++
			s.LastError = res.err.Error()
		})
		m.scheduleRetry()
		return
	}

	m.client = res.client
	m.setState(model.Connected)
	m.updateStatus(func(s *Status) {
		s.Reason = ReasonNone
		s.ConnectedAt = time.Now()
	})
	if m.cfg.Reconnect.StableAfter > 0 {
		m.stable = time.NewTimer(m.cfg.Reconnect.StableAfter)
	} else {
		m.markStable()
	}
	if m.cfg.KeepaliveInterval > 0 {
		m.keepalive = time.NewTicker(m.cfg.KeepaliveInterval)
	}

	m.logger.Info("feed connected")
	m.handler.OnConnected(m)
}

// handleConnectionLost tears down the current client and schedules a retry.
func (m *Manager) handleConnectionLost(err error) {
	if m.client == nil {
		return
	}

	// Frames read before the error still belong to this connection.
	m.drainMessages()

	m.client.Close()
	m.client = nil
	m.stopKeepalive()
	m.setState(model.Disconnected)
	m.metrics.Disconnected()

	// Lost before it was stable: the schedule keeps growing.
	shortLived := m.stable != nil
	if shortLived {
		m.stable.Stop()
		m.stable = nil
		m.metrics.ConnectFailed()
	}
	m.updateStatus(func(s *Status) {
		s.LastError = err.Error()
		if shortLived {
			s.ConsecutiveFailures++
		}
	})

	m.logger.Warn("feed connection lost", "error", err, "short_lived", shortLived)
	m.handler.OnDisconnected(err)
	m.scheduleRetry()
}

// markStable resets the retry schedule once a connection has proven itself.
func (m *Manager) markStable() {
	m.backoff.Reset()
	m.updateStatus(func(s *Status) { s.ConsecutiveFailures = 0 })
}

func (m *Manager) drainMessages() {
	for {
		select {
		case msg := <-m.client.Messages():
			m.metrics.FrameReceived()
			m.handler.OnMessage(msg)
		default:
			return
		}
	}
}

// scheduleRetry arms the reconnect timer. There is no retry limit.
func (m *Manager) scheduleRetry() {
	delay := m.backoff.NextBackOff()
	if delay == backoff.Stop {
		delay = m.cfg.Reconnect.MaxDelay
	}
	if m.retry != nil {
		m.retry.Stop()
	}
	m.retry = time.NewTimer(delay)

	m.updateStatus(func(s *Status) {
		s.Reason = ReasonRetrying
		s.NextRetryAt = time.Now().Add(delay)
	})
	m.logger.Info("reconnect scheduled", "delay", delay)
}

func (m *Manager) sendKeepalive() {
	data, err := codec.EncodeKeepalive()
	if err != nil {
		return
	}
	if err := m.Send(data); err != nil {
		m.logger.Debug("failed to send keepalive", "error", err)
	}
}

func (m *Manager) stopKeepalive() {
	if m.keepalive != nil {
		m.keepalive.Stop()
		m.keepalive = nil
	}
}

// teardown runs when the loop exits.
func (m *Manager) teardown() {
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
	if m.stable != nil {
		m.stable.Stop()
		m.stable = nil
	}
	if m.dialCancel != nil {
		m.dialCancel()
		m.dialCancel = nil
	}
	m.stopKeepalive()
	if m.client != nil {
		m.client.Close()
		m.client = nil
	}
	m.setState(model.Disconnected)
	m.updateStatus(func(s *Status) {
		s.Reason = ReasonClosed
		s.NextRetryAt = time.Time{}
	})
	m.logger.Info("connection manager stopped")
}

func (m *Manager) setState(state model.ConnState) {
	m.state = state
	m.connected.Store(state == model.Connected)
	m.metrics.SetState(state)
	m.updateStatus(func(s *Status) { s.State = state })
}

func (m *Manager) updateStatus(fn func(*Status)) {
	m.statusMu.Lock()
	fn(&m.status)
	m.statusMu.Unlock()
}
