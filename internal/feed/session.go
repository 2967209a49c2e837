package feed

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/rickgao/stockfeed/internal/auth"
	"github.com/rickgao/stockfeed/internal/connection"
	"github.com/rickgao/stockfeed/internal/metrics"
	"github.com/rickgao/stockfeed/internal/model"
	"github.com/rickgao/stockfeed/internal/pricecache"
	"github.com/rickgao/stockfeed/internal/subscription"
)

// Config configures a Session.
type Config struct {
	Client             connection.ClientConfig
	Manager            connection.ManagerConfig
	EvictOnUnsubscribe bool // Drop cached prices for keys leaving the desired set
}

// DefaultConfig returns sensible defaults. Client.URL must still be set.
func DefaultConfig() Config {
	return Config{
		Client:  connection.DefaultClientConfig(),
		Manager: connection.DefaultManagerConfig(),
	}
}

// Status is a point-in-time view of the session for diagnostics.
type Status struct {
	SessionID           string
	State               model.ConnState
	Connected           bool
	Reason              string
	Attempts            int
	ConsecutiveFailures int
	LastError           string
	ConnectedAt         time.Time
	NextRetryAt         time.Time
	Desired             []model.Key
	Confirmed           []model.Key
	Rejected            map[model.Key]string
	CachedPrices        int
}

// Option customizes a Session.
type Option func(*Session)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

// WithMetrics sets the collectors the session reports to.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Session) { s.metrics = m }
}

// WithDialer replaces the WebSocket dialer.
func WithDialer(d connection.Dialer) Option {
	return func(s *Session) { s.dialer = d }
}

// subscriptionView is the registry state published for readers off the loop.
type subscriptionView struct {
	desired   []model.Key
	confirmed []model.Key
	rejected  map[model.Key]string
}

// Session owns one feed connection and the price cache it keeps fresh.
type Session struct {
	id      uuid.UUID
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	dialer  connection.Dialer

	registry *subscription.Registry // loop-owned
	cache    *pricecache.Cache
	manager  *connection.Manager

	viewMu sync.RWMutex
	view   subscriptionView

	closed atomic.Bool
}

// New creates a session wanting initial. Nothing connects until Start.
func New(cfg Config, creds auth.Provider, initial []model.Key, opts ...Option) *Session {
	s := &Session{
		id:  uuid.New(),
		cfg: cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With("component", "feed", "session_id", s.id.String())
	if s.dialer == nil {
		s.dialer = connection.WSDialer{Config: cfg.Client, Logger: s.logger}
	}
	if creds == nil {
		creds = auth.Static("")
	}

	s.registry = subscription.New(s.metrics, s.logger)
	s.cache = pricecache.New(s.metrics)
	s.manager = connection.NewManager(cfg.Manager, s.dialer, creds, &handler{s}, s.metrics, s.logger)

	// The loop is not running yet, so the registry can be seeded directly.
	s.registry.SetDesired(initial)
	s.publish()

	return s
}

// Start launches the connection manager. It connects once the desired set
// is non-empty and a credential is available.
func (s *Session) Start(ctx context.Context) error {
	s.logger.Info("feed session starting", "desired", len(s.Status().Desired), "url", s.cfg.Client.URL)
	return s.manager.Start(ctx)
}

// SetDesired replaces the desired subscription set. It is a no-op after
// Close.
func (s *Session) SetDesired(keys []model.Key) {
	if s.closed.Load() {
		return
	}

	keys = append([]model.Key(nil), keys...)
	posted := s.manager.Post(func() {
		_, removed := s.registry.SetDesired(keys)
		if s.cfg.EvictOnUnsubscribe {
			for _, k := range removed {
				s.cache.Delete(k)
			}
		}
		s.publish()
	})
	if posted {
		s.manager.Kick()
	}
}

// Prices returns the read-only price cache.
func (s *Session) Prices() pricecache.View {
	return s.cache
}

// IsConnected reports whether the feed connection is open.
func (s *Session) IsConnected() bool {
	return s.manager.IsConnected()
}

// ID returns the session identifier used in logs.
func (s *Session) ID() string {
	return s.id.String()
}

// Status returns connection and subscription diagnostics.
func (s *Session) Status() Status {
	cs := s.manager.Status()

	s.viewMu.RLock()
	v := s.view
	s.viewMu.RUnlock()

	rejected := make(map[model.Key]string, len(v.rejected))
	for k, msg := range v.rejected {
		rejected[k] = msg
	}

	return Status{
		SessionID:           s.id.String(),
		State:               cs.State,
		Connected:           cs.State == model.Connected,
		Reason:              cs.Reason,
		Attempts:            cs.Attempts,
		ConsecutiveFailures: cs.ConsecutiveFailures,
		LastError:           cs.LastError,
		ConnectedAt:         cs.ConnectedAt,
		NextRetryAt:         cs.NextRetryAt,
		Desired:             append([]model.Key(nil), v.desired...),
		Confirmed:           append([]model.Key(nil), v.confirmed...),
		Rejected:            rejected,
		CachedPrices:        s.cache.Len(),
	}
}

// Close cancels any pending reconnect, closes the connection, and waits for
// the loop to exit. No price updates are applied after Close returns.
func (s *Session) Close(ctx context.Context) error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	err := s.manager.Stop(ctx)
	s.cache.CloseObservers()

	s.logger.Info("feed session closed", "cached_prices", s.cache.Len())
	return err
}

// publish copies registry state for readers. Runs on the loop, or before
// the loop starts.
func (s *Session) publish() {
	v := subscriptionView{
		desired:   s.registry.Desired(),
		confirmed: s.registry.Confirmed(),
		rejected:  s.registry.Rejected(),
	}

	s.viewMu.Lock()
	s.view = v
	s.viewMu.Unlock()
}
