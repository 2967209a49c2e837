package connection

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/stockfeed/internal/version"
)

// Client represents a single WebSocket connection to the price feed.
type Client interface {
	// Connect establishes the WebSocket connection.
	Connect(ctx context.Context) error

	// Close gracefully closes the connection.
	Close() error

	// Send writes raw bytes to the connection.
	Send(data []byte) error

	// Messages returns a channel of raw inbound frames in arrival order.
	// Each message includes a local timestamp for when it was received.
	Messages() <-chan TimestampedMessage

	// Errors returns a channel of connection errors. At most one error is
	// delivered per connection.
	Errors() <-chan error

	// IsConnected returns current connection state.
	IsConnected() bool
}

// Dialer opens connected clients. The manager dials once per attempt.
type Dialer interface {
	Dial(ctx context.Context, token string) (Client, error)
}

// WSDialer dials gorilla/websocket clients.
type WSDialer struct {
	Config ClientConfig
	Logger *slog.Logger
}

// Dial creates a client for token and connects it.
func (d WSDialer) Dial(ctx context.Context, token string) (Client, error) {
	cfg := d.Config
	cfg.Token = token

	c := NewClient(cfg, d.Logger)
	if err := c.Connect(ctx); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

// client implements the Client interface.
type client struct {
	cfg    ClientConfig
	logger *slog.Logger

	conn *websocket.Conn

	// Output channels
	messages chan TimestampedMessage
	errors   chan error
	done     chan struct{}

	// Write serialization
	writeMu sync.Mutex

	// State
	mu         sync.RWMutex
	connected  bool
	lastPongAt time.Time
	closed     bool
}

// NewClient creates a new WebSocket client.
func NewClient(cfg ClientConfig, logger *slog.Logger) Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BufferSize < 1 {
		cfg.BufferSize = 1
	}

	return &client{
		cfg:      cfg,
		logger:   logger,
		messages: make(chan TimestampedMessage, cfg.BufferSize),
		errors:   make(chan error, 1),
		done:     make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrAlreadyClosed
	}
	c.mu.Unlock()

	endpoint, err := buildURL(c.cfg.URL, c.cfg.Token)
	if err != nil {
		return err
	}

	header := http.Header{}
	header.Set("Accept", "application/json")
	header.Set("User-Agent", version.UserAgent())

	dialer := websocket.Dialer{
		HandshakeTimeout: c.cfg.HandshakeTimeout,
	}

	conn, resp, err := dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial feed: %w (status %d)", err, resp.StatusCode)
		}
		return fmt.Errorf("dial feed: %w", err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		conn.Close()
		return ErrAlreadyClosed
	}
	c.conn = conn
	c.connected = true
	c.lastPongAt = time.Now()
	c.mu.Unlock()

	// Server pings count as liveness too.
	conn.SetPingHandler(func(data string) error {
		c.mu.Lock()
		c.lastPongAt = time.Now()
		c.mu.Unlock()

		c.writeMu.Lock()
		defer c.writeMu.Unlock()
		return conn.WriteControl(
			websocket.PongMessage,
			[]byte(data),
			time.Now().Add(time.Second),
		)
	})

	conn.SetPongHandler(func(data string) error {
		c.mu.Lock()
		c.lastPongAt = time.Now()
		c.mu.Unlock()
		return nil
	})

	go c.readLoop()
	if c.cfg.PingInterval > 0 {
		go c.heartbeatLoop()
	}

	c.logger.Debug("websocket connected", "url", redactToken(endpoint))

	return nil
}

// Close gracefully closes the connection.
func (c *client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.connected = false
	conn := c.conn
	c.mu.Unlock()

	// Signal goroutines to stop
	close(c.done)

	if conn != nil {
		c.writeMu.Lock()
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.writeMu.Unlock()
		return conn.Close()
	}

	return nil
}

// Send writes raw bytes to the connection.
func (c *client) Send(data []byte) error {
	c.mu.RLock()
	if !c.connected {
		c.mu.RUnlock()
		return ErrNotConnected
	}
	conn := c.conn
	c.mu.RUnlock()

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	return conn.WriteMessage(websocket.TextMessage, data)
}

// Messages returns the messages channel.
func (c *client) Messages() <-chan TimestampedMessage {
	return c.messages
}

// Errors returns the errors channel.
func (c *client) Errors() <-chan error {
	return c.errors
}

// IsConnected returns the current connection state.
func (c *client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected
}

// readLoop reads messages from the WebSocket and sends them to the messages channel.
func (c *client) readLoop() {
	defer func() {
		c.mu.Lock()
		c.connected = false
		c.mu.Unlock()
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		receivedAt := time.Now()

		if err != nil {
			// Ignore errors after Close() is called
			select {
			case <-c.done:
				return
			default:
				c.reportError(err)
				return
			}
		}

		msg := TimestampedMessage{
			Data:       data,
			ReceivedAt: receivedAt,
		}

		// Blocks when the consumer falls behind so frames keep their order.
		select {
		case c.messages <- msg:
		case <-c.done:
			return
		}
	}
}

// heartbeatLoop pings the server and watches for stale connections.
func (c *client) heartbeatLoop() {
	ticker := time.NewTicker(c.cfg.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.conn.WriteControl(websocket.PingMessage, []byte("keepalive"), time.Now().Add(c.cfg.WriteTimeout))
			c.writeMu.Unlock()
			if err != nil {
				c.logger.Debug("failed to send ping", "error", err)
			}

			c.mu.RLock()
			lastPong := c.lastPongAt
			c.mu.RUnlock()

			if c.cfg.PingTimeout > 0 && time.Since(lastPong) > c.cfg.PingTimeout {
				c.logger.Warn("no pong received, connection stale",
					"last_pong", lastPong,
					"timeout", c.cfg.PingTimeout,
				)
				c.reportError(ErrStaleConnection)
				// Unblock the read loop.
				c.conn.Close()
				return
			}
		}
	}
}

// reportError delivers the first connection error; later ones are dropped.
func (c *client) reportError(err error) {
	select {
	case c.errors <- err:
	default:
	}
}

// buildURL appends the credential as a token query parameter.
func buildURL(raw, token string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse feed url: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return "", fmt.Errorf("feed url scheme must be ws or wss, got %q", u.Scheme)
	}
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// redactToken hides the credential in log output.
func redactToken(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return "<invalid url>"
	}
	q := u.Query()
	if q.Has("token") {
		q.Set("token", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
