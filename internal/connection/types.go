package connection

import (
	"errors"
	"time"

	"github.com/rickgao/stockfeed/internal/model"
)

// Errors
var (
	ErrNotConnected     = errors.New("not connected")
	ErrStaleConnection  = errors.New("connection stale (no pong)")
	ErrAlreadyClosed    = errors.New("already closed")
	ErrConnectionClosed = errors.New("connection closed")
	ErrNoCredential     = errors.New("no credential available")
)

// Status reasons explain why the manager is not connected.
const (
	ReasonNone         = ""
	ReasonIdle         = "idle"          // Handler does not want a connection
	ReasonNoCredential = "no_credential" // Credential missing; no attempts are made
	ReasonRetrying     = "retrying"      // Reconnect timer pending
	ReasonClosed       = "closed"        // Manager stopped
)

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL              string        // Feed URL (e.g., wss://api.example.com/ws)
	Token            string        // Bearer credential, sent as ?token= query parameter
	HandshakeTimeout time.Duration // Max time for the WebSocket handshake
	PingInterval     time.Duration // Interval between client pings
	PingTimeout      time.Duration // Max time without pong before considering connection stale
	WriteTimeout     time.Duration // Write deadline for sends
	BufferSize       int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     15 * time.Second,
		PingTimeout:      45 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       1024,
	}
}

// ManagerConfig configures the Connection Manager.
type ManagerConfig struct {
	Reconnect         ReconnectConfig
	DialTimeout       time.Duration // Upper bound on a single connection attempt
	KeepaliveInterval time.Duration // Application-level ping frames; 0 disables
	CommandBufferSize int           // Capacity of the posted-work queue
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Reconnect:         DefaultReconnectConfig(),
		DialTimeout:       15 * time.Second,
		CommandBufferSize: 64,
	}
}

// Status is a point-in-time view of the connection.
type Status struct {
	State               model.ConnState
	Reason              string
	Attempts            int       // Connection attempts since start
	ConsecutiveFailures int       // Failed or short-lived connections since the last stable one
	LastError           string    // Most recent transport or credential error
	ConnectedAt         time.Time // When the current/last connection opened
	NextRetryAt         time.Time // Zero unless a retry is pending
}
