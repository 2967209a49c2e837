package connection

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/stockfeed/internal/version"
)

// mockWSServer creates a test WebSocket server.
func mockWSServer(t *testing.T, handler func(*http.Request, *websocket.Conn)) *httptest.Server {
	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer conn.Close()
		handler(r, conn)
	}))

	return server
}

func wsURL(server *httptest.Server) string {
	return "ws" + strings.TrimPrefix(server.URL, "http")
}

func testClientConfig(url string) ClientConfig {
	return ClientConfig{
		URL:              url,
		Token:            "test-token",
		HandshakeTimeout: 5 * time.Second,
		PingTimeout:      30 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       100,
	}
}

func drain(conn *websocket.Conn) {
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func TestClient_Connect(t *testing.T) {
	server := mockWSServer(t, func(r *http.Request, conn *websocket.Conn) {
		drain(conn)
	})
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)

	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if !client.IsConnected() {
		t.Error("expected IsConnected to return true")
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}

	if client.IsConnected() {
		t.Error("expected IsConnected to return false after Close")
	}
}

func TestClient_TokenQueryParam(t *testing.T) {
	tokens := make(chan string, 1)
	agents := make(chan string, 1)
	server := mockWSServer(t, func(r *http.Request, conn *websocket.Conn) {
		tokens <- r.URL.Query().Get("token")
		agents <- r.Header.Get("User-Agent")
		drain(conn)
	})
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)+"/ws"), nil)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	select {
	case got := <-tokens:
		if got != "test-token" {
			t.Errorf("token = %q, want %q", got, "test-token")
		}
	case <-time.After(time.Second):
		t.Fatal("server never saw the connection")
	}

	if got := <-agents; got != version.UserAgent() {
		t.Errorf("User-Agent = %q, want %q", got, version.UserAgent())
	}
}

func TestClient_Send(t *testing.T) {
	var received []byte
	var mu sync.Mutex

	server := mockWSServer(t, func(r *http.Request, conn *websocket.Conn) {
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			mu.Lock()
			received = msg
			mu.Unlock()
		}
	})
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	testMsg := []byte(`{"action":"subscribe","symbol":"AAPL","market":"us_nasdaq"}`)
	if err := client.Send(testMsg); err != nil {
		t.Errorf("Send failed: %v", err)
	}

	// Wait for message to be received
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if string(received) != string(testMsg) {
		t.Errorf("received %q, want %q", received, testMsg)
	}
}

func TestClient_Messages(t *testing.T) {
	testMessages := []string{
		`{"type":"price_update","symbol":"AAPL","current_price":100}`,
		`{"type":"price_update","symbol":"AAPL","current_price":101}`,
		`{"type":"pong"}`,
	}

	server := mockWSServer(t, func(r *http.Request, conn *websocket.Conn) {
		for _, msg := range testMessages {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		// Keep connection open
		time.Sleep(time.Second)
	})
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	var received []string
	timeout := time.After(500 * time.Millisecond)

	for i := 0; i < len(testMessages); i++ {
		select {
		case msg := <-client.Messages():
			received = append(received, string(msg.Data))
			if msg.ReceivedAt.IsZero() {
				t.Error("ReceivedAt should not be zero")
			}
		case <-timeout:
			t.Fatalf("timeout waiting for messages, received %d of %d", len(received), len(testMessages))
		}
	}

	for i, want := range testMessages {
		if received[i] != want {
			t.Errorf("message %d: got %q, want %q", i, received[i], want)
		}
	}
}

func TestClient_ErrorOnServerClose(t *testing.T) {
	server := mockWSServer(t, func(r *http.Request, conn *websocket.Conn) {
		// Return immediately; the deferred Close drops the connection.
	})
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	select {
	case err := <-client.Errors():
		if err == nil {
			t.Error("expected non-nil error")
		}
	case <-time.After(time.Second):
		t.Fatal("expected an error after server closed the connection")
	}
}

func TestClient_SendNotConnected(t *testing.T) {
	client := NewClient(testClientConfig("ws://localhost:12345"), nil)

	err := client.Send([]byte("test"))
	if err != ErrNotConnected {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}

func TestClient_ConnectAfterClose(t *testing.T) {
	client := NewClient(testClientConfig("ws://localhost:12345"), nil)
	client.Close()

	if err := client.Connect(context.Background()); err != ErrAlreadyClosed {
		t.Errorf("expected ErrAlreadyClosed, got %v", err)
	}
}

func TestClient_DoubleClose(t *testing.T) {
	server := mockWSServer(t, func(r *http.Request, conn *websocket.Conn) {
		time.Sleep(time.Second)
	})
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("first Close failed: %v", err)
	}

	if err := client.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
}

func TestClient_PingHandler(t *testing.T) {
	server := mockWSServer(t, func(r *http.Request, conn *websocket.Conn) {
		if err := conn.WriteControl(websocket.PingMessage, []byte("heartbeat"), time.Now().Add(time.Second)); err != nil {
			t.Logf("ping error: %v", err)
			return
		}
		time.Sleep(500 * time.Millisecond)
	})
	defer server.Close()

	client := NewClient(testClientConfig(wsURL(server)), nil)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	time.Sleep(200 * time.Millisecond)

	if !client.IsConnected() {
		t.Error("expected client to be connected after ping")
	}
}

func TestClient_StaleConnection(t *testing.T) {
	// The server never reads, so control frames (and pongs) are never processed.
	server := mockWSServer(t, func(r *http.Request, conn *websocket.Conn) {
		time.Sleep(2 * time.Second)
	})
	defer server.Close()

	cfg := testClientConfig(wsURL(server))
	cfg.PingInterval = 20 * time.Millisecond
	cfg.PingTimeout = 50 * time.Millisecond

	client := NewClient(cfg, nil)
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer client.Close()

	select {
	case err := <-client.Errors():
		if err != ErrStaleConnection {
			t.Errorf("error = %v, want ErrStaleConnection", err)
		}
	case <-time.After(time.Second):
		t.Fatal("expected stale connection error")
	}
}

func TestBuildURL(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		token   string
		want    string
		wantErr bool
	}{
		{"adds token", "ws://localhost:8000/ws", "abc", "ws://localhost:8000/ws?token=abc", false},
		{"keeps query", "wss://feed.example.com/ws?v=2", "abc", "wss://feed.example.com/ws?token=abc&v=2", false},
		{"escapes token", "ws://localhost/ws", "a+b/c", "ws://localhost/ws?token=a%2Bb%2Fc", false},
		{"no token", "ws://localhost/ws", "", "ws://localhost/ws", false},
		{"bad scheme", "http://localhost/ws", "abc", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildURL(tt.raw, tt.token)
			if tt.wantErr {
				if err == nil {
					t.Errorf("buildURL(%q) expected error", tt.raw)
				}
				return
			}
			if err != nil {
				t.Fatalf("buildURL(%q) failed: %v", tt.raw, err)
			}
			if got != tt.want {
				t.Errorf("buildURL(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestRedactToken(t *testing.T) {
	got := redactToken("ws://localhost/ws?token=secret")
	if strings.Contains(got, "secret") {
		t.Errorf("redactToken leaked credential: %q", got)
	}
}

func TestDefaultConfigs(t *testing.T) {
	clientCfg := DefaultClientConfig()
	if clientCfg.PingTimeout != 45*time.Second {
		t.Errorf("PingTimeout = %v, want 45s", clientCfg.PingTimeout)
	}
	if clientCfg.BufferSize != 1024 {
		t.Errorf("BufferSize = %d, want 1024", clientCfg.BufferSize)
	}

	mgrCfg := DefaultManagerConfig()
	if mgrCfg.Reconnect.Policy != PolicyExponential {
		t.Errorf("Reconnect.Policy = %q, want %q", mgrCfg.Reconnect.Policy, PolicyExponential)
	}
	if mgrCfg.DialTimeout != 15*time.Second {
		t.Errorf("DialTimeout = %v, want 15s", mgrCfg.DialTimeout)
	}
}
