package feedsim

import (
	"context"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/rickgao/stockfeed/internal/auth"
	"github.com/rickgao/stockfeed/internal/model"
)

// Config configures the simulated feed.
type Config struct {
	Secret        []byte                        // HS256 secret; empty accepts any non-empty token
	TickInterval  time.Duration                 // Interval between price pushes
	Seeds         map[model.Key]decimal.Decimal // Opening prices
	DefaultPrice  decimal.Decimal               // Opening price for keys without a seed
	RejectUnknown bool                          // Reject subscriptions for keys without a seed
	RandSeed      int64                         // Random walk seed; 0 uses the clock
}

// DefaultConfig returns the defaults used by cmd/mockfeed.
func DefaultConfig() Config {
	return Config{
		TickInterval: 5 * time.Second,
		DefaultPrice: decimal.NewFromInt(100),
	}
}

// quote is the simulated state of one key.
type quote struct {
	previousClose decimal.Decimal
	current       decimal.Decimal
}

// Server is the simulated feed.
type Server struct {
	cfg      Config
	logger   *slog.Logger
	engine   *gin.Engine
	upgrader websocket.Upgrader

	mu      sync.Mutex
	rng     *rand.Rand
	quotes  map[model.Key]*quote
	clients map[*client]struct{}
}

// New creates a simulated feed server.
func New(cfg Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultConfig().TickInterval
	}
	if cfg.DefaultPrice.IsZero() {
		cfg.DefaultPrice = DefaultConfig().DefaultPrice
	}
	seed := cfg.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s := &Server{
		cfg:    cfg,
		logger: logger.With("component", "feedsim"),
		engine: gin.New(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		rng:     rand.New(rand.NewSource(seed)),
		quotes:  make(map[model.Key]*quote),
		clients: make(map[*client]struct{}),
	}
	for k, p := range cfg.Seeds {
		s.quotes[k] = &quote{previousClose: p, current: p}
	}

	s.engine.Use(gin.Recovery())
	s.engine.GET("/ws", s.handleWebSocket)
	s.engine.GET("/health", s.handleHealth)

	return s
}

// Handler returns the HTTP handler serving /ws and /health.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run pushes price updates every tick until ctx is done, then closes all
// connections.
func (s *Server) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.TickInterval)
	defer ticker.Stop()

	s.logger.Info("simulated feed running", "tick_interval", s.cfg.TickInterval)

	for {
		select {
		case <-ctx.Done():
			s.CloseAll()
			return nil
		case <-ticker.C:
			s.Tick()
		}
	}
}

// Tick advances the price of every subscribed key once and pushes the new
// price to its subscribers.
func (s *Server) Tick() {
	s.mu.Lock()
	defer s.mu.Unlock()

	subscribers := make(map[model.Key][]*client)
	for c := range s.clients {
		for k := range c.subs {
			subscribers[k] = append(subscribers[k], c)
		}
	}

	for k, clients := range subscribers {
		s.advanceLocked(k)
		msg := s.priceMessageLocked(k)
		for _, c := range clients {
			s.sendLocked(c, msg)
		}
	}
}

// SetPrice forces the current price of key and pushes it to subscribers.
func (s *Server) SetPrice(key model.Key, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.quoteLocked(key)
	q.current = price

	msg := s.priceMessageLocked(key)
	for c := range s.clients {
		if _, ok := c.subs[key]; ok {
			s.sendLocked(c, msg)
		}
	}
}

// Broadcast sends a raw frame to every connection.
func (s *Server) Broadcast(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for c := range s.clients {
		s.sendLocked(c, data)
	}
}

// Subscriptions returns the keys subscribed on any connection.
func (s *Server) Subscriptions() map[model.Key]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(map[model.Key]int)
	for c := range s.clients {
		for k := range c.subs {
			out[k]++
		}
	}
	return out
}

// Connections returns the number of open connections.
func (s *Server) Connections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// CloseAll drops every connection and returns how many were closed.
func (s *Server) CloseAll() int {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
		s.removeLocked(c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		c.conn.Close()
	}
	return len(clients)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"connections": s.Connections(),
	})
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("failed to upgrade websocket", "error", err)
		return
	}

	// Authenticate after accepting, closing with a policy violation on
	// failure, as the production feed does.
	user, reason := s.authenticate(c.Query("token"))
	if reason != "" {
		s.logger.Warn("websocket auth failed", "reason", reason, "client", c.ClientIP())
		conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason),
			time.Now().Add(writeWait),
		)
		conn.Close()
		return
	}

	cl := &client{
		server: s,
		conn:   conn,
		user:   user,
		send:   make(chan []byte, sendBuffer),
		subs:   make(map[model.Key]struct{}),
	}

	s.mu.Lock()
	s.clients[cl] = struct{}{}
	s.mu.Unlock()

	s.logger.Info("websocket connected", "user", user)

	go cl.writePump()
	go cl.readPump()
}

// authenticate returns the token subject, or a close reason.
func (s *Server) authenticate(token string) (user, reason string) {
	if token == "" {
		return "", "No token provided"
	}
	if len(s.cfg.Secret) == 0 {
		return "anonymous", ""
	}
	claims, err := auth.Verify(s.cfg.Secret, token)
	if err != nil {
		return "", "Invalid token or user not found"
	}
	return claims.Subject, ""
}

// subscribe registers key for c and sends its current price followed by
// the confirmation.
func (s *Server) subscribe(c *client, key model.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[c]; !ok {
		return
	}
	if _, known := s.quotes[key]; !known && s.cfg.RejectUnknown {
		s.sendLocked(c, subscriptionErrorMessage(key, "Stock not found: "+key.Symbol))
		return
	}

	c.subs[key] = struct{}{}
	s.sendLocked(c, s.priceMessageLocked(key))
	s.sendLocked(c, controlMessage(typeSubscriptionConfirmed, key))
}

func (s *Server) unsubscribe(c *client, key model.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.clients[c]; !ok {
		return
	}
	delete(c.subs, key)
	s.sendLocked(c, controlMessage(typeUnsubscriptionConfirmed, key))
}

func (s *Server) reply(c *client, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sendLocked(c, data)
}

func (s *Server) unregister(c *client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(c)
}

func (s *Server) removeLocked(c *client) {
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.send)
	}
}

// sendLocked queues data for c, dropping clients that fall too far behind.
func (s *Server) sendLocked(c *client, data []byte) {
	if _, ok := s.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
		s.logger.Warn("client too slow, disconnecting", "user", c.user)
		s.removeLocked(c)
	}
}

func (s *Server) quoteLocked(key model.Key) *quote {
	q, ok := s.quotes[key]
	if !ok {
		q = &quote{previousClose: s.cfg.DefaultPrice, current: s.cfg.DefaultPrice}
		s.quotes[key] = q
	}
	return q
}

// advanceLocked moves the price of key by up to half a percent either way.
func (s *Server) advanceLocked(key model.Key) {
	q := s.quoteLocked(key)
	step := decimal.NewFromFloat((s.rng.Float64()*2 - 1) * 0.005)
	next := q.current.Mul(decimal.NewFromInt(1).Add(step)).Round(2)
	if next.IsPositive() {
		q.current = next
	}
}

func (s *Server) priceMessageLocked(key model.Key) []byte {
	q := s.quoteLocked(key)
	return priceMessage(key, q.current, q.previousClose, time.Now().UTC())
}
