package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/rickgao/stockfeed/internal/feed"
	"github.com/rickgao/stockfeed/internal/model"
	"github.com/rickgao/stockfeed/internal/pricecache"
)

// Feed is the session surface the debug endpoints read from.
type Feed interface {
	Prices() pricecache.View
	Status() feed.Status
	SetDesired(keys []model.Key)
}

// Pinger checks a dependency. pgxpool.Pool satisfies it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configures optional endpoints.
type Options struct {
	Gatherer       prometheus.Gatherer // Serves MetricsPath when set
	MetricsPath    string              // Default: /metrics
	DB             Pinger              // Reported by /health when set
	AllowSubscribe bool                // Enables PUT /debug/subscriptions
	PingTimeout    time.Duration       // Default: 5s
}

// Server routes debug requests to a feed session.
type Server struct {
	engine *gin.Engine
	feed   Feed
	opts   Options
	logger *slog.Logger
}

// New builds the router. Call gin.SetMode before New to silence gin's
// debug output.
func New(f Feed, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}
	if opts.PingTimeout == 0 {
		opts.PingTimeout = 5 * time.Second
	}

	s := &Server{
		engine: gin.New(),
		feed:   f,
		opts:   opts,
		logger: logger.With("component", "httpapi"),
	}

	s.engine.Use(gin.Recovery(), requestLogger(s.logger))

	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/debug/status", s.handleStatus)
	s.engine.GET("/debug/prices", s.handlePrices)
	s.engine.GET("/debug/prices/:key", s.handlePrice)
	s.engine.GET("/debug/subscriptions", s.handleSubscriptions)
	s.engine.PUT("/debug/subscriptions", s.handleSetSubscriptions)

	if opts.Gatherer != nil {
		s.engine.GET(opts.MetricsPath, gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// requestLogger logs each request at debug, or warn for server errors.
func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelDebug
		if status >= http.StatusInternalServerError {
			level = slog.LevelWarn
		}
		logger.Log(c.Request.Context(), level, "http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"duration", time.Since(start),
		)
	}
}
