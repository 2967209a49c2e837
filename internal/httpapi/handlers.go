package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/rickgao/stockfeed/internal/model"
	"github.com/rickgao/stockfeed/internal/version"
)

// Health status values.
const (
	statusHealthy   = "healthy"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

type healthResponse struct {
	Status     string         `json:"status"`
	Version    version.Info   `json:"version"`
	Components map[string]any `json:"components"`
}

type priceResponse struct {
	Symbol        string          `json:"symbol"`
	Market        string          `json:"market"`
	CurrentPrice  decimal.Decimal `json:"current_price"`
	PreviousClose decimal.Decimal `json:"previous_close"`
	Change        decimal.Decimal `json:"change"`
	ChangePercent decimal.Decimal `json:"change_percent"`
	Timestamp     time.Time       `json:"timestamp"`
	ReceivedAt    time.Time       `json:"received_at"`
	AgeSeconds    float64         `json:"age_seconds"`
}

type statusResponse struct {
	SessionID           string            `json:"session_id"`
	State               string            `json:"state"`
	Connected           bool              `json:"connected"`
	Reason              string            `json:"reason,omitempty"`
	Attempts            int               `json:"attempts"`
	ConsecutiveFailures int               `json:"consecutive_failures"`
	LastError           string            `json:"last_error,omitempty"`
	ConnectedAt         *time.Time        `json:"connected_at,omitempty"`
	NextRetryAt         *time.Time        `json:"next_retry_at,omitempty"`
	Desired             []string          `json:"desired"`
	Confirmed           []string          `json:"confirmed"`
	Rejected            map[string]string `json:"rejected"`
	CachedPrices        int               `json:"cached_prices"`
}

type subscriptionsRequest struct {
	Keys []string `json:"keys"`
}

func (s *Server) handleHealth(c *gin.Context) {
	st := s.feed.Status()

	health := healthResponse{
		Status:     statusHealthy,
		Version:    version.Get(),
		Components: make(map[string]any),
	}

	feedComponent := map[string]any{
		"state":   st.State.String(),
		"desired": len(st.Desired),
		"cached":  st.CachedPrices,
	}
	if st.LastError != "" {
		feedComponent["last_error"] = st.LastError
	}
	health.Components["feed"] = feedComponent

	// Retries continue in the background, so a lost feed only degrades.
	if len(st.Desired) > 0 && !st.Connected {
		health.Status = statusDegraded
	}

	if s.opts.DB != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), s.opts.PingTimeout)
		defer cancel()

		if err := s.opts.DB.Ping(ctx); err != nil {
			health.Status = statusUnhealthy
			health.Components["database"] = map[string]string{
				"status": "disconnected",
				"error":  err.Error(),
			}
		} else {
			health.Components["database"] = "connected"
		}
	}

	code := http.StatusOK
	if health.Status == statusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, health)
}

func (s *Server) handleStatus(c *gin.Context) {
	st := s.feed.Status()

	resp := statusResponse{
		SessionID:           st.SessionID,
		State:               st.State.String(),
		Connected:           st.Connected,
		Reason:              st.Reason,
		Attempts:            st.Attempts,
		ConsecutiveFailures: st.ConsecutiveFailures,
		LastError:           st.LastError,
		Desired:             keyStrings(st.Desired),
		Confirmed:           keyStrings(st.Confirmed),
		Rejected:            make(map[string]string, len(st.Rejected)),
		CachedPrices:        st.CachedPrices,
	}
	if !st.ConnectedAt.IsZero() {
		resp.ConnectedAt = &st.ConnectedAt
	}
	if !st.NextRetryAt.IsZero() {
		resp.NextRetryAt = &st.NextRetryAt
	}
	for k, msg := range st.Rejected {
		resp.Rejected[k.String()] = msg
	}

	c.JSON(http.StatusOK, resp)
}

// handlePrices lists cached prices, optionally filtered by ?symbol= and ?market=.
func (s *Server) handlePrices(c *gin.Context) {
	symbol := c.Query("symbol")
	market := c.Query("market")
	now := time.Now()

	snap := s.feed.Prices().Snapshot()
	keys := make([]model.Key, 0, len(snap))
	for k := range snap {
		if symbol != "" && k.Symbol != symbol {
			continue
		}
		if market != "" && k.Market != market {
			continue
		}
		keys = append(keys, k)
	}
	slices.SortFunc(keys, model.CompareKeys)

	prices := make([]priceResponse, 0, len(keys))
	for _, k := range keys {
		prices = append(prices, toPriceResponse(snap[k], now))
	}

	c.JSON(http.StatusOK, gin.H{
		"count":  len(prices),
		"prices": prices,
	})
}

// handlePrice returns one record addressed as SYMBOL:market. The key is
// matched exactly.
func (s *Server) handlePrice(c *gin.Context) {
	raw := c.Param("key")
	symbol, market, ok := cutKey(raw)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key must be SYMBOL:market"})
		return
	}

	rec, found := s.feed.Prices().Get(symbol, market)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "no price for " + raw})
		return
	}
	c.JSON(http.StatusOK, toPriceResponse(rec, time.Now()))
}

func (s *Server) handleSubscriptions(c *gin.Context) {
	st := s.feed.Status()
	rejected := make(map[string]string, len(st.Rejected))
	for k, msg := range st.Rejected {
		rejected[k.String()] = msg
	}
	c.JSON(http.StatusOK, gin.H{
		"desired":   keyStrings(st.Desired),
		"confirmed": keyStrings(st.Confirmed),
		"rejected":  rejected,
	})
}

// handleSetSubscriptions replaces the desired set with the posted keys.
func (s *Server) handleSetSubscriptions(c *gin.Context) {
	if !s.opts.AllowSubscribe {
		c.JSON(http.StatusForbidden, gin.H{"error": "subscription changes are disabled"})
		return
	}

	var req subscriptionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	keys := make([]model.Key, 0, len(req.Keys))
	for _, raw := range req.Keys {
		k := model.ParseKey(raw)
		if k.Symbol == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("empty symbol in %q", raw)})
			return
		}
		keys = append(keys, k)
	}

	s.feed.SetDesired(keys)
	s.logger.Info("desired set replaced over http", "keys", len(keys))

	c.JSON(http.StatusAccepted, gin.H{"desired": keyStrings(keys)})
}

func toPriceResponse(rec model.PriceRecord, now time.Time) priceResponse {
	return priceResponse{
		Symbol:        rec.Symbol,
		Market:        rec.Market,
		CurrentPrice:  rec.CurrentPrice,
		PreviousClose: rec.PreviousClose,
		Change:        rec.Change,
		ChangePercent: rec.ChangePercent,
		Timestamp:     rec.Timestamp,
		ReceivedAt:    rec.ReceivedAt,
		AgeSeconds:    rec.Age(now).Seconds(),
	}
}

func keyStrings(keys []model.Key) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		out[i] = k.String()
	}
	return out
}

func cutKey(raw string) (symbol, market string, ok bool) {
	symbol, market, ok = strings.Cut(raw, ":")
	return symbol, market, ok && symbol != "" && market != ""
}
