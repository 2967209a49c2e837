package feedsim

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rickgao/stockfeed/internal/model"
)

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 256
)

// client is one feed connection.
type client struct {
	server *Server
	conn   *websocket.Conn
	user   string
	send   chan []byte

	subs map[model.Key]struct{} // guarded by server.mu
}

// request is a client→server frame.
type request struct {
	Action string `json:"action"`
	Symbol string `json:"symbol"`
	Market string `json:"market"`
}

// readPump handles client requests until the connection drops.
func (c *client) readPump() {
	defer func() {
		c.server.unregister(c)
		c.conn.Close()
		c.server.logger.Info("websocket disconnected", "user", c.user)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	c.conn.SetPingHandler(func(data string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return c.conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.server.logger.Debug("websocket read error", "user", c.user, "error", err)
			}
			return
		}
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		c.handle(data)
	}
}

func (c *client) handle(data []byte) {
	var req request
	if err := json.Unmarshal(data, &req); err != nil {
		c.server.reply(c, errorMessage("Invalid JSON"))
		return
	}

	market := req.Market
	if market == "" {
		market = model.DefaultMarket
	}
	key := model.Key{Symbol: req.Symbol, Market: market}

	switch req.Action {
	case "subscribe":
		c.server.subscribe(c, key)
	case "unsubscribe":
		c.server.unsubscribe(c, key)
	case "ping":
		c.server.reply(c, pongMessage())
	default:
		c.server.reply(c, errorMessage("Unknown action: "+req.Action))
	}
}

// writePump drains the send queue and pings the client.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
