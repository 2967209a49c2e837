package feed

import (
	"github.com/rickgao/stockfeed/internal/codec"
	"github.com/rickgao/stockfeed/internal/connection"
)

// handler receives connection events on the manager loop.
type handler struct {
	s *Session
}

func (h *handler) Wanted() bool {
	return !h.s.closed.Load() && h.s.registry.Len() > 0
}

func (h *handler) OnConnected(sender connection.Sender) {
	h.s.registry.OnConnectionEstablished(sender)
	h.s.publish()
}

func (h *handler) OnDisconnected(err error) {
	h.s.registry.OnConnectionLost()
	h.s.publish()
}

func (h *handler) OnMessage(msg connection.TimestampedMessage) {
	s := h.s
	ev := codec.Decode(msg.Data, msg.ReceivedAt)
	s.metrics.Event(ev.Kind())

	switch e := ev.(type) {
	case codec.PriceUpdate:
		key := e.Record.Key()
		// Keys outside the desired set never reach the cache.
		if !s.registry.Contains(key) {
			s.metrics.DroppedUpdate()
			s.logger.Debug("dropping update for undesired key", "key", key.String())
			return
		}
		s.cache.Put(e.Record)

	case codec.SubscriptionConfirmed:
		s.registry.OnConfirmed(e.Key)
		s.publish()
		s.logger.Debug("subscription confirmed", "symbol", e.Key.Symbol, "market", e.Key.Market)

	case codec.UnsubscriptionConfirmed:
		s.registry.OnUnconfirmed(e.Key)
		s.publish()
		s.logger.Debug("unsubscription confirmed", "symbol", e.Key.Symbol, "market", e.Key.Market)

	case codec.SubscriptionError:
		s.metrics.SubscriptionError()
		matched := s.registry.OnRejected(e.Key, e.Message)
		s.publish()
		s.logger.Warn("feed rejected request",
			"symbol", e.Key.Symbol,
			"market", e.Key.Market,
			"message", e.Message,
			"matched_keys", len(matched),
		)

	case codec.Keepalive:
		s.logger.Debug("keepalive received")

	case codec.DecodeError:
		s.metrics.DecodeError()
		s.logger.Warn("dropping malformed frame", "error", e.Err, "bytes", len(e.Raw))

	case codec.Unrecognized:
		s.logger.Debug("ignoring unrecognized frame", "type", e.Type)
	}
}
