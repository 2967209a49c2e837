package codec

import (
	"encoding/json"
	"errors"

	"github.com/rickgao/stockfeed/internal/model"
)

// ErrEmptySymbol is returned when encoding a request for a key without a symbol.
var ErrEmptySymbol = errors.New("empty symbol")

// EncodeSubscribe builds a subscribe frame for key.
func EncodeSubscribe(key model.Key) ([]byte, error) {
	return encodeKeyed(ActionSubscribe, key)
}

// EncodeUnsubscribe builds an unsubscribe frame for key.
func EncodeUnsubscribe(key model.Key) ([]byte, error) {
	return encodeKeyed(ActionUnsubscribe, key)
}

// EncodeKeepalive builds an application-level ping frame.
// The server answers with {"type":"pong"}.
func EncodeKeepalive() ([]byte, error) {
	return json.Marshal(request{Action: ActionPing})
}

func encodeKeyed(action string, key model.Key) ([]byte, error) {
	if key.Symbol == "" {
		return nil, ErrEmptySymbol
	}
	return json.Marshal(request{
		Action: action,
		Symbol: key.Symbol,
		Market: key.Market,
	})
}
