package codec

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/rickgao/stockfeed/internal/model"
)

// Request actions.
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
	ActionPing        = "ping"
)

// Inbound message types.
const (
	TypePriceUpdate             = "price_update"
	TypeSubscriptionConfirmed   = "subscription_confirmed"
	TypeUnsubscriptionConfirmed = "unsubscription_confirmed"
	TypePong                    = "pong"
	TypeSubscriptionError       = "subscription_error"
	TypeError                   = "error"
)

// Event is a decoded inbound frame. The concrete type is one of
// PriceUpdate, SubscriptionConfirmed, UnsubscriptionConfirmed, Keepalive,
// SubscriptionError, Unrecognized or DecodeError.
type Event interface {
	// Kind returns a short label, used for logging and metrics.
	Kind() string
}

// PriceUpdate carries a full price record for one key.
type PriceUpdate struct {
	Record model.PriceRecord
}

// SubscriptionConfirmed acknowledges a subscribe. Key.Market may be empty
// when the server only echoes the symbol.
type SubscriptionConfirmed struct {
	Key model.Key
}

// UnsubscriptionConfirmed acknowledges an unsubscribe.
type UnsubscriptionConfirmed struct {
	Key model.Key
}

// Keepalive is the server's answer to a ping.
type Keepalive struct{}

// SubscriptionError reports a rejected request. Key is zero when the error
// is not tied to a symbol (e.g. unknown action).
type SubscriptionError struct {
	Key     model.Key
	Message string
}

// Unrecognized is a well-formed frame with an unknown type.
type Unrecognized struct {
	Type string
}

// DecodeError is a frame that could not be parsed.
type DecodeError struct {
	Err error
	Raw []byte
}

func (PriceUpdate) Kind() string             { return TypePriceUpdate }
func (SubscriptionConfirmed) Kind() string   { return TypeSubscriptionConfirmed }
func (UnsubscriptionConfirmed) Kind() string { return TypeUnsubscriptionConfirmed }
func (Keepalive) Kind() string               { return TypePong }
func (SubscriptionError) Kind() string       { return TypeSubscriptionError }
func (Unrecognized) Kind() string            { return "unrecognized" }
func (DecodeError) Kind() string             { return "decode_error" }

// Error implements error so a DecodeError can be logged directly.
func (e DecodeError) Error() string {
	return "decode frame: " + e.Err.Error()
}

// Wire types for JSON encoding/decoding

// request is the client→server frame.
type request struct {
	Action string `json:"action"`
	Symbol string `json:"symbol,omitempty"`
	Market string `json:"market,omitempty"`
}

// messageEnvelope is used for type extraction.
type messageEnvelope struct {
	Type string `json:"type"`
}

// priceUpdateWire is the wire format for price_update messages.
type priceUpdateWire struct {
	Type          string              `json:"type"`
	Symbol        string              `json:"symbol"`
	Market        string              `json:"market"`
	CurrentPrice  decimal.NullDecimal `json:"current_price"`
	PreviousClose decimal.NullDecimal `json:"previous_close"`
	Change        decimal.NullDecimal `json:"change"`
	ChangePercent decimal.NullDecimal `json:"change_percent"`
	Timestamp     json.RawMessage     `json:"timestamp"`
}

// controlWire covers confirmations and errors.
type controlWire struct {
	Type    string `json:"type"`
	Symbol  string `json:"symbol"`
	Market  string `json:"market"`
	Message string `json:"message"`
}
