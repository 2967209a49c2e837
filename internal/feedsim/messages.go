package feedsim

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/stockfeed/internal/model"
)

const (
	typePriceUpdate             = "price_update"
	typeSubscriptionConfirmed   = "subscription_confirmed"
	typeUnsubscriptionConfirmed = "unsubscription_confirmed"
	typeSubscriptionError       = "subscription_error"
	typeError                   = "error"
	typePong                    = "pong"
)

// pythonISO is the zone-less layout of Python's datetime.isoformat().
const pythonISO = "2006-01-02T15:04:05.000000"

type priceWire struct {
	Type          string      `json:"type"`
	Symbol        string      `json:"symbol"`
	Market        string      `json:"market"`
	CurrentPrice  json.Number `json:"current_price"`
	PreviousClose json.Number `json:"previous_close"`
	Change        json.Number `json:"change"`
	ChangePercent json.Number `json:"change_percent"`
	Timestamp     string      `json:"timestamp"`
}

type controlWire struct {
	Type    string `json:"type"`
	Symbol  string `json:"symbol,omitempty"`
	Market  string `json:"market,omitempty"`
	Message string `json:"message,omitempty"`
}

var hundred = decimal.NewFromInt(100)

func priceMessage(key model.Key, current, previousClose decimal.Decimal, at time.Time) []byte {
	change := current.Sub(previousClose)
	pct := decimal.Zero
	if !previousClose.IsZero() {
		pct = change.Div(previousClose).Mul(hundred).Round(2)
	}

	return mustMarshal(priceWire{
		Type:          typePriceUpdate,
		Symbol:        key.Symbol,
		Market:        key.Market,
		CurrentPrice:  json.Number(current.String()),
		PreviousClose: json.Number(previousClose.String()),
		Change:        json.Number(change.String()),
		ChangePercent: json.Number(pct.String()),
		Timestamp:     at.Format(pythonISO),
	})
}

func controlMessage(typ string, key model.Key) []byte {
	return mustMarshal(controlWire{Type: typ, Symbol: key.Symbol, Market: key.Market})
}

func subscriptionErrorMessage(key model.Key, message string) []byte {
	return mustMarshal(controlWire{
		Type:    typeSubscriptionError,
		Symbol:  key.Symbol,
		Market:  key.Market,
		Message: message,
	})
}

func errorMessage(message string) []byte {
	return mustMarshal(controlWire{Type: typeError, Message: message})
}

func pongMessage() []byte {
	return mustMarshal(controlWire{Type: typePong})
}

// mustMarshal encodes wire structs, which contain only strings and numbers.
func mustMarshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return data
}
