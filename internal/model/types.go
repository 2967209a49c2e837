package model

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultMarket is used when a subscription omits its market.
const DefaultMarket = "india_nse"

// -----------------------------------------------------------------------------
// Subscription Keys
// -----------------------------------------------------------------------------

// Key identifies one streamed price series.
type Key struct {
	Symbol string // Ticker, e.g. "RELIANCE" or "AAPL"
	Market string // Market identifier, e.g. "india_nse", "us_nasdaq"
}

// NewKey builds a normalized key: symbol upper-cased, market lower-cased,
// empty market replaced by DefaultMarket.
func NewKey(symbol, market string) Key {
	market = strings.ToLower(strings.TrimSpace(market))
	if market == "" {
		market = DefaultMarket
	}
	return Key{
		Symbol: strings.ToUpper(strings.TrimSpace(symbol)),
		Market: market,
	}
}

// String renders the key as SYMBOL:market.
func (k Key) String() string {
	return k.Symbol + ":" + k.Market
}

// CompareKeys orders keys by symbol, then market.
func CompareKeys(a, b Key) int {
	if c := strings.Compare(a.Symbol, b.Symbol); c != 0 {
		return c
	}
	return strings.Compare(a.Market, b.Market)
}

// ParseKey parses "SYMBOL:market" (or a bare symbol) into a normalized key.
func ParseKey(s string) Key {
	symbol, market, _ := strings.Cut(s, ":")
	return NewKey(symbol, market)
}

// -----------------------------------------------------------------------------
// Price Records
// -----------------------------------------------------------------------------

// PriceRecord is the latest known price snapshot for one key.
// A newer record for the same key replaces the older one wholesale.
type PriceRecord struct {
	Symbol        string
	Market        string
	CurrentPrice  decimal.Decimal
	PreviousClose decimal.Decimal
	Change        decimal.Decimal
	ChangePercent decimal.Decimal
	Timestamp     time.Time // Server-assigned
	ReceivedAt    time.Time // Local receive time
}

// Key returns the subscription key for the record.
func (r PriceRecord) Key() Key {
	return Key{Symbol: r.Symbol, Market: r.Market}
}

// Age returns how long ago the record was received.
func (r PriceRecord) Age(now time.Time) time.Duration {
	if r.ReceivedAt.IsZero() {
		return 0
	}
	return now.Sub(r.ReceivedAt)
}

// -----------------------------------------------------------------------------
// Connection State
// -----------------------------------------------------------------------------

// ConnState is the state of the single feed connection.
type ConnState int

const (
	Disconnected ConnState = iota
	Connecting
	Connected
)

func (s ConnState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "unknown"
	}
}
