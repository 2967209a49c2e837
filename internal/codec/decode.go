package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rickgao/stockfeed/internal/model"
)

var (
	errMissingType   = errors.New("missing type")
	errMissingSymbol = errors.New("missing symbol")
	errMissingMarket = errors.New("missing market")
	errMissingPrice  = errors.New("missing current_price")
)

// naiveISO matches Python's datetime.isoformat() without a zone offset.
const naiveISO = "2006-01-02T15:04:05.999999999"

// Decode parses one inbound frame. receivedAt is stamped on price records
// and used as their timestamp when the server omits one.
func Decode(data []byte, receivedAt time.Time) Event {
	var envelope messageEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return DecodeError{Err: err, Raw: data}
	}
	if envelope.Type == "" {
		return DecodeError{Err: errMissingType, Raw: data}
	}

	switch envelope.Type {
	case TypePriceUpdate:
		rec, err := decodePriceUpdate(data, receivedAt)
		if err != nil {
			return DecodeError{Err: fmt.Errorf("price_update: %w", err), Raw: data}
		}
		return PriceUpdate{Record: rec}

	case TypeSubscriptionConfirmed, TypeUnsubscriptionConfirmed:
		var wire controlWire
		if err := json.Unmarshal(data, &wire); err != nil {
			return DecodeError{Err: fmt.Errorf("%s: %w", envelope.Type, err), Raw: data}
		}
		if wire.Symbol == "" {
			return DecodeError{Err: fmt.Errorf("%s: %w", envelope.Type, errMissingSymbol), Raw: data}
		}
		key := model.Key{Symbol: wire.Symbol, Market: wire.Market}
		if envelope.Type == TypeSubscriptionConfirmed {
			return SubscriptionConfirmed{Key: key}
		}
		return UnsubscriptionConfirmed{Key: key}

	case TypePong:
		return Keepalive{}

	case TypeSubscriptionError, TypeError:
		var wire controlWire
		if err := json.Unmarshal(data, &wire); err != nil {
			return DecodeError{Err: fmt.Errorf("%s: %w", envelope.Type, err), Raw: data}
		}
		return SubscriptionError{
			Key:     model.Key{Symbol: wire.Symbol, Market: wire.Market},
			Message: wire.Message,
		}

	default:
		return Unrecognized{Type: envelope.Type}
	}
}

func decodePriceUpdate(data []byte, receivedAt time.Time) (model.PriceRecord, error) {
	var wire priceUpdateWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return model.PriceRecord{}, err
	}
	if wire.Symbol == "" {
		return model.PriceRecord{}, errMissingSymbol
	}
	if wire.Market == "" {
		return model.PriceRecord{}, errMissingMarket
	}
	if !wire.CurrentPrice.Valid {
		return model.PriceRecord{}, errMissingPrice
	}

	ts, err := parseTimestamp(wire.Timestamp)
	if err != nil {
		return model.PriceRecord{}, fmt.Errorf("timestamp: %w", err)
	}
	if ts.IsZero() {
		ts = receivedAt
	}

	// Null optional fields decode as zero.
	return model.PriceRecord{
		Symbol:        wire.Symbol,
		Market:        wire.Market,
		CurrentPrice:  wire.CurrentPrice.Decimal,
		PreviousClose: wire.PreviousClose.Decimal,
		Change:        wire.Change.Decimal,
		ChangePercent: wire.ChangePercent.Decimal,
		Timestamp:     ts,
		ReceivedAt:    receivedAt,
	}, nil
}

// parseTimestamp accepts RFC 3339, naive ISO-8601 (UTC), or a unix number
// in seconds or milliseconds. Absent or null yields the zero time.
func parseTimestamp(raw json.RawMessage) (time.Time, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return time.Time{}, nil
	}

	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return time.Time{}, err
		}
		if s == "" {
			return time.Time{}, nil
		}
		if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
			return t.UTC(), nil
		}
		t, err := time.ParseInLocation(naiveISO, s, time.UTC)
		if err != nil {
			return time.Time{}, err
		}
		return t, nil
	}

	n, err := strconv.ParseFloat(string(raw), 64)
	if err != nil {
		return time.Time{}, err
	}
	if n > 1e12 {
		return time.UnixMilli(int64(n)).UTC(), nil
	}
	sec := int64(n)
	nsec := int64((n - float64(sec)) * 1e9)
	return time.Unix(sec, nsec).UTC(), nil
}
