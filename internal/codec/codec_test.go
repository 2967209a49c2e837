package codec

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rickgao/stockfeed/internal/model"
)

func TestEncodeSubscribe(t *testing.T) {
	data, err := EncodeSubscribe(model.Key{Symbol: "AAPL", Market: "us_nasdaq"})
	if err != nil {
		t.Fatalf("EncodeSubscribe failed: %v", err)
	}

	want := `{"action":"subscribe","symbol":"AAPL","market":"us_nasdaq"}`
	if string(data) != want {
		t.Errorf("EncodeSubscribe = %s, want %s", data, want)
	}
}

func TestEncodeUnsubscribe(t *testing.T) {
	data, err := EncodeUnsubscribe(model.Key{Symbol: "TCS", Market: "india_nse"})
	if err != nil {
		t.Fatalf("EncodeUnsubscribe failed: %v", err)
	}

	want := `{"action":"unsubscribe","symbol":"TCS","market":"india_nse"}`
	if string(data) != want {
		t.Errorf("EncodeUnsubscribe = %s, want %s", data, want)
	}
}

func TestEncodeKeepalive(t *testing.T) {
	data, err := EncodeKeepalive()
	if err != nil {
		t.Fatalf("EncodeKeepalive failed: %v", err)
	}
	if string(data) != `{"action":"ping"}` {
		t.Errorf("EncodeKeepalive = %s", data)
	}
}

func TestEncode_EmptySymbol(t *testing.T) {
	if _, err := EncodeSubscribe(model.Key{Market: "us_nasdaq"}); !errors.Is(err, ErrEmptySymbol) {
		t.Errorf("expected ErrEmptySymbol, got %v", err)
	}
}

func TestDecode_PriceUpdate(t *testing.T) {
	receivedAt := time.Date(2025, 1, 15, 10, 0, 1, 0, time.UTC)
	data := `{"type":"price_update","symbol":"AAPL","market":"us_nasdaq",` +
		`"current_price":101.5,"previous_close":99.25,"change":2.25,"change_percent":2.267,` +
		`"timestamp":"2025-01-15T10:00:00.123456"}`

	ev := Decode([]byte(data), receivedAt)
	pu, ok := ev.(PriceUpdate)
	if !ok {
		t.Fatalf("Decode returned %T, want PriceUpdate", ev)
	}

	rec := pu.Record
	if rec.Symbol != "AAPL" || rec.Market != "us_nasdaq" {
		t.Errorf("key = %s:%s, want AAPL:us_nasdaq", rec.Symbol, rec.Market)
	}
	if !rec.CurrentPrice.Equal(decimal.RequireFromString("101.5")) {
		t.Errorf("CurrentPrice = %s, want 101.5", rec.CurrentPrice)
	}
	if !rec.PreviousClose.Equal(decimal.RequireFromString("99.25")) {
		t.Errorf("PreviousClose = %s, want 99.25", rec.PreviousClose)
	}
	if !rec.ChangePercent.Equal(decimal.RequireFromString("2.267")) {
		t.Errorf("ChangePercent = %s, want 2.267", rec.ChangePercent)
	}
	wantTS := time.Date(2025, 1, 15, 10, 0, 0, 123456000, time.UTC)
	if !rec.Timestamp.Equal(wantTS) {
		t.Errorf("Timestamp = %v, want %v", rec.Timestamp, wantTS)
	}
	if !rec.ReceivedAt.Equal(receivedAt) {
		t.Errorf("ReceivedAt = %v, want %v", rec.ReceivedAt, receivedAt)
	}
}

func TestDecode_PriceUpdateNullFields(t *testing.T) {
	receivedAt := time.Now().UTC()
	data := `{"type":"price_update","symbol":"TCS","market":"india_nse","current_price":"3850.10",` +
		`"previous_close":null,"change":null,"change_percent":null}`

	ev := Decode([]byte(data), receivedAt)
	pu, ok := ev.(PriceUpdate)
	if !ok {
		t.Fatalf("Decode returned %T, want PriceUpdate", ev)
	}
	if !pu.Record.PreviousClose.IsZero() {
		t.Errorf("PreviousClose = %s, want 0", pu.Record.PreviousClose)
	}
	if !pu.Record.Timestamp.Equal(receivedAt) {
		t.Errorf("Timestamp = %v, want fallback %v", pu.Record.Timestamp, receivedAt)
	}
}

func TestDecode_Timestamps(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want time.Time
	}{
		{"rfc3339", `"2025-01-15T10:00:00Z"`, time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)},
		{"rfc3339 offset", `"2025-01-15T15:30:00+05:30"`, time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)},
		{"naive", `"2025-01-15T10:00:00"`, time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)},
		{"unix seconds", `1736935200`, time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC)},
		{"unix millis", `1736935200500`, time.Date(2025, 1, 15, 10, 0, 0, 500000000, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTimestamp(json.RawMessage(tt.raw))
			if err != nil {
				t.Fatalf("parseTimestamp(%s) failed: %v", tt.raw, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("parseTimestamp(%s) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}

func TestDecode_Control(t *testing.T) {
	tests := []struct {
		name string
		data string
		want Event
	}{
		{
			name: "subscription confirmed symbol only",
			data: `{"type":"subscription_confirmed","symbol":"AAPL"}`,
			want: SubscriptionConfirmed{Key: model.Key{Symbol: "AAPL"}},
		},
		{
			name: "subscription confirmed with market",
			data: `{"type":"subscription_confirmed","symbol":"TCS","market":"india_nse"}`,
			want: SubscriptionConfirmed{Key: model.Key{Symbol: "TCS", Market: "india_nse"}},
		},
		{
			name: "unsubscription confirmed",
			data: `{"type":"unsubscription_confirmed","symbol":"TCS","market":"india_nse"}`,
			want: UnsubscriptionConfirmed{Key: model.Key{Symbol: "TCS", Market: "india_nse"}},
		},
		{
			name: "pong",
			data: `{"type":"pong"}`,
			want: Keepalive{},
		},
		{
			name: "subscription error",
			data: `{"type":"subscription_error","symbol":"NOPE","market":"us_nasdaq","message":"unknown symbol"}`,
			want: SubscriptionError{Key: model.Key{Symbol: "NOPE", Market: "us_nasdaq"}, Message: "unknown symbol"},
		},
		{
			name: "generic error",
			data: `{"type":"error","message":"Unknown action: foo"}`,
			want: SubscriptionError{Message: "Unknown action: foo"},
		},
		{
			name: "unrecognized",
			data: `{"type":"market_status","open":true}`,
			want: Unrecognized{Type: "market_status"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decode([]byte(tt.data), time.Now())
			if got != tt.want {
				t.Errorf("Decode = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", `{"type": "price_update"`},
		{"missing type", `{"symbol":"AAPL"}`},
		{"array", `[1,2,3]`},
		{"price missing symbol", `{"type":"price_update","market":"us_nasdaq","current_price":1}`},
		{"price missing market", `{"type":"price_update","symbol":"AAPL","current_price":1}`},
		{"price missing current", `{"type":"price_update","symbol":"AAPL","market":"us_nasdaq"}`},
		{"price bad number", `{"type":"price_update","symbol":"AAPL","market":"us_nasdaq","current_price":"abc"}`},
		{"price bad timestamp", `{"type":"price_update","symbol":"AAPL","market":"us_nasdaq","current_price":1,"timestamp":"yesterday"}`},
		{"confirm missing symbol", `{"type":"subscription_confirmed"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev := Decode([]byte(tt.data), time.Now())
			de, ok := ev.(DecodeError)
			if !ok {
				t.Fatalf("Decode returned %T, want DecodeError", ev)
			}
			if de.Err == nil {
				t.Error("DecodeError.Err is nil")
			}
			if string(de.Raw) != tt.data {
				t.Errorf("Raw = %q, want %q", de.Raw, tt.data)
			}
		})
	}
}

func TestEvent_Kind(t *testing.T) {
	tests := []struct {
		ev   Event
		want string
	}{
		{PriceUpdate{}, "price_update"},
		{SubscriptionConfirmed{}, "subscription_confirmed"},
		{UnsubscriptionConfirmed{}, "unsubscription_confirmed"},
		{Keepalive{}, "pong"},
		{SubscriptionError{}, "subscription_error"},
		{Unrecognized{}, "unrecognized"},
		{DecodeError{Err: errMissingType}, "decode_error"},
	}
	for _, tt := range tests {
		if got := tt.ev.Kind(); got != tt.want {
			t.Errorf("%T.Kind() = %q, want %q", tt.ev, got, tt.want)
		}
	}
}
