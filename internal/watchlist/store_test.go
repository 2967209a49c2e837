package watchlist

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rickgao/stockfeed/internal/model"
)

// fakeRows serves fixed (symbol, market) rows.
type fakeRows struct {
	rows    [][2]string
	pos     int
	err     error
	closed  bool
	scanErr error
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.pos >= len(r.rows) {
		return false
	}
	r.pos++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	row := r.rows[r.pos-1]
	*dest[0].(*string) = row[0]
	*dest[1].(*string) = row[1]
	return nil
}

// fakeQuerier records the query and returns canned rows.
type fakeQuerier struct {
	rows    *fakeRows
	err     error
	gotSQL  string
	gotArgs []any
}

func (q *fakeQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.gotSQL = sql
	q.gotArgs = args
	if q.err != nil {
		return nil, q.err
	}
	return q.rows, nil
}

func TestStore_Keys(t *testing.T) {
	user := uuid.New()
	q := &fakeQuerier{rows: &fakeRows{rows: [][2]string{
		{"tcs", "india_nse"},
		{"AAPL", "US"},
		{"infy", ""},
	}}}

	keys, err := NewStore(q).Keys(context.Background(), user)
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}

	want := []model.Key{
		{Symbol: "TCS", Market: "india_nse"},
		{Symbol: "AAPL", Market: "us"},
		{Symbol: "INFY", Market: model.DefaultMarket},
	}
	if len(keys) != len(want) {
		t.Fatalf("len(keys) = %d, want %d", len(keys), len(want))
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("keys[%d] = %v, want %v", i, keys[i], want[i])
		}
	}

	if !strings.Contains(q.gotSQL, "WHERE w.user_id = $1") {
		t.Errorf("query missing user filter: %s", q.gotSQL)
	}
	if len(q.gotArgs) != 1 || q.gotArgs[0] != user {
		t.Errorf("args = %v, want [%v]", q.gotArgs, user)
	}
	if !q.rows.closed {
		t.Error("rows not closed")
	}
}

func TestStore_KeysEmpty(t *testing.T) {
	q := &fakeQuerier{rows: &fakeRows{}}

	keys, err := NewStore(q).Keys(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("Keys failed: %v", err)
	}
	if len(keys) != 0 {
		t.Errorf("len(keys) = %d, want 0", len(keys))
	}
}

func TestStore_KeysErrors(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name    string
		q       *fakeQuerier
		wantMsg string
	}{
		{"query", &fakeQuerier{err: boom}, "query watchlist"},
		{"scan", &fakeQuerier{rows: &fakeRows{rows: [][2]string{{"TCS", "india_nse"}}, scanErr: boom}}, "scan watchlist"},
		{"rows", &fakeQuerier{rows: &fakeRows{err: boom}}, "scan watchlist"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStore(tt.q).Keys(context.Background(), uuid.New())
			if !errors.Is(err, boom) {
				t.Fatalf("Keys() error = %v, want wrapped boom", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("Keys() error = %q, want prefix %q", err, tt.wantMsg)
			}
		})
	}
}
