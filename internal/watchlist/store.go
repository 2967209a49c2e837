package watchlist

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rickgao/stockfeed/internal/model"
)

// Querier is the subset of pgxpool.Pool used by Store.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const userKeysQuery = `
	SELECT s.symbol, s.market
	FROM watchlists w
	JOIN stocks s ON w.stock_id = s.id
	WHERE w.user_id = $1
	ORDER BY w.created_at DESC
`

// Store reads watchlists from PostgreSQL.
type Store struct {
	db Querier
}

// NewStore creates a Store over db.
func NewStore(db Querier) *Store {
	return &Store{db: db}
}

// Keys returns the normalized keys on a user's watchlist, newest first.
func (s *Store) Keys(ctx context.Context, userID uuid.UUID) ([]model.Key, error) {
	rows, err := s.db.Query(ctx, userKeysQuery, userID)
	if err != nil {
		return nil, fmt.Errorf("query watchlist %s: %w", userID, err)
	}

	keys, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Key, error) {
		var symbol, market string
		if err := row.Scan(&symbol, &market); err != nil {
			return model.Key{}, err
		}
		return model.NewKey(symbol, market), nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan watchlist %s: %w", userID, err)
	}
	return keys, nil
}
