package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/retailpos/promo-engine/internal/domain/store"
)

const getStoreByIDSQL = `SELECT id, name, timezone FROM stores WHERE id = $1`

var _ store.Repository = (*StoreRepository)(nil)

// StoreRepository implements store.Repository backed by PostgreSQL.
type StoreRepository struct {
	pool *pgxpool.Pool
}

// NewStoreRepository returns a StoreRepository that uses the given pool.
func NewStoreRepository(pool *pgxpool.Pool) *StoreRepository {
	return &StoreRepository{pool: pool}
}

// GetByID returns a single store by its identifier.
func (r *StoreRepository) GetByID(ctx context.Context, id string) (*store.Store, error) {
	rows, err := r.pool.Query(ctx, getStoreByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting store %q: %w", id, err)
	}

	s, err := pgx.CollectExactlyOneRow(rows, func(row pgx.CollectableRow) (store.Store, error) {
		var s store.Store
		err := row.Scan(&s.ID, &s.Name, &s.Timezone)
		return s, err
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("getting store %q: %w", id, err)
	}
	return &s, nil
}
