package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/retailpos/promo-engine/internal/domain/promotion"
)

const (
	countByCustomerSQL = `SELECT COUNT(*) FROM promotion_usages
		WHERE promotion_id = $1 AND customer_id = $2`

	lockPromotionSQL = `SELECT customer_usage_limit FROM promotions
		WHERE id = $1 AND deleted_at IS NULL FOR UPDATE`

	// The usage_count guard makes check-and-increment a single atomic
	// statement; zero rows affected means the quota is gone.
	consumeQuotaSQL = `UPDATE promotions
		SET usage_count = usage_count + 1, updated_at = NOW()
		WHERE id = $1 AND (usage_limit IS NULL OR usage_count < usage_limit)`

	insertUsageSQL = `INSERT INTO promotion_usages (id, promotion_id, customer_id, discount_amount)
		VALUES ($1, $2, $3, $4)`
)

var _ promotion.UsageRepository = (*UsageRepository)(nil)

// UsageRepository implements the redemption ledger backed by PostgreSQL.
type UsageRepository struct {
	pool *pgxpool.Pool
}

// NewUsageRepository returns a UsageRepository that uses the given pool.
func NewUsageRepository(pool *pgxpool.Pool) *UsageRepository {
	return &UsageRepository{pool: pool}
}

// CountByCustomer returns the number of ledger rows for a promotion and customer.
func (r *UsageRepository) CountByCustomer(ctx context.Context, promotionID, customerID string) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, countByCustomerSQL, promotionID, customerID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting usage for promotion %q: %w", promotionID, err)
	}
	return count, nil
}

// Reserve consumes one unit of quota and appends a ledger row in a single
// transaction. The promotion row is locked first, so the per-customer count,
// the conditional counter update, and the insert observe a serialized view.
// Concurrent checkouts cannot push a limited promotion past its limits.
func (r *UsageRepository) Reserve(ctx context.Context, res *promotion.Reservation) error {
	return pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		var customerLimit int
		err := tx.QueryRow(ctx, lockPromotionSQL, res.PromotionID).Scan(&customerLimit)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return promotion.ErrNotFound
			}
			return fmt.Errorf("locking promotion %q: %w", res.PromotionID, err)
		}

		if res.CustomerID != "" && customerLimit > 0 {
			var used int
			err := tx.QueryRow(ctx, countByCustomerSQL, res.PromotionID, res.CustomerID).Scan(&used)
			if err != nil {
				return fmt.Errorf("counting customer usage: %w", err)
			}
			if used >= customerLimit {
				return promotion.ErrCustomerLimitReached
			}
		}

		tag, err := tx.Exec(ctx, consumeQuotaSQL, res.PromotionID)
		if err != nil {
			return fmt.Errorf("consuming quota for promotion %q: %w", res.PromotionID, err)
		}
		if tag.RowsAffected() == 0 {
			return promotion.ErrUsageLimitReached
		}

		var customerID any
		if res.CustomerID != "" {
			customerID = res.CustomerID
		}
		_, err = tx.Exec(ctx, insertUsageSQL,
			uuid.New().String(), res.PromotionID, customerID, res.DiscountAmount,
		)
		if err != nil {
			return fmt.Errorf("recording usage for promotion %q: %w", res.PromotionID, err)
		}
		return nil
	})
}
