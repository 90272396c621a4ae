package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/retailpos/promo-engine/internal/domain/promotion"
)

const promotionColumns = `p.id, p.store_id, p.name, p.description, p.type,
	p.discount_value, p.minimum_purchase, p.maximum_discount,
	p.start_date, p.end_date, p.usage_limit, p.usage_count, p.customer_usage_limit,
	p.is_active, p.applicable_categories, p.applicable_products,
	p.buy_quantity, p.get_quantity, p.get_discount_type, p.get_discount_value,
	p.schedule_kind, p.active_days, p.active_time_start, p.active_time_end, p.specific_dates,
	p.deleted_at, p.created_at, p.updated_at`

const (
	findByCodeSQL = `SELECT ` + promotionColumns + `,
		dc.id, dc.promotion_id, dc.code, dc.is_active, dc.created_at
		FROM discount_codes dc
		JOIN promotions p ON p.id = dc.promotion_id
		WHERE UPPER(dc.code) = UPPER($2) AND dc.is_active = TRUE
		  AND p.store_id = $1 AND p.is_active = TRUE AND p.deleted_at IS NULL`

	getPromotionSQL = `SELECT ` + promotionColumns + `
		FROM promotions p WHERE p.id = $1 AND p.deleted_at IS NULL`

	listPromotionsSQL = `SELECT ` + promotionColumns + `
		FROM promotions p WHERE p.store_id = $1 AND p.deleted_at IS NULL
		ORDER BY p.created_at DESC`

	insertPromotionSQL = `INSERT INTO promotions (
		id, store_id, name, description, type,
		discount_value, minimum_purchase, maximum_discount,
		start_date, end_date, usage_limit, customer_usage_limit, is_active,
		applicable_categories, applicable_products,
		buy_quantity, get_quantity, get_discount_type, get_discount_value,
		schedule_kind, active_days, active_time_start, active_time_end, specific_dates
	) VALUES (
		$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13,
		$14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24
	)`

	updatePromotionSQL = `UPDATE promotions SET
		name = $2, description = $3, type = $4,
		discount_value = $5, minimum_purchase = $6, maximum_discount = $7,
		start_date = $8, end_date = $9, usage_limit = $10, customer_usage_limit = $11,
		is_active = $12, applicable_categories = $13, applicable_products = $14,
		buy_quantity = $15, get_quantity = $16, get_discount_type = $17, get_discount_value = $18,
		schedule_kind = $19, active_days = $20, active_time_start = $21, active_time_end = $22,
		specific_dates = $23, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	softDeletePromotionSQL = `UPDATE promotions SET deleted_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL`

	insertCodeSQL = `INSERT INTO discount_codes (id, promotion_id, code, is_active)
		VALUES ($1, $2, $3, $4)`

	promotionStatsSQL = `SELECT COUNT(*),
		COALESCE(SUM(discount_amount), 0),
		COUNT(DISTINCT customer_id)
		FROM promotion_usages WHERE promotion_id = $1`
)

var _ promotion.Repository = (*PromotionRepository)(nil)

// PromotionRepository implements promotion lookup and the administrative
// persistence surface backed by PostgreSQL.
type PromotionRepository struct {
	pool *pgxpool.Pool
}

// NewPromotionRepository returns a PromotionRepository that uses the given pool.
func NewPromotionRepository(pool *pgxpool.Pool) *PromotionRepository {
	return &PromotionRepository{pool: pool}
}

// FindByCode resolves a discount code (case-insensitive) to its owning
// promotion within a store. Inactive codes, inactive promotions, and
// soft-deleted promotions never match.
func (r *PromotionRepository) FindByCode(ctx context.Context, storeID, code string) (*promotion.Promotion, *promotion.DiscountCode, error) {
	rows, err := r.pool.Query(ctx, findByCodeSQL, storeID, code)
	if err != nil {
		return nil, nil, fmt.Errorf("finding promotion by code %q: %w", code, err)
	}

	row, err := pgx.CollectExactlyOneRow(rows, scanPromotionWithCode)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, promotion.ErrCodeNotFound
		}
		return nil, nil, fmt.Errorf("finding promotion by code %q: %w", code, err)
	}
	return row.promo, row.code, nil
}

// GetByID returns a single non-deleted promotion.
func (r *PromotionRepository) GetByID(ctx context.Context, id string) (*promotion.Promotion, error) {
	rows, err := r.pool.Query(ctx, getPromotionSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting promotion %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanPromotion)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, promotion.ErrNotFound
		}
		return nil, fmt.Errorf("getting promotion %q: %w", id, err)
	}
	return &p, nil
}

// ListByStore returns all non-deleted promotions for a store, newest first.
func (r *PromotionRepository) ListByStore(ctx context.Context, storeID string) ([]promotion.Promotion, error) {
	rows, err := r.pool.Query(ctx, listPromotionsSQL, storeID)
	if err != nil {
		return nil, fmt.Errorf("listing promotions for store %q: %w", storeID, err)
	}
	return pgx.CollectRows(rows, scanPromotion)
}

// Create persists a new promotion.
func (r *PromotionRepository) Create(ctx context.Context, p *promotion.Promotion) error {
	_, err := r.pool.Exec(ctx, insertPromotionSQL,
		p.ID, p.StoreID, p.Name, p.Description, string(p.Type),
		p.DiscountValue, p.MinimumPurchase, p.MaximumDiscount,
		p.StartDate, p.EndDate, p.UsageLimit, p.CustomerUsageLimit, p.IsActive,
		p.ApplicableCategories, p.ApplicableProducts,
		p.BuyQuantity, p.GetQuantity, string(p.GetDiscountType), p.GetDiscountValue,
		string(p.ScheduleKind), weekdaysToInts(p.ActiveDays), p.ActiveTimeStart, p.ActiveTimeEnd, p.SpecificDates,
	)
	if err != nil {
		return fmt.Errorf("creating promotion %q: %w", p.ID, err)
	}
	return nil
}

// Update rewrites a promotion's configuration. Usage counters are never
// touched here; they move only through the reserve path.
func (r *PromotionRepository) Update(ctx context.Context, p *promotion.Promotion) error {
	tag, err := r.pool.Exec(ctx, updatePromotionSQL,
		p.ID, p.Name, p.Description, string(p.Type),
		p.DiscountValue, p.MinimumPurchase, p.MaximumDiscount,
		p.StartDate, p.EndDate, p.UsageLimit, p.CustomerUsageLimit,
		p.IsActive, p.ApplicableCategories, p.ApplicableProducts,
		p.BuyQuantity, p.GetQuantity, string(p.GetDiscountType), p.GetDiscountValue,
		string(p.ScheduleKind), weekdaysToInts(p.ActiveDays), p.ActiveTimeStart, p.ActiveTimeEnd,
		p.SpecificDates,
	)
	if err != nil {
		return fmt.Errorf("updating promotion %q: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return promotion.ErrNotFound
	}
	return nil
}

// SoftDelete marks a promotion deleted, hiding it from every query.
func (r *PromotionRepository) SoftDelete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, softDeletePromotionSQL, id)
	if err != nil {
		return fmt.Errorf("deleting promotion %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return promotion.ErrNotFound
	}
	return nil
}

// AddCode attaches a new discount code to a promotion. Codes are stored
// upper-cased.
func (r *PromotionRepository) AddCode(ctx context.Context, c *promotion.DiscountCode) error {
	_, err := r.pool.Exec(ctx, insertCodeSQL,
		c.ID, c.PromotionID, strings.ToUpper(c.Code), c.IsActive,
	)
	if err != nil {
		return fmt.Errorf("creating discount code %q: %w", c.Code, err)
	}
	return nil
}

// Stats aggregates the redemption ledger for a promotion.
func (r *PromotionRepository) Stats(ctx context.Context, id string) (*promotion.Stats, error) {
	var (
		s     promotion.Stats
		total decimal.Decimal
	)
	err := r.pool.QueryRow(ctx, promotionStatsSQL, id).Scan(
		&s.TotalRedemptions, &total, &s.UniqueCustomers,
	)
	if err != nil {
		return nil, fmt.Errorf("aggregating stats for promotion %q: %w", id, err)
	}
	s.TotalDiscount = total
	return &s, nil
}

type promotionWithCode struct {
	promo *promotion.Promotion
	code  *promotion.DiscountCode
}

func scanPromotionWithCode(row pgx.CollectableRow) (promotionWithCode, error) {
	var (
		p promotion.Promotion
		c promotion.DiscountCode
	)
	err := scanPromotionRow(row, &p, &c.ID, &c.PromotionID, &c.Code, &c.IsActive, &c.CreatedAt)
	if err != nil {
		return promotionWithCode{}, err
	}
	return promotionWithCode{promo: &p, code: &c}, nil
}

func scanPromotion(row pgx.CollectableRow) (promotion.Promotion, error) {
	var p promotion.Promotion
	err := scanPromotionRow(row, &p)
	return p, err
}

// scanPromotionRow scans the promotionColumns set into p, followed by any
// extra destinations appended to the select list. The weekday array takes a
// detour through []int32 because the column is INTEGER[].
func scanPromotionRow(row pgx.CollectableRow, p *promotion.Promotion, extra ...any) error {
	var days []int32
	dest := []any{
		&p.ID, &p.StoreID, &p.Name, &p.Description, (*string)(&p.Type),
		&p.DiscountValue, &p.MinimumPurchase, &p.MaximumDiscount,
		&p.StartDate, &p.EndDate, &p.UsageLimit, &p.UsageCount, &p.CustomerUsageLimit,
		&p.IsActive, &p.ApplicableCategories, &p.ApplicableProducts,
		&p.BuyQuantity, &p.GetQuantity, (*string)(&p.GetDiscountType), &p.GetDiscountValue,
		(*string)(&p.ScheduleKind), &days,
		&p.ActiveTimeStart, &p.ActiveTimeEnd, &p.SpecificDates,
		&p.DeletedAt, &p.CreatedAt, &p.UpdatedAt,
	}
	dest = append(dest, extra...)
	if err := row.Scan(dest...); err != nil {
		return err
	}

	p.ActiveDays = make([]time.Weekday, len(days))
	for i, d := range days {
		p.ActiveDays[i] = time.Weekday(d)
	}
	return nil
}

func weekdaysToInts(days []time.Weekday) []int32 {
	out := make([]int32, len(days))
	for i, d := range days {
		out[i] = int32(d)
	}
	return out
}
