// Package promotion implements the promotion and discount engine: resolving
// discount codes, evaluating time windows and usage quotas, and computing
// discount amounts for a cart.
package promotion

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Type enumerates the supported promotion strategies.
type Type string

const (
	// TypePercentage discounts the eligible subtotal by a percentage.
	TypePercentage Type = "percentage"
	// TypeFixedAmount discounts a fixed currency amount, capped at the eligible subtotal.
	TypeFixedAmount Type = "fixed_amount"
	// TypeBuyXGetY discounts the cheapest units once enough units are purchased.
	TypeBuyXGetY Type = "buy_x_get_y"
	// TypeTimeBased applies only inside a recurring schedule window.
	TypeTimeBased Type = "time_based"
)

// ScheduleKind enumerates the recurrence patterns of a time-based promotion.
type ScheduleKind string

const (
	// ScheduleDaily is active every day within the time-of-day range.
	ScheduleDaily ScheduleKind = "daily"
	// ScheduleWeekly is active on the listed weekdays within the time-of-day range.
	ScheduleWeekly ScheduleKind = "weekly"
	// ScheduleSpecificDates is active on the listed calendar dates within the time-of-day range.
	ScheduleSpecificDates ScheduleKind = "specific_dates"
)

// BonusType enumerates how the "get" units of a buy-x-get-y promotion are discounted.
type BonusType string

const (
	// BonusFree makes the qualifying units free.
	BonusFree BonusType = "free"
	// BonusPercentage discounts each qualifying unit by a percentage of its price.
	BonusPercentage BonusType = "percentage"
	// BonusFixedAmount discounts each qualifying unit by a fixed amount, capped at its price.
	BonusFixedAmount BonusType = "fixed_amount"
)

// Rejection reasons. All are expected outcomes of normal validation, not faults.
var (
	// ErrCodeNotFound is returned when a code does not resolve to an active,
	// non-deleted promotion in the requesting store.
	ErrCodeNotFound = errors.New("discount code not found")
	// ErrNotYetActive is returned before the promotion's start date.
	ErrNotYetActive = errors.New("promotion is not active yet")
	// ErrExpired is returned after the promotion's end date.
	ErrExpired = errors.New("promotion has expired")
	// ErrOutsideWindow is returned when a time-based promotion is outside its
	// daily/weekly/specific-date schedule.
	ErrOutsideWindow = errors.New("promotion is outside its active hours")
	// ErrUsageLimitReached is returned when the promotion-wide quota is exhausted.
	ErrUsageLimitReached = errors.New("promotion usage limit reached")
	// ErrCustomerLimitReached is returned when the per-customer quota is exhausted.
	ErrCustomerLimitReached = errors.New("customer usage limit reached")
	// ErrNoEligibleItems is returned when the cart yields a zero discount:
	// subtotal below the minimum purchase, no items match the allow-lists, or
	// no complete buy-x-get-y group.
	ErrNoEligibleItems = errors.New("no eligible items for this promotion")
)

// ErrNotFound is returned by direct promotion reads for unknown or deleted ids.
var ErrNotFound = errors.New("promotion not found")

// Promotion is a discount rule configured by a store. Only the fields relevant
// to Type are populated; the calculator ignores cross-type fields.
type Promotion struct {
	ID          string
	StoreID     string
	Name        string
	Description string

	Type          Type
	DiscountValue decimal.Decimal

	MinimumPurchase decimal.Decimal
	MaximumDiscount *decimal.Decimal

	StartDate time.Time
	EndDate   time.Time

	UsageLimit         *int
	UsageCount         int
	CustomerUsageLimit int

	IsActive bool

	ApplicableCategories []string
	ApplicableProducts   []string

	// Buy-x-get-y fields.
	BuyQuantity      int
	GetQuantity      int
	GetDiscountType  BonusType
	GetDiscountValue decimal.Decimal

	// Time-based fields.
	ScheduleKind    ScheduleKind
	ActiveDays      []time.Weekday
	ActiveTimeStart string   // "HH:MM:SS", inclusive
	ActiveTimeEnd   string   // "HH:MM:SS", inclusive
	SpecificDates   []string // "YYYY-MM-DD"

	DeletedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// State is a promotion lifecycle tag derived from stored fields at read time.
type State string

const (
	StateScheduled   State = "scheduled"
	StateActive      State = "active"
	StateExpired     State = "expired"
	StateExhausted   State = "exhausted"
	StateDeactivated State = "deactivated"
	StateDeleted     State = "deleted"
)

// StateAt derives the lifecycle state of the promotion at the given
// store-local instant. Deleted and deactivated take precedence over the
// date-derived states; an exhausted quota is reported only for promotions
// that are otherwise inside their date range.
func (p *Promotion) StateAt(now time.Time) State {
	switch {
	case p.DeletedAt != nil:
		return StateDeleted
	case !p.IsActive:
		return StateDeactivated
	case now.Before(p.StartDate):
		return StateScheduled
	case now.After(p.EndDate):
		return StateExpired
	case p.UsageLimit != nil && p.UsageCount >= *p.UsageLimit:
		return StateExhausted
	default:
		return StateActive
	}
}

// DiscountCode is a customer-facing redeemable string owned by exactly one
// promotion. Codes are stored upper-cased and matched case-insensitively.
type DiscountCode struct {
	ID          string
	PromotionID string
	Code        string
	IsActive    bool
	CreatedAt   time.Time
}

// Usage is one row of the redemption ledger, written once per successful
// redemption at order finalization and never mutated.
type Usage struct {
	ID             string
	PromotionID    string
	CustomerID     string // empty for anonymous checkouts
	DiscountAmount decimal.Decimal
	UsedAt         time.Time
}

// Stats summarizes the redemption ledger for a single promotion.
type Stats struct {
	TotalRedemptions int
	TotalDiscount    decimal.Decimal
	UniqueCustomers  int
}

// Item is a cart line item resolved against the product catalog. The engine
// does not own this data; it is supplied per validation call.
type Item struct {
	ProductID  string
	CategoryID string
	Price      decimal.Decimal
	Quantity   int
}

// Repository resolves discount codes to their owning promotions.
type Repository interface {
	// FindByCode returns the active, non-deleted promotion owning the given
	// code within the store. The lookup is case-insensitive. Returns
	// ErrCodeNotFound when nothing matches.
	FindByCode(ctx context.Context, storeID, code string) (*Promotion, *DiscountCode, error)
}

// UsageRepository provides read and reserve access to the redemption ledger.
type UsageRepository interface {
	// CountByCustomer returns the number of ledger rows for the given
	// promotion and customer.
	CountByCustomer(ctx context.Context, promotionID, customerID string) (int, error)
	// Reserve atomically consumes one unit of the promotion's quota and
	// records the redemption. The quota check and the increment happen in a
	// single transaction; Reserve returns ErrUsageLimitReached or
	// ErrCustomerLimitReached when the respective quota is exhausted.
	Reserve(ctx context.Context, res *Reservation) error
}
