package promotion

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Reservation captures a single redemption at order finalization time.
type Reservation struct {
	PromotionID    string
	CustomerID     string // empty for anonymous checkouts
	DiscountAmount decimal.Decimal
}

// Redeemer consumes promotion quota when an order actually completes. The
// quota check and the usage increment must be a single atomic operation,
// otherwise concurrent checkouts can oversell a limited promotion; the
// UsageRepository carries that contract.
type Redeemer struct {
	usage UsageRepository
}

// NewRedeemer creates a Redeemer backed by the given ledger.
func NewRedeemer(usage UsageRepository) *Redeemer {
	return &Redeemer{usage: usage}
}

// Redeem records one redemption: increments the promotion's usage counter and
// appends a ledger row, failing with ErrUsageLimitReached or
// ErrCustomerLimitReached when a quota is exhausted.
func (r *Redeemer) Redeem(ctx context.Context, res *Reservation) error {
	if res.PromotionID == "" {
		return errors.New("promotion id required")
	}
	if res.DiscountAmount.IsNegative() {
		return errors.New("discount amount must not be negative")
	}

	if err := r.usage.Reserve(ctx, res); err != nil {
		if errors.Is(err, ErrUsageLimitReached) || errors.Is(err, ErrCustomerLimitReached) {
			return err
		}
		return errors.Wrap(err, "reserve promotion quota")
	}
	return nil
}
