package promotion

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/retailpos/promo-engine/internal/domain/store"
)

// Summary is the subset of promotion fields exposed in validation results.
type Summary struct {
	ID            string
	Name          string
	Type          Type
	DiscountValue decimal.Decimal
}

// Result is a successful validation outcome. Validation is a dry-run: nothing
// is written and no quota is consumed until the order finalizes.
type Result struct {
	Promotion      Summary
	DiscountCode   string
	DiscountAmount decimal.Decimal
	EligibleItems  []Item
}

// ValidateRequest is the input to a single validation call.
type ValidateRequest struct {
	StoreID    string
	Code       string
	CustomerID string // optional
	Items      []Item
}

// Validator validates a discount code against a cart and returns the computed
// discount or a typed rejection.
type Validator interface {
	Validate(ctx context.Context, req ValidateRequest) (*Result, error)
}

// RepoValidator implements Validator on top of the promotion repository, the
// redemption ledger, and the store directory (for timezone resolution).
type RepoValidator struct {
	repo   Repository
	usage  UsageRepository
	stores store.Repository
	now    func() time.Time
}

// NewRepoValidator creates a RepoValidator with the given collaborators.
func NewRepoValidator(repo Repository, usage UsageRepository, stores store.Repository) *RepoValidator {
	return &RepoValidator{
		repo:   repo,
		usage:  usage,
		stores: stores,
		now:    time.Now,
	}
}

// Validate resolves the code to a promotion and checks, in order: the date
// range, the time window, the promotion-wide quota, and the per-customer
// quota, then computes the discount. All date and time comparisons happen in
// the store's configured timezone.
func (v *RepoValidator) Validate(ctx context.Context, req ValidateRequest) (*Result, error) {
	promo, code, err := v.repo.FindByCode(ctx, req.StoreID, strings.ToUpper(req.Code))
	if err != nil {
		if errors.Is(err, ErrCodeNotFound) {
			return nil, ErrCodeNotFound
		}
		return nil, errors.Wrap(err, "lookup discount code")
	}

	st, err := v.stores.GetByID(ctx, req.StoreID)
	if err != nil {
		return nil, errors.Wrap(err, "lookup store")
	}
	loc, err := st.Location()
	if err != nil {
		return nil, errors.Wrapf(err, "store %s timezone", st.ID)
	}
	now := v.now().In(loc)

	if now.Before(promo.StartDate) {
		return nil, ErrNotYetActive
	}
	if now.After(promo.EndDate) {
		return nil, ErrExpired
	}

	if promo.Type == TypeTimeBased && !InWindow(promo, now) {
		return nil, ErrOutsideWindow
	}

	if promo.UsageLimit != nil && promo.UsageCount >= *promo.UsageLimit {
		return nil, ErrUsageLimitReached
	}

	if req.CustomerID != "" && promo.CustomerUsageLimit > 0 {
		used, err := v.usage.CountByCustomer(ctx, promo.ID, req.CustomerID)
		if err != nil {
			return nil, errors.Wrap(err, "count customer usage")
		}
		if used >= promo.CustomerUsageLimit {
			return nil, ErrCustomerLimitReached
		}
	}

	calc, err := Calculate(promo, req.Items)
	if err != nil {
		return nil, errors.Wrap(err, "calculate discount")
	}
	if calc.DiscountAmount.IsZero() {
		return nil, ErrNoEligibleItems
	}

	return &Result{
		Promotion: Summary{
			ID:            promo.ID,
			Name:          promo.Name,
			Type:          promo.Type,
			DiscountValue: promo.DiscountValue,
		},
		DiscountCode:   code.Code,
		DiscountAmount: calc.DiscountAmount,
		EligibleItems:  calc.EligibleItems,
	}, nil
}
