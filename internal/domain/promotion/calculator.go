package promotion

import (
	"slices"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

var (
	hundred = decimal.NewFromInt(100)
	zero    = decimal.Zero
)

// CalcResult holds the outcome of a discount calculation.
type CalcResult struct {
	DiscountAmount decimal.Decimal
	EligibleItems  []Item
}

// Calculate computes the discount the promotion produces for the given cart
// items. It is a pure function: no I/O, no clock, no mutation of inputs.
//
// The minimum-purchase gate applies to the full cart subtotal; when it is not
// met the promotion does not apply at all, not even to an eligible subset.
func Calculate(p *Promotion, items []Item) (CalcResult, error) {
	subtotal := Subtotal(items)
	if p.MinimumPurchase.IsPositive() && subtotal.LessThan(p.MinimumPurchase) {
		return CalcResult{DiscountAmount: zero}, nil
	}

	eligible := filterEligible(p, items)
	eligibleSubtotal := Subtotal(eligible)

	var amount decimal.Decimal
	switch p.Type {
	case TypePercentage:
		amount = percentageDiscount(p.DiscountValue, eligibleSubtotal, p.MaximumDiscount)
	case TypeFixedAmount:
		amount = decimal.Min(p.DiscountValue, eligibleSubtotal)
	case TypeTimeBased:
		amount = timeBasedDiscount(p, eligibleSubtotal)
	case TypeBuyXGetY:
		amount = bogoDiscount(p, eligible)
	default:
		return CalcResult{}, errors.Errorf("unsupported promotion type: %q", p.Type)
	}

	return CalcResult{
		DiscountAmount: floorAtZero(amount).Round(2),
		EligibleItems:  eligible,
	}, nil
}

// Subtotal returns the sum of price * quantity across all items.
func Subtotal(items []Item) decimal.Decimal {
	sum := zero
	for _, item := range items {
		line := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		sum = sum.Add(line)
	}
	return sum
}

// filterEligible applies the promotion's allow-lists. A non-empty product
// list decides eligibility on its own; the category list is consulted only
// when no product list is configured. No lists means every item is eligible.
func filterEligible(p *Promotion, items []Item) []Item {
	if len(p.ApplicableProducts) == 0 && len(p.ApplicableCategories) == 0 {
		return items
	}

	byProduct := make(map[string]struct{}, len(p.ApplicableProducts))
	for _, id := range p.ApplicableProducts {
		byProduct[id] = struct{}{}
	}
	byCategory := make(map[string]struct{}, len(p.ApplicableCategories))
	for _, id := range p.ApplicableCategories {
		byCategory[id] = struct{}{}
	}

	eligible := make([]Item, 0, len(items))
	for _, item := range items {
		if len(byProduct) > 0 {
			if _, ok := byProduct[item.ProductID]; ok {
				eligible = append(eligible, item)
			}
			continue
		}
		if _, ok := byCategory[item.CategoryID]; ok {
			eligible = append(eligible, item)
		}
	}
	return eligible
}

func percentageDiscount(pct, subtotal decimal.Decimal, cap *decimal.Decimal) decimal.Decimal {
	amount := subtotal.Mul(pct).Div(hundred)
	if cap != nil && amount.GreaterThan(*cap) {
		amount = *cap
	}
	return amount
}

// timeBasedDiscount reuses the percentage and fixed-amount formulas. Values
// at or below 100 are treated as a percentage, larger values as a flat
// currency amount.
func timeBasedDiscount(p *Promotion, eligibleSubtotal decimal.Decimal) decimal.Decimal {
	if p.DiscountValue.LessThanOrEqual(hundred) {
		return percentageDiscount(p.DiscountValue, eligibleSubtotal, p.MaximumDiscount)
	}
	return decimal.Min(p.DiscountValue, eligibleSubtotal)
}

// bogoDiscount implements buy-x-get-y over the whole eligible set: eligible
// lines are expanded into individual units, every complete group of
// buy+get units unlocks get discounted units, and the discount lands on the
// cheapest units. Operating on units rather than lines keeps the result
// invariant to how quantities are split across cart lines.
func bogoDiscount(p *Promotion, eligible []Item) decimal.Decimal {
	groupSize := p.BuyQuantity + p.GetQuantity
	if groupSize <= 0 {
		return zero
	}

	units := expandUnits(eligible)
	if len(units) < groupSize {
		return zero
	}

	totalSets := len(units) / groupSize
	freeUnits := totalSets * p.GetQuantity
	if freeUnits == 0 {
		return zero
	}

	slices.SortFunc(units, func(a, b decimal.Decimal) int { return a.Cmp(b) })

	total := zero
	for _, price := range units[:freeUnits] {
		switch p.GetDiscountType {
		case BonusFree:
			total = total.Add(price)
		case BonusPercentage:
			total = total.Add(price.Mul(p.GetDiscountValue).Div(hundred))
		case BonusFixedAmount:
			total = total.Add(decimal.Min(p.GetDiscountValue, price))
		}
	}
	return total
}

// expandUnits flattens line items into one unit price per purchased unit.
func expandUnits(items []Item) []decimal.Decimal {
	n := 0
	for _, item := range items {
		if item.Quantity > 0 {
			n += item.Quantity
		}
	}

	units := make([]decimal.Decimal, 0, n)
	for _, item := range items {
		for range item.Quantity {
			units = append(units, item.Price)
		}
	}
	return units
}

// floorAtZero clamps negative values to zero.
func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return zero
	}
	return d
}
