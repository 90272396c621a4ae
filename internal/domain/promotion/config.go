package promotion

import (
	"fmt"
	"time"
)

// ConfigError reports an invalid promotion configuration. It is surfaced by
// the administrative create/update surface, never during validation.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid promotion configuration: %s: %s", e.Field, e.Reason)
}

// ValidateConfig checks that exactly the fields relevant to the promotion's
// type are populated and in range. It returns a *ConfigError describing the
// first violation found.
func ValidateConfig(p *Promotion) error {
	if p.StoreID == "" {
		return &ConfigError{Field: "storeId", Reason: "required"}
	}
	if p.Name == "" {
		return &ConfigError{Field: "name", Reason: "required"}
	}
	if p.EndDate.Before(p.StartDate) {
		return &ConfigError{Field: "endDate", Reason: "must not be before startDate"}
	}
	if p.MinimumPurchase.IsNegative() {
		return &ConfigError{Field: "minimumPurchase", Reason: "must not be negative"}
	}
	if p.MaximumDiscount != nil && !p.MaximumDiscount.IsPositive() {
		return &ConfigError{Field: "maximumDiscount", Reason: "must be positive when set"}
	}
	if p.UsageLimit != nil && *p.UsageLimit <= 0 {
		return &ConfigError{Field: "usageLimit", Reason: "must be positive when set"}
	}
	if p.CustomerUsageLimit < 0 {
		return &ConfigError{Field: "customerUsageLimit", Reason: "must not be negative"}
	}

	switch p.Type {
	case TypePercentage:
		if !p.DiscountValue.IsPositive() || p.DiscountValue.GreaterThan(hundred) {
			return &ConfigError{Field: "discountValue", Reason: "percentage must be in (0, 100]"}
		}
	case TypeFixedAmount:
		if !p.DiscountValue.IsPositive() {
			return &ConfigError{Field: "discountValue", Reason: "must be positive"}
		}
	case TypeBuyXGetY:
		return validateBogoConfig(p)
	case TypeTimeBased:
		return validateScheduleConfig(p)
	default:
		return &ConfigError{Field: "type", Reason: fmt.Sprintf("unknown promotion type %q", p.Type)}
	}
	return nil
}

func validateBogoConfig(p *Promotion) error {
	if p.BuyQuantity <= 0 {
		return &ConfigError{Field: "buyQuantity", Reason: "must be positive"}
	}
	if p.GetQuantity <= 0 {
		return &ConfigError{Field: "getQuantity", Reason: "must be positive"}
	}
	switch p.GetDiscountType {
	case BonusFree:
		// No value required.
	case BonusPercentage:
		if !p.GetDiscountValue.IsPositive() || p.GetDiscountValue.GreaterThan(hundred) {
			return &ConfigError{Field: "getDiscountValue", Reason: "percentage must be in (0, 100]"}
		}
	case BonusFixedAmount:
		if !p.GetDiscountValue.IsPositive() {
			return &ConfigError{Field: "getDiscountValue", Reason: "must be positive"}
		}
	default:
		return &ConfigError{Field: "getDiscountType", Reason: fmt.Sprintf("unknown bonus type %q", p.GetDiscountType)}
	}
	return nil
}

func validateScheduleConfig(p *Promotion) error {
	if !p.DiscountValue.IsPositive() {
		return &ConfigError{Field: "discountValue", Reason: "must be positive"}
	}
	if _, err := time.Parse(timeOfDayLayout, p.ActiveTimeStart); err != nil {
		return &ConfigError{Field: "activeTimeStart", Reason: "must be HH:MM:SS"}
	}
	if _, err := time.Parse(timeOfDayLayout, p.ActiveTimeEnd); err != nil {
		return &ConfigError{Field: "activeTimeEnd", Reason: "must be HH:MM:SS"}
	}
	if p.ActiveTimeEnd < p.ActiveTimeStart {
		return &ConfigError{Field: "activeTimeEnd", Reason: "must not be before activeTimeStart"}
	}

	switch p.ScheduleKind {
	case ScheduleDaily:
	case ScheduleWeekly:
		if len(p.ActiveDays) == 0 {
			return &ConfigError{Field: "activeDays", Reason: "required for weekly schedules"}
		}
		for _, d := range p.ActiveDays {
			if d < time.Sunday || d > time.Saturday {
				return &ConfigError{Field: "activeDays", Reason: "weekdays must be in 0..6"}
			}
		}
	case ScheduleSpecificDates:
		if len(p.SpecificDates) == 0 {
			return &ConfigError{Field: "specificDates", Reason: "required for specific-date schedules"}
		}
		for _, d := range p.SpecificDates {
			if _, err := time.Parse(dateLayout, d); err != nil {
				return &ConfigError{Field: "specificDates", Reason: "dates must be YYYY-MM-DD"}
			}
		}
	default:
		return &ConfigError{Field: "timeBasedType", Reason: fmt.Sprintf("unknown schedule kind %q", p.ScheduleKind)}
	}
	return nil
}
