package promotion

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/veldtcommerce/pricing-engine/pkg/enums"
	pkgerrors "github.com/veldtcommerce/pricing-engine/pkg/errors"
)

var hundred = decimal.NewFromInt(100)

// Validate checks the rule definition for structural soundness. A failure
// is a configuration error: the rule author produced an unusable
// definition and the caller must surface it, never skip it silently.
func (r Rule) Validate() error {
	if r.ID == uuid.Nil {
		return configErr(r, "rule id required")
	}
	if !r.Type.IsValid() {
		return configErr(r, "unknown promotion type %q", r.Type)
	}
	if !r.Scope.IsValid() {
		return configErr(r, "unknown promotion scope %q", r.Scope)
	}
	if err := r.validateScopeTargets(); err != nil {
		return err
	}
	if err := r.validateTypeConfig(); err != nil {
		return err
	}
	if err := r.validateConditions(); err != nil {
		return err
	}
	if err := r.validateUsage(); err != nil {
		return err
	}
	if r.ValidUntil != nil && !r.ValidUntil.After(r.ValidFrom) {
		return configErr(r, "validity end must be after start")
	}
	return nil
}

func (r Rule) validateScopeTargets() error {
	switch r.Scope {
	case enums.PromotionScopeStore:
		if r.StoreID == nil || *r.StoreID == uuid.Nil {
			return configErr(r, "store scope requires store_id")
		}
	case enums.PromotionScopeUser:
		if r.UserID == nil || *r.UserID == uuid.Nil {
			return configErr(r, "user scope requires user_id")
		}
	}
	return nil
}

func (r Rule) validateTypeConfig() error {
	configs := 0
	if r.Percentage != nil {
		configs++
	}
	if r.FixedAmount != nil {
		configs++
	}
	if r.BuyXGetY != nil {
		configs++
	}
	if r.Bundle != nil {
		configs++
	}
	if r.Cashback != nil {
		configs++
	}

	switch r.Type {
	case enums.PromotionTypePercentage:
		if r.Percentage == nil || configs != 1 {
			return configErr(r, "percentage rule requires exactly the percentage config")
		}
		if r.Percentage.Percent.IsNegative() || r.Percentage.Percent.GreaterThan(hundred) {
			return configErr(r, "percentage must be within [0,100], got %s", r.Percentage.Percent)
		}
	case enums.PromotionTypeFixedAmount:
		if r.FixedAmount == nil || configs != 1 {
			return configErr(r, "fixed amount rule requires exactly the fixed_amount config")
		}
		if r.FixedAmount.Amount.IsZero() {
			return configErr(r, "fixed amount must be positive")
		}
	case enums.PromotionTypeBuyXGetY:
		if r.BuyXGetY == nil || configs != 1 {
			return configErr(r, "buy x get y rule requires exactly the buy_x_get_y config")
		}
		if r.BuyXGetY.BuyQuantity <= 0 || r.BuyXGetY.GetQuantity <= 0 {
			return configErr(r, "buy and get quantities must be positive")
		}
		if pct := r.BuyXGetY.GetDiscountPercent; pct != nil && (pct.IsNegative() || pct.GreaterThan(hundred)) {
			return configErr(r, "get discount percent must be within [0,100], got %s", pct)
		}
		if len(r.Conditions.ApplicableProductIDs) == 0 {
			return configErr(r, "buy x get y rule requires applicable product ids")
		}
	case enums.PromotionTypeFreeShipping:
		if configs != 0 {
			return configErr(r, "free shipping rule carries no per-type config")
		}
	case enums.PromotionTypeBundle:
		if r.Bundle == nil || configs != 1 {
			return configErr(r, "bundle rule requires exactly the bundle config")
		}
		if len(r.Bundle.RequiredProductIDs) < 2 {
			return configErr(r, "bundle requires at least two products")
		}
		hasPrice := r.Bundle.BundlePrice != nil
		hasPercent := r.Bundle.DiscountPercent != nil
		if hasPrice == hasPercent {
			return configErr(r, "bundle requires exactly one of bundle_price or discount_percent")
		}
		if hasPercent && (r.Bundle.DiscountPercent.IsNegative() || r.Bundle.DiscountPercent.GreaterThan(hundred)) {
			return configErr(r, "bundle discount percent must be within [0,100], got %s", r.Bundle.DiscountPercent)
		}
	case enums.PromotionTypeCashback:
		if r.Cashback == nil || configs != 1 {
			return configErr(r, "cashback rule requires exactly the cashback config")
		}
		hasPercent := r.Cashback.Percent != nil
		hasAmount := r.Cashback.Amount != nil
		if hasPercent == hasAmount {
			return configErr(r, "cashback requires exactly one of percent or amount")
		}
		if hasPercent && (r.Cashback.Percent.IsNegative() || r.Cashback.Percent.GreaterThan(hundred)) {
			return configErr(r, "cashback percent must be within [0,100], got %s", r.Cashback.Percent)
		}
	}
	return nil
}

func (r Rule) validateConditions() error {
	if r.Conditions.MinQuantity != nil && *r.Conditions.MinQuantity <= 0 {
		return configErr(r, "min quantity must be positive")
	}
	for _, day := range r.Conditions.DaysOfWeek {
		if day < 0 || day > 6 {
			return configErr(r, "invalid day of week %d", day)
		}
	}
	if window := r.Conditions.TimeWindow; window != nil {
		if _, err := parseClock(window.Start); err != nil {
			return configErr(r, "invalid time window start %q", window.Start)
		}
		if _, err := parseClock(window.End); err != nil {
			return configErr(r, "invalid time window end %q", window.End)
		}
	}
	return nil
}

func (r Rule) validateUsage() error {
	if r.CurrentUsage < 0 {
		return configErr(r, "current usage cannot be negative")
	}
	for name, limit := range map[string]*int{
		"total":    r.UsageLimit.Total,
		"per_user": r.UsageLimit.PerUser,
		"per_day":  r.UsageLimit.PerDay,
	} {
		if limit != nil && *limit <= 0 {
			return configErr(r, "usage limit %s must be positive", name)
		}
	}
	if r.UsageLimit.Total != nil && r.CurrentUsage > *r.UsageLimit.Total {
		return configErr(r, "current usage %d exceeds total limit %d", r.CurrentUsage, *r.UsageLimit.Total)
	}
	return nil
}

func configErr(r Rule, format string, args ...any) error {
	return pkgerrors.Newf(pkgerrors.CodeConfiguration, format, args...).
		WithDetails(map[string]any{"rule_id": r.ID.String(), "code": r.Code})
}
