package promotion

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/veldtcommerce/pricing-engine/pkg/enums"
	pkgerrors "github.com/veldtcommerce/pricing-engine/pkg/errors"
	"github.com/veldtcommerce/pricing-engine/pkg/money"
	"github.com/veldtcommerce/pricing-engine/pkg/types"
)

// Evaluate runs the rule against a cart snapshot. The three outcomes are
// mutually exclusive: a discount, a structured ineligibility (a normal
// business result, not an error), or a fatal error (malformed rule or
// currency mismatch).
//
// Eligibility gates run in a fixed order and the first failing gate is
// the reported reason: validity window, usage limits (total, per-user,
// per-day), scope and applicability, order/quantity minimums, time-of-day
// and day-of-week, first-time-user.
func (r Rule) Evaluate(snap types.CartSnapshot) (*types.Discount, *Ineligibility, error) {
	if err := r.Validate(); err != nil {
		return nil, nil, err
	}

	if reason := r.checkValidity(snap.Now); reason != nil {
		return nil, reason, nil
	}
	if reason := r.checkUsage(snap.UsageFor(r.ID)); reason != nil {
		return nil, reason, nil
	}
	if reason := r.checkScope(snap); reason != nil {
		return nil, reason, nil
	}

	applicable := r.applicableItems(snap.Items)
	if len(applicable) == 0 {
		return nil, ineligible(enums.IneligibilityReasonNoApplicableItems, "no cart items match the rule's applicability lists"), nil
	}

	subtotal, err := snap.Subtotal()
	if err != nil {
		return nil, nil, err
	}
	if reason, err := r.checkMinimums(snap, subtotal); err != nil || reason != nil {
		return nil, reason, err
	}
	if reason := r.checkTimeConditions(snap.Now); reason != nil {
		return nil, reason, nil
	}
	if r.Conditions.FirstTimeUserOnly && !snap.IsFirstTimeUser {
		return nil, ineligible(enums.IneligibilityReasonNotFirstTimeUser, "rule is restricted to first-time users"), nil
	}

	return r.computeDiscount(snap, applicable)
}

func (r Rule) checkValidity(now time.Time) *Ineligibility {
	if now.Before(r.ValidFrom) {
		return ineligible(enums.IneligibilityReasonNotStarted, fmt.Sprintf("rule starts at %s", r.ValidFrom.Format(time.RFC3339)))
	}
	if r.ValidUntil != nil && now.After(*r.ValidUntil) {
		return ineligible(enums.IneligibilityReasonExpired, fmt.Sprintf("rule expired at %s", r.ValidUntil.Format(time.RFC3339)))
	}
	return nil
}

func (r Rule) checkUsage(usage types.RuleUsage) *Ineligibility {
	if r.UsageLimit.Total != nil && r.CurrentUsage >= *r.UsageLimit.Total {
		return ineligible(enums.IneligibilityReasonUsageLimitReached, fmt.Sprintf("usage %d reached total limit %d", r.CurrentUsage, *r.UsageLimit.Total))
	}
	if r.UsageLimit.PerUser != nil && usage.ByUser >= *r.UsageLimit.PerUser {
		return ineligible(enums.IneligibilityReasonPerUserLimitReached, fmt.Sprintf("user usage %d reached limit %d", usage.ByUser, *r.UsageLimit.PerUser))
	}
	if r.UsageLimit.PerDay != nil && usage.Today >= *r.UsageLimit.PerDay {
		return ineligible(enums.IneligibilityReasonPerDayLimitReached, fmt.Sprintf("daily usage %d reached limit %d", usage.Today, *r.UsageLimit.PerDay))
	}
	return nil
}

func (r Rule) checkScope(snap types.CartSnapshot) *Ineligibility {
	switch r.Scope {
	case enums.PromotionScopeStore:
		if r.StoreID == nil || *r.StoreID != snap.StoreID {
			return ineligible(enums.IneligibilityReasonScopeMismatch, "rule targets a different store")
		}
	case enums.PromotionScopeUser:
		if r.UserID == nil || *r.UserID != snap.UserID {
			return ineligible(enums.IneligibilityReasonScopeMismatch, "rule targets a different user")
		}
	case enums.PromotionScopeFirstTimeUser:
		if !snap.IsFirstTimeUser {
			return ineligible(enums.IneligibilityReasonScopeMismatch, "rule targets first-time users")
		}
	}
	return nil
}

// applicableItems applies the include-then-exclude lists. Product and
// category includes combine as a union; the exclude list always wins.
func (r Rule) applicableItems(items []types.LineItem) []types.LineItem {
	includeProducts := toSet(r.Conditions.ApplicableProductIDs)
	excludeProducts := toSet(r.Conditions.ExcludedProductIDs)
	includeCategories := r.Conditions.ApplicableCategoryIDs

	hasInclude := len(includeProducts) > 0 || len(includeCategories) > 0

	applicable := make([]types.LineItem, 0, len(items))
	for _, item := range items {
		if hasInclude {
			matched := includeProducts[item.ProductID]
			if !matched {
				for _, categoryID := range includeCategories {
					if item.InCategory(categoryID) {
						matched = true
						break
					}
				}
			}
			if !matched {
				continue
			}
		}
		if excludeProducts[item.ProductID] {
			continue
		}
		applicable = append(applicable, item)
	}
	return applicable
}

func (r Rule) checkMinimums(snap types.CartSnapshot, subtotal money.Money) (*Ineligibility, error) {
	if minAmount := r.Conditions.MinOrderAmount; minAmount != nil {
		cmp, err := subtotal.Cmp(*minAmount)
		if err != nil {
			return nil, err
		}
		if cmp < 0 {
			return ineligible(enums.IneligibilityReasonMinOrderNotMet, fmt.Sprintf("order subtotal %s below minimum %s", subtotal, minAmount)), nil
		}
	}
	if minQty := r.Conditions.MinQuantity; minQty != nil && snap.TotalQuantity() < *minQty {
		return ineligible(enums.IneligibilityReasonMinQuantityNotMet, fmt.Sprintf("order quantity %d below minimum %d", snap.TotalQuantity(), *minQty)), nil
	}
	return nil, nil
}

func (r Rule) checkTimeConditions(now time.Time) *Ineligibility {
	if days := r.Conditions.DaysOfWeek; len(days) > 0 {
		matched := false
		for _, day := range days {
			if now.Weekday() == day {
				matched = true
				break
			}
		}
		if !matched {
			return ineligible(enums.IneligibilityReasonWrongDayOfWeek, fmt.Sprintf("rule does not run on %s", now.Weekday()))
		}
	}
	if window := r.Conditions.TimeWindow; window != nil {
		start, _ := parseClock(window.Start)
		end, _ := parseClock(window.End)
		minute := now.Hour()*60 + now.Minute()
		inside := false
		if start <= end {
			inside = minute >= start && minute <= end
		} else {
			// Window wraps midnight.
			inside = minute >= start || minute <= end
		}
		if !inside {
			return ineligible(enums.IneligibilityReasonOutsideTimeWindow, fmt.Sprintf("rule runs between %s and %s", window.Start, window.End))
		}
	}
	return nil
}

func (r Rule) computeDiscount(snap types.CartSnapshot, applicable []types.LineItem) (*types.Discount, *Ineligibility, error) {
	switch r.Type {
	case enums.PromotionTypePercentage:
		return r.percentageDiscount(snap, applicable)
	case enums.PromotionTypeFixedAmount:
		return r.fixedAmountDiscount(snap, applicable)
	case enums.PromotionTypeBuyXGetY:
		return r.buyXGetYDiscount(snap, applicable)
	case enums.PromotionTypeFreeShipping:
		return r.newDiscount(money.Zero(snap.Currency), nil, true, false), nil, nil
	case enums.PromotionTypeBundle:
		return r.bundleDiscount(snap, applicable)
	case enums.PromotionTypeCashback:
		return r.cashbackDiscount(snap, applicable)
	default:
		return nil, nil, configErr(r, "unknown promotion type %q", r.Type)
	}
}

type itemShare struct {
	lineItemID uuid.UUID
	amount     money.Money
}

func (r Rule) percentageDiscount(snap types.CartSnapshot, applicable []types.LineItem) (*types.Discount, *Ineligibility, error) {
	applicableSubtotal, lineTotals, err := subtotalOf(snap.Currency, applicable)
	if err != nil {
		return nil, nil, err
	}

	// The percentage applies to the applicable subtotal as a whole so the
	// result is rounded exactly once; the rounded amount is then split
	// back across the lines.
	amount, err := applicableSubtotal.ApplyPercentage(r.Percentage.Percent)
	if err != nil {
		return nil, nil, err
	}
	if amount.IsZero() {
		return nil, ineligible(enums.IneligibilityReasonZeroDiscount, "percentage yields no discount"), nil
	}

	allocated, err := money.AllocateProportionally(amount, lineTotals)
	if err != nil {
		return nil, nil, err
	}
	shares := make([]itemShare, 0, len(applicable))
	for i, item := range applicable {
		if allocated[i].IsZero() {
			continue
		}
		shares = append(shares, itemShare{lineItemID: item.ID, amount: allocated[i]})
	}
	return r.newDiscount(amount, shares, false, false), nil, nil
}

func (r Rule) fixedAmountDiscount(snap types.CartSnapshot, applicable []types.LineItem) (*types.Discount, *Ineligibility, error) {
	applicableSubtotal, lineTotals, err := subtotalOf(snap.Currency, applicable)
	if err != nil {
		return nil, nil, err
	}
	if err := sameCurrency(r.FixedAmount.Amount, snap.Currency); err != nil {
		return nil, nil, err
	}

	// Never discount past the applicable subtotal.
	amount, err := money.Min(r.FixedAmount.Amount, applicableSubtotal)
	if err != nil {
		return nil, nil, err
	}
	if amount.IsZero() {
		return nil, ineligible(enums.IneligibilityReasonZeroDiscount, "fixed amount yields no discount"), nil
	}

	allocated, err := money.AllocateProportionally(amount, lineTotals)
	if err != nil {
		return nil, nil, err
	}
	shares := make([]itemShare, 0, len(applicable))
	for i, item := range applicable {
		if allocated[i].IsZero() {
			continue
		}
		shares = append(shares, itemShare{lineItemID: item.ID, amount: allocated[i]})
	}
	return r.newDiscount(amount, shares, false, false), nil, nil
}

func (r Rule) buyXGetYDiscount(snap types.CartSnapshot, applicable []types.LineItem) (*types.Discount, *Ineligibility, error) {
	getPercent := hundred
	if r.BuyXGetY.GetDiscountPercent != nil {
		getPercent = *r.BuyXGetY.GetDiscountPercent
	}

	// Evaluate each matching product independently, then sum.
	qtyByProduct := map[uuid.UUID]int{}
	for _, item := range applicable {
		qtyByProduct[item.ProductID] += item.Quantity
	}

	freeByProduct := map[uuid.UUID]int{}
	for productID, qty := range qtyByProduct {
		free := (qty / r.BuyXGetY.BuyQuantity) * r.BuyXGetY.GetQuantity
		if free > qty {
			free = qty
		}
		freeByProduct[productID] = free
	}

	// Walk lines in cart order so unit allocation is deterministic when a
	// product spans multiple lines. Per-line bases are exact integer
	// amounts (units times unit price); the percentage is applied to
	// their sum and rounded once.
	base := money.Zero(snap.Currency)
	lines := make([]types.LineItem, 0, len(applicable))
	weights := make([]money.Money, 0, len(applicable))
	for _, item := range applicable {
		remaining := freeByProduct[item.ProductID]
		if remaining <= 0 {
			continue
		}
		units := item.Quantity
		if units > remaining {
			units = remaining
		}
		freeByProduct[item.ProductID] -= units

		lineBase, err := item.UnitPrice.MultiplyInt(int64(units))
		if err != nil {
			return nil, nil, err
		}
		if lineBase.IsZero() {
			continue
		}
		lines = append(lines, item)
		weights = append(weights, lineBase)
		if base, err = base.Add(lineBase); err != nil {
			return nil, nil, err
		}
	}
	if base.IsZero() {
		return nil, ineligible(enums.IneligibilityReasonZeroDiscount, "not enough matching units for a free unit"), nil
	}

	amount, err := base.ApplyPercentage(getPercent)
	if err != nil {
		return nil, nil, err
	}
	if amount.IsZero() {
		return nil, ineligible(enums.IneligibilityReasonZeroDiscount, "discounted unit value rounds to nothing"), nil
	}

	allocated, err := money.AllocateProportionally(amount, weights)
	if err != nil {
		return nil, nil, err
	}
	shares := make([]itemShare, 0, len(lines))
	for i, item := range lines {
		if allocated[i].IsZero() {
			continue
		}
		shares = append(shares, itemShare{lineItemID: item.ID, amount: allocated[i]})
	}
	return r.newDiscount(amount, shares, false, false), nil, nil
}

func (r Rule) bundleDiscount(snap types.CartSnapshot, applicable []types.LineItem) (*types.Discount, *Ineligibility, error) {
	required := toSet(r.Bundle.RequiredProductIDs)

	bundleItems := make([]types.LineItem, 0, len(required))
	present := map[uuid.UUID]bool{}
	for _, item := range applicable {
		if required[item.ProductID] && item.Quantity >= 1 {
			bundleItems = append(bundleItems, item)
			present[item.ProductID] = true
		}
	}
	if len(present) < len(required) {
		return nil, ineligible(enums.IneligibilityReasonBundleIncomplete, fmt.Sprintf("bundle requires %d products, cart has %d", len(required), len(present))), nil
	}

	bundleSubtotal, lineTotals, err := subtotalOf(snap.Currency, bundleItems)
	if err != nil {
		return nil, nil, err
	}

	var amount money.Money
	if r.Bundle.BundlePrice != nil {
		if err := sameCurrency(*r.Bundle.BundlePrice, snap.Currency); err != nil {
			return nil, nil, err
		}
		clamped, _, err := bundleSubtotal.SubtractClamped(*r.Bundle.BundlePrice)
		if err != nil {
			return nil, nil, err
		}
		amount = clamped
	} else {
		amount, err = bundleSubtotal.ApplyPercentage(*r.Bundle.DiscountPercent)
		if err != nil {
			return nil, nil, err
		}
	}
	if amount.IsZero() {
		return nil, ineligible(enums.IneligibilityReasonZeroDiscount, "bundle yields no discount"), nil
	}

	allocated, err := money.AllocateProportionally(amount, lineTotals)
	if err != nil {
		return nil, nil, err
	}
	shares := make([]itemShare, 0, len(bundleItems))
	for i, item := range bundleItems {
		if allocated[i].IsZero() {
			continue
		}
		shares = append(shares, itemShare{lineItemID: item.ID, amount: allocated[i]})
	}
	return r.newDiscount(amount, shares, false, false), nil, nil
}

func (r Rule) cashbackDiscount(snap types.CartSnapshot, applicable []types.LineItem) (*types.Discount, *Ineligibility, error) {
	applicableSubtotal, _, err := subtotalOf(snap.Currency, applicable)
	if err != nil {
		return nil, nil, err
	}

	var amount money.Money
	if r.Cashback.Percent != nil {
		amount, err = applicableSubtotal.ApplyPercentage(*r.Cashback.Percent)
		if err != nil {
			return nil, nil, err
		}
	} else {
		if err := sameCurrency(*r.Cashback.Amount, snap.Currency); err != nil {
			return nil, nil, err
		}
		amount, err = money.Min(*r.Cashback.Amount, applicableSubtotal)
		if err != nil {
			return nil, nil, err
		}
	}
	if amount.IsZero() {
		return nil, ineligible(enums.IneligibilityReasonZeroDiscount, "cashback yields no credit"), nil
	}
	// Cashback is a post-purchase obligation: no item shares, never
	// subtracted from the order total.
	return r.newDiscount(amount, nil, false, true), nil, nil
}

func (r Rule) newDiscount(amount money.Money, shares []itemShare, freeShipping, cashback bool) *types.Discount {
	discount := &types.Discount{
		RuleID:       r.ID,
		Code:         r.Code,
		Type:         r.Type,
		Amount:       amount,
		Priority:     r.Priority,
		FreeShipping: freeShipping,
		Cashback:     cashback,
	}
	if len(shares) > 0 {
		discount.AffectedLineItemIDs = make([]uuid.UUID, 0, len(shares))
		discount.ItemShares = make(map[uuid.UUID]money.Money, len(shares))
		for _, share := range shares {
			discount.AffectedLineItemIDs = append(discount.AffectedLineItemIDs, share.lineItemID)
			discount.ItemShares[share.lineItemID] = share.amount
		}
	}
	return discount
}

func subtotalOf(currency enums.Currency, items []types.LineItem) (money.Money, []money.Money, error) {
	total := money.Zero(currency)
	lineTotals := make([]money.Money, 0, len(items))
	for _, item := range items {
		line, err := item.LineTotal()
		if err != nil {
			return money.Money{}, nil, err
		}
		lineTotals = append(lineTotals, line)
		if total, err = total.Add(line); err != nil {
			return money.Money{}, nil, err
		}
	}
	return total, lineTotals, nil
}

func sameCurrency(value money.Money, currency enums.Currency) error {
	if value.Currency() != currency {
		return pkgerrors.Newf(pkgerrors.CodeCurrencyMismatch, "rule money is %s but cart is %s", value.Currency(), currency)
	}
	return nil
}

func toSet(ids []uuid.UUID) map[uuid.UUID]bool {
	if len(ids) == 0 {
		return map[uuid.UUID]bool{}
	}
	set := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func parseClock(value string) (int, error) {
	parsed, err := time.Parse("15:04", value)
	if err != nil {
		return 0, err
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}
