package resolver

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/veldtcommerce/pricing-engine/internal/promotion"
	"github.com/veldtcommerce/pricing-engine/pkg/enums"
	"github.com/veldtcommerce/pricing-engine/pkg/logger"
	"github.com/veldtcommerce/pricing-engine/pkg/money"
	"github.com/veldtcommerce/pricing-engine/pkg/types"
)

// Resolver turns a list of candidate rules into a conflict-free, ordered
// discount set. Resolution is deterministic: the same rule set and
// snapshot always produce the same winners in the same order.
type Resolver struct {
	logg *logger.Logger
}

// New builds a resolver. The logger may be nil.
func New(logg *logger.Logger) *Resolver {
	return &Resolver{logg: logg}
}

// Resolution is the conflict-free output of resolving candidate rules.
type Resolution struct {
	// Discounts are the applied subtractive discounts in priority order.
	Discounts []types.Discount
	// Cashback holds post-purchase credit obligations, excluded from
	// DiscountTotal.
	Cashback []types.Discount
	// FreeShipping is set when any applied rule waives the shipping fee.
	FreeShipping bool
	// DiscountTotal is the sum of applied subtractive discounts, clamped
	// to the subtotal.
	DiscountTotal money.Money
	CashbackTotal money.Money
	// Clamped reports that DiscountTotal was reduced to fit the subtotal.
	Clamped bool
	// Rejections explains every candidate that did not survive.
	Rejections []types.RuleRejection
}

// Resolve evaluates every candidate independently, selects at most one
// exclusive (non-stackable) winner, resolves per-line-item overlaps, and
// clamps the total to the subtotal. A malformed rule fails the whole
// resolution; ineligible rules are collected as rejections.
func (r *Resolver) Resolve(ctx context.Context, rules []promotion.Rule, snap types.CartSnapshot) (*Resolution, error) {
	subtotal, err := snap.Subtotal()
	if err != nil {
		return nil, err
	}

	resolution := &Resolution{
		DiscountTotal: money.Zero(snap.Currency),
		CashbackTotal: money.Zero(snap.Currency),
	}

	var exclusive, stackable []types.Discount
	for _, rule := range rules {
		discount, reason, err := rule.Evaluate(snap)
		if err != nil {
			// Malformed rules are configuration errors for the caller,
			// never silently skipped.
			return nil, err
		}
		if reason != nil {
			resolution.Rejections = append(resolution.Rejections, rejection(rule.ID, rule.Code, reason.Reason, reason.Detail))
			continue
		}
		if rule.Stackable {
			stackable = append(stackable, *discount)
		} else {
			exclusive = append(exclusive, *discount)
		}
	}

	applied := stackable
	if len(exclusive) > 0 {
		sortDiscounts(exclusive)
		winner := exclusive[0]
		for _, loser := range exclusive[1:] {
			resolution.Rejections = append(resolution.Rejections, rejection(loser.RuleID, loser.Code, enums.IneligibilityReasonLostConflict, "lost exclusivity to rule "+winner.RuleID.String()))
		}
		applied = append(applied, winner)
	}
	sortDiscounts(applied)

	applied, itemRejections := resolvePerItemWinners(applied, snap)
	resolution.Rejections = append(resolution.Rejections, itemRejections...)

	applied, clamped, err := clampToSubtotal(applied, subtotal, snap.Currency, &resolution.Rejections)
	if err != nil {
		return nil, err
	}
	resolution.Clamped = clamped

	for _, discount := range applied {
		switch {
		case discount.Cashback:
			resolution.Cashback = append(resolution.Cashback, discount)
			if resolution.CashbackTotal, err = resolution.CashbackTotal.Add(discount.Amount); err != nil {
				return nil, err
			}
		default:
			if discount.FreeShipping {
				resolution.FreeShipping = true
			}
			resolution.Discounts = append(resolution.Discounts, discount)
			if resolution.DiscountTotal, err = resolution.DiscountTotal.Add(discount.Amount); err != nil {
				return nil, err
			}
		}
	}

	if r.logg != nil {
		ctx = r.logg.WithFields(ctx, map[string]any{
			"candidates":     len(rules),
			"applied":        len(resolution.Discounts),
			"rejected":       len(resolution.Rejections),
			"discount_total": resolution.DiscountTotal.String(),
			"clamped":        resolution.Clamped,
		})
		if resolution.Clamped {
			r.logg.Warn(ctx, "discount total clamped to subtotal")
		} else {
			r.logg.Debug(ctx, "promotion resolution complete")
		}
	}

	return resolution, nil
}

// sortDiscounts orders by priority descending, computed amount
// descending, then rule id ascending. Stable ordering is a correctness
// requirement: the same input set must always pick the same winner.
func sortDiscounts(discounts []types.Discount) {
	sort.SliceStable(discounts, func(i, j int) bool {
		a, b := discounts[i], discounts[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		if a.Amount.Amount() != b.Amount.Amount() {
			return a.Amount.Amount() > b.Amount.Amount()
		}
		return a.RuleID.String() < b.RuleID.String()
	})
}

// resolvePerItemWinners enforces one winning discount per line item: when
// two applied rules discount the same line, the higher per-item share
// wins that item and the other rule keeps only its disjoint items. This
// runs regardless of stackability.
func resolvePerItemWinners(applied []types.Discount, snap types.CartSnapshot) ([]types.Discount, []types.RuleRejection) {
	winners := map[uuid.UUID]int{} // line item id -> index into applied
	for idx, discount := range applied {
		for itemID, share := range discount.ItemShares {
			currentIdx, claimed := winners[itemID]
			if !claimed {
				winners[itemID] = idx
				continue
			}
			current := applied[currentIdx]
			currentShare := current.ItemShares[itemID]
			if beatsForItem(share, discount, currentShare, current) {
				winners[itemID] = idx
			}
		}
	}

	var rejections []types.RuleRejection
	result := make([]types.Discount, 0, len(applied))
	for idx, discount := range applied {
		if !discount.ItemScoped() {
			result = append(result, discount)
			continue
		}
		rebuilt, ok := retainItems(discount, func(itemID uuid.UUID) bool {
			return winners[itemID] == idx
		}, snap.Currency)
		if !ok {
			rejections = append(rejections, rejection(discount.RuleID, discount.Code, enums.IneligibilityReasonLostConflict, "every affected item resolved to a higher discount"))
			continue
		}
		result = append(result, rebuilt)
	}
	return result, rejections
}

// beatsForItem decides whether the challenger takes a contested line
// item: larger per-item share wins, then priority, then rule id.
func beatsForItem(share money.Money, challenger types.Discount, currentShare money.Money, current types.Discount) bool {
	if share.Amount() != currentShare.Amount() {
		return share.Amount() > currentShare.Amount()
	}
	if challenger.Priority != current.Priority {
		return challenger.Priority > current.Priority
	}
	return challenger.RuleID.String() < current.RuleID.String()
}

// retainItems rebuilds a discount keeping only the items the predicate
// accepts. Discounts are immutable, so a reduced discount is a new value.
func retainItems(discount types.Discount, keep func(uuid.UUID) bool, currency enums.Currency) (types.Discount, bool) {
	amount := money.Zero(currency)
	ids := make([]uuid.UUID, 0, len(discount.AffectedLineItemIDs))
	shares := make(map[uuid.UUID]money.Money, len(discount.ItemShares))
	for _, itemID := range discount.AffectedLineItemIDs {
		if !keep(itemID) {
			continue
		}
		share := discount.ItemShares[itemID]
		ids = append(ids, itemID)
		shares[itemID] = share
		next, err := amount.Add(share)
		if err != nil {
			return types.Discount{}, false
		}
		amount = next
	}
	if amount.IsZero() {
		return types.Discount{}, false
	}
	rebuilt := discount
	rebuilt.Amount = amount
	rebuilt.AffectedLineItemIDs = ids
	rebuilt.ItemShares = shares
	return rebuilt, true
}

// clampToSubtotal reduces the applied set so the subtractive total never
// exceeds the subtotal. Reduction starts from the lowest-priority
// discount, mirroring the exclusivity ordering.
func clampToSubtotal(applied []types.Discount, subtotal money.Money, currency enums.Currency, rejections *[]types.RuleRejection) ([]types.Discount, bool, error) {
	total := money.Zero(currency)
	for _, discount := range applied {
		if discount.Cashback {
			continue
		}
		next, err := total.Add(discount.Amount)
		if err != nil {
			return nil, false, err
		}
		total = next
	}

	cmp, err := total.Cmp(subtotal)
	if err != nil {
		return nil, false, err
	}
	if cmp <= 0 {
		return applied, false, nil
	}

	excess, err := total.Subtract(subtotal)
	if err != nil {
		return nil, false, err
	}

	result := make([]types.Discount, len(applied))
	copy(result, applied)
	for i := len(result) - 1; i >= 0 && !excess.IsZero(); i-- {
		discount := result[i]
		if discount.Cashback {
			continue
		}
		reduceBy, err := money.Min(discount.Amount, excess)
		if err != nil {
			return nil, false, err
		}
		if excess, err = excess.Subtract(reduceBy); err != nil {
			return nil, false, err
		}
		reduced, err := discount.Amount.Subtract(reduceBy)
		if err != nil {
			return nil, false, err
		}
		if reduced.IsZero() && !discount.FreeShipping {
			*rejections = append(*rejections, rejection(discount.RuleID, discount.Code, enums.IneligibilityReasonLostConflict, "discount fully clamped by subtotal"))
			result = append(result[:i], result[i+1:]...)
			continue
		}
		discount.Amount = reduced
		discount.ItemShares = trimShares(discount, reduceBy, currency)
		discount.AffectedLineItemIDs = survivingItems(discount)
		result[i] = discount
	}
	return result, true, nil
}

// trimShares walks the affected items from the back, shrinking shares so
// they keep summing to the reduced amount.
func trimShares(discount types.Discount, reduceBy money.Money, currency enums.Currency) map[uuid.UUID]money.Money {
	if len(discount.ItemShares) == 0 {
		return discount.ItemShares
	}
	shares := make(map[uuid.UUID]money.Money, len(discount.ItemShares))
	for id, share := range discount.ItemShares {
		shares[id] = share
	}
	remaining := reduceBy
	for i := len(discount.AffectedLineItemIDs) - 1; i >= 0 && !remaining.IsZero(); i-- {
		itemID := discount.AffectedLineItemIDs[i]
		share, ok := shares[itemID]
		if !ok {
			continue
		}
		cut, err := money.Min(share, remaining)
		if err != nil {
			return shares
		}
		if remaining, err = remaining.Subtract(cut); err != nil {
			return shares
		}
		left, err := share.Subtract(cut)
		if err != nil {
			return shares
		}
		if left.IsZero() {
			delete(shares, itemID)
		} else {
			shares[itemID] = left
		}
	}
	return shares
}

// survivingItems keeps the affected-item list consistent with the shares
// left after a trim, preserving the original order.
func survivingItems(discount types.Discount) []uuid.UUID {
	if len(discount.AffectedLineItemIDs) == len(discount.ItemShares) {
		return discount.AffectedLineItemIDs
	}
	ids := make([]uuid.UUID, 0, len(discount.ItemShares))
	for _, itemID := range discount.AffectedLineItemIDs {
		if _, ok := discount.ItemShares[itemID]; ok {
			ids = append(ids, itemID)
		}
	}
	return ids
}

func rejection(ruleID uuid.UUID, code string, reason enums.IneligibilityReason, detail string) types.RuleRejection {
	return types.RuleRejection{
		RuleID: ruleID.String(),
		Code:   code,
		Reason: reason.String(),
		Detail: detail,
	}
}
