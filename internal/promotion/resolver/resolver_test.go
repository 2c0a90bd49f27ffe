package resolver

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/veldtcommerce/pricing-engine/internal/promotion"
	"github.com/veldtcommerce/pricing-engine/pkg/enums"
	pkgerrors "github.com/veldtcommerce/pricing-engine/pkg/errors"
	"github.com/veldtcommerce/pricing-engine/pkg/money"
	"github.com/veldtcommerce/pricing-engine/pkg/types"
)

// A Tuesday afternoon, so day and time gates stay out of the way.
var resolveNow = time.Date(2026, time.March, 10, 14, 30, 0, 0, time.UTC)

func cartItem(productID uuid.UUID, unitCents int64, qty int) types.LineItem {
	return types.LineItem{
		ID:        uuid.New(),
		ProductID: productID,
		UnitPrice: money.MustNew(unitCents, enums.CurrencyUSD),
		Quantity:  qty,
	}
}

func snapshotOf(items ...types.LineItem) types.CartSnapshot {
	return types.CartSnapshot{
		Items:    items,
		Currency: enums.CurrencyUSD,
		StoreID:  uuid.New(),
		UserID:   uuid.New(),
		Now:      resolveNow,
	}
}

func pctRule(id uuid.UUID, percent int64, priority int, stackable bool) promotion.Rule {
	return promotion.Rule{
		ID:         id,
		Code:       "PCT" + id.String()[:4],
		Type:       enums.PromotionTypePercentage,
		Scope:      enums.PromotionScopeGlobal,
		Percentage: &promotion.PercentageConfig{Percent: decimal.NewFromInt(percent)},
		Priority:   priority,
		Stackable:  stackable,
		ValidFrom:  resolveNow.Add(-time.Hour),
	}
}

func onProducts(rule promotion.Rule, productIDs ...uuid.UUID) promotion.Rule {
	rule.Conditions.ApplicableProductIDs = productIDs
	return rule
}

func TestResolveStacksDisjointDiscounts(t *testing.T) {
	productA, productB := uuid.New(), uuid.New()
	snap := snapshotOf(cartItem(productA, 10000, 1), cartItem(productB, 5000, 1))

	rules := []promotion.Rule{
		onProducts(pctRule(uuid.New(), 10, 1, true), productA),
		onProducts(pctRule(uuid.New(), 20, 1, true), productB),
	}

	res, err := New(nil).Resolve(context.Background(), rules, snap)
	require.NoError(t, err)
	require.Len(t, res.Discounts, 2)
	require.Empty(t, res.Rejections)
	require.False(t, res.Clamped)
	require.Equal(t, int64(2000), res.DiscountTotal.Amount())
}

func TestResolveExclusiveHigherPriorityWins(t *testing.T) {
	winnerID, loserID := uuid.New(), uuid.New()
	snap := snapshotOf(cartItem(uuid.New(), 10000, 1))

	rules := []promotion.Rule{
		pctRule(loserID, 20, 1, false),
		pctRule(winnerID, 10, 5, false),
	}

	res, err := New(nil).Resolve(context.Background(), rules, snap)
	require.NoError(t, err)
	require.Len(t, res.Discounts, 1)
	require.Equal(t, winnerID, res.Discounts[0].RuleID)
	require.Equal(t, int64(1000), res.DiscountTotal.Amount())

	require.Len(t, res.Rejections, 1)
	require.Equal(t, loserID.String(), res.Rejections[0].RuleID)
	require.Equal(t, enums.IneligibilityReasonLostConflict.String(), res.Rejections[0].Reason)
}

func TestResolveExclusiveAmountBreaksPriorityTie(t *testing.T) {
	bigID, smallID := uuid.New(), uuid.New()
	snap := snapshotOf(cartItem(uuid.New(), 10000, 1))

	rules := []promotion.Rule{
		pctRule(smallID, 10, 3, false),
		pctRule(bigID, 20, 3, false),
	}

	res, err := New(nil).Resolve(context.Background(), rules, snap)
	require.NoError(t, err)
	require.Len(t, res.Discounts, 1)
	require.Equal(t, bigID, res.Discounts[0].RuleID)
	require.Equal(t, int64(2000), res.DiscountTotal.Amount())
}

func TestResolveExclusiveRuleIDBreaksFullTie(t *testing.T) {
	first := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	second := uuid.MustParse("ffffffff-ffff-ffff-ffff-ffffffffffff")
	snap := snapshotOf(cartItem(uuid.New(), 10000, 1))

	rules := []promotion.Rule{
		pctRule(second, 10, 3, false),
		pctRule(first, 10, 3, false),
	}

	res, err := New(nil).Resolve(context.Background(), rules, snap)
	require.NoError(t, err)
	require.Len(t, res.Discounts, 1)
	require.Equal(t, first, res.Discounts[0].RuleID)
}

func TestResolvePerItemOverlapKeepsHigherShare(t *testing.T) {
	productA := uuid.New()
	bigID, smallID := uuid.New(), uuid.New()
	snap := snapshotOf(cartItem(productA, 10000, 1))

	rules := []promotion.Rule{
		onProducts(pctRule(smallID, 10, 1, true), productA),
		onProducts(pctRule(bigID, 20, 1, true), productA),
	}

	res, err := New(nil).Resolve(context.Background(), rules, snap)
	require.NoError(t, err)
	require.Len(t, res.Discounts, 1)
	require.Equal(t, bigID, res.Discounts[0].RuleID)
	require.Equal(t, int64(2000), res.DiscountTotal.Amount())

	require.Len(t, res.Rejections, 1)
	require.Equal(t, smallID.String(), res.Rejections[0].RuleID)
	require.Equal(t, enums.IneligibilityReasonLostConflict.String(), res.Rejections[0].Reason)
}

func TestResolvePartialOverlapKeepsDisjointItems(t *testing.T) {
	productA, productB := uuid.New(), uuid.New()
	wideID, narrowID := uuid.New(), uuid.New()
	itemA := cartItem(productA, 10000, 1)
	itemB := cartItem(productB, 10000, 1)
	snap := snapshotOf(itemA, itemB)

	rules := []promotion.Rule{
		onProducts(pctRule(wideID, 10, 1, true), productA, productB),
		onProducts(pctRule(narrowID, 50, 1, true), productB),
	}

	res, err := New(nil).Resolve(context.Background(), rules, snap)
	require.NoError(t, err)
	require.Len(t, res.Discounts, 2)
	require.Empty(t, res.Rejections)
	require.Equal(t, int64(6000), res.DiscountTotal.Amount())

	byRule := map[uuid.UUID]types.Discount{}
	for _, d := range res.Discounts {
		byRule[d.RuleID] = d
	}
	wide := byRule[wideID]
	require.Equal(t, int64(1000), wide.Amount.Amount())
	require.Equal(t, []uuid.UUID{itemA.ID}, wide.AffectedLineItemIDs)
	require.NotContains(t, wide.ItemShares, itemB.ID)

	narrow := byRule[narrowID]
	require.Equal(t, int64(5000), narrow.Amount.Amount())
	require.Equal(t, []uuid.UUID{itemB.ID}, narrow.AffectedLineItemIDs)
}

func TestResolveCollectsIneligibilityReasons(t *testing.T) {
	expired := pctRule(uuid.New(), 10, 1, true)
	until := resolveNow.Add(-time.Minute)
	expired.ValidUntil = &until

	live := pctRule(uuid.New(), 20, 1, true)
	snap := snapshotOf(cartItem(uuid.New(), 10000, 1))

	res, err := New(nil).Resolve(context.Background(), []promotion.Rule{expired, live}, snap)
	require.NoError(t, err)
	require.Len(t, res.Discounts, 1)
	require.Equal(t, live.ID, res.Discounts[0].RuleID)

	require.Len(t, res.Rejections, 1)
	require.Equal(t, expired.ID.String(), res.Rejections[0].RuleID)
	require.Equal(t, enums.IneligibilityReasonExpired.String(), res.Rejections[0].Reason)
}

func TestResolveMalformedRuleFailsResolution(t *testing.T) {
	broken := pctRule(uuid.New(), 10, 1, true)
	broken.Percentage = nil

	snap := snapshotOf(cartItem(uuid.New(), 10000, 1))
	_, err := New(nil).Resolve(context.Background(), []promotion.Rule{broken, pctRule(uuid.New(), 20, 1, true)}, snap)
	require.Error(t, err)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConfiguration))
}

func TestResolveCashbackExcludedFromDiscountTotal(t *testing.T) {
	pct := decimal.NewFromInt(5)
	cashback := promotion.Rule{
		ID:        uuid.New(),
		Type:      enums.PromotionTypeCashback,
		Scope:     enums.PromotionScopeGlobal,
		Cashback:  &promotion.CashbackConfig{Percent: &pct},
		Stackable: true,
		ValidFrom: resolveNow.Add(-time.Hour),
	}
	snap := snapshotOf(cartItem(uuid.New(), 10000, 1))

	res, err := New(nil).Resolve(context.Background(), []promotion.Rule{cashback, pctRule(uuid.New(), 10, 1, true)}, snap)
	require.NoError(t, err)
	require.Len(t, res.Discounts, 1)
	require.Len(t, res.Cashback, 1)
	require.Equal(t, int64(1000), res.DiscountTotal.Amount())
	require.Equal(t, int64(500), res.CashbackTotal.Amount())
}

func TestResolveFreeShippingFlag(t *testing.T) {
	freeShip := promotion.Rule{
		ID:        uuid.New(),
		Type:      enums.PromotionTypeFreeShipping,
		Scope:     enums.PromotionScopeGlobal,
		Stackable: true,
		ValidFrom: resolveNow.Add(-time.Hour),
	}
	snap := snapshotOf(cartItem(uuid.New(), 10000, 1))

	res, err := New(nil).Resolve(context.Background(), []promotion.Rule{freeShip}, snap)
	require.NoError(t, err)
	require.True(t, res.FreeShipping)
	require.True(t, res.DiscountTotal.IsZero())
}

func TestResolveDeterministicAcrossRuleOrder(t *testing.T) {
	productA, productB := uuid.New(), uuid.New()
	snap := snapshotOf(cartItem(productA, 10000, 2), cartItem(productB, 2500, 4))

	rules := []promotion.Rule{
		onProducts(pctRule(uuid.New(), 10, 2, true), productA),
		onProducts(pctRule(uuid.New(), 25, 1, true), productB),
		pctRule(uuid.New(), 15, 4, false),
		pctRule(uuid.New(), 15, 3, false),
	}
	reversed := make([]promotion.Rule, len(rules))
	for i, rule := range rules {
		reversed[len(rules)-1-i] = rule
	}

	first, err := New(nil).Resolve(context.Background(), rules, snap)
	require.NoError(t, err)
	second, err := New(nil).Resolve(context.Background(), reversed, snap)
	require.NoError(t, err)

	require.Equal(t, first.DiscountTotal, second.DiscountTotal)
	require.Equal(t, len(first.Discounts), len(second.Discounts))
	for i := range first.Discounts {
		require.Equal(t, first.Discounts[i].RuleID, second.Discounts[i].RuleID)
		require.Equal(t, first.Discounts[i].Amount, second.Discounts[i].Amount)
	}
}

func TestClampToSubtotalReducesLowestPriorityFirst(t *testing.T) {
	subtotal := money.MustNew(1000, enums.CurrencyUSD)
	high := types.Discount{
		RuleID:   uuid.New(),
		Type:     enums.PromotionTypeFixedAmount,
		Amount:   money.MustNew(800, enums.CurrencyUSD),
		Priority: 5,
	}
	low := types.Discount{
		RuleID:   uuid.New(),
		Type:     enums.PromotionTypeFixedAmount,
		Amount:   money.MustNew(600, enums.CurrencyUSD),
		Priority: 1,
	}

	var rejections []types.RuleRejection
	clamped, didClamp, err := clampToSubtotal([]types.Discount{high, low}, subtotal, enums.CurrencyUSD, &rejections)
	require.NoError(t, err)
	require.True(t, didClamp)
	require.Len(t, clamped, 2)
	require.Equal(t, int64(800), clamped[0].Amount.Amount())
	require.Equal(t, int64(200), clamped[1].Amount.Amount())
	require.Empty(t, rejections)
}

func TestClampToSubtotalDropsFullyClampedDiscount(t *testing.T) {
	subtotal := money.MustNew(500, enums.CurrencyUSD)
	high := types.Discount{
		RuleID:   uuid.New(),
		Type:     enums.PromotionTypeFixedAmount,
		Amount:   money.MustNew(500, enums.CurrencyUSD),
		Priority: 5,
	}
	low := types.Discount{
		RuleID:   uuid.New(),
		Type:     enums.PromotionTypeFixedAmount,
		Amount:   money.MustNew(300, enums.CurrencyUSD),
		Priority: 1,
	}

	var rejections []types.RuleRejection
	clamped, didClamp, err := clampToSubtotal([]types.Discount{high, low}, subtotal, enums.CurrencyUSD, &rejections)
	require.NoError(t, err)
	require.True(t, didClamp)
	require.Len(t, clamped, 1)
	require.Equal(t, high.RuleID, clamped[0].RuleID)
	require.Len(t, rejections, 1)
	require.Equal(t, low.RuleID.String(), rejections[0].RuleID)
}

func TestClampToSubtotalKeepsAffectedItemsInSyncWithShares(t *testing.T) {
	// Clamping wipes out the second item's share entirely; the discount
	// must stop listing that item as affected.
	subtotal := money.MustNew(500, enums.CurrencyUSD)
	itemA, itemB := uuid.New(), uuid.New()
	discount := types.Discount{
		RuleID:              uuid.New(),
		Type:                enums.PromotionTypeFixedAmount,
		Amount:              money.MustNew(1000, enums.CurrencyUSD),
		Priority:            1,
		AffectedLineItemIDs: []uuid.UUID{itemA, itemB},
		ItemShares: map[uuid.UUID]money.Money{
			itemA: money.MustNew(600, enums.CurrencyUSD),
			itemB: money.MustNew(400, enums.CurrencyUSD),
		},
	}

	var rejections []types.RuleRejection
	clamped, didClamp, err := clampToSubtotal([]types.Discount{discount}, subtotal, enums.CurrencyUSD, &rejections)
	require.NoError(t, err)
	require.True(t, didClamp)
	require.Len(t, clamped, 1)
	require.Equal(t, int64(500), clamped[0].Amount.Amount())
	require.Equal(t, []uuid.UUID{itemA}, clamped[0].AffectedLineItemIDs)
	require.NotContains(t, clamped[0].ItemShares, itemB)
	require.Equal(t, int64(500), clamped[0].ItemShares[itemA].Amount())
}
