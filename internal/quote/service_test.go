package quote

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/veldtcommerce/pricing-engine/internal/catalog"
	"github.com/veldtcommerce/pricing-engine/internal/pricing"
	"github.com/veldtcommerce/pricing-engine/internal/promotion"
	"github.com/veldtcommerce/pricing-engine/internal/promotion/resolver"
	"github.com/veldtcommerce/pricing-engine/internal/usagestore"
	"github.com/veldtcommerce/pricing-engine/pkg/enums"
	pkgerrors "github.com/veldtcommerce/pricing-engine/pkg/errors"
	"github.com/veldtcommerce/pricing-engine/pkg/money"
)

var quoteNow = time.Date(2026, time.March, 10, 14, 30, 0, 0, time.UTC)

func newTestService(t *testing.T, rules []promotion.Rule) (*Service, usagestore.Store) {
	t.Helper()
	engine, err := pricing.NewEngine(
		resolver.New(nil),
		decimal.Zero,
		pricing.NewFlatRate(money.MustNew(0, enums.CurrencyUSD)),
		nil,
		nil,
	)
	require.NoError(t, err)

	store := usagestore.NewMemory()
	svc, err := NewService(ServiceParams{
		Loader: catalog.NewStatic(rules),
		Engine: engine,
		Usage:  store,
		Now:    func() time.Time { return quoteNow },
	})
	require.NoError(t, err)
	return svc, store
}

func limitedRule(totalLimit int) promotion.Rule {
	return promotion.Rule{
		ID:         uuid.New(),
		Code:       "LIMITED",
		Type:       enums.PromotionTypePercentage,
		Scope:      enums.PromotionScopeGlobal,
		Percentage: &promotion.PercentageConfig{Percent: decimal.NewFromInt(10)},
		UsageLimit: promotion.UsageLimit{Total: &totalLimit},
		Stackable:  true,
		ValidFrom:  quoteNow.Add(-time.Hour),
	}
}

func cartRequest() Request {
	return Request{
		Currency: "USD",
		StoreID:  uuid.New(),
		UserID:   uuid.New(),
		Items: []ItemRequest{
			{ProductID: uuid.New(), UnitPriceCents: 1000, Quantity: 3},
		},
	}
}

func TestQuoteDoesNotConsumeUsage(t *testing.T) {
	svc, _ := newTestService(t, []promotion.Rule{limitedRule(1)})
	req := cartRequest()

	for i := 0; i < 3; i++ {
		breakdown, err := svc.Quote(context.Background(), req)
		require.NoError(t, err)
		require.Equal(t, int64(300), breakdown.DiscountTotal.Amount())
	}
}

func TestPriceOrderCommitsUsage(t *testing.T) {
	rule := limitedRule(1)
	svc, _ := newTestService(t, []promotion.Rule{rule})
	req := cartRequest()

	breakdown, err := svc.PriceOrder(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, int64(300), breakdown.DiscountTotal.Amount())

	// The limit is burned: the next order prices without the discount and
	// reports why.
	second, err := svc.PriceOrder(context.Background(), req)
	require.NoError(t, err)
	require.True(t, second.DiscountTotal.IsZero())
	require.Len(t, second.Rejections, 1)
	require.Equal(t, rule.ID.String(), second.Rejections[0].RuleID)
	require.Equal(t, enums.IneligibilityReasonUsageLimitReached.String(), second.Rejections[0].Reason)
}

func TestPriceOrderPerUserLimit(t *testing.T) {
	one := 1
	rule := limitedRule(100)
	rule.UsageLimit.PerUser = &one
	svc, _ := newTestService(t, []promotion.Rule{rule})

	req := cartRequest()
	_, err := svc.PriceOrder(context.Background(), req)
	require.NoError(t, err)

	// Same user is cut off, another user still qualifies.
	repeat, err := svc.PriceOrder(context.Background(), req)
	require.NoError(t, err)
	require.True(t, repeat.DiscountTotal.IsZero())

	other := req
	other.UserID = uuid.New()
	fresh, err := svc.PriceOrder(context.Background(), other)
	require.NoError(t, err)
	require.Equal(t, int64(300), fresh.DiscountTotal.Amount())
}

func TestQuoteSeesExternalCommits(t *testing.T) {
	rule := limitedRule(1)
	svc, store := newTestService(t, []promotion.Rule{rule})
	req := cartRequest()

	// Another instance burned the last redemption between our quote and
	// theirs.
	_, err := store.Commit(context.Background(), rule.ID, uuid.New(), usagestore.DayKey(quoteNow), rule.UsageLimit)
	require.NoError(t, err)

	breakdown, err := svc.Quote(context.Background(), req)
	require.NoError(t, err)
	require.True(t, breakdown.DiscountTotal.IsZero())
	require.Len(t, breakdown.Rejections, 1)
}

func TestQuoteRejectsUnknownCurrency(t *testing.T) {
	svc, _ := newTestService(t, nil)
	req := cartRequest()
	req.Currency = "XXX"

	_, err := svc.Quote(context.Background(), req)
	require.Error(t, err)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeValidation))
}

func TestQuoteGeneratesLineItemIDs(t *testing.T) {
	svc, _ := newTestService(t, []promotion.Rule{limitedRule(10)})
	req := cartRequest()

	breakdown, err := svc.Quote(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, breakdown.AppliedDiscounts, 1)
	require.Len(t, breakdown.AppliedDiscounts[0].AffectedLineItemIDs, 1)
	require.NotEqual(t, uuid.Nil, breakdown.AppliedDiscounts[0].AffectedLineItemIDs[0])
}
