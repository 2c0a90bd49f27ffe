package pricing

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/veldtcommerce/pricing-engine/internal/promotion"
	"github.com/veldtcommerce/pricing-engine/internal/promotion/resolver"
	pkgerrors "github.com/veldtcommerce/pricing-engine/pkg/errors"
	"github.com/veldtcommerce/pricing-engine/pkg/logger"
	"github.com/veldtcommerce/pricing-engine/pkg/metrics"
	"github.com/veldtcommerce/pricing-engine/pkg/money"
	"github.com/veldtcommerce/pricing-engine/pkg/types"
)

// Engine folds resolved discounts, tax, and shipping into an itemized
// breakdown. The same path prices cart previews and order finalization so
// the two can never drift apart.
type Engine struct {
	resolver *resolver.Resolver
	taxRate  decimal.Decimal
	shipping ShippingPolicy
	logg     *logger.Logger
	mets     *metrics.EngineMetrics
}

// NewEngine builds a pricing engine. The tax rate is a fraction, 0.08
// meaning 8 percent. Logger and metrics may be nil.
func NewEngine(res *resolver.Resolver, taxRate decimal.Decimal, shipping ShippingPolicy, logg *logger.Logger, mets *metrics.EngineMetrics) (*Engine, error) {
	if res == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "pricing engine requires a resolver")
	}
	if shipping == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "pricing engine requires a shipping policy")
	}
	if taxRate.IsNegative() {
		return nil, pkgerrors.Newf(pkgerrors.CodeConfiguration, "tax rate must be non-negative, got %s", taxRate)
	}
	return &Engine{
		resolver: res,
		taxRate:  taxRate,
		shipping: shipping,
		logg:     logg,
		mets:     mets,
	}, nil
}

// Price runs the full pipeline: subtotal, discount resolution, tax on the
// post-discount amount, then shipping. Tax is always computed after
// discounts; the breakdown invariants hold by construction.
func (e *Engine) Price(ctx context.Context, snap types.CartSnapshot, rules []promotion.Rule) (*types.PriceBreakdown, error) {
	subtotal, err := snap.Subtotal()
	if err != nil {
		return nil, err
	}

	resolution, err := e.resolver.Resolve(ctx, rules, snap)
	if err != nil {
		return nil, err
	}

	taxable, err := subtotal.Subtract(resolution.DiscountTotal)
	if err != nil {
		return nil, err
	}
	tax, err := taxable.Multiply(e.taxRate)
	if err != nil {
		return nil, err
	}

	shipping, shippingDiscount, err := e.shippingFor(taxable, resolution.FreeShipping)
	if err != nil {
		return nil, err
	}

	total, err := money.Sum(snap.Currency, taxable, tax, shipping)
	if err != nil {
		return nil, err
	}

	applied := make([]types.Discount, 0, len(resolution.Discounts)+len(resolution.Cashback))
	applied = append(applied, resolution.Discounts...)
	applied = append(applied, resolution.Cashback...)

	breakdown := &types.PriceBreakdown{
		Subtotal:         subtotal,
		DiscountTotal:    resolution.DiscountTotal,
		Tax:              tax,
		Shipping:         shipping,
		Total:            total,
		ShippingDiscount: shippingDiscount,
		CashbackTotal:    resolution.CashbackTotal,
		AppliedDiscounts: applied,
		Clamped:          resolution.Clamped,
		Rejections:       resolution.Rejections,
	}

	e.mets.IncQuotes()
	for _, discount := range applied {
		e.mets.IncDiscountApplied(discount.Type.String())
	}
	if breakdown.Clamped {
		e.mets.IncClamped()
	}
	if e.logg != nil {
		ctx = e.logg.WithFields(ctx, map[string]any{
			"subtotal":       subtotal.String(),
			"discount_total": breakdown.DiscountTotal.String(),
			"tax":            tax.String(),
			"shipping":       shipping.String(),
			"total":          total.String(),
		})
		e.logg.Debug(ctx, "priced cart")
	}

	return breakdown, nil
}

// shippingFor computes the fee and the amount waived by a free-shipping
// rule. The waived fee is reported separately, never folded into the
// subtractive discount total.
func (e *Engine) shippingFor(postDiscount money.Money, freeShipping bool) (money.Money, money.Money, error) {
	fee, err := e.shipping.Fee(postDiscount)
	if err != nil {
		return money.Money{}, money.Money{}, err
	}
	if freeShipping {
		return money.Zero(postDiscount.Currency()), fee, nil
	}
	return fee, money.Zero(postDiscount.Currency()), nil
}
