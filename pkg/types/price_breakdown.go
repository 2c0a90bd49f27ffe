package types

import (
	"github.com/veldtcommerce/pricing-engine/pkg/money"
)

// PriceBreakdown is the itemized result of pricing a cart or order.
// Invariants: Total = Subtotal - DiscountTotal + Tax + Shipping, Total >= 0,
// DiscountTotal <= Subtotal, DiscountTotal = sum of non-cashback applied
// discount amounts.
type PriceBreakdown struct {
	Subtotal      money.Money `json:"subtotal"`
	DiscountTotal money.Money `json:"discount_total"`
	Tax           money.Money `json:"tax"`
	Shipping      money.Money `json:"shipping"`
	Total         money.Money `json:"total"`

	// ShippingDiscount reports the shipping fee waived by a free-shipping
	// rule, kept out of DiscountTotal.
	ShippingDiscount money.Money `json:"shipping_discount"`

	// CashbackTotal is the post-purchase credit obligation, not
	// subtracted from Total.
	CashbackTotal money.Money `json:"cashback_total"`

	// AppliedDiscounts lists subtractive discounts first, then cashback
	// entries (Cashback true). DiscountTotal sums only the subtractive
	// entries; CashbackTotal sums the rest.
	AppliedDiscounts []Discount `json:"applied_discounts"`

	// Clamped reports that the discount total was reduced to fit the
	// subtotal. Informational, surfaced for transparency.
	Clamped bool `json:"clamped,omitempty"`

	// Rejections explains each candidate rule that produced no discount.
	Rejections []RuleRejection `json:"rejections,omitempty"`
}

// RuleRejection records why a candidate rule was not applied.
type RuleRejection struct {
	RuleID string `json:"rule_id"`
	Code   string `json:"code,omitempty"`
	Reason string `json:"reason"`
	Detail string `json:"detail,omitempty"`
}
