package types

import (
	"github.com/google/uuid"

	"github.com/veldtcommerce/pricing-engine/pkg/enums"
	"github.com/veldtcommerce/pricing-engine/pkg/money"
)

// Discount is the immutable output of evaluating one promotion rule
// against a cart snapshot. A correction is a new Discount, never an edit.
type Discount struct {
	RuleID   uuid.UUID           `json:"rule_id"`
	Code     string              `json:"code,omitempty"`
	Type     enums.PromotionType `json:"type"`
	Amount   money.Money         `json:"amount"`
	Priority int                 `json:"priority"`

	// AffectedLineItemIDs lists the lines the discount draws from, in
	// cart order. Empty for cart-level discounts (free shipping,
	// cashback).
	AffectedLineItemIDs []uuid.UUID `json:"affected_line_item_ids,omitempty"`

	// ItemShares breaks Amount down per affected line so overlapping
	// rules can be resolved per item rather than per rule.
	ItemShares map[uuid.UUID]money.Money `json:"item_shares,omitempty"`

	// FreeShipping marks a zero-amount discount that zeroes the shipping
	// fee; the shipping reduction is reported separately in the
	// breakdown, never double-subtracted.
	FreeShipping bool `json:"free_shipping,omitempty"`

	// Cashback marks a post-purchase credit obligation that is excluded
	// from the breakdown's subtractive total.
	Cashback bool `json:"cashback,omitempty"`
}

// ItemScoped reports whether the discount draws from specific line items.
func (d Discount) ItemScoped() bool {
	return len(d.ItemShares) > 0
}
