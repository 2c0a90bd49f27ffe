package promotion

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/veldtcommerce/pricing-engine/pkg/enums"
	"github.com/veldtcommerce/pricing-engine/pkg/money"
)

// Rule is a single resolved promotion definition. The engine treats rules
// as read-only value objects: it evaluates them and reports exhaustion but
// never mutates usage counters (the caller serializes those at the storage
// boundary).
//
// Exactly one per-type config must be set, matching Type; anything else is
// a configuration error. FreeShipping carries no config.
type Rule struct {
	ID    uuid.UUID           `json:"id"`
	Code  string              `json:"code,omitempty"`
	Type  enums.PromotionType `json:"type"`
	Scope enums.PromotionScope `json:"scope"`

	// StoreID targets store-scoped rules; UserID targets user-scoped ones.
	StoreID *uuid.UUID `json:"store_id,omitempty"`
	UserID  *uuid.UUID `json:"user_id,omitempty"`

	Percentage  *PercentageConfig  `json:"percentage,omitempty"`
	FixedAmount *FixedAmountConfig `json:"fixed_amount,omitempty"`
	BuyXGetY    *BuyXGetYConfig    `json:"buy_x_get_y,omitempty"`
	Bundle      *BundleConfig      `json:"bundle,omitempty"`
	Cashback    *CashbackConfig    `json:"cashback,omitempty"`

	Conditions Conditions `json:"conditions"`
	UsageLimit UsageLimit `json:"usage_limit"`

	// CurrentUsage is the global redemption count as of the snapshot the
	// caller assembled.
	CurrentUsage int `json:"current_usage"`

	Priority  int  `json:"priority"`
	Stackable bool `json:"stackable"`

	ValidFrom  time.Time  `json:"valid_from"`
	ValidUntil *time.Time `json:"valid_until,omitempty"`
}

// PercentageConfig discounts the applicable subtotal by a percentage.
type PercentageConfig struct {
	Percent decimal.Decimal `json:"percent"`
}

// FixedAmountConfig discounts a fixed amount, capped at the applicable
// subtotal.
type FixedAmountConfig struct {
	Amount money.Money `json:"amount"`
}

// BuyXGetYConfig grants free or discounted units per matching product.
// GetDiscountPercent defaults to 100 (free) when nil.
type BuyXGetYConfig struct {
	BuyQuantity        int              `json:"buy_quantity"`
	GetQuantity        int              `json:"get_quantity"`
	GetDiscountPercent *decimal.Decimal `json:"get_discount_percent,omitempty"`
}

// BundleConfig discounts a set of products bought together. Exactly one of
// BundlePrice or DiscountPercent must be set.
type BundleConfig struct {
	RequiredProductIDs []uuid.UUID      `json:"required_product_ids"`
	BundlePrice        *money.Money     `json:"bundle_price,omitempty"`
	DiscountPercent    *decimal.Decimal `json:"discount_percent,omitempty"`
}

// CashbackConfig records a post-purchase credit, either a percentage of
// the applicable subtotal or a fixed amount. Exactly one must be set.
type CashbackConfig struct {
	Percent *decimal.Decimal `json:"percent,omitempty"`
	Amount  *money.Money     `json:"amount,omitempty"`
}

// TimeWindow restricts a rule to a daily time-of-day range in "15:04"
// format. A window whose start is after its end wraps midnight.
type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Conditions are the eligibility gates shared by all rule types.
type Conditions struct {
	MinOrderAmount        *money.Money   `json:"min_order_amount,omitempty"`
	MinQuantity           *int           `json:"min_quantity,omitempty"`
	ApplicableProductIDs  []uuid.UUID    `json:"applicable_product_ids,omitempty"`
	ExcludedProductIDs    []uuid.UUID    `json:"excluded_product_ids,omitempty"`
	ApplicableCategoryIDs []uuid.UUID    `json:"applicable_category_ids,omitempty"`
	DaysOfWeek            []time.Weekday `json:"days_of_week,omitempty"`
	TimeWindow            *TimeWindow    `json:"time_window,omitempty"`
	FirstTimeUserOnly     bool           `json:"first_time_user_only,omitempty"`
}

// UsageLimit caps redemptions globally, per user, and per calendar day.
// Nil means unlimited.
type UsageLimit struct {
	Total   *int `json:"total,omitempty"`
	PerUser *int `json:"per_user,omitempty"`
	PerDay  *int `json:"per_day,omitempty"`
}

// Ineligibility is the normal non-error outcome of evaluating a rule that
// produced no discount.
type Ineligibility struct {
	Reason enums.IneligibilityReason `json:"reason"`
	Detail string                    `json:"detail,omitempty"`
}

func ineligible(reason enums.IneligibilityReason, detail string) *Ineligibility {
	return &Ineligibility{Reason: reason, Detail: detail}
}
