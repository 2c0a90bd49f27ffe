package enums

import "fmt"

// PromotionType identifies the discount math a promotion rule applies.
type PromotionType string

const (
	PromotionTypePercentage   PromotionType = "percentage"
	PromotionTypeFixedAmount  PromotionType = "fixed_amount"
	PromotionTypeBuyXGetY     PromotionType = "buy_x_get_y"
	PromotionTypeFreeShipping PromotionType = "free_shipping"
	PromotionTypeBundle       PromotionType = "bundle"
	PromotionTypeCashback     PromotionType = "cashback"
)

var validPromotionTypes = []PromotionType{
	PromotionTypePercentage,
	PromotionTypeFixedAmount,
	PromotionTypeBuyXGetY,
	PromotionTypeFreeShipping,
	PromotionTypeBundle,
	PromotionTypeCashback,
}

// String implements fmt.Stringer.
func (t PromotionType) String() string {
	return string(t)
}

// IsValid reports whether the value is a known PromotionType.
func (t PromotionType) IsValid() bool {
	for _, candidate := range validPromotionTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParsePromotionType converts raw input into a PromotionType.
func ParsePromotionType(value string) (PromotionType, error) {
	for _, candidate := range validPromotionTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid promotion type %q", value)
}
