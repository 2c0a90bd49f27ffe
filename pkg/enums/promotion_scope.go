package enums

import "fmt"

// PromotionScope narrows the population a promotion rule targets.
type PromotionScope string

const (
	PromotionScopeGlobal        PromotionScope = "global"
	PromotionScopeStore         PromotionScope = "store"
	PromotionScopeCategory      PromotionScope = "category"
	PromotionScopeProduct       PromotionScope = "product"
	PromotionScopeUser          PromotionScope = "user"
	PromotionScopeFirstTimeUser PromotionScope = "first_time_user"
)

var validPromotionScopes = []PromotionScope{
	PromotionScopeGlobal,
	PromotionScopeStore,
	PromotionScopeCategory,
	PromotionScopeProduct,
	PromotionScopeUser,
	PromotionScopeFirstTimeUser,
}

// String implements fmt.Stringer.
func (s PromotionScope) String() string {
	return string(s)
}

// IsValid reports whether the value is a known PromotionScope.
func (s PromotionScope) IsValid() bool {
	for _, candidate := range validPromotionScopes {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParsePromotionScope converts raw input into a PromotionScope.
func ParsePromotionScope(value string) (PromotionScope, error) {
	for _, candidate := range validPromotionScopes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid promotion scope %q", value)
}
