package enums

// IneligibilityReason explains why a promotion rule produced no discount.
// Ineligibility is a normal business outcome, not an error; the reason is
// carried for UI display and observability.
type IneligibilityReason string

const (
	IneligibilityReasonNotStarted          IneligibilityReason = "not_started"
	IneligibilityReasonExpired             IneligibilityReason = "expired"
	IneligibilityReasonUsageLimitReached   IneligibilityReason = "usage_limit_reached"
	IneligibilityReasonPerUserLimitReached IneligibilityReason = "per_user_limit_reached"
	IneligibilityReasonPerDayLimitReached  IneligibilityReason = "per_day_limit_reached"
	IneligibilityReasonScopeMismatch       IneligibilityReason = "scope_mismatch"
	IneligibilityReasonNoApplicableItems   IneligibilityReason = "no_applicable_items"
	IneligibilityReasonMinOrderNotMet      IneligibilityReason = "min_order_not_met"
	IneligibilityReasonMinQuantityNotMet   IneligibilityReason = "min_quantity_not_met"
	IneligibilityReasonOutsideTimeWindow   IneligibilityReason = "outside_time_window"
	IneligibilityReasonWrongDayOfWeek      IneligibilityReason = "wrong_day_of_week"
	IneligibilityReasonNotFirstTimeUser    IneligibilityReason = "not_first_time_user"
	IneligibilityReasonBundleIncomplete    IneligibilityReason = "bundle_incomplete"
	IneligibilityReasonZeroDiscount        IneligibilityReason = "zero_discount"
	IneligibilityReasonLostConflict        IneligibilityReason = "lost_conflict"
)

// String implements fmt.Stringer.
func (r IneligibilityReason) String() string {
	return string(r)
}
