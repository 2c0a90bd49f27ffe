package usagestore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/veldtcommerce/pricing-engine/internal/promotion"
	"github.com/veldtcommerce/pricing-engine/pkg/types"
)

// Store tracks promotion redemptions. Commit is compare-and-swap shaped:
// the limits are re-checked atomically against the live counters so two
// concurrent checkouts can never both take the last redemption.
type Store interface {
	// Snapshot returns a consistent view of the counters for one rule as
	// seen by one user on one calendar day.
	Snapshot(ctx context.Context, ruleID, userID uuid.UUID, day string) (types.RuleUsage, error)

	// Commit records one redemption. It fails with a CONFLICT error when
	// any supplied limit is already reached; the caller treats that as
	// the rule having been exhausted between evaluation and commit.
	Commit(ctx context.Context, ruleID, userID uuid.UUID, day string, limits promotion.UsageLimit) (types.RuleUsage, error)
}

// DayKey buckets a timestamp into the UTC calendar day used for per-day
// limits.
func DayKey(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func limitReached(count int, limit *int) bool {
	return limit != nil && count >= *limit
}
