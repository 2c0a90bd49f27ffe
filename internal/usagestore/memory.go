package usagestore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/veldtcommerce/pricing-engine/internal/promotion"
	pkgerrors "github.com/veldtcommerce/pricing-engine/pkg/errors"
	"github.com/veldtcommerce/pricing-engine/pkg/types"
)

// Memory is the single-process Store. One mutex guards check and
// increment together, which is the whole point.
type Memory struct {
	mu       sync.Mutex
	counters map[string]int
}

func NewMemory() *Memory {
	return &Memory{counters: make(map[string]int)}
}

func (s *Memory) Snapshot(ctx context.Context, ruleID, userID uuid.UUID, day string) (types.RuleUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usageLocked(ruleID, userID, day), nil
}

func (s *Memory) Commit(ctx context.Context, ruleID, userID uuid.UUID, day string, limits promotion.UsageLimit) (types.RuleUsage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	usage := s.usageLocked(ruleID, userID, day)
	if limitReached(usage.Total, limits.Total) {
		return usage, exhausted(ruleID, "total", usage.Total)
	}
	if limitReached(usage.ByUser, limits.PerUser) {
		return usage, exhausted(ruleID, "per_user", usage.ByUser)
	}
	if limitReached(usage.Today, limits.PerDay) {
		return usage, exhausted(ruleID, "per_day", usage.Today)
	}

	s.counters[totalKey(ruleID)]++
	s.counters[userKey(ruleID, userID)]++
	s.counters[dayKey(ruleID, day)]++
	return s.usageLocked(ruleID, userID, day), nil
}

func (s *Memory) usageLocked(ruleID, userID uuid.UUID, day string) types.RuleUsage {
	return types.RuleUsage{
		Total:  s.counters[totalKey(ruleID)],
		ByUser: s.counters[userKey(ruleID, userID)],
		Today:  s.counters[dayKey(ruleID, day)],
	}
}

func totalKey(ruleID uuid.UUID) string {
	return ruleID.String() + ":total"
}

func userKey(ruleID, userID uuid.UUID) string {
	return ruleID.String() + ":user:" + userID.String()
}

func dayKey(ruleID uuid.UUID, day string) string {
	return ruleID.String() + ":day:" + day
}

func exhausted(ruleID uuid.UUID, scope string, count int) error {
	return pkgerrors.Newf(pkgerrors.CodeConflict, "promotion usage limit reached (%s)", scope).
		WithDetails(map[string]any{
			"rule_id": ruleID.String(),
			"scope":   scope,
			"count":   fmt.Sprint(count),
		})
}
