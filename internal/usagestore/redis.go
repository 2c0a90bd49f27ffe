package usagestore

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/veldtcommerce/pricing-engine/internal/promotion"
	pkgerrors "github.com/veldtcommerce/pricing-engine/pkg/errors"
	"github.com/veldtcommerce/pricing-engine/pkg/types"
)

// dayTTLSeconds keeps per-day counters around long enough to cover clock
// skew between app instances, then lets them expire.
const dayTTLSeconds = 2 * 24 * 60 * 60

// commitScript checks every limit and increments all three counters in
// one atomic step. A negative limit argument means unlimited. The first
// reply element is 0 on success or the index of the violated limit.
var commitScript = goredis.NewScript(`
local total = tonumber(redis.call('GET', KEYS[1]) or '0')
local user = tonumber(redis.call('GET', KEYS[2]) or '0')
local day = tonumber(redis.call('GET', KEYS[3]) or '0')
if tonumber(ARGV[1]) >= 0 and total >= tonumber(ARGV[1]) then
  return {1, total, user, day}
end
if tonumber(ARGV[2]) >= 0 and user >= tonumber(ARGV[2]) then
  return {2, total, user, day}
end
if tonumber(ARGV[3]) >= 0 and day >= tonumber(ARGV[3]) then
  return {3, total, user, day}
end
total = redis.call('INCR', KEYS[1])
user = redis.call('INCR', KEYS[2])
day = redis.call('INCR', KEYS[3])
redis.call('EXPIRE', KEYS[3], ARGV[4])
return {0, total, user, day}
`)

var limitScopes = map[int64]string{1: "total", 2: "per_user", 3: "per_day"}

// redisCommands is the slice of the redis client the store needs.
type redisCommands interface {
	GetInt64(ctx context.Context, key string) (int64, error)
	RunScript(ctx context.Context, script *goredis.Script, keys []string, args ...any) ([]any, error)
	UsageKeys(ruleID, userID, day string) (total, user, daily string)
}

// Redis is the multi-instance Store backed by shared counters.
type Redis struct {
	client redisCommands
}

func NewRedis(client redisCommands) *Redis {
	return &Redis{client: client}
}

func (s *Redis) Snapshot(ctx context.Context, ruleID, userID uuid.UUID, day string) (types.RuleUsage, error) {
	totalKey, userKey, dayKey := s.client.UsageKeys(ruleID.String(), userID.String(), day)

	total, err := s.client.GetInt64(ctx, totalKey)
	if err != nil {
		return types.RuleUsage{}, dependencyErr(err)
	}
	byUser, err := s.client.GetInt64(ctx, userKey)
	if err != nil {
		return types.RuleUsage{}, dependencyErr(err)
	}
	today, err := s.client.GetInt64(ctx, dayKey)
	if err != nil {
		return types.RuleUsage{}, dependencyErr(err)
	}
	return types.RuleUsage{Total: int(total), ByUser: int(byUser), Today: int(today)}, nil
}

func (s *Redis) Commit(ctx context.Context, ruleID, userID uuid.UUID, day string, limits promotion.UsageLimit) (types.RuleUsage, error) {
	totalKey, userKey, dayKey := s.client.UsageKeys(ruleID.String(), userID.String(), day)
	keys := []string{totalKey, userKey, dayKey}
	args := []any{limitArg(limits.Total), limitArg(limits.PerUser), limitArg(limits.PerDay), dayTTLSeconds}

	reply, err := s.client.RunScript(ctx, commitScript, keys, args...)
	if err != nil {
		return types.RuleUsage{}, dependencyErr(err)
	}
	if len(reply) != 4 {
		return types.RuleUsage{}, pkgerrors.Newf(pkgerrors.CodeDependency, "usage commit returned %d values", len(reply))
	}

	outcome, counts, err := parseReply(reply)
	if err != nil {
		return types.RuleUsage{}, err
	}
	usage := types.RuleUsage{Total: counts[0], ByUser: counts[1], Today: counts[2]}
	if outcome != 0 {
		scope := limitScopes[outcome]
		return usage, pkgerrors.Newf(pkgerrors.CodeConflict, "promotion usage limit reached (%s)", scope).
			WithDetails(map[string]any{"rule_id": ruleID.String(), "scope": scope})
	}
	return usage, nil
}

func limitArg(limit *int) int64 {
	if limit == nil {
		return -1
	}
	return int64(*limit)
}

func parseReply(reply []any) (int64, [3]int, error) {
	values := make([]int64, 0, len(reply))
	for _, raw := range reply {
		value, ok := raw.(int64)
		if !ok {
			return 0, [3]int{}, pkgerrors.Newf(pkgerrors.CodeDependency, "usage commit returned non-integer %v", raw)
		}
		values = append(values, value)
	}
	return values[0], [3]int{int(values[1]), int(values[2]), int(values[3])}, nil
}

func dependencyErr(err error) error {
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("usage store: %v", err))
}
