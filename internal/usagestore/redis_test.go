package usagestore

import (
	"context"
	"testing"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/veldtcommerce/pricing-engine/internal/promotion"
	pkgerrors "github.com/veldtcommerce/pricing-engine/pkg/errors"
)

// fakeRedis mimics the atomic commit script against local maps.
type fakeRedis struct {
	counters map[string]int64
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{counters: make(map[string]int64)}
}

func (f *fakeRedis) GetInt64(ctx context.Context, key string) (int64, error) {
	return f.counters[key], nil
}

func (f *fakeRedis) RunScript(ctx context.Context, script *goredis.Script, keys []string, args ...any) ([]any, error) {
	limits := []int64{args[0].(int64), args[1].(int64), args[2].(int64)}
	counts := []int64{f.counters[keys[0]], f.counters[keys[1]], f.counters[keys[2]]}
	for i, limit := range limits {
		if limit >= 0 && counts[i] >= limit {
			return []any{int64(i + 1), counts[0], counts[1], counts[2]}, nil
		}
	}
	for _, key := range keys {
		f.counters[key]++
	}
	return []any{int64(0), f.counters[keys[0]], f.counters[keys[1]], f.counters[keys[2]]}, nil
}

func (f *fakeRedis) UsageKeys(ruleID, userID, day string) (string, string, string) {
	return ruleID + ":total", ruleID + ":user:" + userID, ruleID + ":day:" + day
}

func TestRedisCommitIncrementsAllCounters(t *testing.T) {
	ctx := context.Background()
	store := NewRedis(newFakeRedis())
	ruleID, userID := uuid.New(), uuid.New()

	usage, err := store.Commit(ctx, ruleID, userID, "2026-03-10", promotion.UsageLimit{})
	require.NoError(t, err)
	require.Equal(t, 1, usage.Total)
	require.Equal(t, 1, usage.ByUser)
	require.Equal(t, 1, usage.Today)

	snap, err := store.Snapshot(ctx, ruleID, userID, "2026-03-10")
	require.NoError(t, err)
	require.Equal(t, usage, snap)
}

func TestRedisCommitStopsAtLimit(t *testing.T) {
	ctx := context.Background()
	store := NewRedis(newFakeRedis())
	ruleID := uuid.New()

	two := 2
	limits := promotion.UsageLimit{Total: &two}

	for i := 0; i < 2; i++ {
		_, err := store.Commit(ctx, ruleID, uuid.New(), "2026-03-10", limits)
		require.NoError(t, err)
	}

	_, err := store.Commit(ctx, ruleID, uuid.New(), "2026-03-10", limits)
	require.Error(t, err)
	require.True(t, pkgerrors.HasCode(err, pkgerrors.CodeConflict))

	// Counters are untouched by the rejected commit.
	snap, err := store.Snapshot(ctx, ruleID, uuid.New(), "2026-03-10")
	require.NoError(t, err)
	require.Equal(t, 2, snap.Total)
}

func TestRedisCommitSeparatesDays(t *testing.T) {
	ctx := context.Background()
	store := NewRedis(newFakeRedis())
	ruleID, userID := uuid.New(), uuid.New()

	one := 1
	limits := promotion.UsageLimit{PerDay: &one}

	_, err := store.Commit(ctx, ruleID, userID, "2026-03-10", limits)
	require.NoError(t, err)

	_, err = store.Commit(ctx, ruleID, userID, "2026-03-10", limits)
	require.Error(t, err)

	_, err = store.Commit(ctx, ruleID, userID, "2026-03-11", limits)
	require.NoError(t, err)
}
