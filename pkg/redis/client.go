package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/veldtcommerce/pricing-engine/pkg/config"
)

const (
	keyNamespace = "pricing"
	usagePrefix  = "promo_usage"
)

type cmdable interface {
	Ping(context.Context) *redis.StatusCmd
	Get(context.Context, string) *redis.StringCmd
	Set(context.Context, string, any, time.Duration) *redis.StatusCmd
	Del(context.Context, ...string) *redis.IntCmd
}

// Client wraps the redis connection used for shared promotion usage
// counters.
type Client struct {
	store cmdable
	raw   *redis.Client
}

// New bootstraps a Redis client and verifies connectivity.
func New(ctx context.Context, cfg config.RedisConfig) (*Client, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}
	raw := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})
	if err := raw.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Client{store: raw, raw: raw}, nil
}

// Ping verifies the connection.
func (c *Client) Ping(ctx context.Context) error {
	if c.store == nil {
		return errors.New("redis client not initialized")
	}
	return c.store.Ping(ctx).Err()
}

// Get returns the string value stored at key.
func (c *Client) Get(ctx context.Context, key string) (string, error) {
	if c.store == nil {
		return "", errors.New("redis client not initialized")
	}
	return c.store.Get(ctx, key).Result()
}

// GetInt64 returns the counter stored at key, zero when the key is absent.
func (c *Client) GetInt64(ctx context.Context, key string) (int64, error) {
	value, err := c.Get(ctx, key)
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	count, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("counter %s holds non-integer %q", key, value)
	}
	return count, nil
}

// Del removes the provided keys.
func (c *Client) Del(ctx context.Context, keys ...string) error {
	if c.store == nil {
		return errors.New("redis client not initialized")
	}
	return c.store.Del(ctx, keys...).Err()
}

// RunScript evaluates a Lua script against the live connection. Scripts
// carry the atomic sections; nothing else mutates usage keys.
func (c *Client) RunScript(ctx context.Context, script *redis.Script, keys []string, args ...any) ([]any, error) {
	if c.raw == nil {
		return nil, errors.New("redis client not initialized")
	}
	return script.Run(ctx, c.raw, keys, args...).Slice()
}

// UsageKeys returns the namespaced total, per-user, and per-day counter
// keys for a promotion rule.
func (c *Client) UsageKeys(ruleID, userID, day string) (total, user, daily string) {
	total = buildKey(usagePrefix, ruleID, "total")
	user = buildKey(usagePrefix, ruleID, "user", userID)
	daily = buildKey(usagePrefix, ruleID, "day", day)
	return total, user, daily
}

// Close shuts down the underlying client if available.
func (c *Client) Close() error {
	if c.raw == nil {
		return nil
	}
	return c.raw.Close()
}

func buildKey(parts ...string) string {
	clean := []string{keyNamespace}
	for _, part := range parts {
		if part == "" {
			continue
		}
		clean = append(clean, strings.TrimSpace(part))
	}
	return strings.Join(clean, ":")
}
