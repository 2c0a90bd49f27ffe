package catalog

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"

	"github.com/veldtcommerce/pricing-engine/internal/promotion"
	pkgerrors "github.com/veldtcommerce/pricing-engine/pkg/errors"
)

// Loader supplies the candidate promotion rules for a store. Validity
// filtering is best-effort here; the resolver re-checks every gate.
type Loader interface {
	Rules(ctx context.Context, storeID uuid.UUID) ([]promotion.Rule, error)
}

// Static serves a fixed rule set, matching global rules plus those bound
// to the requested store.
type Static struct {
	mu    sync.RWMutex
	rules []promotion.Rule
}

func NewStatic(rules []promotion.Rule) *Static {
	return &Static{rules: rules}
}

func (s *Static) Rules(ctx context.Context, storeID uuid.UUID) ([]promotion.Rule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]promotion.Rule, 0, len(s.rules))
	for _, rule := range s.rules {
		if rule.StoreID != nil && *rule.StoreID != storeID {
			continue
		}
		matched = append(matched, rule)
	}
	return matched, nil
}

// Replace swaps the rule set, validating every definition first so a bad
// reload never reaches the resolver.
func (s *Static) Replace(rules []promotion.Rule) error {
	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			return err
		}
	}
	s.mu.Lock()
	s.rules = rules
	s.mu.Unlock()
	return nil
}

// LoadFile seeds a Static catalog from a JSON array of rule definitions.
func LoadFile(path string) (*Static, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, "read rules file")
	}
	var rules []promotion.Rule
	if err := json.Unmarshal(raw, &rules); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeConfiguration, err, "parse rules file")
	}
	static := NewStatic(nil)
	if err := static.Replace(rules); err != nil {
		return nil, err
	}
	return static, nil
}

// Cached wraps a Loader with a per-store TTL cache so hot stores do not
// hit the backing source on every quote.
type Cached struct {
	source Loader
	store  *gocache.Cache
}

func NewCached(source Loader, ttl, cleanup time.Duration) *Cached {
	return &Cached{
		source: source,
		store:  gocache.New(ttl, cleanup),
	}
}

func (c *Cached) Rules(ctx context.Context, storeID uuid.UUID) ([]promotion.Rule, error) {
	key := storeID.String()
	if cached, ok := c.store.Get(key); ok {
		if rules, ok := cached.([]promotion.Rule); ok {
			return rules, nil
		}
	}
	rules, err := c.source.Rules(ctx, storeID)
	if err != nil {
		return nil, err
	}
	c.store.Set(key, rules, gocache.DefaultExpiration)
	return rules, nil
}

// Invalidate drops the cached rules for one store.
func (c *Cached) Invalidate(storeID uuid.UUID) {
	c.store.Delete(storeID.String())
}
