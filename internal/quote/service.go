package quote

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/veldtcommerce/pricing-engine/internal/catalog"
	"github.com/veldtcommerce/pricing-engine/internal/pricing"
	"github.com/veldtcommerce/pricing-engine/internal/promotion"
	"github.com/veldtcommerce/pricing-engine/internal/usagestore"
	"github.com/veldtcommerce/pricing-engine/pkg/enums"
	pkgerrors "github.com/veldtcommerce/pricing-engine/pkg/errors"
	"github.com/veldtcommerce/pricing-engine/pkg/logger"
	"github.com/veldtcommerce/pricing-engine/pkg/money"
	"github.com/veldtcommerce/pricing-engine/pkg/types"
)

// Service assembles cart snapshots, prices them, and serializes usage
// commits. Quote is read-only; PriceOrder additionally burns one
// redemption per applied rule.
type Service struct {
	loader catalog.Loader
	engine *pricing.Engine
	usage  usagestore.Store
	logg   *logger.Logger
	now    func() time.Time
}

type ServiceParams struct {
	Loader catalog.Loader
	Engine *pricing.Engine
	Usage  usagestore.Store
	Logger *logger.Logger
	// Now overrides the clock, for tests.
	Now func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Loader == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "quote service requires a rule loader")
	}
	if params.Engine == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "quote service requires a pricing engine")
	}
	if params.Usage == nil {
		return nil, pkgerrors.New(pkgerrors.CodeConfiguration, "quote service requires a usage store")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		loader: params.Loader,
		engine: params.Engine,
		usage:  params.Usage,
		logg:   params.Logger,
		now:    now,
	}, nil
}

// Request is the inbound cart to price.
type Request struct {
	Currency        string        `json:"currency" validate:"required,len=3"`
	StoreID         uuid.UUID     `json:"store_id"`
	UserID          uuid.UUID     `json:"user_id"`
	IsFirstTimeUser bool          `json:"is_first_time_user"`
	Items           []ItemRequest `json:"items" validate:"required,min=1,dive"`
}

type ItemRequest struct {
	ID             uuid.UUID   `json:"id"`
	ProductID      uuid.UUID   `json:"product_id" validate:"required"`
	UnitPriceCents int64       `json:"unit_price_cents" validate:"min=0"`
	Quantity       int         `json:"quantity" validate:"required,min=1"`
	CategoryIDs    []uuid.UUID `json:"category_ids,omitempty"`
	Tags           []string    `json:"tags,omitempty"`
}

// Quote prices the cart without consuming any redemptions. Cart preview
// and order pricing share this path.
func (s *Service) Quote(ctx context.Context, req Request) (*types.PriceBreakdown, error) {
	snap, rules, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.engine.Price(ctx, snap, rules)
}

// PriceOrder prices the cart and commits one redemption per applied
// rule. A usage conflict aborts with CONFLICT; the caller re-quotes.
func (s *Service) PriceOrder(ctx context.Context, req Request) (*types.PriceBreakdown, error) {
	snap, rules, err := s.prepare(ctx, req)
	if err != nil {
		return nil, err
	}
	breakdown, err := s.engine.Price(ctx, snap, rules)
	if err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]promotion.Rule, len(rules))
	for _, rule := range rules {
		byID[rule.ID] = rule
	}
	day := usagestore.DayKey(snap.Now)
	for _, discount := range breakdown.AppliedDiscounts {
		rule, ok := byID[discount.RuleID]
		if !ok {
			continue
		}
		if _, err := s.usage.Commit(ctx, rule.ID, snap.UserID, day, rule.UsageLimit); err != nil {
			return nil, err
		}
	}
	return breakdown, nil
}

// prepare resolves the candidate rules and assembles an immutable
// snapshot, including a consistent usage view per rule.
func (s *Service) prepare(ctx context.Context, req Request) (types.CartSnapshot, []promotion.Rule, error) {
	currency, err := enums.ParseCurrency(req.Currency)
	if err != nil {
		return types.CartSnapshot{}, nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid currency")
	}

	items := make([]types.LineItem, 0, len(req.Items))
	for _, item := range req.Items {
		id := item.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		unitPrice, err := money.New(item.UnitPriceCents, currency)
		if err != nil {
			return types.CartSnapshot{}, nil, err
		}
		items = append(items, types.LineItem{
			ID:          id,
			ProductID:   item.ProductID,
			UnitPrice:   unitPrice,
			Quantity:    item.Quantity,
			CategoryIDs: item.CategoryIDs,
			Tags:        item.Tags,
		})
	}

	candidates, err := s.loader.Rules(ctx, req.StoreID)
	if err != nil {
		return types.CartSnapshot{}, nil, err
	}
	// Loaders may serve shared (cached) slices; copy before folding in
	// live usage counters.
	rules := make([]promotion.Rule, len(candidates))
	copy(rules, candidates)

	snap := types.CartSnapshot{
		Items:           items,
		Currency:        currency,
		StoreID:         req.StoreID,
		UserID:          req.UserID,
		IsFirstTimeUser: req.IsFirstTimeUser,
		Now:             s.now(),
		Usage:           make(map[uuid.UUID]types.RuleUsage, len(rules)),
	}
	day := usagestore.DayKey(snap.Now)
	for i := range rules {
		usage, err := s.usage.Snapshot(ctx, rules[i].ID, req.UserID, day)
		if err != nil {
			return types.CartSnapshot{}, nil, err
		}
		snap.Usage[rules[i].ID] = usage
		// The live counter supersedes whatever the rule definition was
		// authored with, capped at the limit so an overshot counter reads
		// as exhausted rather than malformed.
		if usage.Total > rules[i].CurrentUsage {
			rules[i].CurrentUsage = usage.Total
		}
		if limit := rules[i].UsageLimit.Total; limit != nil && rules[i].CurrentUsage > *limit {
			rules[i].CurrentUsage = *limit
		}
	}
	return snap, rules, nil
}
