package types

import (
	"time"

	"github.com/google/uuid"

	"github.com/veldtcommerce/pricing-engine/pkg/enums"
	"github.com/veldtcommerce/pricing-engine/pkg/money"
)

// RuleUsage is a consistent point-in-time view of how often a rule has
// been redeemed. The caller assembles it from its usage store; the engine
// only reads it.
type RuleUsage struct {
	Total  int `json:"total"`
	ByUser int `json:"by_user"`
	Today  int `json:"today"`
}

// CartSnapshot is the read-only cart or order view the engine prices.
// It is immutable for the duration of a calculation so that evaluating
// the same snapshot twice yields identical results.
type CartSnapshot struct {
	Items           []LineItem              `json:"items"`
	Currency        enums.Currency          `json:"currency"`
	StoreID         uuid.UUID               `json:"store_id"`
	UserID          uuid.UUID               `json:"user_id"`
	IsFirstTimeUser bool                    `json:"is_first_time_user"`
	Now             time.Time               `json:"now"`
	Usage           map[uuid.UUID]RuleUsage `json:"usage,omitempty"`
}

// Subtotal sums unit price times quantity across all lines.
func (c CartSnapshot) Subtotal() (money.Money, error) {
	total := money.Zero(c.Currency)
	for _, item := range c.Items {
		line, err := item.LineTotal()
		if err != nil {
			return money.Money{}, err
		}
		total, err = total.Add(line)
		if err != nil {
			return money.Money{}, err
		}
	}
	return total, nil
}

// TotalQuantity sums quantities across all lines.
func (c CartSnapshot) TotalQuantity() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// UsageFor returns the usage snapshot for a rule, zero-valued when absent.
func (c CartSnapshot) UsageFor(ruleID uuid.UUID) RuleUsage {
	if c.Usage == nil {
		return RuleUsage{}
	}
	return c.Usage[ruleID]
}
