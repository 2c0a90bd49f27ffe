package types

import (
	"github.com/google/uuid"

	"github.com/veldtcommerce/pricing-engine/pkg/money"
)

// LineItem is one cart or order line. Line items are owned exclusively by
// their cart or order snapshot and never shared between aggregates.
type LineItem struct {
	ID          uuid.UUID   `json:"id"`
	ProductID   uuid.UUID   `json:"product_id"`
	UnitPrice   money.Money `json:"unit_price"`
	Quantity    int         `json:"quantity"`
	CategoryIDs []uuid.UUID `json:"category_ids,omitempty"`
	Tags        []string    `json:"tags,omitempty"`
}

// LineTotal returns unit price times quantity.
func (l LineItem) LineTotal() (money.Money, error) {
	return l.UnitPrice.MultiplyInt(int64(l.Quantity))
}

// InCategory reports whether the line carries the given category.
func (l LineItem) InCategory(categoryID uuid.UUID) bool {
	for _, id := range l.CategoryIDs {
		if id == categoryID {
			return true
		}
	}
	return false
}
