package types

import (
	"github.com/google/uuid"

	"github.com/veldtcommerce/pricing-engine/pkg/enums"
	"github.com/veldtcommerce/pricing-engine/pkg/money"
)

// OrderSnapshot is the read-only order view used for refund math. The
// monetary fields are the breakdown captured at order finalization.
type OrderSnapshot struct {
	ID            uuid.UUID         `json:"id"`
	Items         []LineItem        `json:"items"`
	Currency      enums.Currency    `json:"currency"`
	Status        enums.OrderStatus `json:"status"`
	Subtotal      money.Money       `json:"subtotal"`
	DiscountTotal money.Money       `json:"discount_total"`
	Tax           money.Money       `json:"tax"`
	Shipping      money.Money       `json:"shipping"`
	Total         money.Money       `json:"total"`
	FreeShipping  bool              `json:"free_shipping"`
}

// RefundBreakdown itemizes a refund entitlement.
type RefundBreakdown struct {
	Items    money.Money `json:"items"`
	Tax      money.Money `json:"tax"`
	Shipping money.Money `json:"shipping"`
	Total    money.Money `json:"total"`
}
