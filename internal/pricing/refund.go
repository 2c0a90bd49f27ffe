package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/veldtcommerce/pricing-engine/pkg/errors"
	"github.com/veldtcommerce/pricing-engine/pkg/money"
	"github.com/veldtcommerce/pricing-engine/pkg/types"
)

// CalculateRefund computes the refund entitlement for an order. An empty
// itemIDs slice refunds the full subtotal; otherwise only the named lines.
// Tax is refunded proportionally to the refunded item amount so partial
// refunds never over- or under-refund tax. Shipping is refunded only when
// requested and the order actually paid for shipping.
//
// Whether the order's status permits a refund is the lifecycle's call,
// not this function's.
func CalculateRefund(order types.OrderSnapshot, itemIDs []uuid.UUID, refundShipping bool) (*types.RefundBreakdown, error) {
	items, err := refundableItems(order, itemIDs)
	if err != nil {
		return nil, err
	}

	tax, err := proportionalTax(order, items)
	if err != nil {
		return nil, err
	}

	shipping := money.Zero(order.Currency)
	if refundShipping && !order.FreeShipping && !order.Shipping.IsZero() {
		shipping = order.Shipping
	}

	total, err := money.Sum(order.Currency, items, tax, shipping)
	if err != nil {
		return nil, err
	}

	return &types.RefundBreakdown{
		Items:    items,
		Tax:      tax,
		Shipping: shipping,
		Total:    total,
	}, nil
}

func refundableItems(order types.OrderSnapshot, itemIDs []uuid.UUID) (money.Money, error) {
	if len(itemIDs) == 0 {
		return order.Subtotal, nil
	}

	byID := make(map[uuid.UUID]types.LineItem, len(order.Items))
	for _, item := range order.Items {
		byID[item.ID] = item
	}

	total := money.Zero(order.Currency)
	seen := make(map[uuid.UUID]bool, len(itemIDs))
	for _, id := range itemIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		item, ok := byID[id]
		if !ok {
			return money.Money{}, pkgerrors.Newf(pkgerrors.CodeValidation, "line item %s not on order %s", id, order.ID).
				WithDetails(map[string]any{"order_id": order.ID.String(), "line_item_id": id.String()})
		}
		line, err := item.LineTotal()
		if err != nil {
			return money.Money{}, err
		}
		if total, err = total.Add(line); err != nil {
			return money.Money{}, err
		}
	}
	return total, nil
}

// proportionalTax refunds tax in the ratio the refunded items bear to the
// original subtotal: itemsAmount * tax / subtotal, rounded half-up once.
func proportionalTax(order types.OrderSnapshot, items money.Money) (money.Money, error) {
	if order.Subtotal.IsZero() || order.Tax.IsZero() {
		return money.Zero(order.Currency), nil
	}
	ratio := items.Decimal().Div(order.Subtotal.Decimal())
	if ratio.GreaterThan(decimal.NewFromInt(1)) {
		return money.Money{}, pkgerrors.Newf(pkgerrors.CodeValidation, "refund items %s exceed order subtotal %s", items, order.Subtotal)
	}
	return money.FromDecimal(order.Tax.Decimal().Mul(ratio), order.Currency)
}
