package lifecycle

import (
	"time"

	"github.com/google/uuid"

	"github.com/veldtcommerce/pricing-engine/pkg/enums"
	pkgerrors "github.com/veldtcommerce/pricing-engine/pkg/errors"
	"github.com/veldtcommerce/pricing-engine/pkg/events"
)

// Guards carries the external facts a transition may require. The machine
// never performs payment, inventory, or shipping work itself; the caller
// supplies the outcome of those calls here.
type Guards struct {
	PaymentValidated   bool
	InventoryReserved  bool
	InventoryAllocated bool
	TrackingNumber     string
}

// Transition table. Anything not listed is illegal.
var allowed = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:        {enums.OrderStatusConfirmed, enums.OrderStatusCancelled, enums.OrderStatusFailed},
	enums.OrderStatusConfirmed:      {enums.OrderStatusProcessing, enums.OrderStatusCancelled},
	enums.OrderStatusProcessing:     {enums.OrderStatusShipped, enums.OrderStatusCancelled},
	enums.OrderStatusShipped:        {enums.OrderStatusOutForDelivery, enums.OrderStatusDelivered},
	enums.OrderStatusOutForDelivery: {enums.OrderStatusDelivered, enums.OrderStatusFailed},
	enums.OrderStatusDelivered:      {enums.OrderStatusReturned, enums.OrderStatusRefunded},
	enums.OrderStatusReturned:       {enums.OrderStatusRefunded},
	enums.OrderStatusFailed:         {enums.OrderStatusPending, enums.OrderStatusCancelled},
}

// CanTransition reports whether from -> to is in the transition table.
// Guards are not consulted; use Transition for the full check.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, next := range allowed[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Result is the outcome of an accepted transition. The caller persists the
// status (with a compare-and-swap on the previous value) and dispatches
// the events afterwards.
type Result struct {
	Status     enums.OrderStatus
	Terminal   bool
	OccurredAt time.Time
	Events     []events.DomainEvent
}

// Transition validates from -> to against the table and the guard facts.
// It never coerces an illegal pair into a legal one; the caller gets a
// STATE_CONFLICT error carrying both states.
func Transition(orderID uuid.UUID, from, to enums.OrderStatus, guards Guards, now time.Time) (*Result, error) {
	if !from.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown order status %q", from)
	}
	if !to.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "unknown order status %q", to)
	}
	if !CanTransition(from, to) {
		return nil, illegal(orderID, from, to, "transition not permitted")
	}
	if err := checkGuards(orderID, from, to, guards); err != nil {
		return nil, err
	}

	payload := map[string]any{"from": from.String(), "to": to.String()}
	evts := []events.DomainEvent{
		events.New(events.EventOrderStatusChanged, events.AggregateOrder, orderID, now, payload),
	}
	switch to {
	case enums.OrderStatusCancelled:
		evts = append(evts, events.New(events.EventOrderCancelled, events.AggregateOrder, orderID, now, payload))
	case enums.OrderStatusDelivered:
		evts = append(evts, events.New(events.EventOrderDelivered, events.AggregateOrder, orderID, now, payload))
	case enums.OrderStatusRefunded:
		evts = append(evts, events.New(events.EventOrderRefunded, events.AggregateOrder, orderID, now, payload))
	}

	return &Result{
		Status:     to,
		Terminal:   IsTerminal(to),
		OccurredAt: now,
		Events:     evts,
	}, nil
}

func checkGuards(orderID uuid.UUID, from, to enums.OrderStatus, guards Guards) error {
	switch {
	case from == enums.OrderStatusPending && to == enums.OrderStatusConfirmed:
		if !guards.PaymentValidated {
			return illegal(orderID, from, to, "payment not validated")
		}
		if !guards.InventoryReserved {
			return illegal(orderID, from, to, "inventory not reserved")
		}
	case from == enums.OrderStatusConfirmed && to == enums.OrderStatusProcessing:
		if !guards.InventoryAllocated {
			return illegal(orderID, from, to, "inventory not allocated")
		}
	case from == enums.OrderStatusProcessing && to == enums.OrderStatusShipped:
		if guards.TrackingNumber == "" {
			return illegal(orderID, from, to, "tracking number required")
		}
	}
	return nil
}

func illegal(orderID uuid.UUID, from, to enums.OrderStatus, detail string) error {
	return pkgerrors.Newf(pkgerrors.CodeStateConflict, "cannot transition order from %s to %s: %s", from, to, detail).
		WithDetails(map[string]any{
			"order_id": orderID.String(),
			"from":     from.String(),
			"to":       to.String(),
		})
}

// IsTerminal reports whether no transition leaves the status. Delivered is
// not terminal: return and refund closings remain.
func IsTerminal(status enums.OrderStatus) bool {
	return len(allowed[status]) == 0
}

// IsCancellable reports whether the order can still be cancelled.
func IsCancellable(status enums.OrderStatus) bool {
	switch status {
	case enums.OrderStatusPending, enums.OrderStatusConfirmed, enums.OrderStatusProcessing:
		return true
	}
	return false
}

// IsRefundable reports whether refund math may run for the order.
func IsRefundable(status enums.OrderStatus) bool {
	switch status {
	case enums.OrderStatusDelivered, enums.OrderStatusReturned:
		return true
	}
	return false
}

// AllowsModification gates item and address edits. After Processing the
// inventory is already allocated, so repricing would invalidate it.
func AllowsModification(status enums.OrderStatus) bool {
	switch status {
	case enums.OrderStatusPending, enums.OrderStatusConfirmed:
		return true
	}
	return false
}
