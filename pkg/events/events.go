package events

import (
	"time"

	"github.com/google/uuid"
)

// Aggregate and event type names carried on lifecycle events.
const (
	AggregateOrder = "order"

	EventOrderStatusChanged = "order.status_changed"
	EventOrderCancelled     = "order.cancelled"
	EventOrderDelivered     = "order.delivered"
	EventOrderRefunded      = "order.refunded"
)

// DomainEvent is the envelope returned alongside a successful state
// transition. The engine never publishes or persists events itself;
// callers dispatch them after the guarded write succeeds.
type DomainEvent struct {
	EventID       uuid.UUID `json:"event_id"`
	EventType     string    `json:"event_type"`
	AggregateType string    `json:"aggregate_type"`
	AggregateID   uuid.UUID `json:"aggregate_id"`
	OccurredAt    time.Time `json:"occurred_at"`
	Version       int       `json:"version"`
	Data          any       `json:"data,omitempty"`
}

// New builds a versioned event envelope for an aggregate.
func New(eventType, aggregateType string, aggregateID uuid.UUID, occurredAt time.Time, data any) DomainEvent {
	return DomainEvent{
		EventID:       uuid.New(),
		EventType:     eventType,
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		OccurredAt:    occurredAt,
		Version:       1,
		Data:          data,
	}
}
