package kafka

import "time"

// EventType определяет тип телеметрийного события саги.
type EventType string

const (
	// Saga события
	EventTypeSagaStarted   EventType = "saga.started"
	EventTypeSagaCompleted EventType = "saga.completed"
	EventTypeSagaFailed    EventType = "saga.failed"
	EventTypeSagaCancelled EventType = "saga.cancelled"

	// Step события
	EventTypeStepReserved        EventType = "step.reserved"
	EventTypeStepPaymentDeclined EventType = "step.payment_declined"
	EventTypeStepCompensated     EventType = "step.compensated"
)

// Topics для Kafka
const (
	TopicSagaEvents = "orderflow.saga.events"
)

// SagaEvent представляет телеметрийное событие саги.
type SagaEvent struct {
	EventType EventType              `json:"event_type"`
	OrderID   string                 `json:"order_id"`
	Timestamp time.Time              `json:"timestamp"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewSagaEvent создает новое событие саги.
func NewSagaEvent(eventType EventType, orderID string, metadata map[string]interface{}) *SagaEvent {
	return &SagaEvent{
		EventType: eventType,
		OrderID:   orderID,
		Timestamp: time.Now(),
		Metadata:  metadata,
	}
}
