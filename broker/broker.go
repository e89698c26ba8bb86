package broker

import (
	"context"
	"time"
)

// EventType identifies what happened. Consumers (e.g. an open admin session)
// use it to decide which views to refresh.
type EventType string

// Defining the domain events
const (
	EventCentroBlocked        EventType = "CentroBlocked"
	EventCentroUnblocked      EventType = "CentroUnblocked"
	EventSubscriptionRequest  EventType = "SubscriptionRequested"
	EventSubscriptionApproved EventType = "SubscriptionApproved"
	EventSubscriptionRejected EventType = "SubscriptionRejected"
	EventPaymentCreated       EventType = "PaymentCreated"
	EventInstallmentPaid      EventType = "InstallmentPaid"
	EventPaymentCancelled     EventType = "PaymentCancelled"
)

// Event is the message published after a successful write
type Event struct {
	Type     EventType `json:"type"`
	CentroID string    `json:"centroId"`
	EntityID string    `json:"entityId"`
	At       time.Time `json:"at"`
}

// Publisher defines the interface for publishing domain events
type Publisher interface {
	Close()
	Publish(e Event) error
}

// Subscriber defines the interface for receiving domain events for one centro
type Subscriber interface {
	Receive(ctx context.Context, centroID string) (<-chan Event, error)
}
