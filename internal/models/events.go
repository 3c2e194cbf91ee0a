package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeGroupStatusChanged = "GROUP_STATUS_CHANGED"
	EventTypeWalkInCreated      = "WALK_IN_CREATED"
	EventTypeCheckoutOpened     = "CHECKOUT_OPENED"
	EventTypePaymentCompleted   = "PAYMENT_COMPLETED"
)

// BaseEvent contains common fields for all events. TerminalID identifies
// the staff terminal that produced the event so consumers can skip their
// own writes when reconciling.
type BaseEvent struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	TerminalID string    `json:"terminal_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// GroupStatusChangedEvent published after a status transition is persisted
type GroupStatusChangedEvent struct {
	BaseEvent
	GroupID    string      `json:"group_id"`
	FromStatus GroupStatus `json:"from_status"`
	ToStatus   GroupStatus `json:"to_status"`
}

// WalkInCreatedEvent published when a walk-in group is created
type WalkInCreatedEvent struct {
	BaseEvent
	Group AppointmentGroup `json:"group"`
}

// CheckoutOpenedEvent published when a checkout session is opened or re-merged
type CheckoutOpenedEvent struct {
	BaseEvent
	GroupIDs []string `json:"group_ids"`
	ClientID string   `json:"client_id"`
}

// PaymentCompletedEvent published when a checkout payment succeeds
type PaymentCompletedEvent struct {
	BaseEvent
	PaymentID   string          `json:"payment_id"`
	GroupIDs    []string        `json:"group_ids"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Method      string          `json:"method"`
}
