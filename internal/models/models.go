package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// GroupStatus is the lifecycle state of an appointment group on the board.
type GroupStatus string

// Appointment group statuses, in canonical flow order
const (
	StatusScheduled  GroupStatus = "SCHEDULED"
	StatusConfirmed  GroupStatus = "CONFIRMED"
	StatusWalkIn     GroupStatus = "WALK_IN"
	StatusArrived    GroupStatus = "ARRIVED"
	StatusInService  GroupStatus = "IN_SERVICE"
	StatusReadyToPay GroupStatus = "READY_TO_PAY"
	StatusCompleted  GroupStatus = "COMPLETED"
)

// AppointmentGroup represents one card on the front-desk board
type AppointmentGroup struct {
	ID                   string          `db:"id" json:"id"`
	ClientID             string          `db:"client_id" json:"client_id"`
	ClientName           string          `db:"client_name" json:"client_name"`
	Status               GroupStatus     `db:"status" json:"status"`
	ServiceNames         string          `db:"service_names" json:"service_names"`
	TotalPrice           decimal.Decimal `db:"total_price" json:"total_price"`
	TotalDurationMinutes int             `db:"total_duration_minutes" json:"total_duration_minutes"`
	StartTime            time.Time       `db:"start_time" json:"start_time"`
	CreatedAt            time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time       `db:"updated_at" json:"updated_at"`
}

// ServiceLineItem is one billable service inside a checkout session
type ServiceLineItem struct {
	ID               string          `db:"id" json:"id"`
	GroupID          string          `db:"group_id" json:"group_id"`
	Name             string          `db:"name" json:"name"`
	Price            decimal.Decimal `db:"price" json:"price"`
	DurationMinutes  int             `db:"duration_minutes" json:"duration_minutes"`
	ProfessionalName string          `db:"professional_name" json:"professional_name"`
}

// AdditionalProduct is a retail add-on attached at payment time only;
// it is never persisted independently of a payment.
type AdditionalProduct struct {
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// CheckoutSession is the merged, authoritative line-item view of one or
// more appointment groups being paid together. It is rebuilt from
// scratch on every change to the tracked group set.
type CheckoutSession struct {
	GroupIDs   []string          `json:"group_ids"`
	ClientID   string            `json:"client_id"`
	ClientName string            `json:"client_name"`
	Services   []ServiceLineItem `json:"services"`
}

// Payment represents a completed checkout payment
type Payment struct {
	ID             string          `db:"id" json:"id"`
	GroupIDs       string          `db:"group_ids" json:"group_ids"`
	Subtotal       decimal.Decimal `db:"subtotal" json:"subtotal"`
	DiscountAmount decimal.Decimal `db:"discount_amount" json:"discount_amount"`
	TipAmount      decimal.Decimal `db:"tip_amount" json:"tip_amount"`
	TotalAmount    decimal.Decimal `db:"total_amount" json:"total_amount"`
	PaymentMethod  string          `db:"payment_method" json:"payment_method"`
	IdempotencyKey string          `db:"idempotency_key" json:"idempotency_key,omitempty"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
}

// PaymentProduct is a retail add-on persisted with its payment
type PaymentProduct struct {
	ID        string          `db:"id" json:"id"`
	PaymentID string          `db:"payment_id" json:"payment_id"`
	Name      string          `db:"name" json:"name"`
	Price     decimal.Decimal `db:"price" json:"price"`
	Quantity  int             `db:"quantity" json:"quantity"`
}

// ProcessedEvent for consumer idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
