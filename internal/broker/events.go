package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"frontdesk-service/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing board and checkout domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishGroupStatusChanged publishes GroupStatusChanged event
func (ep *EventPublisher) PublishGroupStatusChanged(ctx context.Context, event *models.GroupStatusChangedEvent) error {
	key := fmt.Sprintf("group-%s", event.GroupID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishWalkInCreated publishes WalkInCreated event
func (ep *EventPublisher) PublishWalkInCreated(ctx context.Context, event *models.WalkInCreatedEvent) error {
	key := fmt.Sprintf("group-%s", event.Group.ID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishCheckoutOpened publishes CheckoutOpened event
func (ep *EventPublisher) PublishCheckoutOpened(ctx context.Context, event *models.CheckoutOpenedEvent) error {
	key := fmt.Sprintf("client-%s", event.ClientID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishPaymentCompleted publishes PaymentCompleted event
func (ep *EventPublisher) PublishPaymentCompleted(ctx context.Context, event *models.PaymentCompletedEvent) error {
	key := fmt.Sprintf("payment-%s", event.PaymentID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler routes incoming board events to registered handlers
type EventHandler struct {
	onGroupStatusChanged func(context.Context, *models.GroupStatusChangedEvent) error
	onWalkInCreated      func(context.Context, *models.WalkInCreatedEvent) error
	onPaymentCompleted   func(context.Context, *models.PaymentCompletedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnGroupStatusChanged registers a handler for GroupStatusChanged events
func (eh *EventHandler) OnGroupStatusChanged(handler func(context.Context, *models.GroupStatusChangedEvent) error) {
	eh.onGroupStatusChanged = handler
}

// OnWalkInCreated registers a handler for WalkInCreated events
func (eh *EventHandler) OnWalkInCreated(handler func(context.Context, *models.WalkInCreatedEvent) error) {
	eh.onWalkInCreated = handler
}

// OnPaymentCompleted registers a handler for PaymentCompleted events
func (eh *EventHandler) OnPaymentCompleted(handler func(context.Context, *models.PaymentCompletedEvent) error) {
	eh.onPaymentCompleted = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	log.Printf("Handling event: type=%s, id=%s", baseEvent.EventType, baseEvent.EventID)

	switch baseEvent.EventType {
	case models.EventTypeGroupStatusChanged:
		if eh.onGroupStatusChanged != nil {
			var event models.GroupStatusChangedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal GroupStatusChanged event: %w", err)
			}
			return eh.onGroupStatusChanged(ctx, &event)
		}

	case models.EventTypeWalkInCreated:
		if eh.onWalkInCreated != nil {
			var event models.WalkInCreatedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal WalkInCreated event: %w", err)
			}
			return eh.onWalkInCreated(ctx, &event)
		}

	case models.EventTypePaymentCompleted:
		if eh.onPaymentCompleted != nil {
			var event models.PaymentCompletedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal PaymentCompleted event: %w", err)
			}
			return eh.onPaymentCompleted(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
