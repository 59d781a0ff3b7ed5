package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"printful-sync/internal/models"

	"github.com/segmentio/kafka-go"
)

// EventPublisher handles publishing domain events
type EventPublisher struct {
	producer *Producer
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(producer *Producer) *EventPublisher {
	return &EventPublisher{producer: producer}
}

// PublishSyncRequested publishes SyncRequested event
func (ep *EventPublisher) PublishSyncRequested(ctx context.Context, event *models.SyncRequestedEvent) error {
	key := fmt.Sprintf("product-%s", event.ProductExternalID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishProductSynced publishes ProductSynced event
func (ep *EventPublisher) PublishProductSynced(ctx context.Context, event *models.ProductSyncedEvent) error {
	key := fmt.Sprintf("product-%s", event.ProductExternalID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishProductSyncFailed publishes ProductSyncFailed event
func (ep *EventPublisher) PublishProductSyncFailed(ctx context.Context, event *models.ProductSyncFailedEvent) error {
	key := fmt.Sprintf("product-%s", event.ProductExternalID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishPackageShipped publishes PackageShipped event
func (ep *EventPublisher) PublishPackageShipped(ctx context.Context, event *models.PackageShippedEvent) error {
	key := fmt.Sprintf("order-%s", event.OrderExternalID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishOrderSubmitted publishes OrderSubmitted event
func (ep *EventPublisher) PublishOrderSubmitted(ctx context.Context, event *models.OrderSubmittedEvent) error {
	key := fmt.Sprintf("order-%s", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// PublishOrderCancelled publishes OrderCancelled event
func (ep *EventPublisher) PublishOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error {
	key := fmt.Sprintf("order-%s", event.OrderID)
	return ep.producer.PublishEvent(ctx, key, event)
}

// EventHandler handles incoming events
type EventHandler struct {
	onSyncRequested  func(context.Context, *models.SyncRequestedEvent) error
	onPackageShipped func(context.Context, *models.PackageShippedEvent) error
}

// NewEventHandler creates a new event handler
func NewEventHandler() *EventHandler {
	return &EventHandler{}
}

// OnSyncRequested registers a handler for SyncRequested events
func (eh *EventHandler) OnSyncRequested(handler func(context.Context, *models.SyncRequestedEvent) error) {
	eh.onSyncRequested = handler
}

// OnPackageShipped registers a handler for PackageShipped events
func (eh *EventHandler) OnPackageShipped(handler func(context.Context, *models.PackageShippedEvent) error) {
	eh.onPackageShipped = handler
}

// HandleMessage routes messages to appropriate handlers
func (eh *EventHandler) HandleMessage(ctx context.Context, msg kafka.Message) error {
	var baseEvent models.BaseEvent
	if err := json.Unmarshal(msg.Value, &baseEvent); err != nil {
		return fmt.Errorf("failed to unmarshal base event: %w", err)
	}

	log.Printf("Handling event: type=%s, id=%s", baseEvent.EventType, baseEvent.EventID)

	switch baseEvent.EventType {
	case models.EventTypeSyncRequested:
		if eh.onSyncRequested != nil {
			var event models.SyncRequestedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal SyncRequested event: %w", err)
			}
			return eh.onSyncRequested(ctx, &event)
		}

	case models.EventTypePackageShipped:
		if eh.onPackageShipped != nil {
			var event models.PackageShippedEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				return fmt.Errorf("failed to unmarshal PackageShipped event: %w", err)
			}
			return eh.onPackageShipped(ctx, &event)
		}

	default:
		log.Printf("Unhandled event type: %s", baseEvent.EventType)
	}

	return nil
}
