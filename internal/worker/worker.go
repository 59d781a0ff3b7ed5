package worker

import (
	"context"
	"errors"
	"log"

	"printful-sync/internal/broker"
	"printful-sync/internal/models"
	"printful-sync/internal/service"
)

// SyncWorker consumes sync requests and runs reconciliation for each one.
type SyncWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	syncService  *service.SyncService
}

// NewSyncWorker creates a new sync worker
func NewSyncWorker(consumer *broker.Consumer, syncService *service.SyncService) *SyncWorker {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnSyncRequested(func(ctx context.Context, event *models.SyncRequestedEvent) error {
		log.Printf("Processing sync request: product=%s, reason=%s", event.ProductExternalID, event.Reason)

		_, err := syncService.SyncProduct(ctx, event.ProductExternalID)
		if errors.Is(err, service.ErrSyncInProgress) {
			// Another run owns this product; the in-flight run will pick up
			// the latest remote state anyway.
			log.Printf("Sync already in progress: product=%s", event.ProductExternalID)
			return nil
		}
		return err
	})

	return &SyncWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		syncService:  syncService,
	}
}

// Start starts the worker
func (w *SyncWorker) Start(ctx context.Context) error {
	log.Println("Starting sync worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *SyncWorker) Stop() error {
	log.Println("Stopping sync worker...")
	return w.consumer.Close()
}

// FulfillmentWorker consumes package-shipped events and mirrors remote
// shipment state into the local store.
type FulfillmentWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	orderService *service.OrderService
}

// NewFulfillmentWorker creates a new fulfillment worker
func NewFulfillmentWorker(consumer *broker.Consumer, orderService *service.OrderService) *FulfillmentWorker {
	eventHandler := broker.NewEventHandler()

	eventHandler.OnPackageShipped(func(ctx context.Context, event *models.PackageShippedEvent) error {
		log.Printf("Processing shipped package: order=%s", event.OrderExternalID)
		return orderService.SyncFulfillment(ctx, event.OrderExternalID)
	})

	return &FulfillmentWorker{
		consumer:     consumer,
		eventHandler: eventHandler,
		orderService: orderService,
	}
}

// Start starts the fulfillment worker
func (w *FulfillmentWorker) Start(ctx context.Context) error {
	log.Println("Starting fulfillment worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the fulfillment worker
func (w *FulfillmentWorker) Stop() error {
	log.Println("Stopping fulfillment worker...")
	return w.consumer.Close()
}
