package models

import "time"

// Event types
const (
	EventTypeSyncRequested     = "SYNC_REQUESTED"
	EventTypeProductSynced     = "PRODUCT_SYNCED"
	EventTypeProductSyncFailed = "PRODUCT_SYNC_FAILED"
	EventTypePackageShipped    = "PACKAGE_SHIPPED"
	EventTypeOrderSubmitted    = "ORDER_SUBMITTED"
	EventTypeOrderCancelled    = "ORDER_CANCELLED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// SyncRequestedEvent asks for one product family to be reconciled.
// Published by the webhook intake and the manual sync endpoint.
type SyncRequestedEvent struct {
	BaseEvent
	ProductExternalID string `json:"product_external_id"`
	Reason            string `json:"reason"`
}

// ProductSyncedEvent published after a reconciliation run completes.
type ProductSyncedEvent struct {
	BaseEvent
	ProductExternalID string `json:"product_external_id"`
	LocalProductID    string `json:"local_product_id"`
	Created           bool   `json:"created"`
	VariantsCreated   int    `json:"variants_created"`
	VariantsUpdated   int    `json:"variants_updated"`
	VariantsDeleted   int    `json:"variants_deleted"`
	FailedOps         int    `json:"failed_ops"`
}

// ProductSyncFailedEvent published when a run aborts before or during
// product creation.
type ProductSyncFailedEvent struct {
	BaseEvent
	ProductExternalID string `json:"product_external_id"`
	Reason            string `json:"reason"`
}

// PackageShippedEvent published by the webhook intake when Printful reports
// a shipped package; consumed by the fulfillment worker.
type PackageShippedEvent struct {
	BaseEvent
	OrderExternalID string   `json:"order_external_id"`
	RemoteOrderID   int64    `json:"remote_order_id"`
	TrackingNumbers []string `json:"tracking_numbers"`
}

// OrderSubmittedEvent published after a local order is sent to Printful as
// an unconfirmed draft.
type OrderSubmittedEvent struct {
	BaseEvent
	OrderID       string `json:"order_id"`
	RemoteOrderID int64  `json:"remote_order_id"`
}

// OrderCancelledEvent published after a remote cancellation attempt.
type OrderCancelledEvent struct {
	BaseEvent
	OrderID  string `json:"order_id"`
	Accepted bool   `json:"accepted"`
}
