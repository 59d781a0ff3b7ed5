package store

import (
	"context"
	"database/sql"
	"fmt"

	"printful-sync/internal/models"

	"github.com/google/uuid"
)

// GetOrderByID retrieves an order with its line items. Each item carries a
// snapshot of its variant's metadata so the order translator can address
// the Printful catalog without extra lookups.
func (s *Store) GetOrderByID(ctx context.Context, id string) (*models.LocalOrder, error) {
	var order models.LocalOrder
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}

	query := `
		SELECT i.id, i.order_id, i.variant_id, v.title AS variant_title, i.quantity, i.unit_price,
		       v.metadata AS variant_metadata
		FROM order_items i
		JOIN variants v ON v.id = i.variant_id
		WHERE i.order_id = $1
		ORDER BY i.id`
	if err := s.db.SelectContext(ctx, &order.Items, query, id); err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateOrderStatus updates order status
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	return err
}

// CreateFulfillment creates a fulfillment selecting the given order items.
func (s *Store) CreateFulfillment(ctx context.Context, orderID string, items []models.FulfillmentItem) (*models.Fulfillment, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	f := &models.Fulfillment{ID: uuid.New().String(), OrderID: orderID}
	row := tx.QueryRowxContext(ctx,
		"INSERT INTO fulfillments (id, order_id) VALUES ($1, $2) RETURNING created_at",
		f.ID, f.OrderID)
	if err := row.Scan(&f.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert fulfillment: %w", err)
	}

	for _, item := range items {
		_, err := tx.ExecContext(ctx,
			"INSERT INTO fulfillment_items (fulfillment_id, item_id, quantity) VALUES ($1, $2, $3)",
			f.ID, item.ItemID, item.Quantity)
		if err != nil {
			return nil, fmt.Errorf("failed to insert fulfillment item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return f, nil
}

// CreateShipment records tracking numbers against a fulfillment.
func (s *Store) CreateShipment(ctx context.Context, fulfillmentID string, trackingNumbers []string) (*models.Shipment, error) {
	sh := &models.Shipment{
		ID:              uuid.New().String(),
		FulfillmentID:   fulfillmentID,
		TrackingNumbers: trackingNumbers,
	}
	row := s.db.QueryRowxContext(ctx,
		"INSERT INTO shipments (id, fulfillment_id, tracking_numbers) VALUES ($1, $2, $3) RETURNING created_at",
		sh.ID, sh.FulfillmentID, sh.TrackingNumbers)
	if err := row.Scan(&sh.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert shipment: %w", err)
	}
	return sh, nil
}
