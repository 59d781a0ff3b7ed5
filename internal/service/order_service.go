package service

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"printful-sync/internal/broker"
	"printful-sync/internal/models"
	"printful-sync/internal/printful"
	"printful-sync/internal/util"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// FulfillmentStore is the slice of the local store the order service needs.
type FulfillmentStore interface {
	GetOrderByID(ctx context.Context, id string) (*models.LocalOrder, error)
	UpdateOrderStatus(ctx context.Context, orderID, status string) error
	CreateFulfillment(ctx context.Context, orderID string, items []models.FulfillmentItem) (*models.Fulfillment, error)
	CreateShipment(ctx context.Context, fulfillmentID string, trackingNumbers []string) (*models.Shipment, error)
}

// OrderService translates local orders into Printful submissions and mirrors
// remote fulfillment state back into the local store.
type OrderService struct {
	store    FulfillmentStore
	printful *printful.Client
	events   *broker.EventPublisher
	logger   *zap.Logger
}

// NewOrderService creates the order service. events may be nil in tests.
func NewOrderService(store FulfillmentStore, pf *printful.Client, events *broker.EventPublisher) *OrderService {
	return &OrderService{
		store:    store,
		printful: pf,
		events:   events,
		logger:   util.GetLogger(),
	}
}

// BuildOrderSubmission maps a local order onto the Printful order payload.
// Each line item is addressed by the Printful identifiers snapshotted in its
// variant metadata; an item whose variant was never synced is an error.
func BuildOrderSubmission(order *models.LocalOrder) (*models.OrderSubmission, error) {
	sub := &models.OrderSubmission{
		ExternalID: order.ID,
		Shipping:   order.ShippingMethodID,
		Recipient: models.OrderRecipient{
			Name:        order.FirstName + " " + order.LastName,
			Address1:    order.Address1,
			Address2:    order.Address2,
			City:        order.City,
			StateCode:   order.Province,
			CountryCode: order.CountryCode,
			Zip:         order.PostalCode,
			Email:       order.Email,
			Phone:       order.Phone,
		},
	}

	for _, item := range order.Items {
		catalogID := item.VariantMetadata.String(models.MetaPrintfulCatalogVariantID)
		syncID := item.VariantMetadata.String(models.MetaPrintfulID)
		if catalogID == "" || syncID == "" {
			return nil, fmt.Errorf("order item %s: variant %s has no fulfillment identifiers", item.ID, item.VariantID)
		}
		variantID, err := strconv.ParseInt(catalogID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("order item %s: catalog variant id %q: %w", item.ID, catalogID, err)
		}
		syncVariantID, err := strconv.ParseInt(syncID, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("order item %s: sync variant id %q: %w", item.ID, syncID, err)
		}

		price := FormatAmount(item.UnitPrice)
		sub.Items = append(sub.Items, models.OrderSubmissionItem{
			Name:          item.VariantTitle,
			ExternalID:    item.ID,
			VariantID:     variantID,
			SyncVariantID: syncVariantID,
			Quantity:      item.Quantity,
			Price:         price,
			RetailPrice:   price,
		})
	}
	return sub, nil
}

// FormatAmount renders a minor-unit amount as a two-decimal price string.
func FormatAmount(amount int64) string {
	return decimal.NewFromInt(amount).Div(decimal.NewFromInt(100)).StringFixed(2)
}

// SubmitOrder sends a local order to Printful as an unconfirmed draft. The
// local order is only marked submitted after the remote accepts it.
func (s *OrderService) SubmitOrder(ctx context.Context, orderID string) (*models.RemoteOrder, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.SubmitOrder")
	defer span.End()

	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	sub, err := BuildOrderSubmission(order)
	if err != nil {
		return nil, err
	}

	remote, err := s.printful.CreateOrder(ctx, sub, false)
	if err != nil {
		return nil, fmt.Errorf("submit order %s: %w", orderID, err)
	}

	if err := s.store.UpdateOrderStatus(ctx, orderID, models.OrderStatusSubmitted); err != nil {
		return nil, fmt.Errorf("mark order %s submitted: %w", orderID, err)
	}
	util.OrdersSubmittedTotal.Inc()

	if s.events != nil {
		event := &models.OrderSubmittedEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOrderSubmitted,
				Timestamp: time.Now(),
			},
			OrderID:       orderID,
			RemoteOrderID: remote.ID,
		}
		if err := s.events.PublishOrderSubmitted(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderSubmitted event", zap.Error(err))
		}
	}

	s.logger.Info("Order submitted as draft",
		zap.String("order_id", orderID),
		zap.Int64("remote_order_id", remote.ID))
	return remote, nil
}

// ConfirmOrder commits a previously submitted draft for fulfillment.
func (s *OrderService) ConfirmOrder(ctx context.Context, orderID string) (*models.RemoteOrder, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.ConfirmOrder")
	defer span.End()

	remote, err := s.printful.GetOrderByExternalID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("resolve order %s: %w", orderID, err)
	}

	confirmed, err := s.printful.ConfirmOrder(ctx, remote.ID)
	if err != nil {
		return nil, fmt.Errorf("confirm order %s: %w", orderID, err)
	}

	if err := s.store.UpdateOrderStatus(ctx, orderID, models.OrderStatusConfirmed); err != nil {
		return nil, fmt.Errorf("mark order %s confirmed: %w", orderID, err)
	}
	util.OrdersConfirmedTotal.Inc()

	s.logger.Info("Order confirmed",
		zap.String("order_id", orderID),
		zap.Int64("remote_order_id", confirmed.ID))
	return confirmed, nil
}

// CancelOrder asks Printful to cancel an order. A rejection (the order is
// already in fulfillment) is reported back as accepted=false rather than an
// error; only transport failures are errors.
func (s *OrderService) CancelOrder(ctx context.Context, orderID string) (bool, error) {
	ctx, span := util.StartSpan(ctx, "OrderService.CancelOrder")
	defer span.End()

	code, err := s.printful.CancelOrder(ctx, orderID)
	accepted := code == http.StatusOK
	if err != nil && code == 0 {
		return false, fmt.Errorf("cancel order %s: %w", orderID, err)
	}

	if accepted {
		if err := s.store.UpdateOrderStatus(ctx, orderID, models.OrderStatusCancelled); err != nil {
			return true, fmt.Errorf("mark order %s cancelled: %w", orderID, err)
		}
	} else {
		s.logger.Warn("Cancellation rejected by provider",
			zap.String("order_id", orderID),
			zap.Int("code", code))
	}
	util.OrdersCancelledTotal.WithLabelValues(strconv.FormatBool(accepted)).Inc()

	if s.events != nil {
		event := &models.OrderCancelledEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOrderCancelled,
				Timestamp: time.Now(),
			},
			OrderID:  orderID,
			Accepted: accepted,
		}
		if err := s.events.PublishOrderCancelled(ctx, event); err != nil {
			s.logger.Error("Failed to publish OrderCancelled event", zap.Error(err))
		}
	}
	return accepted, nil
}

// SyncFulfillment pulls shipment state for an order from Printful and records
// one fulfillment with its shipment per remote package. orderID is the local
// order id, which doubles as the remote external id.
func (s *OrderService) SyncFulfillment(ctx context.Context, orderID string) error {
	ctx, span := util.StartSpan(ctx, "OrderService.SyncFulfillment")
	defer span.End()

	remote, err := s.printful.GetOrderByExternalID(ctx, orderID)
	if err != nil {
		return fmt.Errorf("fetch remote order %s: %w", orderID, err)
	}
	if len(remote.Shipments) == 0 {
		s.logger.Info("No shipments yet", zap.String("order_id", orderID))
		return nil
	}

	// Remote item ids map back to local item ids via each item's external id.
	localItemID := make(map[int64]string, len(remote.Items))
	for _, item := range remote.Items {
		localItemID[item.ID] = item.ExternalID
	}

	for _, shipment := range remote.Shipments {
		var items []models.FulfillmentItem
		for _, si := range shipment.Items {
			itemID, ok := localItemID[si.ItemID]
			if !ok || itemID == "" {
				s.logger.Warn("Shipment item has no local counterpart",
					zap.String("order_id", orderID),
					zap.Int64("remote_item_id", si.ItemID))
				continue
			}
			items = append(items, models.FulfillmentItem{ItemID: itemID, Quantity: si.Quantity})
		}
		if len(items) == 0 {
			continue
		}

		f, err := s.store.CreateFulfillment(ctx, orderID, items)
		if err != nil {
			return fmt.Errorf("record fulfillment for order %s: %w", orderID, err)
		}
		if _, err := s.store.CreateShipment(ctx, f.ID, []string{shipment.TrackingNumber}); err != nil {
			return fmt.Errorf("record shipment for order %s: %w", orderID, err)
		}
		util.FulfillmentsCreatedTotal.Inc()
	}

	if err := s.store.UpdateOrderStatus(ctx, orderID, models.OrderStatusShipped); err != nil {
		return fmt.Errorf("mark order %s shipped: %w", orderID, err)
	}

	s.logger.Info("Fulfillments recorded",
		zap.String("order_id", orderID),
		zap.Int("shipments", len(remote.Shipments)))
	return nil
}

// QuoteShipping returns the provider's shipping rates for a local order.
func (s *OrderService) QuoteShipping(ctx context.Context, orderID string) ([]models.ShippingRate, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	sub, err := BuildOrderSubmission(order)
	if err != nil {
		return nil, err
	}
	return s.printful.ShippingRates(ctx, &sub.Recipient, sub.Items)
}

// EstimateCosts returns the provider's full cost estimate for a local order.
func (s *OrderService) EstimateCosts(ctx context.Context, orderID string) (map[string]interface{}, error) {
	order, err := s.store.GetOrderByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	sub, err := BuildOrderSubmission(order)
	if err != nil {
		return nil, err
	}
	return s.printful.EstimateOrderCosts(ctx, &sub.Recipient, sub.Items)
}
