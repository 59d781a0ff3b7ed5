package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"printful-sync/internal/models"
	"printful-sync/internal/printful"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeOrderStore struct {
	order        *models.LocalOrder
	statuses     []string
	fulfillments [][]models.FulfillmentItem
	shipments    [][]string
}

func (f *fakeOrderStore) GetOrderByID(ctx context.Context, id string) (*models.LocalOrder, error) {
	return f.order, nil
}

func (f *fakeOrderStore) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	f.statuses = append(f.statuses, status)
	return nil
}

func (f *fakeOrderStore) CreateFulfillment(ctx context.Context, orderID string, items []models.FulfillmentItem) (*models.Fulfillment, error) {
	f.fulfillments = append(f.fulfillments, items)
	return &models.Fulfillment{ID: "ful_1", OrderID: orderID}, nil
}

func (f *fakeOrderStore) CreateShipment(ctx context.Context, fulfillmentID string, trackingNumbers []string) (*models.Shipment, error) {
	f.shipments = append(f.shipments, trackingNumbers)
	return &models.Shipment{ID: "shp_1", FulfillmentID: fulfillmentID, TrackingNumbers: trackingNumbers}, nil
}

func testOrder() *models.LocalOrder {
	return &models.LocalOrder{
		ID:               "order_1",
		Email:            "jane@example.com",
		Status:           models.OrderStatusPending,
		ShippingMethodID: "STANDARD",
		Address: models.Address{
			FirstName:   "Jane",
			LastName:    "Doe",
			Address1:    "1 Main St",
			City:        "Berlin",
			Province:    "BE",
			CountryCode: "DE",
			PostalCode:  "10115",
			Phone:       "+49 30 1234567",
		},
		Items: []models.LocalOrderItem{
			{
				ID:           "item_1",
				OrderID:      "order_1",
				VariantID:    "var_101",
				VariantTitle: "Classic Tee - M / Black",
				Quantity:     2,
				UnitPrice:    1999,
				VariantMetadata: models.Metadata{
					models.MetaPrintfulID:               "101",
					models.MetaPrintfulCatalogVariantID: "4011",
				},
			},
		},
	}
}

func TestBuildOrderSubmission(t *testing.T) {
	sub, err := BuildOrderSubmission(testOrder())
	require.NoError(t, err)

	assert.Equal(t, "order_1", sub.ExternalID)
	assert.Equal(t, "STANDARD", sub.Shipping)
	assert.Equal(t, "Jane Doe", sub.Recipient.Name)
	assert.Equal(t, "BE", sub.Recipient.StateCode)
	assert.Equal(t, "10115", sub.Recipient.Zip)
	assert.Equal(t, "jane@example.com", sub.Recipient.Email)

	require.Len(t, sub.Items, 1)
	item := sub.Items[0]
	assert.Equal(t, "item_1", item.ExternalID)
	assert.Equal(t, int64(4011), item.VariantID)
	assert.Equal(t, int64(101), item.SyncVariantID)
	assert.Equal(t, 2, item.Quantity)
	assert.Equal(t, "19.99", item.Price)
	assert.Equal(t, "19.99", item.RetailPrice)
}

func TestBuildOrderSubmissionUnsyncedVariant(t *testing.T) {
	order := testOrder()
	order.Items[0].VariantMetadata = models.Metadata{}

	_, err := BuildOrderSubmission(order)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no fulfillment identifiers")
}

func TestFormatAmount(t *testing.T) {
	assert.Equal(t, "19.99", FormatAmount(1999))
	assert.Equal(t, "20.00", FormatAmount(2000))
	assert.Equal(t, "0.05", FormatAmount(5))
	assert.Equal(t, "0.00", FormatAmount(0))
}

func printfulStub(t *testing.T, handler http.HandlerFunc) *printful.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return printful.NewClient(srv.URL, "test-token", "1")
}

func TestSubmitOrderDraft(t *testing.T) {
	store := &fakeOrderStore{order: testOrder()}

	var gotConfirm string
	pf := printfulStub(t, func(w http.ResponseWriter, r *http.Request) {
		gotConfirm = r.URL.Query().Get("confirm")
		var sub models.OrderSubmission
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&sub))
		assert.Equal(t, "order_1", sub.ExternalID)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"code":   200,
			"result": map[string]interface{}{"id": 9001, "external_id": "order_1", "status": "draft"},
		})
	})

	svc := NewOrderService(store, pf, nil)
	remote, err := svc.SubmitOrder(context.Background(), "order_1")
	require.NoError(t, err)

	assert.Equal(t, "false", gotConfirm)
	assert.Equal(t, int64(9001), remote.ID)
	assert.Equal(t, []string{models.OrderStatusSubmitted}, store.statuses)
}

func TestCancelOrderRejectedByProvider(t *testing.T) {
	store := &fakeOrderStore{order: testOrder()}

	pf := printfulStub(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code":  409,
			"error": map[string]interface{}{"message": "Order is being fulfilled"},
		})
	})

	svc := NewOrderService(store, pf, nil)
	accepted, err := svc.CancelOrder(context.Background(), "order_1")

	// The rejection is an answer, not a failure.
	require.NoError(t, err)
	assert.False(t, accepted)
	assert.Empty(t, store.statuses)
}

func TestCancelOrderAccepted(t *testing.T) {
	store := &fakeOrderStore{order: testOrder()}

	pf := printfulStub(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code":   200,
			"result": map[string]interface{}{"id": 9001, "status": "canceled"},
		})
	})

	svc := NewOrderService(store, pf, nil)
	accepted, err := svc.CancelOrder(context.Background(), "order_1")
	require.NoError(t, err)
	assert.True(t, accepted)
	assert.Equal(t, []string{models.OrderStatusCancelled}, store.statuses)
}

func TestSyncFulfillment(t *testing.T) {
	store := &fakeOrderStore{order: testOrder()}

	pf := printfulStub(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code": 200,
			"result": map[string]interface{}{
				"id":          9001,
				"external_id": "order_1",
				"status":      "fulfilled",
				"items": []map[string]interface{}{
					{"id": 501, "external_id": "item_1", "quantity": 2},
				},
				"shipments": []map[string]interface{}{
					{
						"id":              71,
						"carrier":         "DHL",
						"tracking_number": "TRACK-123",
						"items":           []map[string]interface{}{{"item_id": 501, "quantity": 2}},
					},
				},
			},
		})
	})

	svc := NewOrderService(store, pf, nil)
	require.NoError(t, svc.SyncFulfillment(context.Background(), "order_1"))

	require.Len(t, store.fulfillments, 1)
	require.Len(t, store.fulfillments[0], 1)
	assert.Equal(t, "item_1", store.fulfillments[0][0].ItemID)
	assert.Equal(t, 2, store.fulfillments[0][0].Quantity)

	require.Len(t, store.shipments, 1)
	assert.Equal(t, []string{"TRACK-123"}, store.shipments[0])

	assert.Equal(t, []string{models.OrderStatusShipped}, store.statuses)
}
