package printful

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"printful-sync/internal/models"
)

// CreateOrder submits an order. With confirm=false the order stays a draft
// until ConfirmOrder commits it for fulfillment.
func (c *Client) CreateOrder(ctx context.Context, sub *models.OrderSubmission, confirm bool) (*models.RemoteOrder, error) {
	var order models.RemoteOrder
	params := url.Values{"confirm": {fmt.Sprintf("%t", confirm)}}
	if _, err := c.do(ctx, http.MethodPost, "orders", "orders", params, sub, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ConfirmOrder transitions a draft order to committed.
func (c *Client) ConfirmOrder(ctx context.Context, orderID int64) (*models.RemoteOrder, error) {
	var order models.RemoteOrder
	path := fmt.Sprintf("orders/%d/confirm", orderID)
	if _, err := c.do(ctx, http.MethodPost, path, "orders/confirm", nil, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// CancelOrder cancels an order addressed by its external id. The status code
// is returned so callers can pass a rejection (e.g. already fulfilled) back
// instead of treating it as a local failure.
func (c *Client) CancelOrder(ctx context.Context, externalID string) (int, error) {
	return c.do(ctx, http.MethodDelete, "orders/@"+externalID, "orders/cancel", nil, nil, nil)
}

// GetOrder fetches current remote order status and tracking data.
func (c *Client) GetOrder(ctx context.Context, orderID int64) (*models.RemoteOrder, error) {
	var order models.RemoteOrder
	path := fmt.Sprintf("orders/%d", orderID)
	if _, err := c.do(ctx, http.MethodGet, path, "orders/get", nil, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderByExternalID fetches a remote order by the local order id it was
// submitted under.
func (c *Client) GetOrderByExternalID(ctx context.Context, externalID string) (*models.RemoteOrder, error) {
	var order models.RemoteOrder
	if _, err := c.do(ctx, http.MethodGet, "orders/@"+externalID, "orders/get", nil, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// ShippingRates quotes shipping for a recipient and item list.
func (c *Client) ShippingRates(ctx context.Context, recipient *models.OrderRecipient, items []models.OrderSubmissionItem) ([]models.ShippingRate, error) {
	var rates []models.ShippingRate
	body := map[string]interface{}{"recipient": recipient, "items": items}
	if _, err := c.do(ctx, http.MethodPost, "shipping/rates", "shipping/rates", nil, body, &rates); err != nil {
		return nil, err
	}
	return rates, nil
}

// EstimateOrderCosts estimates full order costs before submission.
func (c *Client) EstimateOrderCosts(ctx context.Context, recipient *models.OrderRecipient, items []models.OrderSubmissionItem) (map[string]interface{}, error) {
	var costs map[string]interface{}
	body := map[string]interface{}{"recipient": recipient, "items": items}
	if _, err := c.do(ctx, http.MethodPost, "orders/estimate-costs", "orders/estimate-costs", nil, body, &costs); err != nil {
		return nil, err
	}
	return costs, nil
}

// Countries lists shipping destinations supported by the provider.
func (c *Client) Countries(ctx context.Context) ([]map[string]interface{}, error) {
	var countries []map[string]interface{}
	if _, err := c.do(ctx, http.MethodGet, "countries", "countries", nil, nil, &countries); err != nil {
		return nil, err
	}
	return countries, nil
}

// TaxCountries lists countries for which tax rates can be calculated.
func (c *Client) TaxCountries(ctx context.Context) ([]map[string]interface{}, error) {
	var countries []map[string]interface{}
	if _, err := c.do(ctx, http.MethodGet, "tax/countries", "tax/countries", nil, nil, &countries); err != nil {
		return nil, err
	}
	return countries, nil
}

// CalculateTaxRate calculates the tax rate for a recipient address.
func (c *Client) CalculateTaxRate(ctx context.Context, recipient *models.OrderRecipient) (map[string]interface{}, error) {
	var rate map[string]interface{}
	body := map[string]interface{}{"recipient": recipient}
	if _, err := c.do(ctx, http.MethodPost, "tax/rates", "tax/rates", nil, body, &rate); err != nil {
		return nil, err
	}
	return rate, nil
}
