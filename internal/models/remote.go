package models

import "encoding/json"

// Wire shapes for the Printful store/catalog API. These are read-only
// snapshots, borrowed for the duration of one reconciliation run.

// RemoteProduct is the envelope returned by GET store/products/{id}.
type RemoteProduct struct {
	SyncProduct  SyncProduct   `json:"sync_product"`
	SyncVariants []SyncVariant `json:"sync_variants"`
}

// SyncProduct is a store-level product.
type SyncProduct struct {
	ID           int64  `json:"id"`
	ExternalID   string `json:"external_id"`
	Name         string `json:"name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

// SyncVariant is a store-level variant of a SyncProduct.
type SyncVariant struct {
	ID          int64              `json:"id"`
	ExternalID  string             `json:"external_id"`
	SyncProduct int64              `json:"sync_product_id"`
	Name        string             `json:"name"`
	SKU         string             `json:"sku"`
	RetailPrice string             `json:"retail_price"`
	Currency    string             `json:"currency"`
	VariantID   int64              `json:"variant_id"`
	Product     SyncVariantProduct `json:"product"`
	Files       []VariantFile      `json:"files"`
}

// SyncVariantProduct identifies the catalog product a variant is printed on.
type SyncVariantProduct struct {
	VariantID int64  `json:"variant_id"`
	ProductID int64  `json:"product_id"`
	Name      string `json:"name"`
	Image     string `json:"image"`
}

// VariantFile is one entry in a variant's file manifest.
type VariantFile struct {
	ID         int64  `json:"id"`
	Type       string `json:"type"`
	URL        string `json:"url"`
	PreviewURL string `json:"preview_url"`
}

// FileTypePreview marks mockup images in a variant file manifest.
const FileTypePreview = "preview"

// CatalogVariantInfo is the envelope returned by GET products/variant/{id}.
type CatalogVariantInfo struct {
	Variant CatalogVariant `json:"variant"`
	Product CatalogProduct `json:"product"`
}

// CatalogVariant describes one catalog variant's option attributes.
// Size and color are optional; a variant may carry neither.
type CatalogVariant struct {
	ID        int64   `json:"id"`
	ProductID int64   `json:"product_id"`
	Name      string  `json:"name"`
	Size      *string `json:"size"`
	Color     *string `json:"color"`
	ColorCode *string `json:"color_code"`
}

// CatalogProduct is the catalog-level parent of a catalog variant.
type CatalogProduct struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	Brand string `json:"brand"`
	Model string `json:"model"`
}

// SizeGuide is the sizing payload for a catalog product. Cosmetic only;
// fetch failures yield a nil guide, never an error.
type SizeGuide struct {
	ProductID      int64           `json:"product_id"`
	AvailableSizes []string        `json:"available_sizes"`
	SizeTables     json.RawMessage `json:"size_tables"`
}

// OrderRecipient is the flat shipping recipient on a Printful order.
type OrderRecipient struct {
	Name        string `json:"name"`
	Address1    string `json:"address1"`
	Address2    string `json:"address2,omitempty"`
	City        string `json:"city"`
	StateCode   string `json:"state_code"`
	CountryCode string `json:"country_code"`
	Zip         string `json:"zip"`
	Email       string `json:"email"`
	Phone       string `json:"phone,omitempty"`
}

// OrderSubmissionItem is one line item on a Printful order submission.
type OrderSubmissionItem struct {
	Name          string `json:"name"`
	ExternalID    string `json:"external_id"`
	VariantID     int64  `json:"variant_id"`
	SyncVariantID int64  `json:"sync_variant_id"`
	Quantity      int    `json:"quantity"`
	Price         string `json:"price"`
	RetailPrice   string `json:"retail_price"`
}

// OrderSubmission is the POST orders payload. Submitted unconfirmed (a
// draft); a separate confirm call commits it for fulfillment.
type OrderSubmission struct {
	ExternalID string                `json:"external_id"`
	Shipping   string                `json:"shipping"`
	Recipient  OrderRecipient        `json:"recipient"`
	Items      []OrderSubmissionItem `json:"items"`
}

// RemoteOrder is a Printful order as returned by the orders endpoints.
type RemoteOrder struct {
	ID         int64             `json:"id"`
	ExternalID string            `json:"external_id"`
	Status     string            `json:"status"`
	Shipments  []RemoteShipment  `json:"shipments"`
	Items      []RemoteOrderItem `json:"items"`
	Costs      map[string]string `json:"costs,omitempty"`
	Recipient  OrderRecipient    `json:"recipient"`
}

// RemoteOrderItem is a line item on a remote order.
type RemoteOrderItem struct {
	ID         int64  `json:"id"`
	ExternalID string `json:"external_id"`
	Quantity   int    `json:"quantity"`
}

// RemoteShipment is a tracking record on a remote order.
type RemoteShipment struct {
	ID             int64                `json:"id"`
	Carrier        string               `json:"carrier"`
	TrackingNumber string               `json:"tracking_number"`
	TrackingURL    string               `json:"tracking_url"`
	Items          []RemoteShipmentItem `json:"items"`
}

// RemoteShipmentItem selects a quantity of one order item in a shipment.
type RemoteShipmentItem struct {
	ItemID   int64 `json:"item_id"`
	Quantity int   `json:"quantity"`
}

// ShippingRate is one rate returned by POST shipping/rates.
type ShippingRate struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Rate     string `json:"rate"`
	Currency string `json:"currency"`
}
