package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Metadata keys linking local catalog records to their Printful counterparts.
// Once set, the external-id keys are never overwritten with null.
const (
	MetaPrintfulID               = "printful_id"
	MetaPrintfulCatalogVariantID = "printful_catalog_variant_id"
	MetaPrintfulCatalogProductID = "printful_catalog_product_id"
	MetaLocalID                  = "local_id"
	MetaSize                     = "size"
	MetaColor                    = "color"
	MetaColorCode                = "color_code"
	MetaSizeTables               = "size_tables"
)

// Option axis titles derived from Printful catalog variants.
const (
	OptionSize  = "size"
	OptionColor = "color"
)

// Metadata is a JSONB-backed key/value map on products and variants.
type Metadata map[string]interface{}

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(src interface{}) error {
	if src == nil {
		*m = Metadata{}
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("metadata: cannot scan %T", src)
	}
	return json.Unmarshal(b, m)
}

// String returns the value under key as a string, or "" when absent or null.
func (m Metadata) String(key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

// StringSlice is a JSONB-backed string list (product image URLs).
type StringSlice []string

func (s StringSlice) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

func (s *StringSlice) Scan(src interface{}) error {
	if src == nil {
		*s = nil
		return nil
	}
	b, ok := src.([]byte)
	if !ok {
		return fmt.Errorf("string slice: cannot scan %T", src)
	}
	return json.Unmarshal(b, s)
}

// LocalProduct is a product row in the local catalog. It owns its variants;
// a variant never exists without its parent product.
type LocalProduct struct {
	ID             string      `db:"id" json:"id"`
	Title          string      `db:"title" json:"title"`
	Handle         string      `db:"handle" json:"handle"`
	Thumbnail      string      `db:"thumbnail" json:"thumbnail"`
	ExternalID     string      `db:"external_id" json:"external_id"`
	Images         StringSlice `db:"images" json:"images"`
	ProfileID      string      `db:"profile_id" json:"profile_id"`
	SalesChannelID string      `db:"sales_channel_id" json:"sales_channel_id"`
	Metadata       Metadata    `db:"metadata" json:"metadata"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`

	Options  []ProductOption `db:"-" json:"options,omitempty"`
	Variants []LocalVariant  `db:"-" json:"variants,omitempty"`
}

// ProductOption is a named option axis on a product (size, color).
type ProductOption struct {
	ID        string `db:"id" json:"id"`
	ProductID string `db:"product_id" json:"product_id"`
	Title     string `db:"title" json:"title"`
}

// OptionValue binds a variant to a value on one option axis.
type OptionValue struct {
	OptionID string `db:"option_id" json:"option_id"`
	Value    string `db:"value" json:"value"`
}

// Price is a money amount in minor units with a lowercase currency code.
type Price struct {
	Amount   int64  `db:"amount" json:"amount"`
	Currency string `db:"currency" json:"currency_code"`
}

// LocalVariant is a variant row in the local catalog. Its metadata carries the
// Printful identifiers plus a mirror of the local id for later re-addressing.
type LocalVariant struct {
	ID        string    `db:"id" json:"id"`
	ProductID string    `db:"product_id" json:"product_id"`
	Title     string    `db:"title" json:"title"`
	SKU       string    `db:"sku" json:"sku"`
	Metadata  Metadata  `db:"metadata" json:"metadata"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`

	Prices  []Price       `db:"-" json:"prices,omitempty"`
	Options []OptionValue `db:"-" json:"options,omitempty"`
}

// ExternalID returns the Printful sync-variant id recorded in metadata.
func (v *LocalVariant) ExternalID() string {
	return v.Metadata.String(MetaPrintfulID)
}

// NewProduct is the payload for creating a local product with its variants.
type NewProduct struct {
	Title          string       `json:"title"`
	Handle         string       `json:"handle"`
	Thumbnail      string       `json:"thumbnail"`
	ExternalID     string       `json:"external_id"`
	Images         []string     `json:"images"`
	OptionTitles   []string     `json:"options"`
	ProfileID      string       `json:"profile_id"`
	SalesChannelID string       `json:"sales_channel_id"`
	Metadata       Metadata     `json:"metadata"`
	Variants       []NewVariant `json:"variants"`
}

// NewVariant is the payload for creating a local variant.
type NewVariant struct {
	Title    string   `json:"title"`
	SKU      string   `json:"sku"`
	Prices   []Price  `json:"prices"`
	Metadata Metadata `json:"metadata"`
}

// VariantUpdate is the payload for updating an existing local variant.
// Metadata is merged over the stored map so external-id keys survive.
type VariantUpdate struct {
	Title    string   `json:"title"`
	SKU      string   `json:"sku"`
	Metadata Metadata `json:"metadata"`
}

// ProductUpdate is the payload for updating an existing local product.
type ProductUpdate struct {
	Title     string   `json:"title"`
	Handle    string   `json:"handle"`
	Thumbnail string   `json:"thumbnail"`
	Images    []string `json:"images"`
	Metadata  Metadata `json:"metadata"`
}

// Address is a local order shipping address.
type Address struct {
	FirstName   string `db:"first_name" json:"first_name"`
	LastName    string `db:"last_name" json:"last_name"`
	Address1    string `db:"address_1" json:"address_1"`
	Address2    string `db:"address_2" json:"address_2"`
	City        string `db:"city" json:"city"`
	Province    string `db:"province" json:"province"`
	CountryCode string `db:"country_code" json:"country_code"`
	PostalCode  string `db:"postal_code" json:"postal_code"`
	Phone       string `db:"phone" json:"phone"`
}

// LocalOrder is an order in the local store selected for remote fulfillment.
// The shipping address is stored flat on the order row.
type LocalOrder struct {
	ID               string    `db:"id" json:"id"`
	Email            string    `db:"email" json:"email"`
	Status           string    `db:"status" json:"status"`
	ShippingMethodID string    `db:"shipping_method_id" json:"shipping_method_id"`
	Address          `json:"shipping_address"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time `db:"updated_at" json:"updated_at"`

	Items []LocalOrderItem `db:"-" json:"items,omitempty"`
}

// LocalOrderItem is a line item on a local order. VariantMetadata carries the
// Printful identifiers needed for submission.
type LocalOrderItem struct {
	ID              string   `db:"id" json:"id"`
	OrderID         string   `db:"order_id" json:"order_id"`
	VariantID       string   `db:"variant_id" json:"variant_id"`
	VariantTitle    string   `db:"variant_title" json:"variant_title"`
	Quantity        int      `db:"quantity" json:"quantity"`
	UnitPrice       int64    `db:"unit_price" json:"unit_price"`
	VariantMetadata Metadata `db:"variant_metadata" json:"variant_metadata"`
}

// Order statuses
const (
	OrderStatusPending   = "PENDING"
	OrderStatusSubmitted = "SUBMITTED"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusShipped   = "SHIPPED"
	OrderStatusCancelled = "CANCELLED"
)

// Fulfillment groups shipped order items.
type Fulfillment struct {
	ID        string    `db:"id" json:"id"`
	OrderID   string    `db:"order_id" json:"order_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// FulfillmentItem selects a quantity of one order item for a fulfillment.
type FulfillmentItem struct {
	FulfillmentID string `db:"fulfillment_id" json:"fulfillment_id"`
	ItemID        string `db:"item_id" json:"item_id"`
	Quantity      int    `db:"quantity" json:"quantity"`
}

// Shipment records tracking numbers for a fulfillment.
type Shipment struct {
	ID              string      `db:"id" json:"id"`
	FulfillmentID   string      `db:"fulfillment_id" json:"fulfillment_id"`
	TrackingNumbers StringSlice `db:"tracking_numbers" json:"tracking_numbers"`
	CreatedAt       time.Time   `db:"created_at" json:"created_at"`
}
